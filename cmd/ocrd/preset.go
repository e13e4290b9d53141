package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ocrd/internal/config"
	"ocrd/pkg/types"
)

func (a *app) presetCommand() *cobra.Command {
	var (
		mode    string
		vramMiB int
		format  string
	)
	cmd := &cobra.Command{
		Use:   "preset",
		Short: "Print runner settings for a mode and GPU memory size",
		Example: "  ocrd preset --mode Gundam --vram-mib 12288 --format env > ocr.env\n" +
			"  ocrd preset --mode Base --format yaml",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := a.cfg.Runner
			if mode != "" {
				m, err := types.ParseMode(mode)
				if err != nil {
					return err
				}
				if r, err = r.WithMode(m); err != nil {
					return err
				}
			}
			if vramMiB > 0 {
				r = r.ForVRAM(vramMiB)
			}
			if err := r.Validate(); err != nil {
				return err
			}
			if strings.EqualFold(format, "env") {
				for _, l := range r.EnvLines() {
					fmt.Fprintln(a.stdout, l)
				}
				return nil
			}
			b, err := config.Encode(r, format)
			if err != nil {
				return err
			}
			_, err = a.stdout.Write(b)
			return err
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&mode, "mode", "", "Tiny|Small|Base|Large|Gundam")
	fl.IntVar(&vramMiB, "vram-mib", 0, "GPU memory in MiB; caps crops, concurrency and workers")
	fl.StringVar(&format, "format", "yaml", "yaml|json|toml|env")
	return cmd
}
