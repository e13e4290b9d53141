package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"ocrd/internal/envcheck"
)

func (a *app) doctorCommand() *cobra.Command {
	var (
		serviceURL string
		output     string
		strict     bool
		format     string
	)
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check GPU, CUDA, WSL and credentials for serving DeepSeek-OCR",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("output") {
				output = a.cfg.Runner.OutputPath
			}
			runner := a.cfg.Runner
			rep := envcheck.Run(cmd.Context(), envcheck.SystemEnv(), envcheck.Options{
				OutputPath: output,
				ServiceURL: serviceURL,
				Runner:     &runner,
			})
			switch format {
			case "json":
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(rep); err != nil {
					return err
				}
			case "yaml":
				b, err := yaml.Marshal(rep)
				if err != nil {
					return err
				}
				_, _ = a.stdout.Write(b)
			case "text", "":
				rep.Print(a.stdout, isTerminal(a.stdout), strict)
			default:
				return fmt.Errorf("unsupported format %q (want text, json or yaml)", format)
			}
			if rep.Failed(strict) {
				return fmt.Errorf("doctor: %d error(s), %d warning(s)", rep.Errors(), rep.Warnings())
			}
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&serviceURL, "service-url", "", "also probe a running ocrd service")
	fl.StringVar(&output, "output", "", "output directory to check for write access (default OUTPUT_PATH)")
	fl.BoolVar(&strict, "strict", false, "treat warnings as failures")
	fl.StringVar(&format, "format", "text", "text|json|yaml")
	return cmd
}
