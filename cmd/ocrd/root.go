package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ocrd/internal/config"
)

// app carries state shared by subcommands: the merged configuration and the logger.
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg    config.Config
	log    zerolog.Logger
	stdout io.Writer
	stderr io.Writer
	// lookup reads the environment; tests replace it.
	lookup config.LookupFunc
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr, lookup: os.LookupEnv}
	return a.rootCommand()
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "ocrd",
		Short:         "DeepSeek-OCR service, client and batch runner",
		Version:       version,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return a.load(cmd)
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "config file (.yaml, .yml, .json, .toml)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug|info|warn|error (default from config)")
	pf.StringVar(&a.logFormat, "log-format", "", "log format: json|console (default console on a terminal)")

	root.AddCommand(
		a.serveCommand(),
		a.runCommand(),
		a.healthCommand(),
		a.doctorCommand(),
		a.presetCommand(),
	)
	return root
}

// load merges defaults < config file < environment and builds the logger.
// Subcommands apply their own flags on top of a.cfg.
func (a *app) load(cmd *cobra.Command) error {
	cfg := config.Default()
	path := a.configPath
	if path == "" {
		if v, ok := a.lookup("OCRD_CONFIG"); ok {
			path = v
		}
	}
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return err
		}
	}
	if err := config.ApplyEnv(&cfg, a.lookup); err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	a.cfg = cfg

	l, err := newLogger(a.stderr, cfg.LogLevel, a.logFormat)
	if err != nil {
		return err
	}
	a.log = l
	return nil
}

func newLogger(w io.Writer, level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	out := w
	switch strings.ToLower(format) {
	case "json":
	case "console":
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	case "":
		if isTerminal(w) {
			out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
		}
	default:
		return zerolog.Nop(), fmt.Errorf("log format %q: want json or console", format)
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
