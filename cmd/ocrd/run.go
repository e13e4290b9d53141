package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"ocrd/internal/engine"
	"ocrd/internal/ocrclient"
	"ocrd/internal/pipeline"
	"ocrd/pkg/types"
)

type runFlags struct {
	input      string
	output     string
	name       string
	mode       string
	prompt     string
	workers    int
	serviceURL string
	local      bool
	failFast   bool
	toc        bool
	retries    int
	timeoutSec int
}

func (a *app) runCommand() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "OCR a file or directory of page images into markdown",
		Long: "Reads INPUT_PATH (an image or a directory of images), recognizes every page and writes\n" +
			"<stem>.md per image plus <name>_OCR.md with all pages under OUTPUT_PATH.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, f)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.input, "input", "i", "", "image file or directory (INPUT_PATH)")
	fl.StringVarP(&f.output, "output", "o", "", "output directory (OUTPUT_PATH)")
	fl.StringVar(&f.name, "name", "", "combined document name (default derived from input)")
	fl.StringVar(&f.mode, "mode", "", "Tiny|Small|Base|Large|Gundam (default from BASE_SIZE/IMAGE_SIZE/CROP_MODE)")
	fl.StringVar(&f.prompt, "prompt", "", "prompt (PROMPT)")
	fl.IntVarP(&f.workers, "workers", "w", 0, "concurrent pages (NUM_WORKERS)")
	fl.StringVar(&f.serviceURL, "service-url", "", "ocrd service URL (default $OCRD_SERVICE_URL or http://localhost:8000)")
	fl.BoolVar(&f.local, "local", false, "recognize in process instead of calling the service")
	fl.BoolVar(&f.failFast, "fail-fast", false, "stop at the first failed page")
	fl.BoolVar(&f.toc, "toc", true, "add a table of contents to the combined document")
	fl.IntVar(&f.retries, "retries", ocrclient.DefaultMaxRetries, "attempts per page against the service")
	fl.IntVar(&f.timeoutSec, "timeout", int(ocrclient.DefaultTimeout/time.Second), "seconds per attempt against the service")
	return cmd
}

func (a *app) run(cmd *cobra.Command, f runFlags) error {
	ctx := cmd.Context()
	r := a.cfg.Runner
	ch := cmd.Flags().Changed
	if ch("input") {
		r.InputPath = f.input
	}
	if ch("output") {
		r.OutputPath = f.output
	}
	if ch("prompt") {
		r.Prompt = f.prompt
	}
	if ch("workers") {
		r.NumWorkers = f.workers
	}
	mode := r.Mode()
	if ch("mode") {
		m, err := types.ParseMode(f.mode)
		if err != nil {
			return err
		}
		mode = m
		if r, err = r.WithMode(m); err != nil {
			return err
		}
	}
	if err := r.Validate(); err != nil {
		return err
	}
	if r.InputPath == "" || r.OutputPath == "" {
		return fmt.Errorf("INPUT_PATH and OUTPUT_PATH are required (--input, --output)")
	}

	var rec pipeline.Recognizer
	if f.local {
		cfg := a.cfg
		cfg.Runner = r
		eng, err := engine.Open(ctx, cfg, a.log)
		if err != nil {
			return err
		}
		defer eng.Close()
		rec = pipeline.EngineRecognizer{Engine: eng}
	} else {
		url := f.serviceURL
		if url == "" {
			if v, ok := a.lookup("OCRD_SERVICE_URL"); ok {
				url = v
			}
		}
		rec = ocrclient.New(url,
			ocrclient.WithMaxRetries(f.retries),
			ocrclient.WithTimeout(time.Duration(f.timeoutSec)*time.Second),
			ocrclient.WithLogger(a.log),
		)
	}

	var progress io.Writer
	if isTerminal(a.stderr) {
		progress = a.stderr
	}
	rep, err := pipeline.New(rec, pipeline.Options{
		Input:    r.InputPath,
		Output:   r.OutputPath,
		Name:     f.name,
		Mode:     mode,
		Prompt:   r.Prompt,
		Workers:  r.NumWorkers,
		FailFast: f.failFast,
		TOC:      f.toc,
		Progress: progress,
		Logger:   a.log,
	}).Run(ctx)
	if err != nil {
		return err
	}

	s := rep.Stats
	fmt.Fprintf(a.stdout, "%d/%d pages OK in %s, %d vision / %d text tokens\n",
		s.Succeeded, s.Total, s.Duration.Round(time.Millisecond), s.VisionTokens, s.TextTokens)
	fmt.Fprintf(a.stdout, "combined: %s\n", rep.Combined)
	for _, e := range s.Errors {
		fmt.Fprintf(a.stdout, "page %d (%s): %s\n", e.Page, e.File, e.Error)
	}
	if s.Failed > 0 {
		return fmt.Errorf("%d of %d pages failed", s.Failed, s.Total)
	}
	return nil
}
