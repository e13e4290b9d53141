package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"ocrd/internal/config"
	"ocrd/internal/engine"
	"ocrd/internal/httpapi"
	"ocrd/pkg/types"
)

const shutdownGrace = 30 * time.Second

type serveFlags struct {
	addr           string
	backend        string
	vllmURL        string
	model          string
	mode           string
	maxConcurrency int
	maxQueueDepth  int
	queueWaitSec   int
	requestTimeout int
	maxBodyBytes   int64
	corsOrigins    []string
}

func (a *app) serveCommand() *cobra.Command {
	var f serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the OCR HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := f.apply(cmd, &a.cfg); err != nil {
				return err
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return a.serve(cmd.Context())
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.addr, "addr", "", "listen address (default :8000)")
	fl.StringVar(&f.backend, "backend", "", "backend: auto|vllm|stub|tesseract")
	fl.StringVar(&f.vllmURL, "vllm-url", "", "OpenAI-compatible vLLM base URL")
	fl.StringVar(&f.model, "model", "", "served model name (default MODEL_PATH)")
	fl.StringVar(&f.mode, "mode", "", "apply a size preset: Tiny|Small|Base|Large|Gundam")
	fl.IntVar(&f.maxConcurrency, "max-concurrency", 0, "requests handed to the backend at once (MAX_CONCURRENCY)")
	fl.IntVar(&f.maxQueueDepth, "max-queue-depth", 0, "requests admitted, waiting or in flight")
	fl.IntVar(&f.queueWaitSec, "queue-wait", 0, "seconds a request may wait for a slot before 429")
	fl.IntVar(&f.requestTimeout, "request-timeout", 0, "seconds per OCR request before 504 (0 disables)")
	fl.Int64Var(&f.maxBodyBytes, "max-body-bytes", 0, "request body limit in bytes")
	fl.StringSliceVar(&f.corsOrigins, "cors-origins", nil, "enable CORS for these origins")
	return cmd
}

func (f serveFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	ch := cmd.Flags().Changed
	if ch("addr") {
		cfg.Addr = f.addr
	}
	if ch("backend") {
		cfg.Backend = f.backend
	}
	if ch("vllm-url") {
		cfg.VLLMURL = f.vllmURL
	}
	if ch("model") {
		cfg.Model = f.model
	}
	if ch("mode") {
		m, err := types.ParseMode(f.mode)
		if err != nil {
			return err
		}
		if cfg.Runner, err = cfg.Runner.WithMode(m); err != nil {
			return err
		}
	}
	if ch("max-concurrency") {
		cfg.Runner.MaxConcurrency = f.maxConcurrency
	}
	if ch("max-queue-depth") {
		cfg.MaxQueueDepth = f.maxQueueDepth
	}
	if ch("queue-wait") {
		cfg.QueueWaitSec = f.queueWaitSec
	}
	if ch("request-timeout") {
		cfg.RequestTimeoutSec = f.requestTimeout
	}
	if ch("max-body-bytes") {
		cfg.MaxBodyBytes = f.maxBodyBytes
	}
	if ch("cors-origins") {
		cfg.CORSOrigins = f.corsOrigins
	}
	return nil
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	log := a.log

	eng, err := engine.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := eng.Close(); err != nil {
			log.Warn().Err(err).Msg("engine close")
		}
	}()
	rep := eng.SanityCheck(ctx)
	log.Info().Str("event", "sanity").Str("backend", rep.Backend).Bool("reachable", rep.Reachable).
		Bool("model_loaded", rep.ModelLoaded).Str("detail", rep.Error).Msg("backend check")

	httpapi.SetLogger(log)
	httpapi.SetDefaultLogLevel(cfg.LogLevel)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetRequestTimeoutSeconds(int64(cfg.RequestTimeoutSec))
	httpapi.SetCORSOptions(len(cfg.CORSOrigins) > 0, cfg.CORSOrigins, nil, nil)

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           httpapi.NewMux(eng),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	log.Info().Str("event", "listen").Str("addr", ln.Addr().String()).Str("backend", eng.BackendName()).
		Str("mode", string(cfg.Runner.Mode())).Int("max_concurrency", cfg.Runner.MaxConcurrency).
		Msg("ocrd listening")

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	// New requests get 429 while in-flight ones finish within the grace period.
	log.Info().Str("event", "shutdown").Msg("shutting down")
	eng.Drain()
	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown incomplete; canceling in-flight requests")
		cancelBase()
		_ = srv.Close()
	}
	return nil
}
