package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ocrd/internal/engine"
	"ocrd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Recognize(ctx context.Context, kind engine.Kind, req types.OCRRequest) (types.OCRResponse, error)
	Health(ctx context.Context) types.HealthResponse
	Status() types.StatusResponse
	Ready() bool
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			MaxAge:         300,
		}))
	}

	r.Get("/health", healthHandler(svc))

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(svc.Status()); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
			return
		}
	})

	r.Post("/ocr/page", ocrHandler(svc, engine.KindPage))
	r.Post("/ocr/figure", ocrHandler(svc, engine.KindFigure))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

// healthHandler godoc
// @Summary      Service health
// @Description  Reports backend availability. Always 200 while the process is up and an engine is installed.
// @Tags         health
// @Produce      json
// @Success      200  {object}  types.HealthResponse
// @Failure      503  {object}  types.HealthResponse
// @Router       /health [get]
func healthHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		h := svc.Health(ctx)
		w.Header().Set("Content-Type", "application/json")
		if h.Backend == "" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(h)
	}
}

// ocrHandler godoc
// @Summary      Recognize a page or figure
// @Description  Runs DeepSeek-OCR on a base64 image. /ocr/page defaults to the layout markdown prompt, /ocr/figure to the figure parsing prompt.
// @Tags         ocr
// @Accept       json
// @Produce      json
// @Param        request  body      types.OCRRequest  true  "OCR request"
// @Success      200      {object}  types.OCRResponse
// @Failure      400      {object}  types.ErrorResponse
// @Failure      415      {object}  types.ErrorResponse
// @Failure      429      {object}  types.ErrorResponse
// @Failure      500      {object}  types.ErrorResponse
// @Failure      503      {object}  types.ErrorResponse
// @Router       /ocr/page [post]
// @Router       /ocr/figure [post]
func ocrHandler(svc Service, kind engine.Kind) http.HandlerFunc {
	endpoint := "/ocr/" + string(kind)
	return func(w http.ResponseWriter, r *http.Request) {
		// Content-Type check
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.OCRRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if strings.TrimSpace(req.Image) == "" {
			writeJSONError(w, http.StatusBadRequest, "image is required")
			return
		}

		lvl := requestLogLevel(r)
		ev := newReqEvent(r, lvl).with("mode", req.Mode).with("page_id", req.PageID)
		ev.emit(LevelInfo, "ocr start", nil)
		start := time.Now()

		// Join server base context with request context so shutdown cancels work too.
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		if requestTimeout > 0 {
			var cancelT context.CancelFunc
			ctx, cancelT = context.WithTimeout(ctx, requestTimeout)
			defer cancelT()
		}

		resp, err := svc.Recognize(ctx, kind, req)
		if err != nil {
			// Client disconnect: nobody to answer.
			if r.Context().Err() != nil {
				observeOCR(endpoint, req.Mode, "canceled", time.Since(start), 0, 0)
				return
			}
			status, msg := errorStatus(err)
			if serverBaseCtx.Err() != nil {
				status, msg = http.StatusServiceUnavailable, "server shutting down"
			}
			if status == http.StatusTooManyRequests {
				IncrementBackpressure("queue")
			}
			observeOCR(endpoint, req.Mode, "error", time.Since(start), 0, 0)
			writeJSONError(w, status, msg)
			at := LevelInfo
			if status >= 500 {
				at = LevelError
			}
			ev.with("status", status).with("dur", time.Since(start).String()).emit(at, "ocr end", err)
			return
		}

		observeOCR(endpoint, resp.Mode, "ok", time.Since(start), resp.VisionTokens, resp.TextTokens)
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			ev.emit(LevelError, "encode response", err)
			return
		}
		if lvl >= LevelDebug {
			lw := &loggingLineWriter{}
			_, _ = io.WriteString(lw, resp.Markdown)
			lw.Flush()
		}
		ev.with("status", http.StatusOK).with("blocks", len(resp.Blocks)).
			with("text_tokens", resp.TextTokens).with("dur", time.Since(start).String()).
			emit(LevelInfo, "ocr end", nil)
	}
}
