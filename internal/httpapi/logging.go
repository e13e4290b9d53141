package httpapi

import (
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// zlog is an optional structured logger. If unset, falls back to log.Printf.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = &l }

// loggingLineWriter logs complete lines of recognized markdown.
type loggingLineWriter struct {
	buf []byte
}

func (lw *loggingLineWriter) Write(p []byte) (int, error) {
	lw.buf = append(lw.buf, p...)
	for {
		idx := indexByte(lw.buf, '\n')
		if idx < 0 {
			break
		}
		if line := string(lw.buf[:idx]); len(line) > 0 {
			logLine(line)
		}
		lw.buf = lw.buf[idx+1:]
	}
	return len(p), nil
}

// Flush logs any trailing partial line.
func (lw *loggingLineWriter) Flush() {
	if len(lw.buf) > 0 {
		logLine(string(lw.buf))
		lw.buf = nil
	}
}

func logLine(line string) {
	if zlog != nil {
		zlog.Debug().Str("line", line).Msg("ocr>")
		return
	}
	log.Printf("ocr> %s", line)
}

func indexByte(b []byte, c byte) int {
	for i := range b {
		if b[i] == c {
			return i
		}
	}
	return -1
}

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch s {
	case "off", "":
		return LevelOff
	case "error":
		return LevelError
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// global default, read once
var defaultLogLevel = parseLevel(os.Getenv("OCRD_LOG_LEVEL"))

// SetDefaultLogLevel overrides the per-request default (off, error, info, debug).
func SetDefaultLogLevel(s string) { defaultLogLevel = parseLevel(s) }

func requestLogLevel(r *http.Request) LogLevel {
	// Per-request overrides
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}

// reqEvent carries the fields common to one request's log lines.
type reqEvent struct {
	r     *http.Request
	lvl   LogLevel
	attrs map[string]any
}

func newReqEvent(r *http.Request, lvl LogLevel) *reqEvent {
	return &reqEvent{r: r, lvl: lvl, attrs: map[string]any{}}
}

func (e *reqEvent) with(k string, v any) *reqEvent {
	e.attrs[k] = v
	return e
}

// emit logs msg when the request level admits at; err may be nil.
func (e *reqEvent) emit(at LogLevel, msg string, err error) {
	if e.lvl < at {
		return
	}
	rid := middleware.GetReqID(e.r.Context())
	if zlog != nil {
		z := zlog.Info()
		if at == LevelError {
			z = zlog.Error()
		}
		z = z.Str("path", e.r.URL.Path).Fields(e.attrs)
		if rid != "" {
			z = z.Str("request_id", rid)
		}
		if err != nil {
			z = z.Err(err)
		}
		z.Msg(msg)
		return
	}
	log.Printf("%s path=%s request_id=%s attrs=%v err=%v", msg, e.r.URL.Path, rid, e.attrs, err)
}
