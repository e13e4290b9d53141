package engine

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"ocrd/internal/config"
	"ocrd/pkg/types"
)

const testModel = "deepseek-ai/DeepSeek-OCR"

type fakeVLLM struct {
	mu      sync.Mutex
	lastReq map[string]any
	models  []string
	content string
}

func (f *fakeVLLM) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		data := make([]map[string]any, 0, len(f.models))
		for _, m := range f.models {
			data = append(data, map[string]any{"id": m, "object": "model", "created": 0, "owned_by": "vllm"})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		_ = json.Unmarshal(body, &req)
		f.mu.Lock()
		f.lastReq = req
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"created": 0,
			"model":   testModel,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": f.content},
			}},
			"usage": map[string]any{"prompt_tokens": 300, "completion_tokens": 42, "total_tokens": 342},
		})
	})
	return mux
}

func TestVLLMBackend_Recognize(t *testing.T) {
	fv := &fakeVLLM{models: []string{testModel}, content: "# Invoice\n\nTotal: 10"}
	srv := httptest.NewServer(fv.handler())
	defer srv.Close()

	b := NewVLLMBackend(VLLMOptions{BaseURL: srv.URL + "/v1", Model: testModel})
	out, err := b.Recognize(context.Background(), Input{
		Image:  pngBytes(t, 4, 4),
		Format: "png",
		Prompt: "<image>\n<|grounding|>Convert the document to markdown.",
	})
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if out.Markdown != "# Invoice\n\nTotal: 10" || out.TextTokens != 42 {
		t.Fatalf("unexpected output: %+v", out)
	}

	fv.mu.Lock()
	req := fv.lastReq
	fv.mu.Unlock()
	if req["model"] != testModel || req["temperature"] != float64(0) {
		t.Fatalf("model/temperature not sent: %v", req)
	}
	if req["skip_special_tokens"] != false {
		t.Fatalf("skip_special_tokens = %v", req["skip_special_tokens"])
	}
	xargs, _ := req["vllm_xargs"].(map[string]any)
	if xargs["ngram_size"] != float64(30) || xargs["window_size"] != float64(90) {
		t.Fatalf("vllm_xargs = %v", req["vllm_xargs"])
	}
	msgs, _ := req["messages"].([]any)
	if len(msgs) != 1 {
		t.Fatalf("messages = %v", req["messages"])
	}
	parts, _ := msgs[0].(map[string]any)["content"].([]any)
	if len(parts) != 2 {
		t.Fatalf("content parts = %v", parts)
	}
	img, _ := parts[0].(map[string]any)["image_url"].(map[string]any)
	if url, _ := img["url"].(string); !strings.HasPrefix(url, "data:image/png;base64,") {
		t.Fatalf("image url = %v", img["url"])
	}
	if txt := parts[1].(map[string]any)["text"]; txt != "<|grounding|>Convert the document to markdown." {
		t.Fatalf("prompt text = %q", txt)
	}
}

func TestVLLMBackend_Probe(t *testing.T) {
	fv := &fakeVLLM{models: []string{"other"}}
	srv := httptest.NewServer(fv.handler())
	defer srv.Close()

	b := NewVLLMBackend(VLLMOptions{BaseURL: srv.URL + "/v1", Model: testModel})
	h := b.Probe(context.Background())
	if !h.Reachable || h.ModelLoaded || !strings.Contains(h.Detail, "other") {
		t.Fatalf("probe with missing model = %+v", h)
	}
	fv.models = []string{testModel}
	if h := b.Probe(context.Background()); !h.ModelLoaded {
		t.Fatalf("probe with served model = %+v", h)
	}

	srv.Close()
	if h := b.Probe(context.Background()); h.Reachable {
		t.Fatalf("closed server reported reachable")
	}
}

func TestVLLMBackend_UnavailableIsDependencyError(t *testing.T) {
	in := Input{Image: pngBytes(t, 2, 2), Format: "png", Prompt: "x", Mode: types.ModeTiny}

	var status atomic.Int32
	status.Store(http.StatusServiceUnavailable)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(int(status.Load()))
		_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"err"}}`))
	}))
	defer srv.Close()
	b := NewVLLMBackend(VLLMOptions{BaseURL: srv.URL + "/v1", Model: testModel})

	if _, err := b.Recognize(context.Background(), in); !IsDependencyUnavailable(err) {
		t.Fatalf("503 from vLLM: got %v", err)
	}
	status.Store(http.StatusBadRequest)
	if _, err := b.Recognize(context.Background(), in); err == nil || IsDependencyUnavailable(err) {
		t.Fatalf("400 from vLLM should stay a processing error, got %v", err)
	}

	srv.Close()
	_, err := b.Recognize(context.Background(), in)
	if !IsDependencyUnavailable(err) || !strings.Contains(err.Error(), "unreachable") {
		t.Fatalf("closed server: got %v", err)
	}
}

func TestHealthReportsServedModel(t *testing.T) {
	fv := &fakeVLLM{models: []string{"ocr"}}
	srv := httptest.NewServer(fv.handler())
	defer srv.Close()

	runner := config.DefaultRunner()
	e := New(NewVLLMBackend(VLLMOptions{BaseURL: srv.URL + "/v1", Model: "ocr"}), runner)
	h := e.Health(context.Background())
	if h.Model != "ocr" || !h.ModelLoaded {
		t.Fatalf("health = %+v, want the served name that was probed", h)
	}
	if st := e.Status(); st.Model != "ocr" {
		t.Fatalf("status model = %q", st.Model)
	}

	if h := New(NewStubBackend(), runner).Health(context.Background()); h.Model != runner.ModelPath {
		t.Fatalf("stub health model = %q, want %q", h.Model, runner.ModelPath)
	}
}

func TestOpenBackend_AutoFallsBackToStub(t *testing.T) {
	cfg := config.Default()
	cfg.VLLMURL = "http://127.0.0.1:1/v1"
	b, err := OpenBackend(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if b.Name() != BackendStub {
		t.Fatalf("backend = %s, want stub", b.Name())
	}
}

func TestOpenBackend_AutoUsesVLLM(t *testing.T) {
	fv := &fakeVLLM{models: []string{testModel}, content: "hello"}
	srv := httptest.NewServer(fv.handler())
	defer srv.Close()

	cfg := config.Default()
	cfg.VLLMURL = srv.URL + "/v1"
	e, err := Open(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer e.Close()
	if e.BackendName() != BackendVLLM {
		t.Fatalf("backend = %s", e.BackendName())
	}
	h := e.Health(context.Background())
	if !h.VLLMAvailable || !h.ModelLoaded || !h.CUDAAvailable {
		t.Fatalf("health = %+v", h)
	}
	resp, err := e.Recognize(context.Background(), KindPage, types.OCRRequest{Image: pngBase64(t, 8, 8)})
	if err != nil || resp.Markdown != "hello" {
		t.Fatalf("recognize: %+v %v", resp, err)
	}
	if st := e.Status(); st.MaxConcurrency != cfg.Runner.MaxConcurrency || st.MaxQueueDepth != cfg.Runner.MaxConcurrency {
		t.Fatalf("admission sizing: %+v", st)
	}
}

func TestOpenBackend_Explicit(t *testing.T) {
	cfg := config.Default()
	cfg.Backend = config.BackendStub
	if b, err := OpenBackend(context.Background(), cfg, zerolog.Nop()); err != nil || b.Name() != BackendStub {
		t.Fatalf("stub: %v %v", b, err)
	}
	cfg.Backend = "gpu"
	if _, err := OpenBackend(context.Background(), cfg, zerolog.Nop()); err == nil {
		t.Fatalf("expected unknown backend error")
	}
}
