package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"ocrd/internal/imageutil"
)

// Upstream DeepSeek-OCR decoding settings for vLLM.
const (
	defaultMaxTokens = 8192
	ngramSize        = 30
	ngramWindow      = 90
)

// whitelistTokenIDs are the <td> and </td> ids, exempt from the repetition guard.
var whitelistTokenIDs = []int{128821, 128822}

// VLLMOptions configures VLLMBackend.
type VLLMOptions struct {
	BaseURL   string
	APIKey    string
	Model     string
	Timeout   time.Duration
	MaxTokens int
}

// VLLMBackend talks to an OpenAI-compatible vLLM server.
type VLLMBackend struct {
	client    *openai.Client
	model     string
	baseURL   string
	timeout   time.Duration
	maxTokens int
}

// NewVLLMBackend creates a backend for the server at opts.BaseURL.
func NewVLLMBackend(opts VLLMOptions) *VLLMBackend {
	apiKey := opts.APIKey
	if apiKey == "" {
		// vLLM ignores the key unless started with --api-key, but the SDK requires one.
		apiKey = "EMPTY"
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	client := openai.NewClient(reqOpts...)
	b := &VLLMBackend{
		client:    &client,
		model:     opts.Model,
		baseURL:   opts.BaseURL,
		timeout:   opts.Timeout,
		maxTokens: opts.MaxTokens,
	}
	if b.maxTokens <= 0 {
		b.maxTokens = defaultMaxTokens
	}
	return b
}

func (b *VLLMBackend) Name() string { return BackendVLLM }

// ServedModel is the model name sent with every request.
func (b *VLLMBackend) ServedModel() string { return b.model }

// Recognize sends the image as a data URL followed by the prompt text.
func (b *VLLMBackend) Recognize(ctx context.Context, in Input) (Output, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	prompt := strings.TrimSpace(strings.ReplaceAll(in.Prompt, "<image>", ""))
	content := []openai.ChatCompletionContentPartUnionParam{
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: imageutil.DataURL(in.Image, in.Format),
		}),
		openai.TextContentPart(prompt),
	}
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(b.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(content),
		},
		MaxTokens:   openai.Int(int64(b.maxTokens)),
		Temperature: openai.Float(0),
	}
	resp, err := b.client.Chat.Completions.New(ctx, params,
		option.WithJSONSet("skip_special_tokens", false),
		option.WithJSONSet("vllm_xargs", map[string]any{
			"ngram_size":          ngramSize,
			"window_size":         ngramWindow,
			"whitelist_token_ids": whitelistTokenIDs,
		}),
	)
	if err != nil {
		if ctx.Err() != nil {
			return Output{}, ctx.Err()
		}
		return Output{}, b.requestError(err)
	}
	if len(resp.Choices) == 0 {
		return Output{}, fmt.Errorf("vLLM returned no choices")
	}
	return Output{
		Markdown:   resp.Choices[0].Message.Content,
		TextTokens: int(resp.Usage.CompletionTokens),
	}, nil
}

// requestError maps an unreachable or overloaded server to a dependency error;
// other API errors pass through.
func (b *VLLMBackend) requestError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return ErrDependencyUnavailable(fmt.Sprintf("vLLM at %s unreachable: %v", b.baseURL, err))
	}
	switch apiErr.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return ErrDependencyUnavailable(fmt.Sprintf("vLLM at %s unavailable: %d", b.baseURL, apiErr.StatusCode))
	}
	return fmt.Errorf("vLLM request failed: %w", err)
}

// Probe lists the served models and checks ours is among them.
func (b *VLLMBackend) Probe(ctx context.Context) BackendHealth {
	page, err := b.client.Models.List(ctx)
	if err != nil {
		return BackendHealth{Detail: fmt.Sprintf("vLLM at %s unreachable: %v", b.baseURL, err)}
	}
	h := BackendHealth{Reachable: true, CUDA: true}
	var served []string
	for _, m := range page.Data {
		served = append(served, m.ID)
		if m.ID == b.model {
			h.ModelLoaded = true
		}
	}
	if !h.ModelLoaded {
		h.Detail = fmt.Sprintf("model %q not served (have: %s)", b.model, strings.Join(served, ", "))
	}
	return h
}

func (b *VLLMBackend) Close() error { return nil }
