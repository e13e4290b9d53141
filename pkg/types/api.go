package types

// OCRRequest is the payload accepted by POST /ocr/page and POST /ocr/figure.
type OCRRequest struct {
	// Base64-encoded image bytes (PNG, JPEG, WebP, BMP, TIFF or GIF).
	Image string `json:"image"`
	// OCR resolution mode: Tiny, Small, Base, Large or Gundam.
	// example: Base
	Mode string `json:"mode,omitempty" example:"Base"`
	// Prompt sent to the model. When empty the endpoint default is used.
	// example: Convert the entire page/image into Markdown format.
	Prompt string `json:"prompt,omitempty" example:"Convert the entire page/image into Markdown format."`
	// Page number echoed back in the response.
	// example: 0
	PageID int `json:"page_id" example:"0"`
	// Optional position [x0, y0, x1, y1] of the image on its page. When set, block
	// boxes are reported in page coordinates.
	// example: [0,0,640,480]
	BBox []float64 `json:"bbox,omitempty" example:"0,0,640,480"`
}

// OCRBlock is one structural element recognized on a page.
type OCRBlock struct {
	// example: block_1_3f9a2c1d
	ID string `json:"id" example:"block_1_3f9a2c1d"`
	// One of heading, paragraph, list, table, figure, formula, code, caption.
	// example: heading
	Type string `json:"type" example:"heading"`
	// Markdown source of the block.
	// example: # Annual report
	Content string `json:"content" example:"# Annual report"`
	// Bounding box [x0, y0, x1, y1] in pixels of the submitted image; zeros when unknown.
	// example: [12,40,580,88]
	BBox []float64 `json:"bbox" example:"12,40,580,88"`
	// example: 0.95
	Confidence float64 `json:"confidence" example:"0.95"`
	// Backend-specific extras (e.g. heading level, grounding label).
	Metadata map[string]any `json:"metadata"`
}

// OCRResponse is returned by the OCR endpoints.
type OCRResponse struct {
	// Full page markdown with grounding annotations removed.
	Markdown string     `json:"markdown"`
	Blocks   []OCRBlock `json:"blocks"`
	// example: 0
	PageID int `json:"page_id" example:"0"`
	// Vision tokens consumed by the image encoder for the chosen mode.
	// example: 256
	VisionTokens int `json:"vision_tokens" example:"256"`
	// Tokens generated by the decoder.
	// example: 1024
	TextTokens int `json:"text_tokens" example:"1024"`
	// example: Base
	Mode string `json:"mode" example:"Base"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	// example: healthy
	Status string `json:"status" example:"healthy"`
	// True when an OpenAI-compatible vLLM server answered the last probe.
	// example: true
	VLLMAvailable bool `json:"vllm_available" example:"true"`
	// True when the active backend runs on a GPU.
	// example: true
	CUDAAvailable bool `json:"cuda_available" example:"true"`
	// True when the configured model is served and ready.
	// example: true
	ModelLoaded bool `json:"model_loaded" example:"true"`
	// Active backend name: vllm, stub or tesseract.
	// example: vllm
	Backend string `json:"backend" example:"vllm"`
	// example: deepseek-ai/DeepSeek-OCR
	Model string `json:"model,omitempty" example:"deepseek-ai/DeepSeek-OCR"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Engine state: loading, ready, draining or error.
	// example: ready
	State string `json:"state" example:"ready"`
	// example: vllm
	Backend string `json:"backend" example:"vllm"`
	// example: deepseek-ai/DeepSeek-OCR
	Model string `json:"model,omitempty" example:"deepseek-ai/DeepSeek-OCR"`
	// Maximum concurrent recognitions (MAX_CONCURRENCY).
	// example: 16
	MaxConcurrency int `json:"max_concurrency" example:"16"`
	// Requests currently being recognized.
	// example: 2
	Inflight int `json:"inflight" example:"2"`
	// Requests holding a queue slot (includes in-flight ones).
	// example: 3
	QueueLen int `json:"queue_len" example:"3"`
	// example: 32
	MaxQueueDepth int `json:"max_queue_depth" example:"32"`
	// example: 120
	RequestsTotal uint64 `json:"requests_total" example:"120"`
	// example: 1
	FailuresTotal uint64 `json:"failures_total" example:"1"`
	// Last backend error observed (if any).
	LastError string `json:"last_error,omitempty"`
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
