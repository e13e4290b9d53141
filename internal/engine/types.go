package engine

import "ocrd/pkg/types"

// State represents the lifecycle state of the engine.
type State string

const (
	StateLoading  State = "loading"
	StateReady    State = "ready"
	StateDraining State = "draining"
	StateError    State = "error"
)

// Kind selects the request flavor; it only changes the default prompt.
type Kind string

const (
	KindPage   Kind = "page"
	KindFigure Kind = "figure"
)

// DefaultPrompt returns the prompt used when a request leaves it empty.
func (k Kind) DefaultPrompt() string {
	if k == KindFigure {
		return types.PromptFigureParsing
	}
	return types.PromptLayoutMarkdown
}

// Input is what a backend receives for one image.
type Input struct {
	Image  []byte
	Format string
	Width  int
	Height int
	Mode   types.Mode
	Prompt string
	// Sizes derived from Mode.
	BaseSize  int
	ImageSize int
	CropMode  bool
}

// Output is a backend's raw answer. Backends that know their layout (stub,
// tesseract) fill Blocks; otherwise blocks are derived from Markdown.
type Output struct {
	Markdown   string
	TextTokens int
	Blocks     []types.OCRBlock
}

// BackendHealth is the result of probing a backend.
type BackendHealth struct {
	Reachable   bool
	ModelLoaded bool
	CUDA        bool
	Detail      string
}
