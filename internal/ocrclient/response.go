package ocrclient

import (
	"encoding/json"
	"fmt"

	"ocrd/pkg/types"
)

// Block is a recognized block stamped with the page it came from.
type Block struct {
	types.OCRBlock
	PageNum int    `json:"page_num"`
	Source  string `json:"source"`
}

// Result is a parsed OCR response.
type Result struct {
	Markdown      string     `json:"markdown"`
	Blocks        []Block    `json:"blocks"`
	PageID        int        `json:"page_id"`
	VisionTokens  int        `json:"vision_tokens"`
	TextTokens    int        `json:"text_tokens"`
	Mode          types.Mode `json:"mode"`
	ConfidenceAvg float64    `json:"confidence_avg"`
}

type rawBlock struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Content    string         `json:"content"`
	BBox       []float64      `json:"bbox"`
	Confidence *float64       `json:"confidence"`
	Metadata   map[string]any `json:"metadata"`
}

type rawResponse struct {
	Markdown     string     `json:"markdown"`
	Blocks       []rawBlock `json:"blocks"`
	VisionTokens int        `json:"vision_tokens"`
	TextTokens   int        `json:"text_tokens"`
	Mode         string     `json:"mode"`
}

// ParseResponse decodes a service response leniently. Missing fields take
// defaults, unknown block types become paragraphs and unknown modes Base.
// The page id of the result is pageNum, not the echoed one.
func ParseResponse(data []byte, pageNum int) (Result, error) {
	var raw rawResponse
	if err := json.Unmarshal(data, &raw); err != nil {
		return Result{}, fmt.Errorf("decode OCR response: %w", err)
	}
	return normalize(raw, pageNum), nil
}

// FromResponse normalizes an in-process response the same way ParseResponse
// normalizes a wire one.
func FromResponse(resp types.OCRResponse, pageNum int) Result {
	raw := rawResponse{
		Markdown:     resp.Markdown,
		Blocks:       make([]rawBlock, len(resp.Blocks)),
		VisionTokens: resp.VisionTokens,
		TextTokens:   resp.TextTokens,
		Mode:         resp.Mode,
	}
	for i, b := range resp.Blocks {
		conf := b.Confidence
		raw.Blocks[i] = rawBlock{ID: b.ID, Type: b.Type, Content: b.Content, BBox: b.BBox, Confidence: &conf, Metadata: b.Metadata}
	}
	return normalize(raw, pageNum)
}

func normalize(raw rawResponse, pageNum int) Result {
	mode, err := types.ParseMode(raw.Mode)
	if err != nil {
		mode = types.ModeBase
	}
	res := Result{
		Markdown:      raw.Markdown,
		Blocks:        make([]Block, 0, len(raw.Blocks)),
		PageID:        pageNum,
		VisionTokens:  raw.VisionTokens,
		TextTokens:    raw.TextTokens,
		Mode:          mode,
		ConfidenceAvg: 1.0,
	}
	var sum float64
	for _, rb := range raw.Blocks {
		b := Block{
			OCRBlock: types.OCRBlock{
				ID:         rb.ID,
				Type:       rb.Type,
				Content:    rb.Content,
				BBox:       rb.BBox,
				Confidence: 1.0,
				Metadata:   rb.Metadata,
			},
			PageNum: pageNum,
			Source:  "ocr",
		}
		if !types.IsBlockType(b.Type) {
			b.Type = types.BlockParagraph
		}
		if len(b.BBox) != 4 {
			b.BBox = []float64{0, 0, 0, 0}
		}
		if rb.Confidence != nil {
			b.Confidence = *rb.Confidence
		}
		if b.Metadata == nil {
			b.Metadata = map[string]any{}
		}
		sum += b.Confidence
		res.Blocks = append(res.Blocks, b)
	}
	if n := len(res.Blocks); n > 0 {
		res.ConfidenceAvg = sum / float64(n)
	}
	return res
}

// BlocksByType counts blocks per type.
func (r Result) BlocksByType() map[string]int {
	out := map[string]int{}
	for _, b := range r.Blocks {
		out[b.Type]++
	}
	return out
}
