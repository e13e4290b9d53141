package ocrclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ocrd/pkg/types"
)

func TestParseResponseDefaults(t *testing.T) {
	res, err := ParseResponse([]byte(`{}`), 4)
	require.NoError(t, err)
	assert.Equal(t, "", res.Markdown)
	assert.NotNil(t, res.Blocks)
	assert.Empty(t, res.Blocks)
	assert.Equal(t, 0, res.VisionTokens)
	assert.Equal(t, 0, res.TextTokens)
	assert.Equal(t, types.ModeBase, res.Mode)
	assert.Equal(t, 1.0, res.ConfidenceAvg)
	assert.Equal(t, 4, res.PageID)
}

func TestParseResponseLenientBlocks(t *testing.T) {
	data := []byte(`{
		"markdown": "x",
		"mode": "weird",
		"page_id": 99,
		"blocks": [
			{"id": "a", "type": "banner", "content": "c"},
			{"id": "b", "type": "table", "bbox": [1, 2, 3, 4], "confidence": 0.5, "metadata": {"k": "v"}}
		]
	}`)
	res, err := ParseResponse(data, 2)
	require.NoError(t, err)
	assert.Equal(t, types.ModeBase, res.Mode)
	assert.Equal(t, 2, res.PageID)
	require.Len(t, res.Blocks, 2)

	a := res.Blocks[0]
	assert.Equal(t, types.BlockParagraph, a.Type)
	assert.Equal(t, []float64{0, 0, 0, 0}, a.BBox)
	assert.Equal(t, 1.0, a.Confidence)
	assert.NotNil(t, a.Metadata)
	assert.Equal(t, "ocr", a.Source)
	assert.Equal(t, 2, a.PageNum)

	b := res.Blocks[1]
	assert.Equal(t, types.BlockTable, b.Type)
	assert.Equal(t, "v", b.Metadata["k"])
	assert.InDelta(t, 0.75, res.ConfidenceAvg, 1e-9)
	assert.Equal(t, map[string]int{"paragraph": 1, "table": 1}, res.BlocksByType())
}

func TestParseResponseKeepsModeAndZeroConfidence(t *testing.T) {
	res, err := ParseResponse([]byte(`{"mode":"gundam","blocks":[{"type":"figure","confidence":0}]}`), 0)
	require.NoError(t, err)
	assert.Equal(t, types.ModeGundam, res.Mode)
	assert.Equal(t, 0.0, res.Blocks[0].Confidence)
	assert.Equal(t, 0.0, res.ConfidenceAvg)
}

func TestParseResponseRejectsNonJSON(t *testing.T) {
	_, err := ParseResponse([]byte(`nope`), 0)
	require.Error(t, err)
}

func TestRequestErrorMessages(t *testing.T) {
	e := &RequestError{StatusCode: 422, Attempts: 1, Err: assert.AnError}
	assert.True(t, IsClientError(e))
	assert.Contains(t, e.Error(), "OCR request failed: ")
	e = &RequestError{Attempts: 3, Err: assert.AnError}
	assert.False(t, IsClientError(e))
	assert.Contains(t, e.Error(), "after 3 attempts")
	assert.ErrorIs(t, e, assert.AnError)
}

func TestFromResponseMatchesParse(t *testing.T) {
	resp := types.OCRResponse{
		Markdown:     "# T",
		Blocks:       []types.OCRBlock{{ID: "x", Type: "heading", Content: "# T", BBox: []float64{1, 1, 2, 2}, Confidence: 0.8}},
		VisionTokens: 64,
		Mode:         "Tiny",
	}
	res := FromResponse(resp, 3)
	assert.Equal(t, types.ModeTiny, res.Mode)
	assert.Equal(t, 3, res.PageID)
	require.Len(t, res.Blocks, 1)
	assert.Equal(t, 0.8, res.Blocks[0].Confidence)
	assert.Equal(t, 3, res.Blocks[0].PageNum)
	assert.NotNil(t, res.Blocks[0].Metadata)
}
