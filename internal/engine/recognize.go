package engine

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"ocrd/internal/config"
	"ocrd/internal/imageutil"
	"ocrd/pkg/types"
)

// Recognize runs OCR for one request. kind only selects the default prompt.
func (e *Engine) Recognize(ctx context.Context, kind Kind, req types.OCRRequest) (types.OCRResponse, error) {
	e.requestsTotal.Add(1)
	in, origin, err := e.prepare(kind, req)
	if err != nil {
		e.failuresTotal.Add(1)
		return types.OCRResponse{}, err
	}

	e.mu.RLock()
	backend := e.backend
	e.mu.RUnlock()
	if backend == nil {
		e.failuresTotal.Add(1)
		return types.OCRResponse{}, ErrDependencyUnavailable("OCR engine not initialized")
	}

	release, err := e.admit(ctx)
	if err != nil {
		e.failuresTotal.Add(1)
		return types.OCRResponse{}, err
	}
	defer release()

	start := time.Now()
	out, err := backend.Recognize(ctx, in)
	if err != nil {
		e.recordFailure(err)
		e.log.Error().Str("event", "recognize_error").Str("backend", backend.Name()).Str("mode", string(in.Mode)).Err(err).Msg("recognition failed")
		return types.OCRResponse{}, err
	}

	resp := types.OCRResponse{
		PageID:       req.PageID,
		Mode:         string(in.Mode),
		TextTokens:   out.TextTokens,
		VisionTokens: VisionTokens(in, e.runner.MinCrops, e.runner.MaxCrops),
	}
	if out.Blocks != nil {
		resp.Markdown = out.Markdown
		resp.Blocks = shiftBlocks(out.Blocks, origin[0], origin[1])
	} else {
		resp.Markdown, resp.Blocks = ParseOutput(out.Markdown, in.Width, in.Height, origin[0], origin[1])
	}
	if resp.Blocks == nil {
		resp.Blocks = []types.OCRBlock{}
	}
	if resp.TextTokens == 0 && resp.Markdown != "" {
		resp.TextTokens = len(strings.Fields(resp.Markdown))
	}
	e.log.Debug().Str("event", "recognize_done").Str("backend", backend.Name()).Str("mode", resp.Mode).
		Int("blocks", len(resp.Blocks)).Int("text_tokens", resp.TextTokens).
		Dur("dur", time.Since(start)).Msg("recognized")
	return resp, nil
}

// prepare validates the request and builds backend input. origin is the
// submitted image's top-left corner on its page.
func (e *Engine) prepare(kind Kind, req types.OCRRequest) (Input, [2]float64, error) {
	var origin [2]float64
	mode, err := types.ParseMode(req.Mode)
	if err != nil {
		return Input{}, origin, ErrInvalidInput("%v", err)
	}
	data, err := imageutil.DecodeBase64(req.Image)
	if err != nil {
		if errors.Is(err, imageutil.ErrEmpty) {
			return Input{}, origin, ErrInvalidInput("image is required")
		}
		return Input{}, origin, ErrInvalidInput("%v", err)
	}
	w, h, format, err := imageutil.Size(data)
	if err != nil {
		return Input{}, origin, ErrInvalidInput("%v", err)
	}
	if req.BBox != nil {
		if len(req.BBox) != 4 {
			return Input{}, origin, ErrInvalidInput("bbox must have 4 values, got %d", len(req.BBox))
		}
		for _, v := range req.BBox {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return Input{}, origin, ErrInvalidInput("bbox contains a non-finite value")
			}
		}
		// bbox places the submitted image on its page; boxes are reported in page coordinates.
		if imageutil.IsRegion(req.BBox) {
			origin = [2]float64{req.BBox[0], req.BBox[1]}
		}
	}
	preset, err := config.Preset(mode)
	if err != nil {
		return Input{}, origin, ErrInvalidInput("%v", err)
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		prompt = kind.DefaultPrompt()
	}
	return Input{
		Image:     data,
		Format:    format,
		Width:     w,
		Height:    h,
		Mode:      mode,
		Prompt:    prompt,
		BaseSize:  preset.BaseSize,
		ImageSize: preset.ImageSize,
		CropMode:  preset.CropMode,
	}, origin, nil
}

// shiftBlocks moves known boxes from image to page coordinates.
func shiftBlocks(blocks []types.OCRBlock, dx, dy float64) []types.OCRBlock {
	if dx == 0 && dy == 0 {
		return blocks
	}
	for i := range blocks {
		b := blocks[i].BBox
		if len(b) != 4 || (b[0] == 0 && b[1] == 0 && b[2] == 0 && b[3] == 0) {
			continue
		}
		blocks[i].BBox = []float64{b[0] + dx, b[1] + dy, b[2] + dx, b[3] + dy}
	}
	return blocks
}
