package pipeline

import (
	"context"

	"ocrd/internal/engine"
	"ocrd/internal/imageutil"
	"ocrd/internal/ocrclient"
	"ocrd/pkg/types"
)

// Recognizer turns one page image into an OCR result.
// *ocrclient.Client satisfies it.
type Recognizer interface {
	OCRPage(ctx context.Context, image []byte, pageID int, mode types.Mode, prompt string) (ocrclient.Result, error)
}

var _ Recognizer = (*ocrclient.Client)(nil)

// EngineRecognizer runs pages through an in-process engine.
type EngineRecognizer struct {
	Engine *engine.Engine
}

func (r EngineRecognizer) OCRPage(ctx context.Context, image []byte, pageID int, mode types.Mode, prompt string) (ocrclient.Result, error) {
	resp, err := r.Engine.Recognize(ctx, engine.KindPage, types.OCRRequest{
		Image:  imageutil.EncodeBase64(image),
		Mode:   string(mode),
		Prompt: prompt,
		PageID: pageID,
	})
	if err != nil {
		return ocrclient.Result{}, err
	}
	return ocrclient.FromResponse(resp, pageID), nil
}
