//go:build !tesseract

package engine

// NewTesseractBackend reports that the binary was built without tesseract.
func NewTesseractBackend() (Backend, error) {
	return nil, ErrDependencyUnavailable("tesseract backend not compiled in (build with -tags=tesseract)")
}
