// Package engine coordinates OCR requests: input decoding, admission, backend
// dispatch and post-processing of model output into blocks. It is split into
// small files by concern:
//
//   - engine.go: core Engine type, constructor, simple getters.
//   - config.go: Config and package defaults; NewWithConfig applies defaults.
//   - types.go: State, Kind, backend Input/Output and health types.
//   - errors.go: error types and helpers (IsTooBusy, IsInvalidInput, IsDependencyUnavailable).
//   - admission.go: bounded queue and in-flight slots.
//   - recognize.go: Recognize entry point.
//   - blocks.go: grounding tag and markdown parsing into blocks.
//   - tiling.go: dynamic crop grid and vision token accounting.
//   - status.go: Health/Status reporting helpers.
//   - backend*.go: Backend implementations and selection.
//
// Build tags:
//
//   - `-tags=tesseract` enables the gosseract backend (needs libtesseract).
//     Without it, selecting that backend is a dependency-unavailable error.
package engine
