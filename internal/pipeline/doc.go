// Package pipeline runs OCR over a file or directory of page images and
// writes per-page markdown plus one combined document.
//
// Files:
//   - inputs.go: input discovery and output naming
//   - recognizer.go: HTTP and in-process recognizers
//   - runner.go: bounded worker pool, progress, stats
//   - render.go: combined document (frontmatter, TOC, page sections)
package pipeline
