// Package envcheck diagnoses a host before serving DeepSeek-OCR: GPU driver,
// CUDA, compute capability, VRAM, WSL, credentials, locale and output paths.
// It reports findings and a recommended runner preset; it never installs anything.
package envcheck
