package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"ocrd/internal/common/fsutil"
	"ocrd/internal/imageutil"
)

// Discover returns the images to process: path itself when it is a file, or
// the image files directly inside it (not recursive), sorted by name.
func Discover(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("INPUT_PATH is empty")
	}
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		if !imageutil.IsImageFile(abs) {
			return nil, fmt.Errorf("unsupported input %s (want one of %s)", filepath.Base(abs), strings.Join(imageutil.Extensions, " "))
		}
		return []string{abs}, nil
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !imageutil.IsImageFile(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(abs, e.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no images in %s", abs)
	}
	sort.Strings(files)
	return files, nil
}

var (
	parenRe     = regexp.MustCompile(`\([^)]*\)`)
	nameCharsRe = regexp.MustCompile(`[^\p{L}\p{N}_\s.-]`)
	underRunsRe = regexp.MustCompile(`_+`)
)

// SanitizeName turns a file or directory name into a document name:
// extension and parenthesized parts dropped, spaces to underscores.
func SanitizeName(name string) string {
	base := filepath.Base(name)
	if ext := filepath.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	base = parenRe.ReplaceAllString(base, "")
	base = nameCharsRe.ReplaceAllString(base, "")
	base = strings.Join(strings.Fields(base), "_")
	base = underRunsRe.ReplaceAllString(base, "_")
	base = strings.Trim(base, "_")
	if base == "" {
		return "document"
	}
	return base
}

// pageFileNames picks a markdown file name per input. Inputs sharing a stem
// (scan.png, scan.jpg) keep their extension in the name; anything still
// taken, including reserved, gets the page number appended.
func pageFileNames(files []string, reserved string) []string {
	stems := make(map[string]int, len(files))
	for _, f := range files {
		stems[strings.ToLower(stem(f))]++
	}
	taken := map[string]bool{strings.ToLower(reserved): true}
	names := make([]string, len(files))
	for i, f := range files {
		base := stem(f)
		if stems[strings.ToLower(base)] > 1 {
			if ext := strings.TrimPrefix(filepath.Ext(f), "."); ext != "" {
				base += "_" + ext
			}
		}
		name := base + ".md"
		if taken[strings.ToLower(name)] {
			name = fmt.Sprintf("%s_p%d.md", base, i+1)
		}
		taken[strings.ToLower(name)] = true
		names[i] = name
	}
	return names
}

func stem(path string) string {
	b := filepath.Base(path)
	return strings.TrimSuffix(b, filepath.Ext(b))
}
