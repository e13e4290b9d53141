package pipeline

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"

	"ocrd/pkg/types"
)

// Document is the combined output of a run.
type Document struct {
	Title     string
	Source    string
	Mode      types.Mode
	Generated time.Time
	Pages     []Page
	Stats     Stats
	TOC       bool
}

type frontmatter struct {
	Title     string           `yaml:"title"`
	Source    string           `yaml:"source"`
	Pages     int              `yaml:"pages"`
	Mode      string           `yaml:"mode"`
	Generated string           `yaml:"generated"`
	Stats     frontmatterStats `yaml:"stats"`
}

type frontmatterStats struct {
	Succeeded    int            `yaml:"succeeded"`
	Failed       int            `yaml:"failed"`
	Blocks       map[string]int `yaml:"blocks,omitempty"`
	VisionTokens int            `yaml:"vision_tokens"`
	TextTokens   int            `yaml:"text_tokens"`
	DurationSec  float64        `yaml:"duration_sec"`
}

// Render builds the combined markdown: YAML frontmatter, an optional table of
// contents and one "## Page N" section per page separated by rules.
func Render(doc Document) ([]byte, error) {
	fm := frontmatter{
		Title:     doc.Title,
		Source:    doc.Source,
		Pages:     len(doc.Pages),
		Mode:      string(doc.Mode),
		Generated: doc.Generated.UTC().Format(time.RFC3339),
		Stats: frontmatterStats{
			Succeeded:    doc.Stats.Succeeded,
			Failed:       doc.Stats.Failed,
			Blocks:       doc.Stats.BlocksByType,
			VisionTokens: doc.Stats.VisionTokens,
			TextTokens:   doc.Stats.TextTokens,
			DurationSec:  float64(doc.Stats.Duration.Milliseconds()) / 1000,
		},
	}
	head, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("frontmatter: %w", err)
	}

	var b bytes.Buffer
	b.WriteString("---\n")
	b.Write(head)
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "# %s\n\n", doc.Title)

	pages := append([]Page(nil), doc.Pages...)
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].Num < pages[j].Num })

	if doc.TOC {
		if toc := tableOfContents(pages); toc != "" {
			b.WriteString("## Contents\n\n")
			b.WriteString(toc)
			b.WriteString("\n")
		}
	}

	for i, p := range pages {
		if i > 0 {
			b.WriteString("\n---\n\n")
		}
		fmt.Fprintf(&b, "## Page %d\n\n", p.Num)
		if p.Err != nil {
			continue
		}
		if md := strings.TrimSpace(p.Result.Markdown); md != "" {
			b.WriteString(md)
			b.WriteString("\n")
		}
	}
	return b.Bytes(), nil
}

func tableOfContents(pages []Page) string {
	var b strings.Builder
	seen := map[string]int{}
	for _, p := range pages {
		if p.Err != nil {
			continue
		}
		for _, blk := range p.Result.Blocks {
			if blk.Type != types.BlockHeading {
				continue
			}
			level, text := headingText(blk.Content, blk.Metadata)
			if text == "" {
				continue
			}
			anchor := slug(text)
			if n := seen[anchor]; n > 0 {
				seen[anchor] = n + 1
				anchor = fmt.Sprintf("%s-%d", anchor, n)
			} else {
				seen[anchor] = 1
			}
			fmt.Fprintf(&b, "%s- [%s](#%s)\n", strings.Repeat("  ", level-1), text, anchor)
		}
	}
	return b.String()
}

// headingText strips ATX markers and reports the heading level, taken from
// the markers or the block metadata.
func headingText(content string, meta map[string]any) (int, string) {
	line := strings.TrimSpace(strings.SplitN(content, "\n", 2)[0])
	level := 0
	for level < len(line) && line[level] == '#' {
		level++
	}
	text := strings.TrimSpace(strings.TrimRight(line[level:], "#"))
	if level == 0 {
		switch v := meta["level"].(type) {
		case int:
			level = v
		case float64:
			level = int(v)
		}
	}
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	return level, text
}

// slug builds a GitHub-style heading anchor.
func slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune('-')
		}
	}
	return b.String()
}
