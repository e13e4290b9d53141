package engine

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"ocrd/pkg/types"
)

// DefaultConfidence is reported for model-produced blocks.
const DefaultConfidence = 0.95

// Grounded output coordinates live on a 0..999 grid.
const groundingGrid = 999.0

var (
	groundingRe = regexp.MustCompile(`(?s)<\|ref\|>(.*?)<\|/ref\|><\|det\|>(.*?)<\|/det\|>`)
	boxRe       = regexp.MustCompile(`\[\s*(-?[\d.]+)\s*,\s*(-?[\d.]+)\s*,\s*(-?[\d.]+)\s*,\s*(-?[\d.]+)\s*\]`)
	specialRe   = regexp.MustCompile(`<[|｜][^<>|｜\n]{1,64}[|｜]>`)
	blankRunsRe = regexp.MustCompile(`\n{3,}`)
)

func newBlockID(n int) string {
	return "block_" + strconv.Itoa(n) + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// ParseOutput turns raw model output into cleaned markdown and blocks. Boxes
// are scaled to a width x height image and shifted by (offX, offY).
func ParseOutput(raw string, width, height int, offX, offY float64) (string, []types.OCRBlock) {
	if groundingRe.MatchString(raw) {
		return parseGrounded(raw, width, height, offX, offY)
	}
	md := CleanMarkdown(raw)
	return md, MarkdownBlocks(md)
}

// CleanMarkdown strips grounding annotations and special tokens.
func CleanMarkdown(raw string) string {
	s := groundingRe.ReplaceAllString(raw, "")
	s = specialRe.ReplaceAllString(s, "")
	s = blankRunsRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// parseGrounded splits output at grounding tags. The text following a tag up
// to the next tag is that region's content.
func parseGrounded(raw string, width, height int, offX, offY float64) (string, []types.OCRBlock) {
	locs := groundingRe.FindAllStringSubmatchIndex(raw, -1)
	var blocks []types.OCRBlock
	for i, loc := range locs {
		label := strings.TrimSpace(raw[loc[2]:loc[3]])
		det := raw[loc[4]:loc[5]]
		end := len(raw)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		content := strings.TrimSpace(specialRe.ReplaceAllString(raw[loc[1]:end], ""))
		bbox := []float64{0, 0, 0, 0}
		if m := boxRe.FindStringSubmatch(det); m != nil {
			bbox = scaleBox(m[1:], width, height, offX, offY)
		}
		typ := labelBlockType(label, content)
		if content == "" && typ != types.BlockFigure {
			continue
		}
		blocks = append(blocks, types.OCRBlock{
			ID:         newBlockID(len(blocks) + 1),
			Type:       typ,
			Content:    content,
			BBox:       bbox,
			Confidence: DefaultConfidence,
			Metadata:   map[string]any{"label": label},
		})
	}
	return CleanMarkdown(raw), blocks
}

func scaleBox(vals []string, width, height int, offX, offY float64) []float64 {
	out := make([]float64, 4)
	for i, v := range vals {
		f, _ := strconv.ParseFloat(v, 64)
		if f < 0 {
			f = 0
		}
		if f > groundingGrid {
			f = groundingGrid
		}
		dim := float64(width)
		off := offX
		if i%2 == 1 {
			dim = float64(height)
			off = offY
		}
		out[i] = f/groundingGrid*dim + off
	}
	return out
}

// labelBlockType maps a DeepSeek grounding label to a block type.
func labelBlockType(label, content string) string {
	switch strings.ToLower(label) {
	case "title", "sub_title", "heading":
		return types.BlockHeading
	case "table":
		return types.BlockTable
	case "image", "figure", "chart":
		return types.BlockFigure
	case "equation", "formula":
		return types.BlockFormula
	case "image_caption", "table_caption", "caption":
		return types.BlockCaption
	case "code":
		return types.BlockCode
	case "list":
		return types.BlockList
	}
	if strings.HasPrefix(content, "#") {
		return types.BlockHeading
	}
	return types.BlockParagraph
}

var blockParser = goldmark.New(goldmark.WithExtensions(extension.Table)).Parser()

// MarkdownBlocks splits markdown into one block per top-level node. Boxes are
// unknown and left as zeros.
func MarkdownBlocks(md string) []types.OCRBlock {
	src := []byte(md)
	doc := blockParser.Parse(text.NewReader(src))
	var blocks []types.OCRBlock
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		content := nodeSource(n, src)
		if content == "" {
			continue
		}
		meta := map[string]any{}
		if h, ok := n.(*ast.Heading); ok {
			meta["level"] = h.Level
		}
		blocks = append(blocks, types.OCRBlock{
			ID:         newBlockID(len(blocks) + 1),
			Type:       nodeBlockType(n, content),
			Content:    content,
			BBox:       []float64{0, 0, 0, 0},
			Confidence: DefaultConfidence,
			Metadata:   meta,
		})
	}
	return blocks
}

func nodeBlockType(n ast.Node, content string) string {
	switch n.(type) {
	case *ast.Heading:
		return types.BlockHeading
	case *ast.List:
		return types.BlockList
	case *extast.Table:
		return types.BlockTable
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		return types.BlockCode
	case *ast.HTMLBlock:
		if strings.Contains(strings.ToLower(content), "<table") {
			return types.BlockTable
		}
	}
	trimmed := strings.TrimSpace(content)
	switch {
	case strings.HasPrefix(trimmed, "$$") || strings.HasPrefix(trimmed, `\[`):
		return types.BlockFormula
	case strings.HasPrefix(trimmed, "![") || strings.HasPrefix(trimmed, "<img"):
		return types.BlockFigure
	case strings.HasPrefix(trimmed, "|"):
		return types.BlockTable
	}
	return types.BlockParagraph
}

// nodeSource returns the whole source lines spanned by a top-level node.
func nodeSource(n ast.Node, src []byte) string {
	start, stop := -1, -1
	var walk func(ast.Node)
	walk = func(c ast.Node) {
		if c.Type() == ast.TypeBlock {
			lines := c.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				if start < 0 || seg.Start < start {
					start = seg.Start
				}
				if seg.Stop > stop {
					stop = seg.Stop
				}
			}
		} else if t, ok := c.(*ast.Text); ok {
			if start < 0 || t.Segment.Start < start {
				start = t.Segment.Start
			}
			if t.Segment.Stop > stop {
				stop = t.Segment.Stop
			}
		}
		for ch := c.FirstChild(); ch != nil; ch = ch.NextSibling() {
			walk(ch)
		}
	}
	walk(n)
	if start < 0 {
		return ""
	}
	// Expand to whole lines so markers (#, -, |, ```) are kept.
	if stop > start && src[stop-1] == '\n' {
		stop--
	}
	if i := bytes.LastIndexByte(src[:start], '\n'); i >= 0 {
		start = i + 1
	} else {
		start = 0
	}
	if _, ok := n.(*ast.FencedCodeBlock); ok {
		// Lines hold only the body; take the fence lines on both sides.
		if start > 0 {
			start = bytes.LastIndexByte(src[:start-1], '\n') + 1
		}
		if i := bytes.IndexByte(src[stop:], '\n'); i >= 0 {
			stop += i + 1
		}
	}
	if i := bytes.IndexByte(src[stop:], '\n'); i >= 0 {
		stop += i
	} else {
		stop = len(src)
	}
	return strings.TrimSpace(string(src[start:stop]))
}
