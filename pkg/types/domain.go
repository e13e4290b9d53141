package types

import (
	"fmt"
	"strings"
)

// Mode selects the DeepSeek-OCR input resolution and with it the vision token budget.
type Mode string

const (
	ModeTiny   Mode = "Tiny"
	ModeSmall  Mode = "Small"
	ModeBase   Mode = "Base"
	ModeLarge  Mode = "Large"
	ModeGundam Mode = "Gundam"
)

// Modes lists every supported mode from smallest to largest.
var Modes = []Mode{ModeTiny, ModeSmall, ModeBase, ModeLarge, ModeGundam}

// ParseMode resolves a mode name case-insensitively. Empty input yields ModeBase.
func ParseMode(s string) (Mode, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ModeBase, nil
	}
	for _, m := range Modes {
		if strings.EqualFold(string(m), s) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mode %q (want one of Tiny, Small, Base, Large, Gundam)", s)
}

// FixedVisionTokens returns the vision token count of fixed-resolution modes.
// Gundam is dynamic and reports ok=false.
func (m Mode) FixedVisionTokens() (int, bool) {
	switch m {
	case ModeTiny:
		return 64, true
	case ModeSmall:
		return 100, true
	case ModeBase:
		return 256, true
	case ModeLarge:
		return 400, true
	}
	return 0, false
}

// Block types produced by the OCR service.
const (
	BlockHeading   = "heading"
	BlockParagraph = "paragraph"
	BlockList      = "list"
	BlockTable     = "table"
	BlockFigure    = "figure"
	BlockFormula   = "formula"
	BlockCode      = "code"
	BlockCaption   = "caption"
)

// IsBlockType reports whether s names a known block type.
func IsBlockType(s string) bool {
	switch s {
	case BlockHeading, BlockParagraph, BlockList, BlockTable, BlockFigure, BlockFormula, BlockCode, BlockCaption:
		return true
	}
	return false
}

// Default prompts for page and figure requests.
const (
	PromptLayoutMarkdown = "Convert the entire page/image into Markdown format. " +
		"Preserve layout structure: headings, paragraphs, lists, tables, figures. " +
		"For tables, use Markdown table syntax. For figures, use ![alt](path)."
	PromptFigureParsing = "Extract and describe the figure/diagram/chart in detail. " +
		"Include any text labels, legends, and structural information."
)
