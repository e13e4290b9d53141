package envcheck

import (
	"fmt"
	"io"
	"strings"

	"github.com/logrusorgru/aurora"

	"ocrd/internal/config"
)

// Level orders findings by severity.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarning:
		return "warning"
	}
	return "info"
}

// MarshalText renders the level by name in JSON and YAML reports.
func (l Level) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

// UnmarshalText accepts the names MarshalText produces.
func (l *Level) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "error":
		*l = LevelError
	case "warning":
		*l = LevelWarning
	case "info":
		*l = LevelInfo
	default:
		return fmt.Errorf("unknown level %q", b)
	}
	return nil
}

// Finding is one diagnostic result. Hint says how to fix it.
type Finding struct {
	Level Level  `json:"level" yaml:"level"`
	Check string `json:"check" yaml:"check"`
	Title string `json:"title" yaml:"title"`
	Hint  string `json:"hint,omitempty" yaml:"hint,omitempty"`
}

// GPU is the first device reported by nvidia-smi.
type GPU struct {
	Name       string `json:"name" yaml:"name"`
	Driver     string `json:"driver" yaml:"driver"`
	MemoryMiB  int    `json:"memory_mib" yaml:"memory_mib"`
	ComputeCap string `json:"compute_cap" yaml:"compute_cap"`
	CUDA       string `json:"cuda,omitempty" yaml:"cuda,omitempty"`
	Count      int    `json:"count" yaml:"count"`
}

// Report collects findings and the preset recommended for the host.
type Report struct {
	Findings    []Finding            `json:"findings" yaml:"findings"`
	WSL         string               `json:"wsl,omitempty" yaml:"wsl,omitempty"`
	GPU         *GPU                 `json:"gpu,omitempty" yaml:"gpu,omitempty"`
	Tier        *config.VRAMTier     `json:"tier,omitempty" yaml:"tier,omitempty"`
	Recommended *config.RunnerConfig `json:"recommended,omitempty" yaml:"recommended,omitempty"`
}

func (r *Report) add(level Level, check, title, hint string) {
	r.Findings = append(r.Findings, Finding{Level: level, Check: check, Title: title, Hint: hint})
}

func (r Report) count(l Level) int {
	n := 0
	for _, f := range r.Findings {
		if f.Level == l {
			n++
		}
	}
	return n
}

func (r Report) Errors() int   { return r.count(LevelError) }
func (r Report) Warnings() int { return r.count(LevelWarning) }

// Failed reports whether the host is unfit: any error, or any warning when strict.
func (r Report) Failed(strict bool) bool {
	return r.Errors() > 0 || (strict && r.Warnings() > 0)
}

// Print writes a human readable report. color enables ANSI colors.
func (r Report) Print(w io.Writer, color bool, strict bool) {
	au := aurora.NewAurora(color)
	fmt.Fprintln(w, au.Bold("ocrd doctor"))
	fmt.Fprintln(w)
	for _, f := range r.Findings {
		var mark aurora.Value
		switch f.Level {
		case LevelError:
			mark = au.Red("ⅹ")
		case LevelWarning:
			mark = au.Yellow("⚠")
		default:
			mark = au.Green("✓")
		}
		fmt.Fprintf(w, "%s %-10s %s\n", mark, f.Check, f.Title)
		if f.Hint != "" {
			for _, line := range strings.Split(f.Hint, "\n") {
				fmt.Fprintf(w, "  %s %s\n", strings.Repeat(" ", 10), au.Faint(line))
			}
		}
	}
	if r.Recommended != nil {
		fmt.Fprintln(w)
		name := "default"
		if r.Tier != nil {
			name = r.Tier.Name
		}
		fmt.Fprintf(w, "%s (%s VRAM tier):\n", au.Bold("Recommended runner settings"), name)
		for _, l := range r.Recommended.EnvLines() {
			fmt.Fprintf(w, "  %s\n", l)
		}
	}
	fmt.Fprintln(w)
	switch {
	case r.Errors() > 0:
		fmt.Fprintf(w, "%s: %d error(s), %d warning(s)\n", au.Red("FAILED"), r.Errors(), r.Warnings())
	case strict && r.Warnings() > 0:
		fmt.Fprintf(w, "%s (strict): %d warning(s)\n", au.Yellow("FAILED"), r.Warnings())
	case r.Warnings() > 0:
		fmt.Fprintf(w, "%s with %d warning(s)\n", au.Yellow("PASSED"), r.Warnings())
	default:
		fmt.Fprintf(w, "%s\n", au.Green("PASSED"))
	}
}
