package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/sync/errgroup"

	"ocrd/internal/common/fsutil"
	"ocrd/internal/ocrclient"
	"ocrd/pkg/types"
)

// Options configures a batch run.
type Options struct {
	Input  string
	Output string
	// Name is the combined document's base name. Empty derives it from Input.
	Name     string
	Mode     types.Mode
	Prompt   string
	Workers  int
	FailFast bool
	TOC      bool
	// Progress receives a progress bar when non-nil.
	Progress io.Writer
	Logger   zerolog.Logger
	Now      func() time.Time
}

// PageError records one failed page.
type PageError struct {
	Page  int    `json:"page" yaml:"page"`
	File  string `json:"file" yaml:"file"`
	Error string `json:"error" yaml:"error"`
}

// Stats summarizes a run.
type Stats struct {
	Total        int            `json:"total" yaml:"total"`
	Succeeded    int            `json:"succeeded" yaml:"succeeded"`
	Failed       int            `json:"failed" yaml:"failed"`
	BlocksByType map[string]int `json:"blocks_by_type" yaml:"blocks_by_type"`
	VisionTokens int            `json:"vision_tokens" yaml:"vision_tokens"`
	TextTokens   int            `json:"text_tokens" yaml:"text_tokens"`
	Duration     time.Duration  `json:"duration" yaml:"duration"`
	Errors       []PageError    `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Page is one processed input.
type Page struct {
	Num    int
	File   string
	Result ocrclient.Result
	Err    error
}

// Report is the outcome of Run.
type Report struct {
	Stats     Stats
	Combined  string
	PageFiles []string
	Pages     []Page
}

type Runner struct {
	rec  Recognizer
	opts Options
}

func New(rec Recognizer, opts Options) *Runner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Mode == "" {
		opts.Mode = types.ModeBase
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Runner{rec: rec, opts: opts}
}

// Run processes every input. Page failures are recorded in Stats.Errors and
// the run continues unless FailFast is set. The combined document is written
// even when pages failed.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	start := time.Now()
	files, err := Discover(r.opts.Input)
	if err != nil {
		return Report{}, err
	}
	out, err := fsutil.ExpandHome(r.opts.Output)
	if err != nil {
		return Report{}, err
	}
	if out == "" {
		return Report{}, fmt.Errorf("OUTPUT_PATH is empty")
	}
	if err := fsutil.EnsureWritableDir(out); err != nil {
		return Report{}, fmt.Errorf("output dir %s: %w", out, err)
	}
	name := r.opts.Name
	if name == "" {
		name = SanitizeName(r.opts.Input)
	}

	log := r.opts.Logger
	log.Info().Str("event", "run_start").Int("pages", len(files)).Int("workers", r.opts.Workers).
		Str("mode", string(r.opts.Mode)).Str("output", out).Msg("batch OCR started")

	var bar *mpb.Bar
	var progress *mpb.Progress
	if r.opts.Progress != nil {
		progress = mpb.New(mpb.WithOutput(r.opts.Progress), mpb.WithWidth(40))
		bar = progress.AddBar(int64(len(files)),
			mpb.PrependDecorators(
				decor.Name("ocr "),
				decor.CountersNoUnit("%d / %d"),
			),
			mpb.AppendDecorators(
				decor.Percentage(),
				decor.Name(" "),
				decor.Elapsed(decor.ET_STYLE_GO),
			),
		)
	}

	names := pageFileNames(files, name+"_OCR.md")
	pages := make([]Page, len(files))
	pageFiles := make([]string, len(files))
	var mu sync.Mutex
	stats := Stats{Total: len(files), BlocksByType: map[string]int{}}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i, f := range files {
		g.Go(func() error {
			p := r.processPage(gctx, i+1, f)
			var mdPath string
			if p.Err == nil {
				mdPath = filepath.Join(out, names[i])
				if err := fsutil.WriteFileAtomic(mdPath, []byte(p.Result.Markdown)); err != nil {
					p.Err = fmt.Errorf("write %s: %w", mdPath, err)
					mdPath = ""
				}
			}
			if bar != nil {
				bar.Increment()
			}

			mu.Lock()
			pages[i] = p
			pageFiles[i] = mdPath
			if p.Err != nil {
				stats.Failed++
				stats.Errors = append(stats.Errors, PageError{Page: p.Num, File: filepath.Base(f), Error: p.Err.Error()})
			} else {
				stats.Succeeded++
				stats.VisionTokens += p.Result.VisionTokens
				stats.TextTokens += p.Result.TextTokens
				for t, n := range p.Result.BlocksByType() {
					stats.BlocksByType[t] += n
				}
			}
			mu.Unlock()

			if p.Err != nil {
				log.Warn().Str("event", "page_failed").Int("page", p.Num).Str("file", f).Err(p.Err).Msg("page failed")
				if r.opts.FailFast {
					return fmt.Errorf("page %d (%s): %w", p.Num, filepath.Base(f), p.Err)
				}
			}
			return nil
		})
	}
	runErr := g.Wait()
	if bar != nil {
		if !bar.Completed() {
			bar.Abort(false)
		}
		progress.Wait()
	}
	if runErr != nil {
		return Report{Stats: stats, Pages: pages}, runErr
	}
	if err := ctx.Err(); err != nil {
		return Report{Stats: stats, Pages: pages}, err
	}
	sort.Slice(stats.Errors, func(i, j int) bool { return stats.Errors[i].Page < stats.Errors[j].Page })
	stats.Duration = time.Since(start)

	doc := Document{
		Title:     name,
		Source:    r.opts.Input,
		Mode:      r.opts.Mode,
		Generated: r.opts.Now(),
		Pages:     pages,
		Stats:     stats,
		TOC:       r.opts.TOC,
	}
	body, err := Render(doc)
	if err != nil {
		return Report{Stats: stats, Pages: pages}, err
	}
	combined := filepath.Join(out, name+"_OCR.md")
	if err := fsutil.WriteFileAtomic(combined, body); err != nil {
		return Report{Stats: stats, Pages: pages}, fmt.Errorf("write %s: %w", combined, err)
	}

	written := pageFiles[:0]
	for _, p := range pageFiles {
		if p != "" {
			written = append(written, p)
		}
	}
	log.Info().Str("event", "run_done").Int("succeeded", stats.Succeeded).Int("failed", stats.Failed).
		Int("vision_tokens", stats.VisionTokens).Int("text_tokens", stats.TextTokens).
		Dur("dur", stats.Duration).Str("combined", combined).Msg("batch OCR finished")
	return Report{Stats: stats, Combined: combined, PageFiles: written, Pages: pages}, nil
}

func (r *Runner) processPage(ctx context.Context, num int, file string) Page {
	p := Page{Num: num, File: file}
	data, err := os.ReadFile(file)
	if err != nil {
		p.Err = err
		return p
	}
	p.Result, p.Err = r.rec.OCRPage(ctx, data, num, r.opts.Mode, r.opts.Prompt)
	return p
}
