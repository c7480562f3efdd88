package importer

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gazihan02-sys/sis-tekniktr/internal/checkpoint"
	"github.com/gazihan02-sys/sis-tekniktr/internal/datasource/file"
	"github.com/gazihan02-sys/sis-tekniktr/internal/metrics"
)

// RunOptions configures Run.
type RunOptions struct {
	Dumps []file.Dump

	// FileWorkers bounds how many files import concurrently. Values below 2
	// import files strictly in order.
	FileWorkers int

	// Manifest, when set, records every fully committed file.
	Manifest *checkpoint.Manifest
	// Resume skips files the manifest records with the same fingerprint.
	Resume bool

	// Progress receives human-readable progress lines. Nil discards them.
	Progress io.Writer
}

// Summary aggregates a run.
type Summary struct {
	// Results holds one entry per imported file, in dump order.
	Results []Result
	// Skipped lists collections skipped by Resume.
	Skipped  []string
	Total    int64
	Duration time.Duration
}

// Run imports every dump in opts.Dumps. The first failure stops the run;
// files committed before it stay committed and recorded in the manifest.
func (im *Importer) Run(ctx context.Context, opts RunOptions) (Summary, error) {
	start := time.Now()
	if opts.Resume && opts.Manifest == nil {
		return Summary{}, fmt.Errorf("importer: resume requires a manifest")
	}
	workers := opts.FileWorkers
	if workers < 1 {
		workers = 1
	}
	p := &progress{w: opts.Progress}

	results := make([]Result, len(opts.Dumps))
	skipped := make([]bool, len(opts.Dumps))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, d := range opts.Dumps {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// Go may block on the limit until a failing file returns, so the
			// group context is checked again once this file gets its slot.
			if gctx.Err() != nil {
				return nil
			}
			res, skip, err := im.runDump(gctx, d, opts, p)
			results[i], skipped[i] = res, skip
			return err
		})
	}
	err := g.Wait()

	sum := Summary{Duration: time.Since(start)}
	for i, d := range opts.Dumps {
		switch {
		case skipped[i]:
			sum.Skipped = append(sum.Skipped, d.Collection)
		case results[i].Collection != "":
			sum.Results = append(sum.Results, results[i])
			sum.Total += results[i].Documents()
		}
	}
	metrics.RecordStep(im.job, "run", err, sum.Duration)
	if err != nil {
		return sum, err
	}

	p.printf("Done. Total imported documents: %d\n", sum.Total)
	im.log.Info().
		Int("files", len(sum.Results)).
		Int("skipped", len(sum.Skipped)).
		Int64("documents", sum.Total).
		Dur("elapsed", sum.Duration).
		Msg("importer: run complete")
	return sum, nil
}

func (im *Importer) runDump(ctx context.Context, d file.Dump, opts RunOptions, p *progress) (Result, bool, error) {
	var fp checkpoint.Fingerprint
	if opts.Manifest != nil {
		var err error
		if fp, err = checkpoint.FingerprintFile(d.Path); err != nil {
			return Result{}, false, err
		}
		if opts.Resume && opts.Manifest.Matches(d.Collection, fp) {
			im.log.Info().Str("collection", d.Collection).Str("file", d.Path).Msg("importer: skipping unchanged file")
			p.printf("Skipping %s (unchanged since last import)\n", d.Collection)
			return Result{}, true, nil
		}
	}

	p.printf("Importing %s from %s...\n", d.Collection, filepath.Base(d.Path))
	res, err := im.ImportFile(ctx, d.Collection, d.Path)
	metrics.RecordStep(im.job, "import:"+d.Collection, err, res.Duration)
	if err != nil {
		return res, false, err
	}
	p.printf("  -> %d documents\n", res.Documents())

	if opts.Manifest != nil {
		entry := checkpoint.Entry{
			Collection: d.Collection,
			Size:       fp.Size,
			Digest:     fp.Digest,
			Documents:  res.Documents(),
			Committed:  time.Now().UTC(),
		}
		if err := opts.Manifest.Record(entry); err != nil {
			return res, false, fmt.Errorf("import %s: %w", d.Collection, err)
		}
	}
	return res, false, nil
}

// progress serializes writes from concurrent file workers.
type progress struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *progress) printf(format string, args ...any) {
	if p.w == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, format, args...)
}
