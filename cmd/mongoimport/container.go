// This file keeps the CLI layer thin: it depends only on storage-agnostic
// interfaces and never imports database drivers directly.
package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/gazihan02-sys/sis-tekniktr/internal/checkpoint"
	"github.com/gazihan02-sys/sis-tekniktr/internal/config"
	"github.com/gazihan02-sys/sis-tekniktr/internal/datasource/file"
	"github.com/gazihan02-sys/sis-tekniktr/internal/importer"
	"github.com/gazihan02-sys/sis-tekniktr/internal/metrics"
	"github.com/gazihan02-sys/sis-tekniktr/internal/storage"
)

// newRepositoryFn is a test seam; tests swap it for an in-memory fake.
var newRepositoryFn = storage.New

// ensureTablesFn is a test seam for DDL bootstrap.
var ensureTablesFn = storage.EnsureTables

// run resolves the dump files, opens the destination and imports every file.
// Progress lines go to out.
func run(ctx context.Context, p config.Pipeline, log zerolog.Logger, out io.Writer) (importer.Summary, error) {
	only, err := file.MergeOnly(p.Source.Only, p.Source.OnlyFile)
	if err != nil {
		return importer.Summary{}, err
	}
	dumps, err := file.ListDumps(p.Source.DumpDir, only)
	if err != nil {
		return importer.Summary{}, err
	}
	log.Info().
		Str("dump_dir", p.Source.DumpDir).
		Int("files", len(dumps)).
		Str("storage", p.Storage.Kind).
		Msg("dump resolved")

	repo, err := newRepositoryFn(ctx, storage.Config{Kind: p.Storage.Kind, DSN: p.Storage.DB.DSN})
	if err != nil {
		return importer.Summary{}, fmt.Errorf("open storage: %w", err)
	}
	defer repo.Close()

	im, err := importer.New(importer.Options{
		Repo:         repo,
		CommitEvery:  p.Runtime.CommitEvery,
		ArchiveTable: p.Storage.DB.ArchiveTable,
		Job:          p.Job,
		Logger:       log,
	})
	if err != nil {
		return importer.Summary{}, err
	}

	if p.Storage.DB.AutoCreateTable {
		start := time.Now()
		err := ensureTablesFn(ctx, p.Storage.Kind, repo, im.Tables())
		metrics.RecordStep(p.Job, "bootstrap", err, time.Since(start))
		if err != nil {
			return importer.Summary{}, fmt.Errorf("create tables: %w", err)
		}
		log.Debug().Int("tables", len(im.Tables())).Msg("tables ensured")
	}

	var manifest *checkpoint.Manifest
	if p.Checkpoint.Manifest != "" {
		if manifest, err = checkpoint.Load(p.Checkpoint.Manifest); err != nil {
			return importer.Summary{}, err
		}
	}

	return im.Run(ctx, importer.RunOptions{
		Dumps:       dumps,
		FileWorkers: p.Runtime.FileWorkers,
		Manifest:    manifest,
		Resume:      p.Checkpoint.Resume,
		Progress:    out,
	})
}
