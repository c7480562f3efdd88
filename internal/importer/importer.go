// Package importer streams dump files into a storage.Repository. Each file is
// classified once: collections with a typed mapping go to their table, all
// others to the archive table. Records are upserted in stream order inside
// scoped transaction batches.
package importer

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/rs/zerolog"

	"github.com/gazihan02-sys/sis-tekniktr/internal/document"
	"github.com/gazihan02-sys/sis-tekniktr/internal/mapping"
	"github.com/gazihan02-sys/sis-tekniktr/internal/metrics"
	"github.com/gazihan02-sys/sis-tekniktr/internal/schema"
	"github.com/gazihan02-sys/sis-tekniktr/internal/storage"
)

// Options configures an Importer.
type Options struct {
	Repo storage.Repository

	// CommitEvery commits after this many records; <= 0 uses one
	// transaction per file.
	CommitEvery int

	// ArchiveTable defaults to schema.DefaultArchiveTable.
	ArchiveTable string

	// Job labels step metrics.
	Job string

	Logger zerolog.Logger
}

// Importer imports collections into one destination.
type Importer struct {
	repo        storage.Repository
	commitEvery int
	archive     schema.Table
	job         string
	log         zerolog.Logger
}

// New validates opts and returns an Importer.
func New(opts Options) (*Importer, error) {
	if opts.Repo == nil {
		return nil, errors.New("importer: repository is required")
	}
	name := opts.ArchiveTable
	if name == "" {
		name = schema.DefaultArchiveTable
	}
	archive := schema.Archive(name)
	if err := archive.Validate(); err != nil {
		return nil, fmt.Errorf("importer: archive table: %w", err)
	}
	return &Importer{
		repo:        opts.Repo,
		commitEvery: opts.CommitEvery,
		archive:     archive,
		job:         opts.Job,
		log:         opts.Logger,
	}, nil
}

// Tables lists every table an import may write: the typed tables followed by
// the archive table.
func (im *Importer) Tables() []schema.Table {
	return append(mapping.Tables(), im.archive)
}

// Route names where a collection's records go.
type Route string

const (
	RouteTyped    Route = metrics.RouteTyped
	RouteArchived Route = metrics.RouteArchived
)

// Result describes one imported collection.
type Result struct {
	Collection string
	File       string
	Route      Route
	Table      string

	// Typed and Archived count upserted records by route; only one is
	// non-zero for a given file.
	Typed    int64
	Archived int64

	// Committed counts records in committed transactions.
	Committed int64
	Commits   int64

	Duration time.Duration
}

// Documents is the number of records upserted.
func (r Result) Documents() int64 { return r.Typed + r.Archived }

// RecordError locates a failure within a dump file. Index is the zero-based
// position of the record in the stream.
type RecordError struct {
	Collection string
	File       string
	Index      int64
	Err        error
}

func (e *RecordError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("import %s (%s) record %d: %v", e.Collection, e.File, e.Index, e.Err)
	}
	return fmt.Sprintf("import %s record %d: %v", e.Collection, e.Index, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// ImportFile imports the dump file at path as collection.
func (im *Importer) ImportFile(ctx context.Context, collection, path string) (Result, error) {
	f, err := document.Open(path)
	if err != nil {
		return Result{Collection: collection, File: path}, fmt.Errorf("import %s: %w", collection, err)
	}
	defer f.Close()
	return im.importSeq(ctx, collection, path, f.Documents())
}

// Import imports the records of seq as collection. On error the open batch is
// rolled back; batches committed earlier remain.
func (im *Importer) Import(ctx context.Context, collection string, seq iter.Seq2[document.Document, error]) (Result, error) {
	return im.importSeq(ctx, collection, "", seq)
}

func (im *Importer) importSeq(ctx context.Context, collection, file string, seq iter.Seq2[document.Document, error]) (res Result, err error) {
	start := time.Now()
	res = Result{Collection: collection, File: file}

	typed, isTyped := mapping.Lookup(collection)
	table := im.archive
	res.Route = RouteArchived
	if isTyped {
		table = typed.Table
		res.Route = RouteTyped
	}
	res.Table = table.Name

	log := im.log.With().Str("collection", collection).Str("table", table.Name).Logger()
	b := newBatch(im.repo, im.commitEvery, log)
	defer func() {
		err = b.abort(ctx, err)
		res.Commits, res.Committed = b.commits, b.committed
		res.Duration = time.Since(start)
		metrics.RecordRow(collection, string(res.Route), res.Committed)
		metrics.RecordCommits(collection, res.Commits)
	}()

	fail := func(idx int64, err error) error {
		return &RecordError{Collection: collection, File: file, Index: idx, Err: err}
	}

	var idx int64
	for doc, derr := range seq {
		if derr != nil {
			return res, fail(idx, derr)
		}
		if cerr := ctx.Err(); cerr != nil {
			return res, fail(idx, cerr)
		}

		var row mapping.Row
		var merr error
		if isTyped {
			row, merr = typed.Map(doc)
		} else {
			row, merr = mapping.ArchiveRow(collection, doc)
		}
		if merr != nil {
			return res, fail(idx, merr)
		}
		if uerr := b.upsert(ctx, table, mapping.Values(table, row)); uerr != nil {
			return res, fail(idx, uerr)
		}

		if isTyped {
			res.Typed++
		} else {
			res.Archived++
		}
		idx++
	}

	if cerr := b.commit(ctx); cerr != nil {
		return res, fmt.Errorf("import %s: %w", collection, cerr)
	}
	log.Info().
		Int64("documents", res.Documents()).
		Int64("commits", b.commits).
		Dur("elapsed", time.Since(start)).
		Msg("importer: imported collection")
	return res, nil
}
