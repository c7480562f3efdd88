// Package config defines the JSON-serializable configuration model for an
// import run. A Pipeline can be loaded from disk, overridden by flags and
// environment variables in cmd/mongoimport, and checked with ValidatePipeline
// before any connection is opened.
//
// Example:
//
//	{
//	  "job":     "nightly-migration",
//	  "source":  { "dump_dir": "./dump/app", "only": ["users", "sms_queue"] },
//	  "storage": { "kind": "postgres", "db": { "dsn": "postgresql://...", "auto_create_table": true } },
//	  "runtime": { "commit_every": 1000, "file_workers": 1 },
//	  "checkpoint": { "manifest": "./dump/app/.import-manifest.json", "resume": true },
//	  "metrics": { "backend": "pushgateway", "pushgateway_url": "http://pgw:9091" }
//	}
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/gazihan02-sys/sis-tekniktr/internal/schema"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultDumpDir     = "./dump"
	DefaultStorageKind = "postgres"
	DefaultCommitEvery = 1000
	DefaultFileWorkers = 1
	DefaultMetrics     = "none"
)

// Pipeline describes one import run.
type Pipeline struct {
	// Job labels metrics and log lines. Empty means a generated run ID.
	Job string `json:"job"`

	Source     Source        `json:"source"`
	Storage    Storage       `json:"storage"`
	Runtime    RuntimeConfig `json:"runtime"`
	Checkpoint Checkpoint    `json:"checkpoint"`
	Metrics    Metrics       `json:"metrics"`
}

// Source locates the dump files.
type Source struct {
	// DumpDir holds one <collection>.bson file per collection.
	DumpDir string `json:"dump_dir"`

	// Only restricts the run to these collection names.
	Only []string `json:"only"`

	// OnlyFile names a list file of collection names, one per line. Entries
	// are merged with Only.
	OnlyFile string `json:"only_file"`
}

// Storage selects the destination backend.
type Storage struct {
	// Kind selects the storage implementation: postgres, mssql, mysql or sqlite.
	Kind string `json:"kind"`

	DB DBConfig `json:"db"`
}

// DBConfig configures the destination database.
type DBConfig struct {
	// DSN is the backend connection string.
	DSN string `json:"dsn"`

	// ArchiveTable receives documents of collections without a typed table.
	ArchiveTable string `json:"archive_table"`

	// AutoCreateTable creates the typed and archive tables when missing.
	AutoCreateTable bool `json:"auto_create_table"`
}

// CommitPerFile is the CommitEvery value selecting one transaction per file.
// An explicit 0 in a config file, flag or environment variable maps to it.
const CommitPerFile = -1

// RuntimeConfig controls transaction sizing and file-level concurrency.
type RuntimeConfig struct {
	// CommitEvery commits after this many records; < 0 commits once per file
	// and 0 means unset (DefaultCommitEvery).
	CommitEvery int `json:"commit_every"`

	// FileWorkers is the number of dump files imported concurrently.
	FileWorkers int `json:"file_workers"`
}

// UnmarshalJSON tells an absent commit_every from an explicit 0, which
// selects CommitPerFile.
func (r *RuntimeConfig) UnmarshalJSON(data []byte) error {
	var raw struct {
		CommitEvery *int `json:"commit_every"`
		FileWorkers int  `json:"file_workers"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*r = RuntimeConfig{FileWorkers: raw.FileWorkers}
	if raw.CommitEvery != nil {
		r.CommitEvery = *raw.CommitEvery
		if r.CommitEvery == 0 {
			r.CommitEvery = CommitPerFile
		}
	}
	return nil
}

// Checkpoint configures the run manifest.
type Checkpoint struct {
	// Manifest is the manifest file path. Empty disables the manifest.
	Manifest string `json:"manifest"`

	// Resume skips files the manifest records as committed with identical content.
	Resume bool `json:"resume"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	// Backend is one of none, pushgateway or datadog.
	Backend        string `json:"backend"`
	PushgatewayURL string `json:"pushgateway_url"`
	DatadogAddr    string `json:"datadog_addr"`
}

// Load decodes the pipeline file at path. Unknown fields are rejected so
// typos surface instead of silently falling back to defaults.
func Load(path string) (Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Pipeline{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Decode(data)
}

// Decode decodes a pipeline from JSON.
func Decode(data []byte) (Pipeline, error) {
	var p Pipeline
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return Pipeline{}, fmt.Errorf("config: decode: %w", err)
	}
	return p, nil
}

// Default returns a pipeline with every default applied.
func Default() Pipeline {
	var p Pipeline
	p.ApplyDefaults()
	return p
}

// ApplyDefaults fills unset fields. CommitEvery is left alone when set to a
// negative value, which selects one transaction per file.
func (p *Pipeline) ApplyDefaults() {
	if p.Source.DumpDir == "" {
		p.Source.DumpDir = DefaultDumpDir
	}
	if p.Storage.Kind == "" {
		p.Storage.Kind = DefaultStorageKind
	}
	if p.Storage.DB.ArchiveTable == "" {
		p.Storage.DB.ArchiveTable = schema.DefaultArchiveTable
	}
	if p.Runtime.CommitEvery == 0 {
		p.Runtime.CommitEvery = DefaultCommitEvery
	}
	if p.Runtime.FileWorkers == 0 {
		p.Runtime.FileWorkers = DefaultFileWorkers
	}
	if p.Metrics.Backend == "" {
		p.Metrics.Backend = DefaultMetrics
	}
}
