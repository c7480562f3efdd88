package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gazihan02-sys/sis-tekniktr/internal/mapping"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding that should be surfaced but does
	// not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "storage.kind",
// "source.only[1]"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether issues contains a SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// tableName matches an optionally schema-qualified SQL identifier.
var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ValidatePipeline performs static validation of a Pipeline with defaults
// already applied. It does not mutate the pipeline or touch the filesystem.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	issues = append(issues, validateSource(p.Source)...)
	issues = append(issues, validateStorage(p.Storage)...)
	issues = append(issues, validateRuntime(p.Runtime, p.Storage.Kind)...)
	issues = append(issues, validateCheckpoint(p.Checkpoint)...)
	issues = append(issues, validateMetrics(p.Metrics)...)

	return issues
}

func validateSource(s Source) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.DumpDir) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.dump_dir",
			Message:  "source.dump_dir must not be empty",
		})
	}

	seen := map[string]bool{}
	for i, name := range s.Only {
		path := fmt.Sprintf("source.only[%d]", i)
		switch {
		case strings.TrimSpace(name) == "":
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path,
				Message:  "collection name must not be empty",
			})
		case strings.HasSuffix(name, ".bson"):
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     path,
				Message:  fmt.Sprintf("%q looks like a file name; use the collection name without .bson", name),
			})
		case seen[name]:
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     path,
				Message:  fmt.Sprintf("collection %q listed more than once", name),
			})
		}
		seen[name] = true
	}

	return issues
}

// validateStorage validates Storage configuration. Unknown kinds are
// warnings because backends register themselves at init time.
func validateStorage(s Storage) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  "storage.kind must not be empty",
		})
		return issues
	}

	known := map[string]struct{}{
		"postgres": {},
		"mysql":    {},
		"mssql":    {},
		"sqlite":   {},
	}
	if _, ok := known[s.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q; ensure a matching backend is registered", s.Kind),
		})
	}

	db := s.DB
	if strings.TrimSpace(db.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.dsn",
			Message:  "storage.db.dsn must not be empty",
		})
	}
	switch {
	case !tableName.MatchString(db.ArchiveTable):
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.archive_table",
			Message:  fmt.Sprintf("archive_table %q is not a plain or schema-qualified identifier", db.ArchiveTable),
		})
	case isTypedTable(db.ArchiveTable):
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.archive_table",
			Message:  fmt.Sprintf("archive_table %q collides with a typed collection table", db.ArchiveTable),
		})
	}

	return issues
}

func isTypedTable(name string) bool {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	for _, c := range mapping.Known() {
		if c.Table.Name == name {
			return true
		}
	}
	return false
}

func validateRuntime(r RuntimeConfig, kind string) []Issue {
	var issues []Issue

	if r.CommitEvery < 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "runtime.commit_every",
			Message:  fmt.Sprintf("commit_every=%d; each file is imported in a single transaction", r.CommitEvery),
		})
	}
	if r.FileWorkers < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.file_workers",
			Message:  "file_workers must not be negative",
		})
	}
	if r.FileWorkers > 1 && kind == "sqlite" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "runtime.file_workers",
			Message:  "sqlite uses a single connection; file workers will serialize on it",
		})
	}

	return issues
}

func validateCheckpoint(c Checkpoint) []Issue {
	if c.Resume && strings.TrimSpace(c.Manifest) == "" {
		return []Issue{{
			Severity: SeverityError,
			Path:     "checkpoint.resume",
			Message:  "resume requires checkpoint.manifest",
		}}
	}
	return nil
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue

	switch m.Backend {
	case "", "none":
	case "pushgateway":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.pushgateway_url",
				Message:  "pushgateway backend requires pushgateway_url",
			})
		}
	case "datadog":
		if strings.TrimSpace(m.DatadogAddr) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.datadog_addr",
				Message:  "datadog backend requires datadog_addr",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q (want none, pushgateway or datadog)", m.Backend),
		})
	}

	return issues
}
