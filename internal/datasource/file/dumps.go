package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Pre-run conditions reported by ListDumps.
var (
	ErrDumpDirNotFound = errors.New("dump directory not found")
	ErrNoDumpFiles     = errors.New("no BSON files found for import")
)

// DumpExt is the file extension mongodump uses for collection data.
const DumpExt = ".bson"

// Dump is one collection file in a dump directory.
type Dump struct {
	// Collection is the file's base name without DumpExt.
	Collection string
	Path       string
	Size       int64
}

// ListDumps returns the *.bson files directly under dir, sorted by file name.
// When only is non-empty, files whose collection is not listed are skipped.
// Listed collections with no file are not an error.
func ListDumps(dir string, only []string) ([]Dump, error) {
	fi, err := os.Stat(dir)
	if err != nil || !fi.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrDumpDirNotFound, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dump dir %s: %w", dir, err)
	}

	keep := make(map[string]bool, len(only))
	for _, name := range only {
		keep[name] = true
	}

	// os.ReadDir returns entries sorted by file name.
	var dumps []Dump
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, DumpExt) {
			continue
		}
		collection := strings.TrimSuffix(name, DumpExt)
		if collection == "" || (len(keep) > 0 && !keep[collection]) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", name, err)
		}
		dumps = append(dumps, Dump{
			Collection: collection,
			Path:       filepath.Join(dir, name),
			Size:       info.Size(),
		})
	}
	if len(dumps) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoDumpFiles, dir)
	}
	return dumps, nil
}
