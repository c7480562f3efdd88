// Package checkpoint records which dump files a run has fully committed, so
// an interrupted migration can resume at file granularity.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/zeebo/xxh3"
)

// Entry describes one committed dump file.
type Entry struct {
	Collection string    `json:"collection"`
	Size       int64     `json:"size"`
	Digest     string    `json:"xxh3"`
	Documents  int64     `json:"documents"`
	Committed  time.Time `json:"committed_at"`
}

// Fingerprint identifies the content of a dump file.
type Fingerprint struct {
	Size   int64
	Digest string
}

// Manifest is a JSON file of entries keyed by collection. It is safe for
// concurrent use.
type Manifest struct {
	path string

	mu      sync.Mutex
	entries map[string]Entry
}

type manifestFile struct {
	Version int     `json:"version"`
	Files   []Entry `json:"files"`
}

const manifestVersion = 1

// Load reads the manifest at path. A missing file yields an empty manifest
// that will be created on the first Save.
func Load(path string) (*Manifest, error) {
	m := &Manifest{path: path, entries: map[string]Entry{}}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("checkpoint: read manifest: %w", err)
	}
	var mf manifestFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("checkpoint: unmarshal manifest %s: %w", path, err)
	}
	if mf.Version != manifestVersion {
		return nil, fmt.Errorf("checkpoint: manifest %s has version %d, want %d", path, mf.Version, manifestVersion)
	}
	for _, e := range mf.Files {
		m.entries[e.Collection] = e
	}
	return m, nil
}

// Path returns the manifest file path.
func (m *Manifest) Path() string { return m.path }

// Lookup returns the entry recorded for collection.
func (m *Manifest) Lookup(collection string) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[collection]
	return e, ok
}

// Matches reports whether collection was committed from a file with the
// same fingerprint.
func (m *Manifest) Matches(collection string, fp Fingerprint) bool {
	e, ok := m.Lookup(collection)
	return ok && e.Size == fp.Size && e.Digest == fp.Digest
}

// Record stores e and persists the manifest.
func (m *Manifest) Record(e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.Collection] = e
	return m.saveLocked()
}

// Save persists the manifest.
func (m *Manifest) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked()
}

// saveLocked writes to a temp file in the same directory and renames it
// over the manifest so readers never observe a partial file.
func (m *Manifest) saveLocked() error {
	mf := manifestFile{Version: manifestVersion, Files: make([]Entry, 0, len(m.entries))}
	for _, e := range m.entries {
		mf.Files = append(mf.Files, e)
	}
	sort.Slice(mf.Files, func(i, j int) bool { return mf.Files[i].Collection < mf.Files[j].Collection })

	data, err := json.MarshalIndent(mf, "", "  ")
	if err != nil {
		return fmt.Errorf("checkpoint: marshal manifest: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(m.path), ".manifest-*")
	if err != nil {
		return fmt.Errorf("checkpoint: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("checkpoint: write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("checkpoint: close manifest: %w", err)
	}
	if err := os.Rename(tmp.Name(), m.path); err != nil {
		return fmt.Errorf("checkpoint: rename manifest: %w", err)
	}
	return nil
}

// FingerprintFile hashes the file at path with xxh3-64.
func FingerprintFile(path string) (Fingerprint, error) {
	f, err := os.Open(path)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("checkpoint: open %s: %w", path, err)
	}
	defer f.Close()
	return FingerprintReader(f)
}

// FingerprintReader hashes r to its end.
func FingerprintReader(r io.Reader) (Fingerprint, error) {
	h := xxh3.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("checkpoint: hash: %w", err)
	}
	return Fingerprint{Size: n, Digest: fmt.Sprintf("%016x", h.Sum64())}, nil
}
