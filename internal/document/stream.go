package document

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"

	"go.mongodb.org/mongo-driver/bson"
)

// minDocumentSize is the size of the empty document: int32 length + NUL.
const minDocumentSize = 5

// maxDocumentSize bounds allocations for corrupt length prefixes. MongoDB
// caps documents at 16 MiB; dumps never exceed that.
const maxDocumentSize = 16 << 20

// ErrTruncated reports a document cut short by the end of input.
var ErrTruncated = errors.New("document: truncated bson stream")

// Stream returns a lazy, forward-only sequence over a concatenation of BSON
// documents, as written by mongodump. The sequence ends at a clean end of
// input. A truncated or malformed document yields one error and stops the
// sequence; there is no resynchronization.
func Stream(r io.Reader) iter.Seq2[Document, error] {
	return func(yield func(Document, error) bool) {
		for n := 0; ; n++ {
			raw, err := readRaw(r)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, fmt.Errorf("document %d: %w", n, err))
				return
			}
			doc, err := FromBSON(raw)
			if err != nil {
				yield(nil, fmt.Errorf("document %d: %w", n, err))
				return
			}
			if !yield(doc, nil) {
				return
			}
		}
	}
}

// readRaw reads one length-prefixed document. io.EOF is returned only when
// the input ends exactly on a document boundary.
func readRaw(r io.Reader) (bson.Raw, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncated
		}
		return nil, err
	}
	size := int32(binary.LittleEndian.Uint32(prefix[:]))
	if size < minDocumentSize || size > maxDocumentSize {
		return nil, fmt.Errorf("document: invalid length prefix %d", size)
	}
	buf := make([]byte, size)
	copy(buf, prefix[:])
	if _, err := io.ReadFull(r, buf[4:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncated
		}
		return nil, err
	}
	return bson.Raw(buf), nil
}

// File is an open dump file. Documents may be ranged over once.
type File struct {
	f *os.File
	r *bufio.Reader
}

// Open opens a .bson dump file for streaming.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &File{f: f, r: bufio.NewReaderSize(f, 1<<20)}, nil
}

// Documents streams the file from its current position.
func (f *File) Documents() iter.Seq2[Document, error] { return Stream(f.r) }

// Close closes the underlying file.
func (f *File) Close() error { return f.f.Close() }
