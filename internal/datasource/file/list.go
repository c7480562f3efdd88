// Package file resolves the local inputs of an import run: the dump files
// in a mongodump directory and optional collection list files.
package file

import (
	"bufio"
	"os"
	"strings"
)

// ReadList reads a text file line by line and returns its non-empty,
// non-comment lines in order. A line is a comment when it starts with '#'
// after trimming; trailing " # ..." remarks are stripped.
func ReadList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.Index(line, " #"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SplitList splits a comma or whitespace separated list, dropping empty items.
func SplitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}

// MergeOnly combines collection names from inline lists and an optional
// list file, preserving first-seen order and dropping duplicates.
func MergeOnly(inline []string, listFile string) ([]string, error) {
	names := append([]string(nil), inline...)
	if listFile != "" {
		fromFile, err := ReadList(listFile)
		if err != nil {
			return nil, err
		}
		names = append(names, fromFile...)
	}
	seen := make(map[string]bool, len(names))
	out := names[:0]
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out, nil
}
