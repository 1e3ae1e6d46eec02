// Package storage handles data persistence in JSONL, SQLite, and gob formats.
//
// papers.jsonl is the source of truth. The SQLite database under cache/ is
// rebuilt from it and holds the search tables, the citation table, and the
// tree cache.
package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/matsen/searchforest/internal/paper"
)

// MaxJSONLLineCapacity is the maximum buffer size for reading JSONL lines (1MB per line).
// This constant is shared across all JSONL file readers.
const MaxJSONLLineCapacity = 1024 * 1024

// ReadJSONL decodes one T per non-empty line. A missing file yields no
// records and no error.
func ReadJSONL[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var out []T
	scanner := bufio.NewScanner(f)
	buf := make([]byte, MaxJSONLLineCapacity)
	scanner.Buffer(buf, MaxJSONLLineCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec T
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("parsing line %d: %w", lineNum, err)
		}
		out = append(out, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return out, nil
}

// WriteJSONL replaces path with one JSON record per line. The file is
// written to a temporary path and renamed into place.
func WriteJSONL[T any](path string, records []T) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmp, err)
	}

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			f.Close()
			os.Remove(tmp)
			return fmt.Errorf("encoding record %d: %w", i, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("flushing %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming %s: %w", tmp, err)
	}
	return nil
}

// ReadAll reads all papers from a JSONL file.
func ReadAll(path string) ([]paper.Paper, error) {
	return ReadJSONL[paper.Paper](path)
}

// WriteAll writes all papers to a JSONL file, replacing existing content.
func WriteAll(path string, papers []paper.Paper) error {
	return WriteJSONL(path, papers)
}

// FindByID searches for a paper by ID.
func FindByID(papers []paper.Paper, id string) (int, bool) {
	for i, p := range papers {
		if p.ID == id {
			return i, true
		}
	}
	return -1, false
}

// MergeResult counts what Merge did.
type MergeResult struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// Merge folds incoming papers into existing by ID. A known ID is replaced in
// place, a new ID is appended, and an invalid paper is skipped. The first
// occurrence of an ID within incoming wins over later ones.
func Merge(existing, incoming []paper.Paper) ([]paper.Paper, MergeResult) {
	var res MergeResult
	index := make(map[string]int, len(existing))
	for i, p := range existing {
		index[p.ID] = i
	}
	merged := append([]paper.Paper(nil), existing...)
	seen := make(map[string]bool, len(incoming))

	for _, p := range incoming {
		if err := p.Validate(); err != nil || seen[p.ID] {
			res.Skipped++
			continue
		}
		seen[p.ID] = true
		if i, ok := index[p.ID]; ok {
			merged[i] = p
			res.Updated++
			continue
		}
		index[p.ID] = len(merged)
		merged = append(merged, p)
		res.Added++
	}
	return merged, res
}
