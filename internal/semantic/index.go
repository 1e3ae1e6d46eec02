package semantic

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/matsen/searchforest/internal/config"
	"github.com/matsen/searchforest/internal/storage"
)

// Errors returned by index operations.
var (
	ErrIndexNotFound      = errors.New("semantic index not found")
	ErrPaperNotIndexed    = errors.New("paper not in semantic index")
	ErrUnsupportedVersion = errors.New("unsupported index version")
	ErrDimensionMismatch  = errors.New("embedding dimension mismatch")
)

const (
	// IndexFileName is the name of the index file under the cache directory.
	IndexFileName = "semantic.gob"

	// MinAbstractLength is the minimum trimmed abstract length (in
	// characters) to index.
	MinAbstractLength = 50

	// MaxAbstractLength caps the text sent to the embedding model; longer
	// abstracts are truncated.
	MaxAbstractLength = 8000

	// CurrentIndexVersion is the format version for compatibility checking.
	// Increment this when making breaking changes to the index format.
	CurrentIndexVersion = 1
)

// IndexPath returns the path to the index file.
func IndexPath(repoRoot string) string {
	return filepath.Join(config.CachePath(repoRoot), IndexFileName)
}

// NewIndex creates a new empty index.
func NewIndex(modelName string, dimensions int) *Index {
	return &Index{
		Version:    CurrentIndexVersion,
		ModelName:  modelName,
		Dimensions: dimensions,
		CreatedAt:  time.Now(),
		Embeddings: make(map[string][]float32),
	}
}

// AddEmbedding adds a paper embedding to the index and keeps PaperCount in
// step with the number of embeddings.
func (idx *Index) AddEmbedding(paperID string, embedding []float32) error {
	if len(embedding) != idx.Dimensions {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(embedding), idx.Dimensions)
	}
	idx.Embeddings[paperID] = embedding
	idx.PaperCount = len(idx.Embeddings)
	return nil
}

// Save persists the index under repoRoot.
func (idx *Index) Save(repoRoot string) error {
	return storage.SaveGob(IndexPath(repoRoot), idx)
}

// Load reads the index from disk.
// Returns ErrUnsupportedVersion if the index was created with an incompatible format.
func Load(repoRoot string) (*Index, error) {
	var idx Index
	if err := storage.LoadGob(IndexPath(repoRoot), &idx); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrIndexNotFound
		}
		return nil, err
	}

	if idx.Version != CurrentIndexVersion {
		return nil, fmt.Errorf("%w: got %d, want %d (rebuild with 'sf index build')",
			ErrUnsupportedVersion, idx.Version, CurrentIndexVersion)
	}
	if idx.Embeddings == nil {
		idx.Embeddings = make(map[string][]float32)
	}

	return &idx, nil
}

// IndexSize returns the size of the index file in bytes.
func IndexSize(repoRoot string) (int64, error) {
	info, err := os.Stat(IndexPath(repoRoot))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrIndexNotFound
		}
		return 0, err
	}
	return info.Size(), nil
}

// Exists checks if the index file exists.
func Exists(repoRoot string) bool {
	_, err := os.Stat(IndexPath(repoRoot))
	return err == nil
}
