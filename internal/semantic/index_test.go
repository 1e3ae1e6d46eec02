package semantic

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNewIndex(t *testing.T) {
	idx := NewIndex("test-model", 384)

	if idx.Version != CurrentIndexVersion {
		t.Errorf("expected version %d, got %d", CurrentIndexVersion, idx.Version)
	}
	if idx.ModelName != "test-model" {
		t.Errorf("expected model name 'test-model', got '%s'", idx.ModelName)
	}
	if idx.Dimensions != 384 {
		t.Errorf("expected dimensions 384, got %d", idx.Dimensions)
	}
	if idx.Embeddings == nil {
		t.Error("Embeddings map should be initialized")
	}
	if idx.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestAddEmbedding(t *testing.T) {
	t.Run("adds embedding successfully", func(t *testing.T) {
		idx := NewIndex("test-model", 3)
		if err := idx.AddEmbedding("paper1", []float32{1, 0, 0}); err != nil {
			t.Fatalf("AddEmbedding failed: %v", err)
		}
		if !idx.HasPaper("paper1") {
			t.Error("paper should be in index after adding")
		}
		if idx.PaperCount != 1 {
			t.Errorf("expected PaperCount 1, got %d", idx.PaperCount)
		}
	})

	t.Run("rejects dimension mismatch", func(t *testing.T) {
		idx := NewIndex("test-model", 3)
		err := idx.AddEmbedding("paper1", []float32{1, 0})
		if !errors.Is(err, ErrDimensionMismatch) {
			t.Errorf("expected ErrDimensionMismatch, got %v", err)
		}
	})

	t.Run("overwrites existing embedding", func(t *testing.T) {
		idx := NewIndex("test-model", 3)
		idx.AddEmbedding("paper1", []float32{1, 0, 0})
		idx.AddEmbedding("paper1", []float32{0, 1, 0})

		if idx.PaperCount != 1 {
			t.Errorf("expected PaperCount 1 after overwrite, got %d", idx.PaperCount)
		}
		v, _ := idx.Vector("paper1")
		if v[0] != 0 || v[1] != 1 {
			t.Error("embedding should have been overwritten")
		}
	})
}

func TestSaveAndLoad(t *testing.T) {
	root := t.TempDir()

	idx := NewIndex("test-model", 3)
	idx.AddEmbedding("paper1", []float32{1, 0, 0})
	idx.AddEmbedding("paper2", []float32{0, 1, 0})
	idx.AddEmbedding("paper3", []float32{0, 0, 1})
	idx.SkippedCount = 5

	if err := idx.Save(root); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(IndexPath(root)); os.IsNotExist(err) {
		t.Error("index file should exist after Save")
	}

	loaded, err := Load(root)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.ModelName != idx.ModelName || loaded.Dimensions != idx.Dimensions {
		t.Errorf("metadata mismatch: got %s/%d", loaded.ModelName, loaded.Dimensions)
	}
	if loaded.PaperCount != 3 || loaded.SkippedCount != 5 {
		t.Errorf("counts mismatch: got %d/%d", loaded.PaperCount, loaded.SkippedCount)
	}
	for id, emb := range idx.Embeddings {
		got, ok := loaded.Vector(id)
		if !ok {
			t.Errorf("missing embedding for %s", id)
			continue
		}
		for i, v := range emb {
			if got[i] != v {
				t.Errorf("embedding mismatch for %s at index %d: got %v, want %v", id, i, got[i], v)
			}
		}
	}
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(t.TempDir())
	if err != ErrIndexNotFound {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestLoad_UnsupportedVersion(t *testing.T) {
	root := t.TempDir()
	idx := NewIndex("test-model", 3)
	idx.Version = CurrentIndexVersion + 1
	if err := idx.Save(root); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	_, err := Load(root)
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestIndexSize(t *testing.T) {
	root := t.TempDir()

	if _, err := IndexSize(root); err != ErrIndexNotFound {
		t.Errorf("expected ErrIndexNotFound before save, got %v", err)
	}

	idx := NewIndex("test-model", 3)
	idx.AddEmbedding("paper1", []float32{1, 0, 0})
	idx.Save(root)

	size, err := IndexSize(root)
	if err != nil {
		t.Fatalf("IndexSize failed: %v", err)
	}
	if size <= 0 {
		t.Error("index size should be positive")
	}
}

func TestExists(t *testing.T) {
	root := t.TempDir()

	if Exists(root) {
		t.Error("Exists should return false before saving")
	}
	NewIndex("test-model", 3).Save(root)
	if !Exists(root) {
		t.Error("Exists should return true after saving")
	}
}

func TestIndexPath(t *testing.T) {
	path := IndexPath("/home/user/repo")
	expected := filepath.Join("/home/user/repo", ".searchforest", "cache", "semantic.gob")
	if path != expected {
		t.Errorf("IndexPath mismatch: got %s, want %s", path, expected)
	}
}
