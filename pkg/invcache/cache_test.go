package invcache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func md5hex(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// countingFetch serves objects from a map and counts remote calls.
type countingFetch struct {
	objects map[string][]byte
	calls   int
}

func (c *countingFetch) fetch(_ context.Context, key, path string) error {
	c.calls++
	data, ok := c.objects[key]
	if !ok {
		return fmt.Errorf("no such object %q", key)
	}
	return os.WriteFile(path, data, 0o644)
}

func TestGetOrFetchCachesFile(t *testing.T) {
	data := []byte("a,1\nb,2\n")
	src := &countingFetch{objects: map[string][]byte{"data/f1.csv.gz": data}}
	store := New(t.TempDir(), src.fetch, zerolog.Nop())

	h, err := store.GetOrFetch(context.Background(), "data/f1.csv.gz", md5hex(data))
	if err != nil {
		t.Fatalf("GetOrFetch failed: %v", err)
	}
	got, err := os.ReadFile(h.Path)
	if err != nil {
		t.Fatalf("read handle: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("got %q, want %q", got, data)
	}
	if err := h.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}

	// Second call must be served from the cache without a remote call.
	h2, err := store.GetOrFetch(context.Background(), "data/f1.csv.gz", md5hex(data))
	if err != nil {
		t.Fatalf("second GetOrFetch failed: %v", err)
	}
	defer h2.Close()
	if src.calls != 1 {
		t.Errorf("remote calls = %d, want 1", src.calls)
	}
	if h2.Path != h.Path {
		t.Errorf("cache paths differ: %q vs %q", h2.Path, h.Path)
	}
}

func TestGetOrFetchIdentityIncludesChecksum(t *testing.T) {
	data := []byte("content-v2")
	src := &countingFetch{objects: map[string][]byte{"data/f1": data}}
	store := New(t.TempDir(), src.fetch, zerolog.Nop())

	h1, err := store.GetOrFetch(context.Background(), "data/f1", md5hex(data))
	if err != nil {
		t.Fatalf("GetOrFetch failed: %v", err)
	}
	h1.Close()

	// Same key but no checksum token resolves to a different identity.
	h2, err := store.GetOrFetch(context.Background(), "data/f1", "")
	if err != nil {
		t.Fatalf("GetOrFetch without checksum failed: %v", err)
	}
	h2.Close()

	if src.calls != 2 {
		t.Errorf("remote calls = %d, want 2", src.calls)
	}
	if h1.Path == h2.Path {
		t.Error("expected distinct cache entries for distinct identities")
	}
}

func TestGetOrFetchNoDir(t *testing.T) {
	data := []byte("temp only")
	src := &countingFetch{objects: map[string][]byte{"k": data}}
	store := New("", src.fetch, zerolog.Nop())

	h, err := store.GetOrFetch(context.Background(), "k", "")
	if err != nil {
		t.Fatalf("GetOrFetch failed: %v", err)
	}
	path := h.Path
	if err := h.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("temp file %q should be removed on Close", path)
	}
}

func TestGetOrFetchChecksumMismatch(t *testing.T) {
	src := &countingFetch{objects: map[string][]byte{"k": []byte("actual")}}
	store := New(t.TempDir(), src.fetch, zerolog.Nop())

	_, err := store.GetOrFetch(context.Background(), "k", md5hex([]byte("expected")))
	if !errors.Is(err, ErrContentChecksum) {
		t.Errorf("expected ErrContentChecksum, got %v", err)
	}
}

func TestGetOrFetchFetchError(t *testing.T) {
	src := &countingFetch{objects: map[string][]byte{}}
	store := New(t.TempDir(), src.fetch, zerolog.Nop())

	_, err := store.GetOrFetch(context.Background(), "missing", "")
	if !errors.Is(err, ErrFetch) {
		t.Errorf("expected ErrFetch, got %v", err)
	}
}

func TestGetOrFetchPersistFailureDegrades(t *testing.T) {
	// Point the cache directory at a regular file so MkdirAll fails.
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}

	data := []byte("served anyway")
	src := &countingFetch{objects: map[string][]byte{"k": data}}
	store := New(blocker, src.fetch, zerolog.Nop())

	h, err := store.GetOrFetch(context.Background(), "k", "")
	if err != nil {
		t.Fatalf("GetOrFetch should degrade, got error: %v", err)
	}
	defer h.Close()

	got, err := os.ReadFile(h.Path)
	if err != nil {
		t.Fatalf("read handle: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("got %q, want %q", got, data)
	}
}
