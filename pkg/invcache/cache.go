// Package invcache caches fetched inventory data files on local disk so
// repeated runs over the same manifest avoid re-fetching from S3.
package invcache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// ErrFetch indicates the underlying transport failed to deliver a data file.
var ErrFetch = errors.New("fetch inventory file")

// ErrContentChecksum indicates a data file failed its MD5 verification.
var ErrContentChecksum = errors.New("inventory file checksum mismatch")

// FetchFunc downloads the object at key into the local file at path.
type FetchFunc func(ctx context.Context, key, path string) error

// Store is a content-addressed directory of fetched data files. Identity
// combines the source key with the manifest's MD5 token, so a re-delivered
// inventory with new content misses the cache even under the same key.
type Store struct {
	dir   string // empty disables persistence; every fetch is a temp file
	fetch FetchFunc
	log   zerolog.Logger
}

// Handle points at a local copy of a data file. Temp-backed handles
// remove the file on Close; cached handles leave it in place.
type Handle struct {
	Path string
	temp bool
}

// Close removes the backing file if it is not persisted in the cache.
func (h *Handle) Close() error {
	if h.temp {
		return os.Remove(h.Path)
	}
	return nil
}

// New creates a Store over dir. An empty dir disables persistence.
func New(dir string, fetch FetchFunc, log zerolog.Logger) *Store {
	return &Store{dir: dir, fetch: fetch, log: log}
}

// GetOrFetch returns a local handle for the object at key. On a cache hit
// no remote call is made. On a miss the object is fetched to a temp file,
// verified against checksum when one is given, and persisted with
// tmp+rename. A persist failure downgrades to serving the temp copy with
// a warning; correctness never depends on the cache being populated.
func (s *Store) GetOrFetch(ctx context.Context, key, checksum string) (*Handle, error) {
	var cached string
	if s.dir != "" {
		cached = filepath.Join(s.dir, s.identity(key, checksum))
		if info, err := os.Stat(cached); err == nil && info.Size() > 0 {
			s.log.Debug().Str("key", key).Str("path", cached).Msg("cache hit")
			return &Handle{Path: cached}, nil
		}
	}

	tmp, err := s.tempFile()
	if err != nil {
		return nil, err
	}

	if err := s.fetch(ctx, key, tmp); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("%w: %s: %v", ErrFetch, key, err)
	}

	if checksum != "" {
		if err := verifyMD5(tmp, checksum); err != nil {
			os.Remove(tmp)
			return nil, fmt.Errorf("%s: %w", key, err)
		}
	}

	if cached == "" {
		return &Handle{Path: tmp, temp: true}, nil
	}

	if err := os.Rename(tmp, cached); err != nil {
		s.log.Warn().Err(err).Str("key", key).Str("path", cached).
			Msg("cache write failed; serving without persisting")
		return &Handle{Path: tmp, temp: true}, nil
	}

	s.log.Debug().Str("key", key).Str("path", cached).Msg("cached inventory file")
	return &Handle{Path: cached}, nil
}

// tempFile creates an empty temp file and returns its path. When the
// cache directory is configured the file lives there, keeping the final
// rename on one filesystem.
func (s *Store) tempFile() (string, error) {
	dir := s.dir
	if dir == "" {
		dir = os.TempDir()
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		s.log.Warn().Err(err).Str("dir", dir).Msg("cache directory unavailable")
		dir = os.TempDir()
	}

	f, err := os.CreateTemp(dir, "s3invreport-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return path, nil
}

// identity derives the cache filename from the source key and checksum
// token. The key alone identifies the file when no checksum is declared.
func (s *Store) identity(key, checksum string) string {
	id := key
	if checksum != "" {
		id = key + "@" + checksum
	}
	sum := md5.Sum([]byte(id))
	return hex.EncodeToString(sum[:])
}

func verifyMD5(path, want string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open for checksum: %w", err)
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return fmt.Errorf("hash file: %w", err)
	}

	got := hex.EncodeToString(h.Sum(nil))
	if got != want {
		return fmt.Errorf("%w: got %s, manifest says %s", ErrContentChecksum, got, want)
	}
	return nil
}
