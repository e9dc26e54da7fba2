package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/johnbrandborg/s3-inventory-report/internal/logctx"
	"github.com/johnbrandborg/s3-inventory-report/pkg/folder"
	"github.com/johnbrandborg/s3-inventory-report/pkg/humanfmt"
	"github.com/johnbrandborg/s3-inventory-report/pkg/invcache"
	"github.com/johnbrandborg/s3-inventory-report/pkg/inventory"
	"github.com/johnbrandborg/s3-inventory-report/pkg/logging"
	"github.com/johnbrandborg/s3-inventory-report/pkg/manifest"
	"github.com/johnbrandborg/s3-inventory-report/pkg/s3fetch"
)

// Config configures one report run.
type Config struct {
	// ManifestURI is the S3 location of the inventory manifest, either
	// the delivery prefix or the manifest.json object itself.
	ManifestURI string
	// Depth is the folder depth to aggregate at.
	Depth int
	// CacheDir is the local directory for caching data files ("" disables).
	CacheDir string
	// Concurrency is the number of data files processed in parallel.
	Concurrency int
	// SkipChecksum disables MD5 verification of the manifest and data files.
	SkipChecksum bool
}

// Transport is the object-store byte transport the pipeline reads from
// and delivers to.
type Transport interface {
	GetObjectBytes(ctx context.Context, bucket, key string) ([]byte, error)
	DownloadToFile(ctx context.Context, bucket, key, destPath string) (int64, error)
	PutObject(ctx context.Context, bucket, key string, body []byte) error
}

// FileSummary reports per-data-file processing counts.
type FileSummary struct {
	Key       string
	Records   uint64
	Malformed uint64
}

// Result is the outcome of a completed run. A run that fails produces no
// Result at all; rows are never partial.
type Result struct {
	Rows      []Row
	Objects   uint64
	Folders   int
	Malformed uint64
	Files     []FileSummary
	Duration  time.Duration
}

// Run executes the full pipeline: manifest fetch and validation, data
// file fetch (through the cache), record streaming, and aggregation.
func Run(ctx context.Context, tr Transport, cfg Config) (*Result, error) {
	start := time.Now()
	log := logctx.FromContext(ctx)
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}

	m, err := loadManifest(ctx, tr, cfg)
	if err != nil {
		return nil, err
	}

	format := m.Format()
	var cols manifest.Columns
	if format == manifest.FormatCSV {
		if cols, err = m.CSVColumns(); err != nil {
			return nil, err
		}
	}

	bucket, err := m.DestinationBucketName()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", manifest.ErrFormat, err)
	}

	log.Info().
		Str("format", format.String()).
		Str("bucket", bucket).
		Int("files", len(m.Files)).
		Msg("processing inventory")

	store := invcache.New(cfg.CacheDir, downloadFunc(tr, bucket), log)
	progress := logging.NewProgressTracker("process", int64(len(m.Files)), log)

	aggs := make([]*Aggregator, len(m.Files))
	sums := make([]FileSummary, len(m.Files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)
	for i, file := range m.Files {
		g.Go(func() error {
			fctx := logctx.WithStr(gctx, "file", file.Key)
			fileStart := time.Now()

			agg, sum, err := processFile(fctx, store, file, format, cols, cfg)
			if err != nil {
				return err
			}

			aggs[i] = agg
			sums[i] = sum
			progress.FileDone(file.Key, sum.Records, sum.Malformed, time.Since(fileStart))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := NewAggregator()
	var malformed uint64
	for _, agg := range aggs {
		total.Merge(agg)
	}
	for _, sum := range sums {
		malformed += sum.Malformed
	}

	res := &Result{
		Rows:      total.Finalize(cfg.Depth),
		Objects:   total.Objects(),
		Folders:   total.FolderCount(),
		Malformed: malformed,
		Files:     sums,
		Duration:  time.Since(start),
	}

	log.Info().
		Uint64("objects", res.Objects).
		Int("folders", res.Folders).
		Uint64("malformed", res.Malformed).
		Str("elapsed", humanfmt.Duration(res.Duration)).
		Msg("inventory processed")

	return res, nil
}

// loadManifest fetches, checksum-verifies, and parses the manifest.
func loadManifest(ctx context.Context, tr Transport, cfg Config) (*manifest.Manifest, error) {
	bucket, jsonKey, checksumKey, err := manifestKeys(cfg.ManifestURI)
	if err != nil {
		return nil, err
	}

	body, err := tr.GetObjectBytes(ctx, bucket, jsonKey)
	if err != nil {
		if errors.Is(err, s3fetch.ErrNoSuchKey) {
			return nil, fmt.Errorf("%w: %v", manifest.ErrNotFound, err)
		}
		return nil, fmt.Errorf("fetch manifest: %w", err)
	}

	if !cfg.SkipChecksum {
		checksum, err := tr.GetObjectBytes(ctx, bucket, checksumKey)
		switch {
		case errors.Is(err, s3fetch.ErrNoSuchKey):
			log := logctx.FromContext(ctx)
			log.Warn().Str("key", checksumKey).
				Msg("manifest.checksum not found; skipping verification")
		case err != nil:
			return nil, fmt.Errorf("fetch manifest checksum: %w", err)
		default:
			if err := manifest.VerifyChecksum(body, checksum); err != nil {
				return nil, err
			}
		}
	}

	return manifest.Parse(bytes.NewReader(body))
}

// manifestKeys derives the manifest.json and manifest.checksum object
// keys from the caller-supplied location, which may name either the
// delivery prefix or the manifest.json object itself.
func manifestKeys(manifestURI string) (bucket, jsonKey, checksumKey string, err error) {
	uri := strings.TrimSuffix(manifestURI, "manifest.json")
	if !strings.HasSuffix(uri, "/") {
		uri += "/"
	}

	bucket, prefix, err := s3fetch.ParseS3URI(uri)
	if err != nil {
		return "", "", "", fmt.Errorf("parse manifest location: %w", err)
	}

	return bucket, prefix + "manifest.json", prefix + "manifest.checksum", nil
}

// downloadFunc adapts the transport into the cache's fetch callback,
// logging download throughput.
func downloadFunc(tr Transport, bucket string) invcache.FetchFunc {
	return func(ctx context.Context, key, path string) error {
		start := time.Now()
		n, err := tr.DownloadToFile(ctx, bucket, key, path)
		if err != nil {
			return err
		}
		log := logctx.FromContext(ctx)
		log.Debug().
			Str("key", key).
			Int64("bytes", n).
			Str("throughput", humanfmt.Throughput(n, time.Since(start))).
			Msg("downloaded inventory file")
		return nil
	}
}

// processFile streams one data file through the extractor into a fresh
// Aggregator.
func processFile(ctx context.Context, store *invcache.Store, file manifest.File, format manifest.Format, cols manifest.Columns, cfg Config) (*Aggregator, FileSummary, error) {
	sum := FileSummary{Key: file.Key}

	checksum := file.MD5Checksum
	if cfg.SkipChecksum {
		checksum = ""
	}

	h, err := store.GetOrFetch(ctx, file.Key, checksum)
	if err != nil {
		return nil, sum, err
	}
	defer h.Close()

	gzipped := format == manifest.FormatCSV && strings.HasSuffix(strings.ToLower(file.Key), ".gz")
	r, err := inventory.Open(h.Path, format, gzipped, cols)
	if err != nil {
		return nil, sum, fmt.Errorf("open %s: %w", file.Key, err)
	}
	defer r.Close()

	agg := NewAggregator()
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, sum, fmt.Errorf("read %s: %w", file.Key, err)
		}

		agg.Add(folder.Extract(rec.Key, cfg.Depth), rec)
		sum.Records++
	}

	sum.Malformed = r.Malformed()
	return agg, sum, nil
}
