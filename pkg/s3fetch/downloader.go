package s3fetch

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DownloaderConfig configures the S3 Download Manager.
type DownloaderConfig struct {
	// Concurrency is the number of concurrent download parts.
	// Default: max(4, NumCPU), capped at 16.
	Concurrency int

	// PartSize is the size of each download part in bytes.
	// Default: 16MB.
	PartSize int64
}

// DefaultDownloaderConfig returns sensible defaults based on the current machine.
func DefaultDownloaderConfig() DownloaderConfig {
	concurrency := runtime.NumCPU()
	if concurrency < 4 {
		concurrency = 4
	}
	if concurrency > 16 {
		concurrency = 16
	}

	return DownloaderConfig{
		Concurrency: concurrency,
		PartSize:    16 * 1024 * 1024, // 16MB
	}
}

// Downloader wraps the AWS S3 Download Manager for ranged parallel
// downloads of inventory data files.
type Downloader struct {
	manager *manager.Downloader
	config  DownloaderConfig
}

// NewDownloader creates a Downloader from an existing S3 client.
func NewDownloader(s3Client *s3.Client, cfg DownloaderConfig) *Downloader {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultDownloaderConfig().Concurrency
	}
	if cfg.PartSize <= 0 {
		cfg.PartSize = DefaultDownloaderConfig().PartSize
	}

	mgr := manager.NewDownloader(s3Client, func(d *manager.Downloader) {
		d.Concurrency = cfg.Concurrency
		d.PartSize = cfg.PartSize
		// Use a buffer pool to reduce allocations
		d.BufferProvider = manager.NewPooledBufferedWriterReadFromProvider(int(cfg.PartSize))
	})

	return &Downloader{manager: mgr, config: cfg}
}

// DownloadResult contains information about a completed download.
type DownloadResult struct {
	// BytesDownloaded is the total bytes downloaded.
	BytesDownloaded int64

	// Duration is how long the download took.
	Duration time.Duration
}

// DownloadToFile downloads an S3 object to a local file path.
func (d *Downloader) DownloadToFile(ctx context.Context, bucket, key, destPath string) (*DownloadResult, error) {
	startTime := time.Now()

	file, err := os.Create(destPath)
	if err != nil {
		return nil, fmt.Errorf("create destination file: %w", err)
	}
	defer file.Close()

	n, err := d.manager.Download(ctx, file, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		os.Remove(destPath)
		return nil, fmt.Errorf("download s3://%s/%s: %w", bucket, key, err)
	}

	return &DownloadResult{
		BytesDownloaded: n,
		Duration:        time.Since(startTime),
	}, nil
}

// Config returns the downloader configuration.
func (d *Downloader) Config() DownloaderConfig {
	return d.config
}
