package s3fetch

import (
	"context"
	"fmt"
)

// Service bundles the S3 client with the download manager, covering both
// the small control-object reads and the bulk data-file downloads the
// report pipeline needs.
type Service struct {
	client     *Client
	downloader *Downloader
}

// NewService creates a Service using default AWS configuration.
func NewService(ctx context.Context) (*Service, error) {
	client, err := NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create S3 client: %w", err)
	}

	return &Service{
		client:     client,
		downloader: NewDownloader(client.s3Client, DefaultDownloaderConfig()),
	}, nil
}

// GetObjectBytes fetches a whole object into memory.
func (s *Service) GetObjectBytes(ctx context.Context, bucket, key string) ([]byte, error) {
	return s.client.GetObjectBytes(ctx, bucket, key)
}

// DownloadToFile downloads an object to a local path, returning the byte count.
func (s *Service) DownloadToFile(ctx context.Context, bucket, key, destPath string) (int64, error) {
	res, err := s.downloader.DownloadToFile(ctx, bucket, key, destPath)
	if err != nil {
		return 0, err
	}
	return res.BytesDownloaded, nil
}

// PutObject uploads a small object.
func (s *Service) PutObject(ctx context.Context, bucket, key string, body []byte) error {
	return s.client.PutObject(ctx, bucket, key, body)
}
