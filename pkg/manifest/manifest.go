// Package manifest parses AWS S3 Inventory manifest.json documents.
package manifest

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Format identifies the storage format of the inventory data files.
type Format int

const (
	// FormatCSV indicates gzip-compressed CSV inventory files.
	FormatCSV Format = iota
	// FormatParquet indicates Parquet inventory files.
	FormatParquet
	// FormatORC indicates ORC inventory files.
	FormatORC
)

// String returns the manifest fileFormat spelling for the format.
func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "CSV"
	case FormatParquet:
		return "Parquet"
	case FormatORC:
		return "ORC"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Manifest represents an AWS S3 Inventory manifest.json file.
type Manifest struct {
	SourceBucket      string `json:"sourceBucket"`
	DestinationBucket string `json:"destinationBucket"`
	Version           string `json:"version"`
	CreationTimestamp string `json:"creationTimestamp"`
	FileFormat        string `json:"fileFormat"`
	FileSchema        string `json:"fileSchema"`
	Files             []File `json:"files"`
}

// File describes a single inventory data file listed in the manifest.
type File struct {
	Key         string `json:"key"`
	Size        int64  `json:"size"`
	MD5Checksum string `json:"MD5checksum"`
}

// Columns holds the resolved column indices for CSV inventory files.
// CSV data files carry bare rows, so positions come from the manifest's
// fileSchema declaration.
type Columns struct {
	Key            int
	Size           int
	IsDeleteMarker int
	IsLatest       int
}

// Parse decodes and validates an S3 Inventory manifest.json document.
// Decode and validation failures wrap ErrFormat.
func Parse(r io.Reader) (*Manifest, error) {
	var m Manifest
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrFormat, err)
	}

	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	return &m, nil
}

func (m *Manifest) validate() error {
	if m.DestinationBucket == "" {
		return fmt.Errorf("missing destinationBucket")
	}
	if len(m.Files) == 0 {
		return fmt.Errorf("no data files listed")
	}
	if m.FileFormat != "" {
		switch strings.ToUpper(m.FileFormat) {
		case "CSV", "PARQUET", "ORC":
		default:
			return fmt.Errorf("unsupported file format %q (supported: CSV, Parquet, ORC)", m.FileFormat)
		}
	}
	if m.Format() == FormatCSV && m.FileSchema == "" {
		return fmt.Errorf("missing fileSchema for CSV inventory")
	}
	return nil
}

// Format determines the inventory data format. Priority:
//  1. Explicit fileFormat field ("CSV", "Parquet", or "ORC")
//  2. File extension of the first listed data file
func (m *Manifest) Format() Format {
	switch strings.ToUpper(m.FileFormat) {
	case "CSV":
		return FormatCSV
	case "PARQUET":
		return FormatParquet
	case "ORC":
		return FormatORC
	}

	if len(m.Files) > 0 {
		key := strings.ToLower(m.Files[0].Key)
		switch {
		case strings.HasSuffix(key, ".parquet"):
			return FormatParquet
		case strings.HasSuffix(key, ".orc"):
			return FormatORC
		}
	}

	// S3 Inventory delivered CSV before columnar formats existed.
	return FormatCSV
}

// CSVColumns resolves the required column indices from the fileSchema
// declaration. Matching is case-insensitive and underscore-insensitive, so
// both the manifest spelling ("IsDeleteMarker") and the columnar spelling
// ("is_delete_marker") resolve. A missing required column wraps
// ErrSchemaMismatch.
func (m *Manifest) CSVColumns() (Columns, error) {
	cols := Columns{}
	fields := []struct {
		name string
		dst  *int
	}{
		{"key", &cols.Key},
		{"size", &cols.Size},
		{"is_delete_marker", &cols.IsDeleteMarker},
		{"is_latest", &cols.IsLatest},
	}

	declared := strings.Split(m.FileSchema, ",")
	for _, f := range fields {
		idx := -1
		for i, col := range declared {
			if normalizeColumn(col) == normalizeColumn(f.name) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return Columns{}, fmt.Errorf("%w: %q not in schema %q", ErrSchemaMismatch, f.name, m.FileSchema)
		}
		*f.dst = idx
	}

	return cols, nil
}

func normalizeColumn(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	return strings.ReplaceAll(name, "_", "")
}

// DestinationBucketName returns the bucket holding the inventory data files.
// The destinationBucket field may be either a plain bucket name or an S3
// bucket ARN (arn:aws:s3:::bucket-name).
func (m *Manifest) DestinationBucketName() (string, error) {
	id := m.DestinationBucket
	if id == "" {
		return "", fmt.Errorf("empty destination bucket")
	}

	if strings.HasPrefix(id, "arn:") {
		return parseBucketARN(id)
	}

	if strings.Contains(id, "://") {
		return "", fmt.Errorf("invalid bucket identifier %q: looks like a URI", id)
	}

	return id, nil
}

// parseBucketARN extracts the bucket name from an S3 bucket ARN.
// The ARN has 6 colon-separated parts: arn:partition:service:region:account:resource.
// For S3 bucket ARNs region and account are empty, and resource is the bucket name.
func parseBucketARN(arn string) (string, error) {
	parts := strings.Split(arn, ":")
	if len(parts) < 6 {
		return "", fmt.Errorf("invalid ARN %q: expected at least 6 colon-separated parts", arn)
	}
	if parts[2] != "s3" {
		return "", fmt.Errorf("invalid S3 ARN %q: service must be 's3', got %q", arn, parts[2])
	}

	resource := strings.Join(parts[5:], ":")
	if idx := strings.Index(resource, "/"); idx >= 0 {
		resource = resource[:idx]
	}
	if resource == "" {
		return "", fmt.Errorf("invalid S3 ARN %q: missing bucket name", arn)
	}

	return resource, nil
}

// VerifyChecksum checks the manifest body against the contents of the
// sibling manifest.checksum object. Mismatches wrap ErrChecksum.
func VerifyChecksum(body, checksum []byte) error {
	want := strings.TrimSpace(string(checksum))
	sum := md5.Sum(body)
	got := hex.EncodeToString(sum[:])
	if got != want {
		return fmt.Errorf("%w: manifest md5 %s, checksum file says %s", ErrChecksum, got, want)
	}
	return nil
}
