// Package inventory provides readers for S3 Inventory data files in the
// CSV, Parquet, and ORC formats.
package inventory

import "errors"

// Record represents a single object entry from an inventory data file.
// A delete marker is itself a version entry, so IsDeleteMarker and
// IsLatest may both be set.
type Record struct {
	Key            string
	Size           uint64
	IsDeleteMarker bool
	IsLatest       bool
}

// Reader is the streaming interface over one inventory data file. Each
// Open call produces an independent cursor, so a file can be re-read by
// opening it again.
type Reader interface {
	// Next returns the next record. Returns io.EOF when done.
	Next() (Record, error)
	// Malformed returns the number of records skipped because they
	// could not be parsed.
	Malformed() uint64
	// Close releases resources.
	Close() error
}

// ErrRecordParse indicates a single record that could not be decoded.
// Readers skip and count such records rather than aborting the file.
var ErrRecordParse = errors.New("unparsable inventory record")
