package inventory

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/johnbrandborg/s3-inventory-report/pkg/manifest"
)

// parquetReader reads inventory records from Parquet files. It streams by
// iterating through row groups, buffering a bounded number of rows.
type parquetReader struct {
	file      *os.File
	pf        *parquet.File
	keyCol    int
	sizeCol   int
	deleteCol int
	latestCol int
	malformed uint64

	// Row group iteration state
	rowGroups    []parquet.RowGroup
	currentRGIdx int
	currentRows  parquet.Rows
	rowBuf       []parquet.Row
	bufIdx       int
	bufLen       int
}

func newParquetReader(path string) (Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open inventory file: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat inventory file: %w", err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open parquet file: %w", err)
	}

	r := &parquetReader{
		file:         f,
		pf:           pf,
		keyCol:       -1,
		sizeCol:      -1,
		deleteCol:    -1,
		latestCol:    -1,
		rowGroups:    pf.RowGroups(),
		currentRGIdx: -1,
		rowBuf:       make([]parquet.Row, 1024), // Buffer 1024 rows at a time
	}

	if err := r.detectColumns(pf.Schema()); err != nil {
		f.Close()
		return nil, err
	}

	return r, nil
}

// detectColumns resolves the required columns by name from the file's
// embedded schema.
func (r *parquetReader) detectColumns(schema *parquet.Schema) error {
	for i, field := range schema.Fields() {
		switch field.Name() {
		case "key":
			r.keyCol = i
		case "size":
			r.sizeCol = i
		case "is_delete_marker":
			r.deleteCol = i
		case "is_latest":
			r.latestCol = i
		}
	}

	for name, idx := range map[string]int{
		"key":              r.keyCol,
		"size":             r.sizeCol,
		"is_delete_marker": r.deleteCol,
		"is_latest":        r.latestCol,
	} {
		if idx < 0 {
			return fmt.Errorf("%w: parquet schema has no %q column", manifest.ErrSchemaMismatch, name)
		}
	}
	return nil
}

// Next returns the next record, skipping and counting rows that fail to
// decode.
func (r *parquetReader) Next() (Record, error) {
	for {
		// Drain buffered rows first
		if r.bufIdx < r.bufLen {
			row := r.rowBuf[r.bufIdx]
			r.bufIdx++

			rec, err := r.decode(row)
			if err != nil {
				r.malformed++
				continue
			}
			return rec, nil
		}

		// Need to read more rows
		if r.currentRows != nil {
			n, err := r.currentRows.ReadRows(r.rowBuf)
			if n > 0 {
				r.bufIdx = 0
				r.bufLen = n
				continue
			}
			if err != nil && !errors.Is(err, io.EOF) {
				return Record{}, fmt.Errorf("read parquet rows: %w", err)
			}
			// Current row group exhausted
			r.currentRows.Close()
			r.currentRows = nil
		}

		// Move to next row group
		r.currentRGIdx++
		if r.currentRGIdx >= len(r.rowGroups) {
			return Record{}, io.EOF
		}

		r.currentRows = r.rowGroups[r.currentRGIdx].Rows()
	}
}

func (r *parquetReader) decode(row parquet.Row) (Record, error) {
	rec := Record{}
	var sawKey bool

	for _, val := range row {
		if val.IsNull() {
			continue
		}

		switch val.Column() {
		case r.keyCol:
			rec.Key = val.String()
			sawKey = true
		case r.sizeCol:
			size := val.Int64()
			if size < 0 {
				return Record{}, fmt.Errorf("%w: negative size %d", ErrRecordParse, size)
			}
			rec.Size = uint64(size)
		case r.deleteCol:
			rec.IsDeleteMarker = val.Boolean()
		case r.latestCol:
			rec.IsLatest = val.Boolean()
		}
	}

	if !sawKey || rec.Key == "" {
		return Record{}, fmt.Errorf("%w: empty key", ErrRecordParse)
	}
	return rec, nil
}

// Malformed returns the number of skipped rows.
func (r *parquetReader) Malformed() uint64 {
	return r.malformed
}

// Close releases resources.
func (r *parquetReader) Close() error {
	if r.currentRows != nil {
		r.currentRows.Close()
	}
	return r.file.Close()
}
