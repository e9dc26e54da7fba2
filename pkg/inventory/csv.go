package inventory

import (
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/johnbrandborg/s3-inventory-report/pkg/manifest"
)

// csvReader reads inventory records from (optionally gzipped) CSV files.
// Inventory CSV files carry bare rows without a header, so column
// positions come from the manifest schema.
type csvReader struct {
	csvr      *csv.Reader
	cols      manifest.Columns
	malformed uint64
	closers   []io.Closer
}

func newCSVReader(path string, gzipped bool, cols manifest.Columns) (Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open inventory file: %w", err)
	}

	var r io.Reader = f
	closers := []io.Closer{f}
	if gzipped {
		gzr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		closers = append(closers, gzr)
		r = gzr
	}

	csvr := csv.NewReader(r)
	csvr.ReuseRecord = true
	csvr.FieldsPerRecord = -1 // Variable field count
	csvr.LazyQuotes = true    // Handle malformed quotes

	return &csvReader{
		csvr:    csvr,
		cols:    cols,
		closers: closers,
	}, nil
}

// Next returns the next record, skipping and counting rows that fail to
// decode.
func (r *csvReader) Next() (Record, error) {
	for {
		fields, err := r.csvr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Record{}, io.EOF
			}
			return Record{}, fmt.Errorf("read CSV row: %w", err)
		}

		rec, err := r.decode(fields)
		if err != nil {
			r.malformed++
			continue
		}
		return rec, nil
	}
}

func (r *csvReader) decode(fields []string) (Record, error) {
	max := r.cols.Key
	for _, idx := range []int{r.cols.Size, r.cols.IsDeleteMarker, r.cols.IsLatest} {
		if idx > max {
			max = idx
		}
	}
	if len(fields) <= max {
		return Record{}, fmt.Errorf("%w: %d fields, need %d", ErrRecordParse, len(fields), max+1)
	}

	key := fields[r.cols.Key]
	if key == "" {
		return Record{}, fmt.Errorf("%w: empty key", ErrRecordParse)
	}

	// Delete markers carry an empty size column.
	var size uint64
	if s := strings.TrimSpace(fields[r.cols.Size]); s != "" {
		var err error
		size, err = strconv.ParseUint(s, 10, 64)
		if err != nil {
			return Record{}, fmt.Errorf("%w: size %q: %v", ErrRecordParse, s, err)
		}
	}

	isDelete, err := parseCSVBool(fields[r.cols.IsDeleteMarker])
	if err != nil {
		return Record{}, err
	}
	isLatest, err := parseCSVBool(fields[r.cols.IsLatest])
	if err != nil {
		return Record{}, err
	}

	return Record{
		Key:            key,
		Size:           size,
		IsDeleteMarker: isDelete,
		IsLatest:       isLatest,
	}, nil
}

func parseCSVBool(s string) (bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(strings.ToLower(s))
	if err != nil {
		return false, fmt.Errorf("%w: bool %q", ErrRecordParse, s)
	}
	return v, nil
}

// Malformed returns the number of skipped rows.
func (r *csvReader) Malformed() uint64 {
	return r.malformed
}

// Close releases resources.
func (r *csvReader) Close() error {
	var firstErr error
	// Close in reverse order (gzip reader before underlying file)
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
