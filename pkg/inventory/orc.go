package inventory

import (
	"fmt"
	"io"

	"github.com/scritchley/orc"

	"github.com/johnbrandborg/s3-inventory-report/pkg/manifest"
)

// Selected field order for the ORC cursor; decode relies on it.
var orcFields = []string{"key", "size", "is_delete_marker", "is_latest"}

// orcReader reads inventory records from ORC files, one stripe at a time.
type orcReader struct {
	reader    *orc.Reader
	cursor    *orc.Cursor
	malformed uint64
}

func newORCReader(path string) (Reader, error) {
	r, err := orc.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open orc file: %w", err)
	}

	declared := r.Schema().Columns()
	for _, want := range orcFields {
		found := false
		for _, col := range declared {
			if col == want {
				found = true
				break
			}
		}
		if !found {
			r.Close()
			return nil, fmt.Errorf("%w: orc schema has no %q column", manifest.ErrSchemaMismatch, want)
		}
	}

	return &orcReader{
		reader: r,
		cursor: r.Select(orcFields...),
	}, nil
}

// Next returns the next record, skipping and counting rows that fail to
// decode.
func (r *orcReader) Next() (Record, error) {
	for {
		if r.cursor.Next() {
			rec, err := r.decode(r.cursor.Row())
			if err != nil {
				r.malformed++
				continue
			}
			return rec, nil
		}

		// Current stripe exhausted; advance to the next one.
		if r.cursor.Stripes() {
			continue
		}

		if err := r.cursor.Err(); err != nil && err != io.EOF {
			return Record{}, fmt.Errorf("read orc rows: %w", err)
		}
		return Record{}, io.EOF
	}
}

func (r *orcReader) decode(row []interface{}) (Record, error) {
	if len(row) != len(orcFields) {
		return Record{}, fmt.Errorf("%w: %d values, want %d", ErrRecordParse, len(row), len(orcFields))
	}

	key, _ := row[0].(string)
	if key == "" {
		return Record{}, fmt.Errorf("%w: empty key", ErrRecordParse)
	}

	size, err := orcInt(row[1])
	if err != nil {
		return Record{}, err
	}

	return Record{
		Key:            key,
		Size:           size,
		IsDeleteMarker: orcBool(row[2]),
		IsLatest:       orcBool(row[3]),
	}, nil
}

// orcInt normalizes the integer types the ORC decoder can produce.
// A nil value decodes as 0 (delete markers carry no size).
func orcInt(v interface{}) (uint64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int64:
		if n < 0 {
			return 0, fmt.Errorf("%w: negative size %d", ErrRecordParse, n)
		}
		return uint64(n), nil
	case int:
		if n < 0 {
			return 0, fmt.Errorf("%w: negative size %d", ErrRecordParse, n)
		}
		return uint64(n), nil
	case uint64:
		return n, nil
	default:
		return 0, fmt.Errorf("%w: size has type %T", ErrRecordParse, v)
	}
}

func orcBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

// Malformed returns the number of skipped rows.
func (r *orcReader) Malformed() uint64 {
	return r.malformed
}

// Close releases resources.
func (r *orcReader) Close() error {
	return r.reader.Close()
}
