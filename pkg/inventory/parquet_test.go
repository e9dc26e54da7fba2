package inventory

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"

	"github.com/johnbrandborg/s3-inventory-report/pkg/manifest"
)

type parquetRow struct {
	Key            string `parquet:"key"`
	Size           int64  `parquet:"size"`
	IsDeleteMarker bool   `parquet:"is_delete_marker"`
	IsLatest       bool   `parquet:"is_latest"`
}

func writeTestParquet[T any](t *testing.T, rows []T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inv.parquet")

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create parquet file: %v", err)
	}
	defer f.Close()

	w := parquet.NewGenericWriter[T](f)
	if _, err := w.Write(rows); err != nil {
		t.Fatalf("write parquet rows: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close parquet writer: %v", err)
	}
	return path
}

func TestParquetReader(t *testing.T) {
	rows := []parquetRow{
		{Key: "a/b/c.txt", Size: 100, IsLatest: true},
		{Key: "d/e.txt", Size: 200},
		{Key: "f.txt", Size: 0, IsLatest: true, IsDeleteMarker: true},
	}
	path := writeTestParquet(t, rows)

	r, err := Open(path, manifest.FormatParquet, false, manifest.Columns{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()

	for i, w := range rows {
		rec, err := r.Next()
		if err != nil {
			t.Fatalf("Next %d failed: %v", i, err)
		}
		want := Record{Key: w.Key, Size: uint64(w.Size), IsDeleteMarker: w.IsDeleteMarker, IsLatest: w.IsLatest}
		if rec != want {
			t.Errorf("record %d: got %+v, want %+v", i, rec, want)
		}
	}

	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("expected EOF, got %v", err)
	}
	if r.Malformed() != 0 {
		t.Errorf("Malformed() = %d, want 0", r.Malformed())
	}
}

func TestParquetReaderNegativeSize(t *testing.T) {
	rows := []parquetRow{
		{Key: "good.txt", Size: 10, IsLatest: true},
		{Key: "bad.txt", Size: -1, IsLatest: true},
	}
	path := writeTestParquet(t, rows)

	r, err := Open(path, manifest.FormatParquet, false, manifest.Columns{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()

	rec, err := r.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if rec.Key != "good.txt" {
		t.Errorf("got key %q, want good.txt", rec.Key)
	}

	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("expected EOF, got %v", err)
	}
	if r.Malformed() != 1 {
		t.Errorf("Malformed() = %d, want 1", r.Malformed())
	}
}

func TestParquetReaderSchemaMismatch(t *testing.T) {
	type partialRow struct {
		Key  string `parquet:"key"`
		Size int64  `parquet:"size"`
	}
	path := writeTestParquet(t, []partialRow{{Key: "a.txt", Size: 1}})

	_, err := Open(path, manifest.FormatParquet, false, manifest.Columns{})
	if !errors.Is(err, manifest.ErrSchemaMismatch) {
		t.Errorf("expected ErrSchemaMismatch, got %v", err)
	}
}
