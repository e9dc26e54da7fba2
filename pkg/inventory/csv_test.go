package inventory

import (
	"compress/gzip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/johnbrandborg/s3-inventory-report/pkg/manifest"
)

// Column layout of the standard inventory schema:
// Bucket, Key, VersionId, IsLatest, IsDeleteMarker, Size
var testCols = manifest.Columns{Key: 1, Size: 5, IsDeleteMarker: 4, IsLatest: 3}

func writeTestCSV(t *testing.T, gzipped bool, data string) string {
	t.Helper()
	name := "inv.csv"
	if gzipped {
		name = "inv.csv.gz"
	}
	path := filepath.Join(t.TempDir(), name)

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create test file: %v", err)
	}
	defer f.Close()

	if gzipped {
		gzw := gzip.NewWriter(f)
		if _, err := gzw.Write([]byte(data)); err != nil {
			t.Fatalf("write gzip data: %v", err)
		}
		if err := gzw.Close(); err != nil {
			t.Fatalf("close gzip writer: %v", err)
		}
	} else {
		if _, err := f.WriteString(data); err != nil {
			t.Fatalf("write data: %v", err)
		}
	}
	return path
}

func TestCSVReader(t *testing.T) {
	data := "bucket,a/b/c.txt,v1,true,false,100\n" +
		"bucket,d/e.txt,v2,false,false,200\n" +
		"bucket,f.txt,v3,true,true,\n"
	path := writeTestCSV(t, false, data)

	r, err := Open(path, manifest.FormatCSV, false, testCols)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()

	want := []Record{
		{Key: "a/b/c.txt", Size: 100, IsLatest: true},
		{Key: "d/e.txt", Size: 200},
		{Key: "f.txt", Size: 0, IsLatest: true, IsDeleteMarker: true},
	}
	for i, w := range want {
		rec, err := r.Next()
		if err != nil {
			t.Fatalf("Next %d failed: %v", i, err)
		}
		if rec != w {
			t.Errorf("record %d: got %+v, want %+v", i, rec, w)
		}
	}

	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("expected EOF, got %v", err)
	}
	if r.Malformed() != 0 {
		t.Errorf("Malformed() = %d, want 0", r.Malformed())
	}
}

func TestCSVReaderGzip(t *testing.T) {
	data := "bucket,photos/cat.jpg,v1,true,false,1024\n"
	path := writeTestCSV(t, true, data)

	r, err := Open(path, manifest.FormatCSV, true, testCols)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()

	rec, err := r.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if rec.Key != "photos/cat.jpg" || rec.Size != 1024 || !rec.IsLatest {
		t.Errorf("got %+v", rec)
	}
}

func TestCSVReaderMalformed(t *testing.T) {
	data := "bucket,ok/a.txt,v1,true,false,100\n" +
		"bucket,bad/b.txt,v2,true,false,not-a-number\n" +
		"bucket,bad/c.txt,v3,true,false,-5\n" +
		"bucket,,v4,true,false,10\n" +
		"bucket,short-row\n" +
		"bucket,ok/d.txt,v5,maybe,false,10\n" +
		"bucket,ok/e.txt,v6,true,false,300\n"
	path := writeTestCSV(t, false, data)

	r, err := Open(path, manifest.FormatCSV, false, testCols)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()

	var keys []string
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		keys = append(keys, rec.Key)
	}

	if len(keys) != 2 || keys[0] != "ok/a.txt" || keys[1] != "ok/e.txt" {
		t.Errorf("got keys %v, want [ok/a.txt ok/e.txt]", keys)
	}
	if r.Malformed() != 5 {
		t.Errorf("Malformed() = %d, want 5", r.Malformed())
	}
}

func TestCSVReaderRestartable(t *testing.T) {
	data := "bucket,a.txt,v1,true,false,1\n"
	path := writeTestCSV(t, false, data)

	for i := 0; i < 2; i++ {
		r, err := Open(path, manifest.FormatCSV, false, testCols)
		if err != nil {
			t.Fatalf("Open %d failed: %v", i, err)
		}
		rec, err := r.Next()
		if err != nil {
			t.Fatalf("Next %d failed: %v", i, err)
		}
		if rec.Key != "a.txt" {
			t.Errorf("pass %d: got key %q", i, rec.Key)
		}
		if _, err := r.Next(); !errors.Is(err, io.EOF) {
			t.Errorf("pass %d: expected EOF, got %v", i, err)
		}
		r.Close()
	}
}
