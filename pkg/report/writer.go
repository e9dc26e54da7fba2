package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"

	"github.com/johnbrandborg/s3-inventory-report/pkg/humanfmt"
	"github.com/johnbrandborg/s3-inventory-report/pkg/s3fetch"
)

// Header is the report column order.
var Header = []string{"Folder", "Count", "Size", "DelSize", "VerSize", "AvgObject", "Depth"}

// WriteCSV renders rows as CSV with a header line.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}

	record := make([]string, len(Header))
	for _, row := range rows {
		record[0] = folderLabel(row.Folder)
		record[1] = strconv.FormatUint(row.Count, 10)
		record[2] = strconv.FormatUint(row.Size, 10)
		record[3] = strconv.FormatUint(row.DelSize, 10)
		record[4] = strconv.FormatUint(row.VerSize, 10)
		record[5] = strconv.FormatFloat(row.AvgObject, 'f', -1, 64)
		record[6] = strconv.Itoa(row.Depth)
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write CSV row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush CSV: %w", err)
	}
	return nil
}

// Print renders rows as an aligned console table with human-readable sizes.
func Print(w io.Writer, rows []Row) error {
	_, err := fmt.Fprintf(w, "%15s |%16s |%16s |%16s |%16s | Folder\n%s\n",
		"Count", "Total Size", "Del Size", "Ver Size", "Avg Object",
		dashes(110))
	if err != nil {
		return err
	}

	for _, row := range rows {
		folder := folderLabel(row.Folder)
		if folder == "" {
			folder = "(root)"
		}
		_, err := fmt.Fprintf(w, "%15s |%16s |%16s |%16s |%16s | %s\n",
			humanfmt.CountUint64(row.Count),
			humanfmt.BytesUint64(row.Size),
			humanfmt.BytesUint64(row.DelSize),
			humanfmt.BytesUint64(row.VerSize),
			humanfmt.Bytes(int64(row.AvgObject)),
			folder)
		if err != nil {
			return err
		}
	}
	return nil
}

// Deliver writes the CSV report to dest, which is either a local path or
// an s3:// object location.
func Deliver(ctx context.Context, tr Transport, dest string, rows []Row) error {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		return err
	}

	if s3fetch.IsS3URI(dest) {
		bucket, key, err := s3fetch.ParseS3URI(dest)
		if err != nil {
			return fmt.Errorf("parse report destination: %w", err)
		}
		if key == "" {
			return errors.New("report destination missing object key")
		}
		return tr.PutObject(ctx, bucket, key, buf.Bytes())
	}

	if err := os.WriteFile(dest, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write report file: %w", err)
	}
	return nil
}

// folderLabel decodes a folder name for output. Inventory files carry
// object keys URL-encoded, so aggregation keys on the encoded form and
// the escapes are resolved only at render time. PathUnescape keeps a
// literal '+' intact. Undecodable names pass through unchanged.
func folderLabel(folder string) string {
	decoded, err := url.PathUnescape(folder)
	if err != nil {
		return folder
	}
	return decoded
}

func dashes(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = '-'
	}
	return string(b)
}
