// Package humanfmt renders byte counts, durations, rates, and object
// counts for the console report and progress logs.
package humanfmt

import (
	"fmt"
	"strconv"
	"time"
)

var byteUnits = []struct {
	scale float64
	name  string
}{
	{1 << 40, "TiB"},
	{1 << 30, "GiB"},
	{1 << 20, "MiB"},
	{1 << 10, "KiB"},
}

// Bytes renders a byte count with IEC units ("1.50 KiB"). Values under
// one KiB, including negatives, stay plain.
func Bytes(b int64) string {
	f := float64(b)
	for _, u := range byteUnits {
		if f >= u.scale {
			return fmt.Sprintf("%.2f %s", f/u.scale, u.name)
		}
	}
	return strconv.FormatInt(b, 10) + " B"
}

// BytesUint64 is the uint64 form of Bytes.
func BytesUint64(b uint64) string {
	return Bytes(int64(b))
}

// Duration renders a duration at log granularity: "2h15m", "1m30s",
// "1.23s", "45.6ms", "789.0µs".
func Duration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		h := d / time.Hour
		m := (d % time.Hour) / time.Minute
		if m == 0 {
			return fmt.Sprintf("%dh", h)
		}
		return fmt.Sprintf("%dh%dm", h, m)
	case d >= time.Minute:
		m := d / time.Minute
		s := (d % time.Minute) / time.Second
		if s == 0 {
			return fmt.Sprintf("%dm", m)
		}
		return fmt.Sprintf("%dm%ds", m, s)
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d)/float64(time.Millisecond))
	case d >= time.Microsecond:
		return fmt.Sprintf("%.1fµs", float64(d)/float64(time.Microsecond))
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}

// Throughput renders bytes moved over a duration as a per-second rate.
// A zero or negative duration reports a zero rate.
func Throughput(bytes int64, d time.Duration) string {
	secs := d.Seconds()
	if secs <= 0 {
		return "0 B/s"
	}
	return Bytes(int64(float64(bytes)/secs)) + "/s"
}

// CountUint64 renders an object count in short decimal form ("1.23M").
func CountUint64(n uint64) string {
	const (
		thousand = 1_000
		million  = 1_000 * thousand
		billion  = 1_000 * million
	)

	switch {
	case n >= billion:
		return fmt.Sprintf("%.2fB", float64(n)/billion)
	case n >= million:
		return fmt.Sprintf("%.2fM", float64(n)/million)
	case n >= thousand:
		return fmt.Sprintf("%.2fK", float64(n)/thousand)
	default:
		return strconv.FormatUint(n, 10)
	}
}
