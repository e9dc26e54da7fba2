// Package report aggregates inventory records into per-folder rollups
// and renders the result.
package report

import (
	"slices"
	"strings"

	"github.com/johnbrandborg/s3-inventory-report/pkg/inventory"
)

// FolderStats holds running counters for a single folder. Size always
// grows; DelSize and VerSize are the shares attributable to delete
// markers and noncurrent versions.
type FolderStats struct {
	Count   uint64
	Size    uint64
	DelSize uint64
	VerSize uint64
}

// Row is one finalized line of the report.
type Row struct {
	Folder    string
	Count     uint64
	Size      uint64
	DelSize   uint64
	VerSize   uint64
	AvgObject float64
	Depth     int
}

// Aggregator accumulates per-folder stats for one run. It is not safe
// for concurrent use; concurrent pipelines give each worker its own
// Aggregator and Merge them afterwards.
type Aggregator struct {
	folders map[string]*FolderStats
	objects uint64
}

// NewAggregator creates an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		folders: make(map[string]*FolderStats, 1024),
	}
}

// Add folds one record into the stats for folderKey, creating the folder
// on first encounter. A delete marker contributes to DelSize and never to
// VerSize, even when the source also flags it noncurrent.
func (a *Aggregator) Add(folderKey string, rec inventory.Record) {
	st, ok := a.folders[folderKey]
	if !ok {
		st = &FolderStats{}
		a.folders[folderKey] = st
	}

	st.Count++
	st.Size += rec.Size
	a.objects++

	switch {
	case rec.IsDeleteMarker:
		st.DelSize += rec.Size
	case !rec.IsLatest:
		st.VerSize += rec.Size
	}
}

// Merge folds another Aggregator's folders into this one.
func (a *Aggregator) Merge(other *Aggregator) {
	for folder, st := range other.folders {
		dst, ok := a.folders[folder]
		if !ok {
			dst = &FolderStats{}
			a.folders[folder] = dst
		}
		dst.Count += st.Count
		dst.Size += st.Size
		dst.DelSize += st.DelSize
		dst.VerSize += st.VerSize
	}
	a.objects += other.objects
}

// Objects returns the number of records folded in so far.
func (a *Aggregator) Objects() uint64 {
	return a.objects
}

// FolderCount returns the number of distinct folders seen so far.
func (a *Aggregator) FolderCount() int {
	return len(a.folders)
}

// Finalize converts the accumulated stats into report rows sorted by
// folder name. AvgObject is Size/Count, 0 when a folder has no records.
// The depth parameter is carried through for display.
func (a *Aggregator) Finalize(depth int) []Row {
	rows := make([]Row, 0, len(a.folders))
	for folder, st := range a.folders {
		avg := 0.0
		if st.Count > 0 {
			avg = float64(st.Size) / float64(st.Count)
		}
		rows = append(rows, Row{
			Folder:    folder,
			Count:     st.Count,
			Size:      st.Size,
			DelSize:   st.DelSize,
			VerSize:   st.VerSize,
			AvgObject: avg,
			Depth:     depth,
		})
	}

	slices.SortFunc(rows, func(x, y Row) int {
		return strings.Compare(x.Folder, y.Folder)
	})
	return rows
}
