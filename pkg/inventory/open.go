package inventory

import (
	"fmt"

	"github.com/johnbrandborg/s3-inventory-report/pkg/manifest"
)

// Open opens a fresh reading cursor over a local inventory data file.
// The format and column layout come from the manifest; gzipped applies
// only to CSV files and reflects the source object key, since cached
// copies are stored under content-derived names.
func Open(path string, format manifest.Format, gzipped bool, cols manifest.Columns) (Reader, error) {
	switch format {
	case manifest.FormatCSV:
		return newCSVReader(path, gzipped, cols)
	case manifest.FormatParquet:
		return newParquetReader(path)
	case manifest.FormatORC:
		return newORCReader(path)
	default:
		return nil, fmt.Errorf("unsupported inventory format %v", format)
	}
}
