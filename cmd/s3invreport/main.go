// Command s3invreport builds folder-level size reports from S3 Inventory.
package main

import (
	"os"

	"github.com/johnbrandborg/s3-inventory-report/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
