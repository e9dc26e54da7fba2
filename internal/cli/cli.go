// Package cli implements the command-line interface for s3invreport.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/johnbrandborg/s3-inventory-report/internal/config"
	"github.com/johnbrandborg/s3-inventory-report/internal/logctx"
	"github.com/johnbrandborg/s3-inventory-report/pkg/logging"
	"github.com/johnbrandborg/s3-inventory-report/pkg/report"
	"github.com/johnbrandborg/s3-inventory-report/pkg/s3fetch"
)

var (
	cfg     config.Config
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "s3invreport",
	Short: "Folder-level size report from S3 Inventory manifests",
	Long: "Reads an S3 Inventory manifest, streams the referenced data files\n" +
		"(CSV, Parquet, or ORC), and produces a per-folder rollup of object\n" +
		"count, total size, delete-marker size, and noncurrent-version size.",
	RunE:          run,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&cfg.ManifestURI, "manifest", "m", "", "S3 location of the inventory manifest (prefix or manifest.json)")
	f.IntVarP(&cfg.Depth, "depth", "d", 1, "folder depth to aggregate at (0 collapses to a single root folder)")
	f.StringVarP(&cfg.Out, "out", "o", "", "report destination, local path or s3:// (default: print to console)")
	f.StringVarP(&cfg.CacheDir, "cache", "c", "", "local directory for caching inventory data files")
	f.IntVar(&cfg.Concurrency, "concurrency", 1, "number of data files to process in parallel")
	f.BoolVar(&cfg.SkipChecksum, "skip-checksum", false, "skip MD5 verification of the manifest and data files")
	f.StringVar(&cfgFile, "config", "", "YAML file with default settings")
	f.BoolVar(&cfg.Debug, "debug", false, "enable debug logging")
	f.BoolVar(&cfg.Human, "human", false, "human-friendly console log output")
	_ = rootCmd.MarkFlagRequired("manifest")
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func run(cmd *cobra.Command, args []string) error {
	if cfgFile != "" {
		if err := applyFileConfig(cmd); err != nil {
			return err
		}
	}

	logging.Init(cfg.Debug, cfg.Human)
	log := logging.L()

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := logctx.WithLogger(cmd.Context(), *log)

	svc, err := s3fetch.NewService(ctx)
	if err != nil {
		return err
	}

	res, err := report.Run(ctx, svc, report.Config{
		ManifestURI:  cfg.ManifestURI,
		Depth:        cfg.Depth,
		CacheDir:     cfg.CacheDir,
		Concurrency:  cfg.Concurrency,
		SkipChecksum: cfg.SkipChecksum,
	})
	if err != nil {
		return err
	}

	if cfg.Out == "" {
		return report.Print(os.Stdout, res.Rows)
	}

	log.Info().Str("dest", cfg.Out).Int("rows", len(res.Rows)).Msg("writing report")
	return report.Deliver(ctx, svc, cfg.Out, res.Rows)
}

// applyFileConfig merges YAML defaults into settings the user did not set
// explicitly on the command line.
func applyFileConfig(cmd *cobra.Command) error {
	fc, err := config.LoadFile(cfgFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if !flags.Changed("cache") && fc.CacheDir != "" {
		cfg.CacheDir = fc.CacheDir
	}
	if !flags.Changed("depth") && fc.Depth != nil {
		cfg.Depth = *fc.Depth
	}
	if !flags.Changed("concurrency") && fc.Concurrency > 0 {
		cfg.Concurrency = fc.Concurrency
	}
	if !flags.Changed("skip-checksum") && fc.SkipChecksum != nil {
		cfg.SkipChecksum = *fc.SkipChecksum
	}
	return nil
}
