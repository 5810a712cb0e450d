package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mediabunnygo/mediabunny/internal/database"
	"github.com/mediabunnygo/mediabunny/internal/repository"
	"github.com/mediabunnygo/mediabunny/internal/service"
)

var exportFormat string

var exportCmd = &cobra.Command{
	Use:   "export <output-file>",
	Short: "Export job history as compressed newline-delimited JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportFormat, "format", "brotli", "compression format: brotli, xz, bzip2")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigFromViper()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := database.New(cfg.Database, nil, nil)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	exportSvc := service.NewExportService(repository.NewJobRepository(db.DB))

	f, err := os.Create(args[0])
	if err != nil {
		return fmt.Errorf("creating %s: %w", args[0], err)
	}
	defer f.Close()

	if err := exportSvc.Export(context.Background(), service.ExportFormat(exportFormat), f); err != nil {
		return fmt.Errorf("exporting job history: %w", err)
	}

	fmt.Printf("exported job history to %s (%s)\n", args[0], exportFormat)
	return nil
}
