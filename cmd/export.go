package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"sam-backup/internal/archive"
	"sam-backup/internal/backup"
)

var (
	exportOutput      string
	exportToArchive   bool
	exportArchiveName string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the store into an encrypted backup file",
	Long: `Export all people, contexts and evidence records into a single
encrypted backup file.

The file is encrypted with a key derived from the password you enter.
Keep the password safe: it is not stored anywhere and the file cannot
be decrypted without it.

Examples:
  # Write to an explicit path
  sam-backup export --output /backups/nightly.sam-backup

  # Supply the password from a file for unattended runs
  sam-backup export --output nightly.sam-backup --password-file /etc/sam/backup.pass

  # Store in configured archive storage under a generated name
  sam-backup export --archive`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file path (default: generated name in the working directory)")
	exportCmd.Flags().BoolVar(&exportToArchive, "archive", false, "store the backup in configured archive storage instead of a plain file")
	exportCmd.Flags().StringVar(&exportArchiveName, "archive-name", "", "archive name to store under (default: generated)")
	exportCmd.Flags().StringVar(&passwordFile, "password-file", "", "read the password from a file instead of prompting")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	printer := newPrinter()
	ctx := cmd.Context()

	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	password, err := readPassword(true)
	if err != nil {
		return err
	}

	start := time.Now()
	service := backup.NewService(logger)
	blob, err := service.ExportStore(ctx, st, password)
	if err != nil {
		printer.Error("export failed: %v", err)
		return err
	}

	people, contexts, evidence, err := countRecords(ctx, st)
	if err != nil {
		return err
	}

	if exportToArchive {
		if !cfg.Archive.Enabled {
			return fmt.Errorf("archive storage is not enabled in the configuration")
		}
		provider, err := archive.NewStorageProvider(ctx, &cfg.Archive.Config)
		if err != nil {
			return err
		}

		name := exportArchiveName
		if name == "" {
			name = archive.GenerateArchiveName()
		}
		meta, err := provider.Store(ctx, name, blob)
		if err != nil {
			printer.Error("archive store failed: %v", err)
			return err
		}
		printer.ExportSummary(meta.Location, people, contexts, evidence, len(blob), time.Since(start))
		return nil
	}

	output := exportOutput
	if output == "" {
		output = archive.GenerateArchiveName() + backup.FileExtension
	}
	if err := os.WriteFile(output, blob, 0o600); err != nil {
		printer.Error("failed to write backup file: %v", err)
		return err
	}

	printer.ExportSummary(output, people, contexts, evidence, len(blob), time.Since(start))
	return nil
}
