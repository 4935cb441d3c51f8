package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"sam-backup/internal/archive"
	"sam-backup/internal/backup"
	"sam-backup/internal/errors"
)

var (
	importArchiveName string
	importYes         bool
)

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Restore the store from an encrypted backup file",
	Long: `Restore all people, contexts and evidence records from a backup file.

Importing replaces the entire store: all current records are deleted
before the backup contents are recreated. Nothing is modified if the
file cannot be decrypted or decoded.

Examples:
  # Restore from a backup file
  sam-backup import nightly.sam-backup

  # Restore from archive storage
  sam-backup import --archive-name sam-20260829-010203-abcd1234

  # Non-interactive restore
  sam-backup import nightly.sam-backup --yes --password-file /etc/sam/backup.pass`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importArchiveName, "archive-name", "", "restore from archive storage instead of a file")
	importCmd.Flags().BoolVarP(&importYes, "yes", "y", false, "skip the confirmation prompt")
	importCmd.Flags().StringVar(&passwordFile, "password-file", "", "read the password from a file instead of prompting")

	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && importArchiveName == "" {
		return fmt.Errorf("either a backup file or --archive-name is required")
	}
	if len(args) == 1 && importArchiveName != "" {
		return fmt.Errorf("a backup file and --archive-name are mutually exclusive")
	}

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

	var blob []byte
	var source string
	if importArchiveName != "" {
		if !cfg.Archive.Enabled {
			return fmt.Errorf("archive storage is not enabled in the configuration")
		}
		provider, err := archive.NewStorageProvider(ctx, &cfg.Archive.Config)
		if err != nil {
			return err
		}
		blob, err = provider.Retrieve(ctx, importArchiveName)
		if err != nil {
			printer.Error("archive retrieve failed: %v", err)
			return err
		}
		source = importArchiveName
	} else {
		source = args[0]
		blob, err = os.ReadFile(source)
		if err != nil {
			printer.Error("failed to read backup file: %v", err)
			return err
		}
	}

	if !importYes {
		ok, err := confirmReplace(os.Stdin)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(os.Stderr, "Import cancelled.")
			return nil
		}
	}

	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	password, err := readPassword(false)
	if err != nil {
		return err
	}

	start := time.Now()
	service := backup.NewService(logger)
	if err := service.ImportBlob(ctx, blob, password, st); err != nil {
		printer.Error("%s", importErrorMessage(err))
		return err
	}

	people, contexts, evidence, err := countRecords(ctx, st)
	if err != nil {
		return err
	}
	printer.ImportSummary(source, people, contexts, evidence, time.Since(start))
	return nil
}

// importErrorMessage maps error kinds to user-facing guidance
func importErrorMessage(err error) string {
	switch {
	case errors.IsWrongPassword(err):
		return "wrong password or corrupted backup file"
	case errors.IsInvalidFile(err):
		return "not a valid backup file"
	case errors.IsUnsupportedVersion(err):
		return "backup was created by a newer version of sam-backup"
	case errors.IsDeserialization(err):
		return "backup file contents could not be decoded"
	default:
		return fmt.Sprintf("import failed: %v", err)
	}
}
