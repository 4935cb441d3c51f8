package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"sam-backup/internal/archive"
)

var archivesCmd = &cobra.Command{
	Use:   "archives",
	Short: "Manage stored backup archives",
	Long: `List and delete backups held in configured archive storage.

Archive storage must be enabled in the configuration. Supported
providers are local, s3, azure and gcs.`,
}

var archivesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored archives, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, err := archiveProvider(cmd)
		if err != nil {
			return err
		}

		metas, err := provider.List(cmd.Context())
		if err != nil {
			return err
		}
		newPrinter().ArchiveList(metas)
		return nil
	},
}

var archivesDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a stored archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, err := archiveProvider(cmd)
		if err != nil {
			return err
		}

		if err := provider.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted archive %s\n", args[0])
		return nil
	},
}

func init() {
	archivesCmd.AddCommand(archivesListCmd)
	archivesCmd.AddCommand(archivesDeleteCmd)
	rootCmd.AddCommand(archivesCmd)
}

func archiveProvider(cmd *cobra.Command) (archive.StorageProvider, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Archive.Enabled {
		return nil, fmt.Errorf("archive storage is not enabled in the configuration")
	}
	return archive.NewStorageProvider(cmd.Context(), &cfg.Archive.Config)
}
