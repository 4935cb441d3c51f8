package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"sam-backup/internal/config"
	"sam-backup/internal/display"
	"sam-backup/internal/logging"
	"sam-backup/internal/store"
)

var (
	cfgFile      string
	logLevel     string
	logFormat    string
	verbose      bool
	quiet        bool
	noColor      bool
	passwordFile string
)

var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "sam-backup",
	Short: "Encrypted backup and restore for the sam relational store",
	Long: `sam-backup exports people, contexts and evidence records into a single
password-encrypted file and restores them on another machine.

Backup files are encrypted with AES-256-GCM using a key derived from the
password. The password is never stored; losing it makes the file
unrecoverable.

Examples:
  # Export the store to an encrypted file
  sam-backup export --output nightly.sam-backup

  # Restore from a backup file, replacing all existing data
  sam-backup import nightly.sam-backup

  # Export into configured archive storage (local, s3, azure or gcs)
  sam-backup export --archive

  # List stored archives
  sam-backup archives list`,
	SilenceUsage: true,
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./sam-backup.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (quiet, normal, verbose, debug)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable color output")

	rootCmd.AddCommand(newVersionCommand())
	rootCmd.AddCommand(newConfigCommand())
}

// SetVersionInfo records build metadata for the version command
func SetVersionInfo(v, bt, gc string) {
	version = v
	buildTime = bt
	gitCommit = gc
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("sam-backup version %s\n", version)
			fmt.Printf("Built: %s\n", buildTime)
			fmt.Printf("Commit: %s\n", gitCommit)
		},
	}
}

func newConfigCommand() *cobra.Command {
	var output string
	var effective bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Generate a sample configuration file",
		Long: `Print a commented configuration template, or the effective
configuration after merging files, environment variables and flags.
Credentials are masked in the effective output.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if effective {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				data, err := cfg.Redacted().YAML()
				if err != nil {
					return err
				}
				fmt.Print(string(data))
				return nil
			}
			if output == "" {
				fmt.Print(config.GenerateTemplate())
				return nil
			}
			if err := config.WriteTemplate(output); err != nil {
				return err
			}
			fmt.Printf("Configuration template written to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write template to file instead of stdout")
	cmd.Flags().BoolVar(&effective, "effective", false, "print the resolved configuration with secrets masked")
	return cmd
}

// loadConfig reads the configuration file and applies flag overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if verbose {
		cfg.Logging.Level = string(logging.LogLevelVerbose)
	}
	if quiet {
		cfg.Logging.Level = string(logging.LogLevelQuiet)
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	return logging.NewLogger(logging.Config{
		Level:  level,
		Format: cfg.Logging.Format,
	}), nil
}

func newPrinter() *display.Printer {
	if noColor {
		return display.NewPlainPrinter(os.Stdout)
	}
	return display.NewPrinter(os.Stdout)
}

// openStore builds the configured store. The returned close function is a
// no-op for the in-memory store.
func openStore(ctx context.Context, cfg *config.Config, logger *logging.Logger) (store.Store, func() error, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		return store.NewMemoryStore(), func() error { return nil }, nil
	case config.StoreDriverMySQL:
		st, err := store.ConnectMySQL(ctx, cfg.Store.MySQL, logger)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// readPassword obtains the backup password. A password file wins; otherwise
// the user is prompted on the terminal with echo disabled. Confirm asks for
// the password twice, for use when creating a backup.
func readPassword(confirm bool) (string, error) {
	if passwordFile != "" {
		data, err := os.ReadFile(passwordFile)
		if err != nil {
			return "", fmt.Errorf("failed to read password file: %w", err)
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}

	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return "", fmt.Errorf("stdin is not a terminal; use --password-file to supply the password")
	}

	password, err := promptPassword("Password: ")
	if err != nil {
		return "", err
	}
	if confirm {
		again, err := promptPassword("Confirm password: ")
		if err != nil {
			return "", err
		}
		if password != again {
			return "", fmt.Errorf("passwords do not match")
		}
	}
	return password, nil
}

func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}

// countRecords tallies the store contents for summary output
func countRecords(ctx context.Context, st store.Store) (people, contexts, evidence int, err error) {
	p, err := st.ListPeople(ctx)
	if err != nil {
		return 0, 0, 0, err
	}
	c, err := st.ListContexts(ctx)
	if err != nil {
		return 0, 0, 0, err
	}
	e, err := st.ListEvidence(ctx)
	if err != nil {
		return 0, 0, 0, err
	}
	return len(p), len(c), len(e), nil
}

// confirmReplace asks the user to acknowledge that an import wipes the
// current store contents.
func confirmReplace(in io.Reader) (bool, error) {
	fmt.Fprint(os.Stderr, "This will replace ALL existing data. Continue? [y/N]: ")
	reader := bufio.NewReader(in)
	answer, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}
