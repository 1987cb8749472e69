package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by all subcommands.
type RootOptions struct {
	Dir     string // manifest directory
	Ledger  string // ledger database path
	Driver  string // target database driver
	DSN     string // target database DSN
	Format  string // "text" | "json"
	Verbose bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the lockstep CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "lockstep",
		Short: "Schema and data migrations, in lockstep",
		Long: `lockstep evolves a persistent schema and the data under it through a
dependency-ordered sequence of independently reversible change units.

Change sets are declared in YAML manifests; applied state lives in a
SQLite ledger. At most one lockstep invocation may run against a given
ledger at a time; serialize invocations externally (for example with
an advisory lock) when several operators share a database.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Dir, "dir", "migrations", "directory of manifest files")
	cmd.PersistentFlags().StringVar(&opts.Ledger, "ledger", "lockstep.db", "path to the ledger database")
	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", "sqlite3", "target database driver (sqlite3|mysql)")
	cmd.PersistentFlags().StringVar(&opts.DSN, "dsn", "", "target database DSN")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewPlanCommand(opts))
	cmd.AddCommand(NewUpCommand(opts))
	cmd.AddCommand(NewDownCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
