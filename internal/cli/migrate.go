package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"passbook/internal/platform/database"
)

// MigrateResult reports the schema that was applied.
type MigrateResult struct {
	Dialect string `json:"dialect"`
	Target  string `json:"target"`
}

func (r MigrateResult) String() string {
	return fmt.Sprintf("migrations applied (%s: %s)", r.Dialect, r.Target)
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			pool, err := database.Open(cmd.Context(), rootOpts.databaseConfig())
			if err != nil {
				return WrapExitError(ExitCommandError, "open database", err)
			}
			defer pool.Close() //nolint:errcheck // command is exiting

			target := rootOpts.SQLitePath
			if rootOpts.DatabaseURL != "" {
				target = "postgres"
			}
			return f.Success(MigrateResult{Dialect: string(pool.Dialect()), Target: target})
		},
	}
}
