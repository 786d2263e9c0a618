package admin

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/nocturne/internal/config"
	"github.com/cloo-solutions/nocturne/internal/database"
)

// MigrateCmd returns the migrate command
func MigrateCmd() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long:  "Apply pending schema migrations for the postgres store backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("NOCTURNE_DATABASE_URL is required to run migrations")
			}
			return database.Migrate(cfg.DatabaseURL, source)
		},
	}

	cmd.Flags().StringVar(&source, "source", database.DefaultMigrationsSource, "Migration source URL")

	return cmd
}
