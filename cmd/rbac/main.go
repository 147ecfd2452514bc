// Command rbac runs the RBAC API server and its maintenance tasks.
//
// @title                       RBAC System API
// @version                     1.0
// @description                 Role-based access control: users, roles, permissions, menus and audit.
// @BasePath                    /api/v1
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	_ "github.com/99minutos/rbac-system/docs"
	"github.com/99minutos/rbac-system/internal/infrastructure/config"
	"github.com/99minutos/rbac-system/internal/infrastructure/seed"
	"github.com/99minutos/rbac-system/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:          "rbac",
		Short:        "RBAC permission service",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional .env file loaded before the environment")

	load := func(ctx context.Context) (*config.Config, zerolog.Logger, error) {
		cfg, err := config.Load(ctx, envFile)
		if err != nil {
			return nil, zerolog.Logger{}, err
		}
		log := logger.Init(logger.Options{
			Level:   cfg.LogLevel,
			Pretty:  cfg.IsDevelopment(),
			Service: "rbac",
		})
		return cfg, log, nil
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := load(cmd.Context())
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create indexes (mongo) or apply the schema (postgres)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load(cmd.Context())
			if err != nil {
				return err
			}
			st, err := openStore(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer st.close()

			if err := st.migrate(cmd.Context()); err != nil {
				return err
			}
			log.Info().Str("driver", st.name).Msg("migration complete")
			return nil
		},
	}

	var seedFile string
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the default permissions, menus, roles and admin user",
		Long: "Seeding is idempotent: existing records are kept and role grants are reset " +
			"to the file's contents. Without --file the embedded defaults are used.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load(cmd.Context())
			if err != nil {
				return err
			}

			f, err := seed.Default()
			if seedFile != "" {
				f, err = seed.Load(seedFile)
			}
			if err != nil {
				return err
			}

			st, err := openStore(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer st.close()

			if err := st.migrate(cmd.Context()); err != nil {
				return err
			}
			res, err := seed.Apply(cmd.Context(), st.repos, f, logger.Component("seed"))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "permissions=%d menus=%d roles=%d admin_created=%t\n",
				res.Permissions, res.Menus, res.Roles, res.AdminCreated)
			if res.AdminPassword != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "generated admin password: %s\n", res.AdminPassword)
			}
			return nil
		},
	}
	seedCmd.Flags().StringVar(&seedFile, "file", "", "YAML seed file (defaults to the embedded seed)")

	root.AddCommand(serveCmd, migrateCmd, seedCmd)
	return root
}
