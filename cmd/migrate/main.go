// Package main is the migration CLI for both the Booking and Hotel schemas.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	migrations "github.com/vitaliisemenov/reservation-saga/internal/platform/migrate"
)

func main() {
	var service string
	var dsn string

	root := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect goose migrations for the Booking or Hotel schema",
	}
	root.PersistentFlags().StringVar(&service, "service", "", "which schema to migrate: booking or hotel (required)")
	root.PersistentFlags().StringVar(&dsn, "dsn", "", "Postgres DSN; overrides MIGRATION_DSN")

	newManager := func() (*migrations.MigrationManager, error) {
		switch service {
		case "booking", "hotel":
		default:
			return nil, fmt.Errorf("--service must be one of: booking, hotel")
		}

		if dsn != "" {
			os.Setenv("MIGRATION_DSN", dsn)
		}
		os.Setenv("MIGRATION_DIR", "migrations/"+service)

		cfg, err := migrations.LoadConfig()
		if err != nil {
			return nil, err
		}
		return migrations.NewMigrationManager(cfg)
	}

	root.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := newManager()
			if err != nil {
				return err
			}
			ctx := context.Background()
			if err := mgr.Connect(ctx); err != nil {
				return err
			}
			defer mgr.Disconnect(ctx)
			return mgr.Up(ctx)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recently applied migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := newManager()
			if err != nil {
				return err
			}
			ctx := context.Background()
			if err := mgr.Connect(ctx); err != nil {
				return err
			}
			defer mgr.Disconnect(ctx)
			return mgr.DownByOne(ctx)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the applied/pending status of each migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := newManager()
			if err != nil {
				return err
			}
			ctx := context.Background()
			if err := mgr.Connect(ctx); err != nil {
				return err
			}
			defer mgr.Disconnect(ctx)

			rows, err := mgr.Status(ctx)
			if err != nil {
				return err
			}
			for _, row := range rows {
				slog.Info("migration", "version", row.VersionID, "applied", row.IsApplied, "source", row.Source)
			}
			return nil
		},
	})

	if err := root.Execute(); err != nil {
		slog.Error("migrate command failed", "error", err)
		os.Exit(1)
	}
}
