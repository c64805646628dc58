// Command reviewqctl runs one-off maintenance tasks against the reviewq
// database without starting the server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	sqliteadapter "github.com/ericfisherdev/reviewq/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/reviewq/internal/application"
	"github.com/ericfisherdev/reviewq/internal/config"
	"github.com/ericfisherdev/reviewq/internal/wiring"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCommand().ExecuteContext(ctx); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "reviewqctl",
		Short:         "Maintenance tasks for the reviewq database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(migrateCommand(), ingestCommand(), refreshCommand())
	return root
}

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, db, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			version, dirty, err := db.SchemaVersion()
			if err != nil {
				return err
			}
			slog.Info("schema migrated", "path", cfg.DBPath, "version", version, "dirty", dirty)
			return nil
		},
	}
}

func ingestCommand() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest every enabled source once",
		Long: `Ingest every enabled source once and exit.

Examples:
  # All enabled sources
  reviewqctl ingest

  # Only Launchpad
  reviewqctl ingest --source=lp`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closeDB, err := ingestService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			return svc.RunOnce(cmd.Context(), source)
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "source slug to ingest (lp, askubuntu, github)")
	return cmd
}

func refreshCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <review-id>",
		Short: "Re-fetch one review from its source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid review id %q: %w", args[0], err)
			}

			svc, closeDB, err := ingestService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			return svc.RefreshOnce(cmd.Context(), id)
		},
	}
}

// open loads the configuration, opens the database and applies migrations.
func open(ctx context.Context) (*config.Config, *sqliteadapter.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return cfg, db, nil
}

func ingestService(ctx context.Context) (*application.IngestService, func(), error) {
	cfg, db, err := open(ctx)
	if err != nil {
		return nil, nil, err
	}

	store := sqliteadapter.NewStore(db)
	plugins, err := wiring.Plugins(cfg, store, nil)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	closeDB := func() {
		if err := db.Close(); err != nil {
			slog.Error("error closing database", "error", err)
		}
	}
	return application.NewIngestService(plugins, store.Reviews(), nil, cfg.PollInterval, cfg.AdaptivePolling), closeDB, nil
}
