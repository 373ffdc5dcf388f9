// Command portalctl administers the client portal's allow-list database.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	dbfs "github.com/garnizeh/clientportal/db"
	"github.com/garnizeh/clientportal/internal/config"
	"github.com/garnizeh/clientportal/internal/db"
	"github.com/garnizeh/clientportal/internal/repository/sqlstore"
)

var (
	configPath string
	dsnFlag    string
)

var rootCmd = &cobra.Command{
	Use:           "portalctl",
	Short:         "Administer the client portal allow-list",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config YAML file")
	rootCmd.PersistentFlags().StringVar(&dsnFlag, "dsn", "", "allow-list database DSN (overrides allowlist_dsn)")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(allowlistCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

var errNoDSN = errors.New("no allow-list database configured: pass --dsn or set allowlist_dsn (a static allow-list is edited in the config file)")

// openDB connects to the allow-list database and applies pending
// migrations.
func openDB(ctx context.Context) (*db.DB, error) {
	dsn := dsnFlag
	if dsn == "" {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		dsn = cfg.AllowlistDSN
	}
	if dsn == "" {
		return nil, errNoDSN
	}
	conn, err := db.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, conn, dbfs.Migrations); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

// withRepo runs fn against the allow-list repository.
func withRepo(ctx context.Context, fn func(*sqlstore.Repo) error) error {
	conn, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(sqlstore.New(conn, slog.New(slog.NewTextHandler(os.Stderr, nil))))
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply allow-list schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		conn, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()

		applied, err := db.Applied(ctx, conn)
		if err != nil {
			return err
		}
		for _, v := range applied {
			fmt.Fprintln(cmd.OutOrStdout(), v)
		}
		return nil
	},
}

var backupCmd = &cobra.Command{
	Use:   "backup <file>",
	Short: "Write a consistent copy of a sqlite allow-list database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		conn, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()

		if conn.Driver() != db.DriverSQLite {
			return fmt.Errorf("backup supports sqlite only; use pg_dump for %s", conn.Driver())
		}
		if _, err := os.Stat(args[0]); err == nil {
			return fmt.Errorf("%s already exists", args[0])
		}
		if _, err := conn.Exec(ctx, "VACUUM INTO ?", args[0]); err != nil {
			return fmt.Errorf("backup: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "backup written to %s\n", args[0])
		return nil
	},
}
