package main

import (
	"fmt"
	"os"
	"path/filepath"

	"zengallery/internal/app"
	"zengallery/internal/config"
	"zengallery/internal/metadata"
	"zengallery/internal/metadata/migrations"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a wired App. The caller must defer
// a.Close().
func newApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := readConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewApp(cmd.Context(), cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

func readConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

var rootCmd = &cobra.Command{
	Use:   "zengallery",
	Short: "Content-addressed object storage service",
}

// serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Serve(cmd.Context())
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Addr:      %s\n", cfg.Server.Addr)
		fmt.Printf("Log Dir:   %s\n", cfg.LogDir)
		fmt.Printf("Blob:      %s\n", cfg.Blob.Type)
		fmt.Printf("Metadata:  %s\n", cfg.Metadata.Type)
		fmt.Printf("Transform: %s\n", cfg.Transform.Type)
		return nil
	},
}

// migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply metadata database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		if cfg.Metadata.Type != "sqlite" {
			return fmt.Errorf("migrate only applies to the sqlite metadata store (configured: %s)", cfg.Metadata.Type)
		}
		if err := os.MkdirAll(cfg.Metadata.DataDir, 0755); err != nil {
			return fmt.Errorf("creating data dir: %w", err)
		}

		dbPath := filepath.Join(cfg.Metadata.DataDir, metadata.DBFileName)
		db, err := metadata.OpenConnection(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := migrations.MigrateUp(db); err != nil {
			return fmt.Errorf("applying migrations: %w", err)
		}

		fmt.Printf("Database at %s is up to date\n", dbPath)
		return nil
	},
}

// uploads command
var uploadsCmd = &cobra.Command{
	Use:   "uploads",
	Short: "Manage multipart upload sessions",
}

var uploadsAbortCmd = &cobra.Command{
	Use:   "abort UPLOAD_ID KEY",
	Short: "Abort an orphan multipart session",
	Long: `Abort discards the staged parts of a multipart session whose client
never completed or aborted it. Session IDs come from the blob store;
aborting an already-finished session is harmless.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.AbortUpload(cmd.Context(), args[0], args[1]); err != nil {
			return fmt.Errorf("aborting upload: %w", err)
		}

		fmt.Printf("Aborted upload %s (%s)\n", args[0], args[1])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	uploadsCmd.AddCommand(uploadsAbortCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(uploadsCmd)
}
