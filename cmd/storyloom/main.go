package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mwhitford/storyloom/internal/airtable"
	"github.com/mwhitford/storyloom/internal/config"
	"github.com/mwhitford/storyloom/internal/database"
	"github.com/mwhitford/storyloom/internal/export"
	"github.com/mwhitford/storyloom/internal/gallery"
	"github.com/mwhitford/storyloom/internal/pipeline"
	"github.com/mwhitford/storyloom/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "storyloom",
	Short:   "Storytelling website backend",
	Long:    "Storyloom pulls storyteller records from Airtable, normalizes them into a local cache, and serves them as JSON.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("storyloom", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/storyloom/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to set the Airtable base and gallery directory.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache and sync status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Println("Cache:")
		fmt.Printf("  Storytellers: %d\n", stats.TotalStorytellers)
		fmt.Printf("  Stories: %d\n", stats.TotalStories)
		fmt.Printf("  Projects: %d\n", stats.TotalProjects)
		fmt.Printf("  Locations: %d\n", stats.TotalLocations)
		fmt.Printf("  Themes: %d\n", stats.TotalThemes)

		run, err := db.GetLastRun()
		if err != nil {
			return fmt.Errorf("getting last run: %w", err)
		}
		if run == nil {
			fmt.Println("\nNo sync has run yet. Run 'storyloom sync' to populate the cache.")
			return nil
		}
		fmt.Println("\nLast sync:")
		fmt.Printf("  Started: %s\n", run.StartedAt)
		fmt.Printf("  Finished: %s\n", run.FinishedAt)
		fmt.Printf("  Records: %d\n", run.RecordCount)
		fmt.Printf("  Warnings: %d\n", run.WarningCount)
		return nil
	},
}

// --- sync command ---

var dryRun bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run the full sync: fetch -> normalize -> derive -> commit",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := airtable.NewClient(cfg)
		if !client.IsConfigured() {
			return fmt.Errorf("airtable is not configured: set base_id in the config and %s in the environment", cfg.Airtable.APIKeyEnv)
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pipe := pipeline.New(cfg, db, client)
		ctx := context.Background()

		var result *pipeline.Result
		if dryRun {
			result = pipe.DryRun(ctx)
		} else {
			result = pipe.Run(ctx)
		}

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/%d: %s\n", i+1, len(result.Steps), step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		if result.Failed() {
			return fmt.Errorf("sync failed")
		}
		if !dryRun {
			fmt.Println("\nSync complete! Run 'storyloom serve' to browse the data.")
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be done without writing")
}

// --- export command ---

var exportDir string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write static JSON snapshots from the current cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		dir := exportDir
		if dir == "" {
			dir = filepath.Join(cfg.GetDataDir(), "export")
		}

		e := export.New(db, newAssigner(), dir)
		if err := e.Export(); err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		fmt.Printf("Static data written to %s\n", dir)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportDir, "out", "o", "", "Output directory (default: <data dir>/export)")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the read-only JSON API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.New(db, newAssigner()).Run(ctx, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

func newAssigner() *gallery.Assigner {
	return gallery.NewAssigner(cfg.Gallery.PathPrefix, cfg.Gallery.PoolSize, cfg.Gallery.Overrides)
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return database.Open(filepath.Join(dataDir, "storyloom.db"))
}
