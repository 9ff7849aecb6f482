package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ewhitmore/upkeep/internal/config"
	"github.com/ewhitmore/upkeep/internal/storage"
	"github.com/ewhitmore/upkeep/internal/storage/memory"
	"github.com/ewhitmore/upkeep/internal/storage/sqlite"
)

var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:     "upkeep",
	Short:   "Personal errand and maintenance tracker",
	Version: version,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "upkeep.toml", "path to config file")
	rootCmd.AddCommand(serveCmd, seedCmd, exportCmd, vapidCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// openStore picks the persistence backend once, at process start.
func openStore(cfg config.Config) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case "memory":
		return memory.New(), nil
	default:
		return sqlite.Open(cfg.Storage.Path)
	}
}
