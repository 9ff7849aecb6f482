package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ewhitmore/upkeep/internal/config"
	"github.com/ewhitmore/upkeep/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the demo account with sample errands and history",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		store, err := openStore(cfg)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer store.Close()

		if err := seed.Run(store, time.Now()); err != nil {
			return err
		}

		fmt.Printf("Seeded demo account %s (password %q)\n", seed.DemoEmail, seed.DemoPassword)
		return nil
	},
}
