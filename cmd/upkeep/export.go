package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ewhitmore/upkeep/internal/config"
	"github.com/ewhitmore/upkeep/internal/export"
)

var exportEmail string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a user's errands to a CSV file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportEmail == "" {
			return fmt.Errorf("--email is required")
		}

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		store, err := openStore(cfg)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer store.Close()

		user, err := store.GetUserByEmail(exportEmail)
		if err != nil {
			return fmt.Errorf("look up user: %w", err)
		}
		if user == nil {
			return fmt.Errorf("no user with email %s", exportEmail)
		}

		errands, err := store.ListErrands(user.ID)
		if err != nil {
			return fmt.Errorf("list errands: %w", err)
		}

		name := export.Filename(time.Now())
		f, err := os.Create(name)
		if err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}
		defer f.Close()

		if err := export.WriteCSV(f, errands); err != nil {
			return err
		}

		fmt.Printf("Wrote %d errands to %s\n", len(errands), name)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportEmail, "email", "", "email of the account to export")
}
