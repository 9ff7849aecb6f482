package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ewhitmore/upkeep/internal/push"
)

var vapidCmd = &cobra.Command{
	Use:   "vapid",
	Short: "Generate a VAPID key pair for push reminders",
	RunE: func(cmd *cobra.Command, args []string) error {
		pub, priv, err := push.GenerateVAPIDKeys()
		if err != nil {
			return err
		}
		fmt.Printf("[push]\nvapid_public_key = %q\nvapid_private_key = %q\n", pub, priv)
		return nil
	},
}
