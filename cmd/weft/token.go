package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weftlabs/weft/internal/webhookid"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Generate a webhook token and signing secret",
	Long:  "Prints a fresh webhook URL token and an HMAC signing secret to paste into a webhook-trigger node's data.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("token:  %s\nsecret: %s\n", webhookid.NewToken(), webhookid.NewSecret())
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}
