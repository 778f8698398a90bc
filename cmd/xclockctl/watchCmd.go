// ABOUTME: Watch command for xclockctl
// ABOUTME: Opens the interactive rate TUI
package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/xclockdac/xclockdac-go/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch and change the rate interactively",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := dial(cmd.Context())
		if err != nil {
			return err
		}
		defer client.Close()

		// keep log lines from tearing the alt screen
		log.SetOutput(io.Discard)
		return ui.Watch(cmd.Context(), client)
	},
}
