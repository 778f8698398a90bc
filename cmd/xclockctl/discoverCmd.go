// ABOUTME: Discover command for xclockctl
// ABOUTME: Browses mDNS for XclockDAC daemons
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xclockdac/xclockdac-go/internal/discovery"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "List daemons advertised on the local network",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr := discovery.NewManager(discovery.Config{Log: log})
		servers := mgr.Discover(discoverTimeout)
		if len(servers) == 0 {
			fmt.Println("No daemons found")
			return nil
		}
		for _, s := range servers {
			fmt.Printf("%s\t%s\n", s.Name, s.Addr())
		}
		return nil
	},
}
