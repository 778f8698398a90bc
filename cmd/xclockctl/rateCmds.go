// ABOUTME: Rate commands for xclockctl
// ABOUTME: Lists, reads, rounds and sets the clock generator rate
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xclockdac/xclockdac-go/pkg/protocol"
)

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "List the supported rates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *protocol.Client) error {
			list, err := c.Rates(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RATE\tCODE\tCRYSTAL\tBCLK\tDIVIDER")
			for _, r := range list.Rates {
				fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\n", r.Rate, r.Code, r.Crystal, r.BitClock, r.Divider)
			}
			return w.Flush()
		})
	},
}

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the current rate",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *protocol.Client) error {
			state, err := c.Get(ctx)
			if err != nil {
				return err
			}
			printState(state)
			return nil
		})
	},
}

var roundCmd = &cobra.Command{
	Use:   "round RATE",
	Short: "Show the supported rate nearest to RATE without changing the clock",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rate, err := parseRate(args[0])
		if err != nil {
			return err
		}
		return withClient(cmd, func(ctx context.Context, c *protocol.Client) error {
			state, err := c.Round(ctx, rate)
			if err != nil {
				return err
			}
			fmt.Printf("%d Hz -> %d Hz\n", state.Requested, state.Rounded)
			return nil
		})
	},
}

var setCmd = &cobra.Command{
	Use:   "set RATE",
	Short: "Program the clock to RATE, which must be a supported rate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rate, err := parseRate(args[0])
		if err != nil {
			return err
		}
		return withClient(cmd, func(ctx context.Context, c *protocol.Client) error {
			state, err := c.Set(ctx, rate)
			if err != nil {
				return err
			}
			printState(state)
			return nil
		})
	},
}

func parseRate(s string) (int, error) {
	rate, err := strconv.Atoi(s)
	if err != nil || rate <= 0 {
		return 0, fmt.Errorf("invalid rate %q", s)
	}
	return rate, nil
}

func printState(s protocol.ClockState) {
	if !s.Attached {
		fmt.Println("Clock not attached")
		return
	}
	fmt.Printf("%d Hz (code %s)\n", s.Rate, s.Code)
}
