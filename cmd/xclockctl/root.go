// ABOUTME: Root command and connection helpers for xclockctl
// ABOUTME: Resolves the daemon address from --server or mDNS and opens a control client
package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/xclockdac/xclockdac-go/internal/discovery"
	"github.com/xclockdac/xclockdac-go/internal/logger"
	"github.com/xclockdac/xclockdac-go/internal/version"
	"github.com/xclockdac/xclockdac-go/pkg/protocol"
)

var (
	serverAddr      string
	discoverTimeout time.Duration
	requestTimeout  time.Duration
	logLevel        string
)

var log = logrus.New()

var rootCmd = &cobra.Command{
	Use:           "xclockctl",
	Short:         "Control an XclockDAC daemon",
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.SetLevel(logger.ParseLevel(logLevel))
		logger.SetFormat(log, "text")
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&serverAddr, "server", "s", "", "Daemon address host:port (default: discover over mDNS)")
	pf.DurationVar(&discoverTimeout, "discover-timeout", 3*time.Second, "How long to browse for daemons")
	pf.DurationVar(&requestTimeout, "timeout", 5*time.Second, "Request timeout")
	pf.StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(ratesCmd, getCmd, roundCmd, setCmd, discoverCmd, watchCmd)
}

// resolveServer returns --server or the first daemon found over mDNS
func resolveServer() (string, error) {
	if serverAddr != "" {
		return serverAddr, nil
	}
	mgr := discovery.NewManager(discovery.Config{Log: log})
	servers := mgr.Discover(discoverTimeout)
	if len(servers) == 0 {
		return "", errors.New("no daemon found over mDNS, use --server")
	}
	if len(servers) > 1 {
		log.Warnf("Found %d daemons, using %s", len(servers), servers[0].Name)
	}
	return servers[0].Addr(), nil
}

// dial connects to the daemon; the caller closes the client
func dial(ctx context.Context) (*protocol.Client, error) {
	addr, err := resolveServer()
	if err != nil {
		return nil, err
	}
	client := protocol.NewClient(protocol.Config{
		ServerAddr: addr,
		Name:       "xclockctl",
		Log:        log,
	})

	cctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	if err := client.Connect(cctx); err != nil {
		return nil, fmt.Errorf("unable to connect to %s: %w", addr, err)
	}
	return client, nil
}

// withClient runs fn against a connected client bounded by the request timeout
func withClient(cmd *cobra.Command, fn func(ctx context.Context, c *protocol.Client) error) error {
	client, err := dial(cmd.Context())
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()
	return fn(ctx, client)
}
