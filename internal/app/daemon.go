// ABOUTME: Daemon orchestration for the XclockDAC
// ABOUTME: Coordinates card probing, the control server and shutdown
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/xclockdac/xclockdac-go/internal/card"
	"github.com/xclockdac/xclockdac-go/internal/config"
	"github.com/xclockdac/xclockdac-go/internal/server"
	"github.com/xclockdac/xclockdac-go/internal/version"
	"github.com/xclockdac/xclockdac-go/pkg/pcm"
	"github.com/xclockdac/xclockdac-go/pkg/protocol"
)

// Daemon owns the card and the control server for one XclockDAC
type Daemon struct {
	config config.Config
	card   *card.Card
	server *server.Server
	log    logrus.FieldLogger
}

// New builds the card and server from configuration. Nothing runs until Run.
func New(c config.Config, log logrus.FieldLogger) (*Daemon, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	d := &Daemon{config: c, log: log.WithField("component", "daemon")}

	crd, err := card.FromConfig(c, log, d.broadcast)
	if err != nil {
		return nil, fmt.Errorf("card: %w", err)
	}
	d.card = crd

	d.server = server.New(server.Config{
		Port:       c.Control.Port,
		Name:       c.Control.Name,
		EnableMDNS: c.Control.MDNS,
		DeviceInfo: protocol.DeviceInfo{
			ProductName:     version.Product,
			Manufacturer:    version.Manufacturer,
			SoftwareVersion: version.Version,
			Clock:           crd.Device.Name(),
			Link:            pcm.XClockDACLink.Name,
		},
	}, crd.Device, log)

	return d, nil
}

// Card returns the probed card
func (d *Daemon) Card() *card.Card {
	return d.card
}

// Server returns the control server
func (d *Daemon) Server() *server.Server {
	return d.server
}

func (d *Daemon) broadcast() {
	if d.server != nil {
		d.server.Broadcast()
	}
}

// Run probes the card and serves control clients until ctx ends.
// A probe failure stops the daemon; the server keeps answering not_attached while the probe is deferred.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	probeErr := make(chan error, 1)
	go func() {
		probeErr <- d.card.Probe(ctx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- d.server.Start()
	}()

	var runErr error
	for done := false; !done; {
		select {
		case <-ctx.Done():
			done = true
		case err := <-probeErr:
			if err != nil && !errors.Is(err, context.Canceled) {
				d.log.WithError(err).Error("Probe failed")
				runErr = err
				done = true
			}
			// a nil probe result leaves the server running; stop listening for it
			probeErr = nil
		case err := <-serveErr:
			runErr = err
			serveErr = nil
			done = true
		}
	}

	d.server.Stop()
	if serveErr != nil {
		if err := <-serveErr; err != nil && runErr == nil {
			runErr = err
		}
	}
	cancel()
	if probeErr != nil {
		<-probeErr
	}

	if err := d.card.Close(); err != nil {
		d.log.WithError(err).Warn("Closing card")
	}
	d.log.Info("Daemon stopped")
	return runErr
}
