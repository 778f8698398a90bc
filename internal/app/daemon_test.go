// ABOUTME: Tests for daemon orchestration
// ABOUTME: Runs a simulated card behind a live control server
package app

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xclockdac/xclockdac-go/internal/config"
	"github.com/xclockdac/xclockdac-go/pkg/protocol"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func simConfig(t *testing.T) config.Config {
	t.Helper()
	v := config.New()
	v.Set("device.simulate", true)
	v.Set("control.mdns", false)
	v.Set("control.port", freePort(t))
	v.Set("control.name", "test-daemon")
	v.Set("clock.default_rate", 48000)
	c, err := config.FromViper(v)
	require.NoError(t, err)
	return c
}

func connect(t *testing.T, port int) *protocol.Client {
	t.Helper()
	log, _ := test.NewNullLogger()
	client := protocol.NewClient(protocol.Config{
		ServerAddr: fmt.Sprintf("127.0.0.1:%d", port),
		Name:       "daemon-test",
		Log:        log,
	})

	var err error
	for i := 0; i < 50; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		err = client.Connect(ctx)
		cancel()
		if err == nil {
			t.Cleanup(func() { client.Close() })
			return client
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("connect: %v", err)
	return nil
}

func TestNewDaemon(t *testing.T) {
	log, _ := test.NewNullLogger()
	d, err := New(simConfig(t), log)
	require.NoError(t, err)

	assert.NotNil(t, d.Card())
	assert.NotNil(t, d.Server())
	assert.False(t, d.Card().Device.Attached())
}

func TestDaemonServesProbedClock(t *testing.T) {
	log, _ := test.NewNullLogger()
	c := simConfig(t)
	d, err := New(c, log)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	select {
	case <-d.Card().Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("card never became ready")
	}

	client := connect(t, c.Control.Port)
	assert.Equal(t, "test-daemon", client.Server().Name)
	require.NotNil(t, client.Server().DeviceInfo)
	assert.Equal(t, d.Card().Device.Name(), client.Server().DeviceInfo.Clock)

	rctx, rcancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer rcancel()

	state, err := client.Get(rctx)
	require.NoError(t, err)
	assert.True(t, state.Attached)
	assert.Equal(t, 48000, state.Rate)

	state, err = client.Set(rctx, 96000)
	require.NoError(t, err)
	assert.Equal(t, 96000, state.Rate)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("daemon did not stop")
	}
	assert.False(t, d.Card().Device.Attached())
}

func TestDaemonStopsOnServerError(t *testing.T) {
	log, _ := test.NewNullLogger()
	c := simConfig(t)

	// occupy the port so the control server cannot listen
	l, err := net.Listen("tcp", fmt.Sprintf(":%d", c.Control.Port))
	require.NoError(t, err)
	defer l.Close()

	d, err := New(c, log)
	require.NoError(t, err)

	select {
	case err := <-runAsync(d):
		assert.Error(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("daemon did not stop")
	}
}

func runAsync(d *Daemon) <-chan error {
	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background()) }()
	return done
}
