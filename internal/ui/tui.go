// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and connects it to a control client
package ui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/xclockdac/xclockdac-go/pkg/protocol"
)

// requestTimeout bounds each control request made from the TUI
const requestTimeout = 5 * time.Second

// Control carries user requests out of the TUI
type Control struct {
	Set     chan int
	Refresh chan struct{}
}

// NewControl creates a new control handler
func NewControl() *Control {
	return &Control{
		Set:     make(chan int, 4),
		Refresh: make(chan struct{}, 1),
	}
}

func (c *Control) requestSet(rate int) {
	if c == nil {
		return
	}
	select {
	case c.Set <- rate:
	default:
	}
}

func (c *Control) requestRefresh() {
	if c == nil {
		return
	}
	select {
	case c.Refresh <- struct{}{}:
	default:
	}
}

// NewModel creates a new TUI model
func NewModel(ctrl *Control) Model {
	return Model{
		control: ctrl,
		now:     time.Now,
	}
}

// Run starts the TUI
func Run(ctrl *Control) *tea.Program {
	return tea.NewProgram(NewModel(ctrl), tea.WithAltScreen())
}

// Watch runs the TUI against a connected client until the user quits or the connection drops
func Watch(ctx context.Context, client *protocol.Client) error {
	ctrl := NewControl()
	prog := Run(ctrl)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go pump(ctx, client, ctrl, prog)

	_, err := prog.Run()
	return err
}

// pump moves broadcasts and request results into the program
func pump(ctx context.Context, client *protocol.Client, ctrl *Control, prog *tea.Program) {
	connected := true
	prog.Send(StatusMsg{Connected: &connected, ServerName: client.Server().Name})

	refresh := func() {
		rctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		rates, err := client.Rates(rctx)
		if err != nil {
			prog.Send(StatusMsg{Err: err})
			return
		}
		prog.Send(StatusMsg{Rates: rates.Rates})
		state, err := client.Get(rctx)
		if err != nil {
			prog.Send(StatusMsg{Err: err})
			return
		}
		prog.Send(StatusMsg{State: &state})
	}
	refresh()

	for {
		select {
		case <-ctx.Done():
			return
		case <-client.Done():
			disconnected := false
			prog.Send(StatusMsg{Connected: &disconnected, Err: fmt.Errorf("connection closed")})
			return
		case state := <-client.States():
			prog.Send(StatusMsg{State: &state})
		case rate := <-ctrl.Set:
			rctx, cancel := context.WithTimeout(ctx, requestTimeout)
			state, err := client.Set(rctx, rate)
			cancel()
			if err != nil {
				prog.Send(StatusMsg{Err: err})
				continue
			}
			prog.Send(StatusMsg{State: &state})
		case <-ctrl.Refresh:
			refresh()
		}
	}
}
