// ABOUTME: Tagged attach results and dependency readiness
// ABOUTME: Separates "retry later" from permanent failure for the composing layer
package pcm

import (
	"sync"
)

// Outcome classifies an attach attempt
type Outcome int

const (
	// Ready means the binding is attached. Err may still carry a non-fatal
	// failure, such as the default rate not being applied.
	Ready Outcome = iota
	// Deferred means a dependency is missing; retry once it signals readiness
	Deferred
	// Failed is permanent
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Ready:
		return "ready"
	case Deferred:
		return "deferred"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// AttachResult is the tagged result of Binding.Attach
type AttachResult struct {
	Outcome Outcome
	Err     error
}

// Dependency is something the binding needs before it can attach
type Dependency interface {
	Name() string
	Ready() bool
}

// Gate is a Dependency that becomes ready once and signals it on a channel
type Gate struct {
	name string
	once sync.Once
	done chan struct{}
}

// NewGate creates a closed (not ready) gate
func NewGate(name string) *Gate {
	return &Gate{name: name, done: make(chan struct{})}
}

// Name implements Dependency
func (g *Gate) Name() string {
	return g.name
}

// Ready implements Dependency
func (g *Gate) Ready() bool {
	select {
	case <-g.done:
		return true
	default:
		return false
	}
}

// Open marks the dependency ready; later calls are no-ops
func (g *Gate) Open() {
	g.once.Do(func() { close(g.done) })
}

// Done is closed when the gate opens
func (g *Gate) Done() <-chan struct{} {
	return g.done
}

// readyFunc adapts a function to Dependency
type readyFunc struct {
	name string
	fn   func() bool
}

func (r readyFunc) Name() string { return r.name }
func (r readyFunc) Ready() bool  { return r.fn() }

// DependencyFunc returns a Dependency polling fn
func DependencyFunc(name string, fn func() bool) Dependency {
	return readyFunc{name: name, fn: fn}
}
