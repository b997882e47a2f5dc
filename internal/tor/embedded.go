package tor

import (
	"context"
	"fmt"
	"time"

	"github.com/nao1215/tornago"
)

// defaultStartupTimeout is how long Start waits for Tor to bootstrap.
const defaultStartupTimeout = 3 * time.Minute

// EmbeddedTor runs a private Tor daemon through tornago so that --tor works
// without a system Tor installation. Bootstrapping usually takes a minute
// or more on a cold start.
type EmbeddedTor struct {
	process *tornago.TorProcess

	// socksAddr and controlAddr are set after a successful Start.
	socksAddr   string
	controlAddr string

	startupTimeout time.Duration
}

// EmbeddedTorOption configures an EmbeddedTor instance.
type EmbeddedTorOption func(*EmbeddedTor)

// WithStartupTimeout sets the maximum time to wait for Tor to bootstrap.
// Non-positive values keep the default.
func WithStartupTimeout(timeout time.Duration) EmbeddedTorOption {
	return func(e *EmbeddedTor) {
		if timeout > 0 {
			e.startupTimeout = timeout
		}
	}
}

// NewEmbeddedTor creates an embedded Tor manager. Call Start to launch it.
func NewEmbeddedTor(opts ...EmbeddedTorOption) *EmbeddedTor {
	e := &EmbeddedTor{
		startupTimeout: defaultStartupTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start launches the daemon on OS-assigned ports and blocks until it has
// bootstrapped or the startup timeout elapses. If ctx is cancelled while
// Tor is starting, the daemon is stopped and ctx.Err() is returned.
func (e *EmbeddedTor) Start(ctx context.Context) error {
	launchCfg, err := tornago.NewTorLaunchConfig(
		tornago.WithTorSocksAddr(":0"),
		tornago.WithTorControlAddr(":0"),
		tornago.WithTorStartupTimeout(e.startupTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create Tor launch config: %w", err)
	}

	type startResult struct {
		process *tornago.TorProcess
		err     error
	}
	done := make(chan startResult, 1)
	go func() {
		p, err := tornago.StartTorDaemon(launchCfg)
		done <- startResult{p, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return fmt.Errorf("failed to start embedded Tor daemon: %w", r.err)
		}
		e.process = r.process
		e.socksAddr = r.process.SocksAddr()
		e.controlAddr = r.process.ControlAddr()
		return nil
	case <-ctx.Done():
		go func() {
			if r := <-done; r.process != nil {
				_ = r.process.Stop() //nolint:errcheck // best effort cleanup
			}
		}()
		return ctx.Err()
	}
}

// Stop shuts the daemon down. It is safe to call more than once or on an
// instance that was never started.
func (e *EmbeddedTor) Stop() error {
	if e.process == nil {
		return nil
	}
	err := e.process.Stop()
	e.process = nil
	e.socksAddr = ""
	e.controlAddr = ""
	return err
}

// SocksAddr returns the daemon's SOCKS5 "host:port", or "" when not running.
func (e *EmbeddedTor) SocksAddr() string {
	return e.socksAddr
}

// ControlAddr returns the daemon's control port address, or "" when not running.
func (e *EmbeddedTor) ControlAddr() string {
	return e.controlAddr
}

// IsRunning reports whether the daemon has been started and not stopped.
func (e *EmbeddedTor) IsRunning() bool {
	return e.process != nil
}

// NewClient returns a Client that dials through the running daemon.
func (e *EmbeddedTor) NewClient(timeout time.Duration) (*Client, error) {
	if !e.IsRunning() {
		return nil, ErrEmbeddedNotRunning
	}
	return NewClient(e.socksAddr, timeout)
}
