// Package acceptor owns the listening socket and the accept loop: one
// goroutine per accepted connection, registered for drain bookkeeping,
// running until a shutdown signal arrives (C9).
package acceptor

import (
	"context"
	"crypto/tls"
	"errors"
	"net"

	"github.com/corewire/httpd/pkg/exchange"
	"github.com/corewire/httpd/pkg/log"
	"github.com/corewire/httpd/pkg/registry"
	"github.com/corewire/httpd/pkg/transport"
)

// Acceptor drives Accept() against one net.Listener and fans connections
// out to exchange workers.
type Acceptor struct {
	listener net.Listener
	tlsCfg   *tls.Config
	settings exchange.Settings
	registry registry.Registry
	logger   *log.Logger
}

// New wraps an already-bound listener. tlsCfg may be nil for a plain
// listener. logger, if non-nil, is attached to settings so every spawned
// connection logs through it.
func New(listener net.Listener, tlsCfg *tls.Config, settings exchange.Settings, logger *log.Logger) *Acceptor {
	settings.Logger = logger
	return &Acceptor{listener: listener, tlsCfg: tlsCfg, settings: settings, logger: logger}
}

// Run accepts connections until ctx is canceled or Accept returns a
// non-temporary error, then closes the listener. It blocks the caller;
// run it in its own goroutine and cancel ctx to stop accepting. Run
// returns as soon as the listener is closed; it does not wait for
// connections that are still being served.
func (a *Acceptor) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = a.listener.Close()
	}()

	for {
		conn, err := a.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			return err
		}
		go a.serve(ctx, conn)
	}
}

// Active reports how many connections are currently being served, for
// diagnostics.
func (a *Acceptor) Active() int { return a.registry.Len() }

func (a *Acceptor) serve(ctx context.Context, conn net.Conn) {
	id := a.registry.Insert()
	defer a.registry.Remove(id)

	tr, err := a.upgrade(ctx, conn)
	if err != nil {
		if a.logger != nil {
			a.logger.Warnf("tls handshake failed remote=%s err=%v", conn.RemoteAddr(), err)
		}
		_ = conn.Close()
		return
	}

	exchange.NewConnection(tr, a.settings, id).Run()
}

func (a *Acceptor) upgrade(ctx context.Context, conn net.Conn) (*transport.Transport, error) {
	if a.tlsCfg == nil {
		return transport.New(conn), nil
	}
	return transport.Upgrade(ctx, conn, a.tlsCfg)
}
