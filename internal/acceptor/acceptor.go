// Package acceptor owns the listening socket and coordinates every
// connection's lifecycle: accepting, watching idle connections for
// readability, handing ready ones to the worker pool, and the
// hard/soft shutdown sequence (spec §4.H, §4.I).
//
// The original design runs a single thread multiplexing the listener, the
// signal pipe and every client fd through one readiness primitive
// (select/poll). Go has no idiomatic equivalent to a user-level fd_set, and
// net.Conn exposes no "is this fd readable" syscall directly, so this is
// re-architected (per the re-architecture note on cyclic graphs) into one
// goroutine per concern: an accept loop, one idle-watcher goroutine per
// currently-idle connection (parked in Read, which is exactly what the
// original's readiness check was standing in for), a fixed worker pool, and
// a coordinator goroutine that owns the hard/soft shutdown state the
// original kept in the master loop's locals (the live client count itself
// is read straight from the connection registry, spec §4.H's drain check).
package acceptor

import (
	"errors"
	"net"

	"github.com/joshuarubin/blobstore/internal/config"
	"github.com/joshuarubin/blobstore/internal/connreg"
	"github.com/joshuarubin/blobstore/internal/handler"
	"github.com/joshuarubin/blobstore/internal/pool"
	"github.com/joshuarubin/blobstore/internal/queue"
	"github.com/joshuarubin/blobstore/internal/signalshim"
	"github.com/joshuarubin/blobstore/internal/storage"
)

// event is one item crossing the worker/watcher-to-coordinator handoff:
// either a client going back to idle or a client disconnecting. Unlike the
// ready queue (which genuinely needs an unbounded, closeable queue so
// workers can block in Get), this only ever needs to be a channel: it feeds
// directly into the coordinator's select loop below, and once that loop
// ends Run keeps receiving from it until every worker has returned.
type event struct {
	handle     storage.ClientHandle
	disconnect bool
}

// Acceptor runs the accept loop, idle-watchers, worker pool and shutdown
// coordination for one listening socket.
type Acceptor struct {
	cfg *config.Config
	srv *handler.Server
	reg *connreg.Registry

	ln net.Listener

	ready *queue.Queue[storage.ClientHandle] // idle clients handed to workers
	done  chan event                         // worker/watcher -> coordinator

	log *signalshim.Logger
}

// New creates an Acceptor that listens on ln and dispatches requests through
// srv, a request dispatcher over the given registry.
func New(cfg *config.Config, srv *handler.Server, reg *connreg.Registry, ln net.Listener, log *signalshim.Logger) *Acceptor {
	return &Acceptor{
		cfg:   cfg,
		srv:   srv,
		reg:   reg,
		ln:    ln,
		ready: queue.New[storage.ClientHandle](queue.FIFO),
		done:  make(chan event),
		log:   log,
	}
}

// Run accepts connections and serves requests until shutdown is signaled on
// sigCh (spec §4.H/§4.I), then drains per the requested shutdown kind:
// hard-exit workers still finish their in-flight request but new connections
// stop immediately; soft-exit additionally waits for every already-connected
// client to disconnect on its own before tearing down.
func (a *Acceptor) Run(sigCh <-chan signalshim.Event) {
	var nextHandle storage.ClientHandle
	workers := pool.Start(a.cfg.NumWorkers, a.worker)

	newConns := make(chan net.Conn)
	acceptErr := make(chan error, 1)
	go func() {
		for {
			nc, err := a.ln.Accept()
			if err != nil {
				if !ErrListenerClosed(err) && a.log != nil {
					a.log.Error("accept failed", "error", err)
				}
				acceptErr <- err
				return
			}
			newConns <- nc
		}
	}()

	hard, soft := false, false

	for {
		if hard || (soft && a.reg.Len() == 0) {
			break
		}

		select {
		case ev, ok := <-sigCh:
			if !ok {
				continue
			}
			switch ev {
			case signalshim.Soft:
				soft = true
				_ = a.ln.Close()
			default:
				hard = true
				_ = a.ln.Close()
			}

		case nc := <-newConns:
			if hard || soft {
				_ = nc.Close()
				continue
			}
			nextHandle++
			handle := nextHandle
			c := a.reg.Add(handle, nc)
			a.watchIdle(handle, c)

		case <-acceptErr:
			// listener closed (shutdown in progress); stop watching for
			// new connections but keep serving existing ones.

		case ev := <-a.done:
			if !ev.disconnect {
				c, ok := a.reg.Get(ev.handle)
				if ok {
					a.watchIdle(ev.handle, c)
				}
			}
		}
	}

	a.ready.Close()
	// Workers still finishing a request report to a.done; keep receiving so
	// none of them blocks on that send while we wait for them.
	joined := make(chan struct{})
	go func() {
		for {
			select {
			case <-a.done:
			case <-joined:
				return
			}
		}
	}()
	workers.Wait()
	close(joined)
	_ = a.ln.Close()
	// Closing the logger is the caller's responsibility (commands.Serve
	// still has statistics to emit after Run returns).
}

// watchIdle starts a goroutine that blocks until c's connection has a byte
// available to read (or has been closed), then hands it to the worker pool.
// This is the per-connection stand-in for the original's idle-fd-set
// membership: the connection "is idle" for exactly as long as this
// goroutine is blocked in Peek.
func (a *Acceptor) watchIdle(handle storage.ClientHandle, c *connreg.Conn) {
	go func() {
		if _, err := c.R.Peek(1); err != nil {
			a.done <- event{handle: handle, disconnect: true}
			return
		}
		_ = a.ready.Put(handle)
	}()
}

// worker is the entry point run by every goroutine in the fixed pool (spec
// §4.G): dequeue a ready client handle, serve exactly one request, report
// the outcome back to the coordinator, repeat until the ready queue closes.
func (a *Acceptor) worker(_ int) {
	for {
		handle, err := a.ready.Get()
		if err != nil {
			return
		}

		outcome, effects := a.srv.Serve(handle)
		a.report(handle, outcome)
		for _, e := range effects {
			a.report(e.Handle, e.Outcome)
		}
	}
}

// report translates one handler Outcome into the coordinator handoff event,
// re-arming the idle-watcher for Idle handles.
func (a *Acceptor) report(handle storage.ClientHandle, outcome handler.Outcome) {
	switch outcome {
	case handler.Disconnected:
		a.done <- event{handle: handle, disconnect: true}
	case handler.Parked:
		// No idle-watcher is armed; the handle is held in a blob's lock
		// wait queue until it is promoted (handler.deliverPromotions) or
		// disconnected, at which point it re-enters via report again.
	default: // Idle
		a.done <- event{handle: handle}
	}
}

// ErrListenerClosed reports whether err is the expected error from Accept
// after the listener has been deliberately closed during shutdown.
func ErrListenerClosed(err error) bool {
	return errors.Is(err, net.ErrClosed)
}
