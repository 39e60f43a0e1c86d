package link

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/sortation-tools/sortlink/logger"
	"github.com/sortation-tools/sortlink/wire"
)

// ErrDispatcherRunning is returned by Start when the dispatcher is already
// running.
var ErrDispatcherRunning = errors.New("link: dispatcher already running")

// CommandHandler is invoked for each received command matching its
// registered code. Handlers run on the dispatcher goroutine and must not
// block.
type CommandHandler func(*wire.Command)

// Dispatcher runs the receive path of a Link in the background and routes
// incoming commands to one-shot waiters and registered handlers.
//
// Routing order per command: a waiter registered via Expect for the code
// consumes it first; otherwise all handlers registered via OnCommand for
// the code run in registration order; a command with neither produces an
// unexpected-command warning and is discarded.
//
// While a Dispatcher is running, the Link's ReadCommand/WaitFor must not be
// called directly: the read path is single-consumer.
type Dispatcher struct {
	link   *Link
	logger logger.Logger

	// waiters holds at most one pending Expect channel per command code.
	waiters *xsync.MapOf[string, chan *wire.Command]

	mu       sync.RWMutex
	handlers map[string][]CommandHandler

	running atomic.Bool
	stopped atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewDispatcher creates a Dispatcher over the given link.
func NewDispatcher(l *Link) *Dispatcher {
	return &Dispatcher{
		link:     l,
		logger:   l.logger,
		waiters:  xsync.NewMapOf[string, chan *wire.Command](),
		handlers: make(map[string][]CommandHandler),
	}
}

// OnCommand registers one or more handlers for the given command code.
// Handlers should be registered before Start; they are invoked in
// registration order.
func (d *Dispatcher) OnCommand(code string, handlers ...CommandHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers[code] = append(d.handlers[code], handlers...)
}

// Expect registers a one-shot waiter for the given command code and returns
// the channel the next matching command will be delivered on.
//
// A second Expect for the same code before delivery replaces the first; the
// replaced channel is closed without a value.
//
// A waiter may be registered before Start; it is served once the dispatch
// loop runs. When the loop exits, all pending waiters are closed, and any
// Expect called after that point returns an already-closed channel until
// the dispatcher is started again.
func (d *Dispatcher) Expect(code string) <-chan *wire.Command {
	ch := make(chan *wire.Command, 1)

	if d.stopped.Load() {
		close(ch)

		return ch
	}

	if prev, loaded := d.waiters.LoadAndStore(code, ch); loaded {
		close(prev)
	}

	// The loop may have exited between the check and the store, missing
	// this waiter in its shutdown sweep; reclaim it here so the receiver
	// is not left blocking.
	if d.stopped.Load() {
		if orphan, loaded := d.waiters.LoadAndDelete(code); loaded {
			close(orphan)
		}
	}

	return ch
}

// Start launches the dispatch loop. It returns ErrDispatcherRunning if the
// dispatcher is already started.
func (d *Dispatcher) Start(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return ErrDispatcherRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})
	d.stopped.Store(false)

	go d.run(runCtx)

	return nil
}

// Stop cancels the dispatch loop and waits for it to exit. It is a no-op if
// the dispatcher is not running.
func (d *Dispatcher) Stop() {
	if !d.running.Load() {
		return
	}

	d.cancel()
	<-d.done
}

func (d *Dispatcher) run(ctx context.Context) {
	defer func() {
		// Flag the exit before the sweep so a concurrent Expect either
		// sees the loop as stopped or has its waiter swept here.
		d.stopped.Store(true)
		d.dropAllWaiters()
		d.running.Store(false)
		close(d.done)
	}()

	for {
		cmd, err := d.link.ReadCommand(ctx)
		if err != nil {
			switch {
			case errors.Is(err, wire.ErrFrameIntegrity), errors.Is(err, wire.ErrMalformedFrame):
				// Dropped frame, already logged by the link; keep reading.
				continue

			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return

			default:
				d.logger.Error("link: dispatcher stopping on receive failure", "error", err)

				return
			}
		}

		d.route(cmd)
	}
}

func (d *Dispatcher) route(cmd *wire.Command) {
	if ch, loaded := d.waiters.LoadAndDelete(cmd.Code); loaded {
		ch <- cmd
		close(ch)

		return
	}

	d.mu.RLock()
	handlers := d.handlers[cmd.Code]
	d.mu.RUnlock()

	if len(handlers) == 0 {
		d.link.metrics.incUnexpectedCmdCount()
		d.logger.Warn("link: unhandled command discarded", "received", cmd.Code)

		return
	}

	for _, handler := range handlers {
		handler(cmd)
	}
}

// dropAllWaiters closes all pending Expect channels so their receivers
// observe loop shutdown instead of blocking forever.
func (d *Dispatcher) dropAllWaiters() {
	d.waiters.Range(func(code string, ch chan *wire.Command) bool {
		d.waiters.Delete(code)
		close(ch)

		return true
	})
}
