package changefeed

import (
	"context"
	"log/slog"
	"sync"
)

// State is the lifecycle phase of a Listener.
//
// Transitions: Unsubscribed → Subscribing → Active, then on a delivery
// failure Active → Errored → Subscribing (one resubscribe attempt) or
// Unsubscribed if the feed is gone. Stop always lands on Unsubscribed.
type State int

const (
	StateUnsubscribed State = iota
	StateSubscribing
	StateActive
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateUnsubscribed:
		return "unsubscribed"
	case StateSubscribing:
		return "subscribing"
	case StateActive:
		return "active"
	case StateErrored:
		return "errored"
	default:
		return "invalid"
	}
}

// Source is the subset of the feed a Listener needs. *Feed satisfies it; so
// does any client for an external live-changes service.
type Source interface {
	Subscribe(table string, mask EventKind) (*Subscription, error)
	Unsubscribe(sub *Subscription)
}

// ReloadFunc re-reads the watched collection through its authoritative
// query. It receives no event payload on purpose.
type ReloadFunc func(ctx context.Context) error

// Listener watches one table and triggers a collection reload whenever
// anything in it changes. Events arriving while a reload is in flight are
// coalesced: the listener drains its buffer and reloads once.
type Listener struct {
	source Source
	table  string
	mask   EventKind
	reload ReloadFunc
	logger *slog.Logger

	mu    sync.Mutex
	state State
	sub   *Subscription
	stop  chan struct{}
	wg    sync.WaitGroup
}

// NewListener creates a listener in the Unsubscribed state. Call Start to
// begin watching and Stop to tear it down; leaking an active subscription
// past its consumer's lifetime is a defect, so owners must pair the two.
func NewListener(source Source, table string, mask EventKind, reload ReloadFunc, logger *slog.Logger) *Listener {
	return &Listener{
		source: source,
		table:  table,
		mask:   mask,
		reload: reload,
		logger: logger,
		state:  StateUnsubscribed,
	}
}

// State returns the current lifecycle phase.
func (l *Listener) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Start subscribes to the table and launches the event loop. Calling Start
// on a listener that is not Unsubscribed is a no-op.
func (l *Listener) Start() error {
	l.mu.Lock()
	if l.state != StateUnsubscribed {
		l.mu.Unlock()
		return nil
	}
	l.state = StateSubscribing
	l.mu.Unlock()

	sub, err := l.source.Subscribe(l.table, l.mask)
	if err != nil {
		l.mu.Lock()
		l.state = StateUnsubscribed
		l.mu.Unlock()
		return err
	}

	l.mu.Lock()
	l.sub = sub
	l.stop = make(chan struct{})
	l.state = StateActive
	l.mu.Unlock()

	l.logger.Debug("listener active", slog.String("table", l.table))

	l.wg.Add(1)
	go l.run(sub)

	return nil
}

// Stop unsubscribes and waits for the event loop to exit. The listener ends
// in the Unsubscribed state and may be started again. Stop is idempotent.
func (l *Listener) Stop() {
	l.mu.Lock()
	if l.state == StateUnsubscribed {
		l.mu.Unlock()
		return
	}
	sub := l.sub
	stop := l.stop
	l.sub = nil
	l.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	if sub != nil {
		// Unsubscribe closes the event channel, which also wakes the loop
		// if it is blocked receiving.
		l.source.Unsubscribe(sub)
	}
	l.wg.Wait()

	// A resubscribe in flight when the stop channel closed may have
	// registered a fresh subscription after the handle captured above was
	// released. It must not outlive the listener.
	l.mu.Lock()
	late := l.sub
	l.sub = nil
	l.state = StateUnsubscribed
	l.mu.Unlock()

	if late != nil {
		l.source.Unsubscribe(late)
	}

	l.logger.Debug("listener stopped", slog.String("table", l.table))
}

func (l *Listener) run(sub *Subscription) {
	defer l.wg.Done()

	l.mu.Lock()
	stop := l.stop
	l.mu.Unlock()

	for {
		select {
		case <-stop:
			return
		case _, ok := <-sub.Events():
			if !ok {
				// Channel closed under us: either Stop is in progress (the
				// stop channel will confirm) or the feed dropped us, in
				// which case we try to resubscribe once.
				select {
				case <-stop:
					return
				default:
				}
				if next := l.resubscribe(); next != nil {
					sub = next
					continue
				}
				return
			}

			// Coalesce: take everything already buffered, then reload once.
			l.drain(sub)
			if err := l.reload(context.Background()); err != nil {
				l.logger.Error("collection reload failed",
					slog.String("table", l.table),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// drain empties the buffered events without blocking. Payloads are
// untrusted, so there is nothing to process per event.
func (l *Listener) drain(sub *Subscription) {
	for {
		select {
		case _, ok := <-sub.Events():
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// resubscribe attempts a single re-registration after the source dropped the
// subscription. Retry and backoff belong to the transport, not here: if the
// source still refuses, the listener parks in Unsubscribed.
func (l *Listener) resubscribe() *Subscription {
	l.mu.Lock()
	l.state = StateErrored
	l.mu.Unlock()

	l.logger.Warn("listener lost its subscription, resubscribing",
		slog.String("table", l.table))

	l.mu.Lock()
	l.state = StateSubscribing
	l.mu.Unlock()

	sub, err := l.source.Subscribe(l.table, l.mask)
	if err != nil {
		l.logger.Error("listener resubscribe failed",
			slog.String("table", l.table),
			slog.String("error", err.Error()),
		)
		l.mu.Lock()
		l.state = StateUnsubscribed
		l.mu.Unlock()
		return nil
	}

	l.mu.Lock()
	l.sub = sub
	l.state = StateActive
	l.mu.Unlock()

	return sub
}
