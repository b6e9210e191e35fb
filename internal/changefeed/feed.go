// Package changefeed provides change notifications for record-store tables.
//
// The feed is a pure wake-up mechanism: an event says "something in this
// table changed" and nothing more. Consumers must reload through the
// authoritative query rather than apply any event payload, which is why
// Event deliberately carries no row data. Delivery is at-least-once per
// subscriber while the subscriber keeps up; a subscriber that falls behind
// loses intermediate events, which is harmless because any one event forces
// a full reload anyway.
package changefeed

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// EventKind identifies which kind of mutation occurred. Kinds combine as a
// bit mask when subscribing.
type EventKind uint8

const (
	Insert EventKind = 1 << iota
	Update
	Delete

	// AllEvents subscribes to every mutation kind on a table.
	AllEvents = Insert | Update | Delete
)

// String returns the wire name of a single event kind.
func (k EventKind) String() string {
	switch k {
	case Insert:
		return "insert"
	case Update:
		return "update"
	case Delete:
		return "delete"
	default:
		return "unknown"
	}
}

// Event is a change notification: table name and mutation kind only.
type Event struct {
	Table string    `json:"table"`
	Kind  EventKind `json:"-"`

	// KindName carries the kind over JSON transports (the websocket feed).
	KindName string `json:"kind"`
}

// ErrClosed is returned by Subscribe after the feed has been shut down.
var ErrClosed = errors.New("changefeed: feed is closed")

// subscriberBuffer is the per-subscription channel depth. Publishes never
// block: when a subscriber's buffer is full the event is dropped for that
// subscriber only.
const subscriberBuffer = 16

// Subscription is a live registration for one table's events. The handle ID
// is stable for the life of the subscription and identifies it in logs.
type Subscription struct {
	ID    uuid.UUID
	table string
	mask  EventKind
	ch    chan Event
}

// Events returns the channel notifications are delivered on. The channel is
// closed when the subscription is cancelled or the feed shuts down.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Table returns the table this subscription watches.
func (s *Subscription) Table() string {
	return s.table
}

// Feed fans record-store change events out to subscribers. It is the
// in-process stand-in for the external live-changes service: publishers and
// subscribers only ever see the Subscribe/Unsubscribe/Publish boundary.
type Feed struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]*Subscription
	closed bool
	logger *slog.Logger
}

// New creates an empty feed.
func New(logger *slog.Logger) *Feed {
	return &Feed{
		subs:   make(map[uuid.UUID]*Subscription),
		logger: logger,
	}
}

// Subscribe registers interest in the given event kinds on one table and
// returns the subscription handle.
func (f *Feed) Subscribe(table string, mask EventKind) (*Subscription, error) {
	if table == "" {
		return nil, errors.New("changefeed: table must not be empty")
	}
	if mask == 0 {
		return nil, errors.New("changefeed: event mask must not be empty")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, ErrClosed
	}

	sub := &Subscription{
		ID:    uuid.New(),
		table: table,
		mask:  mask,
		ch:    make(chan Event, subscriberBuffer),
	}
	f.subs[sub.ID] = sub

	f.logger.Debug("changefeed subscription created",
		slog.String("id", sub.ID.String()),
		slog.String("table", table),
	)

	return sub, nil
}

// Unsubscribe cancels a subscription and closes its event channel. It is
// safe to call more than once and safe to call with a subscription the feed
// no longer tracks.
func (f *Feed) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.subs[sub.ID]; !ok {
		return
	}
	delete(f.subs, sub.ID)
	close(sub.ch)

	f.logger.Debug("changefeed subscription removed",
		slog.String("id", sub.ID.String()),
		slog.String("table", sub.table),
	)
}

// Publish delivers an event to every subscription matching the table and
// kind. Publish never blocks: subscribers with full buffers are skipped.
func (f *Feed) Publish(table string, kind EventKind) {
	ev := Event{Table: table, Kind: kind, KindName: kind.String()}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return
	}

	for _, sub := range f.subs {
		if sub.table != table || sub.mask&kind == 0 {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			// Subscriber is behind; it will reload on the next event it
			// does receive, so dropping here loses nothing.
			f.logger.Warn("changefeed subscriber buffer full, dropping event",
				slog.String("id", sub.ID.String()),
				slog.String("table", table),
			)
		}
	}
}

// Close shuts the feed down, closing every subscriber channel. Further
// Subscribe calls fail with ErrClosed; further Publish calls are no-ops.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true

	for id, sub := range f.subs {
		delete(f.subs, id)
		close(sub.ch)
	}
}
