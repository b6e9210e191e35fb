package changefeed

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

// countingReload tracks invocations and signals each one on a channel.
type countingReload struct {
	calls    atomic.Int64
	notified chan struct{}
}

func newCountingReload() *countingReload {
	return &countingReload{notified: make(chan struct{}, 64)}
}

func (c *countingReload) fn(_ context.Context) error {
	c.calls.Add(1)
	c.notified <- struct{}{}
	return nil
}

func (c *countingReload) waitForCall(t *testing.T) {
	t.Helper()
	select {
	case <-c.notified:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a reload")
	}
}

func TestListener_StartStopLifecycle(t *testing.T) {
	feed := New(testLogger())
	defer feed.Close()

	reload := newCountingReload()
	l := NewListener(feed, "profiles", AllEvents, reload.fn, testLogger())

	if got := l.State(); got != StateUnsubscribed {
		t.Fatalf("initial state = %v, want unsubscribed", got)
	}

	if err := l.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if got := l.State(); got != StateActive {
		t.Errorf("state after Start = %v, want active", got)
	}

	// Start on an active listener is a no-op.
	if err := l.Start(); err != nil {
		t.Errorf("second Start() error = %v, want nil", err)
	}

	l.Stop()
	if got := l.State(); got != StateUnsubscribed {
		t.Errorf("state after Stop = %v, want unsubscribed", got)
	}

	// Stop is idempotent.
	l.Stop()
}

func TestListener_ReloadsOnEvent(t *testing.T) {
	feed := New(testLogger())
	defer feed.Close()

	reload := newCountingReload()
	l := NewListener(feed, "profiles", AllEvents, reload.fn, testLogger())
	if err := l.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer l.Stop()

	feed.Publish("profiles", Insert)
	reload.waitForCall(t)

	if got := reload.calls.Load(); got != 1 {
		t.Errorf("reload ran %d times, want 1", got)
	}
}

func TestListener_IgnoresOtherTables(t *testing.T) {
	feed := New(testLogger())
	defer feed.Close()

	reload := newCountingReload()
	l := NewListener(feed, "profiles", AllEvents, reload.fn, testLogger())
	if err := l.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer l.Stop()

	feed.Publish("blogs", Insert)
	feed.Publish("documents", Delete)

	select {
	case <-reload.notified:
		t.Fatal("reload ran for an unwatched table")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestListener_CoalescesBurstIntoFewerReloads(t *testing.T) {
	feed := New(testLogger())
	defer feed.Close()

	// A slow reload gives the burst time to pile up in the buffer.
	var calls atomic.Int64
	started := make(chan struct{}, 64)
	slowReload := func(_ context.Context) error {
		calls.Add(1)
		started <- struct{}{}
		time.Sleep(50 * time.Millisecond)
		return nil
	}

	l := NewListener(feed, "profiles", AllEvents, slowReload, testLogger())
	if err := l.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer l.Stop()

	feed.Publish("profiles", Insert)
	<-started

	// These arrive while the first reload sleeps and must coalesce.
	const burst = 10
	for i := 0; i < burst; i++ {
		feed.Publish("profiles", Update)
	}

	// Allow the loop to settle.
	deadline := time.After(2 * time.Second)
	for calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("listener never reloaded after the burst")
		case <-time.After(10 * time.Millisecond):
		}
	}
	time.Sleep(150 * time.Millisecond)

	if got := calls.Load(); got >= burst {
		t.Errorf("reload ran %d times for a burst of %d, want coalescing", got, burst)
	}
}

func TestListener_ResubscribesWhenFeedDropsIt(t *testing.T) {
	feed := New(testLogger())
	defer feed.Close()

	reload := newCountingReload()
	l := NewListener(feed, "profiles", AllEvents, reload.fn, testLogger())
	if err := l.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer l.Stop()

	// Drop the listener's subscription out from under it.
	l.mu.Lock()
	sub := l.sub
	l.mu.Unlock()
	feed.Unsubscribe(sub)

	// The listener should resubscribe and keep working.
	deadline := time.After(2 * time.Second)
	for {
		feed.Publish("profiles", Insert)
		select {
		case <-reload.notified:
			return
		case <-deadline:
			t.Fatal("listener never recovered after losing its subscription")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestListener_ParksUnsubscribedWhenFeedCloses(t *testing.T) {
	feed := New(testLogger())

	reload := newCountingReload()
	l := NewListener(feed, "profiles", AllEvents, reload.fn, testLogger())
	if err := l.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	feed.Close()

	deadline := time.After(2 * time.Second)
	for l.State() != StateUnsubscribed {
		select {
		case <-deadline:
			t.Fatalf("state = %v, want unsubscribed after the feed closed", l.State())
		case <-time.After(10 * time.Millisecond):
		}
	}

	l.Stop()
}

// gatedSource hands out channel-backed subscriptions and can hold every
// Subscribe call after the first open on a gate, so a test can order a
// resubscribe against Stop.
type gatedSource struct {
	gate chan struct{}

	mu     sync.Mutex
	calls  int
	active map[*Subscription]bool
}

func newGatedSource(gate chan struct{}) *gatedSource {
	return &gatedSource{gate: gate, active: make(map[*Subscription]bool)}
}

func (g *gatedSource) Subscribe(table string, mask EventKind) (*Subscription, error) {
	g.mu.Lock()
	g.calls++
	calls := g.calls
	g.mu.Unlock()

	if calls > 1 {
		<-g.gate
	}

	sub := &Subscription{
		ID:    uuid.New(),
		table: table,
		mask:  mask,
		ch:    make(chan Event, subscriberBuffer),
	}
	g.mu.Lock()
	g.active[sub] = true
	g.mu.Unlock()
	return sub, nil
}

func (g *gatedSource) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active[sub] {
		delete(g.active, sub)
		close(sub.ch)
	}
}

func (g *gatedSource) subscribeCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func (g *gatedSource) activeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.active)
}

// A subscription registered by a resubscribe that overlaps Stop must still
// be released before Stop returns.
func TestListener_StopReleasesSubscriptionFromRacingResubscribe(t *testing.T) {
	gate := make(chan struct{})
	source := newGatedSource(gate)

	reload := newCountingReload()
	l := NewListener(source, "profiles", AllEvents, reload.fn, testLogger())
	if err := l.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Drop the subscription out from under the loop so it resubscribes;
	// the gate holds that second Subscribe open.
	l.mu.Lock()
	sub := l.sub
	stopCh := l.stop
	l.mu.Unlock()
	source.Unsubscribe(sub)

	deadline := time.After(2 * time.Second)
	for source.subscribeCalls() < 2 {
		select {
		case <-deadline:
			t.Fatal("listener never attempted to resubscribe")
		case <-time.After(5 * time.Millisecond):
		}
	}

	stopped := make(chan struct{})
	go func() {
		l.Stop()
		close(stopped)
	}()

	// Release the resubscribe only once Stop has committed to shutting
	// down, so its fresh subscription lands mid-teardown.
	select {
	case <-stopCh:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop never closed the stop channel")
	}
	close(gate)

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop never returned")
	}

	if got := l.State(); got != StateUnsubscribed {
		t.Errorf("state after Stop = %v, want unsubscribed", got)
	}
	if n := source.activeCount(); n != 0 {
		t.Errorf("%d subscriptions still registered after Stop, want 0", n)
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		StateUnsubscribed: "unsubscribed",
		StateSubscribing:  "subscribing",
		StateActive:       "active",
		StateErrored:      "errored",
		State(42):         "invalid",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}
