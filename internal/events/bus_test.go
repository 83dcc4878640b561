package events

import (
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func newTestBus(cfg Config) *Bus {
	return NewBus(cfg, log.New(io.Discard))
}

func recv(t *testing.T, sub *Subscriber) Event {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		if !ok {
			t.Fatal("stream closed early")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an event")
	}
	return Event{}
}

func recvClosed(t *testing.T, sub *Subscriber) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-sub.Events():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for the stream to close")
		}
	}
}

func TestPublishOrdering(t *testing.T) {
	bus := newTestBus(DefaultConfig())
	sub := bus.Subscribe("g1", "c1")
	defer sub.Close()

	const n = 100
	go func() {
		for i := 0; i < n; i++ {
			bus.Publish("g1", "move", i)
		}
	}()

	for i := 0; i < n; i++ {
		ev := recv(t, sub)
		if ev.Seq != uint64(i+1) {
			t.Fatalf("event %d has seq %d", i, ev.Seq)
		}
		if ev.Payload.(int) != i {
			t.Fatalf("event %d carries payload %v", i, ev.Payload)
		}
	}
}

func TestSequencesArePerGame(t *testing.T) {
	bus := newTestBus(DefaultConfig())

	for i := 1; i <= 3; i++ {
		if seq := bus.Publish("g1", "move", nil); seq != uint64(i) {
			t.Errorf("g1 publish %d got seq %d", i, seq)
		}
	}
	if seq := bus.Publish("g2", "move", nil); seq != 1 {
		t.Errorf("g2 starts at seq %d", seq)
	}
}

func TestSubscribeStartsAtNextEvent(t *testing.T) {
	bus := newTestBus(DefaultConfig())
	bus.Publish("g1", "move", "before")

	sub := bus.Subscribe("g1", "late")
	defer sub.Close()
	bus.Publish("g1", "move", "after")

	ev := recv(t, sub)
	if ev.Seq != 2 || ev.Payload != "after" {
		t.Errorf("late subscriber got %+v", ev)
	}
}

func TestIdleSubscriberDoesNotBlockOthers(t *testing.T) {
	bus := newTestBus(DefaultConfig())
	fast := bus.Subscribe("g1", "fast")
	defer fast.Close()
	idle := bus.Subscribe("g1", "idle")
	defer idle.Close()

	for i := 0; i < 10; i++ {
		bus.Publish("g1", "move", i)
	}
	for i := 0; i < 10; i++ {
		if ev := recv(t, fast); ev.Seq != uint64(i+1) {
			t.Fatalf("fast subscriber got seq %d at position %d", ev.Seq, i)
		}
	}
}

func TestSnapshotCoalescing(t *testing.T) {
	bus := newTestBus(Config{SoftLimit: 1, HardLimit: 256})
	sub := bus.Subscribe("g1", "slow")
	defer sub.Close()

	bus.Publish("g1", "move", nil)
	for i := 0; i < 3; i++ {
		bus.Publish("g1", SnapshotType, fmt.Sprintf("snap-%d", i))
	}

	if ev := recv(t, sub); ev.Type != "move" || ev.Seq != 1 {
		t.Fatalf("expected the move first, got %+v", ev)
	}
	// Of the three snapshots only the newest survives.
	if ev := recv(t, sub); ev.Type != SnapshotType || ev.Seq != 4 {
		t.Fatalf("expected the latest snapshot, got %+v", ev)
	}

	bus.Publish("g1", "move", nil)
	if ev := recv(t, sub); ev.Seq != 5 {
		t.Fatalf("stale events left in the queue, got %+v", ev)
	}
}

func TestHardLimitDropsSubscriber(t *testing.T) {
	bus := newTestBus(Config{SoftLimit: 2, HardLimit: 4})
	sub := bus.Subscribe("g1", "stuck")

	// Non-coalescable events past the hard limit. The subscriber never
	// reads, so it must be cut loose.
	for i := 0; i < 7; i++ {
		bus.Publish("g1", "move", i)
	}

	recvClosed(t, sub)
	if !errors.Is(sub.Err(), ErrSlowConsumer) {
		t.Errorf("expected ErrSlowConsumer, got %v", sub.Err())
	}

	// The topic keeps working for everyone else.
	if seq := bus.Publish("g1", "move", nil); seq != 8 {
		t.Errorf("expected seq 8 after the drop, got %d", seq)
	}
}

func TestCloseGameDrainsQueuedEvents(t *testing.T) {
	bus := newTestBus(DefaultConfig())
	sub := bus.Subscribe("g1", "c1")

	for i := 0; i < 3; i++ {
		bus.Publish("g1", "move", i)
	}
	bus.CloseGame("g1")

	for i := 0; i < 3; i++ {
		if ev := recv(t, sub); ev.Seq != uint64(i+1) {
			t.Fatalf("drain out of order: %+v", ev)
		}
	}
	recvClosed(t, sub)
	if sub.Err() != nil {
		t.Errorf("graceful close reported %v", sub.Err())
	}
}

func TestCloseGameDeadlineCutsOffStalledDrain(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DrainTimeout = 50 * time.Millisecond
	bus := newTestBus(cfg)
	sub := bus.Subscribe("g1", "c1")

	for i := 0; i < 3; i++ {
		bus.Publish("g1", "move", i)
	}
	// The consumer never reads. Without the deadline the delivery
	// goroutine would sit on its send forever; past it the queue is
	// forfeit and the stream closes undelivered.
	bus.CloseGame("g1")
	time.Sleep(4 * cfg.DrainTimeout)

	select {
	case ev, ok := <-sub.Events():
		if ok {
			t.Fatalf("expected the stream cut off past the drain deadline, got %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream still open past the drain deadline")
	}
}

func TestCloseDetaches(t *testing.T) {
	bus := newTestBus(DefaultConfig())
	sub := bus.Subscribe("g1", "c1")
	sub.Close()
	recvClosed(t, sub)

	bus.Publish("g1", "move", nil)
	if sub.Err() != nil {
		t.Errorf("client close reported %v", sub.Err())
	}
}
