package inspector

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func decode(t *testing.T, msg []byte) Snapshot {
	t.Helper()
	var s Snapshot
	if err := json.Unmarshal(msg, &s); err != nil {
		t.Fatalf("decoding snapshot: %v", err)
	}
	return s
}

func TestHubRegisterGetsLatest(t *testing.T) {
	h := NewHub(4)
	if h.Latest() != nil {
		t.Fatal("new hub has a latest snapshot")
	}
	if err := h.Broadcast(Snapshot{Tick: 3}); err != nil {
		t.Fatal(err)
	}

	_, ch := h.Register()
	select {
	case msg := <-ch:
		if got := decode(t, msg).Tick; got != 3 {
			t.Errorf("first message tick = %d, want 3", got)
		}
	default:
		t.Fatal("latest snapshot not queued on register")
	}
}

func TestHubSlowSubscriberDrops(t *testing.T) {
	h := NewHub(2)
	_, ch := h.Register()
	for tick := int32(1); tick <= 5; tick++ {
		if err := h.Broadcast(Snapshot{Tick: tick}); err != nil {
			t.Fatal(err)
		}
	}
	if len(ch) != 2 {
		t.Fatalf("queued = %d, want 2", len(ch))
	}
	if got := decode(t, <-ch).Tick; got != 1 {
		t.Errorf("oldest queued tick = %d, want 1", got)
	}
	if got := decode(t, h.Latest()).Tick; got != 5 {
		t.Errorf("Latest tick = %d, want 5", got)
	}
}

func TestHubUnregisterCloses(t *testing.T) {
	h := NewHub(1)
	id, ch := h.Register()
	if h.SubscriberCount() != 1 {
		t.Fatalf("SubscriberCount = %d, want 1", h.SubscriberCount())
	}
	h.Unregister(id)
	h.Unregister(id)
	if _, ok := <-ch; ok {
		t.Error("channel still open after Unregister")
	}
	if h.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount = %d, want 0", h.SubscriberCount())
	}
}

func TestHubRun(t *testing.T) {
	h := NewHub(4)
	_, ch := h.Register()
	in := make(chan Snapshot)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		h.Run(ctx, in)
		close(done)
	}()

	in <- Snapshot{Tick: 9}
	select {
	case msg := <-ch:
		if got := decode(t, msg).Tick; got != 9 {
			t.Errorf("tick = %d, want 9", got)
		}
	case <-time.After(time.Second):
		t.Fatal("snapshot not broadcast")
	}

	close(in)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after input closed")
	}
}
