package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	h := NewHub(log)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	return h, cancel
}

// registerAndWait registers a client and blocks until the hub has absorbed it.
func registerAndWait(t *testing.T, h *Hub, c *Client, want int64) {
	t.Helper()

	h.Register(c)

	deadline := time.Now().Add(2 * time.Second)
	for h.Count() != want {
		if time.Now().After(deadline) {
			t.Fatalf("hub count stuck at %d, want %d", h.Count(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPublishRoutesByTenant(t *testing.T) {
	h, cancel := testHub(t)
	defer cancel()

	acme := NewClient(h, nil, "tenant-acme")
	globex := NewClient(h, nil, "tenant-globex")
	registerAndWait(t, h, acme, 1)
	registerAndWait(t, h, globex, 2)

	h.Publish("tenant-acme", "provisioning.completed", map[string]string{"job_id": "job-1"})

	select {
	case msg := <-acme.send:
		var ev Event
		if err := json.Unmarshal(msg, &ev); err != nil {
			t.Fatalf("decoding event: %v", err)
		}
		if ev.Type != "provisioning.completed" {
			t.Errorf("type = %q", ev.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("acme client never received the event")
	}

	select {
	case msg := <-globex.send:
		t.Fatalf("globex received another tenant's event: %s", msg)
	default:
	}
}

func TestUnregisterStopsDelivery(t *testing.T) {
	h, cancel := testHub(t)
	defer cancel()

	c := NewClient(h, nil, "tenant-acme")
	registerAndWait(t, h, c, 1)

	h.Unregister(c)
	deadline := time.Now().Add(2 * time.Second)
	for h.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("hub count stuck at %d after unregister", h.Count())
		}
		time.Sleep(5 * time.Millisecond)
	}

	// The send channel is closed on unregister, so WritePump unblocks.
	if _, ok := <-c.send; ok {
		t.Error("send channel still open after unregister")
	}
}

func TestShutdownClosesClients(t *testing.T) {
	h, cancel := testHub(t)

	c := NewClient(h, nil, "tenant-acme")
	registerAndWait(t, h, c, 1)

	cancel()

	select {
	case _, ok := <-c.send:
		if ok {
			t.Error("expected closed send channel on shutdown")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("send channel not closed on shutdown")
	}
}
