// Package ws implements the WebSocket hub streaming audit and provisioning
// events to connected tenants.
package ws

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tenantguardhq/tenantguard/internal/metrics"
)

// Hub channel buffer sizes.
const (
	broadcastBuffer = 256
	registerBuffer  = 64
)

// Connection caps.
const (
	maxConnections          = 1000
	maxConnectionsPerTenant = 50
)

// tenantBroadcast is sent through the broadcast channel to the Run goroutine.
type tenantBroadcast struct {
	tenantID string
	msg      []byte
}

// Hub manages active WebSocket clients and broadcasts tenant-scoped events.
// All client map mutations happen exclusively in the Run goroutine.
type Hub struct {
	clients     map[*Client]bool
	tenantCount map[string]int
	register    chan *Client
	unregister  chan *Client
	broadcast   chan tenantBroadcast
	count       atomic.Int64
	log         *logrus.Logger
}

// NewHub creates a new Hub instance.
func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		tenantCount: make(map[string]int),
		register:    make(chan *Client, registerBuffer),
		unregister:  make(chan *Client, registerBuffer),
		broadcast:   make(chan tenantBroadcast, broadcastBuffer),
		log:         log,
	}
}

// Run starts the hub event loop. It should be run as a goroutine and exits
// when the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				client.closeSend()
			}
			return

		case client := <-h.register:
			if len(h.clients) >= maxConnections {
				h.log.Warn("global connection limit reached, dropping client")
				client.closeSend()
				continue
			}
			if h.tenantCount[client.TenantID] >= maxConnectionsPerTenant {
				h.log.WithField("tenant_id", client.TenantID).Warn("per-tenant connection limit reached, dropping client")
				client.closeSend()
				continue
			}
			h.clients[client] = true
			h.tenantCount[client.TenantID]++
			h.count.Store(int64(len(h.clients)))
			metrics.WSConnections.Set(float64(len(h.clients)))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closeSend()
				h.tenantCount[client.TenantID]--
				if h.tenantCount[client.TenantID] <= 0 {
					delete(h.tenantCount, client.TenantID)
				}
			}
			h.count.Store(int64(len(h.clients)))
			metrics.WSConnections.Set(float64(len(h.clients)))

		case b := <-h.broadcast:
			for client := range h.clients {
				if client.TenantID != b.tenantID {
					continue
				}
				select {
				case client.send <- b.msg:
				default:
					// Slow consumer; drop it rather than block the hub.
					delete(h.clients, client)
					client.closeSend()
					h.tenantCount[client.TenantID]--
					if h.tenantCount[client.TenantID] <= 0 {
						delete(h.tenantCount, client.TenantID)
					}
				}
			}
		}
	}
}

// Register queues a client for registration.
func (h *Hub) Register(c *Client) {
	h.register <- c
}

// Unregister queues a client for removal.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	default:
	}
}

// Count returns the number of active connections.
func (h *Hub) Count() int64 {
	return h.count.Load()
}

// Publish serializes an event and broadcasts it to the tenant's connections.
// Best-effort: if the broadcast queue is full the event is dropped.
func (h *Hub) Publish(tenantID, eventType string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		h.log.WithError(err).Warn("failed to marshal event payload")
		return
	}

	msg, err := json.Marshal(Event{Type: eventType, Data: payload, Time: time.Now().UTC()})
	if err != nil {
		h.log.WithError(err).Warn("failed to marshal event")
		return
	}

	select {
	case h.broadcast <- tenantBroadcast{tenantID: tenantID, msg: msg}:
	default:
		h.log.WithField("type", eventType).Warn("event broadcast queue full, dropping event")
	}
}
