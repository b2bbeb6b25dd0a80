package websocket

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// maxMissedHeartbeats is how many unanswered pings a client may accumulate before removal.
const maxMissedHeartbeats = 2

// Outbound is a message fanned out to every connected client.
type Outbound struct {
	// Version orders state pushes. Clients never receive a version older than one
	// they already have. Zero disables the check.
	Version uint64

	// Data is sent as is when Render is nil.
	Data []byte

	// Render builds the message for one viewer. It is called once per distinct user id.
	Render func(userID string) []byte
}

// InitialState renders the first message for a newly registered viewer and the
// snapshot version it reflects.
type InitialState func(userID string) ([]byte, uint64)

type direct struct {
	client *Client
	data   []byte
	// close disconnects the client once data is queued.
	close bool
}

// Hub maintains the set of active clients and broadcasts messages to them.
// All client bookkeeping happens on the Run goroutine.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Messages for every client.
	Broadcast chan Outbound

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	unicast chan direct

	initial   InitialState
	heartbeat time.Duration

	count atomic.Int64
	done  chan struct{}
}

// NewHub creates a new Hub. A zero heartbeat disables liveness probing.
func NewHub(initial InitialState, heartbeat time.Duration) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		Broadcast:  make(chan Outbound, 64),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		unicast:    make(chan direct, 64),
		initial:    initial,
		heartbeat:  heartbeat,
		done:       make(chan struct{}),
	}
}

// Run starts the Hub's message processing loop. It returns when ctx is cancelled,
// closing every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	var tick <-chan time.Time
	if h.heartbeat > 0 {
		ticker := time.NewTicker(h.heartbeat)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.remove(client)
			}
			log.Info().Msg("Websocket hub stopped")
			return
		case client := <-h.Register:
			h.clients[client] = true
			h.count.Store(int64(len(h.clients)))
			log.Info().Str("user_id", client.userID).Int("total_clients", len(h.clients)).Msg("Client connected")
			if h.initial != nil {
				data, version := h.initial(client.userID)
				client.version = version
				h.deliver(client, data)
			}
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				h.remove(client)
				log.Info().Str("user_id", client.userID).Int("total_clients", len(h.clients)).Msg("Client disconnected")
			}
		case msg := <-h.Broadcast:
			h.fanOut(msg)
		case d := <-h.unicast:
			if _, ok := h.clients[d.client]; ok {
				h.deliver(d.client, d.data)
				if d.close {
					h.remove(d.client)
					log.Info().Str("user_id", d.client.userID).Msg("Client disconnected by server")
				}
			}
		case <-tick:
			h.probe()
		}
	}
}

// Publish queues msg for every client. Messages published by one goroutine reach each
// client in publish order.
func (h *Hub) Publish(msg Outbound) {
	select {
	case h.Broadcast <- msg:
	case <-h.done:
	}
}

// SendTo queues data for a single client. Unicasts keep their order among themselves,
// but are not ordered relative to Publish.
func (h *Hub) SendTo(client *Client, data []byte) {
	select {
	case h.unicast <- direct{client: client, data: data}:
	case <-h.done:
	}
}

// SendAndClose queues data for a single client and then disconnects it.
// Messages already queued for the client are still written.
func (h *Hub) SendAndClose(client *Client, data []byte) {
	select {
	case h.unicast <- direct{client: client, data: data, close: true}:
	case <-h.done:
	}
}

// ClientCount is the number of registered clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// Join registers a client. It reports false when the hub has stopped.
func (h *Hub) Join(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregister(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) fanOut(msg Outbound) {
	rendered := map[string][]byte{}
	for client := range h.clients {
		if msg.Version != 0 && msg.Version <= client.version {
			continue
		}
		data := msg.Data
		if msg.Render != nil {
			var ok bool
			if data, ok = rendered[client.userID]; !ok {
				data = msg.Render(client.userID)
				rendered[client.userID] = data
			}
		}
		if msg.Version != 0 {
			client.version = msg.Version
		}
		h.deliver(client, data)
	}
}

// deliver never blocks the hub; a client whose queue is full is dropped.
func (h *Hub) deliver(client *Client, data []byte) {
	if data == nil {
		return
	}
	select {
	case client.Send <- data:
	default:
		log.Warn().Str("user_id", client.userID).Msg("Dropping slow websocket client")
		h.remove(client)
	}
}

// probe pings every client and drops those that missed too many heartbeats.
func (h *Hub) probe() {
	for client := range h.clients {
		if client.missed.Load() >= maxMissedHeartbeats {
			log.Info().Str("user_id", client.userID).Msg("Removing unresponsive websocket client")
			h.remove(client)
			client.conn.Close()
			continue
		}
		client.missed.Add(1)
		client.requestPing()
	}
}

func (h *Hub) remove(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)
	h.count.Store(int64(len(h.clients)))
}
