package websocket

import (
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Maximum inbound message size. Catalog imports can be large.
	maxMessageSize = 1 << 20

	// Outbound queue length per client before it is considered too slow.
	sendBufferSize = 256
)

// Transport is the part of *websocket.Conn a client uses.
type Transport interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Client is a middleman between one websocket connection and the hub.
type Client struct {
	hub  *Hub
	conn Transport

	// Buffered channel of outbound messages. Only the hub sends on or closes it.
	Send chan []byte

	// ping asks WritePump to send a ping frame.
	ping chan struct{}

	userID string

	// missed counts heartbeats without a pong.
	missed atomic.Int32

	// version is the newest snapshot version delivered. Owned by the hub goroutine.
	version uint64
}

// NewClient creates a client for an authenticated (or anonymous, userID "") connection.
func NewClient(hub *Hub, conn Transport, userID string) *Client {
	c := &Client{
		hub:    hub,
		conn:   conn,
		Send:   make(chan []byte, sendBufferSize),
		ping:   make(chan struct{}, 1),
		userID: userID,
	}
	conn.SetPongHandler(func(string) error {
		c.missed.Store(0)
		return nil
	})
	return c
}

// UserID is the identity captured when the connection was upgraded.
func (c *Client) UserID() string {
	return c.userID
}

// ReadPump pumps messages from the connection to handle until the connection fails.
// It unregisters the client on return.
func (c *Client) ReadPump(handle func(c *Client, message []byte)) {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("user_id", c.userID).Msg("Websocket closed unexpectedly")
			}
			return
		}
		handle(c, message)
	}
}

// WritePump is the only writer on the connection, so messages reach the peer in queue order.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for {
		select {
		case message, ok := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-c.ping:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// requestPing never blocks; a pending ping is enough.
func (c *Client) requestPing() {
	select {
	case c.ping <- struct{}{}:
	default:
	}
}
