package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn records written frames and blocks reads until closed.
type fakeConn struct {
	mu      sync.Mutex
	written [][]byte
	pings   int
	closed  bool
	pong    func(string) error
	closeCh chan struct{}
	once    sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{closeCh: make(chan struct{})}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	<-f.closeCh
	return 0, nil, errors.New("closed")
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("closed")
	}
	switch messageType {
	case websocket.TextMessage:
		f.written = append(f.written, data)
	case websocket.PingMessage:
		f.pings++
	}
	return nil
}

func (f *fakeConn) SetWriteDeadline(time.Time) error    { return nil }
func (f *fakeConn) SetReadLimit(int64)                  {}
func (f *fakeConn) SetPongHandler(h func(string) error) { f.pong = h }

func (f *fakeConn) Close() error {
	f.once.Do(func() {
		f.mu.Lock()
		f.closed = true
		f.mu.Unlock()
		close(f.closeCh)
	})
	return nil
}

func (f *fakeConn) messages() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.written...)
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func startHub(t *testing.T, initial InitialState) *Hub {
	t.Helper()
	h := NewHub(initial, 0)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h
}

func connect(t *testing.T, h *Hub, userID string) (*Client, *fakeConn) {
	t.Helper()
	conn := newFakeConn()
	c := NewClient(h, conn, userID)
	go c.WritePump()
	require.True(t, h.Join(c))
	return c, conn
}

func TestInitialStateIsSentOnRegister(t *testing.T) {
	h := startHub(t, func(userID string) ([]byte, uint64) {
		return NewMessage(TypeInitialData, map[string]string{"user": userID}), 3
	})

	_, conn := connect(t, h, "u1")

	require.Eventually(t, func() bool { return len(conn.messages()) == 1 }, time.Second, 5*time.Millisecond)
	var msg Message
	require.NoError(t, json.Unmarshal(conn.messages()[0], &msg))
	assert.Equal(t, TypeInitialData, msg.Type)
	assert.JSONEq(t, `{"user":"u1"}`, string(msg.Payload))
}

func TestBroadcastPreservesOrderPerClient(t *testing.T) {
	h := startHub(t, nil)
	_, c1 := connect(t, h, "u1")
	_, c2 := connect(t, h, "u2")

	for i := 1; i <= 50; i++ {
		h.Publish(Outbound{Data: []byte(fmt.Sprintf("%d", i))})
	}

	for _, conn := range []*fakeConn{c1, c2} {
		require.Eventually(t, func() bool { return len(conn.messages()) == 50 }, time.Second, 5*time.Millisecond)
		for i, m := range conn.messages() {
			assert.Equal(t, fmt.Sprintf("%d", i+1), string(m))
		}
	}
}

func TestBroadcastRendersPerViewer(t *testing.T) {
	h := startHub(t, nil)
	_, alice := connect(t, h, "alice")
	_, bob := connect(t, h, "bob")

	h.Publish(Outbound{Render: func(userID string) []byte { return []byte("for " + userID) }})

	require.Eventually(t, func() bool { return len(alice.messages()) == 1 && len(bob.messages()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "for alice", string(alice.messages()[0]))
	assert.Equal(t, "for bob", string(bob.messages()[0]))
}

func TestStaleVersionsAreSkipped(t *testing.T) {
	h := startHub(t, func(string) ([]byte, uint64) { return []byte("initial"), 5 })
	_, conn := connect(t, h, "u1")

	h.Publish(Outbound{Version: 4, Data: []byte("old")})
	h.Publish(Outbound{Version: 6, Data: []byte("new")})

	require.Eventually(t, func() bool { return len(conn.messages()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "initial", string(conn.messages()[0]))
	assert.Equal(t, "new", string(conn.messages()[1]))
}

func TestSendToTargetsOneClient(t *testing.T) {
	h := startHub(t, nil)
	c1, conn1 := connect(t, h, "u1")
	_, conn2 := connect(t, h, "u2")

	h.SendTo(c1, NewErrorMessage("nope"))

	require.Eventually(t, func() bool { return len(conn1.messages()) == 1 }, time.Second, 5*time.Millisecond)
	assert.JSONEq(t, `{"type":"error","payload":"nope"}`, string(conn1.messages()[0]))
	assert.Empty(t, conn2.messages())
}

func TestSendAndCloseDisconnectsAfterMessage(t *testing.T) {
	h := startHub(t, nil)
	c1, conn1 := connect(t, h, "u1")
	_, conn2 := connect(t, h, "u2")

	h.SendAndClose(c1, NewErrorMessage("session expired"))

	require.Eventually(t, conn1.isClosed, time.Second, 5*time.Millisecond)
	require.Len(t, conn1.messages(), 1)
	assert.JSONEq(t, `{"type":"error","payload":"session expired"}`, string(conn1.messages()[0]))
	assert.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, conn2.isClosed())
}

func TestHeartbeatRemovesUnresponsiveClient(t *testing.T) {
	h := NewHub(nil, 0)
	conn := newFakeConn()
	c := NewClient(h, conn, "u1")
	h.clients[c] = true

	h.probe()
	h.probe()
	assert.True(t, h.clients[c], "two unanswered heartbeats are tolerated")

	h.probe()
	assert.False(t, h.clients[c])
	assert.True(t, conn.isClosed())
	_, open := <-c.Send
	assert.False(t, open)
}

func TestPongKeepsClientAlive(t *testing.T) {
	h := NewHub(nil, 0)
	conn := newFakeConn()
	c := NewClient(h, conn, "u1")
	h.clients[c] = true

	for i := 0; i < 5; i++ {
		h.probe()
		require.NoError(t, conn.pong(""))
	}
	assert.True(t, h.clients[c])
	assert.False(t, conn.isClosed())
}

func TestSlowClientIsDropped(t *testing.T) {
	h := NewHub(nil, 0)
	c := NewClient(h, newFakeConn(), "u1")
	h.clients[c] = true

	for i := 0; i <= sendBufferSize; i++ {
		h.fanOut(Outbound{Data: []byte("x")})
	}
	assert.False(t, h.clients[c])
}

func TestReadPumpUnregistersOnClose(t *testing.T) {
	h := startHub(t, nil)
	c, conn := connect(t, h, "u1")
	go c.ReadPump(func(*Client, []byte) {})

	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	conn.Close()
	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}
