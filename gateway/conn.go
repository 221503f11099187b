// Package gateway exposes the realtime websocket surface and the REST
// routes. It is thin glue: all decisions live in the services and the
// runtime packages.
package gateway

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"pulsechat/contract"
	"pulsechat/domain/event"
)

// frame is the wire envelope for every emitted event.
type frame struct {
	Event string            `json:"event"`
	Data  event.DomainEvent `json:"data"`
}

// Ensure *wsConn implements contract.Conn at compile time.
var _ contract.Conn = (*wsConn)(nil)

// wsConn adapts one websocket to the Conn contract. Outbound events go
// through a buffered channel drained by a single writer goroutine, since
// gorilla/websocket allows only one concurrent writer.
type wsConn struct {
	id          string
	socket      *websocket.Conn
	out         chan frame
	closed      chan struct{}
	closeOnce   sync.Once
	sendTimeout time.Duration
}

func newWSConn(socket *websocket.Conn, bufferSize int, sendTimeout time.Duration) *wsConn {
	c := &wsConn{
		id:          uuid.New().String(),
		socket:      socket,
		out:         make(chan frame, bufferSize),
		closed:      make(chan struct{}),
		sendTimeout: sendTimeout,
	}
	go c.writePump()
	return c
}

func (c *wsConn) ID() string { return c.id }

// Send enqueues an event for the writer goroutine. It fails rather than
// block forever when the peer stops reading; the router treats that as an
// implicit disconnect.
func (c *wsConn) Send(e event.DomainEvent) error {
	select {
	case <-c.closed:
		return fmt.Errorf("connection %s is closed", c.id)
	case c.out <- frame{Event: e.Name(), Data: e}:
		return nil
	case <-time.After(c.sendTimeout):
		return fmt.Errorf("send timeout on connection %s", c.id)
	}
}

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.socket.Close()
	})
	return nil
}

func (c *wsConn) writePump() {
	for {
		select {
		case <-c.closed:
			return
		case f := <-c.out:
			if err := c.socket.WriteJSON(f); err != nil {
				_ = c.Close()
				return
			}
		}
	}
}
