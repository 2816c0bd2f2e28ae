package ws

import (
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeDeadline  = 10 * time.Second
	pongDeadline   = 60 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 64 * 1024
)

// Client is one connected agent socket.
type Client struct {
	ID   string
	conn *websocket.Conn
	send chan any
}

func NewClient(conn *websocket.Conn) *Client {
	return &Client{
		ID:   uuid.NewString(),
		conn: conn,
		send: make(chan any, 256),
	}
}

// Send queues a payload for delivery, dropping it if the client's buffer is
// full.
func (c *Client) Send(v any) {
	select {
	case c.send <- v:
	default:
	}
}

// Close unblocks the write pump.
func (c *Client) Close() {
	close(c.send)
}

// Outbox exposes the queued payloads the write pump drains.
func (c *Client) Outbox() <-chan any {
	return c.send
}

// ReadLoop delivers each inbound text frame to handle until the socket
// errors or closes.
func (c *Client) ReadLoop(handle func(data []byte)) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongDeadline))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongDeadline))
	})

	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		handle(data)
	}
}

// WritePump serializes queued payloads onto the socket and keeps the
// connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case v, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(time.Second))
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			b, err := json.Marshal(v)
			if err != nil {
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(time.Second)); err != nil {
				return
			}
		}
	}
}
