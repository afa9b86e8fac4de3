package server

import (
	"errors"
	"io"
	"log/slog"
	"net"

	"github.com/google/uuid"

	"github.com/quizwire/quizwire/protocol"
)

// sendBuffer is how many outgoing messages may queue per connection before the
// hub considers the client too slow and drops it.
const sendBuffer = 32

// Client wraps one accepted TCP connection. The read pump decodes exactly one
// protocol message at a time and forwards it to the hub; the write pump drains
// the send channel onto the socket. All game state for the connection lives in
// the hub's session table, keyed by the client id.
type Client struct {
	id     uuid.UUID
	conn   net.Conn
	hub    *Hub
	logger *slog.Logger

	// send is closed by the hub when the connection is dropped; the write
	// pump flushes whatever is still queued, then closes the socket.
	send chan protocol.Message
}

func newClient(conn net.Conn, hub *Hub, logger *slog.Logger) *Client {
	return &Client{
		id:     uuid.New(),
		conn:   conn,
		hub:    hub,
		logger: logger.With(slog.String("remote", conn.RemoteAddr().String())),
		send:   make(chan protocol.Message, sendBuffer),
	}
}

// readPump decodes messages off the socket and hands them to the hub until the
// connection dies. Orderly close, reset, and malformed frames are treated
// uniformly as disconnect.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
	}()

	for {
		var msg protocol.Message
		if err := protocol.Read(c.conn, &msg); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				c.logger.Debug("read failed", slog.String("error", err.Error()))
			}
			return
		}

		select {
		case c.hub.inbound <- inbound{client: c, msg: msg}:
		case <-c.hub.done:
			return
		}
	}
}

// writePump serialises queued messages onto the socket in order. It owns the
// socket close: once the send channel is drained after the hub closed it, the
// connection goes down and the read pump unblocks.
func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := protocol.Write(c.conn, msg); err != nil {
			c.logger.Debug("write failed",
				slog.String("type", msg.Type.String()),
				slog.String("error", err.Error()))
			return
		}
	}
}
