package server

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/quizwire/quizwire/protocol"
	"github.com/quizwire/quizwire/quiz"
	"github.com/quizwire/quizwire/trivia"
)

// inbound pairs a decoded message with the connection it arrived on.
type inbound struct {
	client *Client
	msg    protocol.Message
}

// reload carries a freshly loaded question pool from the file watcher into the
// hub goroutine.
type reload struct {
	topic trivia.Topic
	quiz  *quiz.Quiz
}

// Hub is the single owner of all shared game state: the player registry, the
// session table, and the set of live connections. Everything reaches it
// through channels, so no locking is needed anywhere in the game logic.
type Hub struct {
	logger   *slog.Logger
	registry *trivia.Registry
	quizzes  map[trivia.Topic]*quiz.Quiz

	clients  map[uuid.UUID]*Client
	sessions map[uuid.UUID]*session

	register   chan *Client
	unregister chan *Client
	inbound    chan inbound
	reloads    chan reload

	// done is closed when Run returns; client pumps select on it so they can
	// never block on a hub that has already shut down.
	done chan struct{}
}

// NewHub wires a hub around the registry and the loaded question pools. Run
// must be started before any client is registered.
func NewHub(logger *slog.Logger, registry *trivia.Registry, quizzes map[trivia.Topic]*quiz.Quiz) *Hub {
	return &Hub{
		logger:     logger,
		registry:   registry,
		quizzes:    quizzes,
		clients:    make(map[uuid.UUID]*Client),
		sessions:   make(map[uuid.UUID]*session),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inbound),
		reloads:    make(chan reload),
		done:       make(chan struct{}),
	}
}

// Run is the hub's event loop. It services one event at a time: registration
// of an accepted connection, teardown, one decoded message, a quiz reload, or
// shutdown. Messages from a single connection are handled strictly in arrival
// order; nothing here may block on client I/O.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case c := <-h.register:
			h.clients[c.id] = c
			h.sessions[c.id] = newSession()
			h.logger.Info("client connected", slog.String("client", c.id.String()))
		case c := <-h.unregister:
			h.drop(c)
		case in := <-h.inbound:
			h.handleMessage(in.client, in.msg)
		case r := <-h.reloads:
			h.quizzes[r.topic] = r.quiz
			h.logger.Info("quiz reloaded",
				slog.String("topic", r.quiz.Topic),
				slog.Int("questions", len(r.quiz.Questions)))
		case <-ctx.Done():
			h.shutdown()
			return
		}
	}
}

// sendTo queues a message for one client. A client whose send buffer is full
// is considered dead and dropped; a stalled peer must not stall the loop.
func (h *Hub) sendTo(c *Client, msg protocol.Message) {
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
		h.logger.Warn("send buffer full, dropping client", slog.String("client", c.id.String()))
		h.drop(c)
	}
}

// drop tears one connection down: the session is released, the player record
// (if any) is marked disconnected so the nickname can resume later, and the
// send channel is closed so the write pump flushes and closes the socket.
// Safe to call more than once for the same client.
func (h *Hub) drop(c *Client) {
	if _, ok := h.clients[c.id]; !ok {
		return
	}

	if sess := h.sessions[c.id]; sess != nil && sess.nickname != "" {
		h.registry.SetConnected(sess.nickname, false)
	}
	delete(h.sessions, c.id)
	delete(h.clients, c.id)
	close(c.send)
	h.logger.Info("client disconnected", slog.String("client", c.id.String()))
}

// shutdown broadcasts a disconnect notice to every live connection on a best
// effort basis, then tears them all down. Failure to queue the notice for one
// client never blocks the shutdown of the others.
func (h *Hub) shutdown() {
	h.logger.Info("shutting down", slog.Int("clients", len(h.clients)))
	close(h.done)

	notice := protocol.NewMessage(protocol.MsgDisconnect, "Server shutting down")
	for _, c := range h.clients {
		select {
		case c.send <- notice:
		default:
		}
	}
	for _, c := range h.clients {
		h.drop(c)
	}
}
