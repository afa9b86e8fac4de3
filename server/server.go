// Package server implements the trivia game server: a TCP accept loop feeding
// a single hub goroutine that owns the player registry, the per-connection
// session table, and the protocol state machine.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/quizwire/quizwire/quiz"
	"github.com/quizwire/quizwire/trivia"
)

// Server ties the listener to the hub.
type Server struct {
	logger *slog.Logger
	hub    *Hub
}

// New builds a server around an already-populated registry and the loaded
// question pools, one per topic.
func New(logger *slog.Logger, registry *trivia.Registry, quizzes map[trivia.Topic]*quiz.Quiz) *Server {
	return &Server{
		logger: logger,
		hub:    NewHub(logger, registry, quizzes),
	}
}

// Hub exposes the event loop, for wiring collaborators like the quiz file
// watcher.
func (s *Server) Hub() *Hub {
	return s.hub
}

// ListenAndServe binds addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen on %s: %w", addr, err)
	}
	s.logger.Info("listening", slog.String("addr", ln.Addr().String()))
	return s.Serve(ctx, ln)
}

// Serve runs the hub and accepts connections from ln until ctx is cancelled.
// Individual accept failures are logged and the loop continues; only listener
// teardown ends it.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go s.hub.Run(ctx)
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn("accept failed", slog.String("error", err.Error()))
			continue
		}

		c := newClient(conn, s.hub, s.logger)
		select {
		case s.hub.register <- c:
		case <-s.hub.done:
			conn.Close()
			return nil
		}
		go c.readPump()
		go c.writePump()
	}
}
