package server

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/quizwire/quizwire/quiz"
	"github.com/quizwire/quizwire/trivia"
)

// Watcher reloads quiz files when they change on disk. The reloaded pool is
// handed to the hub over a channel, so the hub goroutine stays the only owner
// of the quizzes map. Sessions already answering keep the subset they drew.
type Watcher struct {
	logger *slog.Logger
	hub    *Hub
	topics map[string]trivia.Topic
	fs     *fsnotify.Watcher
}

// NewWatcher starts watching the quiz file for each topic.
func NewWatcher(logger *slog.Logger, hub *Hub, paths map[trivia.Topic]string) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		logger: logger,
		hub:    hub,
		topics: make(map[string]trivia.Topic, len(paths)),
		fs:     fs,
	}
	for topic, path := range paths {
		if err := fs.Add(path); err != nil {
			fs.Close()
			return nil, err
		}
		w.topics[filepath.Clean(path)] = topic
	}
	return w, nil
}

// Run forwards reloads until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	defer w.fs.Close()

	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			topic, ok := w.topics[filepath.Clean(ev.Name)]
			if !ok {
				continue
			}
			q, err := quiz.Load(ev.Name)
			if err != nil {
				w.logger.Warn("quiz reload failed",
					slog.String("path", ev.Name),
					slog.String("error", err.Error()))
				continue
			}
			select {
			case w.hub.reloads <- reload{topic: topic, quiz: q}:
			case <-w.hub.done:
				return
			case <-ctx.Done():
				return
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", slog.String("error", err.Error()))
		case <-ctx.Done():
			return
		}
	}
}
