package trivia

import (
	"errors"
	"sort"
)

var (
	// ErrNicknameTaken is returned by Create when a record already exists for
	// the nickname.
	ErrNicknameTaken = errors.New("trivia: nickname already taken")

	// ErrRegistryFull is returned by Create when the registry has reached its
	// player capacity.
	ErrRegistryFull = errors.New("trivia: registry at capacity")
)

// Registry is the shared nickname -> player directory. It is owned by the
// server hub and must only be touched from the hub goroutine; it carries no
// locking of its own.
type Registry struct {
	players  map[string]*Player
	capacity int
}

// NewRegistry creates an empty registry bounded at capacity players.
func NewRegistry(capacity int) *Registry {
	return &Registry{
		players:  make(map[string]*Player),
		capacity: capacity,
	}
}

// Lookup returns the record for nickname, if one exists.
func (r *Registry) Lookup(nickname string) (*Player, bool) {
	p, ok := r.players[nickname]
	return p, ok
}

// Create adds a record for nickname with zero scores, nothing completed, and
// the connected flag set. ErrNicknameTaken and ErrRegistryFull are distinct
// conditions for the caller to surface differently.
func (r *Registry) Create(nickname string) (*Player, error) {
	if _, ok := r.players[nickname]; ok {
		return nil, ErrNicknameTaken
	}
	if len(r.players) >= r.capacity {
		return nil, ErrRegistryFull
	}
	p := newPlayer(nickname)
	r.players[nickname] = p
	return p, nil
}

// Remove deletes the record for nickname. Used once both topics are completed.
func (r *Registry) Remove(nickname string) {
	delete(r.players, nickname)
}

// AddScore adds delta to the player's score for topic. Unknown nicknames are
// ignored.
func (r *Registry) AddScore(nickname string, topic Topic, delta int) {
	if p, ok := r.players[nickname]; ok {
		p.Scores[topic] += delta
	}
}

// MarkTopicCompleted flags topic as completed for the player. Idempotent.
func (r *Registry) MarkTopicCompleted(nickname string, topic Topic) {
	if p, ok := r.players[nickname]; ok {
		p.Completed[topic] = true
	}
}

// SetConnected toggles the connected flag for the player, if present.
func (r *Registry) SetConnected(nickname string, connected bool) {
	if p, ok := r.players[nickname]; ok {
		p.Connected = connected
	}
}

// Len returns the number of registered players.
func (r *Registry) Len() int {
	return len(r.players)
}

// Snapshot returns copies of every record, ordered by nickname so callers see
// a deterministic view.
func (r *Registry) Snapshot() []Player {
	out := make([]Player, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, p.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nickname < out[j].Nickname })
	return out
}

// SortedView returns copies of every record ordered by descending score for
// topic, nickname ascending on ties. The registry itself is not reordered.
func (r *Registry) SortedView(topic Topic) []Player {
	out := r.Snapshot()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Scores[topic] > out[j].Scores[topic]
	})
	return out
}
