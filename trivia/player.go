package trivia

// Player is the per-nickname record tracked by the Registry. It outlives any
// single connection: scores and completion flags survive a disconnect so the
// same nickname can resume later.
type Player struct {
	Nickname  string
	Scores    map[Topic]int
	Completed map[Topic]bool
	Connected bool
}

func newPlayer(nickname string) *Player {
	return &Player{
		Nickname:  nickname,
		Scores:    make(map[Topic]int),
		Completed: make(map[Topic]bool),
		Connected: true,
	}
}

// Remaining returns the topics the player has not completed yet, in menu order.
func (p *Player) Remaining() []Topic {
	var remaining []Topic
	for _, t := range AllTopics {
		if !p.Completed[t] {
			remaining = append(remaining, t)
		}
	}
	return remaining
}

// CompletedAll reports whether every topic has been completed.
func (p *Player) CompletedAll() bool {
	return len(p.Remaining()) == 0
}

func (p *Player) clone() Player {
	c := Player{
		Nickname:  p.Nickname,
		Scores:    make(map[Topic]int, len(p.Scores)),
		Completed: make(map[Topic]bool, len(p.Completed)),
		Connected: p.Connected,
	}
	for t, s := range p.Scores {
		c.Scores[t] = s
	}
	for t, done := range p.Completed {
		c.Completed[t] = done
	}
	return c
}
