// Package score renders the shared scoreboard into the text report sent to
// clients. It is a pure function of a registry snapshot.
package score

import (
	"fmt"
	"sort"
	"strings"

	"github.com/quizwire/quizwire/trivia"
)

// Format builds the scoreboard report: the list of participants, then for each
// topic the scores in descending order and the players who completed it. The
// names map supplies the display name for each topic.
func Format(players []trivia.Player, names map[trivia.Topic]string) string {
	var b strings.Builder

	b.WriteString("\nParticipants:\n")
	for _, p := range players {
		fmt.Fprintf(&b, "- %s\n", p.Nickname)
	}
	if len(players) == 0 {
		b.WriteString("No players yet\n")
	}

	for _, topic := range trivia.AllTopics {
		fmt.Fprintf(&b, "\n%s scores:\n", topicName(topic, names))
		ranked := byScore(players, topic)
		for _, p := range ranked {
			fmt.Fprintf(&b, "- %s: %d\n", p.Nickname, p.Scores[topic])
		}
		if len(ranked) == 0 {
			b.WriteString("No player has participated yet\n")
		}
	}

	for _, topic := range trivia.AllTopics {
		fmt.Fprintf(&b, "\n%s quiz completed by:\n", topicName(topic, names))
		completed := 0
		for _, p := range players {
			if p.Completed[topic] {
				fmt.Fprintf(&b, "- %s\n", p.Nickname)
				completed++
			}
		}
		if completed == 0 {
			b.WriteString("No player has completed this quiz\n")
		}
	}

	return b.String()
}

func topicName(topic trivia.Topic, names map[trivia.Topic]string) string {
	if name, ok := names[topic]; ok && name != "" {
		return name
	}
	return topic.String()
}

func byScore(players []trivia.Player, topic trivia.Topic) []trivia.Player {
	ranked := make([]trivia.Player, len(players))
	copy(ranked, players)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Scores[topic] > ranked[j].Scores[topic]
	})
	return ranked
}
