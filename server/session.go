package server

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/quizwire/quizwire/protocol"
	"github.com/quizwire/quizwire/quiz"
	"github.com/quizwire/quizwire/score"
	"github.com/quizwire/quizwire/trivia"
)

type sessionState int

const (
	stateUnauthenticated sessionState = iota
	stateAwaitingNickname
	stateIdle
	stateAnswering
)

func (s sessionState) String() string {
	switch s {
	case stateUnauthenticated:
		return "unauthenticated"
	case stateAwaitingNickname:
		return "awaiting_nickname"
	case stateIdle:
		return "idle"
	case stateAnswering:
		return "answering"
	default:
		return "unknown"
	}
}

// session is the per-connection protocol state. It lives in the hub's session
// table and is only ever touched while the hub processes a message for its
// connection. Transitions are explicit; a handler never calls back into the
// dispatch loop.
type session struct {
	state       sessionState
	nickname    string
	topic       trivia.Topic
	questionIdx int
	questions   []quiz.Question
}

func newSession() *session {
	return &session{state: stateUnauthenticated}
}

// reset returns the session to its just-accepted shape. The connection stays
// up; the peer may log in again, possibly as someone else.
func (s *session) reset() {
	s.state = stateUnauthenticated
	s.nickname = ""
	s.topic = trivia.TopicNone
	s.questionIdx = 0
	s.questions = nil
}

// handleMessage runs one decoded message through the state machine. A message
// type that is not valid for the session's current state is logged and
// ignored; it is never fatal to the server.
func (h *Hub) handleMessage(c *Client, msg protocol.Message) {
	sess, ok := h.sessions[c.id]
	if !ok {
		return
	}

	switch msg.Type {
	case protocol.MsgLogin:
		h.handleLogin(c, sess)
	case protocol.MsgRequestNickname:
		h.handleRequestNickname(c, sess, msg)
	case protocol.MsgRequestQuestion:
		h.handleRequestQuestion(c, sess, msg)
	case protocol.MsgAnswer:
		h.handleAnswer(c, sess, msg)
	case protocol.MsgRequestScore:
		h.handleRequestScore(c, sess)
	case protocol.MsgEndQuiz:
		h.handleEndQuiz(c, sess)
	case protocol.MsgDisconnect:
		h.drop(c)
	default:
		h.ignore(c, sess, msg)
	}
}

func (h *Hub) handleLogin(c *Client, sess *session) {
	if sess.nickname != "" {
		h.ignore(c, sess, protocol.Message{Type: protocol.MsgLogin})
		return
	}
	sess.state = stateAwaitingNickname
	h.sendTo(c, protocol.NewMessage(protocol.MsgNicknamePrompt,
		fmt.Sprintf("Choose a nickname (max %d characters):", protocol.MaxNickname)))
}

func (h *Hub) handleRequestNickname(c *Client, sess *session, msg protocol.Message) {
	if sess.state != stateAwaitingNickname {
		h.ignore(c, sess, msg)
		return
	}

	nickname := strings.TrimSpace(msg.Text())
	if nickname == "" || len(nickname) > protocol.MaxNickname {
		h.sendTo(c, protocol.NewMessage(protocol.MsgLoginError,
			fmt.Sprintf("nickname must be between 1 and %d characters", protocol.MaxNickname)))
		return
	}

	p, exists := h.registry.Lookup(nickname)
	switch {
	case !exists:
		p, err := h.registry.Create(nickname)
		if err != nil {
			// Only capacity can fail here; the nickname was just looked up.
			h.sendTo(c, protocol.NewMessage(protocol.MsgLoginError,
				"the server is full, try again later"))
			return
		}
		sess.nickname = nickname
		sess.state = stateIdle
		h.sendTo(c, protocol.NewMessage(protocol.MsgLoginSuccess,
			fmt.Sprintf("Welcome, %s!", nickname)))
		h.sendTo(c, protocol.NewMessage(protocol.MsgQuizAvailable, h.availableList(p)))

	case p.Connected:
		h.sendTo(c, protocol.NewMessage(protocol.MsgLoginError,
			"nickname already in use"))

	case p.CompletedAll():
		// Adopted policy for returning champions: tell them and hang up.
		h.sendTo(c, protocol.NewMessage(protocol.MsgLoginSuccess,
			"You already completed every quiz. Nothing left to play!"))
		h.sendTo(c, protocol.NewMessage(protocol.MsgDisconnect, "goodbye"))
		h.drop(c)

	default:
		h.registry.SetConnected(nickname, true)
		sess.nickname = nickname
		sess.state = stateIdle
		h.sendTo(c, protocol.NewMessage(protocol.MsgLoginSuccess,
			fmt.Sprintf("Welcome back, %s!", nickname)))
		h.sendTo(c, protocol.NewMessage(protocol.MsgQuizAvailable, h.availableList(p)))
	}
}

func (h *Hub) handleRequestQuestion(c *Client, sess *session, msg protocol.Message) {
	if sess.state != stateIdle || sess.nickname == "" {
		h.ignore(c, sess, msg)
		return
	}

	topic := topicFromSelector(strings.TrimSpace(msg.Text()))
	if topic == trivia.TopicNone {
		h.sendTo(c, protocol.NewMessage(protocol.MsgError, "invalid quiz selection"))
		return
	}

	p, ok := h.registry.Lookup(sess.nickname)
	if !ok {
		h.ignore(c, sess, msg)
		return
	}
	if p.Completed[topic] {
		h.sendTo(c, protocol.NewMessage(protocol.MsgQuizAvailable,
			fmt.Sprintf("You already completed the %s quiz. Choose another:\n%s",
				h.topicName(topic), h.availableList(p))))
		return
	}

	sess.topic = topic
	sess.questions = h.quizzes[topic].RandomSubset(quiz.QuestionsPerGame)
	sess.questionIdx = 0
	sess.state = stateAnswering
	h.sendTo(c, protocol.NewMessage(protocol.MsgQuestion, sess.questions[0].Text))
}

func (h *Hub) handleAnswer(c *Client, sess *session, msg protocol.Message) {
	if sess.state != stateAnswering {
		h.ignore(c, sess, msg)
		return
	}

	current := sess.questions[sess.questionIdx]
	if current.Check(msg.Text()) {
		// A replayed quiz after a mid-quiz disconnect keeps its earlier
		// partial score; the cap keeps the topic total within the per-game
		// question count.
		if p, ok := h.registry.Lookup(sess.nickname); ok && p.Scores[sess.topic] < quiz.QuestionsPerGame {
			h.registry.AddScore(sess.nickname, sess.topic, 1)
		}
		h.sendTo(c, protocol.NewMessage(protocol.MsgAnswerResult, "Correct!"))
	} else {
		h.sendTo(c, protocol.NewMessage(protocol.MsgAnswerResult, "Wrong!"))
	}

	sess.questionIdx++
	if sess.questionIdx < len(sess.questions) {
		h.sendTo(c, protocol.NewMessage(protocol.MsgQuestion, sess.questions[sess.questionIdx].Text))
		return
	}

	h.finishTopic(c, sess)
}

// finishTopic runs once the last question of the selected topic was answered.
// Completing the final topic retires the player record entirely; the session
// drops back to its pre-login state so the connection can be reused.
func (h *Hub) finishTopic(c *Client, sess *session) {
	h.registry.MarkTopicCompleted(sess.nickname, sess.topic)

	p, ok := h.registry.Lookup(sess.nickname)
	if !ok {
		sess.reset()
		return
	}
	finished := sess.topic
	finalScore := p.Scores[finished]

	if p.CompletedAll() {
		report := score.Format(h.registry.Snapshot(), h.topicNames())
		h.registry.Remove(sess.nickname)
		h.sendTo(c, protocol.NewMessage(protocol.MsgTriviaCompleted,
			clampText(fmt.Sprintf("You completed every quiz, congratulations!\n%s", report))))
		sess.reset()
		return
	}

	sess.topic = trivia.TopicNone
	sess.questions = nil
	sess.questionIdx = 0
	sess.state = stateIdle
	h.sendTo(c, protocol.NewMessage(protocol.MsgQuizCompleted,
		fmt.Sprintf("You completed the %s quiz! Score: %d/%d",
			h.topicName(finished), finalScore, quiz.QuestionsPerGame)))
	h.sendTo(c, protocol.NewMessage(protocol.MsgQuizAvailable, h.availableList(p)))
}

func (h *Hub) handleRequestScore(c *Client, sess *session) {
	if sess.nickname == "" {
		h.ignore(c, sess, protocol.Message{Type: protocol.MsgRequestScore})
		return
	}
	report := score.Format(h.registry.Snapshot(), h.topicNames())
	h.sendTo(c, protocol.NewMessage(protocol.MsgScore, clampText(report)))
}

// handleEndQuiz releases the nickname binding, so the session drops all the
// way back to unauthenticated rather than idle: idle presumes a bound
// nickname, and continuing after endquiz requires a fresh login, possibly
// from another connection.
func (h *Hub) handleEndQuiz(c *Client, sess *session) {
	if sess.nickname == "" {
		h.ignore(c, sess, protocol.Message{Type: protocol.MsgEndQuiz})
		return
	}
	h.registry.SetConnected(sess.nickname, false)
	h.sendTo(c, protocol.NewMessage(protocol.MsgEndQuiz,
		"You left the game. Progress on unfinished quizzes is kept under your nickname."))
	sess.reset()
}

func (h *Hub) ignore(c *Client, sess *session, msg protocol.Message) {
	h.logger.Warn("ignoring unexpected message",
		slog.String("client", c.id.String()),
		slog.String("type", msg.Type.String()),
		slog.String("state", sess.state.String()))
}

// availableList renders the not-yet-completed topics as a selection menu, one
// "<selector> - <name>" entry per line.
func (h *Hub) availableList(p *trivia.Player) string {
	var lines []string
	for _, t := range p.Remaining() {
		lines = append(lines, fmt.Sprintf("%d - %s", int(t), h.topicName(t)))
	}
	return strings.Join(lines, "\n")
}

func (h *Hub) topicName(t trivia.Topic) string {
	if q, ok := h.quizzes[t]; ok && q.Topic != "" {
		return q.Topic
	}
	return t.String()
}

func (h *Hub) topicNames() map[trivia.Topic]string {
	names := make(map[trivia.Topic]string, len(h.quizzes))
	for t, q := range h.quizzes {
		names[t] = q.Topic
	}
	return names
}

func topicFromSelector(s string) trivia.Topic {
	for _, t := range trivia.AllTopics {
		if s == fmt.Sprintf("%d", int(t)) {
			return t
		}
	}
	return trivia.TopicNone
}

// clampText bounds report payloads to the protocol's maximum; a scoreboard for
// a very full registry would otherwise exceed a single frame. The cut backs up
// to a rune boundary so the truncated payload stays valid UTF-8.
func clampText(s string) string {
	if len(s) <= protocol.MaxPayload {
		return s
	}
	cut := protocol.MaxPayload
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
