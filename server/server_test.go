package server_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/quizwire/quizwire/protocol"
	"github.com/quizwire/quizwire/quiz"
	"github.com/quizwire/quizwire/server"
	"github.com/quizwire/quizwire/trivia"
)

const recvTimeout = 2 * time.Second

// testQuiz builds a pool whose questions answer themselves: echoing the
// question text back is always correct, so tests can play blind through a
// shuffled subset.
func testQuiz(topic string, count int) *quiz.Quiz {
	q := &quiz.Quiz{Topic: topic}
	for i := 0; i < count; i++ {
		text := fmt.Sprintf("%s-q%d", topic, i)
		q.Questions = append(q.Questions, quiz.Question{Text: text, Answers: []string{text}})
	}
	return q
}

func nopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type ServerSuite struct {
	suite.Suite

	registry *trivia.Registry
	addr     string
	cancel   context.CancelFunc
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

func (s *ServerSuite) SetupTest() {
	s.registry, s.addr, s.cancel = s.startServer(16)
}

func (s *ServerSuite) TearDownTest() {
	s.cancel()
}

func (s *ServerSuite) startServer(capacity int) (*trivia.Registry, string, context.CancelFunc) {
	registry := trivia.NewRegistry(capacity)
	quizzes := map[trivia.Topic]*quiz.Quiz{
		trivia.TopicSport:     testQuiz("Sport", quiz.QuestionsPerGame),
		trivia.TopicGeography: testQuiz("Geography", quiz.QuestionsPerGame),
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	srv := server.New(nopLogger(), registry, quizzes)
	go func() {
		_ = srv.Serve(ctx, ln)
	}()

	return registry, ln.Addr().String(), cancel
}

// testConn is one protocol-speaking peer.
type testConn struct {
	s    *ServerSuite
	conn net.Conn
}

func (s *ServerSuite) dial() *testConn {
	return s.dialAddr(s.addr)
}

func (s *ServerSuite) dialAddr(addr string) *testConn {
	conn, err := net.Dial("tcp", addr)
	s.Require().NoError(err)
	s.T().Cleanup(func() { conn.Close() })
	return &testConn{s: s, conn: conn}
}

func (c *testConn) send(t protocol.MessageType, text string) {
	c.s.Require().NoError(protocol.Write(c.conn, protocol.NewMessage(t, text)))
}

func (c *testConn) recv() protocol.Message {
	c.s.Require().NoError(c.conn.SetReadDeadline(time.Now().Add(recvTimeout)))
	var msg protocol.Message
	c.s.Require().NoError(protocol.Read(c.conn, &msg))
	return msg
}

func (c *testConn) expect(t protocol.MessageType) protocol.Message {
	msg := c.recv()
	c.s.Require().Equal(t.String(), msg.Type.String())
	return msg
}

// login walks the full login handshake for nickname and returns the
// quiz-available listing.
func (c *testConn) login(nickname string) string {
	c.send(protocol.MsgLogin, "")
	c.expect(protocol.MsgNicknamePrompt)
	c.send(protocol.MsgRequestNickname, nickname)
	c.expect(protocol.MsgLoginSuccess)
	return c.expect(protocol.MsgQuizAvailable).Text()
}

// playTopic selects the topic and answers every question. correct answers
// echo the question; wrong ones do not.
func (c *testConn) playTopic(selector string, correct bool) protocol.Message {
	c.send(protocol.MsgRequestQuestion, selector)
	msg := c.expect(protocol.MsgQuestion)
	for {
		answer := msg.Text()
		if !correct {
			answer = "not the answer"
		}
		c.send(protocol.MsgAnswer, answer)
		c.expect(protocol.MsgAnswerResult)

		msg = c.recv()
		if msg.Type != protocol.MsgQuestion {
			return msg
		}
	}
}

func (s *ServerSuite) TestLoginFlow() {
	c := s.dial()

	available := c.login("alice")
	s.Contains(available, "1 - Sport")
	s.Contains(available, "2 - Geography")

	p, ok := s.registry.Lookup("alice")
	s.Require().True(ok)
	s.True(p.Connected)
}

func (s *ServerSuite) TestDuplicateNicknameRejected() {
	c1 := s.dial()
	c1.login("alice")

	c2 := s.dial()
	c2.send(protocol.MsgLogin, "")
	c2.expect(protocol.MsgNicknamePrompt)
	c2.send(protocol.MsgRequestNickname, "alice")
	msg := c2.expect(protocol.MsgLoginError)
	s.Contains(msg.Text(), "already in use")

	// The session is still waiting for a nickname; a different one works.
	c2.send(protocol.MsgRequestNickname, "bob")
	c2.expect(protocol.MsgLoginSuccess)
	c2.expect(protocol.MsgQuizAvailable)
}

func (s *ServerSuite) TestNicknameTooLong() {
	c := s.dial()
	c.send(protocol.MsgLogin, "")
	c.expect(protocol.MsgNicknamePrompt)
	c.send(protocol.MsgRequestNickname, "this-nickname-is-far-too-long-to-accept")
	c.expect(protocol.MsgLoginError)
}

func (s *ServerSuite) TestCompleteOneTopic() {
	c := s.dial()
	c.login("bob")

	final := c.playTopic("1", true)
	s.Equal(protocol.MsgQuizCompleted.String(), final.Type.String())
	s.Contains(final.Text(), fmt.Sprintf("Score: %d/%d", quiz.QuestionsPerGame, quiz.QuestionsPerGame))

	available := c.expect(protocol.MsgQuizAvailable).Text()
	s.Contains(available, "2 - Geography")
	s.NotContains(available, "1 - Sport")

	p, ok := s.registry.Lookup("bob")
	s.Require().True(ok)
	s.Equal(quiz.QuestionsPerGame, p.Scores[trivia.TopicSport])
	s.True(p.Completed[trivia.TopicSport])
}

func (s *ServerSuite) TestWrongAnswersScoreZero() {
	c := s.dial()
	c.login("bob")

	final := c.playTopic("2", false)
	s.Equal(protocol.MsgQuizCompleted.String(), final.Type.String())
	s.Contains(final.Text(), fmt.Sprintf("Score: 0/%d", quiz.QuestionsPerGame))
}

func (s *ServerSuite) TestCompleteAllTopicsRemovesPlayer() {
	c := s.dial()
	c.login("bob")

	c.playTopic("1", true)
	c.expect(protocol.MsgQuizAvailable)

	final := c.playTopic("2", true)
	s.Equal(protocol.MsgTriviaCompleted.String(), final.Type.String())
	s.Contains(final.Text(), "congratulations")

	_, ok := s.registry.Lookup("bob")
	s.False(ok, "record is removed once everything is completed")

	// The connection survives; a new login on the same socket works.
	c.send(protocol.MsgLogin, "")
	c.expect(protocol.MsgNicknamePrompt)
	c.send(protocol.MsgRequestNickname, "someone-else")
	c.expect(protocol.MsgLoginSuccess)
}

func (s *ServerSuite) TestAlreadyCompletedTopicOffersRemaining() {
	c := s.dial()
	c.login("bob")
	c.playTopic("1", true)
	c.expect(protocol.MsgQuizAvailable)

	c.send(protocol.MsgRequestQuestion, "1")
	msg := c.expect(protocol.MsgQuizAvailable)
	s.Contains(msg.Text(), "already completed")
	s.Contains(msg.Text(), "2 - Geography")

	// Still idle: the remaining topic can be started.
	c.send(protocol.MsgRequestQuestion, "2")
	c.expect(protocol.MsgQuestion)
}

func (s *ServerSuite) TestInvalidTopicSelection() {
	c := s.dial()
	c.login("alice")

	c.send(protocol.MsgRequestQuestion, "9")
	msg := c.expect(protocol.MsgError)
	s.Contains(msg.Text(), "invalid")
}

func (s *ServerSuite) TestRequestScoreIsIdempotent() {
	c := s.dial()
	c.login("alice")

	c.send(protocol.MsgRequestScore, "")
	first := c.expect(protocol.MsgScore).Text()
	c.send(protocol.MsgRequestScore, "")
	second := c.expect(protocol.MsgScore).Text()

	s.Equal(first, second)
	s.Contains(first, "alice")

	p, ok := s.registry.Lookup("alice")
	s.Require().True(ok)
	s.Zero(p.Scores[trivia.TopicSport])
}

func (s *ServerSuite) TestUnexpectedMessageIgnored() {
	c := s.dial()
	c.login("alice")

	// An answer while idle is dropped without a reply or a state change.
	c.send(protocol.MsgAnswer, "whatever")

	c.send(protocol.MsgRequestScore, "")
	c.expect(protocol.MsgScore)
}

func (s *ServerSuite) TestReconnectResumesProgress() {
	c := s.dial()
	c.login("carol")

	// Answer two questions correctly, then drop the connection mid-quiz.
	c.send(protocol.MsgRequestQuestion, "1")
	msg := c.expect(protocol.MsgQuestion)
	for i := 0; i < 2; i++ {
		c.send(protocol.MsgAnswer, msg.Text())
		c.expect(protocol.MsgAnswerResult)
		msg = c.expect(protocol.MsgQuestion)
	}
	c.conn.Close()

	// Reconnect under the same nickname. The server may not have noticed the
	// close yet, so retry while it still reports the nickname in use.
	c2 := s.dial()
	c2.send(protocol.MsgLogin, "")
	c2.expect(protocol.MsgNicknamePrompt)

	deadline := time.Now().Add(recvTimeout)
	for {
		c2.send(protocol.MsgRequestNickname, "carol")
		reply := c2.recv()
		if reply.Type == protocol.MsgLoginSuccess {
			s.Contains(reply.Text(), "Welcome back")
			break
		}
		s.Require().Equal(protocol.MsgLoginError.String(), reply.Type.String())
		s.Require().True(time.Now().Before(deadline), "nickname never released")
		time.Sleep(10 * time.Millisecond)
	}

	available := c2.expect(protocol.MsgQuizAvailable).Text()
	s.Contains(available, "1 - Sport")

	// Replaying the topic keeps the earlier partial score but stays within
	// the per-topic bound.
	final := c2.playTopic("1", true)
	s.Equal(protocol.MsgQuizCompleted.String(), final.Type.String())
	s.Contains(final.Text(), fmt.Sprintf("Score: %d/%d", quiz.QuestionsPerGame, quiz.QuestionsPerGame))
}

func (s *ServerSuite) TestEndQuizReleasesNickname() {
	c1 := s.dial()
	c1.login("alice")
	c1.playTopic("1", true)
	c1.expect(protocol.MsgQuizAvailable)

	c1.send(protocol.MsgEndQuiz, "")
	msg := c1.expect(protocol.MsgEndQuiz)
	s.Contains(msg.Text(), "left the game")

	// The record survived with its progress; another connection can resume.
	c2 := s.dial()
	c2.send(protocol.MsgLogin, "")
	c2.expect(protocol.MsgNicknamePrompt)
	c2.send(protocol.MsgRequestNickname, "alice")
	reply := c2.expect(protocol.MsgLoginSuccess)
	s.Contains(reply.Text(), "Welcome back")
	available := c2.expect(protocol.MsgQuizAvailable).Text()
	s.NotContains(available, "1 - Sport")
}

func (s *ServerSuite) TestCompletedPlayerLoginDisconnects() {
	// Seed a fully-completed, disconnected record before any client speaks.
	_, err := s.registry.Create("champ")
	s.Require().NoError(err)
	s.registry.MarkTopicCompleted("champ", trivia.TopicSport)
	s.registry.MarkTopicCompleted("champ", trivia.TopicGeography)
	s.registry.SetConnected("champ", false)

	c := s.dial()
	c.send(protocol.MsgLogin, "")
	c.expect(protocol.MsgNicknamePrompt)
	c.send(protocol.MsgRequestNickname, "champ")

	reply := c.expect(protocol.MsgLoginSuccess)
	s.Contains(reply.Text(), "Nothing left to play")
	c.expect(protocol.MsgDisconnect)

	// The server hangs up after the notice.
	s.Require().NoError(c.conn.SetReadDeadline(time.Now().Add(recvTimeout)))
	var msg protocol.Message
	s.Error(protocol.Read(c.conn, &msg))
}

func (s *ServerSuite) TestOversizedFrameDisconnects() {
	c := s.dial()
	c.login("alice")

	// A header declaring more than the maximum payload kills the connection.
	var header [protocol.HeaderSize]byte
	binary.BigEndian.PutUint32(header[0:4], uint32(protocol.MsgAnswer))
	binary.BigEndian.PutUint32(header[4:8], protocol.MaxPayload+1)
	payload := bytes.Repeat([]byte("x"), protocol.MaxPayload+1)
	_, err := c.conn.Write(append(header[:], payload...))
	s.Require().NoError(err)

	s.Require().NoError(c.conn.SetReadDeadline(time.Now().Add(recvTimeout)))
	var msg protocol.Message
	s.Error(protocol.Read(c.conn, &msg))
}

func (s *ServerSuite) TestRegistryCapacity() {
	_, addr, cancel := s.startServer(1)
	defer cancel()

	c1 := s.dialAddr(addr)
	c1.login("alice")

	c2 := s.dialAddr(addr)
	c2.send(protocol.MsgLogin, "")
	c2.expect(protocol.MsgNicknamePrompt)
	c2.send(protocol.MsgRequestNickname, "bob")
	msg := c2.expect(protocol.MsgLoginError)
	s.Contains(msg.Text(), "full")
}

func (s *ServerSuite) TestWatcherReloadsQuiz() {
	dir := s.T().TempDir()
	sportPath := filepath.Join(dir, "sport.txt")
	geoPath := filepath.Join(dir, "geo.txt")
	writeQuizFile := func(path, topic, question string) {
		content := fmt.Sprintf("%s\n%s|%s\n", topic, question, question)
		s.Require().NoError(os.WriteFile(path, []byte(content), 0o644))
	}
	writeQuizFile(sportPath, "Sport", "sport-before")
	writeQuizFile(geoPath, "Geography", "geo-q")

	paths := map[trivia.Topic]string{
		trivia.TopicSport:     sportPath,
		trivia.TopicGeography: geoPath,
	}
	quizzes := make(map[trivia.Topic]*quiz.Quiz, len(paths))
	for topic, path := range paths {
		q, err := quiz.Load(path)
		s.Require().NoError(err)
		quizzes[topic] = q
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := server.New(nopLogger(), trivia.NewRegistry(64), quizzes)
	watcher, err := server.NewWatcher(nopLogger(), srv.Hub(), paths)
	s.Require().NoError(err)
	go watcher.Run(ctx)
	go func() { _ = srv.Serve(ctx, ln) }()
	addr := ln.Addr().String()

	// Rewrite the sport file and keep probing with fresh sessions until the
	// reloaded pool shows up; the file is rewritten per attempt in case a
	// change event raced an in-progress write.
	deadline := time.Now().Add(5 * time.Second)
	for attempt := 0; ; attempt++ {
		writeQuizFile(sportPath, "Sport", "sport-after")

		c := s.dialAddr(addr)
		c.login(fmt.Sprintf("reloader-%d", attempt))
		c.send(protocol.MsgRequestQuestion, "1")
		question := c.expect(protocol.MsgQuestion).Text()
		c.conn.Close()

		if strings.Contains(question, "sport-after") {
			return
		}
		s.Require().True(time.Now().Before(deadline), "reloaded quiz never reached the hub")
		time.Sleep(50 * time.Millisecond)
	}
}

func (s *ServerSuite) TestShutdownBroadcastsDisconnect() {
	_, addr, cancel := s.startServer(16)

	c := s.dialAddr(addr)
	c.login("alice")

	cancel()

	msg := c.expect(protocol.MsgDisconnect)
	s.Contains(msg.Text(), "shutting down")

	s.Require().NoError(c.conn.SetReadDeadline(time.Now().Add(recvTimeout)))
	var next protocol.Message
	s.Error(protocol.Read(c.conn, &next))
}
