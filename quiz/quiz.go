// Package quiz loads question pools from text files and checks answers.
//
// A quiz file holds the topic name on its first line, then one question per
// line as "question|answer" with optional extra accepted answers appended as
// further |-separated fields.
package quiz

import (
	"bufio"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"
)

const (
	// QuestionsPerGame is how many questions a single session draws from a pool.
	QuestionsPerGame = 5

	// MaxQuestions caps how many questions Load keeps from one file; extra
	// lines are ignored.
	MaxQuestions = 100

	// MaxQuestionLen caps the question text of a single line. Anything longer
	// could not be delivered in one protocol frame, so Load skips the line.
	MaxQuestionLen = 128
)

// ErrNoQuestions is returned when a quiz file yields zero parsable questions.
var ErrNoQuestions = errors.New("quiz: no parsable questions")

// Question is one prompt with its accepted answers.
type Question struct {
	Text    string
	Answers []string
}

// Check reports whether answer matches any accepted answer, ignoring case.
func (q Question) Check(answer string) bool {
	answer = strings.TrimSpace(answer)
	for _, accepted := range q.Answers {
		if strings.EqualFold(accepted, answer) {
			return true
		}
	}
	return false
}

// Quiz is an ordered pool of questions for one topic.
type Quiz struct {
	Topic     string
	Questions []Question
}

// Load reads a quiz file. It fails if the file is unreadable or contains no
// parsable questions; lines that do not split into question and answer, or
// whose question exceeds MaxQuestionLen, are skipped.
func Load(path string) (*Quiz, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("quiz: open %s: %w", path, err)
	}
	defer f.Close()

	q := &Quiz{}
	scanner := bufio.NewScanner(f)

	if scanner.Scan() {
		q.Topic = strings.TrimSpace(scanner.Text())
	}

	for scanner.Scan() && len(q.Questions) < MaxQuestions {
		if question, ok := parseLine(scanner.Text()); ok {
			q.Questions = append(q.Questions, question)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("quiz: read %s: %w", path, err)
	}
	if len(q.Questions) == 0 {
		return nil, fmt.Errorf("quiz: %s: %w", path, ErrNoQuestions)
	}
	return q, nil
}

func parseLine(line string) (Question, bool) {
	fields := strings.Split(line, "|")
	if len(fields) < 2 {
		return Question{}, false
	}

	text := strings.TrimSpace(fields[0])
	var answers []string
	for _, a := range fields[1:] {
		if a = strings.TrimSpace(a); a != "" {
			answers = append(answers, a)
		}
	}
	if text == "" || len(text) > MaxQuestionLen || len(answers) == 0 {
		return Question{}, false
	}
	return Question{Text: text, Answers: answers}, true
}

// RandomSubset draws n distinct questions from the pool in random order. If
// the pool holds fewer than n questions the whole pool is returned, shuffled.
func (q *Quiz) RandomSubset(n int) []Question {
	if n > len(q.Questions) {
		n = len(q.Questions)
	}
	picked := make([]Question, 0, n)
	for _, i := range rand.Perm(len(q.Questions))[:n] {
		picked = append(picked, q.Questions[i])
	}
	return picked
}
