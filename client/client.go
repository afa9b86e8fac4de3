// Package client implements the interactive terminal player. It speaks the
// wire protocol to a trivia server and walks the user through login, quiz
// selection, and the question loop. All blocking user interaction lives here,
// never on the server.
package client

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/quizwire/quizwire/protocol"
)

// Special commands accepted instead of an answer while playing.
const (
	cmdShowScore = "show score"
	cmdEndQuiz   = "endquiz"
)

// Client is one interactive session against a trivia server.
type Client struct {
	conn  net.Conn
	stdin *bufio.Scanner
	out   io.Writer
}

// Run connects to addr and drives the interactive session until the user
// quits or the server disconnects. A server-initiated disconnect is a normal
// exit, not an error.
func Run(addr string) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("client: connect to %s: %w", addr, err)
	}
	defer conn.Close()

	c := &Client{
		conn:  conn,
		stdin: bufio.NewScanner(os.Stdin),
		out:   os.Stdout,
	}
	return c.run()
}

func (c *Client) run() error {
	fmt.Fprintln(c.out, banner())

	for {
		fmt.Fprintln(c.out, menuStyle.Render("1 - Play\n2 - Quit"))
		choice, ok := c.prompt("Choice: ")
		if !ok {
			return c.quit()
		}
		switch choice {
		case "1":
			err := c.play()
			if errors.Is(err, errServerClosed) {
				return nil
			}
			if errors.Is(err, errInputClosed) {
				return c.quit()
			}
			if err != nil {
				return err
			}
		case "2":
			return c.quit()
		default:
			fmt.Fprintln(c.out, errorStyle.Render("Please choose 1 or 2"))
		}
	}
}

// quit is the normal exit: notify the server and leave with status 0. Stdin
// running out (Ctrl+D, exhausted piped input) ends the session the same way
// as choosing quit from the menu.
func (c *Client) quit() error {
	// Best effort; the server also handles a plain socket close.
	_ = c.send(protocol.Message{Type: protocol.MsgDisconnect})
	fmt.Fprintln(c.out, "Bye!")
	return nil
}

// play runs one login-to-completion round. It returns nil when the user is
// back at the main menu and errServerClosed when the server hung up.
func (c *Client) play() error {
	if err := c.send(protocol.Message{Type: protocol.MsgLogin}); err != nil {
		return err
	}

	msg, err := c.recv()
	if err != nil {
		return err
	}
	if msg.Type != protocol.MsgNicknamePrompt {
		return fmt.Errorf("client: expected nickname prompt, got %s", msg.Type)
	}

	if err := c.login(msg.Text()); err != nil {
		return err
	}

	for {
		msg, err := c.recv()
		if err != nil {
			return err
		}

		switch msg.Type {
		case protocol.MsgQuizAvailable:
			if err := c.chooseQuiz(msg.Text()); err != nil {
				return err
			}
		case protocol.MsgQuestion:
			if err := c.answer(msg.Text()); err != nil {
				return err
			}
		case protocol.MsgAnswerResult:
			if strings.HasPrefix(msg.Text(), "Correct") {
				fmt.Fprintln(c.out, correctStyle.Render(msg.Text()))
			} else {
				fmt.Fprintln(c.out, errorStyle.Render(msg.Text()))
			}
		case protocol.MsgScore:
			fmt.Fprintln(c.out, scoreStyle.Render(msg.Text()))
		case protocol.MsgQuizCompleted:
			fmt.Fprintln(c.out, resultStyle.Render(msg.Text()))
		case protocol.MsgTriviaCompleted:
			fmt.Fprintln(c.out, resultStyle.Render(msg.Text()))
			return nil
		case protocol.MsgEndQuiz:
			fmt.Fprintln(c.out, msg.Text())
			return nil
		case protocol.MsgError:
			fmt.Fprintln(c.out, errorStyle.Render(msg.Text()))
		case protocol.MsgDisconnect:
			fmt.Fprintln(c.out, msg.Text())
			return errServerClosed
		default:
			return fmt.Errorf("client: unexpected message %s", msg.Type)
		}
	}
}

// login keeps prompting for a nickname until the server accepts one.
func (c *Client) login(promptText string) error {
	for {
		nickname, ok := c.prompt(promptText + " ")
		if !ok {
			return errInputClosed
		}
		if err := c.send(protocol.NewMessage(protocol.MsgRequestNickname, nickname)); err != nil {
			return err
		}

		msg, err := c.recv()
		if err != nil {
			return err
		}
		switch msg.Type {
		case protocol.MsgLoginSuccess:
			fmt.Fprintln(c.out, correctStyle.Render(msg.Text()))
			return nil
		case protocol.MsgLoginError:
			fmt.Fprintln(c.out, errorStyle.Render(msg.Text()))
		default:
			return fmt.Errorf("client: unexpected login reply %s", msg.Type)
		}
	}
}

// chooseQuiz prompts for a topic until the server starts a question run, then
// hands the first question to the answer prompt. Later questions and results
// flow back through the main play loop.
func (c *Client) chooseQuiz(available string) error {
	for {
		fmt.Fprintln(c.out, menuStyle.Render("Available quizzes:\n"+available))
		selection, ok := c.prompt("Quiz number: ")
		if !ok {
			return errInputClosed
		}
		if err := c.send(protocol.NewMessage(protocol.MsgRequestQuestion, selection)); err != nil {
			return err
		}

		msg, err := c.recv()
		if err != nil {
			return err
		}
		switch msg.Type {
		case protocol.MsgQuestion:
			return c.answer(msg.Text())
		case protocol.MsgQuizAvailable:
			available = msg.Text()
		case protocol.MsgError:
			fmt.Fprintln(c.out, errorStyle.Render(msg.Text()))
		case protocol.MsgDisconnect:
			fmt.Fprintln(c.out, msg.Text())
			return errServerClosed
		default:
			return fmt.Errorf("client: unexpected quiz reply %s", msg.Type)
		}
	}
}

// answer shows a question and sends back either the user's answer or one of
// the special commands.
func (c *Client) answer(question string) error {
	fmt.Fprintln(c.out, questionStyle.Render(question))

	for {
		input, ok := c.prompt("Answer: ")
		if !ok {
			return errInputClosed
		}
		switch input {
		case cmdShowScore:
			if err := c.send(protocol.Message{Type: protocol.MsgRequestScore}); err != nil {
				return err
			}
			msg, err := c.recv()
			if err != nil {
				return err
			}
			if msg.Type == protocol.MsgScore {
				fmt.Fprintln(c.out, scoreStyle.Render(msg.Text()))
				continue
			}
			if msg.Type == protocol.MsgDisconnect {
				fmt.Fprintln(c.out, msg.Text())
				return errServerClosed
			}
			return fmt.Errorf("client: unexpected score reply %s", msg.Type)
		case cmdEndQuiz:
			return c.send(protocol.Message{Type: protocol.MsgEndQuiz})
		case "":
			fmt.Fprintln(c.out, errorStyle.Render("Type an answer, or 'show score' / 'endquiz'"))
		default:
			return c.send(protocol.NewMessage(protocol.MsgAnswer, input))
		}
	}
}

var (
	errServerClosed = errors.New("client: server closed the connection")
	errInputClosed  = errors.New("client: stdin closed")
)

func (c *Client) send(msg protocol.Message) error {
	if err := protocol.Write(c.conn, msg); err != nil {
		return errServerClosed
	}
	return nil
}

func (c *Client) recv() (protocol.Message, error) {
	var msg protocol.Message
	if err := protocol.Read(c.conn, &msg); err != nil {
		fmt.Fprintln(c.out, "Lost connection to the server")
		return msg, errServerClosed
	}
	return msg, nil
}

// prompt reads one line of input. ok is false once stdin is exhausted, which
// callers treat as the user leaving, never as a value to retry on.
func (c *Client) prompt(label string) (input string, ok bool) {
	fmt.Fprint(c.out, promptStyle.Render(label))
	if !c.stdin.Scan() {
		return "", false
	}
	return strings.TrimSpace(c.stdin.Text()), true
}
