package protocol

// MessageType discriminates the messages exchanged between the trivia server
// and its clients. The integer codes are part of the wire protocol and must
// not be renumbered.
type MessageType int32

const (
	MsgLogin MessageType = iota + 1
	MsgLoginSuccess
	MsgLoginError
	MsgRequestNickname
	MsgNicknamePrompt
	MsgRequestQuestion
	MsgQuestion
	MsgAnswer
	MsgAnswerResult
	MsgRequestScore
	MsgScore
	MsgQuizCompleted
	MsgQuizAvailable
	MsgTriviaCompleted
	MsgEndQuiz
	MsgDisconnect
	MsgError
)

const (
	// HeaderSize is the fixed size of the wire header: a 4-byte message type
	// followed by a 4-byte payload length, both in network byte order.
	HeaderSize = 8

	// MaxPayload bounds the payload of a single message. Receivers reject any
	// declared length above this before reading a single payload byte.
	MaxPayload = 512

	// MaxNickname bounds player nicknames.
	MaxNickname = 20
)

// Message is one protocol message. Payload is raw bytes; all current message
// types carry UTF-8 text or nothing.
type Message struct {
	Type    MessageType
	Payload []byte
}

// NewMessage builds a message with a text payload.
func NewMessage(t MessageType, text string) Message {
	return Message{Type: t, Payload: []byte(text)}
}

// Text returns the payload as a string.
func (m Message) Text() string {
	return string(m.Payload)
}

func (t MessageType) String() string {
	switch t {
	case MsgLogin:
		return "MSG_LOGIN"
	case MsgLoginSuccess:
		return "MSG_LOGIN_SUCCESS"
	case MsgLoginError:
		return "MSG_LOGIN_ERROR"
	case MsgRequestNickname:
		return "MSG_REQUEST_NICKNAME"
	case MsgNicknamePrompt:
		return "MSG_NICKNAME_PROMPT"
	case MsgRequestQuestion:
		return "MSG_REQUEST_QUESTION"
	case MsgQuestion:
		return "MSG_QUESTION"
	case MsgAnswer:
		return "MSG_ANSWER"
	case MsgAnswerResult:
		return "MSG_ANSWER_RESULT"
	case MsgRequestScore:
		return "MSG_REQUEST_SCORE"
	case MsgScore:
		return "MSG_SCORE"
	case MsgQuizCompleted:
		return "MSG_QUIZ_COMPLETED"
	case MsgQuizAvailable:
		return "MSG_QUIZ_AVAILABLE"
	case MsgTriviaCompleted:
		return "MSG_TRIVIA_COMPLETED"
	case MsgEndQuiz:
		return "MSG_END_QUIZ"
	case MsgDisconnect:
		return "MSG_DISCONNECT"
	case MsgError:
		return "MSG_ERROR"
	default:
		return "UNKNOWN"
	}
}
