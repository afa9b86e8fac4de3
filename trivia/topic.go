package trivia

// Topic is one of the fixed quiz categories. Each topic has its own question
// pool, score counter, and completion flag.
type Topic int

const (
	TopicNone Topic = iota
	TopicSport
	TopicGeography
)

// AllTopics lists the playable topics in menu order.
var AllTopics = []Topic{TopicSport, TopicGeography}

func (t Topic) String() string {
	switch t {
	case TopicSport:
		return "Sport"
	case TopicGeography:
		return "Geography"
	default:
		return "none"
	}
}
