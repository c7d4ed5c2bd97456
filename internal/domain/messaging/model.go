package messaging

import "time"

// Conversation es un hilo entre dos usuarios. UserA < UserB siempre,
// así el par tiene una sola fila.
type Conversation struct {
	ID            string
	UserA         string
	UserB         string
	CreatedAt     time.Time
	LastMessageAt time.Time
}

func (c Conversation) Has(userID string) bool {
	return c.UserA == userID || c.UserB == userID
}

// Other devuelve el otro participante.
func (c Conversation) Other(userID string) string {
	if c.UserA == userID {
		return c.UserB
	}
	return c.UserA
}

type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	RecipientID    string
	Body           string
	ReadAt         *time.Time
	CreatedAt      time.Time
}

func (m Message) Read() bool { return m.ReadAt != nil }

// Summary es la fila de la bandeja de entrada.
type Summary struct {
	Conversation Conversation
	OtherUserID  string
	LastMessage  *Message
	Unread       int
}

func orderedPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}
