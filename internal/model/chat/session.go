package chat

import "time"

// DefaultTitle is the sentinel title a session carries until it is renamed
// or auto-titled from its first user message.
const DefaultTitle = "New chat"

// Session is one independent conversation thread with its own message log
// and attachment metadata.
type Session struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	CreatedAt   time.Time    `json:"createdAt"`
	Messages    []Message    `json:"messages"`
	Attachments []Attachment `json:"attachments"`
}

// Summary is the listing projection of a session.
type Summary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

// Summary returns the listing projection of the session.
func (s *Session) Summary() Summary {
	return Summary{ID: s.ID, Title: s.Title, CreatedAt: s.CreatedAt}
}

// Clone returns a deep copy so callers never alias repository state.
func (s *Session) Clone() Session {
	out := *s
	out.Messages = append([]Message(nil), s.Messages...)
	out.Attachments = append([]Attachment(nil), s.Attachments...)
	return out
}
