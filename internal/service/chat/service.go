package chat

import (
	"encoding/json"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	chatmodel "github.com/divyam8333/CureBot/internal/model/chat"
	"github.com/divyam8333/CureBot/internal/storage"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrInvalidRole     = errors.New("invalid message role")
	ErrEmptySubmission = errors.New("message text or attachments required")
)

// Persisted record keys, carried over from the original client storage.
const (
	keyChats  = "chats-v1"
	keyActive = "current-chat-id"
)

const titleLimit = 40

// AttachmentsTitle is the derived title for a chat whose first message
// carried only attachments.
const AttachmentsTitle = "Chat with attachments"

// attachmentsContent substitutes for empty text on an attachments-only send.
const attachmentsContent = "(sent with attachments)"

// Notifier receives change notifications after repository mutations. It is
// consumed by the rendering layer; implementations must not call back into
// the service from the notification.
type Notifier interface {
	SessionsChanged()
	ActiveChanged(id string)
}

// Service owns the session collection and the active-session pointer. Every
// mutation is written through to the storage adapter before it returns; a
// failed write keeps the in-memory state authoritative and logs a warning.
type Service struct {
	mu        sync.RWMutex
	store     storage.Store
	sessions  []*chatmodel.Session
	activeID  string
	notifiers []Notifier
}

// NewService restores state from the store, falling back to defaults when
// records are absent or malformed. The collection is never left empty.
func NewService(store storage.Store) *Service {
	s := &Service{store: store}
	s.restore()

	if len(s.sessions) == 0 {
		s.createLocked()
		s.persistLocked()
	} else if s.findLocked(s.activeID) == nil {
		s.activeID = s.sessions[0].ID
		s.persistLocked()
	}

	return s
}

func (s *Service) restore() {
	raw, ok, err := s.store.Load(keyChats)
	if err != nil {
		log.Printf("[chat] warning: failed to load sessions: %v", err)
	} else if ok {
		var sessions []*chatmodel.Session
		if err := json.Unmarshal(raw, &sessions); err != nil {
			log.Printf("[chat] warning: malformed session record, starting fresh: %v", err)
		} else {
			s.sessions = pruneSessions(sessions)
		}
	}

	raw, ok, err = s.store.Load(keyActive)
	if err != nil {
		log.Printf("[chat] warning: failed to load active id: %v", err)
	} else if ok {
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			log.Printf("[chat] warning: malformed active-id record: %v", err)
		} else {
			s.activeID = id
		}
	}
}

// pruneSessions drops entries a degenerate persisted record can carry, such
// as JSON nulls or sessions without an id. Dropped entries are logged; when
// nothing survives the caller falls back to a fresh default session.
func pruneSessions(sessions []*chatmodel.Session) []*chatmodel.Session {
	out := sessions[:0]
	for _, session := range sessions {
		if session == nil || session.ID == "" {
			log.Printf("[chat] warning: dropping invalid persisted session entry")
			continue
		}
		out = append(out, session)
	}
	return out
}

// Subscribe registers a notifier for subsequent mutations.
func (s *Service) Subscribe(n Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifiers = append(s.notifiers, n)
}

// CreateSession builds a fresh session, inserts it at the front of the
// collection, and makes it active. It never fails.
func (s *Service) CreateSession() chatmodel.Session {
	s.mu.Lock()
	session := s.createLocked()
	s.persistLocked()
	out := session.Clone()
	s.mu.Unlock()

	s.notifySessions()
	s.notifyActive(out.ID)
	return out
}

func (s *Service) createLocked() *chatmodel.Session {
	session := &chatmodel.Session{
		ID:        uuid.NewString(),
		Title:     chatmodel.DefaultTitle,
		CreatedAt: time.Now().UTC(),
	}
	s.sessions = append([]*chatmodel.Session{session}, s.sessions...)
	s.activeID = session.ID
	return session
}

// ListSessions returns summaries in collection order, optionally filtered by
// a case-insensitive substring match on the title.
func (s *Service) ListSessions(filter string) []chatmodel.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(filter))
	out := make([]chatmodel.Summary, 0, len(s.sessions))
	for _, session := range s.sessions {
		if q != "" && !strings.Contains(strings.ToLower(session.Title), q) {
			continue
		}
		out = append(out, session.Summary())
	}
	return out
}

// SetActive points the active pointer at id. A missing id is a no-op.
func (s *Service) SetActive(id string) {
	s.mu.Lock()
	if s.findLocked(id) == nil {
		s.mu.Unlock()
		return
	}
	s.activeID = id
	s.persistLocked()
	s.mu.Unlock()

	s.notifyActive(id)
}

// GetActive returns the active session.
func (s *Service) GetActive() (chatmodel.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session := s.findLocked(s.activeID)
	if session == nil {
		return chatmodel.Session{}, false
	}
	return session.Clone(), true
}

// GetSession returns the session with the given id.
func (s *Service) GetSession(id string) (chatmodel.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session := s.findLocked(id)
	if session == nil {
		return chatmodel.Session{}, false
	}
	return session.Clone(), true
}

// RenameSession replaces the title. A title that trims to empty keeps the
// existing one. Renames always win over auto-titling: once a session has a
// non-default title the first user message never overwrites it.
func (s *Service) RenameSession(id, title string) {
	title = strings.TrimSpace(title)
	if title == "" {
		return
	}

	s.mu.Lock()
	session := s.findLocked(id)
	if session == nil {
		s.mu.Unlock()
		return
	}
	session.Title = title
	s.persistLocked()
	s.mu.Unlock()

	s.notifySessions()
}

// DeleteSession removes the session with the given id. Deleting the last
// remaining session immediately creates a fresh default one; the collection
// is never empty after this call returns. When the deleted session was
// active, the active pointer moves to the last remaining session in
// collection order (or to the newly created one). A missing id is a no-op.
func (s *Service) DeleteSession(id string) {
	s.mu.Lock()
	idx := -1
	for i, session := range s.sessions {
		if session.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return
	}

	s.sessions = append(s.sessions[:idx], s.sessions[idx+1:]...)

	activeChanged := false
	if len(s.sessions) == 0 {
		s.createLocked()
		activeChanged = true
	} else if s.activeID == id {
		s.activeID = s.sessions[len(s.sessions)-1].ID
		activeChanged = true
	}
	activeID := s.activeID

	s.persistLocked()
	s.mu.Unlock()

	s.notifySessions()
	if activeChanged {
		s.notifyActive(activeID)
	}
}

// SendUserMessage is the send action: it validates the submission, appends
// the user message, and derives the title when this is the first user
// message of a still-untitled chat. Empty text with no attachments is
// rejected before any state changes.
func (s *Service) SendUserMessage(chatID, text string) (chatmodel.Message, error) {
	text = strings.TrimSpace(text)

	s.mu.Lock()
	session := s.findLocked(chatID)
	if session == nil {
		s.mu.Unlock()
		return chatmodel.Message{}, ErrSessionNotFound
	}
	if text == "" && len(session.Attachments) == 0 {
		s.mu.Unlock()
		return chatmodel.Message{}, ErrEmptySubmission
	}

	content := text
	if content == "" {
		content = attachmentsContent
	}
	msg := s.appendLocked(session, chatmodel.RoleUser, content, text)
	s.persistLocked()
	s.mu.Unlock()

	s.notifySessions()
	return msg, nil
}

// AppendMessage appends a message with the current timestamp. A user message
// on a still-untitled chat derives the title from its content.
func (s *Service) AppendMessage(chatID string, role chatmodel.Role, content string) (chatmodel.Message, error) {
	if !role.Valid() {
		return chatmodel.Message{}, ErrInvalidRole
	}

	s.mu.Lock()
	session := s.findLocked(chatID)
	if session == nil {
		s.mu.Unlock()
		return chatmodel.Message{}, ErrSessionNotFound
	}
	msg := s.appendLocked(session, role, content, content)
	s.persistLocked()
	s.mu.Unlock()

	s.notifySessions()
	return msg, nil
}

// appendLocked appends the message and applies the auto-title rule.
// titleSource is the raw user text before any content substitution, so an
// attachments-only send titles the chat "Chat with attachments" rather than
// the placeholder content.
func (s *Service) appendLocked(session *chatmodel.Session, role chatmodel.Role, content, titleSource string) chatmodel.Message {
	msg := chatmodel.Message{
		ID:        ulid.Make().String(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	session.Messages = append(session.Messages, msg)

	if role == chatmodel.RoleUser && session.Title == chatmodel.DefaultTitle {
		if derived := truncateTitle(titleSource); derived != "" {
			session.Title = derived
		} else if len(session.Attachments) > 0 {
			session.Title = AttachmentsTitle
		}
	}
	return msg
}

func truncateTitle(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) > titleLimit {
		runes = runes[:titleLimit]
	}
	return string(runes)
}

// AppendToAssistantMessage appends a fragment to the in-flight assistant
// message and returns the full content so far. Only the streaming engine
// calls this.
func (s *Service) AppendToAssistantMessage(chatID, messageID, fragment string) (string, error) {
	s.mu.Lock()
	session := s.findLocked(chatID)
	if session == nil {
		s.mu.Unlock()
		return "", ErrSessionNotFound
	}

	var msg *chatmodel.Message
	for i := range session.Messages {
		if session.Messages[i].ID == messageID {
			msg = &session.Messages[i]
			break
		}
	}
	if msg == nil || msg.Role != chatmodel.RoleAssistant {
		s.mu.Unlock()
		return "", ErrMessageNotFound
	}

	msg.Content += fragment
	content := msg.Content
	s.persistLocked()
	s.mu.Unlock()

	return content, nil
}

// Transcript returns a copy of the session's messages in order.
func (s *Service) Transcript(chatID string) ([]chatmodel.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session := s.findLocked(chatID)
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return append([]chatmodel.Message(nil), session.Messages...), nil
}

// ClearMessages empties the session's message log in place, keeping its
// title and attachments.
func (s *Service) ClearMessages(chatID string) error {
	s.mu.Lock()
	session := s.findLocked(chatID)
	if session == nil {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	session.Messages = nil
	s.persistLocked()
	s.mu.Unlock()

	s.notifySessions()
	return nil
}

// AddAttachments appends metadata records to the session. Duplicates by name
// are allowed.
func (s *Service) AddAttachments(chatID string, metas []chatmodel.Attachment) error {
	if len(metas) == 0 {
		return nil
	}

	s.mu.Lock()
	session := s.findLocked(chatID)
	if session == nil {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	session.Attachments = append(session.Attachments, metas...)
	s.persistLocked()
	s.mu.Unlock()

	s.notifySessions()
	return nil
}

// RemoveAttachment removes the attachment at the given position. An
// out-of-range position, like a missing session, is a no-op.
func (s *Service) RemoveAttachment(chatID string, position int) {
	s.mu.Lock()
	session := s.findLocked(chatID)
	if session == nil || position < 0 || position >= len(session.Attachments) {
		s.mu.Unlock()
		return
	}
	session.Attachments = append(session.Attachments[:position], session.Attachments[position+1:]...)
	s.persistLocked()
	s.mu.Unlock()

	s.notifySessions()
}

func (s *Service) findLocked(id string) *chatmodel.Session {
	for _, session := range s.sessions {
		if session.ID == id {
			return session
		}
	}
	return nil
}

// persistLocked writes both records through to the store. Failures are
// reported as warnings; the in-memory state stays authoritative and the next
// successful mutation re-attempts a full write.
func (s *Service) persistLocked() {
	raw, err := json.Marshal(s.sessions)
	if err != nil {
		log.Printf("[chat] warning: failed to marshal sessions: %v", err)
		return
	}
	if err := s.store.Save(keyChats, raw); err != nil {
		log.Printf("[chat] warning: failed to persist sessions: %v", err)
	}

	raw, err = json.Marshal(s.activeID)
	if err != nil {
		log.Printf("[chat] warning: failed to marshal active id: %v", err)
		return
	}
	if err := s.store.Save(keyActive, raw); err != nil {
		log.Printf("[chat] warning: failed to persist active id: %v", err)
	}
}

func (s *Service) notifySessions() {
	s.mu.RLock()
	notifiers := append([]Notifier(nil), s.notifiers...)
	s.mu.RUnlock()
	for _, n := range notifiers {
		n.SessionsChanged()
	}
}

func (s *Service) notifyActive(id string) {
	s.mu.RLock()
	notifiers := append([]Notifier(nil), s.notifiers...)
	s.mu.RUnlock()
	for _, n := range notifiers {
		n.ActiveChanged(id)
	}
}
