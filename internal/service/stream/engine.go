package stream

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"

	chatmodel "github.com/divyam8333/CureBot/internal/model/chat"
	chatservice "github.com/divyam8333/CureBot/internal/service/chat"
)

// Generator produces the complete reply text for a user input. It must be
// pure: no timing, no I/O, deterministic given rng.
type Generator interface {
	Generate(userInput, contextNote string, rng *rand.Rand) string
}

// ErrStreamActive is returned when Start is called while a stream is already
// running. Starting over an active stream is a caller contract violation; it
// never implicitly cancels the prior stream.
var ErrStreamActive = errors.New("a stream is already active")

// DefaultInterval is the reference fragment cadence.
const DefaultInterval = 25 * time.Millisecond

// Observer receives the stream lifecycle callbacks. All callbacks are
// invoked from the stream goroutine; implementations must not call back into
// the engine.
type Observer interface {
	OnFragment(content string)
	OnComplete(content string)
	OnCancelled(partial string)
}

// NopObserver ignores all callbacks.
type NopObserver struct{}

func (NopObserver) OnFragment(string)  {}
func (NopObserver) OnComplete(string)  {}
func (NopObserver) OnCancelled(string) {}

// Fragment is one atomic streaming step: a word or whitespace run, plus the
// assistant message content accumulated so far.
type Fragment struct {
	Index   int    `json:"index"`
	Text    string `json:"text"`
	Content string `json:"content"`
}

// Stream is one in-flight assistant reply.
type Stream struct {
	ChatID    string
	MessageID string
	Reply     string

	fragments []string
	reader    *schema.StreamReader[Fragment]
	writer    *schema.StreamWriter[Fragment]

	cancel     chan struct{}
	cancelOnce sync.Once
	done       chan struct{}
}

// Fragments exposes the paced fragment feed. The reader terminates with
// io.EOF once the stream completes or is cancelled.
func (st *Stream) Fragments() *schema.StreamReader[Fragment] {
	return st.reader
}

// Done is closed when the stream has fully stopped, for either reason.
func (st *Stream) Done() <-chan struct{} {
	return st.done
}

// Engine reveals generated replies one fragment per tick. At most one stream
// is active per process.
type Engine struct {
	mu       sync.Mutex
	chats    *chatservice.Service
	gen      Generator
	rng      *rand.Rand
	interval time.Duration
	active   *Stream
}

// NewEngine wires the engine to the chat repository and reply generator.
// A non-positive interval falls back to DefaultInterval.
func NewEngine(chats *chatservice.Service, gen Generator, rng *rand.Rand, interval time.Duration) *Engine {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Engine{chats: chats, gen: gen, rng: rng, interval: interval}
}

// Streaming reports whether a stream is currently active.
func (e *Engine) Streaming() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active != nil
}

// Start generates the full reply, appends an empty assistant message to the
// chat, and begins emitting fragments on the configured cadence. The caller
// must already have appended the triggering user message.
func (e *Engine) Start(chatID, userInput string, obs Observer) (*Stream, error) {
	if obs == nil {
		obs = NopObserver{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active != nil {
		return nil, ErrStreamActive
	}

	session, ok := e.chats.GetSession(chatID)
	if !ok {
		return nil, chatservice.ErrSessionNotFound
	}

	replyText := e.gen.Generate(userInput, contextNote(session.Attachments), e.rng)

	msg, err := e.chats.AppendMessage(chatID, chatmodel.RoleAssistant, "")
	if err != nil {
		return nil, err
	}

	fragments := splitFragments(replyText)
	reader, writer := schema.Pipe[Fragment](len(fragments))

	st := &Stream{
		ChatID:    chatID,
		MessageID: msg.ID,
		Reply:     replyText,
		fragments: fragments,
		reader:    reader,
		writer:    writer,
		cancel:    make(chan struct{}),
		done:      make(chan struct{}),
	}
	e.active = st

	go e.run(st, obs)

	log.Printf("[stream] started chat=%s message=%s fragments=%d", chatID, msg.ID, len(fragments))
	return st, nil
}

// Cancel stops the active stream before its next fragment and waits for it
// to settle. Whatever content was appended so far is retained. Cancelling
// when idle is a no-op.
func (e *Engine) Cancel() {
	e.mu.Lock()
	st := e.active
	e.mu.Unlock()
	if st == nil {
		return
	}

	st.cancelOnce.Do(func() { close(st.cancel) })
	<-st.done
}

// run owns the emission loop: one fragment per tick, strictly in order,
// with the cancellation signal checked before each emission.
func (e *Engine) run(st *Stream, obs Observer) {
	defer close(st.done)
	defer st.writer.Close()

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	content := ""
	for i, frag := range st.fragments {
		select {
		case <-st.cancel:
			e.finish(st, "cancelled")
			obs.OnCancelled(content)
			return
		default:
		}

		select {
		case <-st.cancel:
			e.finish(st, "cancelled")
			obs.OnCancelled(content)
			return
		case <-ticker.C:
		}

		full, err := e.chats.AppendToAssistantMessage(st.ChatID, st.MessageID, frag)
		if err != nil {
			// The chat disappeared mid-stream; treat it as a cancellation.
			log.Printf("[stream] aborted chat=%s: %v", st.ChatID, err)
			e.finish(st, "aborted")
			obs.OnCancelled(content)
			return
		}
		content = full
		st.writer.Send(Fragment{Index: i, Text: frag, Content: full}, nil)
		obs.OnFragment(full)
	}

	e.finish(st, "completed")
	obs.OnComplete(content)
}

func (e *Engine) finish(st *Stream, outcome string) {
	e.mu.Lock()
	if e.active == st {
		e.active = nil
	}
	e.mu.Unlock()
	log.Printf("[stream] %s chat=%s message=%s", outcome, st.ChatID, st.MessageID)
}

// contextNote describes up to three attached file names, matching the note
// the assistant weaves into its reply.
func contextNote(files []chatmodel.Attachment) string {
	if len(files) == 0 {
		return ""
	}

	names := make([]string, 0, 3)
	for i, f := range files {
		if i == 3 {
			break
		}
		names = append(names, f.Name)
	}

	plural := ""
	if len(files) > 1 {
		plural = "s"
	}
	return fmt.Sprintf("I also see you attached %d file%s: %s.", len(files), plural, strings.Join(names, ", "))
}

// splitFragments partitions text on whitespace runs, keeping each run as its
// own fragment so concatenating all fragments reproduces the input exactly.
func splitFragments(text string) []string {
	if text == "" {
		return nil
	}

	var fragments []string
	start := 0
	inSpace := isSpace(rune(text[0]))
	for i, r := range text {
		if isSpace(r) != inSpace {
			fragments = append(fragments, text[start:i])
			start = i
			inSpace = !inSpace
		}
	}
	return append(fragments, text[start:])
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
