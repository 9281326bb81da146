package view

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/mhpenta/genstudio"
)

// SessionInitFailure is shown when the chat session cannot be created.
const SessionInitFailure = "Failed to initialize chat session. Please check your API key."

// ErrNoSession is reported by Run when the widget has no chat session.
var ErrNoSession = errors.New("chat session not initialized")

// ConversationState is the lifecycle state of a Conversation.
type ConversationState int

const (
	ConversationUninitialized ConversationState = iota
	ConversationIdle
	ConversationPending
	ConversationErrored
)

func (s ConversationState) String() string {
	switch s {
	case ConversationUninitialized:
		return "uninitialized"
	case ConversationIdle:
		return "idle"
	case ConversationPending:
		return "pending"
	case ConversationErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name.
func (s ConversationState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Turn is one outstanding chat request issued by Begin.
type Turn struct {
	Text  string
	token uint64
}

// Reply is the outcome of a Turn.
type Reply struct {
	Text string
	Err  error
}

// Conversation drives turn-taking with a chat session. The user message is
// appended optimistically when a turn begins and retracted if the turn fails.
//
// A Conversation is safe for concurrent use. Begin, Run and Settle split one
// turn so that callers with an event loop can run the provider call off the
// loop; Submit does all three in place.
type Conversation struct {
	gateway genstudio.Gateway

	mu       sync.Mutex
	state    ConversationState
	session  genstudio.ChatSession
	history  []genstudio.Message
	err      string
	seq      uint64
	pending  uint64
	revision uint64
	detached bool
}

// NewConversation returns an uninitialized Conversation. Call Mount to open
// its chat session.
func NewConversation(gateway genstudio.Gateway) *Conversation {
	return &Conversation{gateway: gateway}
}

// Mount opens the chat session. On failure the widget enters the errored
// state with SessionInitFailure; no retry is attempted. Mount does nothing
// unless the widget is uninitialized.
func (c *Conversation) Mount(ctx context.Context) error {
	c.mu.Lock()
	if c.state != ConversationUninitialized || c.detached {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	session, err := c.gateway.StartChat(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != ConversationUninitialized || c.detached {
		return nil
	}
	c.revision++
	if err != nil {
		c.state = ConversationErrored
		c.err = SessionInitFailure
		return err
	}
	c.session = session
	c.history = nil
	c.state = ConversationIdle
	return nil
}

// Begin starts a turn with the trimmed text. It reports false, changing
// nothing, unless the widget is idle and the text is non-empty.
func (c *Conversation) Begin(text string) (Turn, bool) {
	text = genstudio.NormalizeInput(text)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != ConversationIdle || c.detached || text == "" {
		return Turn{}, false
	}

	c.history = append(c.history, genstudio.UserMessage(text))
	c.err = ""
	c.state = ConversationPending
	c.seq++
	c.pending = c.seq
	c.revision++

	return Turn{Text: text, token: c.seq}, true
}

// Run sends the turn to the chat session. It does not change widget state.
func (c *Conversation) Run(ctx context.Context, turn Turn) Reply {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	if session == nil {
		return Reply{Err: ErrNoSession}
	}

	text, err := session.Send(ctx, turn.Text)
	return Reply{Text: text, Err: err}
}

// Settle merges a reply into the widget. Replies for a turn that is no
// longer outstanding are dropped and Settle reports false.
func (c *Conversation) Settle(turn Turn, reply Reply) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.detached || c.state != ConversationPending || turn.token != c.pending {
		return false
	}

	if reply.Err != nil {
		c.history = c.history[:len(c.history)-1]
		c.err = genstudio.FailureText(reply.Err)
	} else {
		c.history = append(c.history, genstudio.ModelMessage(reply.Text))
	}

	c.state = ConversationIdle
	c.pending = 0
	c.revision++
	return true
}

// Submit runs a whole turn synchronously. It reports whether a turn was
// started.
func (c *Conversation) Submit(ctx context.Context, text string) bool {
	turn, ok := c.Begin(text)
	if !ok {
		return false
	}
	c.Settle(turn, c.Run(ctx, turn))
	return true
}

// Unmount detaches the widget. A turn still in flight is not cancelled but
// its reply will be dropped.
func (c *Conversation) Unmount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detached = true
	c.pending = 0
}

func (c *Conversation) State() ConversationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// History returns a copy of the transcript.
func (c *Conversation) History() []genstudio.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]genstudio.Message(nil), c.history...)
}

// Err returns the text of the error banner, or "".
func (c *Conversation) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Conversation) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == ConversationPending
}

// InputEnabled reports whether the message box accepts input.
func (c *Conversation) InputEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state != ConversationPending
}

// CanSend reports whether the send action is available for text.
func (c *Conversation) CanSend(text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == ConversationIdle && !c.detached && genstudio.NormalizeInput(text) != ""
}

// Revision increases whenever the transcript or the pending flag changes.
// Front ends keep the newest message in view by scrolling to the bottom
// when it moves.
func (c *Conversation) Revision() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.revision
}

// LastReply returns the newest model message.
func (c *Conversation) LastReply() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.history) - 1; i >= 0; i-- {
		if c.history[i].Role == genstudio.RoleModel {
			return c.history[i].Text, true
		}
	}
	return "", false
}

// IsSubmitKey reports whether key submits the message box. Plain enter
// submits; modified enter inserts a newline.
func IsSubmitKey(key string) bool {
	return strings.EqualFold(key, "enter")
}

// ConversationSnapshot is a point-in-time copy of a Conversation.
type ConversationSnapshot struct {
	State        ConversationState   `json:"state"`
	History      []genstudio.Message `json:"history"`
	Error        string              `json:"error,omitempty"`
	Pending      bool                `json:"pending"`
	InputEnabled bool                `json:"inputEnabled"`
	Revision     uint64              `json:"revision"`
}

func (c *Conversation) Snapshot() ConversationSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	history := make([]genstudio.Message, len(c.history))
	copy(history, c.history)
	return ConversationSnapshot{
		State:        c.state,
		History:      history,
		Error:        c.err,
		Pending:      c.state == ConversationPending,
		InputEnabled: c.state != ConversationPending,
		Revision:     c.revision,
	}
}
