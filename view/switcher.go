// Package view holds the studio's page state: a switcher choosing between a
// conversation widget and an image widget, and the state machines of the two
// widgets. It has no rendering code; the tui and web packages draw it.
package view

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mhpenta/genstudio"
)

// Kind names one of the two views.
type Kind int

const (
	KindConversation Kind = iota
	KindImage
)

// Kinds lists the views in navigation order.
var Kinds = []Kind{KindConversation, KindImage}

func (k Kind) String() string {
	if k == KindImage {
		return "image"
	}
	return "conversation"
}

// Label is the navigation button text for the view.
func (k Kind) Label() string {
	if k == KindImage {
		return "Image Generator"
	}
	return "Chat"
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind accepts a view name ("conversation", "chat", "image").
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "conversation", "chat":
		return KindConversation, nil
	case "image", "image-generator":
		return KindImage, nil
	default:
		return 0, fmt.Errorf("unknown view %q", s)
	}
}

// Switcher holds the selected view and owns the mounted widget. Only one
// widget exists at a time; switching away discards it and switching back
// builds a fresh one.
type Switcher struct {
	gateway genstudio.Gateway

	mu      sync.Mutex
	current Kind
	conv    *Conversation
	img     *Image
}

// NewSwitcher returns a Switcher showing an unmounted conversation. Call
// Mount to open its session.
func NewSwitcher(gateway genstudio.Gateway) *Switcher {
	return &Switcher{
		gateway: gateway,
		current: KindConversation,
		conv:    NewConversation(gateway),
	}
}

// Current returns the selected view.
func (s *Switcher) Current() Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Switch selects kind without doing any I/O. Selecting the current view is
// a no-op and reports false. Otherwise the mounted widget is unmounted, its
// pending request orphaned, and a fresh widget of kind takes its place; a
// fresh conversation still needs Mount.
func (s *Switcher) Switch(kind Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if kind == s.current {
		return false
	}

	switch s.current {
	case KindConversation:
		if s.conv != nil {
			s.conv.Unmount()
		}
		s.conv = nil
	case KindImage:
		if s.img != nil {
			s.img.Unmount()
		}
		s.img = nil
	}

	s.current = kind
	switch kind {
	case KindConversation:
		s.conv = NewConversation(s.gateway)
	case KindImage:
		s.img = NewImage(s.gateway)
	}
	return true
}

// Mount initializes the mounted widget. Only a conversation needs it.
func (s *Switcher) Mount(ctx context.Context) error {
	conv := s.Conversation()
	if conv == nil {
		return nil
	}
	return conv.Mount(ctx)
}

// Select switches to kind and mounts the new widget.
func (s *Switcher) Select(ctx context.Context, kind Kind) (bool, error) {
	if !s.Switch(kind) {
		return false, nil
	}
	return true, s.Mount(ctx)
}

// Conversation returns the mounted conversation widget, or nil.
func (s *Switcher) Conversation() *Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv
}

// Image returns the mounted image widget, or nil.
func (s *Switcher) Image() *Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.img
}

// Snapshot is a point-in-time copy of the page. Exactly one of
// Conversation and Image is set.
type Snapshot struct {
	View         Kind                  `json:"view"`
	Conversation *ConversationSnapshot `json:"conversation,omitempty"`
	Image        *ImageSnapshot        `json:"image,omitempty"`
}

func (s *Switcher) Snapshot() Snapshot {
	s.mu.Lock()
	kind, conv, img := s.current, s.conv, s.img
	s.mu.Unlock()

	snap := Snapshot{View: kind}
	if conv != nil {
		cs := conv.Snapshot()
		snap.Conversation = &cs
	}
	if img != nil {
		is := img.Snapshot()
		snap.Image = &is
	}
	return snap
}
