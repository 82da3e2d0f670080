// Package modality holds the thin client-side state for the voice/text
// input switch and the free-text input channel.
//
// Switching modality is purely local: it decides microphone muting and
// whether typed input is enabled. Upstream output-modality configuration is
// driven separately by the session controller so an in-flight session can
// be reconfigured without reconnecting.
package modality

import "sync"

// Modality is one of exactly two mutually exclusive input modes.
type Modality string

const (
	Voice Modality = "voice"
	Text  Modality = "text"
)

// order fixes the circular keyboard-navigation sequence.
var order = []Modality{Voice, Text}

// Switch is the modality selector. Selecting the already-active modality is
// a no-op and emits nothing.
type Switch struct {
	mu          sync.Mutex
	current     Modality
	subscribers []func(Modality)
}

func NewSwitch() *Switch {
	return &Switch{current: Voice}
}

// Current returns the active modality.
func (s *Switch) Current() Modality {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Subscribe registers a callback invoked on every effective change.
func (s *Switch) Subscribe(callback func(Modality)) {
	if callback == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, callback)
}

// Select activates a modality. Idempotent: re-selecting the active modality
// emits no notification.
func (s *Switch) Select(modality Modality) {
	if modality != Voice && modality != Text {
		return
	}

	s.mu.Lock()
	if s.current == modality {
		s.mu.Unlock()
		return
	}
	s.current = modality
	subscribers := make([]func(Modality), len(s.subscribers))
	copy(subscribers, s.subscribers)
	s.mu.Unlock()

	for _, subscriber := range subscribers {
		subscriber(modality)
	}
}

// Next moves to the following modality, wrapping circularly.
func (s *Switch) Next() {
	s.Select(s.neighbor(1))
}

// Prev moves to the preceding modality, wrapping circularly.
func (s *Switch) Prev() {
	s.Select(s.neighbor(-1))
}

func (s *Switch) neighbor(step int) Modality {
	current := s.Current()
	for i, modality := range order {
		if modality == current {
			return order[(i+step+len(order))%len(order)]
		}
	}
	return order[0]
}

// TextInput is the free-text input channel state. It is enabled exactly
// while the text modality is active.
type TextInput struct {
	mu      sync.Mutex
	enabled bool
	draft   string
}

func NewTextInput() *TextInput {
	return &TextInput{}
}

// BindTo enables and disables the channel as the switch changes.
func (t *TextInput) BindTo(s *Switch) {
	t.setEnabled(s.Current() == Text)
	s.Subscribe(func(modality Modality) {
		t.setEnabled(modality == Text)
	})
}

func (t *TextInput) setEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
	if !enabled {
		t.draft = ""
	}
}

// Enabled reports whether typed input is currently accepted.
func (t *TextInput) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

// SetDraft stores the in-progress text. Ignored while disabled.
func (t *TextInput) SetDraft(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.enabled {
		t.draft = text
	}
}

// TakeDraft returns the current draft and clears it.
func (t *TextInput) TakeDraft() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	draft := t.draft
	t.draft = ""
	return draft
}
