package session

import (
	"time"

	"github.com/tbornik/coaching-core/core/events"
	"github.com/tbornik/coaching-core/core/progress"
)

type ControllerOption func(*Controller)

// Message is a finalized transcript entry surfaced to the UI.
type Message struct {
	ID        string
	Role      events.Role
	Text      string
	Timestamp time.Time
}

// Usage accumulates token counts across every response of a session,
// side-channel responses included.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// WithMessageCallback registers a callback for every finalized transcript
// message that should be rendered, locally echoed user input included.
// Repeated invocations with the same ID replace the earlier rendition.
func WithMessageCallback(callback func(Message)) ControllerOption {
	return func(c *Controller) { c.onMessage = callback }
}

// WithAssistantDeltaCallback registers a callback for incremental coach text
// as it streams in, before the message is finalized.
func WithAssistantDeltaCallback(callback func(responseID string, delta string)) ControllerOption {
	return func(c *Controller) { c.onAssistantDelta = callback }
}

// WithStatusCallback registers a callback invoked on every session status
// transition.
func WithStatusCallback(callback func(Status)) ControllerOption {
	return func(c *Controller) { c.onStatus = callback }
}

// WithAudioCallback registers a callback for decoded coach audio frames, in
// arrival order.
func WithAudioCallback(callback func(audio []byte)) ControllerOption {
	return func(c *Controller) { c.onAudio = callback }
}

// WithUsageCallback registers a callback invoked with cumulative token usage
// after every completed response.
func WithUsageCallback(callback func(Usage)) ControllerOption {
	return func(c *Controller) { c.onUsage = callback }
}

// WithSpeakingCallback registers a callback invoked when the client starts
// and stops speaking.
func WithSpeakingCallback(callback func(speaking bool)) ControllerOption {
	return func(c *Controller) { c.onSpeaking = callback }
}

// WithScoresCallback registers a callback invoked whenever the progress
// analyzer produces a fresh assessment snapshot.
func WithScoresCallback(callback func(progress.Snapshot)) ControllerOption {
	return func(c *Controller) { c.onScores = callback }
}

// WithClosureSuggestionCallback registers callbacks toggling the closure
// suggestion surface: show when the session looks ready to wrap up, hide once
// the suggestion is consumed or withdrawn.
func WithClosureSuggestionCallback(show func(), hide func()) ControllerOption {
	return func(c *Controller) {
		c.onClosureSuggestion = show
		c.onClosureDismiss = hide
	}
}

// WithSystemMessageCallback registers a callback for session-level notices
// that are not part of the coaching transcript.
func WithSystemMessageCallback(callback func(text string)) ControllerOption {
	return func(c *Controller) { c.onSystemMessage = callback }
}

// WithErrorCallback registers a callback for non-fatal errors the controller
// absorbs while a session is running.
func WithErrorCallback(callback func(err error)) ControllerOption {
	return func(c *Controller) { c.onError = callback }
}

// WithInstructions overrides the base coaching instructions sent on session
// establishment.
func WithInstructions(instructions string) ControllerOption {
	return func(c *Controller) { c.instructions = instructions }
}

// WithClientBackground appends intake background, typically the client's
// saved questionnaire answers, to the session instructions. Apply after
// WithInstructions; that option replaces the instructions wholesale.
func WithClientBackground(background string) ControllerOption {
	return func(c *Controller) {
		if background != "" {
			c.instructions = c.instructions + "\n\n" + background
		}
	}
}

// WithAutoSummary controls whether a readiness verdict from the analyzer
// opens the wrap-up flow at all: when enabled, readiness surfaces the
// closure suggestion and starts the consent exchange. When disabled the
// analyzer keeps scoring but never proposes wrapping up on its own.
func WithAutoSummary(enabled bool) ControllerOption {
	return func(c *Controller) { c.autoSummary = enabled }
}
