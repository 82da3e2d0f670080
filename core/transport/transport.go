// Package transport defines the capability contract for the bidirectional
// realtime channel to the upstream coaching agent.
//
// The session controller only ever talks to the Session interface; concrete
// wire implementations live in subpackages.
package transport

import (
	"context"

	"github.com/tbornik/coaching-core/core/events"
)

// Modality names one output channel the upstream may produce on.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityAudio Modality = "audio"
)

// Credential is a short-lived session credential minted by the credential
// endpoint and consumed once at connect time.
type Credential struct {
	Token     string
	ExpiresAt int64
}

// SessionConfig is the upstream-visible session configuration. Partial
// updates leave zero-valued fields untouched.
type SessionConfig struct {
	Instructions     string
	OutputModalities []Modality
}

// ResponseRequest asks the upstream to generate a response.
//
// Hidden requests set Conversation to "none" so the exchange never enters
// the shared conversation, and carry a purpose tag the upstream is asked to
// echo back in response lifecycle events.
type ResponseRequest struct {
	Purpose      string
	Instructions string
	Conversation string
	Modalities   []Modality
}

// EventSink receives decoded transport events. Implementations must not
// block; the transport delivers events one at a time in arrival order.
type EventSink func(events.Event)

// Session is the opaque bidirectional channel to the upstream agent.
//
// Connect must be called exactly once; after Close the session is dead and
// every other method fails.
type Session interface {
	// Connect opens the channel using the given credential.
	Connect(ctx context.Context, credential Credential) error
	// Subscribe registers the single event sink. Must be called before
	// Connect so no early event is lost.
	Subscribe(sink EventSink)
	// SendMessage submits a conversation message on behalf of role.
	SendMessage(role events.Role, text string) error
	// CreateResponse asks the upstream to generate a response.
	CreateResponse(request ResponseRequest) error
	// UpdateConfig pushes a session configuration change mid-session.
	UpdateConfig(config SessionConfig) error
	// Mute pauses or resumes microphone input upload.
	Mute(muted bool) error
	// Close tears the channel down.
	Close() error
}
