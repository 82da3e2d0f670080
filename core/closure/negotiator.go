// Package closure serializes the session wrap-up protocol: suggest a
// wrap-up, obtain consent, request the summary, wait for audio playback,
// disconnect.
//
// The negotiator owns the whole negotiation state machine so "at most one
// closure flow at a time" is a structural property, regardless of whether
// the analyzer or the user initiated it. It never touches the transcript
// and issues no side-channel requests beyond the consent micro-flow.
package closure

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// ErrNotConnected is reported through the failure callback when a summary is
// requested without an active session.
var ErrNotConnected = errors.New("cannot request summary: no active session")

// State is the closure negotiation state.
type State string

const (
	StateIdle                State = "idle"
	StateAwaitingConsent     State = "awaiting-consent"
	StateConsentCheckPending State = "consent-check-pending"
	StateSummaryInProgress   State = "summary-in-progress"
)

const (
	// PurposeConsentPrompt tags the request asking the client whether to wrap up.
	PurposeConsentPrompt = "closure_consent_prompt"
	// PurposeConsentCheck tags the hidden consent classification request.
	PurposeConsentCheck = "closure_consent_check"
	// PurposeContinue tags the continuation request after a decline.
	PurposeContinue = "closure_continue"
	// PurposeSummary tags the visible summary request.
	PurposeSummary = "session_summary"

	// declineSuppression is how long after a decline no new closure prompt
	// may fire.
	declineSuppression = 2 * time.Minute
	// disconnectGrace lets trailing UI animations finish before a
	// text-only session disconnects.
	disconnectGrace = 1500 * time.Millisecond
)

// Agent issues purpose-tagged requests to the upstream.
type Agent interface {
	CreateTaggedResponse(purpose, instructions string, hidden bool) error
}

// Negotiator mediates the multi-step wrap-up consent flow and the final
// summary request.
//
// State-changing methods are called from the session controller's single
// event loop; the mutex guards against the disconnect grace timer firing on
// its own goroutine.
type Negotiator struct {
	mu sync.Mutex

	agent Agent
	state State

	connected   func() bool
	audioActive func() bool
	disconnect  func()

	onSystemMessage func(text string)
	onFailure       func(err error)

	suppressedUntil   time.Time
	summaryResponseID string
	awaitingPlayback  bool
	graceTimer        *time.Timer

	now func() time.Time
}

type NegotiatorOption func(*Negotiator)

// WithConnectionGuard registers the predicate deciding whether a session is
// currently active. Summary requests fail without one passing.
func WithConnectionGuard(connected func() bool) NegotiatorOption {
	return func(n *Negotiator) {
		if connected != nil {
			n.connected = connected
		}
	}
}

// WithAudioGate registers the predicate deciding whether the active output
// modality includes audio; when it does, disconnect waits for playback to
// finish.
func WithAudioGate(audioActive func() bool) NegotiatorOption {
	return func(n *Negotiator) {
		if audioActive != nil {
			n.audioActive = audioActive
		}
	}
}

// WithDisconnect registers the teardown the negotiator schedules once the
// summary has fully played out.
func WithDisconnect(disconnect func()) NegotiatorOption {
	return func(n *Negotiator) {
		if disconnect != nil {
			n.disconnect = disconnect
		}
	}
}

// WithSystemMessageCallback registers the local system-message recorder.
func WithSystemMessageCallback(callback func(text string)) NegotiatorOption {
	return func(n *Negotiator) {
		if callback != nil {
			n.onSystemMessage = callback
		}
	}
}

// WithFailureCallback registers the user-visible alert for failed
// user-initiated summary requests. Analyzer-initiated failures never reach
// it.
func WithFailureCallback(callback func(err error)) NegotiatorOption {
	return func(n *Negotiator) {
		if callback != nil {
			n.onFailure = callback
		}
	}
}

func NewNegotiator(agent Agent, opts ...NegotiatorOption) *Negotiator {
	negotiator := &Negotiator{
		agent:           agent,
		state:           StateIdle,
		connected:       func() bool { return false },
		audioActive:     func() bool { return false },
		disconnect:      func() {},
		onSystemMessage: func(string) {},
		onFailure:       func(error) {},
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(negotiator)
	}
	return negotiator
}

// State returns the current negotiation state.
func (n *Negotiator) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Busy reports whether any closure negotiation is in flight.
func (n *Negotiator) Busy() bool {
	return n.State() != StateIdle
}

// Suppressed reports whether a recent decline still blocks new prompts.
func (n *Negotiator) Suppressed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.now().Before(n.suppressedUntil)
}

// Suggest opens the consent flow: it asks the upstream agent to ask the
// client whether to wrap up. Returns false, without side effects, when a
// negotiation is already in flight or a decline window is still open; the
// caller only shows the suggestion banner on true.
func (n *Negotiator) Suggest(ctx context.Context) bool {
	n.mu.Lock()
	if n.state != StateIdle || n.now().Before(n.suppressedUntil) {
		n.mu.Unlock()
		return false
	}
	n.state = StateAwaitingConsent
	agent := n.agent
	n.mu.Unlock()

	_, span := tracer.Start(ctx, "suggest session closure")
	defer span.End()

	if err := agent.CreateTaggedResponse(PurposeConsentPrompt, consentAskInstructions, false); err != nil {
		span.RecordError(err)
		log.Printf("Failed to issue consent prompt: %v", err)
		n.mu.Lock()
		n.state = StateIdle
		n.mu.Unlock()
		return false
	}
	return true
}

// NoteClientUtterance classifies the client's reply while consent is
// pending. At most one classification request is in flight; utterances
// arriving during one are ignored.
func (n *Negotiator) NoteClientUtterance(text string) {
	n.mu.Lock()
	if n.state != StateAwaitingConsent {
		n.mu.Unlock()
		return
	}
	n.state = StateConsentCheckPending
	agent := n.agent
	n.mu.Unlock()

	if err := agent.CreateTaggedResponse(PurposeConsentCheck, consentCheckPrompt(text), true); err != nil {
		log.Printf("Failed to issue consent check: %v", err)
		n.mu.Lock()
		n.state = StateAwaitingConsent
		n.mu.Unlock()
	}
}

// HandleConsentVerdict consumes the completion of a consent-check request.
// accept triggers the real summary; decline closes the flow and opens the
// suppression window; uncertain keeps waiting for a clearer answer.
func (n *Negotiator) HandleConsentVerdict(payload string) {
	n.mu.Lock()
	if n.state != StateConsentCheckPending {
		n.mu.Unlock()
		return
	}
	n.mu.Unlock()

	decision, verdict, err := parseConsentVerdict(payload)
	if err != nil {
		log.Printf("Discarding malformed consent verdict: %v", err)
		decision = ConsentUncertain
	}
	if verdict != nil {
		logger.Debug("consent verdict", "decision", verdict.Decision, "confidence", verdict.Confidence, "reason", verdict.Reason)
	}

	switch decision {
	case ConsentAccept:
		n.RequestSummary(false)
	case ConsentDecline:
		n.Decline()
	default:
		n.mu.Lock()
		n.state = StateAwaitingConsent
		n.mu.Unlock()
	}
}

// Decline closes the consent flow without a summary, opens the suppression
// window, and asks the agent to continue with one deepening question.
func (n *Negotiator) Decline() {
	n.mu.Lock()
	n.state = StateIdle
	n.suppressedUntil = n.now().Add(declineSuppression)
	agent := n.agent
	n.mu.Unlock()

	if err := agent.CreateTaggedResponse(PurposeContinue, continueInstructions, false); err != nil {
		log.Printf("Failed to issue continuation request: %v", err)
	}
}

// RequestSummary starts the visible summary. userInitiated distinguishes a
// button press from the analyzer consent flow: only the former surfaces a
// failure alert, internal plumbing fails silently.
func (n *Negotiator) RequestSummary(userInitiated bool) {
	n.mu.Lock()
	if !n.connected() {
		onFailure := n.onFailure
		n.state = StateIdle
		n.mu.Unlock()
		if userInitiated {
			onFailure(ErrNotConnected)
		}
		return
	}

	n.clearTimerLocked()
	n.state = StateSummaryInProgress
	n.summaryResponseID = ""
	n.awaitingPlayback = n.audioActive()
	agent := n.agent
	n.mu.Unlock()

	n.onSystemMessage("Summary requested")

	if err := agent.CreateTaggedResponse(PurposeSummary, summaryInstructions, false); err != nil {
		log.Printf("Failed to issue summary request: %v", err)
		n.mu.Lock()
		n.state = StateIdle
		n.awaitingPlayback = false
		n.mu.Unlock()
		if userInitiated {
			n.onFailure(err)
		}
	}
}

// NoteResponseCreated captures the response id the upstream assigned to the
// in-flight summary, covering upstreams that omit metadata on completion.
func (n *Negotiator) NoteResponseCreated(responseID, purpose string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.state != StateSummaryInProgress || n.summaryResponseID != "" {
		return
	}
	if purpose == "" || purpose == PurposeSummary {
		n.summaryResponseID = responseID
	}
}

// HandleResponseDone recognizes summary completion by purpose tag or by the
// response id captured at creation time. Reports whether the event
// completed the summary.
func (n *Negotiator) HandleResponseDone(responseID, purpose string) bool {
	n.mu.Lock()
	if n.state != StateSummaryInProgress {
		n.mu.Unlock()
		return false
	}
	matched := purpose == PurposeSummary ||
		(responseID != "" && responseID == n.summaryResponseID)
	if !matched {
		n.mu.Unlock()
		return false
	}

	if n.awaitingPlayback {
		// Disconnect waits for the playback-stopped event.
		n.mu.Unlock()
		return true
	}

	disconnect := n.disconnect
	n.graceTimer = time.AfterFunc(disconnectGrace, disconnect)
	n.mu.Unlock()
	return true
}

// HandlePlaybackStopped completes an audio-gated summary: the upstream
// finished speaking, so the session can come down now.
func (n *Negotiator) HandlePlaybackStopped() {
	n.mu.Lock()
	if n.state != StateSummaryInProgress || !n.awaitingPlayback {
		n.mu.Unlock()
		return
	}
	n.awaitingPlayback = false
	disconnect := n.disconnect
	n.mu.Unlock()

	disconnect()
}

// Reset force-clears negotiation state, pending timers, and the decline
// suppression window. Called on disconnect and on transport errors; a
// completion arriving afterwards no longer matches anything and is ignored,
// and a fresh session starts with suggestions allowed again.
func (n *Negotiator) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.clearTimerLocked()
	n.state = StateIdle
	n.summaryResponseID = ""
	n.awaitingPlayback = false
	n.suppressedUntil = time.Time{}
}

func (n *Negotiator) clearTimerLocked() {
	if n.graceTimer != nil {
		n.graceTimer.Stop()
		n.graceTimer = nil
	}
}
