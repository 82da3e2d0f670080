// Package session orchestrates a live coaching session end to end: it owns
// the transport lifecycle, interprets the upstream event stream into a
// renderable conversation, and coordinates the progress analyzer and the
// closure negotiator that run alongside the conversation.
//
// All transport events funnel through a single event loop, so handlers can
// treat per-session state as single-threaded; the mutex only covers the
// public API surface called from other goroutines.
package session

import (
	"context"
	_ "embed"
	"log"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"go.opentelemetry.io/otel/codes"

	"github.com/tbornik/coaching-core/core/closure"
	"github.com/tbornik/coaching-core/core/events"
	"github.com/tbornik/coaching-core/core/modality"
	"github.com/tbornik/coaching-core/core/progress"
	"github.com/tbornik/coaching-core/core/transport"
)

// Status is the session lifecycle state.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
)

// connectFallback bounds how long the controller waits for the upstream
// ready event before treating the session as established anyway.
const connectFallback = 1 * time.Second

//go:embed baseInstr.tmpl
var defaultInstructions string

// CredentialSource mints the short-lived credential consumed at connect
// time.
type CredentialSource interface {
	Acquire(ctx context.Context) (transport.Credential, error)
}

// Controller drives one coaching session at a time. A single Controller is
// reused across sessions; Connect establishes a fresh transport each time.
type Controller struct {
	mu sync.Mutex

	credentials  CredentialSource
	newTransport func() transport.Session

	transport transport.Session
	runtime   *eventRuntime

	requests *requestTable
	visible  *responseVisibility
	echo     *localEchoQueue

	analyzer   *progress.Analyzer
	negotiator *closure.Negotiator
	modalities *modality.Switch

	status        Status
	greeted       bool
	fallbackTimer *time.Timer
	lastSent      *transport.SessionConfig
	usage         Usage

	renderedItems     map[string]bool
	renderedResponses map[string]bool

	instructions string
	autoSummary  bool

	onMessage           func(Message)
	onAssistantDelta    func(responseID string, delta string)
	onStatus            func(Status)
	onAudio             func(audio []byte)
	onUsage             func(Usage)
	onSpeaking          func(speaking bool)
	onScores            func(progress.Snapshot)
	onClosureSuggestion func()
	onClosureDismiss    func()
	onSystemMessage     func(text string)
	onError             func(err error)

	now func() time.Time
}

func New(credentials CredentialSource, newTransport func() transport.Session, opts ...ControllerOption) *Controller {
	controller := &Controller{
		credentials:  credentials,
		newTransport: newTransport,

		requests: newRequestTable(),
		visible:  newResponseVisibility(),
		echo:     newLocalEchoQueue(),

		status:            StatusDisconnected,
		renderedItems:     make(map[string]bool),
		renderedResponses: make(map[string]bool),

		instructions: defaultInstructions,
		autoSummary:  true,

		onMessage:           func(Message) {},
		onAssistantDelta:    func(string, string) {},
		onStatus:            func(Status) {},
		onAudio:             func([]byte) {},
		onUsage:             func(Usage) {},
		onSpeaking:          func(bool) {},
		onScores:            func(progress.Snapshot) {},
		onClosureSuggestion: func() {},
		onClosureDismiss:    func() {},
		onSystemMessage:     func(string) {},
		onError:             func(error) {},

		now: time.Now,
	}
	for _, opt := range opts {
		opt(controller)
	}

	controller.modalities = modality.NewSwitch()
	controller.modalities.Subscribe(controller.handleModalityChange)

	controller.negotiator = closure.NewNegotiator(controller,
		closure.WithConnectionGuard(func() bool { return controller.Status() == StatusConnected }),
		closure.WithAudioGate(func() bool { return controller.modalities.Current() == modality.Voice }),
		closure.WithDisconnect(func() { _ = controller.Disconnect() }),
		closure.WithSystemMessageCallback(func(text string) { controller.onSystemMessage(text) }),
		closure.WithFailureCallback(func(err error) { controller.onError(err) }),
	)

	controller.analyzer = progress.NewAnalyzer(controller,
		progress.WithScoresCallback(func(snapshot progress.Snapshot) { controller.onScores(snapshot) }),
		progress.WithClosureSuggestionCallback(controller.handleClosureSuggestion),
		progress.WithNegotiationGate(func() bool {
			return controller.negotiator.Busy() || controller.negotiator.Suppressed()
		}),
	)
	controller.analyzer.SetAutoSummary(controller.autoSummary)

	return controller
}

// Status returns the current session lifecycle state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Modalities exposes the input/output modality switch.
func (c *Controller) Modalities() *modality.Switch {
	return c.modalities
}

// Progress returns the latest progress snapshot.
func (c *Controller) Progress() progress.Snapshot {
	return c.analyzer.Snapshot()
}

// Usage returns cumulative token usage across the current session.
func (c *Controller) Usage() Usage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage
}

// ClosureState exposes the wrap-up negotiation state, for UIs that gate
// controls on it.
func (c *Controller) ClosureState() closure.State {
	return c.negotiator.State()
}

// Connect establishes a new session: acquires a credential, dials a fresh
// transport, pushes the initial configuration, and arms the ready fallback.
// Returns ErrAlreadyConnected when a session is already up or underway.
func (c *Controller) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.status != StatusDisconnected {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.status = StatusConnecting
	c.mu.Unlock()
	c.onStatus(StatusConnecting)

	ctx, span := tracer.Start(ctx, "connect session")
	defer span.End()

	c.resetSessionState()

	credential, err := c.credentials.Acquire(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.failConnect()
		return err
	}

	session := c.newTransport()
	runtime := newEventRuntime(c.handleEvent)

	c.mu.Lock()
	c.transport = session
	c.runtime = runtime
	c.mu.Unlock()

	runtime.start()
	session.Subscribe(func(event events.Event) { runtime.enqueue(event) })

	if err := session.Connect(ctx, credential); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		runtime.end()
		c.failConnect()
		return err
	}

	config := c.configFor(c.modalities.Current())
	if err := session.UpdateConfig(config); err != nil {
		log.Printf("Failed to push initial session config: %v", err)
	} else {
		c.storeSentConfig(config)
	}

	// Some upstream variants never emit an explicit ready event; a
	// synthetic one keeps the lifecycle moving through the same loop.
	c.mu.Lock()
	c.fallbackTimer = time.AfterFunc(connectFallback, func() {
		runtime.enqueue(events.NewSessionReady(""))
	})
	c.mu.Unlock()

	logger.Info("session connecting")
	return nil
}

// Disconnect tears the session down: pending timers are stopped, the
// negotiation and analysis state is cleared, and the transport is closed.
// Close errors are absorbed; the session is gone either way.
func (c *Controller) Disconnect() error {
	c.mu.Lock()
	if c.status == StatusDisconnected {
		c.mu.Unlock()
		return ErrNotConnected
	}
	c.status = StatusDisconnected
	if c.fallbackTimer != nil {
		c.fallbackTimer.Stop()
		c.fallbackTimer = nil
	}
	session := c.transport
	runtime := c.runtime
	c.transport = nil
	c.mu.Unlock()

	c.negotiator.Reset()
	c.analyzer.Reset()
	c.requests.clear()

	if session != nil {
		if err := session.Close(); err != nil {
			log.Printf("Failed to close transport cleanly: %v", err)
		}
	}
	if runtime != nil {
		runtime.end()
	}

	c.onSystemMessage("End of conversation")
	c.onStatus(StatusDisconnected)
	logger.Info("session disconnected")
	return nil
}

// Close disconnects, waits for the event loop to drain, and permanently
// releases the controller; it is not usable afterwards. Must not be called
// from inside a callback, those run on the event loop being waited on.
func (c *Controller) Close() {
	_ = c.Disconnect()

	c.mu.Lock()
	runtime := c.runtime
	c.runtime = nil
	c.mu.Unlock()
	if runtime != nil {
		runtime.awaitCompletion()
	}

	c.analyzer.Dispose()
}

// SendUserText submits a typed client message: it is rendered locally right
// away, remembered for echo deduplication, and forwarded upstream together
// with a response request.
func (c *Controller) SendUserText(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	c.mu.Lock()
	if c.status != StatusConnected || c.transport == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	session := c.transport
	c.echo.record(text)
	c.mu.Unlock()

	c.onMessage(Message{
		ID:        uuid.NewString(),
		Role:      events.RoleClient,
		Text:      text,
		Timestamp: c.now(),
	})

	if err := session.SendMessage(events.RoleClient, text); err != nil {
		return err
	}
	return session.CreateResponse(transport.ResponseRequest{})
}

// UpdateSessionConfig pushes a configuration change upstream. A config equal
// to the last one sent is a no-op; successful sends snapshot the config so
// later comparisons are unaffected by caller-side mutation.
func (c *Controller) UpdateSessionConfig(config transport.SessionConfig) error {
	c.mu.Lock()
	if c.status == StatusDisconnected || c.transport == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	if c.lastSent != nil && reflect.DeepEqual(*c.lastSent, config) {
		c.mu.Unlock()
		return nil
	}
	session := c.transport
	c.mu.Unlock()

	if err := session.UpdateConfig(config); err != nil {
		return err
	}
	c.storeSentConfig(config)
	return nil
}

// RequestSummary starts the visible wrap-up summary on the user's behalf.
func (c *Controller) RequestSummary() {
	c.onClosureDismiss()
	c.negotiator.RequestSummary(true)
}

// AcceptClosureSuggestion consumes the wrap-up suggestion affirmatively.
func (c *Controller) AcceptClosureSuggestion() {
	c.onClosureDismiss()
	c.negotiator.RequestSummary(true)
}

// DeclineClosureSuggestion dismisses the wrap-up suggestion and lets the
// conversation continue; no new suggestion fires for a while.
func (c *Controller) DeclineClosureSuggestion() {
	c.onClosureDismiss()
	c.negotiator.Decline()
}

// SetAutoSummary toggles whether analyzer readiness opens the consent flow.
func (c *Controller) SetAutoSummary(enabled bool) {
	c.mu.Lock()
	c.autoSummary = enabled
	c.mu.Unlock()
	c.analyzer.SetAutoSummary(enabled)
}

// CreateTaggedResponse issues a purpose-tagged response request, enforcing
// at most one in-flight request per purpose kind. Hidden requests stay out
// of the shared conversation and come back text-only; everything else
// inherits the session's active output modalities so spoken sessions hear
// the result.
func (c *Controller) CreateTaggedResponse(purpose, instructions string, hidden bool) error {
	c.mu.Lock()
	if c.status != StatusConnected || c.transport == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	session := c.transport
	c.mu.Unlock()

	kind, tracked := kindForPurpose(purpose)
	if tracked {
		if err := c.requests.begin(kind, purpose); err != nil {
			return err
		}
	}

	request := transport.ResponseRequest{Purpose: purpose, Instructions: instructions}
	if hidden {
		request.Conversation = "none"
		request.Modalities = []transport.Modality{transport.ModalityText}
	}

	if err := session.CreateResponse(request); err != nil {
		if tracked {
			c.requests.abort(kind)
		}
		return err
	}
	return nil
}

// SendAudioFrame forwards a captured microphone frame upstream. A no-op on
// transports without an audio uplink.
func (c *Controller) SendAudioFrame(frame []byte) error {
	c.mu.Lock()
	if c.status != StatusConnected || c.transport == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	session := c.transport
	c.mu.Unlock()

	uplink, ok := session.(interface{ SendAudio(audio []byte) error })
	if !ok {
		return nil
	}
	return uplink.SendAudio(frame)
}

func (c *Controller) handleModalityChange(selected modality.Modality) {
	c.mu.Lock()
	connected := c.status == StatusConnected && c.transport != nil
	session := c.transport
	c.mu.Unlock()
	if !connected {
		return
	}

	if err := session.Mute(selected == modality.Text); err != nil {
		c.onError(err)
	}
	if err := c.UpdateSessionConfig(c.configFor(selected)); err != nil {
		c.onError(err)
	}
}

func (c *Controller) handleClosureSuggestion(reason string) {
	if !c.negotiator.Suggest(context.Background()) {
		return
	}
	logger.Info("suggesting session closure", "reason", reason)
	c.onClosureSuggestion()
}

func (c *Controller) configFor(selected modality.Modality) transport.SessionConfig {
	config := transport.SessionConfig{Instructions: c.instructions}
	if selected == modality.Voice {
		config.OutputModalities = []transport.Modality{transport.ModalityAudio, transport.ModalityText}
	} else {
		config.OutputModalities = []transport.Modality{transport.ModalityText}
	}
	return config
}

func (c *Controller) storeSentConfig(config transport.SessionConfig) {
	snapshot := transport.SessionConfig{}
	if err := copier.CopyWithOption(&snapshot, &config, copier.Option{DeepCopy: true}); err != nil {
		log.Printf("Failed to snapshot session config: %v", err)
		return
	}
	c.mu.Lock()
	c.lastSent = &snapshot
	c.mu.Unlock()
}

func (c *Controller) failConnect() {
	c.mu.Lock()
	c.status = StatusDisconnected
	c.transport = nil
	c.runtime = nil
	c.mu.Unlock()
	c.onStatus(StatusDisconnected)
}

// resetSessionState clears everything scoped to a single session. Progress
// scores survive on purpose; they reset only when the next assessment comes
// in.
func (c *Controller) resetSessionState() {
	c.mu.Lock()
	c.echo.reset()
	c.visible.reset()
	c.renderedItems = make(map[string]bool)
	c.renderedResponses = make(map[string]bool)
	c.greeted = false
	c.lastSent = nil
	c.usage = Usage{}
	c.mu.Unlock()

	c.requests.clear()
	c.analyzer.Reset()
	c.negotiator.Reset()
}
