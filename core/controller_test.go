package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tbornik/coaching-core/core/closure"
	"github.com/tbornik/coaching-core/core/events"
	"github.com/tbornik/coaching-core/core/modality"
	"github.com/tbornik/coaching-core/core/progress"
	"github.com/tbornik/coaching-core/core/transport"
)

type fakeCredentials struct{ err error }

func (f *fakeCredentials) Acquire(context.Context) (transport.Credential, error) {
	if f.err != nil {
		return transport.Credential{}, f.err
	}
	return transport.Credential{Token: "test-token"}, nil
}

type sentMessage struct {
	role events.Role
	text string
}

type fakeTransport struct {
	mu sync.Mutex

	sink                    transport.EventSink
	subscribedBeforeConnect bool
	connected               bool
	closed                  bool

	messages  []sentMessage
	responses []transport.ResponseRequest
	configs   []transport.SessionConfig
	mutes     []bool
}

func (f *fakeTransport) Connect(context.Context, transport.Credential) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribedBeforeConnect = f.sink != nil
	f.connected = true
	return nil
}

func (f *fakeTransport) Subscribe(sink transport.EventSink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sink = sink
}

func (f *fakeTransport) SendMessage(role events.Role, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, sentMessage{role: role, text: text})
	return nil
}

func (f *fakeTransport) CreateResponse(request transport.ResponseRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, request)
	return nil
}

func (f *fakeTransport) UpdateConfig(config transport.SessionConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configs = append(f.configs, config)
	return nil
}

func (f *fakeTransport) Mute(muted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutes = append(f.mutes, muted)
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) emit(event events.Event) {
	f.mu.Lock()
	sink := f.sink
	f.mu.Unlock()
	if sink != nil {
		sink(event)
	}
}

func (f *fakeTransport) sentMessages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.messages...)
}

func (f *fakeTransport) sentResponses() []transport.ResponseRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]transport.ResponseRequest(nil), f.responses...)
}

func (f *fakeTransport) sentConfigs() []transport.SessionConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]transport.SessionConfig(nil), f.configs...)
}

type messageRecorder struct {
	mu       sync.Mutex
	messages []Message
	deltas   []string
}

func (r *messageRecorder) record(message Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
}

func (r *messageRecorder) recordDelta(_ string, delta string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deltas = append(r.deltas, delta)
}

func (r *messageRecorder) rendered() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

func (r *messageRecorder) deltaCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.deltas)
}

func waitFor(t *testing.T, timeout time.Duration, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func newConnectedController(t *testing.T, opts ...ControllerOption) (*Controller, *fakeTransport) {
	t.Helper()

	fake := &fakeTransport{}
	controller := New(&fakeCredentials{}, func() transport.Session { return fake }, opts...)
	if err := controller.Connect(context.Background()); err != nil {
		t.Fatalf("expected connect to succeed, got %v", err)
	}
	t.Cleanup(func() { _ = controller.Disconnect() })

	fake.emit(events.NewSessionReady("sess-1"))
	waitFor(t, time.Second, func() bool { return controller.Status() == StatusConnected })
	return controller, fake
}

func TestConnectSubscribesBeforeDialing(t *testing.T) {
	_, fake := newConnectedController(t)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if !fake.subscribedBeforeConnect {
		t.Fatalf("expected event sink to be registered before the transport dials")
	}
}

func TestConnectSurfacesCredentialError(t *testing.T) {
	credentialErr := errors.New("credential endpoint rejected the request")
	controller := New(
		&fakeCredentials{err: credentialErr},
		func() transport.Session { return &fakeTransport{} },
	)

	if err := controller.Connect(context.Background()); !errors.Is(err, credentialErr) {
		t.Fatalf("expected credential error to surface, got %v", err)
	}
	if controller.Status() != StatusDisconnected {
		t.Fatalf("expected status to roll back to disconnected, got %v", controller.Status())
	}
}

func TestConnectRejectsSecondSession(t *testing.T) {
	controller, _ := newConnectedController(t)

	if err := controller.Connect(context.Background()); !errors.Is(err, ErrAlreadyConnected) {
		t.Fatalf("expected ErrAlreadyConnected, got %v", err)
	}
}

func TestSessionReadySendsGreetingOnce(t *testing.T) {
	recorder := &messageRecorder{}
	controller, fake := newConnectedController(t, WithMessageCallback(recorder.record))

	waitFor(t, time.Second, func() bool { return len(fake.sentMessages()) == 1 })

	messages := fake.sentMessages()
	if messages[0].role != events.RoleClient {
		t.Fatalf("expected greeting to go upstream as a client message, got role %q", messages[0].role)
	}

	// A duplicate ready event (the fallback racing the real one) must not
	// greet again.
	fake.emit(events.NewSessionReady("sess-1"))
	waitFor(t, time.Second, func() bool { return controller.Status() == StatusConnected })
	if got := len(fake.sentMessages()); got != 1 {
		t.Fatalf("expected exactly one greeting, got %d messages", got)
	}

	if got := len(recorder.rendered()); got != 0 {
		t.Fatalf("expected greeting to stay out of the local log, got %d messages", got)
	}
}

func TestConnectFallbackPromotesSession(t *testing.T) {
	fake := &fakeTransport{}
	controller := New(&fakeCredentials{}, func() transport.Session { return fake })
	if err := controller.Connect(context.Background()); err != nil {
		t.Fatalf("expected connect to succeed, got %v", err)
	}
	t.Cleanup(func() { _ = controller.Disconnect() })

	// No ready event arrives; the fallback promotes the session anyway.
	waitFor(t, 3*time.Second, func() bool { return controller.Status() == StatusConnected })
}

func TestSendUserTextRequiresConnection(t *testing.T) {
	controller := New(&fakeCredentials{}, func() transport.Session { return &fakeTransport{} })

	if err := controller.SendUserText("hello"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestSendUserTextRendersOnceDespiteEcho(t *testing.T) {
	recorder := &messageRecorder{}
	controller, fake := newConnectedController(t, WithMessageCallback(recorder.record))

	if err := controller.SendUserText("Hello world"); err != nil {
		t.Fatalf("expected send to succeed, got %v", err)
	}
	if got := len(recorder.rendered()); got != 1 {
		t.Fatalf("expected local rendition right away, got %d messages", got)
	}

	fake.emit(events.NewConversationItemCreated("item-1", events.RoleClient, "Hello   world"))
	waitFor(t, time.Second, func() bool { return controller.analyzer.TranscriptLength() == 1 })

	if got := len(recorder.rendered()); got != 1 {
		t.Fatalf("expected transport echo to be deduplicated, got %d messages", got)
	}
}

func TestHiddenProbeNeverRendered(t *testing.T) {
	recorder := &messageRecorder{}
	var scores []progress.Snapshot
	var scoresMu sync.Mutex

	controller, fake := newConnectedController(t,
		WithMessageCallback(recorder.record),
		WithAssistantDeltaCallback(recorder.recordDelta),
		WithScoresCallback(func(snapshot progress.Snapshot) {
			scoresMu.Lock()
			defer scoresMu.Unlock()
			scores = append(scores, snapshot)
		}),
	)

	if err := controller.CreateTaggedResponse(progress.PurposeProbe, "assess", true); err != nil {
		t.Fatalf("expected probe request to succeed, got %v", err)
	}

	payload := `{"phases":{"goal":0.8,"reality":0.7,"options":0.3,"will":0.2},"phase":"reality","note":"exploring"}`
	fake.emit(events.NewResponseCreated("resp-p", progress.PurposeProbe))
	fake.emit(events.NewOutputItemAdded("resp-p", "item-p", events.RoleCoach))
	fake.emit(events.NewTextDelta("resp-p", "item-p", payload))
	fake.emit(events.NewTextDone("resp-p", "item-p", payload))
	fake.emit(events.NewResponseDone("resp-p", progress.PurposeProbe, payload, events.Usage{InputTokens: 10, OutputTokens: 5}))

	waitFor(t, time.Second, func() bool {
		scoresMu.Lock()
		defer scoresMu.Unlock()
		return len(scores) == 1
	})

	if got := len(recorder.rendered()); got != 0 {
		t.Fatalf("expected probe output to stay hidden, got %d messages", got)
	}
	if got := recorder.deltaCount(); got != 0 {
		t.Fatalf("expected probe deltas to stay hidden, got %d", got)
	}

	scoresMu.Lock()
	defer scoresMu.Unlock()
	if phase := scores[0].CurrentPhase; phase != progress.PhaseReality {
		t.Fatalf("expected assessment to set the reality phase, got %q", phase)
	}
}

func TestTaggedRequestsRestrictModalitiesOnlyWhenHidden(t *testing.T) {
	controller, fake := newConnectedController(t)

	if err := controller.CreateTaggedResponse(closure.PurposeConsentPrompt, "ask about wrapping up", false); err != nil {
		t.Fatalf("expected consent prompt request to succeed, got %v", err)
	}
	if err := controller.CreateTaggedResponse(progress.PurposeProbe, "assess", true); err != nil {
		t.Fatalf("expected probe request to succeed, got %v", err)
	}

	var prompt, probe *transport.ResponseRequest
	for _, response := range fake.sentResponses() {
		response := response
		switch response.Purpose {
		case closure.PurposeConsentPrompt:
			prompt = &response
		case progress.PurposeProbe:
			probe = &response
		}
	}
	if prompt == nil || probe == nil {
		t.Fatalf("expected both requests to reach the transport, got %v", fake.sentResponses())
	}
	if prompt.Conversation != "" || len(prompt.Modalities) != 0 {
		t.Fatalf("expected consent prompt to inherit session modalities, got %+v", prompt)
	}
	if probe.Conversation != "none" || len(probe.Modalities) != 1 || probe.Modalities[0] != transport.ModalityText {
		t.Fatalf("expected probe to stay out of the conversation and text-only, got %+v", probe)
	}
}

func TestClientBackgroundAppendedToInstructions(t *testing.T) {
	_, fake := newConnectedController(t,
		WithInstructions("You are a supportive coach."),
		WithClientBackground("What you already know about the client:\n- current role: team lead"),
	)

	configs := fake.sentConfigs()
	if len(configs) == 0 {
		t.Fatalf("expected an initial session config")
	}
	want := "You are a supportive coach.\n\nWhat you already know about the client:\n- current role: team lead"
	if configs[0].Instructions != want {
		t.Fatalf("expected background appended to instructions, got %q", configs[0].Instructions)
	}
}

func TestCoachMessageRenderedOncePerItem(t *testing.T) {
	recorder := &messageRecorder{}
	var usages []Usage
	var usageMu sync.Mutex

	controller, fake := newConnectedController(t,
		WithMessageCallback(recorder.record),
		WithUsageCallback(func(usage Usage) {
			usageMu.Lock()
			defer usageMu.Unlock()
			usages = append(usages, usage)
		}),
	)
	_ = controller

	fake.emit(events.NewResponseCreated("resp-1", ""))
	fake.emit(events.NewOutputItemAdded("resp-1", "item-1", events.RoleCoach))
	fake.emit(events.NewTextDone("resp-1", "item-1", "What would success look like?"))
	fake.emit(events.NewResponseDone("resp-1", "", "What would success look like?", events.Usage{InputTokens: 100, OutputTokens: 20}))

	waitFor(t, time.Second, func() bool {
		usageMu.Lock()
		defer usageMu.Unlock()
		return len(usages) == 1
	})

	rendered := recorder.rendered()
	if len(rendered) != 1 {
		t.Fatalf("expected aggregate completion to not re-render the item, got %d messages", len(rendered))
	}
	if rendered[0].ID != "item-1" || rendered[0].Role != events.RoleCoach {
		t.Fatalf("unexpected rendition: %+v", rendered[0])
	}

	usageMu.Lock()
	defer usageMu.Unlock()
	if usages[0].InputTokens != 100 || usages[0].OutputTokens != 20 {
		t.Fatalf("unexpected usage: %+v", usages[0])
	}
}

func TestUpdateSessionConfigSkipsRepeat(t *testing.T) {
	controller, fake := newConnectedController(t)

	baseline := len(fake.sentConfigs())
	config := transport.SessionConfig{
		Instructions:     "focus on options",
		OutputModalities: []transport.Modality{transport.ModalityText},
	}

	if err := controller.UpdateSessionConfig(config); err != nil {
		t.Fatalf("expected update to succeed, got %v", err)
	}
	if err := controller.UpdateSessionConfig(config); err != nil {
		t.Fatalf("expected repeat update to succeed, got %v", err)
	}

	if got := len(fake.sentConfigs()) - baseline; got != 1 {
		t.Fatalf("expected identical config to be sent once, got %d sends", got)
	}

	config.Instructions = "focus on will"
	if err := controller.UpdateSessionConfig(config); err != nil {
		t.Fatalf("expected changed update to succeed, got %v", err)
	}
	if got := len(fake.sentConfigs()) - baseline; got != 2 {
		t.Fatalf("expected changed config to be sent, got %d sends", got)
	}
}

func TestModalityChangePushesMuteAndConfig(t *testing.T) {
	controller, fake := newConnectedController(t)

	controller.Modalities().Select(modality.Text)

	waitFor(t, time.Second, func() bool {
		fake.mu.Lock()
		defer fake.mu.Unlock()
		return len(fake.mutes) == 1
	})

	fake.mu.Lock()
	muted := fake.mutes[0]
	fake.mu.Unlock()
	if !muted {
		t.Fatalf("expected switch to text to mute the microphone")
	}

	configs := fake.sentConfigs()
	last := configs[len(configs)-1]
	if len(last.OutputModalities) != 1 || last.OutputModalities[0] != transport.ModalityText {
		t.Fatalf("expected text-only output modalities, got %v", last.OutputModalities)
	}
}

func TestSummaryCompletionDisconnectsAfterPlayback(t *testing.T) {
	controller, fake := newConnectedController(t)

	controller.RequestSummary()

	waitFor(t, time.Second, func() bool {
		for _, response := range fake.sentResponses() {
			if response.Purpose == "session_summary" {
				return true
			}
		}
		return false
	})

	// Voice is the default modality, so teardown waits for playback.
	fake.emit(events.NewResponseDone("resp-s", "session_summary", "We agreed on next steps.", events.Usage{}))
	fake.emit(events.NewPlaybackStopped())

	waitFor(t, time.Second, func() bool { return controller.Status() == StatusDisconnected })

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if !fake.closed {
		t.Fatalf("expected transport to be closed after the summary played out")
	}
}

func TestCloseDrainsTheEventLoop(t *testing.T) {
	recorder := &messageRecorder{}
	controller, fake := newConnectedController(t, WithMessageCallback(recorder.record))

	fake.emit(events.NewInputTranscriptionCompleted("item-1", "I want to talk about my team"))
	waitFor(t, time.Second, func() bool { return len(recorder.rendered()) == 1 })

	controller.Close()

	// Once Close returns the loop has fully stopped, so a late event is
	// dropped instead of racing the shutdown.
	fake.emit(events.NewInputTranscriptionCompleted("item-2", "anything else"))
	time.Sleep(20 * time.Millisecond)
	if got := len(recorder.rendered()); got != 1 {
		t.Fatalf("expected no renders after close, got %d", got)
	}
}

func TestTransportFailureTearsDown(t *testing.T) {
	var failures []error
	var failuresMu sync.Mutex

	controller, fake := newConnectedController(t, WithErrorCallback(func(err error) {
		failuresMu.Lock()
		defer failuresMu.Unlock()
		failures = append(failures, err)
	}))

	fake.emit(events.NewTransportFailed(errors.New("connection reset")))

	waitFor(t, time.Second, func() bool { return controller.Status() == StatusDisconnected })

	failuresMu.Lock()
	defer failuresMu.Unlock()
	if len(failures) != 1 {
		t.Fatalf("expected one surfaced failure, got %d", len(failures))
	}
	var transportErr *TransportError
	if !errors.As(failures[0], &transportErr) {
		t.Fatalf("expected a TransportError, got %v", failures[0])
	}
}
