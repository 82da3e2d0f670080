// Package progress derives a structured progress signal from the raw
// transcript of a live coaching session.
//
// The analyzer observes transcript entries, periodically asks the upstream
// agent for a structured self-assessment over a side channel, and turns the
// result into phase/mode scores and a wrap-up recommendation. It never
// renders anything itself and never blocks event processing: probe results
// come back later as ordinary transport events.
package progress

import (
	"context"
	"log"
	"sync"
	"time"
)

const (
	// PurposeProbe tags the hidden self-assessment request.
	PurposeProbe = "progress_probe"

	// probeCooldown is the minimum gap between two probes.
	probeCooldown = 15 * time.Second
	// probeMinEntries gates probing until the transcript has some substance.
	probeMinEntries = 4
)

// Agent issues purpose-tagged requests to the upstream. Implementations
// must not block.
type Agent interface {
	CreateTaggedResponse(purpose, instructions string, hidden bool) error
}

// Analyzer maintains rolling transcript state and the probe cycle.
//
// All methods are called from the session controller's single event loop;
// the mutex only guards Snapshot readers on other goroutines (UI pulls).
type Analyzer struct {
	mu sync.Mutex

	agent    Agent
	snapshot Snapshot
	log      *transcriptLog

	probeInFlight    bool
	lastProbeAt      time.Time
	autoSummary      bool
	negotiationBusy  func() bool
	onScores         func(Snapshot)
	onClosureSuggest func(reason string)

	now func() time.Time
}

type AnalyzerOption func(*Analyzer)

// WithScoresCallback registers a callback invoked after every accepted
// assessment with the updated snapshot.
func WithScoresCallback(callback func(Snapshot)) AnalyzerOption {
	return func(a *Analyzer) {
		if callback != nil {
			a.onScores = callback
		}
	}
}

// WithClosureSuggestionCallback registers a callback invoked when the
// analyzer decides the session looks ready to wrap up.
func WithClosureSuggestionCallback(callback func(reason string)) AnalyzerOption {
	return func(a *Analyzer) {
		if callback != nil {
			a.onClosureSuggest = callback
		}
	}
}

// WithNegotiationGate registers the predicate consulted before probing; no
// probe is issued while a closure negotiation is already in flight.
func WithNegotiationGate(busy func() bool) AnalyzerOption {
	return func(a *Analyzer) {
		if busy != nil {
			a.negotiationBusy = busy
		}
	}
}

func NewAnalyzer(agent Agent, opts ...AnalyzerOption) *Analyzer {
	analyzer := &Analyzer{
		agent:            agent,
		snapshot:         emptySnapshot(),
		log:              newTranscriptLog(),
		autoSummary:      true,
		negotiationBusy:  func() bool { return false },
		onScores:         func(Snapshot) {},
		onClosureSuggest: func(string) {},
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(analyzer)
	}
	return analyzer
}

// Reset clears all per-session state. The score snapshot keeps its previous
// values until the next assessment arrives; the UI deliberately shows the
// last session's progress until a new session produces its own.
func (a *Analyzer) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.log.reset()
	a.probeInFlight = false
	a.lastProbeAt = time.Time{}
}

// SetAutoSummary toggles whether readiness triggers the consent flow.
func (a *Analyzer) SetAutoSummary(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.autoSummary = enabled
}

// Snapshot returns a copy of the current progress view.
func (a *Analyzer) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return cloneSnapshot(a.snapshot)
}

// TranscriptLength reports how many entries the rolling transcript holds.
func (a *Analyzer) TranscriptLength() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.log.length()
}

// Observe appends a transcript entry (deduplicated by eventID) and runs the
// probe scheduler.
func (a *Analyzer) Observe(entry Entry, eventID string) {
	a.mu.Lock()
	added := a.log.append(entry, eventID)
	a.mu.Unlock()

	if added {
		a.ScheduleEvaluation(context.Background())
	}
}

// ScheduleEvaluation issues a self-assessment probe if every gate passes:
// no probe in flight, cooldown expired, enough transcript, and no closure
// negotiation underway. A blocked call is a no-op, not an error.
func (a *Analyzer) ScheduleEvaluation(ctx context.Context) {
	a.mu.Lock()

	if a.agent == nil || a.probeInFlight {
		a.mu.Unlock()
		return
	}
	if a.log.length() < probeMinEntries {
		a.mu.Unlock()
		return
	}
	if !a.lastProbeAt.IsZero() && a.now().Sub(a.lastProbeAt) < probeCooldown {
		a.mu.Unlock()
		return
	}
	if a.negotiationBusy() {
		a.mu.Unlock()
		return
	}

	a.probeInFlight = true
	a.lastProbeAt = a.now()
	prompt := probePrompt(a.log.render())
	agent := a.agent
	a.mu.Unlock()

	_, span := tracer.Start(ctx, "issue progress probe")
	defer span.End()

	if err := agent.CreateTaggedResponse(PurposeProbe, prompt, true); err != nil {
		span.RecordError(err)
		log.Printf("Failed to issue progress probe: %v", err)
		a.mu.Lock()
		a.probeInFlight = false
		a.mu.Unlock()
	}
}

// HandleProbeResult consumes the completion of a probe request, matched by
// purpose tag upstream of this call. Malformed payloads are logged and
// discarded; the next scheduled probe proceeds normally later.
func (a *Analyzer) HandleProbeResult(payload string) {
	a.mu.Lock()
	a.probeInFlight = false
	a.mu.Unlock()

	assessment, err := parseAssessment(payload)
	if err != nil {
		log.Printf("Discarding malformed assessment payload: %v", err)
		return
	}

	a.mu.Lock()
	updated, ready := assessment.apply(a.snapshot)
	a.snapshot = updated
	autoSummary := a.autoSummary
	busy := a.negotiationBusy()
	a.mu.Unlock()

	a.onScores(cloneSnapshot(updated))

	if ready && autoSummary && !busy {
		reason := updated.Note
		if reason == "" {
			reason = "the conversation covered its goals"
		}
		a.onClosureSuggest(reason)
	}
}

// Dispose drops the transport reference and clears transient in-flight
// state. Score widgets intentionally keep showing their last values until
// the next session starts.
func (a *Analyzer) Dispose() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.agent = nil
	a.probeInFlight = false
}
