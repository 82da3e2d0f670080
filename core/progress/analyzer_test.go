package progress

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tbornik/coaching-core/core/events"
)

type probeRecorder struct {
	mu       sync.Mutex
	requests []string
	err      error
}

func (r *probeRecorder) CreateTaggedResponse(purpose, instructions string, hidden bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if !hidden {
		return fmt.Errorf("self-assessment requests must stay hidden")
	}
	r.requests = append(r.requests, purpose)
	return nil
}

func (r *probeRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

// fillSeq keeps event identifiers unique across successive fillTranscript
// calls so the transcript log's deduplication never drops an entry.
var fillSeq int

func fillTranscript(analyzer *Analyzer, entries int) {
	for i := 0; i < entries; i++ {
		role := events.RoleClient
		if i%2 == 1 {
			role = events.RoleCoach
		}
		id := fillSeq
		fillSeq++
		analyzer.Observe(Entry{Role: role, Text: fmt.Sprintf("line %d", id), Timestamp: time.Now()}, fmt.Sprintf("item:%d", id))
	}
}

func TestScheduleEvaluationRequiresMinimumTranscript(t *testing.T) {
	recorder := &probeRecorder{}
	analyzer := NewAnalyzer(recorder)

	fillTranscript(analyzer, probeMinEntries-1)

	if got := recorder.count(); got != 0 {
		t.Fatalf("expected no probe below %d entries, got %d", probeMinEntries, got)
	}

	fillTranscript(analyzer, 1)
	if got := recorder.count(); got != 1 {
		t.Fatalf("expected exactly one probe once gate passes, got %d", got)
	}
}

func TestScheduleEvaluationAllowsOnlyOneOutstandingProbe(t *testing.T) {
	recorder := &probeRecorder{}
	analyzer := NewAnalyzer(recorder)

	fillTranscript(analyzer, probeMinEntries)
	analyzer.ScheduleEvaluation(context.Background())
	analyzer.ScheduleEvaluation(context.Background())

	if got := recorder.count(); got != 1 {
		t.Fatalf("expected a second schedule call to be a no-op, got %d probes", got)
	}
}

func TestScheduleEvaluationHonorsCooldown(t *testing.T) {
	recorder := &probeRecorder{}
	analyzer := NewAnalyzer(recorder)

	base := time.Now()
	now := base
	analyzer.now = func() time.Time { return now }

	fillTranscript(analyzer, probeMinEntries)
	if got := recorder.count(); got != 1 {
		t.Fatalf("expected initial probe, got %d", got)
	}
	analyzer.HandleProbeResult(`{"phases": {"goal": 0.1}}`)

	now = base.Add(10 * time.Second)
	analyzer.ScheduleEvaluation(context.Background())
	if got := recorder.count(); got != 1 {
		t.Fatalf("expected probe at +10s to be blocked by cooldown, got %d", got)
	}

	now = base.Add(16 * time.Second)
	analyzer.ScheduleEvaluation(context.Background())
	if got := recorder.count(); got != 2 {
		t.Fatalf("expected probe at +16s to pass cooldown, got %d", got)
	}
}

func TestScheduleEvaluationBlockedWhileNegotiating(t *testing.T) {
	recorder := &probeRecorder{}
	busy := true
	analyzer := NewAnalyzer(recorder, WithNegotiationGate(func() bool { return busy }))

	fillTranscript(analyzer, probeMinEntries)
	if got := recorder.count(); got != 0 {
		t.Fatalf("expected no probe while negotiation is in flight, got %d", got)
	}

	busy = false
	analyzer.ScheduleEvaluation(context.Background())
	if got := recorder.count(); got != 1 {
		t.Fatalf("expected probe once negotiation ended, got %d", got)
	}
}

func TestHandleProbeResultUpdatesSnapshotAndSuggestsClosure(t *testing.T) {
	recorder := &probeRecorder{}
	var suggestions []string
	var snapshots []Snapshot
	analyzer := NewAnalyzer(recorder,
		WithScoresCallback(func(snapshot Snapshot) { snapshots = append(snapshots, snapshot) }),
		WithClosureSuggestionCallback(func(reason string) { suggestions = append(suggestions, reason) }),
	)
	fillTranscript(analyzer, probeMinEntries)

	analyzer.HandleProbeResult(`{
		"phases": {"goal": 0.7, "reality": 0.7, "options": 0.7, "will": 0.7},
		"note": "solid commitment"
	}`)

	if len(snapshots) != 1 {
		t.Fatalf("expected one scores callback, got %d", len(snapshots))
	}
	if got := snapshots[0].PhaseScores[PhaseWill]; got != 0.7 {
		t.Fatalf("expected will score 0.7, got %f", got)
	}
	if len(suggestions) != 1 {
		t.Fatalf("expected one closure suggestion, got %d", len(suggestions))
	}
	if suggestions[0] != "solid commitment" {
		t.Fatalf("expected suggestion to carry the note, got %q", suggestions[0])
	}
}

func TestHandleProbeResultDiscardsMalformedPayload(t *testing.T) {
	recorder := &probeRecorder{}
	called := false
	analyzer := NewAnalyzer(recorder, WithScoresCallback(func(Snapshot) { called = true }))
	fillTranscript(analyzer, probeMinEntries)

	analyzer.HandleProbeResult("not json at all")

	if called {
		t.Fatalf("expected malformed payload to cause no state change")
	}

	// A discarded payload must still clear the in-flight flag so the next
	// natural trigger can probe again.
	analyzer.now = func() time.Time { return time.Now().Add(probeCooldown + time.Second) }
	analyzer.ScheduleEvaluation(context.Background())
	if got := recorder.count(); got != 2 {
		t.Fatalf("expected analyzer to recover after malformed payload, got %d probes", got)
	}
}

func TestAutoSummaryDisabledSuppressesSuggestions(t *testing.T) {
	recorder := &probeRecorder{}
	suggested := false
	analyzer := NewAnalyzer(recorder, WithClosureSuggestionCallback(func(string) { suggested = true }))
	analyzer.SetAutoSummary(false)
	fillTranscript(analyzer, probeMinEntries)

	analyzer.HandleProbeResult(`{"phases": {"goal": 0.9, "reality": 0.9, "options": 0.9, "will": 0.9}}`)

	if suggested {
		t.Fatalf("expected no closure suggestion with auto-summary disabled")
	}
}

func TestResetClearsTranscriptButKeepsScores(t *testing.T) {
	recorder := &probeRecorder{}
	analyzer := NewAnalyzer(recorder)
	fillTranscript(analyzer, probeMinEntries)
	analyzer.HandleProbeResult(`{"phases": {"goal": 0.8}}`)

	analyzer.Reset()

	if got := analyzer.TranscriptLength(); got != 0 {
		t.Fatalf("expected transcript cleared on reset, got %d entries", got)
	}
	if got := analyzer.Snapshot().PhaseScores[PhaseGoal]; got != 0.8 {
		t.Fatalf("expected scores to survive reset until next assessment, got %f", got)
	}
}

func TestDisposeStopsProbing(t *testing.T) {
	recorder := &probeRecorder{}
	analyzer := NewAnalyzer(recorder)
	analyzer.Dispose()

	fillTranscript(analyzer, probeMinEntries)

	if got := recorder.count(); got != 0 {
		t.Fatalf("expected disposed analyzer to issue no probes, got %d", got)
	}
}
