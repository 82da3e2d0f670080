package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/tbornik/coaching-core/core/closure"
	"github.com/tbornik/coaching-core/core/progress"
)

// RequestKind names one class of purpose-tagged background request.
type RequestKind string

const (
	RequestAnalysis      RequestKind = "analysis"
	RequestConsentPrompt RequestKind = "consent-prompt"
	RequestConsentCheck  RequestKind = "consent-check"
	RequestContinue      RequestKind = "continue"
	RequestSummary       RequestKind = "summary"
)

// kindForPurpose maps wire purpose tags onto request kinds. Unknown
// purposes are not tracked.
func kindForPurpose(purpose string) (RequestKind, bool) {
	switch purpose {
	case progress.PurposeProbe:
		return RequestAnalysis, true
	case closure.PurposeConsentPrompt:
		return RequestConsentPrompt, true
	case closure.PurposeConsentCheck:
		return RequestConsentCheck, true
	case closure.PurposeContinue:
		return RequestContinue, true
	case closure.PurposeSummary:
		return RequestSummary, true
	}
	return "", false
}

type requestEntry struct {
	purpose  string
	issuedAt time.Time
}

// requestTable tracks in-flight purpose-tagged requests keyed by kind, so
// "at most one outstanding request of kind K" is a map invariant rather
// than a scattered boolean flag. Completions are matched by purpose tag;
// entries for a torn-down session are cleared wholesale, which is what
// makes late completions fall on the floor.
type requestTable struct {
	mu      sync.Mutex
	entries map[RequestKind]requestEntry
}

func newRequestTable() *requestTable {
	return &requestTable{entries: make(map[RequestKind]requestEntry)}
}

// begin registers an outstanding request, failing if one of the same kind
// is already in flight.
func (t *requestTable) begin(kind RequestKind, purpose string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, inFlight := t.entries[kind]; inFlight {
		return fmt.Errorf("request of kind %s already in flight", kind)
	}
	t.entries[kind] = requestEntry{purpose: purpose, issuedAt: time.Now()}
	return nil
}

// complete consumes the outstanding request matching the given purpose.
// Reports the kind and whether anything was awaiting that purpose.
func (t *requestTable) complete(purpose string) (RequestKind, bool) {
	if purpose == "" {
		return "", false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for kind, entry := range t.entries {
		if entry.purpose == purpose {
			delete(t.entries, kind)
			return kind, true
		}
	}
	return "", false
}

// abort drops an outstanding request, for sends that failed after begin.
func (t *requestTable) abort(kind RequestKind) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, kind)
}

// clear drops every in-flight entry. Called on disconnect and errors.
func (t *requestTable) clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = make(map[RequestKind]requestEntry)
}
