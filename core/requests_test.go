package session

import (
	"testing"

	"github.com/tbornik/coaching-core/core/closure"
	"github.com/tbornik/coaching-core/core/progress"
)

func TestRequestTableRejectsDuplicateKind(t *testing.T) {
	table := newRequestTable()

	if err := table.begin(RequestAnalysis, progress.PurposeProbe); err != nil {
		t.Fatalf("expected first begin to succeed, got %v", err)
	}
	if err := table.begin(RequestAnalysis, progress.PurposeProbe); err == nil {
		t.Fatalf("expected second begin of the same kind to fail")
	}
}

func TestRequestTableCompletesByPurpose(t *testing.T) {
	table := newRequestTable()
	if err := table.begin(RequestSummary, closure.PurposeSummary); err != nil {
		t.Fatalf("expected begin to succeed, got %v", err)
	}

	kind, tracked := table.complete(closure.PurposeSummary)
	if !tracked || kind != RequestSummary {
		t.Fatalf("expected completion to match summary request, got %q (tracked %t)", kind, tracked)
	}
	if _, tracked := table.complete(closure.PurposeSummary); tracked {
		t.Fatalf("expected completed request to be gone")
	}
}

func TestRequestTableIgnoresUntaggedCompletions(t *testing.T) {
	table := newRequestTable()
	if err := table.begin(RequestAnalysis, progress.PurposeProbe); err != nil {
		t.Fatalf("expected begin to succeed, got %v", err)
	}

	if _, tracked := table.complete(""); tracked {
		t.Fatalf("expected untagged completion to match nothing")
	}
}

func TestRequestTableAbortReopensKind(t *testing.T) {
	table := newRequestTable()
	if err := table.begin(RequestConsentCheck, closure.PurposeConsentCheck); err != nil {
		t.Fatalf("expected begin to succeed, got %v", err)
	}
	table.abort(RequestConsentCheck)

	if err := table.begin(RequestConsentCheck, closure.PurposeConsentCheck); err != nil {
		t.Fatalf("expected begin after abort to succeed, got %v", err)
	}
}

func TestRequestTableClearDropsEverything(t *testing.T) {
	table := newRequestTable()
	_ = table.begin(RequestAnalysis, progress.PurposeProbe)
	_ = table.begin(RequestSummary, closure.PurposeSummary)
	table.clear()

	if _, tracked := table.complete(progress.PurposeProbe); tracked {
		t.Fatalf("expected cleared table to match nothing")
	}
	if _, tracked := table.complete(closure.PurposeSummary); tracked {
		t.Fatalf("expected cleared table to match nothing")
	}
}

func TestKindForPurposeCoversAllTags(t *testing.T) {
	cases := map[string]RequestKind{
		progress.PurposeProbe:        RequestAnalysis,
		closure.PurposeConsentPrompt: RequestConsentPrompt,
		closure.PurposeConsentCheck:  RequestConsentCheck,
		closure.PurposeContinue:      RequestContinue,
		closure.PurposeSummary:       RequestSummary,
	}
	for purpose, want := range cases {
		kind, tracked := kindForPurpose(purpose)
		if !tracked || kind != want {
			t.Fatalf("expected purpose %q to map to %q, got %q (tracked %t)", purpose, want, kind, tracked)
		}
	}
	if _, tracked := kindForPurpose("unrelated"); tracked {
		t.Fatalf("expected unknown purpose to be untracked")
	}
}
