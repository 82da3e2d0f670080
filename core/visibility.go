package session

import (
	"github.com/tbornik/coaching-core/core/closure"
	"github.com/tbornik/coaching-core/core/progress"
)

// suppressedPurposes lists the purpose tags whose responses are
// system-internal and must never be rendered. The consent prompt and the
// continuation after a decline are deliberately absent: those are worded
// for the client.
var suppressedPurposes = map[string]struct{}{
	progress.PurposeProbe:       {},
	closure.PurposeConsentCheck: {},
}

type visibility int

const (
	visible visibility = iota
	suppressed
)

// responseVisibility records, per upstream response, whether its output may
// be rendered. Once suppressed, a response stays suppressed for its whole
// lifetime; items attributed to a suppressed response inherit the
// suppression so later per-item events are caught too.
type responseVisibility struct {
	responses map[string]visibility
	items     map[string]visibility
}

func newResponseVisibility() *responseVisibility {
	return &responseVisibility{
		responses: make(map[string]visibility),
		items:     make(map[string]visibility),
	}
}

// noteResponse is the single transition point for response visibility.
func (v *responseVisibility) noteResponse(responseID, purpose string) {
	if responseID == "" {
		return
	}
	if _, internal := suppressedPurposes[purpose]; internal {
		v.responses[responseID] = suppressed
		return
	}
	if _, known := v.responses[responseID]; !known {
		v.responses[responseID] = visible
	}
}

// noteItem attributes an item to its owning response, inheriting
// suppression.
func (v *responseVisibility) noteItem(responseID, itemID string) {
	if itemID == "" {
		return
	}
	if v.responses[responseID] == suppressed {
		v.items[itemID] = suppressed
	}
}

// renderable is the single predicate deciding whether output belonging to
// the given response/item may reach the log.
func (v *responseVisibility) renderable(responseID, itemID string) bool {
	if responseID != "" && v.responses[responseID] == suppressed {
		return false
	}
	if itemID != "" && v.items[itemID] == suppressed {
		return false
	}
	return true
}

func (v *responseVisibility) reset() {
	v.responses = make(map[string]visibility)
	v.items = make(map[string]visibility)
}
