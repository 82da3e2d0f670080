package progress

import (
	"strings"
	"time"

	"github.com/tbornik/coaching-core/core/events"
)

// transcriptCapacity bounds the rolling transcript; the oldest entry is
// evicted first once the buffer is full.
const transcriptCapacity = 40

// Entry is one transcript line as seen by the analyzer.
type Entry struct {
	Role      events.Role
	Text      string
	Timestamp time.Time
}

// transcriptLog is an append-only ring buffer of transcript entries,
// deduplicated by a per-event identifier. Entries without any usable
// identifier are never deduplicated.
type transcriptLog struct {
	entries []Entry
	seen    map[string]struct{}
}

func newTranscriptLog() *transcriptLog {
	return &transcriptLog{seen: make(map[string]struct{})}
}

// append records an entry unless its identifier was already seen. It
// reports whether the entry was actually added.
func (l *transcriptLog) append(entry Entry, eventID string) bool {
	if strings.TrimSpace(entry.Text) == "" {
		return false
	}

	if eventID != "" {
		if _, duplicate := l.seen[eventID]; duplicate {
			return false
		}
		l.seen[eventID] = struct{}{}
	}

	l.entries = append(l.entries, entry)
	if len(l.entries) > transcriptCapacity {
		l.entries = l.entries[len(l.entries)-transcriptCapacity:]
	}
	return true
}

func (l *transcriptLog) length() int {
	return len(l.entries)
}

func (l *transcriptLog) snapshot() []Entry {
	entries := make([]Entry, len(l.entries))
	copy(entries, l.entries)
	return entries
}

func (l *transcriptLog) reset() {
	l.entries = nil
	l.seen = make(map[string]struct{})
}

// render flattens the transcript into prompt-ready lines.
func (l *transcriptLog) render() string {
	var b strings.Builder
	for _, entry := range l.entries {
		b.WriteString(string(entry.Role))
		b.WriteString(": ")
		b.WriteString(entry.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// EntryID picks the identifier used for transcript deduplication, trying
// sources in a fixed priority order: item id first, then response id.
// An empty result means the entry cannot be deduplicated.
func EntryID(itemID, responseID string) string {
	if itemID != "" {
		return "item:" + itemID
	}
	if responseID != "" {
		return "response:" + responseID
	}
	return ""
}
