package session

import "strings"

// normalizeEcho collapses internal whitespace and trims, so a transport
// echo with different spacing still matches the locally rendered original.
func normalizeEcho(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// localEchoQueue holds normalized user messages the client already rendered
// locally, awaiting the transport's echo. Entries are consumed on first
// match so the same text sent twice dedups exactly twice.
type localEchoQueue struct {
	pending []string
}

func newLocalEchoQueue() *localEchoQueue {
	return &localEchoQueue{}
}

// record remembers a locally produced message for later deduplication.
func (q *localEchoQueue) record(text string) {
	normalized := normalizeEcho(text)
	if normalized == "" {
		return
	}
	q.pending = append(q.pending, normalized)
}

// consume removes the first pending entry matching the echoed text and
// reports whether one was found. A hit means the echo must not be rendered
// again.
func (q *localEchoQueue) consume(text string) bool {
	normalized := normalizeEcho(text)
	if normalized == "" {
		return false
	}
	for i, pending := range q.pending {
		if pending == normalized {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return true
		}
	}
	return false
}

func (q *localEchoQueue) length() int {
	return len(q.pending)
}

func (q *localEchoQueue) reset() {
	q.pending = nil
}
