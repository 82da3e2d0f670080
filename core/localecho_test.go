package session

import "testing"

func TestLocalEchoMatchesDespiteWhitespace(t *testing.T) {
	queue := newLocalEchoQueue()
	queue.record("Hello world")

	if !queue.consume("Hello   world") {
		t.Fatalf("expected echo with collapsed whitespace to match recorded entry")
	}
	if queue.consume("Hello world") {
		t.Fatalf("expected entry to be consumed on first match")
	}
}

func TestLocalEchoConsumesPerRecording(t *testing.T) {
	queue := newLocalEchoQueue()
	queue.record("again")
	queue.record("again")

	if !queue.consume("again") {
		t.Fatalf("expected first echo to match")
	}
	if !queue.consume("again") {
		t.Fatalf("expected second echo to match the second recording")
	}
	if queue.consume("again") {
		t.Fatalf("expected third echo to find nothing pending")
	}
}

func TestLocalEchoIgnoresEmptyText(t *testing.T) {
	queue := newLocalEchoQueue()
	queue.record("   ")

	if queue.length() != 0 {
		t.Fatalf("expected whitespace-only recording to be dropped, got %d pending", queue.length())
	}
	if queue.consume("") {
		t.Fatalf("expected empty echo to never match")
	}
}

func TestLocalEchoResetDropsPending(t *testing.T) {
	queue := newLocalEchoQueue()
	queue.record("left over")
	queue.reset()

	if queue.consume("left over") {
		t.Fatalf("expected reset to drop pending entries")
	}
}
