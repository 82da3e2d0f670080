package events

import "testing"

func TestConstructorsEmitExpectedKinds(t *testing.T) {
	testCases := []struct {
		name     string
		event    Event
		expected Kind
	}{
		{name: "session ready", event: NewSessionReady("sess_1"), expected: KindSessionReady},
		{name: "response created", event: NewResponseCreated("resp_1", "progress_probe"), expected: KindResponseCreated},
		{name: "output item added", event: NewOutputItemAdded("resp_1", "item_1", RoleCoach), expected: KindOutputItemAdded},
		{name: "output item done", event: NewOutputItemDone("resp_1", "item_1", RoleCoach, "text"), expected: KindOutputItemDone},
		{name: "text delta", event: NewTextDelta("resp_1", "item_1", "piece"), expected: KindTextDelta},
		{name: "text done", event: NewTextDone("resp_1", "item_1", "text"), expected: KindTextDone},
		{name: "audio transcript delta", event: NewAudioTranscriptDelta("resp_1", "item_1", "piece"), expected: KindAudioTranscriptDelta},
		{name: "audio transcript done", event: NewAudioTranscriptDone("resp_1", "item_1", "text"), expected: KindAudioTranscriptDone},
		{name: "audio frame", event: NewAudioFrame("resp_1", []byte{1}), expected: KindAudioFrame},
		{name: "response done", event: NewResponseDone("resp_1", "", "text", Usage{}), expected: KindResponseDone},
		{name: "conversation item created", event: NewConversationItemCreated("item_1", RoleClient, "hi"), expected: KindConversationItemCreated},
		{name: "user speech started", event: NewUserSpeechStarted(), expected: KindUserSpeechStarted},
		{name: "user speech stopped", event: NewUserSpeechStopped(), expected: KindUserSpeechStopped},
		{name: "input transcription completed", event: NewInputTranscriptionCompleted("item_1", "hi"), expected: KindInputTranscriptionCompleted},
		{name: "playback stopped", event: NewPlaybackStopped(), expected: KindPlaybackStopped},
		{name: "transport failed", event: NewTransportFailed(nil), expected: KindTransportFailed},
		{name: "transport closed", event: NewTransportClosed("going away"), expected: KindTransportClosed},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := testCase.event.Kind(); got != testCase.expected {
				t.Fatalf("expected kind %q, got %q", testCase.expected, got)
			}
		})
	}
}

func TestSpeechStartedAndStoppedKindsAreDistinct(t *testing.T) {
	started := NewUserSpeechStarted()
	stopped := NewUserSpeechStopped()

	if started.Kind() == stopped.Kind() {
		t.Fatalf("expected speech started and speech stopped kinds to differ, both were %q", started.Kind())
	}
}
