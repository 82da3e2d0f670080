package events

const (
	// KindConversationItemCreated identifies an item entering the upstream conversation.
	KindConversationItemCreated Kind = "conversation.item.created"
	// KindUserSpeechStarted identifies start of client speech activity.
	KindUserSpeechStarted Kind = "input.speech_started"
	// KindUserSpeechStopped identifies end of client speech activity.
	KindUserSpeechStopped Kind = "input.speech_stopped"
	// KindInputTranscriptionCompleted identifies a finished transcription of spoken client input.
	KindInputTranscriptionCompleted Kind = "input.transcription_completed"
	// KindPlaybackStopped identifies the upstream audio buffer draining completely.
	KindPlaybackStopped Kind = "output.playback_stopped"
)

// ConversationItemCreated marks an item entering the upstream conversation.
// Server echoes of client messages arrive this way too, which is why the
// controller runs local-echo deduplication against it.
type ConversationItemCreated struct {
	Base
	ItemID string
	Role   Role
	Text   string
}

// NewConversationItemCreated creates a conversation item created event.
func NewConversationItemCreated(itemID string, role Role, text string) ConversationItemCreated {
	return ConversationItemCreated{Base: NewBase(KindConversationItemCreated), ItemID: itemID, Role: role, Text: text}
}

// UserSpeechStarted marks upstream voice activity detection hearing the client start speaking.
type UserSpeechStarted struct{ Base }

// NewUserSpeechStarted creates a user speech started event.
func NewUserSpeechStarted() UserSpeechStarted {
	return UserSpeechStarted{Base: NewBase(KindUserSpeechStarted)}
}

// UserSpeechStopped marks the client going quiet.
type UserSpeechStopped struct{ Base }

// NewUserSpeechStopped creates a user speech stopped event.
func NewUserSpeechStopped() UserSpeechStopped {
	return UserSpeechStopped{Base: NewBase(KindUserSpeechStopped)}
}

// InputTranscriptionCompleted carries the finished transcription of a spoken
// client utterance.
type InputTranscriptionCompleted struct {
	Base
	ItemID     string
	Transcript string
}

// NewInputTranscriptionCompleted creates an input transcription completed event.
func NewInputTranscriptionCompleted(itemID, transcript string) InputTranscriptionCompleted {
	return InputTranscriptionCompleted{Base: NewBase(KindInputTranscriptionCompleted), ItemID: itemID, Transcript: transcript}
}

// PlaybackStopped marks the upstream audio buffer draining completely.
type PlaybackStopped struct{ Base }

// NewPlaybackStopped creates a playback stopped event.
func NewPlaybackStopped() PlaybackStopped {
	return PlaybackStopped{Base: NewBase(KindPlaybackStopped)}
}
