package events

const (
	// KindResponseCreated identifies the start of response generation.
	KindResponseCreated Kind = "response.created"
	// KindOutputItemAdded identifies an output item being attributed to a response.
	KindOutputItemAdded Kind = "response.output_item.added"
	// KindOutputItemDone identifies output item completion with final text.
	KindOutputItemDone Kind = "response.output_item.done"
	// KindTextDelta identifies streamed response text pieces.
	KindTextDelta Kind = "response.text.delta"
	// KindTextDone identifies response text stream completion.
	KindTextDone Kind = "response.text.done"
	// KindAudioTranscriptDelta identifies streamed speech transcript pieces.
	KindAudioTranscriptDelta Kind = "response.audio_transcript.delta"
	// KindAudioTranscriptDone identifies speech transcript completion.
	KindAudioTranscriptDone Kind = "response.audio_transcript.done"
	// KindAudioFrame identifies synthesized speech audio frames.
	KindAudioFrame Kind = "response.audio.delta"
	// KindResponseDone identifies whole-response completion.
	KindResponseDone Kind = "response.done"
)

// ResponseCreated marks the start of response generation. Purpose carries
// the client-supplied purpose tag when the upstream echoes one, otherwise
// it is empty.
type ResponseCreated struct {
	Base
	ResponseID string
	Purpose    string
}

// NewResponseCreated creates a response created event.
func NewResponseCreated(responseID, purpose string) ResponseCreated {
	return ResponseCreated{Base: NewBase(KindResponseCreated), ResponseID: responseID, Purpose: purpose}
}

// OutputItemAdded marks an output item being attributed to a response.
type OutputItemAdded struct {
	Base
	ResponseID string
	ItemID     string
	Role       Role
}

// NewOutputItemAdded creates an output item added event.
func NewOutputItemAdded(responseID, itemID string, role Role) OutputItemAdded {
	return OutputItemAdded{Base: NewBase(KindOutputItemAdded), ResponseID: responseID, ItemID: itemID, Role: role}
}

// OutputItemDone marks output item completion with its final text.
type OutputItemDone struct {
	Base
	ResponseID string
	ItemID     string
	Role       Role
	Text       string
}

// NewOutputItemDone creates an output item done event.
func NewOutputItemDone(responseID, itemID string, role Role, text string) OutputItemDone {
	return OutputItemDone{Base: NewBase(KindOutputItemDone), ResponseID: responseID, ItemID: itemID, Role: role, Text: text}
}

// TextDelta carries a streamed response text piece.
type TextDelta struct {
	Base
	ResponseID string
	ItemID     string
	Delta      string
}

// NewTextDelta creates a response text delta event.
func NewTextDelta(responseID, itemID, delta string) TextDelta {
	return TextDelta{Base: NewBase(KindTextDelta), ResponseID: responseID, ItemID: itemID, Delta: delta}
}

// TextDone marks response text stream completion.
type TextDone struct {
	Base
	ResponseID string
	ItemID     string
	Text       string
}

// NewTextDone creates a response text done event.
func NewTextDone(responseID, itemID, text string) TextDone {
	return TextDone{Base: NewBase(KindTextDone), ResponseID: responseID, ItemID: itemID, Text: text}
}

// AudioTranscriptDelta carries a streamed transcript piece of synthesized speech.
type AudioTranscriptDelta struct {
	Base
	ResponseID string
	ItemID     string
	Delta      string
}

// NewAudioTranscriptDelta creates an audio transcript delta event.
func NewAudioTranscriptDelta(responseID, itemID, delta string) AudioTranscriptDelta {
	return AudioTranscriptDelta{Base: NewBase(KindAudioTranscriptDelta), ResponseID: responseID, ItemID: itemID, Delta: delta}
}

// AudioTranscriptDone marks speech transcript completion.
type AudioTranscriptDone struct {
	Base
	ResponseID string
	ItemID     string
	Transcript string
}

// NewAudioTranscriptDone creates an audio transcript done event.
func NewAudioTranscriptDone(responseID, itemID, transcript string) AudioTranscriptDone {
	return AudioTranscriptDone{Base: NewBase(KindAudioTranscriptDone), ResponseID: responseID, ItemID: itemID, Transcript: transcript}
}

// AudioFrame carries a synthesized speech audio frame.
type AudioFrame struct {
	Base
	ResponseID string
	Audio      []byte
}

// NewAudioFrame creates a speech audio frame event.
func NewAudioFrame(responseID string, audio []byte) AudioFrame {
	return AudioFrame{Base: NewBase(KindAudioFrame), ResponseID: responseID, Audio: audio}
}

// Usage carries upstream token accounting for one response.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// ResponseDone marks whole-response completion.
type ResponseDone struct {
	Base
	ResponseID string
	Purpose    string
	Text       string
	Usage      Usage
}

// NewResponseDone creates a response done event.
func NewResponseDone(responseID, purpose, text string, usage Usage) ResponseDone {
	return ResponseDone{Base: NewBase(KindResponseDone), ResponseID: responseID, Purpose: purpose, Text: text, Usage: usage}
}
