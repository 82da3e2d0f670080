// Package events defines the typed transport event contract.
//
// Every event the transport session emits is decoded into one of the typed
// variants in this package before it reaches the session controller, so the
// controller dispatches on Go types rather than raw wire strings.
//
// Event kinds are grouped by wire-facing namespaces:
//
//   - session.*
//   - response.*
//   - conversation.*
//   - input.*
//   - output.*
//   - transport.*
//
// Semantics used across the package:
//
//   - Delta: append-only text piece emitted in stream order.
//   - Done: terminal immutable text/state for the current stream phase.
//   - Created: a server-assigned object came into existence.
//
// session events
//
//   - SessionReady (session.ready): the upstream confirmed the session is
//     live and accepting commands.
//
// response events
//
//   - ResponseCreated (response.created): response generation started;
//     carries the server-assigned response id and the client-supplied
//     purpose tag, when the upstream echoes one.
//   - OutputItemAdded (response.output_item.added): an output item was
//     attributed to a response.
//   - OutputItemDone (response.output_item.done): an output item finished,
//     with its final text.
//   - TextDelta (response.text.delta): streamed response text piece.
//   - TextDone (response.text.done): response text stream completed.
//   - AudioTranscriptDelta (response.audio_transcript.delta): streamed
//     transcript of synthesized speech.
//   - AudioTranscriptDone (response.audio_transcript.done): speech
//     transcript completed.
//   - AudioFrame (response.audio.delta): synthesized speech audio frame.
//   - ResponseDone (response.done): the whole response finished; carries
//     purpose tag, final text and usage accounting.
//
// conversation events
//
//   - ConversationItemCreated (conversation.item.created): an item entered
//     the upstream conversation, including server echoes of client
//     messages.
//
// input events
//
//   - UserSpeechStarted (input.speech_started): upstream voice activity
//     detection heard the client start speaking.
//   - UserSpeechStopped (input.speech_stopped): the client stopped
//     speaking.
//   - InputTranscriptionCompleted (input.transcription_completed): the
//     upstream finished transcribing a spoken client utterance.
//
// output events
//
//   - PlaybackStopped (output.playback_stopped): the upstream audio buffer
//     drained; nothing remains to be played for the current response.
//
// transport events
//
//   - TransportFailed (transport.error): the upstream stream reported an
//     error; the session is no longer usable.
//   - TransportClosed (transport.closed): the channel closed.
package events
