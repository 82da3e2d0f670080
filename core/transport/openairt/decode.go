package openairt

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tbornik/coaching-core/core/events"
)

// decodeServerEvent maps one raw upstream message onto the typed event
// contract. Unknown event types decode to (nil, nil) so new upstream event
// kinds never break the read loop.
func decodeServerEvent(msg []byte) (events.Event, error) {
	var wire wireServerEvent
	if err := json.Unmarshal(msg, &wire); err != nil {
		return nil, fmt.Errorf("failed to unmarshal upstream event: %w", err)
	}

	switch wire.Type {
	case "session.created", "session.updated":
		if wire.Type == "session.updated" {
			return nil, nil
		}
		sessionID := ""
		if wire.Session != nil {
			sessionID = wire.Session.ID
		}
		return events.NewSessionReady(sessionID), nil

	case "response.created":
		if wire.Response == nil {
			return nil, errors.New("response.created without response payload")
		}
		return events.NewResponseCreated(wire.Response.ID, wire.Response.Metadata["purpose"]), nil

	case "response.output_item.added":
		if wire.Item == nil {
			return nil, errors.New("response.output_item.added without item payload")
		}
		return events.NewOutputItemAdded(wire.ResponseID, wire.Item.ID, itemRole(wire.Item.Role)), nil

	case "response.output_item.done":
		if wire.Item == nil {
			return nil, errors.New("response.output_item.done without item payload")
		}
		return events.NewOutputItemDone(wire.ResponseID, wire.Item.ID, itemRole(wire.Item.Role), itemText(*wire.Item)), nil

	case "response.text.delta":
		return events.NewTextDelta(wire.ResponseID, wire.ItemID, wire.Delta), nil

	case "response.text.done":
		return events.NewTextDone(wire.ResponseID, wire.ItemID, wire.Text), nil

	case "response.audio_transcript.delta":
		return events.NewAudioTranscriptDelta(wire.ResponseID, wire.ItemID, wire.Delta), nil

	case "response.audio_transcript.done":
		return events.NewAudioTranscriptDone(wire.ResponseID, wire.ItemID, wire.Transcript), nil

	case "response.audio.delta":
		audio, err := base64.StdEncoding.DecodeString(wire.Audio)
		if err != nil {
			return nil, fmt.Errorf("failed to decode audio delta: %w", err)
		}
		return events.NewAudioFrame(wire.ResponseID, audio), nil

	case "response.done":
		if wire.Response == nil {
			return nil, errors.New("response.done without response payload")
		}
		usage := events.Usage{}
		if wire.Response.Usage != nil {
			usage.InputTokens = wire.Response.Usage.InputTokens
			usage.OutputTokens = wire.Response.Usage.OutputTokens
		}
		return events.NewResponseDone(
			wire.Response.ID,
			wire.Response.Metadata["purpose"],
			responseText(wire.Response.Output),
			usage,
		), nil

	case "conversation.item.created":
		if wire.Item == nil {
			return nil, errors.New("conversation.item.created without item payload")
		}
		return events.NewConversationItemCreated(wire.Item.ID, itemRole(wire.Item.Role), itemText(*wire.Item)), nil

	case "input_audio_buffer.speech_started":
		return events.NewUserSpeechStarted(), nil

	case "input_audio_buffer.speech_stopped":
		return events.NewUserSpeechStopped(), nil

	case "conversation.item.input_audio_transcription.completed":
		return events.NewInputTranscriptionCompleted(wire.ItemID, wire.Transcript), nil

	case "output_audio_buffer.stopped":
		return events.NewPlaybackStopped(), nil

	case "error":
		message := "upstream error"
		if wire.Error != nil && wire.Error.Message != "" {
			message = wire.Error.Message
		}
		return events.NewTransportFailed(errors.New(message)), nil
	}

	return nil, nil
}

func itemRole(role string) events.Role {
	// The upstream uses assistant/user naming on the wire.
	switch role {
	case "assistant":
		return events.RoleCoach
	case "user":
		return events.RoleClient
	}
	return events.Role(role)
}

func itemText(item wireServerItem) string {
	var parts []string
	for _, content := range item.Content {
		switch {
		case content.Text != "":
			parts = append(parts, content.Text)
		case content.Transcript != "":
			parts = append(parts, content.Transcript)
		}
	}
	return strings.Join(parts, " ")
}

func responseText(output []wireServerItem) string {
	var parts []string
	for _, item := range output {
		if text := itemText(item); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}
