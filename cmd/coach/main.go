// Command coach is a terminal client for live coaching sessions: a message
// log, GROW progress sidebar, and voice or text input over the realtime
// transport.
package main

import (
	"context"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	session "github.com/tbornik/coaching-core/core"
	"github.com/tbornik/coaching-core/core/audio/miniaudio"
	"github.com/tbornik/coaching-core/core/credentials"
	"github.com/tbornik/coaching-core/core/modality"
	"github.com/tbornik/coaching-core/core/prefs"
	"github.com/tbornik/coaching-core/core/progress"
	"github.com/tbornik/coaching-core/core/transport"
	"github.com/tbornik/coaching-core/core/transport/openairt"
)

const defaultTokenEndpoint = "http://localhost:3000/api/token"

func main() {
	endpoint := defaultTokenEndpoint
	if fromEnv, ok := os.LookupEnv("COACHING_TOKEN_ENDPOINT"); ok {
		endpoint = fromEnv
	}
	creds := credentials.NewClient(endpoint)

	store, err := prefs.Open()
	if err != nil {
		log.Printf("Preferences unavailable, continuing without: %v", err)
		store = nil
	}

	player, err := miniaudio.NewClient()
	if err != nil {
		log.Printf("Audio devices unavailable, voice disabled: %v", err)
		player = nil
	} else {
		defer player.Close()
	}

	uiEvents := make(chan tea.Msg, 256)
	push := func(msg tea.Msg) {
		select {
		case uiEvents <- msg:
		default:
			// UI starvation should never stall the event loop.
		}
	}

	// The capture lifecycle depends on the controller, which the status
	// callback needs before the controller exists; bind late.
	var controller *session.Controller
	syncCapture := func() {
		if controller == nil || player == nil {
			return
		}
		connected := controller.Status() == session.StatusConnected
		voice := controller.Modalities().Current() == modality.Voice
		if connected && voice {
			err := player.StartCapture(context.Background(), func(frame []byte) {
				_ = controller.SendAudioFrame(frame)
			})
			if err != nil {
				log.Printf("Failed to start microphone capture: %v", err)
			}
			return
		}
		if err := player.StopCapture(); err != nil {
			log.Printf("Failed to stop microphone capture: %v", err)
		}
	}

	options := []session.ControllerOption{
		session.WithMessageCallback(func(message session.Message) { push(transcriptMsg{message: message}) }),
		session.WithAssistantDeltaCallback(func(responseID, delta string) {
			push(deltaMsg{responseID: responseID, delta: delta})
		}),
		session.WithStatusCallback(func(status session.Status) {
			syncCapture()
			push(statusMsg{status: status})
		}),
		session.WithScoresCallback(func(snapshot progress.Snapshot) { push(scoresMsg{snapshot: snapshot}) }),
		session.WithSpeakingCallback(func(speaking bool) { push(speakingMsg{speaking: speaking}) }),
		session.WithUsageCallback(func(usage session.Usage) { push(usageMsg{usage: usage}) }),
		session.WithClosureSuggestionCallback(
			func() { push(suggestionMsg{visible: true}) },
			func() { push(suggestionMsg{visible: false}) },
		),
		session.WithSystemMessageCallback(func(text string) { push(systemMsg{text: text}) }),
		session.WithErrorCallback(func(err error) { push(failureMsg{err: err}) }),
	}
	if player != nil {
		options = append(options, session.WithAudioCallback(func(frame []byte) {
			if err := player.Play(frame); err != nil {
				log.Printf("Failed to enqueue playback audio: %v", err)
			}
		}))
	}
	if store != nil {
		if preset, found, err := store.ActivePreset(); err == nil && found {
			options = append(options, session.WithInstructions(preset.Instructions))
		}
		if answers, err := store.QuestionnaireAnswers(); err == nil {
			if background := prefs.BackgroundInstructions(answers); background != "" {
				options = append(options, session.WithClientBackground(background))
			}
		}
	}

	controller = session.New(creds, func() transport.Session { return openairt.NewClient() }, options...)
	controller.Modalities().Subscribe(func(modality.Modality) { syncCapture() })

	program := tea.NewProgram(newModel(controller, store, uiEvents), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		log.Fatalf("UI failed: %v", err)
	}

	controller.Close()
}
