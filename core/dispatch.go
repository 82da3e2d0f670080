package session

import (
	"github.com/tbornik/coaching-core/core/closure"
	"github.com/tbornik/coaching-core/core/events"
	"github.com/tbornik/coaching-core/core/progress"
	"github.com/tbornik/coaching-core/core/transport"
)

// handleEvent is the single event-loop entry point; every transport event
// passes through here, one at a time.
func (c *Controller) handleEvent(event events.Event) {
	switch e := event.(type) {
	case events.SessionReady:
		c.handleSessionReady(e)

	case events.ResponseCreated:
		c.mu.Lock()
		c.visible.noteResponse(e.ResponseID, e.Purpose)
		c.mu.Unlock()
		c.negotiator.NoteResponseCreated(e.ResponseID, e.Purpose)

	case events.OutputItemAdded:
		c.mu.Lock()
		c.visible.noteItem(e.ResponseID, e.ItemID)
		c.mu.Unlock()

	case events.OutputItemDone:
		c.finalizeCoachText(e.ResponseID, e.ItemID, e.Text)

	case events.TextDelta:
		c.streamCoachDelta(e.ResponseID, e.ItemID, e.Delta)

	case events.TextDone:
		c.finalizeCoachText(e.ResponseID, e.ItemID, e.Text)

	case events.AudioTranscriptDelta:
		c.streamCoachDelta(e.ResponseID, e.ItemID, e.Delta)

	case events.AudioTranscriptDone:
		c.finalizeCoachText(e.ResponseID, e.ItemID, e.Transcript)

	case events.AudioFrame:
		c.onAudio(e.Audio)

	case events.ResponseDone:
		c.handleResponseDone(e)

	case events.ConversationItemCreated:
		c.handleConversationItem(e)

	case events.InputTranscriptionCompleted:
		c.handleInputTranscription(e)

	case events.UserSpeechStarted:
		c.onSpeaking(true)

	case events.UserSpeechStopped:
		c.onSpeaking(false)

	case events.PlaybackStopped:
		c.negotiator.HandlePlaybackStopped()

	case events.TransportFailed:
		c.handleTransportFailure(e)

	case events.TransportClosed:
		c.handleTransportClosed(e)
	}
}

// handleSessionReady promotes the session to connected and sends the
// one-time greeting. Both the real upstream event and the connect fallback
// land here, so it has to be idempotent.
func (c *Controller) handleSessionReady(events.SessionReady) {
	c.mu.Lock()
	if c.status != StatusConnecting {
		c.mu.Unlock()
		return
	}
	c.status = StatusConnected
	if c.fallbackTimer != nil {
		c.fallbackTimer.Stop()
		c.fallbackTimer = nil
	}
	session := c.transport
	greeted := c.greeted
	c.greeted = true
	c.mu.Unlock()

	c.onStatus(StatusConnected)
	logger.Info("session ready")

	if greeted || session == nil {
		return
	}

	// The greeting goes upstream as a client message but is never rendered
	// locally; recording it lets the transport echo fall through the same
	// dedup path as typed input.
	greeting := greetingFor(c.now())
	c.mu.Lock()
	c.echo.record(greeting)
	c.mu.Unlock()

	if err := session.SendMessage(events.RoleClient, greeting); err != nil {
		logger.Warn("failed to send greeting", "error", err)
		return
	}
	if err := session.CreateResponse(transport.ResponseRequest{}); err != nil {
		logger.Warn("failed to request greeting response", "error", err)
	}
}

// streamCoachDelta forwards streaming coach text to the UI, unless the
// owning response is suppressed.
func (c *Controller) streamCoachDelta(responseID, itemID, delta string) {
	c.mu.Lock()
	renderable := c.visible.renderable(responseID, itemID)
	c.mu.Unlock()
	if !renderable || delta == "" {
		return
	}
	c.onAssistantDelta(responseID, delta)
}

// finalizeCoachText renders a completed coach message exactly once and
// feeds it to the progress analyzer. Text and audio-transcript completions
// for the same item collapse onto one message.
func (c *Controller) finalizeCoachText(responseID, itemID, text string) {
	if text == "" {
		return
	}

	c.mu.Lock()
	if !c.visible.renderable(responseID, itemID) {
		c.mu.Unlock()
		return
	}
	if itemID != "" && c.renderedItems[itemID] {
		c.mu.Unlock()
		return
	}
	if itemID != "" {
		c.renderedItems[itemID] = true
	}
	if responseID != "" {
		c.renderedResponses[responseID] = true
	}
	c.mu.Unlock()

	messageID := itemID
	if messageID == "" {
		messageID = responseID
	}
	timestamp := c.now()

	c.onMessage(Message{ID: messageID, Role: events.RoleCoach, Text: text, Timestamp: timestamp})
	c.analyzer.Observe(progress.Entry{
		Role:      events.RoleCoach,
		Text:      text,
		Timestamp: timestamp,
	}, progress.EntryID(itemID, responseID))
}

// handleResponseDone settles a completed response: usage is accumulated,
// purpose-tagged requests are routed to their consumers, the negotiator
// checks for summary completion, and anything still unrendered gets its one
// aggregate rendition.
func (c *Controller) handleResponseDone(e events.ResponseDone) {
	c.mu.Lock()
	c.usage.InputTokens += e.Usage.InputTokens
	c.usage.OutputTokens += e.Usage.OutputTokens
	usage := c.usage
	c.mu.Unlock()
	c.onUsage(usage)

	if kind, tracked := c.requests.complete(e.Purpose); tracked {
		switch kind {
		case RequestAnalysis:
			c.analyzer.HandleProbeResult(e.Text)
			return
		case RequestConsentCheck:
			c.negotiator.HandleConsentVerdict(e.Text)
			if c.negotiator.State() != closure.StateAwaitingConsent {
				c.onClosureDismiss()
			}
			return
		case RequestConsentPrompt, RequestContinue:
			// Visible responses; rendering already happened item by item.
		case RequestSummary:
			// Completion handled below with the rest of the summaries.
		}
	}

	completedSummary := c.negotiator.HandleResponseDone(e.ResponseID, e.Purpose)

	c.mu.Lock()
	renderable := c.visible.renderable(e.ResponseID, "") &&
		e.Text != "" && !c.renderedResponses[e.ResponseID]
	if renderable {
		c.renderedResponses[e.ResponseID] = true
	}
	c.mu.Unlock()

	if renderable {
		timestamp := c.now()
		c.onMessage(Message{ID: e.ResponseID, Role: events.RoleCoach, Text: e.Text, Timestamp: timestamp})
		c.analyzer.Observe(progress.Entry{
			Role:      events.RoleCoach,
			Text:      e.Text,
			Timestamp: timestamp,
		}, progress.EntryID("", e.ResponseID))
	}

	if completedSummary {
		logger.Info("summary completed", "responseID", e.ResponseID)
	}
}

// handleConversationItem processes client messages materializing in the
// shared conversation. Local echoes are deduplicated for rendering but the
// analyzer and the consent flow still see every client utterance.
func (c *Controller) handleConversationItem(e events.ConversationItemCreated) {
	if e.Role != events.RoleClient || e.Text == "" {
		return
	}

	c.mu.Lock()
	echoed := c.echo.consume(e.Text)
	c.mu.Unlock()

	if !echoed {
		c.onMessage(Message{ID: e.ItemID, Role: events.RoleClient, Text: e.Text, Timestamp: c.now()})
	}

	c.analyzer.Observe(progress.Entry{
		Role:      events.RoleClient,
		Text:      e.Text,
		Timestamp: c.now(),
	}, progress.EntryID(e.ItemID, ""))
	c.negotiator.NoteClientUtterance(e.Text)
}

// handleInputTranscription renders the finished transcript of a spoken
// client turn. Voice input has no local echo, so this always renders.
func (c *Controller) handleInputTranscription(e events.InputTranscriptionCompleted) {
	if e.Transcript == "" {
		return
	}

	c.onMessage(Message{ID: e.ItemID, Role: events.RoleClient, Text: e.Transcript, Timestamp: c.now()})
	c.analyzer.Observe(progress.Entry{
		Role:      events.RoleClient,
		Text:      e.Transcript,
		Timestamp: c.now(),
	}, progress.EntryID(e.ItemID, ""))
	c.negotiator.NoteClientUtterance(e.Transcript)
}

func (c *Controller) handleTransportFailure(e events.TransportFailed) {
	c.onError(&TransportError{Err: e.Err})
	if err := c.Disconnect(); err != nil && err != ErrNotConnected {
		logger.Warn("teardown after transport failure", "error", err)
	}
}

func (c *Controller) handleTransportClosed(e events.TransportClosed) {
	c.mu.Lock()
	active := c.status != StatusDisconnected
	c.mu.Unlock()
	if !active {
		return
	}

	if e.Reason != "" {
		c.onSystemMessage("Connection closed: " + e.Reason)
	}
	if err := c.Disconnect(); err != nil && err != ErrNotConnected {
		logger.Warn("teardown after transport close", "error", err)
	}
}
