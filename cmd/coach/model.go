package main

import (
	"context"
	"fmt"
	"strings"

	uiprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	session "github.com/tbornik/coaching-core/core"
	"github.com/tbornik/coaching-core/core/events"
	"github.com/tbornik/coaching-core/core/modality"
	"github.com/tbornik/coaching-core/core/prefs"
	"github.com/tbornik/coaching-core/core/progress"
)

// Messages pushed from controller callbacks into the UI loop.
type (
	transcriptMsg struct{ message session.Message }
	deltaMsg      struct{ responseID, delta string }
	statusMsg     struct{ status session.Status }
	scoresMsg     struct{ snapshot progress.Snapshot }
	speakingMsg   struct{ speaking bool }
	usageMsg      struct{ usage session.Usage }
	suggestionMsg struct{ visible bool }
	systemMsg     struct{ text string }
	failureMsg    struct{ err error }
)

const sidebarWidth = 34

type model struct {
	controller *session.Controller
	store      *prefs.Store
	uiEvents   <-chan tea.Msg

	log         viewport.Model
	input       textinput.Model
	textChannel *modality.TextInput
	phaseBar    map[progress.Phase]uiprogress.Model

	messages []session.Message
	draft    map[string]string

	status     session.Status
	snapshot   progress.Snapshot
	usage      session.Usage
	speaking   bool
	suggestion bool
	statusLine string

	sidebarVisible bool
	systemSeq      int
	width          int
	height         int

	theme uiTheme
}

func newModel(controller *session.Controller, store *prefs.Store, uiEvents <-chan tea.Msg) model {
	input := textinput.New()
	input.Placeholder = "Type a message, ctrl+o to connect"
	input.CharLimit = 2000
	input.Focus()

	textChannel := modality.NewTextInput()
	textChannel.BindTo(controller.Modalities())

	phaseBar := make(map[progress.Phase]uiprogress.Model, len(progress.Phases()))
	for _, phase := range progress.Phases() {
		bar := uiprogress.New(uiprogress.WithDefaultGradient())
		bar.Width = sidebarWidth - 14
		bar.ShowPercentage = false
		phaseBar[phase] = bar
	}

	sidebarVisible := true
	if store != nil {
		if visible, err := store.SidebarVisible(); err == nil {
			sidebarVisible = visible
		}
	}

	return model{
		controller:     controller,
		store:          store,
		uiEvents:       uiEvents,
		log:            viewport.New(0, 0),
		input:          input,
		textChannel:    textChannel,
		phaseBar:       phaseBar,
		draft:          make(map[string]string),
		status:         controller.Status(),
		snapshot:       controller.Progress(),
		sidebarVisible: sidebarVisible,
		theme:          newTheme(),
	}
}

func listen(uiEvents <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg { return <-uiEvents }
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, listen(m.uiEvents))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.refreshLog()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case transcriptMsg:
		m.upsertMessage(msg.message)
		delete(m.draft, msg.message.ID)
		m.refreshLog()
		return m, listen(m.uiEvents)

	case deltaMsg:
		m.draft[msg.responseID] += msg.delta
		m.refreshLog()
		return m, listen(m.uiEvents)

	case statusMsg:
		m.status = msg.status
		if msg.status == session.StatusDisconnected {
			m.suggestion = false
			m.speaking = false
			m.draft = make(map[string]string)
		}
		return m, listen(m.uiEvents)

	case scoresMsg:
		m.snapshot = msg.snapshot
		return m, listen(m.uiEvents)

	case speakingMsg:
		m.speaking = msg.speaking
		return m, listen(m.uiEvents)

	case usageMsg:
		m.usage = msg.usage
		return m, listen(m.uiEvents)

	case suggestionMsg:
		m.suggestion = msg.visible
		return m, listen(m.uiEvents)

	case systemMsg:
		m.statusLine = msg.text
		m.systemSeq++
		m.upsertMessage(session.Message{ID: fmt.Sprintf("system-%d", m.systemSeq), Text: msg.text})
		m.refreshLog()
		return m, listen(m.uiEvents)

	case failureMsg:
		m.statusLine = "Error: " + msg.err.Error()
		return m, listen(m.uiEvents)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.log, cmd = m.log.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "ctrl+o":
		if m.status == session.StatusDisconnected {
			m.statusLine = "Connecting..."
			if err := m.controller.Connect(context.Background()); err != nil {
				m.statusLine = "Error: " + err.Error()
			}
		}
		return m, nil

	case "ctrl+d":
		if m.status != session.StatusDisconnected {
			if err := m.controller.Disconnect(); err != nil {
				m.statusLine = "Error: " + err.Error()
			}
		}
		return m, nil

	case "ctrl+t":
		m.controller.Modalities().Next()
		if !m.textChannel.Enabled() {
			m.input.Reset()
		}
		return m, nil

	case "ctrl+s":
		if m.status == session.StatusConnected {
			m.controller.RequestSummary()
		}
		return m, nil

	case "ctrl+y":
		if m.suggestion {
			m.suggestion = false
			m.controller.AcceptClosureSuggestion()
		}
		return m, nil

	case "ctrl+x":
		if m.suggestion {
			m.suggestion = false
			m.controller.DeclineClosureSuggestion()
		}
		return m, nil

	case "ctrl+b":
		m.sidebarVisible = !m.sidebarVisible
		if m.store != nil {
			_ = m.store.SetSidebarVisible(m.sidebarVisible)
		}
		m.resize()
		m.refreshLog()
		return m, nil

	case "enter":
		if !m.textChannel.Enabled() {
			m.statusLine = "Switch to text mode to type (ctrl+t)"
			return m, nil
		}
		text := strings.TrimSpace(m.textChannel.TakeDraft())
		m.input.Reset()
		if text == "" {
			return m, nil
		}
		if err := m.controller.SendUserText(text); err != nil {
			m.statusLine = "Error: " + err.Error()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.textChannel.SetDraft(m.input.Value())
	return m, cmd
}

// upsertMessage replaces an existing message with the same id so streamed
// finals and corrections collapse onto one log entry.
func (m *model) upsertMessage(message session.Message) {
	for i, existing := range m.messages {
		if existing.ID == message.ID {
			m.messages[i] = message
			return
		}
	}
	m.messages = append(m.messages, message)
}

func (m *model) resize() {
	logWidth := m.width
	if m.sidebarVisible {
		logWidth -= sidebarWidth
	}
	if logWidth < 20 {
		logWidth = 20
	}
	logHeight := m.height - 7
	if logHeight < 3 {
		logHeight = 3
	}
	m.log.Width = logWidth
	m.log.Height = logHeight
	m.input.Width = logWidth - 6
}

func (m *model) refreshLog() {
	width := m.log.Width - 2
	if width < 10 {
		width = 10
	}

	var b strings.Builder
	for _, message := range m.messages {
		b.WriteString(m.renderMessage(message, width))
		b.WriteString("\n")
	}
	for responseID, partial := range m.draft {
		if partial == "" {
			continue
		}
		b.WriteString(m.renderMessage(session.Message{
			ID:   responseID,
			Role: events.RoleCoach,
			Text: partial + "…",
		}, width))
		b.WriteString("\n")
	}

	m.log.SetContent(b.String())
	m.log.GotoBottom()
}

func (m *model) renderMessage(message session.Message, width int) string {
	var label string
	switch message.Role {
	case events.RoleCoach:
		label = m.theme.coach.Render("coach")
	case events.RoleClient:
		label = m.theme.client.Render("you")
	default:
		return m.theme.system.Render(wordwrap.String(message.Text, width))
	}
	return label + " " + wordwrap.String(message.Text, width)
}

func (m model) View() string {
	header := m.viewHeader()
	body := m.log.View()
	if m.sidebarVisible {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, m.viewSidebar())
	}
	footer := m.viewFooter()
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m model) viewHeader() string {
	status := m.theme.statusDown.Render(string(m.status))
	if m.status == session.StatusConnected {
		status = m.theme.statusUp.Render(string(m.status))
	}
	mode := string(m.controller.Modalities().Current())
	if m.speaking {
		mode += " ●"
	}
	usage := ""
	if m.usage.InputTokens+m.usage.OutputTokens > 0 {
		usage = fmt.Sprintf("  tokens %d/%d", m.usage.InputTokens, m.usage.OutputTokens)
	}
	return m.theme.header.Render("coaching session") +
		"  " + status + "  " + m.theme.help.Render(mode+usage)
}

func (m model) viewSidebar() string {
	var b strings.Builder
	b.WriteString(m.theme.panelTitle.Render("Progress"))
	b.WriteString("\n\n")
	for _, phase := range progress.Phases() {
		bar := m.phaseBar[phase]
		marker := "  "
		if phase == m.snapshot.CurrentPhase {
			marker = "▸ "
		}
		b.WriteString(fmt.Sprintf("%s%-8s %s\n", marker, phase, bar.ViewAs(m.snapshot.PhaseScores[phase])))
	}
	b.WriteString("\n")
	b.WriteString(m.theme.panelTitle.Render("Mode"))
	b.WriteString("\n  " + string(m.snapshot.CurrentMode) + "\n")
	if m.snapshot.Note != "" {
		b.WriteString("\n" + m.theme.system.Render(wordwrap.String(m.snapshot.Note, sidebarWidth-4)) + "\n")
	}
	return m.theme.sidebar.Width(sidebarWidth - 2).Height(m.log.Height - 2).Render(b.String())
}

func (m model) viewFooter() string {
	var parts []string
	if m.suggestion {
		parts = append(parts, m.theme.banner.Render(
			"The session looks ready to wrap up. ctrl+y summary · ctrl+x keep going"))
	}
	parts = append(parts, m.theme.inputPanel.Render(m.input.View()))

	help := "ctrl+o connect · ctrl+d disconnect · ctrl+t voice/text · ctrl+s summary · ctrl+b sidebar · ctrl+c quit"
	if m.statusLine != "" {
		help = m.statusLine + "   " + help
	}
	parts = append(parts, m.theme.help.Render(help))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
