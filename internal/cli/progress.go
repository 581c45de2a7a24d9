package cli

import (
	"fmt"
	"strings"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/aromalbiju/truthlens-go/internal/analysis"
	"github.com/aromalbiju/truthlens-go/internal/client"
)

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Warn    lipgloss.Color
	Hint    lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Warn:    lipgloss.Color("#FFAF00"), // amber
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

// plainTheme renders everything unstyled, for non-terminal output.
var plainTheme = Theme{}

func (t Theme) style(c lipgloss.Color) lipgloss.Style {
	if c == "" {
		return lipgloss.NewStyle()
	}
	return lipgloss.NewStyle().Foreground(c)
}

func (t Theme) statusStyle() lipgloss.Style {
	return t.style(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return t.style(t.Success).Bold(t.Success != "")
}

func (t Theme) errorStyle() lipgloss.Style {
	return t.style(t.Error).Bold(t.Error != "")
}

func (t Theme) warnStyle() lipgloss.Style {
	return t.style(t.Warn).Bold(t.Warn != "")
}

func (t Theme) hintStyle() lipgloss.Style {
	return t.style(t.Hint).Italic(t.Hint != "")
}

// channelEventMsg carries one event from the live update channel.
// ok is false once the channel's event stream has ended.
type channelEventMsg struct {
	ev analysis.Event
	ok bool
}

// sessionModel is the bubbletea model for a live analysis session.
type sessionModel struct {
	jobID    string
	channel  *client.Channel
	store    *analysis.Store
	progress progress.Model
	theme    Theme

	connected bool
	done      bool
	quitting  bool
}

// newSessionModel creates a new session model.
func newSessionModel(ch *client.Channel, jobID string) sessionModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	return sessionModel{
		jobID:    jobID,
		channel:  ch,
		store:    analysis.NewStore(),
		progress: prog,
		theme:    defaultTheme,
	}
}

// Init returns the initial command (start consuming channel events).
func (m sessionModel) Init() tea.Cmd {
	return tea.Batch(
		waitEvent(m.channel),
		m.progress.Init(),
	)
}

// Update handles messages and returns the updated model.
func (m sessionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			_ = m.channel.Close()
			return m, tea.Quit
		}

	case channelEventMsg:
		if !msg.ok {
			// Stream ended: either the result arrived and we closed the
			// channel, or the backend went away mid-run.
			m.done = true
			return m, tea.Quit
		}

		switch ev := msg.ev.(type) {
		case analysis.ConnectivityEvent:
			m.connected = ev.State == analysis.ChannelOpen
		default:
			m.store.Apply(ev)
		}

		if m.store.IsComplete() {
			// One result per session; nothing further will arrive.
			_ = m.channel.Close()
			m.done = true
			return m, tea.Quit
		}

		return m, waitEvent(m.channel)

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m sessionModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

// renderContent builds the display string.
func (m sessionModel) renderContent() string {
	if m.done || m.quitting {
		return m.finalView()
	}

	var b strings.Builder

	header := m.theme.statusStyle().Render(fmt.Sprintf("Analyzing (job %s)", m.jobID))
	if !m.connected {
		header += m.theme.hintStyle().Render("  connecting...")
	}
	b.WriteString(header + "\n\n")

	stages := m.store.Stages()
	doneCount := 0
	for _, st := range stages {
		b.WriteString(renderStageLine(m.theme, st) + "\n")
		if st.Status == analysis.StatusDone {
			doneCount++
		}
	}

	pct := float64(doneCount) / float64(analysis.StageCount())
	b.WriteString("\n" + m.progress.ViewAs(pct) + "\n")
	b.WriteString(m.theme.hintStyle().Render("Press q to stop watching") + "\n")

	return b.String()
}

// renderStageLine formats one stage row with a status marker.
func renderStageLine(t Theme, st analysis.Stage) string {
	var marker, label string
	switch st.Status {
	case analysis.StatusDone:
		marker = t.completedStyle().Render("✓")
		label = st.Label
	case analysis.StatusRunning:
		marker = t.statusStyle().Render("▸")
		label = t.statusStyle().Render(st.Label)
	case analysis.StatusError:
		marker = t.errorStyle().Render("✗")
		label = t.errorStyle().Render(st.Label)
	default:
		marker = " "
		label = t.hintStyle().Render(st.Label)
	}

	line := fmt.Sprintf("  %s %s", marker, label)
	if st.Detail != "" && st.Status != analysis.StatusPending {
		line += t.hintStyle().Render("  " + st.Detail)
	}
	return line
}

// finalView renders the completion message.
func (m sessionModel) finalView() string {
	if m.quitting {
		msg := fmt.Sprintf("\nStopped watching job %s.\nUse 'truthlens results %s' to fetch the verdict later.\n",
			m.jobID, m.jobID)
		return m.theme.hintStyle().Render(msg)
	}

	if result := m.store.Result(); result != nil {
		return "\n" + renderResult(m.theme, result)
	}

	// Closed without a result: the session is stalled for good.
	return m.theme.errorStyle().Render("\n✗ Connection closed before a verdict arrived.") +
		m.theme.hintStyle().Render(fmt.Sprintf("\nUse 'truthlens results %s' to check the job later.\n", m.jobID))
}

// waitEvent returns a command that blocks for the next channel event.
// Runs as a command to avoid blocking Update().
func waitEvent(ch *client.Channel) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch.Events()
		return channelEventMsg{ev: ev, ok: ok}
	}
}

// runSessionUI runs the interactive progress UI over an open channel.
// Returns nil when the user stops watching; the job keeps running remotely.
func runSessionUI(ch *client.Channel, jobID string) error {
	model := newSessionModel(ch, jobID)
	p := tea.NewProgram(model)

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("progress UI error: %w", err)
	}

	if m, ok := finalModel.(sessionModel); ok {
		if m.quitting {
			return nil
		}
		if m.store.Result() == nil {
			return fmt.Errorf("connection closed before a verdict arrived")
		}
	}

	return nil
}
