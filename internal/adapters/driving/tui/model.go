package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/lettermerge/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/lettermerge/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/lettermerge/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/lettermerge/internal/core/domain"
)

const maxBarWidth = 60

// Model is the progress view of one batch. It implements tea.Model.
type Model struct {
	title  string
	cancel context.CancelFunc

	styles *styles.Styles
	keys   *keymap.KeyMap
	help   help.Model
	bar    progress.Model

	progress   domain.BatchProgress
	cancelling bool
	finished   *messages.BatchFinished
}

// NewModel creates the view. cancel is called when the user aborts the batch.
func NewModel(title string, cancel context.CancelFunc, s *styles.Styles, keys *keymap.KeyMap) Model {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if keys == nil {
		keys = keymap.DefaultKeyMap()
	}
	theme := s.Theme()
	return Model{
		title:  title,
		cancel: cancel,
		styles: s,
		keys:   keys,
		help:   help.New(),
		bar: progress.New(
			progress.WithGradient(string(theme.Primary), string(theme.Secondary)),
			progress.WithWidth(40),
		),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = min(msg.Width-4, maxBarWidth)
		m.help.Width = msg.Width

	case tea.KeyMsg:
		return m.handleKey(msg)

	case messages.BatchProgressed:
		m.progress = msg.Progress

	case messages.BatchFinished:
		m.finished = &msg
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()
	if m.finished != nil {
		if keymap.Matches(k, m.keys.Quit) || keymap.Matches(k, m.keys.Cancel) {
			return m, tea.Quit
		}
		return m, nil
	}
	if keymap.Matches(k, m.keys.Cancel) && !m.cancelling {
		m.cancelling = true
		if m.cancel != nil {
			m.cancel()
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render(m.title))
	b.WriteString("\n\n")

	if m.finished != nil {
		b.WriteString(m.summary())
		b.WriteString("\n")
		return b.String()
	}

	state := "starting"
	if m.progress.State != "" {
		state = m.progress.State.String()
	}
	b.WriteString(m.styles.Label.Render("state") + state + "\n")
	b.WriteString(m.bar.ViewAs(m.progress.Fraction()) + "\n")

	counts := fmt.Sprintf("rendered %d of %d", m.progress.Rendered, m.progress.Total)
	if m.progress.Failed > 0 {
		counts += m.styles.Warning.Render(fmt.Sprintf("  failed %d", m.progress.Failed))
	}
	b.WriteString(m.styles.Muted.Render(counts) + "\n\n")

	if m.cancelling {
		b.WriteString(m.styles.Warning.Render("Cancelling...") + "\n")
	} else {
		b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()) + "\n")
	}
	return b.String()
}

func (m Model) summary() string {
	f := m.finished
	if !f.Succeeded() {
		msg := "batch produced no archive"
		if f.Err != nil {
			msg = f.Err.Error()
		}
		return m.styles.Error.Render("Failed: " + msg)
	}

	r := f.Result
	lines := []string{
		m.styles.Label.Render("batch") + r.BatchID,
		m.styles.Label.Render("archive") + r.ArchivePath,
		m.styles.Label.Render("letters") + fmt.Sprintf("%d", len(r.Entries)),
	}
	if r.DeliveriesQueued > 0 {
		lines = append(lines, m.styles.Label.Render("emails")+fmt.Sprintf("%d queued", r.DeliveriesQueued))
	}
	if r.PublishedURL != "" {
		lines = append(lines, m.styles.Label.Render("shared")+r.PublishedURL)
	}

	status := m.styles.Success.Render("Done")
	if f.Partial() {
		status = m.styles.Warning.Render(fmt.Sprintf("Done with %d skipped", len(r.Failures)))
		for _, failure := range r.Failures {
			lines = append(lines, m.styles.Muted.Render(
				fmt.Sprintf("  record %d: %s", failure.Record, failure.Error)))
		}
	}
	return status + "\n" + m.styles.Box.Render(strings.Join(lines, "\n"))
}

// Finished returns the final message, or nil while the batch runs.
func (m Model) Finished() *messages.BatchFinished {
	return m.finished
}
