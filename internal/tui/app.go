// Package tui is the interactive trigger surface for bulk organization: a
// single-action view that starts a run, shows progress, and reports the
// outcome.
package tui

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nikbrunner/tidymark/internal/organize"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99")).
			Bold(true).
			MarginBottom(1)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))
)

// OrganizeFunc runs the bulk organization and returns its report.
type OrganizeFunc func() (organize.Report, error)

// doneMsg carries the outcome of a finished run back into the update loop.
type doneMsg struct {
	report organize.Report
	err    error
}

// App is the organize trigger TUI.
type App struct {
	organize OrganizeFunc
	spin     spinner.Model

	running bool
	done    bool
	err     error
	report  organize.Report
	copied  bool
}

// New creates the App around the given organize function.
func New(organizeFn OrganizeFunc) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return App{organize: organizeFn, spin: sp}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc, tea.KeyCtrlC:
			return a, tea.Quit

		case tea.KeyEnter:
			return a.start()
		}

		if msg.Type == tea.KeyRunes {
			switch string(msg.Runes) {
			case "q":
				return a, tea.Quit
			case "o":
				return a.start()
			case "y":
				if a.done && a.err == nil {
					if clipboard.WriteAll(a.summary()) == nil {
						a.copied = true
					}
				}
				return a, nil
			}
		}

	case spinner.TickMsg:
		if !a.running {
			return a, nil
		}
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd

	case doneMsg:
		a.running = false
		a.done = true
		a.report = msg.report
		a.err = msg.err
		return a, nil
	}

	return a, nil
}

// start kicks off a run unless one is already in flight.
func (a App) start() (tea.Model, tea.Cmd) {
	if a.running {
		return a, nil
	}
	a.running = true
	a.done = false
	a.copied = false

	run := func() tea.Msg {
		report, err := a.organize()
		return doneMsg{report: report, err: err}
	}
	return a, tea.Batch(a.spin.Tick, run)
}

// View implements tea.Model.
func (a App) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("tidymark"))
	b.WriteString("\n\n")

	switch {
	case a.running:
		b.WriteString(a.spin.View())
		b.WriteString(normalStyle.Render(" Organizing your bookmarks..."))
	case a.done && a.err != nil:
		b.WriteString(errorStyle.Render("An error occurred while organizing bookmarks."))
		b.WriteString("\n")
		b.WriteString(hintStyle.Render(a.err.Error()))
	case a.done:
		b.WriteString(successStyle.Render("Bookmarks have been organized successfully!"))
		b.WriteString("\n")
		b.WriteString(normalStyle.Render(a.summary()))
		if a.copied {
			b.WriteString(hintStyle.Render("  (copied)"))
		}
	default:
		b.WriteString(normalStyle.Render("Press Enter to organize all bookmarks into topic folders."))
	}

	b.WriteString("\n\n")
	b.WriteString(hintStyle.Render("Enter/o: organize  y: copy result  q/Esc: quit"))
	return b.String()
}

// summary renders the completion line shown (and copied) after a run.
func (a App) summary() string {
	return fmt.Sprintf("Organized %d of %d bookmarks in %.1fs",
		a.report.Processed, a.report.Total, a.report.Duration.Seconds())
}
