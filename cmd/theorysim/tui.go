package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/napolitain/theory-sim/internal/logmath"
	"github.com/napolitain/theory-sim/internal/pubtable"
)

const (
	barWidth   = 40
	recentRows = 6
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	barStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("204"))
)

type progressMsg pubtable.Progress

type buildDoneMsg struct {
	stats pubtable.BuildStats
	err   error
}

type buildModel struct {
	theory string
	grid   float64
	cancel context.CancelFunc

	startsDone, startsTotal int
	endsDone, endsTotal     int
	start                   uint32
	recent                  []string

	done  bool
	stats pubtable.BuildStats
	err   error
}

func (m buildModel) Init() tea.Cmd { return nil }

func (m buildModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.cancel()
		}
	case progressMsg:
		p := pubtable.Progress(msg)
		if p.Best != nil {
			m.startsDone, m.startsTotal = p.StartsDone, p.StartsTotal
			line := fmt.Sprintf("%s -> %s  %s",
				logmath.Format(float64(p.Start)/m.grid),
				logmath.Format(float64(p.Best.Next)/m.grid),
				logmath.FormatDuration(p.Best.T))
			m.recent = append([]string{line}, m.recent...)
			if len(m.recent) > recentRows {
				m.recent = m.recent[:recentRows]
			}
			break
		}
		if p.Start != m.start {
			m.start, m.endsDone = p.Start, 0
		}
		// sends from concurrent ends may arrive out of order
		m.endsDone, m.endsTotal = max(m.endsDone, p.EndsDone), p.EndsTotal
	case buildDoneMsg:
		m.done, m.stats, m.err = true, msg.stats, msg.err
		return m, tea.Quit
	}
	return m, nil
}

func bar(done, total int) string {
	if total <= 0 {
		return dimStyle.Render(strings.Repeat("░", barWidth))
	}
	filled := min(barWidth*done/total, barWidth)
	return barStyle.Render(strings.Repeat("█", filled)) + dimStyle.Render(strings.Repeat("░", barWidth-filled))
}

func (m buildModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Building "+m.theory) + "\n\n")
	fmt.Fprintf(&b, "starts %s %d/%d\n", bar(m.startsDone, m.startsTotal), m.startsDone, m.startsTotal)
	fmt.Fprintf(&b, "ends   %s %d/%d  at %s\n\n", bar(m.endsDone, m.endsTotal), m.endsDone, m.endsTotal,
		logmath.Format(float64(m.start)/m.grid))
	for _, line := range m.recent {
		b.WriteString("  " + line + "\n")
	}
	if m.err != nil {
		b.WriteString("\n" + errStyle.Render(m.err.Error()) + "\n")
	}
	if !m.done {
		b.WriteString(dimStyle.Render("\nq to stop after the current start\n"))
	}
	return b.String()
}

// runBuildTUI runs the build on its own goroutine and renders its progress
// until it finishes or the user stops it
func runBuildTUI(ctx context.Context, b *pubtable.Builder, table pubtable.Table) (pubtable.BuildStats, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(buildModel{
		theory: b.Theory.Name,
		grid:   b.Config.Grid,
		cancel: cancel,
	})
	b.Progress = func(pr pubtable.Progress) { p.Send(progressMsg(pr)) }

	result := make(chan buildDoneMsg, 1)
	go func() {
		stats, err := b.Build(ctx, table)
		msg := buildDoneMsg{stats: stats, err: err}
		result <- msg
		p.Send(msg)
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		res := <-result
		return res.stats, errors.Join(fmt.Errorf("progress view: %w", err), res.err)
	}
	res := <-result
	return res.stats, res.err
}
