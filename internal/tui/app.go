package tui

import (
	"errors"
	"fmt"
	"strings"

	"storypoint-showdown/internal/game"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

// Game - операции контроллера, которые использует терминальный интерфейс.
type Game interface {
	Snapshot() game.Snapshot
	SelectEstimate(value int) (game.Snapshot, error)
	SubmitSelected() (game.Snapshot, error)
	Advance() (game.Snapshot, error)
	Reset() (game.Snapshot, error)
	Subscribe(fn func(game.Snapshot)) (unsubscribe func())
}

// Unlocker открывает обратную связь по первому нажатию клавиши.
type Unlocker interface {
	Unlock()
}

type snapshotMsg game.Snapshot

type Model struct {
	game    Game
	gate    Unlocker
	updates chan game.Snapshot
	unsub   func()

	snap     game.Snapshot
	help     help.Model
	width    int
	quitting bool
	logger   *zap.Logger
}

// NewModel подписывается на изменения сессии. Close снимает подписку.
func NewModel(g Game, gate Unlocker, logger *zap.Logger) *Model {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Model{
		game:    g,
		gate:    gate,
		updates: make(chan game.Snapshot, 1),
		snap:    g.Snapshot(),
		help:    help.New(),
		width:   80,
		logger:  logger.Named("TUI"),
	}
	m.unsub = g.Subscribe(m.push)
	return m
}

// push оставляет в канале только последний снимок: каждый снимок несет полное состояние.
func (m *Model) push(snap game.Snapshot) {
	for {
		select {
		case m.updates <- snap:
			return
		default:
		}
		select {
		case <-m.updates:
		default:
		}
	}
}

// Close отписывает модель от контроллера.
func (m *Model) Close() {
	if m.unsub != nil {
		m.unsub()
		m.unsub = nil
	}
}

func (m *Model) waitForSnapshot() tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(<-m.updates)
	}
}

func (m *Model) Init() tea.Cmd {
	return m.waitForSnapshot()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case snapshotMsg:
		m.apply(game.Snapshot(msg))
		return m, m.waitForSnapshot()

	case tea.KeyMsg:
		if m.gate != nil {
			m.gate.Unlock()
		}
		return m.handleKey(msg)
	}
	return m, nil
}

// apply принимает только более новые снимки: таймеры и операции присылают их из разных горутин.
func (m *Model) apply(snap game.Snapshot) {
	if snap.Version < m.snap.Version {
		return
	}
	m.snap = snap
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.Quit) {
		m.quitting = true
		return m, tea.Quit
	}
	if key.Matches(msg, keys.Restart) {
		m.run(m.game.Reset)
		return m, nil
	}

	switch m.snap.State {
	case game.StateCompleted:
		if key.Matches(msg, keys.Submit) {
			m.run(m.game.Reset)
		}

	case game.StateRevealed:
		if key.Matches(msg, keys.Submit, keys.Next) {
			m.run(m.game.Advance)
		}

	case game.StateEstimating:
		switch {
		case key.Matches(msg, keys.Pick):
			idx := int(msg.String()[0] - '1')
			if idx < len(m.snap.Scale) {
				m.selectValue(m.snap.Scale[idx])
			}
		case key.Matches(msg, keys.Left):
			m.selectValue(m.snap.Scale[max(m.selectedIndex()-1, 0)])
		case key.Matches(msg, keys.Right):
			m.selectValue(m.snap.Scale[min(m.selectedIndex()+1, len(m.snap.Scale)-1)])
		case key.Matches(msg, keys.Submit):
			m.run(m.game.SubmitSelected)
		}
	}
	return m, nil
}

func (m *Model) selectedIndex() int {
	if m.snap.SelectedEstimate == nil {
		return -1
	}
	for i, v := range m.snap.Scale {
		if v == *m.snap.SelectedEstimate {
			return i
		}
	}
	return -1
}

func (m *Model) selectValue(v int) {
	m.run(func() (game.Snapshot, error) { return m.game.SelectEstimate(v) })
}

func (m *Model) run(op func() (game.Snapshot, error)) {
	snap, err := op()
	// Снимок возвращается и при ошибке: например, с сообщением о пропущенной оценке.
	m.apply(snap)
	if err != nil && !errors.Is(err, game.ErrNoEstimateSelected) {
		m.logger.Debug("Operation rejected", zap.Error(err))
	}
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	s := m.snap
	var b strings.Builder

	b.WriteString(titleStyle.Render("Story Point Showdown"))
	if s.Completed {
		b.WriteString(progressStyle.Render("Game over"))
	} else {
		b.WriteString(progressStyle.Render(fmt.Sprintf("Story %d of %d", s.StoryNumber, s.DeckLength)))
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf(" Your total: %d · Actual so far: %d", s.TotalEstimated, s.TotalActualSoFar)))
	b.WriteString("\n\n")

	if s.Completed && s.Summary != nil {
		b.WriteString(m.viewSummary(s.Summary))
	} else if s.CurrentStory != nil {
		b.WriteString(m.viewStory(s))
	}

	b.WriteString("\n")
	b.WriteString(statusBarStyle.Render(m.help.View(keys)))
	return b.String()
}

func (m *Model) viewStory(s game.Snapshot) string {
	var b strings.Builder
	width := max(m.width-4, 20)
	b.WriteString(storyStyle.Width(width).Render(s.CurrentStory.Text))
	b.WriteString("\n")

	cards := make([]string, 0, len(s.Scale))
	for _, v := range s.Scale {
		style := cardStyle
		if s.SelectedEstimate != nil && *s.SelectedEstimate == v {
			style = selectedCardStyle
		}
		cards = append(cards, style.Render(fmt.Sprint(v)))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	b.WriteString("\n")

	if s.TransientMessage != "" {
		b.WriteString(messageStyle.Render(s.TransientMessage))
		b.WriteString("\n")
	}

	if r := s.CurrentStory.Reveal; r != nil {
		if r.Correct {
			b.WriteString(correctStyle.Render(game.PhraseCorrect))
		} else {
			b.WriteString(incorrectStyle.Render(game.PhraseIncorrect))
		}
		b.WriteString(fmt.Sprintf("  You said %d, the answer is %d\n\n", r.Estimate, r.ActualPoints))
		for _, row := range [][2]string{
			{"Effort", r.Reasoning.Effort},
			{"Complexity", r.Reasoning.Complexity},
			{"Risk", r.Reasoning.Risk},
			{"Uncertainty", r.Reasoning.Uncertainty},
		} {
			b.WriteString(labelStyle.Render(row[0]))
			b.WriteString("\n")
			b.WriteString(lipgloss.NewStyle().Width(width).Render(row[1]))
			b.WriteString("\n")
		}
		next := "Press enter for the next story"
		if s.StoryNumber == s.DeckLength {
			next = "Press enter to see the results"
		}
		b.WriteString(dimStyle.Render(next))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) viewSummary(sum *game.Summary) string {
	var b strings.Builder
	b.WriteString(labelStyle.Render("Final results"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("You estimated %d points, the deck was worth %d.\n", sum.TotalEstimated, sum.FinalTotalActual))
	b.WriteString(fmt.Sprintf("Difference: %d · Accuracy: %.1f%% · Exact hits: %d\n\n", sum.Difference, sum.AccuracyPercent, sum.CorrectCount))

	for _, r := range sum.Results {
		mark := incorrectStyle.Render("✗")
		if r.Correct {
			mark = correctStyle.Render("✓")
		}
		text := resultColumnStyle.Render(truncate(r.Text, resultColumnWidth))
		b.WriteString(fmt.Sprintf("%s %2d  %s  you %2d  actual %2d\n", mark, r.StoryID, text, r.Estimate, r.Actual))
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press enter or r to play again"))
	b.WriteString("\n")
	return b.String()
}

const resultColumnWidth = 50

var resultColumnStyle = lipgloss.NewStyle().Width(resultColumnWidth)

// truncate укорачивает строку до width ячеек терминала, не разрывая руны.
func truncate(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+3 > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
