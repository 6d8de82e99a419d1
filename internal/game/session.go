package game

import (
	"storypoint-showdown/internal/deck"

	"github.com/google/uuid"
)

// State - состояние сессии.
type State string

const (
	StateEstimating State = "estimating" // Оценка для текущей истории еще не отправлена
	StateRevealed   State = "revealed"   // Оценка отправлена, показано обоснование
	StateCompleted  State = "completed"  // Колода пройдена
)

// Session - изменяемый прогресс одного прохождения колоды.
type Session struct {
	ID                    uuid.UUID
	CurrentIndex          int
	SelectedEstimate      *int
	HasSubmitted          bool
	UserEstimates         []int
	Completed             bool
	LastSubmissionCorrect bool
	TransientMessage      string
	Revealing             bool // Косметический флаг анимации, на логику игры не влияет
}

func newSession() Session {
	return Session{
		ID:            uuid.New(),
		UserEstimates: []int{},
	}
}

// State вычисляет состояние из полей сессии.
func (s Session) State() State {
	switch {
	case s.Completed:
		return StateCompleted
	case s.HasSubmitted:
		return StateRevealed
	default:
		return StateEstimating
	}
}

func (s Session) clone() Session {
	out := s
	out.UserEstimates = append([]int{}, s.UserEstimates...)
	if s.SelectedEstimate != nil {
		v := *s.SelectedEstimate
		out.SelectedEstimate = &v
	}
	return out
}

// StoryView - то, что видит игрок о текущей истории.
// Ответ и обоснование присутствуют только после отправки оценки.
type StoryView struct {
	ID     int     `json:"id"`
	Text   string  `json:"text"`
	Reveal *Reveal `json:"reveal,omitempty"`
}

// Reveal - правильный ответ и его обоснование.
type Reveal struct {
	ActualPoints int            `json:"actualPoints"`
	Reasoning    deck.Reasoning `json:"reasoning"`
	Estimate     int            `json:"estimate"`
	Correct      bool           `json:"correct"`
}

// StoryResult - итог по одной истории для финальной таблицы.
type StoryResult struct {
	StoryID  int    `json:"storyId"`
	Text     string `json:"text"`
	Estimate int    `json:"estimate"`
	Actual   int    `json:"actual"`
	Correct  bool   `json:"correct"`
}

// Summary - итог игры, доступен только в состоянии Completed.
type Summary struct {
	TotalEstimated   int           `json:"totalEstimated"`
	FinalTotalActual int           `json:"finalTotalActual"`
	Difference       int           `json:"difference"`
	AccuracyPercent  float64       `json:"accuracyPercent"`
	CorrectCount     int           `json:"correctCount"`
	Results          []StoryResult `json:"results"`
}

// Snapshot - копия сессии и производные значения для слоя представления.
// Version растет с каждым изменением, подписчики отбрасывают устаревшие снимки.
type Snapshot struct {
	Version               uint64     `json:"version"`
	SessionID             string     `json:"sessionId"`
	State                 State      `json:"state"`
	CurrentIndex          int        `json:"currentIndex"`
	StoryNumber           int        `json:"storyNumber"`
	DeckLength            int        `json:"deckLength"`
	Scale                 []int      `json:"scale"`
	CurrentStory          *StoryView `json:"currentStory,omitempty"`
	SelectedEstimate      *int       `json:"selectedEstimate"`
	HasSubmitted          bool       `json:"hasSubmitted"`
	UserEstimates         []int      `json:"userEstimates"`
	Completed             bool       `json:"completed"`
	LastSubmissionCorrect bool       `json:"lastSubmissionCorrect"`
	TransientMessage      string     `json:"transientMessage,omitempty"`
	Revealing             bool       `json:"revealing"`
	TotalEstimated        int        `json:"totalEstimated"`
	TotalActualSoFar      int        `json:"totalActualSoFar"`
	Summary               *Summary   `json:"summary,omitempty"`
}

// buildSnapshot проецирует сессию на снимок. Сессия не изменяется.
func buildSnapshot(d *deck.Deck, s Session, version uint64) Snapshot {
	s = s.clone()
	snap := Snapshot{
		Version:               version,
		SessionID:             s.ID.String(),
		State:                 s.State(),
		CurrentIndex:          s.CurrentIndex,
		StoryNumber:           s.CurrentIndex + 1,
		DeckLength:            d.Len(),
		Scale:                 deck.ScaleValues(),
		SelectedEstimate:      s.SelectedEstimate,
		HasSubmitted:          s.HasSubmitted,
		UserEstimates:         s.UserEstimates,
		Completed:             s.Completed,
		LastSubmissionCorrect: s.LastSubmissionCorrect,
		TransientMessage:      s.TransientMessage,
		Revealing:             s.Revealing,
		TotalEstimated:        TotalEstimated(s.UserEstimates),
		TotalActualSoFar:      d.PointsUpTo(len(s.UserEstimates)),
	}

	if s.Completed {
		snap.Summary = buildSummary(d, s.UserEstimates)
		return snap
	}

	story := d.Story(s.CurrentIndex)
	view := &StoryView{ID: story.ID, Text: story.Text}
	if s.HasSubmitted {
		estimate := s.UserEstimates[len(s.UserEstimates)-1]
		view.Reveal = &Reveal{
			ActualPoints: story.ActualPoints,
			Reasoning:    story.Reasoning,
			Estimate:     estimate,
			Correct:      s.LastSubmissionCorrect,
		}
	}
	snap.CurrentStory = view
	return snap
}

func buildSummary(d *deck.Deck, estimates []int) *Summary {
	total := TotalEstimated(estimates)
	finalActual := d.TotalPoints()
	diff := Difference(total, finalActual)

	sum := &Summary{
		TotalEstimated:   total,
		FinalTotalActual: finalActual,
		Difference:       diff,
		AccuracyPercent:  AccuracyPercent(diff, finalActual),
		Results:          make([]StoryResult, 0, len(estimates)),
	}
	for i, est := range estimates {
		story := d.Story(i)
		r := StoryResult{
			StoryID:  story.ID,
			Text:     story.Text,
			Estimate: est,
			Actual:   story.ActualPoints,
			Correct:  est == story.ActualPoints,
		}
		if r.Correct {
			sum.CorrectCount++
		}
		sum.Results = append(sum.Results, r)
	}
	return sum
}

// TotalEstimated - сумма оценок игрока.
func TotalEstimated(estimates []int) int {
	total := 0
	for _, e := range estimates {
		total += e
	}
	return total
}

// Difference - абсолютная разница между суммой оценок и суммой очков колоды.
func Difference(totalEstimated, totalActual int) int {
	d := totalEstimated - totalActual
	if d < 0 {
		return -d
	}
	return d
}

// AccuracyPercent = max(0, 100 - 100*difference/totalActual).
func AccuracyPercent(difference, totalActual int) float64 {
	if totalActual <= 0 {
		return 0
	}
	acc := 100 - 100*float64(difference)/float64(totalActual)
	if acc < 0 {
		return 0
	}
	return acc
}
