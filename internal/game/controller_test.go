package game

import (
	"sort"
	"sync"
	"testing"
	"time"

	"storypoint-showdown/internal/deck"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

// manualScheduler запускает отложенные функции только по команде теста.
type manualScheduler struct {
	mu      sync.Mutex
	pending []*manualTimer
}

type manualTimer struct {
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	wasActive := !t.stopped && !t.fired
	t.stopped = true
	return wasActive
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{d: d, f: f}
	s.pending = append(s.pending, t)
	return t
}

// fire выполняет все активные таймеры с длительностью d.
func (s *manualScheduler) fire(d time.Duration) int {
	s.mu.Lock()
	var due []*manualTimer
	rest := s.pending[:0]
	for _, t := range s.pending {
		if t.d == d && !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
			continue
		}
		rest = append(rest, t)
	}
	s.pending = rest
	s.mu.Unlock()

	for _, t := range due {
		t.f()
	}
	return len(due)
}

// fireAllStale выполняет и остановленные таймеры, имитируя гонку Stop с уже сработавшим таймером.
func (s *manualScheduler) fireAllStale() {
	s.mu.Lock()
	all := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, t := range all {
		t.f()
	}
}

type recordingFeedback struct {
	events chan string
}

func newRecordingFeedback() *recordingFeedback {
	return &recordingFeedback{events: make(chan string, 64)}
}

func (r *recordingFeedback) PlayOutcomeTone(correct bool) {
	if correct {
		r.events <- "tone:correct"
		return
	}
	r.events <- "tone:incorrect"
}

func (r *recordingFeedback) Speak(text string) {
	r.events <- "speak:" + text
}

// blockingFeedback держит сигнал до закрытия release.
type blockingFeedback struct {
	release chan struct{}
	spoken  chan string
}

func (b *blockingFeedback) PlayOutcomeTone(bool) { <-b.release }
func (b *blockingFeedback) Speak(text string)     { b.spoken <- text }

type panickingFeedback struct{}

func (panickingFeedback) PlayOutcomeTone(bool) { panic("no audio device") }
func (panickingFeedback) Speak(string)         {}

const (
	testMessageTTL = 3 * time.Second
	testRevealTTL  = 2 * time.Second
)

type ControllerSuite struct {
	suite.Suite
	sched    *manualScheduler
	feedback *recordingFeedback
	ctrl     *Controller
}

func (s *ControllerSuite) SetupTest() {
	s.sched = &manualScheduler{}
	s.feedback = newRecordingFeedback()
	s.ctrl = NewController(deck.Default(), s.feedback, Config{
		MessageTTL: testMessageTTL,
		RevealTTL:  testRevealTTL,
		Scheduler:  s.sched,
	}, zap.NewNop())
}

func intPtr(v int) *int { return &v }

func (s *ControllerSuite) submit(v int) Snapshot {
	snap, err := s.ctrl.SubmitEstimate(intPtr(v))
	s.Require().NoError(err)
	return snap
}

func (s *ControllerSuite) advance() Snapshot {
	snap, err := s.ctrl.Advance()
	s.Require().NoError(err)
	return snap
}

func (s *ControllerSuite) TestInitialSnapshot() {
	snap := s.ctrl.Snapshot()

	s.Equal(StateEstimating, snap.State)
	s.Equal(0, snap.CurrentIndex)
	s.Equal(1, snap.StoryNumber)
	s.Equal(10, snap.DeckLength)
	s.Equal([]int{1, 2, 3, 5, 8, 13, 20}, snap.Scale)
	s.Nil(snap.SelectedEstimate)
	s.Empty(snap.UserEstimates)
	s.False(snap.HasSubmitted)
	s.False(snap.Completed)
	s.Nil(snap.Summary)
	s.Require().NotNil(snap.CurrentStory)
	s.Equal(1, snap.CurrentStory.ID)
	s.Nil(snap.CurrentStory.Reveal, "answer must stay hidden before submission")
}

func (s *ControllerSuite) TestSelectEstimateKeepsLastValue() {
	for _, v := range []int{1, 13, 5} {
		_, err := s.ctrl.SelectEstimate(v)
		s.Require().NoError(err)
	}

	snap := s.ctrl.Snapshot()
	s.Require().NotNil(snap.SelectedEstimate)
	s.Equal(5, *snap.SelectedEstimate)
	s.Empty(snap.UserEstimates)
	s.False(snap.HasSubmitted)
}

func (s *ControllerSuite) TestSelectEstimateRejectsOffScale() {
	_, err := s.ctrl.SelectEstimate(4)
	s.ErrorIs(err, ErrInvalidEstimate)
	s.Nil(s.ctrl.Snapshot().SelectedEstimate)
}

func (s *ControllerSuite) TestSubmitWithoutEstimate() {
	before := s.ctrl.Snapshot()

	snap, err := s.ctrl.SubmitEstimate(nil)
	s.ErrorIs(err, ErrNoEstimateSelected)
	s.Equal(MsgSelectEstimate, snap.TransientMessage)
	s.Equal(before.CurrentIndex, snap.CurrentIndex)
	s.Equal(before.HasSubmitted, snap.HasSubmitted)
	s.Equal(before.UserEstimates, snap.UserEstimates)
	s.Equal(StateEstimating, snap.State)

	s.Equal(1, s.sched.fire(testMessageTTL))
	s.Empty(s.ctrl.Snapshot().TransientMessage)
}

func (s *ControllerSuite) TestSubmitSelectedWithoutChoice() {
	_, err := s.ctrl.SubmitSelected()
	s.ErrorIs(err, ErrNoEstimateSelected)
	s.Empty(s.ctrl.Snapshot().UserEstimates)
}

func (s *ControllerSuite) TestRepeatedValidationRestartsTimer() {
	_, err := s.ctrl.SubmitEstimate(nil)
	s.Require().ErrorIs(err, ErrNoEstimateSelected)
	_, err = s.ctrl.SubmitEstimate(nil)
	s.Require().ErrorIs(err, ErrNoEstimateSelected)

	// Первый таймер остановлен, его запоздалый вызов ничего не меняет.
	s.Equal(1, s.sched.fire(testMessageTTL))
	s.Empty(s.ctrl.Snapshot().TransientMessage)
}

func (s *ControllerSuite) TestStaleMessageTimerIsIgnored() {
	_, _ = s.ctrl.SubmitEstimate(nil)
	_, _ = s.ctrl.SubmitEstimate(nil)

	s.sched.mu.Lock()
	first := s.sched.pending[0]
	s.sched.mu.Unlock()

	// Старый таймер сработал уже после перезапуска: сообщение второго запроса остается.
	first.f()
	s.Equal(MsgSelectEstimate, s.ctrl.Snapshot().TransientMessage)
}

func (s *ControllerSuite) TestScenarioCorrectThenAdvance() {
	snap := s.submit(3)
	s.True(snap.LastSubmissionCorrect)
	s.Equal(StateRevealed, snap.State)
	s.True(snap.Revealing)
	s.Require().NotNil(snap.CurrentStory.Reveal)
	s.Equal(3, snap.CurrentStory.Reveal.ActualPoints)
	s.NotEmpty(snap.CurrentStory.Reveal.Reasoning.Effort)

	snap = s.advance()
	s.Equal(1, snap.CurrentIndex)
	s.Equal(StateEstimating, snap.State)
	s.Nil(snap.SelectedEstimate)
	s.False(snap.HasSubmitted)
	s.False(snap.Revealing)
}

func (s *ControllerSuite) TestScenarioIncorrect() {
	snap := s.submit(1)
	s.False(snap.LastSubmissionCorrect)
	s.Equal([]int{1}, snap.UserEstimates)
	s.Equal(1, snap.TotalEstimated)
	s.Equal(3, snap.TotalActualSoFar)
}

func (s *ControllerSuite) TestScenarioPerfectGame() {
	d := s.ctrl.Deck()
	for i := 0; i < d.Len(); i++ {
		s.submit(d.Story(i).ActualPoints)
		s.advance()
	}

	snap := s.ctrl.Snapshot()
	s.True(snap.Completed)
	s.Equal(StateCompleted, snap.State)
	s.Nil(snap.CurrentStory)
	s.Require().NotNil(snap.Summary)
	s.Equal(69, snap.Summary.TotalEstimated)
	s.Equal(69, snap.Summary.FinalTotalActual)
	s.Equal(0, snap.Summary.Difference)
	s.InDelta(100.0, snap.Summary.AccuracyPercent, 1e-9)
	s.Equal(10, snap.Summary.CorrectCount)
	s.Len(snap.Summary.Results, 10)
}

func (s *ControllerSuite) TestScenarioResetAfterCompletion() {
	for i := 0; i < s.ctrl.Deck().Len(); i++ {
		s.submit(20)
		s.advance()
	}
	completed := s.ctrl.Snapshot()
	s.Require().True(completed.Completed)
	s.InDelta(0.0, completed.Summary.AccuracyPercent, 1e-9, "accuracy is clamped at zero")

	snap, err := s.ctrl.Reset()
	s.Require().NoError(err)
	s.Equal(StateEstimating, snap.State)
	s.Equal(0, snap.CurrentIndex)
	s.Empty(snap.UserEstimates)
	s.Nil(snap.SelectedEstimate)
	s.False(snap.HasSubmitted)
	s.False(snap.Completed)
	s.Empty(snap.TransientMessage)
	s.NotEqual(completed.SessionID, snap.SessionID)
}

func (s *ControllerSuite) TestResetMatchesInitialState() {
	initial := s.ctrl.Snapshot()

	_, _ = s.ctrl.SelectEstimate(8)
	_, _ = s.ctrl.SubmitEstimate(nil)
	s.submit(8)
	s.advance()
	s.submit(2)

	snap, err := s.ctrl.Reset()
	s.Require().NoError(err)

	// Совпадает все, кроме идентификатора сессии и версии.
	initial.SessionID, snap.SessionID = "", ""
	initial.Version, snap.Version = 0, 0
	s.Equal(initial, snap)

	// Таймеры прошлой сессии ничего не трогают.
	s.sched.fireAllStale()
	after := s.ctrl.Snapshot()
	after.SessionID, after.Version = "", 0
	s.Equal(initial, after)
}

func (s *ControllerSuite) TestLastStoryCompletesInsteadOfIncrementing() {
	d := s.ctrl.Deck()
	for i := 0; i < d.Len()-1; i++ {
		s.submit(1)
		s.advance()
	}
	s.Equal(d.Len()-1, s.ctrl.Snapshot().CurrentIndex)

	s.submit(1)
	snap := s.advance()
	s.True(snap.Completed)
	s.Equal(d.Len()-1, snap.CurrentIndex)
	s.Len(snap.UserEstimates, d.Len())

	_, err := s.ctrl.Advance()
	s.ErrorIs(err, ErrInvalidTransition)
	_, err = s.ctrl.SubmitEstimate(intPtr(1))
	s.ErrorIs(err, ErrInvalidTransition)
	s.Len(s.ctrl.Snapshot().UserEstimates, d.Len())
}

func (s *ControllerSuite) TestEstimatesGrowByOnePerStory() {
	d := s.ctrl.Deck()
	for i := 0; i < d.Len(); i++ {
		snap := s.submit(deck.Scale[i%len(deck.Scale)])
		s.Len(snap.UserEstimates, i+1)
		s.advance()
	}
	s.Len(s.ctrl.Snapshot().UserEstimates, d.Len())
}

func (s *ControllerSuite) TestInvalidTransitions() {
	_, err := s.ctrl.Advance()
	s.ErrorIs(err, ErrInvalidTransition, "advance before submit")

	s.submit(5)
	_, err = s.ctrl.SubmitEstimate(intPtr(5))
	s.ErrorIs(err, ErrInvalidTransition, "double submit")
	_, err = s.ctrl.SelectEstimate(3)
	s.ErrorIs(err, ErrInvalidTransition, "select after submit")
	s.Equal([]int{5}, s.ctrl.Snapshot().UserEstimates)

	_, err = s.ctrl.SubmitEstimate(intPtr(7))
	s.ErrorIs(err, ErrInvalidTransition)
}

func (s *ControllerSuite) TestSubmitRejectsOffScale() {
	_, err := s.ctrl.SubmitEstimate(intPtr(7))
	s.ErrorIs(err, ErrInvalidEstimate)
	s.Empty(s.ctrl.Snapshot().UserEstimates)
}

func (s *ControllerSuite) TestRevealFlagClearsAfterDelay() {
	snap := s.submit(3)
	s.True(snap.Revealing)

	s.Equal(1, s.sched.fire(testRevealTTL))
	snap = s.ctrl.Snapshot()
	s.False(snap.Revealing)
	s.Equal(StateRevealed, snap.State, "reveal flag is cosmetic")
}

func (s *ControllerSuite) TestAdvanceStopsRevealTimer() {
	s.submit(3)
	s.advance()
	s.submit(2)

	// Таймер первой истории остановлен и не гасит анимацию второй.
	s.Equal(1, s.sched.fire(testRevealTTL))
	s.False(s.ctrl.Snapshot().Revealing)
}

func (s *ControllerSuite) TestFeedbackOnSubmit() {
	s.submit(3)
	s.ElementsMatch([]string{"tone:correct", "speak:" + PhraseCorrect},
		[]string{s.nextFeedback(), s.nextFeedback()})

	s.advance()
	s.submit(20)
	s.ElementsMatch([]string{"tone:incorrect", "speak:" + PhraseIncorrect},
		[]string{s.nextFeedback(), s.nextFeedback()})
}

func (s *ControllerSuite) nextFeedback() string {
	select {
	case ev := <-s.feedback.events:
		return ev
	case <-time.After(time.Second):
		s.FailNow("feedback was not emitted")
		return ""
	}
}

func (s *ControllerSuite) TestSubscribersReceiveSnapshotsInOrder() {
	var mu sync.Mutex
	var versions []uint64
	var order []string

	unsubA := s.ctrl.Subscribe(func(snap Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		versions = append(versions, snap.Version)
		order = append(order, "a")
	})
	s.ctrl.Subscribe(func(Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, "b")
	})

	_, _ = s.ctrl.SelectEstimate(3)
	s.submit(3)
	unsubA()
	s.advance()

	mu.Lock()
	defer mu.Unlock()
	s.Equal([]string{"a", "b", "a", "b", "b"}, order)
	s.Require().Len(versions, 2)
	s.Less(versions[0], versions[1])
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func TestCorrectnessPredicateForEveryStory(t *testing.T) {
	d := deck.Default()
	for i := 0; i < d.Len(); i++ {
		story := d.Story(i)
		for _, v := range deck.Scale {
			ctrl := NewController(d, nil, Config{Scheduler: &manualScheduler{}}, nil)
			for j := 0; j < i; j++ {
				_, err := ctrl.SubmitEstimate(intPtr(1))
				require.NoError(t, err)
				_, err = ctrl.Advance()
				require.NoError(t, err)
			}

			snap, err := ctrl.SubmitEstimate(intPtr(v))
			require.NoError(t, err)
			assert.Equal(t, v == story.ActualPoints, snap.LastSubmissionCorrect,
				"story %d, estimate %d, actual %d", story.ID, v, story.ActualPoints)
		}
	}
}

func TestFeedbackPanicDoesNotAffectGame(t *testing.T) {
	ctrl := NewController(deck.Default(), panickingFeedback{}, Config{Scheduler: &manualScheduler{}}, zap.NewNop())

	snap, err := ctrl.SubmitEstimate(intPtr(3))
	require.NoError(t, err)
	assert.True(t, snap.LastSubmissionCorrect)

	_, err = ctrl.Advance()
	require.NoError(t, err)
	assert.Equal(t, 1, ctrl.Snapshot().CurrentIndex)
}

func TestSpeechDoesNotWaitForTone(t *testing.T) {
	fb := &blockingFeedback{release: make(chan struct{}), spoken: make(chan string, 1)}
	defer close(fb.release)
	ctrl := NewController(deck.Default(), fb, Config{Scheduler: &manualScheduler{}}, zap.NewNop())

	_, err := ctrl.SubmitEstimate(intPtr(3))
	require.NoError(t, err)

	select {
	case text := <-fb.spoken:
		assert.Equal(t, PhraseCorrect, text)
	case <-time.After(time.Second):
		t.Fatal("speech waited for the outcome tone")
	}
}

// Отправка выбранной оценки и сброс из разных запросов: оценка может попасть
// только в сессию, где она была выбрана.
func TestSubmitSelectedConcurrentWithReset(t *testing.T) {
	ctrl := NewController(deck.Default(), nil, Config{Scheduler: &manualScheduler{}}, zap.NewNop())

	var mu sync.Mutex
	var snaps []Snapshot
	ctrl.Subscribe(func(snap Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		snaps = append(snaps, snap)
	})

	for i := 0; i < 200; i++ {
		_, err := ctrl.Reset()
		require.NoError(t, err)
		_, err = ctrl.SelectEstimate(3)
		require.NoError(t, err)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = ctrl.SubmitSelected()
		}()
		go func() {
			defer wg.Done()
			_, _ = ctrl.Reset()
		}()
		wg.Wait()
	}

	mu.Lock()
	defer mu.Unlock()
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Version < snaps[j].Version })

	selected := map[string]bool{}
	for _, snap := range snaps {
		if len(snap.UserEstimates) > 0 {
			require.True(t, selected[snap.SessionID],
				"estimate recorded in session %s without a selection", snap.SessionID)
		}
		if snap.SelectedEstimate != nil {
			selected[snap.SessionID] = true
		}
	}
}

func TestAccuracyPercent(t *testing.T) {
	assert.InDelta(t, 100.0, AccuracyPercent(0, 69), 1e-9)
	assert.InDelta(t, 50.0, AccuracyPercent(10, 20), 1e-9)
	assert.InDelta(t, 0.0, AccuracyPercent(200, 69), 1e-9)
	assert.InDelta(t, 0.0, AccuracyPercent(0, 0), 1e-9)
	assert.Equal(t, 5, Difference(64, 69))
	assert.Equal(t, 5, Difference(74, 69))
}
