package game

import (
	"fmt"
	"sync"
	"time"

	"storypoint-showdown/internal/deck"

	"go.uber.org/zap"
)

const (
	// MsgSelectEstimate показывается, если игрок отправил оценку, ничего не выбрав.
	MsgSelectEstimate = "Please select an estimate!"

	PhraseCorrect   = "Fantastic! You got it!"
	PhraseIncorrect = "Oops! It's wrong!"

	DefaultMessageTTL = 3 * time.Second
	DefaultRevealTTL  = 2 * time.Second
)

// Feedback - побочный канал обратной связи (звук и речь).
// Вызывается без ожидания результата, его сбои не влияют на игру.
type Feedback interface {
	PlayOutcomeTone(correct bool)
	Speak(text string)
}

// Config содержит настройки контроллера. Нулевые значения заменяются значениями по умолчанию.
type Config struct {
	MessageTTL time.Duration
	RevealTTL  time.Duration
	Scheduler  Scheduler
}

// Controller владеет единственной сессией и меняет ее только через
// SelectEstimate, SubmitEstimate, Advance и Reset.
// Операции сериализуются мьютексом, отложенные сбросы флагов берут тот же мьютекс.
type Controller struct {
	mu      sync.Mutex
	deck    *deck.Deck
	session Session
	version uint64

	feedback   Feedback
	scheduler  Scheduler
	messageTTL time.Duration
	revealTTL  time.Duration

	messageTimer Timer
	messageGen   uint64
	revealTimer  Timer
	revealGen    uint64

	subsMu    sync.Mutex
	subs      []subscriber
	nextSubID int

	logger *zap.Logger
}

// NewController создает контроллер с новой сессией.
// feedback может быть nil - тогда обратная связь не воспроизводится.
func NewController(d *deck.Deck, feedback Feedback, cfg Config, logger *zap.Logger) *Controller {
	if cfg.MessageTTL <= 0 {
		cfg.MessageTTL = DefaultMessageTTL
	}
	if cfg.RevealTTL <= 0 {
		cfg.RevealTTL = DefaultRevealTTL
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = SystemScheduler()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Controller{
		deck:       d,
		session:    newSession(),
		feedback:   feedback,
		scheduler:  cfg.Scheduler,
		messageTTL: cfg.MessageTTL,
		revealTTL:  cfg.RevealTTL,
		logger:     logger.Named("GameController"),
	}
}

// Deck возвращает колоду, по которой идет игра.
func (c *Controller) Deck() *deck.Deck {
	return c.deck
}

// Snapshot возвращает текущий снимок сессии.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// SelectEstimate запоминает выбранное значение. Повторный вызов заменяет предыдущий выбор.
func (c *Controller) SelectEstimate(value int) (Snapshot, error) {
	c.mu.Lock()
	if st := c.session.State(); st != StateEstimating {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, fmt.Errorf("select estimate in state %s: %w", st, ErrInvalidTransition)
	}
	if !deck.InScale(value) {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, fmt.Errorf("select estimate %d: %w", value, ErrInvalidEstimate)
	}

	v := value
	c.session.SelectedEstimate = &v
	snap := c.commitLocked()
	c.mu.Unlock()

	c.logger.Debug("Estimate selected", zap.Int("value", value), zap.Int("storyIndex", snap.CurrentIndex))
	c.notify(snap)
	return snap, nil
}

// SubmitSelected отправляет текущий выбор (или его отсутствие).
func (c *Controller) SubmitSelected() (Snapshot, error) {
	c.mu.Lock()
	var choice *int
	if c.session.SelectedEstimate != nil {
		v := *c.session.SelectedEstimate
		choice = &v
	}
	return c.submitLocked(choice)
}

// SubmitEstimate фиксирует оценку для текущей истории.
// nil означает "ничего не выбрано": выставляется временное сообщение, остальное не меняется,
// возвращается ErrNoEstimateSelected.
func (c *Controller) SubmitEstimate(choice *int) (Snapshot, error) {
	c.mu.Lock()
	return c.submitLocked(choice)
}

// submitLocked вызывается под c.mu и освобождает его до уведомления слушателей.
func (c *Controller) submitLocked(choice *int) (Snapshot, error) {
	if st := c.session.State(); st != StateEstimating {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, fmt.Errorf("submit estimate in state %s: %w", st, ErrInvalidTransition)
	}

	if choice == nil {
		c.session.TransientMessage = MsgSelectEstimate
		c.restartMessageTimerLocked()
		snap := c.commitLocked()
		c.mu.Unlock()

		validationPromptsTotal.Inc()
		c.logger.Debug("Submit without estimate", zap.Int("storyIndex", snap.CurrentIndex))
		c.notify(snap)
		return snap, ErrNoEstimateSelected
	}

	value := *choice
	if !deck.InScale(value) {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, fmt.Errorf("submit estimate %d: %w", value, ErrInvalidEstimate)
	}

	story := c.deck.Story(c.session.CurrentIndex)
	correct := value == story.ActualPoints

	c.session.SelectedEstimate = &value
	c.session.UserEstimates = append(c.session.UserEstimates, value)
	c.session.HasSubmitted = true
	c.session.LastSubmissionCorrect = correct
	c.session.Revealing = true
	c.restartRevealTimerLocked()
	snap := c.commitLocked()
	c.mu.Unlock()

	outcome := "incorrect"
	if correct {
		outcome = "correct"
	}
	submissionsTotal.WithLabelValues(outcome).Inc()
	c.logger.Info("Estimate submitted",
		zap.Int("storyID", story.ID),
		zap.Int("estimate", value),
		zap.Int("actual", story.ActualPoints),
		zap.Bool("correct", correct),
	)

	c.emitFeedback(correct)
	c.notify(snap)
	return snap, nil
}

// Advance переходит к следующей истории или завершает игру на последней.
func (c *Controller) Advance() (Snapshot, error) {
	c.mu.Lock()
	if st := c.session.State(); st != StateRevealed {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, fmt.Errorf("advance in state %s: %w", st, ErrInvalidTransition)
	}

	c.stopRevealTimerLocked()
	c.session.Revealing = false

	completed := false
	if c.session.CurrentIndex < c.deck.Len()-1 {
		c.session.CurrentIndex++
		c.session.SelectedEstimate = nil
		c.session.HasSubmitted = false
	} else {
		c.session.Completed = true
		completed = true
	}
	snap := c.commitLocked()
	c.mu.Unlock()

	if completed {
		gamesCompletedTotal.Inc()
		c.logger.Info("Game completed",
			zap.Int("totalEstimated", snap.Summary.TotalEstimated),
			zap.Int("totalActual", snap.Summary.FinalTotalActual),
			zap.Float64("accuracy", snap.Summary.AccuracyPercent),
		)
	} else {
		c.logger.Debug("Advanced to next story", zap.Int("storyIndex", snap.CurrentIndex))
	}
	c.notify(snap)
	return snap, nil
}

// Reset возвращает сессию в начальное состояние. Допустим из любого состояния.
func (c *Controller) Reset() (Snapshot, error) {
	c.mu.Lock()
	c.stopMessageTimerLocked()
	c.stopRevealTimerLocked()
	c.session = newSession()
	snap := c.commitLocked()
	c.mu.Unlock()

	resetsTotal.Inc()
	c.logger.Info("Game reset", zap.String("sessionID", snap.SessionID))
	c.notify(snap)
	return snap, nil
}

// Subscribe регистрирует слушателя снимков. Слушатель вызывается после каждого
// изменения сессии вне мьютекса контроллера и не должен синхронно вызывать операции контроллера.
func (c *Controller) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	c.subsMu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subs = append(c.subs, subscriber{id: id, fn: fn})
	c.subsMu.Unlock()

	return func() {
		c.subsMu.Lock()
		defer c.subsMu.Unlock()
		for i, s := range c.subs {
			if s.id == id {
				c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
				return
			}
		}
	}
}

type subscriber struct {
	id int
	fn func(Snapshot)
}

// notify вызывает слушателей в порядке регистрации.
func (c *Controller) notify(snap Snapshot) {
	c.subsMu.Lock()
	subs := make([]subscriber, len(c.subs))
	copy(subs, c.subs)
	c.subsMu.Unlock()

	for _, s := range subs {
		s.fn(snap)
	}
}

func (c *Controller) emitFeedback(correct bool) {
	fb := c.feedback
	if fb == nil {
		return
	}
	phrase := PhraseIncorrect
	if correct {
		phrase = PhraseCorrect
	}
	// Сигнал и фраза звучат одновременно.
	c.goFeedback(func() { fb.PlayOutcomeTone(correct) })
	c.goFeedback(func() { fb.Speak(phrase) })
}

func (c *Controller) goFeedback(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Warn("Feedback side-channel panicked", zap.Any("panic", r))
			}
		}()
		fn()
	}()
}

// commitLocked фиксирует изменение: увеличивает версию и возвращает снимок.
func (c *Controller) commitLocked() Snapshot {
	c.version++
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return buildSnapshot(c.deck, c.session, c.version)
}

// restartMessageTimerLocked перезапускает таймер сообщения: новое сообщение
// не должно исчезнуть по таймеру предыдущего.
func (c *Controller) restartMessageTimerLocked() {
	c.stopMessageTimerLocked()
	gen := c.messageGen
	c.messageTimer = c.scheduler.AfterFunc(c.messageTTL, func() {
		c.clearMessage(gen)
	})
}

func (c *Controller) stopMessageTimerLocked() {
	if c.messageTimer != nil {
		c.messageTimer.Stop()
		c.messageTimer = nil
	}
	c.messageGen++
}

func (c *Controller) clearMessage(gen uint64) {
	c.mu.Lock()
	if gen != c.messageGen || c.session.TransientMessage == "" {
		c.mu.Unlock()
		return
	}
	c.session.TransientMessage = ""
	c.messageTimer = nil
	snap := c.commitLocked()
	c.mu.Unlock()

	c.notify(snap)
}

func (c *Controller) restartRevealTimerLocked() {
	c.stopRevealTimerLocked()
	gen := c.revealGen
	c.revealTimer = c.scheduler.AfterFunc(c.revealTTL, func() {
		c.clearReveal(gen)
	})
}

func (c *Controller) stopRevealTimerLocked() {
	if c.revealTimer != nil {
		c.revealTimer.Stop()
		c.revealTimer = nil
	}
	c.revealGen++
}

func (c *Controller) clearReveal(gen uint64) {
	c.mu.Lock()
	if gen != c.revealGen || !c.session.Revealing {
		c.mu.Unlock()
		return
	}
	c.session.Revealing = false
	c.revealTimer = nil
	snap := c.commitLocked()
	c.mu.Unlock()

	c.notify(snap)
}
