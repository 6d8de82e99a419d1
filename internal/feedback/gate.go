package feedback

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Gate пропускает сигналы только после первого действия пользователя.
// Аудиоподсистемам обычно нужен жест пользователя, прежде чем они начнут звучать,
// поэтому инициализация ленивая: она выполняется один раз при Unlock.
// Если инициализация не удалась, шлюз остается закрытым, игра продолжается без звука.
type Gate struct {
	inner  Channel
	init   func() error
	once   sync.Once
	ready  atomic.Bool
	logger *zap.Logger
}

// NewGate создает закрытый шлюз. init может быть nil.
func NewGate(inner Channel, init func() error, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{
		inner:  inner,
		init:   init,
		logger: logger.Named("FeedbackGate"),
	}
}

// Unlock вызывается слоем представления при первом клике или нажатии клавиши.
// Повторные вызовы ничего не делают.
func (g *Gate) Unlock() {
	g.once.Do(func() {
		if g.init != nil {
			if err := g.init(); err != nil {
				g.logger.Warn("Feedback initialization failed, continuing without audio", zap.Error(err))
				return
			}
		}
		g.ready.Store(true)
		g.logger.Info("Feedback channel unlocked")
	})
}

// Ready сообщает, открыт ли шлюз.
func (g *Gate) Ready() bool {
	return g.ready.Load()
}

func (g *Gate) PlayOutcomeTone(correct bool) {
	if !g.ready.Load() {
		g.logger.Debug("Outcome tone dropped: feedback is locked")
		return
	}
	g.inner.PlayOutcomeTone(correct)
}

func (g *Gate) Speak(text string) {
	if !g.ready.Load() {
		g.logger.Debug("Speech dropped: feedback is locked")
		return
	}
	g.inner.Speak(text)
}
