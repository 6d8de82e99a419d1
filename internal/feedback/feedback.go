package feedback

import "go.uber.org/zap"

// Channel - побочный канал обратной связи: короткий сигнал исхода и озвучка фразы.
// Реализации не возвращают ошибок: сбои логируются и проглатываются.
type Channel interface {
	PlayOutcomeTone(correct bool)
	Speak(text string)
}

// Nop ничего не воспроизводит.
type Nop struct{}

func (Nop) PlayOutcomeTone(bool) {}
func (Nop) Speak(string)         {}

// Multi рассылает каждый сигнал всем каналам по порядку.
type Multi []Channel

func (m Multi) PlayOutcomeTone(correct bool) {
	for _, ch := range m {
		ch.PlayOutcomeTone(correct)
	}
}

func (m Multi) Speak(text string) {
	for _, ch := range m {
		ch.Speak(text)
	}
}

// safeChannel перехватывает панику внутреннего канала.
type safeChannel struct {
	inner  Channel
	logger *zap.Logger
}

// Safe оборачивает канал так, что его паника логируется и не выходит наружу.
func Safe(inner Channel, logger *zap.Logger) Channel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &safeChannel{inner: inner, logger: logger.Named("SafeFeedback")}
}

func (s *safeChannel) PlayOutcomeTone(correct bool) {
	defer s.recover("PlayOutcomeTone")
	s.inner.PlayOutcomeTone(correct)
}

func (s *safeChannel) Speak(text string) {
	defer s.recover("Speak")
	s.inner.Speak(text)
}

func (s *safeChannel) recover(op string) {
	if r := recover(); r != nil {
		s.logger.Warn("Feedback channel panicked", zap.String("op", op), zap.Any("panic", r))
	}
}
