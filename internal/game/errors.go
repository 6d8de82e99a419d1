package game

import "errors"

var (
	// ErrNoEstimateSelected - попытка отправить оценку, ничего не выбрав.
	// Это не сбой: сессия показывает временное сообщение и остается в прежнем состоянии.
	ErrNoEstimateSelected = errors.New("no estimate selected")
	// ErrInvalidEstimate - значение вне шкалы оценок.
	ErrInvalidEstimate = errors.New("estimate is not on the scale")
	// ErrInvalidTransition - операция недопустима в текущем состоянии сессии.
	ErrInvalidTransition = errors.New("operation is not allowed in the current state")
)
