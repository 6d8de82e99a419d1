package game

import "time"

// Timer - отменяемый отложенный вызов.
type Timer interface {
	Stop() bool
}

// Scheduler откладывает вызов функции. В тестах подменяется ручными часами.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemScheduler struct{}

func (systemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemScheduler возвращает планировщик на основе time.AfterFunc.
func SystemScheduler() Scheduler {
	return systemScheduler{}
}
