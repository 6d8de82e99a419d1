package mocks

import (
	"github.com/stretchr/testify/mock"
)

// Channel - мок канала обратной связи.
type Channel struct {
	mock.Mock
}

func (m *Channel) PlayOutcomeTone(correct bool) {
	m.Called(correct)
}

func (m *Channel) Speak(text string) {
	m.Called(text)
}

// Broadcaster - мок рассылки событий через websocket.
type Broadcaster struct {
	mock.Mock
}

func (m *Broadcaster) Broadcast(event string, payload interface{}) {
	m.Called(event, payload)
}

// CommandRunner - мок запуска внешних команд.
type CommandRunner struct {
	mock.Mock
}

func (m *CommandRunner) LookPath(file string) (string, error) {
	args := m.Called(file)
	return args.String(0), args.Error(1)
}

func (m *CommandRunner) Run(name string, arg ...string) error {
	args := m.Called(name, arg)
	return args.Error(0)
}
