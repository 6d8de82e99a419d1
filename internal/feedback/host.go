package feedback

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrNoAudioCommands - на хосте не найдено ни проигрывателя, ни синтезатора речи.
var ErrNoAudioCommands = errors.New("no audio player or speech command available")

// CommandRunner запускает внешние команды. Подменяется в тестах.
type CommandRunner interface {
	LookPath(file string) (string, error)
	Run(name string, arg ...string) error
}

type execRunner struct {
	timeout time.Duration
}

// NewExecRunner возвращает CommandRunner на основе os/exec с таймаутом на команду.
func NewExecRunner(timeout time.Duration) CommandRunner {
	return execRunner{timeout: timeout}
}

func (r execRunner) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (r execRunner) Run(name string, arg ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	return exec.CommandContext(ctx, name, arg...).Run()
}

// HostConfig - команды для воспроизведения на машине игрока.
type HostConfig struct {
	PlayerCommand string // afplay, aplay, paplay
	SpeechCommand string // say, espeak
	Voice         string // Голос для синтезатора речи, пусто - голос по умолчанию
	TempDir       string // Каталог для временных WAV-файлов, пусто - системный
}

// DefaultHostConfig подбирает команды под операционную систему.
func DefaultHostConfig() HostConfig {
	if runtime.GOOS == "darwin" {
		return HostConfig{PlayerCommand: "afplay", SpeechCommand: "say", Voice: "Samantha"}
	}
	return HostConfig{PlayerCommand: "aplay", SpeechCommand: "espeak", Voice: "en+f3"}
}

// HostChannel воспроизводит сигналы и речь внешними командами хоста.
type HostChannel struct {
	cfg    HostConfig
	runner CommandRunner
	logger *zap.Logger

	player string
	speech string
	seed   atomic.Uint64
}

// NewHostChannel создает канал. Команды ищутся только в Init.
func NewHostChannel(cfg HostConfig, runner CommandRunner, logger *zap.Logger) *HostChannel {
	if logger == nil {
		logger = zap.NewNop()
	}
	if runner == nil {
		runner = NewExecRunner(10 * time.Second)
	}
	return &HostChannel{
		cfg:    cfg,
		runner: runner,
		logger: logger.Named("HostFeedback"),
	}
}

// Init ищет команды в PATH. Отсутствие одной из них не ошибка,
// отсутствие обеих - ErrNoAudioCommands.
func (h *HostChannel) Init() error {
	if h.cfg.PlayerCommand != "" {
		path, err := h.runner.LookPath(h.cfg.PlayerCommand)
		if err != nil {
			h.logger.Warn("Audio player not found", zap.String("command", h.cfg.PlayerCommand), zap.Error(err))
		} else {
			h.player = path
		}
	}
	if h.cfg.SpeechCommand != "" {
		path, err := h.runner.LookPath(h.cfg.SpeechCommand)
		if err != nil {
			h.logger.Warn("Speech command not found", zap.String("command", h.cfg.SpeechCommand), zap.Error(err))
		} else {
			h.speech = path
		}
	}
	if h.player == "" && h.speech == "" {
		return ErrNoAudioCommands
	}
	h.logger.Info("Host feedback initialized", zap.String("player", h.player), zap.String("speech", h.speech))
	return nil
}

func (h *HostChannel) PlayOutcomeTone(correct bool) {
	if h.player == "" {
		return
	}
	var data []byte
	if correct {
		data = SuccessWAV()
	} else {
		data = FailureWAV(h.seed.Add(1))
	}

	path, err := writeTemp(h.cfg.TempDir, data)
	if err != nil {
		h.logger.Warn("Failed to write tone file", zap.Error(err))
		return
	}
	defer os.Remove(path)

	if err := h.runner.Run(h.player, path); err != nil {
		h.logger.Warn("Failed to play outcome tone", zap.Bool("correct", correct), zap.Error(err))
	}
}

func (h *HostChannel) Speak(text string) {
	if h.speech == "" || text == "" {
		return
	}
	args := make([]string, 0, 3)
	if h.cfg.Voice != "" {
		args = append(args, "-v", h.cfg.Voice)
	}
	args = append(args, text)
	if err := h.runner.Run(h.speech, args...); err != nil {
		h.logger.Warn("Failed to speak feedback", zap.String("text", text), zap.Error(err))
	}
}

func writeTemp(dir string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, "showdown-tone-*.wav")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return f.Name(), nil
}
