package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultTUIConfigPath - файл настроек терминальной версии.
const DefaultTUIConfigPath = "showdown.yml"

// TUIConfig - настройки терминальной версии игры.
type TUIConfig struct {
	DeckFile   string        `yaml:"deck_file" env:"SHOWDOWN_DECK_FILE"`
	MessageTTL time.Duration `yaml:"message_ttl" env:"SHOWDOWN_MESSAGE_TTL" env-default:"3s"`
	RevealTTL  time.Duration `yaml:"reveal_ttl" env:"SHOWDOWN_REVEAL_TTL" env-default:"2s"`
	Log        TUILogConfig  `yaml:"log"`
	Audio      TUIAudio      `yaml:"audio"`
}

// TUILogConfig - лог пишется в файл, терминал занят интерфейсом.
type TUILogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	File  string `yaml:"file" env:"SHOWDOWN_LOG_FILE" env-default:"showdown.log"`
}

// TUIAudio - внешние команды для звука и речи. Пустые значения подбираются под ОС.
type TUIAudio struct {
	Muted         bool   `yaml:"muted" env:"SHOWDOWN_MUTED"`
	PlayerCommand string `yaml:"player_command" env:"SHOWDOWN_PLAYER_COMMAND"`
	SpeechCommand string `yaml:"speech_command" env:"SHOWDOWN_SPEECH_COMMAND"`
	Voice         string `yaml:"voice" env:"SHOWDOWN_SPEECH_VOICE"`
}

// LoadTUIConfig читает path, а если файла нет - только переменные окружения.
func LoadTUIConfig(path string) (*TUIConfig, error) {
	if path == "" {
		path = DefaultTUIConfigPath
	}

	var cfg TUIConfig
	err := cleanenv.ReadConfig(path, &cfg)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("ошибка чтения файла конфигурации '%s': %w", path, err)
		}
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("ошибка загрузки конфигурации: %w", err)
		}
	}

	if cfg.MessageTTL <= 0 || cfg.RevealTTL <= 0 {
		return nil, fmt.Errorf("message_ttl and reveal_ttl must be positive")
	}
	return &cfg, nil
}
