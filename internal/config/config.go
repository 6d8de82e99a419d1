package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит конфигурацию веб-сервера игры
type Config struct {
	// Настройки сервера
	Port        string `envconfig:"SHOWDOWN_PORT" default:"8080"`
	Env         string `envconfig:"ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"json"`

	// Колода: пусто - встроенная колода из десяти историй
	DeckFile string `envconfig:"SHOWDOWN_DECK_FILE"`

	// Время жизни временного сообщения и анимации раскрытия
	MessageTTL time.Duration `envconfig:"SHOWDOWN_MESSAGE_TTL" default:"3s"`
	RevealTTL  time.Duration `envconfig:"SHOWDOWN_REVEAL_TTL" default:"2s"`

	// CORS и ограничение частоты запросов к /api
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	RateLimitPerSecond uint   `envconfig:"SHOWDOWN_RATE_LIMIT_RPS" default:"20"`

	// Воспроизведение звука и речи на машине, где запущен сервер
	HostAudio     bool   `envconfig:"SHOWDOWN_HOST_AUDIO" default:"false"`
	PlayerCommand string `envconfig:"SHOWDOWN_PLAYER_COMMAND"`
	SpeechCommand string `envconfig:"SHOWDOWN_SPEECH_COMMAND"`
	SpeechVoice   string `envconfig:"SHOWDOWN_SPEECH_VOICE"`

	ShutdownTimeout time.Duration `envconfig:"SHOWDOWN_SHUTDOWN_TIMEOUT" default:"5s"`
}

// LoadConfig загружает конфигурацию из переменных окружения.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.MessageTTL <= 0 {
		return fmt.Errorf("SHOWDOWN_MESSAGE_TTL must be positive, got %s", c.MessageTTL)
	}
	if c.RevealTTL <= 0 {
		return fmt.Errorf("SHOWDOWN_REVEAL_TTL must be positive, got %s", c.RevealTTL)
	}
	if c.RateLimitPerSecond == 0 {
		return fmt.Errorf("SHOWDOWN_RATE_LIMIT_RPS must be positive")
	}
	return nil
}

// GetAllowedOrigins возвращает список разрешенных Origin. "*" разрешает любой.
func (c *Config) GetAllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// IsProduction сообщает, запущен ли сервер в production-окружении.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}
