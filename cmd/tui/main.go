package main

import (
	"flag"
	"fmt"
	"os"

	"storypoint-showdown/internal/config"
	"storypoint-showdown/internal/deck"
	"storypoint-showdown/internal/feedback"
	"storypoint-showdown/internal/game"
	"storypoint-showdown/internal/tui"
	sharedLogger "storypoint-showdown/shared/logger"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", config.DefaultTUIConfigPath, "path to the YAML config file")
	flag.Parse()

	cfg, err := config.LoadTUIConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Терминал занят интерфейсом, лог пишется в файл.
	logger, err := sharedLogger.New(sharedLogger.Config{
		Level:      cfg.Log.Level,
		Encoding:   "json",
		OutputPath: cfg.Log.File,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	d, err := deck.LoadFile(cfg.DeckFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load deck: %v\n", err)
		os.Exit(1)
	}

	var channel feedback.Channel = feedback.Nop{}
	var initFn func() error
	if !cfg.Audio.Muted {
		hostCfg := feedback.DefaultHostConfig()
		if cfg.Audio.PlayerCommand != "" {
			hostCfg.PlayerCommand = cfg.Audio.PlayerCommand
		}
		if cfg.Audio.SpeechCommand != "" {
			hostCfg.SpeechCommand = cfg.Audio.SpeechCommand
		}
		if cfg.Audio.Voice != "" {
			hostCfg.Voice = cfg.Audio.Voice
		}
		host := feedback.NewHostChannel(hostCfg, nil, logger)
		channel = feedback.Safe(host, logger)
		initFn = host.Init
	}
	gate := feedback.NewGate(channel, initFn, logger)

	ctrl := game.NewController(d, gate, game.Config{
		MessageTTL: cfg.MessageTTL,
		RevealTTL:  cfg.RevealTTL,
	}, logger)

	m := tui.NewModel(ctrl, gate, logger)
	defer m.Close()

	logger.Info("Terminal game started", zap.Int("stories", d.Len()))
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		logger.Error("Terminal program failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
