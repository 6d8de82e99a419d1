package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storypoint-showdown/internal/config"
	"storypoint-showdown/internal/deck"
	"storypoint-showdown/internal/feedback"
	"storypoint-showdown/internal/game"
	"storypoint-showdown/internal/handler"
	"storypoint-showdown/internal/hub"
	"storypoint-showdown/internal/web"
	"storypoint-showdown/shared/constants"
	sharedLogger "storypoint-showdown/shared/logger"
	sharedMiddleware "storypoint-showdown/shared/middleware"
	"storypoint-showdown/shared/models"

	rateli "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		// .env не обязателен
		fmt.Printf("Warning: could not load .env file: %v\n", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := sharedLogger.New(sharedLogger.Config{
		Level:    cfg.LogLevel,
		Encoding: cfg.LogEncoding,
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	d, err := deck.LoadFile(cfg.DeckFile)
	if err != nil {
		logger.Fatal("Failed to load deck", zap.String("path", cfg.DeckFile), zap.Error(err))
	}
	logger.Info("Deck loaded", zap.Int("stories", d.Len()), zap.Int("totalPoints", d.TotalPoints()))

	// Менеджер создается раньше контроллера: он же доставляет браузеру сигналы обратной связи.
	var ctrl *game.Controller
	manager := hub.NewManager(func() hub.Envelope {
		return hub.Envelope{Event: constants.WSEventSessionSnapshot, Payload: ctrl.Snapshot()}
	}, logger)

	gate := setupFeedback(cfg, manager, logger)

	ctrl = game.NewController(d, gate, game.Config{
		MessageTTL: cfg.MessageTTL,
		RevealTTL:  cfg.RevealTTL,
	}, logger)
	ctrl.Subscribe(func(snap game.Snapshot) {
		manager.Broadcast(constants.WSEventSessionSnapshot, snap)
	})

	router, err := setupRouter(cfg, ctrl, gate, manager, logger)
	if err != nil {
		logger.Fatal("Failed to set up router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP Server listen error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Закрываем websocket-клиентов до остановки HTTP сервера: Shutdown не ждет hijacked соединения.
	manager.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP Server forced to shutdown", zap.Error(err))
	}
	logger.Info("Server exiting")
}

// setupFeedback собирает канал обратной связи: события для браузера и, по желанию, звук на хосте.
func setupFeedback(cfg *config.Config, b feedback.Broadcaster, logger *zap.Logger) *feedback.Gate {
	channels := feedback.Multi{feedback.Safe(feedback.NewCueChannel(b), logger)}

	var initFn func() error
	if cfg.HostAudio {
		hostCfg := feedback.DefaultHostConfig()
		if cfg.PlayerCommand != "" {
			hostCfg.PlayerCommand = cfg.PlayerCommand
		}
		if cfg.SpeechCommand != "" {
			hostCfg.SpeechCommand = cfg.SpeechCommand
		}
		if cfg.SpeechVoice != "" {
			hostCfg.Voice = cfg.SpeechVoice
		}
		host := feedback.NewHostChannel(hostCfg, nil, logger)
		channels = append(channels, feedback.Safe(host, logger))

		// Недоступный звук хоста не должен отключать сигналы в браузере.
		initFn = func() error {
			if err := host.Init(); err != nil {
				logger.Warn("Host audio unavailable, continuing with browser cues only", zap.Error(err))
			}
			return nil
		}
	}
	return feedback.NewGate(channels, initFn, logger)
}

func setupRouter(cfg *config.Config, ctrl *game.Controller, gate *feedback.Gate, manager *hub.Manager, logger *zap.Logger) (*gin.Engine, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(sharedMiddleware.GinZapLogger(logger))
	router.Use(gin.Recovery())

	p := ginprometheus.NewPrometheus("gin")
	p.Use(router)

	corsConfig := cors.DefaultConfig()
	allowedOrigins := cfg.GetAllowedOrigins()
	if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = allowedOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "HEAD", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", sharedMiddleware.RequestIDHeader}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	tmpl, err := web.Templates()
	if err != nil {
		return nil, err
	}
	router.SetHTMLTemplate(tmpl)
	router.StaticFS("/static", http.FS(web.Static()))

	router.GET("/health", handler.Health)
	router.HEAD("/health", handler.Health)

	rateLimitStore := rateli.InMemoryStore(&rateli.InMemoryOptions{
		Rate:  time.Second,
		Limit: cfg.RateLimitPerSecond,
	})
	rateLimitMiddleware := rateli.RateLimiter(rateLimitStore, &rateli.Options{
		ErrorHandler: func(c *gin.Context, info rateli.Info) {
			logger.Warn("Rate limit exceeded",
				zap.String("clientIP", c.ClientIP()),
				zap.Time("resetTime", info.ResetTime),
				zap.String("path", c.Request.URL.Path),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
				Code:    models.ErrCodeTooManyRequests,
				Message: "Too many requests. Try again in " + time.Until(info.ResetTime).String(),
			})
		},
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	})

	wsHandler := hub.NewHandler(manager, allowedOrigins, logger)
	gameHandler := handler.NewGameHandler(ctrl, gate, wsHandler.ServeWS, logger)
	gameHandler.RegisterRoutes(router, rateLimitMiddleware)

	return router, nil
}
