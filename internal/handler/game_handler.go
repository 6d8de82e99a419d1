package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"storypoint-showdown/internal/game"
	"storypoint-showdown/shared/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GameController - операции над игровой сессией, которые нужны HTTP-слою.
type GameController interface {
	Snapshot() game.Snapshot
	SelectEstimate(value int) (game.Snapshot, error)
	SubmitSelected() (game.Snapshot, error)
	SubmitEstimate(choice *int) (game.Snapshot, error)
	Advance() (game.Snapshot, error)
	Reset() (game.Snapshot, error)
}

// FeedbackGate открывает звук и речь после первого жеста игрока.
type FeedbackGate interface {
	Unlock()
	Ready() bool
}

// GameHandler обслуживает страницу игры и JSON API.
type GameHandler struct {
	game   GameController
	gate   FeedbackGate
	ws     http.HandlerFunc
	logger *zap.Logger
}

// NewGameHandler создает обработчик. ws может быть nil - тогда /ws не регистрируется.
func NewGameHandler(ctrl GameController, gate FeedbackGate, ws http.HandlerFunc, logger *zap.Logger) *GameHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GameHandler{
		game:   ctrl,
		gate:   gate,
		ws:     ws,
		logger: logger.Named("GameHandler"),
	}
}

// RegisterRoutes регистрирует маршруты. apiMiddleware применяются только к /api.
func (h *GameHandler) RegisterRoutes(router gin.IRouter, apiMiddleware ...gin.HandlerFunc) {
	router.GET("/", h.index)
	if h.ws != nil {
		router.GET("/ws", gin.WrapF(h.ws))
	}

	api := router.Group("/api", apiMiddleware...)
	{
		api.GET("/session", h.getSession)
		api.POST("/estimate/select", h.selectEstimate)
		api.POST("/estimate/submit", h.submitEstimate)
		api.POST("/advance", h.advance)
		api.POST("/reset", h.reset)
		api.POST("/interaction", h.interaction)
	}
}

func (h *GameHandler) index(c *gin.Context) {
	snap := h.game.Snapshot()
	initial, err := json.Marshal(snap)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Snapshot":        snap,
		"InitialSnapshot": string(initial),
	})
}

// @Summary Текущее состояние сессии
// @Tags game
// @Produce json
// @Success 200 {object} game.Snapshot
// @Router /api/session [get]
func (h *GameHandler) getSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.game.Snapshot())
}

// @Summary Выбор оценки
// @Tags game
// @Accept json
// @Produce json
// @Param request body SelectEstimateRequest true "Значение на шкале"
// @Success 200 {object} game.Snapshot
// @Failure 400 {object} models.ErrorResponse "Значение вне шкалы"
// @Failure 409 {object} models.ErrorResponse "Оценка уже отправлена"
// @Router /api/estimate/select [post]
func (h *GameHandler) selectEstimate(c *gin.Context) {
	var req SelectEstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Invalid select request", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    models.ErrCodeBadRequest,
			Message: "value must be one of 1, 2, 3, 5, 8, 13, 20",
		})
		return
	}

	snap, err := h.game.SelectEstimate(*req.Value)
	if err != nil {
		handleGameError(c, snap, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// @Summary Отправка оценки
// @Description Без тела отправляет текущий выбор
// @Tags game
// @Accept json
// @Produce json
// @Param request body SubmitEstimateRequest false "Значение на шкале"
// @Success 200 {object} game.Snapshot
// @Failure 400 {object} models.ErrorResponse "Значение вне шкалы"
// @Failure 409 {object} models.ErrorResponse "Недопустимый переход"
// @Failure 422 {object} models.ErrorResponse "Оценка не выбрана"
// @Router /api/estimate/submit [post]
func (h *GameHandler) submitEstimate(c *gin.Context) {
	var req SubmitEstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Debug("Invalid submit request", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    models.ErrCodeBadRequest,
			Message: "malformed request body",
		})
		return
	}

	var (
		snap game.Snapshot
		err  error
	)
	if req.Value != nil {
		snap, err = h.game.SubmitEstimate(req.Value)
	} else {
		snap, err = h.game.SubmitSelected()
	}
	if err != nil {
		handleGameError(c, snap, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// @Summary Следующая история или итоги
// @Tags game
// @Produce json
// @Success 200 {object} game.Snapshot
// @Failure 409 {object} models.ErrorResponse "Оценка еще не отправлена"
// @Router /api/advance [post]
func (h *GameHandler) advance(c *gin.Context) {
	snap, err := h.game.Advance()
	if err != nil {
		handleGameError(c, snap, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// @Summary Новая игра
// @Tags game
// @Produce json
// @Success 200 {object} game.Snapshot
// @Router /api/reset [post]
func (h *GameHandler) reset(c *gin.Context) {
	snap, err := h.game.Reset()
	if err != nil {
		handleGameError(c, snap, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// @Summary Первый жест игрока
// @Description Включает звук и речь
// @Tags game
// @Produce json
// @Success 200 {object} InteractionResponse
// @Router /api/interaction [post]
func (h *GameHandler) interaction(c *gin.Context) {
	if h.gate == nil {
		c.JSON(http.StatusOK, InteractionResponse{FeedbackReady: false})
		return
	}
	h.gate.Unlock()
	c.JSON(http.StatusOK, InteractionResponse{FeedbackReady: h.gate.Ready()})
}

// Health отвечает на проверку живости.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
