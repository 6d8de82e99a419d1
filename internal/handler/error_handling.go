package handler

import (
	"errors"
	"net/http"

	"storypoint-showdown/internal/game"
	"storypoint-showdown/shared/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// handleGameError отвечает ошибкой и прикладывает актуальный снимок сессии,
// чтобы клиент мог перерисоваться без отдельного запроса.
func handleGameError(c *gin.Context, snap game.Snapshot, err error) {
	statusCode, errResp := mapServiceError(err)
	errResp.Details = snap
	_ = c.Error(err)
	c.AbortWithStatusJSON(statusCode, errResp)
}

func handleServiceError(c *gin.Context, err error) {
	statusCode, errResp := mapServiceError(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(statusCode, errResp)
}

func mapServiceError(err error) (int, models.ErrorResponse) {
	switch {
	case errors.Is(err, game.ErrNoEstimateSelected):
		return http.StatusUnprocessableEntity, models.ErrorResponse{Code: models.ErrCodeNoEstimate, Message: game.MsgSelectEstimate}
	case errors.Is(err, game.ErrInvalidEstimate):
		return http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeInvalidEstimate, Message: err.Error()}
	case errors.Is(err, game.ErrInvalidTransition):
		return http.StatusConflict, models.ErrorResponse{Code: models.ErrCodeInvalidTransition, Message: err.Error()}
	default:
		zap.L().Error("Unhandled internal error in handleServiceError", zap.Error(err))
		return http.StatusInternalServerError, models.ErrorResponse{Code: models.ErrCodeInternal, Message: "An unexpected internal error occurred"}
	}
}
