package models

// Коды ошибок API.
const (
	ErrCodeBadRequest        = 40001
	ErrCodeInvalidEstimate   = 40002
	ErrCodeInvalidTransition = 40901
	ErrCodeNoEstimate        = 42201
	ErrCodeTooManyRequests   = 42901
	ErrCodeInternal          = 50001
)

// ErrorResponse - стандартная структура для ответа об ошибке в формате JSON.
// Details несет дополнительные данные, например актуальное состояние сессии.
type ErrorResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}
