package handler

// SelectEstimateRequest - выбор значения на шкале.
type SelectEstimateRequest struct {
	Value *int `json:"value" binding:"required,oneof=1 2 3 5 8 13 20"`
}

// SubmitEstimateRequest - отправка оценки. Пустое тело или null отправляет текущий выбор.
type SubmitEstimateRequest struct {
	Value *int `json:"value"`
}

// InteractionResponse сообщает, включена ли обратная связь после первого жеста игрока.
type InteractionResponse struct {
	FeedbackReady bool `json:"feedbackReady"`
}
