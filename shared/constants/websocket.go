package constants

// События, которые сервер отправляет клиентам по websocket.
const (
	WSEventSessionSnapshot = "session_snapshot"
	WSEventOutcomeTone     = "outcome_tone"
	WSEventSpeak           = "speak"
)
