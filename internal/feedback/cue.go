package feedback

import "storypoint-showdown/shared/constants"

// Broadcaster рассылает событие всем подключенным клиентам.
type Broadcaster interface {
	Broadcast(event string, payload interface{})
}

// TonePayload - команда браузеру сыграть сигнал исхода.
type TonePayload struct {
	Correct bool   `json:"correct"`
	Kind    string `json:"kind"` // "melody" или "noise"
}

// SpeakPayload - команда браузеру озвучить фразу.
type SpeakPayload struct {
	Text      string  `json:"text"`
	VoiceHint string  `json:"voiceHint"`
	Rate      float64 `json:"rate"`
	Pitch     float64 `json:"pitch"`
}

// CueChannel превращает сигналы в websocket-события; звук и речь воспроизводит браузер.
type CueChannel struct {
	b Broadcaster
}

func NewCueChannel(b Broadcaster) *CueChannel {
	return &CueChannel{b: b}
}

func (c *CueChannel) PlayOutcomeTone(correct bool) {
	kind := "noise"
	if correct {
		kind = "melody"
	}
	c.b.Broadcast(constants.WSEventOutcomeTone, TonePayload{Correct: correct, Kind: kind})
}

func (c *CueChannel) Speak(text string) {
	c.b.Broadcast(constants.WSEventSpeak, SpeakPayload{
		Text:      text,
		VoiceHint: "female",
		Rate:      1,
		Pitch:     1.2,
	})
}
