package feedback

import (
	"bytes"
	"encoding/binary"
	"math"
	"math/rand/v2"
)

// SampleRate - частота дискретизации синтезируемых сигналов.
const SampleRate = 22050

// FailureNoiseDuration - длительность шумового всплеска при ошибке, в секундах.
const FailureNoiseDuration = 0.3

// Note - нота мелодии: частота (Гц), начало и длительность (секунды).
type Note struct {
	Freq     float64
	Start    float64
	Duration float64
}

// SuccessMelody - восходящая последовательность C4-E4-G4-C5.
var SuccessMelody = []Note{
	{Freq: 261.63, Start: 0.0, Duration: 0.2},
	{Freq: 329.63, Start: 0.1, Duration: 0.2},
	{Freq: 392.00, Start: 0.2, Duration: 0.2},
	{Freq: 523.25, Start: 0.3, Duration: 0.4},
}

// RenderMelody синтезирует ноты в моно-сэмплы в диапазоне [-1, 1].
func RenderMelody(notes []Note) []float64 {
	end := 0.0
	for _, n := range notes {
		if e := n.Start + n.Duration; e > end {
			end = e
		}
	}
	out := make([]float64, int(math.Ceil(end*SampleRate)))

	for _, n := range notes {
		first := int(n.Start * SampleRate)
		count := int(n.Duration * SampleRate)
		for i := 0; i < count && first+i < len(out); i++ {
			t := float64(i) / SampleRate
			out[first+i] += math.Sin(2*math.Pi*n.Freq*t) * envelope(t, n.Duration)
		}
	}
	normalize(out, 0.8)
	return out
}

// envelope - короткая атака и экспоненциальное затухание.
func envelope(t, duration float64) float64 {
	const attack = 0.01
	if t < attack {
		return t / attack
	}
	return math.Exp(-3 * (t - attack) / duration)
}

// RenderBrownNoise синтезирует коричневый шум заданной длительности.
func RenderBrownNoise(duration float64, seed uint64) []float64 {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([]float64, int(duration*SampleRate))

	last := 0.0
	for i := range out {
		white := r.Float64()*2 - 1
		last = (last + 0.02*white) / 1.02
		out[i] = clamp(last * 3.5)
	}

	fade := SampleRate / 100
	for i := 0; i < fade && i < len(out); i++ {
		k := float64(i) / float64(fade)
		out[i] *= k
		out[len(out)-1-i] *= k
	}
	return out
}

// SuccessWAV - сигнал верного ответа в формате WAV.
func SuccessWAV() []byte {
	return EncodeWAV(RenderMelody(SuccessMelody))
}

// FailureWAV - сигнал ошибки в формате WAV.
func FailureWAV(seed uint64) []byte {
	return EncodeWAV(RenderBrownNoise(FailureNoiseDuration, seed))
}

// EncodeWAV кодирует сэмплы как 16-битный PCM моно.
func EncodeWAV(samples []float64) []byte {
	const (
		channels      = 1
		bitsPerSample = 16
		headerSize    = 44
	)
	dataSize := len(samples) * channels * bitsPerSample / 8

	buf := bytes.NewBuffer(make([]byte, 0, headerSize+dataSize))
	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(buf, binary.LittleEndian, uint32(SampleRate))
	_ = binary.Write(buf, binary.LittleEndian, uint32(SampleRate*channels*bitsPerSample/8))
	_ = binary.Write(buf, binary.LittleEndian, uint16(channels*bitsPerSample/8))
	_ = binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, uint32(dataSize))
	for _, s := range samples {
		_ = binary.Write(buf, binary.LittleEndian, int16(clamp(s)*math.MaxInt16))
	}
	return buf.Bytes()
}

func normalize(samples []float64, peak float64) {
	maxAbs := 0.0
	for _, s := range samples {
		if a := math.Abs(s); a > maxAbs {
			maxAbs = a
		}
	}
	if maxAbs == 0 {
		return
	}
	k := peak / maxAbs
	for i := range samples {
		samples[i] *= k
	}
}

func clamp(v float64) float64 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	default:
		return v
	}
}
