package command

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/repeale/fp-go/option"
)

const (
	resetFields   = 6
	actuateFields = 5
)

// Parse декодирует строку агента в команду.
// Разбор никогда не падает: любая некорректная строка дает None.
func Parse(raw string) opt.Option[Command] {
	data := strings.TrimSpace(strings.Map(func(r rune) rune {
		if r == '[' || r == ']' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw))
	if data == "" {
		return opt.None[Command]()
	}

	parts := strings.Split(data, ",")
	if len(parts) < 1 {
		return opt.None[Command]()
	}

	modeRaw, err := strconv.ParseFloat(parts[0], 32)
	if err != nil || math.IsNaN(modeRaw) || math.IsInf(modeRaw, 0) {
		return opt.None[Command]()
	}

	switch math.Trunc(modeRaw) {
	case float64(ModeReset):
		if len(parts) < resetFields {
			return opt.None[Command]()
		}
		return opt.Some[Command](Reset{
			Position: mgl32.Vec3{
				ParseLenient(parts[1]),
				ParseLenient(parts[2]),
				ParseLenient(parts[3]),
			},
			PitchDeg: ParseLenient(parts[4]),
			YawDeg:   ParseLenient(parts[5]),
		})

	case float64(ModeActuate):
		if len(parts) < actuateFields {
			return opt.None[Command]()
		}
		return opt.Some[Command](Actuate{
			Pitch:  ParseLenient(parts[1]),
			Yaw:    ParseLenient(parts[2]),
			Thrust: ParseLenient(parts[3]),
			Roll:   ParseLenient(parts[4]),
		})
	}

	return opt.None[Command]()
}

// ParseLenient разбирает число с точкой в качестве разделителя.
// Поле, которое не удалось разобрать, дает 0.
func ParseLenient(value string) float32 {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 32)
	if err != nil {
		return 0
	}
	return float32(v)
}
