package command

import (
	"strconv"
	"strings"
)

// Format кодирует команду в строку протокола агента.
// Parse(Format(cmd)) возвращает исходную команду.
func Format(cmd Command) string {
	switch c := cmd.(type) {
	case Reset:
		return join(float32(ModeReset), c.Position[0], c.Position[1], c.Position[2], c.PitchDeg, c.YawDeg)
	case Actuate:
		return join(float32(ModeActuate), c.Pitch, c.Yaw, c.Thrust, c.Roll)
	default:
		return ""
	}
}

func join(values ...float32) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(float64(v), 'g', -1, 32)
	}
	return strings.Join(parts, ",")
}
