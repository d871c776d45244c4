package command

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Mode селектор команды, первое поле входящей строки
type Mode int

const (
	ModeActuate Mode = 0
	ModeReset   Mode = 1
)

func (m Mode) String() string {
	switch m {
	case ModeActuate:
		return "actuate"
	case ModeReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Command одна декодированная команда агента: Reset или Actuate
type Command interface {
	Mode() Mode
}

// Reset телепортирует ракету и обнуляет скорости
type Reset struct {
	Position mgl32.Vec3 `json:"position"`
	PitchDeg float32    `json:"pitch_deg"`
	YawDeg   float32    `json:"yaw_deg"`
}

func (Reset) Mode() Mode { return ModeReset }

// Actuate управляющее воздействие на один тик
type Actuate struct {
	Pitch  float32 `json:"pitch"`
	Yaw    float32 `json:"yaw"`
	Thrust float32 `json:"thrust"`
	Roll   float32 `json:"roll"`
}

func (Actuate) Mode() Mode { return ModeActuate }
