package actuation

import (
	"github.com/go-gl/mathgl/mgl32"

	"rocket-lander/backend/internal/core/domain/command"
	"rocket-lander/backend/internal/core/domain/entity"
)

const (
	// DefaultRollGainFactor доля мощности RCS, отдаваемая на крен
	DefaultRollGainFactor = 0.1
)

// Config статические параметры двигателей
type Config struct {
	// MainThrustPower - сила главного двигателя при тяге 1
	MainThrustPower float32 `yaml:"main_thrust_power"`

	// RCSPower - момент RCS по тангажу и рысканью на единицу команды
	RCSPower float32 `yaml:"rcs_power"`

	// RollGainFactor - множитель RCS для крена, отдельно от тангажа и рысканья
	RollGainFactor float32 `yaml:"roll_gain_factor"`

	// EnginePointOffset - точка приложения тяги в локальных координатах
	EnginePointOffset mgl32.Vec3 `yaml:"engine_point_offset"`
}

// DefaultConfig возвращает параметры по умолчанию
func DefaultConfig() Config {
	return Config{
		MainThrustPower: 150,
		RCSPower:        10,
		RollGainFactor:  DefaultRollGainFactor,
	}
}

// Result силы, которые нужно передать физическому движку за тик
type Result struct {
	Force      mgl32.Vec3 `json:"force"`
	ForcePoint mgl32.Vec3 `json:"force_point"`
	Torque     mgl32.Vec3 `json:"torque"`
	// Intensity - тяга после ограничения, в [0,1]
	Intensity float32 `json:"intensity"`
}

// Model переводит команды Actuate в силу и момент
type Model struct {
	config Config
}

// NewModel создает модель с заданной конфигурацией
func NewModel(config Config) *Model {
	return &Model{config: config}
}

// Config возвращает текущие параметры модели
func (m *Model) Config() Config {
	return m.config
}

// Apply вычисляет силу тяги и суммарный момент RCS для текущей ориентации тела.
// Значения команды не проверяются, кроме ограничения тяги.
func (m *Model) Apply(cmd command.Actuate, body entity.BodyState) Result {
	thrust := mgl32.Clamp(cmd.Thrust, 0, 1)

	up := body.Up()
	force := up.Mul(thrust * m.config.MainThrustPower)

	pitchTorque := body.Right().Mul(cmd.Pitch * m.config.RCSPower)
	yawTorque := body.Forward().Mul(cmd.Yaw * m.config.RCSPower)
	rollTorque := up.Mul(cmd.Roll * (m.config.RCSPower * m.config.RollGainFactor))

	return Result{
		Force:      force,
		ForcePoint: body.TransformPoint(m.config.EnginePointOffset),
		Torque:     pitchTorque.Add(yawTorque).Add(rollTorque),
		Intensity:  thrust,
	}
}
