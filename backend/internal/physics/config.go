package physics

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// Interpolation режим сглаживания состояния между шагами
type Interpolation string

const (
	InterpolationNone        Interpolation = "none"
	InterpolationInterpolate Interpolation = "interpolate"
)

// PhysicsConfig содержит настройки для физики
type PhysicsConfig struct {
	// Gravity - ускорение свободного падения
	Gravity mgl32.Vec3 `yaml:"gravity"`

	// Mass - масса ракеты
	Mass float32 `yaml:"mass"`

	// Radius и Height - габариты цилиндра, по ним считается тензор инерции
	Radius float32 `yaml:"radius"`
	Height float32 `yaml:"height"`

	// LinearDamping - затухание линейного движения
	LinearDamping float32 `yaml:"linear_damping"`

	// AngularDamping - затухание углового движения
	AngularDamping float32 `yaml:"angular_damping"`

	// FixedDeltaTime - шаг фиксированного тика в секундах
	FixedDeltaTime float32 `yaml:"fixed_delta_time"`

	// Substeps - число подшагов интегратора на один тик
	Substeps int `yaml:"substeps"`

	// Interpolation - режим интерполяции отображаемого состояния
	Interpolation Interpolation `yaml:"interpolation"`

	// GroundEnabled - включить плоскость земли
	GroundEnabled bool `yaml:"ground_enabled"`

	// GroundY - высота земли
	GroundY float32 `yaml:"ground_y"`

	// GroundFriction - доля горизонтальной скорости, теряемая при касании за шаг
	GroundFriction float32 `yaml:"ground_friction"`

	// MaxAngularVelocity - ограничение угловой скорости, рад/с
	MaxAngularVelocity float32 `yaml:"max_angular_velocity"`
}

// GlobalPhysicsConfig - глобальная конфигурация физики
var GlobalPhysicsConfig *PhysicsConfig
var configMutex sync.RWMutex

// DefaultPhysicsConfig возвращает конфигурацию по умолчанию
func DefaultPhysicsConfig() *PhysicsConfig {
	return &PhysicsConfig{
		Gravity:            mgl32.Vec3{0, -9.81, 0},
		Mass:               10.0,
		Radius:             0.5,
		Height:             6.8,
		LinearDamping:      0.0,
		AngularDamping:     0.05,
		FixedDeltaTime:     0.02,
		Substeps:           1,
		Interpolation:      InterpolationNone,
		GroundEnabled:      true,
		GroundY:            0,
		GroundFriction:     0.1,
		MaxAngularVelocity: 7,
	}
}

// GetPhysicsConfig возвращает текущую конфигурацию физики
func GetPhysicsConfig() *PhysicsConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if GlobalPhysicsConfig == nil {
		return DefaultPhysicsConfig()
	}

	// Создаем копию, чтобы избежать гонок данных
	config := *GlobalPhysicsConfig
	return &config
}

// SetPhysicsConfig устанавливает новую конфигурацию физики
func SetPhysicsConfig(config *PhysicsConfig) {
	configMutex.Lock()
	defer configMutex.Unlock()

	newConfig := *config
	GlobalPhysicsConfig = &newConfig
}

// HalfHeight половина высоты корпуса
func (c *PhysicsConfig) HalfHeight() float32 {
	return c.Height / 2
}

// InertiaDiag главные моменты инерции сплошного цилиндра вдоль оси Y
func (c *PhysicsConfig) InertiaDiag() mgl32.Vec3 {
	r2 := c.Radius * c.Radius
	h2 := c.Height * c.Height
	side := c.Mass * (3*r2 + h2) / 12
	axial := c.Mass * r2 / 2
	return mgl32.Vec3{side, axial, side}
}
