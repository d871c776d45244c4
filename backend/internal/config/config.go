package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"

	"rocket-lander/backend/internal/core/domain/actuation"
	"rocket-lander/backend/internal/core/domain/entity"
	"rocket-lander/backend/internal/core/domain/episode"
	"rocket-lander/backend/internal/physics"
)

// DriverMode способ продвижения симуляции
type DriverMode string

const (
	// DriverLockstep - один тик на каждую строку агента
	DriverLockstep DriverMode = "lockstep"
	// DriverRealtime - тики по таймеру, команды из почтового ящика
	DriverRealtime DriverMode = "realtime"
)

// RocketConfig габариты коллайдера ракеты для расчета точки ног
type RocketConfig struct {
	// ExtentY - половина высоты коллайдера в мировых единицах
	ExtentY float32 `yaml:"extent_y"`
	ScaleY  float32 `yaml:"scale_y"`
	// FeetOffset - явное смещение ног, перекрывает расчет по габаритам
	FeetOffset *mgl32.Vec3 `yaml:"feet_offset,omitempty"`
}

// TargetConfig положение посадочной площадки
type TargetConfig struct {
	Position mgl32.Vec3 `yaml:"position"`
}

// DriverConfig настройки драйвера тиков
type DriverConfig struct {
	Mode DriverMode `yaml:"mode"`
	TPS  int        `yaml:"tps"`
}

// TransportConfig адреса входящих и исходящих соединений
type TransportConfig struct {
	TCPAddr string `yaml:"tcp_addr"`
	WSAddr  string `yaml:"ws_addr"`
	// PhysicsAddr - адрес удаленного движка; пусто - движок в процессе
	PhysicsAddr string `yaml:"physics_addr"`
	// PhysicsListen - адрес, на котором подкоманда physics отдает движок
	PhysicsListen string `yaml:"physics_listen"`
}

// TelemetryConfig настройки сбора телеметрии
type TelemetryConfig struct {
	Enabled         bool          `yaml:"enabled"`
	RingSize        int           `yaml:"ring_size"`
	SummaryInterval time.Duration `yaml:"summary_interval"`
}

// RecordingConfig настройки записи эпизодов
type RecordingConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Dir       string `yaml:"dir"`
	IndexPath string `yaml:"index_path"`
}

// Config конфигурация всего сервера
type Config struct {
	Rocket    RocketConfig          `yaml:"rocket"`
	Actuation actuation.Config      `yaml:"actuation"`
	Target    TargetConfig          `yaml:"target"`
	Physics   physics.PhysicsConfig `yaml:"physics"`
	Episode   episode.Config        `yaml:"episode"`
	Driver    DriverConfig          `yaml:"driver"`
	Transport TransportConfig       `yaml:"transport"`
	Telemetry TelemetryConfig       `yaml:"telemetry"`
	Recording RecordingConfig       `yaml:"recording"`
}

var (
	current     *Config
	configMutex sync.RWMutex
)

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	phys := physics.DefaultPhysicsConfig()
	return &Config{
		Rocket: RocketConfig{
			ExtentY: phys.HalfHeight(),
			ScaleY:  1,
		},
		Actuation: actuation.DefaultConfig(),
		Target:    TargetConfig{Position: mgl32.Vec3{0, 0, 0}},
		Physics:   *phys,
		Episode:   episode.DefaultConfig(),
		Driver: DriverConfig{
			Mode: DriverLockstep,
			TPS:  50,
		},
		Transport: TransportConfig{
			TCPAddr:       "127.0.0.1:5000",
			WSAddr:        ":8080",
			PhysicsListen: ":50051",
		},
		Telemetry: TelemetryConfig{
			Enabled:         true,
			RingSize:        1024,
			SummaryInterval: 10 * time.Second,
		},
		Recording: RecordingConfig{
			Enabled:   false,
			Dir:       "episodes",
			IndexPath: "episodes/index.db",
		},
	}
}

// Load читает YAML поверх значений по умолчанию.
// Пустой путь возвращает конфигурацию по умолчанию.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфигурации: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	switch c.Driver.Mode {
	case DriverLockstep:
	case DriverRealtime:
		if c.Driver.TPS <= 0 {
			return fmt.Errorf("driver.tps должен быть положительным, получено %d", c.Driver.TPS)
		}
	default:
		return fmt.Errorf("неизвестный режим драйвера %q", c.Driver.Mode)
	}

	switch c.Physics.Interpolation {
	case physics.InterpolationNone, physics.InterpolationInterpolate:
	default:
		return fmt.Errorf("неизвестный режим интерполяции %q", c.Physics.Interpolation)
	}

	if c.Physics.Mass <= 0 {
		return fmt.Errorf("physics.mass должна быть положительной")
	}
	if c.Physics.FixedDeltaTime <= 0 {
		return fmt.Errorf("physics.fixed_delta_time должен быть положительным")
	}
	if c.Telemetry.Enabled && c.Telemetry.RingSize <= 0 {
		return fmt.Errorf("telemetry.ring_size должен быть положительным")
	}
	if c.Recording.Enabled && c.Recording.Dir == "" {
		return fmt.Errorf("recording.dir не задан")
	}
	return nil
}

// FeetOffset смещение ног в локальных координатах ракеты
func (c *Config) FeetOffset() mgl32.Vec3 {
	if c.Rocket.FeetOffset != nil {
		return *c.Rocket.FeetOffset
	}
	return entity.FeetOffsetFromBounds(c.Rocket.ExtentY, c.Rocket.ScaleY)
}

// TargetReference цель посадки из конфигурации
func (c *Config) TargetReference() *entity.TargetReference {
	return entity.NewTargetReference(c.Target.Position, c.FeetOffset())
}

// Marshal сериализует конфигурацию в YAML
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Get возвращает копию текущей конфигурации
func Get() *Config {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if current == nil {
		return Default()
	}
	cfg := *current
	return &cfg
}

// Set устанавливает конфигурацию процесса и синхронизирует глобальную физику
func Set(cfg *Config) {
	configMutex.Lock()
	defer configMutex.Unlock()

	next := *cfg
	current = &next
	physics.SetPhysicsConfig(&next.Physics)
}
