package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/repeale/fp-go/option"
	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"

	"rocket-lander/backend/internal/core/domain/actuation"
	"rocket-lander/backend/internal/core/domain/command"
	"rocket-lander/backend/internal/core/domain/entity"
	"rocket-lander/backend/internal/core/domain/observation"
	"rocket-lander/backend/internal/core/port/in/environment"
	"rocket-lander/backend/internal/core/port/out/effects"
	"rocket-lander/backend/internal/core/port/out/physics"
	"rocket-lander/backend/internal/core/port/out/telemetry"
)

var _ environment.EnvironmentPort = (*EnvService)(nil)

// EnvService реализует среду посадки ракеты поверх физического движка.
// Все вызовы сериализуются: за один тик применяется не более одной команды.
type EnvService struct {
	mu deadlock.Mutex

	physicsPort physics.PhysicsPort
	effectsPort effects.EffectsPort
	model       *actuation.Model
	target      *entity.TargetReference
	observers   []telemetry.TickObserver
	logger      *zap.Logger

	fixedDeltaTime float32
	tick           uint64
}

// Option настройка EnvService
type Option func(*EnvService)

// WithEffects подключает визуальные эффекты двигателя
func WithEffects(port effects.EffectsPort) Option {
	return func(s *EnvService) {
		if port != nil {
			s.effectsPort = port
		}
	}
}

// WithObservers подписывает наблюдателей на записи тиков
func WithObservers(observers ...telemetry.TickObserver) Option {
	return func(s *EnvService) {
		s.observers = append(s.observers, observers...)
	}
}

// WithLogger задает логгер
func WithLogger(logger *zap.Logger) Option {
	return func(s *EnvService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithFixedDeltaTime задает шаг физики; 0 - шаг по умолчанию движка
func WithFixedDeltaTime(dt float32) Option {
	return func(s *EnvService) {
		s.fixedDeltaTime = dt
	}
}

// NewEnvService создает сервис среды.
// target может быть nil: тогда наблюдения пустые, пока цель не задана.
func NewEnvService(physicsPort physics.PhysicsPort, model *actuation.Model, target *entity.TargetReference, opts ...Option) *EnvService {
	if model == nil {
		model = actuation.NewModel(actuation.DefaultConfig())
	}
	s := &EnvService{
		physicsPort: physicsPort,
		effectsPort: effects.Nop{},
		model:       model,
		target:      target,
		logger:      zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.Named("EnvService")
	return s
}

// HandleLine обрабатывает строку агента в пошаговом режиме.
// Неразобранная строка не двигает симуляцию и возвращает текущее наблюдение.
func (s *EnvService) HandleLine(ctx context.Context, raw string) (string, error) {
	cmd := command.Parse(raw)
	if opt.IsNone(cmd) {
		s.logger.Debug("команда отброшена", zap.String("raw", raw))
		return s.Observe(ctx)
	}
	return s.Tick(ctx, cmd)
}

// Tick выполняет один тик среды.
// Reset телепортирует ракету без шага физики, чтобы наблюдение отражало ровно новое состояние.
// Actuate и отсутствие команды продвигают физику на один шаг.
func (s *EnvService) Tick(ctx context.Context, cmd opt.Option[command.Command]) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.physicsPort == nil {
		return "", nil
	}

	rec := telemetry.TickRecord{Mode: telemetry.ModeNone}

	var c command.Command
	if opt.IsSome(cmd) {
		c = cmd.Value
	}

	switch c := c.(type) {
	case command.Reset:
		rec.Mode = c.Mode().String()
		rec.Reset = &c
		if err := s.resetLocked(ctx, c); err != nil {
			return "", err
		}
		return s.finishLocked(ctx, rec)

	case command.Actuate:
		rec.Mode = c.Mode().String()
		rec.Actuate = &c
		applied, err := s.actuateLocked(ctx, c)
		if err != nil {
			return "", err
		}
		rec.Applied = &applied
	}

	if err := s.physicsPort.Step(ctx, s.fixedDeltaTime); err != nil {
		return "", fmt.Errorf("ошибка шага физики: %w", err)
	}
	s.tick++
	return s.finishLocked(ctx, rec)
}

// Reset телепортирует ракету вне тика
func (s *EnvService) Reset(ctx context.Context, cmd command.Reset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.physicsPort == nil {
		return nil
	}
	if err := s.resetLocked(ctx, cmd); err != nil {
		return err
	}
	_, err := s.finishLocked(ctx, telemetry.TickRecord{Mode: cmd.Mode().String(), Reset: &cmd})
	return err
}

// Observe кодирует текущее состояние без шага физики
func (s *EnvService) Observe(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.physicsPort == nil {
		return "", nil
	}
	state, err := s.physicsPort.GetState(ctx)
	if err != nil {
		return "", fmt.Errorf("ошибка чтения состояния: %w", err)
	}
	return observation.Encode(&state, s.target), nil
}

// Render кодирует состояние между двумя последними шагами для зрителей.
// false, если движок не умеет интерполировать или цель не задана.
func (s *EnvService) Render(alpha float32) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	renderer, ok := s.physicsPort.(physics.Renderer)
	if !ok || s.target == nil {
		return "", false
	}
	state := renderer.RenderState(mgl32.Clamp(alpha, 0, 1))
	return observation.Encode(&state, s.target), true
}

// SetTarget заменяет цель посадки
func (s *EnvService) SetTarget(target *entity.TargetReference) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.target = target
}

// Ticks количество шагов физики, выполненных сервисом
func (s *EnvService) Ticks() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.tick
}

func (s *EnvService) actuateLocked(ctx context.Context, cmd command.Actuate) (actuation.Result, error) {
	state, err := s.physicsPort.GetState(ctx)
	if err != nil {
		return actuation.Result{}, fmt.Errorf("ошибка чтения состояния: %w", err)
	}

	res := s.model.Apply(cmd, state)
	if err := s.physicsPort.AddForceAtPosition(ctx, res.Force, res.ForcePoint); err != nil {
		return res, fmt.Errorf("ошибка приложения тяги: %w", err)
	}
	if err := s.physicsPort.AddTorque(ctx, res.Torque); err != nil {
		return res, fmt.Errorf("ошибка приложения момента: %w", err)
	}
	s.effectsPort.SetEmission(actuation.Emission(res.Intensity))
	return res, nil
}

// resetLocked перезаписывает состояние в обход интегрирования:
// позиция, ориентация без крена, нулевые скорости, свободные оси, погашенный факел
func (s *EnvService) resetLocked(ctx context.Context, cmd command.Reset) error {
	state := entity.BodyState{
		Position:    cmd.Position,
		Orientation: entity.EulerToQuat(cmd.PitchDeg, cmd.YawDeg, 0),
	}
	if err := s.physicsPort.SetState(ctx, state); err != nil {
		return fmt.Errorf("ошибка сброса состояния: %w", err)
	}
	if err := s.physicsPort.SetConstraints(ctx, physics.None()); err != nil {
		return fmt.Errorf("ошибка сброса ограничений: %w", err)
	}
	s.effectsPort.StopAndClear()

	s.logger.Debug("сброс",
		zap.Float32s("position", cmd.Position[:]),
		zap.Float32("pitch", cmd.PitchDeg),
		zap.Float32("yaw", cmd.YawDeg))
	return nil
}

func (s *EnvService) finishLocked(ctx context.Context, rec telemetry.TickRecord) (string, error) {
	state, err := s.physicsPort.GetState(ctx)
	if err != nil {
		return "", fmt.Errorf("ошибка чтения состояния: %w", err)
	}

	line := observation.Encode(&state, s.target)
	if len(s.observers) == 0 {
		return line, nil
	}

	rec.Tick = s.tick
	rec.Timestamp = time.Now()
	rec.Body = state
	if s.target != nil {
		rec.Obs = observation.Compute(state, *s.target)
	}
	for _, o := range s.observers {
		o.ObserveTick(rec)
	}
	return line, nil
}
