package physics

import (
	"context"

	"github.com/go-gl/mathgl/mgl32"

	"rocket-lander/backend/internal/core/domain/entity"
)

// PhysicsPort определяет интерфейс для взаимодействия с физическим движком
type PhysicsPort interface {
	// AddForceAtPosition прикладывает силу в мировой точке до следующего шага
	AddForceAtPosition(ctx context.Context, force, point mgl32.Vec3) error

	// AddTorque прикладывает момент до следующего шага
	AddTorque(ctx context.Context, torque mgl32.Vec3) error

	// GetState возвращает текущее состояние тела
	GetState(ctx context.Context) (entity.BodyState, error)

	// SetState перезаписывает состояние тела в обход интегрирования
	SetState(ctx context.Context, state entity.BodyState) error

	// SetConstraints задает блокировку осей тела
	SetConstraints(ctx context.Context, constraints Constraints) error

	// Step продвигает симуляцию на dt секунд
	Step(ctx context.Context, dt float32) error

	// Close освобождает ресурсы движка
	Close() error
}

// Renderer опциональная возможность движка отдавать интерполированное состояние
type Renderer interface {
	// RenderState возвращает состояние между двумя последними шагами, alpha в [0,1]
	RenderState(alpha float32) entity.BodyState
}

// Constraints блокировка перемещения и вращения по осям.
// Нулевое значение - полностью свободное тело.
type Constraints struct {
	FreezePositionX bool `json:"freeze_position_x"`
	FreezePositionY bool `json:"freeze_position_y"`
	FreezePositionZ bool `json:"freeze_position_z"`
	FreezeRotationX bool `json:"freeze_rotation_x"`
	FreezeRotationY bool `json:"freeze_rotation_y"`
	FreezeRotationZ bool `json:"freeze_rotation_z"`
}

// None возвращает ограничения свободного тела
func None() Constraints {
	return Constraints{}
}

// IsFree сообщает, что ни одна ось не заблокирована
func (c Constraints) IsFree() bool {
	return c == Constraints{}
}
