package physics

import (
	"context"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"rocket-lander/backend/internal/core/domain/entity"
	port "rocket-lander/backend/internal/core/port/out/physics"
)

var (
	_ port.PhysicsPort = (*RigidBody)(nil)
	_ port.Renderer    = (*RigidBody)(nil)
)

const minInertia = 1e-4

// RigidBody встроенный движок для одного твердого тела.
// Силы накапливаются до вызова Step и сбрасываются после него.
type RigidBody struct {
	mu sync.Mutex

	config     PhysicsConfig
	inertia    mgl32.Vec3
	feetOffset mgl32.Vec3

	state       entity.BodyState
	prevState   entity.BodyState
	constraints port.Constraints

	force  mgl32.Vec3
	torque mgl32.Vec3

	steps uint64
}

// NewRigidBody создает тело в начале координат
func NewRigidBody(config *PhysicsConfig) *RigidBody {
	if config == nil {
		config = GetPhysicsConfig()
	}
	cfg := *config
	if cfg.Substeps <= 0 {
		cfg.Substeps = 1
	}
	if cfg.Mass <= 0 {
		cfg.Mass = 1
	}

	inertia := cfg.InertiaDiag()
	for i := range inertia {
		if inertia[i] < minInertia {
			inertia[i] = minInertia
		}
	}

	state := entity.NewBodyState(mgl32.Vec3{})
	return &RigidBody{
		config:     cfg,
		inertia:    inertia,
		feetOffset: entity.FeetOffsetFromBounds(cfg.HalfHeight(), 1),
		state:      state,
		prevState:  state,
	}
}

// AddForceAtPosition прикладывает силу в мировой точке.
// Если точка не совпадает с центром масс, появляется момент.
func (b *RigidBody) AddForceAtPosition(_ context.Context, force, point mgl32.Vec3) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.force = b.force.Add(force)
	arm := point.Sub(b.state.Position)
	b.torque = b.torque.Add(arm.Cross(force))
	return nil
}

// AddTorque прикладывает момент в мировых координатах
func (b *RigidBody) AddTorque(_ context.Context, torque mgl32.Vec3) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.torque = b.torque.Add(torque)
	return nil
}

// GetState возвращает копию состояния тела
func (b *RigidBody) GetState(_ context.Context) (entity.BodyState, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.state, nil
}

// SetState перезаписывает состояние и сбрасывает накопленные силы
func (b *RigidBody) SetState(_ context.Context, state entity.BodyState) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	state.Orientation = state.Orientation.Normalize()
	b.state = state
	b.prevState = state
	b.force = mgl32.Vec3{}
	b.torque = mgl32.Vec3{}
	return nil
}

// SetConstraints задает блокировку осей
func (b *RigidBody) SetConstraints(_ context.Context, constraints port.Constraints) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.constraints = constraints
	return nil
}

// Step интегрирует движение на dt секунд полунеявным методом Эйлера
func (b *RigidBody) Step(_ context.Context, dt float32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if dt <= 0 {
		dt = b.config.FixedDeltaTime
	}

	b.prevState = b.state
	h := dt / float32(b.config.Substeps)
	for i := 0; i < b.config.Substeps; i++ {
		b.integrate(h)
	}

	b.force = mgl32.Vec3{}
	b.torque = mgl32.Vec3{}
	b.steps++
	return nil
}

// RenderState возвращает интерполированное состояние для отображения
func (b *RigidBody) RenderState(alpha float32) entity.BodyState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.config.Interpolation != InterpolationInterpolate {
		return b.state
	}

	alpha = mgl32.Clamp(alpha, 0, 1)
	prev, cur := b.prevState, b.state
	return entity.BodyState{
		Position:        lerp(prev.Position, cur.Position, alpha),
		Orientation:     mgl32.QuatSlerp(prev.Orientation, cur.Orientation, alpha),
		LinearVelocity:  lerp(prev.LinearVelocity, cur.LinearVelocity, alpha),
		AngularVelocity: lerp(prev.AngularVelocity, cur.AngularVelocity, alpha),
	}
}

// Steps количество выполненных шагов
func (b *RigidBody) Steps() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.steps
}

// Close ничего не освобождает, движок живет в памяти процесса
func (b *RigidBody) Close() error {
	return nil
}

func (b *RigidBody) integrate(h float32) {
	s := &b.state

	// Линейное движение
	accel := b.force.Mul(1 / b.config.Mass).Add(b.config.Gravity)
	s.LinearVelocity = s.LinearVelocity.Add(accel.Mul(h))
	s.LinearVelocity = s.LinearVelocity.Mul(1 / (1 + h*b.config.LinearDamping))

	// Вращение считаем в осях тела, где тензор инерции диагонален
	inv := s.Orientation.Inverse()
	omegaBody := inv.Rotate(s.AngularVelocity)
	torqueBody := inv.Rotate(b.torque)
	momentum := mulElem(b.inertia, omegaBody)
	alphaBody := divElem(torqueBody.Sub(omegaBody.Cross(momentum)), b.inertia)
	omegaBody = omegaBody.Add(alphaBody.Mul(h))

	s.AngularVelocity = s.Orientation.Rotate(omegaBody)
	s.AngularVelocity = s.AngularVelocity.Mul(1 / (1 + h*b.config.AngularDamping))
	if limit := b.config.MaxAngularVelocity; limit > 0 && s.AngularVelocity.Len() > limit {
		s.AngularVelocity = s.AngularVelocity.Normalize().Mul(limit)
	}

	b.applyConstraints()

	s.Position = s.Position.Add(s.LinearVelocity.Mul(h))

	spin := mgl32.Quat{W: 0, V: s.AngularVelocity}.Mul(s.Orientation)
	s.Orientation = s.Orientation.Add(spin.Scale(0.5 * h)).Normalize()

	if b.config.GroundEnabled {
		b.resolveGround()
	}
}

func (b *RigidBody) applyConstraints() {
	c := b.constraints
	if c.IsFree() {
		return
	}
	s := &b.state
	if c.FreezePositionX {
		s.LinearVelocity[0] = 0
	}
	if c.FreezePositionY {
		s.LinearVelocity[1] = 0
	}
	if c.FreezePositionZ {
		s.LinearVelocity[2] = 0
	}
	if c.FreezeRotationX {
		s.AngularVelocity[0] = 0
	}
	if c.FreezeRotationY {
		s.AngularVelocity[1] = 0
	}
	if c.FreezeRotationZ {
		s.AngularVelocity[2] = 0
	}
}

// resolveGround выталкивает точку опоры из-под земли и гасит скорость падения
func (b *RigidBody) resolveGround() {
	s := &b.state
	feet := s.TransformPoint(b.feetOffset)
	penetration := b.config.GroundY - feet.Y()
	if penetration <= 0 {
		return
	}

	s.Position[1] += penetration
	if s.LinearVelocity[1] < 0 {
		s.LinearVelocity[1] = 0
	}
	keep := 1 - mgl32.Clamp(b.config.GroundFriction, 0, 1)
	s.LinearVelocity[0] *= keep
	s.LinearVelocity[2] *= keep
}

func lerp(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

func mulElem(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

func divElem(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] / b[0], a[1] / b[1], a[2] / b[2]}
}
