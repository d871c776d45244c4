package entity

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Локальные оси корпуса ракеты
var (
	AxisRight   = mgl32.Vec3{1, 0, 0}
	AxisUp      = mgl32.Vec3{0, 1, 0}
	AxisForward = mgl32.Vec3{0, 0, 1}
)

// BodyState кинематическое состояние твердого тела.
// Принадлежит физическому движку, ядро только читает его
// (или перезаписывает целиком при сбросе).
type BodyState struct {
	Position        mgl32.Vec3 `json:"position"`
	Orientation     mgl32.Quat `json:"orientation"`
	LinearVelocity  mgl32.Vec3 `json:"linear_velocity"`
	AngularVelocity mgl32.Vec3 `json:"angular_velocity"`
}

// NewBodyState создает покоящееся тело в точке position
func NewBodyState(position mgl32.Vec3) BodyState {
	return BodyState{
		Position:    position,
		Orientation: mgl32.QuatIdent(),
	}
}

// Right возвращает локальную ось X в мировых координатах
func (b BodyState) Right() mgl32.Vec3 {
	return b.Orientation.Rotate(AxisRight)
}

// Up возвращает локальную ось Y в мировых координатах
func (b BodyState) Up() mgl32.Vec3 {
	return b.Orientation.Rotate(AxisUp)
}

// Forward возвращает локальную ось Z в мировых координатах
func (b BodyState) Forward() mgl32.Vec3 {
	return b.Orientation.Rotate(AxisForward)
}

// TransformPoint переводит точку из локальной системы тела в мировую
func (b BodyState) TransformPoint(local mgl32.Vec3) mgl32.Vec3 {
	return b.Position.Add(b.Orientation.Rotate(local))
}

// EulerToQuat строит ориентацию из углов Эйлера в градусах.
// Порядок как у движка-оригинала: сначала крен (Z), затем тангаж (X), затем рысканье (Y).
func EulerToQuat(pitchDeg, yawDeg, rollDeg float32) mgl32.Quat {
	qx := mgl32.QuatRotate(mgl32.DegToRad(pitchDeg), AxisRight)
	qy := mgl32.QuatRotate(mgl32.DegToRad(yawDeg), AxisUp)
	qz := mgl32.QuatRotate(mgl32.DegToRad(rollDeg), AxisForward)
	return qy.Mul(qx).Mul(qz).Normalize()
}
