package entity

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestEulerToQuat_Identity(t *testing.T) {
	q := EulerToQuat(0, 0, 0)
	assertQuatNear(t, mgl32.QuatIdent(), q, 1e-6)
}

func TestEulerToQuat_YawThenPitch(t *testing.T) {
	// Тангаж 90° переводит ось вверх в ось вперед, рысканье 90° затем поворачивает ее к правой оси
	q := EulerToQuat(90, 90, 0)
	up := q.Rotate(AxisUp)
	assertVec3Near(t, mgl32.Vec3{1, 0, 0}, up, 1e-4)
}

func TestBodyState_Axes(t *testing.T) {
	b := NewBodyState(mgl32.Vec3{1, 2, 3})
	assert.Equal(t, AxisRight, b.Right())
	assert.Equal(t, AxisUp, b.Up())
	assert.Equal(t, AxisForward, b.Forward())
	feet := b.TransformPoint(mgl32.Vec3{0, -3.4, 0})
	assertVec3Near(t, mgl32.Vec3{1, -1.4, 3}, feet, 1e-5)
}

func TestFeetOffsetFromBounds(t *testing.T) {
	tests := []struct {
		name    string
		extentY float32
		scaleY  float32
		want    mgl32.Vec3
	}{
		{name: "unit scale", extentY: 3.4, scaleY: 1, want: mgl32.Vec3{0, -3.4, 0}},
		{name: "scaled", extentY: 6, scaleY: 2, want: mgl32.Vec3{0, -3, 0}},
		{name: "zero scale falls back to 1", extentY: 2, scaleY: 0, want: mgl32.Vec3{0, -2, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FeetOffsetFromBounds(tt.extentY, tt.scaleY))
		})
	}
}

func assertVec3Near(t *testing.T, want, got mgl32.Vec3, delta float64) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], delta, "component %d of %v", i, got)
	}
}

func assertQuatNear(t *testing.T, want, got mgl32.Quat, delta float64) {
	t.Helper()
	assert.InDelta(t, want.W, got.W, delta, "w of %v", got)
	for i := range want.V {
		assert.InDelta(t, want.V[i], got.V[i], delta, "component %d of %v", i, got)
	}
}
