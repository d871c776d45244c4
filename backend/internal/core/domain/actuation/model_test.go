package actuation

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rocket-lander/backend/internal/core/domain/command"
	"rocket-lander/backend/internal/core/domain/entity"
)

func TestModel_ThrustClamp(t *testing.T) {
	model := NewModel(DefaultConfig())
	body := entity.NewBodyState(mgl32.Vec3{})

	tests := []struct {
		thrust float32
		want   float32
	}{
		{thrust: -3, want: 0},
		{thrust: -0.01, want: 0},
		{thrust: 0, want: 0},
		{thrust: 0.25, want: 37.5},
		{thrust: 1, want: 150},
		{thrust: 1.5, want: 150},
		{thrust: 42, want: 150},
	}

	for _, tt := range tests {
		res := model.Apply(command.Actuate{Thrust: tt.thrust}, body)
		assert.InDelta(t, tt.want, res.Force.Len(), 1e-4, "thrust %v", tt.thrust)
		assert.InDelta(t, mgl32.Clamp(tt.thrust, 0, 1), res.Intensity, 1e-6)
	}
}

func TestModel_HalfThrustScenario(t *testing.T) {
	model := NewModel(Config{MainThrustPower: 150, RCSPower: 10, RollGainFactor: DefaultRollGainFactor})
	body := entity.NewBodyState(mgl32.Vec3{})

	parsed := command.Parse("0,0,0,0.5,0")
	cmd, ok := parsed.Value.(command.Actuate)
	require.True(t, ok)

	res := model.Apply(cmd, body)
	assertVec3Near(t, mgl32.Vec3{0, 75, 0}, res.Force, 1e-4)
	assert.Equal(t, mgl32.Vec3{}, res.Torque)
	assert.Equal(t, body.Position, res.ForcePoint)
}

func TestModel_ForceFollowsBodyUp(t *testing.T) {
	model := NewModel(DefaultConfig())
	body := entity.NewBodyState(mgl32.Vec3{0, 10, 0})
	body.Orientation = entity.EulerToQuat(90, 0, 0)

	res := model.Apply(command.Actuate{Thrust: 1}, body)
	assertVec3Near(t, mgl32.Vec3{0, 0, 150}, res.Force, 1e-3)
}

func TestModel_TorqueAxes(t *testing.T) {
	model := NewModel(Config{MainThrustPower: 150, RCSPower: 10, RollGainFactor: 0.1})
	body := entity.NewBodyState(mgl32.Vec3{})

	res := model.Apply(command.Actuate{Pitch: 1}, body)
	assertVec3Near(t, mgl32.Vec3{10, 0, 0}, res.Torque, 1e-4)

	res = model.Apply(command.Actuate{Yaw: -1}, body)
	assertVec3Near(t, mgl32.Vec3{0, 0, -10}, res.Torque, 1e-4)

	// крен в десять раз слабее тангажа и рысканья
	res = model.Apply(command.Actuate{Roll: 1}, body)
	assertVec3Near(t, mgl32.Vec3{0, 1, 0}, res.Torque, 1e-4)

	res = model.Apply(command.Actuate{Pitch: 1, Yaw: 1, Roll: 1}, body)
	assertVec3Near(t, mgl32.Vec3{10, 1, 10}, res.Torque, 1e-4)
}

func TestModel_EnginePointOffset(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnginePointOffset = mgl32.Vec3{0, -2, 0}
	model := NewModel(cfg)

	body := entity.NewBodyState(mgl32.Vec3{5, 5, 5})
	res := model.Apply(command.Actuate{Thrust: 1}, body)
	assertVec3Near(t, mgl32.Vec3{5, 3, 5}, res.ForcePoint, 1e-4)
}

func TestEmission(t *testing.T) {
	assert.Equal(t, EffectCommand{}, Emission(0))
	assert.Equal(t, EffectCommand{}, Emission(0.005))
	assert.Equal(t, EffectCommand{Playing: true, Rate: 250}, Emission(0.5))
	assert.Equal(t, EffectCommand{Playing: true, Rate: MaxEmissionRate}, Emission(1))
}

func assertVec3Near(t *testing.T, want, got mgl32.Vec3, delta float64) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], delta, "component %d of %v", i, got)
	}
}
