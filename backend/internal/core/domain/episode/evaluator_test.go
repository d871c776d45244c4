package episode

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"rocket-lander/backend/internal/core/domain/observation"
)

func uprightObs(dx, dy, dz, vy float32) observation.Observation {
	var obs observation.Observation
	obs[observation.DX] = dx
	obs[observation.DY] = dy
	obs[observation.DZ] = dz
	obs[observation.VY] = vy
	obs[observation.QW] = 1
	return obs
}

func TestEvaluator_Outcomes(t *testing.T) {
	e := NewEvaluator(DefaultConfig())

	tests := []struct {
		name    string
		obs     observation.Observation
		step    int
		done    bool
		outcome Outcome
	}{
		{name: "hovering", obs: uprightObs(1, 100, -1, 0), step: 1, done: false, outcome: OutcomeRunning},
		{name: "too high", obs: uprightObs(0, 320, 0, 0), step: 1, done: true, outcome: OutcomeTooHigh},
		{name: "out of bounds x", obs: uprightObs(50, 100, 0, 0), step: 1, done: true, outcome: OutcomeOutOfBounds},
		{name: "out of bounds z", obs: uprightObs(0, 100, -60, 0), step: 1, done: true, outcome: OutcomeOutOfBounds},
		{name: "hard landing", obs: uprightObs(0, 5, 0, -6), step: 1, done: true, outcome: OutcomeHardLanding},
		{name: "soft landing keeps going", obs: uprightObs(0, 5, 0, -1), step: 1, done: false, outcome: OutcomeRunning},
		{name: "time limit", obs: uprightObs(0, 100, 0, 0), step: 800, done: true, outcome: OutcomeTimeLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := e.Evaluate(tt.obs, tt.step)
			assert.Equal(t, tt.done, v.Done)
			assert.Equal(t, tt.outcome, v.Outcome)
		})
	}
}

func TestEvaluator_Tilted(t *testing.T) {
	e := NewEvaluator(DefaultConfig())

	// поворот на 90° вокруг X: qx = sin(45°)
	obs := uprightObs(0, 100, 0, 0)
	obs[observation.QX] = float32(math.Sqrt2 / 2)
	obs[observation.QW] = float32(math.Sqrt2 / 2)

	v := e.Evaluate(obs, 1)
	assert.True(t, v.Done)
	assert.Equal(t, OutcomeTilted, v.Outcome)
	assert.InDelta(t, 0, Uprightness(obs), 1e-6)
}

func TestUprightness_IgnoresAngularVelocity(t *testing.T) {
	// вертикальная ракета, быстро вращающаяся вокруг X и Z, все еще стоит ровно
	obs := uprightObs(0, 100, 0, 0)
	obs[observation.WX] = 0.9
	obs[observation.WZ] = 0.9
	assert.InDelta(t, 1, Uprightness(obs), 1e-6)

	// наклон же виден по qx/qz при нулевых угловых скоростях
	obs = uprightObs(0, 100, 0, 0)
	obs[observation.QZ] = 0.5
	obs[observation.QW] = float32(math.Sqrt(0.75))
	assert.InDelta(t, 0.5, Uprightness(obs), 1e-6)
}

func TestEvaluator_ShapingReward(t *testing.T) {
	e := NewEvaluator(DefaultConfig())

	// на цели и ровно: exp(0)*3 без штрафов
	v := e.Evaluate(uprightObs(0, 0, 0, 0), 1)
	assert.False(t, v.Done)
	assert.InDelta(t, 3, v.Reward, 1e-9)

	far := e.Evaluate(uprightObs(10, 10, 10, 0), 1)
	assert.Less(t, far.Reward, v.Reward)
}

func TestRandomReset_Ranges(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		r := RandomReset(rng)
		assert.True(t, r.Position.X() >= -50 && r.Position.X() <= 50)
		assert.True(t, r.Position.Y() >= 200 && r.Position.Y() <= 300)
		assert.True(t, r.Position.Z() >= -50 && r.Position.Z() <= 50)
		assert.True(t, r.PitchDeg >= -20 && r.PitchDeg <= 20)
		assert.True(t, r.YawDeg >= -20 && r.YawDeg <= 20)
	}
}
