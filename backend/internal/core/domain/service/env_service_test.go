package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	opt "github.com/repeale/fp-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rocket-lander/backend/internal/adapter/out/effects"
	"rocket-lander/backend/internal/core/domain/actuation"
	"rocket-lander/backend/internal/core/domain/command"
	"rocket-lander/backend/internal/core/domain/entity"
	"rocket-lander/backend/internal/core/domain/observation"
	port "rocket-lander/backend/internal/core/port/out/physics"
	"rocket-lander/backend/internal/core/port/out/telemetry"
	"rocket-lander/backend/internal/physics"
)

type recordingObserver struct {
	mu      sync.Mutex
	records []telemetry.TickRecord
}

func (o *recordingObserver) ObserveTick(rec telemetry.TickRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records = append(o.records, rec)
}

func newTestEnv(t *testing.T, opts ...Option) (*EnvService, *physics.RigidBody) {
	t.Helper()
	cfg := physics.DefaultPhysicsConfig()
	cfg.GroundEnabled = false
	body := physics.NewRigidBody(cfg)
	target := entity.NewTargetReference(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, -3.4, 0})
	return NewEnvService(body, actuation.NewModel(actuation.DefaultConfig()), target, opts...), body
}

func TestEnvService_ResetZeroesVelocities(t *testing.T) {
	ctx := context.Background()
	env, body := newTestEnv(t)

	// раскручиваем ракету перед сбросом
	for i := 0; i < 10; i++ {
		_, err := env.HandleLine(ctx, "0,1,1,1,1")
		require.NoError(t, err)
	}

	line, err := env.HandleLine(ctx, "1,10,250,-5,15,-10")
	require.NoError(t, err)
	require.NotEmpty(t, line)

	state, err := body.GetState(ctx)
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec3{}, state.LinearVelocity)
	assert.Equal(t, mgl32.Vec3{}, state.AngularVelocity)
	assert.Equal(t, mgl32.Vec3{10, 250, -5}, state.Position)
	assertQuatNear(t, entity.EulerToQuat(15, -10, 0), state.Orientation, 1e-5)

	obs, err := observation.Decode(line)
	require.NoError(t, err)
	assert.Equal(t, float32(0), obs[observation.VY])
	assert.Equal(t, float32(0), obs[observation.WX])
}

func TestEnvService_ResetIdempotent(t *testing.T) {
	ctx := context.Background()
	env, body := newTestEnv(t)
	reset := command.Reset{Position: mgl32.Vec3{3, 200, 4}, PitchDeg: 12, YawDeg: 7}

	require.NoError(t, env.Reset(ctx, reset))
	first, _ := body.GetState(ctx)

	require.NoError(t, env.Reset(ctx, reset))
	second, _ := body.GetState(ctx)

	assert.Equal(t, first, second)
}

func TestEnvService_ResetStopsEffects(t *testing.T) {
	ctx := context.Background()
	emitter := effects.NewEmitter(nil)
	env, _ := newTestEnv(t, WithEffects(emitter))

	_, err := env.HandleLine(ctx, "0,0,0,1,0")
	require.NoError(t, err)
	assert.True(t, emitter.Snapshot().Playing)
	assert.Equal(t, float32(actuation.MaxEmissionRate), emitter.Snapshot().Rate)

	_, err = env.HandleLine(ctx, "1,0,250,0,0,0")
	require.NoError(t, err)
	assert.False(t, emitter.Snapshot().Playing)
	assert.Equal(t, uint64(1), emitter.Clears())
}

func TestEnvService_MalformedInputIsInert(t *testing.T) {
	ctx := context.Background()
	env, body := newTestEnv(t)
	require.NoError(t, env.Reset(ctx, command.Reset{Position: mgl32.Vec3{0, 100, 0}}))

	before, _ := body.GetState(ctx)
	beforeLine, err := env.Observe(ctx)
	require.NoError(t, err)

	for _, raw := range []string{"", "abc", "0,1,2", "5,1,2,3,4"} {
		t.Run(raw, func(t *testing.T) {
			line, err := env.HandleLine(ctx, raw)
			require.NoError(t, err)
			assert.Equal(t, beforeLine, line)

			after, _ := body.GetState(ctx)
			assert.Equal(t, before, after)
		})
	}
	assert.Equal(t, uint64(0), env.Ticks())
}

func TestEnvService_ActuateAdvancesPhysics(t *testing.T) {
	ctx := context.Background()
	env, body := newTestEnv(t)
	require.NoError(t, env.Reset(ctx, command.Reset{Position: mgl32.Vec3{0, 100, 0}}))

	// полная тяга 150 Н против веса 98.1 Н
	_, err := env.HandleLine(ctx, "0,0,0,1,0")
	require.NoError(t, err)

	state, _ := body.GetState(ctx)
	assert.Greater(t, state.LinearVelocity.Y(), float32(0))
	assert.Equal(t, uint64(1), env.Ticks())
	assert.Equal(t, uint64(1), body.Steps())
}

func TestEnvService_TickWithoutCommandStillSteps(t *testing.T) {
	ctx := context.Background()
	env, body := newTestEnv(t)
	require.NoError(t, env.Reset(ctx, command.Reset{Position: mgl32.Vec3{0, 100, 0}}))

	_, err := env.Tick(ctx, opt.None[command.Command]())
	require.NoError(t, err)

	state, _ := body.GetState(ctx)
	assert.Less(t, state.LinearVelocity.Y(), float32(0))
}

func TestEnvService_MissingCollaborators(t *testing.T) {
	ctx := context.Background()

	env, _ := newTestEnv(t)
	env.SetTarget(nil)
	line, err := env.HandleLine(ctx, "0,0,0,0.5,0")
	require.NoError(t, err)
	assert.Empty(t, line)

	noBody := NewEnvService(nil, nil, entity.NewTargetReference(mgl32.Vec3{}, mgl32.Vec3{}))
	line, err = noBody.HandleLine(ctx, "1,0,250,0,0,0")
	require.NoError(t, err)
	assert.Empty(t, line)
}

func TestEnvService_ObserverRecords(t *testing.T) {
	ctx := context.Background()
	observer := &recordingObserver{}
	env, _ := newTestEnv(t, WithObservers(observer))

	_, err := env.HandleLine(ctx, "1,0,250,0,0,0")
	require.NoError(t, err)
	_, err = env.HandleLine(ctx, "[0,0.1,0,0.5,0]")
	require.NoError(t, err)

	require.Len(t, observer.records, 2)
	assert.Equal(t, "reset", observer.records[0].Mode)
	require.NotNil(t, observer.records[0].Reset)
	assert.Nil(t, observer.records[0].Applied)

	rec := observer.records[1]
	assert.Equal(t, "actuate", rec.Mode)
	assert.Equal(t, uint64(1), rec.Tick)
	require.NotNil(t, rec.Applied)
	assert.InDelta(t, 75, rec.Applied.Force.Len(), 1e-3)
}

func TestEnvService_RenderInterpolates(t *testing.T) {
	ctx := context.Background()
	cfg := physics.DefaultPhysicsConfig()
	cfg.GroundEnabled = false
	cfg.Interpolation = physics.InterpolationInterpolate
	target := entity.NewTargetReference(mgl32.Vec3{}, mgl32.Vec3{0, -3.4, 0})
	env := NewEnvService(physics.NewRigidBody(cfg), nil, target)

	_, err := env.HandleLine(ctx, "1,0,250,0,0,0")
	require.NoError(t, err)
	line, err := env.Observe(ctx)
	require.NoError(t, err)
	before, err := observation.Decode(line)
	require.NoError(t, err)

	line, err = env.Tick(ctx, opt.None[command.Command]())
	require.NoError(t, err)
	after, err := observation.Decode(line)
	require.NoError(t, err)
	require.Less(t, after[observation.DY], before[observation.DY])

	line, ok := env.Render(0.5)
	require.True(t, ok)
	mid, err := observation.Decode(line)
	require.NoError(t, err)
	assert.InDelta(t, (before[observation.DY]+after[observation.DY])/2, mid[observation.DY], 1e-4)

	// alpha за пределами [0,1] прижимается к последнему шагу
	line, ok = env.Render(3)
	require.True(t, ok)
	end, err := observation.Decode(line)
	require.NoError(t, err)
	assert.InDelta(t, after[observation.DY], end[observation.DY], 1e-4)

	env.SetTarget(nil)
	_, ok = env.Render(0.5)
	assert.False(t, ok)

	_, ok = NewEnvService(failingPhysics{}, nil, target).Render(0.5)
	assert.False(t, ok, "движок без интерполяции")
}

type failingPhysics struct {
	port.PhysicsPort
}

func (failingPhysics) GetState(context.Context) (entity.BodyState, error) {
	return entity.BodyState{}, errors.New("engine down")
}

func (failingPhysics) Step(context.Context, float32) error {
	return errors.New("engine down")
}

func TestEnvService_EngineErrorsAreWrapped(t *testing.T) {
	ctx := context.Background()
	env := NewEnvService(failingPhysics{}, nil, entity.NewTargetReference(mgl32.Vec3{}, mgl32.Vec3{}))

	_, err := env.Observe(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine down")

	_, err = env.Tick(ctx, opt.None[command.Command]())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ошибка шага физики")
}

func assertQuatNear(t *testing.T, want, got mgl32.Quat, delta float64) {
	t.Helper()
	assert.InDelta(t, want.W, got.W, delta, "w of %v", got)
	for i := range want.V {
		assert.InDelta(t, want.V[i], got.V[i], delta, "component %d of %v", i, got)
	}
}
