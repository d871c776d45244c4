package main

import (
	"context"
	"math/rand"
	"net"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rocket-lander/backend/internal/adapter/in/tcp"
	"rocket-lander/backend/internal/core/domain/actuation"
	"rocket-lander/backend/internal/core/domain/entity"
	"rocket-lander/backend/internal/core/domain/episode"
	"rocket-lander/backend/internal/core/domain/observation"
	"rocket-lander/backend/internal/core/domain/service"
	"rocket-lander/backend/internal/physics"
)

func startEnv(t *testing.T) string {
	t.Helper()
	env := service.NewEnvService(
		physics.NewRigidBody(physics.DefaultPhysicsConfig()),
		actuation.NewModel(actuation.DefaultConfig()),
		entity.NewTargetReference(mgl32.Vec3{}, mgl32.Vec3{0, -3.4, 0}),
	)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = tcp.NewServer(env, nil).Serve(ctx, lis)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return lis.Addr().String()
}

func TestBot_RunEpisodes(t *testing.T) {
	addr := startEnv(t)

	cfg := episode.DefaultConfig()
	cfg.MaxSteps = 25
	bot, err := NewBot(addr, episode.NewEvaluator(cfg), rand.New(rand.NewSource(42)), zap.NewNop())
	require.NoError(t, err)
	defer bot.Close()

	for i := 0; i < 3; i++ {
		verdict, err := bot.RunEpisode(context.Background())
		require.NoError(t, err)
		assert.True(t, verdict.Done)
	}

	assert.Equal(t, 3, bot.Stats.Episodes)
	total := 0
	for _, n := range bot.Stats.Outcomes {
		total += n
	}
	assert.Equal(t, 3, total)
	assert.GreaterOrEqual(t, bot.Stats.CommandsSent, 6)
}

func TestBot_ControlStaysInRange(t *testing.T) {
	bot := &Bot{hover: 0.66}

	var falling observation.Observation
	falling[observation.DY] = 100
	falling[observation.VY] = -60
	falling[observation.QX] = 0.3
	falling[observation.QW] = 1

	cmd := bot.control(falling)
	assert.Equal(t, float32(1), cmd.Thrust)
	assert.Less(t, cmd.Pitch, float32(0))
	assert.GreaterOrEqual(t, cmd.Pitch, float32(-1))

	var rising observation.Observation
	rising[observation.DY] = 100
	rising[observation.VY] = 30
	rising[observation.QW] = 1
	assert.Equal(t, float32(0), bot.control(rising).Thrust)
}

func TestBot_DialError(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	lis.Close()

	_, err = NewBot(addr, episode.NewEvaluator(episode.DefaultConfig()), rand.New(rand.NewSource(1)), zap.NewNop())
	assert.Error(t, err)
}
