package telemetry

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rocket-lander/backend/internal/core/domain/actuation"
	"rocket-lander/backend/internal/core/domain/entity"
	"rocket-lander/backend/internal/core/domain/episode"
	"rocket-lander/backend/internal/core/domain/observation"
	"rocket-lander/backend/internal/core/domain/service"
	port "rocket-lander/backend/internal/core/port/out/telemetry"
	"rocket-lander/backend/internal/physics"
)

func TestTelemetryManager_RingBuffer(t *testing.T) {
	tm := NewTelemetryManager(3, time.Hour, nil)

	for i := 1; i <= 5; i++ {
		tm.ObserveTick(port.TickRecord{Tick: uint64(i), Mode: "actuate"})
	}
	tm.ObserveTick(port.TickRecord{Tick: 6, Mode: "reset"})

	recent := tm.Recent()
	require.Len(t, recent, 3)
	assert.Equal(t, uint64(4), recent[0].Tick)
	assert.Equal(t, uint64(6), recent[2].Tick)

	assert.Equal(t, map[string]uint64{"actuate": 5, "reset": 1}, tm.Counters())
	assert.Equal(t, uint64(6), tm.Stats()["last_tick"])

	raw, err := tm.GetTelemetryJSON()
	require.NoError(t, err)
	var decoded []port.TickRecord
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	assert.Len(t, decoded, 3)
}

func TestTelemetryManager_DisabledAndClear(t *testing.T) {
	tm := NewTelemetryManager(10, 0, nil)
	tm.ObserveTick(port.TickRecord{Tick: 1, Mode: "none"})

	tm.SetEnabled(false)
	tm.ObserveTick(port.TickRecord{Tick: 2, Mode: "none"})
	assert.Len(t, tm.Recent(), 1)

	tm.SetEnabled(true)
	tm.PrintSummary()
	assert.Empty(t, tm.Counters())

	tm.Clear()
	assert.Empty(t, tm.Recent())
}

func TestEpisodeIndex_RecordAndQuery(t *testing.T) {
	ctx := context.Background()
	idx, err := OpenEpisodeIndex(filepath.Join(t.TempDir(), "index", "episodes.db"))
	require.NoError(t, err)
	defer idx.Close()

	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, idx.Record(ctx, EpisodeSummary{ID: "a", StartedAt: start, EndedAt: start.Add(time.Second), Steps: 10, TotalReward: 1.5, Outcome: "tilted", Path: "a.jsonl.zst"}))
	require.NoError(t, idx.Record(ctx, EpisodeSummary{ID: "b", StartedAt: start.Add(time.Minute), EndedAt: start.Add(2 * time.Minute), Steps: 800, TotalReward: 30, Outcome: "time_limit", Path: "b.jsonl.zst"}))
	require.NoError(t, idx.Record(ctx, EpisodeSummary{ID: "c", StartedAt: start.Add(time.Hour), EndedAt: start.Add(time.Hour), Steps: 3, Outcome: "tilted", Path: "c.jsonl.zst"}))

	recent, err := idx.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "c", recent[0].ID)
	assert.Equal(t, "b", recent[1].ID)
	assert.Equal(t, 800, recent[1].Steps)
	assert.True(t, recent[1].StartedAt.Equal(start.Add(time.Minute)))

	counts, err := idx.CountByOutcome(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"tilted": 2, "time_limit": 1}, counts)

	_, err = OpenEpisodeIndex("")
	assert.Error(t, err)
}

func TestRecorder_EpisodeLifecycle(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	idx, err := OpenEpisodeIndex(filepath.Join(dir, "index.db"))
	require.NoError(t, err)
	defer idx.Close()

	cfg := episode.DefaultConfig()
	cfg.MaxSteps = 5
	rec := NewRecorder(filepath.Join(dir, "episodes"), episode.NewEvaluator(cfg), idx, nil)

	env := service.NewEnvService(
		physics.NewRigidBody(physics.DefaultPhysicsConfig()),
		actuation.NewModel(actuation.DefaultConfig()),
		entity.NewTargetReference(mgl32.Vec3{}, mgl32.Vec3{0, -3.4, 0}),
		service.WithObservers(rec),
	)

	// до первого сброса эпизода нет
	_, err = env.HandleLine(ctx, "0,0,0,0.5,0")
	require.NoError(t, err)
	assert.Empty(t, rec.Finished())

	_, err = env.HandleLine(ctx, "1,0,100,0,0,0")
	require.NoError(t, err)
	for i := 0; i < 7; i++ {
		_, err = env.HandleLine(ctx, "0,0,0,0.66,0")
		require.NoError(t, err)
	}

	finished := rec.Finished()
	require.Len(t, finished, 1)
	ep := finished[0]
	assert.Equal(t, string(episode.OutcomeTimeLimit), ep.Outcome)
	assert.Equal(t, 5, ep.Steps)

	entries, err := ReadEpisode(ep.Path)
	require.NoError(t, err)
	require.Len(t, entries, 6)
	assert.Equal(t, "reset", entries[0].Mode)
	assert.Nil(t, entries[0].Verdict)
	assert.Equal(t, 5, entries[5].Step)
	require.NotNil(t, entries[5].Verdict)
	assert.True(t, entries[5].Verdict.Done)
	assert.InDelta(t, float64(100-3.4), float64(entries[0].Obs[observation.DY]), 1e-4)

	// новый сброс открывает следующий эпизод, Close прерывает его
	_, err = env.HandleLine(ctx, "1,0,100,0,0,0")
	require.NoError(t, err)
	require.NoError(t, rec.Close())

	finished = rec.Finished()
	require.Len(t, finished, 2)
	assert.Equal(t, string(episode.OutcomeAborted), finished[1].Outcome)

	counts, err := idx.CountByOutcome(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"time_limit": 1, "aborted": 1}, counts)
}
