package effects

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"rocket-lander/backend/internal/core/domain/actuation"
)

func TestEmitter_Lifecycle(t *testing.T) {
	e := NewEmitter(nil)
	assert.Equal(t, actuation.EffectCommand{}, e.Snapshot())

	e.SetEmission(actuation.Emission(0.5))
	assert.Equal(t, actuation.EffectCommand{Playing: true, Rate: 250}, e.Snapshot())

	// нулевая тяга гасит эмиссию, но не останавливает систему частиц
	e.SetEmission(actuation.Emission(0))
	assert.Equal(t, actuation.EffectCommand{Playing: true, Rate: 0}, e.Snapshot())

	e.StopAndClear()
	assert.Equal(t, actuation.EffectCommand{}, e.Snapshot())
	assert.Equal(t, uint64(1), e.Clears())
}

func TestEmitter_Stats(t *testing.T) {
	e := NewEmitter(nil)
	assert.Equal(t, EmitterStats{}, e.Stats())

	e.SetEmission(actuation.Emission(1))
	e.StopAndClear()
	e.SetEmission(actuation.Emission(0.5))

	assert.Equal(t, EmitterStats{Playing: true, Rate: 250, Clears: 1}, e.Stats())
}
