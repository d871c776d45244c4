package effects

import (
	"rocket-lander/backend/internal/core/domain/actuation"
)

// EffectsPort визуальная обратная связь двигателя.
// Отсутствие эффектов не влияет на физику.
type EffectsPort interface {
	// SetEmission задает интенсивность факела
	SetEmission(cmd actuation.EffectCommand)

	// StopAndClear гасит факел и удаляет активные частицы
	StopAndClear()
}

// Nop эффекты, которые ничего не делают
type Nop struct{}

func (Nop) SetEmission(actuation.EffectCommand) {}
func (Nop) StopAndClear()                       {}
