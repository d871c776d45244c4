package effects

import (
	"sync"

	"go.uber.org/zap"

	"rocket-lander/backend/internal/core/domain/actuation"
	port "rocket-lander/backend/internal/core/port/out/effects"
)

var _ port.EffectsPort = (*Emitter)(nil)

// Emitter хранит состояние факела двигателя для зрителей.
// Физику не трогает.
type Emitter struct {
	mu     sync.RWMutex
	state  actuation.EffectCommand
	clears uint64
	logger *zap.Logger
}

// NewEmitter создает эмиттер частиц
func NewEmitter(logger *zap.Logger) *Emitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Emitter{logger: logger.Named("Effects")}
}

// SetEmission применяет команду эффекта
func (e *Emitter) SetEmission(cmd actuation.EffectCommand) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if cmd.Playing && !e.state.Playing {
		e.logger.Debug("факел включен", zap.Float32("rate", cmd.Rate))
	}
	// факел продолжает "играть" с нулевой эмиссией, пока его не остановят
	e.state.Rate = cmd.Rate
	if cmd.Playing {
		e.state.Playing = true
	}
}

// StopAndClear останавливает и очищает эффект
func (e *Emitter) StopAndClear() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state = actuation.EffectCommand{}
	e.clears++
	e.logger.Debug("факел остановлен и очищен")
}

// Snapshot возвращает текущее состояние эффекта
func (e *Emitter) Snapshot() actuation.EffectCommand {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.state
}

// Clears количество полных сбросов эффекта
func (e *Emitter) Clears() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.clears
}

// EmitterStats снимок эмиттера для /healthz
type EmitterStats struct {
	Playing bool    `json:"playing"`
	Rate    float32 `json:"rate"`
	Clears  uint64  `json:"clears"`
}

// Stats возвращает состояние факела вместе со счетчиком сбросов
func (e *Emitter) Stats() EmitterStats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return EmitterStats{Playing: e.state.Playing, Rate: e.state.Rate, Clears: e.clears}
}
