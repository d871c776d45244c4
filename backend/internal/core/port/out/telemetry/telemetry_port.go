package telemetry

import (
	"time"

	"rocket-lander/backend/internal/core/domain/actuation"
	"rocket-lander/backend/internal/core/domain/command"
	"rocket-lander/backend/internal/core/domain/entity"
	"rocket-lander/backend/internal/core/domain/observation"
)

// TickRecord описание одного выполненного тика
type TickRecord struct {
	Tick      uint64                  `json:"tick"`
	Timestamp time.Time               `json:"timestamp"`
	Mode      string                  `json:"mode"`
	Reset     *command.Reset          `json:"reset,omitempty"`
	Actuate   *command.Actuate        `json:"actuate,omitempty"`
	Applied   *actuation.Result       `json:"applied,omitempty"`
	Body      entity.BodyState        `json:"body"`
	Obs       observation.Observation `json:"obs"`
}

// TickObserver получает записи о каждом тике
type TickObserver interface {
	ObserveTick(rec TickRecord)
}

// ModeNone - в тике не было команды или она не разобрана
const ModeNone = "none"
