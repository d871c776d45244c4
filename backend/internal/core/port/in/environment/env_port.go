package environment

import (
	"context"

	"github.com/repeale/fp-go/option"

	"rocket-lander/backend/internal/core/domain/command"
)

// EnvironmentPort определяет интерфейс управления средой со стороны агента
type EnvironmentPort interface {
	// HandleLine разбирает строку агента, выполняет один тик и возвращает наблюдение
	HandleLine(ctx context.Context, raw string) (string, error)

	// Tick применяет не более одной команды, продвигает физику и кодирует наблюдение
	Tick(ctx context.Context, cmd opt.Option[command.Command]) (string, error)

	// Reset телепортирует ракету без шага физики
	Reset(ctx context.Context, cmd command.Reset) error

	// Observe возвращает наблюдение без шага физики
	Observe(ctx context.Context) (string, error)
}
