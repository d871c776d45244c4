package game

import (
	"context"
	"time"

	"go.uber.org/zap"

	"rocket-lander/backend/internal/core/port/in/environment"
)

// ObservationBroadcaster рассылает наблюдения подписчикам
type ObservationBroadcaster interface {
	BroadcastObservation(line string)
}

// EnvironmentSystem продвигает среду на каждом тике цикла
type EnvironmentSystem struct {
	name         string
	priority     int
	env          environment.EnvironmentPort
	mailbox      *Mailbox
	broadcasters []ObservationBroadcaster
	logger       *zap.Logger
}

// NewEnvironmentSystem создает систему среды
func NewEnvironmentSystem(env environment.EnvironmentPort, mailbox *Mailbox, logger *zap.Logger, broadcasters ...ObservationBroadcaster) *EnvironmentSystem {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnvironmentSystem{
		name:         "EnvironmentSystem",
		priority:     10,
		env:          env,
		mailbox:      mailbox,
		broadcasters: broadcasters,
		logger:       logger.Named("EnvironmentSystem"),
	}
}

// Update применяет команду из ящика, шагает физику и рассылает наблюдение
func (es *EnvironmentSystem) Update(ctx context.Context, _ time.Duration) error {
	line, err := es.env.Tick(ctx, es.mailbox.Take())
	if err != nil {
		return err
	}

	es.mailbox.Publish(line)
	if line == "" {
		return nil
	}
	for _, b := range es.broadcasters {
		b.BroadcastObservation(line)
	}
	return nil
}

// GetName возвращает имя системы
func (es *EnvironmentSystem) GetName() string {
	return es.name
}

// GetPriority возвращает приоритет системы
func (es *EnvironmentSystem) GetPriority() int {
	return es.priority
}

// GameMetricsSystem периодически логирует метрики цикла
type GameMetricsSystem struct {
	name       string
	priority   int
	gameTicker *GameTicker
	mailbox    *Mailbox
	logger     *zap.Logger

	lastMetricsLog  time.Time
	metricsInterval time.Duration
}

// NewGameMetricsSystem создает систему сбора метрик
func NewGameMetricsSystem(gameTicker *GameTicker, mailbox *Mailbox, interval time.Duration, logger *zap.Logger) *GameMetricsSystem {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &GameMetricsSystem{
		name:            "GameMetricsSystem",
		priority:        200, // метрики в самом конце тика
		gameTicker:      gameTicker,
		mailbox:         mailbox,
		logger:          logger.Named("GameMetrics"),
		metricsInterval: interval,
	}
}

// Update собирает и логирует метрики
func (gms *GameMetricsSystem) Update(_ context.Context, _ time.Duration) error {
	now := time.Now()
	if now.Sub(gms.lastMetricsLog) < gms.metricsInterval {
		return nil
	}
	gms.lastMetricsLog = now

	stats := gms.gameTicker.GetStats()
	mail := gms.mailbox.Stats()

	fields := []zap.Field{
		zap.Float64("actual_tps", stats.ActualTPS),
		zap.Int("target_tps", stats.TargetTPS),
		zap.Uint64("ticks", stats.Ticks),
		zap.Uint64("late_ticks", stats.LateTicks),
		zap.Duration("average_tick", stats.AverageTick),
		zap.Uint64("commands", mail.Posted),
		zap.Uint64("dropped", mail.Dropped),
		zap.Uint64("overwritten", mail.Overwritten),
	}
	for _, m := range gms.gameTicker.PerformanceMonitor().Snapshot() {
		fields = append(fields, zap.Duration(m.Name+"_p95", m.P95))
	}
	gms.logger.Info("метрики цикла", fields...)

	if stats.ActualTPS > 0 && stats.ActualTPS < float64(stats.TargetTPS)*0.9 {
		gms.logger.Warn("TPS снижен", zap.Float64("actual_tps", stats.ActualTPS))
	}
	return nil
}

// GetName возвращает имя системы
func (gms *GameMetricsSystem) GetName() string {
	return gms.name
}

// GetPriority возвращает приоритет системы
func (gms *GameMetricsSystem) GetPriority() int {
	return gms.priority
}
