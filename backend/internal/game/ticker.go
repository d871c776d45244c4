package game

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TickSystem система, которую цикл вызывает на каждом тике
type TickSystem interface {
	Update(ctx context.Context, deltaTime time.Duration) error
	GetName() string
	GetPriority() int // меньше - раньше
}

// TickerStats снимок состояния цикла
type TickerStats struct {
	TargetTPS    int           `json:"target_tps"`
	ActualTPS    float64       `json:"actual_tps"`
	Ticks        uint64        `json:"ticks"`
	LateTicks    uint64        `json:"late_ticks"`
	Uptime       time.Duration `json:"uptime"`
	AverageTick  time.Duration `json:"average_tick"`
	SlowestTick  time.Duration `json:"slowest_tick"`
	Running      bool          `json:"running"`
	Paused       bool          `json:"paused"`
	SystemsCount int           `json:"systems"`
}

// GameTicker цикл реального времени: на каждом тике по очереди выполняет системы
type GameTicker struct {
	period time.Duration
	tps    int

	mu        sync.RWMutex
	running   bool
	paused    bool
	ticks     uint64
	lateTicks uint64
	started   time.Time
	lastTick  time.Time
	avgTick   time.Duration
	slowest   time.Duration

	systemsMu sync.RWMutex
	systems   []TickSystem

	perf   *PerformanceMonitor
	cancel context.CancelFunc
	done   chan struct{}
	pause  chan bool

	logger *zap.Logger
}

// NewGameTicker создает тикер с частотой tps
func NewGameTicker(tps int, logger *zap.Logger) *GameTicker {
	if tps <= 0 {
		tps = 50 // шаг физики 0.02 с
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GameTicker{
		period: time.Second / time.Duration(tps),
		tps:    tps,
		perf:   NewPerformanceMonitor(100),
		pause:  make(chan bool, 1),
		logger: logger.Named("GameTicker"),
	}
}

// Start запускает цикл в отдельной горутине
func (gt *GameTicker) Start(ctx context.Context) error {
	gt.mu.Lock()
	defer gt.mu.Unlock()

	if gt.running {
		return fmt.Errorf("тикер уже запущен")
	}

	ctx, gt.cancel = context.WithCancel(ctx)
	gt.done = make(chan struct{})
	gt.running = true
	gt.started = time.Now()
	gt.lastTick = gt.started

	gt.logger.Info("запуск цикла", zap.Int("tps", gt.tps), zap.Duration("period", gt.period))

	go func() {
		defer close(gt.done)
		gt.loop(ctx)
	}()
	return nil
}

// Run запускает цикл и блокируется до отмены ctx
func (gt *GameTicker) Run(ctx context.Context) error {
	if err := gt.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	gt.Stop()
	return nil
}

// Stop останавливает цикл и дожидается выхода из него
func (gt *GameTicker) Stop() {
	gt.mu.Lock()
	if !gt.running {
		gt.mu.Unlock()
		return
	}
	gt.running = false
	cancel, done := gt.cancel, gt.done
	gt.mu.Unlock()

	cancel()
	<-done

	gt.logger.Info("цикл остановлен", zap.Uint64("ticks", gt.GetTickCount()))
}

// Pause приостанавливает или возобновляет цикл
func (gt *GameTicker) Pause(pause bool) {
	gt.mu.Lock()
	gt.paused = pause
	gt.mu.Unlock()

	// в канале только последнее желаемое состояние
	select {
	case <-gt.pause:
	default:
	}
	gt.pause <- pause
}

// RegisterSystem добавляет систему; порядок выполнения по приоритету, при равенстве - по регистрации
func (gt *GameTicker) RegisterSystem(system TickSystem) {
	gt.systemsMu.Lock()
	gt.systems = append(gt.systems, system)
	sort.SliceStable(gt.systems, func(i, j int) bool {
		return gt.systems[i].GetPriority() < gt.systems[j].GetPriority()
	})
	gt.systemsMu.Unlock()

	gt.perf.track(system.GetName())
	gt.logger.Info("зарегистрирована система",
		zap.String("system", system.GetName()),
		zap.Int("priority", system.GetPriority()))
}

func (gt *GameTicker) loop(ctx context.Context) {
	ticker := time.NewTicker(gt.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case paused := <-gt.pause:
			for paused {
				select {
				case <-ctx.Done():
					return
				case paused = <-gt.pause:
				}
			}
		case now := <-ticker.C:
			gt.executeTick(ctx, now)
		}
	}
}

// executeTick выполняет все системы один раз
func (gt *GameTicker) executeTick(ctx context.Context, now time.Time) {
	begin := time.Now()

	gt.mu.Lock()
	delta := now.Sub(gt.lastTick)
	if !gt.lastTick.IsZero() && delta > 2*gt.period {
		gt.lateTicks++
		gt.logger.Warn("тик опоздал", zap.Duration("delta", delta), zap.Duration("period", gt.period))
	}
	gt.ticks++
	gt.lastTick = now
	gt.mu.Unlock()

	gt.systemsMu.RLock()
	systems := append([]TickSystem(nil), gt.systems...)
	gt.systemsMu.RUnlock()

	for _, system := range systems {
		gt.executeSystem(ctx, system, delta)
	}

	gt.recordTick(time.Since(begin))
}

func (gt *GameTicker) executeSystem(ctx context.Context, system TickSystem, delta time.Duration) {
	name := system.GetName()
	begin := time.Now()

	defer func() {
		if r := recover(); r != nil {
			gt.logger.Error("паника в системе", zap.String("system", name), zap.Any("panic", r))
			gt.perf.observe(name, time.Since(begin), true)
		}
	}()

	err := system.Update(ctx, delta)
	gt.perf.observe(name, time.Since(begin), err != nil)
	if err != nil {
		gt.logger.Error("ошибка в системе", zap.String("system", name), zap.Error(err))
	}
}

func (gt *GameTicker) recordTick(took time.Duration) {
	gt.mu.Lock()
	if took > gt.slowest {
		gt.slowest = took
	}
	// экспоненциальное среднее с весом 0.1
	if gt.avgTick == 0 {
		gt.avgTick = took
	} else {
		gt.avgTick = (gt.avgTick*9 + took) / 10
	}
	gt.mu.Unlock()

	switch {
	case took > 2*gt.period:
		gt.logger.Warn("тик дольше двух периодов", zap.Duration("took", took), zap.Duration("period", gt.period))
	case took > gt.period/2:
		gt.logger.Debug("медленный тик", zap.Duration("took", took), zap.Duration("period", gt.period))
	}
}

// GetStats возвращает снимок состояния цикла
func (gt *GameTicker) GetStats() TickerStats {
	gt.systemsMu.RLock()
	systems := len(gt.systems)
	gt.systemsMu.RUnlock()

	gt.mu.RLock()
	defer gt.mu.RUnlock()

	stats := TickerStats{
		TargetTPS:    gt.tps,
		Ticks:        gt.ticks,
		LateTicks:    gt.lateTicks,
		AverageTick:  gt.avgTick,
		SlowestTick:  gt.slowest,
		Running:      gt.running,
		Paused:       gt.paused,
		SystemsCount: systems,
	}
	if !gt.started.IsZero() {
		stats.Uptime = time.Since(gt.started)
		if stats.Uptime > 0 {
			stats.ActualTPS = float64(gt.ticks) / stats.Uptime.Seconds()
		}
	}
	return stats
}

// GetTickCount возвращает количество выполненных тиков
func (gt *GameTicker) GetTickCount() uint64 {
	gt.mu.RLock()
	defer gt.mu.RUnlock()
	return gt.ticks
}

// Alpha доля периода, прошедшая с последнего тика, в [0,1].
// Остановленный цикл всегда отдает 1: показывается последний шаг.
func (gt *GameTicker) Alpha() float32 {
	gt.mu.RLock()
	defer gt.mu.RUnlock()

	if !gt.running || gt.paused || gt.lastTick.IsZero() {
		return 1
	}
	alpha := float32(time.Since(gt.lastTick)) / float32(gt.period)
	if alpha > 1 {
		return 1
	}
	return alpha
}

// PerformanceMonitor возвращает монитор систем
func (gt *GameTicker) PerformanceMonitor() *PerformanceMonitor {
	return gt.perf
}
