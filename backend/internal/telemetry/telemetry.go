package telemetry

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	port "rocket-lander/backend/internal/core/port/out/telemetry"
)

var _ port.TickObserver = (*TelemetryManager)(nil)

// TelemetryManager хранит последние тики в кольцевом буфере и считает режимы команд
type TelemetryManager struct {
	enabled    bool
	data       []port.TickRecord
	next       int
	filled     bool
	mutex      sync.RWMutex
	maxEntries int

	// Счетчики для статистики
	counters      map[string]uint64
	total         uint64
	lastPrint     time.Time
	printInterval time.Duration

	logger *zap.Logger
}

// NewTelemetryManager создает менеджер телеметрии
func NewTelemetryManager(maxEntries int, printInterval time.Duration, logger *zap.Logger) *TelemetryManager {
	if maxEntries <= 0 {
		maxEntries = 200
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TelemetryManager{
		enabled:       true,
		data:          make([]port.TickRecord, maxEntries),
		maxEntries:    maxEntries,
		counters:      make(map[string]uint64),
		lastPrint:     time.Now(),
		printInterval: printInterval,
		logger:        logger.Named("Telemetry"),
	}
}

// ObserveTick записывает тик
func (tm *TelemetryManager) ObserveTick(rec port.TickRecord) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	if !tm.enabled {
		return
	}

	tm.data[tm.next] = rec
	tm.next = (tm.next + 1) % tm.maxEntries
	if tm.next == 0 {
		tm.filled = true
	}

	tm.counters[rec.Mode]++
	tm.total++
}

// Recent возвращает записи от старых к новым
func (tm *TelemetryManager) Recent() []port.TickRecord {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	if !tm.filled {
		out := make([]port.TickRecord, tm.next)
		copy(out, tm.data[:tm.next])
		return out
	}
	out := make([]port.TickRecord, 0, tm.maxEntries)
	out = append(out, tm.data[tm.next:]...)
	out = append(out, tm.data[:tm.next]...)
	return out
}

// Counters копия счетчиков по режимам с момента последней сводки
func (tm *TelemetryManager) Counters() map[string]uint64 {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	out := make(map[string]uint64, len(tm.counters))
	for k, v := range tm.counters {
		out[k] = v
	}
	return out
}

// PrintSummary выводит сводку не чаще printInterval и сбрасывает счетчики
func (tm *TelemetryManager) PrintSummary() {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	if !tm.enabled {
		return
	}

	now := time.Now()
	if now.Sub(tm.lastPrint) < tm.printInterval {
		return
	}

	fields := []zap.Field{zap.Uint64("total", tm.total)}
	for mode, count := range tm.counters {
		fields = append(fields, zap.Uint64(mode, count))
	}

	if last, ok := tm.lastLocked(); ok {
		fields = append(fields,
			zap.Uint64("tick", last.Tick),
			zap.Float32s("position", last.Body.Position[:]),
			zap.Float32s("velocity", last.Body.LinearVelocity[:]),
			zap.String("obs", last.Obs.String()))
	}
	tm.logger.Info("сводка телеметрии", fields...)

	tm.counters = make(map[string]uint64)
	tm.lastPrint = now
}

// Run печатает сводку каждые printInterval до отмены ctx
func (tm *TelemetryManager) Run(ctx context.Context) error {
	if tm.printInterval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(tm.printInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			tm.PrintSummary()
		}
	}
}

func (tm *TelemetryManager) lastLocked() (port.TickRecord, bool) {
	if !tm.filled && tm.next == 0 {
		return port.TickRecord{}, false
	}
	idx := (tm.next - 1 + tm.maxEntries) % tm.maxEntries
	return tm.data[idx], true
}

// GetTelemetryJSON возвращает буфер телеметрии в JSON
func (tm *TelemetryManager) GetTelemetryJSON() (string, error) {
	jsonData, err := json.MarshalIndent(tm.Recent(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

// Stats сводка для /healthz
func (tm *TelemetryManager) Stats() map[string]interface{} {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	stats := map[string]interface{}{
		"enabled": tm.enabled,
		"total":   tm.total,
	}
	if last, ok := tm.lastLocked(); ok {
		stats["last_tick"] = last.Tick
	}
	return stats
}

// SetEnabled включает/выключает телеметрию
func (tm *TelemetryManager) SetEnabled(enabled bool) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	tm.enabled = enabled
	tm.logger.Info("телеметрия переключена", zap.Bool("enabled", enabled))
}

// Clear очищает все данные телеметрии
func (tm *TelemetryManager) Clear() {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	tm.data = make([]port.TickRecord, tm.maxEntries)
	tm.next = 0
	tm.filled = false
	tm.counters = make(map[string]uint64)
	tm.total = 0
}
