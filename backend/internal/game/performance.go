package game

import (
	"sort"
	"sync"
	"time"
)

// SystemMetrics снимок метрик одной системы
type SystemMetrics struct {
	Name       string        `json:"name"`
	Last       time.Duration `json:"last"`
	Average    time.Duration `json:"average"`
	P95        time.Duration `json:"p95"`
	Max        time.Duration `json:"max"`
	Executions uint64        `json:"executions"`
	Errors     uint64        `json:"errors"`
}

// PerformanceMonitor хранит последние длительности выполнения каждой системы
type PerformanceMonitor struct {
	mu      sync.RWMutex
	window  int
	systems map[string]*systemWindow
}

type systemWindow struct {
	samples    []time.Duration
	next       int
	full       bool
	last       time.Duration
	max        time.Duration
	executions uint64
	errors     uint64
}

// NewPerformanceMonitor создает монитор с окном из window последних замеров
func NewPerformanceMonitor(window int) *PerformanceMonitor {
	if window <= 0 {
		window = 1
	}
	return &PerformanceMonitor{
		window:  window,
		systems: make(map[string]*systemWindow),
	}
}

func (pm *PerformanceMonitor) track(name string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if _, ok := pm.systems[name]; !ok {
		pm.systems[name] = &systemWindow{samples: make([]time.Duration, pm.window)}
	}
}

func (pm *PerformanceMonitor) observe(name string, took time.Duration, failed bool) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	w, ok := pm.systems[name]
	if !ok {
		return
	}
	w.executions++
	if failed {
		w.errors++
	}
	w.last = took
	if took > w.max {
		w.max = took
	}
	w.samples[w.next] = took
	w.next = (w.next + 1) % len(w.samples)
	if w.next == 0 {
		w.full = true
	}
}

// GetSystemMetrics возвращает снимок метрик системы
func (pm *PerformanceMonitor) GetSystemMetrics(name string) (SystemMetrics, bool) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	w, ok := pm.systems[name]
	if !ok {
		return SystemMetrics{}, false
	}
	return w.snapshot(name), true
}

// Snapshot метрики всех систем
func (pm *PerformanceMonitor) Snapshot() []SystemMetrics {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	out := make([]SystemMetrics, 0, len(pm.systems))
	for name, w := range pm.systems {
		out = append(out, w.snapshot(name))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (w *systemWindow) snapshot(name string) SystemMetrics {
	n := w.next
	if w.full {
		n = len(w.samples)
	}
	m := SystemMetrics{
		Name:       name,
		Last:       w.last,
		Max:        w.max,
		Executions: w.executions,
		Errors:     w.errors,
	}
	if n == 0 {
		return m
	}

	sorted := make([]time.Duration, n)
	copy(sorted, w.samples[:n])
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, d := range sorted {
		total += d
	}
	m.Average = total / time.Duration(n)
	m.P95 = sorted[(n*95-1)/100]
	return m
}
