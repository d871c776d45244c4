package ws

import (
	"time"
)

// HealthResponse ответ /healthz
type HealthResponse struct {
	Status     string                 `json:"status"`
	Sessions   int                    `json:"sessions"`
	ServerTime int64                  `json:"server_time"`
	Stats      map[string]interface{} `json:"stats,omitempty"`
}

// GetCurrentServerTime возвращает текущее серверное время в миллисекундах
func GetCurrentServerTime() int64 {
	return time.Now().UnixMilli()
}

// NewHealthResponse создает ответ о состоянии сервера
func NewHealthResponse(sessions int, stats map[string]interface{}) HealthResponse {
	return HealthResponse{
		Status:     "ok",
		Sessions:   sessions,
		ServerTime: GetCurrentServerTime(),
		Stats:      stats,
	}
}
