package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	DefaultPingInterval = 10 * time.Second
	maxMessageSize      = 64 * 1024
)

// LineHandler обрабатывает одну строку агента и возвращает ответ
type LineHandler interface {
	HandleLine(ctx context.Context, raw string) (string, error)
}

// StatsProvider отдает статистику для /healthz
type StatsProvider func() map[string]interface{}

// RenderProvider отдает сглаженное наблюдение для зрителей; false - отображать нечего
type RenderProvider func() (string, bool)

// WSAdapter адаптер для WebSocket соединений.
// Каждый текстовый кадр - одна строка команды, ответ - строка наблюдения.
type WSAdapter struct {
	upgrader     websocket.Upgrader
	handler      LineHandler
	replies      bool
	pingInterval time.Duration
	stats        StatsProvider
	render       RenderProvider

	clients   map[*SafeWriter]string // writer -> id сессии
	clientsMu sync.Mutex

	logger *zap.Logger
}

// Option настройка WSAdapter
type Option func(*WSAdapter)

// WithReplies включает ответ на каждый кадр.
// В режиме реального времени ответы выключают: наблюдения приходят рассылкой.
func WithReplies(enabled bool) Option {
	return func(a *WSAdapter) { a.replies = enabled }
}

// WithPingInterval задает интервал ping кадров
func WithPingInterval(interval time.Duration) Option {
	return func(a *WSAdapter) { a.pingInterval = interval }
}

// WithStats подключает статистику к /healthz
func WithStats(stats StatsProvider) Option {
	return func(a *WSAdapter) { a.stats = stats }
}

// WithRender подключает /render
func WithRender(render RenderProvider) Option {
	return func(a *WSAdapter) { a.render = render }
}

// NewWSAdapter создает новый экземпляр WSAdapter
func NewWSAdapter(handler LineHandler, logger *zap.Logger, opts ...Option) *WSAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &WSAdapter{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		handler:      handler,
		replies:      true,
		pingInterval: DefaultPingInterval,
		clients:      make(map[*SafeWriter]string),
		logger:       logger.Named("WS"),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Handler возвращает маршруты /ws, /healthz и /render
func (a *WSAdapter) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", a.HandleWS)
	mux.HandleFunc("/healthz", a.HandleHealth)
	mux.HandleFunc("/render", a.HandleRender)
	return mux
}

// ListenAndServe слушает addr до отмены ctx
func (a *WSAdapter) ListenAndServe(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("не удалось слушать %s: %w", addr, err)
	}
	return a.Serve(ctx, lis)
}

// Serve обслуживает HTTP на lis до отмены ctx
func (a *WSAdapter) Serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		a.closeClients()
	}()

	a.logger.Info("WebSocket сервер слушает", zap.String("addr", lis.Addr().String()))
	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ошибка HTTP сервера: %w", err)
	}
	return nil
}

// HandleHealth отвечает на /healthz
func (a *WSAdapter) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	var stats map[string]interface{}
	if a.stats != nil {
		stats = a.stats()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(NewHealthResponse(a.Sessions(), stats)); err != nil {
		a.logger.Warn("ошибка записи /healthz", zap.Error(err))
	}
}

// HandleRender отдает строку наблюдения, интерполированную между шагами физики
func (a *WSAdapter) HandleRender(w http.ResponseWriter, _ *http.Request) {
	if a.render == nil {
		http.Error(w, "render disabled", http.StatusNotFound)
		return
	}
	line, ok := a.render()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := io.WriteString(w, line+"\n"); err != nil {
		a.logger.Warn("ошибка записи /render", zap.Error(err))
	}
}

// HandleWS обрабатывает WebSocket соединения
func (a *WSAdapter) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Warn("ошибка при установке WebSocket соединения", zap.Error(err))
		return
	}

	writer := NewSafeWriter(conn)
	id := uuid.NewString()
	logger := a.logger.With(zap.String("session", id), zap.String("remote", conn.RemoteAddr().String()))

	a.clientsMu.Lock()
	a.clients[writer] = id
	a.clientsMu.Unlock()
	logger.Info("агент подключен")

	stopPing := make(chan struct{})
	defer func() {
		close(stopPing)
		a.clientsMu.Lock()
		delete(a.clients, writer)
		a.clientsMu.Unlock()
		writer.Close()
		logger.Info("агент отключен")
	}()

	conn.SetReadLimit(maxMessageSize)
	if a.pingInterval > 0 {
		readWait := a.pingInterval * 2
		conn.SetReadDeadline(time.Now().Add(readWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(readWait))
		})
		go a.pingLoop(writer, stopPing, logger)
	}

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("ошибка при чтении сообщения", zap.Error(err))
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		if a.pingInterval > 0 {
			conn.SetReadDeadline(time.Now().Add(a.pingInterval * 2))
		}

		reply, err := a.handler.HandleLine(r.Context(), string(data))
		if err != nil {
			logger.Error("ошибка обработки команды", zap.ByteString("raw", data), zap.Error(err))
			reply = ""
		}
		if !a.replies {
			continue
		}
		if err := writer.WriteText(reply); err != nil {
			logger.Warn("ошибка отправки ответа", zap.Error(err))
			return
		}
	}
}

func (a *WSAdapter) pingLoop(writer *SafeWriter, stop <-chan struct{}, logger *zap.Logger) {
	ticker := time.NewTicker(a.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := writer.WritePing(); err != nil {
				logger.Debug("ping не отправлен", zap.Error(err))
				return
			}
		}
	}
}

// BroadcastObservation отправляет наблюдение всем подключенным клиентам
func (a *WSAdapter) BroadcastObservation(line string) {
	a.clientsMu.Lock()
	clients := make([]*SafeWriter, 0, len(a.clients))
	for client := range a.clients {
		clients = append(clients, client)
	}
	a.clientsMu.Unlock()

	for _, client := range clients {
		if err := client.WriteText(line); err != nil {
			a.logger.Debug("ошибка при отправке наблюдения клиенту", zap.Error(err))
		}
	}
}

// Sessions количество подключенных клиентов
func (a *WSAdapter) Sessions() int {
	a.clientsMu.Lock()
	defer a.clientsMu.Unlock()
	return len(a.clients)
}

func (a *WSAdapter) closeClients() {
	a.clientsMu.Lock()
	defer a.clientsMu.Unlock()
	for client := range a.clients {
		client.Close()
	}
}
