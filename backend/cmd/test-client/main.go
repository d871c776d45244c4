package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"rocket-lander/backend/internal/adapter/in/ws"
	"rocket-lander/backend/internal/core/domain/command"
	"rocket-lander/backend/internal/core/domain/observation"
)

var CLI struct {
	Server   string        `help:"Адрес WebSocket сервера среды." default:"localhost:8080"`
	Steps    int           `help:"Сколько команд Actuate отправить после сброса." default:"10"`
	Thrust   float32       `help:"Тяга для каждой команды." default:"1"`
	Altitude float32       `help:"Высота стартового сброса." default:"250"`
	Timeout  time.Duration `help:"Таймаут ответа." default:"5s"`
}

func main() {
	kong.Parse(&CLI,
		kong.Name("test-client"),
		kong.Description("проверка WebSocket транспорта среды посадки"),
		kong.UsageOnError())

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	u := url.URL{Scheme: "ws", Host: CLI.Server, Path: "/ws"}
	logger.Info("подключение", zap.String("url", u.String()))

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		logger.Fatal("ошибка подключения", zap.Error(err))
	}
	defer conn.Close()

	// Сброс, затем серия одинаковых команд
	commands := []command.Command{command.Reset{Position: mgl32.Vec3{0, CLI.Altitude, 0}}}
	for i := 0; i < CLI.Steps; i++ {
		commands = append(commands, command.Actuate{Thrust: CLI.Thrust})
	}

	for i, cmd := range commands {
		line := command.Format(cmd)
		if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
			logger.Fatal("ошибка отправки", zap.Error(err))
		}

		conn.SetReadDeadline(time.Now().Add(CLI.Timeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			logger.Fatal("ошибка чтения", zap.Int("step", i), zap.Error(err))
		}

		obs, err := observation.Decode(string(data))
		if err != nil {
			logger.Error("некорректное наблюдение", zap.String("raw", string(data)), zap.Error(err))
			continue
		}
		logger.Info("наблюдение",
			zap.Int("step", i),
			zap.String("cmd", line),
			zap.Float32("dy", obs[observation.DY]),
			zap.Float32("vy", obs[observation.VY]))
	}

	// Проверяем /healthz
	resp, err := http.Get("http://" + CLI.Server + "/healthz")
	if err != nil {
		logger.Fatal("healthz недоступен", zap.Error(err))
	}
	defer resp.Body.Close()

	var health ws.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		logger.Fatal("некорректный ответ healthz", zap.Error(err))
	}
	logger.Info("healthz",
		zap.String("status", health.Status),
		zap.Int("sessions", health.Sessions),
		zap.Any("stats", health.Stats))
}
