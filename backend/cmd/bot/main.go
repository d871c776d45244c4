package main

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"math/rand"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"rocket-lander/backend/internal/core/domain/command"
	"rocket-lander/backend/internal/core/domain/episode"
	"rocket-lander/backend/internal/core/domain/observation"
)

var CLI struct {
	Addr     string        `help:"Адрес TCP сервера среды." default:"127.0.0.1:5000"`
	Episodes int           `help:"Сколько эпизодов сыграть." default:"10"`
	Seed     int64         `help:"Зерно генератора стартовых позиций, 0 - по времени."`
	MaxSteps int           `help:"Ограничение длины эпизода." name:"max-steps" default:"800"`
	Hover    float64       `help:"Тяга зависания в долях от максимальной." default:"0.66"`
	Timeout  time.Duration `help:"Таймаут ответа сервера." default:"5s"`
	Debug    bool          `help:"Включить отладочное логирование."`
}

// Bot играет эпизоды простым ПД регулятором по одному TCP соединению
type Bot struct {
	ID        string
	conn      net.Conn
	reader    *bufio.Reader
	evaluator *episode.Evaluator
	rng       *rand.Rand
	timeout   time.Duration
	hover     float64
	logger    *zap.Logger

	Stats BotStats
}

// BotStats содержит статистику работы бота
type BotStats struct {
	Episodes     int
	CommandsSent int
	Outcomes     map[episode.Outcome]int
	TotalReward  float64
	StartTime    time.Time
}

// NewBot подключается к серверу среды
func NewBot(addr string, evaluator *episode.Evaluator, rng *rand.Rand, logger *zap.Logger) (*Bot, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к %s: %w", addr, err)
	}
	id := uuid.NewString()
	return &Bot{
		ID:        id,
		conn:      conn,
		reader:    bufio.NewReader(conn),
		evaluator: evaluator,
		rng:       rng,
		timeout:   5 * time.Second,
		hover:     0.66,
		logger:    logger.With(zap.String("bot", id)),
		Stats: BotStats{
			Outcomes:  make(map[episode.Outcome]int),
			StartTime: time.Now(),
		},
	}, nil
}

// Close закрывает соединение
func (b *Bot) Close() error {
	return b.conn.Close()
}

// send отправляет команду и ждет строку наблюдения
func (b *Bot) send(cmd command.Command) (observation.Observation, error) {
	if err := b.conn.SetDeadline(time.Now().Add(b.timeout)); err != nil {
		return observation.Observation{}, err
	}
	if _, err := fmt.Fprintf(b.conn, "%s\n", command.Format(cmd)); err != nil {
		return observation.Observation{}, err
	}
	b.Stats.CommandsSent++

	line, err := b.reader.ReadString('\n')
	if err != nil {
		return observation.Observation{}, err
	}
	return observation.Decode(strings.TrimSpace(line))
}

// control ПД регулятор: гасит вертикальную скорость и выравнивает ракету
func (b *Bot) control(obs observation.Observation) command.Actuate {
	dy := float64(obs[observation.DY])
	vy := float64(obs[observation.VY])

	// чем ниже, тем медленнее спуск
	targetVY := -math.Max(1, math.Min(20, dy*0.2))
	thrust := b.hover + 0.15*(targetVY-vy)

	pitch := -(2*float64(obs[observation.QX]) + 0.5*float64(obs[observation.WX]))
	yaw := -(2*float64(obs[observation.QZ]) + 0.5*float64(obs[observation.WZ]))
	roll := -0.5 * float64(obs[observation.WY])

	return command.Actuate{
		Pitch:  float32(clamp(pitch, -1, 1)),
		Yaw:    float32(clamp(yaw, -1, 1)),
		Thrust: float32(clamp(thrust, 0, 1)),
		Roll:   float32(clamp(roll, -1, 1)),
	}
}

// RunEpisode играет один эпизод от случайного сброса до терминального наблюдения
func (b *Bot) RunEpisode(ctx context.Context) (episode.Verdict, error) {
	reset := episode.RandomReset(b.rng)
	obs, err := b.send(reset)
	if err != nil {
		return episode.Verdict{}, fmt.Errorf("ошибка сброса: %w", err)
	}
	b.logger.Debug("эпизод начат",
		zap.Float32s("position", reset.Position[:]),
		zap.Float32("pitch", reset.PitchDeg),
		zap.Float32("yaw", reset.YawDeg))

	var (
		verdict episode.Verdict
		reward  float64
	)
	for step := 1; ; step++ {
		if err := ctx.Err(); err != nil {
			return verdict, err
		}
		obs, err = b.send(b.control(obs))
		if err != nil {
			return verdict, fmt.Errorf("ошибка шага %d: %w", step, err)
		}
		verdict = b.evaluator.Evaluate(obs, step)
		reward += verdict.Reward
		if verdict.Done {
			b.logger.Info("эпизод завершен",
				zap.String("outcome", string(verdict.Outcome)),
				zap.Int("steps", step),
				zap.Float64("reward", reward),
				zap.String("obs", obs.String()))
			break
		}
	}

	b.Stats.Episodes++
	b.Stats.Outcomes[verdict.Outcome]++
	b.Stats.TotalReward += reward
	return verdict, nil
}

// PrintStats выводит итоговую статистику
func (b *Bot) PrintStats() {
	fields := []zap.Field{
		zap.Int("episodes", b.Stats.Episodes),
		zap.Int("commands", b.Stats.CommandsSent),
		zap.Float64("total_reward", b.Stats.TotalReward),
		zap.Duration("elapsed", time.Since(b.Stats.StartTime)),
	}
	for outcome, n := range b.Stats.Outcomes {
		fields = append(fields, zap.Int(string(outcome), n))
	}
	b.logger.Info("статистика бота", fields...)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func main() {
	kong.Parse(&CLI,
		kong.Name("rocket-bot"),
		kong.Description("агент с ПД регулятором для проверки среды посадки"),
		kong.UsageOnError())

	var (
		logger *zap.Logger
		err    error
	)
	if CLI.Debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	seed := CLI.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	cfg := episode.DefaultConfig()
	cfg.MaxSteps = CLI.MaxSteps

	bot, err := NewBot(CLI.Addr, episode.NewEvaluator(cfg), rand.New(rand.NewSource(seed)), logger)
	if err != nil {
		logger.Fatal("бот не запущен", zap.Error(err))
	}
	defer bot.Close()
	bot.timeout = CLI.Timeout
	bot.hover = CLI.Hover

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("бот подключен", zap.String("addr", CLI.Addr), zap.Int64("seed", seed))
	for i := 0; i < CLI.Episodes; i++ {
		if _, err := bot.RunEpisode(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			logger.Error("эпизод прерван", zap.Error(err))
			break
		}
	}
	bot.PrintStats()
}
