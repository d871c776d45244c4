package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"rocket-lander/backend/internal/adapter/in/engine"
	"rocket-lander/backend/internal/adapter/in/tcp"
	"rocket-lander/backend/internal/adapter/in/ws"
	"rocket-lander/backend/internal/adapter/out/effects"
	grpcPhysics "rocket-lander/backend/internal/adapter/out/physics"
	"rocket-lander/backend/internal/config"
	"rocket-lander/backend/internal/core/domain/actuation"
	"rocket-lander/backend/internal/core/domain/episode"
	"rocket-lander/backend/internal/core/domain/service"
	portPhysics "rocket-lander/backend/internal/core/port/out/physics"
	portTelemetry "rocket-lander/backend/internal/core/port/out/telemetry"
	"rocket-lander/backend/internal/game"
	"rocket-lander/backend/internal/physics"
	"rocket-lander/backend/internal/telemetry"
)

var CLI struct {
	ConfigPath string `help:"Путь к YAML конфигурации." name:"config" short:"c" type:"path"`
	Debug      bool   `help:"Включить отладочное логирование."`

	Serve struct {
		Mode        string `help:"Режим драйвера: lockstep или realtime."`
		TCPAddr     string `help:"Адрес TCP сервера агента." name:"tcp-addr"`
		WSAddr      string `help:"Адрес WebSocket сервера." name:"ws-addr"`
		PhysicsAddr string `help:"Адрес удаленного движка физики." name:"physics-addr"`
		Record      bool   `help:"Записывать эпизоды на диск."`
	} `cmd:"" default:"withargs" help:"Запустить среду посадки."`

	Physics struct {
		Listen string `help:"Адрес gRPC сервера движка." name:"listen"`
	} `cmd:"" help:"Запустить движок физики отдельным процессом."`

	Config struct{} `cmd:"" help:"Вывести конфигурацию по умолчанию."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("rocket-lander"),
		kong.Description("среда обучения посадке ракеты"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))

	logger, err := newLogger(CLI.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if ctx.Command() == "config" {
		out, err := config.Default().Marshal()
		if err != nil {
			logger.Fatal("ошибка сериализации конфигурации", zap.Error(err))
		}
		os.Stdout.Write(out)
		return
	}

	cfg, err := config.Load(CLI.ConfigPath)
	if err != nil {
		logger.Fatal("ошибка загрузки конфигурации", zap.Error(err))
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch ctx.Command() {
	case "physics":
		err = physicsCommand(sigCtx, cfg, logger)
	default:
		err = serveCommand(sigCtx, cfg, logger)
	}
	if err != nil {
		logger.Fatal("сервер остановлен с ошибкой", zap.Error(err))
	}
	logger.Info("сервер остановлен")
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// applyFlags переносит флаги командной строки поверх файла конфигурации
func applyFlags(cfg *config.Config) error {
	if CLI.Serve.Mode != "" {
		cfg.Driver.Mode = config.DriverMode(CLI.Serve.Mode)
	}
	if CLI.Serve.TCPAddr != "" {
		cfg.Transport.TCPAddr = CLI.Serve.TCPAddr
	}
	if CLI.Serve.WSAddr != "" {
		cfg.Transport.WSAddr = CLI.Serve.WSAddr
	}
	if CLI.Serve.PhysicsAddr != "" {
		cfg.Transport.PhysicsAddr = CLI.Serve.PhysicsAddr
	}
	if CLI.Serve.Record {
		cfg.Recording.Enabled = true
	}
	if CLI.Physics.Listen != "" {
		cfg.Transport.PhysicsListen = CLI.Physics.Listen
	}
	return cfg.Validate()
}

func physicsCommand(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if err := applyFlags(cfg); err != nil {
		return err
	}
	config.Set(cfg)

	lis, err := net.Listen("tcp", cfg.Transport.PhysicsListen)
	if err != nil {
		return fmt.Errorf("не удалось открыть порт движка: %w", err)
	}
	return engine.NewServer(&cfg.Physics, logger).Serve(ctx, lis)
}

func newEngine(ctx context.Context, cfg *config.Config, logger *zap.Logger) (portPhysics.PhysicsPort, error) {
	if cfg.Transport.PhysicsAddr == "" {
		logger.Info("используется встроенный движок физики")
		return physics.NewRigidBody(&cfg.Physics), nil
	}
	return grpcPhysics.NewGRPCPhysicsAdapter(ctx, cfg.Transport.PhysicsAddr, logger)
}

func serveCommand(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if err := applyFlags(cfg); err != nil {
		return err
	}
	config.Set(cfg)

	engineBody, err := newEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer engineBody.Close()

	g, gctx := errgroup.WithContext(ctx)

	var observers []portTelemetry.TickObserver
	var telemetryManager *telemetry.TelemetryManager
	if cfg.Telemetry.Enabled {
		telemetryManager = telemetry.NewTelemetryManager(cfg.Telemetry.RingSize, cfg.Telemetry.SummaryInterval, logger)
		observers = append(observers, telemetryManager)
		g.Go(func() error { return telemetryManager.Run(gctx) })
	}

	if cfg.Recording.Enabled {
		var index *telemetry.EpisodeIndex
		if cfg.Recording.IndexPath != "" {
			index, err = telemetry.OpenEpisodeIndex(cfg.Recording.IndexPath)
			if err != nil {
				return err
			}
			defer index.Close()
		}
		recorder := telemetry.NewRecorder(cfg.Recording.Dir, episode.NewEvaluator(cfg.Episode), index, logger)
		defer recorder.Close()
		observers = append(observers, recorder)
	}

	emitter := effects.NewEmitter(logger)
	env := service.NewEnvService(
		engineBody,
		actuation.NewModel(cfg.Actuation),
		cfg.TargetReference(),
		service.WithEffects(emitter),
		service.WithObservers(observers...),
		service.WithLogger(logger),
		service.WithFixedDeltaTime(cfg.Physics.FixedDeltaTime),
	)

	stats := healthStats(cfg.Driver.Mode, env, emitter, telemetryManager)

	switch cfg.Driver.Mode {
	case config.DriverRealtime:
		mailbox := game.NewMailbox()
		ticker := game.NewGameTicker(cfg.Driver.TPS, logger)
		// зрители видят состояние между тиками
		render := func() (string, bool) { return env.Render(ticker.Alpha()) }
		wsAdapter := ws.NewWSAdapter(mailbox, logger,
			ws.WithReplies(false),
			ws.WithStats(func() map[string]interface{} {
				out := stats()
				out["mailbox"] = mailbox.Stats()
				return out
			}),
			ws.WithRender(render))

		ticker.RegisterSystem(game.NewEnvironmentSystem(env, mailbox, logger, wsAdapter))
		ticker.RegisterSystem(game.NewGameMetricsSystem(ticker, mailbox, cfg.Telemetry.SummaryInterval, logger))

		g.Go(func() error { return ticker.Run(gctx) })
		g.Go(func() error { return tcp.NewServer(mailbox, logger).ListenAndServe(gctx, cfg.Transport.TCPAddr) })
		g.Go(func() error { return wsAdapter.ListenAndServe(gctx, cfg.Transport.WSAddr) })
	default:
		render := func() (string, bool) { return env.Render(1) }
		wsAdapter := ws.NewWSAdapter(env, logger, ws.WithStats(stats), ws.WithRender(render))
		g.Go(func() error { return tcp.NewServer(env, logger).ListenAndServe(gctx, cfg.Transport.TCPAddr) })
		g.Go(func() error { return wsAdapter.ListenAndServe(gctx, cfg.Transport.WSAddr) })
	}

	logger.Info("среда запущена",
		zap.String("mode", string(cfg.Driver.Mode)),
		zap.String("tcp", cfg.Transport.TCPAddr),
		zap.String("ws", cfg.Transport.WSAddr))

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// healthStats собирает статистику среды для /healthz
func healthStats(mode config.DriverMode, env *service.EnvService, emitter *effects.Emitter, tm *telemetry.TelemetryManager) ws.StatsProvider {
	return func() map[string]interface{} {
		out := map[string]interface{}{
			"mode":    mode,
			"ticks":   env.Ticks(),
			"effects": emitter.Stats(),
		}
		if tm != nil {
			out["telemetry"] = tm.Stats()
		}
		return out
	}
}
