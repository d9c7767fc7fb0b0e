package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"robot-arena/internal/api"
	"robot-arena/internal/config"
	"robot-arena/internal/game"
	"robot-arena/internal/logging"
	"robot-arena/internal/render"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "robot-arena:", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real environment variables win
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Dev)
	if err != nil {
		return err
	}
	defer log.Sync()

	if envErr != nil {
		log.Debug("no .env file, using environment only")
	}

	a, err := game.NewArena(cfg.Arena)
	if err != nil {
		return err
	}

	engine := game.NewEngine(cfg.Engine, a, log)
	engine.SetObserver(api.EngineMetrics{})
	log.Info("arena ready",
		zap.String("run", engine.RunID()),
		zap.Float64("width", cfg.Arena.Width),
		zap.Float64("height", cfg.Arena.Height),
		zap.Int("tickRate", cfg.Engine.TickRate),
		zap.Int("maxRobots", cfg.Engine.MaxRobots),
		zap.Bool("mazeFollowArena", cfg.Arena.MazeFollowArena))

	if err := engine.StartEventLog(cfg.Engine.EventLogPath); err != nil {
		log.Warn("event log disabled", zap.Error(err))
	} else if cfg.Engine.EventLogPath != "" {
		log.Info("event log", zap.String("path", cfg.Engine.EventLogPath))
	}
	defer engine.StopEventLog()

	api.StartDebugServer(cfg.Server.DebugAddr, log)

	if cfg.Engine.AutoStart {
		engine.Start()
	}
	defer engine.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := api.NewServer(engine, render.New(cfg.Render), cfg.Server, log)
	if err := server.Run(ctx); err != nil {
		log.Error("server failed", zap.Error(err))
		return err
	}

	log.Info("shutdown complete", zap.Uint64("ticks", engine.Ticks()))
	return nil
}
