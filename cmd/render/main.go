// Command render runs an arena headless and writes PNG frames and text dumps.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
	"go.uber.org/zap"

	"robot-arena/internal/arena"
	"robot-arena/internal/config"
	"robot-arena/internal/game"
	"robot-arena/internal/logging"
	"robot-arena/internal/render"
)

func main() {
	godotenv.Load()

	if err := makeapp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "render:", err)
		os.Exit(1)
	}
}

// options are the resolved flags of the run command
type options struct {
	ticks     int
	every     int
	load      string
	save      string
	frame     string
	framesDir string
	robots    []string
	maze      bool
}

func makeapp() *cli.App {
	app := cli.NewApp()
	app.Name = "render"
	app.Usage = "run a robot arena without a window"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "log-level", Value: "", Usage: "Override LOG_LEVEL"},
	}

	app.Commands = []cli.Command{
		{
			Name:  "run",
			Usage: "Advance the arena and write frames",
			Flags: []cli.Flag{
				cli.IntFlag{Name: "ticks", Value: 60, Usage: "Number of ticks to simulate"},
				cli.IntFlag{Name: "every", Value: 0, Usage: "Write a frame every N ticks into --frames-dir; 0 disables"},
				cli.StringFlag{Name: "load", Usage: "Arena dump to start from"},
				cli.StringFlag{Name: "save", Usage: "Write the final arena dump here"},
				cli.StringFlag{Name: "frame", Value: "arena.png", Usage: "Final frame; empty disables"},
				cli.StringFlag{Name: "frames-dir", Value: "frames", Usage: "Directory for periodic frames"},
				cli.StringSliceFlag{Name: "robot", Usage: "Spawn a robot of this kind; repeatable"},
				cli.BoolFlag{Name: "maze", Usage: "Turn the maze on before the first tick"},
			},
			Action: func(c *cli.Context) error {
				cfg, log, err := setup(c)
				if err != nil {
					return err
				}
				defer log.Sync()

				return simulate(cfg, log, options{
					ticks:     c.Int("ticks"),
					every:     c.Int("every"),
					load:      c.String("load"),
					save:      c.String("save"),
					frame:     c.String("frame"),
					framesDir: c.String("frames-dir"),
					robots:    c.StringSlice("robot"),
					maze:      c.Bool("maze"),
				})
			},
		},
		{
			Name:      "frame",
			Usage:     "Render an arena dump to PNG",
			ArgsUsage: "<dump> <out.png>",
			Action: func(c *cli.Context) error {
				if c.NArg() != 2 {
					return cli.ShowCommandHelp(c, "frame")
				}
				cfg, log, err := setup(c)
				if err != nil {
					return err
				}
				defer log.Sync()

				cfg.Arena.SeedDemo = false
				return simulate(cfg, log, options{
					load:  c.Args().Get(0),
					frame: c.Args().Get(1),
				})
			},
		},
	}
	return app
}

func setup(c *cli.Context) (config.AppConfig, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, err
	}
	if lvl := c.GlobalString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Dev)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, log, nil
}

// simulate drives the engine by hand; the real-time loop is never started.
func simulate(cfg config.AppConfig, log *zap.Logger, opts options) error {
	if opts.load != "" {
		cfg.Arena.SeedDemo = false
	}
	a, err := game.NewArena(cfg.Arena)
	if err != nil {
		return err
	}
	engine := game.NewEngine(cfg.Engine, a, log)
	renderer := render.New(cfg.Render)

	if opts.load != "" {
		f, err := os.Open(opts.load)
		if err != nil {
			return errors.Wrapf(err, "open %s", opts.load)
		}
		res, err := engine.Load(f)
		f.Close()
		if err != nil {
			return err
		}
		log.Info("loaded", zap.String("path", opts.load), zap.Int("robots", res.Robots), zap.Int("obstacles", res.Obstacles), zap.Int("skipped", res.Skipped))
	}

	for _, name := range opts.robots {
		kind, err := arena.ParseKind(name)
		if err != nil {
			return err
		}
		if _, err := engine.AddRobot(kind); err != nil {
			return err
		}
	}
	if opts.maze {
		engine.ToggleMaze()
	}

	if opts.every > 0 {
		if err := os.MkdirAll(opts.framesDir, 0o755); err != nil {
			return errors.Wrapf(err, "create %s", opts.framesDir)
		}
	}

	for i := 1; i <= opts.ticks; i++ {
		snap := engine.Step()
		if opts.every > 0 && i%opts.every == 0 {
			path := filepath.Join(opts.framesDir, fmt.Sprintf("frame-%06d.png", snap.Tick))
			if err := renderer.SavePNG(path, snap.Snapshot); err != nil {
				return err
			}
		}
	}

	final := engine.Snapshot()
	if opts.frame != "" {
		if err := renderer.SavePNG(opts.frame, final.Snapshot); err != nil {
			return err
		}
	}
	if opts.save != "" {
		f, err := os.Create(opts.save)
		if err != nil {
			return errors.Wrapf(err, "create %s", opts.save)
		}
		if err := engine.Save(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return errors.Wrapf(err, "close %s", opts.save)
		}
	}

	stats := engine.Stats()
	log.Info("done",
		zap.Uint64("ticks", stats.Ticks),
		zap.Int("robots", stats.Robots),
		zap.Uint64("kills", stats.Kills),
		zap.Uint64("teleports", stats.Teleports))
	for _, line := range engine.Describe() {
		fmt.Println(line)
	}
	return nil
}
