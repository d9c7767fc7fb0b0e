package game

import (
	"robot-arena/internal/arena"
	"robot-arena/internal/config"
)

// NewArena builds an arena from its config section, seeding the demo
// robots when asked to.
func NewArena(cfg config.ArenaConfig) (*arena.Arena, error) {
	maze := arena.DefaultMaze()
	if cfg.MazeCount > 0 {
		maze.Count = cfg.MazeCount
	}
	if cfg.MazeRadius > 0 {
		maze.Radius = cfg.MazeRadius
	}
	if cfg.MazeFollowArena {
		maze.Width, maze.Height = 0, 0
	}

	a, err := arena.New(arena.Options{
		Width:  cfg.Width,
		Height: cfg.Height,
		Rand:   arena.NewRand(cfg.Seed),
		Maze:   maze,
	})
	if err != nil {
		return nil, err
	}
	if cfg.SeedDemo {
		a.SeedDemo()
	}
	return a, nil
}
