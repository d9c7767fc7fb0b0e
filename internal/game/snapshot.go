package game

import (
	"time"

	"robot-arena/internal/arena"
)

// Snapshot is the immutable state published after every tick and action.
// The embedded arena snapshot is flattened in JSON.
type Snapshot struct {
	Sequence  uint64    `json:"sequence"`
	Tick      uint64    `json:"tick"`
	Timestamp time.Time `json:"timestamp"`
	Running   bool      `json:"running"`
	Paused    bool      `json:"paused"`

	arena.Snapshot
}

// Robot finds a robot in the snapshot by id
func (s *Snapshot) Robot(id int) (arena.RobotSnapshot, bool) {
	for _, r := range s.Robots {
		if r.ID == id {
			return r, true
		}
	}
	return arena.RobotSnapshot{}, false
}

func findRobot(s *Snapshot, id int) arena.RobotSnapshot {
	r, _ := s.Robot(id)
	return r
}
