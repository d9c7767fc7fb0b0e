package game

import (
	"encoding/json"
	"time"
)

// EventType enum for event classification
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeTick
	EventTypeRobotAdded
	EventTypeRobotRemoved
	EventTypeRobotKilled
	EventTypeRobotTeleported
	EventTypeObstacleAdded
	EventTypeObstacleRemoved
	EventTypeMazeToggled
	EventTypeArenaResized
	EventTypeArenaLoaded
)

// EventVersion is bumped when a payload changes shape
const EventVersion uint8 = 1

// Event is one line of the event log
type Event struct {
	Version   uint8           `json:"version"`
	Type      EventType       `json:"type"`
	Timestamp int64           `json:"timestamp"` // Unix nano
	Sequence  uint64          `json:"sequence"`
	TickNum   uint64          `json:"tickNum"`
	RunID     string          `json:"runId,omitempty"`
	Source    string          `json:"source,omitempty"` // rate limiting key
	Payload   json.RawMessage `json:"payload,omitempty"`
}

var eventNames = map[EventType]string{
	EventTypeTick:            "tick",
	EventTypeRobotAdded:      "robot_added",
	EventTypeRobotRemoved:    "robot_removed",
	EventTypeRobotKilled:     "robot_killed",
	EventTypeRobotTeleported: "robot_teleported",
	EventTypeObstacleAdded:   "obstacle_added",
	EventTypeObstacleRemoved: "obstacle_removed",
	EventTypeMazeToggled:     "maze_toggled",
	EventTypeArenaResized:    "arena_resized",
	EventTypeArenaLoaded:     "arena_loaded",
}

func (t EventType) String() string {
	if name, ok := eventNames[t]; ok {
		return name
	}
	return "unknown"
}

// MarshalText writes the event name so log lines stay readable
func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText is the inverse of MarshalText
func (t *EventType) UnmarshalText(b []byte) error {
	for k, name := range eventNames {
		if name == string(b) {
			*t = k
			return nil
		}
	}
	*t = EventTypeUnknown
	return nil
}

// Typed payloads

// TickPayload is emitted once per simulation step
type TickPayload struct {
	Robots     int   `json:"robots"`
	Obstacles  int   `json:"obstacles"`
	DurationNs int64 `json:"durationNs"`
}

// RobotPayload describes a robot at the moment of the event
type RobotPayload struct {
	RobotID int     `json:"robotId"`
	Kind    string  `json:"kind"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

// KillPayload names both parties of an elimination
type KillPayload struct {
	KillerID int     `json:"killerId"`
	VictimID int     `json:"victimId"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// ObstaclePayload describes an added or removed obstacle
type ObstaclePayload struct {
	Index  int     `json:"index"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
}

// MazePayload records the new maze state
type MazePayload struct {
	Enabled   bool `json:"enabled"`
	Obstacles int  `json:"obstacles"`
}

// ResizePayload records the new arena size
type ResizePayload struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// LoadPayload summarises a load
type LoadPayload struct {
	Robots    int `json:"robots"`
	Obstacles int `json:"obstacles"`
	Skipped   int `json:"skipped"`
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload interface{}) json.RawMessage {
	if payload == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, tickNum uint64, source string, payload interface{}) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		TickNum:   tickNum,
		Source:    source,
		Payload:   EncodePayload(payload),
	}
}
