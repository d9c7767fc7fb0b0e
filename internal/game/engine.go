// Package game drives an arena in real time.
//
// The Engine owns the only goroutine that ticks the simulation. Every
// mutating action takes the same lock as the tick, so user input is never
// applied in the middle of a step. Readers get an immutable Snapshot that
// is republished after every tick and every action.
package game

import (
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"robot-arena/internal/arena"
	"robot-arena/internal/config"
	"robot-arena/internal/logging"
	"robot-arena/internal/persist"
)

var (
	// ErrRobotLimit is returned when MaxRobots live robots already exist
	ErrRobotLimit = errors.New("robot limit reached")
	// ErrInvalidInput wraps unparsable user-supplied numbers
	ErrInvalidInput = errors.New("invalid input")
)

// Observer receives engine measurements. It is called with the engine lock
// held and must not call back into the engine.
type Observer interface {
	TickObserved(d time.Duration, robots, obstacles int)
	RobotKilled()
	RobotTeleported()
}

// Engine runs the simulation loop
type Engine struct {
	mu    sync.Mutex
	arena *arena.Arena
	cfg   config.EngineConfig
	log   *zap.Logger
	runID string

	running  bool
	paused   bool
	stopChan chan struct{}
	doneChan chan struct{}

	tickCount uint64
	kills     uint64
	teleports uint64
	lastTick  time.Duration

	sequence uint64
	snapshot atomic.Pointer[Snapshot]

	eventLog *EventLog
	observer Observer
}

// NewEngine wraps a. The engine installs its own arena hooks.
func NewEngine(cfg config.EngineConfig, a *arena.Arena, log *zap.Logger) *Engine {
	log = logging.OrNop(log)
	if cfg.TickRate <= 0 {
		cfg.TickRate = config.DefaultEngine().TickRate
	}

	runID := uuid.NewString()
	e := &Engine{
		arena:    a,
		cfg:      cfg,
		log:      log.Named("engine").With(zap.String("run", runID)),
		runID:    runID,
		eventLog: NewEventLog(log.Named("events")),
	}
	a.SetHooks(arena.Hooks{
		OnKill:     e.onKill,
		OnTeleport: e.onTeleport,
	})
	e.publish()
	return e
}

// SetObserver installs a metrics observer
func (e *Engine) SetObserver(o Observer) {
	e.mu.Lock()
	e.observer = o
	e.mu.Unlock()
}

// RunID identifies this engine instance in logs and events
func (e *Engine) RunID() string { return e.runID }

// Start begins ticking at the configured rate. Calling it on a running
// engine does nothing.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.paused = false
	e.stopChan = make(chan struct{})
	e.doneChan = make(chan struct{})
	stop, done := e.stopChan, e.doneChan
	e.publish()
	e.mu.Unlock()

	go e.loop(stop, done)
	e.log.Info("engine started", zap.Int("tickRate", e.cfg.TickRate))
}

func (e *Engine) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(e.cfg.TickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.tick()
		case <-stop:
			return
		}
	}
}

// Stop ends the loop and waits for the current tick to finish. The engine
// can be started again afterwards.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	close(e.stopChan)
	done := e.doneChan
	e.publish()
	e.mu.Unlock()

	<-done
	e.log.Info("engine stopped", zap.Uint64("ticks", e.Ticks()))
}

// Pause suspends ticking; it takes effect between ticks.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.paused {
		return
	}
	e.paused = true
	e.publish()
	e.log.Info("engine paused")
}

// Resume undoes Pause
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.paused {
		return
	}
	e.paused = false
	e.publish()
	e.log.Info("engine resumed")
}

// Step runs exactly one tick regardless of the pause state.
func (e *Engine) Step() *Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.step()
	return e.snapshot.Load()
}

func (e *Engine) tick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.paused || !e.running {
		return
	}
	e.step()
}

// step advances the arena once. Caller holds e.mu.
func (e *Engine) step() {
	start := time.Now()
	e.tickCount++

	e.arena.AdjustAllRobots()

	e.lastTick = time.Since(start)
	robots, obstacles := e.arena.RobotCount(), len(e.arena.Obstacles())
	if e.observer != nil {
		e.observer.TickObserved(e.lastTick, robots, obstacles)
	}
	e.emit(EventTypeTick, 0, TickPayload{
		Robots:     robots,
		Obstacles:  obstacles,
		DurationNs: e.lastTick.Nanoseconds(),
	})

	e.publish()
}

func (e *Engine) onKill(killer, victim arena.Robot) {
	e.kills++
	kb, vb := killer.State(), victim.State()
	e.log.Info("robot eliminated",
		zap.Int("killer", kb.ID()),
		zap.Int("victim", vb.ID()),
		zap.Uint64("tick", e.tickCount))
	e.emit(EventTypeRobotKilled, kb.ID(), KillPayload{
		KillerID: kb.ID(),
		VictimID: vb.ID(),
		X:        vb.X,
		Y:        vb.Y,
	})
	if e.observer != nil {
		e.observer.RobotKilled()
	}
}

func (e *Engine) onTeleport(r arena.Robot) {
	e.teleports++
	b := r.State()
	e.log.Debug("robot teleported", zap.Int("robot", b.ID()), zap.Float64("x", b.X), zap.Float64("y", b.Y))
	e.emit(EventTypeRobotTeleported, b.ID(), robotPayload(r))
	if e.observer != nil {
		e.observer.RobotTeleported()
	}
}

func (e *Engine) emit(t EventType, robotID int, payload interface{}) {
	source := ""
	if robotID > 0 {
		source = "robot:" + strconv.Itoa(robotID)
	}
	ev := NewEvent(t, e.tickCount, source, payload)
	ev.RunID = e.runID
	e.eventLog.Emit(ev)
}

func robotPayload(r arena.Robot) RobotPayload {
	b := r.State()
	return RobotPayload{RobotID: b.ID(), Kind: string(r.Kind()), X: b.X, Y: b.Y}
}

// =============================================================================
// ACTIONS
// =============================================================================

// AddRobot spawns a robot of the given kind at its default placement.
func (e *Engine) AddRobot(kind arena.Kind) (arena.RobotSnapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cfg.MaxRobots > 0 && e.arena.RobotCount() >= e.cfg.MaxRobots {
		e.log.Warn("robot limit reached, rejecting", zap.String("kind", string(kind)), zap.Int("max", e.cfg.MaxRobots))
		return arena.RobotSnapshot{}, errors.Wrapf(ErrRobotLimit, "max %d", e.cfg.MaxRobots)
	}

	r, err := e.arena.Spawn(kind)
	if err != nil {
		return arena.RobotSnapshot{}, err
	}
	e.log.Info("robot added", zap.Int("robot", r.State().ID()), zap.String("kind", string(kind)))
	e.emit(EventTypeRobotAdded, r.State().ID(), robotPayload(r))
	e.publish()
	return findRobot(e.snapshot.Load(), r.State().ID()), nil
}

// RemoveRobot deletes a robot by id
func (e *Engine) RemoveRobot(id int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, ok := e.arena.Robot(id)
	if !ok {
		return errors.Wrapf(arena.ErrRobotNotFound, "id %d", id)
	}
	if err := e.arena.RemoveRobot(id); err != nil {
		return err
	}
	e.log.Info("robot removed", zap.Int("robot", id))
	e.emit(EventTypeRobotRemoved, id, robotPayload(r))
	e.publish()
	return nil
}

// AddObstacle places a random obstacle of the given radius fully inside the arena.
func (e *Engine) AddObstacle(radius float64) (arena.Obstacle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	o, err := e.arena.AddRandomObstacle(radius)
	if err != nil {
		return arena.Obstacle{}, err
	}
	idx := len(e.arena.Obstacles()) - 1
	e.log.Info("obstacle added", zap.Int("index", idx), zap.Float64("radius", radius))
	e.emit(EventTypeObstacleAdded, 0, ObstaclePayload{Index: idx, X: o.X, Y: o.Y, Radius: o.Radius})
	e.publish()
	return o, nil
}

// RemoveObstacle deletes the obstacle at index
func (e *Engine) RemoveObstacle(index int) (arena.Obstacle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	o, err := e.arena.RemoveObstacle(index)
	if err != nil {
		return arena.Obstacle{}, err
	}
	e.log.Info("obstacle removed", zap.Int("index", index))
	e.emit(EventTypeObstacleRemoved, 0, ObstaclePayload{Index: index, X: o.X, Y: o.Y, Radius: o.Radius})
	e.publish()
	return o, nil
}

// Resize applies text-field input. Values that are not positive numbers are
// rejected, logged, and leave the size unchanged.
func (e *Engine) Resize(width, height string) error {
	w, errW := strconv.ParseFloat(strings.TrimSpace(width), 64)
	h, errH := strconv.ParseFloat(strings.TrimSpace(height), 64)
	if errW != nil || errH != nil {
		e.log.Warn("invalid arena size", zap.String("width", width), zap.String("height", height))
		return errors.Wrapf(ErrInvalidInput, "arena size %q x %q", width, height)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.arena.SetSize(w, h); err != nil {
		e.log.Warn("invalid arena size", zap.Float64("width", w), zap.Float64("height", h))
		return err
	}
	e.log.Info("arena resized", zap.Float64("width", w), zap.Float64("height", h))
	e.emit(EventTypeArenaResized, 0, ResizePayload{Width: w, Height: h})
	e.publish()
	return nil
}

// ToggleMaze flips maze mode and returns the new state
func (e *Engine) ToggleMaze() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	on := e.arena.ToggleMaze()
	n := len(e.arena.Obstacles())
	e.log.Info("maze toggled", zap.Bool("enabled", on), zap.Int("obstacles", n))
	e.emit(EventTypeMazeToggled, 0, MazePayload{Enabled: on, Obstacles: n})
	e.publish()
	return on
}

// SetDirection steers a user controlled robot with a W/A/S/D token
func (e *Engine) SetDirection(id int, token string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.arena.SetDirection(id, token); err != nil {
		return err
	}
	e.publish()
	return nil
}

// SetWheels applies a wheel preset ("left", "right" or "straight") to a
// wheel-driven robot.
func (e *Engine) SetWheels(id int, mode string) error {
	w, err := arena.ParseWheels(mode)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.arena.SetWheels(id, w); err != nil {
		return err
	}
	e.log.Debug("wheels set", zap.Int("robot", id), zap.String("wheels", string(w)))
	e.publish()
	return nil
}

// RobotAt returns the robot whose body contains the point, if any.
func (e *Engine) RobotAt(x, y float64) (arena.RobotSnapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, ok := e.arena.RobotAt(x, y)
	if !ok {
		return arena.RobotSnapshot{}, false
	}
	return findRobot(e.snapshot.Load(), r.State().ID()), true
}

// Save writes the current state in the text dump format.
func (e *Engine) Save(w io.Writer) error {
	e.mu.Lock()
	snap := e.arena.Snapshot()
	e.mu.Unlock()

	return persist.Save(w, snap)
}

// Load replaces the arena contents with a text dump.
func (e *Engine) Load(r io.Reader) (persist.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	res, err := persist.Load(r, e.arena, e.log)
	if err != nil {
		e.log.Error("load failed", zap.Error(err))
		return res, err
	}
	e.emit(EventTypeArenaLoaded, 0, LoadPayload{Robots: res.Robots, Obstacles: res.Obstacles, Skipped: res.Skipped})
	e.publish()
	return res, nil
}

// Describe returns the per-robot status lines
func (e *Engine) Describe() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.arena.Describe()
}

// =============================================================================
// READ SIDE
// =============================================================================

// Snapshot returns the latest published state. Never nil.
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshot.Load()
}

// Ticks returns the number of completed ticks
func (e *Engine) Ticks() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tickCount
}

// Stats is a summary for the status endpoint
type Stats struct {
	RunID     string        `json:"runId"`
	Running   bool          `json:"running"`
	Paused    bool          `json:"paused"`
	Ticks     uint64        `json:"ticks"`
	TickRate  int           `json:"tickRate"`
	LastTick  time.Duration `json:"lastTickNs"`
	Robots    int           `json:"robots"`
	Obstacles int           `json:"obstacles"`
	Kills     uint64        `json:"kills"`
	Teleports uint64        `json:"teleports"`
	MaxRobots int           `json:"maxRobots"`
	EventLog  EventLogStats `json:"eventLog"`
}

// Stats returns the current counters
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{
		RunID:     e.runID,
		Running:   e.running,
		Paused:    e.paused,
		Ticks:     e.tickCount,
		TickRate:  e.cfg.TickRate,
		LastTick:  e.lastTick,
		Robots:    e.arena.RobotCount(),
		Obstacles: len(e.arena.Obstacles()),
		Kills:     e.kills,
		Teleports: e.teleports,
		MaxRobots: e.cfg.MaxRobots,
		EventLog:  e.eventLog.Stats(),
	}
}

// StartEventLog begins writing events to filePath
func (e *Engine) StartEventLog(filePath string) error {
	return e.eventLog.Start(filePath)
}

// StopEventLog flushes and closes the event log
func (e *Engine) StopEventLog() {
	e.eventLog.Stop()
}

// publish builds and stores a new snapshot. Caller holds e.mu.
func (e *Engine) publish() {
	e.sequence++
	e.snapshot.Store(&Snapshot{
		Sequence:  e.sequence,
		Tick:      e.tickCount,
		Timestamp: time.Now(),
		Running:   e.running,
		Paused:    e.paused,
		Snapshot:  e.arena.Snapshot(),
	})
}
