// Package config is the single place where arena, engine, server, render
// and logging settings are defined.
//
// Values are layered: built-in defaults, then an optional YAML file named
// by CONFIG_FILE, then individual environment variables.
package config

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// ARENA
// =============================================================================

// ArenaConfig describes the simulated world.
type ArenaConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
	// Seed for the simulation RNG. 0 picks one from the clock.
	Seed int64 `yaml:"seed"`

	MazeCount  int     `yaml:"mazeCount"`
	MazeRadius float64 `yaml:"mazeRadius"`
	// MazeFollowArena scatters maze obstacles over the current arena size
	// instead of the fixed 400x500 extent.
	MazeFollowArena bool `yaml:"mazeFollowArena"`

	// SeedDemo adds the three starter robots on boot
	SeedDemo bool `yaml:"seedDemo"`
}

// DefaultArena returns the 400x500 arena with the classic maze.
func DefaultArena() ArenaConfig {
	return ArenaConfig{
		Width:      400,
		Height:     500,
		MazeCount:  20,
		MazeRadius: 10,
		SeedDemo:   true,
	}
}

func (c *ArenaConfig) fromEnv() {
	if w := getEnvFloat("ARENA_WIDTH", 0); w > 0 {
		c.Width = w
	}
	if h := getEnvFloat("ARENA_HEIGHT", 0); h > 0 {
		c.Height = h
	}
	if s := getEnvInt64("RNG_SEED", 0); s != 0 {
		c.Seed = s
	}
	if n := getEnvInt("MAZE_COUNT", 0); n > 0 {
		c.MazeCount = n
	}
	if r := getEnvFloat("MAZE_RADIUS", 0); r > 0 {
		c.MazeRadius = r
	}
	c.MazeFollowArena = getEnvBool("MAZE_FOLLOW_ARENA", c.MazeFollowArena)
	c.SeedDemo = getEnvBool("SEED_DEMO", c.SeedDemo)
}

// =============================================================================
// ENGINE
// =============================================================================

// EngineConfig controls the tick loop.
type EngineConfig struct {
	TickRate int `yaml:"tickRate"` // ticks per second
	// MaxRobots caps live robots. 0 means unbounded.
	MaxRobots int `yaml:"maxRobots"`
	// EventLogPath enables the JSONL event log when set
	EventLogPath string `yaml:"eventLogPath"`
	// AutoStart begins ticking as soon as the server is up
	AutoStart bool `yaml:"autoStart"`
}

// DefaultEngine ticks at 60 Hz.
func DefaultEngine() EngineConfig {
	return EngineConfig{
		TickRate:  60,
		AutoStart: true,
	}
}

func (c *EngineConfig) fromEnv() {
	if r := getEnvInt("TICK_RATE", 0); r > 0 {
		c.TickRate = r
	}
	if m := getEnvInt("MAX_ROBOTS", -1); m >= 0 {
		c.MaxRobots = m
	}
	if p := os.Getenv("EVENT_LOG_PATH"); p != "" {
		c.EventLogPath = p
	}
	c.AutoStart = getEnvBool("AUTO_START", c.AutoStart)
}

// =============================================================================
// SERVER
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int           `yaml:"port"`
	DebugAddr      string        `yaml:"debugAddr"`
	AllowedOrigins []string      `yaml:"allowedOrigins"`
	RateLimit      float64       `yaml:"rateLimit"` // requests per second per IP
	RateBurst      int           `yaml:"rateBurst"`
	BroadcastEvery time.Duration `yaml:"broadcastEvery"`
	MaxWSClients   int           `yaml:"maxWsClients"`
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:           3000,
		DebugAddr:      "localhost:6060",
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		RateLimit:      20,
		RateBurst:      40,
		BroadcastEvery: 100 * time.Millisecond,
		MaxWSClients:   100,
	}
}

func (c *ServerConfig) fromEnv() {
	if p := getEnvInt("PORT", 0); p > 0 {
		c.Port = p
	}
	if a := os.Getenv("DEBUG_ADDR"); a != "" {
		c.DebugAddr = a
	}
	if o := os.Getenv("ALLOWED_ORIGINS"); o != "" {
		c.AllowedOrigins = splitList(o)
	}
	if r := getEnvFloat("RATE_LIMIT", 0); r > 0 {
		c.RateLimit = r
	}
	if b := getEnvInt("RATE_BURST", 0); b > 0 {
		c.RateBurst = b
	}
	if n := getEnvInt("MAX_WS_CLIENTS", 0); n > 0 {
		c.MaxWSClients = n
	}
}

// =============================================================================
// RENDER
// =============================================================================

// RenderConfig controls PNG frames.
type RenderConfig struct {
	Scale       float64 `yaml:"scale"`
	DrawSensors bool    `yaml:"drawSensors"`
	DrawWheels  bool    `yaml:"drawWheels"`
}

// DefaultRender draws at 1:1 with every overlay.
func DefaultRender() RenderConfig {
	return RenderConfig{
		Scale:       1,
		DrawSensors: true,
		DrawWheels:  true,
	}
}

func (c *RenderConfig) fromEnv() {
	if s := getEnvFloat("RENDER_SCALE", 0); s > 0 {
		c.Scale = s
	}
	c.DrawSensors = getEnvBool("RENDER_SENSORS", c.DrawSensors)
	c.DrawWheels = getEnvBool("RENDER_WHEELS", c.DrawWheels)
}

// =============================================================================
// LOGGING
// =============================================================================

// LogConfig selects the zap level and encoder.
type LogConfig struct {
	Level string `yaml:"level"`
	Dev   bool   `yaml:"dev"`
}

// DefaultLog logs info and above as JSON.
func DefaultLog() LogConfig {
	return LogConfig{Level: "info"}
}

func (c *LogConfig) fromEnv() {
	if l := os.Getenv("LOG_LEVEL"); l != "" {
		c.Level = l
	}
	c.Dev = getEnvBool("LOG_DEV", c.Dev)
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Arena  ArenaConfig  `yaml:"arena"`
	Engine EngineConfig `yaml:"engine"`
	Server ServerConfig `yaml:"server"`
	Render RenderConfig `yaml:"render"`
	Log    LogConfig    `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() AppConfig {
	return AppConfig{
		Arena:  DefaultArena(),
		Engine: DefaultEngine(),
		Server: DefaultServer(),
		Render: DefaultRender(),
		Log:    DefaultLog(),
	}
}

// Load builds the configuration from defaults, the CONFIG_FILE overlay and
// the environment, then validates it.
func Load() (AppConfig, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return cfg, err
		}
	}

	cfg.Arena.fromEnv()
	cfg.Engine.fromEnv()
	cfg.Server.fromEnv()
	cfg.Render.fromEnv()
	cfg.Log.fromEnv()

	return cfg, cfg.Validate()
}

// MergeYAML overlays the keys present in r onto cfg.
func (c *AppConfig) MergeYAML(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && err != io.EOF {
		return errors.Wrap(err, "decode yaml config")
	}
	return nil
}

func (c *AppConfig) mergeFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open config file %s", path)
	}
	defer f.Close()
	return errors.WithMessagef(c.MergeYAML(f), "config file %s", path)
}

// Validate rejects settings the simulation cannot run with.
func (c AppConfig) Validate() error {
	switch {
	case c.Arena.Width <= 0 || c.Arena.Height <= 0:
		return errors.Errorf("arena size must be positive, got %v x %v", c.Arena.Width, c.Arena.Height)
	case c.Arena.MazeCount < 0 || c.Arena.MazeRadius <= 0:
		return errors.Errorf("maze needs a non-negative count and a positive radius, got %d / %v",
			c.Arena.MazeCount, c.Arena.MazeRadius)
	case c.Engine.TickRate <= 0:
		return errors.Errorf("tick rate must be positive, got %d", c.Engine.TickRate)
	case c.Engine.MaxRobots < 0:
		return errors.Errorf("max robots must not be negative, got %d", c.Engine.MaxRobots)
	case c.Server.Port <= 0 || c.Server.Port > 65535:
		return errors.Errorf("invalid port %d", c.Server.Port)
	case c.Render.Scale <= 0:
		return errors.Errorf("render scale must be positive, got %v", c.Render.Scale)
	}
	return nil
}

// TickInterval is the wall time between ticks
func (c EngineConfig) TickInterval() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
