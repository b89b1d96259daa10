// Package config reads server settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"spacecouncil/internal/lifecycle"
	"spacecouncil/internal/models"
	"spacecouncil/internal/rules"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
)

// Config is the resolved server configuration
type Config struct {
	Addr         string
	DBPath       string
	Grid         models.GridSize
	MinPlayers   int
	EndCondition string
	Windows      []models.TimeWindow
	Location     *time.Location
	MaxRetries   int
	ActionRate   float64
	ActionBurst  int
	TickInterval time.Duration
	LogLevel     zapcore.Level
	Dev          bool
}

// Load reads .env files (missing files are ignored) and then the environment
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv, applying defaults for unset keys
func FromEnv(getenv func(string) string) (*Config, error) {
	p := parser{getenv: getenv}
	cfg := &Config{
		Addr:         p.str("SPACE_ADDR", ":8080"),
		DBPath:       p.str("SPACE_DB", ""),
		Grid:         models.GridSize{Width: p.integer("SPACE_GRID_WIDTH", models.DefaultWidth), Height: p.integer("SPACE_GRID_HEIGHT", models.DefaultHeight)},
		MinPlayers:   p.integer("SPACE_MIN_PLAYERS", lifecycle.DefaultMinPlayers),
		EndCondition: p.str("SPACE_END_CONDITION", lifecycle.DefaultEndCondition),
		Windows:      p.windows("SPACE_ACTION_WINDOWS"),
		Location:     p.location("SPACE_TIMEZONE"),
		MaxRetries:   p.integer("SPACE_MAX_RETRIES", 3),
		ActionRate:   p.number("SPACE_ACTION_RATE", 2),
		ActionBurst:  p.integer("SPACE_ACTION_BURST", 5),
		TickInterval: p.duration("SPACE_TICK_INTERVAL", time.Minute),
		LogLevel:     p.level("SPACE_LOG_LEVEL"),
		Dev:          p.flag("SPACE_DEV"),
	}
	if p.err != nil {
		return nil, p.err
	}
	if cfg.Grid.Width < 1 || cfg.Grid.Height < 1 {
		return nil, fmt.Errorf("grid must be at least 1x1, got %dx%d", cfg.Grid.Width, cfg.Grid.Height)
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("SPACE_MAX_RETRIES must not be negative")
	}
	if _, err := lifecycle.NewRule(cfg.EndCondition, cfg.MinPlayers); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parser keeps the first error so every field can be read in one pass
type parser struct {
	getenv func(string) string
	err    error
}

func (p *parser) fail(key, val string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%s=%q: %w", key, val, err)
	}
}

func (p *parser) str(key, def string) string {
	if v := p.getenv(key); v != "" {
		return v
	}
	return def
}

func (p *parser) integer(key string, def int) int {
	v := p.getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return n
}

func (p *parser) number(key string, def float64) float64 {
	v := p.getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return f
}

func (p *parser) flag(key string) bool {
	v := p.getenv(key)
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
	}
	return b
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := p.getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return d
}

func (p *parser) level(key string) zapcore.Level {
	v := p.getenv(key)
	if v == "" {
		return zapcore.InfoLevel
	}
	lvl, err := zapcore.ParseLevel(v)
	if err != nil {
		p.fail(key, v, err)
	}
	return lvl
}

func (p *parser) location(key string) *time.Location {
	v := p.getenv(key)
	if v == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(v)
	if err != nil {
		p.fail(key, v, err)
		return time.UTC
	}
	return loc
}

// windows parses "HH:MM-HH:MM[,HH:MM-HH:MM...]"
func (p *parser) windows(key string) []models.TimeWindow {
	v := p.getenv(key)
	if v == "" {
		return append([]models.TimeWindow(nil), rules.DefaultWindows...)
	}
	var out []models.TimeWindow
	for _, part := range strings.Split(v, ",") {
		start, end, ok := strings.Cut(strings.TrimSpace(part), "-")
		if !ok {
			p.fail(key, v, errors.New("want HH:MM-HH:MM"))
			return nil
		}
		out = append(out, models.TimeWindow{Start: strings.TrimSpace(start), End: strings.TrimSpace(end)})
	}
	if err := rules.ValidateWindows(out); err != nil {
		p.fail(key, v, err)
		return nil
	}
	return out
}
