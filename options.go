package lsmkv

import (
	"log/slog"
	"math"
	"os"
)

// MemoryMaxSize is the default byte budget a memtable may occupy before
// a put forces a flush. Spec value: 2 MiB.
const MemoryMaxSize = 2 * 1024 * 1024

// TombstoneLiteral is the reserved value denoting a deletion. It is
// never returned to callers — the engine translates a hit on it to
// "not found".
const TombstoneLiteral = "~DELETED~"

// InvalidSentinel marks an absent value in internal return slots. It is
// never persisted.
const InvalidSentinel = "~INVALID~"

// Policy selects how a level picks compaction inputs and tolerates
// overlapping key ranges among its own caches.
type Policy int

const (
	// Tiering accumulates independent runs; a level using it may hold
	// caches with overlapping ranges, and every cache at the level
	// participates when it is selected for compaction.
	Tiering Policy = iota
	// Leveling keeps non-overlapping runs; compaction selects the
	// oldest caches first and merges any overlapping next-level input.
	Leveling
)

func (p Policy) String() string {
	if p == Tiering {
		return "tiering"
	}
	return "leveling"
}

// LevelConfig fixes one level's file budget and compaction policy.
type LevelConfig struct {
	MaxFiles int
	Policy   Policy
}

// DefaultLevelConfig is the fixed per-level table from the spec: level 0
// is a small tiered tier, levels 1-4 grow by doubling file budgets under
// leveling, and level 5 is the unbounded terminal level where tombstones
// are finally collapsed.
func DefaultLevelConfig() []LevelConfig {
	return []LevelConfig{
		{MaxFiles: 2, Policy: Tiering},
		{MaxFiles: 4, Policy: Leveling},
		{MaxFiles: 8, Policy: Leveling},
		{MaxFiles: 16, Policy: Leveling},
		{MaxFiles: 32, Policy: Leveling},
		{MaxFiles: math.MaxInt, Policy: Leveling},
	}
}

// Options holds the engine's tunable parameters.
type Options struct {
	// Path is the data root directory.
	Path string

	// MemoryMaxSize is the byte budget that triggers a flush.
	MemoryMaxSize int

	// Levels is the per-level (max files, policy) table, indexed by
	// level number. The last entry is the terminal level: tombstones
	// surviving a compaction into it are dropped.
	Levels []LevelConfig

	// CreateIfMissing creates Path (and level-0) on Open if it doesn't
	// already exist.
	CreateIfMissing bool

	// Logger receives structured diagnostics for flush, compaction, and
	// boot events.
	Logger *slog.Logger
}

// DefaultOptions returns an Options populated with the spec's defaults.
func DefaultOptions() *Options {
	return &Options{
		MemoryMaxSize:   MemoryMaxSize,
		Levels:          DefaultLevelConfig(),
		CreateIfMissing: true,
		Logger:          DefaultLogger(),
	}
}

// TerminalLevel returns the index of the last configured level.
func (o *Options) TerminalLevel() int {
	return len(o.Levels) - 1
}

// LevelConfig returns the configuration for level, or the terminal
// level's configuration if level runs past the configured table.
func (o *Options) LevelConfig(level int) LevelConfig {
	if level >= len(o.Levels) {
		return o.Levels[len(o.Levels)-1]
	}
	return o.Levels[level]
}

// Validate checks the options for obvious misconfiguration.
func (o *Options) Validate() error {
	if o.Path == "" {
		return ErrInvalidPath
	}
	if o.MemoryMaxSize <= 0 {
		return ErrInvalidMemoryMaxSize
	}
	if len(o.Levels) == 0 {
		return ErrInvalidLevelConfig
	}
	for _, lc := range o.Levels {
		if lc.MaxFiles <= 0 {
			return ErrInvalidLevelConfig
		}
	}
	return nil
}

func getLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// DefaultLogger logs warnings and above to stderr.
func DefaultLogger() *slog.Logger {
	return getLogger(slog.LevelWarn)
}

// DebugLogger logs everything, including flush/compaction trace events.
func DebugLogger() *slog.Logger {
	return getLogger(slog.LevelDebug)
}
