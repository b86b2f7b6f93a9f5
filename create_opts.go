package polyglot

import (
	"io"
	"log/slog"
)

// Strategy selects how Create grafts one format into the other.
type Strategy string

const (
	// StrategyChunk wraps the archive in a new tEXt metadata chunk before
	// IEND. No offset arithmetic, lowest corruption risk; the default.
	StrategyChunk Strategy = "chunk"

	// StrategyImageData appends the archive to the first IDAT chunk's
	// payload and rebases the archive's directory offsets, for consumers
	// that must see the archive bytes as part of decodable image data.
	StrategyImageData Strategy = "image-data"

	// StrategyArchive inverts dominance: the image is stored as a single
	// named entry of a freshly built archive.
	StrategyArchive Strategy = "archive"
)

// Values Create falls back to when no option overrides them.
const (
	defaultKeyword   = "ZIP Archive"
	defaultEntryName = "image.png"
)

// CreateOption configures Create.
type CreateOption func(*createConfig)

type createConfig struct {
	strategy  Strategy
	keyword   string
	entryName string
	logger    *slog.Logger
}

func newCreateConfig(opts []CreateOption) *createConfig {
	cfg := &createConfig{
		strategy:  StrategyChunk,
		keyword:   defaultKeyword,
		entryName: defaultEntryName,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func (c *createConfig) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c.logger
}

// WithStrategy selects the embedding strategy (default StrategyChunk).
func WithStrategy(s Strategy) CreateOption {
	return func(c *createConfig) {
		c.strategy = s
	}
}

// WithKeyword sets the tEXt keyword used by StrategyChunk.
func WithKeyword(keyword string) CreateOption {
	return func(c *createConfig) {
		c.keyword = keyword
	}
}

// WithEntryName sets the entry name used by StrategyArchive.
func WithEntryName(name string) CreateOption {
	return func(c *createConfig) {
		c.entryName = name
	}
}

// WithLogger attaches a logger for debug-level creation tracing. The
// default discards everything.
func WithLogger(logger *slog.Logger) CreateOption {
	return func(c *createConfig) {
		c.logger = logger
	}
}
