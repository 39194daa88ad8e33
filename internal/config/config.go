package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Config holds all build configuration. Fields are resolved once at load
// time; malformed document values fall back to their defaults instead of
// failing the build.
type Config struct {
	SourceDir string
	Output    string

	DurationImage   float64
	DurationOverlay float64
	DurationText    float64

	FPS        int
	Resolution string

	TitleFontSize int
	BodyFontSize  int

	AudioFiles []string

	WorkDir  string
	KeepTemp bool

	ChunkSize  int // 0 disables chunking
	ChunkIndex int

	DebugFilename bool
	LabelYear     bool
	LabelFont     string

	Transitions Transitions

	// Binary overrides, taken from the environment (SLIDECAST_FFMPEG /
	// SLIDECAST_FFPROBE); empty means PATH lookup.
	FFmpegPath  string
	FFprobePath string

	// Path is the document this config was loaded from, including an
	// auto-discovered ./config.json. Empty when running on pure defaults.
	// The cache watermark and the watch set both track it.
	Path string
}

// Transitions configures deterministic per-segment motion.
type Transitions struct {
	Enabled  bool
	Motions  []string
	Duration float64
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		SourceDir:       "sequence",
		Output:          "slideshow.mp4",
		DurationImage:   2.0,
		DurationOverlay: 6.0,
		DurationText:    6.0,
		FPS:             30,
		Resolution:      "1920x1080",
		TitleFontSize:   72,
		BodyFontSize:    56,
		WorkDir:         "segments",
		ChunkIndex:      1,
		Transitions: Transitions{
			Enabled:  false,
			Motions:  nil,
			Duration: 1.0,
		},
		FFmpegPath:  os.Getenv("SLIDECAST_FFMPEG"),
		FFprobePath: os.Getenv("SLIDECAST_FFPROBE"),
	}
}

// Load reads configuration from path, or from the first of config.json /
// config.yaml / config.yml when path is empty. A missing file yields the
// defaults; a malformed document is reported but never fatal.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg.Path = path

	raw := map[string]any{}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		err = yaml.Unmarshal(data, &raw)
	} else {
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("config document is malformed; using defaults")
		return cfg, nil
	}

	cfg.apply(raw)
	return cfg, nil
}

// apply resolves recognized keys from the raw document. Unknown keys are
// ignored and malformed values keep the default.
func (c *Config) apply(raw map[string]any) {
	c.SourceDir = asString(raw, "source_dir", c.SourceDir)
	c.Output = asString(raw, "output", c.Output)
	c.DurationImage = asFloat(raw, "duration_image", c.DurationImage)
	c.DurationOverlay = asFloat(raw, "duration_overlay", c.DurationOverlay)
	c.DurationText = asFloat(raw, "duration_text", c.DurationText)
	c.FPS = asInt(raw, "fps", c.FPS)
	c.Resolution = asString(raw, "resolution", c.Resolution)
	c.TitleFontSize = asInt(raw, "title_font_size", c.TitleFontSize)
	c.BodyFontSize = asInt(raw, "body_font_size", c.BodyFontSize)
	c.AudioFiles = asStringList(raw, "audio_files")
	c.WorkDir = asString(raw, "work_dir", c.WorkDir)
	c.KeepTemp = asBool(raw, "keep_temp", c.KeepTemp)
	c.ChunkSize = asPositiveInt(raw, "chunk_size", c.ChunkSize)
	c.ChunkIndex = asInt(raw, "chunk_index", c.ChunkIndex)
	c.DebugFilename = asBool(raw, "debug_filename", c.DebugFilename)
	c.LabelYear = asBool(raw, "label_year", c.LabelYear)
	c.LabelFont = asString(raw, "label_font", c.LabelFont)

	if sub, ok := raw["transitions"].(map[string]any); ok {
		c.Transitions.Enabled = asBool(sub, "enabled", c.Transitions.Enabled)
		c.Transitions.Duration = asFloat(sub, "duration", c.Transitions.Duration)
		if motions := asStringList(sub, "motions"); motions != nil {
			c.Transitions.Motions = motions
		} else if allowed := asStringList(sub, "allowed"); allowed != nil {
			c.Transitions.Motions = allowed
		}
	}
}

// ParseResolution splits a WIDTHxHEIGHT string. Unlike document values this
// is a hard failure: a build with an unusable canvas cannot proceed.
func ParseResolution(value string) (int, int, error) {
	parts := strings.Split(strings.ToLower(value), "x")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid resolution %q: use WIDTHxHEIGHT", value)
	}
	width, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	height, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil || width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("invalid resolution %q: use WIDTHxHEIGHT", value)
	}
	return width, height, nil
}

func findConfigFile() string {
	candidates := []string{
		"./config.json",
		"./config.yaml",
		"./config.yml",
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

func asString(raw map[string]any, key, fallback string) string {
	if v, ok := raw[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func asFloat(raw map[string]any, key string, fallback float64) float64 {
	switch v := raw[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return fallback
}

func asInt(raw map[string]any, key string, fallback int) int {
	switch v := raw[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}

func asPositiveInt(raw map[string]any, key string, fallback int) int {
	n := asInt(raw, key, fallback)
	if n <= 0 {
		return fallback
	}
	return n
}

func asBool(raw map[string]any, key string, fallback bool) bool {
	switch v := raw[key].(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func asStringList(raw map[string]any, key string) []string {
	items, ok := raw[key].([]any)
	if !ok {
		return nil
	}
	var result []string
	for _, item := range items {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			result = append(result, strings.TrimSpace(s))
		}
	}
	return result
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return Default()
}
