// Package config loads volverse settings from defaults, an optional YAML
// file and VOLVERSE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the effects and their side services.
type Config struct {
	Camera  CameraConfig  `yaml:"camera" envPrefix:"CAMERA_"`
	Cloak   CloakConfig   `yaml:"cloak" envPrefix:"CLOAK_"`
	Canvas  CanvasConfig  `yaml:"canvas" envPrefix:"CANVAS_"`
	Sidecar SidecarConfig `yaml:"sidecar" envPrefix:"SIDECAR_"`

	// Listen enables the preview/metrics HTTP server when non-empty.
	Listen string `yaml:"listen" env:"LISTEN"`
	// DBPath enables session persistence when non-empty.
	DBPath string `yaml:"db" env:"DB"`
	// HooksDir enables event hooks when non-empty.
	HooksDir string `yaml:"hooks" env:"HOOKS_DIR"`

	LogLevel string `yaml:"logLevel" env:"LOG_LEVEL"`
	Debug    bool   `yaml:"debug" env:"DEBUG"`
}

// CameraConfig selects and configures the capture device.
type CameraConfig struct {
	DeviceID int  `yaml:"device" env:"DEVICE"`
	Width    int  `yaml:"width" env:"WIDTH"`
	Height   int  `yaml:"height" env:"HEIGHT"`
	FPS      int  `yaml:"fps" env:"FPS"`
	Mirror   bool `yaml:"mirror" env:"MIRROR"`
}

// CloakConfig configures the invisibility effect.
type CloakConfig struct {
	Cooldown        time.Duration `yaml:"cooldown" env:"COOLDOWN"`
	FadeFrames      int           `yaml:"fadeFrames" env:"FADE_FRAMES"`
	MaskThreshold   float64       `yaml:"maskThreshold" env:"MASK_THRESHOLD"`
	BlurSize        int           `yaml:"blurSize" env:"BLUR_SIZE"`
	BackgroundDelay time.Duration `yaml:"backgroundDelay" env:"BACKGROUND_DELAY"`
	// SettleFrames is how many consecutive still frames to wait for before
	// grabbing the plate. Zero grabs the first frame after the delay.
	SettleFrames int    `yaml:"settleFrames" env:"SETTLE_FRAMES"`
	Segmenter    string `yaml:"segmenter" env:"SEGMENTER"`
	// SoundPath is the WAV file played on every toggle.
	SoundPath string `yaml:"sound" env:"SOUND"`
}

// CanvasConfig configures the air canvas.
type CanvasConfig struct {
	ToolbarCooldown time.Duration `yaml:"toolbarCooldown" env:"TOOLBAR_COOLDOWN"`
	BrushThickness  int           `yaml:"brush" env:"BRUSH"`
	EraserThickness int           `yaml:"eraser" env:"ERASER"`
	ClearPause      time.Duration `yaml:"clearPause" env:"CLEAR_PAUSE"`
	ArtworkDir      string        `yaml:"artworkDir" env:"ARTWORK_DIR"`
}

// SidecarConfig locates the Python MediaPipe services.
type SidecarConfig struct {
	Python        string        `yaml:"python" env:"PYTHON"`
	HandsScript   string        `yaml:"handsScript" env:"HANDS_SCRIPT"`
	SegmentScript string        `yaml:"segmentScript" env:"SEGMENT_SCRIPT"`
	IdleTimeout   time.Duration `yaml:"idleTimeout" env:"IDLE_TIMEOUT"`
}

// Segmenter names accepted by CloakConfig.Segmenter.
const (
	SegmenterSelfie     = "selfie"
	SegmenterDifference = "difference"
)

// Default returns the settings the original effects were tuned with.
func Default() Config {
	return Config{
		Camera: CameraConfig{
			DeviceID: 0,
			Width:    640,
			Height:   480,
			FPS:      30,
			Mirror:   true,
		},
		Cloak: CloakConfig{
			Cooldown:        time.Second,
			FadeFrames:      20,
			MaskThreshold:   0.6,
			BlurSize:        15,
			BackgroundDelay: 2 * time.Second,
			Segmenter:       SegmenterSelfie,
			SoundPath:       "magic_whoosh.wav",
		},
		Canvas: CanvasConfig{
			ToolbarCooldown: 500 * time.Millisecond,
			BrushThickness:  10,
			EraserThickness: 50,
			ClearPause:      time.Second,
			ArtworkDir:      ".",
		},
		Sidecar: SidecarConfig{
			IdleTimeout: 30 * time.Second,
		},
		LogLevel: "info",
	}
}

// Load starts from Default, overlays the YAML file at path (if path is
// non-empty) and then VOLVERSE_* environment variables, and validates.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "VOLVERSE_"}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every setting the effects cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Cloak.FadeFrames <= 0 {
		errs = append(errs, fmt.Errorf("cloak.fadeFrames must be positive, got %d", c.Cloak.FadeFrames))
	}
	if c.Cloak.Cooldown < 0 {
		errs = append(errs, fmt.Errorf("cloak.cooldown must not be negative, got %s", c.Cloak.Cooldown))
	}
	if c.Cloak.MaskThreshold <= 0 || c.Cloak.MaskThreshold >= 1 {
		errs = append(errs, fmt.Errorf("cloak.maskThreshold must be in (0,1), got %g", c.Cloak.MaskThreshold))
	}
	if c.Cloak.BlurSize < 1 || c.Cloak.BlurSize%2 == 0 {
		errs = append(errs, fmt.Errorf("cloak.blurSize must be a positive odd number, got %d", c.Cloak.BlurSize))
	}
	switch c.Cloak.Segmenter {
	case SegmenterSelfie, SegmenterDifference:
	default:
		errs = append(errs, fmt.Errorf("cloak.segmenter must be %q or %q, got %q",
			SegmenterSelfie, SegmenterDifference, c.Cloak.Segmenter))
	}
	if c.Canvas.ToolbarCooldown < 0 {
		errs = append(errs, fmt.Errorf("canvas.toolbarCooldown must not be negative, got %s", c.Canvas.ToolbarCooldown))
	}
	if c.Canvas.BrushThickness <= 0 || c.Canvas.EraserThickness <= 0 {
		errs = append(errs, errors.New("canvas brush and eraser thickness must be positive"))
	}
	return errors.Join(errs...)
}
