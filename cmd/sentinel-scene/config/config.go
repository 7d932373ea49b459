package config

import (
	"fmt"
	"time"
)

// SceneConfig holds the complete scene configuration
type SceneConfig struct {
	// Basic scene settings
	Scene SceneSettings `yaml:"scene"`

	// Swarm animation settings
	Swarm SwarmConfig `yaml:"swarm"`

	// Audio capture settings
	Audio AudioConfig `yaml:"audio"`

	// Incident report settings
	Report ReportConfig `yaml:"report"`

	// Presentation settings
	Display DisplayConfig `yaml:"display"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging"`
}

// SceneSettings holds basic scene settings
type SceneSettings struct {
	Name           string        `yaml:"name"`
	Description    string        `yaml:"description"`
	UpdateInterval time.Duration `yaml:"update_interval"`
	Demo           bool          `yaml:"demo"`
}

// SwarmConfig defines swarm animation parameters
type SwarmConfig struct {
	NumAgents int   `yaml:"num_agents"`
	Seed      int64 `yaml:"seed"` // 0 picks a time-based seed
}

// AudioConfig defines audio capture settings
type AudioConfig struct {
	Enabled bool `yaml:"enabled"`
	Muted   bool `yaml:"muted"` // sound effects start muted
}

// ReportConfig defines incident report generation settings
type ReportConfig struct {
	Backend string `yaml:"backend"` // "canned" or "gemini"
	Model   string `yaml:"model"`   // gemini model name, optional
}

// DisplayConfig defines presentation settings
type DisplayConfig struct {
	TUI bool `yaml:"tui"` // full-screen terminal UI vs console log renderer
}

// LoggingConfig defines logging settings
type LoggingConfig struct {
	ConsoleLevel string `yaml:"console_level"` // "debug", "info", "warn", "error"
	NoColor      bool   `yaml:"no_color"`
}

// GetDefaultConfig returns the built-in scene configuration
func GetDefaultConfig() *SceneConfig {
	return &SceneConfig{
		Scene: SceneSettings{
			Name:           "sentinel-scene",
			Description:    "Acoustic-triggered sentinel swarm scenario",
			UpdateInterval: 50 * time.Millisecond,
			Demo:           false,
		},
		Swarm: SwarmConfig{
			NumAgents: 12,
			Seed:      0,
		},
		Audio: AudioConfig{
			Enabled: true,
			Muted:   false,
		},
		Report: ReportConfig{
			Backend: "canned",
			Model:   "",
		},
		Display: DisplayConfig{
			TUI: true,
		},
		Logging: LoggingConfig{
			ConsoleLevel: "info",
			NoColor:      false,
		},
	}
}

// Validate checks if the configuration is valid
func (c *SceneConfig) Validate() error {
	if c.Scene.Name == "" {
		return fmt.Errorf("scene name is required")
	}

	if c.Scene.UpdateInterval <= 0 {
		return fmt.Errorf("update interval must be positive")
	}

	if c.Swarm.NumAgents <= 0 {
		return fmt.Errorf("number of agents must be positive")
	}

	switch c.Report.Backend {
	case "canned", "gemini":
	default:
		return fmt.Errorf("report backend must be 'canned' or 'gemini', got %q", c.Report.Backend)
	}

	switch c.Logging.ConsoleLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("console level must be one of debug, info, warn, error")
	}

	return nil
}
