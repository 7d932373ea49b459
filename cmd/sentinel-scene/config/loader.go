package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/skyfold/swarmstage/pkg/logger"
)

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*SceneConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Start from defaults so a partial file only overrides what it names
	config := GetDefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// LoadConfigOrDefault loads config from file or returns the default, then
// applies environment variable overrides either way
func LoadConfigOrDefault(path string) (*SceneConfig, error) {
	var config *SceneConfig

	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			logger.Warnf("Could not load config from %s: %v", path, err)
		} else {
			config = loaded
		}
	}

	if config == nil {
		defaultPaths := []string{
			"scene.yaml",
			"sentinel-scene.yaml",
		}
		for _, p := range defaultPaths {
			if _, err := os.Stat(p); err == nil {
				loaded, err := LoadConfig(p)
				if err == nil {
					logger.Infof("Loaded config from: %s", p)
					config = loaded
					break
				}
			}
		}
	}

	if config == nil {
		config = GetDefaultConfig()
	}

	MergeWithEnvironment(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed after overrides: %w", err)
	}

	return config, nil
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(config *SceneConfig, path string) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// MergeWithEnvironment merges config with SCENE_* environment variables
func MergeWithEnvironment(config *SceneConfig) {
	if interval := os.Getenv("SCENE_UPDATE_INTERVAL"); interval != "" {
		if duration, err := time.ParseDuration(interval); err == nil && duration > 0 {
			config.Scene.UpdateInterval = duration
		}
	}

	if demo := os.Getenv("SCENE_DEMO"); demo != "" {
		if enable, err := strconv.ParseBool(demo); err == nil {
			config.Scene.Demo = enable
		}
	}

	if numAgents := os.Getenv("SCENE_NUM_AGENTS"); numAgents != "" {
		if count, err := strconv.Atoi(numAgents); err == nil && count > 0 {
			config.Swarm.NumAgents = count
		}
	}

	if seed := os.Getenv("SCENE_SEED"); seed != "" {
		if value, err := strconv.ParseInt(seed, 10, 64); err == nil {
			config.Swarm.Seed = value
		}
	}

	if audio := os.Getenv("SCENE_AUDIO"); audio != "" {
		if enable, err := strconv.ParseBool(audio); err == nil {
			config.Audio.Enabled = enable
		}
	}

	if muted := os.Getenv("SCENE_MUTED"); muted != "" {
		if enable, err := strconv.ParseBool(muted); err == nil {
			config.Audio.Muted = enable
		}
	}

	if backend := os.Getenv("SCENE_REPORT_BACKEND"); backend != "" {
		switch strings.ToLower(backend) {
		case "canned", "gemini":
			config.Report.Backend = strings.ToLower(backend)
		}
	}

	if model := os.Getenv("SCENE_REPORT_MODEL"); model != "" {
		config.Report.Model = model
	}

	if tui := os.Getenv("SCENE_TUI"); tui != "" {
		if enable, err := strconv.ParseBool(tui); err == nil {
			config.Display.TUI = enable
		}
	}

	if logLevel := os.Getenv("SCENE_LOG_LEVEL"); logLevel != "" {
		switch strings.ToLower(logLevel) {
		case "debug", "info", "warn", "error":
			config.Logging.ConsoleLevel = strings.ToLower(logLevel)
		}
	}

	if noColor := os.Getenv("SCENE_NO_COLOR"); noColor != "" {
		if enable, err := strconv.ParseBool(noColor); err == nil {
			config.Logging.NoColor = enable
		}
	}
}
