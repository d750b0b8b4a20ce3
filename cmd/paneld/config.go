package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/panelkit/paneld/pkg/model"
)

// Config holds the daemon configuration. Flags override file values.
type Config struct {
	SocketPath    string        `yaml:"socket"`
	ProfileDir    string        `yaml:"profileDir"`
	LogLevel      string        `yaml:"logLevel"`
	CaptureFile   string        `yaml:"captureFile"`
	RenderWorkers int           `yaml:"renderWorkers"`
	DrainTimeout  time.Duration `yaml:"drainTimeout"`

	// Simulate lists synthetic panels to attach at startup, for running
	// without hardware.
	Simulate []SimPanel `yaml:"simulate"`
}

// SimPanel describes one synthetic panel.
type SimPanel struct {
	ID          string `yaml:"id"`
	Rows        uint8  `yaml:"rows"`
	Columns     uint8  `yaml:"columns"`
	ImageWidth  int    `yaml:"imageWidth"`
	ImageHeight int    `yaml:"imageHeight"`
}

// Descriptor builds the model descriptor for a synthetic panel.
func (p SimPanel) Descriptor() model.Descriptor {
	return model.Descriptor{
		Rows:        p.Rows,
		Columns:     p.Columns,
		ImageWidth:  p.ImageWidth,
		ImageHeight: p.ImageHeight,
		Format:      model.FormatRGB,
	}
}

func defaultConfig() Config {
	return Config{
		SocketPath:   "/run/paneld/paneld.sock",
		ProfileDir:   "/var/lib/paneld/profiles",
		LogLevel:     "info",
		DrainTimeout: 5 * time.Second,
	}
}

// loadConfigFile overlays on top of defaults; missing file is an error
// only when a path was given explicitly.
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.SocketPath == "" {
		return fmt.Errorf("socket path must not be empty")
	}
	if c.ProfileDir == "" {
		return fmt.Errorf("profile directory must not be empty")
	}
	for _, p := range c.Simulate {
		if p.ID == "" {
			return fmt.Errorf("simulated panel needs an id")
		}
		if p.Rows == 0 || p.Columns == 0 {
			return fmt.Errorf("simulated panel %s needs rows and columns", p.ID)
		}
		if p.ImageWidth <= 0 || p.ImageHeight <= 0 {
			return fmt.Errorf("simulated panel %s needs an image size", p.ID)
		}
	}
	return nil
}
