package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type config struct {
	Device   string `yaml:"device"`
	Width    int    `yaml:"width"`
	Height   int    `yaml:"height"`
	Format   string `yaml:"format"`
	Count    int    `yaml:"count"`
	Planes   int    `yaml:"planes"` // synthetic planes, 0 for one per buffer
	Importer string `yaml:"importer"`
	Preview  string `yaml:"preview"` // framebuffer device
	Debug    bool   `yaml:"debug"`
}

var defaultConfig = config{
	Device:   "/dev/dri/card0",
	Width:    640,
	Height:   480,
	Format:   "XRGB8888",
	Count:    2,
	Importer: "generic",
}

// loadEnv applies HWC_* variables from the environment and an optional .env file.
func (c *config) loadEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	if v := os.Getenv("HWC_DEVICE"); v != "" {
		c.Device = v
	}
	if v := os.Getenv("HWC_FORMAT"); v != "" {
		c.Format = v
	}
	if v := os.Getenv("HWC_IMPORTER"); v != "" {
		c.Importer = v
	}
	if v := os.Getenv("HWC_PREVIEW"); v != "" {
		c.Preview = v
	}
	if os.Getenv("HWC_DEBUG") != "" {
		c.Debug = true
	}
	for _, env := range []struct {
		name  string
		value *int
	}{
		{"HWC_WIDTH", &c.Width},
		{"HWC_HEIGHT", &c.Height},
		{"HWC_COUNT", &c.Count},
		{"HWC_PLANES", &c.Planes},
	} {
		v := os.Getenv(env.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", env.name, err)
		}
		*env.value = n
	}
	return nil
}

// loadFile applies the settings in a YAML file.
func (c *config) loadFile(name string) error {
	b, err := os.ReadFile(name)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err = yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

func (c *config) validate() error {
	switch {
	case c.Device == "":
		return errors.New("no device")
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("invalid size %dx%d", c.Width, c.Height)
	case c.Count <= 0:
		return fmt.Errorf("invalid buffer count %d", c.Count)
	case c.Planes < 0:
		return fmt.Errorf("invalid plane count %d", c.Planes)
	}
	return nil
}
