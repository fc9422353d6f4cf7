package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML configuration file. Command-line flags override
// every field.
type fileConfig struct {
	DB            string       `yaml:"db"`
	LogLevel      string       `yaml:"log_level"`
	DefaultFormat string       `yaml:"default_format"`
	PoolSize      int          `yaml:"pool_size"`
	Server        serverConfig `yaml:"server"`
}

type serverConfig struct {
	Listen       string        `yaml:"listen"`
	CORSOrigins  []string      `yaml:"cors_origins"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
}

// loadFileConfig reads path. An empty path yields an empty config.
func loadFileConfig(path string) (*fileConfig, error) {
	cfg := &fileConfig{}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

const configKey = "config"

func configFrom(c *cli.Context) *fileConfig {
	if cfg, ok := c.App.Metadata[configKey].(*fileConfig); ok {
		return cfg
	}
	return &fileConfig{}
}

// stringSetting prefers an explicit flag, then the file value, then the
// flag default.
func stringSetting(c *cli.Context, flag, fromFile string) string {
	if c.IsSet(flag) || fromFile == "" {
		return c.String(flag)
	}
	return fromFile
}

func intSetting(c *cli.Context, flag string, fromFile int) int {
	if c.IsSet(flag) || fromFile == 0 {
		return c.Int(flag)
	}
	return fromFile
}
