// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package quadkv

import (
	"errors"
	"log/slog"
	"runtime"

	"github.com/poiesic/quadkv/codec"
)

// Config holds Database settings.
type Config struct {
	// DefaultFormat is the serialization format used for graphs stored
	// without a format tag and for writes that name no format.
	// Default: application/n-quads
	DefaultFormat string

	// PoolSize bounds how many keys RunBatch processes concurrently.
	// Default: runtime.NumCPU()
	PoolSize int

	// Logger receives diagnostics from every component.
	// Default: slog.Default()
	Logger *slog.Logger
}

// Option is a functional option for configuring a Config.
type Option func(*Config)

// WithDefaultFormat sets the default serialization format.
func WithDefaultFormat(format string) Option {
	return func(c *Config) {
		c.DefaultFormat = format
	}
}

// WithPoolSize sets the RunBatch worker pool size.
func WithPoolSize(size int) Option {
	return func(c *Config) {
		c.PoolSize = size
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// DefaultConfig returns a Config with defaults filled in.
func DefaultConfig() *Config {
	return &Config{
		DefaultFormat: codec.DefaultFormat,
		PoolSize:      runtime.NumCPU(),
		Logger:        slog.Default(),
	}
}

// NewConfig creates a Config with the default values and applies opts.
func NewConfig(opts ...Option) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.DefaultFormat == "" {
		return errors.New("quadkv config: DefaultFormat is required")
	}
	if c.PoolSize < 1 {
		return errors.New("quadkv config: PoolSize must be at least 1")
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return nil
}
