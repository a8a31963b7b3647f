// File: config/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package config loads YAML configuration for sockio executables.
package config

import (
	"fmt"
	"net/netip"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/momentics/sockio/api"
	"github.com/momentics/sockio/logger"
	"github.com/momentics/sockio/socket"
	"github.com/momentics/sockio/stats"
)

// Config is the root document for servers built on the toolkit.
type Config struct {
	Listen   ListenConfig   `yaml:"listen"`
	Transfer TransferConfig `yaml:"transfer"`
	Reactor  ReactorConfig  `yaml:"reactor"`
	Log      logger.Config  `yaml:"log"`
	Metrics  stats.Config   `yaml:"metrics"`
}

// ListenConfig names the dotted-decimal IPv4 endpoint to bind.
type ListenConfig struct {
	Addr string `yaml:"addr"`
}

// TransferConfig bounds per-connection transfers. A zero timeout means
// wait forever.
type TransferConfig struct {
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	BufferSize   int           `yaml:"buffer_size"`
}

// ReactorConfig sizes the event engine.
type ReactorConfig struct {
	MaxEvents int `yaml:"max_events"`
}

const (
	defaultListenAddr = "127.0.0.1:7070"
	defaultBufferSize = 4096
)

// Load reads path and unmarshals it, then validates. A missing file is an
// error; callers wanting defaults use Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a validated configuration for local development.
func Default() *Config {
	cfg := &Config{}
	_ = cfg.Validate()
	return cfg
}

// Validate fills defaults and rejects endpoints the toolkit cannot serve.
func (c *Config) Validate() error {
	if c.Listen.Addr == "" {
		c.Listen.Addr = defaultListenAddr
	}
	if _, err := socket.ParseHostPort(c.Listen.Addr); err != nil {
		return fmt.Errorf("listen.addr: %w", err)
	}
	if c.Transfer.BufferSize <= 0 {
		c.Transfer.BufferSize = defaultBufferSize
	}
	if c.Transfer.ReadTimeout < 0 || c.Transfer.WriteTimeout < 0 {
		return fmt.Errorf("transfer timeouts must not be negative")
	}
	if c.Reactor.MaxEvents < 0 {
		return fmt.Errorf("reactor.max_events must not be negative")
	}
	return nil
}

// ListenEndpoint parses the validated listen address.
func (c *Config) ListenEndpoint() (netip.AddrPort, error) {
	return socket.ParseHostPort(c.Listen.Addr)
}

// ReadBudget converts the read timeout into a transfer budget.
func (c *Config) ReadBudget() time.Duration {
	if c.Transfer.ReadTimeout == 0 {
		return api.Forever
	}
	return c.Transfer.ReadTimeout
}

// WriteBudget converts the write timeout into a transfer budget.
func (c *Config) WriteBudget() time.Duration {
	if c.Transfer.WriteTimeout == 0 {
		return api.Forever
	}
	return c.Transfer.WriteTimeout
}
