// Package config loads and saves the daemon's runtime configuration.
// The panel layout itself lives in a separate JSON file (see the layout
// package); this file only points at it.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// maxBackups bounds the timestamped copies kept next to the config.
const maxBackups = 10

type PowerCfg struct {
	LimitAmps float64 `yaml:"limit_amps"`
	Enabled   bool    `yaml:"enabled"`
}

type UDPCfg struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type PipeCfg struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type SPICfg struct {
	Dev string `yaml:"dev"` // e.g. /dev/spidev0.0, empty = first available
}

type Config struct {
	LayoutPath string `yaml:"layout"`
	Driver     string `yaml:"driver"` // "spi" | "screen" | "sim"
	Brightness int    `yaml:"brightness"`
	QueueSize  int    `yaml:"queue_size"`
	HTTPAddr   string `yaml:"http_addr"`

	UDP   UDPCfg   `yaml:"udp"`
	Pipe  PipeCfg  `yaml:"pipe"`
	SPI   SPICfg   `yaml:"spi,omitempty"`
	Power PowerCfg `yaml:"power"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		LayoutPath: "layout.json",
		Driver:     "sim",
		Brightness: 128,
		QueueSize:  4,
		HTTPAddr:   ":8080",
		UDP:        UDPCfg{Enabled: true, Port: 5568},
		Pipe:       PipeCfg{Enabled: false, Path: "/tmp/ledpanel.pipe"},
		Power:      PowerCfg{LimitAmps: 8.5, Enabled: true},
	}
}

// Merge overlays the fields set in over onto a copy of base. A partial
// file leaves base's values in place for anything it omits: zero values
// mean "not set", matching how a partial YAML document decodes. The
// sub-sections apply wholesale when their identifying field (port, path,
// dev, limit) is set, so their enabled flags travel with them.
func Merge(base, over *Config) *Config {
	out := *base
	if over.LayoutPath != "" {
		out.LayoutPath = over.LayoutPath
	}
	if over.Driver != "" {
		out.Driver = over.Driver
	}
	if over.Brightness > 0 {
		out.Brightness = over.Brightness
	}
	if over.QueueSize > 0 {
		out.QueueSize = over.QueueSize
	}
	if over.HTTPAddr != "" {
		out.HTTPAddr = over.HTTPAddr
	}
	if over.UDP.Port > 0 {
		out.UDP = over.UDP
	}
	if over.Pipe.Path != "" {
		out.Pipe = over.Pipe
	}
	if over.SPI.Dev != "" {
		out.SPI = over.SPI
	}
	if over.Power.LimitAmps > 0 {
		out.Power = over.Power
	}
	return &out
}

// Load reads the YAML config at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &c, nil
}

// Save writes the config, keeping a timestamped backup of any existing
// file in a backup/ directory beside it, pruned to the most recent
// copies.
func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		if err := backup(path); err != nil {
			return err
		}
	}
	return os.WriteFile(path, b, 0o644)
}

func backup(path string) error {
	dir := filepath.Join(filepath.Dir(path), "backup")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	stem := filepath.Base(path)
	if ext := filepath.Ext(stem); ext != "" {
		stem = stem[:len(stem)-len(ext)]
	}
	name := fmt.Sprintf("%s_%s.yaml", stem, time.Now().Format("20060102_150405"))
	if err := os.WriteFile(filepath.Join(dir, name), b, 0o644); err != nil {
		return err
	}
	return pruneBackups(dir)
}

func pruneBackups(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".yaml" {
			names = append(names, e.Name())
		}
	}
	// Timestamped names sort chronologically.
	sort.Strings(names)
	for len(names) > maxBackups {
		if err := os.Remove(filepath.Join(dir, names[0])); err != nil {
			return err
		}
		names = names[1:]
	}
	return nil
}
