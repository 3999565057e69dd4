package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the regvm.toml configuration.
type Config struct {
	Verbose bool              `toml:"verbose"`
	Checked bool              `toml:"checked"`
	Dump    bool              `toml:"dump"`
	Equates map[string]string `toml:"equates"`
}

// LoadConfig parses a TOML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		return nil, fmt.Errorf("%s: unknown keys %v", path, undecoded)
	}

	return &cfg, nil
}
