// Package config loads the TOML file that parameterises a compilation.
//
//	name = "blinky"
//	device = "ice40-hx8k"
//	revision = "v1.2"
//	mode = "simulation"
//	extra_keywords = ["logic"]
//
//	[attributes.keep]
//	name = "keep"
//	value = 1
package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"fhdl/internal/verilog"
)

// Modes accepted by the mode key.
const (
	ModeSynthesis  = "synthesis"
	ModeSimulation = "simulation"
)

type Config struct {
	Name          string               `toml:"name"`
	Device        string               `toml:"device"`
	Revision      string               `toml:"revision"`
	Mode          string               `toml:"mode"`
	ExtraKeywords []string             `toml:"extra_keywords"`
	Attributes    map[string]Attribute `toml:"attributes"`

	// hasAttributes records whether an [attributes] table was present; an
	// empty table drops every keyed attribute.
	hasAttributes bool
}

// Attribute is the pragma an attribute key translates to.
type Attribute struct {
	Name  string      `toml:"name"`
	Value interface{} `toml:"value"`
}

// Default returns the configuration used without a file.
func Default() *Config {
	return &Config{Mode: ModeSynthesis}
}

// Load reads and checks the file at path.
func Load(path string) (*Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("config: %s: failed to parse TOML: %w", path, err)
	}
	if err := cfg.check(meta); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse reads a configuration held in memory.
func Parse(data string) (*Config, error) {
	cfg := Default()
	meta, err := toml.Decode(data, cfg)
	if err != nil {
		return nil, fmt.Errorf("config: failed to parse TOML: %w", err)
	}
	if err := cfg.check(meta); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *Config) check(meta toml.MetaData) error {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	switch c.Mode {
	case ModeSynthesis, ModeSimulation:
	default:
		return fmt.Errorf("mode must be %q or %q, got %q", ModeSynthesis, ModeSimulation, c.Mode)
	}
	if meta.IsDefined("name") && strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("name must not be empty")
	}
	c.hasAttributes = meta.IsDefined("attributes")
	for key, attr := range c.Attributes {
		if !meta.IsDefined("attributes", key, "name") || strings.TrimSpace(attr.Name) == "" {
			return fmt.Errorf("missing [attributes.%s].name", key)
		}
		if !meta.IsDefined("attributes", key, "value") {
			return fmt.Errorf("missing [attributes.%s].value", key)
		}
	}
	return nil
}

// Simulation reports whether simulation mode is selected.
func (c *Config) Simulation() bool {
	return c.Mode == ModeSimulation
}

// AttrTable builds the attribute translation table. It is nil when the file
// had no [attributes] table.
func (c *Config) AttrTable() verilog.AttrTable {
	if !c.hasAttributes {
		return nil
	}
	table := make(verilog.AttrTable, len(c.Attributes))
	for key, attr := range c.Attributes {
		table[key] = verilog.Pragma{Name: attr.Name, Value: attr.Value}
	}
	return table
}

// Options converts the configuration into conversion options.
func (c *Config) Options() verilog.Options {
	return verilog.Options{
		Name:          c.Name,
		Device:        c.Device,
		Revision:      c.Revision,
		Attributes:    c.AttrTable(),
		Simulation:    c.Simulation(),
		ExtraKeywords: append([]string(nil), c.ExtraKeywords...),
	}
}
