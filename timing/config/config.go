// Package config provides the simulator session configuration: hazard
// handling toggles, memory size, cycle limit and the initial machine state.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/sarchlab/mipsim/emu"
)

// ErrInvalidConfig is returned by Validate for an unusable configuration.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds session configuration parameters.
// Values can be loaded from JSON or YAML files.
type Config struct {
	// HazardDetection enables load-use stall insertion.
	HazardDetection bool `json:"hazard_detection" yaml:"hazard_detection"`

	// Forwarding enables the EX/MEM and MEM/WB bypass paths.
	Forwarding bool `json:"forwarding" yaml:"forwarding"`

	// MemoryWords is the data memory capacity in words.
	MemoryWords int `json:"memory_words" yaml:"memory_words"`

	// MaxCycles stops a run after this many cycles. Zero means no limit.
	MaxCycles uint64 `json:"max_cycles" yaml:"max_cycles"`

	// Registers holds initial register values keyed by register number.
	Registers map[int]emu.Word `json:"registers,omitempty" yaml:"registers,omitempty"`

	// Memory holds initial memory words keyed by byte address.
	Memory map[int]emu.Word `json:"memory,omitempty" yaml:"memory,omitempty"`
}

// DefaultConfig returns the default configuration: both hazard mechanisms
// on, 4096 words of memory, no cycle limit and a zeroed machine.
func DefaultConfig() *Config {
	return &Config{
		HazardDetection: true,
		Forwarding:      true,
		MemoryWords:     emu.DefaultMemoryWords,
	}
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// LoadConfig loads a configuration from a file. Files ending in .yaml or
// .yml are parsed as YAML, everything else as JSON. Fields missing from the
// file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return config, nil
}

// SaveConfig saves the configuration to a file, as YAML or JSON by
// extension.
func (c *Config) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.MemoryWords <= 0 {
		return fmt.Errorf("%w: memory_words must be > 0", ErrInvalidConfig)
	}

	for idx := range c.Registers {
		if idx < 0 || idx >= emu.NumRegisters {
			return fmt.Errorf("%w: register %d out of range", ErrInvalidConfig, idx)
		}
	}

	limit := c.MemoryWords * emu.WordSize
	for addr := range c.Memory {
		if addr < 0 || addr >= limit {
			return fmt.Errorf("%w: memory address %d out of range [0, %d)",
				ErrInvalidConfig, addr, limit)
		}
	}

	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Registers = maps.Clone(c.Registers)
	clone.Memory = maps.Clone(c.Memory)
	return &clone
}

// SetRegister records an initial register value.
func (c *Config) SetRegister(idx int, v emu.Word) {
	if c.Registers == nil {
		c.Registers = make(map[int]emu.Word)
	}
	c.Registers[idx] = v
}

// SetMemory records an initial memory word at a byte address.
func (c *Config) SetMemory(addr int, v emu.Word) {
	if c.Memory == nil {
		c.Memory = make(map[int]emu.Word)
	}
	c.Memory[addr] = v
}

// Apply writes the initial register and memory values, in ascending
// register and address order.
func (c *Config) Apply(regFile *emu.RegFile, memory *emu.Memory) error {
	for _, idx := range slices.Sorted(maps.Keys(c.Registers)) {
		if err := regFile.Write(idx, c.Registers[idx]); err != nil {
			return fmt.Errorf("initial register: %w", err)
		}
	}

	for _, addr := range slices.Sorted(maps.Keys(c.Memory)) {
		if err := memory.Store(emu.Word(addr), c.Memory[addr]); err != nil {
			return fmt.Errorf("initial memory: %w", err)
		}
	}

	return nil
}
