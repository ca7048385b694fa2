package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/framefx/internal/effects"
	"github.com/ivlev/framefx/internal/frame"
)

// PresetVersion is written into every saved preset.
const PresetVersion = "1.0"

// Preset is a saved pipeline: regions plus the ordered effect chain.
type Preset struct {
	Version string         `yaml:"version"`
	Regions []RegionPreset `yaml:"regions,omitempty"`
	Effects []EffectPreset `yaml:"effects"`
}

// RegionPreset is one saved region.
type RegionPreset struct {
	ID    string     `yaml:"id"`
	Name  string     `yaml:"name"`
	Color string     `yaml:"color"`
	Rect  frame.Rect `yaml:"rect"`
}

// EffectPreset is one saved effect instance. Region is empty for global effects.
type EffectPreset struct {
	ID     string         `yaml:"id,omitempty"`
	Type   effects.Type   `yaml:"type"`
	Active bool           `yaml:"active"`
	Region string         `yaml:"region,omitempty"`
	Params effects.Params `yaml:"params,omitempty"`
}

// WritePreset writes a preset to a YAML file.
func WritePreset(p *Preset, path string) error {
	if p.Version == "" {
		p.Version = PresetVersion
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal preset: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// ReadPreset reads a preset from a YAML file.
func ReadPreset(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParsePreset(data)
}

// ParsePreset decodes preset YAML. A missing version is accepted as the current one.
func ParsePreset(data []byte) (*Preset, error) {
	var p Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse preset: %w", err)
	}
	if p.Version == "" {
		p.Version = PresetVersion
	}
	return &p, nil
}
