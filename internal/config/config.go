// Package config handles render style configuration loading.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Style is the root render style file structure. Colors are hex strings in
// "#rrggbb" or "#rrggbbaa" form.
type Style struct {
	// ByType overrides the base style per feature, keyed on the feature's
	// "type" property.
	ByType map[string]Override `yaml:"by_type,omitempty"`

	Background  string  `yaml:"background,omitempty"`
	Stroke      string  `yaml:"stroke,omitempty"`
	Fill        string  `yaml:"fill,omitempty"`
	Width       int     `yaml:"width,omitempty"`
	Height      int     `yaml:"height,omitempty"`
	PointRadius float64 `yaml:"point_radius,omitempty"`
	StrokeWidth float64 `yaml:"stroke_width,omitempty"`
}

// Override is a partial style applied on top of the base style. Empty or
// zero fields keep the base value.
type Override struct {
	Stroke      string  `yaml:"stroke,omitempty"`
	Fill        string  `yaml:"fill,omitempty"`
	PointRadius float64 `yaml:"point_radius,omitempty"`
	StrokeWidth float64 `yaml:"stroke_width,omitempty"`
}

// Default returns the style used when no configuration file is given.
func Default() *Style {
	return &Style{
		Width:       1024,
		Height:      1024,
		Background:  "#ffffff",
		Stroke:      "#1a4f8b",
		Fill:        "#1a4f8b40",
		PointRadius: 3,
		StrokeWidth: 1.5,
	}
}

// Load reads and parses the YAML style file from the specified path,
// filling unset base fields from the defaults.
func Load(path string) (*Style, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	style := Default()
	if err := yaml.Unmarshal(data, style); err != nil {
		return nil, err
	}

	if style.Width <= 0 {
		style.Width = 1024
	}
	if style.Height <= 0 {
		style.Height = 1024
	}

	return style, nil
}
