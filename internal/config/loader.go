package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/kilobot-tracker/internal/imaging"
)

// profileSectionPrefix marks INI sections that define a profile, as in
// [profile.leader].
const profileSectionPrefix = "profile."

// Load reads a configuration file and merges it over the built-in defaults.
//
// The format is chosen by extension: .yaml or .yml for YAML, .ini for INI. An
// empty path returns Default(). Values missing from a profile that shares a
// built-in name keep the built-in value; new profiles inherit from standard.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(path)
	case ".ini":
		return LoadINI(path)
	default:
		return nil, fmt.Errorf("unsupported config format %q (want .yaml, .yml or .ini)", filepath.Ext(path))
	}
}

// LoadYAML loads configuration from a YAML file.
func LoadYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseYAML(data)
}

// ParseYAML parses YAML configuration data.
func ParseYAML(data []byte) (*Config, error) {
	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := Default()
	if file.Profile != "" {
		cfg.Profile = strings.ToLower(file.Profile)
	}
	if file.Workers > 0 {
		cfg.Workers = file.Workers
	}
	cfg.DebugDir = file.DebugDir
	cfg.Database = file.Database
	for name, p := range file.Profiles {
		cfg.merge(name, p)
	}
	return cfg, nil
}

// LoadINI loads configuration from an INI file.
//
//	[tracker]
//	profile = leader
//	workers = 4
//
//	[profile.leader]
//	x1 = 650
//	y1 = 255
//	x2 = 710
//	y2 = 325
//	sigma = 5
//	threshold = 0.7
func LoadINI(path string) (*Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	cfg := Default()
	tracker := file.Section("tracker")
	cfg.Profile = strings.ToLower(tracker.Key("profile").MustString(cfg.Profile))
	cfg.Workers = tracker.Key("workers").MustInt(cfg.Workers)
	cfg.DebugDir = tracker.Key("debug_dir").String()
	cfg.Database = tracker.Key("database").String()

	for _, section := range file.Sections() {
		if !strings.HasPrefix(section.Name(), profileSectionPrefix) {
			continue
		}
		name := strings.ToLower(strings.TrimPrefix(section.Name(), profileSectionPrefix))
		base := cfg.base(name)
		p := Profile{
			Channel: imaging.Channel(section.Key("channel").MustString(string(base.Channel))),
			Window: imaging.Window{
				X1: section.Key("x1").MustInt(base.Window.X1),
				Y1: section.Key("y1").MustInt(base.Window.Y1),
				X2: section.Key("x2").MustInt(base.Window.X2),
				Y2: section.Key("y2").MustInt(base.Window.Y2),
			},
			Sigma:     section.Key("sigma").MustFloat64(base.Sigma),
			Threshold: section.Key("threshold").MustFloat64(base.Threshold),
			Canvas: Canvas{
				Width:  section.Key("canvas_width").MustInt(base.Canvas.Width),
				Height: section.Key("canvas_height").MustInt(base.Canvas.Height),
			},
			MatchBackend: section.Key("match_backend").MustString(base.MatchBackend),
			TemplatePath: section.Key("template").MustString(base.TemplatePath),
		}
		cfg.merge(name, p)
	}
	return cfg, nil
}

// base returns the profile a file entry named name is merged over.
func (c *Config) base(name string) Profile {
	if p, ok := c.Profiles[name]; ok {
		return p
	}
	return c.Profiles[Standard]
}

// merge stores p under name, filling unset fields from the base profile.
func (c *Config) merge(name string, p Profile) {
	name = strings.ToLower(name)
	base := c.base(name)
	if p.Channel == "" {
		p.Channel = base.Channel
	}
	if p.Window == (imaging.Window{}) {
		p.Window = base.Window
	}
	if p.Sigma == 0 {
		p.Sigma = base.Sigma
	}
	if p.Threshold == 0 {
		p.Threshold = base.Threshold
	}
	if p.Canvas.Width == 0 {
		p.Canvas.Width = base.Canvas.Width
	}
	if p.Canvas.Height == 0 {
		p.Canvas.Height = base.Canvas.Height
	}
	if p.MatchBackend == "" {
		p.MatchBackend = base.MatchBackend
	}
	if p.TemplatePath == "" {
		p.TemplatePath = base.TemplatePath
	}
	p.Name = name
	c.Profiles[name] = p
}
