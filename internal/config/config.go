// Package config holds the scene calibration of a tracking setup.
//
// Calibration values are scene specific: the crop window of the calibration
// still, the blur sigma, the match threshold and the composite canvas size all
// depend on camera placement and resolution. They are grouped into named
// profiles. Two are built in:
//
//   - standard: single-bot detection on 720x480 footage
//   - leader: leader-bot detection on 1296x972 footage
//
// Profiles can be overridden or added from a YAML or INI file, and the active
// profile can be chosen with the KILOBOT_PROFILE environment variable.
package config

import (
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/kilobot-tracker/internal/calibrate"
	"github.com/ironsheep/kilobot-tracker/internal/detection"
	"github.com/ironsheep/kilobot-tracker/internal/errdefs"
	"github.com/ironsheep/kilobot-tracker/internal/imaging"
	"github.com/ironsheep/kilobot-tracker/internal/match"
	"github.com/ironsheep/kilobot-tracker/internal/transform"
)

// Environment variables read by the tracker.
const (
	EnvProfile  = "KILOBOT_PROFILE"
	EnvLogLevel = "KILOBOT_LOG_LEVEL"
)

// Built-in profile names.
const (
	Standard = "standard"
	Leader   = "leader"
)

// Canvas is the size of the composite image, normally the video resolution.
type Canvas struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// Profile is one named set of calibration values.
type Profile struct {
	Name         string          `yaml:"-" json:"name"`
	Channel      imaging.Channel `yaml:"channel" json:"channel"`
	Window       imaging.Window  `yaml:"window" json:"window"`
	Sigma        float64         `yaml:"sigma" json:"sigma"`
	Threshold    float64         `yaml:"threshold" json:"threshold"`
	Canvas       Canvas          `yaml:"canvas" json:"canvas"`
	MatchBackend string          `yaml:"match_backend" json:"match_backend"`
	TemplatePath string          `yaml:"template" json:"template"`
}

// Config is the top-level tracker configuration.
type Config struct {
	// Profile is the profile used when none is requested explicitly.
	Profile string `yaml:"profile"`

	// Workers bounds the number of frames processed in parallel.
	Workers int `yaml:"workers"`

	// DebugDir, when set, receives per-frame debug rasters.
	DebugDir string `yaml:"debug_dir"`

	// Database, when set, is the SQLite file runs are recorded in.
	Database string `yaml:"database"`

	Profiles map[string]Profile `yaml:"profiles"`
}

// StandardProfile returns the calibration for single-bot detection.
func StandardProfile() Profile {
	return Profile{
		Name:         Standard,
		Channel:      imaging.Red,
		Window:       imaging.Window{X1: 485, Y1: 135, X2: 535, Y2: 185},
		Sigma:        2,
		Threshold:    0.6,
		Canvas:       Canvas{Width: 720, Height: 480},
		MatchBackend: match.Native,
		TemplatePath: "templates/standard.png",
	}
}

// LeaderProfile returns the calibration for leader-bot detection.
func LeaderProfile() Profile {
	return Profile{
		Name:         Leader,
		Channel:      imaging.Red,
		Window:       imaging.Window{X1: 650, Y1: 255, X2: 710, Y2: 325},
		Sigma:        5,
		Threshold:    0.7,
		Canvas:       Canvas{Width: 1296, Height: 972},
		MatchBackend: match.Native,
		TemplatePath: "templates/leader.png",
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Profile: Standard,
		Workers: runtime.NumCPU(),
		Profiles: map[string]Profile{
			Standard: StandardProfile(),
			Leader:   LeaderProfile(),
		},
	}
}

// Names returns the configured profile names, sorted.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Select returns the profile to use. An empty name falls back to the
// KILOBOT_PROFILE environment variable and then to c.Profile.
func (c *Config) Select(name string) (Profile, error) {
	if name == "" {
		name = os.Getenv(EnvProfile)
	}
	if name == "" {
		name = c.Profile
	}
	if name == "" {
		name = Standard
	}
	p, ok := c.Profiles[strings.ToLower(name)]
	if !ok {
		return Profile{}, fmt.Errorf("unknown profile %q (available: %s)", name, strings.Join(c.Names(), ", "))
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Validate checks that the profile's calibration values are usable.
func (p Profile) Validate() error {
	if _, err := imaging.ParseChannel(string(p.Channel)); err != nil {
		return errdefs.InvalidArgument("profile %s: %v", p.Name, err)
	}
	if p.Window.Width() <= 0 || p.Window.Height() <= 0 || p.Window.X1 < 0 || p.Window.Y1 < 0 {
		return errdefs.InvalidArgument("profile %s: invalid window %+v", p.Name, p.Window)
	}
	if err := transform.CheckSigma(p.Sigma); err != nil {
		return errdefs.InvalidArgument("profile %s: %v", p.Name, err)
	}
	if p.Threshold < -1 || p.Threshold > 1 {
		return errdefs.InvalidArgument("profile %s: threshold %v outside [-1, 1]", p.Name, p.Threshold)
	}
	if p.Canvas.Width <= 0 || p.Canvas.Height <= 0 {
		return errdefs.InvalidArgument("profile %s: invalid canvas %dx%d", p.Name, p.Canvas.Width, p.Canvas.Height)
	}
	if _, err := match.Backend(p.MatchBackend); err != nil {
		return errdefs.InvalidArgument("profile %s: %v", p.Name, err)
	}
	return nil
}

// CalibrateOptions returns the template acquisition options of the profile.
func (p Profile) CalibrateOptions() calibrate.Options {
	return calibrate.Options{Window: p.Window, Sigma: p.Sigma, Channel: p.Channel}
}

// Detector builds a detector for the profile around an acquired template.
func (p Profile) Detector(template *mat.Dense) (*detection.Detector, error) {
	fn, err := match.Backend(p.MatchBackend)
	if err != nil {
		return nil, err
	}
	return &detection.Detector{
		Channel:   p.Channel,
		Sigma:     p.Sigma,
		Threshold: p.Threshold,
		Template:  template,
		Match:     fn,
	}, nil
}
