// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/popctl/internal/popup"
)

// ErrUnknownPopup is returned when a popup id is not configured.
var ErrUnknownPopup = errors.New("unknown popup")

// Default configuration values.
const (
	DefaultAnimationDuration = 150
	DefaultAnimationFrame    = 16
	DefaultTransition        = "slide-down"
	DefaultBarPosition       = "top"
	DefaultWidth             = 320
	DefaultTUIWidth          = 40
	DefaultVolume            = 70
	DefaultMarkdownStyle     = "dark"
	DefaultMetricsListen     = "127.0.0.1:9469"
	DefaultMetricsPath       = "/metrics"
)

// Config represents the popctl configuration.
type Config struct {
	Popups    []Popup         `toml:"popup" yaml:"popup" validate:"dive"`
	Animation AnimationConfig `toml:"animation" yaml:"animation"`
	Display   DisplayConfig   `toml:"display" yaml:"display"`
	TUI       TUIConfig       `toml:"tui" yaml:"tui"`
	Audio     AudioConfig     `toml:"audio" yaml:"audio"`
	Theme     ThemeConfig     `toml:"theme" yaml:"theme"`
	Metrics   MetricsConfig   `toml:"metrics" yaml:"metrics"`
}

// Popup is one anchored popup and the label of its anchor.
type Popup struct {
	ID        string   `toml:"id" yaml:"id" validate:"required,max=64,printascii"`
	Label     string   `toml:"label" yaml:"label"`
	Trigger   string   `toml:"trigger" yaml:"trigger"` // none, hover, click, outside-click, focus
	Delay     Duration `toml:"delay" yaml:"delay"`     // e.g. "250ms" or "250"
	Template  string   `toml:"template,omitempty" yaml:"template,omitempty"`
	Component string   `toml:"component,omitempty" yaml:"component,omitempty"`
	Markdown  bool     `toml:"markdown,omitempty" yaml:"markdown,omitempty"`
	Sound     string   `toml:"sound,omitempty" yaml:"sound,omitempty"`
}

// AnimationConfig controls open and close transitions.
type AnimationConfig struct {
	Duration   Duration `toml:"duration" yaml:"duration"`
	Frame      Duration `toml:"frame" yaml:"frame"`           // TUI frame interval
	Transition string   `toml:"transition" yaml:"transition"` // GTK revealer transition
}

// DisplayConfig contains settings for the GTK bar and popup windows.
type DisplayConfig struct {
	BarPosition string `toml:"bar_position" yaml:"bar_position"` // "top" or "bottom"
	OffsetY     int    `toml:"offset_y" yaml:"offset_y"`         // Gap between bar and popup
	Width       int    `toml:"width" yaml:"width"`               // Popup width in pixels
	Monitor     int    `toml:"monitor" yaml:"monitor"`           // 0 = compositor default, 1+ = specific monitor
}

// TUIConfig holds TUI-specific settings.
type TUIConfig struct {
	Width    int  `toml:"width" yaml:"width"` // Popup width in columns
	ShowHelp bool `toml:"show_help" yaml:"show_help"`
}

// AudioConfig contains audio settings.
type AudioConfig struct {
	Enabled    bool   `toml:"enabled" yaml:"enabled"`
	Volume     int    `toml:"volume" yaml:"volume"` // 0-100
	OpenSound  string `toml:"open_sound" yaml:"open_sound"`
	CloseSound string `toml:"close_sound" yaml:"close_sound"`
}

// ThemeConfig contains theme settings.
type ThemeConfig struct {
	Name          string `toml:"name" yaml:"name"`                     // GTK CSS theme, bundled or in the themes dir
	ColorScheme   string `toml:"color_scheme" yaml:"color_scheme"`     // "system", "light", or "dark"
	MarkdownStyle string `toml:"markdown_style" yaml:"markdown_style"` // glamour standard style
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Listen  string `toml:"listen" yaml:"listen" validate:"required_if=Enabled true,omitempty,hostname_port"`
	Path    string `toml:"path" yaml:"path" validate:"omitempty,startswith=/"`
}

// ColorScheme represents the color scheme preference.
type ColorScheme string

const (
	ColorSchemeSystem ColorScheme = "system"
	ColorSchemeLight  ColorScheme = "light"
	ColorSchemeDark   ColorScheme = "dark"
)

// ValidColorSchemes returns all valid color scheme values.
func ValidColorSchemes() []ColorScheme {
	return []ColorScheme{ColorSchemeSystem, ColorSchemeLight, ColorSchemeDark}
}

// ValidTransitions returns the supported GTK revealer transitions.
func ValidTransitions() []string {
	return []string{"none", "crossfade", "slide-down", "slide-up"}
}

// ValidMarkdownStyles returns the glamour styles accepted for markdown popups.
func ValidMarkdownStyles() []string {
	return []string{"dark", "light", "notty", "ascii", "pink", "dracula", "tokyo-night"}
}

// DefaultPopups returns the popups used when the config file defines none.
func DefaultPopups() []Popup {
	return []Popup{
		{
			ID:       "help",
			Label:    "Help",
			Trigger:  popup.TriggerHover.String(),
			Delay:    Duration(300 * time.Millisecond),
			Template: "Hover help for {{.ID | upper}}\nopened {{ago now}}",
		},
		{
			ID:        "keys",
			Label:     "Keys",
			Trigger:   popup.TriggerClick.String(),
			Delay:     Duration(100 * time.Millisecond),
			Component: "keys",
		},
		{
			ID:       "about",
			Label:    "About",
			Trigger:  popup.TriggerOutsideClick.String(),
			Template: "# popctl\n\nClick **outside** to dismiss.",
			Markdown: true,
		},
		{
			ID:        "clock",
			Label:     "Clock",
			Trigger:   popup.TriggerFocus.String(),
			Component: "clock",
		},
	}
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Popups: DefaultPopups(),
		Animation: AnimationConfig{
			Duration:   Duration(DefaultAnimationDuration * time.Millisecond),
			Frame:      Duration(DefaultAnimationFrame * time.Millisecond),
			Transition: DefaultTransition,
		},
		Display: DisplayConfig{
			BarPosition: DefaultBarPosition,
			OffsetY:     4,
			Width:       DefaultWidth,
		},
		TUI: TUIConfig{
			Width:    DefaultTUIWidth,
			ShowHelp: true,
		},
		Audio: AudioConfig{
			Enabled: false,
			Volume:  DefaultVolume,
		},
		Theme: ThemeConfig{
			Name:          "default",
			ColorScheme:   string(ColorSchemeSystem),
			MarkdownStyle: DefaultMarkdownStyle,
		},
		Metrics: MetricsConfig{
			Listen: DefaultMetricsListen,
			Path:   DefaultMetricsPath,
		},
	}
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "popctl", "popctl.toml")
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Load loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if the file doesn't exist. Files ending in .yaml or
// .yml are parsed as YAML, everything else as TOML.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data, isYAML(path))
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes and validates configuration data. Fields absent from data
// keep their defaults.
func Parse(data []byte, asYAML bool) (*Config, error) {
	cfg := DefaultConfig()
	// Popups from the file replace the defaults rather than merging with them.
	cfg.Popups = nil

	var err error
	if asYAML {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = toml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if len(cfg.Popups) == 0 {
		cfg.Popups = DefaultPopups()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed and writes atomically via a temp file.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = toml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Popups))
	for i, p := range c.Popups {
		if p.ID == "" {
			return fmt.Errorf("popup %d: id is required", i)
		}
		if seen[p.ID] {
			return fmt.Errorf("popup %q: duplicate id", p.ID)
		}
		seen[p.ID] = true
		if _, err := popup.ParseTrigger(p.Trigger); err != nil {
			return fmt.Errorf("popup %q: %w", p.ID, err)
		}
	}

	if c.Animation.Duration < 0 {
		return fmt.Errorf("animation duration must not be negative, got %s", c.Animation.Duration.Duration())
	}
	if c.Animation.Frame <= 0 {
		return fmt.Errorf("animation frame must be positive, got %s", c.Animation.Frame.Duration())
	}
	if !contains(ValidTransitions(), c.Animation.Transition) {
		return fmt.Errorf("invalid transition %q, must be one of: %v", c.Animation.Transition, ValidTransitions())
	}

	if c.Display.BarPosition != "top" && c.Display.BarPosition != "bottom" {
		return fmt.Errorf("invalid bar_position %q, must be top or bottom", c.Display.BarPosition)
	}
	if c.Display.Width < 100 || c.Display.Width > 1000 {
		return fmt.Errorf("width must be between 100 and 1000, got %d", c.Display.Width)
	}
	if c.Display.Monitor < 0 {
		return fmt.Errorf("monitor must be 0 or greater, got %d", c.Display.Monitor)
	}
	if c.TUI.Width < 10 || c.TUI.Width > 200 {
		return fmt.Errorf("tui width must be between 10 and 200, got %d", c.TUI.Width)
	}

	if c.Audio.Volume < 0 || c.Audio.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", c.Audio.Volume)
	}

	validScheme := false
	for _, s := range ValidColorSchemes() {
		if c.Theme.ColorScheme == string(s) {
			validScheme = true
			break
		}
	}
	if !validScheme {
		return fmt.Errorf("invalid color_scheme %q, must be one of: %v", c.Theme.ColorScheme, ValidColorSchemes())
	}
	if !contains(ValidMarkdownStyles(), c.Theme.MarkdownStyle) {
		return fmt.Errorf("invalid markdown_style %q, must be one of: %v", c.Theme.MarkdownStyle, ValidMarkdownStyles())
	}

	return checkTags(c)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// checkTags applies the validate struct tags and reports the first failure
// by its field path.
func checkTags(c *Config) error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Param() != "" {
			return fmt.Errorf("%s: failed %s=%s check, got %v", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value())
		}
		return fmt.Errorf("%s: failed %s check, got %v", fe.Namespace(), fe.Tag(), fe.Value())
	}
	return err
}

// Popup returns the popup with the given id.
func (c *Config) Popup(id string) (*Popup, error) {
	for i := range c.Popups {
		if c.Popups[i].ID == id {
			return &c.Popups[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownPopup, id)
}

// IDs returns the configured popup ids in file order.
func (c *Config) IDs() []string {
	ids := make([]string, len(c.Popups))
	for i, p := range c.Popups {
		ids[i] = p.ID
	}
	return ids
}

// PopupConfig converts the entry into a controller configuration.
func (p Popup) PopupConfig() (popup.Config, error) {
	trigger, err := popup.ParseTrigger(p.Trigger)
	if err != nil {
		return popup.Config{}, err
	}
	return popup.Config{
		Trigger:   trigger,
		Delay:     p.Delay.Duration(),
		Template:  p.Template,
		Component: p.Component,
	}, nil
}

// DisplayLabel returns the anchor label, falling back to the id.
func (p Popup) DisplayLabel() string {
	if p.Label != "" {
		return p.Label
	}
	return p.ID
}

// SoundPath returns the popup's sound with ~ expanded.
func (p Popup) SoundPath() string {
	return ExpandPath(p.Sound)
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
