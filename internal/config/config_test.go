package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/popctl/internal/popup"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Len(t, cfg.Popups, 4)
	assert.Equal(t, 150*time.Millisecond, cfg.Animation.Duration.Duration())
	assert.Equal(t, 16, cfg.Animation.Frame.Milliseconds())
	assert.Equal(t, "slide-down", cfg.Animation.Transition)
	assert.Equal(t, "top", cfg.Display.BarPosition)
	assert.Equal(t, 320, cfg.Display.Width)
	assert.Equal(t, 40, cfg.TUI.Width)
	assert.True(t, cfg.TUI.ShowHelp)
	assert.False(t, cfg.Audio.Enabled)
	assert.Equal(t, "system", cfg.Theme.ColorScheme)
	assert.Equal(t, "dark", cfg.Theme.MarkdownStyle)
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/popctl.toml")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().IDs(), cfg.IDs())
}

func TestLoad_ParsesTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "popctl.toml")

	content := `
[[popup]]
id = "help"
label = "Help"
trigger = "hover"
delay = "200ms"
template = "{{.ID}}"

[[popup]]
id = "menu"
trigger = "outside-click"
delay = "50"
component = "keys"
sound = "~/sounds/pop.wav"

[animation]
duration = "1s"
transition = "crossfade"

[display]
bar_position = "bottom"
width = 400

[audio]
enabled = true
volume = 30

[theme]
color_scheme = "dark"
markdown_style = "notty"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, []string{"help", "menu"}, cfg.IDs())
	assert.Equal(t, 200*time.Millisecond, cfg.Popups[0].Delay.Duration())
	assert.Equal(t, 50*time.Millisecond, cfg.Popups[1].Delay.Duration())
	assert.Equal(t, "keys", cfg.Popups[1].Component)
	assert.Equal(t, "menu", cfg.Popups[1].DisplayLabel())
	assert.Equal(t, time.Second, cfg.Animation.Duration.Duration())
	assert.Equal(t, 16, cfg.Animation.Frame.Milliseconds(), "unset fields keep defaults")
	assert.Equal(t, "crossfade", cfg.Animation.Transition)
	assert.Equal(t, "bottom", cfg.Display.BarPosition)
	assert.Equal(t, 400, cfg.Display.Width)
	assert.True(t, cfg.Audio.Enabled)
	assert.Equal(t, 30, cfg.Audio.Volume)
	assert.Equal(t, "notty", cfg.Theme.MarkdownStyle)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "sounds/pop.wav"), cfg.Popups[1].SoundPath())
}

func TestLoad_ParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "popctl.yaml")

	content := `
popup:
  - id: tip
    trigger: focus
    delay: 250
    template: hello
tui:
  width: 60
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.Popups, 1)
	assert.Equal(t, "focus", cfg.Popups[0].Trigger)
	assert.Equal(t, 250*time.Millisecond, cfg.Popups[0].Delay.Duration())
	assert.Equal(t, 60, cfg.TUI.Width)
	assert.Equal(t, "top", cfg.Display.BarPosition)
}

func TestLoad_EmptyFileKeepsDefaultPopups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "popctl.toml")
	require.NoError(t, os.WriteFile(path, []byte("[tui]\nshow_help = false\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().IDs(), cfg.IDs())
	assert.False(t, cfg.TUI.ShowHelp)
}

func TestLoad_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "popctl.toml")
	require.NoError(t, os.WriteFile(path, []byte(`this is not valid toml [`), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty id", func(c *Config) { c.Popups[0].ID = "" }},
		{"duplicate id", func(c *Config) { c.Popups[1].ID = c.Popups[0].ID }},
		{"bad trigger", func(c *Config) { c.Popups[0].Trigger = "wiggle" }},
		{"bad transition", func(c *Config) { c.Animation.Transition = "spin" }},
		{"zero frame", func(c *Config) { c.Animation.Frame = 0 }},
		{"bad position", func(c *Config) { c.Display.BarPosition = "left" }},
		{"narrow", func(c *Config) { c.Display.Width = 10 }},
		{"narrow tui", func(c *Config) { c.TUI.Width = 2 }},
		{"loud", func(c *Config) { c.Audio.Volume = 101 }},
		{"bad scheme", func(c *Config) { c.Theme.ColorScheme = "sepia" }},
		{"bad markdown style", func(c *Config) { c.Theme.MarkdownStyle = "neon" }},
		{"long id", func(c *Config) { c.Popups[0].ID = strings.Repeat("x", 65) }},
		{"metrics without listen", func(c *Config) { c.Metrics.Enabled, c.Metrics.Listen = true, "" }},
		{"metrics bad listen", func(c *Config) { c.Metrics.Listen = "nowhere" }},
		{"metrics relative path", func(c *Config) { c.Metrics.Path = "metrics" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_TagErrorNamesField(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Metrics.Path = "metrics"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Config.Metrics.Path")
	assert.Contains(t, err.Error(), "startswith")
}

func TestValidate_InvalidTriggerWrapsSentinel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Popups[0].Trigger = "wiggle"
	assert.ErrorIs(t, cfg.Validate(), popup.ErrInvalidTrigger)
}

func TestConfig_Popup(t *testing.T) {
	cfg := DefaultConfig()

	p, err := cfg.Popup("keys")
	require.NoError(t, err)
	assert.Equal(t, "keys", p.Component)

	_, err = cfg.Popup("nope")
	assert.ErrorIs(t, err, ErrUnknownPopup)
}

func TestPopup_PopupConfig(t *testing.T) {
	p := Popup{
		ID:        "x",
		Trigger:   "outside-click",
		Delay:     Duration(-time.Second),
		Template:  "t",
		Component: "c",
	}
	pc, err := p.PopupConfig()
	require.NoError(t, err)
	assert.Equal(t, popup.TriggerOutsideClick, pc.Trigger)
	assert.Equal(t, time.Duration(0), pc.EffectiveDelay())
	assert.Equal(t, "t", pc.Template)
	assert.Equal(t, "c", pc.Component)

	p.Trigger = "bogus"
	_, err = p.PopupConfig()
	assert.Error(t, err)
}

func TestConfig_Save(t *testing.T) {
	for _, name := range []string{"popctl.toml", "popctl.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "subdir", name)

			cfg := DefaultConfig()
			cfg.Popups[0].Delay = Duration(750 * time.Millisecond)
			cfg.Display.BarPosition = "bottom"
			require.NoError(t, cfg.Save(path))

			_, err := os.Stat(path + ".tmp")
			assert.True(t, os.IsNotExist(err), "temp file is renamed away")

			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, cfg.IDs(), loaded.IDs())
			assert.Equal(t, 750*time.Millisecond, loaded.Popups[0].Delay.Duration())
			assert.Equal(t, "bottom", loaded.Display.BarPosition)
			assert.Equal(t, cfg.Popups[2].Markdown, loaded.Popups[2].Markdown)
		})
	}
}

func TestDuration_UnmarshalText(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"250ms", 250 * time.Millisecond},
		{"1m30s", 90 * time.Second},
		{"1500", 1500 * time.Millisecond},
		{"0", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var d Duration
			require.NoError(t, d.UnmarshalText([]byte(tt.in)))
			assert.Equal(t, tt.want, d.Duration())
		})
	}

	var d Duration
	assert.Error(t, d.UnmarshalText([]byte("soon")))
}

func TestConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	assert.Equal(t, "/custom/config/popctl/popctl.toml", ConfigPath())
}

func TestConfigPathDefault(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	assert.Contains(t, ConfigPath(), filepath.Join("popctl", "popctl.toml"))
}
