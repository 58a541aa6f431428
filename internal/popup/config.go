package popup

import "time"

// Config is the immutable configuration of one popup.
type Config struct {
	Trigger Trigger
	// Delay between an open request and the open transition. Negative values
	// are treated as zero.
	Delay time.Duration
	// Template is a template descriptor. It takes precedence over Component.
	Template string
	// Component is the name of a registered component.
	Component string
}

// EffectiveDelay returns Delay clamped to be non-negative.
func (c Config) EffectiveDelay() time.Duration {
	if c.Delay < 0 {
		return 0
	}
	return c.Delay
}

// HasContent reports whether any content descriptor is configured.
func (c Config) HasContent() bool {
	return c.Template != "" || c.Component != ""
}
