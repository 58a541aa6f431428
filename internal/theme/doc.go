// Package theme loads the GTK CSS used by the popctl bar and popups.
// Themes are looked up in ~/.config/popctl/themes/ first and fall back to
// the bundled ones, with @import statements inlined.
package theme
