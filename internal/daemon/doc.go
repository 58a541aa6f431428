// Package daemon wires the long-running pieces around a popup host: the
// D-Bus control server, configuration hot-reload and audio cues. Both the
// GTK daemon and the terminal demo use it.
package daemon
