// Package dbus exposes popup controllers on the session bus as the
// io.github.jmylchreest.popctl1 interface and provides the matching client
// used by the popctl CLI.
package dbus
