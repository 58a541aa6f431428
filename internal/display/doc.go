// Package display is the GTK4/libadwaita host for popups. A layer-shell
// bar carries one anchor button per popup; each popup is its own
// layer-shell window whose open and close transitions are a GtkRevealer
// animation. Everything here runs on the GTK main loop except the Bar's
// Backend methods, which marshal onto it with glib.IdleAdd.
package display
