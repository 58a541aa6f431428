// Package audio plays the sounds cued by popups opening and closing.
package audio
