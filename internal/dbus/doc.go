// Package dbus exposes the hevsound daemon on the session bus. Editors
// and the CLI call Emit to request event sounds, toggle the master switch
// and read the daemon status; the daemon broadcasts a SoundPlayed signal
// for every sound that plays.
package dbus
