// Package store persists state shared between the daemon and the CLI,
// and the journal of played sounds.
package store
