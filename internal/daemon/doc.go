// Package daemon provides the main orchestration for hevsoundd: the gate
// between event sources and the sound arbiter, and hot reload of the
// config and shared state files.
package daemon
