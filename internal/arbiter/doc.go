// Package arbiter decides which sound requests actually play.
// Requests are debounced briefly so that a higher-priority event arriving
// in the same user action can preempt a lower-priority one, and a cooldown
// after each played sound keeps equal or lower priority requests quiet.
package arbiter
