// Package audio plays event sounds. It offers an in-process backend built
// on beep (WAV, OGG, and MP3) and a backend that runs the platform's
// command-line player, and a Manager that turns events into arbiter
// requests.
package audio
