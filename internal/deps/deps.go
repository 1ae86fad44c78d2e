// Package deps verifies that the external sound player is installed.
package deps

import (
	"fmt"
	"os/exec"

	"github.com/jmylchreest/hevsound/internal/audio"
)

// InstallURL explains how to install the sound player.
const InstallURL = "https://github.com/MateoRyhr/hl2-theme#installation"

// Result is the outcome of a dependency check.
type Result struct {
	GOOS        string `json:"goos" yaml:"goos"`
	Tool        string `json:"tool" yaml:"tool"`
	Found       bool   `json:"found" yaml:"found"`
	Path        string `json:"path,omitempty" yaml:"path,omitempty"`
	Remediation string `json:"remediation,omitempty" yaml:"remediation,omitempty"`
}

// OK reports whether sounds can be played with the command backend.
func (r Result) OK() bool {
	return r.Found
}

// Message describes the result for humans.
func (r Result) Message() string {
	switch {
	case r.Tool == "":
		return fmt.Sprintf("no command player on %s, sounds use the native backend", r.GOOS)
	case r.Found:
		return fmt.Sprintf("%s found at %s", r.Tool, r.Path)
	default:
		return fmt.Sprintf("HEV System: '%s' is required for sounds on %s. How to install? %s",
			r.Tool, r.GOOS, r.Remediation)
	}
}

// Check looks up the player for goos. Platforms without a command player
// pass.
func Check(goos string, lookPath audio.LookPathFunc) Result {
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	r := Result{GOOS: goos, Tool: audio.CommandTool(goos)}
	if r.Tool == "" {
		r.Found = true
		return r
	}

	path, err := lookPath(r.Tool)
	if err != nil {
		r.Remediation = InstallURL
		return r
	}
	r.Found = true
	r.Path = path
	return r
}
