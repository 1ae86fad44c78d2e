package main

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/hevsound/internal/deps"
	"github.com/jmylchreest/hevsound/internal/output"
)

var checkOpts struct {
	format string
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the sound player is installed",
	Long: `Check that the external sound player for this platform is installed.

Linux needs mpg123, macOS uses afplay and Windows uses PowerShell. The
native backend needs none of them. Exits non-zero when the player is
missing.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVarP(&checkOpts.format, "format", "f", "plain",
		"Output format (plain, json, yaml)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	formatter, err := newFormatter(checkOpts.format, output.DefaultFormatterOptions())
	if err != nil {
		return err
	}

	result := deps.Check(runtime.GOOS, exec.LookPath)
	if err := formatter.Check(os.Stdout, result); err != nil {
		return err
	}

	if !result.OK() {
		return fmt.Errorf("%s not found", result.Tool)
	}
	return nil
}
