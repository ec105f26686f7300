// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Command datanode-hook runs datanode relation hooks against relation
// state kept in a directory, and prints the relation states active
// afterwards.
//
//	datanode-hook --state-dir DIR [flags] [hook-name ...]
//
// Without hook names, the hook is the one described by the Juju hook
// environment.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/juju/loggo/v2"

	"github.com/juju/datanode/juju/osenv"
)

const (
	// exit_err is the value that is returned when the user has run the
	// command in an invalid way.
	exit_err = 2
	// exit_fail is the value that is returned when a hook fails.
	exit_fail = 1
)

func main() {
	os.Exit(Main(os.Args[1:], os.Getenv, os.Stdout, os.Stderr))
}

// Main runs the command with the given arguments and environment, and
// returns its exit code.
func Main(args []string, getenv osenv.Getenv, stdout, stderr io.Writer) int {
	cfg, err := parseArgs(args, getenv, stderr)
	if err == gnuflag.ErrHelp {
		return 0
	} else if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exit_err
	}
	if err := configureLogging(cfg.LogConfig, stderr); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exit_err
	}
	infos, err := cfg.hooks(getenv)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exit_err
	}
	active, err := runHooks(cfg, infos)
	if err != nil {
		logger.Errorf("%v", err)
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exit_fail
	}
	for _, name := range active {
		fmt.Fprintln(stdout, name)
	}
	return 0
}

// configureLogging sends log output to w, filtered by spec.
func configureLogging(spec string, w io.Writer) error {
	if _, err := loggo.ReplaceDefaultWriter(loggo.NewSimpleWriter(w, loggo.DefaultFormatter)); err != nil {
		return errors.Trace(err)
	}
	return errors.Annotate(loggo.ConfigureLoggers(spec), "invalid log config")
}
