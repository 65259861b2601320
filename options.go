package wslscript

// This file contains the resolved execution parameters used when launching
// a script, built either from a registered extension's persisted config or
// from raw command line tokens.

import (
	"context"

	"github.com/0xrawsec/golang-utils/log"
)

// Options are the runtime parameters of one WSL invocation.
type Options struct {
	// HoldMode is the terminal behaviour after the script exits.
	HoldMode HoldMode
	// Interactive controls whether bash runs as an interactive shell.
	Interactive bool
	// Distribution is the display name of the target distribution.
	// Empty means the default distribution.
	Distribution string
}

// DefaultOptions returns the options used when nothing is registered:
// hold on error, non-interactive, default distribution.
func DefaultOptions() Options {
	return Options{HoldMode: HoldError}
}

// OptionsFromExt loads the options persisted for a registered extension,
// resolving the stored distribution GUID to its display name. ext has no
// leading dot.
func OptionsFromExt(ctx context.Context, ext string) (Options, error) {
	config, err := ExtensionConfig(ctx, ext)
	if err != nil {
		return DefaultOptions(), err
	}

	opts := Options{
		HoldMode:    config.HoldMode,
		Interactive: config.Interactive,
	}
	if config.Distro != nil {
		name, err := DistroName(ctx, *config.Distro)
		if err != nil {
			// A stale GUID falls back to the default distribution.
			log.Warnf("distribution %s not found, using default: %v", config.Distro, err)
		} else {
			opts.Distribution = name
		}
	}
	return opts, nil
}

// OptionsFromArgs builds options from a flat token list: `-h <mode>`,
// `-i` and `-d <distro-name>`. If `--ext <name>` is present and the
// extension is registered, its persisted configuration is returned verbatim
// and all other tokens are ignored. Unrecognized tokens are skipped.
func OptionsFromArgs(ctx context.Context, args []string) Options {
	opts := DefaultOptions()
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--ext":
			if i+1 < len(args) {
				i++
				if o, err := OptionsFromExt(ctx, args[i]); err == nil {
					return o
				}
			}
		case "-h":
			if i+1 < len(args) {
				i++
				opts.HoldMode = ParseHoldMode(args[i], opts.HoldMode)
			}
		case "-i":
			opts.Interactive = true
		case "-d":
			if i+1 < len(args) {
				i++
				opts.Distribution = args[i]
			}
		}
	}
	return opts
}
