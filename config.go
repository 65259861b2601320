package wslscript

// This file contains the value objects persisted in an extension's handler
// record and their registry-native string encodings.

import (
	"fmt"
	"strconv"
	"strings"
)

// HoldMode is the terminal behaviour after the script exits.
type HoldMode int

const (
	// HoldNever always closes the terminal window on exit.
	HoldNever HoldMode = iota
	// HoldAlways always waits for a keypress on exit.
	HoldAlways
	// HoldError waits for a keypress when the exit code is non-zero.
	// It is the default.
	HoldError
)

const (
	holdModeNever  = "never"
	holdModeAlways = "always"
	holdModeError  = "error"
)

// ParseHoldMode converts a registry or command line token to a HoldMode.
// Only the exact tokens "never", "always" and "error" are valid; anything
// else yields the fallback, never an error.
func ParseHoldMode(s string, fallback HoldMode) HoldMode {
	switch s {
	case holdModeNever:
		return HoldNever
	case holdModeAlways:
		return HoldAlways
	case holdModeError:
		return HoldError
	}
	return fallback
}

// String serializes the mode to its registry token.
func (m HoldMode) String() string {
	switch m {
	case HoldNever:
		return holdModeNever
	case HoldAlways:
		return holdModeAlways
	case HoldError:
		return holdModeError
	}
	return holdModeError
}

// IconRef is a reference to an icon resource inside a file.
type IconRef struct {
	// Path to the file containing the icon.
	Path string
	// Index of the icon within the file.
	Index uint32
}

// String serializes the reference in the shell's "path,index" notation.
func (i IconRef) String() string {
	return fmt.Sprintf("%s,%d", i.Path, i.Index)
}

// ParseIconRef parses the shell's "path,index" notation. A missing index
// defaults to 0.
func ParseIconRef(s string) (IconRef, error) {
	if s == "" {
		return IconRef{}, fmt.Errorf("empty icon reference")
	}
	idx := strings.LastIndex(s, ",")
	if idx < 0 {
		return IconRef{Path: s}, nil
	}
	n, err := strconv.ParseUint(s[idx+1:], 10, 32)
	if err != nil {
		return IconRef{}, fmt.Errorf("invalid icon index in %q: %v", s, err)
	}
	return IconRef{Path: s[:idx], Index: uint32(n)}, nil
}

// ExtConfig is the persisted configuration of one registered extension.
type ExtConfig struct {
	// Extension is the filename extension without the leading dot.
	Extension string
	// Icon for the filetype, if any.
	Icon *IconRef
	// HoldMode is the terminal behaviour after the script exits.
	HoldMode HoldMode
	// Interactive controls whether bash runs as an interactive shell.
	Interactive bool
	// Distro is the target distribution. Nil means the default one.
	Distro *DistroID
}
