package wslscript

// This file contains the error values shared by the translation, composition,
// launching and registration engines. All engine operations return structured
// errors; user interaction is left to the callers.

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPath means a path could not be split into directory and
	// file name, or points back at the running executable.
	ErrInvalidPath = errors.New("invalid path")

	// ErrPathEncoding means a path could not be represented as valid UTF-8.
	ErrPathEncoding = errors.New("path contains invalid UTF-8 characters")

	// ErrTranslationFailed means the wslpath conversion subprocess failed
	// or exited with a non-zero status.
	ErrTranslationFailed = errors.New("failed to convert Windows path to WSL path")

	// ErrWSLNotFound means wsl.exe could not be located.
	ErrWSLNotFound = errors.New("WSL not found or not installed")

	// ErrProcessStart means the WSL host process could not be spawned.
	ErrProcessStart = errors.New("failed to start WSL process")

	// ErrCommandTooLong means the composed command exceeds the maximum
	// command line length even with arguments spilled to a file.
	ErrCommandTooLong = errors.New("command line is too long")

	// ErrCancelled means an in-progress translation was aborted by its
	// progress callback or context. It is a distinct outcome, not a
	// failure: callers must not execute a partially translated path list.
	ErrCancelled = errors.New("translation cancelled")

	// ErrNotRegistered means the queried extension has no handler record.
	ErrNotRegistered = errors.New("extension is not registered")
)

// RegistryError wraps a failure of the underlying registry store. Any write
// failure inside Register or Unregister rolls the whole transaction back, so
// a RegistryError never implies a half-written record.
type RegistryError struct {
	Err error
}

func (e RegistryError) Error() string {
	return fmt.Sprintf("registry error: %v", e.Err)
}

func (e RegistryError) Unwrap() error {
	return e.Err
}

// Is ensures RegistryErrors can be matched with errors.Is().
func (e RegistryError) Is(target error) bool {
	_, ok := target.(RegistryError) //nolint: errorlint
	return ok
}

// LogicError signals an invariant violation by the caller, such as
// registering an empty extension name.
type LogicError struct {
	Reason string
}

func (e LogicError) Error() string {
	return fmt.Sprintf("logic error: %s", e.Reason)
}

// Is ensures LogicErrors can be matched with errors.Is().
func (e LogicError) Is(target error) bool {
	_, ok := target.(LogicError) //nolint: errorlint
	return ok
}
