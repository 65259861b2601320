// Package mock mocks the Windows pieces wslscript depends on, useful for
// tests as it allows parallelism, decoupling, and execution speed: the real
// back-end mutates the machine-wide registry and needs an installed WSL.
package mock

import (
	"fmt"
	"sync"
)

// Backend implements the Backend interface.
type Backend struct {
	mu   sync.RWMutex
	hive *keyNode // In-memory HKEY_CURRENT_USER

	// Exe is the path reported as the current executable.
	Exe string

	// WslOutputCallCount counts wsl.exe invocations with captured
	// output, i.e. translation batches.
	WslOutputCallCount int

	// Launches records every detached spawn, most recent last.
	Launches []Launch

	// Error injectors. These all have the form of:
	//
	// NameOfTheFunctionError
	//
	// Their effect is to make the relevant function return an error of
	// type mock.Error instantly upon being called.
	OpenClassesRegistryError bool
	OpenLxssRegistryError    bool
	BeginTransactionError    bool
	CommitError              bool
	WslOutputError           bool
	StartDetachedError       bool
	CurrentExecutableError   bool

	// WslOutputNotFound makes WslOutput and StartDetached report that
	// wsl.exe is not installed.
	WslOutputNotFound bool

	// WslOutputGarbage makes WslOutput return bytes that are not valid
	// text in any encoding.
	WslOutputGarbage bool
}

// Launch is the record of one detached spawn.
type Launch struct {
	Distro      string
	Command     string
	Interactive bool
}

// New constructs a new mocked back-end with an empty Classes hive and no
// installed distributions.
func New() *Backend {
	hive := newKeyNode()
	// Pre-create the roots any Windows install has.
	if _, err := hive.walk(classesKey, true); err != nil {
		panic(fmt.Sprintf("Setup: could not create %s: %v", classesKey, err))
	}
	if _, err := hive.walk(lxssKey, true); err != nil {
		panic(fmt.Sprintf("Setup: could not create %s: %v", lxssKey, err))
	}
	return &Backend{
		hive: hive,
		Exe:  `C:\Program Files\wslscript\wslscript.exe`,
	}
}

// ResetErrors sets all the error flags to false.
func (b *Backend) ResetErrors() {
	b.OpenClassesRegistryError = false
	b.OpenLxssRegistryError = false
	b.BeginTransactionError = false
	b.CommitError = false
	b.WslOutputError = false
	b.StartDetachedError = false
	b.CurrentExecutableError = false
	b.WslOutputNotFound = false
	b.WslOutputGarbage = false
}

// CurrentExecutable returns the mocked executable path.
func (b *Backend) CurrentExecutable() (string, error) {
	if b.CurrentExecutableError {
		return "", Error{}
	}
	return b.Exe, nil
}

// Error is an error triggered by the mock, and not a real problem.
type Error struct{}

func (err Error) Error() string {
	return "error triggered by mock"
}
