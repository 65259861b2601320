// Package backend defines all the actions that a back-end to wslscript must
// be able to perform in order to run, or otherwise mock, the Windows pieces
// it depends on: the registry and the wsl.exe/cmd.exe subprocesses.
package backend

import (
	"context"
	"errors"
)

// ErrWSLNotFound is returned when wsl.exe cannot be located on the host.
var ErrWSLNotFound = errors.New("wsl.exe not found")

// RegistryKey mocks a small subset of behaviours of a Windows registry key:
// the read-only traversal the engines need.
type RegistryKey interface {
	Close() error
	// Field returns the named string value. Name "" is the default value.
	Field(name string) (string, error)
	// IntField returns the named DWORD value.
	IntField(name string) (uint32, error)
	SubkeyNames() ([]string, error)
	ValueNames() ([]string, error)
}

// Transaction is an atomic unit of registry work rooted at
// HKEY_CURRENT_USER\Software\Classes. Either every mutation applies on
// Commit, or none does. Paths are relative to the root and use backslash
// separators. Rollback after Commit is a no-op.
type Transaction interface {
	// Key opens a subkey for reading within the transaction. It returns
	// fs.ErrNotExist-wrapped errors for missing keys.
	Key(path string) (RegistryKey, error)
	// SetString creates the key if needed and sets a string value.
	// Name "" is the default value.
	SetString(path, name, value string) error
	// SetDWord creates the key if needed and sets a DWORD value.
	SetDWord(path, name string, value uint32) error
	// DeleteValue removes a single value from an existing key.
	DeleteValue(path, name string) error
	// DeleteKey removes a key that has no subkeys.
	DeleteKey(path string) error
	// DeleteTree removes a key and all its descendants.
	DeleteTree(path string) error
	Commit() error
	Rollback() error
}

// Process is a handle to a spawned detached process.
type Process interface {
	// Wait blocks until the process exits. The exit status is irrelevant
	// to the launcher; Wait errors only when waiting itself fails.
	Wait() error
}

// Backend defines what a back-end to wslscript must be able to do or mock.
type Backend interface {
	// Registry
	OpenClassesRegistry(path string) (RegistryKey, error)
	OpenLxssRegistry(path string) (RegistryKey, error)
	BeginTransaction() (Transaction, error)

	// wsl.exe
	//
	// WslOutput runs `wsl.exe [-d distro] -e bash -c command` with no
	// visible window and returns its raw stdout. distro "" selects the
	// default distribution.
	WslOutput(ctx context.Context, distro string, command string) ([]byte, error)
	// StartDetached spawns `cmd.exe /C wsl.exe [-d distro] -e bash [-i]
	// -c command` detached in a new process group with stdio nulled.
	StartDetached(distro string, command string, interactive bool) (Process, error)

	// Host environment
	CurrentExecutable() (string, error)
}
