// Package windows contains the production backend. It is the one used in
// production code, and makes real syscalls, spawns real subprocesses and
// accesses the real registry.
//
// All functions will return an error when ran on Linux.
package windows

import "os"

// Backend implements the Backend interface.
type Backend struct{}

// CurrentExecutable returns the path of the running executable.
func (Backend) CurrentExecutable() (string, error) {
	return os.Executable()
}
