// Package wslscript associates filename extensions with the Windows Subsystem
// for Linux so that shell scripts can be launched transparently from the
// Windows shell. It contains two engines: a command composition and path
// translation pipeline that turns a batch of Windows paths into a single
// correctly quoted bash command line, spilling oversized argument lists to a
// temporary file, and a registration store that manages the transacted,
// multi-key file association records in the Windows registry.
//
// This package also contains a mock back-end which can be useful for testing,
// as exercising the real back-end mutates machine-wide state (the registry)
// and requires an installed WSL distribution. The mock back-end is disabled
// by default, and can be enabled by using the context returned by the
// WithMock function.
package wslscript
