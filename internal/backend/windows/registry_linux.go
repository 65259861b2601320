package windows

import (
	"errors"
	"path/filepath"

	"github.com/sop/wslscript/internal/backend"
	"github.com/ubuntu/decorate"
)

const (
	classesPath = `Software/Classes`
	lxssPath    = `Software/Microsoft/Windows/CurrentVersion/Lxss`
)

// RegistryKey wraps around a Windows registry key.
// This implementation will always fail on Linux.
type RegistryKey struct {
	path string
}

// OpenClassesRegistry opens a registry key at the chosen subpath of the
// Software\Classes key.
// This implementation will always fail on Linux.
func (Backend) OpenClassesRegistry(path string) (backend.RegistryKey, error) {
	return openRegistry(classesPath, path)
}

// OpenLxssRegistry opens a registry key at the chosen subpath of the Lxss key.
// This implementation will always fail on Linux.
func (Backend) OpenLxssRegistry(path string) (backend.RegistryKey, error) {
	return openRegistry(lxssPath, path)
}

func openRegistry(root, path string) (r backend.RegistryKey, err error) {
	defer decorate.OnError(&err, "registry: could not open HKEY_CURRENT_USER/%s", filepath.Join(root, path))
	return nil, errors.New("not implemented")
}

// Close releases the key.
// This implementation will always fail on Linux.
func (r *RegistryKey) Close() (err error) {
	defer decorate.OnError(&err, "registry: could not close HKEY_CURRENT_USER/%s", r.path)
	return errors.New("not implemented")
}

// Field obtains the value of a string field.
// This implementation will always fail on Linux.
func (r *RegistryKey) Field(name string) (value string, err error) {
	defer decorate.OnError(&err, "registry: could not access field %q in HKEY_CURRENT_USER/%s", name, r.path)
	return "", errors.New("not implemented")
}

// IntField obtains the value of a DWORD field.
// This implementation will always fail on Linux.
func (r *RegistryKey) IntField(name string) (value uint32, err error) {
	defer decorate.OnError(&err, "registry: could not access field %q in HKEY_CURRENT_USER/%s", name, r.path)
	return 0, errors.New("not implemented")
}

// SubkeyNames returns a slice containing the names of the current key's children.
// This implementation will always fail on Linux.
func (r *RegistryKey) SubkeyNames() (subkeys []string, err error) {
	defer decorate.OnError(&err, "registry: could not access subkeys under HKEY_CURRENT_USER/%s", r.path)
	return nil, errors.New("not implemented")
}

// ValueNames returns a slice containing the names of the current key's values.
// This implementation will always fail on Linux.
func (r *RegistryKey) ValueNames() (values []string, err error) {
	defer decorate.OnError(&err, "registry: could not access values under HKEY_CURRENT_USER/%s", r.path)
	return nil, errors.New("not implemented")
}
