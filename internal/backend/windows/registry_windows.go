package windows

import (
	"path/filepath"

	"github.com/sop/wslscript/internal/backend"
	"github.com/ubuntu/decorate"
	"golang.org/x/sys/windows/registry"
)

const (
	// classesPath is where file associations live. All handler records
	// are under this path.
	classesPath = `Software\Classes`
	// lxssPath is where WSL stores distribution metadata.
	lxssPath = `Software\Microsoft\Windows\CurrentVersion\Lxss`
)

// RegistryKey wraps around a Windows registry key.
// Create it by calling OpenClassesRegistry or OpenLxssRegistry. Must be
// closed after use with RegistryKey.Close.
type RegistryKey struct {
	key  registry.Key
	path string // For error message purposes
}

// OpenClassesRegistry opens a registry key at the chosen subpath of the
// Software\Classes key. Path "." opens the Classes key itself.
func (Backend) OpenClassesRegistry(path string) (backend.RegistryKey, error) {
	return openRegistry(classesPath, path)
}

// OpenLxssRegistry opens a registry key at the chosen subpath of the Lxss
// key. Path "." opens the Lxss key itself.
func (Backend) OpenLxssRegistry(path string) (backend.RegistryKey, error) {
	return openRegistry(lxssPath, path)
}

func openRegistry(root, path string) (r backend.RegistryKey, err error) {
	p := root
	if path != "." {
		p = filepath.Join(root, path)
	}
	defer decorate.OnError(&err, `registry: could not open HKEY_CURRENT_USER\%s`, p)

	k, err := registry.OpenKey(registry.CURRENT_USER, p, registry.READ)
	if err != nil {
		return nil, err
	}

	return &RegistryKey{key: k, path: p}, nil
}

// Close releases the key.
func (r *RegistryKey) Close() (err error) {
	defer decorate.OnError(&err, `registry: could not close HKEY_CURRENT_USER\%s`, r.path)
	return r.key.Close()
}

// Field obtains the value of a string field. Name "" is the key's default
// value.
func (r *RegistryKey) Field(name string) (value string, err error) {
	defer decorate.OnError(&err, `registry: could not access field %q in HKEY_CURRENT_USER\%s`, name, r.path)

	value, _, err = r.key.GetStringValue(name)
	return value, err
}

// IntField obtains the value of a DWORD field.
func (r *RegistryKey) IntField(name string) (value uint32, err error) {
	defer decorate.OnError(&err, `registry: could not access field %q in HKEY_CURRENT_USER\%s`, name, r.path)

	v, _, err := r.key.GetIntegerValue(name)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// SubkeyNames returns a slice containing the names of the current key's children.
func (r *RegistryKey) SubkeyNames() (subkeys []string, err error) {
	defer decorate.OnError(&err, `registry: could not access subkeys under HKEY_CURRENT_USER\%s`, r.path)
	return r.key.ReadSubKeyNames(-1)
}

// ValueNames returns a slice containing the names of the current key's values.
func (r *RegistryKey) ValueNames() (values []string, err error) {
	defer decorate.OnError(&err, `registry: could not access values under HKEY_CURRENT_USER\%s`, r.path)
	return r.key.ReadValueNames(-1)
}
