package windows

// Registry transactions go through the Kernel Transaction Manager. Neither
// the KTM entry points nor the transacted registry functions are wrapped by
// x/sys, so they are loaded lazily from their system DLLs.

import (
	"errors"
	"fmt"
	"path/filepath"
	"syscall"
	"unsafe"

	"github.com/sop/wslscript/internal/backend"
	"github.com/ubuntu/decorate"
	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
)

var (
	ktmw32                  = windows.NewLazySystemDLL("ktmw32.dll")
	procCreateTransaction   = ktmw32.NewProc("CreateTransaction")
	procCommitTransaction   = ktmw32.NewProc("CommitTransaction")
	procRollbackTransaction = ktmw32.NewProc("RollbackTransaction")

	advapi32                    = windows.NewLazySystemDLL("advapi32.dll")
	procRegCreateKeyTransactedW = advapi32.NewProc("RegCreateKeyTransactedW")
	procRegOpenKeyTransactedW   = advapi32.NewProc("RegOpenKeyTransactedW")
	procRegDeleteKeyTransactedW = advapi32.NewProc("RegDeleteKeyTransactedW")
)

// Transaction is an atomic unit of registry work rooted at
// HKEY_CURRENT_USER\Software\Classes, backed by a KTM transaction handle.
type Transaction struct {
	handle   windows.Handle
	resolved bool
}

// BeginTransaction opens a new registry transaction.
func (Backend) BeginTransaction() (tx backend.Transaction, err error) {
	defer decorate.OnError(&err, "could not create registry transaction")

	h, _, callErr := procCreateTransaction.Call(0, 0, 0, 0, 0, 0, 0)
	if windows.Handle(h) == windows.InvalidHandle {
		return nil, callErr
	}
	return &Transaction{handle: windows.Handle(h)}, nil
}

// Key opens a subkey for reading within the transaction.
func (t *Transaction) Key(path string) (backend.RegistryKey, error) {
	k, err := t.openKey(path, registry.READ, false)
	if err != nil {
		return nil, fmt.Errorf(`registry: could not open HKEY_CURRENT_USER\%s: %w`, fullPath(path), err)
	}
	return &RegistryKey{key: k, path: fullPath(path)}, nil
}

// SetString creates the key if needed and sets a string value.
func (t *Transaction) SetString(path, name, value string) (err error) {
	defer decorate.OnError(&err, `registry: could not set %q in HKEY_CURRENT_USER\%s`, name, fullPath(path))

	k, err := t.openKey(path, registry.WRITE, true)
	if err != nil {
		return err
	}
	defer k.Close()
	return k.SetStringValue(name, value)
}

// SetDWord creates the key if needed and sets a DWORD value.
func (t *Transaction) SetDWord(path, name string, value uint32) (err error) {
	defer decorate.OnError(&err, `registry: could not set %q in HKEY_CURRENT_USER\%s`, name, fullPath(path))

	k, err := t.openKey(path, registry.WRITE, true)
	if err != nil {
		return err
	}
	defer k.Close()
	return k.SetDWordValue(name, value)
}

// DeleteValue removes a single value from an existing key.
func (t *Transaction) DeleteValue(path, name string) (err error) {
	defer decorate.OnError(&err, `registry: could not delete value %q of HKEY_CURRENT_USER\%s`, name, fullPath(path))

	k, err := t.openKey(path, registry.SET_VALUE, false)
	if err != nil {
		return err
	}
	defer k.Close()
	return k.DeleteValue(name)
}

// DeleteKey removes a key that has no subkeys.
func (t *Transaction) DeleteKey(path string) (err error) {
	defer decorate.OnError(&err, `registry: could not delete HKEY_CURRENT_USER\%s`, fullPath(path))

	sub, err := syscall.UTF16PtrFromString(fullPath(path))
	if err != nil {
		return err
	}
	r1, _, _ := procRegDeleteKeyTransactedW.Call(
		uintptr(registry.CURRENT_USER),
		uintptr(unsafe.Pointer(sub)),
		0, // samDesired
		0, // Reserved
		uintptr(t.handle),
		0, // pExtendedParameter
	)
	if r1 != 0 {
		return syscall.Errno(r1)
	}
	return nil
}

// DeleteTree removes a key and all its descendants, bottom up.
func (t *Transaction) DeleteTree(path string) (err error) {
	defer decorate.OnError(&err, `registry: could not delete tree HKEY_CURRENT_USER\%s`, fullPath(path))

	key, err := t.Key(path)
	if err != nil {
		return err
	}
	subkeys, err := key.SubkeyNames()
	key.Close()
	if err != nil {
		return err
	}
	for _, sk := range subkeys {
		if err := t.DeleteTree(path + `\` + sk); err != nil {
			return err
		}
	}
	return t.DeleteKey(path)
}

// Commit applies all the transaction's mutations atomically.
func (t *Transaction) Commit() (err error) {
	defer decorate.OnError(&err, "could not commit registry transaction")

	if t.resolved {
		return errors.New("transaction already resolved")
	}
	r1, _, callErr := procCommitTransaction.Call(uintptr(t.handle))
	if r1 == 0 {
		return callErr
	}
	t.resolved = true
	return windows.CloseHandle(t.handle)
}

// Rollback discards the transaction. Calling it after Commit is a no-op so
// it can run unconditionally from a defer.
func (t *Transaction) Rollback() (err error) {
	defer decorate.OnError(&err, "could not roll back registry transaction")

	if t.resolved {
		return nil
	}
	r1, _, callErr := procRollbackTransaction.Call(uintptr(t.handle))
	if r1 == 0 {
		return callErr
	}
	t.resolved = true
	return windows.CloseHandle(t.handle)
}

// openKey opens (or creates) a subkey of Software\Classes within the
// transaction.
func (t *Transaction) openKey(path string, access uint32, create bool) (registry.Key, error) {
	sub, err := syscall.UTF16PtrFromString(fullPath(path))
	if err != nil {
		return 0, err
	}
	var hkey syscall.Handle
	if create {
		r1, _, _ := procRegCreateKeyTransactedW.Call(
			uintptr(registry.CURRENT_USER),
			uintptr(unsafe.Pointer(sub)),
			0, // Reserved
			0, // lpClass
			0, // dwOptions
			uintptr(access),
			0, // lpSecurityAttributes
			uintptr(unsafe.Pointer(&hkey)),
			0, // lpdwDisposition
			uintptr(t.handle),
			0, // pExtendedParameter
		)
		if r1 != 0 {
			return 0, syscall.Errno(r1)
		}
		return registry.Key(hkey), nil
	}
	r1, _, _ := procRegOpenKeyTransactedW.Call(
		uintptr(registry.CURRENT_USER),
		uintptr(unsafe.Pointer(sub)),
		0, // ulOptions
		uintptr(access),
		uintptr(unsafe.Pointer(&hkey)),
		uintptr(t.handle),
		0, // pExtendedParameter
	)
	if r1 != 0 {
		return 0, syscall.Errno(r1)
	}
	return registry.Key(hkey), nil
}

func fullPath(path string) string {
	return filepath.Join(classesPath, path)
}
