package windows

import (
	"errors"

	"github.com/sop/wslscript/internal/backend"
	"github.com/ubuntu/decorate"
)

// Transaction is an atomic unit of registry work.
// This implementation will always fail on Linux.
type Transaction struct{}

// BeginTransaction opens a new registry transaction.
// This implementation will always fail on Linux.
func (Backend) BeginTransaction() (tx backend.Transaction, err error) {
	defer decorate.OnError(&err, "could not create registry transaction")
	return nil, errors.New("not implemented")
}

// Key opens a subkey for reading within the transaction.
func (t *Transaction) Key(path string) (backend.RegistryKey, error) {
	return nil, errors.New("not implemented")
}

// SetString creates the key if needed and sets a string value.
func (t *Transaction) SetString(path, name, value string) error {
	return errors.New("not implemented")
}

// SetDWord creates the key if needed and sets a DWORD value.
func (t *Transaction) SetDWord(path, name string, value uint32) error {
	return errors.New("not implemented")
}

// DeleteValue removes a single value from an existing key.
func (t *Transaction) DeleteValue(path, name string) error {
	return errors.New("not implemented")
}

// DeleteKey removes a key that has no subkeys.
func (t *Transaction) DeleteKey(path string) error {
	return errors.New("not implemented")
}

// DeleteTree removes a key and all its descendants.
func (t *Transaction) DeleteTree(path string) error {
	return errors.New("not implemented")
}

// Commit applies all the transaction's mutations atomically.
func (t *Transaction) Commit() error {
	return errors.New("not implemented")
}

// Rollback discards the transaction.
func (t *Transaction) Rollback() error {
	return errors.New("not implemented")
}
