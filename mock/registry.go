package mock

import (
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"

	"github.com/sop/wslscript/internal/backend"
	"github.com/ubuntu/decorate"
)

const (
	classesKey = `Software\Classes`
	lxssKey    = `Software\Microsoft\Windows\CurrentVersion\Lxss`
)

// keyNode is one key in the in-memory registry. Values hold string or
// uint32 payloads, keyed by value name with "" meaning the default value.
type keyNode struct {
	subkeys map[string]*keyNode
	values  map[string]any
}

func newKeyNode() *keyNode {
	return &keyNode{
		subkeys: map[string]*keyNode{},
		values:  map[string]any{},
	}
}

func (n *keyNode) clone() *keyNode {
	c := newKeyNode()
	for name, sub := range n.subkeys {
		c.subkeys[name] = sub.clone()
	}
	for name, v := range n.values {
		c.values[name] = v
	}
	return c
}

// walk descends from n following a backslash-separated path. Path "."
// refers to n itself. Missing keys are reported as fs.ErrNotExist, same as
// the real registry.
func (n *keyNode) walk(path string, create bool) (*keyNode, error) {
	if path == "." || path == "" {
		return n, nil
	}
	for _, component := range strings.Split(path, `\`) {
		sub, ok := n.subkeys[component]
		if !ok {
			if !create {
				return nil, fs.ErrNotExist
			}
			sub = newKeyNode()
			n.subkeys[component] = sub
		}
		n = sub
	}
	return n, nil
}

// RegistryKey mocks a registry key to allow parallel and machine-independent
// tests. It is a snapshot: changes made after opening are not visible.
type RegistryKey struct {
	path string
	node *keyNode
}

// OpenClassesRegistry opens a snapshot of a key under Software\Classes.
func (b *Backend) OpenClassesRegistry(path string) (k backend.RegistryKey, err error) {
	if b.OpenClassesRegistryError {
		return nil, Error{}
	}
	return b.openRegistry(classesKey, path)
}

// OpenLxssRegistry opens a snapshot of a key under the Lxss registry.
func (b *Backend) OpenLxssRegistry(path string) (k backend.RegistryKey, err error) {
	if b.OpenLxssRegistryError {
		return nil, Error{}
	}
	return b.openRegistry(lxssKey, path)
}

func (b *Backend) openRegistry(root, path string) (k backend.RegistryKey, err error) {
	p := root + `\` + path
	defer decorate.OnError(&err, "could not open registry key %s", p)

	b.mu.RLock()
	defer b.mu.RUnlock()

	base, err := b.hive.walk(root, false)
	if err != nil {
		return nil, err
	}
	node, err := base.walk(path, false)
	if err != nil {
		return nil, err
	}
	return &RegistryKey{path: p, node: node.clone()}, nil
}

// Close releases the registry key.
func (k *RegistryKey) Close() error {
	k.node = nil
	return nil
}

// Field obtains the value of a string field. Value name "" addresses the
// key's default value.
func (k *RegistryKey) Field(name string) (value string, err error) {
	defer decorate.OnError(&err, "registry: could not access field %s in HKCU\\%s", name, k.path)

	v, ok := k.node.values[name]
	if !ok {
		return "", fs.ErrNotExist
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field is not a string")
	}
	return s, nil
}

// IntField obtains the value of a DWORD field.
func (k *RegistryKey) IntField(name string) (value uint32, err error) {
	defer decorate.OnError(&err, "registry: could not access field %s in HKCU\\%s", name, k.path)

	v, ok := k.node.values[name]
	if !ok {
		return 0, fs.ErrNotExist
	}
	d, ok := v.(uint32)
	if !ok {
		return 0, fmt.Errorf("field is not a DWORD")
	}
	return d, nil
}

// SubkeyNames returns a slice containing the names of all sub-keys.
func (k *RegistryKey) SubkeyNames() (subkeys []string, err error) {
	defer decorate.OnError(&err, "registry: could not access sub-keys under HKCU\\%s", k.path)

	for name := range k.node.subkeys {
		subkeys = append(subkeys, name)
	}
	sort.Strings(subkeys)
	return subkeys, nil
}

// ValueNames returns a slice containing the names of all named values.
func (k *RegistryKey) ValueNames() (names []string, err error) {
	defer decorate.OnError(&err, "registry: could not access values under HKCU\\%s", k.path)

	for name := range k.node.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Transaction mocks a transacted view of Software\Classes. Mutations are
// staged on a private copy of the hive and only become visible to the
// back-end once Commit succeeds.
type Transaction struct {
	backend  *Backend
	root     *keyNode // staged copy of Software\Classes
	resolved bool
	mu       sync.Mutex
}

// BeginTransaction starts a transacted view of the Classes registry.
func (b *Backend) BeginTransaction() (tx backend.Transaction, err error) {
	defer decorate.OnError(&err, "could not begin registry transaction")

	if b.BeginTransactionError {
		return nil, Error{}
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	classes, err := b.hive.walk(classesKey, false)
	if err != nil {
		return nil, err
	}
	return &Transaction{backend: b, root: classes.clone()}, nil
}

// Key opens a read view of a key inside the transaction.
func (t *Transaction) Key(path string) (k backend.RegistryKey, err error) {
	defer decorate.OnError(&err, "could not open transacted key %s", path)

	t.mu.Lock()
	defer t.mu.Unlock()

	node, err := t.root.walk(path, false)
	if err != nil {
		return nil, err
	}
	return &RegistryKey{path: classesKey + `\` + path, node: node.clone()}, nil
}

// SetString writes a string value, creating the key as needed.
func (t *Transaction) SetString(path, name, value string) (err error) {
	defer decorate.OnError(&err, "could not set %s\\%s", path, name)

	t.mu.Lock()
	defer t.mu.Unlock()

	node, err := t.root.walk(path, true)
	if err != nil {
		return err
	}
	node.values[name] = value
	return nil
}

// SetDWord writes a DWORD value, creating the key as needed.
func (t *Transaction) SetDWord(path, name string, value uint32) (err error) {
	defer decorate.OnError(&err, "could not set %s\\%s", path, name)

	t.mu.Lock()
	defer t.mu.Unlock()

	node, err := t.root.walk(path, true)
	if err != nil {
		return err
	}
	node.values[name] = value
	return nil
}

// DeleteValue removes a named value from an existing key.
func (t *Transaction) DeleteValue(path, name string) (err error) {
	defer decorate.OnError(&err, "could not delete value %s\\%s", path, name)

	t.mu.Lock()
	defer t.mu.Unlock()

	node, err := t.root.walk(path, false)
	if err != nil {
		return err
	}
	if _, ok := node.values[name]; !ok {
		return fs.ErrNotExist
	}
	delete(node.values, name)
	return nil
}

// DeleteKey removes a key that has no sub-keys.
func (t *Transaction) DeleteKey(path string) (err error) {
	defer decorate.OnError(&err, "could not delete key %s", path)

	t.mu.Lock()
	defer t.mu.Unlock()

	parent, name, err := t.splitParent(path)
	if err != nil {
		return err
	}
	node, ok := parent.subkeys[name]
	if !ok {
		return fs.ErrNotExist
	}
	if len(node.subkeys) > 0 {
		return fmt.Errorf("key has sub-keys")
	}
	delete(parent.subkeys, name)
	return nil
}

// DeleteTree removes a key and everything under it.
func (t *Transaction) DeleteTree(path string) (err error) {
	defer decorate.OnError(&err, "could not delete tree %s", path)

	t.mu.Lock()
	defer t.mu.Unlock()

	parent, name, err := t.splitParent(path)
	if err != nil {
		return err
	}
	if _, ok := parent.subkeys[name]; !ok {
		return fs.ErrNotExist
	}
	delete(parent.subkeys, name)
	return nil
}

// splitParent resolves the parent key of path. Caller must hold t.mu.
func (t *Transaction) splitParent(path string) (*keyNode, string, error) {
	var dir, name string
	if i := strings.LastIndex(path, `\`); i >= 0 {
		dir, name = path[:i], path[i+1:]
	} else {
		name = path
	}
	parent, err := t.root.walk(dir, false)
	if err != nil {
		return nil, "", err
	}
	return parent, name, nil
}

// Commit publishes the staged changes to the back-end.
func (t *Transaction) Commit() (err error) {
	defer decorate.OnError(&err, "could not commit registry transaction")

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.resolved {
		return fmt.Errorf("transaction already resolved")
	}
	t.resolved = true

	if t.backend.CommitError {
		return Error{}
	}

	t.backend.mu.Lock()
	defer t.backend.mu.Unlock()

	classes, err := t.backend.hive.walk(classesKey, false)
	if err != nil {
		return err
	}
	classes.subkeys = t.root.subkeys
	classes.values = t.root.values
	return nil
}

// Rollback discards the staged changes. It is a no-op after Commit.
func (t *Transaction) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.resolved {
		return nil
	}
	t.resolved = true
	t.root = nil
	return nil
}

// RegisterDistro adds a distro to the mocked Lxss registry, with a given
// GUID in braced form. The first registered distro becomes the default.
func (b *Backend) RegisterDistro(name, guid string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	lxss, err := b.hive.walk(lxssKey, false)
	if err != nil {
		panic(fmt.Sprintf("Setup: Lxss key disappeared: %v", err))
	}
	node := newKeyNode()
	node.values["DistributionName"] = name
	lxss.subkeys[guid] = node
	if _, ok := lxss.values["DefaultDistribution"]; !ok {
		lxss.values["DefaultDistribution"] = guid
	}
}

// SetDefaultDistro overrides which distro GUID the Lxss registry points to
// as the default.
func (b *Backend) SetDefaultDistro(guid string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	lxss, err := b.hive.walk(lxssKey, false)
	if err != nil {
		panic(fmt.Sprintf("Setup: Lxss key disappeared: %v", err))
	}
	lxss.values["DefaultDistribution"] = guid
}

// SetClassesString writes a string value directly into Software\Classes,
// bypassing transactions. Meant for seeding pre-existing associations.
func (b *Backend) SetClassesString(path, name, value string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	classes, err := b.hive.walk(classesKey, false)
	if err != nil {
		panic(fmt.Sprintf("Setup: Classes key disappeared: %v", err))
	}
	node, err := classes.walk(path, true)
	if err != nil {
		panic(fmt.Sprintf("Setup: could not create %s: %v", path, err))
	}
	node.values[name] = value
}

// FlattenClasses dumps Software\Classes as a flat path -> value map, for
// comparing registry states. Value entries are encoded as "KEY\PATH::name".
func (b *Backend) FlattenClasses() map[string]string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	classes, err := b.hive.walk(classesKey, false)
	if err != nil {
		panic(fmt.Sprintf("Setup: Classes key disappeared: %v", err))
	}

	flat := map[string]string{}
	var visit func(prefix string, n *keyNode)
	visit = func(prefix string, n *keyNode) {
		flat[prefix+"::"] = "" // key existence marker
		for name, v := range n.values {
			flat[prefix+"::"+name] = fmt.Sprint(v)
		}
		for name, sub := range n.subkeys {
			visit(prefix+`\`+name, sub)
		}
	}
	visit("", classes)
	return flat
}
