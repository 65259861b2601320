package wslscript

// This file manages the handler records that associate a filename extension
// with this program: a tree of keys under HKCU\Software\Classes, written and
// removed inside a single registry transaction.
//
// See https://docs.microsoft.com/en-us/windows/win32/shell/fa-file-types
// See https://docs.microsoft.com/en-us/windows/win32/shell/fa-progids

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/0xrawsec/golang-utils/log"
	"github.com/sop/wslscript/internal/backend"
	"github.com/ubuntu/decorate"
)

const (
	// handlerPrefix names the handler keys: one `wslscript.<ext>` per
	// registered extension.
	handlerPrefix = "wslscript"

	// dropHandlerCLSID is the CLSID of the standard shell drop handler.
	dropHandlerCLSID = "{86C86720-42A0-1069-A2E8-08002B30309D}"

	openWithKey = "OpenWithProgIds"
)

// handlerName returns the canonical handler name for an extension.
func handlerName(ext string) string {
	return handlerPrefix + "." + ext
}

// Register creates or replaces the handler record for config's extension.
//
// The operation is idempotent and atomic: any existing handler record is
// deleted wholesale first (a partial overwrite of a multi-value key tree
// can leave stale subkeys), and on any failure the transaction rolls back
// leaving prior state untouched.
func Register(ctx context.Context, config ExtConfig) (err error) {
	defer decorate.OnError(&err, "could not register extension %q", config.Extension)

	ext := config.Extension
	if err := validateExtension(ext); err != nil {
		return err
	}

	cmd, err := registrationCommand(ctx, ext)
	if err != nil {
		return err
	}

	tx, err := selectBackend(ctx).BeginTransaction()
	if err != nil {
		return RegistryError{Err: err}
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Warnf("rollback: %v", rbErr)
			}
		}
	}()

	name := handlerName(ext)
	// Delete the previous handler key inside the transaction.
	// See https://docs.microsoft.com/en-us/windows/win32/api/winreg/nf-winreg-regdeletekeytransactedw#remarks
	if keyExists(tx, name) {
		if err := tx.DeleteTree(name); err != nil {
			return RegistryError{Err: err}
		}
	}

	handlerDesc := fmt.Sprintf("WSL Shell Script (.%s)", ext)
	var interactive uint32
	if config.Interactive {
		interactive = 1
	}

	w := txWriter{tx: tx}
	// Software\Classes\wslscript.ext
	w.setString(name, "", handlerDesc)
	w.setDWord(name, "EditFlags", 0x30)
	w.setString(name, "FriendlyTypeName", handlerDesc)
	w.setString(name, "HoldMode", config.HoldMode.String())
	w.setDWord(name, "Interactive", interactive)
	if config.Distro != nil {
		w.setString(name, "Distribution", config.Distro.String())
	}
	// Software\Classes\wslscript.ext\DefaultIcon
	if config.Icon != nil {
		w.setString(name+`\DefaultIcon`, "", config.Icon.String())
	}
	// Software\Classes\wslscript.ext\shell
	w.setString(name+`\shell`, "", "open")
	// Software\Classes\wslscript.ext\shell\open - Open command
	w.setString(name+`\shell\open`, "", "Run in WSL")
	if config.Icon != nil {
		w.setString(name+`\shell\open`, "Icon", config.Icon.String())
	}
	w.setString(name+`\shell\open\command`, "", cmd)
	// Software\Classes\wslscript.ext\shell\runas - Run as administrator
	w.setString(name+`\shell\runas`, "Extended", "")
	if config.Icon != nil {
		w.setString(name+`\shell\runas`, "Icon", config.Icon.String())
	}
	w.setString(name+`\shell\runas\command`, "", cmd)
	// Software\Classes\wslscript.ext\shellex\DropHandler - Drop handler
	w.setString(name+`\shellex\DropHandler`, "", dropHandlerCLSID)
	// Software\Classes\.ext - Register handler for extension
	w.setString("."+ext, "", name)
	w.setString("."+ext, "PerceivedType", "application")
	// Software\Classes\.ext\OpenWithProgIds - Add extension to open with list
	w.setString(`.`+ext+`\`+openWithKey, name, "")
	if w.err != nil {
		return RegistryError{Err: w.err}
	}

	if err := tx.Commit(); err != nil {
		return RegistryError{Err: err}
	}
	return nil
}

// Unregister deletes the handler record for an extension and detaches the
// extension from it, all in one transaction. The extension key itself is
// removed when nothing else is left under it.
func Unregister(ctx context.Context, ext string) (err error) {
	defer decorate.OnError(&err, "could not unregister extension %q", ext)

	if err := validateExtension(ext); err != nil {
		return err
	}

	tx, err := selectBackend(ctx).BeginTransaction()
	if err != nil {
		return RegistryError{Err: err}
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Warnf("rollback: %v", rbErr)
			}
		}
	}()

	name := handlerName(ext)
	if keyExists(tx, name) {
		if err := tx.DeleteTree(name); err != nil {
			return RegistryError{Err: err}
		}
	}

	extPath := "." + ext
	if keyExists(tx, extPath) {
		if err := detachExtension(tx, extPath, name); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return RegistryError{Err: err}
	}
	return nil
}

// detachExtension removes our handler wiring from the `.ext` key: the
// default association when it points at us, our open-with list entry, and
// finally the key itself when nothing else remains.
func detachExtension(tx backend.Transaction, extPath, name string) error {
	// If the extension has our handler as default, unset it.
	if val, err := keyField(tx, extPath, ""); err == nil && val == name {
		if err := tx.DeleteValue(extPath, ""); err != nil {
			return RegistryError{Err: err}
		}
	}

	// Clean up the open-with list.
	openWithPath := extPath + `\` + openWithKey
	if keyExists(tx, openWithPath) {
		if err := cleanupOpenWith(tx, openWithPath, name); err != nil {
			return err
		}
	}

	// If the default handler is unset and the extension has no subkeys
	// left, remove the extension key altogether.
	if val, err := keyField(tx, extPath, ""); err != nil || val == "" {
		subkeys, err := keySubkeys(tx, extPath)
		if err != nil {
			return RegistryError{Err: err}
		}
		if len(subkeys) == 0 {
			if err := tx.DeleteKey(extPath); err != nil {
				return RegistryError{Err: err}
			}
		}
	}
	return nil
}

// cleanupOpenWith drops our entry from an OpenWithProgIds key and deletes
// the key when it ends up empty.
func cleanupOpenWith(tx backend.Transaction, openWithPath, name string) error {
	key, err := tx.Key(openWithPath)
	if err != nil {
		return RegistryError{Err: err}
	}
	values, valErr := key.ValueNames()
	subkeys, subErr := key.SubkeyNames()
	key.Close()
	if valErr != nil {
		return RegistryError{Err: valErr}
	}
	if subErr != nil {
		return RegistryError{Err: subErr}
	}

	remaining := len(values)
	for _, v := range values {
		if v != name {
			continue
		}
		if err := tx.DeleteValue(openWithPath, v); err != nil {
			return RegistryError{Err: err}
		}
		remaining--
	}
	if remaining == 0 && len(subkeys) == 0 {
		if err := tx.DeleteKey(openWithPath); err != nil {
			return RegistryError{Err: err}
		}
	}
	return nil
}

// RegisteredExtensions lists the extensions with a handler record whose
// default association still points back at us. Stale records left behind
// by a renamed or uninstalled binary are filtered out.
//
// Extensions don't have a leading dot.
func RegisteredExtensions(ctx context.Context) (exts []string, err error) {
	defer decorate.OnError(&err, "could not list registered extensions")

	base, err := selectBackend(ctx).OpenClassesRegistry(".")
	if err != nil {
		return nil, RegistryError{Err: err}
	}
	defer base.Close()

	subkeys, err := base.SubkeyNames()
	if err != nil {
		return nil, RegistryError{Err: err}
	}

	for _, name := range subkeys {
		ext, ok := strings.CutPrefix(name, handlerPrefix+".")
		if !ok {
			continue
		}
		registered, err := IsRegisteredForWSL(ctx, ext)
		if err != nil {
			log.Warnf("could not verify association of %q: %v", ext, err)
			continue
		}
		if registered {
			exts = append(exts, ext)
		}
	}
	return exts, nil
}

// ExtensionConfig reads back the persisted configuration of a registered
// extension. Hold mode defaults to HoldError and the interactive flag to
// false when absent or unparseable.
func ExtensionConfig(ctx context.Context, ext string) (config ExtConfig, err error) {
	defer decorate.OnError(&err, "could not read configuration of extension %q", ext)

	key, err := selectBackend(ctx).OpenClassesRegistry(handlerName(ext))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return config, ErrNotRegistered
		}
		return config, RegistryError{Err: err}
	}
	defer key.Close()

	config.Extension = ext
	config.HoldMode = HoldError
	if s, err := key.Field("HoldMode"); err == nil {
		config.HoldMode = ParseHoldMode(s, HoldError)
	}
	if v, err := key.IntField("Interactive"); err == nil {
		config.Interactive = v != 0
	}
	if s, err := key.Field("Distribution"); err == nil {
		if id, err := ParseDistroID(s); err == nil {
			config.Distro = &id
		}
	}
	if iconKey, err := selectBackend(ctx).OpenClassesRegistry(handlerName(ext) + `\DefaultIcon`); err == nil {
		if s, err := iconKey.Field(""); err == nil {
			if icon, err := ParseIconRef(s); err == nil {
				config.Icon = &icon
			}
		}
		iconKey.Close()
	}
	return config, nil
}

// IsRegisteredForWSL reports whether the extension's default association
// points at our handler.
func IsRegisteredForWSL(ctx context.Context, ext string) (bool, error) {
	val, err := extensionDefault(ctx, ext)
	if err != nil {
		return false, err
	}
	return val == handlerName(ext), nil
}

// IsRegisteredForOther reports whether the extension has a default
// association that names another application.
func IsRegisteredForOther(ctx context.Context, ext string) (bool, error) {
	val, err := extensionDefault(ctx, ext)
	if err != nil {
		return false, err
	}
	return val != "" && val != handlerName(ext), nil
}

// extensionDefault returns the default value of the `.ext` key, or "" when
// the key or value does not exist.
func extensionDefault(ctx context.Context, ext string) (string, error) {
	key, err := selectBackend(ctx).OpenClassesRegistry("." + ext)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", RegistryError{Err: err}
	}
	defer key.Close()

	val, err := key.Field("")
	if err != nil {
		// Key exists but carries no default association.
		return "", nil
	}
	return val, nil
}

// HandlerExecutablePath extracts the executable path stored in the
// handler's open-verb command line.
func HandlerExecutablePath(ctx context.Context, ext string) (path string, err error) {
	defer decorate.OnError(&err, "could not resolve handler executable for %q", ext)

	key, err := selectBackend(ctx).OpenClassesRegistry(handlerName(ext) + `\shell\open\command`)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotRegistered
		}
		return "", RegistryError{Err: err}
	}
	defer key.Close()

	cmd, err := key.Field("")
	if err != nil {
		return "", RegistryError{Err: err}
	}

	// The executable is the first quoted token.
	cmd = strings.TrimPrefix(cmd, `"`)
	exe, _, found := strings.Cut(cmd, `"`)
	if !found || exe == "" {
		return "", ErrInvalidPath
	}
	return exe, nil
}

// IsRegisteredForCurrentExecutable reports whether the handler record
// points at the running executable. A false result surfaces the "handler
// moved" failure mode: the association survives under a path that no
// longer exists.
func IsRegisteredForCurrentExecutable(ctx context.Context, ext string) (bool, error) {
	registered, err := HandlerExecutablePath(ctx, ext)
	if err != nil {
		return false, err
	}
	current, err := selectBackend(ctx).CurrentExecutable()
	if err != nil {
		return false, err
	}
	return canonicalPath(registered) == canonicalPath(current), nil
}

// registrationCommand builds the verb command line stored in the registry:
// the current executable's canonical path, without the extended-length
// prefix the shell handler chokes on, invoking the registered extension.
func registrationCommand(ctx context.Context, ext string) (string, error) {
	exe, err := selectBackend(ctx).CurrentExecutable()
	if err != nil {
		return "", err
	}
	exe = canonicalPath(exe)
	return fmt.Sprintf(`"%s" --ext "%s" -E "%%0" %%*`, exe, ext), nil
}

// validateExtension enforces the extension invariant: non-empty, no dots,
// no characters that are illegal in paths or registry key names.
func validateExtension(ext string) error {
	if ext == "" {
		return LogicError{Reason: "no extension"}
	}
	if strings.ContainsAny(ext, `.\/:*?"<>| `) {
		return LogicError{Reason: fmt.Sprintf("invalid extension %q", ext)}
	}
	return nil
}

// txWriter performs a sequence of transacted writes, remembering the first
// failure so callers can check once after the batch.
type txWriter struct {
	tx  backend.Transaction
	err error
}

func (w *txWriter) setString(path, name, value string) {
	if w.err != nil {
		return
	}
	w.err = w.tx.SetString(path, name, value)
}

func (w *txWriter) setDWord(path, name string, value uint32) {
	if w.err != nil {
		return
	}
	w.err = w.tx.SetDWord(path, name, value)
}

// keyExists reports whether a key exists within the transaction.
func keyExists(tx backend.Transaction, path string) bool {
	key, err := tx.Key(path)
	if err != nil {
		return false
	}
	key.Close()
	return true
}

// keyField reads one value of a key within the transaction.
func keyField(tx backend.Transaction, path, name string) (string, error) {
	key, err := tx.Key(path)
	if err != nil {
		return "", err
	}
	defer key.Close()
	return key.Field(name)
}

// keySubkeys lists the subkeys of a key within the transaction.
func keySubkeys(tx backend.Transaction, path string) ([]string, error) {
	key, err := tx.Key(path)
	if err != nil {
		return nil, err
	}
	defer key.Close()
	return key.SubkeyNames()
}
