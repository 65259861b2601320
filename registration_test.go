package wslscript_test

import (
	"context"
	"testing"

	"github.com/sop/wslscript"
	"github.com/sop/wslscript/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testExe is the mocked executable path used throughout these tests. It is
// an absolute path so that canonicalization leaves it untouched.
const testExe = "/opt/wslscript/wslscript"

// registrationContext returns a mocked context whose executable path is
// stable across canonicalization.
//
//nolint:revive // No, I won't put the context before the *testing.T.
func registrationContext(t *testing.T) (context.Context, func(t *testing.T, f func(m *mock.Backend))) {
	t.Helper()

	ctx, modifyMock := setupBackend(t, context.Background())
	modifyMock(t, func(m *mock.Backend) {
		m.Exe = testExe
	})
	return ctx, modifyMock
}

func TestRegister(t *testing.T) {
	if !wslscript.MockAvailable() {
		t.Skip("This test is only available with the mock enabled")
	}
	t.Parallel()

	distro, err := wslscript.ParseDistroID("{ee8aef7a-846f-4561-a028-79504ce65cd3}")
	require.NoError(t, err, "Setup: could not parse test GUID")

	testCases := map[string]struct {
		config wslscript.ExtConfig

		transactionError bool
		commitError      bool
		executableError  bool

		wantErr error
	}{
		"Success": {
			config: wslscript.ExtConfig{Extension: "lua"},
		},
		"Success with every option set": {
			config: wslscript.ExtConfig{
				Extension:   "lua",
				HoldMode:    wslscript.HoldAlways,
				Interactive: true,
				Distro:      &distro,
				Icon:        &wslscript.IconRef{Path: `C:\icons\lua.dll`, Index: 3},
			},
		},

		"Error with an empty extension":       {config: wslscript.ExtConfig{}, wantErr: wslscript.LogicError{}},
		"Error with a dot in the extension":   {config: wslscript.ExtConfig{Extension: "tar.gz"}, wantErr: wslscript.LogicError{}},
		"Error with a space in the extension": {config: wslscript.ExtConfig{Extension: "l u a"}, wantErr: wslscript.LogicError{}},

		// Mock-induced errors
		"Error when the transaction cannot begin": {config: wslscript.ExtConfig{Extension: "lua"}, transactionError: true, wantErr: wslscript.RegistryError{}},
		"Error when the commit fails":             {config: wslscript.ExtConfig{Extension: "lua"}, commitError: true, wantErr: wslscript.RegistryError{}},
	}

	for name, tc := range testCases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx, modifyMock := registrationContext(t)
			modifyMock(t, func(m *mock.Backend) {
				m.BeginTransactionError = tc.transactionError
				m.CommitError = tc.commitError
			})

			var before map[string]string
			modifyMock(t, func(m *mock.Backend) {
				before = m.FlattenClasses()
			})

			err := wslscript.Register(ctx, tc.config)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr, "Register returned an unexpected error type")
				modifyMock(t, func(m *mock.Backend) {
					require.Equal(t, before, m.FlattenClasses(), "a failed registration must leave the registry untouched")
				})
				return
			}
			require.NoError(t, err, "Register should have succeeded")

			registered, err := wslscript.IsRegisteredForWSL(ctx, tc.config.Extension)
			require.NoError(t, err, "IsRegisteredForWSL should have succeeded")
			require.True(t, registered, "the extension should associate to our handler")

			config, err := wslscript.ExtensionConfig(ctx, tc.config.Extension)
			require.NoError(t, err, "ExtensionConfig should have succeeded")
			assert.Equal(t, tc.config, config, "the persisted configuration should read back unchanged")

			ours, err := wslscript.IsRegisteredForCurrentExecutable(ctx, tc.config.Extension)
			require.NoError(t, err, "IsRegisteredForCurrentExecutable should have succeeded")
			assert.True(t, ours, "a fresh registration should point at the running executable")
		})
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	if !wslscript.MockAvailable() {
		t.Skip("This test is only available with the mock enabled")
	}
	t.Parallel()

	ctx, modifyMock := registrationContext(t)

	config := wslscript.ExtConfig{Extension: "lua", HoldMode: wslscript.HoldAlways}
	require.NoError(t, wslscript.Register(ctx, config), "first registration should succeed")

	var first map[string]string
	modifyMock(t, func(m *mock.Backend) {
		first = m.FlattenClasses()
	})

	require.NoError(t, wslscript.Register(ctx, config), "second registration should succeed")

	modifyMock(t, func(m *mock.Backend) {
		require.Equal(t, first, m.FlattenClasses(), "registering twice should be a no-op the second time")
	})
}

func TestRegisterReplacesPreviousRecord(t *testing.T) {
	if !wslscript.MockAvailable() {
		t.Skip("This test is only available with the mock enabled")
	}
	t.Parallel()

	ctx, modifyMock := registrationContext(t)

	icon := wslscript.IconRef{Path: `C:\icons\lua.dll`, Index: 1}
	require.NoError(t, wslscript.Register(ctx, wslscript.ExtConfig{Extension: "lua", Icon: &icon, HoldMode: wslscript.HoldAlways}),
		"first registration should succeed")
	require.NoError(t, wslscript.Register(ctx, wslscript.ExtConfig{Extension: "lua", HoldMode: wslscript.HoldNever}),
		"second registration should succeed")

	config, err := wslscript.ExtensionConfig(ctx, "lua")
	require.NoError(t, err, "ExtensionConfig should have succeeded")
	require.Equal(t, wslscript.HoldNever, config.HoldMode, "the newer hold mode should win")
	require.Nil(t, config.Icon, "stale subkeys from the previous record must not survive")

	// The wholesale delete must not leak into the extension key.
	modifyMock(t, func(m *mock.Backend) {
		require.Contains(t, m.FlattenClasses(), `\.lua::`, "the extension key should still exist")
	})
}

func TestUnregisterRestoresPreviousState(t *testing.T) {
	if !wslscript.MockAvailable() {
		t.Skip("This test is only available with the mock enabled")
	}
	t.Parallel()

	ctx, modifyMock := registrationContext(t)

	// Unrelated state that must survive the register/unregister cycle.
	modifyMock(t, func(m *mock.Backend) {
		m.SetClassesString(`txtfile\shell\open\command`, "", `notepad.exe "%1"`)
		m.SetClassesString(".txt", "", "txtfile")
	})

	var before map[string]string
	modifyMock(t, func(m *mock.Backend) {
		before = m.FlattenClasses()
	})

	require.NoError(t, wslscript.Register(ctx, wslscript.ExtConfig{Extension: "lua"}), "Register should have succeeded")
	require.NoError(t, wslscript.Unregister(ctx, "lua"), "Unregister should have succeeded")

	modifyMock(t, func(m *mock.Backend) {
		require.Equal(t, before, m.FlattenClasses(), "unregistering should leave no trace of the registration")
	})
}

func TestUnregisterKeepsForeignAssociation(t *testing.T) {
	if !wslscript.MockAvailable() {
		t.Skip("This test is only available with the mock enabled")
	}
	t.Parallel()

	ctx, modifyMock := registrationContext(t)

	require.NoError(t, wslscript.Register(ctx, wslscript.ExtConfig{Extension: "lua"}), "Register should have succeeded")

	// Another application takes over the extension.
	modifyMock(t, func(m *mock.Backend) {
		m.SetClassesString(".lua", "", "other.handler")
		m.SetClassesString(`.lua\OpenWithProgIds`, "other.handler", "")
	})

	require.NoError(t, wslscript.Unregister(ctx, "lua"), "Unregister should have succeeded")

	other, err := wslscript.IsRegisteredForOther(ctx, "lua")
	require.NoError(t, err, "IsRegisteredForOther should have succeeded")
	require.True(t, other, "the foreign association must survive our unregistration")

	modifyMock(t, func(m *mock.Backend) {
		flat := m.FlattenClasses()
		require.Equal(t, "other.handler", flat[`\.lua::`], "the foreign default association must be kept")
		require.Contains(t, flat, `\.lua\OpenWithProgIds::other.handler`, "the foreign open-with entry must be kept")
		require.NotContains(t, flat, `\wslscript.lua::`, "our handler record should be gone")
	})
}

func TestUnregisterUnknownExtension(t *testing.T) {
	if !wslscript.MockAvailable() {
		t.Skip("This test is only available with the mock enabled")
	}
	t.Parallel()

	ctx, _ := registrationContext(t)

	require.NoError(t, wslscript.Unregister(ctx, "lua"), "unregistering an unknown extension is a no-op")
	require.ErrorIs(t, wslscript.Unregister(ctx, ""), wslscript.LogicError{}, "an empty extension is invalid")
}

func TestRegisteredExtensions(t *testing.T) {
	if !wslscript.MockAvailable() {
		t.Skip("This test is only available with the mock enabled")
	}
	t.Parallel()

	testCases := map[string]struct {
		registryInaccessible bool

		wantErr bool
	}{
		"Success": {},

		// Mock-induced errors
		"Error when the registry cannot be accessed": {registryInaccessible: true, wantErr: true},
	}

	for name, tc := range testCases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx, modifyMock := registrationContext(t)

			require.NoError(t, wslscript.Register(ctx, wslscript.ExtConfig{Extension: "lua"}), "Setup: Register should have succeeded")
			require.NoError(t, wslscript.Register(ctx, wslscript.ExtConfig{Extension: "py"}), "Setup: Register should have succeeded")
			require.NoError(t, wslscript.Register(ctx, wslscript.ExtConfig{Extension: "sh"}), "Setup: Register should have succeeded")

			modifyMock(t, func(m *mock.Backend) {
				// Stale handler record with no backlink from an extension.
				m.SetClassesString("wslscript.fake", "", "WSL Shell Script (.fake)")
				// Another application stole the .py association.
				m.SetClassesString(".py", "", "python.file")

				m.OpenClassesRegistryError = tc.registryInaccessible
			})

			exts, err := wslscript.RegisteredExtensions(ctx)
			if tc.wantErr {
				require.Error(t, err, "RegisteredExtensions should have failed")
				require.ErrorIs(t, err, wslscript.RegistryError{}, "the failure should wrap the store error")
				return
			}
			require.NoError(t, err, "RegisteredExtensions should have succeeded")
			require.Equal(t, []string{"lua", "sh"}, exts, "only extensions that still point back at us should be listed")
		})
	}
}

func TestExtensionConfigDefaults(t *testing.T) {
	if !wslscript.MockAvailable() {
		t.Skip("This test is only available with the mock enabled")
	}
	t.Parallel()

	ctx, modifyMock := registrationContext(t)

	// A bare handler record with none of the optional values present.
	modifyMock(t, func(m *mock.Backend) {
		m.SetClassesString("wslscript.lua", "", "WSL Shell Script (.lua)")
	})

	config, err := wslscript.ExtensionConfig(ctx, "lua")
	require.NoError(t, err, "ExtensionConfig should have succeeded")
	require.Equal(t, wslscript.HoldError, config.HoldMode, "hold mode should default to holding on error")
	require.False(t, config.Interactive, "interactive should default to false")
	require.Nil(t, config.Distro, "distribution should default to none")
	require.Nil(t, config.Icon, "icon should default to none")
}

func TestExtensionConfigNotRegistered(t *testing.T) {
	if !wslscript.MockAvailable() {
		t.Skip("This test is only available with the mock enabled")
	}
	t.Parallel()

	ctx, _ := registrationContext(t)

	_, err := wslscript.ExtensionConfig(ctx, "lua")
	require.ErrorIs(t, err, wslscript.ErrNotRegistered, "unregistered extensions should be reported as such")
}

func TestRegistrationStates(t *testing.T) {
	if !wslscript.MockAvailable() {
		t.Skip("This test is only available with the mock enabled")
	}
	t.Parallel()

	testCases := map[string]struct {
		registerOurs bool
		foreignOwner string

		wantOurs  bool
		wantOther bool
	}{
		"Unregistered":                   {},
		"Registered for us":              {registerOurs: true, wantOurs: true},
		"Registered for another program": {foreignOwner: "other.handler", wantOther: true},
		"Taken over by another program":  {registerOurs: true, foreignOwner: "other.handler", wantOther: true},
	}

	for name, tc := range testCases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx, modifyMock := registrationContext(t)

			if tc.registerOurs {
				require.NoError(t, wslscript.Register(ctx, wslscript.ExtConfig{Extension: "lua"}), "Setup: Register should have succeeded")
			}
			if tc.foreignOwner != "" {
				modifyMock(t, func(m *mock.Backend) {
					m.SetClassesString(".lua", "", tc.foreignOwner)
				})
			}

			ours, err := wslscript.IsRegisteredForWSL(ctx, "lua")
			require.NoError(t, err, "IsRegisteredForWSL should have succeeded")
			assert.Equal(t, tc.wantOurs, ours, "IsRegisteredForWSL mismatch")

			other, err := wslscript.IsRegisteredForOther(ctx, "lua")
			require.NoError(t, err, "IsRegisteredForOther should have succeeded")
			assert.Equal(t, tc.wantOther, other, "IsRegisteredForOther mismatch")
		})
	}
}

func TestHandlerExecutablePath(t *testing.T) {
	if !wslscript.MockAvailable() {
		t.Skip("This test is only available with the mock enabled")
	}
	t.Parallel()

	ctx, modifyMock := registrationContext(t)

	require.NoError(t, wslscript.Register(ctx, wslscript.ExtConfig{Extension: "lua"}), "Register should have succeeded")

	path, err := wslscript.HandlerExecutablePath(ctx, "lua")
	require.NoError(t, err, "HandlerExecutablePath should have succeeded")
	require.Equal(t, testExe, path, "the stored verb command should name the registering executable")

	// The binary moves: the association survives but no longer points at us.
	modifyMock(t, func(m *mock.Backend) {
		m.Exe = "/opt/elsewhere/wslscript"
	})

	ours, err := wslscript.IsRegisteredForCurrentExecutable(ctx, "lua")
	require.NoError(t, err, "IsRegisteredForCurrentExecutable should have succeeded")
	require.False(t, ours, "a moved binary should be detected")

	_, err = wslscript.HandlerExecutablePath(ctx, "py")
	require.ErrorIs(t, err, wslscript.ErrNotRegistered, "unregistered extensions have no handler executable")
}
