package adapter_test

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/micro-manager/micro-manager-sub007/internal/adapter"
	"github.com/micro-manager/micro-manager-sub007/internal/errorcodes"
	"github.com/micro-manager/micro-manager-sub007/internal/wasmtest"
	"github.com/micro-manager/micro-manager-sub007/pkg/mmdevice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type genericDevice struct {
	mmdevice.DeviceBase
	name string
}

func (d *genericDevice) Initialize() mmdevice.Code { return mmdevice.OK }

func (d *genericDevice) Shutdown() mmdevice.Code { return mmdevice.OK }

func (d *genericDevice) GetName() string { return d.name }

func (d *genericDevice) GetType() mmdevice.DeviceType { return mmdevice.GenericDevice }

type fakeModule struct {
	inits   atomic.Int32
	deletes atomic.Int32
	syms    mmdevice.Symbols
}

// registerFake registers a builtin module advertising Alpha and Beta.
func registerFake(t *testing.T, name string, edit func(mmdevice.Symbols)) *fakeModule {
	t.Helper()

	var catalog mmdevice.Catalog
	catalog.Add("Alpha", mmdevice.GenericDevice, "first device")
	catalog.Add("Beta", mmdevice.GenericDevice, "second device")

	fm := &fakeModule{}
	fm.syms = catalog.Symbols(
		func() { fm.inits.Add(1) },
		func(devName string) mmdevice.Device {
			if devName != "Alpha" && devName != "Beta" {
				return nil
			}
			return &genericDevice{name: devName}
		},
		func(mmdevice.Device) { fm.deletes.Add(1) },
	)
	if edit != nil {
		edit(fm.syms)
	}

	mmdevice.RegisterModule(name, fm.syms)
	t.Cleanup(func() { mmdevice.UnregisterModule(name) })

	return fm
}

func newLoader(t *testing.T, paths ...string) *adapter.Loader {
	t.Helper()

	l := adapter.NewLoader(context.Background(), paths)
	t.Cleanup(func() { _ = l.Close(context.Background()) })

	return l
}

// TestLoadModuleIdempotent verifies one module object per name and a single
// module data initialization.
func TestLoadModuleIdempotent(t *testing.T) {
	t.Parallel()

	fm := registerFake(t, "adaptertest_idem", nil)
	l := newLoader(t)

	m1, err := l.LoadModule("adaptertest_idem")
	require.NoError(t, err)
	m2, err := l.LoadModule("adaptertest_idem")
	require.NoError(t, err)

	assert.Same(t, m1, m2)
	assert.Equal(t, int32(1), fm.inits.Load())
	assert.Equal(t, "builtin:adaptertest_idem", m1.Path())
	assert.Equal(t, []string{"adaptertest_idem"}, l.Modules())
}

// TestLoadModuleVersionMismatch verifies both ABI checks reject the module
// before initialization and leave nothing cached.
func TestLoadModuleVersionMismatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		symbol  string
		wantErr error
	}{
		{"module version", mmdevice.SymGetModuleVersion, errorcodes.ErrIncompatibleModule},
		{"device interface version", mmdevice.SymGetDeviceInterfaceVersion, errorcodes.ErrIncompatibleDeviceInterface},
	}

	for i, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			modName := []string{"adaptertest_oldmod", "adaptertest_olddev"}[i]
			fm := registerFake(t, modName, func(s mmdevice.Symbols) {
				s[tc.symbol] = func() int32 { return 1 }
			})
			l := newLoader(t)

			_, err := l.LoadModule(modName)
			require.ErrorIs(t, err, tc.wantErr)
			assert.Empty(t, l.Modules())
			assert.Zero(t, fm.inits.Load())
		})
	}
}

// TestWasmVersionMismatch verifies negotiation against a module file found
// on the search path.
func TestWasmVersionMismatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	image := wasmtest.ConstModule(map[string]int32{
		mmdevice.SymGetModuleVersion:          mmdevice.ModuleInterfaceVersion - 1,
		mmdevice.SymGetDeviceInterfaceVersion: mmdevice.DeviceInterfaceVersion,
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mmgr_dal_wasmold.wasm"), image, 0o600))

	l := newLoader(t, dir)
	_, err := l.LoadModule("wasmold")
	require.ErrorIs(t, err, errorcodes.ErrIncompatibleModule)
	assert.Empty(t, l.Modules())
}

// TestLoadModuleNotFound verifies a name that resolves nowhere is a load error.
func TestLoadModuleNotFound(t *testing.T) {
	t.Parallel()

	l := newLoader(t, t.TempDir())
	_, err := l.LoadModule("adaptertest_nowhere")
	require.ErrorIs(t, err, errorcodes.ErrLoad)
}

// TestCatalogQueries verifies names, descriptions and advertised types.
func TestCatalogQueries(t *testing.T) {
	t.Parallel()

	registerFake(t, "adaptertest_catalog", nil)
	m, err := newLoader(t).LoadModule("adaptertest_catalog")
	require.NoError(t, err)

	names, err := m.GetAvailableDeviceNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "Beta"}, names)

	desc, err := m.GetDeviceDescription("Beta")
	require.NoError(t, err)
	assert.Equal(t, "second device", desc)

	typ, err := m.GetAdvertisedType("Alpha")
	require.NoError(t, err)
	assert.Equal(t, mmdevice.GenericDevice, typ)

	_, err = m.GetDeviceDescription("Gamma")
	require.ErrorIs(t, err, errorcodes.ErrDeviceNotAdvertised)
	_, err = m.GetAdvertisedType("Gamma")
	require.ErrorIs(t, err, errorcodes.ErrDeviceNotAdvertised)
}

// TestBufferOverflow verifies that an unterminated string is rejected.
func TestBufferOverflow(t *testing.T) {
	t.Parallel()

	registerFake(t, "adaptertest_overflow", func(s mmdevice.Symbols) {
		s[mmdevice.SymGetDeviceName] = mmdevice.GetDeviceNameFunc(func(_ uint32, buf []byte) bool {
			for i := range buf {
				buf[i] = 'x'
			}
			return true
		})
		s[mmdevice.SymGetDeviceDescription] = mmdevice.GetDeviceDescriptionFunc(func(_ string, buf []byte) bool {
			for i := range buf {
				buf[i] = 'y'
			}
			return true
		})
	})
	m, err := newLoader(t).LoadModule("adaptertest_overflow")
	require.NoError(t, err)

	_, err = m.GetAvailableDeviceNames()
	require.ErrorIs(t, err, errorcodes.ErrBufferOverflow)
	_, err = m.GetDeviceDescription("Alpha")
	require.ErrorIs(t, err, errorcodes.ErrBufferOverflow)
}

// TestEntryPointResolution verifies missing and mistyped entry points.
func TestEntryPointResolution(t *testing.T) {
	t.Parallel()

	registerFake(t, "adaptertest_symbols", func(s mmdevice.Symbols) {
		delete(s, mmdevice.SymGetDeviceType)
		s[mmdevice.SymGetNumberOfDevices] = func() int { return 2 }
	})
	m, err := newLoader(t).LoadModule("adaptertest_symbols")
	require.NoError(t, err)

	_, err = m.GetAdvertisedType("Alpha")
	require.ErrorIs(t, err, errorcodes.ErrSymbolNotFound)

	_, err = m.GetAvailableDeviceNames()
	require.ErrorIs(t, err, errorcodes.ErrSymbolNotFound)
	assert.Contains(t, err.Error(), "unexpected signature")
}

// TestCreateAndDelete verifies the factory and destructor paths.
func TestCreateAndDelete(t *testing.T) {
	t.Parallel()

	fm := registerFake(t, "adaptertest_factory", nil)
	m, err := newLoader(t).LoadModule("adaptertest_factory")
	require.NoError(t, err)

	dev, err := m.CreateRawDevice("Alpha")
	require.NoError(t, err)
	assert.Equal(t, "Alpha", dev.GetName())
	require.NoError(t, m.DeleteRawDevice(dev))
	assert.Equal(t, int32(1), fm.deletes.Load())

	_, err = m.CreateRawDevice("Gamma")
	require.ErrorIs(t, err, errorcodes.ErrDeviceCreation)
}

// TestListAvailableModules verifies that module files on the search list
// and builtins are listed without loading them.
func TestListAvailableModules(t *testing.T) {
	t.Parallel()

	registerFake(t, "adaptertest_listed", nil)

	dir := t.TempDir()
	for _, name := range []string{"mmgr_dal_ondisk.wasm", "notes.txt", "mmgr_dal_other.dll"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
	}

	l := newLoader(t, dir, filepath.Join(dir, "missing"))
	names, err := l.ListAvailableModules()
	require.NoError(t, err)

	assert.Contains(t, names, "ondisk")
	assert.Contains(t, names, "adaptertest_listed")
	assert.NotContains(t, names, "other")
	assert.Empty(t, l.Modules())
}

// TestUnload verifies that an unloaded module is loaded afresh.
func TestUnload(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	fm := registerFake(t, "adaptertest_unload", nil)
	l := newLoader(t)

	m1, err := l.LoadModule("adaptertest_unload")
	require.NoError(t, err)
	require.NoError(t, l.Unload(ctx, "adaptertest_unload"))
	require.ErrorIs(t, l.Unload(ctx, "adaptertest_unload"), errorcodes.ErrLoad)

	m2, err := l.LoadModule("adaptertest_unload")
	require.NoError(t, err)
	assert.NotSame(t, m1, m2)
	assert.Equal(t, int32(2), fm.inits.Load())
}

// TestSearchPaths verifies ordering and deduplication of the search list.
func TestSearchPaths(t *testing.T) {
	t.Parallel()

	paths := adapter.SearchPaths([]string{"/opt/a", "", "/opt/b"}, []string{"/opt/a", "/usr/lib/micro-manager"})

	require.GreaterOrEqual(t, len(paths), 3)
	tail := paths[len(paths)-3:]
	assert.Equal(t, []string{"/opt/a", "/opt/b", "/usr/lib/micro-manager"}, tail)
}
