package hwconfig_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/micro-manager/micro-manager-sub007/internal/adapter"
	_ "github.com/micro-manager/micro-manager-sub007/internal/adapters/demo"
	"github.com/micro-manager/micro-manager-sub007/internal/device"
	"github.com/micro-manager/micro-manager-sub007/internal/errorcodes"
	"github.com/micro-manager/micro-manager-sub007/internal/hwconfig"
	"github.com/micro-manager/micro-manager-sub007/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const demoConfig = `
devices:
  - label: Hub
    module: demo
    device: DHub
  - label: LED
    module: demo
    device: DHubLED
    parent: Hub
  - label: COM1
    module: demo
    device: DPort
    pre_init:
      - name: BaudRate
        value: 19200
  - label: Wheel
    module: demo
    device: DWheel
    properties:
      - name: State
        value: 2
  - label: Z
    module: demo
    device: DStage
    delay_ms: 12.5
`

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()

	l := adapter.NewLoader(context.Background(), nil)
	r := registry.New(l)
	t.Cleanup(func() {
		_ = r.UnloadAllDevices()
		_ = l.Close(context.Background())
	})

	return r
}

// TestParse verifies decoding, including scalars given as numbers.
func TestParse(t *testing.T) {
	t.Parallel()

	cfg, err := hwconfig.Parse([]byte(demoConfig))
	require.NoError(t, err)
	require.Len(t, cfg.Devices, 5)

	assert.Equal(t, "Hub", cfg.Devices[1].Parent)
	assert.Equal(t, []hwconfig.Property{{Name: "BaudRate", Value: "19200"}}, cfg.Devices[2].PreInit)
	assert.Equal(t, []hwconfig.Property{{Name: "State", Value: "2"}}, cfg.Devices[3].Properties)
	require.NotNil(t, cfg.Devices[4].DelayMs)
	assert.InDelta(t, 12.5, *cfg.Devices[4].DelayMs, 0)
}

// TestParseRejects verifies schema and label checks.
func TestParseRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"not yaml", "devices: [\n"},
		{"no devices key", "cameras: []\n"},
		{"missing module", "devices:\n  - label: A\n    device: DCam\n"},
		{"empty label", "devices:\n  - label: ''\n    module: demo\n    device: DCam\n"},
		{"unknown key", "devices:\n  - label: A\n    module: demo\n    device: DCam\n    colour: red\n"},
		{"negative delay", "devices:\n  - label: A\n    module: demo\n    device: DCam\n    delay_ms: -1\n"},
		{"property without value", "devices:\n  - label: A\n    module: demo\n    device: DCam\n    properties:\n      - name: Exposure\n"},
		{
			"duplicate label",
			"devices:\n  - label: A\n    module: demo\n    device: DCam\n  - label: A\n    module: demo\n    device: DStage\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := hwconfig.Parse([]byte(tc.doc))
			require.ErrorIs(t, err, errorcodes.ErrInvalidConfig)
		})
	}
}

// TestApply verifies the configuration is applied in full.
func TestApply(t *testing.T) {
	t.Parallel()

	cfg, err := hwconfig.Parse([]byte(demoConfig))
	require.NoError(t, err)

	r := newRegistry(t)
	require.NoError(t, hwconfig.Apply(r, cfg))

	assert.Equal(t, []string{"Hub", "LED", "COM1", "Wheel", "Z"}, r.Labels())
	assert.Equal(t, []string{"LED"}, r.GetLoadedPeripherals("Hub"))

	for _, label := range r.Labels() {
		inst, err := r.GetDevice(label)
		require.NoError(t, err)
		assert.Equal(t, device.Initialized, inst.Lifecycle(), label)
	}

	com, err := r.GetDevice("COM1")
	require.NoError(t, err)
	baud, err := com.GetProperty("BaudRate")
	require.NoError(t, err)
	assert.Equal(t, "19200", baud)

	wheel, err := r.GetDevice("Wheel")
	require.NoError(t, err)
	label, err := wheel.GetProperty("Label")
	require.NoError(t, err)
	assert.Equal(t, "Filter-2", label)

	z, err := r.GetDevice("Z")
	require.NoError(t, err)
	delay, err := z.GetDelayMs()
	require.NoError(t, err)
	assert.InDelta(t, 12.5, delay, 0)
}

// TestApplyFailureUnloadsAll verifies a failing configuration leaves
// nothing loaded.
func TestApplyFailureUnloadsAll(t *testing.T) {
	t.Parallel()

	cfg, err := hwconfig.Parse([]byte(`
devices:
  - label: Cam
    module: demo
    device: DCam
  - label: Wheel
    module: demo
    device: DWheel
    properties:
      - name: State
        value: 9
`))
	require.NoError(t, err)

	r := newRegistry(t)
	err = hwconfig.Apply(r, cfg)
	require.ErrorIs(t, err, errorcodes.ErrDevice)
	assert.Empty(t, r.Labels())
}

// TestSnapshotRoundTrip verifies a snapshot reproduces the loaded setup.
func TestSnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	cfg, err := hwconfig.Parse([]byte(demoConfig))
	require.NoError(t, err)
	r := newRegistry(t)
	require.NoError(t, hwconfig.Apply(r, cfg))

	snap, err := hwconfig.Snapshot(r)
	require.NoError(t, err)
	data, err := hwconfig.Marshal(snap)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "hw.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	again, err := hwconfig.Load(path)
	require.NoError(t, err)
	assert.Equal(t, snap, again)

	r2 := newRegistry(t)
	require.NoError(t, hwconfig.Apply(r2, again))
	assert.Equal(t, r.Labels(), r2.Labels())

	wheel, err := r2.GetDevice("Wheel")
	require.NoError(t, err)
	state, err := wheel.GetProperty("State")
	require.NoError(t, err)
	assert.Equal(t, "2", state)
}

// TestLoadMissingFile verifies the read error is returned.
func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := hwconfig.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestWatcher verifies a burst of writes yields a change signal.
func TestWatcher(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "hw.yaml")
	require.NoError(t, os.WriteFile(path, []byte(demoConfig), 0o600))

	w, err := hwconfig.NewWatcher(path, 20*time.Millisecond)
	require.NoError(t, err)
	changes, err := w.Start()
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0o600))
	for range 3 {
		require.NoError(t, os.WriteFile(path, []byte(demoConfig), 0o600))
	}

	select {
	case <-changes:
	case <-time.After(5 * time.Second):
		t.Fatal("no change signal")
	}
}
