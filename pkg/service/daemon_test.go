package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panelkit/paneld/pkg/action"
	"github.com/panelkit/paneld/pkg/action/builtin"
	"github.com/panelkit/paneld/pkg/client"
	"github.com/panelkit/paneld/pkg/device"
	"github.com/panelkit/paneld/pkg/model"
	"github.com/panelkit/paneld/pkg/wire"
)

func testRegistry(t *testing.T) *action.Registry {
	t.Helper()
	registry := action.NewRegistry()
	require.NoError(t, registry.Register(builtin.ToggleFactory()))
	require.NoError(t, registry.Register(builtin.FolderFactory()))
	return registry
}

func testDescriptor() model.Descriptor {
	return model.Descriptor{
		Rows: 3, Columns: 2,
		ImageWidth: 72, ImageHeight: 72,
		Format: model.FormatRGB,
	}
}

// testDaemon starts a daemon with a simulated watcher on a temp socket.
func testDaemon(t *testing.T, profileDir string) (*Daemon, *device.SimWatcher, string) {
	t.Helper()
	socketPath := filepath.Join(t.TempDir(), "paneld.sock")
	watcher := device.NewSimWatcher()

	d, err := New(Config{
		SocketPath:   socketPath,
		ProfileDir:   profileDir,
		Registry:     testRegistry(t),
		Watcher:      watcher,
		DrainTimeout: 2 * time.Second,
	})
	require.NoError(t, err)
	require.NoError(t, d.Start(context.Background()))
	t.Cleanup(func() { _ = d.Stop() })
	return d, watcher, socketPath
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

// waitEvent reads events until one matches or the deadline passes.
func waitEvent(t *testing.T, events <-chan model.Event, match func(model.Event) bool, msg string) model.Event {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatalf("%s: event channel closed", msg)
			}
			if match(ev) {
				return ev
			}
		case <-deadline:
			t.Fatal(msg)
		}
	}
}

func TestConfigValidation(t *testing.T) {
	_, err := New(Config{ProfileDir: "x", Registry: action.NewRegistry()})
	assert.Error(t, err)

	_, err = New(Config{SocketPath: "x", Registry: action.NewRegistry()})
	assert.Error(t, err)

	_, err = New(Config{SocketPath: "x", ProfileDir: "y"})
	assert.Error(t, err)
}

func TestLifecycleStates(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "paneld.sock")
	d, err := New(Config{
		SocketPath: socketPath,
		ProfileDir: t.TempDir(),
		Registry:   testRegistry(t),
	})
	require.NoError(t, err)
	assert.Equal(t, StateStopped, d.State())

	require.NoError(t, d.Start(context.Background()))
	assert.Equal(t, StateRunning, d.State())

	// Double start is rejected.
	assert.Error(t, d.Start(context.Background()))

	require.NoError(t, d.Stop())
	assert.Equal(t, StateStopped, d.State())

	// Stop on a stopped daemon is a no-op.
	require.NoError(t, d.Stop())
}

func TestEndToEnd(t *testing.T) {
	_, watcher, socketPath := testDaemon(t, t.TempDir())

	sim := device.NewSimTransport(testDescriptor())
	watcher.Plug("panel-1", sim)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := client.Connect(ctx, socketPath)
	require.NoError(t, err)
	defer c.Close()

	waitFor(t, func() bool {
		devices, err := c.ListDevices(ctx)
		return err == nil && len(devices) == 1
	}, "device never attached")

	require.NoError(t, c.Subscribe(ctx, model.TopicAll))

	instanceID, err := c.BindAction(ctx, "panel-1", 0, model.TriggerPress, "toggle", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, instanceID)

	waitEvent(t, c.Events(), func(ev model.Event) bool {
		return ev.Type == model.EventButtonUpdated && ev.DeviceID == "panel-1"
	}, "no buttonUpdated event")

	imgEvent := waitEvent(t, c.Events(), func(ev model.Event) bool {
		return ev.Type == model.EventButtonImageChanged && ev.DeviceID == "panel-1"
	}, "no buttonImageChanged event")
	assert.NotEmpty(t, imgEvent.Image)

	waitFor(t, func() bool {
		return len(sim.Frame(0)) > 0
	}, "no frame reached the simulated hardware")

	// The toggle flips on press and requests a rerender.
	result, err := c.PressButton(ctx, "panel-1", 0)
	require.NoError(t, err)
	require.Len(t, result.Results, 2)
	require.Len(t, result.Results[0].Instances, 1)
	assert.Empty(t, result.Results[0].Instances[0].Error)

	prof, err := c.GetProfile(ctx, "panel-1")
	require.NoError(t, err)
	require.Len(t, prof.Stack, 1)
	require.Len(t, prof.Document.Nodes, 1)

	// Unplug and confirm the device disappears.
	watcher.Unplug("panel-1")
	waitFor(t, func() bool {
		devices, err := c.ListDevices(ctx)
		return err == nil && len(devices) == 0
	}, "device never detached")
	waitFor(t, sim.Closed, "transport never closed")
}

func TestCrossClientNavigationVisibility(t *testing.T) {
	d, watcher, socketPath := testDaemon(t, t.TempDir())
	watcher.Plug("panel-1", device.NewSimTransport(testDescriptor()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	actor, err := client.Connect(ctx, socketPath)
	require.NoError(t, err)
	defer actor.Close()
	observer, err := client.Connect(ctx, socketPath)
	require.NoError(t, err)
	defer observer.Close()

	waitFor(t, func() bool {
		devices, err := actor.ListDevices(ctx)
		return err == nil && len(devices) == 1
	}, "device never attached")

	require.NoError(t, observer.Subscribe(ctx, model.DeviceTopic("panel-1")))

	dev, err := d.Manager().Get("panel-1")
	require.NoError(t, err)
	folderNode, err := dev.AddNode("tools")
	require.NoError(t, err)

	_, err = actor.BindAction(ctx, "panel-1", 0, model.TriggerPress, "folder",
		map[string]any{"target": float64(folderNode)})
	require.NoError(t, err)

	require.NoError(t, actor.Enter(ctx, "panel-1", 0))

	ev := waitEvent(t, observer.Events(), func(ev model.Event) bool {
		return ev.Type == model.EventProfileNavigated
	}, "observer never saw the navigation")
	assert.Equal(t, 2, ev.StackDepth)
	assert.Equal(t, "tools", ev.Node)

	// The observer's own read sees the same stack.
	prof, err := observer.GetProfile(ctx, "panel-1")
	require.NoError(t, err)
	require.Len(t, prof.Stack, 2)
	assert.Equal(t, "tools", prof.Stack[1].Name)
}

func TestDrainPersistsProfiles(t *testing.T) {
	profileDir := t.TempDir()

	d1, watcher, socketPath := testDaemon(t, profileDir)
	watcher.Plug("panel-1", device.NewSimTransport(testDescriptor()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := client.Connect(ctx, socketPath)
	require.NoError(t, err)

	waitFor(t, func() bool {
		devices, err := c.ListDevices(ctx)
		return err == nil && len(devices) == 1
	}, "device never attached")

	instanceID, err := c.BindAction(ctx, "panel-1", 4, model.TriggerPress, "toggle", nil)
	require.NoError(t, err)
	require.NoError(t, c.SetBrightness(ctx, "panel-1", 42))

	c.Close()
	require.NoError(t, d1.Stop())

	// A fresh daemon over the same profile dir restores the bindings.
	_, watcher2, socketPath2 := testDaemon(t, profileDir)
	watcher2.Plug("panel-1", device.NewSimTransport(testDescriptor()))

	c2, err := client.Connect(ctx, socketPath2)
	require.NoError(t, err)
	defer c2.Close()

	waitFor(t, func() bool {
		devices, err := c2.ListDevices(ctx)
		return err == nil && len(devices) == 1
	}, "device never reattached")

	prof, err := c2.GetProfile(ctx, "panel-1")
	require.NoError(t, err)
	assert.Equal(t, uint8(42), prof.Brightness)

	root := prof.Document.Nodes[0]
	require.Len(t, root.Buttons, 1)
	assert.Equal(t, uint8(4), root.Buttons[0].Key)
	require.Len(t, root.Buttons[0].Bindings, 1)
	assert.Equal(t, instanceID, root.Buttons[0].Bindings[0].ID)
	assert.Equal(t, "toggle", root.Buttons[0].Bindings[0].Kind)
}

// deadTransport accepts no frames, like hardware yanked mid-session
// without a driver-reported unplug.
type deadTransport struct {
	*device.SimTransport
}

func (t *deadTransport) PushFrame(uint8, []byte) error {
	return errors.New("transport gone")
}

func TestDeadTransportIsDetached(t *testing.T) {
	d, _, _ := testDaemon(t, t.TempDir())

	transport := &deadTransport{SimTransport: device.NewSimTransport(testDescriptor())}
	dev, err := d.Manager().Attach("panel-0", transport)
	require.NoError(t, err)

	// Every bind renders the button; every resulting frame push fails.
	for i := 0; i < maxPushFailures; i++ {
		_, err := dev.BindAction(0, model.TriggerPress, builtin.ToggleKind, nil)
		require.NoError(t, err)
	}

	waitFor(t, func() bool {
		_, err := d.Manager().Get("panel-0")
		return err != nil
	}, "device with dead transport never detached")
}

func TestErrorResponsesCarryCodes(t *testing.T) {
	_, _, socketPath := testDaemon(t, t.TempDir())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := client.Connect(ctx, socketPath)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.GetProfile(ctx, "no-such-panel")
	var ep *wire.ErrorPayload
	require.ErrorAs(t, err, &ep)
	assert.Equal(t, wire.CodeUnknownDevice, ep.Code)

	err = c.Subscribe(ctx, "device:")
	require.ErrorAs(t, err, &ep)
	assert.Equal(t, wire.CodeUnknownTopic, ep.Code)
}
