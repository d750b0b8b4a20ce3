package device

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panelkit/paneld/pkg/action"
	"github.com/panelkit/paneld/pkg/action/builtin"
	"github.com/panelkit/paneld/pkg/model"
	"github.com/panelkit/paneld/pkg/profile"
)

func testManager(t *testing.T) (*Manager, *profile.Store, *collector) {
	t.Helper()
	store := profile.NewStore(t.TempDir())
	col := &collector{}
	m := NewManager(testRegistry(t), store, nil, col.event, col.render)
	return m, store, col
}

func TestManagerAttachDetach(t *testing.T) {
	m, _, col := testManager(t)
	transport := NewSimTransport(testDesc)

	dev, err := m.Attach("panel-0", transport)
	require.NoError(t, err)
	assert.Equal(t, "panel-0", dev.ID())

	_, err = m.Attach("panel-0", NewSimTransport(testDesc))
	assert.Error(t, err)

	got, err := m.Get("panel-0")
	require.NoError(t, err)
	assert.Same(t, dev, got)

	require.NoError(t, m.Detach("panel-0"))
	assert.True(t, transport.Closed())
	assert.ErrorIs(t, m.Detach("panel-0"), ErrUnknownDevice)

	_, err = m.Get("panel-0")
	assert.ErrorIs(t, err, ErrUnknownDevice)

	types := col.eventTypes()
	assert.Contains(t, types, model.EventDeviceConnected)
	assert.Contains(t, types, model.EventDeviceDisconnected)
}

func TestConcurrentAttachSameID(t *testing.T) {
	for i := 0; i < 20; i++ {
		m, _, _ := testManager(t)

		start := make(chan struct{})
		errs := make(chan error, 2)
		for j := 0; j < 2; j++ {
			go func() {
				<-start
				_, err := m.Attach("panel-0", NewSimTransport(testDesc))
				errs <- err
			}()
		}
		close(start)

		err1, err2 := <-errs, <-errs
		// Exactly one attach wins; the loser errors instead of silently
		// replacing the winner in the map.
		if err1 == nil {
			assert.Error(t, err2)
		} else {
			require.NoError(t, err2)
		}
		require.Len(t, m.List(), 1)
		m.DetachAll()
	}
}

func TestManagerListSorted(t *testing.T) {
	m, _, _ := testManager(t)
	for _, id := range []string{"panel-2", "panel-0", "panel-1"} {
		_, err := m.Attach(id, NewSimTransport(testDesc))
		require.NoError(t, err)
	}
	t.Cleanup(m.DetachAll)

	list := m.List()
	require.Len(t, list, 3)
	assert.Equal(t, "panel-0", list[0].ID())
	assert.Equal(t, "panel-1", list[1].ID())
	assert.Equal(t, "panel-2", list[2].ID())
}

func TestDetachPersistsDirtyProfile(t *testing.T) {
	m, store, _ := testManager(t)

	dev, err := m.Attach("panel-0", NewSimTransport(testDesc))
	require.NoError(t, err)

	id, err := dev.BindAction(0, model.TriggerPress, builtin.ToggleKind, nil)
	require.NoError(t, err)
	require.NoError(t, m.Detach("panel-0"))

	// Reattach: the binding comes back materialized.
	dev, err = m.Attach("panel-0", NewSimTransport(testDesc))
	require.NoError(t, err)
	t.Cleanup(m.DetachAll)

	snap, err := dev.Snapshot()
	require.NoError(t, err)
	require.Len(t, snap.Document.Nodes, 1)
	require.Len(t, snap.Document.Nodes[0].Buttons, 1)
	assert.Equal(t, id, snap.Document.Nodes[0].Buttons[0].Bindings[0].ID)
	assert.False(t, snap.Dirty)

	doc, err := store.Load("panel-0")
	require.NoError(t, err)
	require.Len(t, doc.Nodes[0].Buttons, 1)
}

func TestAttachSurvivesMissingProfile(t *testing.T) {
	m, _, _ := testManager(t)

	dev, err := m.Attach("fresh", NewSimTransport(testDesc))
	require.NoError(t, err)
	t.Cleanup(m.DetachAll)

	assert.True(t, dev.Persistable())
	stack, err := dev.ActiveStack()
	require.NoError(t, err)
	assert.Equal(t, []model.NodeID{model.RootNode}, stack)
}

func TestAttachFutureSchemaDisablesPersistence(t *testing.T) {
	dir := t.TempDir()
	original := []byte(`{"version": 99, "nodes": [{"id": 1, "name": "root"}]}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "panel-0.json"), original, 0o644))

	store := profile.NewStore(dir)
	m := NewManager(testRegistry(t), store, nil, nil, nil)

	dev, err := m.Attach("panel-0", NewSimTransport(testDesc))
	require.NoError(t, err)
	assert.False(t, dev.Persistable())

	_, err = dev.BindAction(0, model.TriggerPress, builtin.ToggleKind, nil)
	require.NoError(t, err)
	require.NoError(t, m.Detach("panel-0"))

	// The untrusted file was left untouched.
	data, err := os.ReadFile(filepath.Join(dir, "panel-0.json"))
	require.NoError(t, err)
	assert.Equal(t, original, data)
}

func TestMaterializeKeepsUnknownKindsInert(t *testing.T) {
	store := profile.NewStore(t.TempDir())

	// Persist a profile with a kind the next registry will not know.
	full := action.NewRegistry()
	require.NoError(t, builtin.RegisterAll(full))
	m := NewManager(full, store, nil, nil, nil)
	dev, err := m.Attach("panel-0", NewSimTransport(testDesc))
	require.NoError(t, err)
	_, err = dev.BindAction(0, model.TriggerPress, builtin.ToggleKind, nil)
	require.NoError(t, err)
	require.NoError(t, m.Detach("panel-0"))

	// Reattach with an empty registry: the binding survives as data but
	// dispatch skips it.
	bare := NewManager(action.NewRegistry(), store, nil, nil, nil)
	dev, err = bare.Attach("panel-0", NewSimTransport(testDesc))
	require.NoError(t, err)
	t.Cleanup(bare.DetachAll)

	result, err := dev.Dispatch(0, model.TriggerPress)
	require.NoError(t, err)
	assert.Empty(t, result.Instances)

	snap, err := dev.Snapshot()
	require.NoError(t, err)
	require.Len(t, snap.Document.Nodes[0].Buttons, 1)
}

func TestFlushAllPersistsEveryDirtyDevice(t *testing.T) {
	m, store, _ := testManager(t)

	for _, id := range []string{"panel-0", "panel-1"} {
		dev, err := m.Attach(id, NewSimTransport(testDesc))
		require.NoError(t, err)
		_, err = dev.BindAction(0, model.TriggerPress, builtin.ToggleKind, nil)
		require.NoError(t, err)
	}
	t.Cleanup(m.DetachAll)

	require.NoError(t, m.FlushAll())
	for _, id := range []string{"panel-0", "panel-1"} {
		doc, err := store.Load(id)
		require.NoError(t, err)
		require.Len(t, doc.Nodes[0].Buttons, 1)
	}

	list := m.List()
	for _, dev := range list {
		assert.False(t, dev.Dirty())
	}
}
