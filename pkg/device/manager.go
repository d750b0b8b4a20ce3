package device

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/panelkit/paneld/pkg/action"
	"github.com/panelkit/paneld/pkg/model"
	"github.com/panelkit/paneld/pkg/profile"
)

// Manager tracks attached devices and runs the attach/detach paths.
// The map is guarded by a mutex; all per-device state stays behind each
// device's own command queue, so the manager never serializes device
// operations against each other.
type Manager struct {
	mu      sync.RWMutex
	devices map[string]*Device

	// pending reserves ids between the existence check and the map
	// insert, so two concurrent attaches of the same id cannot both
	// proceed through the profile load.
	pending map[string]struct{}

	registry *action.Registry
	store    *profile.Store
	logger   *slog.Logger
	events   EventSink
	renders  RenderSink
}

// NewManager creates a device manager.
func NewManager(registry *action.Registry, store *profile.Store, logger *slog.Logger, events EventSink, renders RenderSink) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{
		devices:  make(map[string]*Device),
		pending:  make(map[string]struct{}),
		registry: registry,
		store:    store,
		logger:   logger,
		events:   events,
		renders:  renders,
	}
}

// Attach registers a newly connected device: loads its profile,
// materializes action instances against the registry, starts the command
// queue, and announces the device.
func (m *Manager) Attach(deviceID string, transport Transport) (*Device, error) {
	m.mu.Lock()
	if _, exists := m.devices[deviceID]; exists {
		m.mu.Unlock()
		return nil, fmt.Errorf("device %s already attached", deviceID)
	}
	if _, exists := m.pending[deviceID]; exists {
		m.mu.Unlock()
		return nil, fmt.Errorf("device %s attach already in progress", deviceID)
	}
	m.pending[deviceID] = struct{}{}
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.pending, deviceID)
		m.mu.Unlock()
	}()

	doc, err := m.store.Load(deviceID)
	persist := true
	switch {
	case err == nil:
	case errors.Is(err, profile.ErrSchema):
		// Never overwrite a document from a newer daemon. Run with an
		// in-memory default and leave the file alone.
		m.logger.Error("profile has unsupported schema, running without persistence",
			"device", deviceID, "error", err)
		doc = profile.DefaultDocument()
		persist = false
	default:
		var recoverable *profile.RecoverableError
		if !errors.As(err, &recoverable) {
			return nil, err
		}
		m.logger.Warn("profile load failed, using defaults", "device", deviceID, "error", err)
	}

	tree := profile.TreeFromDocument(doc)
	m.materialize(deviceID, tree)

	dev := New(Config{
		ID:         deviceID,
		Transport:  transport,
		Registry:   m.registry,
		Tree:       tree,
		Brightness: doc.Brightness,
		Persist:    persist,
		Logger:     m.logger,
		Events:     m.events,
		Renders:    m.renders,
	})

	m.mu.Lock()
	m.devices[deviceID] = dev
	m.mu.Unlock()

	m.logger.Info("device attached", "device", deviceID,
		"rows", dev.desc.Rows, "columns", dev.desc.Columns)
	if m.events != nil {
		m.events(model.Event{Type: model.EventDeviceConnected, DeviceID: deviceID})
	}

	// Prime the hardware with the root screen.
	_ = dev.do(func() { dev.renderScreen() })
	return dev, nil
}

// materialize builds live instances for every persisted binding. Unknown
// kinds are kept as data so they survive a round-trip, but stay inert.
func (m *Manager) materialize(deviceID string, tree *profile.Tree) {
	for _, node := range tree.Nodes() {
		for _, button := range node.Buttons {
			for _, binding := range button.AllBindings() {
				instance, err := m.registry.Instantiate(binding.Kind, binding.Params)
				if err != nil {
					m.logger.Warn("binding kind unavailable, kept inert",
						"device", deviceID, "kind", binding.Kind, "instance", binding.ID, "error", err)
					continue
				}
				if err := instance.OnBind(); err != nil {
					instance.OnUnbind()
					m.logger.Warn("binding bind hook failed, kept inert",
						"device", deviceID, "kind", binding.Kind, "instance", binding.ID, "error", err)
					continue
				}
				binding.Instance = instance
			}
		}
	}
}

// Detach unregisters a device: flushes a dirty profile, drains and stops
// the command queue, tears down live instances, and announces the loss.
func (m *Manager) Detach(deviceID string) error {
	m.mu.Lock()
	dev, exists := m.devices[deviceID]
	if !exists {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownDevice, deviceID)
	}
	delete(m.devices, deviceID)
	m.mu.Unlock()

	if err := m.Flush(dev); err != nil {
		m.logger.Error("profile flush on detach failed", "device", deviceID, "error", err)
	}

	dev.Close()
	_ = dev.transport.Close()

	// Teardown hooks after the queue is stopped; nothing races them.
	for _, node := range dev.tree.Nodes() {
		for _, button := range node.Buttons {
			teardown(button.AllBindings())
		}
	}

	m.logger.Info("device detached", "device", deviceID)
	if m.events != nil {
		m.events(model.Event{Type: model.EventDeviceDisconnected, DeviceID: deviceID})
	}
	return nil
}

// Flush persists the device's profile when it is dirty and persistable.
func (m *Manager) Flush(dev *Device) error {
	snap, err := dev.Snapshot()
	if err != nil {
		if errors.Is(err, ErrDeviceClosed) {
			return nil
		}
		return err
	}
	if !snap.Dirty || !dev.Persistable() {
		return nil
	}
	if err := m.store.Save(dev.ID(), snap.Document); err != nil {
		return err
	}
	dev.ClearDirty()
	return nil
}

// FlushAll persists every dirty profile. Used by the shutdown drain.
func (m *Manager) FlushAll() error {
	var firstErr error
	for _, dev := range m.List() {
		if err := m.Flush(dev); err != nil {
			m.logger.Error("profile flush failed", "device", dev.ID(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Get returns an attached device.
func (m *Manager) Get(deviceID string) (*Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dev, exists := m.devices[deviceID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDevice, deviceID)
	}
	return dev, nil
}

// List returns the attached devices sorted by id.
func (m *Manager) List() []*Device {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Device, 0, len(m.devices))
	for _, dev := range m.devices {
		out = append(out, dev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// DetachAll detaches every device. Used by the shutdown path.
func (m *Manager) DetachAll() {
	for _, dev := range m.List() {
		if err := m.Detach(dev.ID()); err != nil {
			m.logger.Error("detach failed", "device", dev.ID(), "error", err)
		}
	}
}
