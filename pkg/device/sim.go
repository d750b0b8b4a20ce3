package device

import (
	"sync"

	"github.com/panelkit/paneld/pkg/model"
)

// SimTransport is an in-memory panel for development and tests. It
// records pushed frames and the last brightness instead of driving
// hardware.
type SimTransport struct {
	mu         sync.Mutex
	desc       model.Descriptor
	frames     map[uint8][]byte
	brightness uint8
	closed     bool
}

// NewSimTransport creates a simulated panel with the given descriptor.
func NewSimTransport(desc model.Descriptor) *SimTransport {
	return &SimTransport{
		desc:   desc,
		frames: make(map[uint8][]byte),
	}
}

// Descriptor returns the simulated grid descriptor.
func (t *SimTransport) Descriptor() model.Descriptor { return t.desc }

// PushFrame records the frame for the key.
func (t *SimTransport) PushFrame(key uint8, frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frames[key] = append([]byte(nil), frame...)
	return nil
}

// SetBrightness records the brightness.
func (t *SimTransport) SetBrightness(percent uint8) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.brightness = percent
	return nil
}

// Frame returns the last frame pushed for the key, or nil.
func (t *SimTransport) Frame(key uint8) []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.frames[key]
}

// Brightness returns the last brightness set.
func (t *SimTransport) Brightness() uint8 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.brightness
}

// Closed reports whether Close was called.
func (t *SimTransport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Close marks the transport closed.
func (t *SimTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

var (
	_ Transport        = (*SimTransport)(nil)
	_ BrightnessSetter = (*SimTransport)(nil)
)

// SimWatcher is a programmable hot-plug source. Plug and Unplug feed
// the channels the lifecycle manager consumes.
type SimWatcher struct {
	attachments chan Attachment
	detachments chan string
	closeOnce   sync.Once
}

// NewSimWatcher creates a watcher with small channel buffers.
func NewSimWatcher() *SimWatcher {
	return &SimWatcher{
		attachments: make(chan Attachment, 8),
		detachments: make(chan string, 8),
	}
}

// Plug announces a new device.
func (w *SimWatcher) Plug(deviceID string, transport Transport) {
	w.attachments <- Attachment{DeviceID: deviceID, Transport: transport}
}

// Unplug announces a lost device.
func (w *SimWatcher) Unplug(deviceID string) {
	w.detachments <- deviceID
}

// Attachments returns the attach channel.
func (w *SimWatcher) Attachments() <-chan Attachment { return w.attachments }

// Detachments returns the detach channel.
func (w *SimWatcher) Detachments() <-chan string { return w.detachments }

// Close closes both channels.
func (w *SimWatcher) Close() error {
	w.closeOnce.Do(func() {
		close(w.attachments)
		close(w.detachments)
	})
	return nil
}

var _ Watcher = (*SimWatcher)(nil)
