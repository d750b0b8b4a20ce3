package control

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/panelkit/paneld/pkg/action"
	"github.com/panelkit/paneld/pkg/action/builtin"
	"github.com/panelkit/paneld/pkg/device"
	"github.com/panelkit/paneld/pkg/model"
	"github.com/panelkit/paneld/pkg/profile"
	"github.com/panelkit/paneld/pkg/wire"
)

// fakeTransport is an in-memory panel with a 3x2 grid.
type fakeTransport struct {
	mu         sync.Mutex
	frames     map[uint8][]byte
	brightness uint8
	closed     bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{frames: make(map[uint8][]byte)}
}

func (t *fakeTransport) Descriptor() model.Descriptor {
	return model.Descriptor{
		Rows: 3, Columns: 2,
		ImageWidth: 72, ImageHeight: 72,
		Format: model.FormatRGB,
	}
}

func (t *fakeTransport) PushFrame(key uint8, frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frames[key] = frame
	return nil
}

func (t *fakeTransport) SetBrightness(percent uint8) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.brightness = percent
	return nil
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// harness wires a handler against one attached fake device.
type harness struct {
	handler *Handler
	manager *device.Manager
	broker  *Broker
	session *Session

	mu   sync.Mutex
	sent [][]byte
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	registry := action.NewRegistry()
	require.NoError(t, registry.Register(builtin.ToggleFactory()))
	require.NoError(t, registry.Register(builtin.FolderFactory()))

	store := profile.NewStore(t.TempDir())
	broker := NewBroker(nil)
	manager := device.NewManager(registry, store, nil, broker.Publish, nil)

	h := &harness{
		manager: manager,
		broker:  broker,
	}
	h.handler = NewHandler(manager, broker, nil, nil)
	h.session = NewSession("test-session", func(data []byte) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.sent = append(h.sent, append([]byte(nil), data...))
		return nil
	})
	broker.Add(h.session)

	_, err := manager.Attach("panel-1", newFakeTransport())
	require.NoError(t, err)

	t.Cleanup(manager.DetachAll)
	return h
}

// request runs one request through the handler and decodes the response.
func (h *harness) request(t *testing.T, msgType string, payload any) *wire.Message {
	t.Helper()
	req, err := wire.NewRequest(msgType, "corr-1", payload)
	require.NoError(t, err)
	return h.handler.Handle(h.session, req)
}

// pushed returns the frames delivered to the session so far.
func (h *harness) pushed() [][]byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([][]byte, len(h.sent))
	copy(out, h.sent)
	return out
}

func requireResult(t *testing.T, resp *wire.Message) {
	t.Helper()
	if resp.Type == wire.TypeError {
		ep, err := wire.DecodePayload[wire.ErrorPayload](resp)
		require.NoError(t, err)
		t.Fatalf("expected result, got error %s: %s", ep.Code, ep.Message)
	}
	require.Equal(t, wire.TypeResult, resp.Type)
}

func requireCode(t *testing.T, resp *wire.Message, code wire.Code) {
	t.Helper()
	require.Equal(t, wire.TypeError, resp.Type)
	ep, err := wire.DecodePayload[wire.ErrorPayload](resp)
	require.NoError(t, err)
	require.Equal(t, code, ep.Code)
}
