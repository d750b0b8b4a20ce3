package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/panelkit/paneld/pkg/action"
	"github.com/panelkit/paneld/pkg/control"
	"github.com/panelkit/paneld/pkg/device"
	"github.com/panelkit/paneld/pkg/log"
	"github.com/panelkit/paneld/pkg/model"
	"github.com/panelkit/paneld/pkg/profile"
	"github.com/panelkit/paneld/pkg/render"
	"github.com/panelkit/paneld/pkg/transport"
)

// State is the daemon lifecycle state.
type State int

const (
	// StateStopped is the initial and final state.
	StateStopped State = iota

	// StateStarting is set while subsystems come up.
	StateStarting

	// StateRunning means the daemon serves requests.
	StateRunning

	// StateDraining means shutdown is in progress: no new work is
	// accepted, in-flight commands complete, profiles are flushed.
	StateDraining
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "STOPPED"
	case StateStarting:
		return "STARTING"
	case StateRunning:
		return "RUNNING"
	case StateDraining:
		return "DRAINING"
	default:
		return "UNKNOWN"
	}
}

// DefaultDrainTimeout bounds how long shutdown waits for flushes.
const DefaultDrainTimeout = 5 * time.Second

// maxPushFailures is the number of consecutive frame-push failures after
// which a device's transport is treated as dead and the device detached.
const maxPushFailures = 3

// Config assembles a Daemon.
type Config struct {
	// SocketPath is the control-plane unix socket.
	SocketPath string

	// ProfileDir holds the per-device profile documents.
	ProfileDir string

	// Registry holds the available action kinds. Must be fully
	// populated before Start; the registry is not locked.
	Registry *action.Registry

	// Watcher surfaces device hot-plug events. Optional; without one,
	// devices are attached programmatically via Manager.
	Watcher device.Watcher

	// RenderWorkers sizes the render pool. <= 0 means one per CPU.
	RenderWorkers int

	// DrainTimeout bounds shutdown flushing. 0 means default.
	DrainTimeout time.Duration

	// Logger is the operational logger. nil discards.
	Logger *slog.Logger

	// Capture receives protocol events. nil disables capture.
	Capture log.Logger
}

// Daemon is the assembled runtime.
type Daemon struct {
	config   Config
	logger   *slog.Logger
	capture  log.Logger
	store    *profile.Store
	manager  *device.Manager
	pipeline *render.Pipeline
	broker   *control.Broker
	handler  *control.Handler
	server   *transport.Server

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	wg     sync.WaitGroup

	pushMu       sync.Mutex
	pushFailures map[string]int
}

// New validates the configuration and assembles a stopped daemon.
func New(config Config) (*Daemon, error) {
	if config.SocketPath == "" {
		return nil, fmt.Errorf("socket path is required")
	}
	if config.ProfileDir == "" {
		return nil, fmt.Errorf("profile directory is required")
	}
	if config.Registry == nil {
		return nil, fmt.Errorf("action registry is required")
	}
	if config.DrainTimeout <= 0 {
		config.DrainTimeout = DefaultDrainTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	capture := config.Capture
	if capture == nil {
		capture = log.NoopLogger{}
	}

	d := &Daemon{
		config:       config,
		logger:       logger,
		capture:      capture,
		state:        StateStopped,
		pushFailures: make(map[string]int),
	}

	d.store = profile.NewStore(config.ProfileDir)
	d.broker = control.NewBroker(logger)
	d.pipeline = render.NewPipeline(config.RenderWorkers, logger)
	d.manager = device.NewManager(config.Registry, d.store, logger,
		d.broker.Publish, d.pipeline.Submit)
	d.handler = control.NewHandler(d.manager, d.broker, logger, capture)

	server, err := transport.NewServer(transport.ServerConfig{
		SocketPath:   config.SocketPath,
		Logger:       capture,
		OnConnect:    d.onConnect,
		OnDisconnect: d.onDisconnect,
		OnMessage:    d.onMessage,
		OnError:      d.onError,
	})
	if err != nil {
		return nil, err
	}
	d.server = server
	return d, nil
}

// Manager returns the device manager, for programmatic attachment.
func (d *Daemon) Manager() *device.Manager { return d.manager }

// State returns the current lifecycle state.
func (d *Daemon) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Daemon) setState(next State) {
	d.mu.Lock()
	prev := d.state
	d.state = next
	d.mu.Unlock()
	d.logger.Info("daemon state changed", "from", prev.String(), "to", next.String())
	d.capture.Log(log.NewStateEvent(log.StateEntityDaemon, "", "", prev.String(), next.String()))
}

// Start brings the daemon up. Any error here is fatal; nothing is left
// half-running.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.state != StateStopped {
		d.mu.Unlock()
		return fmt.Errorf("daemon already started")
	}
	d.state = StateStarting
	d.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.pipeline.Start()

	if err := d.server.Start(ctx); err != nil {
		cancel()
		d.pipeline.Close()
		d.setState(StateStopped)
		return fmt.Errorf("starting control server: %w", err)
	}

	d.wg.Add(1)
	go d.resultLoop()

	if d.config.Watcher != nil {
		d.wg.Add(1)
		go d.watchLoop(ctx)
	}

	d.setState(StateRunning)
	d.logger.Info("daemon listening", "socket", d.config.SocketPath)
	return nil
}

// Stop drains and shuts down. In-flight device commands complete;
// dirty profiles are flushed within the drain timeout. Anything still
// unsaved after the timeout is reported as data loss.
func (d *Daemon) Stop() error {
	d.mu.Lock()
	if d.state != StateRunning {
		d.mu.Unlock()
		return nil
	}
	d.state = StateDraining
	d.mu.Unlock()
	d.logger.Info("daemon draining", "timeout", d.config.DrainTimeout)

	// Stop the intake first: no new sessions, no new requests.
	if err := d.server.Stop(); err != nil {
		d.logger.Error("control server stop failed", "error", err)
	}

	if d.config.Watcher != nil {
		_ = d.config.Watcher.Close()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		d.manager.DetachAll()
	}()

	select {
	case <-done:
	case <-time.After(d.config.DrainTimeout):
		d.reportUnsaved()
	}

	d.cancel()
	d.pipeline.Close()
	d.wg.Wait()

	d.setState(StateStopped)
	return nil
}

// reportUnsaved names every device whose profile could not be flushed
// before the drain timeout expired.
func (d *Daemon) reportUnsaved() {
	for _, dev := range d.manager.List() {
		if dev.Dirty() {
			d.logger.Error("drain timeout: profile changes lost", "device", dev.ID())
		}
	}
	d.logger.Error("shutdown drain timed out", "timeout", d.config.DrainTimeout)
}

// --- control-plane wiring ---

func (d *Daemon) onConnect(conn *transport.ServerConn) {
	session := control.NewSession(conn.SessionID(), conn.Send)
	d.broker.Add(session)
	d.logger.Debug("session connected", "session", conn.SessionID())
}

func (d *Daemon) onDisconnect(conn *transport.ServerConn) {
	d.broker.Remove(conn.SessionID())
	d.logger.Debug("session disconnected", "session", conn.SessionID())
}

func (d *Daemon) onMessage(conn *transport.ServerConn, data []byte) {
	session, ok := d.broker.Get(conn.SessionID())
	if !ok {
		return
	}
	resp := d.handler.HandleFrame(session, data)
	if err := conn.Send(resp); err != nil {
		d.logger.Debug("response send failed", "session", conn.SessionID(), "error", err)
	}
}

func (d *Daemon) onError(conn *transport.ServerConn, err error) {
	if conn != nil {
		d.logger.Warn("session error", "session", conn.SessionID(), "error", err)
		return
	}
	d.logger.Warn("control server error", "error", err)
}

// --- device wiring ---

// watchLoop applies hot-plug events from the watcher.
func (d *Daemon) watchLoop(ctx context.Context) {
	defer d.wg.Done()
	attachments := d.config.Watcher.Attachments()
	detachments := d.config.Watcher.Detachments()
	for {
		select {
		case att, ok := <-attachments:
			if !ok {
				return
			}
			if _, err := d.manager.Attach(att.DeviceID, att.Transport); err != nil {
				d.logger.Error("device attach failed", "device", att.DeviceID, "error", err)
			}
		case deviceID, ok := <-detachments:
			if !ok {
				return
			}
			if err := d.manager.Detach(deviceID); err != nil {
				d.logger.Error("device detach failed", "device", deviceID, "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// resultLoop pushes completed renders to the hardware and broadcasts
// image updates to subscribed sessions.
func (d *Daemon) resultLoop() {
	defer d.wg.Done()
	for result := range d.pipeline.Results() {
		if result.Err != nil {
			d.logger.Warn("render failed",
				"device", result.DeviceID, "key", result.Key, "error", result.Err)
			continue
		}
		d.deliver(result)
	}
}

func (d *Daemon) deliver(result render.Result) {
	dev, err := d.manager.Get(result.DeviceID)
	if err != nil {
		// Device detached while the job was in flight.
		d.clearPushFailures(result.DeviceID)
		return
	}

	frame, err := render.EncodeNative(result.Image, dev.Descriptor())
	if err != nil {
		d.logger.Warn("frame encode failed",
			"device", result.DeviceID, "key", result.Key, "error", err)
		return
	}
	if err := dev.Transport().PushFrame(result.Key, frame); err != nil {
		d.logger.Warn("frame push failed",
			"device", result.DeviceID, "key", result.Key, "error", err)
		if d.notePushFailure(result.DeviceID) {
			d.logger.Error("transport unresponsive, detaching device",
				"device", result.DeviceID)
			// Off the result loop: Detach drains the device queue, which
			// may itself be waiting on render results.
			go func(deviceID string) {
				if err := d.manager.Detach(deviceID); err != nil {
					d.logger.Error("device detach failed", "device", deviceID, "error", err)
				}
			}(result.DeviceID)
		}
		return
	}
	d.clearPushFailures(result.DeviceID)

	encoded, err := render.EncodeWire(result.Image)
	if err != nil {
		d.logger.Warn("image wire encode failed",
			"device", result.DeviceID, "key", result.Key, "error", err)
		return
	}
	key := result.Key
	d.broker.Publish(model.Event{
		Type:     model.EventButtonImageChanged,
		DeviceID: result.DeviceID,
		Key:      &key,
		Image:    encoded,
	})
}

// notePushFailure counts a consecutive push failure and reports whether
// the device's transport should now be considered dead.
func (d *Daemon) notePushFailure(deviceID string) bool {
	d.pushMu.Lock()
	defer d.pushMu.Unlock()
	d.pushFailures[deviceID]++
	if d.pushFailures[deviceID] >= maxPushFailures {
		delete(d.pushFailures, deviceID)
		return true
	}
	return false
}

func (d *Daemon) clearPushFailures(deviceID string) {
	d.pushMu.Lock()
	delete(d.pushFailures, deviceID)
	d.pushMu.Unlock()
}
