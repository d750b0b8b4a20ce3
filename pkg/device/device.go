package device

import (
	"fmt"
	"image"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/panelkit/paneld/pkg/action"
	"github.com/panelkit/paneld/pkg/dispatch"
	"github.com/panelkit/paneld/pkg/model"
	"github.com/panelkit/paneld/pkg/profile"
	"github.com/panelkit/paneld/pkg/render"
)

// EventSink receives state-change events for broadcast.
type EventSink func(model.Event)

// RenderSink receives render jobs for the worker pool.
type RenderSink func(render.Job)

// BindingSpec describes one binding for SetButton bulk replacement.
type BindingSpec struct {
	Trigger model.Trigger `json:"trigger"`
	Kind    string        `json:"kind"`
	Params  action.Params `json:"params,omitempty"`
}

// Device is one attached panel with its profile tree and active stack.
// All state behind the command queue is owned by the queue goroutine;
// exported methods enqueue and wait.
type Device struct {
	id        string
	desc      model.Descriptor
	transport Transport
	registry  *action.Registry
	logger    *slog.Logger
	events    EventSink
	renders   RenderSink

	queue     chan func()
	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	// queueMu orders enqueue against close: do sends only while holding
	// the read lock after observing the device open, and Close closes
	// under the write lock. A submitted command therefore always lands
	// before the drain begins and is guaranteed to run.
	queueMu sync.RWMutex

	// Owned by the queue goroutine after Start.
	tree       *profile.Tree
	stack      []model.NodeID
	brightness uint8
	dirty      bool
	persist    bool
}

// Config assembles a Device.
type Config struct {
	ID         string
	Transport  Transport
	Registry   *action.Registry
	Tree       *profile.Tree
	Brightness uint8

	// Persist is false when the stored document could not be trusted
	// (future schema); the device then never writes over it.
	Persist bool

	Logger  *slog.Logger
	Events  EventSink
	Renders RenderSink
}

// New creates a device and starts its command queue.
func New(cfg Config) *Device {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	d := &Device{
		id:         cfg.ID,
		desc:       cfg.Transport.Descriptor(),
		transport:  cfg.Transport,
		registry:   cfg.Registry,
		logger:     logger.With("device", cfg.ID),
		events:     cfg.Events,
		renders:    cfg.Renders,
		queue:      make(chan func(), 64),
		closed:     make(chan struct{}),
		tree:       cfg.Tree,
		stack:      []model.NodeID{model.RootNode},
		brightness: cfg.Brightness,
		persist:    cfg.Persist,
	}
	if d.events == nil {
		d.events = func(model.Event) {}
	}
	if d.renders == nil {
		d.renders = func(render.Job) {}
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// ID returns the device id.
func (d *Device) ID() string { return d.id }

// Descriptor returns the device's capability descriptor.
func (d *Device) Descriptor() model.Descriptor { return d.desc }

// Transport returns the device's hardware transport.
func (d *Device) Transport() Transport { return d.transport }

// Persistable reports whether the device's profile may be saved.
func (d *Device) Persistable() bool { return d.persist }

// run applies queued commands one at a time in arrival order. After Close
// the remaining queue is drained: submitted commands complete even when
// the submitter is gone.
func (d *Device) run() {
	defer d.wg.Done()
	for {
		select {
		case fn := <-d.queue:
			fn()
		case <-d.closed:
			for {
				select {
				case fn := <-d.queue:
					fn()
				default:
					return
				}
			}
		}
	}
}

// do runs fn on the command queue and waits for it. A full queue blocks
// the send, but the run loop keeps consuming until the close lands, so
// the lock is never held against a stalled drainer.
func (d *Device) do(fn func()) error {
	d.queueMu.RLock()
	select {
	case <-d.closed:
		d.queueMu.RUnlock()
		return ErrDeviceClosed
	default:
	}
	done := make(chan struct{})
	d.queue <- func() { fn(); close(done) }
	d.queueMu.RUnlock()
	<-done
	return nil
}

// Close stops the queue after draining already-submitted commands.
// It does not flush the profile; Manager.Detach owns that ordering.
func (d *Device) Close() {
	d.closeOnce.Do(func() {
		d.queueMu.Lock()
		close(d.closed)
		d.queueMu.Unlock()
	})
	d.wg.Wait()
}

// --- Navigation ---

// Enter pushes the folder target of the button at key onto the active
// stack. Fails with ErrNotAFolder unless the button's top binding exposes
// the folder capability; the stack is untouched on any failure.
func (d *Device) Enter(key uint8) error {
	var err error
	qerr := d.do(func() { err = d.enterLocked(key) })
	if qerr != nil {
		return qerr
	}
	return err
}

func (d *Device) enterLocked(key uint8) error {
	button, err := d.currentButton(key)
	if err != nil {
		return err
	}
	top := button.Top()
	if top == nil || top.Instance == nil {
		return fmt.Errorf("%w: key %d has no binding", ErrNotAFolder, key)
	}
	folder, ok := top.Instance.(action.Folder)
	if !ok {
		return fmt.Errorf("%w: key %d is bound to %q", ErrNotAFolder, key, top.Kind)
	}
	target := folder.FolderTarget()
	node, err := d.tree.Node(target)
	if err != nil {
		return fmt.Errorf("%w: folder target %d missing", ErrNotAFolder, target)
	}
	d.stack = append(d.stack, target)
	d.emitNavigated(node)
	d.renderScreen()
	return nil
}

// Back pops one level off the active stack. Fails with ErrAtRoot when
// only the root remains.
func (d *Device) Back() error {
	var err error
	qerr := d.do(func() { err = d.backLocked() })
	if qerr != nil {
		return qerr
	}
	return err
}

func (d *Device) backLocked() error {
	if len(d.stack) <= 1 {
		return ErrAtRoot
	}
	d.stack = d.stack[:len(d.stack)-1]
	node, _ := d.tree.Node(d.stack[len(d.stack)-1])
	d.emitNavigated(node)
	d.renderScreen()
	return nil
}

// DropToRoot collapses the active stack to the root node.
func (d *Device) DropToRoot() error {
	return d.do(func() {
		if len(d.stack) == 1 {
			return
		}
		d.stack = d.stack[:1]
		d.emitNavigated(d.tree.Root())
		d.renderScreen()
	})
}

// --- Binding mutation ---

// BindAction instantiates an action and appends it to the button's
// binding list for the trigger. Returns the new instance id.
func (d *Device) BindAction(key uint8, trigger model.Trigger, kind string, params action.Params) (string, error) {
	var (
		instanceID string
		err        error
	)
	qerr := d.do(func() { instanceID, err = d.bindLocked(key, trigger, kind, params) })
	if qerr != nil {
		return "", qerr
	}
	return instanceID, err
}

func (d *Device) bindLocked(key uint8, trigger model.Trigger, kind string, params action.Params) (string, error) {
	if !d.desc.ValidKey(key) {
		return "", fmt.Errorf("%w: key %d outside %dx%d grid", ErrUnknownButton, key, d.desc.Rows, d.desc.Columns)
	}
	node := d.currentNode()
	instance, err := d.registry.Instantiate(kind, params)
	if err != nil {
		return "", err
	}
	if err := instance.OnBind(); err != nil {
		instance.OnUnbind()
		return "", &action.ConstructionError{Kind: kind, Err: err}
	}

	binding := &profile.Binding{
		ID:       uuid.NewString(),
		Trigger:  trigger,
		Kind:     kind,
		Params:   params.Clone(),
		Instance: instance,
	}
	node.EnsureButton(key).Append(binding)
	d.dirty = true
	d.emitButtonUpdated(key)
	d.renderKey(key)
	return binding.ID, nil
}

// Unbind removes the binding with the given instance id from wherever it
// lives in the tree and runs the plugin teardown hook.
func (d *Device) Unbind(instanceID string) error {
	var err error
	qerr := d.do(func() { err = d.unbindLocked(instanceID) })
	if qerr != nil {
		return qerr
	}
	return err
}

func (d *Device) unbindLocked(instanceID string) error {
	node, key, button, ok := d.tree.FindBinding(instanceID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownInstance, instanceID)
	}
	binding := button.Remove(instanceID)
	if binding.Instance != nil {
		binding.Instance.OnUnbind()
	}
	d.dirty = true
	if node.ID == d.currentNodeID() {
		d.emitButtonUpdated(key)
		d.renderKey(key)
	}
	return nil
}

// SetButton atomically replaces the whole binding set of the button at
// key on the current screen. All new instances are constructed before the
// old set is torn down; a construction failure leaves the button as it was.
func (d *Device) SetButton(key uint8, specs []BindingSpec) error {
	var err error
	qerr := d.do(func() { err = d.setButtonLocked(key, specs) })
	if qerr != nil {
		return qerr
	}
	return err
}

func (d *Device) setButtonLocked(key uint8, specs []BindingSpec) error {
	if !d.desc.ValidKey(key) {
		return fmt.Errorf("%w: key %d outside %dx%d grid", ErrUnknownButton, key, d.desc.Rows, d.desc.Columns)
	}
	node := d.currentNode()

	newBindings := make([]*profile.Binding, 0, len(specs))
	for _, spec := range specs {
		instance, err := d.registry.Instantiate(spec.Kind, spec.Params)
		if err != nil {
			teardown(newBindings)
			return err
		}
		if err := instance.OnBind(); err != nil {
			instance.OnUnbind()
			teardown(newBindings)
			return &action.ConstructionError{Kind: spec.Kind, Err: err}
		}
		newBindings = append(newBindings, &profile.Binding{
			ID:       uuid.NewString(),
			Trigger:  spec.Trigger,
			Kind:     spec.Kind,
			Params:   spec.Params.Clone(),
			Instance: instance,
		})
	}

	button := node.EnsureButton(key)
	teardown(button.AllBindings())
	button.Replace(newBindings)
	d.dirty = true
	d.emitButtonUpdated(key)
	d.renderKey(key)
	return nil
}

func teardown(bindings []*profile.Binding) {
	for _, b := range bindings {
		if b.Instance != nil {
			b.Instance.OnUnbind()
		}
	}
}

// --- Dispatch ---

// Dispatch runs a trigger event through the button's binding chain and
// applies requested effects after the chain completes.
func (d *Device) Dispatch(key uint8, trigger model.Trigger) (dispatch.Result, error) {
	var (
		result dispatch.Result
		err    error
	)
	qerr := d.do(func() { result, err = d.dispatchLocked(key, trigger) })
	if qerr != nil {
		return dispatch.Result{}, qerr
	}
	return result, err
}

func (d *Device) dispatchLocked(key uint8, trigger model.Trigger) (dispatch.Result, error) {
	button, err := d.currentButton(key)
	if err != nil {
		return dispatch.Result{}, err
	}
	result, effects := dispatch.Run(button.Bindings(trigger), trigger)
	for _, ir := range result.Instances {
		if ir.Err != nil {
			d.logger.Warn("action handler failed", "instance", ir.InstanceID, "kind", ir.Kind, "error", ir.Err)
		}
	}
	d.applyEffects(key, button, effects)
	return result, nil
}

// Press runs the press and release chains back to back, the way a client
// simulated button push behaves.
func (d *Device) Press(key uint8) ([]dispatch.Result, error) {
	var (
		results []dispatch.Result
		err     error
	)
	qerr := d.do(func() {
		var press, release dispatch.Result
		press, err = d.dispatchLocked(key, model.TriggerPress)
		if err != nil {
			return
		}
		release, err = d.dispatchLocked(key, model.TriggerRelease)
		if err != nil {
			return
		}
		results = []dispatch.Result{press, release}
	})
	if qerr != nil {
		return nil, qerr
	}
	return results, err
}

// applyEffects runs deferred handler effects in request order.
func (d *Device) applyEffects(key uint8, button *profile.Button, effects []action.Effect) {
	for _, effect := range effects {
		switch effect.Kind {
		case action.EffectRender:
			button.Touch()
			d.renderKey(key)
		case action.EffectNavigateEnter:
			node, err := d.tree.Node(effect.Target)
			if err != nil {
				d.logger.Warn("effect targets missing node", "node", uint32(effect.Target))
				continue
			}
			d.stack = append(d.stack, effect.Target)
			d.emitNavigated(node)
			d.renderScreen()
		case action.EffectNavigateBack:
			if err := d.backLocked(); err != nil {
				d.logger.Debug("back effect at root ignored")
			}
		}
	}
}

// --- Brightness ---

// SetBrightness stores the brightness (0-100) and forwards it to the
// transport when the hardware supports it.
func (d *Device) SetBrightness(percent uint8) error {
	var err error
	qerr := d.do(func() {
		if percent > 100 {
			percent = 100
		}
		d.brightness = percent
		d.dirty = true
		if setter, ok := d.transport.(BrightnessSetter); ok {
			err = setter.SetBrightness(percent)
		}
	})
	if qerr != nil {
		return qerr
	}
	return err
}

// --- Snapshots ---

// Snapshot is a deep-copied read of device state for broadcast and
// persistence; producing it holds the command queue only for the copy.
type Snapshot struct {
	ID         string
	Descriptor model.Descriptor
	Document   *profile.Document
	Stack      []StackEntry
	Brightness uint8
	Dirty      bool
}

// StackEntry names one level of the active stack.
type StackEntry struct {
	Node model.NodeID `json:"node"`
	Name string       `json:"name"`
}

// Snapshot captures the device's current state.
func (d *Device) Snapshot() (Snapshot, error) {
	var snap Snapshot
	qerr := d.do(func() {
		snap = Snapshot{
			ID:         d.id,
			Descriptor: d.desc,
			Document:   d.tree.Document(d.brightness),
			Brightness: d.brightness,
			Dirty:      d.dirty,
		}
		for _, id := range d.stack {
			entry := StackEntry{Node: id}
			if node, err := d.tree.Node(id); err == nil {
				entry.Name = node.Name
			}
			snap.Stack = append(snap.Stack, entry)
		}
	})
	if qerr != nil {
		return Snapshot{}, qerr
	}
	return snap, nil
}

// ActiveStack returns a copy of the active stack handles.
func (d *Device) ActiveStack() ([]model.NodeID, error) {
	var stack []model.NodeID
	qerr := d.do(func() {
		stack = append([]model.NodeID(nil), d.stack...)
	})
	if qerr != nil {
		return nil, qerr
	}
	return stack, nil
}

// AddNode creates a new empty profile node, for building folder targets.
func (d *Device) AddNode(name string) (model.NodeID, error) {
	var id model.NodeID
	qerr := d.do(func() {
		id = d.tree.AddNode(name)
		d.dirty = true
	})
	if qerr != nil {
		return model.NoNode, qerr
	}
	return id, nil
}

// ClearDirty marks the profile as persisted.
func (d *Device) ClearDirty() {
	_ = d.do(func() { d.dirty = false })
}

// Dirty reports whether the profile has unsaved changes.
func (d *Device) Dirty() bool {
	dirty := false
	_ = d.do(func() { dirty = d.dirty })
	return dirty
}

// --- internals (queue goroutine only) ---

func (d *Device) currentNodeID() model.NodeID {
	return d.stack[len(d.stack)-1]
}

func (d *Device) currentNode() *profile.Node {
	node, err := d.tree.Node(d.currentNodeID())
	if err != nil {
		// The stack invariant guarantees the top resolves; a broken
		// invariant is a bug worth crashing on in development, but in
		// production fall back to the root.
		d.logger.Error("active stack top does not resolve", "node", uint32(d.currentNodeID()))
		d.stack = d.stack[:1]
		return d.tree.Root()
	}
	return node
}

func (d *Device) currentButton(key uint8) (*profile.Button, error) {
	if !d.desc.ValidKey(key) {
		return nil, fmt.Errorf("%w: key %d outside %dx%d grid", ErrUnknownButton, key, d.desc.Rows, d.desc.Columns)
	}
	button := d.currentNode().Button(key)
	if button == nil {
		return nil, fmt.Errorf("%w: key %d is empty", ErrUnknownButton, key)
	}
	return button, nil
}

func (d *Device) imageSize() image.Point {
	return image.Point{X: d.desc.ImageWidth, Y: d.desc.ImageHeight}
}

// renderKey submits a render job for one button when it is on screen.
func (d *Device) renderKey(key uint8) {
	button := d.currentNode().Button(key)
	if button == nil {
		return
	}
	d.renders(render.Job{
		DeviceID: d.id,
		Key:      key,
		Size:     d.imageSize(),
		Revision: button.Revision(),
		Bindings: button.AllBindings(),
	})
}

// renderScreen submits render jobs for every populated button of the
// current screen.
func (d *Device) renderScreen() {
	node := d.currentNode()
	for key := uint8(0); key < d.desc.KeyCount(); key++ {
		if node.Button(key) != nil {
			d.renderKey(key)
		}
	}
}

func (d *Device) emitNavigated(node *profile.Node) {
	d.events(model.Event{
		Type:       model.EventProfileNavigated,
		DeviceID:   d.id,
		StackDepth: len(d.stack),
		Node:       node.Name,
	})
}

func (d *Device) emitButtonUpdated(key uint8) {
	k := key
	d.events(model.Event{
		Type:     model.EventButtonUpdated,
		DeviceID: d.id,
		Key:      &k,
	})
}
