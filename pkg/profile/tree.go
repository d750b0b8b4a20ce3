package profile

import (
	"errors"
	"fmt"
	"sort"

	"github.com/panelkit/paneld/pkg/action"
	"github.com/panelkit/paneld/pkg/model"
)

// Tree errors.
var (
	// ErrNodeNotFound indicates a handle does not resolve in this tree.
	ErrNodeNotFound = errors.New("profile node not found")

	// ErrRootNode indicates an operation that is invalid on the root.
	ErrRootNode = errors.New("operation not allowed on root node")
)

// Binding is one bound action occurrence on a button.
type Binding struct {
	// ID is the unique instance id assigned when the binding was created.
	ID string

	// Trigger is the event kind the binding reacts to.
	Trigger model.Trigger

	// Kind is the registered action kind name.
	Kind string

	// Params are the construction parameters, kept for persistence and
	// render-cache hashing.
	Params action.Params

	// Instance is the live action instance. It is nil when the kind was
	// not registered at load time; such bindings are skipped by render
	// and dispatch but survive in the persisted document.
	Instance action.Instance
}

// Button is one grid cell: per-trigger ordered binding lists plus a
// revision counter feeding the render cache key. The revision bumps on
// every binding mutation and on every render-effect request, so cached
// images stay valid exactly until something visible changes.
type Button struct {
	bindings map[model.Trigger][]*Binding
	revision uint64
}

// NewButton creates an empty button.
func NewButton() *Button {
	return &Button{bindings: make(map[model.Trigger][]*Binding)}
}

// Revision returns the button's current revision counter.
func (b *Button) Revision() uint64 { return b.revision }

// Touch bumps the revision, invalidating any cached render.
func (b *Button) Touch() { b.revision++ }

// Bindings returns the ordered binding list for a trigger. The returned
// slice is a copy; the bindings themselves are shared.
func (b *Button) Bindings(trigger model.Trigger) []*Binding {
	src := b.bindings[trigger]
	if len(src) == 0 {
		return nil
	}
	out := make([]*Binding, len(src))
	copy(out, src)
	return out
}

// AllBindings returns every binding in trigger order then binding order.
func (b *Button) AllBindings() []*Binding {
	var out []*Binding
	for _, trigger := range model.Triggers {
		out = append(out, b.bindings[trigger]...)
	}
	return out
}

// Append adds a binding at the end of its trigger's list.
func (b *Button) Append(binding *Binding) {
	b.bindings[binding.Trigger] = append(b.bindings[binding.Trigger], binding)
	b.Touch()
}

// Remove deletes the binding with the given instance id.
// Returns the removed binding, or nil if no binding has that id.
func (b *Button) Remove(instanceID string) *Binding {
	for trigger, list := range b.bindings {
		for i, binding := range list {
			if binding.ID == instanceID {
				b.bindings[trigger] = append(list[:i:i], list[i+1:]...)
				b.Touch()
				return binding
			}
		}
	}
	return nil
}

// Replace swaps the button's entire binding set atomically.
func (b *Button) Replace(bindings []*Binding) {
	b.bindings = make(map[model.Trigger][]*Binding)
	for _, binding := range bindings {
		b.bindings[binding.Trigger] = append(b.bindings[binding.Trigger], binding)
	}
	b.Touch()
}

// Empty reports whether the button has no bindings.
func (b *Button) Empty() bool {
	for _, list := range b.bindings {
		if len(list) > 0 {
			return false
		}
	}
	return true
}

// Top returns the first binding of the press trigger, the binding that
// defines the button's primary capability (folder detection uses it).
func (b *Button) Top() *Binding {
	if list := b.bindings[model.TriggerPress]; len(list) > 0 {
		return list[0]
	}
	return nil
}

// Node is a named collection of buttons, one level of the profile tree.
type Node struct {
	ID      model.NodeID
	Name    string
	Buttons map[uint8]*Button
}

// Button returns the button at key, or nil if the slot is empty.
func (n *Node) Button(key uint8) *Button {
	return n.Buttons[key]
}

// EnsureButton returns the button at key, creating an empty one if needed.
func (n *Node) EnsureButton(key uint8) *Button {
	if b, ok := n.Buttons[key]; ok {
		return b
	}
	b := NewButton()
	n.Buttons[key] = b
	return b
}

// Tree is the handle-addressed arena of profile nodes for one device.
type Tree struct {
	nodes  map[model.NodeID]*Node
	nextID model.NodeID
}

// NewTree creates a tree containing a single empty root node.
func NewTree() *Tree {
	t := &Tree{
		nodes:  make(map[model.NodeID]*Node),
		nextID: model.RootNode,
	}
	t.addNode("root")
	return t
}

func (t *Tree) addNode(name string) *Node {
	node := &Node{
		ID:      t.nextID,
		Name:    name,
		Buttons: make(map[uint8]*Button),
	}
	t.nodes[node.ID] = node
	t.nextID++
	return node
}

// AddNode creates a new empty node and returns its handle.
func (t *Tree) AddNode(name string) model.NodeID {
	return t.addNode(name).ID
}

// RemoveNode deletes a non-root node from the arena.
func (t *Tree) RemoveNode(id model.NodeID) error {
	if id == model.RootNode {
		return ErrRootNode
	}
	if _, ok := t.nodes[id]; !ok {
		return fmt.Errorf("%w: %d", ErrNodeNotFound, id)
	}
	delete(t.nodes, id)
	return nil
}

// Node resolves a handle.
func (t *Tree) Node(id model.NodeID) (*Node, error) {
	node, ok := t.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNodeNotFound, id)
	}
	return node, nil
}

// Root returns the root node.
func (t *Tree) Root() *Node {
	return t.nodes[model.RootNode]
}

// Len returns the number of nodes in the arena.
func (t *Tree) Len() int { return len(t.nodes) }

// Nodes returns every node in the arena sorted by handle.
func (t *Tree) Nodes() []*Node {
	out := make([]*Node, 0, len(t.nodes))
	for _, node := range t.nodes {
		out = append(out, node)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FindBinding locates a binding by instance id anywhere in the tree.
// Returns the node, key, and button holding it; the boolean reports
// whether the binding exists.
func (t *Tree) FindBinding(instanceID string) (*Node, uint8, *Button, bool) {
	for _, node := range t.nodes {
		for key, button := range node.Buttons {
			for _, binding := range button.AllBindings() {
				if binding.ID == instanceID {
					return node, key, button, true
				}
			}
		}
	}
	return nil, 0, nil, false
}
