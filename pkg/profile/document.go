package profile

import (
	"sort"
	"time"

	"github.com/panelkit/paneld/pkg/action"
	"github.com/panelkit/paneld/pkg/model"
)

// SchemaVersion is the current profile document format version.
// Documents carrying a higher version fail closed at load time.
const SchemaVersion = 1

// Document is the persisted form of a device's profile tree. It is a
// plain value built from a tree snapshot, so serialization never holds a
// device's command queue.
type Document struct {
	Version    int       `json:"version"`
	SavedAt    time.Time `json:"savedAt"`
	Brightness uint8     `json:"brightness"`
	NextNode   uint32    `json:"nextNode"`
	Nodes      []NodeDoc `json:"nodes"`
}

// NodeDoc is one profile node in the persisted document.
type NodeDoc struct {
	ID      uint32      `json:"id"`
	Name    string      `json:"name"`
	Buttons []ButtonDoc `json:"buttons,omitempty"`
}

// ButtonDoc is one button slot in the persisted document.
type ButtonDoc struct {
	Key      uint8        `json:"key"`
	Bindings []BindingDoc `json:"bindings,omitempty"`
}

// BindingDoc is one action binding in the persisted document.
type BindingDoc struct {
	ID      string         `json:"id"`
	Trigger model.Trigger  `json:"trigger"`
	Kind    string         `json:"kind"`
	Params  map[string]any `json:"params,omitempty"`
}

// Document captures the tree into a persistable snapshot.
func (t *Tree) Document(brightness uint8) *Document {
	doc := &Document{
		Version:    SchemaVersion,
		SavedAt:    time.Now().UTC(),
		Brightness: brightness,
		NextNode:   uint32(t.nextID),
	}
	for _, node := range t.nodes {
		nodeDoc := NodeDoc{ID: uint32(node.ID), Name: node.Name}
		for key, button := range node.Buttons {
			if button.Empty() {
				continue
			}
			buttonDoc := ButtonDoc{Key: key}
			for _, binding := range button.AllBindings() {
				buttonDoc.Bindings = append(buttonDoc.Bindings, BindingDoc{
					ID:      binding.ID,
					Trigger: binding.Trigger,
					Kind:    binding.Kind,
					Params:  binding.Params,
				})
			}
			nodeDoc.Buttons = append(nodeDoc.Buttons, buttonDoc)
		}
		sort.Slice(nodeDoc.Buttons, func(i, j int) bool {
			return nodeDoc.Buttons[i].Key < nodeDoc.Buttons[j].Key
		})
		doc.Nodes = append(doc.Nodes, nodeDoc)
	}
	sort.Slice(doc.Nodes, func(i, j int) bool {
		return doc.Nodes[i].ID < doc.Nodes[j].ID
	})
	return doc
}

// TreeFromDocument rebuilds a tree from a persisted document. Bindings
// come back without live instances; the device materializes them against
// the action registry on attach.
func TreeFromDocument(doc *Document) *Tree {
	t := &Tree{
		nodes:  make(map[model.NodeID]*Node),
		nextID: model.NodeID(doc.NextNode),
	}
	for _, nodeDoc := range doc.Nodes {
		node := &Node{
			ID:      model.NodeID(nodeDoc.ID),
			Name:    nodeDoc.Name,
			Buttons: make(map[uint8]*Button),
		}
		for _, buttonDoc := range nodeDoc.Buttons {
			button := NewButton()
			for _, bindingDoc := range buttonDoc.Bindings {
				button.Append(&Binding{
					ID:      bindingDoc.ID,
					Trigger: bindingDoc.Trigger,
					Kind:    bindingDoc.Kind,
					Params:  action.Params(bindingDoc.Params),
				})
			}
			node.Buttons[buttonDoc.Key] = button
		}
		t.nodes[node.ID] = node
	}
	// Repair trees that lost their root or a sane next handle.
	if _, ok := t.nodes[model.RootNode]; !ok {
		t.nodes[model.RootNode] = &Node{
			ID:      model.RootNode,
			Name:    "root",
			Buttons: make(map[uint8]*Button),
		}
	}
	for id := range t.nodes {
		if id >= t.nextID {
			t.nextID = id + 1
		}
	}
	if t.nextID <= model.RootNode {
		t.nextID = model.RootNode + 1
	}
	return t
}
