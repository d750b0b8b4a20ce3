package builtin

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/panelkit/paneld/pkg/action"
	"github.com/panelkit/paneld/pkg/model"
)

// FolderKind is the registered kind name of the folder action.
const FolderKind = "folder"

var (
	folderBody = color.RGBA{R: 0x2b, G: 0x50, B: 0x82, A: 0xff}
	folderTab  = color.RGBA{R: 0x4a, G: 0x78, B: 0xb8, A: 0xff}
)

// FolderAction opens a child profile node when pressed. It exposes the
// action.Folder capability; Enter navigation resolves its target through
// that interface.
type FolderAction struct {
	params action.Params
	target model.NodeID
}

// FolderFactory returns the factory for the folder kind.
//
// Parameters: "target", the numeric handle of the child node to open.
// The handle is assigned when the folder's node is created in the tree.
func FolderFactory() action.Factory {
	return action.FactoryFunc{
		Name: FolderKind,
		Fn: func(params action.Params) (action.Instance, error) {
			target, err := targetParam(params)
			if err != nil {
				return nil, err
			}
			return &FolderAction{params: params.Clone(), target: target}, nil
		},
	}
}

func targetParam(params action.Params) (model.NodeID, error) {
	raw, ok := params["target"]
	if !ok {
		return model.NoNode, fmt.Errorf("missing parameter %q", "target")
	}
	// JSON numbers decode as float64; profile documents store the handle
	// as a plain number.
	switch v := raw.(type) {
	case float64:
		if v < 1 {
			return model.NoNode, fmt.Errorf("parameter %q: invalid node handle %v", "target", v)
		}
		return model.NodeID(v), nil
	case int:
		if v < 1 {
			return model.NoNode, fmt.Errorf("parameter %q: invalid node handle %v", "target", v)
		}
		return model.NodeID(v), nil
	default:
		return model.NoNode, fmt.Errorf("parameter %q: expected number, got %T", "target", raw)
	}
}

// Kind returns the action kind name.
func (f *FolderAction) Kind() string { return FolderKind }

// Params returns the construction parameters.
func (f *FolderAction) Params() action.Params { return f.params }

// FolderTarget returns the node this folder opens.
func (f *FolderAction) FolderTarget() model.NodeID { return f.target }

// Render draws a folder glyph: a body fill with a tab strip along the top.
func (f *FolderAction) Render(size image.Point) (image.Image, error) {
	img := solid(size, folderBody)
	tab := image.Rect(0, 0, size.X/2, size.Y/6)
	draw.Draw(img, tab, image.NewUniform(folderTab), image.Point{}, draw.Src)
	return img, nil
}

// HandleEvent requests Enter navigation on press.
func (f *FolderAction) HandleEvent(trigger model.Trigger) ([]action.Effect, error) {
	if trigger != model.TriggerPress {
		return nil, nil
	}
	return []action.Effect{action.EnterEffect(f.target)}, nil
}

// OnBind is a no-op for folders.
func (f *FolderAction) OnBind() error { return nil }

// OnUnbind is a no-op for folders.
func (f *FolderAction) OnUnbind() {}

// Compile-time capability check.
var _ action.Folder = (*FolderAction)(nil)
