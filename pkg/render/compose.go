package render

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sort"

	"github.com/zeebo/blake3"

	"github.com/panelkit/paneld/pkg/profile"
)

// background is the base every button composite starts from.
var background = color.RGBA{A: 0xff}

// Composite renders a button's bindings in order onto an opaque base.
// A binding with a nil instance (unresolvable kind at load time) or a nil
// render contributes nothing. An instance render error aborts the
// composite: the caller renders nothing rather than a half-drawn button.
func Composite(bindings []*profile.Binding, size image.Point) (*Image, error) {
	base := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	draw.Draw(base, base.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	for _, binding := range bindings {
		if binding.Instance == nil {
			continue
		}
		layer, err := binding.Instance.Render(size)
		if err != nil {
			return nil, fmt.Errorf("rendering %s instance %s: %w", binding.Kind, binding.ID, err)
		}
		if layer == nil {
			continue
		}
		draw.Draw(base, base.Bounds(), layer, layer.Bounds().Min, draw.Over)
	}
	return FromRGBA(base), nil
}

// CacheKey is the content hash identifying one rendered button state.
type CacheKey [32]byte

// ButtonHash computes the cache key for a button's current state: device,
// key, render size, revision counter, and every binding's trigger, kind,
// and canonical parameter encoding. The revision covers instance-internal
// state changes, which the parameters alone cannot see.
func ButtonHash(deviceID string, key uint8, size image.Point, revision uint64, bindings []*profile.Binding) CacheKey {
	h := blake3.New()

	var scratch [8]byte
	writeStr := func(s string) {
		binary.BigEndian.PutUint64(scratch[:], uint64(len(s)))
		h.Write(scratch[:])
		h.Write([]byte(s))
	}

	writeStr(deviceID)
	h.Write([]byte{key})
	binary.BigEndian.PutUint64(scratch[:], uint64(size.X))
	h.Write(scratch[:])
	binary.BigEndian.PutUint64(scratch[:], uint64(size.Y))
	h.Write(scratch[:])
	binary.BigEndian.PutUint64(scratch[:], revision)
	h.Write(scratch[:])

	for _, binding := range bindings {
		h.Write([]byte{byte(binding.Trigger)})
		writeStr(binding.Kind)
		writeStr(binding.ID)
		writeStr(canonicalParams(binding.Params))
	}

	var key32 CacheKey
	h.Sum(key32[:0])
	return key32
}

// canonicalParams serializes parameters with sorted keys so equal maps
// always hash equal.
func canonicalParams(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]byte, 0, 64)
	for _, k := range keys {
		v, err := json.Marshal(params[k])
		if err != nil {
			// Unencodable values still need a stable representation.
			v = []byte(fmt.Sprintf("%v", params[k]))
		}
		out = append(out, k...)
		out = append(out, '=')
		out = append(out, v...)
		out = append(out, ';')
	}
	return string(out)
}
