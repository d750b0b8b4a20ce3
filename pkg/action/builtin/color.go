package builtin

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

// parseColor parses a "#rrggbb" hex string. Returns the fallback when the
// parameter is absent or not a string; malformed hex is an error.
func parseColor(params map[string]any, key string, fallback color.RGBA) (color.RGBA, error) {
	raw, ok := params[key]
	if !ok {
		return fallback, nil
	}
	s, ok := raw.(string)
	if !ok {
		return fallback, fmt.Errorf("parameter %q: expected string, got %T", key, raw)
	}
	var c color.RGBA
	if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
		return fallback, fmt.Errorf("parameter %q: bad color %q", key, s)
	}
	c.A = 0xff
	return c, nil
}

// solid returns an image of the given size filled with one color.
func solid(size image.Point, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}
