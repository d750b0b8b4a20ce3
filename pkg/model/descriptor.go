package model

import "fmt"

// PixelFormat identifies the byte layout of a raw image frame.
type PixelFormat uint8

const (
	// FormatRGBA is 4 bytes per pixel, straight alpha. The renderer's
	// working format.
	FormatRGBA PixelFormat = iota

	// FormatRGB is 3 bytes per pixel, no alpha.
	FormatRGB

	// FormatBGR is 3 bytes per pixel with blue first. Common native
	// format for panel hardware.
	FormatBGR
)

// BytesPerPixel returns the per-pixel byte width of the format.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case FormatRGBA:
		return 4
	case FormatRGB, FormatBGR:
		return 3
	default:
		return 0
	}
}

// String returns the format name.
func (f PixelFormat) String() string {
	switch f {
	case FormatRGBA:
		return "rgba"
	case FormatRGB:
		return "rgb"
	case FormatBGR:
		return "bgr"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(f))
	}
}

// Descriptor describes the capabilities of a connected panel device:
// its button grid and the native image format its transport accepts.
type Descriptor struct {
	// Rows is the number of button rows on the grid.
	Rows uint8 `json:"rows"`

	// Columns is the number of button columns on the grid.
	Columns uint8 `json:"columns"`

	// ImageWidth is the native button image width in pixels.
	ImageWidth int `json:"imageWidth"`

	// ImageHeight is the native button image height in pixels.
	ImageHeight int `json:"imageHeight"`

	// Format is the pixel format the device transport accepts.
	Format PixelFormat `json:"format"`
}

// KeyCount returns the total number of buttons on the grid.
func (d Descriptor) KeyCount() uint8 {
	return d.Rows * d.Columns
}

// ValidKey reports whether key addresses a button on this grid.
func (d Descriptor) ValidKey(key uint8) bool {
	return key < d.KeyCount()
}

// KeyAt returns the key index for a (row, column) position.
// Keys are numbered row-major from the top-left corner.
func (d Descriptor) KeyAt(row, col uint8) uint8 {
	return row*d.Columns + col
}

// Position returns the (row, column) position of a key index.
func (d Descriptor) Position(key uint8) (row, col uint8) {
	return key / d.Columns, key % d.Columns
}
