package render

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/klauspost/compress/flate"
	xdraw "golang.org/x/image/draw"

	"github.com/panelkit/paneld/pkg/model"
)

// Image is a rendered pixel buffer with its format tag.
type Image struct {
	Width  int
	Height int
	Format model.PixelFormat
	Pixels []byte
}

// FromRGBA wraps an *image.RGBA as an Image without copying when the
// buffer is tightly packed.
func FromRGBA(img *image.RGBA) *Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	pixels := img.Pix
	if img.Stride != w*4 {
		pixels = make([]byte, 0, w*h*4)
		for y := 0; y < h; y++ {
			row := img.Pix[y*img.Stride : y*img.Stride+w*4]
			pixels = append(pixels, row...)
		}
	}
	return &Image{Width: w, Height: h, Format: model.FormatRGBA, Pixels: pixels}
}

// Equal reports whether two images are byte-identical.
func (i *Image) Equal(other *Image) bool {
	return i.Width == other.Width &&
		i.Height == other.Height &&
		i.Format == other.Format &&
		bytes.Equal(i.Pixels, other.Pixels)
}

// wireHeaderSize is width (2) + height (2) + format (1).
const wireHeaderSize = 5

// Encode errors.
var (
	// ErrBadImage indicates a pixel buffer inconsistent with its header.
	ErrBadImage = errors.New("image buffer does not match dimensions")
)

// EncodeNative resizes and repacks an RGBA image into the device's native
// frame format for direct transport push.
func EncodeNative(img *Image, desc model.Descriptor) ([]byte, error) {
	if img.Format != model.FormatRGBA {
		return nil, fmt.Errorf("native encode needs rgba input, got %s", img.Format)
	}
	if len(img.Pixels) != img.Width*img.Height*4 {
		return nil, ErrBadImage
	}

	src := &image.RGBA{
		Pix:    img.Pixels,
		Stride: img.Width * 4,
		Rect:   image.Rect(0, 0, img.Width, img.Height),
	}
	dst := src
	if img.Width != desc.ImageWidth || img.Height != desc.ImageHeight {
		dst = image.NewRGBA(image.Rect(0, 0, desc.ImageWidth, desc.ImageHeight))
		xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	}

	n := desc.ImageWidth * desc.ImageHeight
	switch desc.Format {
	case model.FormatRGBA:
		out := make([]byte, n*4)
		copy(out, dst.Pix)
		return out, nil
	case model.FormatRGB:
		out := make([]byte, 0, n*3)
		for i := 0; i < n*4; i += 4 {
			out = append(out, dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2])
		}
		return out, nil
	case model.FormatBGR:
		out := make([]byte, 0, n*3)
		for i := 0; i < n*4; i += 4 {
			out = append(out, dst.Pix[i+2], dst.Pix[i+1], dst.Pix[i])
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported native format %s", desc.Format)
	}
}

// EncodeWire produces the text-safe encoding of an image for JSON protocol
// payloads: a small header plus the pixel buffer, deflate-compressed, then
// base64-encoded.
func EncodeWire(img *Image) (string, error) {
	if len(img.Pixels) != img.Width*img.Height*img.Format.BytesPerPixel() {
		return "", ErrBadImage
	}

	var buf bytes.Buffer
	var header [wireHeaderSize]byte
	binary.BigEndian.PutUint16(header[0:2], uint16(img.Width))
	binary.BigEndian.PutUint16(header[2:4], uint16(img.Height))
	header[4] = byte(img.Format)

	fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return "", fmt.Errorf("creating compressor: %w", err)
	}
	if _, err := fw.Write(header[:]); err != nil {
		return "", fmt.Errorf("compressing image header: %w", err)
	}
	if _, err := fw.Write(img.Pixels); err != nil {
		return "", fmt.Errorf("compressing image pixels: %w", err)
	}
	if err := fw.Close(); err != nil {
		return "", fmt.Errorf("finishing compression: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeWire reverses EncodeWire. Used by clients and tests.
func DecodeWire(encoded string) (*Image, error) {
	compressed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding base64: %w", err)
	}
	fr := flate.NewReader(bytes.NewReader(compressed))
	defer fr.Close()

	raw, err := io.ReadAll(fr)
	if err != nil {
		return nil, fmt.Errorf("decompressing image: %w", err)
	}
	if len(raw) < wireHeaderSize {
		return nil, ErrBadImage
	}

	img := &Image{
		Width:  int(binary.BigEndian.Uint16(raw[0:2])),
		Height: int(binary.BigEndian.Uint16(raw[2:4])),
		Format: model.PixelFormat(raw[4]),
		Pixels: raw[wireHeaderSize:],
	}
	if len(img.Pixels) != img.Width*img.Height*img.Format.BytesPerPixel() {
		return nil, ErrBadImage
	}
	return img, nil
}
