package render

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panelkit/paneld/pkg/action"
	"github.com/panelkit/paneld/pkg/model"
	"github.com/panelkit/paneld/pkg/profile"
)

// paintInstance fills the whole button with one color, or fails.
type paintInstance struct {
	color color.RGBA
	err   error
	skip  bool
}

func (p *paintInstance) Kind() string          { return "paint" }
func (p *paintInstance) Params() action.Params { return nil }
func (p *paintInstance) Render(size image.Point) (image.Image, error) {
	if p.err != nil {
		return nil, p.err
	}
	if p.skip {
		return nil, nil
	}
	img := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	draw.Draw(img, img.Bounds(), image.NewUniform(p.color), image.Point{}, draw.Src)
	return img, nil
}
func (p *paintInstance) HandleEvent(model.Trigger) ([]action.Effect, error) { return nil, nil }
func (p *paintInstance) OnBind() error                                      { return nil }
func (p *paintInstance) OnUnbind()                                          {}

func paintBinding(id string, c color.RGBA) *profile.Binding {
	return &profile.Binding{
		ID:       id,
		Trigger:  model.TriggerPress,
		Kind:     "paint",
		Instance: &paintInstance{color: c},
	}
}

func TestCompositeLayerOrder(t *testing.T) {
	red := color.RGBA{R: 0xff, A: 0xff}
	blue := color.RGBA{B: 0xff, A: 0xff}

	img, err := Composite([]*profile.Binding{
		paintBinding("under", red),
		paintBinding("over", blue),
	}, image.Pt(4, 4))
	require.NoError(t, err)

	assert.Equal(t, 4, img.Width)
	assert.Equal(t, model.FormatRGBA, img.Format)
	// Later bindings draw over earlier ones.
	assert.Equal(t, byte(0x00), img.Pixels[0])
	assert.Equal(t, byte(0xff), img.Pixels[2])
}

func TestCompositeSkipsInertBindings(t *testing.T) {
	img, err := Composite([]*profile.Binding{
		{ID: "unresolved", Trigger: model.TriggerPress, Kind: "missing"},
		{ID: "empty", Trigger: model.TriggerPress, Kind: "paint", Instance: &paintInstance{skip: true}},
	}, image.Pt(2, 2))
	require.NoError(t, err)

	// Nothing contributed; the opaque background remains.
	for i := 0; i < len(img.Pixels); i += 4 {
		assert.Equal(t, byte(0x00), img.Pixels[i])
		assert.Equal(t, byte(0xff), img.Pixels[i+3])
	}
}

func TestCompositeAbortsOnRenderError(t *testing.T) {
	boom := errors.New("paint failed")
	_, err := Composite([]*profile.Binding{
		paintBinding("ok", color.RGBA{A: 0xff}),
		{ID: "bad", Trigger: model.TriggerPress, Kind: "paint", Instance: &paintInstance{err: boom}},
	}, image.Pt(2, 2))
	assert.ErrorIs(t, err, boom)
}

func TestButtonHashSensitivity(t *testing.T) {
	bindings := []*profile.Binding{
		{ID: "b1", Trigger: model.TriggerPress, Kind: "toggle", Params: action.Params{"a": 1.0, "b": "x"}},
	}
	size := image.Pt(72, 72)

	base := ButtonHash("panel-0", 3, size, 7, bindings)
	assert.Equal(t, base, ButtonHash("panel-0", 3, size, 7, bindings))

	assert.NotEqual(t, base, ButtonHash("panel-1", 3, size, 7, bindings))
	assert.NotEqual(t, base, ButtonHash("panel-0", 4, size, 7, bindings))
	assert.NotEqual(t, base, ButtonHash("panel-0", 3, image.Pt(96, 96), 7, bindings))
	assert.NotEqual(t, base, ButtonHash("panel-0", 3, size, 8, bindings))

	changed := []*profile.Binding{
		{ID: "b1", Trigger: model.TriggerPress, Kind: "toggle", Params: action.Params{"a": 2.0, "b": "x"}},
	}
	assert.NotEqual(t, base, ButtonHash("panel-0", 3, size, 7, changed))
}

func TestEncodeWireRoundTrip(t *testing.T) {
	src := &Image{
		Width:  3,
		Height: 2,
		Format: model.FormatRGB,
		Pixels: []byte{
			1, 2, 3, 4, 5, 6, 7, 8, 9,
			10, 11, 12, 13, 14, 15, 16, 17, 18,
		},
	}

	encoded, err := EncodeWire(src)
	require.NoError(t, err)

	decoded, err := DecodeWire(encoded)
	require.NoError(t, err)
	assert.True(t, src.Equal(decoded))
}

func TestEncodeWireRejectsMismatchedBuffer(t *testing.T) {
	_, err := EncodeWire(&Image{Width: 2, Height: 2, Format: model.FormatRGBA, Pixels: []byte{1}})
	assert.ErrorIs(t, err, ErrBadImage)
}

func TestDecodeWireRejectsGarbage(t *testing.T) {
	_, err := DecodeWire("not base64 at all!!!")
	assert.Error(t, err)
}

func TestEncodeNativeRGB(t *testing.T) {
	img := &Image{
		Width:  2,
		Height: 1,
		Format: model.FormatRGBA,
		Pixels: []byte{1, 2, 3, 255, 4, 5, 6, 255},
	}
	desc := model.Descriptor{ImageWidth: 2, ImageHeight: 1, Format: model.FormatRGB}

	out, err := EncodeNative(img, desc)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, out)
}

func TestEncodeNativeBGRSwapsChannels(t *testing.T) {
	img := &Image{
		Width:  1,
		Height: 1,
		Format: model.FormatRGBA,
		Pixels: []byte{1, 2, 3, 255},
	}
	desc := model.Descriptor{ImageWidth: 1, ImageHeight: 1, Format: model.FormatBGR}

	out, err := EncodeNative(img, desc)
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 2, 1}, out)
}

func TestEncodeNativeResizes(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 8, 8))
	draw.Draw(src, src.Bounds(), image.NewUniform(color.RGBA{R: 0x80, A: 0xff}), image.Point{}, draw.Src)

	desc := model.Descriptor{ImageWidth: 4, ImageHeight: 4, Format: model.FormatRGBA}
	out, err := EncodeNative(FromRGBA(src), desc)
	require.NoError(t, err)
	require.Len(t, out, 4*4*4)
	assert.Equal(t, byte(0x80), out[0])
	assert.Equal(t, byte(0xff), out[3])
}

func TestPipelineCachesByButtonState(t *testing.T) {
	p := NewPipeline(1, nil)
	job := Job{
		DeviceID: "panel-0",
		Key:      0,
		Size:     image.Pt(8, 8),
		Revision: 1,
		Bindings: []*profile.Binding{paintBinding("b", color.RGBA{G: 0xff, A: 0xff})},
	}

	img1, hit, err := p.RenderButton(job)
	require.NoError(t, err)
	assert.False(t, hit)

	img2, hit, err := p.RenderButton(job)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Same(t, img1, img2)
	assert.Equal(t, 1, p.CacheSize())

	job.Revision = 2
	_, hit, err = p.RenderButton(job)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, p.CacheSize())
}

func TestSubmitAfterCloseIsDropped(t *testing.T) {
	p := NewPipeline(1, nil)
	p.Start()
	p.Close()

	// Late work is abandoned, not crashed on.
	p.Submit(Job{DeviceID: "panel-0", Key: 0, Size: image.Pt(2, 2), Revision: 1})

	_, ok := <-p.Results()
	assert.False(t, ok)
}

func TestCloseRacesSubmitters(t *testing.T) {
	p := NewPipeline(2, nil)
	p.Start()

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for range p.Results() {
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				p.Submit(Job{
					DeviceID: "panel-0",
					Key:      uint8(j % 6),
					Size:     image.Pt(2, 2),
					Revision: uint64(j),
				})
			}
		}()
	}
	p.Close()
	wg.Wait()
	<-drained
}

func TestPipelineSubmitAndDrain(t *testing.T) {
	p := NewPipeline(2, nil)
	p.Start()

	for i := 0; i < 8; i++ {
		p.Submit(Job{
			DeviceID: "panel-0",
			Key:      uint8(i),
			Size:     image.Pt(4, 4),
			Revision: 1,
			Bindings: []*profile.Binding{paintBinding("b", color.RGBA{B: 0xff, A: 0xff})},
		})
	}
	p.Close()

	var results []Result
	for res := range p.Results() {
		require.NoError(t, res.Err)
		results = append(results, res)
	}
	assert.Len(t, results, 8)
}
