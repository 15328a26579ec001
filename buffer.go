package squeeze

import (
	"fmt"
	"image"
	"image/color"
)

// Channels is the number of interleaved 8-bit samples per pixel.
type Channels int

const (
	RGB  Channels = 3
	RGBA Channels = 4
)

func (c Channels) String() string {
	switch c {
	case RGB:
		return "RGB8"
	case RGBA:
		return "RGBA8"
	default:
		return fmt.Sprintf("Channels(%d)", int(c))
	}
}

// ImageBuffer is a tightly packed, non-premultiplied pixel array. Rows have no
// padding: the stride is Width*Channels.
//
// Encoders only read from an ImageBuffer; transforms return new buffers.
type ImageBuffer struct {
	Pix      []byte
	Width    int
	Height   int
	Channels Channels
}

// NewImageBuffer allocates a zeroed buffer.
func NewImageBuffer(w, h int, ch Channels) *ImageBuffer {
	return &ImageBuffer{
		Pix:      make([]byte, w*h*int(ch)),
		Width:    w,
		Height:   h,
		Channels: ch,
	}
}

// Validate checks len(Pix) == Width*Height*Channels.
func (b *ImageBuffer) Validate() error {
	if b == nil {
		return fmt.Errorf("nil image buffer")
	}
	if b.Channels != RGB && b.Channels != RGBA {
		return fmt.Errorf("unsupported channel count %d", int(b.Channels))
	}
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("invalid dimensions %dx%d", b.Width, b.Height)
	}
	if want := b.Width * b.Height * int(b.Channels); len(b.Pix) != want {
		return fmt.Errorf("pixel buffer is %d bytes, want %d for %dx%d %s",
			len(b.Pix), want, b.Width, b.Height, b.Channels)
	}
	return nil
}

// Stride returns the row length in bytes.
func (b *ImageBuffer) Stride() int {
	return b.Width * int(b.Channels)
}

// ColorModel implements image.Image.
func (b *ImageBuffer) ColorModel() color.Model { return color.NRGBAModel }

// Bounds implements image.Image.
func (b *ImageBuffer) Bounds() image.Rectangle { return image.Rect(0, 0, b.Width, b.Height) }

// At implements image.Image.
func (b *ImageBuffer) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return color.NRGBA{}
	}
	ch := int(b.Channels)
	off := y*b.Width*ch + x*ch
	p := b.Pix[off : off+ch : off+ch]
	if ch == 3 {
		return color.NRGBA{R: p[0], G: p[1], B: p[2], A: 0xff}
	}
	return color.NRGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
}

// Clone returns a deep copy.
func (b *ImageBuffer) Clone() *ImageBuffer {
	c := *b
	c.Pix = make([]byte, len(b.Pix))
	copy(c.Pix, b.Pix)
	return &c
}
