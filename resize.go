package squeeze

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// fitDimensions returns the size of a w x h image scaled uniformly to fit
// within maxW x maxH. Images that already fit keep their size. A bound of
// zero leaves that axis unconstrained.
func fitDimensions(w, h, maxW, maxH int) (int, int) {
	if maxW <= 0 {
		maxW = w
	}
	if maxH <= 0 {
		maxH = h
	}

	// Already fits.
	if w <= maxW && h <= maxH {
		return w, h
	}

	ratio := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	dstW := int(math.Max(1, math.Round(float64(w)*ratio)))
	dstH := int(math.Max(1, math.Round(float64(h)*ratio)))
	return dstW, dstH
}

const lanczosA = 3.0 // Lanczos-3 kernel support

func lanczosKernel(x float64) float64 {
	if x == 0 {
		return 1.0
	}
	if x < 0 {
		x = -x
	}
	if x >= lanczosA {
		return 0.0
	}
	xpi := x * math.Pi
	return (lanczosA * math.Sin(xpi) * math.Sin(xpi/lanczosA)) / (xpi * xpi)
}

// lanczos3 is a separable Lanczos-3 filter for x/image/draw.
var lanczos3 = &draw.Kernel{Support: lanczosA, At: lanczosKernel}

// resample scales buf to dstW x dstH. Alpha is premultiplied while filtering
// so transparent pixels do not bleed color into their neighbours.
func resample(buf *ImageBuffer, dstW, dstH int) *ImageBuffer {
	if buf.Width == dstW && buf.Height == dstH {
		return buf
	}

	src := asNRGBA(buf)
	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	lanczos3.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	out := NewImageBuffer(dstW, dstH, buf.Channels)
	n := int(buf.Channels)
	for i, j := 0, 0; i < len(dst.Pix); i, j = i+4, j+n {
		r, g, b, a := dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2], dst.Pix[i+3]
		if n == 3 {
			out.Pix[j], out.Pix[j+1], out.Pix[j+2] = r, g, b
			continue
		}
		switch a {
		case 0:
			// Fully transparent stays zero.
		case 0xff:
			out.Pix[j], out.Pix[j+1], out.Pix[j+2], out.Pix[j+3] = r, g, b, a
		default:
			out.Pix[j] = unpremultiply(r, a)
			out.Pix[j+1] = unpremultiply(g, a)
			out.Pix[j+2] = unpremultiply(b, a)
			out.Pix[j+3] = a
		}
	}
	return out
}

// asNRGBA views an RGBA buffer as *image.NRGBA without copying, or expands an
// RGB buffer into an opaque one.
func asNRGBA(buf *ImageBuffer) *image.NRGBA {
	rect := image.Rect(0, 0, buf.Width, buf.Height)
	if buf.Channels == RGBA {
		return &image.NRGBA{Pix: buf.Pix, Stride: buf.Width * 4, Rect: rect}
	}
	img := image.NewNRGBA(rect)
	for i, j := 0, 0; i < len(buf.Pix); i, j = i+3, j+4 {
		img.Pix[j] = buf.Pix[i]
		img.Pix[j+1] = buf.Pix[i+1]
		img.Pix[j+2] = buf.Pix[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}

func unpremultiply(c, a uint8) uint8 {
	v := (uint32(c)*0xff + uint32(a)/2) / uint32(a)
	if v > 0xff {
		return 0xff
	}
	return uint8(v)
}
