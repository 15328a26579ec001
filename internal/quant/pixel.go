package quant

import (
	"image/color"
	"math"
)

// fpixel is a premultiplied color with channels in [0, 1].
type fpixel struct {
	a, r, g, b float32
}

func toFPixel(c color.NRGBA) fpixel {
	a := float32(c.A) / 255
	return fpixel{
		a: a,
		r: float32(c.R) / 255 * a,
		g: float32(c.G) / 255 * a,
		b: float32(c.B) / 255 * a,
	}
}

func (p fpixel) toNRGBA() color.NRGBA {
	if p.a < 1.0/512 {
		return color.NRGBA{}
	}
	inv := 255 / p.a
	return color.NRGBA{
		R: clamp8(p.r * inv),
		G: clamp8(p.g * inv),
		B: clamp8(p.b * inv),
		A: clamp8(p.a * 255),
	}
}

func (p fpixel) add(q fpixel) fpixel {
	return fpixel{p.a + q.a, p.r + q.r, p.g + q.g, p.b + q.b}
}

func (p fpixel) sub(q fpixel) fpixel {
	return fpixel{p.a - q.a, p.r - q.r, p.g - q.g, p.b - q.b}
}

func (p fpixel) scale(s float32) fpixel {
	return fpixel{p.a * s, p.r * s, p.g * s, p.b * s}
}

// clampPremultiplied keeps the pixel inside the valid premultiplied range:
// alpha in [0, 1] and each color channel in [0, alpha].
func (p fpixel) clampPremultiplied() fpixel {
	a := clampF(p.a, 0, 1)
	return fpixel{
		a: a,
		r: clampF(p.r, 0, a),
		g: clampF(p.g, 0, a),
		b: clampF(p.b, 0, a),
	}
}

// channel returns channel i in a, r, g, b order.
func (p fpixel) channel(i int) float32 {
	switch i {
	case 0:
		return p.a
	case 1:
		return p.r
	case 2:
		return p.g
	default:
		return p.b
	}
}

// diff measures how different two colors look when composited over black and
// over white, taking the worse of the two per channel.
func (p fpixel) diff(q fpixel) float32 {
	alphas := q.a - p.a
	return channelDiff(p.r, q.r, alphas) +
		channelDiff(p.g, q.g, alphas) +
		channelDiff(p.b, q.b, alphas)
}

func channelDiff(x, y, alphas float32) float32 {
	black := x - y
	white := black + alphas
	return max(black*black, white*white)
}

func clampF(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp8(v float32) uint8 {
	r := math.Round(float64(v))
	if r < 0 {
		return 0
	}
	if r > 255 {
		return 255
	}
	return uint8(r)
}
