package quant

import (
	"fmt"
	"image/color"
)

// maxDitherError caps how far diffused error may push a pixel, which keeps
// dithering from smearing across hard edges.
const maxDitherError = 0.25

// Remap returns one palette index per pixel of img in row-major order.
func (r *Result) Remap(img *Image) ([]uint8, error) {
	if len(r.palette) == 0 || len(r.palette) > MaxColors {
		return nil, fmt.Errorf("%w: palette of %d colors", ErrValueOutOfRange, len(r.palette))
	}
	if r.dither == 0 {
		return r.remapNearest(img), nil
	}
	return r.remapDithered(img), nil
}

func (r *Result) remapNearest(img *Image) []uint8 {
	out := make([]uint8, len(img.pixels))
	cache := make(map[color.NRGBA]uint8)
	for i, px := range img.pixels {
		if px.A == 0 {
			px = color.NRGBA{}
		}
		if idx, ok := cache[px]; ok {
			out[i] = idx
			continue
		}
		idx, _ := nearest(r.palette, toFPixel(px))
		cache[px] = uint8(idx)
		out[i] = uint8(idx)
	}
	return out
}

// remapDithered applies Floyd-Steinberg error diffusion scaled by the
// dithering level. Fully transparent source pixels neither receive nor
// spread error.
func (r *Result) remapDithered(img *Image) []uint8 {
	w, h := img.width, img.height
	out := make([]uint8, len(img.pixels))
	level := float32(r.dither)

	// Error rows are padded by one on each side.
	curr := make([]fpixel, w+2)
	next := make([]fpixel, w+2)

	for y := 0; y < h; y++ {
		row := img.pixels[y*w : (y+1)*w]
		for x, px := range row {
			if px.A == 0 {
				idx, _ := nearest(r.palette, fpixel{})
				out[y*w+x] = uint8(idx)
				continue
			}

			want := toFPixel(px)
			e := curr[x+1]
			if e.diff(fpixel{}) > maxDitherError {
				e = e.scale(0.75)
			}
			target := want.add(e).clampPremultiplied()

			idx, _ := nearest(r.palette, target)
			out[y*w+x] = uint8(idx)

			qe := target.sub(r.palette[idx]).scale(level)
			curr[x+2] = curr[x+2].add(qe.scale(7.0 / 16))
			next[x] = next[x].add(qe.scale(3.0 / 16))
			next[x+1] = next[x+1].add(qe.scale(5.0 / 16))
			next[x+2] = next[x+2].add(qe.scale(1.0 / 16))
		}
		curr, next = next, curr
		for i := range next {
			next[i] = fpixel{}
		}
	}
	return out
}
