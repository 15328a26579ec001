package quant

import (
	"image/color"
	"sort"
)

// maxHistogramEntries bounds the number of distinct colors fed to the median
// cut. Larger images are posterised until they fit.
const maxHistogramEntries = 1 << 16

type histEntry struct {
	color  fpixel
	key    uint32
	weight float64
}

// buildHistogram counts distinct colors, dropping low bits of every channel
// when there are too many. Fully transparent pixels share one entry. Entries
// are returned sorted by packed color so the result does not depend on map
// iteration order.
func buildHistogram(pixels []color.NRGBA, maxEntries int) []histEntry {
	const maxBits = 3

	var counts map[uint32]uint32
	for bits := uint(0); bits <= maxBits; bits++ {
		counts = make(map[uint32]uint32)
		overflow := false
		for _, p := range pixels {
			counts[packKey(posterize(p, bits))]++
			if bits < maxBits && len(counts) > maxEntries {
				overflow = true
				break
			}
		}
		if !overflow {
			break
		}
	}

	keys := make([]uint32, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	hist := make([]histEntry, len(keys))
	for i, k := range keys {
		hist[i] = histEntry{
			color:  toFPixel(unpackKey(k)),
			key:    k,
			weight: float64(counts[k]),
		}
	}
	return hist
}

// posterize drops the low bits of each channel and refills them with the high
// bits so that 0 and 255 are preserved exactly.
func posterize(c color.NRGBA, bits uint) color.NRGBA {
	if c.A == 0 {
		return color.NRGBA{}
	}
	if bits == 0 {
		return c
	}
	mask := uint8(0xFF << bits)
	q := func(v uint8) uint8 {
		v &= mask
		return v | v>>(8-bits)
	}
	return color.NRGBA{R: q(c.R), G: q(c.G), B: q(c.B), A: q(c.A)}
}

func packKey(c color.NRGBA) uint32 {
	return uint32(c.R)<<24 | uint32(c.G)<<16 | uint32(c.B)<<8 | uint32(c.A)
}

func unpackKey(k uint32) color.NRGBA {
	return color.NRGBA{R: uint8(k >> 24), G: uint8(k >> 16), B: uint8(k >> 8), A: uint8(k)}
}

// colorBox is a contiguous run of histogram entries with cached statistics.
type colorBox struct {
	entries  []histEntry
	weight   float64
	mean     fpixel
	variance [4]float64
	err      float64
}

func newColorBox(entries []histEntry) *colorBox {
	b := &colorBox{entries: entries}

	var sum [4]float64
	for _, e := range entries {
		b.weight += e.weight
		for c := 0; c < 4; c++ {
			sum[c] += float64(e.color.channel(c)) * e.weight
		}
	}
	if b.weight == 0 {
		return b
	}
	b.mean = fpixel{
		a: float32(sum[0] / b.weight),
		r: float32(sum[1] / b.weight),
		g: float32(sum[2] / b.weight),
		b: float32(sum[3] / b.weight),
	}

	for _, e := range entries {
		for c := 0; c < 4; c++ {
			d := float64(e.color.channel(c) - b.mean.channel(c))
			b.variance[c] += d * d * e.weight
		}
		b.err += float64(e.color.diff(b.mean)) * e.weight
	}
	return b
}

// widestChannel returns the channel with the largest weighted variance.
func (b *colorBox) widestChannel() int {
	best := 0
	for c := 1; c < 4; c++ {
		if b.variance[c] > b.variance[best] {
			best = c
		}
	}
	return best
}

// split divides the box at the weighted median of its widest channel.
func (b *colorBox) split() (*colorBox, *colorBox) {
	ch := b.widestChannel()
	entries := b.entries
	sort.Slice(entries, func(i, j int) bool {
		vi, vj := entries[i].color.channel(ch), entries[j].color.channel(ch)
		if vi != vj {
			return vi < vj
		}
		return entries[i].key < entries[j].key
	})

	half := b.weight / 2
	var acc float64
	mid := 1
	for i, e := range entries {
		acc += e.weight
		if acc >= half {
			mid = i + 1
			break
		}
	}
	if mid >= len(entries) {
		mid = len(entries) - 1
	}
	if mid < 1 {
		mid = 1
	}
	return newColorBox(entries[:mid]), newColorBox(entries[mid:])
}

// medianCut splits boxes, worst first, until there are maxColors of them or
// the estimated mean error drops to targetMSE.
func medianCut(hist []histEntry, maxColors int, targetMSE float64) []fpixel {
	root := newColorBox(hist)
	total := root.weight
	boxes := []*colorBox{root}
	totalErr := root.err

	for len(boxes) < maxColors && totalErr/total > targetMSE {
		worst := -1
		for i, b := range boxes {
			if len(b.entries) < 2 || b.err <= 0 {
				continue
			}
			if worst == -1 || b.err > boxes[worst].err {
				worst = i
			}
		}
		if worst == -1 {
			break
		}

		left, right := boxes[worst].split()
		totalErr += left.err + right.err - boxes[worst].err
		boxes[worst] = left
		boxes = append(boxes, right)
	}

	palette := make([]fpixel, len(boxes))
	for i, b := range boxes {
		palette[i] = b.mean
	}
	return palette
}

// refine runs k-means passes over the histogram and returns the improved
// palette and its mean error. Palette entries are reordered so translucent
// colors come first, then by popularity.
func refine(hist []histEntry, palette []fpixel, iterations int) ([]fpixel, float64) {
	var total float64
	for _, e := range hist {
		total += e.weight
	}

	sums := make([][4]float64, len(palette))
	weights := make([]float64, len(palette))
	mse := assign(hist, palette, sums, weights) / total

	for it := 0; it < iterations; it++ {
		next := make([]fpixel, len(palette))
		for i := range palette {
			if weights[i] == 0 {
				next[i] = palette[i]
				continue
			}
			w := weights[i]
			next[i] = fpixel{
				a: float32(sums[i][0] / w),
				r: float32(sums[i][1] / w),
				g: float32(sums[i][2] / w),
				b: float32(sums[i][3] / w),
			}
		}

		nextMSE := assign(hist, next, sums, weights) / total
		if nextMSE >= mse {
			// Recompute the stats for the palette we keep.
			assign(hist, palette, sums, weights)
			break
		}
		improvement := (mse - nextMSE) / mse
		palette, mse = next, nextMSE
		if improvement < 0.01 {
			break
		}
	}

	return sortPalette(palette, weights), mse
}

// assign maps every histogram entry to its nearest palette color, filling the
// per-color channel sums and weights, and returns the total weighted error.
func assign(hist []histEntry, palette []fpixel, sums [][4]float64, weights []float64) float64 {
	for i := range sums {
		sums[i] = [4]float64{}
		weights[i] = 0
	}
	var errSum float64
	for _, e := range hist {
		idx, d := nearest(palette, e.color)
		errSum += float64(d) * e.weight
		weights[idx] += e.weight
		for c := 0; c < 4; c++ {
			sums[idx][c] += float64(e.color.channel(c)) * e.weight
		}
	}
	return errSum
}

func nearest(palette []fpixel, p fpixel) (int, float32) {
	best := 0
	bestDiff := p.diff(palette[0])
	for i := 1; i < len(palette); i++ {
		if d := p.diff(palette[i]); d < bestDiff {
			best, bestDiff = i, d
		}
	}
	return best, bestDiff
}

func sortPalette(palette []fpixel, weights []float64) []fpixel {
	idx := make([]int, len(palette))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		ci, cj := palette[idx[i]].toNRGBA(), palette[idx[j]].toNRGBA()
		oi, oj := ci.A == 0xFF, cj.A == 0xFF
		if oi != oj {
			return !oi
		}
		return weights[idx[i]] > weights[idx[j]]
	})

	out := make([]fpixel, len(palette))
	for i, j := range idx {
		out[i] = palette[j]
	}
	return out
}
