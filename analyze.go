package squeeze

import (
	"fmt"
	"math"
)

// Analysis describes an input image without compressing it.
type Analysis struct {
	Input InputFormat

	// Width and Height are the displayed dimensions, after EXIF orientation.
	Width, Height int

	ExifSummary string
	Orientation Orientation

	// HasAlpha indicates at least one pixel is not fully opaque.
	HasAlpha bool

	// IsGrayscale indicates all pixels have R == G == B.
	IsGrayscale bool

	// UniqueColors is the number of distinct colors, sampled and capped at 1024.
	UniqueColors int

	// Entropy of the luminance histogram in bits (0-8).
	Entropy float64

	// EdgeDensity is the fraction of sampled pixels on a Sobel edge (0-1).
	EdgeDensity float64

	RecommendedFormat    Format
	RecommendedAlgorithm Algorithm
	RecommendedQuality   int

	// ZeroCopy reports the process-wide zero-copy eligibility.
	ZeroCopy bool
}

// String returns a multi-line report.
func (a *Analysis) String() string {
	return fmt.Sprintf(
		"input: %s\ndimensions: %dx%d\nexif: %s\nalpha: %t\ngrayscale: %t\nunique colors: %d\n"+
			"entropy: %.2f\nedge density: %.3f\nrecommended: %s %s q=%d\nzero-copy eligible: %t",
		a.Input, a.Width, a.Height, a.ExifSummary, a.HasAlpha, a.IsGrayscale, a.UniqueColors,
		a.Entropy, a.EdgeDensity, a.RecommendedFormat, a.RecommendedAlgorithm, a.RecommendedQuality, a.ZeroCopy,
	)
}

// Analyze sniffs, reads metadata from and decodes data, then measures the
// pixels to suggest an output format and quality.
func Analyze(data []byte) (*Analysis, error) {
	in, err := Sniff(data)
	if err != nil {
		return nil, err
	}

	a := &Analysis{Input: in, ExifSummary: summaryNotProcessed, ZeroCopy: ZeroCopyEligible()}
	var md Metadata
	if in == InputJPEG {
		md, err = ReadMetadata(data)
		if err != nil {
			a.ExifSummary = summaryNoMetadata
		}
	}

	img, err := decodeImage(data, in)
	if err != nil {
		return nil, err
	}
	buf := toBuffer(img, RGBA)
	if in == InputJPEG && a.ExifSummary != summaryNoMetadata {
		applied := false
		if md.HasOrientation {
			buf, applied = Orient(buf, md.Orientation)
			a.Orientation = md.Orientation
		}
		a.ExifSummary = md.Summary(applied)
	}

	a.Width, a.Height = buf.Width, buf.Height
	a.measure(buf)
	a.RecommendedFormat = a.recommendFormat()
	a.RecommendedAlgorithm = QuantizedPNG
	if a.RecommendedFormat == JPEG {
		a.RecommendedAlgorithm = MozJPEGLike
	}
	a.RecommendedQuality = a.recommendQuality()
	return a, nil
}

func (a *Analysis) measure(buf *ImageBuffer) {
	w, h := buf.Width, buf.Height
	n := w * h

	var histogram [256]float64
	colorSet := make(map[uint32]struct{})
	step := 1
	if maxSample := 50000; n > maxSample {
		step = n / maxSample
	}

	allGray := true
	for i := 0; i < n; i++ {
		off := i * 4
		r, g, b, al := buf.Pix[off], buf.Pix[off+1], buf.Pix[off+2], buf.Pix[off+3]
		histogram[int(luminance(r, g, b)+0.5)]++
		if al < 0xff {
			a.HasAlpha = true
		}
		if r != g || g != b {
			allGray = false
		}
		if i%step == 0 && len(colorSet) < 1024 {
			colorSet[uint32(r)<<24|uint32(g)<<16|uint32(b)<<8|uint32(al)] = struct{}{}
		}
	}
	a.IsGrayscale = allGray
	a.UniqueColors = len(colorSet)
	a.Entropy = entropy(histogram[:], float64(n))
	a.EdgeDensity = edgeDensity(buf)
}

func luminance(r, g, b uint8) float64 {
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}

// entropy calculates Shannon entropy from a histogram.
func entropy(histogram []float64, total float64) float64 {
	if total == 0 {
		return 0
	}
	var e float64
	for _, count := range histogram {
		if count > 0 {
			p := count / total
			e -= p * math.Log2(p)
		}
	}
	return e
}

// edgeDensity samples a Sobel operator over an RGBA buffer.
func edgeDensity(buf *ImageBuffer) float64 {
	w, h := buf.Width, buf.Height
	if w < 3 || h < 3 {
		return 0
	}

	lum := func(x, y int) float64 {
		off := (y*w + x) * 4
		return luminance(buf.Pix[off], buf.Pix[off+1], buf.Pix[off+2])
	}

	stepX := int(math.Max(1, float64(w)/200))
	stepY := int(math.Max(1, float64(h)/200))
	const threshold = 30.0

	edges, total := 0, 0
	for y := 1; y < h-1; y += stepY {
		for x := 1; x < w-1; x += stepX {
			gx := lum(x+1, y-1) - lum(x-1, y-1) +
				2*lum(x+1, y) - 2*lum(x-1, y) +
				lum(x+1, y+1) - lum(x-1, y+1)
			gy := lum(x-1, y+1) - lum(x-1, y-1) +
				2*lum(x, y+1) - 2*lum(x, y-1) +
				lum(x+1, y+1) - lum(x+1, y-1)
			if math.Sqrt(gx*gx+gy*gy) > threshold {
				edges++
			}
			total++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(edges) / float64(total)
}

func (a *Analysis) recommendFormat() Format {
	switch {
	case a.HasAlpha:
		return PNG
	case a.UniqueColors <= 256:
		return PNG
	case a.EdgeDensity > 0.3 && a.UniqueColors < 1000:
		// Screenshots, text and diagrams.
		return PNG
	default:
		return JPEG
	}
}

func (a *Analysis) recommendQuality() int {
	switch {
	case a.Entropy > 6 && a.EdgeDensity < 0.15:
		return DefaultQuality
	case a.Entropy < 4:
		return 70
	case a.EdgeDensity > 0.25:
		return 90
	default:
		return DefaultQuality
	}
}
