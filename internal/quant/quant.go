// Package quant reduces RGBA images to a palette of at most 256 colors.
//
// The API mirrors the usual quantizer workflow: configure Attributes, wrap
// pixels in an Image, Quantize to get a Result, optionally set the dithering
// level, then Remap the image to palette indices.
//
// Palette building is a weighted median cut over a (possibly posterised)
// histogram followed by a few k-means passes. Colors are compared in
// premultiplied alpha space so fully transparent pixels collapse together and
// semi-transparent edges blend correctly over both black and white.
//
// Quality follows the 0-100 scale of libimagequant: quality 100 asks for zero
// error, lower values allow progressively larger mean squared error and
// therefore fewer colors.
package quant

import (
	"errors"
	"fmt"
	"image/color"
	"math"
)

var (
	// ErrQualityTooLow is returned by Quantize when the best palette it could
	// build is worse than the minimum quality.
	ErrQualityTooLow = errors.New("quant: quality too low")
	// ErrValueOutOfRange is returned by setters for invalid arguments.
	ErrValueOutOfRange = errors.New("quant: value out of range")
	// ErrBufferTooSmall is returned when the pixel slice does not cover the
	// declared dimensions.
	ErrBufferTooSmall = errors.New("quant: pixel buffer does not match dimensions")
)

// MaxColors is the largest palette a single-byte index can address.
const MaxColors = 256

// Attributes configures quantization.
type Attributes struct {
	maxColors  int
	minQuality int
	maxQuality int
	speed      int
}

// NewAttributes returns defaults: 256 colors, quality 0-100, speed 4.
func NewAttributes() *Attributes {
	return &Attributes{
		maxColors:  MaxColors,
		minQuality: 0,
		maxQuality: 100,
		speed:      4,
	}
}

// SetQuality sets the acceptable quality range. Quantize aims for max and
// fails with ErrQualityTooLow below min.
func (a *Attributes) SetQuality(min, max int) error {
	if min < 0 || max > 100 || min > max {
		return fmt.Errorf("%w: quality %d-%d", ErrValueOutOfRange, min, max)
	}
	a.minQuality = min
	a.maxQuality = max
	return nil
}

// SetMaxColors caps the palette size (2-256).
func (a *Attributes) SetMaxColors(n int) error {
	if n < 2 || n > MaxColors {
		return fmt.Errorf("%w: max colors %d", ErrValueOutOfRange, n)
	}
	a.maxColors = n
	return nil
}

// SetSpeed trades palette refinement for time (1 slowest, 10 fastest).
func (a *Attributes) SetSpeed(speed int) error {
	if speed < 1 || speed > 10 {
		return fmt.Errorf("%w: speed %d", ErrValueOutOfRange, speed)
	}
	a.speed = speed
	return nil
}

// MinQuality returns the configured quality floor.
func (a *Attributes) MinQuality() int { return a.minQuality }

// MaxQuality returns the configured quality target.
func (a *Attributes) MaxQuality() int { return a.maxQuality }

func (a *Attributes) kmeansIterations() int {
	return (11 - a.speed) / 2
}

// Image is a read-only view over width*height pixels in row-major order.
type Image struct {
	pixels []color.NRGBA
	width  int
	height int
}

// NewImage wraps pixels. The slice is only read, never written or retained
// beyond the lifetime of the Image.
func (a *Attributes) NewImage(pixels []color.NRGBA, width, height int) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrValueOutOfRange, width, height)
	}
	if len(pixels) < width*height {
		return nil, fmt.Errorf("%w: have %d pixels, need %d", ErrBufferTooSmall, len(pixels), width*height)
	}
	return &Image{pixels: pixels[:width*height], width: width, height: height}, nil
}

// Width returns the image width.
func (img *Image) Width() int { return img.width }

// Height returns the image height.
func (img *Image) Height() int { return img.height }

// Result holds a palette and the settings used to remap with it.
type Result struct {
	palette []fpixel
	mse     float64
	quality int
	dither  float64
}

// Quantize builds a palette for img.
func (a *Attributes) Quantize(img *Image) (*Result, error) {
	hist := buildHistogram(img.pixels, maxHistogramEntries)
	if len(hist) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrBufferTooSmall)
	}

	target := qualityToMSE(a.maxQuality) * 0.9
	palette := medianCut(hist, a.maxColors, target)
	palette, mse := refine(hist, palette, a.kmeansIterations())

	quality := mseToQuality(mse)
	if quality < a.minQuality {
		return nil, fmt.Errorf("%w: achieved %d, need %d", ErrQualityTooLow, quality, a.minQuality)
	}

	return &Result{
		palette: palette,
		mse:     mse,
		quality: quality,
		dither:  1.0,
	}, nil
}

// SetDitheringLevel sets the error diffusion strength (0 disables dithering).
func (r *Result) SetDitheringLevel(level float64) error {
	if level < 0 || level > 1 {
		return fmt.Errorf("%w: dithering level %v", ErrValueOutOfRange, level)
	}
	r.dither = level
	return nil
}

// Palette returns the palette colors in index order.
func (r *Result) Palette() []color.NRGBA {
	out := make([]color.NRGBA, len(r.palette))
	for i, p := range r.palette {
		out[i] = p.toNRGBA()
	}
	return out
}

// Quality returns the quality (0-100) the palette achieves on the histogram.
func (r *Result) Quality() int { return r.quality }

// MSE returns the mean squared error of the palette on the histogram.
func (r *Result) MSE() float64 { return r.mse }

// mseWeight scales raw color error to the quality curve below.
const mseWeight = 0.45

// qualityToMSE maps a 0-100 quality to the largest acceptable error.
func qualityToMSE(quality int) float64 {
	if quality <= 0 {
		return math.MaxFloat64
	}
	if quality >= 100 {
		return 0
	}
	q := float64(quality)
	fudge := math.Max(0, 0.016/(0.001+q)-0.001)
	return mseWeight * (fudge + 2.5/math.Pow(210+q, 1.2)*(100.1-q)/100)
}

// mseToQuality is the inverse of qualityToMSE, rounded down.
func mseToQuality(mse float64) int {
	for q := 100; q > 0; q-- {
		if mse <= qualityToMSE(q)+1e-6 {
			return q
		}
	}
	return 0
}
