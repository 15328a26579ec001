package squeeze

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Version is the library version.
const Version = "0.3.0"

// Format represents an output image format.
type Format int

const (
	// Auto keeps the input's format (PNG stays PNG, JPEG stays JPEG).
	Auto Format = iota
	// JPEG output through one of the JPEG encoders.
	JPEG
	// PNG output is always palette quantized.
	PNG
	// WebP is accepted but not implemented; requests fail with ErrNotImplemented.
	WebP
)

func (f Format) String() string {
	switch f {
	case JPEG:
		return "jpeg"
	case PNG:
		return "png"
	case WebP:
		return "webp"
	default:
		return "auto"
	}
}

// Extension returns the conventional file extension, including the dot.
func (f Format) Extension() string {
	switch f {
	case JPEG:
		return ".jpg"
	case PNG:
		return ".png"
	case WebP:
		return ".webp"
	default:
		return ""
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case JPEG:
		return "image/jpeg"
	case PNG:
		return "image/png"
	case WebP:
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// ParseFormat maps a case-insensitive name to a Format. The empty string and
// "auto" map to Auto.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return Auto, nil
	case "jpeg", "jpg":
		return JPEG, nil
	case "png":
		return PNG, nil
	case "webp":
		return WebP, nil
	default:
		return Auto, errorf(KindUnsupportedOutputFormat, "parse format", "unknown output format %q", s)
	}
}

// InputFormat is the container detected by Sniff.
type InputFormat int

const (
	InputUnknown InputFormat = iota
	InputPNG
	InputJPEG
)

func (f InputFormat) String() string {
	switch f {
	case InputPNG:
		return "png"
	case InputJPEG:
		return "jpeg"
	default:
		return "unknown"
	}
}

// Algorithm selects the encoder strategy.
type Algorithm int

const (
	// MozJPEGLike is the high-quality JPEG encoder and the default.
	MozJPEGLike Algorithm = iota
	// FastJPEG is the baseline JPEG encoder.
	FastJPEG
	// QuantizedPNG is palette quantization to an indexed PNG.
	QuantizedPNG
)

func (a Algorithm) String() string {
	switch a {
	case FastJPEG:
		return "fast-jpeg"
	case QuantizedPNG:
		return "png-quantized"
	default:
		return "mozjpeg-like"
	}
}

// IsJPEG reports whether the algorithm produces JPEG output.
func (a Algorithm) IsJPEG() bool {
	return a == MozJPEGLike || a == FastJPEG
}

var algorithmNames = map[string]Algorithm{
	"mozjpeg-like":  MozJPEGLike,
	"mozjpeg":       MozJPEGLike,
	"fast-jpeg":     FastJPEG,
	"jpeg-encoder":  FastJPEG,
	"png-quantized": QuantizedPNG,
}

// ResolveAlgorithm maps a name to an Algorithm. Unknown names, including the
// empty string, resolve to MozJPEGLike and report known=false.
func ResolveAlgorithm(name string) (alg Algorithm, known bool) {
	alg, known = algorithmNames[strings.ToLower(strings.TrimSpace(name))]
	if !known {
		return MozJPEGLike, false
	}
	return alg, true
}

// AlgorithmNames lists the canonical algorithm names.
func AlgorithmNames() []string {
	return []string{MozJPEGLike.String(), FastJPEG.String(), QuantizedPNG.String()}
}

// Bounds constrains the output dimensions. A zero on one axis leaves that
// axis unconstrained. The aspect ratio is always preserved.
type Bounds struct {
	MaxWidth  int
	MaxHeight int
}

// Request describes one compression.
type Request struct {
	// Format is the output format. Auto keeps the input's format.
	Format Format
	// Quality is 1-100.
	Quality int
	// Algorithm selects the encoder. PNG output always quantizes.
	Algorithm Algorithm
	// AlgorithmName is the name the caller asked for, if any. A name that did
	// not resolve is reported in Result.Notes.
	AlgorithmName string
	// Bounds, when non-nil, fits the output inside MaxWidth x MaxHeight.
	// When nil the input dimensions are preserved exactly.
	Bounds *Bounds
}

// DefaultQuality is used by NewRequest callers that have no preference.
const DefaultQuality = 80

// NewRequest builds and validates a request from external string values.
func NewRequest(format string, quality int, algorithm string, bounds *Bounds) (Request, error) {
	f, err := ParseFormat(format)
	if err != nil {
		return Request{}, err
	}
	alg, _ := ResolveAlgorithm(algorithm)
	req := Request{
		Format:        f,
		Quality:       quality,
		Algorithm:     alg,
		AlgorithmName: algorithm,
		Bounds:        bounds,
	}
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Validate checks the request ranges.
func (r Request) Validate() error {
	const op = "validate"
	if r.Quality < 1 || r.Quality > 100 {
		return errorf(KindInvalidRequest, op, "quality %d out of range 1-100", r.Quality)
	}
	if r.Format < Auto || r.Format > WebP {
		return errorf(KindUnsupportedOutputFormat, op, "unknown output format %d", int(r.Format))
	}
	if r.Algorithm < MozJPEGLike || r.Algorithm > QuantizedPNG {
		return errorf(KindInvalidRequest, op, "unknown algorithm %d", int(r.Algorithm))
	}
	if r.Bounds != nil && (r.Bounds.MaxWidth < 0 || r.Bounds.MaxHeight < 0) {
		return errorf(KindInvalidRequest, op, "negative bounds %dx%d", r.Bounds.MaxWidth, r.Bounds.MaxHeight)
	}
	return nil
}

// plan resolves the output format and encoder for a given input, collecting
// notes for every fallback taken.
func (r Request) plan(in InputFormat) (Format, Algorithm, []string) {
	var notes []string
	if r.AlgorithmName != "" {
		if _, known := ResolveAlgorithm(r.AlgorithmName); !known {
			notes = append(notes, fmt.Sprintf("unknown algorithm %q, using %s", r.AlgorithmName, MozJPEGLike))
		}
	}

	format := r.Format
	if format == Auto {
		format = JPEG
		if in == InputPNG {
			format = PNG
		}
	}

	alg := r.Algorithm
	switch format {
	case JPEG:
		if !alg.IsJPEG() {
			notes = append(notes, fmt.Sprintf("%s cannot produce jpeg, using %s", alg, MozJPEGLike))
			alg = MozJPEGLike
		}
	case PNG:
		explicit := r.AlgorithmName != "" || alg != MozJPEGLike
		if alg != QuantizedPNG && explicit {
			notes = append(notes, fmt.Sprintf("%s ignored for png output, using %s", alg, QuantizedPNG))
		}
		alg = QuantizedPNG
	}
	return format, alg, notes
}

// Result contains the compressed bytes and what was done to produce them.
type Result struct {
	// Data holds the encoded image. It is owned by the caller.
	Data []byte

	// Width and Height are the output dimensions.
	Width  int
	Height int

	// ExifSummary is a short description of the metadata handling.
	ExifSummary string

	Format      Format
	Algorithm   Algorithm
	InputFormat InputFormat

	// Orientation is the EXIF orientation read from the input, 0 if none.
	Orientation Orientation

	// Notes records non-fatal fallbacks (unknown algorithm, unknown orientation).
	Notes []string

	// ZeroCopy reports whether quantization reused the pixel buffer in place.
	ZeroCopy bool

	// RequestID correlates the result with log lines.
	RequestID string

	OriginalSize   int64
	CompressedSize int64
	Ratio          float64
	SavingsPercent float64
	Duration       time.Duration
}

// WriteTo writes the compressed image data to w.
func (r *Result) WriteTo(w io.Writer) (int64, error) {
	if len(r.Data) == 0 {
		return 0, fmt.Errorf("squeeze: no compressed data available")
	}
	n, err := w.Write(r.Data)
	return int64(n), err
}

// Bytes returns the compressed image data.
func (r *Result) Bytes() []byte {
	return r.Data
}

// String returns a human-readable summary of the compression result.
func (r *Result) String() string {
	return fmt.Sprintf(
		"%s → %s (%s) | %dx%d | %s → %s | Saved: %.1f%% | %s",
		r.InputFormat, r.Format, r.Algorithm,
		r.Width, r.Height,
		humanBytes(r.OriginalSize), humanBytes(r.CompressedSize),
		r.SavingsPercent, r.ExifSummary,
	)
}

// computeStats fills in the computed fields (Ratio, SavingsPercent) from sizes.
func (r *Result) computeStats() {
	r.CompressedSize = int64(len(r.Data))
	if r.OriginalSize > 0 && r.CompressedSize > 0 {
		r.Ratio = float64(r.OriginalSize) / float64(r.CompressedSize)
		r.SavingsPercent = (1 - float64(r.CompressedSize)/float64(r.OriginalSize)) * 100
	}
}

// humanBytes formats a byte count for human reading.
func humanBytes(b int64) string {
	if b == 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB"}
	i := 0
	bf := float64(b)
	for bf >= 1024 && i < len(units)-1 {
		bf /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%d B", b)
	}
	return fmt.Sprintf("%.1f %s", bf, units[i])
}
