// Package squeeze re-encodes JPEG and PNG images into smaller JPEG or PNG
// files.
//
// A request names an output format, a quality from 1 to 100, an encoder
// algorithm and optional bounds. The pipeline runs once per request, on the
// calling goroutine:
//
//	sniff → read EXIF (JPEG) → decode → orient (JPEG) → resize (bounded) → encode
//
// JPEG output goes through one of two encoders: "mozjpeg-like" (jpegli, the
// default) or "fast-jpeg" (standard library baseline). PNG output is always
// palette quantized to at most 256 colors with Floyd-Steinberg dithering and
// written as an indexed PNG with a trimmed transparency table. WebP is accepted
// as a target but fails with ErrNotImplemented.
//
// EXIF metadata is used for orientation and a diagnostic summary only; it is
// never copied into the output.
package squeeze

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shamspias/squeeze/internal/pool"
)

// Stage names a pipeline step. Errors carry the stage they came from in Op.
type Stage string

const (
	StageSniff    Stage = "sniff"
	StageMetadata Stage = "metadata"
	StageDecode   Stage = "decode"
	StageOrient   Stage = "orient"
	StageResize   Stage = "resize"
	StageEncode   Stage = "encode"
)

// StageFunc observes pipeline progress.
type StageFunc func(requestID string, stage Stage)

// encoderBuffers holds scratch output buffers; results are always copied out.
var encoderBuffers = pool.NewBufferPool(256 << 10)

// Compressor runs compression requests. It is safe for concurrent use.
type Compressor struct {
	log           *zap.Logger
	allowZeroCopy bool
	onStage       StageFunc
}

// Option configures a Compressor.
type Option func(*Compressor)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Compressor) {
		if l != nil {
			c.log = l
		}
	}
}

// WithZeroCopy controls whether the quantizer may read RGBA pixels in place
// when the layout check allows it. It is on by default.
func WithZeroCopy(enabled bool) Option {
	return func(c *Compressor) { c.allowZeroCopy = enabled }
}

// WithStageFunc registers a callback invoked as each stage starts.
func WithStageFunc(fn StageFunc) Option {
	return func(c *Compressor) { c.onStage = fn }
}

// New returns a Compressor.
func New(opts ...Option) *Compressor {
	c := &Compressor{
		log:           zap.NewNop(),
		allowZeroCopy: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultCompressor = New()

// Compress compresses data with a Compressor that does not log.
func Compress(data []byte, req Request) (*Result, error) {
	return defaultCompressor.Compress(data, req)
}

// Compress runs the pipeline on data. On failure it returns a *Error and no
// partial output.
func (c *Compressor) Compress(data []byte, req Request) (*Result, error) {
	start := time.Now()
	id := uuid.NewString()
	log := c.log.With(zap.String("request_id", id))

	res, err := c.run(id, log, data, req)
	if err != nil {
		log.Warn("compression failed",
			zap.Stringer("kind", KindOf(err)),
			zap.Int("input_bytes", len(data)),
			zap.Error(err),
		)
		return nil, err
	}

	res.RequestID = id
	res.Duration = time.Since(start)
	log.Info("compressed",
		zap.Stringer("input", res.InputFormat),
		zap.Stringer("format", res.Format),
		zap.Stringer("algorithm", res.Algorithm),
		zap.Int("quality", req.Quality),
		zap.Int("width", res.Width),
		zap.Int("height", res.Height),
		zap.Int64("original_bytes", res.OriginalSize),
		zap.Int64("compressed_bytes", res.CompressedSize),
		zap.Bool("zero_copy", res.ZeroCopy),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

func (c *Compressor) run(id string, log *zap.Logger, data []byte, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	c.stage(id, log, StageSniff)
	in, err := Sniff(data)
	if err != nil {
		return nil, err
	}
	format, alg, notes := req.plan(in)

	summary := summaryNotProcessed
	var (
		md     Metadata
		haveMD bool
	)
	if in == InputJPEG {
		c.stage(id, log, StageMetadata)
		var mdErr error
		md, mdErr = ReadMetadata(data)
		if mdErr != nil {
			log.Debug("no usable EXIF", zap.Error(mdErr))
			summary = summaryNoMetadata
		}
		haveMD = mdErr == nil
	}

	c.stage(id, log, StageDecode)
	img, err := decodeImage(data, in)
	if err != nil {
		return nil, err
	}
	channels := RGBA
	if format == JPEG {
		channels = RGB
	}
	buf := toBuffer(img, channels)

	if haveMD {
		c.stage(id, log, StageOrient)
		applied := false
		if md.HasOrientation {
			buf, applied = Orient(buf, md.Orientation)
			if !applied {
				notes = append(notes, fmt.Sprintf("unknown EXIF orientation %d left as-is", md.Orientation))
			}
		}
		summary = md.Summary(applied)
	}

	if req.Bounds != nil {
		c.stage(id, log, StageResize)
		w, h := fitDimensions(buf.Width, buf.Height, req.Bounds.MaxWidth, req.Bounds.MaxHeight)
		log.Debug("fit to bounds",
			zap.Int("from_width", buf.Width), zap.Int("from_height", buf.Height),
			zap.Int("to_width", w), zap.Int("to_height", h),
		)
		buf = resample(buf, w, h)
	}

	c.stage(id, log, StageEncode)
	out := encoderBuffers.Get()
	zeroCopy := false
	switch format {
	case JPEG:
		err = EncoderFor(alg).Encode(out, buf, req.Quality)
	case PNG:
		zeroCopy, err = quantizePNG(out, buf, req.Quality, c.allowZeroCopy)
	case WebP:
		err = errorf(KindNotImplemented, string(StageEncode), "webp encoding is not implemented")
	default:
		err = errorf(KindUnsupportedOutputFormat, string(StageEncode), "cannot encode %s", format)
	}
	if err != nil {
		encoderBuffers.Put(out)
		return nil, err
	}

	res := &Result{
		Data:         encoderBuffers.Detach(out),
		Width:        buf.Width,
		Height:       buf.Height,
		ExifSummary:  summary,
		Format:       format,
		Algorithm:    alg,
		InputFormat:  in,
		Notes:        notes,
		ZeroCopy:     zeroCopy,
		OriginalSize: int64(len(data)),
	}
	if md.HasOrientation {
		res.Orientation = md.Orientation
	}
	for _, n := range notes {
		log.Info("fallback", zap.String("note", n))
	}
	res.computeStats()
	return res, nil
}

func (c *Compressor) stage(id string, log *zap.Logger, s Stage) {
	log.Debug("stage", zap.String("stage", string(s)))
	if c.onStage != nil {
		c.onStage(id, s)
	}
}
