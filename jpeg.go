package squeeze

import (
	"image"
	"image/jpeg"
	"io"

	"github.com/gen2brain/jpegli"
)

// JPEGEncoder serializes an RGB buffer as JPEG.
type JPEGEncoder interface {
	// Name returns the algorithm name the encoder answers to.
	Name() string
	// Encode writes buf to w at quality 1-100. buf is read, never written.
	Encode(w io.Writer, buf *ImageBuffer, quality int) error
}

// EncoderFor returns the JPEG encoder for alg. Non-JPEG algorithms get the
// high-quality encoder.
func EncoderFor(alg Algorithm) JPEGEncoder {
	if alg == FastJPEG {
		return fastEncoder{}
	}
	return hqEncoder{}
}

// hqEncoder trades CPU for size with jpegli's adaptive quantization.
type hqEncoder struct{}

func (hqEncoder) Name() string { return MozJPEGLike.String() }

func (e hqEncoder) Encode(w io.Writer, buf *ImageBuffer, quality int) error {
	frame, err := rgbFrame(buf, e.Name())
	if err != nil {
		return err
	}
	err = jpegli.Encode(w, frame, &jpegli.EncodingOptions{
		Quality:           clampQuality(quality),
		ChromaSubsampling: image.YCbCrSubsampleRatio420,
	})
	if err != nil {
		return newError(KindEncode, e.Name(), err)
	}
	return nil
}

// fastEncoder is the standard library baseline encoder.
type fastEncoder struct{}

func (fastEncoder) Name() string { return FastJPEG.String() }

func (e fastEncoder) Encode(w io.Writer, buf *ImageBuffer, quality int) error {
	frame, err := rgbFrame(buf, e.Name())
	if err != nil {
		return err
	}
	if err := jpeg.Encode(w, frame, &jpeg.Options{Quality: clampQuality(quality)}); err != nil {
		return newError(KindEncode, e.Name(), err)
	}
	return nil
}

// rgbFrame checks buf against its declared dimensions and copies it one
// scanline at a time into an opaque RGBA frame.
func rgbFrame(buf *ImageBuffer, op string) (*image.RGBA, error) {
	if buf == nil {
		return nil, errorf(KindEncode, op, "nil buffer")
	}
	if buf.Channels != RGB {
		return nil, errorf(KindEncode, op, "JPEG encoders need RGB input, got %s", buf.Channels)
	}
	if err := buf.Validate(); err != nil {
		return nil, newError(KindEncode, op, err)
	}

	w, h := buf.Width, buf.Height
	frame := image.NewRGBA(image.Rect(0, 0, w, h))
	stride := buf.Stride()
	for y := 0; y < h; y++ {
		scanline := buf.Pix[y*stride : (y+1)*stride]
		dst := frame.Pix[y*frame.Stride : y*frame.Stride+w*4]
		for x := 0; x < w; x++ {
			dst[x*4] = scanline[x*3]
			dst[x*4+1] = scanline[x*3+1]
			dst[x*4+2] = scanline[x*3+2]
			dst[x*4+3] = 0xff
		}
	}
	return frame, nil
}

func clampQuality(q int) int {
	switch {
	case q < 1:
		return 1
	case q > 100:
		return 100
	default:
		return q
	}
}
