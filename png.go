package squeeze

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"image/color"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/shamspias/squeeze/internal/quant"
)

// pngDitherLevel is the Floyd-Steinberg strength used for every PNG.
const pngDitherLevel = 1.0

// quantizePNG reduces an RGBA buffer to at most 256 colors and writes it to w
// as an indexed PNG. The first attempt accepts quality/2..quality; if that
// fails with a quality error the floor drops to zero once. It reports whether
// the pixel buffer was read in place.
func quantizePNG(w io.Writer, buf *ImageBuffer, quality int, allowZeroCopy bool) (bool, error) {
	const op = "quantize"
	if buf.Channels != RGBA {
		return false, errorf(KindEncode, op, "quantizer needs RGBA input, got %s", buf.Channels)
	}
	if err := buf.Validate(); err != nil {
		return false, newError(KindEncode, op, err)
	}

	pixels, zeroCopy := nrgbaPixels(buf.Pix, buf.Width*buf.Height, allowZeroCopy)

	palette, indices, err := quantizeAttempt(pixels, buf.Width, buf.Height, quality/2, quality)
	if errors.Is(err, quant.ErrQualityTooLow) {
		palette, indices, err = quantizeAttempt(pixels, buf.Width, buf.Height, 0, quality)
	}
	if err != nil {
		return zeroCopy, newError(KindQuantization, op, err)
	}

	if err := encodeIndexedPNG(w, buf.Width, buf.Height, palette, indices); err != nil {
		return zeroCopy, err
	}
	return zeroCopy, nil
}

func quantizeAttempt(pixels []color.NRGBA, w, h, minQuality, maxQuality int) ([]color.NRGBA, []uint8, error) {
	attr := quant.NewAttributes()
	if err := attr.SetQuality(minQuality, maxQuality); err != nil {
		return nil, nil, err
	}
	img, err := attr.NewImage(pixels, w, h)
	if err != nil {
		return nil, nil, err
	}
	res, err := attr.Quantize(img)
	if err != nil {
		return nil, nil, err
	}
	if err := res.SetDitheringLevel(pngDitherLevel); err != nil {
		return nil, nil, err
	}
	indices, err := res.Remap(img)
	if err != nil {
		return nil, nil, err
	}
	return res.Palette(), indices, nil
}

// encodeIndexedPNG writes an 8-bit palette PNG. The tRNS chunk carries the
// palette alphas with trailing 0xff entries removed and is omitted when every
// entry is opaque.
func encodeIndexedPNG(w io.Writer, width, height int, palette []color.NRGBA, indices []uint8) error {
	const op = "encode png"
	if len(palette) == 0 || len(palette) > quant.MaxColors {
		return errorf(KindEncode, op, "palette has %d entries, need 1-%d", len(palette), quant.MaxColors)
	}
	if width <= 0 || height <= 0 || len(indices) != width*height {
		return errorf(KindEncode, op, "%d indices for %dx%d image", len(indices), width, height)
	}
	for _, idx := range indices {
		if int(idx) >= len(palette) {
			return errorf(KindEncode, op, "index %d outside palette of %d", idx, len(palette))
		}
	}

	pw := &pngWriter{w: w}
	pw.write(pngSignature)

	var ihdr [13]byte
	binary.BigEndian.PutUint32(ihdr[0:4], uint32(width))
	binary.BigEndian.PutUint32(ihdr[4:8], uint32(height))
	ihdr[8] = 8 // bit depth
	ihdr[9] = 3 // color type: indexed
	pw.chunk("IHDR", ihdr[:])

	plte := make([]byte, 0, len(palette)*3)
	for _, c := range palette {
		plte = append(plte, c.R, c.G, c.B)
	}
	pw.chunk("PLTE", plte)

	if trns := transparencyTable(palette); len(trns) > 0 {
		pw.chunk("tRNS", trns)
	}

	idat := encoderBuffers.Get()
	defer encoderBuffers.Put(idat)
	zw, err := zlib.NewWriterLevel(idat, zlib.BestCompression)
	if err != nil {
		return newError(KindEncode, op, err)
	}
	row := make([]byte, width+1) // filter byte 0 (None) then indices
	for y := 0; y < height; y++ {
		copy(row[1:], indices[y*width:(y+1)*width])
		if _, err := zw.Write(row); err != nil {
			return newError(KindEncode, op, err)
		}
	}
	if err := zw.Close(); err != nil {
		return newError(KindEncode, op, err)
	}
	pw.chunk("IDAT", idat.Bytes())
	pw.chunk("IEND", nil)

	if pw.err != nil {
		return newError(KindEncode, op, pw.err)
	}
	return nil
}

// transparencyTable returns the palette alphas up to the last non-opaque entry.
func transparencyTable(palette []color.NRGBA) []byte {
	last := -1
	for i, c := range palette {
		if c.A != 0xff {
			last = i
		}
	}
	if last < 0 {
		return nil
	}
	trns := make([]byte, last+1)
	for i := range trns {
		trns[i] = palette[i].A
	}
	return trns
}

// pngWriter writes chunks and remembers the first error.
type pngWriter struct {
	w   io.Writer
	err error
}

func (pw *pngWriter) write(b []byte) {
	if pw.err != nil {
		return
	}
	_, pw.err = pw.w.Write(b)
}

func (pw *pngWriter) chunk(name string, data []byte) {
	if len(data) > 0x7fffffff {
		pw.err = fmt.Errorf("%s chunk too large: %d bytes", name, len(data))
		return
	}
	var header [8]byte
	binary.BigEndian.PutUint32(header[:4], uint32(len(data)))
	copy(header[4:], name)

	crc := crc32.NewIEEE()
	crc.Write(header[4:])
	crc.Write(data)
	var footer [4]byte
	binary.BigEndian.PutUint32(footer[:], crc.Sum32())

	pw.write(header[:])
	pw.write(data)
	pw.write(footer[:])
}
