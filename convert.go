package squeeze

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
)

// decodeImage decodes data with the decoder for the sniffed format.
func decodeImage(data []byte, in InputFormat) (image.Image, error) {
	const op = "decode"
	var (
		img image.Image
		err error
	)
	switch in {
	case InputPNG:
		img, err = png.Decode(bytes.NewReader(data))
	case InputJPEG:
		img, err = jpeg.Decode(bytes.NewReader(data))
	default:
		return nil, errorf(KindUnrecognizedFormat, op, "cannot decode %s input", in)
	}
	if err != nil {
		return nil, newError(KindDecode, op, err)
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, errorf(KindDecode, op, "empty image %dx%d", b.Dx(), b.Dy())
	}
	return img, nil
}

// toBuffer copies img into a packed buffer with ch channels. Alpha is
// un-premultiplied; converting to RGB drops it without compositing.
func toBuffer(img image.Image, ch Channels) *ImageBuffer {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := NewImageBuffer(w, h, ch)
	n := int(ch)

	switch src := img.(type) {
	case *image.NRGBA:
		for y := 0; y < h; y++ {
			start := src.PixOffset(b.Min.X, b.Min.Y+y)
			row := src.Pix[start : start+w*4]
			if ch == RGBA {
				copy(dst.Pix[y*w*4:(y+1)*w*4], row)
				continue
			}
			off := y * w * 3
			for x := 0; x < w; x++ {
				copy(dst.Pix[off+x*3:off+x*3+3], row[x*4:x*4+3])
			}
		}
	case *image.YCbCr:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				yi := src.YOffset(b.Min.X+x, b.Min.Y+y)
				ci := src.COffset(b.Min.X+x, b.Min.Y+y)
				r, g, bl := color.YCbCrToRGB(src.Y[yi], src.Cb[ci], src.Cr[ci])
				off := (y*w + x) * n
				dst.Pix[off], dst.Pix[off+1], dst.Pix[off+2] = r, g, bl
				if n == 4 {
					dst.Pix[off+3] = 0xff
				}
			}
		}
	case *image.Gray:
		for y := 0; y < h; y++ {
			start := src.PixOffset(b.Min.X, b.Min.Y+y)
			for x := 0; x < w; x++ {
				v := src.Pix[start+x]
				off := (y*w + x) * n
				dst.Pix[off], dst.Pix[off+1], dst.Pix[off+2] = v, v, v
				if n == 4 {
					dst.Pix[off+3] = 0xff
				}
			}
		}
	default:
		// RGBA, paletted, 16-bit and CMYK all go through the color model.
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
				off := (y*w + x) * n
				dst.Pix[off], dst.Pix[off+1], dst.Pix[off+2] = c.R, c.G, c.B
				if n == 4 {
					dst.Pix[off+3] = c.A
				}
			}
		}
	}
	return dst
}
