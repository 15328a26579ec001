package squeeze

// Orient returns buf transformed so that it displays upright for orientation
// o. Transforms are exact pixel moves, never resampling, and buf is never
// modified. Code 1 returns buf itself. Unknown codes return buf and false.
func Orient(buf *ImageBuffer, o Orientation) (*ImageBuffer, bool) {
	switch o {
	case OrientNormal:
		return buf, true
	case OrientFlipH:
		return flipHorizontal(buf), true
	case OrientRotate180:
		return rotate180(buf), true
	case OrientFlipV:
		return flipVertical(buf), true
	case OrientTranspose:
		return flipHorizontal(rotate270CW(buf)), true
	case OrientRotate90CW:
		return rotate90CW(buf), true
	case OrientTransverse:
		return flipHorizontal(rotate90CW(buf)), true
	case OrientRotate270CW:
		return rotate270CW(buf), true
	default:
		return buf, false
	}
}

// rotate90CW rotates buf 90° clockwise.
func rotate90CW(src *ImageBuffer) *ImageBuffer {
	w, h, ch := src.Width, src.Height, int(src.Channels)
	dst := NewImageBuffer(h, w, src.Channels)
	dstStride := dst.Stride()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			srcOff := (y*w + x) * ch
			dstOff := x*dstStride + (h-1-y)*ch
			copy(dst.Pix[dstOff:dstOff+ch], src.Pix[srcOff:srcOff+ch])
		}
	}
	return dst
}

// rotate180 rotates buf 180°.
func rotate180(src *ImageBuffer) *ImageBuffer {
	w, h, ch := src.Width, src.Height, int(src.Channels)
	dst := NewImageBuffer(w, h, src.Channels)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			srcOff := (y*w + x) * ch
			dstOff := ((h-1-y)*w + (w - 1 - x)) * ch
			copy(dst.Pix[dstOff:dstOff+ch], src.Pix[srcOff:srcOff+ch])
		}
	}
	return dst
}

// rotate270CW rotates buf 270° clockwise (90° counter-clockwise).
func rotate270CW(src *ImageBuffer) *ImageBuffer {
	w, h, ch := src.Width, src.Height, int(src.Channels)
	dst := NewImageBuffer(h, w, src.Channels)
	dstStride := dst.Stride()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			srcOff := (y*w + x) * ch
			dstOff := (w-1-x)*dstStride + y*ch
			copy(dst.Pix[dstOff:dstOff+ch], src.Pix[srcOff:srcOff+ch])
		}
	}
	return dst
}

// flipHorizontal mirrors buf left to right.
func flipHorizontal(src *ImageBuffer) *ImageBuffer {
	w, h, ch := src.Width, src.Height, int(src.Channels)
	dst := NewImageBuffer(w, h, src.Channels)
	for y := 0; y < h; y++ {
		row := y * w
		for x := 0; x < w; x++ {
			srcOff := (row + x) * ch
			dstOff := (row + w - 1 - x) * ch
			copy(dst.Pix[dstOff:dstOff+ch], src.Pix[srcOff:srcOff+ch])
		}
	}
	return dst
}

// flipVertical mirrors buf top to bottom.
func flipVertical(src *ImageBuffer) *ImageBuffer {
	stride, h := src.Stride(), src.Height
	dst := NewImageBuffer(src.Width, h, src.Channels)
	for y := 0; y < h; y++ {
		copy(dst.Pix[(h-1-y)*stride:(h-y)*stride], src.Pix[y*stride:(y+1)*stride])
	}
	return dst
}
