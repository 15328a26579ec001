package squeeze

import (
	"image/color"
	"sync"
	"unsafe"
)

// ZeroCopyEligible reports whether a packed RGBA byte slice can be viewed in
// place as []color.NRGBA, the quantizer's pixel type. The answer depends only
// on type layout and is computed once per process.
var ZeroCopyEligible = sync.OnceValue(checkNRGBALayout)

func checkNRGBALayout() bool {
	var px color.NRGBA
	if unsafe.Sizeof(px) != 4 || unsafe.Alignof(px) != 1 {
		return false
	}
	if unsafe.Offsetof(px.R) != 0 || unsafe.Offsetof(px.G) != 1 ||
		unsafe.Offsetof(px.B) != 2 || unsafe.Offsetof(px.A) != 3 {
		return false
	}

	// Write a known byte pattern and read it back through the struct.
	raw := [4]byte{0x12, 0x34, 0x56, 0x78}
	got := *(*color.NRGBA)(unsafe.Pointer(&raw))
	return got == color.NRGBA{R: 0x12, G: 0x34, B: 0x56, A: 0x78}
}

// nrgbaPixels returns the first n pixels of a packed RGBA slice as
// []color.NRGBA. When allowZeroCopy is set and the layout check passes the
// result aliases pix; otherwise it is a copy. This is the only place the
// reinterpretation happens.
func nrgbaPixels(pix []byte, n int, allowZeroCopy bool) ([]color.NRGBA, bool) {
	if len(pix) < n*4 {
		n = len(pix) / 4
	}
	if n == 0 {
		return nil, false
	}
	if allowZeroCopy && ZeroCopyEligible() {
		return unsafe.Slice((*color.NRGBA)(unsafe.Pointer(unsafe.SliceData(pix))), n), true
	}
	out := make([]color.NRGBA, n)
	for i := range out {
		o := i * 4
		out[i] = color.NRGBA{R: pix[o], G: pix[o+1], B: pix[o+2], A: pix[o+3]}
	}
	return out, false
}
