package squeeze

import "bytes"

var (
	pngSignature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	jpegSOI      = []byte{0xFF, 0xD8, 0xFF}
)

// Sniff classifies data by its magic bytes. Buffers shorter than 8 bytes are
// rejected even when they start with a JPEG marker.
func Sniff(data []byte) (InputFormat, error) {
	if len(data) < len(pngSignature) {
		return InputUnknown, errorf(KindUnrecognizedFormat, "sniff", "input is %d bytes, need at least %d", len(data), len(pngSignature))
	}
	switch {
	case bytes.HasPrefix(data, pngSignature):
		return InputPNG, nil
	case bytes.HasPrefix(data, jpegSOI):
		return InputJPEG, nil
	default:
		return InputUnknown, errorf(KindUnrecognizedFormat, "sniff", "no PNG or JPEG signature in % x", data[:len(pngSignature)])
	}
}
