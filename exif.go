package squeeze

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// Orientation describes an EXIF orientation tag value.
type Orientation int

const (
	OrientNormal      Orientation = 1
	OrientFlipH       Orientation = 2
	OrientRotate180   Orientation = 3
	OrientFlipV       Orientation = 4
	OrientTranspose   Orientation = 5 // Rotate 270 CW + flip H
	OrientRotate90CW  Orientation = 6
	OrientTransverse  Orientation = 7 // Rotate 90 CW + flip H
	OrientRotate270CW Orientation = 8
)

// Valid reports whether o is one of the eight defined codes.
func (o Orientation) Valid() bool {
	return o >= OrientNormal && o <= OrientRotate270CW
}

// Describe names the transform that corrects o.
func (o Orientation) Describe() string {
	switch o {
	case OrientNormal:
		return "normal"
	case OrientFlipH:
		return "flip horizontal"
	case OrientRotate180:
		return "rotate 180°"
	case OrientFlipV:
		return "flip vertical"
	case OrientTranspose:
		return "rotate 270° clockwise, flip horizontal"
	case OrientRotate90CW:
		return "rotate 90° clockwise"
	case OrientTransverse:
		return "rotate 90° clockwise, flip horizontal"
	case OrientRotate270CW:
		return "rotate 270° clockwise"
	default:
		return "unknown"
	}
}

// Metadata is what the pipeline reads from a JPEG's EXIF block.
type Metadata struct {
	// Orientation is only meaningful when HasOrientation is set. It may hold
	// an out-of-range code, which the orchestrator leaves uncorrected.
	Orientation    Orientation
	HasOrientation bool
	Make           string
	Model          string
}

// Summary renders the human-readable EXIF summary. applied reports whether
// the orientation was corrected.
func (m Metadata) Summary(applied bool) string {
	var sb strings.Builder
	switch {
	case !m.HasOrientation:
		sb.WriteString("No EXIF orientation found")
	case applied:
		fmt.Fprintf(&sb, "Applied EXIF orientation: %d (%s)", m.Orientation, m.Orientation.Describe())
	default:
		fmt.Fprintf(&sb, "Unknown EXIF orientation: %d, left as-is", m.Orientation)
	}
	if m.Make != "" {
		fmt.Fprintf(&sb, ", Make: %s", m.Make)
	}
	if m.Model != "" {
		fmt.Fprintf(&sb, ", Model: %s", m.Model)
	}
	return sb.String()
}

const (
	summaryNoMetadata   = "No EXIF orientation found"
	summaryNotProcessed = "No EXIF processing"
)

var exifHeader = []byte("Exif\x00\x00")

// ReadMetadata extracts orientation and camera fields from a JPEG stream
// without decoding pixels. A missing or unreadable EXIF block returns an
// error of kind KindMetadataUnavailable.
func ReadMetadata(data []byte) (Metadata, error) {
	const op = "metadata"
	payload, err := findEXIF(data)
	if err != nil {
		return Metadata{}, newError(KindMetadataUnavailable, op, err)
	}

	x, err := exif.Decode(bytes.NewReader(payload))
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		return Metadata{}, newError(KindMetadataUnavailable, op, err)
	}

	var md Metadata
	if tag, err := x.Get(exif.Orientation); err == nil && tag.Type == tiff.DTShort {
		if v, err := tag.Int(0); err == nil {
			md.Orientation = Orientation(v)
			md.HasOrientation = true
		}
	}
	md.Make = stringField(x, exif.Make)
	md.Model = stringField(x, exif.Model)
	return md, nil
}

func stringField(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimRight(s, "\x00"))
}

// findEXIF walks JPEG marker segments up to the first scan and returns the
// TIFF payload of the first APP1 Exif segment.
func findEXIF(data []byte) ([]byte, error) {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return nil, fmt.Errorf("not a JPEG stream")
	}

	pos := 2
	for pos+4 <= len(data) {
		if data[pos] != 0xFF {
			return nil, fmt.Errorf("missing marker at offset %d", pos)
		}
		marker := data[pos+1]
		// Skip fill bytes.
		if marker == 0xFF {
			pos++
			continue
		}
		pos += 2

		switch {
		case marker == 0xD8 || marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7):
			// Standalone markers carry no length.
			continue
		case marker == 0xDA || marker == 0xD9:
			return nil, fmt.Errorf("no EXIF segment before image data")
		}

		segLen := int(binary.BigEndian.Uint16(data[pos:pos+2])) - 2
		pos += 2
		if segLen < 0 || pos+segLen > len(data) {
			return nil, fmt.Errorf("truncated segment 0x%02X at offset %d", marker, pos)
		}

		seg := data[pos : pos+segLen]
		if marker == 0xE1 && bytes.HasPrefix(seg, exifHeader) {
			if len(seg) < len(exifHeader)+8 {
				return nil, fmt.Errorf("EXIF segment too short")
			}
			return seg[len(exifHeader):], nil
		}
		pos += segLen
	}
	return nil, fmt.Errorf("no EXIF segment found")
}
