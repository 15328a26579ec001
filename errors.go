package squeeze

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures so callers can map them to responses
// without parsing messages.
type Kind int

const (
	// KindUnknown is returned by KindOf for errors that did not come from
	// the pipeline.
	KindUnknown Kind = iota
	// KindUnrecognizedFormat means the input matched neither the PNG nor
	// the JPEG signature.
	KindUnrecognizedFormat
	// KindDecode means the bytes are not a valid image of the sniffed format.
	KindDecode
	// KindMetadataUnavailable means no usable EXIF block was found. It is
	// informational and never fails a request.
	KindMetadataUnavailable
	// KindQuantization means no palette could be built, even after the
	// relaxed retry.
	KindQuantization
	// KindEncode means an encoder rejected pixel data, which points at an
	// internal contract violation such as a scanline size mismatch.
	KindEncode
	// KindUnsupportedOutputFormat means the target format is unknown.
	KindUnsupportedOutputFormat
	// KindNotImplemented is returned for WebP output.
	KindNotImplemented
	// KindInvalidRequest means the request parameters are out of range.
	KindInvalidRequest
)

func (k Kind) String() string {
	switch k {
	case KindUnrecognizedFormat:
		return "unrecognized format"
	case KindDecode:
		return "decode error"
	case KindMetadataUnavailable:
		return "metadata unavailable"
	case KindQuantization:
		return "quantization failure"
	case KindEncode:
		return "encode error"
	case KindUnsupportedOutputFormat:
		return "unsupported output format"
	case KindNotImplemented:
		return "not implemented"
	case KindInvalidRequest:
		return "invalid request"
	default:
		return "unknown"
	}
}

// Error is the typed failure returned by every pipeline stage.
type Error struct {
	Kind Kind
	// Op is the pipeline stage that failed (sniff, metadata, decode, ...).
	Op  string
	Err error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("squeeze: %s: %v: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("squeeze: %v: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("squeeze: %s: %v", e.Op, e.Kind)
	default:
		return fmt.Sprintf("squeeze: %v", e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the sentinel values below by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrUnrecognizedFormat      = &Error{Kind: KindUnrecognizedFormat}
	ErrDecode                  = &Error{Kind: KindDecode}
	ErrMetadataUnavailable     = &Error{Kind: KindMetadataUnavailable}
	ErrQuantization            = &Error{Kind: KindQuantization}
	ErrEncode                  = &Error{Kind: KindEncode}
	ErrUnsupportedOutputFormat = &Error{Kind: KindUnsupportedOutputFormat}
	ErrNotImplemented          = &Error{Kind: KindNotImplemented}
	ErrInvalidRequest          = &Error{Kind: KindInvalidRequest}
)

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
