package squeeze

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

// ── Type Tests ──────────────────────────────────────────────────────────────

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		ok   bool
	}{
		{"jpeg", JPEG, true},
		{"JPG", JPEG, true},
		{" png ", PNG, true},
		{"WebP", WebP, true},
		{"", Auto, true},
		{"auto", Auto, true},
		{"gif", Auto, false},
		{"tiff", Auto, false},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParseFormat(%q) = %s, %v", tt.in, got, err)
		}
		if err != nil && !errors.Is(err, ErrUnsupportedOutputFormat) {
			t.Errorf("ParseFormat(%q) error kind %s", tt.in, KindOf(err))
		}
	}
}

func TestFormatStrings(t *testing.T) {
	tests := []struct {
		f              Format
		name, ext, mime string
	}{
		{JPEG, "jpeg", ".jpg", "image/jpeg"},
		{PNG, "png", ".png", "image/png"},
		{WebP, "webp", ".webp", "image/webp"},
		{Auto, "auto", "", "application/octet-stream"},
	}
	for _, tt := range tests {
		if tt.f.String() != tt.name || tt.f.Extension() != tt.ext || tt.f.ContentType() != tt.mime {
			t.Errorf("%d: %s %s %s", tt.f, tt.f, tt.f.Extension(), tt.f.ContentType())
		}
	}
}

func TestResolveAlgorithm(t *testing.T) {
	tests := []struct {
		name  string
		want  Algorithm
		known bool
	}{
		{"mozjpeg-like", MozJPEGLike, true},
		{"mozjpeg", MozJPEGLike, true},
		{"fast-jpeg", FastJPEG, true},
		{"jpeg-encoder", FastJPEG, true},
		{"PNG-Quantized", QuantizedPNG, true},
		{"", MozJPEGLike, false},
		{"guetzli", MozJPEGLike, false},
	}
	for _, tt := range tests {
		got, known := ResolveAlgorithm(tt.name)
		if got != tt.want || known != tt.known {
			t.Errorf("ResolveAlgorithm(%q) = %s, %v", tt.name, got, known)
		}
	}
	for _, name := range AlgorithmNames() {
		alg, known := ResolveAlgorithm(name)
		if !known || alg.String() != name {
			t.Errorf("canonical name %q does not round trip", name)
		}
	}
}

func TestNewRequest(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		quality int
		bounds  *Bounds
		kind    Kind
	}{
		{"ok", "jpeg", 80, nil, KindUnknown},
		{"ok bounds", "png", 1, &Bounds{10, 0}, KindUnknown},
		{"quality zero", "jpeg", 0, nil, KindInvalidRequest},
		{"quality high", "jpeg", 101, nil, KindInvalidRequest},
		{"negative bounds", "jpeg", 80, &Bounds{-1, 10}, KindInvalidRequest},
		{"unknown format", "bmp", 80, nil, KindUnsupportedOutputFormat},
	}
	for _, tt := range tests {
		_, err := NewRequest(tt.format, tt.quality, "", tt.bounds)
		if KindOf(err) != tt.kind {
			t.Errorf("%s: got %v, want kind %s", tt.name, err, tt.kind)
		}
	}
}

func TestRequestPlan(t *testing.T) {
	tests := []struct {
		req    Request
		in     InputFormat
		format Format
		alg    Algorithm
		notes  int
	}{
		{Request{Format: Auto}, InputPNG, PNG, QuantizedPNG, 0},
		{Request{Format: Auto}, InputJPEG, JPEG, MozJPEGLike, 0},
		{Request{Format: JPEG, Algorithm: FastJPEG}, InputPNG, JPEG, FastJPEG, 0},
		{Request{Format: JPEG, Algorithm: QuantizedPNG}, InputPNG, JPEG, MozJPEGLike, 1},
		{Request{Format: PNG, Algorithm: FastJPEG}, InputJPEG, PNG, QuantizedPNG, 1},
		{Request{Format: JPEG, AlgorithmName: "nope"}, InputJPEG, JPEG, MozJPEGLike, 1},
		{Request{Format: WebP}, InputJPEG, WebP, MozJPEGLike, 0},
	}
	for i, tt := range tests {
		format, alg, notes := tt.req.plan(tt.in)
		if format != tt.format || alg != tt.alg || len(notes) != tt.notes {
			t.Errorf("case %d: got %s/%s %q", i, format, alg, notes)
		}
	}
}

func TestHumanBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 << 20, "5.0 MB"},
	}
	for _, tt := range tests {
		if got := humanBytes(tt.in); got != tt.want {
			t.Errorf("humanBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// ── Error Tests ─────────────────────────────────────────────────────────────

func TestErrorKinds(t *testing.T) {
	cause := io.ErrUnexpectedEOF
	err := fmt.Errorf("wrapped: %w", newError(KindDecode, "decode", cause))

	if !errors.Is(err, ErrDecode) {
		t.Fatal("errors.Is should match the decode sentinel")
	}
	if errors.Is(err, ErrEncode) {
		t.Fatal("errors.Is matched the wrong kind")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatal("cause should be reachable through Unwrap")
	}
	if KindOf(err) != KindDecode {
		t.Fatalf("KindOf = %s", KindOf(err))
	}
	if KindOf(io.EOF) != KindUnknown || KindOf(nil) != KindUnknown {
		t.Fatal("foreign errors should have unknown kind")
	}

	var e *Error
	if !errors.As(err, &e) || e.Op != "decode" {
		t.Fatalf("errors.As: %+v", e)
	}
	if msg := err.Error(); !strings.Contains(msg, "decode error") || !strings.Contains(msg, "unexpected EOF") {
		t.Fatalf("message %q", msg)
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{&Error{Kind: KindNotImplemented}, "squeeze: not implemented"},
		{&Error{Kind: KindEncode, Op: "fast-jpeg"}, "squeeze: fast-jpeg: encode error"},
		{&Error{Kind: KindQuantization, Err: io.EOF}, "squeeze: quantization failure: EOF"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}
	for k := KindUnrecognizedFormat; k <= KindInvalidRequest; k++ {
		if k.String() == "unknown" {
			t.Errorf("kind %d has no name", k)
		}
	}
}
