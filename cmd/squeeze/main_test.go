package main

import (
	"bytes"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shamspias/squeeze"
	"github.com/shamspias/squeeze/internal/config"
)

func resetFlags(t *testing.T) {
	t.Helper()
	reset := func() {
		configPath, debug = "", false
		format, quality, algorithm = "", 0, ""
		maxWidth, maxHeight, outDir = 0, 0, ""
	}
	reset()
	t.Cleanup(reset)
}

func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func quietConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "squeeze.yaml")
	content := "compression:\n  default_quality: 70\n  max_concurrent_jobs: 2\nlogging:\n  level: error\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// ── Helpers ─────────────────────────────────────────────────────────────────

func TestOutputPath(t *testing.T) {
	tests := []struct {
		input string
		f     squeeze.Format
		want  string
	}{
		{"photo.jpg", squeeze.Auto, "photo_compressed.jpg"},
		{"photo.jpg", squeeze.PNG, "photo_compressed.png"},
		{"dir/shot.PNG", squeeze.JPEG, "dir/shot_compressed.jpg"},
		{"noext", squeeze.Auto, "noext_compressed"},
		{"a.b.png", squeeze.WebP, "a.b_compressed.webp"},
	}
	for _, tt := range tests {
		if got := outputPath(tt.input, tt.f); got != tt.want {
			t.Errorf("outputPath(%q, %v) = %q, want %q", tt.input, tt.f, got, tt.want)
		}
	}
}

func TestBuildRequestUsesDefaults(t *testing.T) {
	resetFlags(t)
	defaults := config.Default().Compression
	defaults.DefaultFormat = "png"

	req, err := buildRequest(defaults)
	if err != nil {
		t.Fatalf("buildRequest: %v", err)
	}
	if req.Format != squeeze.PNG || req.Quality != defaults.DefaultQuality {
		t.Errorf("request = %+v", req)
	}
	if req.Algorithm != squeeze.MozJPEGLike {
		t.Errorf("algorithm = %v", req.Algorithm)
	}
	if req.Bounds != nil {
		t.Errorf("bounds = %+v, want nil", req.Bounds)
	}
}

func TestBuildRequestFlagsOverride(t *testing.T) {
	resetFlags(t)
	format, quality, algorithm = "jpeg", 35, "fast-jpeg"
	maxWidth = 640

	req, err := buildRequest(config.Default().Compression)
	if err != nil {
		t.Fatalf("buildRequest: %v", err)
	}
	if req.Format != squeeze.JPEG || req.Quality != 35 || req.Algorithm != squeeze.FastJPEG {
		t.Errorf("request = %+v", req)
	}
	if req.Bounds == nil || req.Bounds.MaxWidth != 640 || req.Bounds.MaxHeight != 0 {
		t.Errorf("bounds = %+v", req.Bounds)
	}
}

func TestBuildRequestRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		apply func()
	}{
		{"quality", func() { quality = 150 }},
		{"format", func() { format = "gif" }},
		{"bounds", func() { maxHeight = -5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags(t)
			tt.apply()
			if _, err := buildRequest(config.Default().Compression); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestBatchItems(t *testing.T) {
	items := batchItems([]string{"in/a.png", "b.jpg"}, "out", squeeze.JPEG)
	if len(items) != 2 {
		t.Fatalf("got %d items", len(items))
	}
	if items[0].Src != "in/a.png" || items[0].Dst != filepath.Join("out", "a_compressed.jpg") {
		t.Errorf("item 0 = %+v", items[0])
	}
	if items[1].Dst != filepath.Join("out", "b_compressed.jpg") {
		t.Errorf("item 1 = %+v", items[1])
	}
}

func TestHumanBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{3 * 1024 * 1024, "3.0 MB"},
	}
	for _, tt := range tests {
		if got := humanBytes(tt.in); got != tt.want {
			t.Errorf("humanBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// ── Commands ────────────────────────────────────────────────────────────────

func TestCompressCommand(t *testing.T) {
	resetFlags(t)
	dir := t.TempDir()
	src := writePNG(t, dir, "input.png", 64, 48)

	out, err := execute(t, "compress", "--config", quietConfig(t), "--format", "jpeg", "--max-width", "32", src)
	if err != nil {
		t.Fatalf("compress: %v\n%s", err, out)
	}

	dst := filepath.Join(dir, "input_compressed.jpg")
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("output missing: %v", err)
	}
	ic, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if name != "jpeg" {
		t.Errorf("output format = %s, want jpeg", name)
	}
	if ic.Width != 32 || ic.Height != 24 {
		t.Errorf("output = %dx%d, want 32x24", ic.Width, ic.Height)
	}
	if !strings.Contains(out, "saved as "+dst) {
		t.Errorf("output does not name destination:\n%s", out)
	}
}

func TestCompressCommandRejectsGarbage(t *testing.T) {
	resetFlags(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "junk.png")
	if err := os.WriteFile(src, make([]byte, 100), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := execute(t, "compress", "--config", quietConfig(t), src); err == nil {
		t.Fatal("expected error for unrecognized input")
	}
	if _, err := os.Stat(filepath.Join(dir, "junk_compressed.png")); !os.IsNotExist(err) {
		t.Errorf("output should not exist, stat err = %v", err)
	}
}

func TestBatchCommand(t *testing.T) {
	resetFlags(t)
	dir := t.TempDir()
	a := writePNG(t, dir, "a.png", 20, 20)
	b := writePNG(t, dir, "b.png", 30, 10)
	dst := filepath.Join(dir, "out")

	out, err := execute(t, "batch", "--config", quietConfig(t), "--out", dst, a, b)
	if err != nil {
		t.Fatalf("batch: %v\n%s", err, out)
	}
	for _, name := range []string{"a_compressed.png", "b_compressed.png"} {
		if _, err := os.Stat(filepath.Join(dst, name)); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
	if !strings.Contains(out, "Batch: 2/2 succeeded") {
		t.Errorf("missing summary:\n%s", out)
	}
}

func TestInspectCommand(t *testing.T) {
	resetFlags(t)
	src := writePNG(t, t.TempDir(), "in.png", 40, 25)

	out, err := execute(t, "inspect", "--config", quietConfig(t), src)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !strings.Contains(out, "dimensions: 40x25") {
		t.Errorf("unexpected report:\n%s", out)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	resetFlags(t)
	path := filepath.Join(t.TempDir(), "generated.yaml")

	if out, err := execute(t, "config", "init", "--config", quietConfig(t), path); err != nil {
		t.Fatalf("config init: %v\n%s", err, out)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("sample not written: %v", err)
	}

	out, err := execute(t, "config", "show", "--config", path)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	for _, want := range []string{"default_quality: 80", "max_concurrent_jobs: 10", "level: info"} {
		if !strings.Contains(out, want) {
			t.Errorf("config show missing %q:\n%s", want, out)
		}
	}
}
