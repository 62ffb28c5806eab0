package ocr

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os/exec"
	"strings"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// ensureTesseractAvailable checks that the tesseract binary is reachable.
func ensureTesseractAvailable(t *testing.T) {
	t.Helper()
	if !Available() {
		t.Skip("tesseract not installed in PATH")
	}
}

func TestAvailable(t *testing.T) {
	orig := lookPath
	t.Cleanup(func() { lookPath = orig })

	lookPath = func(file string) (string, error) { return "/usr/bin/" + file, nil }
	if !Available() {
		t.Error("Available() = false, want true when tesseract is on PATH")
	}

	lookPath = func(file string) (string, error) { return "", exec.ErrNotFound }
	if Available() {
		t.Error("Available() = true, want false when tesseract is missing")
	}
}

// renderLabel draws text onto a white PNG, scaled up so Tesseract can read the bitmap font
func renderLabel(t *testing.T, text string) []byte {
	t.Helper()

	small := image.NewRGBA(image.Rect(0, 0, 8*len(text)+20, 30))
	draw.Draw(small, small.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  small,
		Src:  image.Black,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(10, 20),
	}
	d.DrawString(text)

	const scale = 4
	b := small.Bounds()
	big := image.NewRGBA(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
	for y := 0; y < big.Bounds().Dy(); y++ {
		for x := 0; x < big.Bounds().Dx(); x++ {
			big.Set(x, y, small.At(x/scale, y/scale))
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, big); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestTesseractEngineName(t *testing.T) {
	e := &TesseractEngine{}
	if e.Name() != "tesseract" {
		t.Fatalf("Name() = %q, want tesseract", e.Name())
	}
}

func TestTesseractEngineRecognize(t *testing.T) {
	ensureTesseractAvailable(t)

	engine := NewTesseractEngine(Config{Languages: []string{"eng"}, PageSegMode: 7})

	text, err := engine.Recognize(context.Background(), renderLabel(t, "WATER, GLYCERIN"))
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}

	got := strings.ToLower(text)
	if !strings.Contains(got, "water") || !strings.Contains(got, "glycerin") {
		t.Fatalf("unexpected OCR output: %q", text)
	}
}

func TestTesseractEngineRecognizeCancelled(t *testing.T) {
	engine := NewTesseractEngine(Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := engine.Recognize(ctx, []byte("unused")); err == nil {
		t.Fatal("Recognize() error = nil, want context error")
	}
}
