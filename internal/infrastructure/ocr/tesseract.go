package ocr

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"
	"github.com/rs/zerolog/log"
)

// Config holds Tesseract recognition options
type Config struct {
	Languages   []string
	PageSegMode int
}

// TesseractEngine implements domain.OCREngine using the gosseract client
type TesseractEngine struct {
	clientFactory func() *gosseract.Client
	languages     []string
	pageSegMode   int
}

var lookPath = exec.LookPath

// Available reports whether a Tesseract install is present on this host
func Available() bool {
	_, err := lookPath("tesseract")
	return err == nil
}

// NewTesseractEngine constructs a Tesseract-backed OCR engine
func NewTesseractEngine(cfg Config) *TesseractEngine {
	return &TesseractEngine{
		clientFactory: gosseract.NewClient,
		languages:     cfg.Languages,
		pageSegMode:   cfg.PageSegMode,
	}
}

func (e *TesseractEngine) Name() string { return "tesseract" }

// Recognize returns the plain text Tesseract finds in an encoded image.
// Tesseract calls are not interruptible, so ctx is only checked before and after.
func (e *TesseractEngine) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	start := time.Now()
	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	if len(e.languages) > 0 {
		if err := c.SetLanguage(e.languages...); err != nil {
			return "", fmt.Errorf("set languages: %w", err)
		}
	}
	if e.pageSegMode > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(e.pageSegMode)); err != nil {
			return "", fmt.Errorf("set page segmentation mode: %w", err)
		}
	}

	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	log.Debug().
		Str("engine", e.Name()).
		Int("bytes", len(image)).
		Int("chars", len(text)).
		Dur("duration", time.Since(start)).
		Msg("recognized image text")

	return strings.TrimSpace(text), nil
}
