package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/skinlens/backend/internal/domain"
)

// Extraction is the OCR text of an uploaded label and the names parsed from it
type Extraction struct {
	Text        string   `json:"text"`
	Ingredients []string `json:"ingredients"`
}

// IngredientExtractor turns an uploaded label photo into ingredient names
type IngredientExtractor struct {
	engine domain.OCREngine
	labels *LabelPreprocessor
}

// NewIngredientExtractor creates an extractor on top of an OCR engine
func NewIngredientExtractor(engine domain.OCREngine, labels *LabelPreprocessor) *IngredientExtractor {
	if labels == nil {
		labels = NewLabelPreprocessor(false)
	}
	return &IngredientExtractor{engine: engine, labels: labels}
}

// Extract validates the image, runs OCR and normalizes the recognized text.
// Any failure is fatal for the submission and wraps domain.ErrOCRExtraction.
func (e *IngredientExtractor) Extract(ctx context.Context, img []byte) (*Extraction, error) {
	if len(img) == 0 {
		return nil, fmt.Errorf("%w: empty image", domain.ErrOCRExtraction)
	}

	format, err := imageFormat(img)
	if err != nil {
		return nil, err
	}

	raw, err := e.engine.Recognize(ctx, img)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrOCRExtraction, e.engine.Name(), err)
	}

	text := e.labels.Clean(raw)
	if text == "" {
		return nil, fmt.Errorf("%w: no text recognized in image", domain.ErrOCRExtraction)
	}

	ingredients := Normalize(text)

	log.Info().
		Str("engine", e.engine.Name()).
		Str("format", format).
		Int("ingredients", len(ingredients)).
		Msg("extracted ingredients from image")

	return &Extraction{Text: text, Ingredients: ingredients}, nil
}

// imageFormat checks that img is a decodable JPEG or PNG
func imageFormat(img []byte) (string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return "", fmt.Errorf("%w: unreadable image: %v", domain.ErrOCRExtraction, err)
	}
	format = strings.ToLower(format)
	if format != "jpeg" && format != "png" {
		return "", fmt.Errorf("%w: unsupported image format %q", domain.ErrOCRExtraction, format)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return "", fmt.Errorf("%w: image has no pixels", domain.ErrOCRExtraction)
	}
	return format, nil
}
