package usecase

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

// LabelPreprocessor tidies raw OCR output of a product label before it is normalized
type LabelPreprocessor struct {
	enableDebugLogging bool
}

// Compiled regex patterns for label cleanup
var (
	// Matches a leading heading such as "Ingredients:", "INGREDIENTS / INGRÉDIENTS :" or "INCI:"
	labelHeadingPattern = regexp.MustCompile(`(?i)^\s*(?:ingr[eé]dients?|inci)(?:\s*/\s*ingr[eé]dients?)?\s*:\s*`)

	// Matches words hyphenated across a line break, e.g. "Sodium Hyalu-\nronate"
	hyphenatedBreakPattern = regexp.MustCompile(`(\p{L})-\s*\r?\n\s*(\p{L})`)

	// Matches spaces around a comma
	commaSpacingPattern = regexp.MustCompile(`\s*,\s*`)

	whitespacePattern = regexp.MustCompile(`\s+`)
)

// NewLabelPreprocessor creates a new label preprocessor
func NewLabelPreprocessor(enableDebugLogging bool) *LabelPreprocessor {
	return &LabelPreprocessor{
		enableDebugLogging: enableDebugLogging,
	}
}

// Clean strips the label heading, rejoins hyphenated line breaks, flattens the
// remaining line breaks into spaces and drops the terminal period.
// Commas are never added or removed.
func (p *LabelPreprocessor) Clean(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	original := text

	// Step 1: Drop the heading printed before the list
	cleaned := labelHeadingPattern.ReplaceAllString(text, "")

	// Step 2: Rejoin words split across lines
	cleaned = hyphenatedBreakPattern.ReplaceAllString(cleaned, "$1$2")

	// Step 3: Flatten line breaks and normalize whitespace
	cleaned = whitespacePattern.ReplaceAllString(cleaned, " ")
	cleaned = commaSpacingPattern.ReplaceAllString(cleaned, ", ")
	cleaned = strings.TrimSpace(cleaned)

	// Step 4: Labels usually end the list with a period
	cleaned = strings.TrimSuffix(cleaned, ".")

	if p.enableDebugLogging {
		log.Debug().Str("input", original).Str("output", cleaned).Msg("cleaned label text")
	}

	return strings.TrimSpace(cleaned)
}
