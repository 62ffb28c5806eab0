package openai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/skinlens/backend/internal/domain"
)

var stringFields = []string{"purpose", "warnings", "skin_types"}

// StripFences removes markdown code fence markers the model sometimes adds despite instructions
func StripFences(content string) string {
	content = strings.ReplaceAll(content, "```json", "")
	content = strings.ReplaceAll(content, "```", "")
	return strings.TrimSpace(content)
}

// ParseRecord strictly decodes a model completion into a record for ingredient.
// Every deviation from the schema is reported as domain.ErrStructuring and no
// partial record is returned.
func ParseRecord(ingredient, content string) (*domain.IngredientRecord, error) {
	cleaned := StripFences(content)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return nil, fmt.Errorf("%w: response is not a JSON object: %v", domain.ErrStructuring, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: response is null", domain.ErrStructuring)
	}

	values := make(map[string]string, len(stringFields))
	for _, key := range stringFields {
		raw, err := required(fields, key)
		if err != nil {
			return nil, err
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: %s must be a string", domain.ErrStructuring, key)
		}
		values[key] = s
	}

	raw, err := required(fields, "safety_level")
	if err != nil {
		return nil, err
	}
	level, err := parseSafetyLevel(raw)
	if err != nil {
		return nil, err
	}

	record := &domain.IngredientRecord{
		Ingredient:  ingredient,
		Purpose:     values["purpose"],
		SafetyLevel: level,
		Warnings:    values["warnings"],
		SkinTypes:   values["skin_types"],
	}
	if err := record.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStructuring, err)
	}
	return record, nil
}

func required(fields map[string]json.RawMessage, key string) (json.RawMessage, error) {
	raw, ok := fields[key]
	if !ok {
		return nil, fmt.Errorf("%w: missing key %q", domain.ErrStructuring, key)
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, fmt.Errorf("%w: key %q is null", domain.ErrStructuring, key)
	}
	return raw, nil
}

// parseSafetyLevel accepts only integral JSON numbers; quoted numbers are rejected
func parseSafetyLevel(raw json.RawMessage) (int, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, fmt.Errorf("%w: safety_level must be a number", domain.ErrStructuring)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: safety_level must be an integer, got %v", domain.ErrStructuring, f)
	}
	if f < domain.MinSafetyLevel || f > domain.MaxSafetyLevel {
		return 0, fmt.Errorf("%w: safety_level %v out of range %d-%d",
			domain.ErrStructuring, f, domain.MinSafetyLevel, domain.MaxSafetyLevel)
	}
	return int(f), nil
}
