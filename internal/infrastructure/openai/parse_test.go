package openai

import (
	"testing"

	"github.com/skinlens/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validBody = `{"purpose":"Humectant","safety_level":9,"warnings":"None known","skin_types":"All skin types"}`

func TestStripFences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: validBody, want: validBody},
		{name: "json fence", input: "```json\n" + validBody + "\n```", want: validBody},
		{name: "bare fence", input: "```\n" + validBody + "\n```", want: validBody},
		{name: "surrounding whitespace", input: "  \n" + validBody + "\n\t", want: validBody},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFences(tt.input))
		})
	}
}

func TestParseRecord_Valid(t *testing.T) {
	tests := []struct {
		name       string
		ingredient string
		content    string
		wantLevel  int
	}{
		{name: "plain object", ingredient: "Glycerin", content: validBody, wantLevel: 9},
		{name: "fenced object", ingredient: "Glycerin", content: "```json\n" + validBody + "\n```", wantLevel: 9},
		{
			name:       "integral float",
			ingredient: "Water",
			content:    `{"purpose":"Solvent","safety_level":10.0,"warnings":"","skin_types":"All"}`,
			wantLevel:  10,
		},
		{
			name:       "extra keys ignored",
			ingredient: "Parfum",
			content:    `{"purpose":"Fragrance","safety_level":4,"warnings":"Allergen","skin_types":"Not sensitive","source":"INCIDecoder"}`,
			wantLevel:  4,
		},
		{
			name:       "ingredient spelling preserved",
			ingredient: "  Sodium Laureth Sulfate ",
			content:    `{"purpose":"Surfactant","safety_level":6,"warnings":"Can irritate","skin_types":"Oily"}`,
			wantLevel:  6,
		},
		{
			name:       "model ingredient key is overridden",
			ingredient: "Niacinamide",
			content:    `{"ingredient":"Vitamin B3","purpose":"Brightening","safety_level":9,"warnings":"","skin_types":"All"}`,
			wantLevel:  9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := ParseRecord(tt.ingredient, tt.content)

			require.NoError(t, err)
			require.NotNil(t, record)
			assert.Equal(t, tt.ingredient, record.Ingredient)
			assert.Equal(t, tt.wantLevel, record.SafetyLevel)
		})
	}
}

func TestParseRecord_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "empty", content: ""},
		{name: "prose", content: "Glycerin is a safe humectant."},
		{name: "array", content: `[` + validBody + `]`},
		{name: "null", content: "null"},
		{name: "trailing prose", content: validBody + " Hope this helps!"},
		{name: "truncated", content: `{"purpose":"Humectant","safety_level":9`},
		{name: "missing purpose", content: `{"safety_level":9,"warnings":"","skin_types":"All"}`},
		{name: "missing safety_level", content: `{"purpose":"x","warnings":"","skin_types":"All"}`},
		{name: "missing warnings", content: `{"purpose":"x","safety_level":9,"skin_types":"All"}`},
		{name: "missing skin_types", content: `{"purpose":"x","safety_level":9,"warnings":""}`},
		{name: "null warnings", content: `{"purpose":"x","safety_level":9,"warnings":null,"skin_types":"All"}`},
		{name: "null safety_level", content: `{"purpose":"x","safety_level":null,"warnings":"","skin_types":"All"}`},
		{name: "numeric purpose", content: `{"purpose":5,"safety_level":9,"warnings":"","skin_types":"All"}`},
		{name: "list skin_types", content: `{"purpose":"x","safety_level":9,"warnings":"","skin_types":["dry","oily"]}`},
		{name: "quoted safety_level", content: `{"purpose":"x","safety_level":"9","warnings":"","skin_types":"All"}`},
		{name: "fractional safety_level", content: `{"purpose":"x","safety_level":7.5,"warnings":"","skin_types":"All"}`},
		{name: "safety_level zero", content: `{"purpose":"x","safety_level":0,"warnings":"","skin_types":"All"}`},
		{name: "safety_level eleven", content: `{"purpose":"x","safety_level":11,"warnings":"","skin_types":"All"}`},
		{name: "negative safety_level", content: `{"purpose":"x","safety_level":-3,"warnings":"","skin_types":"All"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := ParseRecord("Glycerin", tt.content)

			assert.Nil(t, record)
			assert.ErrorIs(t, err, domain.ErrStructuring)
		})
	}
}
