package openai

import (
	"strings"
	"text/template"
)

var recordPrompt = template.Must(template.New("record").Parse(
	`Based on the following information about the cosmetic ingredient {{.Ingredient}},
provide a detailed analysis including its purpose, safety level, and any warnings.
Focus on information from both CosmeticsInfo.org and INCIDecoder sources.

Context: {{.Context}}

Return ONLY a JSON object with these exact keys (no additional text or explanation):
{
    "purpose": "The main functions and uses of the ingredient",
    "safety_level": A number from 1-10 (1 being unsafe, 10 being very safe),
    "warnings": "Any potential risks or allergen warnings",
    "skin_types": "What skin types this ingredient is suitable/unsuitable for"
}

Ensure the response is valid JSON with no markdown formatting.`))

// BuildPrompt renders the structuring prompt for an ingredient and its passages
func BuildPrompt(ingredient string, passages []string) (string, error) {
	var sb strings.Builder
	err := recordPrompt.Execute(&sb, struct {
		Ingredient string
		Context    string
	}{
		Ingredient: ingredient,
		Context:    strings.Join(passages, "\n"),
	})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}
