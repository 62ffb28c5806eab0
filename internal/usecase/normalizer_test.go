package usecase

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "splits and trims",
			raw:  "Water,  Glycerin , Niacinamide",
			want: []string{"Water", "Glycerin", "Niacinamide"},
		},
		{
			name: "preserves order and case",
			raw:  "Sodium Hyaluronate, AQUA, tocopherol",
			want: []string{"Sodium Hyaluronate", "AQUA", "tocopherol"},
		},
		{
			name: "keeps duplicates",
			raw:  "Water, Water",
			want: []string{"Water", "Water"},
		},
		{
			name: "passes through empty tokens from trailing comma",
			raw:  "Water, Glycerin,",
			want: []string{"Water", "Glycerin", ""},
		},
		{
			name: "passes through empty tokens from double comma",
			raw:  "Water,,Glycerin",
			want: []string{"Water", "", "Glycerin"},
		},
		{
			name: "empty input yields one empty token",
			raw:  "",
			want: []string{""},
		},
		{
			name: "trims tabs and newlines",
			raw:  "\tWater\n,\r\nGlycerin ",
			want: []string{"Water", "Glycerin"},
		},
		{
			name: "no comma is a single ingredient",
			raw:  "  Parfum  ",
			want: []string{"Parfum"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(tc.raw)
			if !equalStrings(got, tc.want) {
				t.Errorf("Normalize(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestNormalize_LengthAndTrimProperty(t *testing.T) {
	inputs := []string{
		"",
		",",
		",,,",
		" a , b ,c",
		"Aqua (Water), Glycerin, 1,2-Hexanediol, Parfum (Fragrance)",
		"  leading, trailing  ,  ",
		"Water\n, Glycerin\t, Niacinamide",
		strings.Repeat("x, ", 50),
	}

	for _, raw := range inputs {
		got := Normalize(raw)
		if want := strings.Count(raw, ",") + 1; len(got) != want {
			t.Errorf("len(Normalize(%q)) = %d, want %d", raw, len(got), want)
		}
		for i, token := range got {
			if token != strings.TrimSpace(token) {
				t.Errorf("Normalize(%q)[%d] = %q is not trimmed", raw, i, token)
			}
		}
	}
}
