package domain

import (
	"fmt"
	"strconv"
)

// Safety level bounds for an IngredientRecord (1 = unsafe, 10 = very safe)
const (
	MinSafetyLevel = 1
	MaxSafetyLevel = 10
)

// Columns is the fixed column order of the analysis table and its CSV export
var Columns = []string{"ingredient", "purpose", "safety_level", "warnings", "skin_types"}

// IngredientRecord is the structured safety/purpose summary for one ingredient
type IngredientRecord struct {
	Ingredient  string `json:"ingredient"`
	Purpose     string `json:"purpose"`
	SafetyLevel int    `json:"safety_level"`
	Warnings    string `json:"warnings"`
	SkinTypes   string `json:"skin_types"`
}

// Validate checks the invariants a record must hold before it is included in a result
func (r IngredientRecord) Validate() error {
	if r.SafetyLevel < MinSafetyLevel || r.SafetyLevel > MaxSafetyLevel {
		return fmt.Errorf("safety_level %d out of range %d-%d", r.SafetyLevel, MinSafetyLevel, MaxSafetyLevel)
	}
	return nil
}

// Row returns the record's values in Columns order
func (r IngredientRecord) Row() []string {
	return []string{
		r.Ingredient,
		r.Purpose,
		strconv.Itoa(r.SafetyLevel),
		r.Warnings,
		r.SkinTypes,
	}
}

// RecordFromRow parses a row in Columns order back into a record
func RecordFromRow(row []string) (IngredientRecord, error) {
	if len(row) != len(Columns) {
		return IngredientRecord{}, fmt.Errorf("expected %d columns, got %d", len(Columns), len(row))
	}
	level, err := strconv.Atoi(row[2])
	if err != nil {
		return IngredientRecord{}, fmt.Errorf("invalid safety_level %q: %w", row[2], err)
	}
	record := IngredientRecord{
		Ingredient:  row[0],
		Purpose:     row[1],
		SafetyLevel: level,
		Warnings:    row[3],
		SkinTypes:   row[4],
	}
	if err := record.Validate(); err != nil {
		return IngredientRecord{}, err
	}
	return record, nil
}
