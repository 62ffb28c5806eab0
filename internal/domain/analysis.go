package domain

import (
	"fmt"
	"time"
)

// IngredientState is a step of the per-ingredient state machine.
// Transitions only move forward: pending -> retrieving -> structuring -> recorded|skipped.
type IngredientState string

const (
	StatePending     IngredientState = "pending"
	StateRetrieving  IngredientState = "retrieving"
	StateStructuring IngredientState = "structuring"
	StateRecorded    IngredientState = "recorded"
	StateSkipped     IngredientState = "skipped"
)

// StateChange describes one transition of one ingredient
type StateChange struct {
	Index      int             `json:"index"`
	Ingredient string          `json:"ingredient"`
	State      IngredientState `json:"state"`
}

// IngredientFailure reports an ingredient that was skipped and why
type IngredientFailure struct {
	Index      int             `json:"index"`
	Ingredient string          `json:"ingredient"`
	Stage      IngredientState `json:"stage"`
	Err        error           `json:"-"`
	Message    string          `json:"error"`
}

// NewIngredientFailure builds a failure with a human-readable message
func NewIngredientFailure(index int, ingredient string, stage IngredientState, err error) IngredientFailure {
	return IngredientFailure{
		Index:      index,
		Ingredient: ingredient,
		Stage:      stage,
		Err:        err,
		Message:    err.Error(),
	}
}

func (f IngredientFailure) Error() string {
	return fmt.Sprintf("error analyzing ingredient %q (%s): %s", f.Ingredient, f.Stage, f.Message)
}

func (f IngredientFailure) Unwrap() error {
	return f.Err
}

// AnalysisResult is the ordered table of valid records for one submission
type AnalysisResult struct {
	ID        string              `json:"id"`
	Records   []IngredientRecord  `json:"records"`
	Failures  []IngredientFailure `json:"failures"`
	CreatedAt time.Time           `json:"createdAt"`
}

// Empty reports whether no ingredient was analyzed successfully
func (r *AnalysisResult) Empty() bool {
	return r == nil || len(r.Records) == 0
}
