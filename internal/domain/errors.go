package domain

import "errors"

var (
	// ErrConfiguration is returned when required credentials or identifiers are missing
	ErrConfiguration = errors.New("configuration error")

	// ErrOCRExtraction is returned when an uploaded image cannot be read or recognized
	ErrOCRExtraction = errors.New("OCR extraction failed")

	// ErrRetrieval is returned when the retrieval pipeline request fails
	ErrRetrieval = errors.New("retrieval request failed")

	// ErrStructuring is returned when the language model call fails or its output
	// does not match the ingredient record schema
	ErrStructuring = errors.New("structuring failed")

	// ErrEmptyResult is returned when no ingredient could be analyzed
	ErrEmptyResult = errors.New("no ingredients could be successfully analyzed")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrEmptyIngredient is reported for blank tokens produced by the normalizer
	ErrEmptyIngredient = errors.New("empty ingredient name")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrSnapshotNotFound is returned when an analysis snapshot expired or never existed
	ErrSnapshotNotFound = errors.New("analysis not found")

	// ErrExportDisabled is returned when no export store is configured
	ErrExportDisabled = errors.New("export storage not configured")
)
