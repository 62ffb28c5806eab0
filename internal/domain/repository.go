package domain

import (
	"context"
	"io"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// PassageRetriever fetches reference passages for an ingredient from the retrieval pipeline
type PassageRetriever interface {
	Retrieve(ctx context.Context, ingredient string) ([]string, error)
}

// RecordStructurer turns retrieved passages into a validated ingredient record
type RecordStructurer interface {
	Structure(ctx context.Context, ingredient string, passages []string) (*IngredientRecord, error)
}

// OCREngine recognizes text in an encoded JPEG or PNG image
type OCREngine interface {
	Name() string
	Recognize(ctx context.Context, image []byte) (string, error)
}

// ExportStore publishes serialized analysis exports and returns a download URL
type ExportStore interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
}
