package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/skinlens/backend/internal/domain"
)

const (
	// CSVFilename is the download name of an exported analysis table
	CSVFilename = "ingredient_analysis.csv"

	// CSVContentType is the media type of an exported analysis table
	CSVContentType = "text/csv"
)

// ExportServiceConfig holds configuration for the export service
type ExportServiceConfig struct {
	SnapshotTTL time.Duration
}

// ExportService keeps short-lived analysis snapshots and renders them as CSV
type ExportService struct {
	snapshots   domain.CacheRepository
	store       domain.ExportStore
	snapshotTTL time.Duration
}

// NewExportService creates a new export service. store may be nil, in which
// case Publish reports domain.ErrExportDisabled.
func NewExportService(snapshots domain.CacheRepository, store domain.ExportStore, config ExportServiceConfig) *ExportService {
	ttl := config.SnapshotTTL
	if ttl == 0 {
		ttl = time.Hour
	}
	return &ExportService{
		snapshots:   snapshots,
		store:       store,
		snapshotTTL: ttl,
	}
}

// Save keeps result available for later download until the snapshot TTL expires
func (s *ExportService) Save(ctx context.Context, result *domain.AnalysisResult) error {
	if result == nil || result.ID == "" {
		return fmt.Errorf("%w: result has no id", domain.ErrInvalidRequest)
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return s.snapshots.Set(ctx, snapshotKey(result.ID), data, s.snapshotTTL)
}

// Snapshot loads a saved result by id
func (s *ExportService) Snapshot(ctx context.Context, id string) (*domain.AnalysisResult, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrSnapshotNotFound, id)
	}

	data, err := s.snapshots.Get(ctx, snapshotKey(id))
	if err != nil {
		if errors.Is(err, domain.ErrCacheMiss) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSnapshotNotFound, id)
		}
		return nil, err
	}

	var result domain.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", id, err)
	}
	return &result, nil
}

// CSV renders the saved result id as CSV
func (s *ExportService) CSV(ctx context.Context, id string) ([]byte, error) {
	result, err := s.Snapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, result.Records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Publish uploads the CSV of result id to object storage and returns its download URL
func (s *ExportService) Publish(ctx context.Context, id string) (string, error) {
	if s.store == nil {
		return "", domain.ErrExportDisabled
	}

	data, err := s.CSV(ctx, id)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("analyses/%s/%s", id, CSVFilename)
	url, err := s.store.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), CSVContentType)
	if err != nil {
		return "", fmt.Errorf("publish %s: %w", id, err)
	}

	log.Info().Str("analysis_id", id).Str("key", key).Msg("published analysis export")
	return url, nil
}

// WriteCSV writes the header row and one row per record in column order
func WriteCSV(w io.Writer, records []domain.IngredientRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(domain.Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write(r.Row()); err != nil {
			return fmt.Errorf("write csv row %q: %w", r.Ingredient, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a table written by WriteCSV back into records
func ReadCSV(r io.Reader) ([]domain.IngredientRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(domain.Columns)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i, col := range domain.Columns {
		if header[i] != col {
			return nil, fmt.Errorf("unexpected csv column %d: got %q, want %q", i+1, header[i], col)
		}
	}

	records := []domain.IngredientRecord{}
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		record, err := domain.RecordFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		records = append(records, record)
	}
	return records, nil
}

func snapshotKey(id string) string {
	return "analysis:" + id
}
