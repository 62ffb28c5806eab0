package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/skinlens/backend/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Package-level compiled regex patterns for cache keys
var (
	nonAlphanumericRegex = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	multipleSpacesRegex  = regexp.MustCompile(`\s+`)
)

// StateObserver receives every per-ingredient state transition.
// With Concurrency > 1 it is still called from one goroutine at a time.
type StateObserver func(domain.StateChange)

// AnalysisServiceConfig holds configuration for the analysis service
type AnalysisServiceConfig struct {
	Concurrency    int
	MaxIngredients int
	CacheTTL       time.Duration
	Observer       StateObserver
}

// AnalysisService runs retrieval and structuring for each ingredient of a submission
type AnalysisService struct {
	retriever      domain.PassageRetriever
	structurer     domain.RecordStructurer
	cache          domain.CacheRepository
	concurrency    int
	maxIngredients int
	cacheTTL       time.Duration
	observer       StateObserver
	observerMu     sync.Mutex
}

// NewAnalysisService creates a new analysis service. cache may be nil.
func NewAnalysisService(
	retriever domain.PassageRetriever,
	structurer domain.RecordStructurer,
	cache domain.CacheRepository,
	config AnalysisServiceConfig,
) *AnalysisService {
	concurrency := config.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	maxIngredients := config.MaxIngredients
	if maxIngredients < 1 {
		maxIngredients = 100
	}

	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 168 * time.Hour // Default 7 days
	}

	return &AnalysisService{
		retriever:      retriever,
		structurer:     structurer,
		cache:          cache,
		concurrency:    concurrency,
		maxIngredients: maxIngredients,
		cacheTTL:       cacheTTL,
		observer:       config.Observer,
	}
}

// outcome is the terminal state of one ingredient
type outcome struct {
	record  *domain.IngredientRecord
	failure *domain.IngredientFailure
}

// Analyze processes ingredients in input order and returns the records that succeeded.
// Failing ingredients are skipped and reported in the result's Failures.
// When nothing succeeds the result is still returned together with domain.ErrEmptyResult.
func (s *AnalysisService) Analyze(ctx context.Context, ingredients []string) (*domain.AnalysisResult, error) {
	result := &domain.AnalysisResult{
		ID:        uuid.NewString(),
		Records:   []domain.IngredientRecord{},
		Failures:  []domain.IngredientFailure{},
		CreatedAt: time.Now().UTC(),
	}

	if len(ingredients) == 0 {
		return result, nil
	}
	if len(ingredients) > s.maxIngredients {
		return nil, fmt.Errorf("%w: %d ingredients exceeds the limit of %d",
			domain.ErrInvalidRequest, len(ingredients), s.maxIngredients)
	}

	start := time.Now()
	outcomes := make([]outcome, len(ingredients))

	if s.concurrency == 1 {
		for i, name := range ingredients {
			outcomes[i] = s.analyzeOne(ctx, i, name)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(s.concurrency)
		for i, name := range ingredients {
			i, name := i, name
			g.Go(func() error {
				outcomes[i] = s.analyzeOne(ctx, i, name)
				return nil
			})
		}
		g.Wait()
	}

	for _, o := range outcomes {
		if o.record != nil {
			result.Records = append(result.Records, *o.record)
		} else if o.failure != nil {
			result.Failures = append(result.Failures, *o.failure)
		}
	}

	log.Info().
		Str("analysis_id", result.ID).
		Int("ingredients", len(ingredients)).
		Int("recorded", len(result.Records)).
		Int("skipped", len(result.Failures)).
		Dur("duration", time.Since(start)).
		Msg("analysis finished")

	if len(result.Records) == 0 {
		return result, fmt.Errorf("%w: all %d ingredients failed", domain.ErrEmptyResult, len(ingredients))
	}
	return result, nil
}

// analyzeOne drives a single ingredient through pending -> retrieving -> structuring -> recorded|skipped
func (s *AnalysisService) analyzeOne(ctx context.Context, index int, name string) outcome {
	s.notify(index, name, domain.StatePending)

	if strings.TrimSpace(name) == "" {
		return s.skip(index, name, domain.StatePending, domain.ErrEmptyIngredient)
	}

	cacheKey := generateCacheKey(name)
	if record := s.getFromCache(ctx, cacheKey, name); record != nil {
		s.notify(index, name, domain.StateRecorded)
		return outcome{record: record}
	}

	s.notify(index, name, domain.StateRetrieving)
	if err := ctx.Err(); err != nil {
		return s.skip(index, name, domain.StateRetrieving, err)
	}
	passages, err := s.retriever.Retrieve(ctx, name)
	if err != nil {
		if !errors.Is(err, domain.ErrRetrieval) && ctx.Err() == nil {
			err = fmt.Errorf("%w: %v", domain.ErrRetrieval, err)
		}
		return s.skip(index, name, domain.StateRetrieving, err)
	}

	s.notify(index, name, domain.StateStructuring)
	record, err := s.structurer.Structure(ctx, name, passages)
	if err == nil && record == nil {
		err = errors.New("no record returned")
	}
	if err == nil {
		err = record.Validate()
	}
	if err != nil {
		if !errors.Is(err, domain.ErrStructuring) && ctx.Err() == nil {
			err = fmt.Errorf("%w: %v", domain.ErrStructuring, err)
		}
		return s.skip(index, name, domain.StateStructuring, err)
	}

	recorded := *record
	recorded.Ingredient = name
	s.setInCache(ctx, cacheKey, recorded)

	s.notify(index, name, domain.StateRecorded)
	return outcome{record: &recorded}
}

func (s *AnalysisService) skip(index int, name string, stage domain.IngredientState, err error) outcome {
	failure := domain.NewIngredientFailure(index, name, stage, err)
	log.Warn().
		Int("index", index).
		Str("ingredient", name).
		Str("stage", string(stage)).
		Err(err).
		Msg("skipping ingredient")
	s.notify(index, name, domain.StateSkipped)
	return outcome{failure: &failure}
}

func (s *AnalysisService) notify(index int, name string, state domain.IngredientState) {
	if s.observer == nil {
		return
	}
	s.observerMu.Lock()
	defer s.observerMu.Unlock()
	s.observer(domain.StateChange{Index: index, Ingredient: name, State: state})
}

// generateCacheKey creates a normalized cache key for an ingredient name.
// Format: "ingredient:{normalized_name}"; empty when nothing is left to key on.
func generateCacheKey(name string) string {
	normalized := normalizeForCacheKey(name)
	if normalized == "" {
		return ""
	}
	return "ingredient:" + normalized
}

// normalizeForCacheKey lowercases, removes punctuation and collapses whitespace
func normalizeForCacheKey(s string) string {
	result := strings.ToLower(s)
	result = nonAlphanumericRegex.ReplaceAllString(result, "")
	result = multipleSpacesRegex.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

// getFromCache returns a cached record respelled as name, or nil on miss or error
func (s *AnalysisService) getFromCache(ctx context.Context, key, name string) *domain.IngredientRecord {
	if s.cache == nil || key == "" {
		return nil
	}

	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			log.Warn().Str("key", key).Err(err).Msg("record cache read failed")
		}
		return nil
	}

	var record domain.IngredientRecord
	if err := json.Unmarshal(data, &record); err != nil || record.Validate() != nil {
		log.Warn().Str("key", key).Msg("discarding invalid cached record")
		if err := s.cache.Delete(ctx, key); err != nil {
			log.Warn().Str("key", key).Err(err).Msg("record cache delete failed")
		}
		return nil
	}

	record.Ingredient = name
	return &record
}

// setInCache stores a record; failures are logged and never fatal
func (s *AnalysisService) setInCache(ctx context.Context, key string, record domain.IngredientRecord) {
	if s.cache == nil || key == "" {
		return
	}
	data, err := json.Marshal(record)
	if err != nil {
		log.Warn().Str("key", key).Err(err).Msg("record cache encode failed")
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
		log.Warn().Str("key", key).Err(err).Msg("record cache write failed")
	}
}
