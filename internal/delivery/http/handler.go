package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/skinlens/backend/internal/domain"
	"github.com/skinlens/backend/internal/usecase"
)

const defaultMaxUploadBytes = 10 << 20

// Handler holds dependencies for HTTP handlers
type Handler struct {
	extractor      *usecase.IngredientExtractor
	analysis       *usecase.AnalysisService
	exports        *usecase.ExportService
	maxUploadBytes int64
}

// NewHandler creates a new HTTP handler. extractor may be nil when OCR is unavailable.
func NewHandler(
	extractor *usecase.IngredientExtractor,
	analysis *usecase.AnalysisService,
	exports *usecase.ExportService,
	maxUploadBytes int64,
) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{
		extractor:      extractor,
		analysis:       analysis,
		exports:        exports,
		maxUploadBytes: maxUploadBytes,
	}
}

// NormalizeRequest is the body of POST /api/v1/ingredients/normalize
type NormalizeRequest struct {
	Text string `json:"text" binding:"required"`
}

// AnalysisRequest is the body of POST /api/v1/analyses; exactly one field must be set
type AnalysisRequest struct {
	Text        string   `json:"text"`
	Ingredients []string `json:"ingredients"`
}

// AnalysisResponse is an analysis result plus the inputs that produced it
type AnalysisResponse struct {
	*domain.AnalysisResult
	Ingredients []string `json:"ingredients"`
	OCRText     string   `json:"ocrText,omitempty"`
	CSVURL      string   `json:"csvUrl"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "skinlens-backend",
		"version": "1.0.0",
		"ocr":     h.extractor != nil,
	})
}

// NormalizeIngredients splits pasted text into ingredient names
func (h *Handler) NormalizeIngredients(c *gin.Context) {
	var req NormalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"ingredients": usecase.Normalize(req.Text)})
}

// ExtractIngredients runs OCR on an uploaded label and returns the parsed names
func (h *Handler) ExtractIngredients(c *gin.Context) {
	extraction, ok := h.extractUpload(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, extraction)
}

// CreateAnalysis analyzes pasted text or an explicit ingredient list
func (h *Handler) CreateAnalysis(c *gin.Context) {
	var req AnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err))
		return
	}

	hasText := strings.TrimSpace(req.Text) != ""
	switch {
	case hasText && req.Ingredients != nil:
		h.respondError(c, fmt.Errorf("%w: provide either text or ingredients, not both", domain.ErrInvalidRequest))
		return
	case !hasText && len(req.Ingredients) == 0:
		h.respondError(c, fmt.Errorf("%w: text or ingredients is required", domain.ErrInvalidRequest))
		return
	}

	var ingredients []string
	if hasText {
		ingredients = usecase.Normalize(req.Text)
	} else {
		ingredients = make([]string, len(req.Ingredients))
		for i, name := range req.Ingredients {
			ingredients[i] = strings.TrimSpace(name)
		}
	}

	h.runAnalysis(c, ingredients, "")
}

// CreateImageAnalysis runs OCR on an uploaded label and analyzes the result
func (h *Handler) CreateImageAnalysis(c *gin.Context) {
	extraction, ok := h.extractUpload(c)
	if !ok {
		return
	}
	h.runAnalysis(c, extraction.Ingredients, extraction.Text)
}

// GetAnalysis returns a stored analysis snapshot
func (h *Handler) GetAnalysis(c *gin.Context) {
	result, err := h.exports.Snapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// DownloadCSV streams a stored analysis as a CSV attachment
func (h *Handler) DownloadCSV(c *gin.Context) {
	data, err := h.exports.CSV(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", usecase.CSVFilename))
	c.Data(http.StatusOK, usecase.CSVContentType+"; charset=utf-8", data)
}

// ExportAnalysis publishes a stored analysis to object storage
func (h *Handler) ExportAnalysis(c *gin.Context) {
	url, err := h.exports.Publish(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *Handler) runAnalysis(c *gin.Context, ingredients []string, ocrText string) {
	ctx := c.Request.Context()

	result, err := h.analysis.Analyze(ctx, ingredients)
	if result != nil {
		if saveErr := h.exports.Save(ctx, result); saveErr != nil {
			log.Error().Err(saveErr).Str("analysis_id", result.ID).Msg("failed to save analysis snapshot")
		}
	}
	if err != nil {
		if errors.Is(err, domain.ErrEmptyResult) && result != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":    err.Error(),
				"id":       result.ID,
				"failures": result.Failures,
			})
			return
		}
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, AnalysisResponse{
		AnalysisResult: result,
		Ingredients:    ingredients,
		OCRText:        ocrText,
		CSVURL:         fmt.Sprintf("/api/v1/analyses/%s/csv", result.ID),
	})
}

// extractUpload reads the multipart "image" field and runs OCR on it.
// It writes the error response itself and reports whether the caller may continue.
func (h *Handler) extractUpload(c *gin.Context) (*usecase.Extraction, bool) {
	if h.extractor == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "OCR is not available on this server"})
		return nil, false
	}

	header, err := c.FormFile("image")
	if err != nil {
		h.respondError(c, fmt.Errorf("%w: multipart field \"image\" is required", domain.ErrInvalidRequest))
		return nil, false
	}
	if header.Size > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("image exceeds %d bytes", h.maxUploadBytes),
		})
		return nil, false
	}

	f, err := header.Open()
	if err != nil {
		h.respondError(c, fmt.Errorf("%w: %v", domain.ErrOCRExtraction, err))
		return nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxUploadBytes))
	if err != nil {
		h.respondError(c, fmt.Errorf("%w: %v", domain.ErrOCRExtraction, err))
		return nil, false
	}

	extraction, err := h.extractor.Extract(c.Request.Context(), data)
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}
	return extraction, true
}

// respondError maps domain errors to HTTP status codes
func (h *Handler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrSnapshotNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrOCRExtraction), errors.Is(err, domain.ErrEmptyResult):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrExportDisabled):
		status = http.StatusNotImplemented
	case errors.Is(err, domain.ErrRetrieval), errors.Is(err, domain.ErrStructuring):
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
