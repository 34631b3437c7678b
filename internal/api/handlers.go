package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/thomasly/option-analysis/internal/database"
	"github.com/thomasly/option-analysis/internal/models"
	"github.com/thomasly/option-analysis/internal/services"
)

// Analyzer is the slice of the analyzer service the API triggers.
type Analyzer interface {
	AnalyzeSymbol(ctx context.Context, symbol string, freq models.Frequency) (*services.RunReport, error)
	CorrelationSweep(ctx context.Context) (*services.CorrelationReport, error)
}

// RunReader is the read side of run persistence the API serves from.
type RunReader interface {
	GetRun(ctx context.Context, id uuid.UUID) (*models.AnalysisRun, error)
	LatestRun(ctx context.Context, symbol string, freq models.Frequency) (*models.AnalysisRun, error)
	ListRecentRuns(ctx context.Context, limit int) ([]models.AnalysisRun, error)
	ComponentsForRun(ctx context.Context, runID uuid.UUID) ([]database.StoredComponent, error)
}

// AnalysisHandler serves analysis runs over HTTP.
type AnalysisHandler struct {
	analyzer Analyzer
	runs     RunReader
	logger   *logrus.Logger
}

// NewAnalysisHandler creates the handler.
func NewAnalysisHandler(analyzer Analyzer, runs RunReader, logger *logrus.Logger) *AnalysisHandler {
	return &AnalysisHandler{analyzer: analyzer, runs: runs, logger: logger}
}

type triggerRunRequest struct {
	Symbol    string `json:"symbol" binding:"required"`
	Frequency string `json:"frequency"`
}

// TriggerRun starts a spectral analysis run for one symbol and returns
// its report. A run that fails inside the pipeline still returns the
// report so callers see the structured error fields.
func (h *AnalysisHandler) TriggerRun(c *gin.Context) {
	var req triggerRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}

	freq := models.Frequency(req.Frequency)
	if req.Frequency == "" {
		freq = models.FrequencyDaily
	}
	if !freq.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "frequency must be D or W"})
		return
	}

	report, err := h.analyzer.AnalyzeSymbol(c.Request.Context(), req.Symbol, freq)
	if err != nil {
		if report == nil {
			h.logger.WithError(err).Error("Failed to start analysis run")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start analysis run"})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, report)
		return
	}

	c.JSON(http.StatusCreated, report)
}

// TriggerCorrelationSweep runs the kernel correlation sweep for the
// configured symbol.
func (h *AnalysisHandler) TriggerCorrelationSweep(c *gin.Context) {
	report, err := h.analyzer.CorrelationSweep(c.Request.Context())
	if err != nil {
		if report == nil {
			h.logger.WithError(err).Error("Failed to start correlation sweep")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start correlation sweep"})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, report)
		return
	}

	c.JSON(http.StatusCreated, report)
}

// ListRuns returns recent runs, newest first.
func (h *AnalysisHandler) ListRuns(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 200 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 200"})
			return
		}
		limit = parsed
	}

	runs, err := h.runs.ListRecentRuns(c.Request.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list runs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}
	if runs == nil {
		runs = []models.AnalysisRun{}
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// GetRun returns one run by ID.
func (h *AnalysisHandler) GetRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}

	run, err := h.runs.GetRun(c.Request.Context(), id)
	if errors.Is(err, database.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to load run")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load run"})
		return
	}

	c.JSON(http.StatusOK, run)
}

// GetRunComponents returns the persisted frequency components of a run.
func (h *AnalysisHandler) GetRunComponents(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}

	components, err := h.runs.ComponentsForRun(c.Request.Context(), id)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load run components")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load run components"})
		return
	}
	if components == nil {
		components = []database.StoredComponent{}
	}

	c.JSON(http.StatusOK, gin.H{"components": components})
}

// LatestRun returns the most recent run for a symbol and frequency.
func (h *AnalysisHandler) LatestRun(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}

	freq := models.Frequency(c.DefaultQuery("frequency", string(models.FrequencyDaily)))
	if !freq.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "frequency must be D or W"})
		return
	}

	run, err := h.runs.LatestRun(c.Request.Context(), symbol, freq)
	if errors.Is(err, database.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no runs for symbol"})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to load latest run")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load latest run"})
		return
	}

	c.JSON(http.StatusOK, run)
}
