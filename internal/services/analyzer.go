package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/thomasly/option-analysis/internal/analysis"
	"github.com/thomasly/option-analysis/internal/config"
	"github.com/thomasly/option-analysis/internal/marketdata"
	"github.com/thomasly/option-analysis/internal/models"
)

// RunStore is the persistence surface the analyzer needs. The database
// package's RunRepository satisfies it.
type RunStore interface {
	InsertRun(ctx context.Context, run *models.AnalysisRun) error
	FinishRun(ctx context.Context, run *models.AnalysisRun) error
	SaveComponents(ctx context.Context, runID uuid.UUID, label string, components []analysis.FrequencyComponent) error
}

// AnalyzerService runs the full pipeline for one symbol: fetch history,
// fit the trend, decompose the residuals, extend the forecast, then
// persist and notify.
type AnalyzerService struct {
	cfg      *config.Config
	fetcher  marketdata.Fetcher
	store    RunStore
	notifier Notifier
	overlay  *TechnicalOverlay
	logger   *logrus.Logger

	now func() time.Time
}

// NewAnalyzerService wires the analyzer. The overlay and notifier may
// be nil; both are optional report decorations.
func NewAnalyzerService(
	cfg *config.Config,
	fetcher marketdata.Fetcher,
	store RunStore,
	notifier Notifier,
	overlay *TechnicalOverlay,
	logger *logrus.Logger,
) *AnalyzerService {
	return &AnalyzerService{
		cfg:      cfg,
		fetcher:  fetcher,
		store:    store,
		notifier: notifier,
		overlay:  overlay,
		logger:   logger,
		now:      time.Now,
	}
}

// AnalyzeSymbol runs the spectral pipeline for one symbol and
// frequency. The returned report is always non-nil when the run was
// recorded, even on failure, so callers can inspect the structured
// error fields.
func (s *AnalyzerService) AnalyzeSymbol(ctx context.Context, symbol string, freq models.Frequency) (*RunReport, error) {
	run := models.AnalysisRun{
		ID:        uuid.New(),
		Symbol:    symbol,
		Frequency: freq,
		Status:    models.RunStatusRunning,
		StartedAt: s.now(),
	}
	if err := s.store.InsertRun(ctx, &run); err != nil {
		return nil, fmt.Errorf("failed to record run start: %w", err)
	}

	report := &RunReport{Run: run}
	if err := s.analyze(ctx, report, symbol, freq); err != nil {
		s.failRun(ctx, report, err)
		return report, err
	}

	report.Run.Status = models.RunStatusCompleted
	if report.Trend != nil && report.Trend.Degenerate {
		report.Run.Status = models.RunStatusDegraded
	}
	report.Run.FinishedAt = s.now()
	if err := s.store.FinishRun(ctx, &report.Run); err != nil {
		s.logger.WithError(err).WithField("run_id", report.Run.ID).Error("Failed to record run completion")
	}

	s.deliverRun(ctx, report)
	return report, nil
}

func (s *AnalyzerService) analyze(ctx context.Context, report *RunReport, symbol string, freq models.Frequency) error {
	end := s.now()
	req := marketdata.SeriesRequest{
		Symbol:    symbol,
		Frequency: freq,
		Start:     end.AddDate(-s.cfg.Spectral.Years, 0, 0),
		End:       end,
	}

	series, err := s.fetcher.FetchSeries(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s history for %s: %w", freq.Label(), symbol, err)
	}
	report.Points = series.Len()

	fit, err := analysis.FitTrend(series)
	if err != nil {
		return err
	}
	report.Trend = fit

	decomposition, err := analysis.Decompose(fit.Residuals.Values(), analysis.DecomposeParams{
		Components: s.cfg.Spectral.Components,
		Label:      freq.Label(),
	})
	if err != nil {
		return err
	}
	report.Decomposition = decomposition

	forecast, err := analysis.Forecast(fit.Model, decomposition, analysis.ForecastParams{
		Horizon: s.cfg.Spectral.Horizon,
	})
	if err != nil {
		return err
	}
	report.Forecast = forecast

	if s.overlay != nil {
		snapshot, err := s.overlay.Snapshot(series)
		if err != nil {
			// The overlay is decoration; a short series only loses it.
			s.logger.WithError(err).WithField("symbol", symbol).Debug("Skipping indicator overlay")
		} else {
			report.Overlay = snapshot
		}
	}

	if err := s.store.SaveComponents(ctx, report.Run.ID, decomposition.Label, decomposition.Components); err != nil {
		s.logger.WithError(err).WithField("run_id", report.Run.ID).Error("Failed to persist components")
	}
	return nil
}

// AnalyzeAll runs every configured symbol at every configured
// frequency. Failures are logged per run and do not stop the batch.
func (s *AnalyzerService) AnalyzeAll(ctx context.Context) []*RunReport {
	var reports []*RunReport
	for _, symbol := range s.cfg.Spectral.Symbols {
		for _, f := range s.cfg.Spectral.Frequencies {
			freq := models.Frequency(f)
			report, err := s.AnalyzeSymbol(ctx, symbol, freq)
			if err != nil {
				s.logger.WithError(err).WithFields(logrus.Fields{
					"symbol":    symbol,
					"frequency": f,
				}).Error("Analysis run failed")
			}
			if report != nil {
				reports = append(reports, report)
			}
		}
	}
	return reports
}

// CorrelationSweep runs the kernel correlation mapper for the
// configured correlation symbol and delivers the normalized grids.
func (s *AnalyzerService) CorrelationSweep(ctx context.Context) (*CorrelationReport, error) {
	cc := s.cfg.Correlation
	freq := models.Frequency(cc.Frequency)

	run := models.AnalysisRun{
		ID:        uuid.New(),
		Symbol:    cc.Symbol,
		Frequency: freq,
		Status:    models.RunStatusRunning,
		StartedAt: s.now(),
	}
	if err := s.store.InsertRun(ctx, &run); err != nil {
		return nil, fmt.Errorf("failed to record sweep start: %w", err)
	}

	report := &CorrelationReport{Run: run, Window: cc.WindowDays}
	if err := s.sweep(ctx, report); err != nil {
		s.failSweep(ctx, report, err)
		return report, err
	}

	report.Run.Status = models.RunStatusCompleted
	report.Run.FinishedAt = s.now()
	if err := s.store.FinishRun(ctx, &report.Run); err != nil {
		s.logger.WithError(err).WithField("run_id", report.Run.ID).Error("Failed to record sweep completion")
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyCorrelation(ctx, report); err != nil {
			s.logger.WithError(err).Warn("Failed to deliver correlation report")
		}
	}
	return report, nil
}

func (s *AnalyzerService) sweep(ctx context.Context, report *CorrelationReport) error {
	cc := s.cfg.Correlation

	end := s.now()
	req := marketdata.SeriesRequest{
		Symbol:    cc.Symbol,
		Frequency: models.Frequency(cc.Frequency),
		Start:     end.AddDate(-cc.Years, 0, 0),
		End:       end,
	}
	series, err := s.fetcher.FetchSeries(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to fetch history for %s: %w", cc.Symbol, err)
	}

	grid, err := analysis.NewKernelGrid(cc.XMin, cc.XMax, cc.Centers, cc.GammaMin, cc.GammaMax, cc.Gammas)
	if err != nil {
		return err
	}

	grids, err := analysis.MapCorrelations(series.Values(), analysis.CorrelationParams{
		Grid:    grid,
		Window:  cc.WindowDays,
		Mode:    analysis.SweepMode(cc.SweepMode),
		Workers: cc.Workers,
	})
	if err != nil {
		return err
	}
	report.Grids = grids

	report.Normalized = make([]analysis.NormalizedGrid, len(grids))
	for i, g := range grids {
		report.Normalized[i] = analysis.Normalize(g, analysis.NormalizeParams{
			Mode:           analysis.ScaleAbsolute,
			IntensityPower: cc.IntensityPower,
		})
	}
	return nil
}

func (s *AnalyzerService) failRun(ctx context.Context, report *RunReport, cause error) {
	report.Run.Status = models.RunStatusFailed
	report.Run.ErrorKind, report.Run.ErrorParam = classifyError(cause)
	report.Run.ErrorDetail = cause.Error()
	report.Run.FinishedAt = s.now()

	if err := s.store.FinishRun(ctx, &report.Run); err != nil {
		s.logger.WithError(err).WithField("run_id", report.Run.ID).Error("Failed to record run failure")
	}
	s.deliverRun(ctx, report)
}

func (s *AnalyzerService) failSweep(ctx context.Context, report *CorrelationReport, cause error) {
	report.Run.Status = models.RunStatusFailed
	report.Run.ErrorKind, report.Run.ErrorParam = classifyError(cause)
	report.Run.ErrorDetail = cause.Error()
	report.Run.FinishedAt = s.now()

	if err := s.store.FinishRun(ctx, &report.Run); err != nil {
		s.logger.WithError(err).WithField("run_id", report.Run.ID).Error("Failed to record sweep failure")
	}
}

func (s *AnalyzerService) deliverRun(ctx context.Context, report *RunReport) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyRun(ctx, report); err != nil {
		s.logger.WithError(err).WithField("run_id", report.Run.ID).Warn("Failed to deliver run report")
	}
}

// classifyError maps a pipeline error to its structured kind and the
// offending parameter name.
func classifyError(err error) (kind, param string) {
	var insufficientData *analysis.InsufficientDataError
	var degenerate *analysis.DegenerateSeriesError
	var componentCount *analysis.InvalidComponentCountError
	var horizon *analysis.InvalidHorizonError
	var window *analysis.InsufficientWindowError

	switch {
	case errors.As(err, &insufficientData):
		return "insufficient_data", "points"
	case errors.As(err, &degenerate):
		return "degenerate_series", "values"
	case errors.As(err, &componentCount):
		return "invalid_component_count", "components"
	case errors.As(err, &horizon):
		return "invalid_horizon", "horizon"
	case errors.As(err, &window):
		return "insufficient_window", "window"
	default:
		return "fetch_failed", "source"
	}
}
