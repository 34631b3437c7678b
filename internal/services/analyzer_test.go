package services

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasly/option-analysis/internal/analysis"
	"github.com/thomasly/option-analysis/internal/config"
	"github.com/thomasly/option-analysis/internal/marketdata"
	"github.com/thomasly/option-analysis/internal/models"
)

// memoryStore is an in-memory RunStore for tests.
type memoryStore struct {
	mu         sync.Mutex
	runs       map[uuid.UUID]*models.AnalysisRun
	components map[uuid.UUID][]analysis.FrequencyComponent
	insertErr  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		runs:       make(map[uuid.UUID]*models.AnalysisRun),
		components: make(map[uuid.UUID][]analysis.FrequencyComponent),
	}
}

func (s *memoryStore) InsertRun(ctx context.Context, run *models.AnalysisRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	copied := *run
	s.runs[run.ID] = &copied
	return nil
}

func (s *memoryStore) FinishRun(ctx context.Context, run *models.AnalysisRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *run
	s.runs[run.ID] = &copied
	return nil
}

func (s *memoryStore) SaveComponents(ctx context.Context, runID uuid.UUID, label string, components []analysis.FrequencyComponent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.components[runID] = append(s.components[runID], components...)
	return nil
}

func (s *memoryStore) run(id uuid.UUID) *models.AnalysisRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[id]
}

// stubFetcher returns a canned series or error.
type stubFetcher struct {
	series *models.TimeSeries
	err    error
	last   marketdata.SeriesRequest
}

func (f *stubFetcher) FetchSeries(ctx context.Context, req marketdata.SeriesRequest) (*models.TimeSeries, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return f.series, nil
}

// recordingNotifier captures delivered reports.
type recordingNotifier struct {
	mu           sync.Mutex
	runReports   []*RunReport
	sweepReports []*CorrelationReport
}

func (n *recordingNotifier) NotifyRun(ctx context.Context, report *RunReport) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.runReports = append(n.runReports, report)
	return nil
}

func (n *recordingNotifier) NotifyCorrelation(ctx context.Context, report *CorrelationReport) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sweepReports = append(n.sweepReports, report)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Spectral: config.SpectralConfig{
			Symbols:     []string{"399006.SZ"},
			Years:       2,
			Components:  4,
			Horizon:     10,
			Frequencies: []string{"D"},
		},
		Correlation: config.CorrelationConfig{
			Symbol:         "399006.SZ",
			Years:          1,
			Frequency:      "D",
			WindowDays:     11,
			XMin:           -10,
			XMax:           10,
			Centers:        11,
			Gammas:         8,
			GammaMin:       0.5,
			GammaMax:       4.0,
			SweepMode:      "latest",
			Workers:        2,
			IntensityPower: 2,
		},
	}
}

// trendPlusCycle builds a series with a known linear trend and one
// dominant cycle on top.
func trendPlusCycle(t *testing.T, n int) *models.TimeSeries {
	t.Helper()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	timestamps := make([]time.Time, n)
	values := make([]float64, n)
	for i := range values {
		timestamps[i] = base.AddDate(0, 0, i)
		values[i] = 100 + 0.5*float64(i) + 4*math.Cos(2*math.Pi*8*float64(i)/float64(n))
	}

	series, err := models.NewTimeSeries(timestamps, values)
	require.NoError(t, err)
	return series
}

func newTestAnalyzer(cfg *config.Config, fetcher marketdata.Fetcher, store RunStore, notifier Notifier) *AnalyzerService {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewAnalyzerService(cfg, fetcher, store, notifier, NewTechnicalOverlay(20, 12, 14), logger)
}

func TestAnalyzerService_AnalyzeSymbol(t *testing.T) {
	store := newMemoryStore()
	notifier := &recordingNotifier{}
	fetcher := &stubFetcher{series: trendPlusCycle(t, 128)}
	svc := newTestAnalyzer(testConfig(), fetcher, store, notifier)

	report, err := svc.AnalyzeSymbol(context.Background(), "399006.SZ", models.FrequencyDaily)
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusCompleted, report.Run.Status)
	assert.Equal(t, 128, report.Points)
	require.NotNil(t, report.Trend)
	assert.InDelta(t, 0.5, report.Trend.Model.Slope, 0.05)

	require.NotNil(t, report.Decomposition)
	require.Len(t, report.Decomposition.Components, 4)
	assert.Equal(t, 8, report.Decomposition.Components[0].Bin, "the injected cycle must dominate")

	require.NotNil(t, report.Forecast)
	assert.Len(t, report.Forecast.Combined, 10)

	require.NotNil(t, report.Overlay)
	assert.Len(t, report.Overlay.Indicators, 3)

	stored := store.run(report.Run.ID)
	require.NotNil(t, stored)
	assert.Equal(t, models.RunStatusCompleted, stored.Status)
	assert.Len(t, store.components[report.Run.ID], 4)

	require.Len(t, notifier.runReports, 1)
	assert.Equal(t, report.Run.ID, notifier.runReports[0].Run.ID)
}

func TestAnalyzerService_AnalyzeSymbol_FetchFailure(t *testing.T) {
	store := newMemoryStore()
	fetcher := &stubFetcher{err: fmt.Errorf("quote service down")}
	svc := newTestAnalyzer(testConfig(), fetcher, store, &recordingNotifier{})

	report, err := svc.AnalyzeSymbol(context.Background(), "399006.SZ", models.FrequencyDaily)
	require.Error(t, err)
	require.NotNil(t, report)

	assert.Equal(t, models.RunStatusFailed, report.Run.Status)
	assert.Equal(t, "fetch_failed", report.Run.ErrorKind)
	assert.Equal(t, "source", report.Run.ErrorParam)
	assert.Contains(t, report.Run.ErrorDetail, "quote service down")

	stored := store.run(report.Run.ID)
	require.NotNil(t, stored)
	assert.Equal(t, models.RunStatusFailed, stored.Status)
}

func TestAnalyzerService_AnalyzeSymbol_TooManyComponents(t *testing.T) {
	cfg := testConfig()
	cfg.Spectral.Components = 40
	store := newMemoryStore()
	fetcher := &stubFetcher{series: trendPlusCycle(t, 50)}
	svc := newTestAnalyzer(cfg, fetcher, store, nil)

	report, err := svc.AnalyzeSymbol(context.Background(), "399006.SZ", models.FrequencyDaily)
	require.Error(t, err)

	var componentErr *analysis.InvalidComponentCountError
	assert.ErrorAs(t, err, &componentErr)
	assert.Equal(t, "invalid_component_count", report.Run.ErrorKind)
	assert.Equal(t, "components", report.Run.ErrorParam)
}

func TestAnalyzerService_AnalyzeSymbol_FlatSeriesDegraded(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	timestamps := make([]time.Time, 64)
	values := make([]float64, 64)
	for i := range values {
		timestamps[i] = base.AddDate(0, 0, i)
		values[i] = 42
	}
	series, err := models.NewTimeSeries(timestamps, values)
	require.NoError(t, err)

	store := newMemoryStore()
	svc := newTestAnalyzer(testConfig(), &stubFetcher{series: series}, store, nil)

	report, err := svc.AnalyzeSymbol(context.Background(), "399006.SZ", models.FrequencyDaily)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusDegraded, report.Run.Status)
	assert.True(t, report.Trend.Degenerate)
}

func TestAnalyzerService_AnalyzeAll(t *testing.T) {
	cfg := testConfig()
	cfg.Spectral.Symbols = []string{"399006.SZ", "000300.SH"}
	cfg.Spectral.Frequencies = []string{"D", "W"}

	store := newMemoryStore()
	svc := newTestAnalyzer(cfg, &stubFetcher{series: trendPlusCycle(t, 128)}, store, nil)

	reports := svc.AnalyzeAll(context.Background())
	assert.Len(t, reports, 4)
	for _, r := range reports {
		assert.Equal(t, models.RunStatusCompleted, r.Run.Status)
	}
}

func TestAnalyzerService_CorrelationSweep(t *testing.T) {
	store := newMemoryStore()
	notifier := &recordingNotifier{}
	svc := newTestAnalyzer(testConfig(), &stubFetcher{series: trendPlusCycle(t, 200)}, store, notifier)

	report, err := svc.CorrelationSweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusCompleted, report.Run.Status)
	require.Len(t, report.Grids, 1, "latest mode produces a single grid")
	assert.Len(t, report.Grids[0].Cells, 11*8)
	require.Len(t, report.Normalized, 1)
	for _, cell := range report.Normalized[0].Cells {
		assert.GreaterOrEqual(t, cell.Intensity, 0.0)
		assert.LessOrEqual(t, cell.Intensity, 1.0)
	}

	require.Len(t, notifier.sweepReports, 1)
}

func TestAnalyzerService_CorrelationSweep_WindowTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Correlation.WindowDays = 500
	store := newMemoryStore()
	svc := newTestAnalyzer(cfg, &stubFetcher{series: trendPlusCycle(t, 200)}, store, nil)

	report, err := svc.CorrelationSweep(context.Background())
	require.Error(t, err)

	var windowErr *analysis.InsufficientWindowError
	assert.ErrorAs(t, err, &windowErr)
	assert.Equal(t, "insufficient_window", report.Run.ErrorKind)
	assert.Equal(t, models.RunStatusFailed, report.Run.Status)
}

func TestAnalyzerService_RequestWindowUsesConfiguredYears(t *testing.T) {
	store := newMemoryStore()
	fetcher := &stubFetcher{series: trendPlusCycle(t, 128)}
	svc := newTestAnalyzer(testConfig(), fetcher, store, nil)
	fixed := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	_, err := svc.AnalyzeSymbol(context.Background(), "399006.SZ", models.FrequencyDaily)
	require.NoError(t, err)

	assert.Equal(t, fixed, fetcher.last.End)
	assert.Equal(t, fixed.AddDate(-2, 0, 0), fetcher.last.Start)
}
