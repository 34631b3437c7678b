package services

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Scheduler triggers the full analysis cycle on a fixed interval. One
// cycle runs the spectral pipeline for every configured symbol and then
// the correlation sweep.
type Scheduler struct {
	analyzer *AnalyzerService
	interval time.Duration
	logger   *logrus.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler over the analyzer.
func NewScheduler(analyzer *AnalyzerService, interval time.Duration, logger *logrus.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		analyzer: analyzer,
		interval: interval,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the periodic loop. The first cycle runs immediately;
// subsequent cycles follow the interval.
func (s *Scheduler) Start() {
	s.logger.WithField("interval", s.interval).Info("Starting analysis scheduler")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.runCycle()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.runCycle()
			}
		}
	}()
}

// Stop cancels the loop and waits for any in-flight cycle to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping analysis scheduler")
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) runCycle() {
	start := time.Now()

	reports := s.analyzer.AnalyzeAll(s.ctx)
	if _, err := s.analyzer.CorrelationSweep(s.ctx); err != nil {
		s.logger.WithError(err).Error("Correlation sweep failed")
	}

	s.logger.WithFields(logrus.Fields{
		"runs":     len(reports),
		"duration": time.Since(start).String(),
	}).Info("Analysis cycle finished")
}
