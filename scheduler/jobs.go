package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"stock_insight_backend/config"
	"stock_insight_backend/models"
	"stock_insight_backend/services"
	"stock_insight_backend/services/marketdata"
)

// staleArtifactAge is how far behind today a point artifact's target date
// may fall before weekly cleanup removes it.
const staleArtifactAge = 90 * 24 * time.Hour

// chartIntervals are the granularities the warm job refreshes.
var chartIntervals = []int{1, 7, 30}

// Scheduler manages scheduled jobs
type Scheduler struct {
	cron   *gocron.Scheduler
	db     *gorm.DB
	charts *services.ChartService
}

// NewScheduler creates a new scheduler instance
func NewScheduler(db *gorm.DB, cfg *config.Config) *Scheduler {
	registry := marketdata.NewRegistry(
		marketdata.NewKRXClient(cfg.KRXBaseURL),
		marketdata.NewYahooClient(cfg.YahooBaseURL),
	)
	return &Scheduler{
		cron:   gocron.NewScheduler(time.UTC),
		db:     db,
		charts: services.NewChartService(db, registry),
	}
}

// Start starts all scheduled jobs
func (s *Scheduler) Start() {
	log.Info("Starting scheduler...")

	// Warm the chart cache daily at 16:10, after both markets have closed,
	// so the first user request of the day does not pay for the gap fetch
	s.cron.Every(1).Day().At("16:10").Do(func() {
		s.warmChartCache()
	})

	// Cleanup stale point artifacts weekly on Sunday at 01:00
	s.cron.Every(1).Week().Sunday().At("01:00").Do(func() {
		s.cleanupStaleArtifacts()
	})

	s.cron.StartAsync()
	log.Info("Scheduler started successfully")
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Info("Scheduler stopped")
}

// warmChartCache runs the reconciliation pipeline for every seeded ticker
func (s *Scheduler) warmChartCache() {
	log.Info("Warming chart cache...")

	var tickers []models.Ticker
	if err := s.db.Find(&tickers).Error; err != nil {
		log.Errorf("Error loading tickers: %v", err)
		return
	}

	ctx := context.Background()
	for _, ticker := range tickers {
		for _, interval := range chartIntervals {
			if _, err := s.charts.GetChartData(ctx, ticker.TickerCode, interval); err != nil {
				log.Warnf("Error warming chart for %s interval=%d: %v", ticker.TickerCode, interval, err)
			}
		}
	}

	log.Infof("Warmed chart cache for %d tickers", len(tickers))
}

// cleanupStaleArtifacts removes predictions and explanations whose target
// date is long past
func (s *Scheduler) cleanupStaleArtifacts() {
	log.Info("Cleaning up stale point artifacts...")

	cutoff := time.Now().UTC().Add(-staleArtifactAge)

	if err := s.db.Where("predicted_date < ?", cutoff).Delete(&models.Prediction{}).Error; err != nil {
		log.Errorf("Error cleaning up old predictions: %v", err)
	}
	if err := s.db.Where("predicted_date < ?", cutoff).Delete(&models.Explanation{}).Error; err != nil {
		log.Errorf("Error cleaning up old explanations: %v", err)
	}

	log.Info("Cleanup completed")
}
