package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stock_insight_backend/models"
	"stock_insight_backend/services/marketdata"
)

// ErrInvalidInterval rejects chart requests outside the supported
// granularities before any cache or fetch work happens.
var ErrInvalidInterval = errors.New("interval must be 1, 7 or 30")

// bootstrapPeriods is how many intervals of history the first fetch for an
// uncached (ticker, interval) pair covers.
const bootstrapPeriods = 30

// ChartPoint is the wire shape of one series row.
type ChartPoint struct {
	Date   string          `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
	Change decimal.Decimal `json:"change"`
}

// ChartService reconciles the chart cache: it determines the trailing gap
// after the newest persisted row, fetches only that gap from the upstream
// provider, persists the normalized rows and returns the full cached series.
type ChartService struct {
	db       *gorm.DB
	registry *marketdata.Registry
	now      func() time.Time
}

// NewChartService creates a new chart service.
func NewChartService(db *gorm.DB, registry *marketdata.Registry) *ChartService {
	return &ChartService{
		db:       db,
		registry: registry,
		now:      time.Now,
	}
}

// GetChartData returns the complete cached series for a ticker at the given
// interval, fetching and persisting the missing trailing range first.
//
// Only ErrInvalidInterval is returned as an error; an unknown ticker or any
// upstream failure yields an empty (or stale-but-valid) series instead.
func (s *ChartService) GetChartData(ctx context.Context, code string, interval int) ([]ChartPoint, error) {
	if interval != 1 && interval != 7 && interval != 30 {
		return nil, ErrInvalidInterval
	}

	ticker, err := s.lookupTicker(ctx, code)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Errorf("ticker lookup failed for %s: %v", code, err)
		}
		return []ChartPoint{}, nil
	}

	today := truncateDay(s.now())
	latest, err := s.maxChartDate(ctx, ticker.ID, interval)
	if err != nil {
		log.Errorf("max date query failed for %s interval=%d: %v", code, interval, err)
		return []ChartPoint{}, nil
	}

	fetchStart := nextFetchStart(latest, interval, today)
	if !fetchStart.After(today) {
		rows := s.fetchGap(ctx, ticker, fetchStart, today, interval)
		if len(rows) > 0 {
			if err := s.insertChartRows(ctx, ticker.ID, interval, rows); err != nil {
				log.Warnf("chart insert failed for %s interval=%d: %v", code, interval, err)
			}
		}
	}

	return s.chartRange(ctx, ticker.ID, interval)
}

// nextFetchStart computes where the trailing gap begins. A nil latest date
// means nothing is cached yet and a bootstrap window applies. A result past
// today means the cache is already current.
func nextFetchStart(latest *time.Time, interval int, today time.Time) time.Time {
	if latest == nil {
		return today.AddDate(0, 0, -bootstrapPeriods*interval)
	}
	return latest.AddDate(0, 0, interval)
}

// fetchGap pulls the missing range from the ticker's market source and
// normalizes it. Every provider failure degrades to "no rows available".
func (s *ChartService) fetchGap(ctx context.Context, ticker *models.Ticker, start, end time.Time, interval int) []marketdata.Row {
	provider, ok := s.registry.ProviderFor(ticker.Market)
	if !ok {
		log.Warnf("no market data provider for market %s", ticker.Market)
		return nil
	}

	bars, err := provider.FetchRange(ctx, ticker.TickerCode, start, end, interval)
	if err != nil {
		log.Warnf("fetch failed for %s interval=%d: %v", ticker.TickerCode, interval, err)
		return nil
	}

	return marketdata.Normalize(bars, start, interval, !provider.NativeInterval())
}

func (s *ChartService) lookupTicker(ctx context.Context, code string) (*models.Ticker, error) {
	var ticker models.Ticker
	if err := s.db.WithContext(ctx).Where("ticker_code = ?", code).First(&ticker).Error; err != nil {
		return nil, err
	}
	return &ticker, nil
}

func (s *ChartService) maxChartDate(ctx context.Context, tickerID uint, interval int) (*time.Time, error) {
	var record models.ChartData
	err := s.db.WithContext(ctx).
		Where("ticker_id = ? AND interval = ?", tickerID, interval).
		Order("date DESC").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	day := truncateDay(record.Date)
	return &day, nil
}

// insertChartRows persists freshly fetched rows in one transaction. Rows are
// write-once, so a conflicting key can only come from a concurrent request
// that fetched the same gap; ON CONFLICT DO NOTHING keeps the first writer's
// rows and the read-back below returns the merged series either way.
func (s *ChartService) insertChartRows(ctx context.Context, tickerID uint, interval int, rows []marketdata.Row) error {
	records := make([]models.ChartData, 0, len(rows))
	for _, r := range rows {
		records = append(records, models.ChartData{
			TickerID: tickerID,
			Date:     r.Date,
			Interval: interval,
			Open:     r.Open,
			High:     r.High,
			Low:      r.Low,
			Close:    r.Close,
			Volume:   r.Volume,
			Change:   r.Change,
		})
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&records).Error
	})
}

// chartRange reads the authoritative series: everything cached for the
// ticker and interval, ascending by date.
func (s *ChartService) chartRange(ctx context.Context, tickerID uint, interval int) ([]ChartPoint, error) {
	var records []models.ChartData
	err := s.db.WithContext(ctx).
		Where("ticker_id = ? AND interval = ?", tickerID, interval).
		Order("date").
		Find(&records).Error
	if err != nil {
		log.Errorf("chart range query failed: %v", err)
		return []ChartPoint{}, nil
	}

	points := make([]ChartPoint, 0, len(records))
	for _, r := range records {
		points = append(points, ChartPoint{
			Date:   r.Date.Format("2006-01-02"),
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
			Change: r.Change,
		})
	}
	return points, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
