package services

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"stock_insight_backend/models"
	"stock_insight_backend/services/marketdata"
)

// PredictionResult is the wire shape of a forecast.
type PredictionResult struct {
	PredictedDate string  `json:"predicted_date"`
	Horizon       int     `json:"horizon"`
	Result        float64 `json:"result"`
}

// PredictionService caches one forecast per (ticker, horizon, target date).
// On a miss it calls the inference service, inserts the result and, if a
// concurrent request won the insert race, returns the winner's row instead.
type PredictionService struct {
	db        *gorm.DB
	registry  *marketdata.Registry
	inference InferenceAPI
	now       func() time.Time
}

// NewPredictionService creates a new prediction service.
func NewPredictionService(db *gorm.DB, registry *marketdata.Registry, inference InferenceAPI) *PredictionService {
	return &PredictionService{
		db:        db,
		registry:  registry,
		inference: inference,
		now:       time.Now,
	}
}

// Run returns the forecast for code at the given horizon. Every failure mode
// short of a caller bug resolves to a structurally valid, possibly zero
// result: unknown ticker, unconfigured endpoint and upstream errors all
// yield an empty artifact rather than an error.
func (s *PredictionService) Run(ctx context.Context, code string, horizon int) PredictionResult {
	predictedDate := truncateDay(s.now()).AddDate(0, 0, horizon)
	empty := PredictionResult{
		PredictedDate: predictedDate.Format("2006-01-02"),
		Horizon:       horizon,
	}

	var ticker models.Ticker
	if err := s.db.WithContext(ctx).Where("ticker_code = ?", code).First(&ticker).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Errorf("ticker lookup failed for %s: %v", code, err)
		}
		return empty
	}

	if existing, ok := s.lookup(ctx, ticker.ID, horizon, predictedDate); ok {
		empty.Result = existing.Result
		return empty
	}

	if !s.inference.Configured() {
		return empty
	}

	symbol := s.registry.AdjustedSymbol(ticker.TickerCode, ticker.Market)
	value, err := s.inference.Predict(ctx, symbol, horizon)
	if err != nil {
		log.Warnf("prediction fetch failed for %s horizon=%d: %v", code, horizon, err)
		return empty
	}

	pred := models.Prediction{
		TickerID:      ticker.ID,
		PredictedDate: predictedDate,
		HorizonDays:   horizon,
		Result:        value,
	}
	if err := s.db.WithContext(ctx).Create(&pred).Error; err != nil {
		// A concurrent request may have inserted the same key first. The
		// failed write is already rolled back; the stored row is the one
		// answer every caller must see.
		if winner, ok := s.lookup(ctx, ticker.ID, horizon, predictedDate); ok {
			empty.Result = winner.Result
			return empty
		}
		log.Errorf("prediction insert failed for %s horizon=%d: %v", code, horizon, err)
	}

	empty.Result = value
	return empty
}

func (s *PredictionService) lookup(ctx context.Context, tickerID uint, horizon int, predictedDate time.Time) (*models.Prediction, bool) {
	var existing models.Prediction
	err := s.db.WithContext(ctx).
		Where("ticker_id = ? AND horizon_days = ? AND predicted_date = ?", tickerID, horizon, predictedDate).
		First(&existing).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Errorf("prediction lookup failed: %v", err)
		}
		return nil, false
	}
	return &existing, true
}
