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

// ExplanationResult is the wire shape of a token-importance breakdown.
// Tokens and TokenScores are parallel, index-aligned sequences.
type ExplanationResult struct {
	PredictedDate string    `json:"predicted_date"`
	Tokens        []string  `json:"tokens"`
	TokenScores   []float64 `json:"token_scores"`
}

// ExplanationService is the point-cache engine for explanation artifacts.
// Same shape as PredictionService: miss-check, fetch, insert, and on a
// uniqueness conflict re-read the winner.
type ExplanationService struct {
	db        *gorm.DB
	registry  *marketdata.Registry
	inference InferenceAPI
	now       func() time.Time
}

// NewExplanationService creates a new explanation service.
func NewExplanationService(db *gorm.DB, registry *marketdata.Registry, inference InferenceAPI) *ExplanationService {
	return &ExplanationService{
		db:        db,
		registry:  registry,
		inference: inference,
		now:       time.Now,
	}
}

// Generate returns the explanation for code at the given horizon. Callers
// never see an error: unknown ticker, missing configuration and upstream
// failures all resolve to an artifact with empty token lists.
func (s *ExplanationService) Generate(ctx context.Context, code string, horizon int) ExplanationResult {
	predictedDate := truncateDay(s.now()).AddDate(0, 0, horizon)
	empty := ExplanationResult{
		PredictedDate: predictedDate.Format("2006-01-02"),
		Tokens:        []string{},
		TokenScores:   []float64{},
	}

	var ticker models.Ticker
	if err := s.db.WithContext(ctx).Where("ticker_code = ?", code).First(&ticker).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Errorf("ticker lookup failed for %s: %v", code, err)
		}
		return empty
	}

	if existing, ok := s.lookup(ctx, ticker.ID, horizon, predictedDate); ok {
		return s.fromRow(existing, predictedDate)
	}

	if !s.inference.Configured() {
		return empty
	}

	symbol := s.registry.AdjustedSymbol(ticker.TickerCode, ticker.Market)
	tokens, scores, err := s.inference.Explain(ctx, symbol, horizon)
	if err != nil {
		log.Warnf("explanation fetch failed for %s horizon=%d: %v", code, horizon, err)
		return empty
	}
	if tokens == nil {
		tokens = []string{}
	}
	if scores == nil {
		scores = []float64{}
	}

	explain := models.Explanation{
		TickerID:      ticker.ID,
		PredictedDate: predictedDate,
		HorizonDays:   horizon,
	}
	if err := explain.SetTokens(tokens); err != nil {
		log.Errorf("token serialization failed for %s: %v", code, err)
		return empty
	}
	if err := explain.SetTokenScores(scores); err != nil {
		log.Errorf("token score serialization failed for %s: %v", code, err)
		return empty
	}

	if err := s.db.WithContext(ctx).Create(&explain).Error; err != nil {
		// Race: another request inserted the same key between our miss-check
		// and this write. The insert is rolled back; return the winner so
		// concurrent callers agree on one artifact.
		if winner, ok := s.lookup(ctx, ticker.ID, horizon, predictedDate); ok {
			return s.fromRow(winner, predictedDate)
		}
		log.Errorf("explanation insert failed for %s horizon=%d: %v", code, horizon, err)
		return empty
	}

	return ExplanationResult{
		PredictedDate: predictedDate.Format("2006-01-02"),
		Tokens:        tokens,
		TokenScores:   scores,
	}
}

func (s *ExplanationService) lookup(ctx context.Context, tickerID uint, horizon int, predictedDate time.Time) (*models.Explanation, bool) {
	var existing models.Explanation
	err := s.db.WithContext(ctx).
		Where("ticker_id = ? AND horizon_days = ? AND predicted_date = ?", tickerID, horizon, predictedDate).
		First(&existing).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Errorf("explanation lookup failed: %v", err)
		}
		return nil, false
	}
	return &existing, true
}

func (s *ExplanationService) fromRow(row *models.Explanation, predictedDate time.Time) ExplanationResult {
	return ExplanationResult{
		PredictedDate: predictedDate.Format("2006-01-02"),
		Tokens:        row.TokenList(),
		TokenScores:   row.TokenScoreList(),
	}
}
