package models

import (
	"encoding/json"
	"time"
)

// Prediction caches one forecast value per (ticker, horizon, predicted date).
// The unique index is the concurrency safety net: concurrent producers race
// to insert and the loser re-reads the winner.
type Prediction struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	TickerID      uint      `gorm:"not null;uniqueIndex:uq_prediction_key" json:"-"`
	PredictedDate time.Time `gorm:"type:date;not null;uniqueIndex:uq_prediction_key" json:"predicted_date"`
	HorizonDays   int       `gorm:"not null;uniqueIndex:uq_prediction_key" json:"horizon_days"`
	Result        float64   `json:"result"`
	CreatedAt     time.Time `json:"created_at"`
}

// Explanation caches the token-importance breakdown behind a forecast.
// Tokens and scores are parallel, index-aligned sequences stored as JSON text.
type Explanation struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	TickerID      uint      `gorm:"not null;uniqueIndex:uq_explanation_key" json:"-"`
	PredictedDate time.Time `gorm:"type:date;not null;uniqueIndex:uq_explanation_key" json:"predicted_date"`
	HorizonDays   int       `gorm:"not null;uniqueIndex:uq_explanation_key" json:"horizon_days"`
	Tokens        string    `gorm:"type:text" json:"-"`
	TokenScores   string    `gorm:"type:text" json:"-"`
	CreatedAt     time.Time `json:"created_at"`
}

// SetTokens serializes the token list into the row.
func (e *Explanation) SetTokens(tokens []string) error {
	data, err := json.Marshal(tokens)
	if err != nil {
		return err
	}
	e.Tokens = string(data)
	return nil
}

// TokenList deserializes the stored token list. Malformed or empty
// storage yields an empty slice.
func (e *Explanation) TokenList() []string {
	tokens := []string{}
	if e.Tokens != "" {
		_ = json.Unmarshal([]byte(e.Tokens), &tokens)
	}
	return tokens
}

// SetTokenScores serializes the score list into the row.
func (e *Explanation) SetTokenScores(scores []float64) error {
	data, err := json.Marshal(scores)
	if err != nil {
		return err
	}
	e.TokenScores = string(data)
	return nil
}

// TokenScoreList deserializes the stored score list.
func (e *Explanation) TokenScoreList() []float64 {
	scores := []float64{}
	if e.TokenScores != "" {
		_ = json.Unmarshal([]byte(e.TokenScores), &scores)
	}
	return scores
}
