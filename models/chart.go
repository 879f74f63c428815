package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ChartData is one cached OHLCV observation. The composite primary key
// (ticker, date, interval) makes every row write-once: the reconciliation
// path only ever inserts rows for the computed gap and never updates them.
type ChartData struct {
	TickerID uint            `gorm:"primaryKey;autoIncrement:false" json:"-"`
	Date     time.Time       `gorm:"primaryKey;type:date" json:"date"`
	Interval int             `gorm:"primaryKey;autoIncrement:false" json:"interval"` // 1, 7, 30
	Open     decimal.Decimal `gorm:"type:decimal(15,2)" json:"open"`
	High     decimal.Decimal `gorm:"type:decimal(15,2)" json:"high"`
	Low      decimal.Decimal `gorm:"type:decimal(15,2)" json:"low"`
	Close    decimal.Decimal `gorm:"type:decimal(15,2)" json:"close"`
	Volume   int64           `json:"volume"`
	Change   decimal.Decimal `gorm:"type:decimal(10,4)" json:"change"` // fractional change vs previous close
}
