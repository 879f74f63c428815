package models

import (
	"time"
)

// Market tags. Every ticker belongs to exactly one of these.
const (
	MarketKOSPI = "KOSPI"
	MarketUS    = "US"
)

// Ticker represents a tradable instrument known to the service.
// Rows are owned by the seeding scripts; the serving path only reads them.
type Ticker struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TickerCode string    `gorm:"uniqueIndex;size:20;not null" json:"ticker_code"`
	Name       string    `gorm:"size:100" json:"name"`
	Market     string    `gorm:"size:10;not null" json:"market"` // KOSPI, US
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
