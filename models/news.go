package models

import (
	"time"
)

// News is one cached headline for a ticker. New articles are detected by
// comparing publication times against the newest cached row.
type News struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TickerID  uint      `gorm:"index;not null" json:"-"`
	Title     string    `gorm:"size:200;not null" json:"title"`
	Summary   string    `gorm:"type:text" json:"summary"`
	Link      string    `gorm:"size:200;not null" json:"link"`
	PubDate   time.Time `gorm:"not null;index" json:"pub_date"`
	Provider  string    `gorm:"size:50" json:"provider"`
	CreatedAt time.Time `json:"created_at"`
}
