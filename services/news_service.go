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

// newsPageSize is how many headlines a news read returns.
const newsPageSize = 10

// NewsItem is the wire shape of one cached headline.
type NewsItem struct {
	Title    string `json:"title"`
	Summary  string `json:"summary"`
	Link     string `json:"link"`
	PubDate  string `json:"pubDate"`
	Provider string `json:"provider"`
}

// NewsService applies the cache-or-fetch pattern to headlines: publication
// times stand in for the series date, and only articles newer than the
// newest cached row are inserted.
type NewsService struct {
	db       *gorm.DB
	registry *marketdata.Registry
	fetcher  NewsFetcher
}

// NewNewsService creates a new news service.
func NewNewsService(db *gorm.DB, registry *marketdata.Registry, fetcher NewsFetcher) *NewsService {
	return &NewsService{
		db:       db,
		registry: registry,
		fetcher:  fetcher,
	}
}

// Recent returns the latest cached headlines for a ticker, reconciling with
// the upstream source first. Upstream failures degrade to cached content;
// an unknown ticker yields an empty list.
func (s *NewsService) Recent(ctx context.Context, code string) []NewsItem {
	var ticker models.Ticker
	if err := s.db.WithContext(ctx).Where("ticker_code = ?", code).First(&ticker).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Errorf("ticker lookup failed for %s: %v", code, err)
		}
		return []NewsItem{}
	}

	latest := s.latestPubDate(ctx, ticker.ID)

	symbol := s.registry.AdjustedSymbol(ticker.TickerCode, ticker.Market)
	articles, err := s.fetcher.RecentNews(ctx, symbol)
	if err != nil {
		log.Warnf("news fetch failed for %s: %v", code, err)
		articles = nil
	}

	fresh := make([]models.News, 0, len(articles))
	for _, a := range articles {
		if latest != nil && !a.PubDate.After(*latest) {
			continue
		}
		fresh = append(fresh, models.News{
			TickerID: ticker.ID,
			Title:    a.Title,
			Summary:  a.Summary,
			Link:     a.Link,
			PubDate:  a.PubDate,
			Provider: a.Provider,
		})
	}

	if len(fresh) > 0 {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return tx.Create(&fresh).Error
		})
		if err != nil {
			log.Warnf("news insert failed for %s: %v", code, err)
		}
	}

	return s.latestNews(ctx, ticker.ID)
}

func (s *NewsService) latestPubDate(ctx context.Context, tickerID uint) *time.Time {
	var record models.News
	err := s.db.WithContext(ctx).
		Where("ticker_id = ?", tickerID).
		Order("pub_date DESC").
		First(&record).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Errorf("news max date query failed: %v", err)
		}
		return nil
	}
	return &record.PubDate
}

func (s *NewsService) latestNews(ctx context.Context, tickerID uint) []NewsItem {
	var records []models.News
	err := s.db.WithContext(ctx).
		Where("ticker_id = ?", tickerID).
		Order("pub_date DESC").
		Limit(newsPageSize).
		Find(&records).Error
	if err != nil {
		log.Errorf("news query failed: %v", err)
		return []NewsItem{}
	}

	items := make([]NewsItem, 0, len(records))
	for _, n := range records {
		items = append(items, NewsItem{
			Title:    n.Title,
			Summary:  n.Summary,
			Link:     n.Link,
			PubDate:  n.PubDate.UTC().Format(time.RFC3339),
			Provider: n.Provider,
		})
	}
	return items
}
