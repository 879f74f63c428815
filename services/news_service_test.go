package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock_insight_backend/models"
	"stock_insight_backend/services/marketdata"
)

type fakeNewsFetcher struct {
	articles []Article
	err      error

	calls   int
	symbols []string
}

func (f *fakeNewsFetcher) RecentNews(ctx context.Context, symbol string) ([]Article, error) {
	f.calls++
	f.symbols = append(f.symbols, symbol)
	if f.err != nil {
		return nil, f.err
	}
	return f.articles, nil
}

func article(title string, pub time.Time) Article {
	return Article{
		Title:    title,
		Summary:  title + " summary",
		Link:     "https://news.example.com/" + title,
		Provider: "Reuters",
		PubDate:  pub,
	}
}

func TestNewsRecentUnknownTicker(t *testing.T) {
	db := newTestDB(t)
	fetcher := &fakeNewsFetcher{}
	svc := NewNewsService(db, marketdata.NewRegistry(&fakeProvider{}, &fakeProvider{}), fetcher)

	items := svc.Recent(context.Background(), "GHOST")
	assert.Empty(t, items)
	assert.Zero(t, fetcher.calls)
}

func TestNewsRecentCachesAndDeduplicates(t *testing.T) {
	db := newTestDB(t)
	ticker := seedTicker(t, db, "AAPL", "Apple Inc.", models.MarketUS)

	base := time.Date(2026, 8, 27, 9, 0, 0, 0, time.UTC)
	fetcher := &fakeNewsFetcher{articles: []Article{
		article("launch-event", base),
		article("supply-chain", base.Add(2 * time.Hour)),
	}}
	svc := NewNewsService(db, marketdata.NewRegistry(&fakeProvider{}, &fakeProvider{}), fetcher)

	first := svc.Recent(context.Background(), "AAPL")
	require.Len(t, first, 2)
	assert.Equal(t, "supply-chain", first[0].Title, "newest first")

	// Replay plus one genuinely new article; only the new one is inserted.
	fetcher.articles = append(fetcher.articles, article("earnings-beat", base.Add(4*time.Hour)))
	second := svc.Recent(context.Background(), "AAPL")
	require.Len(t, second, 3)
	assert.Equal(t, "earnings-beat", second[0].Title)

	var count int64
	require.NoError(t, db.Model(&models.News{}).Where("ticker_id = ?", ticker.ID).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestNewsRecentKOSPISymbolSuffix(t *testing.T) {
	db := newTestDB(t)
	seedTicker(t, db, "005930", "Samsung Electronics", models.MarketKOSPI)

	fetcher := &fakeNewsFetcher{}
	svc := NewNewsService(db, marketdata.NewRegistry(&fakeProvider{}, &fakeProvider{}), fetcher)

	svc.Recent(context.Background(), "005930")
	require.Equal(t, 1, fetcher.calls)
	assert.Equal(t, "005930.KS", fetcher.symbols[0])
}

func TestNewsRecentUpstreamFailureServesCache(t *testing.T) {
	db := newTestDB(t)
	ticker := seedTicker(t, db, "AAPL", "Apple Inc.", models.MarketUS)

	cached := models.News{
		TickerID: ticker.ID,
		Title:    "cached-headline",
		Link:     "https://news.example.com/cached",
		PubDate:  time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC),
		Provider: "Reuters",
	}
	require.NoError(t, db.Create(&cached).Error)

	fetcher := &fakeNewsFetcher{err: errors.New("rate limited")}
	svc := NewNewsService(db, marketdata.NewRegistry(&fakeProvider{}, &fakeProvider{}), fetcher)

	items := svc.Recent(context.Background(), "AAPL")
	require.Len(t, items, 1)
	assert.Equal(t, "cached-headline", items[0].Title)
}

func TestNewsRecentCapsPageSize(t *testing.T) {
	db := newTestDB(t)
	seedTicker(t, db, "AAPL", "Apple Inc.", models.MarketUS)

	base := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	articles := make([]Article, 0, 15)
	for i := 0; i < 15; i++ {
		articles = append(articles, article(fmt.Sprintf("story-%02d", i), base.Add(time.Duration(i)*time.Hour)))
	}
	fetcher := &fakeNewsFetcher{articles: articles}
	svc := NewNewsService(db, marketdata.NewRegistry(&fakeProvider{}, &fakeProvider{}), fetcher)

	items := svc.Recent(context.Background(), "AAPL")
	require.Len(t, items, 10)
	assert.Equal(t, "story-14", items[0].Title, "newest of the stored set")
}
