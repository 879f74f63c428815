package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock_insight_backend/models"
)

func TestRegistryDispatch(t *testing.T) {
	kospi := NewKRXClient("")
	us := NewYahooClient("")
	registry := NewRegistry(kospi, us)

	p, ok := registry.ProviderFor(models.MarketKOSPI)
	require.True(t, ok)
	assert.Same(t, kospi, p)

	p, ok = registry.ProviderFor(models.MarketUS)
	require.True(t, ok)
	assert.Same(t, us, p)

	_, ok = registry.ProviderFor("LSE")
	assert.False(t, ok)
}

func TestRegistryAdjustedSymbol(t *testing.T) {
	registry := NewRegistry(NewKRXClient(""), NewYahooClient(""))

	assert.Equal(t, "005930.KS", registry.AdjustedSymbol("005930", models.MarketKOSPI))
	assert.Equal(t, "AAPL", registry.AdjustedSymbol("AAPL", models.MarketUS))
	assert.Equal(t, "VOD", registry.AdjustedSymbol("VOD", "LSE"))
}

func TestKRXClientFetchRange(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/daily_candles", r.URL.Path)
		gotQuery = map[string]string{
			"symbol": r.URL.Query().Get("symbol"),
			"from":   r.URL.Query().Get("from"),
			"to":     r.URL.Query().Get("to"),
		}
		w.Header().Set("Content-Type", "application/json")
		// Out of order on purpose; the client must sort ascending.
		w.Write([]byte(`{"data":[
			{"date":"2026-08-19","open":70200,"high":71500,"low":70000,"close":70500,"volume":7500000},
			{"date":"2026-08-18","open":70000,"high":71000,"low":69500,"close":70200,"volume":8000000}
		]}`))
	}))
	defer server.Close()

	client := NewKRXClient(server.URL)
	assert.False(t, client.NativeInterval())

	start := time.Date(2026, 8, 18, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	bars, err := client.FetchRange(context.Background(), "005930", start, end, 1)
	require.NoError(t, err)

	assert.Equal(t, "005930", gotQuery["symbol"])
	assert.Equal(t, "2026-08-15", gotQuery["from"], "window padded by 3 intervals for the change anchor")
	assert.Equal(t, "2026-08-28", gotQuery["to"])

	require.Len(t, bars, 2)
	assert.Equal(t, time.Date(2026, 8, 18, 0, 0, 0, 0, time.UTC), bars[0].Date)
	assert.True(t, bars[0].Close.Equal(decimal.NewFromInt(70200)))
	assert.Equal(t, int64(8000000), bars[0].Volume)
	assert.Equal(t, time.Date(2026, 8, 19, 0, 0, 0, 0, time.UTC), bars[1].Date)
}

func TestKRXClientUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance window", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewKRXClient(server.URL)
	_, err := client.FetchRange(context.Background(), "005930",
		time.Date(2026, 8, 18, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestYahooClientFetchRange(t *testing.T) {
	var gotInterval string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v8/finance/chart/AAPL", r.URL.Path)
		gotInterval = r.URL.Query().Get("interval")
		w.Header().Set("Content-Type", "application/json")
		// Second bucket has a null close and must be dropped.
		w.Write([]byte(`{"chart":{"result":[{
			"timestamp":[1786060800,1786147200,1786233600],
			"indicators":{"quote":[{
				"open":[230.1,231.0,232.4],
				"high":[233.5,null,235.0],
				"low":[229.0,230.0,231.5],
				"close":[231.2,null,234.1],
				"volume":[50000000,48000000,null]
			}]}
		}],"error":null}}`))
	}))
	defer server.Close()

	client := NewYahooClient(server.URL)
	assert.True(t, client.NativeInterval())

	start := time.Date(2026, 8, 4, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	bars, err := client.FetchRange(context.Background(), "AAPL", start, end, 1)
	require.NoError(t, err)

	assert.Equal(t, "1d", gotInterval)
	require.Len(t, bars, 2, "bucket with null fields dropped")
	assert.True(t, bars[0].Close.Equal(decimal.NewFromFloat(231.2)))
	assert.Equal(t, int64(50000000), bars[0].Volume)
	assert.Equal(t, int64(0), bars[1].Volume, "null volume defaults to 0")
}

func TestYahooClientIntervalMapping(t *testing.T) {
	var gotInterval string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotInterval = r.URL.Query().Get("interval")
		w.Write([]byte(`{"chart":{"result":[],"error":null}}`))
	}))
	defer server.Close()

	client := NewYahooClient(server.URL)
	start := time.Date(2026, 8, 4, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	_, err := client.FetchRange(context.Background(), "AAPL", start, end, 7)
	require.NoError(t, err)
	assert.Equal(t, "1wk", gotInterval)

	_, err = client.FetchRange(context.Background(), "AAPL", start, end, 30)
	require.NoError(t, err)
	assert.Equal(t, "1mo", gotInterval)

	_, err = client.FetchRange(context.Background(), "AAPL", start, end, 3)
	require.Error(t, err, "unsupported interval rejected before any request")
}

func TestYahooClientAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	}))
	defer server.Close()

	client := NewYahooClient(server.URL)
	_, err := client.FetchRange(context.Background(), "GONE",
		time.Date(2026, 8, 4, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delisted")
}
