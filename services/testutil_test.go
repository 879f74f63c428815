package services

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"stock_insight_backend/models"
	"stock_insight_backend/services/marketdata"
)

// testClock is the fixed "today" all service tests run against.
// 2026-08-28 is a Friday.
var testClock = time.Date(2026, 8, 28, 14, 30, 0, 0, time.UTC)

func fixedNow() time.Time { return testClock }

var dbSeq atomic.Int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))
	return db
}

func seedTicker(t *testing.T, db *gorm.DB, code, name, market string) *models.Ticker {
	t.Helper()
	ticker := &models.Ticker{TickerCode: code, Name: name, Market: market}
	require.NoError(t, db.Create(ticker).Error)
	return ticker
}

// fakeProvider is a scripted market data source. It records every fetch so
// tests can assert on gap boundaries and call counts.
type fakeProvider struct {
	bars   []marketdata.Bar
	err    error
	native bool

	calls  int
	starts []time.Time
	ends   []time.Time
}

func (f *fakeProvider) FetchRange(ctx context.Context, code string, start, end time.Time, interval int) ([]marketdata.Bar, error) {
	f.calls++
	f.starts = append(f.starts, start)
	f.ends = append(f.ends, end)
	if f.err != nil {
		return nil, f.err
	}
	return f.bars, nil
}

func (f *fakeProvider) NativeInterval() bool { return f.native }

// fakeInference is a scripted model-serving endpoint. beforeReturn, when set,
// runs after the upstream call but before the service persists the artifact,
// which lets tests interleave a competing writer deterministically.
type fakeInference struct {
	configured bool
	value      float64
	tokens     []string
	scores     []float64
	err        error

	predictCalls int
	explainCalls int
	beforeReturn func()
}

func (f *fakeInference) Configured() bool { return f.configured }

func (f *fakeInference) Predict(ctx context.Context, symbol string, horizon int) (float64, error) {
	f.predictCalls++
	if f.beforeReturn != nil {
		f.beforeReturn()
	}
	if f.err != nil {
		return 0, f.err
	}
	return f.value, nil
}

func (f *fakeInference) Explain(ctx context.Context, symbol string, horizon int) ([]string, []float64, error) {
	f.explainCalls++
	if f.beforeReturn != nil {
		f.beforeReturn()
	}
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.tokens, f.scores, nil
}
