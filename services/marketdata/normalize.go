package marketdata

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// weeklyAnchor is the weekday weekly buckets open on, matching the trading
// week of both supported markets. If a market with a different week start is
// ever onboarded this belongs on the provider, not here.
const weeklyAnchor = time.Monday

// Row is one normalized series observation ready for persistence.
type Row struct {
	Date   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume int64
	Change decimal.Decimal
}

// Normalize converts raw provider bars into ordered series rows at the
// requested interval.
//
// OHLC values are rounded to 2 decimal places. When resample is set and the
// interval is not daily, daily bars are folded into calendar-aligned buckets
// first. The change field is the fractional move against the previous close,
// rounded to 4 places; bars before start only seed that anchor and are
// excluded from the output.
func Normalize(bars []Bar, start time.Time, interval int, resample bool) []Row {
	if len(bars) == 0 {
		return nil
	}

	sorted := make([]Bar, 0, len(bars))
	seen := make(map[time.Time]bool, len(bars))
	for _, b := range bars {
		day := truncateDay(b.Date)
		if seen[day] {
			continue
		}
		seen[day] = true
		sorted = append(sorted, Bar{
			Date:   day,
			Open:   b.Open.Round(2),
			High:   b.High.Round(2),
			Low:    b.Low.Round(2),
			Close:  b.Close.Round(2),
			Volume: b.Volume,
		})
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	if resample && interval != 1 {
		sorted = resampleBars(sorted, interval)
	}

	rows := make([]Row, 0, len(sorted))
	var prevClose decimal.Decimal
	havePrev := false
	for _, b := range sorted {
		if b.Date.Before(start) {
			prevClose = b.Close
			havePrev = true
			continue
		}

		change := decimal.Zero
		if havePrev && !prevClose.IsZero() {
			change = b.Close.Sub(prevClose).Div(prevClose).Round(4)
		}

		rows = append(rows, Row{
			Date:   b.Date,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
			Change: change,
		})
		prevClose = b.Close
		havePrev = true
	}

	return rows
}

// resampleBars folds daily bars into weekly or monthly buckets:
// open = first, high = max, low = min, close = last, volume = sum.
func resampleBars(daily []Bar, interval int) []Bar {
	buckets := make(map[time.Time]*Bar)
	order := make([]time.Time, 0)

	for _, b := range daily {
		key := bucketStart(b.Date, interval)
		agg, ok := buckets[key]
		if !ok {
			bar := b
			bar.Date = key
			buckets[key] = &bar
			order = append(order, key)
			continue
		}
		if b.High.GreaterThan(agg.High) {
			agg.High = b.High
		}
		if b.Low.LessThan(agg.Low) {
			agg.Low = b.Low
		}
		agg.Close = b.Close
		agg.Volume += b.Volume
	}

	sort.Slice(order, func(i, j int) bool { return order[i].Before(order[j]) })
	out := make([]Bar, 0, len(order))
	for _, key := range order {
		out = append(out, *buckets[key])
	}
	return out
}

// bucketStart returns the calendar-aligned opening date of the bucket
// containing d: the anchor weekday for weekly series, the first of the
// month for monthly.
func bucketStart(d time.Time, interval int) time.Time {
	switch interval {
	case 7:
		offset := (int(d.Weekday()) - int(weeklyAnchor) + 7) % 7
		return d.AddDate(0, 0, -offset)
	case 30:
		return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return d
	}
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
