package contracts

import (
	"context"
	"time"
)

// Query is a provider request: either a named Range ("3mo", "max") or an explicit From/To span
type Query struct {
	Range string
	From  time.Time
	To    time.Time
}

// IsRange reports whether the query uses a named range
func (q Query) IsRange() bool {
	return q.Range != ""
}

// String renders the query for logs and cache keys
func (q Query) String() string {
	if q.IsRange() {
		return q.Range
	}
	return q.From.Format("20060102") + "-" + q.To.Format("20060102")
}

// MarketDataProvider returns raw daily bars for one ticker
// ⭐ SSOT: 외부 시세 데이터는 이 인터페이스로만 접근
type MarketDataProvider interface {
	Name() string
	FetchFrame(ctx context.Context, ticker string, q Query) (*Frame, error)
}

// Span converts the query into an explicit [from, to] date range relative to now.
// "max" maps to 30 years.
func (q Query) Span(now time.Time) (time.Time, time.Time) {
	if !q.IsRange() {
		return q.From, q.To
	}

	switch q.Range {
	case "5d":
		return now.AddDate(0, 0, -5), now
	case "1mo":
		return now.AddDate(0, -1, 0), now
	case "3mo":
		return now.AddDate(0, -3, 0), now
	case "6mo":
		return now.AddDate(0, -6, 0), now
	case "1y":
		return now.AddDate(-1, 0, 0), now
	case "2y":
		return now.AddDate(-2, 0, 0), now
	case "5y":
		return now.AddDate(-5, 0, 0), now
	case "10y":
		return now.AddDate(-10, 0, 0), now
	default:
		return now.AddDate(-30, 0, 0), now
	}
}
