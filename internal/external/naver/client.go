package naver

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/pkg/httputil"
	"github.com/wonny/aegis-momentum/pkg/logger"
)

const (
	defaultBaseURL  = "https://finance.naver.com"
	defaultChartURL = "https://fchart.stock.naver.com"

	// sise_day 페이지당 10행, 최대 페이지 수
	maxDailyPages = 60
)

// Client handles communication with Naver Finance
// ⭐ SSOT: Naver Finance API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	chartURL   string
	now        func() time.Time
}

// NewClient creates a new Naver Finance client.
// Empty URLs fall back to the public endpoints.
func NewClient(httpClient *httputil.Client, log *logger.Logger, baseURL, chartURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if chartURL == "" {
		chartURL = defaultChartURL
	}
	return &Client{
		httpClient: httpClient,
		logger:     log.WithModule("naver"),
		baseURL:    baseURL,
		chartURL:   chartURL,
		now:        time.Now,
	}
}

// Name implements contracts.MarketDataProvider
func (c *Client) Name() string {
	return "naver"
}

// FetchFrame fetches daily bars for a KRX code.
// The siseJson chart API is tried first; an empty answer falls back to the sise_day HTML table.
func (c *Client) FetchFrame(ctx context.Context, ticker string, q contracts.Query) (*contracts.Frame, error) {
	from, to := q.Span(c.now())

	rows, err := c.fetchChart(ctx, ticker, from, to)
	if err != nil {
		return nil, fmt.Errorf("naver chart %s: %w", ticker, err)
	}

	if len(rows) == 0 {
		c.logger.WithField("ticker", ticker).Debug("Chart API returned no rows, scraping daily table")

		rows, err = c.fetchDailyTable(ctx, ticker, from, to)
		if err != nil {
			return nil, fmt.Errorf("naver daily table %s: %w", ticker, err)
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker": ticker,
		"query":  q.String(),
		"count":  len(rows),
	}).Debug("Fetched prices")

	return rowsToFrame(ticker, rows), nil
}

// priceRow is one parsed daily row
type priceRow struct {
	date   time.Time
	open   float64
	high   float64
	low    float64
	close  float64
	volume float64
}

func rowsToFrame(ticker string, rows []priceRow) *contracts.Frame {
	f := contracts.NewFrame(ticker, len(rows))
	for i, r := range rows {
		f.Timestamps[i] = r.date
		f.Columns[contracts.FieldOpen][i] = r.open
		f.Columns[contracts.FieldHigh][i] = r.high
		f.Columns[contracts.FieldLow][i] = r.low
		f.Columns[contracts.FieldClose][i] = r.close
		f.Columns[contracts.FieldVolume][i] = r.volume
	}
	return f
}

func headers() map[string]string {
	return map[string]string{
		"User-Agent": "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
		"Referer":    "https://finance.naver.com/",
	}
}
