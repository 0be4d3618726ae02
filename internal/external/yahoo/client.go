package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"time"

	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/pkg/httputil"
	"github.com/wonny/aegis-momentum/pkg/logger"
)

const defaultBaseURL = "https://query1.finance.yahoo.com"

// Client reads daily bars from the Yahoo Finance chart API
// ⭐ SSOT: Yahoo Finance 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new Yahoo Finance client
func NewClient(httpClient *httputil.Client, log *logger.Logger, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		logger:     log.WithModule("yahoo"),
		baseURL:    baseURL,
	}
}

// Name implements contracts.MarketDataProvider
func (c *Client) Name() string {
	return "yahoo"
}

// chartResponse mirrors the subset of /v8/finance/chart we read
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchFrame implements contracts.MarketDataProvider
func (c *Client) FetchFrame(ctx context.Context, ticker string, q contracts.Query) (*contracts.Frame, error) {
	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("events", "history")
	if q.IsRange() {
		params.Set("range", q.Range)
	} else {
		params.Set("period1", fmt.Sprintf("%d", q.From.Unix()))
		params.Set("period2", fmt.Sprintf("%d", q.To.Unix()))
	}

	fullURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(ticker), params.Encode())

	body, err := c.httpClient.GetBody(ctx, fullURL, map[string]string{"Accept": "application/json"})
	if err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", ticker, err)
	}

	frame, err := parseChart(ticker, body)
	if err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", ticker, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker": ticker,
		"query":  q.String(),
		"count":  frame.Len(),
	}).Debug("Fetched prices")

	return frame, nil
}

// parseChart converts a chart body into a frame.
// null cells become NaN; a missing quote column is left out of the frame.
func parseChart(ticker string, body []byte) (*contracts.Frame, error) {
	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode chart: %w", err)
	}

	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("provider error %s: %s", resp.Chart.Error.Code, resp.Chart.Error.Description)
	}

	frame := &contracts.Frame{Ticker: ticker, Columns: map[contracts.Field][]float64{}}
	if len(resp.Chart.Result) == 0 {
		return frame, nil
	}

	result := resp.Chart.Result[0]
	n := len(result.Timestamp)
	frame.Timestamps = make([]time.Time, n)
	for i, ts := range result.Timestamp {
		frame.Timestamps[i] = time.Unix(ts, 0).UTC()
	}

	if len(result.Indicators.Quote) == 0 {
		return frame, nil
	}
	quote := result.Indicators.Quote[0]

	columns := map[contracts.Field][]*float64{
		contracts.FieldOpen:   quote.Open,
		contracts.FieldHigh:   quote.High,
		contracts.FieldLow:    quote.Low,
		contracts.FieldClose:  quote.Close,
		contracts.FieldVolume: quote.Volume,
	}
	for field, raw := range columns {
		if raw == nil {
			continue
		}
		frame.Columns[field] = toColumn(raw, n)
	}

	return frame, nil
}

func toColumn(raw []*float64, n int) []float64 {
	col := make([]float64, n)
	for i := range col {
		if i < len(raw) && raw[i] != nil {
			col[i] = *raw[i]
		} else {
			col[i] = math.NaN()
		}
	}
	return col
}
