package naver

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/pkg/httputil"
	"github.com/wonny/aegis-momentum/pkg/logger"
)

const sampleChart = `[['날짜', '시가', '고가', '저가', '종가', '거래량', '외국인소진율'],
["20240116", 72500, 73500, 72300, 73000, 1200000, 53.1],
["20240115", 72300, 73000, 72000, 72500, 1000000, 53.0]
]`

const sampleDaily = `
<html><body>
<table class="type2">
  <tr><th>날짜</th><th>종가</th><th>전일비</th><th>시가</th><th>고가</th><th>저가</th><th>거래량</th></tr>
  <tr>
    <td><span class="tah">2024.01.16</span></td>
    <td><span class="tah">73,000</span></td>
    <td><span class="tah">500</span></td>
    <td><span class="tah">72,500</span></td>
    <td><span class="tah">73,500</span></td>
    <td><span class="tah">72,300</span></td>
    <td><span class="tah">1,200,000</span></td>
  </tr>
  <tr>
    <td><span class="tah">2024.01.15</span></td>
    <td><span class="tah">72,500</span></td>
    <td><span class="tah">200</span></td>
    <td><span class="tah">72,300</span></td>
    <td><span class="tah">73,000</span></td>
    <td><span class="tah">72,000</span></td>
    <td><span class="tah">1,000,000</span></td>
  </tr>
  <tr><td colspan="7"></td></tr>
</table>
</body></html>`

func TestParsePriceResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"chart json", sampleChart, 2},
		{"empty body", "", 0},
		{"header only", `[['날짜', '시가', '고가', '저가', '종가', '거래량']]`, 0},
		{"broken json uses regex", `garbage ["20240115", 100, 110, 90, 105, 5000] trailing`, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := parsePriceResponse(tt.body)
			require.NoError(t, err)
			assert.Len(t, rows, tt.want)
		})
	}
}

func TestParsePriceResponseSortsAscending(t *testing.T) {
	rows, err := parsePriceResponse(sampleChart)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "2024-01-15", rows[0].date.Format("2006-01-02"))
	assert.Equal(t, 72500.0, rows[0].close)
	assert.Equal(t, 1200000.0, rows[1].volume)
}

func TestParseDailyHTML(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	rows, oldest, hasMore := parseDailyHTML(sampleDaily, from, to)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-01-15", oldest.Format("2006-01-02"))
	assert.False(t, hasMore)

	assert.Equal(t, 73000.0, rows[0].close)
	assert.Equal(t, 72500.0, rows[0].open)
	assert.Equal(t, 73500.0, rows[0].high)
	assert.Equal(t, 72300.0, rows[0].low)
	assert.Equal(t, 1200000.0, rows[0].volume)
}

func TestToFloat(t *testing.T) {
	assert.Equal(t, 1.5, toFloat(1.5))
	assert.Equal(t, 1000.0, toFloat("1,000"))
	assert.Equal(t, 3.0, toFloat(3))
	assert.True(t, math.IsNaN(toFloat("n/a")))
	assert.True(t, math.IsNaN(toFloat(nil)))
}

func newTestClient(chartURL, baseURL string) *Client {
	c := NewClient(httputil.New(logger.Nop(), 5*time.Second), logger.Nop(), baseURL, chartURL)
	c.now = func() time.Time { return time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC) }
	return c
}

func TestFetchFrameFromChart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/siseJson.naver", r.URL.Path)
		assert.Equal(t, "005930", r.URL.Query().Get("symbol"))
		assert.Equal(t, "20231020", r.URL.Query().Get("startTime"))
		assert.Equal(t, "20240120", r.URL.Query().Get("endTime"))
		fmt.Fprint(w, sampleChart)
	}))
	defer server.Close()

	c := newTestClient(server.URL, server.URL)
	frame, err := c.FetchFrame(context.Background(), "005930", contracts.Query{Range: "3mo"})
	require.NoError(t, err)

	assert.Equal(t, "naver", c.Name())
	assert.Equal(t, "005930", frame.Ticker)
	assert.Equal(t, 2, frame.Len())
	assert.Equal(t, []float64{72500, 73000}, frame.Columns[contracts.FieldClose])
}

func TestFetchFrameFallsBackToDailyTable(t *testing.T) {
	var dailyCalls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/siseJson.naver":
			fmt.Fprint(w, "\n\n")
		case strings.HasPrefix(r.URL.Path, "/item/sise_day.naver"):
			dailyCalls++
			fmt.Fprint(w, sampleDaily)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	c := newTestClient(server.URL, server.URL)
	frame, err := c.FetchFrame(context.Background(), "005930", contracts.Query{Range: "1mo"})
	require.NoError(t, err)

	assert.Equal(t, 1, dailyCalls)
	assert.Equal(t, 2, frame.Len())
	assert.Equal(t, []float64{72500, 73000}, frame.Columns[contracts.FieldClose])
}

func TestFetchFrameHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := newTestClient(server.URL, server.URL)
	_, err := c.FetchFrame(context.Background(), "005930", contracts.Query{Range: "1mo"})
	assert.Error(t, err)
}
