package naver

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

var priceRowRe = regexp.MustCompile(`\["(\d{8})",\s*([\d.]+),\s*([\d.]+),\s*([\d.]+),\s*([\d.]+),\s*([\d.]+)`)

// fetchChart calls the siseJson chart API
// ⭐ SSOT: Naver Finance 가격 API 호출은 이 함수에서만
func (c *Client) fetchChart(ctx context.Context, code string, from, to time.Time) ([]priceRow, error) {
	fullURL := fmt.Sprintf(
		"%s/siseJson.naver?symbol=%s&requestType=1&startTime=%s&endTime=%s&timeframe=day",
		c.chartURL, code, from.Format("20060102"), to.Format("20060102"),
	)

	body, err := c.httpClient.GetBody(ctx, fullURL, headers())
	if err != nil {
		return nil, err
	}

	return parsePriceResponse(string(body))
}

// parsePriceResponse parses the siseJson body (single-quoted pseudo JSON)
func parsePriceResponse(body string) ([]priceRow, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, nil
	}
	body = strings.ReplaceAll(body, "'", "\"")

	var rawData [][]interface{}
	if err := json.Unmarshal([]byte(body), &rawData); err == nil {
		return sortRows(parsePriceJSON(rawData)), nil
	}

	// Fallback to regex parsing
	return sortRows(parsePriceRegex(body)), nil
}

// parsePriceJSON parses JSON array format; the first row is the header
func parsePriceJSON(rawData [][]interface{}) []priceRow {
	var rows []priceRow
	for i, row := range rawData {
		if i == 0 || len(row) < 6 {
			continue
		}

		dateStr, ok := row[0].(string)
		if !ok {
			continue
		}
		tradeDate, err := time.Parse("20060102", strings.TrimSpace(strings.Trim(dateStr, "\"")))
		if err != nil {
			continue
		}

		rows = append(rows, priceRow{
			date:   tradeDate,
			open:   toFloat(row[1]),
			high:   toFloat(row[2]),
			low:    toFloat(row[3]),
			close:  toFloat(row[4]),
			volume: toFloat(row[5]),
		})
	}
	return rows
}

// parsePriceRegex parses using regex (fallback)
func parsePriceRegex(body string) []priceRow {
	matches := priceRowRe.FindAllStringSubmatch(body, -1)

	var rows []priceRow
	for _, match := range matches {
		tradeDate, err := time.Parse("20060102", match[1])
		if err != nil {
			continue
		}

		rows = append(rows, priceRow{
			date:   tradeDate,
			open:   toFloat(match[2]),
			high:   toFloat(match[3]),
			low:    toFloat(match[4]),
			close:  toFloat(match[5]),
			volume: toFloat(match[6]),
		})
	}
	return rows
}

func sortRows(rows []priceRow) []priceRow {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].date.Before(rows[j].date)
	})
	return rows
}

// toFloat converts various types to float64, NaN when unreadable
func toFloat(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int64:
		return float64(val)
	case int:
		return float64(val)
	case string:
		n, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(val), ",", ""), 64)
		if err != nil {
			return math.NaN()
		}
		return n
	default:
		return math.NaN()
	}
}
