package naver

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var dailyDateRe = regexp.MustCompile(`^\d{4}\.\d{2}\.\d{2}$`)

// fetchDailyTable scrapes the sise_day HTML table page by page (newest first)
// until it passes from or runs out of pages.
func (c *Client) fetchDailyTable(ctx context.Context, code string, from, to time.Time) ([]priceRow, error) {
	var all []priceRow

	for page := 1; page <= maxDailyPages; page++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		url := fmt.Sprintf("%s/item/sise_day.naver?code=%s&page=%d", c.baseURL, code, page)
		body, err := c.httpClient.GetBody(ctx, url, headers())
		if err != nil {
			return nil, err
		}

		rows, oldest, hasMore := parseDailyHTML(string(body), from, to)
		all = append(all, rows...)

		// 기준일보다 이전 데이터면 종료
		if oldest.IsZero() || oldest.Before(from) || !hasMore {
			break
		}
	}

	return sortRows(all), nil
}

// parseDailyHTML reads one sise_day page.
// 컬럼: 날짜 | 종가 | 전일비 | 시가 | 고가 | 저가 | 거래량
func parseDailyHTML(html string, from, to time.Time) ([]priceRow, time.Time, bool) {
	var rows []priceRow
	var oldest time.Time

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return rows, oldest, false
	}

	doc.Find("table.type2 tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 7 {
			return
		}

		dateText := strings.TrimSpace(cells.Eq(0).Text())
		if !dailyDateRe.MatchString(dateText) {
			return
		}
		tradeDate, err := time.Parse("2006.01.02", dateText)
		if err != nil {
			return
		}
		oldest = tradeDate

		if tradeDate.Before(dayStart(from)) || tradeDate.After(to) {
			return
		}

		rows = append(rows, priceRow{
			date:   tradeDate,
			close:  parseNum(cells.Eq(1).Text()),
			open:   parseNum(cells.Eq(3).Text()),
			high:   parseNum(cells.Eq(4).Text()),
			low:    parseNum(cells.Eq(5).Text()),
			volume: parseNum(cells.Eq(6).Text()),
		})
	})

	hasMore := doc.Find(".pgRR").Length() > 0
	return rows, oldest, hasMore
}

func parseNum(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return math.NaN()
	}
	return toFloat(s)
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
