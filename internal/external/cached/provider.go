package cached

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/pkg/logger"
	"github.com/wonny/aegis-momentum/pkg/redis"
)

// KeyPrefix namespaces every cached frame
const KeyPrefix = "momentum:frame"

// Provider decorates a MarketDataProvider with a Redis cache.
// Cache problems are logged and never fail a fetch; empty frames are not stored.
type Provider struct {
	inner  contracts.MarketDataProvider
	cache  *redis.Cache
	ttl    time.Duration
	logger *logger.Logger
}

// NewProvider wraps inner; a disabled client makes this a pass-through
func NewProvider(inner contracts.MarketDataProvider, client *redis.Client, ttl time.Duration, log *logger.Logger) *Provider {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Provider{
		inner:  inner,
		cache:  redis.NewCache(client, KeyPrefix),
		ttl:    ttl,
		logger: log.WithModule("frame_cache"),
	}
}

// Name implements contracts.MarketDataProvider
func (p *Provider) Name() string {
	return p.inner.Name()
}

// FetchFrame serves from cache when possible, otherwise from the inner provider
func (p *Provider) FetchFrame(ctx context.Context, ticker string, q contracts.Query) (*contracts.Frame, error) {
	if !p.cache.Enabled() {
		return p.inner.FetchFrame(ctx, ticker, q)
	}

	key := p.cacheKey(ticker, q)
	log := p.logger.WithFields(map[string]interface{}{"ticker": ticker, "key": key})

	var cachedFrame frameDTO
	found, err := p.cache.Get(ctx, key, &cachedFrame)
	switch {
	case err != nil:
		log.WithError(err).Warn("Frame cache read failed")
		// 깨진 값은 제거
		_ = p.cache.Delete(ctx, key)
	case found:
		log.Debug("Frame cache hit")
		return cachedFrame.toFrame(), nil
	}

	frame, err := p.inner.FetchFrame(ctx, ticker, q)
	if err != nil {
		return nil, err
	}

	if frame.Len() > 0 {
		if err := p.cache.Set(ctx, key, fromFrame(frame), p.ttl); err != nil {
			log.WithError(err).Warn("Frame cache write failed")
		}
	}

	return frame, nil
}

func (p *Provider) cacheKey(ticker string, q contracts.Query) string {
	return fmt.Sprintf("%s:%s:%s", safe(p.inner.Name()), safe(ticker), safe(q.String()))
}

func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}

// frameDTO is the JSON form of a frame; NaN cells are encoded as null
type frameDTO struct {
	Ticker     string                `json:"ticker"`
	Timestamps []int64               `json:"ts"`
	Columns    map[string][]*float64 `json:"cols"`
}

func fromFrame(f *contracts.Frame) frameDTO {
	dto := frameDTO{
		Ticker:     f.Ticker,
		Timestamps: make([]int64, len(f.Timestamps)),
		Columns:    make(map[string][]*float64, len(f.Columns)),
	}
	for i, ts := range f.Timestamps {
		dto.Timestamps[i] = ts.Unix()
	}
	for field, col := range f.Columns {
		out := make([]*float64, len(col))
		for i, v := range col {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				v := v
				out[i] = &v
			}
		}
		dto.Columns[string(field)] = out
	}
	return dto
}

func (d frameDTO) toFrame() *contracts.Frame {
	f := &contracts.Frame{
		Ticker:     d.Ticker,
		Timestamps: make([]time.Time, len(d.Timestamps)),
		Columns:    make(map[contracts.Field][]float64, len(d.Columns)),
	}
	for i, ts := range d.Timestamps {
		f.Timestamps[i] = time.Unix(ts, 0).UTC()
	}
	for field, col := range d.Columns {
		out := make([]float64, len(col))
		for i, v := range col {
			if v == nil {
				out[i] = math.NaN()
			} else {
				out[i] = *v
			}
		}
		f.Columns[contracts.Field(field)] = out
	}
	return f
}
