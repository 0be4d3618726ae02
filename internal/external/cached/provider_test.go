package cached

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/pkg/config"
	"github.com/wonny/aegis-momentum/pkg/logger"
	"github.com/wonny/aegis-momentum/pkg/redis"
)

type stubProvider struct {
	frame *contracts.Frame
	err   error
	calls int
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) FetchFrame(ctx context.Context, ticker string, q contracts.Query) (*contracts.Frame, error) {
	s.calls++
	return s.frame, s.err
}

func sampleFrame() *contracts.Frame {
	f := contracts.NewFrame("AAPL", 2)
	f.Timestamps[0] = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	f.Timestamps[1] = time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	for _, field := range contracts.RequiredFields {
		f.Columns[field][0] = 100
		f.Columns[field][1] = 101
	}
	f.Columns[contracts.FieldHigh][1] = math.NaN()
	return f
}

func encoded(t *testing.T, f *contracts.Frame) []byte {
	t.Helper()
	b, err := json.Marshal(fromFrame(f))
	require.NoError(t, err)
	return b
}

const key = "momentum:frame:stub:AAPL:3mo"

func TestProviderMissStoresFrame(t *testing.T) {
	db, mock := redismock.NewClientMock()
	inner := &stubProvider{frame: sampleFrame()}
	p := NewProvider(inner, redis.Wrap(db), time.Hour, logger.Nop())

	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, encoded(t, inner.frame), time.Hour).SetVal("OK")

	frame, err := p.FetchFrame(context.Background(), "AAPL", contracts.Query{Range: "3mo"})
	require.NoError(t, err)
	assert.Equal(t, 2, frame.Len())
	assert.Equal(t, 1, inner.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProviderHitSkipsInner(t *testing.T) {
	db, mock := redismock.NewClientMock()
	inner := &stubProvider{}
	p := NewProvider(inner, redis.Wrap(db), time.Hour, logger.Nop())

	mock.ExpectGet(key).SetVal(string(encoded(t, sampleFrame())))

	frame, err := p.FetchFrame(context.Background(), "AAPL", contracts.Query{Range: "3mo"})
	require.NoError(t, err)
	assert.Equal(t, 0, inner.calls)
	require.Equal(t, 2, frame.Len())
	assert.Equal(t, 101.0, frame.Value(contracts.FieldClose, 1))
	assert.True(t, math.IsNaN(frame.Value(contracts.FieldHigh, 1)))
	assert.Equal(t, "2024-01-03", frame.Timestamps[1].Format("2006-01-02"))
}

func TestProviderCacheErrorFallsThrough(t *testing.T) {
	db, mock := redismock.NewClientMock()
	inner := &stubProvider{frame: sampleFrame()}
	p := NewProvider(inner, redis.Wrap(db), time.Hour, logger.Nop())

	mock.ExpectGet(key).SetErr(errors.New("connection reset"))
	mock.ExpectDel(key).SetVal(0)
	mock.ExpectSet(key, encoded(t, inner.frame), time.Hour).SetErr(errors.New("connection reset"))

	frame, err := p.FetchFrame(context.Background(), "AAPL", contracts.Query{Range: "3mo"})
	require.NoError(t, err)
	assert.Equal(t, 2, frame.Len())
	assert.Equal(t, 1, inner.calls)
}

func TestProviderEmptyFrameNotCached(t *testing.T) {
	db, mock := redismock.NewClientMock()
	inner := &stubProvider{frame: contracts.NewFrame("AAPL", 0)}
	p := NewProvider(inner, redis.Wrap(db), time.Hour, logger.Nop())

	mock.ExpectGet(key).RedisNil()

	frame, err := p.FetchFrame(context.Background(), "AAPL", contracts.Query{Range: "3mo"})
	require.NoError(t, err)
	assert.Equal(t, 0, frame.Len())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProviderInnerErrorPropagates(t *testing.T) {
	db, mock := redismock.NewClientMock()
	inner := &stubProvider{err: errors.New("provider down")}
	p := NewProvider(inner, redis.Wrap(db), time.Hour, logger.Nop())

	mock.ExpectGet(key).RedisNil()

	_, err := p.FetchFrame(context.Background(), "AAPL", contracts.Query{Range: "3mo"})
	assert.EqualError(t, err, "provider down")
}

func TestProviderDisabledPassThrough(t *testing.T) {
	client, err := redis.New(context.Background(), config.RedisConfig{Enabled: false})
	require.NoError(t, err)

	inner := &stubProvider{frame: sampleFrame()}
	p := NewProvider(inner, client, 0, logger.Nop())

	frame, err := p.FetchFrame(context.Background(), "AAPL", contracts.Query{Range: "3mo"})
	require.NoError(t, err)
	assert.Equal(t, 2, frame.Len())
	assert.Equal(t, "stub", p.Name())
}
