package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-momentum/pkg/config"
)

type payload struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

func TestNewClient_Disabled(t *testing.T) {
	client, err := New(context.Background(), config.RedisConfig{Enabled: false})
	require.NoError(t, err)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.Close())
}

func TestCache_Disabled(t *testing.T) {
	client, _ := New(context.Background(), config.RedisConfig{Enabled: false})
	cache := NewCache(client, "test")

	var result payload
	found, err := cache.Get(context.Background(), "k", &result)
	assert.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, cache.Set(context.Background(), "k", payload{}, time.Minute))
	assert.NoError(t, cache.Delete(context.Background(), "k"))
}

func TestCache_GetHit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewCache(Wrap(db), "momentum")

	mock.ExpectGet("momentum:k").SetVal(`{"name":"AAPL","value":1.5}`)

	var result payload
	found, err := cache.Get(context.Background(), "k", &result)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, payload{Name: "AAPL", Value: 1.5}, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_GetMiss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewCache(Wrap(db), "momentum")

	mock.ExpectGet("momentum:k").RedisNil()

	var result payload
	found, err := cache.Get(context.Background(), "k", &result)
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestCache_GetError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewCache(Wrap(db), "momentum")

	mock.ExpectGet("momentum:k").SetErr(errors.New("connection refused"))

	var result payload
	found, err := cache.Get(context.Background(), "k", &result)
	assert.Error(t, err)
	assert.False(t, found)
}

func TestCache_Set(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewCache(Wrap(db), "momentum")

	mock.ExpectSet("momentum:k", []byte(`{"name":"MSFT","value":2}`), time.Hour).SetVal("OK")

	err := cache.Set(context.Background(), "k", payload{Name: "MSFT", Value: 2}, time.Hour)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
