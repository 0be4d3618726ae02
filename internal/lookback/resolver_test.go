package lookback

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-momentum/internal/contracts"
)

var fixedNow = time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC)

func newTestResolver() *Resolver {
	return NewResolverWithClock(func() time.Time { return fixedNow })
}

func TestResolveDays(t *testing.T) {
	r := newTestResolver()

	for _, n := range []int{1, 2, 30, 60, 90, 180, 365, 730, 5000} {
		w, err := r.Resolve(contracts.DaysSpec(n))
		require.NoError(t, err)
		assert.Equal(t, n, w.LookbackDays)
		assert.Equal(t, contracts.LookbackDays, w.Mode)
		assert.Nil(t, w.Anchor)
		assert.Equal(t, fixedNow, w.ResolvedAt)
	}
}

func TestResolveDaysInvalid(t *testing.T) {
	r := newTestResolver()

	for _, n := range []int{0, -1, -365} {
		_, err := r.Resolve(contracts.DaysSpec(n))
		assert.True(t, errors.Is(err, contracts.ErrInvalidSpec), "n=%d", n)
	}
}

func TestResolveAnchorDate(t *testing.T) {
	r := newTestResolver()

	tests := []struct {
		anchor string
		want   int
	}{
		{"2024-02-29", 1},
		{"2024-02-01", 29},
		{"2023-03-01", 366},
		{"2020-01-01", 1521},
	}

	for _, tt := range tests {
		t.Run(tt.anchor, func(t *testing.T) {
			w, err := r.ResolveString(tt.anchor)
			require.NoError(t, err)
			assert.Equal(t, tt.want, w.LookbackDays)
			assert.Equal(t, contracts.LookbackAnchorDate, w.Mode)
			require.NotNil(t, w.Anchor)
			assert.Equal(t, tt.anchor, w.Anchor.Format("2006-01-02"))
		})
	}
}

func TestResolveAnchorNotInPast(t *testing.T) {
	r := newTestResolver()

	for _, s := range []string{"2024-03-01", "2024-03-02", "2030-01-01"} {
		_, err := r.ResolveString(s)
		assert.True(t, errors.Is(err, contracts.ErrInvalidSpec), s)
	}
}

func TestResolveUnparsableIsDeterministic(t *testing.T) {
	r := newTestResolver()

	for i := 0; i < 3; i++ {
		_, err := r.ResolveString("yesterday-ish")
		require.Error(t, err)
		assert.Equal(t, contracts.KindInvalidSpec, contracts.KindOf(err))
		assert.Equal(t, contracts.StageResolve, contracts.StageOf(err))
	}
}

func TestResolveEmptySpec(t *testing.T) {
	_, err := newTestResolver().Resolve(contracts.LookbackSpec{})
	assert.True(t, errors.Is(err, contracts.ErrInvalidSpec))
}

func TestWindowIsCachedValue(t *testing.T) {
	now := fixedNow
	r := NewResolverWithClock(func() time.Time { return now })

	w, err := r.ResolveString("2024-02-01")
	require.NoError(t, err)

	now = now.AddDate(0, 0, 10)
	assert.Equal(t, 29, w.LookbackDays)
}

func TestDaysBetween(t *testing.T) {
	anchor := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, DaysBetween(anchor, time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC)))
	assert.Equal(t, 31, DaysBetween(anchor, time.Date(2024, 2, 1, 0, 1, 0, 0, time.UTC)))
}

func TestResolveAncientAnchor(t *testing.T) {
	r := NewResolverWithClock(func() time.Time {
		return time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	})

	tests := []struct {
		spec string
		days int
	}{
		{"1900-01-01", 46309},
		{"1700-01-01", 119357},
		{"1000-01-01", 375027},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			w, err := r.ResolveString(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.days, w.LookbackDays)
		})
	}
}

func TestResolveRawSpec(t *testing.T) {
	r := newTestResolver()

	w, err := r.Resolve(contracts.RawSpec(" 60 "))
	require.NoError(t, err)
	assert.Equal(t, 60, w.LookbackDays)
	assert.Equal(t, contracts.LookbackDays, w.Mode)

	w, err = r.Resolve(contracts.RawSpec("2024-02-01"))
	require.NoError(t, err)
	assert.Equal(t, 29, w.LookbackDays)
	assert.True(t, w.IsAnchored())

	_, err = r.Resolve(contracts.RawSpec("last quarter"))
	assert.ErrorIs(t, err, contracts.ErrInvalidSpec)
}
