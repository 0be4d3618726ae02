package lookback

import (
	"fmt"
	"time"

	"github.com/wonny/aegis-momentum/internal/contracts"
)

// Resolver turns a LookbackSpec into a Window
// ⭐ SSOT: lookback_days 계산은 여기서만 (Window 생성 후 재계산 금지)
type Resolver struct {
	now func() time.Time
}

// NewResolver creates a resolver using the wall clock
func NewResolver() *Resolver {
	return &Resolver{now: time.Now}
}

// NewResolverWithClock creates a resolver with an injected clock
func NewResolverWithClock(now func() time.Time) *Resolver {
	return &Resolver{now: now}
}

// Resolve validates the spec and computes the window once
func (r *Resolver) Resolve(spec contracts.LookbackSpec) (contracts.Window, error) {
	now := r.now()

	switch spec.Kind {
	case contracts.LookbackDays:
		if spec.Days < 1 {
			return contracts.Window{}, contracts.NewError(contracts.KindInvalidSpec, contracts.StageResolve,
				fmt.Sprintf("lookback days must be >= 1, got %d", spec.Days), nil)
		}
		return contracts.Window{
			LookbackDays: spec.Days,
			Mode:         contracts.LookbackDays,
			ResolvedAt:   now,
		}, nil

	case contracts.LookbackAnchorDate:
		if spec.Anchor.IsZero() {
			return contracts.Window{}, contracts.NewError(contracts.KindInvalidSpec, contracts.StageResolve,
				"anchor date is missing", nil)
		}
		days := DaysBetween(spec.Anchor, now)
		if days < 1 {
			return contracts.Window{}, contracts.NewError(contracts.KindInvalidSpec, contracts.StageResolve,
				fmt.Sprintf("anchor date %s is not in the past", spec.Anchor.Format("2006-01-02")), nil)
		}
		anchor := spec.Anchor
		return contracts.Window{
			LookbackDays: days,
			Anchor:       &anchor,
			Mode:         contracts.LookbackAnchorDate,
			ResolvedAt:   now,
		}, nil

	default:
		// 미해석 입력은 여기서 해석
		if spec.Raw != "" {
			parsed, err := contracts.ParseLookbackSpec(spec.Raw)
			if err != nil {
				return contracts.Window{}, err
			}
			return r.Resolve(parsed)
		}
		return contracts.Window{}, contracts.NewError(contracts.KindInvalidSpec, contracts.StageResolve,
			"lookback spec has no kind", nil)
	}
}

// ResolveString parses and resolves in one step
func (r *Resolver) ResolveString(s string) (contracts.Window, error) {
	spec, err := contracts.ParseLookbackSpec(s)
	if err != nil {
		return contracts.Window{}, err
	}
	return r.Resolve(spec)
}

// DaysBetween counts whole calendar days from anchor to now.
// Unix seconds instead of time.Sub, which saturates past ~292 years.
func DaysBetween(anchor, now time.Time) int {
	now = now.In(anchor.Location())
	from := time.Date(anchor.Year(), anchor.Month(), anchor.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int((to.Unix() - from.Unix()) / secondsPerDay)
}

const secondsPerDay = 24 * 60 * 60
