package contracts

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// LookbackKind distinguishes the two lookback variants
type LookbackKind int

const (
	LookbackDays LookbackKind = iota + 1
	LookbackAnchorDate
)

func (k LookbackKind) String() string {
	switch k {
	case LookbackDays:
		return "days"
	case LookbackAnchorDate:
		return "anchor_date"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind for JSON/YAML
func (k LookbackKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText reads a kind written by MarshalText
func (k *LookbackKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "days":
		*k = LookbackDays
	case "anchor_date":
		*k = LookbackAnchorDate
	default:
		return fmt.Errorf("unknown lookback kind %q", text)
	}
	return nil
}

// AnchorLayouts are the calendar date layouts accepted for anchor dates
var AnchorLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"20060102",
	time.RFC3339,
}

// LookbackSpec is the caller's window definition: a day count or an anchor date
// ⭐ SSOT: 기간 입력은 이 타입으로만 표현 (downstream은 Window만 사용)
type LookbackSpec struct {
	Kind   LookbackKind
	Days   int
	Anchor time.Time
	Raw    string // original text, kept for labels and errors
}

// DaysSpec builds a Days(n) spec
func DaysSpec(n int) LookbackSpec {
	return LookbackSpec{Kind: LookbackDays, Days: n, Raw: strconv.Itoa(n)}
}

// AnchorSpec builds an AnchorDate(d) spec
func AnchorSpec(d time.Time) LookbackSpec {
	return LookbackSpec{Kind: LookbackAnchorDate, Anchor: d, Raw: d.Format("2006-01-02")}
}

// RawSpec keeps unparsed text; the resolver interprets it
func RawSpec(s string) LookbackSpec {
	return LookbackSpec{Raw: strings.TrimSpace(s)}
}

// ParseLookbackSpec reads "60" as Days(60) and "2020-01-01" as AnchorDate.
// Anything else is InvalidSpec.
func ParseLookbackSpec(s string) (LookbackSpec, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return LookbackSpec{}, NewError(KindInvalidSpec, StageResolve, "empty lookback spec", nil)
	}

	if n, err := strconv.Atoi(raw); err == nil {
		if n < 1 {
			return LookbackSpec{}, NewError(KindInvalidSpec, StageResolve,
				fmt.Sprintf("lookback days must be >= 1, got %d", n), nil)
		}
		spec := DaysSpec(n)
		spec.Raw = raw
		return spec, nil
	}

	d, err := ParseAnchorDate(raw)
	if err != nil {
		return LookbackSpec{}, err
	}
	spec := AnchorSpec(d)
	spec.Raw = raw
	return spec, nil
}

// ParseAnchorDate parses one of AnchorLayouts
func ParseAnchorDate(s string) (time.Time, error) {
	for _, layout := range AnchorLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, NewError(KindInvalidSpec, StageResolve,
		fmt.Sprintf("cannot parse %q as day count or date", s), nil)
}

// String returns the spec as text
func (s LookbackSpec) String() string {
	if s.Raw != "" {
		return s.Raw
	}
	switch s.Kind {
	case LookbackDays:
		return strconv.Itoa(s.Days)
	case LookbackAnchorDate:
		return s.Anchor.Format("2006-01-02")
	default:
		return ""
	}
}

// Window is a resolved lookback.
// LookbackDays is computed once at resolution and never re-derived.
type Window struct {
	LookbackDays int          `json:"lookback_days"`
	Anchor       *time.Time   `json:"anchor,omitempty"`
	Mode         LookbackKind `json:"mode"`
	ResolvedAt   time.Time    `json:"resolved_at"`
}

// IsAnchored reports whether the window was resolved from an anchor date
func (w Window) IsAnchored() bool {
	return w.Mode == LookbackAnchorDate && w.Anchor != nil
}
