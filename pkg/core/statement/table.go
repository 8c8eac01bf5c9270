package statement

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// PeriodLayout is the date layout of a Period.
const PeriodLayout = "2006-01-02"

// Period identifies a fiscal period by its end date (ISO, so it sorts as a string).
type Period string

// ParsePeriod validates and normalises a fiscal period end date.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse(PeriodLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid fiscal period %q: %w", s, err)
	}
	return PeriodOf(t), nil
}

// PeriodOf converts a timestamp to its fiscal period end date.
func PeriodOf(t time.Time) Period {
	return Period(t.UTC().Format(PeriodLayout))
}

// Time returns the period end as a UTC date.
func (p Period) Time() time.Time {
	t, _ := time.Parse(PeriodLayout, string(p))
	return t
}

// Table is one financial statement: label -> period -> value.
// Periods are kept ordered most recent first.
type Table struct {
	kind    Kind
	periods []Period
	rows    map[Label]map[Period]float64
}

// NewTable creates an empty table of the given kind.
func NewTable(kind Kind) *Table {
	return &Table{kind: kind, rows: make(map[Label]map[Period]float64)}
}

// Set records a value. NaN and infinite values are treated as absent, and a
// label that belongs to another statement is ignored.
func (t *Table) Set(label Label, period Period, value float64) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return
	}
	if k, ok := KindOf(label); !ok || k != t.kind {
		return
	}
	row, ok := t.rows[label]
	if !ok {
		row = make(map[Period]float64)
		t.rows[label] = row
	}
	row[period] = value
	t.addPeriod(period)
}

func (t *Table) addPeriod(p Period) {
	i := sort.Search(len(t.periods), func(i int) bool { return t.periods[i] <= p })
	if i < len(t.periods) && t.periods[i] == p {
		return
	}
	t.periods = append(t.periods, "")
	copy(t.periods[i+1:], t.periods[i:])
	t.periods[i] = p
}

// Lookup returns the reported value and whether it was present.
func (t *Table) Lookup(label Label, period Period) (float64, bool) {
	if t == nil {
		return 0, false
	}
	row, ok := t.rows[label]
	if !ok {
		return 0, false
	}
	v, ok := row[period]
	return v, ok
}

// Get returns the reported value, or 0 when the label or the period is absent.
// A missing line item is an expected case (a bank has no Inventory row).
func (t *Table) Get(label Label, period Period) float64 {
	v, _ := t.Lookup(label, period)
	return v
}

// GetLatest reads the label at the most recent period.
func (t *Table) GetLatest(label Label) float64 {
	p, ok := t.Latest()
	if !ok {
		return 0
	}
	return t.Get(label, p)
}

// FirstOf returns the value of the first label in the chain that is present
// for the period.
func (t *Table) FirstOf(period Period, labels ...Label) (float64, bool) {
	for _, l := range labels {
		if v, ok := t.Lookup(l, period); ok {
			return v, true
		}
	}
	return 0, false
}

// Latest returns the most recent period.
func (t *Table) Latest() (Period, bool) {
	if t == nil || len(t.periods) == 0 {
		return "", false
	}
	return t.periods[0], true
}

// Periods returns the periods most recent first.
func (t *Table) Periods() []Period {
	if t == nil {
		return nil
	}
	out := make([]Period, len(t.periods))
	copy(out, t.periods)
	return out
}

// HasPeriod reports whether any row carries a value for p.
func (t *Table) HasPeriod(p Period) bool {
	for _, q := range t.Periods() {
		if q == p {
			return true
		}
	}
	return false
}

// IsEmpty reports whether the table holds no values at all.
func (t *Table) IsEmpty() bool {
	return t == nil || len(t.periods) == 0
}
