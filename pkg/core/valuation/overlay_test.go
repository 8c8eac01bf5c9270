package valuation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valuation_dashboard/pkg/core/statement"
)

func day(s string) time.Time {
	t, _ := time.Parse(statement.PeriodLayout, s)
	return t
}

func TestMacroOverlayPicksLatestOnOrBefore(t *testing.T) {
	series := []Observation{
		{Date: day("2024-10-01"), Value: 250.1},
		{Date: day("2023-09-01"), Value: 240.0},
		{Date: day("2024-09-28"), Value: 249.5},
		{Date: day("2022-01-01"), Value: 210.0},
	}
	periods := []statement.Period{"2024-09-28", "2023-09-30", "2021-09-25"}

	pts := MacroOverlay(periods, series)
	require.Len(t, pts, 3)

	assert.Equal(t, 249.5, pts[0].Value.Value, "same-day observation counts")
	assert.Equal(t, 240.0, pts[1].Value.Value)
	require.NotNil(t, pts[1].ObservationDate)
	assert.Equal(t, day("2023-09-01"), *pts[1].ObservationDate)

	assert.False(t, pts[2].Value.Computable)
	assert.Nil(t, pts[2].ObservationDate)
}

func TestMacroOverlayEmptySeries(t *testing.T) {
	pts := MacroOverlay([]statement.Period{"2024-12-31"}, nil)
	require.Len(t, pts, 1)
	assert.False(t, pts[0].Value.Computable)
}
