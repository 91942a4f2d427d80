package labmatcher

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hit struct {
	Serial string
	DeltaE float64
}

func hits(matches []Match) []hit {
	out := make([]hit, len(matches))
	for i, m := range matches {
		out[i] = hit{Serial: m.Record.Serial, DeltaE: m.DeltaE}
	}
	return out
}

func rec(serial string, l, a, b float64, formula ...string) Record {
	r := Record{
		Serial: serial,
		Lab:    Lab{L: l, A: a, B: b},
		Fields: []Field{{Name: "Serial Number", Value: NewValue(serial)}},
	}
	names := DefaultFormulaFields()
	for i, f := range formula {
		r.Fields = append(r.Fields, Field{Name: names[i], Value: NewValue(f)})
	}
	return r
}

func TestFindClosestKeepsNearestRowPerSerial(t *testing.T) {
	records := []Record{
		rec("1", 50, 0, 0),
		rec("2", 55, 0, 0),
		rec("1", 52, 0, 0),
	}
	got := FindClosest(records, Lab{L: 50}, MatchOptions{TopN: 2})
	want := []hit{{Serial: "1", DeltaE: 0}, {Serial: "2", DeltaE: 5}}
	if diff := cmp.Diff(want, hits(got)); diff != "" {
		t.Errorf("unexpected matches (-want +got):\n%s", diff)
	}
}

func TestFindClosestEmptyStore(t *testing.T) {
	got := FindClosest(nil, Lab{L: 50}, MatchOptions{TopN: 3})
	require.NotNil(t, got)
	assert.Empty(t, got)

	var s *Store
	assert.Empty(t, s.FindClosest(Lab{}, MatchOptions{TopN: 3}))
}

func TestFindClosestNonPositiveTopN(t *testing.T) {
	records := []Record{rec("1", 50, 0, 0)}
	assert.Empty(t, FindClosest(records, Lab{}, MatchOptions{TopN: 0}))
	assert.Empty(t, FindClosest(records, Lab{}, MatchOptions{TopN: -2}))
}

func sampleRecords() []Record {
	return []Record{
		rec("A1", 40, 5, -3, "紅砂", "白粉"),
		rec("A2", 62, -4, 10, "黃砂"),
		rec("A1", 41, 4, -2, "紅砂", "黑粉"),
		rec("B7", 70, 12, 30, "黃砂", "白粉", "金粉"),
		rec("C3", 20, -10, -10, "黑砂"),
		rec("C3", 25, -8, -9, "黑砂", "白粉"),
		rec("D9", 55, 1, 1),
		rec("E2", 50, 0, 0, "白粉"),
	}
}

func TestFindClosestProperties(t *testing.T) {
	records := sampleRecords()
	queries := []Lab{{L: 50}, {L: 30, A: -5, B: -5}, {L: 90, A: 20, B: 40}, {L: 41, A: 4, B: -2}}
	for _, q := range queries {
		got := FindClosest(records, q, MatchOptions{TopN: 4})
		require.LessOrEqual(t, len(got), 4)

		seen := map[string]bool{}
		for i, m := range got {
			assert.False(t, seen[m.Record.Serial], "serial %s returned twice", m.Record.Serial)
			seen[m.Record.Serial] = true
			assert.Equal(t, RecordDistance(q, m.Record), m.DeltaE)
			if i > 0 {
				assert.LessOrEqual(t, got[i-1].DeltaE, m.DeltaE)
			}
		}

		again := FindClosest(records, q, MatchOptions{TopN: 4})
		assert.Equal(t, got, again)
	}
}

func TestFindClosestCoversEverySerialAtMinimumDistance(t *testing.T) {
	records := sampleRecords()
	q := Lab{L: 45, A: 2, B: 0}
	got := FindClosest(records, q, MatchOptions{TopN: len(records)})

	minBySerial := map[string]float64{}
	for _, r := range records {
		d := RecordDistance(q, r)
		if cur, ok := minBySerial[r.Serial]; !ok || d < cur {
			minBySerial[r.Serial] = d
		}
	}
	require.Len(t, got, len(minBySerial))
	for _, m := range got {
		assert.Equal(t, minBySerial[m.Record.Serial], m.DeltaE, "serial %s", m.Record.Serial)
	}
}

func TestFindClosestIncludeFilter(t *testing.T) {
	got := FindClosest(sampleRecords(), Lab{L: 50}, MatchOptions{TopN: 10, Include: "白粉"})
	require.NotEmpty(t, got)
	for _, m := range got {
		assert.Contains(t, FormulaText(m.Record, DefaultFormulaFields()), "白粉")
	}
	assert.Equal(t, []string{"E2", "A1", "C3", "B7"}, serials(got))
}

func TestFindClosestExcludeFilter(t *testing.T) {
	got := FindClosest(sampleRecords(), Lab{L: 50}, MatchOptions{TopN: 10, Exclude: "砂"})
	for _, m := range got {
		assert.NotContains(t, FormulaText(m.Record, DefaultFormulaFields()), "砂")
	}
	assert.Equal(t, []string{"E2", "D9"}, serials(got))
}

func TestFindClosestFilterFallsThroughToFartherRowOfSameSerial(t *testing.T) {
	// A1's nearest row mentions 白粉; its farther row does not.
	got := FindClosest(sampleRecords(), Lab{L: 40, A: 5, B: -3}, MatchOptions{TopN: 1, Exclude: "白粉"})
	require.Len(t, got, 1)
	assert.Equal(t, "A1", got[0].Record.Serial)
	assert.InDelta(t, math.Sqrt(3), got[0].DeltaE, 1e-12)
}

func TestFindClosestBothFilters(t *testing.T) {
	got := FindClosest(sampleRecords(), Lab{L: 50}, MatchOptions{TopN: 10, Include: "砂", Exclude: "白粉"})
	for _, m := range got {
		text := FormulaText(m.Record, DefaultFormulaFields())
		assert.Contains(t, text, "砂")
		assert.NotContains(t, text, "白粉")
	}
	assert.Equal(t, []string{"A1", "A2", "C3"}, serials(got))
}

func TestFindClosestFilterIsCaseSensitive(t *testing.T) {
	records := []Record{rec("1", 50, 0, 0, "Red Sand"), rec("2", 51, 0, 0, "red sand")}
	got := FindClosest(records, Lab{L: 50}, MatchOptions{TopN: 3, Include: "red"})
	assert.Equal(t, []string{"2"}, serials(got))
}

func TestFindClosestBlankSerialsAreDistinct(t *testing.T) {
	records := []Record{rec("", 50, 0, 0), rec("", 53, 0, 0), rec("7", 51, 0, 0)}
	got := FindClosest(records, Lab{L: 50}, MatchOptions{TopN: 3})
	want := []hit{{Serial: "", DeltaE: 0}, {Serial: "7", DeltaE: 1}, {Serial: "", DeltaE: 3}}
	if diff := cmp.Diff(want, hits(got)); diff != "" {
		t.Errorf("unexpected matches (-want +got):\n%s", diff)
	}
}

func TestFindClosestTiesKeepLoadOrder(t *testing.T) {
	records := []Record{rec("x", 50, 1, 0), rec("y", 50, -1, 0), rec("z", 50, 0, 1)}
	got := FindClosest(records, Lab{L: 50}, MatchOptions{TopN: 3})
	assert.Equal(t, []string{"x", "y", "z"}, serials(got))
}

func TestFindClosestDoesNotReorderInput(t *testing.T) {
	records := sampleRecords()
	before := serialsOf(records)
	FindClosest(records, Lab{L: 90}, MatchOptions{TopN: 3})
	assert.Equal(t, before, serialsOf(records))
}

func TestFormulaText(t *testing.T) {
	r := rec("1", 0, 0, 0, "紅砂", "", "金粉")
	assert.Equal(t, "紅砂 金粉", FormulaText(r, DefaultFormulaFields()))
	assert.Equal(t, "", FormulaText(r, []string{"missing"}))
}

func serials(matches []Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Record.Serial
	}
	return out
}

func serialsOf(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Serial
	}
	return out
}
