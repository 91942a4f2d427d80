package labmatcher

import (
	"sort"
	"strings"
)

// MatchOptions narrows and sizes one match call.
type MatchOptions struct {
	// Include keeps only recipes whose formula text contains it.
	Include string
	// Exclude drops recipes whose formula text contains it.
	Exclude string
	TopN    int
	// FormulaFields are the columns concatenated into the formula text. Nil
	// means DefaultFormulaFields.
	FormulaFields []string
}

type ranked struct {
	idx    int
	deltaE float64
}

// FindClosest returns at most opts.TopN records closest to q, ascending by
// Delta E, keeping only the nearest record of each serial number. Records with
// a blank serial are each treated as their own recipe. Distances
// live in a per-call slice; records are never annotated in place.
func FindClosest(records []Record, q Lab, opts MatchOptions) []Match {
	if len(records) == 0 || opts.TopN <= 0 {
		return []Match{}
	}
	formula := opts.FormulaFields
	if formula == nil {
		formula = DefaultFormulaFields()
	}
	formula = normalizeNames(formula)

	order := make([]ranked, len(records))
	for i := range records {
		order[i] = ranked{idx: i, deltaE: RecordDistance(q, records[i])}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].deltaE < order[j].deltaE
	})

	out := make([]Match, 0, opts.TopN)
	seen := make(map[string]struct{})
	for _, r := range order {
		rec := records[r.idx]
		// A blank serial identifies nothing, so such rows never collapse.
		if _, ok := seen[rec.Serial]; ok && rec.Serial != "" {
			continue
		}
		text := FormulaText(rec, formula)
		if opts.Include != "" && !strings.Contains(text, opts.Include) {
			continue
		}
		if opts.Exclude != "" && strings.Contains(text, opts.Exclude) {
			continue
		}
		if rec.Serial != "" {
			seen[rec.Serial] = struct{}{}
		}
		out = append(out, Match{Record: rec, DeltaE: r.deltaE})
		if len(out) == opts.TopN {
			break
		}
	}
	return out
}

// FormulaText joins the non-empty values of the given fields, in field order,
// with single spaces. Fields missing from the record are skipped.
func FormulaText(rec Record, fields []string) string {
	parts := make([]string, 0, len(fields))
	for _, name := range fields {
		v, ok := rec.Field(name)
		if !ok || v.Text == "" {
			continue
		}
		parts = append(parts, v.Text)
	}
	return strings.Join(parts, " ")
}

func normalizeNames(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = normalizeHeader(n)
	}
	return out
}
