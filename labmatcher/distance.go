package labmatcher

import "math"

// Distance is the CIE76 Delta E between two colors: the Euclidean distance
// over (L, a, b).
func Distance(q, c Lab) float64 {
	dl := q.L - c.L
	da := q.A - c.A
	db := q.B - c.B
	return math.Sqrt(dl*dl + da*da + db*db)
}

// RecordDistance measures a record against the query color.
func RecordDistance(q Lab, r Record) float64 {
	return Distance(q, r.Lab)
}
