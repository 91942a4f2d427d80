package app

import (
	"errors"
	"strings"

	"yashubustudio/labmatcher/labmatcher"
)

var errInvalidLab = errors.New("L, a and b must all be numbers")

// parseTarget reads the three entry fields. A full "L a b" line pasted into
// the L field is accepted when the other two are empty.
func parseTarget(l, a, b string) (labmatcher.Lab, error) {
	if strings.TrimSpace(a) == "" && strings.TrimSpace(b) == "" {
		if lab, ok := labmatcher.ParseLabLine(l); ok {
			return lab, nil
		}
	}
	lab, ok := labmatcher.ParseLab(l, a, b)
	if !ok {
		return lab, errInvalidLab
	}
	return lab, nil
}

// filterWord trims an include/exclude entry; blank means no filter.
func filterWord(s string) string {
	return strings.TrimSpace(s)
}
