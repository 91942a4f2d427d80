package labmatcher

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/traditionalchinese"
	textunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

func cleanCell(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "\ufeff")
	return v
}

// normalizeHeader folds full-width and compatibility characters so that
// headers typed on different input methods compare equal.
func normalizeHeader(v string) string {
	v = norm.NFKC.String(cleanCell(v))
	v = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, v)
	return strings.Join(strings.Fields(v), " ")
}

// ParseLab reads operator input for the three channels. Full-width digits are
// accepted. ok is false when any channel is empty, non-numeric or not finite;
// callers then skip the match.
func ParseLab(l, a, b string) (Lab, bool) {
	var vals [3]float64
	for i, raw := range []string{l, a, b} {
		v, ok := parseChannel(raw)
		if !ok {
			return Lab{}, false
		}
		vals[i] = v
	}
	return Lab{L: vals[0], A: vals[1], B: vals[2]}, true
}

// ParseLabLine reads "L A B" separated by spaces, commas or tabs.
func ParseLabLine(line string) (Lab, bool) {
	parts := strings.FieldsFunc(norm.NFKC.String(line), func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	})
	if len(parts) != 3 {
		return Lab{}, false
	}
	return ParseLab(parts[0], parts[1], parts[2])
}

func parseChannel(raw string) (float64, bool) {
	s := strings.TrimSpace(norm.NFKC.String(raw))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// decodeReader wraps r so the delimited reader always sees UTF-8.
func decodeReader(r io.Reader, name string) (io.Reader, error) {
	var enc encoding.Encoding
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		enc = textunicode.UTF8BOM
	case "utf-16", "utf16":
		enc = textunicode.UTF16(textunicode.LittleEndian, textunicode.ExpectBOM)
	case "big5":
		enc = traditionalchinese.Big5
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	return transform.NewReader(r, textunicode.BOMOverride(enc.NewDecoder())), nil
}
