package labmatcher

import "strings"

// Channel identifies one L*a*b* axis.
type Channel int

const (
	ChannelL Channel = iota
	ChannelA
	ChannelB
)

func (c Channel) String() string {
	switch c {
	case ChannelL:
		return "L"
	case ChannelA:
		return "A"
	case ChannelB:
		return "B"
	}
	return "?"
}

// Adjustment tells which way a recipe must move on one channel to reach the
// target. TooHigh means the recipe's value exceeds the query's.
type Adjustment struct {
	Channel Channel
	TooHigh bool
}

type hintSet struct {
	high [3]string
	low  [3]string
	sep  string
}

var hints = map[Language]hintSet{
	LangZhTW: {
		high: [3]string{"此配方需要 暗一點或少一點白", "绿一點或少一點红", "藍一點或少一點黄"},
		low:  [3]string{"白一點或少一點黑", "红一點或少一點綠", "黄一點或少一點藍"},
		sep:  "，",
	},
	LangEN: {
		high: [3]string{"darker or less white", "more green or less red", "more blue or less yellow"},
		low:  [3]string{"lighter or less black", "more red or less green", "more yellow or less blue"},
		sep:  "; ",
	},
}

// Adjustments compares the matched color with the query channel by channel.
// Equal values count as not too high.
func Adjustments(query, matched Lab) [3]Adjustment {
	q := [3]float64{query.L, query.A, query.B}
	m := [3]float64{matched.L, matched.A, matched.B}
	var out [3]Adjustment
	for i := range out {
		out[i] = Adjustment{Channel: Channel(i), TooHigh: m[i] > q[i]}
	}
	return out
}

// Hint renders a single adjustment.
func (a Adjustment) Hint(lang Language) string {
	set, ok := hints[lang]
	if !ok {
		set = hints[LangZhTW]
	}
	if a.TooHigh {
		return set.high[a.Channel]
	}
	return set.low[a.Channel]
}

// Describe renders the advisory text for moving matched toward query.
func Describe(query, matched Lab, lang Language) string {
	set, ok := hints[lang]
	if !ok {
		set = hints[LangZhTW]
		lang = LangZhTW
	}
	adj := Adjustments(query, matched)
	parts := make([]string, len(adj))
	for i, a := range adj {
		parts[i] = a.Hint(lang)
	}
	return strings.Join(parts, set.sep)
}
