package app

import (
	"fmt"
	"strconv"

	"yashubustudio/labmatcher/labmatcher"
)

func buildCards(res labmatcher.Result, lang labmatcher.Language) []recipeCard {
	cmyk := res.CMYKText()
	target := labmatcher.Swatch(res.Query)
	cards := make([]recipeCard, len(res.Suggestions))
	for i, s := range res.Suggestions {
		cards[i] = recipeCard{
			Title:       tabTitle(s.Rank, lang),
			Serial:      s.Record.Serial,
			Target:      target,
			Swatch:      labmatcher.Swatch(s.Record.Lab),
			SwatchHex:   s.Swatch,
			DeltaE:      "Delta E: " + strconv.FormatFloat(s.DeltaE, 'f', 2, 64),
			Verdict:     s.Reliability.Label(lang),
			Unreliable:  s.Reliability == labmatcher.Unreliable,
			Lab:         s.Record.Lab.String(),
			Fields:      s.Record.Fields,
			Description: descriptionLine(s.Description, lang),
			CMYK:        cmyk,
		}
	}
	return cards
}

func tabTitle(rank int, lang labmatcher.Language) string {
	if lang == labmatcher.LangEN {
		return fmt.Sprintf("Closest recipe %d", rank)
	}
	return fmt.Sprintf("最接近配方 %d", rank)
}

func descriptionLine(desc string, lang labmatcher.Language) string {
	if lang == labmatcher.LangEN {
		return "Color difference: " + desc
	}
	return "顏色差異描述: " + desc
}

func noResultText(lang labmatcher.Language) string {
	if lang == labmatcher.LangEN {
		return "No suitable recipe found"
	}
	return "查無合適配方"
}

// visibleFields drops empty cells and the color columns, which the card
// already shows as a swatch and Lab line.
func visibleFields(fields []labmatcher.Field, cols labmatcher.ColumnConfig) []fieldRow {
	hidden := map[string]struct{}{
		cols.L:                  {},
		cols.A:                  {},
		cols.B:                  {},
		labmatcher.DeltaEColumn: {},
	}
	out := make([]fieldRow, 0, len(fields))
	for _, f := range fields {
		if f.Value.Text == "" {
			continue
		}
		if _, ok := hidden[f.Name]; ok {
			continue
		}
		out = append(out, fieldRow{Name: f.Name, Value: f.Value.Text})
	}
	return out
}
