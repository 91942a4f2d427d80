package app

import (
	"image/color"

	"yashubustudio/labmatcher/labmatcher"
)

// recipeCard is everything one result tab shows.
type recipeCard struct {
	Title       string
	Serial      string
	Target      color.Color
	Swatch      color.Color
	SwatchHex   string
	DeltaE      string
	Verdict     string
	Unreliable  bool
	Lab         string
	Fields      []labmatcher.Field
	Description string
	CMYK        string
}

type fieldRow struct {
	Name  string
	Value string
}
