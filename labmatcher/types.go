package labmatcher

import (
	"fmt"
	"strconv"
)

// Lab is a color in CIE L*a*b* space.
type Lab struct {
	L float64 `json:"l"`
	A float64 `json:"a"`
	B float64 `json:"b"`
}

func (c Lab) String() string {
	return fmt.Sprintf("L=%.2f a=%.2f b=%.2f", c.L, c.A, c.B)
}

// Value is a single dataset cell. Text always holds the cleaned cell; Number is
// set when the text parses as a float.
type Value struct {
	Text     string
	Number   float64
	IsNumber bool
}

// NewValue classifies a raw cell.
func NewValue(raw string) Value {
	v := Value{Text: raw}
	if raw == "" {
		return v
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		v.Number = f
		v.IsNumber = true
	}
	return v
}

func (v Value) String() string {
	return v.Text
}

// Field is one named column of a record.
type Field struct {
	Name  string
	Value Value
}

// Record is one recipe row. Fields keeps every retained column in file order,
// including the serial and color columns.
type Record struct {
	Serial string
	Lab    Lab
	Fields []Field
}

// Field returns the value stored under name.
func (r Record) Field(name string) (Value, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Match pairs a record with its distance to the query of one match call.
type Match struct {
	Record Record
	DeltaE float64
}

// CMYK holds ink fractions in [0,1].
type CMYK struct {
	C float64 `json:"c"`
	M float64 `json:"m"`
	Y float64 `json:"y"`
	K float64 `json:"k"`
}

func (c CMYK) String() string {
	return fmt.Sprintf("C: %.0f%%, M: %.0f%%, Y: %.0f%%, K: %.0f%%", c.C*100, c.M*100, c.Y*100, c.K*100)
}

// Language selects the wording of operator-facing hints.
type Language string

const (
	// LangZhTW is the wording used on the shop floor.
	LangZhTW Language = "zh-TW"
	// LangEN is an English rendering of the same hints.
	LangEN Language = "en"
)

// ColumnConfig names the dataset columns the matcher relies on.
type ColumnConfig struct {
	Serial   string   `json:"serial" yaml:"serial" toml:"serial"`
	L        string   `json:"l" yaml:"l" toml:"l"`
	A        string   `json:"a" yaml:"a" toml:"a"`
	B        string   `json:"b" yaml:"b" toml:"b"`
	Formula  []string `json:"formula" yaml:"formula" toml:"formula"`
	Excluded []string `json:"excluded" yaml:"excluded" toml:"excluded"`
}

// ConversionConfig configures the external Lab to CMYK tool.
type ConversionConfig struct {
	Tool           string `json:"tool" yaml:"tool" toml:"tool"`
	ProfilePath    string `json:"profilePath" yaml:"profilePath" toml:"profilePath"`
	TimeoutSeconds int    `json:"timeoutSeconds" yaml:"timeoutSeconds" toml:"timeoutSeconds"`
}

// Config aggregates runtime settings persisted to config.json.
type Config struct {
	DataPath         string           `json:"dataPath" yaml:"dataPath" toml:"dataPath"`
	Encoding         string           `json:"encoding" yaml:"encoding" toml:"encoding"`
	Delimiter        string           `json:"delimiter" yaml:"delimiter" toml:"delimiter"`
	TopN             int              `json:"topN" yaml:"topN" toml:"topN"`
	Columns          ColumnConfig     `json:"columns" yaml:"columns" toml:"columns"`
	Conversion       ConversionConfig `json:"conversion" yaml:"conversion" toml:"conversion"`
	WarnDeltaE       float64          `json:"warnDeltaE" yaml:"warnDeltaE" toml:"warnDeltaE"`
	Language         Language         `json:"language" yaml:"language" toml:"language"`
	ExportPath       string           `json:"exportPath" yaml:"exportPath" toml:"exportPath"`
	BatchWorkers     int              `json:"batchWorkers" yaml:"batchWorkers" toml:"batchWorkers"`
	// ColumnCandidates are the fallback header names tried when a configured
	// column is absent.
	ColumnCandidates ColumnCandidates `json:"columnCandidates" yaml:"columnCandidates" toml:"columnCandidates"`
}

// ApplyDefaults populates zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.DataPath == "" {
		c.DataPath = "datacollect071802.csv"
	}
	if c.Encoding == "" {
		c.Encoding = "utf-8"
	}
	if c.TopN <= 0 {
		c.TopN = 3
	}
	if c.Columns.Serial == "" {
		c.Columns.Serial = "Serial Number"
	}
	if c.Columns.L == "" {
		c.Columns.L = "L"
	}
	if c.Columns.A == "" {
		c.Columns.A = "A"
	}
	if c.Columns.B == "" {
		c.Columns.B = "B"
	}
	if c.Columns.Formula == nil {
		c.Columns.Formula = DefaultFormulaFields()
	}
	if c.Columns.Excluded == nil {
		c.Columns.Excluded = DefaultExcludedColumns()
	}
	if c.Conversion.Tool == "" {
		c.Conversion.Tool = "xicclu"
	}
	if c.WarnDeltaE <= 0 {
		c.WarnDeltaE = 1.0
	}
	switch c.Language {
	case LangZhTW, LangEN:
	default:
		c.Language = LangZhTW
	}
	if c.ExportPath == "" {
		c.ExportPath = "exported_recipes.csv"
	}
	if c.BatchWorkers <= 0 {
		c.BatchWorkers = 4
	}
	c.ColumnCandidates = c.ColumnCandidates.withDefaults()
}

// StoreOptions derives the dataset loading options from the configuration.
func (c Config) StoreOptions() StoreOptions {
	opts := StoreOptions{
		Columns:  c.Columns,
		Encoding: c.Encoding,
	}
	if c.Delimiter != "" {
		opts.Comma = []rune(c.Delimiter)[0]
	}
	return opts
}
