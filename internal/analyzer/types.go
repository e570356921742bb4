package analyzer

import (
	"time"

	"github.com/finsight/finsight/internal/report"
)

// Category classifies what kind of data a column holds.
type Category string

const (
	CategoryNumeric     Category = "numeric"
	CategoryDate        Category = "date"
	CategoryCategorical Category = "categorical"
	CategoryText        Category = "text"
	CategoryEmpty       Category = "empty"
)

// NumericStats summarizes the numeric values found in a sampled column.
type NumericStats struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
	Sum  float64 `json:"sum"`
}

// DateStats summarizes the date values found in a sampled column.
type DateStats struct {
	Min      time.Time `json:"min"`
	Max      time.Time `json:"max"`
	SpanDays int       `json:"span_days"`
}

// ColumnProfile describes one column of the analyzed dataset.
type ColumnProfile struct {
	Name        string   `json:"name"`
	Category    Category `json:"category"`
	SemanticTag string   `json:"semantic_tag,omitempty"`
	Description string   `json:"description,omitempty"`

	NullCount   int     `json:"null_count"`
	NullPercent float64 `json:"null_percent"`
	UniqueCount int     `json:"unique_count"`

	Samples []string `json:"samples,omitempty"`

	Numeric *NumericStats `json:"numeric_stats,omitempty"`
	Date    *DateStats    `json:"date_stats,omitempty"`
}

// Analysis is the full schema profile of a dataset. RowCount is the true
// row count of the source; the per-column statistics come from a bounded
// sample of SampledRows rows.
type Analysis struct {
	TableType   string          `json:"table_type"`
	Description string          `json:"description"`
	Confidence  float64         `json:"confidence"`
	RowCount    int             `json:"row_count"`
	SampledRows int             `json:"sampled_rows"`
	ColumnCount int             `json:"column_count"`
	SizeBytes   int64           `json:"size_bytes,omitempty"`
	Columns     []ColumnProfile `json:"columns"`
	Summary     string          `json:"summary"`
	Suggestions []string        `json:"suggestions,omitempty"`

	// Identification is the full signature-match detail behind the
	// TableType guess.
	Identification *report.Identification `json:"identification,omitempty"`
}

// Column returns the profile for the named column, or false.
func (a *Analysis) Column(name string) (ColumnProfile, bool) {
	for _, c := range a.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnProfile{}, false
}

// ColumnsByCategory returns the names of columns in the given category,
// preserving column order.
func (a *Analysis) ColumnsByCategory(cat Category) []string {
	var names []string
	for _, c := range a.Columns {
		if c.Category == cat {
			names = append(names, c.Name)
		}
	}
	return names
}

// ColumnBySemanticTag returns the first column carrying the given tag.
func (a *Analysis) ColumnBySemanticTag(tag string) (string, bool) {
	for _, c := range a.Columns {
		if c.SemanticTag == tag {
			return c.Name, true
		}
	}
	return "", false
}
