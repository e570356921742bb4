package executor

import "github.com/finsight/finsight/internal/planner"

// Guard messages returned when a query produces nothing worth showing.
// Returning the whole table untouched counts as a failed answer, not a
// result.
const (
	msgFullTableDump = "Sorry, I am unable to answer your question with the current data. Please try a more specific or different question."
	msgNoAnswer      = "Sorry, I am unable to answer this question with the current data."
)

// StepRecord logs one pipeline stage.
type StepRecord struct {
	Step       string `json:"step"`
	Status     string `json:"status"`
	Message    string `json:"message"`
	RowsBefore int    `json:"rows_before,omitempty"`
	RowsAfter  int    `json:"rows_after,omitempty"`
}

// NumericColumnStats summarizes a numeric result column.
type NumericColumnStats struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
	Sum  float64 `json:"sum"`
}

// DateColumnStats summarizes a date result column.
type DateColumnStats struct {
	MinDate       string `json:"min_date"`
	MaxDate       string `json:"max_date"`
	DateRangeDays int    `json:"date_range_days"`
}

// CategoricalColumnStats summarizes a categorical result column.
type CategoricalColumnStats struct {
	UniqueValues int            `json:"unique_values"`
	TopValues    map[string]int `json:"top_values"`
}

// ColumnStats carries whichever summary applies to a result column.
type ColumnStats struct {
	Numeric     *NumericColumnStats     `json:"numeric,omitempty"`
	Date        *DateColumnStats        `json:"date,omitempty"`
	Categorical *CategoricalColumnStats `json:"categorical,omitempty"`
}

// SummaryStats describes the shape of the result set.
type SummaryStats struct {
	TotalRows    int                    `json:"total_rows"`
	TotalColumns int                    `json:"total_columns"`
	ColumnStats  map[string]ColumnStats `json:"column_stats,omitempty"`
}

// Result is the outcome of executing a plan. Data rows hold only
// JSON-safe values: nil, float64, or string (dates in ISO-8601 form).
type Result struct {
	Status        string        `json:"status"`
	Message       string        `json:"message,omitempty"`
	Data          [][]any       `json:"data"`
	Columns       []string      `json:"columns"`
	RowCount      int           `json:"row_count"`
	ExecutionTime float64       `json:"execution_time"`
	Log           []StepRecord  `json:"execution_log,omitempty"`
	SummaryStats  *SummaryStats `json:"summary_stats,omitempty"`
	Insights      []string      `json:"insights"`
	QueryType     string        `json:"query_type,omitempty"`

	// Narrative payloads, present for explain_schema / business_analysis.
	SchemaExplanation string `json:"schema_explanation,omitempty"`
	BusinessAnalysis  string `json:"business_analysis,omitempty"`
	NLResponse        string `json:"natural_language_response,omitempty"`

	Plan *planner.Plan `json:"query_plan,omitempty"`

	// Stack is populated when execution recovered from a panic.
	Stack string `json:"traceback,omitempty"`
}

func errorResult(message string, elapsed float64) Result {
	return Result{
		Status:        "error",
		Message:       message,
		Data:          [][]any{},
		Columns:       []string{},
		ExecutionTime: elapsed,
		Insights:      []string{},
		NLResponse:    message,
	}
}
