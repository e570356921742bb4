package planner

import "github.com/finsight/finsight/internal/analyzer"

// Status is the outcome class of a planning attempt.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusAmbiguous Status = "ambiguous"
	StatusError     Status = "error"
)

// Action is the primary operation a plan performs.
type Action string

const (
	ActionShow             Action = "show"
	ActionCount            Action = "count"
	ActionSum              Action = "sum"
	ActionAverage          Action = "average"
	ActionExplainSchema    Action = "explain_schema"
	ActionBusinessAnalysis Action = "business_analysis"
)

// Filter is one row-selection condition. Column may be empty when the
// question referenced a concept no column could be resolved for; such a
// filter fails validation and is never silently dropped at execution time.
type Filter struct {
	Column      string `json:"column"`
	Operator    string `json:"operator"`
	Value       any    `json:"value,omitempty"`
	Description string `json:"description"`
}

// RelativeDate is the value payload of a relative_date filter:
// rows within the last Number units.
type RelativeDate struct {
	Number int    `json:"number"`
	Unit   string `json:"unit"`
}

// YearRange is the value payload of a year_range filter (inclusive).
type YearRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// SortSpec orders results by one column. Row caps live on Plan.Limit.
type SortSpec struct {
	Column    string `json:"column"`
	Ascending bool   `json:"ascending"`
}

// TimePeriod restricts results to a calendar quarter.
type TimePeriod struct {
	Quarter int `json:"quarter"`
}

// Plan is an executable description of a query.
type Plan struct {
	Action       Action            `json:"action"`
	Filters      []Filter          `json:"filters"`
	GroupBy      []string          `json:"grouping"`
	Aggregations map[string]string `json:"aggregation"`
	Sorting      []SortSpec        `json:"sorting"`
	Limit        int               `json:"limit,omitempty"`
	TimePeriod   *TimePeriod       `json:"time_period,omitempty"`
	Question     string            `json:"original_question"`

	// Schema is attached for explain_schema plans so the executor can
	// build the narrative without a second analysis pass.
	Schema *analyzer.Analysis `json:"schema_info,omitempty"`
}

// Step is one stage of the projected execution, for display.
type Step struct {
	Number      int    `json:"step"`
	Action      string `json:"action"`
	Description string `json:"description"`
}

// SizeEstimate is a rough pre-execution guess at the result size, based
// on fixed per-operator selectivity heuristics.
type SizeEstimate struct {
	Rows       int    `json:"estimated_rows"`
	Confidence string `json:"confidence"`
}

// Result is what planning returns. Exactly one of Plan or
// Message/Clarifications is meaningful depending on Status; a success
// Result may still carry advisory Clarifications (for example a missing
// time-period hint).
type Result struct {
	Status         Status        `json:"status"`
	Plan           *Plan         `json:"query_plan,omitempty"`
	Steps          []Step        `json:"execution_steps,omitempty"`
	Estimate       *SizeEstimate `json:"estimated_result_size,omitempty"`
	Explanation    string        `json:"explanation,omitempty"`
	Message        string        `json:"message,omitempty"`
	Clarifications []string      `json:"clarification_questions,omitempty"`
}
