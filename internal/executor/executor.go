// Package executor runs query plans against an in-memory table with hard
// guardrails: the pipeline logs every stage, tolerates bad filters by
// skipping them, and refuses to answer with a full-table dump, an empty
// frame, or header echoes.
package executor

import (
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/finsight/finsight/internal/analyzer"
	"github.com/finsight/finsight/internal/logger"
	"github.com/finsight/finsight/internal/planner"
	"github.com/finsight/finsight/internal/table"
)

// Executor executes plans against one dataset.
type Executor struct {
	data     *table.Table
	analysis *analyzer.Analysis
	log      *logger.Logger
	now      func() time.Time
}

// New creates an Executor over a private copy of t. Columns classified as
// date or numeric in the analysis are coerced up front; cells that refuse
// to parse are left untouched.
func New(t *table.Table, analysis *analyzer.Analysis, log *logger.Logger) *Executor {
	if log == nil {
		log = logger.Global()
	}
	e := &Executor{
		data:     t.Copy(),
		analysis: analysis,
		log:      log,
		now:      time.Now,
	}
	e.coerceColumns()
	return e
}

func (e *Executor) coerceColumns() {
	for _, profile := range e.analysis.Columns {
		idx, ok := e.data.ColumnIndex(profile.Name)
		if !ok {
			continue
		}
		switch profile.Category {
		case analyzer.CategoryNumeric:
			for _, row := range e.data.Rows {
				if idx >= len(row) || row[idx] == nil {
					continue
				}
				if f, ok := table.ParseNumber(row[idx]); ok {
					row[idx] = f
				}
			}
		case analyzer.CategoryDate:
			for _, row := range e.data.Rows {
				if idx >= len(row) || row[idx] == nil {
					continue
				}
				if d, ok := table.ParseDate(row[idx]); ok {
					row[idx] = d
				}
			}
		}
	}
}

// Execute runs a plan and always returns a Result; panics are recovered
// into an error-status Result carrying the stack.
func (e *Executor) Execute(plan *planner.Plan) (res Result) {
	start := e.now()
	defer func() {
		if r := recover(); r != nil {
			e.log.With().Any("panic", r).Logger().Error("query execution failed")
			res = Result{
				Status:   "error",
				Message:  fmt.Sprintf("Error executing query: %v", r),
				Data:     [][]any{},
				Columns:  []string{},
				Insights: []string{},
				Stack:    string(debug.Stack()),
			}
		}
	}()

	switch plan.Action {
	case planner.ActionExplainSchema:
		return e.executeSchemaExplanation(plan, start)
	case planner.ActionBusinessAnalysis:
		return e.executeBusinessAnalysis(plan, start)
	}

	result := e.data.Copy()
	var log []StepRecord

	if len(plan.Filters) > 0 {
		result, log = e.applyFilters(result, plan.Filters, log)
	}
	if plan.TimePeriod != nil {
		result, log = e.applyTimePeriod(result, plan.TimePeriod, log)
	}
	if len(plan.GroupBy) > 0 || len(plan.Aggregations) > 0 {
		result, log = e.applyGroupingAggregation(result, plan, log)
	}
	if len(plan.Sorting) > 0 {
		result, log = applySorting(result, plan.Sorting, log)
	}
	if plan.Limit > 0 {
		result, log = applyLimit(result, plan.Limit, log)
	}

	elapsed := e.now().Sub(start).Seconds()

	if e.isFullTableDump(result) {
		return errorResult(msgFullTableDump, elapsed)
	}
	if result.NumRows() == 0 || result.NumCols() == 0 {
		return errorResult(msgNoAnswer, elapsed)
	}
	if isHeaderEcho(result) {
		return errorResult(msgNoAnswer, elapsed)
	}

	return e.prepareResults(result, plan, elapsed, log)
}

// isFullTableDump reports whether the result is the source table returned
// unchanged in size and column set.
func (e *Executor) isFullTableDump(result *table.Table) bool {
	if result.NumRows() == 0 || result.NumRows() != e.data.NumRows() {
		return false
	}
	if result.NumCols() != e.data.NumCols() {
		return false
	}
	have := make(map[string]bool, result.NumCols())
	for _, c := range result.Columns {
		have[c] = true
	}
	for _, c := range e.data.Columns {
		if !have[c] {
			return false
		}
	}
	return true
}

// isHeaderEcho detects results whose leading rows just repeat the column
// names, a degenerate shape that reads as an empty answer.
func isHeaderEcho(result *table.Table) bool {
	n := result.NumRows()
	if n > 5 {
		n = 5
	}
	for i := 0; i < n; i++ {
		for j, col := range result.Columns {
			if j >= len(result.Rows[i]) || table.AsString(result.Rows[i][j]) != col {
				return false
			}
		}
	}
	return n > 0
}

func (e *Executor) prepareResults(result *table.Table, plan *planner.Plan, elapsed float64, log []StepRecord) Result {
	data := make([][]any, 0, result.NumRows())
	for _, row := range result.Rows {
		record := make([]any, len(result.Columns))
		for j := range result.Columns {
			if j >= len(row) {
				record[j] = nil
				continue
			}
			record[j] = jsonSafe(row[j])
		}
		data = append(data, record)
	}

	return Result{
		Status:        "success",
		Data:          data,
		Columns:       result.Columns,
		RowCount:      result.NumRows(),
		ExecutionTime: elapsed,
		Log:           log,
		SummaryStats:  e.summaryStats(result),
		Insights:      e.insights(result, plan),
		Plan:          plan,
	}
}

func jsonSafe(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		return x
	case int:
		return float64(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return table.AsString(v)
	}
}

func (e *Executor) summaryStats(result *table.Table) *SummaryStats {
	stats := &SummaryStats{
		TotalRows:    result.NumRows(),
		TotalColumns: result.NumCols(),
	}
	if result.NumRows() == 0 {
		return stats
	}

	colStats := make(map[string]ColumnStats)
	for idx, name := range result.Columns {
		profile, ok := e.analysis.Column(name)
		if !ok {
			continue
		}
		switch profile.Category {
		case analyzer.CategoryNumeric:
			if s := numericStats(result, idx); s != nil {
				colStats[name] = ColumnStats{Numeric: s}
			}
		case analyzer.CategoryDate:
			if s := dateStats(result, idx); s != nil {
				colStats[name] = ColumnStats{Date: s}
			}
		case analyzer.CategoryCategorical:
			if s := categoricalStats(result, idx); s != nil {
				colStats[name] = ColumnStats{Categorical: s}
			}
		}
	}
	if len(colStats) > 0 {
		stats.ColumnStats = colStats
	}
	return stats
}

func numericStats(t *table.Table, idx int) *NumericColumnStats {
	var nums []float64
	for _, row := range t.Rows {
		if idx < len(row) {
			if f, ok := table.ParseNumber(row[idx]); ok {
				nums = append(nums, f)
			}
		}
	}
	if len(nums) == 0 {
		return nil
	}
	s := &NumericColumnStats{Min: nums[0], Max: nums[0]}
	for _, f := range nums {
		if f < s.Min {
			s.Min = f
		}
		if f > s.Max {
			s.Max = f
		}
		s.Sum += f
	}
	s.Mean = s.Sum / float64(len(nums))
	return s
}

func dateStats(t *table.Table, idx int) *DateColumnStats {
	var dates []time.Time
	for _, row := range t.Rows {
		if idx < len(row) {
			if d, ok := table.ParseDate(row[idx]); ok {
				dates = append(dates, d)
			}
		}
	}
	if len(dates) == 0 {
		return nil
	}
	min, max := dates[0], dates[0]
	for _, d := range dates {
		if d.Before(min) {
			min = d
		}
		if d.After(max) {
			max = d
		}
	}
	return &DateColumnStats{
		MinDate:       min.Format(time.RFC3339),
		MaxDate:       max.Format(time.RFC3339),
		DateRangeDays: int(max.Sub(min).Hours() / 24),
	}
}

func categoricalStats(t *table.Table, idx int) *CategoricalColumnStats {
	counts := make(map[string]int)
	var order []string
	for _, row := range t.Rows {
		if idx >= len(row) {
			continue
		}
		key := "null"
		if !table.IsNull(row[idx]) {
			key = table.AsString(row[idx])
		}
		if _, seen := counts[key]; !seen {
			order = append(order, key)
		}
		counts[key]++
	}
	if len(counts) == 0 {
		return nil
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	top := make(map[string]int)
	for i, key := range order {
		if i >= 5 {
			break
		}
		top[key] = counts[key]
	}
	return &CategoricalColumnStats{UniqueValues: len(counts), TopValues: top}
}

func (e *Executor) insights(result *table.Table, plan *planner.Plan) []string {
	insights := []string{}
	if result.NumRows() == 0 {
		return append(insights, "No data matches the specified criteria")
	}

	if plan.Action == planner.ActionCount {
		insights = append(insights, fmt.Sprintf("Found %d records matching the criteria", result.NumRows()))
	}

	aggCols := make([]string, 0, len(plan.Aggregations))
	for col := range plan.Aggregations {
		aggCols = append(aggCols, col)
	}
	sort.Strings(aggCols)
	for _, col := range aggCols {
		fn := plan.Aggregations[col]
		if fn != "sum" && fn != "mean" {
			continue
		}
		idx, ok := result.ColumnIndex(col)
		if !ok {
			continue
		}
		var value float64
		if result.NumRows() == 1 {
			value, _ = table.ParseNumber(result.Rows[0][idx])
		} else {
			for _, row := range result.Rows {
				if f, ok := table.ParseNumber(row[idx]); ok {
					value += f
				}
			}
		}
		insights = append(insights, fmt.Sprintf("Total %s of %s: %s", fn, col, commaFormat(value)))
	}

	for idx, name := range result.Columns {
		profile, ok := e.analysis.Column(name)
		if !ok || profile.Category != analyzer.CategoryNumeric {
			continue
		}
		if s := numericStats(result, idx); s != nil && s.Max > s.Mean*3 {
			insights = append(insights,
				fmt.Sprintf("High variance detected in %s - some values are significantly above average", name))
		}
	}

	return insights
}

// commaFormat renders a float with thousands separators and two decimals.
func commaFormat(f float64) string {
	neg := f < 0
	if neg {
		f = -f
	}
	s := fmt.Sprintf("%.2f", f)
	dot := strings.IndexByte(s, '.')
	intPart, frac := s[:dot], s[dot:]
	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	out := b.String() + frac
	if neg {
		return "-" + out
	}
	return out
}
