package executor

import (
	"fmt"
	"strings"
	"time"

	"github.com/finsight/finsight/internal/analyzer"
	"github.com/finsight/finsight/internal/planner"
	"github.com/finsight/finsight/internal/table"
)

func (e *Executor) applyFilters(t *table.Table, filters []planner.Filter, log []StepRecord) (*table.Table, []StepRecord) {
	result := t
	for i, f := range filters {
		step := fmt.Sprintf("filter_%d", i+1)

		idx, ok := result.ColumnIndex(f.Column)
		if !ok {
			log = append(log, StepRecord{
				Step:    step,
				Status:  "error",
				Message: fmt.Sprintf("Column '%s' not found", f.Column),
			})
			continue
		}

		match, ok := e.matcher(f)
		if !ok {
			log = append(log, StepRecord{
				Step:    step,
				Status:  "error",
				Message: "Unknown operator: " + f.Operator,
			})
			continue
		}

		before := result.NumRows()
		var keep []int
		for r, row := range result.Rows {
			if idx < len(row) && match(row[idx]) {
				keep = append(keep, r)
			}
		}
		result = result.Select(keep)

		log = append(log, StepRecord{
			Step:       step,
			Status:     "success",
			Message:    "Applied " + f.Description,
			RowsBefore: before,
			RowsAfter:  result.NumRows(),
		})
	}
	return result, log
}

// matcher builds the per-cell predicate for a filter, or reports an
// unknown operator.
func (e *Executor) matcher(f planner.Filter) (func(any) bool, bool) {
	switch f.Operator {
	case ">", "<", ">=", "<=":
		return compareMatcher(f.Operator, f.Value), true
	case "==":
		return equalityMatcher(f.Value, false), true
	case "!=":
		return equalityMatcher(f.Value, true), true
	case "in":
		return inMatcher(f.Value), true
	case "contains":
		want := strings.ToLower(table.AsString(f.Value))
		return func(v any) bool {
			if table.IsNull(v) {
				return false
			}
			return strings.Contains(strings.ToLower(table.AsString(v)), want)
		}, true
	case "overdue":
		now := e.now()
		return func(v any) bool {
			d, ok := table.ParseDate(v)
			return ok && d.Before(now)
		}, true
	case "relative_date":
		rel, ok := f.Value.(planner.RelativeDate)
		if !ok {
			return nil, false
		}
		cutoff := e.now().Add(-relativeDuration(rel))
		return func(v any) bool {
			d, ok := table.ParseDate(v)
			return ok && !d.Before(cutoff)
		}, true
	case "year_range":
		yr, ok := f.Value.(planner.YearRange)
		if !ok {
			return nil, false
		}
		return func(v any) bool {
			d, ok := table.ParseDate(v)
			return ok && d.Year() >= yr.Start && d.Year() <= yr.End
		}, true
	case "quarter":
		q, ok := toInt(f.Value)
		if !ok {
			return nil, false
		}
		return quarterMatcher(q), true
	}
	return nil, false
}

func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		return int(x), true
	}
	return 0, false
}

func compareMatcher(op string, value any) func(any) bool {
	want, _ := table.ParseNumber(value)
	return func(v any) bool {
		f, ok := table.ParseNumber(v)
		if !ok {
			return false
		}
		switch op {
		case ">":
			return f > want
		case "<":
			return f < want
		case ">=":
			return f >= want
		case "<=":
			return f <= want
		}
		return false
	}
}

func equalityMatcher(value any, negate bool) func(any) bool {
	if want, ok := table.ParseNumber(value); ok {
		if _, isString := value.(string); !isString {
			return func(v any) bool {
				f, ok := table.ParseNumber(v)
				eq := ok && f == want
				return eq != negate
			}
		}
	}
	want := table.AsString(value)
	return func(v any) bool {
		eq := !table.IsNull(v) && table.AsString(v) == want
		return eq != negate
	}
}

func inMatcher(value any) func(any) bool {
	members := make(map[string]bool)
	switch vs := value.(type) {
	case []string:
		for _, s := range vs {
			members[s] = true
		}
	case []any:
		for _, s := range vs {
			members[table.AsString(s)] = true
		}
	}
	return func(v any) bool {
		return !table.IsNull(v) && members[table.AsString(v)]
	}
}

func quarterMatcher(q int) func(any) bool {
	return func(v any) bool {
		d, ok := table.ParseDate(v)
		return ok && (int(d.Month())-1)/3+1 == q
	}
}

func relativeDuration(rel planner.RelativeDate) time.Duration {
	day := 24 * time.Hour
	n := time.Duration(rel.Number)
	switch rel.Unit {
	case "week":
		return n * 7 * day
	case "month":
		return n * 30 * day
	case "quarter":
		return n * 90 * day
	case "year":
		return n * 365 * day
	default:
		return n * day
	}
}

func (e *Executor) applyTimePeriod(t *table.Table, period *planner.TimePeriod, log []StepRecord) (*table.Table, []StepRecord) {
	if period.Quarter == 0 {
		return t, log
	}
	dateCol, ok := e.findDateColumn()
	if !ok {
		return t, log
	}
	idx, ok := t.ColumnIndex(dateCol)
	if !ok {
		return t, log
	}

	match := quarterMatcher(period.Quarter)
	before := t.NumRows()
	var keep []int
	for r, row := range t.Rows {
		if idx < len(row) && match(row[idx]) {
			keep = append(keep, r)
		}
	}
	result := t.Select(keep)

	log = append(log, StepRecord{
		Step:       "time_period_filter",
		Status:     "success",
		Message:    fmt.Sprintf("Filtered to Q%d", period.Quarter),
		RowsBefore: before,
		RowsAfter:  result.NumRows(),
	})
	return result, log
}

// findDateColumn prefers the posting-date tagged column, then the first
// date-classified one.
func (e *Executor) findDateColumn() (string, bool) {
	if col, ok := e.analysis.ColumnBySemanticTag("posting_date"); ok {
		return col, true
	}
	if cols := e.analysis.ColumnsByCategory(analyzer.CategoryDate); len(cols) > 0 {
		return cols[0], true
	}
	return "", false
}
