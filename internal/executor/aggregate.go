package executor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/finsight/finsight/internal/planner"
	"github.com/finsight/finsight/internal/table"
)

func (e *Executor) applyGroupingAggregation(t *table.Table, plan *planner.Plan, log []StepRecord) (*table.Table, []StepRecord) {
	grouping := plan.GroupBy
	agg := plan.Aggregations

	// Fast path: one grouping column counted — a plain frequency table,
	// sorted by count descending and truncated to the limit.
	if len(grouping) == 1 && agg["*"] == "count" {
		col := grouping[0]
		if _, ok := t.ColumnIndex(col); ok {
			result := valueCounts(t, col, plan.Limit)
			log = append(log, StepRecord{
				Step:      "grouping_aggregation",
				Status:    "success",
				Message:   fmt.Sprintf("Most frequent values for %s", col),
				RowsAfter: result.NumRows(),
			})
			return result, log
		}
	}

	switch {
	case len(grouping) > 0 && len(agg) > 0:
		result, err := groupAggregate(t, grouping, agg)
		if err != nil {
			log = append(log, StepRecord{
				Step:    "grouping_aggregation",
				Status:  "error",
				Message: "Error in grouping/aggregation: " + err.Error(),
			})
			return t, log
		}
		log = append(log, StepRecord{
			Step:      "grouping_aggregation",
			Status:    "success",
			Message:   "Grouped by " + strings.Join(grouping, ", "),
			RowsAfter: result.NumRows(),
		})
		return result, log

	case len(agg) > 0:
		result, err := aggregate(t, agg)
		if err != nil {
			log = append(log, StepRecord{
				Step:    "aggregation",
				Status:  "error",
				Message: "Error in aggregation: " + err.Error(),
			})
			return t, log
		}
		log = append(log, StepRecord{
			Step:      "aggregation",
			Status:    "success",
			Message:   "Calculated aggregate values",
			RowsAfter: result.NumRows(),
		})
		return result, log

	case len(grouping) > 0:
		result, err := groupCounts(t, grouping)
		if err != nil {
			log = append(log, StepRecord{
				Step:    "grouping",
				Status:  "error",
				Message: "Error in grouping: " + err.Error(),
			})
			return t, log
		}
		log = append(log, StepRecord{
			Step:      "grouping",
			Status:    "success",
			Message:   "Grouped by " + strings.Join(grouping, ", "),
			RowsAfter: result.NumRows(),
		})
		return result, log
	}

	return t, log
}

// valueCounts builds a two-column frequency table for col, most frequent
// first. Ties keep first-seen order so results are deterministic.
func valueCounts(t *table.Table, col string, limit int) *table.Table {
	idx, _ := t.ColumnIndex(col)
	counts := make(map[string]int)
	var order []string
	for _, row := range t.Rows {
		if idx >= len(row) || table.IsNull(row[idx]) {
			continue
		}
		key := table.AsString(row[idx])
		if _, seen := counts[key]; !seen {
			order = append(order, key)
		}
		counts[key]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if limit > 0 && len(order) > limit {
		order = order[:limit]
	}

	rows := make([][]any, 0, len(order))
	for _, key := range order {
		rows = append(rows, []any{key, float64(counts[key])})
	}
	return table.New([]string{col, "count"}, rows)
}

type group struct {
	key  []any
	rows []int
}

func groupRows(t *table.Table, grouping []string) ([]*group, error) {
	indices := make([]int, len(grouping))
	for i, col := range grouping {
		idx, ok := t.ColumnIndex(col)
		if !ok {
			return nil, fmt.Errorf("grouping column %q not found", col)
		}
		indices[i] = idx
	}

	byKey := make(map[string]*group)
	var groups []*group
	for r, row := range t.Rows {
		key := make([]any, len(indices))
		var sb strings.Builder
		for i, idx := range indices {
			var v any
			if idx < len(row) {
				v = row[idx]
			}
			key[i] = v
			sb.WriteString(table.AsString(v))
			sb.WriteByte('\x1f')
		}
		g, ok := byKey[sb.String()]
		if !ok {
			g = &group{key: key}
			byKey[sb.String()] = g
			groups = append(groups, g)
		}
		g.rows = append(g.rows, r)
	}
	return groups, nil
}

// groupAggregate groups by the given columns and computes one output
// column per aggregation entry; "*" counts group rows.
func groupAggregate(t *table.Table, grouping []string, agg map[string]string) (*table.Table, error) {
	groups, err := groupRows(t, grouping)
	if err != nil {
		return nil, err
	}

	aggCols := make([]string, 0, len(agg))
	for col := range agg {
		aggCols = append(aggCols, col)
	}
	sort.Strings(aggCols)

	columns := append([]string{}, grouping...)
	for _, col := range aggCols {
		if col == "*" {
			columns = append(columns, "count")
		} else {
			columns = append(columns, col)
		}
	}

	rows := make([][]any, 0, len(groups))
	for _, g := range groups {
		row := append([]any{}, g.key...)
		for _, col := range aggCols {
			if col == "*" {
				row = append(row, float64(len(g.rows)))
				continue
			}
			v, err := aggregateColumn(t, g.rows, col, agg[col])
			if err != nil {
				return nil, err
			}
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	return table.New(columns, rows), nil
}

// aggregate computes a single-row frame of aggregate values over all rows.
func aggregate(t *table.Table, agg map[string]string) (*table.Table, error) {
	aggCols := make([]string, 0, len(agg))
	for col := range agg {
		aggCols = append(aggCols, col)
	}
	sort.Strings(aggCols)

	all := make([]int, t.NumRows())
	for i := range all {
		all[i] = i
	}

	var columns []string
	row := make([]any, 0, len(aggCols))
	for _, col := range aggCols {
		if col == "*" {
			columns = append(columns, "count")
			row = append(row, float64(t.NumRows()))
			continue
		}
		columns = append(columns, col)
		v, err := aggregateColumn(t, all, col, agg[col])
		if err != nil {
			return nil, err
		}
		row = append(row, v)
	}
	return table.New(columns, [][]any{row}), nil
}

// groupCounts groups without explicit aggregation, counting rows per group.
func groupCounts(t *table.Table, grouping []string) (*table.Table, error) {
	groups, err := groupRows(t, grouping)
	if err != nil {
		return nil, err
	}
	columns := append(append([]string{}, grouping...), "count")
	rows := make([][]any, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, append(append([]any{}, g.key...), float64(len(g.rows))))
	}
	return table.New(columns, rows), nil
}

func aggregateColumn(t *table.Table, rowIdx []int, col, fn string) (any, error) {
	idx, ok := t.ColumnIndex(col)
	if !ok {
		return nil, fmt.Errorf("aggregation column %q not found", col)
	}

	if fn == "count" {
		n := 0
		for _, r := range rowIdx {
			if idx < len(t.Rows[r]) && !table.IsNull(t.Rows[r][idx]) {
				n++
			}
		}
		return float64(n), nil
	}

	var nums []float64
	for _, r := range rowIdx {
		if idx < len(t.Rows[r]) {
			if f, ok := table.ParseNumber(t.Rows[r][idx]); ok {
				nums = append(nums, f)
			}
		}
	}
	if len(nums) == 0 {
		return nil, nil
	}

	switch fn {
	case "sum":
		var sum float64
		for _, f := range nums {
			sum += f
		}
		return sum, nil
	case "mean":
		var sum float64
		for _, f := range nums {
			sum += f
		}
		return sum / float64(len(nums)), nil
	case "min":
		min := nums[0]
		for _, f := range nums {
			if f < min {
				min = f
			}
		}
		return min, nil
	case "max":
		max := nums[0]
		for _, f := range nums {
			if f > max {
				max = f
			}
		}
		return max, nil
	}
	return nil, fmt.Errorf("unknown aggregation function %q", fn)
}

func applySorting(t *table.Table, sorting []planner.SortSpec, log []StepRecord) (*table.Table, []StepRecord) {
	var indices []int
	var ascending []bool
	var cols []string
	for _, s := range sorting {
		if idx, ok := t.ColumnIndex(s.Column); ok {
			indices = append(indices, idx)
			ascending = append(ascending, s.Ascending)
			cols = append(cols, s.Column)
		}
	}
	if len(indices) == 0 {
		return t, log
	}

	order := make([]int, t.NumRows())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := t.Rows[order[a]], t.Rows[order[b]]
		for k, idx := range indices {
			var va, vb any
			if idx < len(ra) {
				va = ra[idx]
			}
			if idx < len(rb) {
				vb = rb[idx]
			}
			c := compareCells(va, vb)
			if c == 0 {
				continue
			}
			if ascending[k] {
				return c < 0
			}
			return c > 0
		}
		return false
	})

	result := t.Select(order)
	log = append(log, StepRecord{
		Step:    "sorting",
		Status:  "success",
		Message: "Sorted by " + strings.Join(cols, ", "),
	})
	return result, log
}

// compareCells orders two cell values: numerically when both parse as
// numbers, otherwise lexically on the string form. Nulls sort first.
func compareCells(a, b any) int {
	an, bn := table.IsNull(a), table.IsNull(b)
	switch {
	case an && bn:
		return 0
	case an:
		return -1
	case bn:
		return 1
	}
	if fa, ok := table.ParseNumber(a); ok {
		if fb, ok := table.ParseNumber(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			default:
				return 0
			}
		}
	}
	return strings.Compare(table.AsString(a), table.AsString(b))
}

func applyLimit(t *table.Table, limit int, log []StepRecord) (*table.Table, []StepRecord) {
	if t.NumRows() <= limit {
		log = append(log, StepRecord{
			Step:      "limit",
			Status:    "success",
			Message:   fmt.Sprintf("Limited to %d results", limit),
			RowsAfter: t.NumRows(),
		})
		return t, log
	}
	idx := make([]int, limit)
	for i := range idx {
		idx[i] = i
	}
	result := t.Select(idx)
	log = append(log, StepRecord{
		Step:       "limit",
		Status:     "success",
		Message:    fmt.Sprintf("Limited to %d results", limit),
		RowsBefore: t.NumRows(),
		RowsAfter:  result.NumRows(),
	})
	return result, log
}
