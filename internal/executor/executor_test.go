package executor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight/finsight/internal/analyzer"
	"github.com/finsight/finsight/internal/planner"
	"github.com/finsight/finsight/internal/table"
)

func bkpfTable() *table.Table {
	return table.New(
		[]string{"BUKRS", "BELNR", "GJAHR", "BLART", "BUDAT", "DMBTR", "LIFNR", "KUNNR"},
		[][]any{
			{"1000", "490001", "2024", "KR", "2024-01-15", "1250.50", "V001", "C001"},
			{"1000", "490002", "2024", "DR", "2024-02-20", "300.00", "V002", "C002"},
			{"2000", "490003", "2024", "KR", "2024-03-05", "99.99", "V001", "C001"},
			{"2000", "490004", "2024", "KR", "2024-04-18", "500.00", "V003", "C003"},
		},
	)
}

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	tbl := bkpfTable()
	analysis := analyzer.New(analyzer.DefaultConfig(), nil).AnalyzeTable(tbl)
	return New(tbl, analysis, nil)
}

func TestNewCoercesColumns(t *testing.T) {
	e := newTestExecutor(t)

	idx, ok := e.data.ColumnIndex("DMBTR")
	require.True(t, ok)
	assert.Equal(t, 1250.50, e.data.Rows[0][idx])

	idx, ok = e.data.ColumnIndex("BUDAT")
	require.True(t, ok)
	assert.IsType(t, time.Time{}, e.data.Rows[0][idx])
}

func TestExecuteRefusesFullTableDump(t *testing.T) {
	e := newTestExecutor(t)

	res := e.Execute(&planner.Plan{Action: planner.ActionShow})
	assert.Equal(t, "error", res.Status)
	assert.Equal(t, msgFullTableDump, res.Message)
	assert.Empty(t, res.Data)
	assert.Zero(t, res.RowCount)
}

func TestExecuteAmountFilter(t *testing.T) {
	e := newTestExecutor(t)

	res := e.Execute(&planner.Plan{
		Action: planner.ActionShow,
		Filters: []planner.Filter{
			{Column: "DMBTR", Operator: ">", Value: float64(400), Description: "Amount over $400.00"},
		},
	})

	require.Equal(t, "success", res.Status)
	assert.Equal(t, 2, res.RowCount)
	require.NotEmpty(t, res.Log)
	assert.Equal(t, "filter_1", res.Log[0].Step)
	assert.Equal(t, 4, res.Log[0].RowsBefore)
	assert.Equal(t, 2, res.Log[0].RowsAfter)
}

func TestExecuteEmptyResultGuard(t *testing.T) {
	e := newTestExecutor(t)

	res := e.Execute(&planner.Plan{
		Action: planner.ActionShow,
		Filters: []planner.Filter{
			{Column: "DMBTR", Operator: ">", Value: float64(1e9), Description: "Amount over $1,000,000,000.00"},
		},
	})
	assert.Equal(t, "error", res.Status)
	assert.Equal(t, msgNoAnswer, res.Message)
}

func TestExecuteValueCounts(t *testing.T) {
	e := newTestExecutor(t)

	res := e.Execute(&planner.Plan{
		Action:       planner.ActionShow,
		GroupBy:      []string{"BLART"},
		Aggregations: map[string]string{"*": "count"},
		Limit:        5,
	})

	require.Equal(t, "success", res.Status)
	assert.Equal(t, []string{"BLART", "count"}, res.Columns)
	require.Len(t, res.Data, 2)
	assert.Equal(t, []any{"KR", float64(3)}, res.Data[0])
	assert.Equal(t, []any{"DR", float64(1)}, res.Data[1])
}

func TestExecuteGroupSum(t *testing.T) {
	e := newTestExecutor(t)

	res := e.Execute(&planner.Plan{
		Action:       planner.ActionSum,
		GroupBy:      []string{"BUKRS"},
		Aggregations: map[string]string{"DMBTR": "sum"},
	})

	require.Equal(t, "success", res.Status)
	assert.Equal(t, []string{"BUKRS", "DMBTR"}, res.Columns)
	require.Len(t, res.Data, 2)
	assert.Equal(t, []any{float64(1000), 1550.50}, res.Data[0])
	assert.InDelta(t, 599.99, res.Data[1][1].(float64), 0.001)
}

func TestExecuteAggregateWithoutGrouping(t *testing.T) {
	e := newTestExecutor(t)

	res := e.Execute(&planner.Plan{
		Action:       planner.ActionSum,
		Aggregations: map[string]string{"DMBTR": "sum"},
	})

	require.Equal(t, "success", res.Status)
	assert.Equal(t, []string{"DMBTR"}, res.Columns)
	require.Len(t, res.Data, 1)
	assert.InDelta(t, 2150.49, res.Data[0][0].(float64), 0.001)
	assert.Contains(t, res.Insights, "Total sum of DMBTR: 2,150.49")
}

func TestExecuteCount(t *testing.T) {
	e := newTestExecutor(t)

	res := e.Execute(&planner.Plan{
		Action:       planner.ActionCount,
		Aggregations: map[string]string{"*": "count"},
	})

	require.Equal(t, "success", res.Status)
	assert.Equal(t, []string{"count"}, res.Columns)
	require.Len(t, res.Data, 1)
	assert.Equal(t, float64(4), res.Data[0][0])
	assert.Contains(t, res.Insights, "Found 1 records matching the criteria")
}

func TestExecuteSortingAndLimit(t *testing.T) {
	e := newTestExecutor(t)

	res := e.Execute(&planner.Plan{
		Action:  planner.ActionShow,
		Sorting: []planner.SortSpec{{Column: "DMBTR", Ascending: false}},
		Limit:   2,
	})

	require.Equal(t, "success", res.Status)
	require.Len(t, res.Data, 2)
	dmbtr, _ := table.New(res.Columns, res.Data).ColumnIndex("DMBTR")
	assert.Equal(t, 1250.50, res.Data[0][dmbtr])
	assert.Equal(t, 500.00, res.Data[1][dmbtr])
}

func TestExecuteQuarterTimePeriod(t *testing.T) {
	e := newTestExecutor(t)

	res := e.Execute(&planner.Plan{
		Action:     planner.ActionShow,
		TimePeriod: &planner.TimePeriod{Quarter: 1},
	})

	require.Equal(t, "success", res.Status)
	assert.Equal(t, 3, res.RowCount)
	require.NotEmpty(t, res.Log)
	assert.Equal(t, "time_period_filter", res.Log[0].Step)
}

func TestExecuteRelativeDateFilter(t *testing.T) {
	e := newTestExecutor(t)
	e.now = func() time.Time { return time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC) }

	res := e.Execute(&planner.Plan{
		Action: planner.ActionShow,
		Filters: []planner.Filter{
			{
				Column:      "BUDAT",
				Operator:    "relative_date",
				Value:       planner.RelativeDate{Number: 60, Unit: "day"},
				Description: "Last 60 days",
			},
		},
	})

	require.Equal(t, "success", res.Status)
	assert.Equal(t, 2, res.RowCount)
}

func TestExecuteDocumentTypeFilter(t *testing.T) {
	e := newTestExecutor(t)

	res := e.Execute(&planner.Plan{
		Action: planner.ActionShow,
		Filters: []planner.Filter{
			{Column: "BLART", Operator: "==", Value: "KR", Description: "Document type: KR"},
		},
	})

	require.Equal(t, "success", res.Status)
	assert.Equal(t, 3, res.RowCount)
}

func TestExecuteSkipsBadFilters(t *testing.T) {
	e := newTestExecutor(t)

	res := e.Execute(&planner.Plan{
		Action: planner.ActionShow,
		Filters: []planner.Filter{
			{Column: "NOPE", Operator: ">", Value: float64(1), Description: "bad column"},
			{Column: "BLART", Operator: "~~", Value: "x", Description: "bad operator"},
		},
		Limit: 2,
	})

	require.Equal(t, "success", res.Status)
	assert.Equal(t, 2, res.RowCount)

	var statuses []string
	for _, rec := range res.Log {
		statuses = append(statuses, rec.Status)
	}
	assert.Contains(t, statuses, "error")
	assert.Contains(t, res.Log[0].Message, "NOPE")
	assert.Contains(t, res.Log[1].Message, "Unknown operator")
}

func TestExecuteSchemaExplanation(t *testing.T) {
	tbl := bkpfTable()
	analysis := analyzer.New(analyzer.DefaultConfig(), nil).AnalyzeTable(tbl)
	e := New(tbl, analysis, nil)

	res := e.Execute(&planner.Plan{
		Action:   planner.ActionExplainSchema,
		Question: "what is this table",
		Schema:   analysis,
	})

	require.Equal(t, "success", res.Status)
	assert.Equal(t, "explain_schema", res.QueryType)
	assert.Equal(t, 1, res.RowCount)
	assert.Contains(t, res.SchemaExplanation, "BKPF")
	assert.Contains(t, res.SchemaExplanation, "Key Columns")
	assert.Contains(t, res.NLResponse, "BKPF")
	assert.Equal(t, []string{"explanation", "nl_response"}, res.Columns)
}

func TestExecuteBusinessAnalysis(t *testing.T) {
	e := newTestExecutor(t)
	e.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }

	res := e.Execute(&planner.Plan{
		Action:   planner.ActionBusinessAnalysis,
		Question: "show overdue vendor payments",
	})

	require.Equal(t, "success", res.Status)
	assert.Equal(t, "business_analysis", res.QueryType)
	assert.Contains(t, res.BusinessAnalysis, "Overdue Analysis")
	assert.Contains(t, res.BusinessAnalysis, "4/4 items overdue")
	assert.Contains(t, res.BusinessAnalysis, "3 unique vendors found")
	assert.Contains(t, res.NLResponse, "overdue")
}

func TestExecuteSerializesDates(t *testing.T) {
	e := newTestExecutor(t)

	res := e.Execute(&planner.Plan{
		Action: planner.ActionShow,
		Filters: []planner.Filter{
			{Column: "DMBTR", Operator: ">", Value: float64(1000), Description: "Amount over $1,000.00"},
		},
	})

	require.Equal(t, "success", res.Status)
	require.Len(t, res.Data, 1)
	budat, ok := table.New(res.Columns, nil).ColumnIndex("BUDAT")
	require.True(t, ok)
	assert.Equal(t, "2024-01-15T00:00:00Z", res.Data[0][budat])
}

func TestExecuteSummaryStats(t *testing.T) {
	e := newTestExecutor(t)

	res := e.Execute(&planner.Plan{
		Action: planner.ActionShow,
		Filters: []planner.Filter{
			{Column: "BLART", Operator: "==", Value: "KR", Description: "Document type: KR"},
		},
	})

	require.Equal(t, "success", res.Status)
	require.NotNil(t, res.SummaryStats)
	assert.Equal(t, 3, res.SummaryStats.TotalRows)

	dmbtr, ok := res.SummaryStats.ColumnStats["DMBTR"]
	require.True(t, ok)
	require.NotNil(t, dmbtr.Numeric)
	assert.InDelta(t, 99.99, dmbtr.Numeric.Min, 0.001)
	assert.InDelta(t, 1250.50, dmbtr.Numeric.Max, 0.001)
}

func TestIsHeaderEcho(t *testing.T) {
	echo := table.New([]string{"A", "B"}, [][]any{{"A", "B"}, {"A", "B"}})
	assert.True(t, isHeaderEcho(echo))

	normal := table.New([]string{"A", "B"}, [][]any{{"1", "2"}})
	assert.False(t, isHeaderEcho(normal))

	empty := table.New([]string{"A", "B"}, nil)
	assert.False(t, isHeaderEcho(empty))
}

func TestCommaFormat(t *testing.T) {
	assert.Equal(t, "1,234,567.89", commaFormat(1234567.89))
	assert.Equal(t, "999.00", commaFormat(999))
	assert.Equal(t, "-1,000.50", commaFormat(-1000.5))
	assert.Equal(t, "0.00", commaFormat(0))
}
