package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight/finsight/internal/analyzer"
	"github.com/finsight/finsight/internal/table"
)

func bkpfAnalysis(t *testing.T) *analyzer.Analysis {
	t.Helper()
	tbl := table.New(
		[]string{"BUKRS", "BELNR", "GJAHR", "BLART", "BUDAT", "DMBTR", "LIFNR", "TCODE", "USNAM"},
		[][]any{
			{"1000", "490001", "2024", "KR", "2024-01-15", "1250.50", "V001", "FB60", "JSMITH"},
			{"1000", "490002", "2024", "DR", "2024-02-20", "300.00", "V002", "FB70", "JSMITH"},
			{"2000", "490003", "2024", "KR", "2024-03-05", "99.99", "V001", "FB60", "MJONES"},
			{"2000", "490004", "2024", "KR", "2024-04-18", "500.00", "V003", "FB60", "MJONES"},
		},
	)
	return analyzer.New(analyzer.DefaultConfig(), nil).AnalyzeTable(tbl)
}

func newTestPlanner(t *testing.T) *Planner {
	t.Helper()
	return New(bkpfAnalysis(t), DefaultConfig(), nil)
}

func TestPlanQueryMostFrequent(t *testing.T) {
	p := newTestPlanner(t)

	res := p.PlanQuery("What are the most frequent document types?")
	require.Equal(t, StatusSuccess, res.Status)
	require.NotNil(t, res.Plan)

	assert.Equal(t, ActionShow, res.Plan.Action)
	assert.Equal(t, []string{"BLART"}, res.Plan.GroupBy)
	assert.Equal(t, map[string]string{"*": "count"}, res.Plan.Aggregations)
	require.Len(t, res.Plan.Sorting, 1)
	assert.Equal(t, "count", res.Plan.Sorting[0].Column)
	assert.False(t, res.Plan.Sorting[0].Ascending)
	assert.Equal(t, 5, res.Plan.Limit)
}

func TestPlanQueryTopN(t *testing.T) {
	p := newTestPlanner(t)

	res := p.PlanQuery("top 3 transaction codes")
	require.Equal(t, StatusSuccess, res.Status)
	require.NotNil(t, res.Plan)
	assert.Equal(t, []string{"TCODE"}, res.Plan.GroupBy)
	assert.Equal(t, 3, res.Plan.Limit)
}

func TestPlanQueryTopAmounts(t *testing.T) {
	p := newTestPlanner(t)

	res := p.PlanQuery("Show me the top 3 highest amounts")
	require.Equal(t, StatusSuccess, res.Status)
	require.NotNil(t, res.Plan)

	require.Len(t, res.Plan.Sorting, 1)
	assert.Equal(t, "DMBTR", res.Plan.Sorting[0].Column)
	assert.False(t, res.Plan.Sorting[0].Ascending)
	assert.Equal(t, 3, res.Plan.Limit)
}

func TestPlanQueryVendorPaymentsLastQuarter(t *testing.T) {
	p := newTestPlanner(t)
	p.now = func() time.Time { return time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC) }

	res := p.PlanQuery("Show me all vendor payments for the last quarter")
	require.Equal(t, StatusSuccess, res.Status)
	require.NotNil(t, res.Plan)

	assert.Equal(t, ActionBusinessAnalysis, res.Plan.Action)
	require.NotNil(t, res.Plan.TimePeriod)
	assert.Equal(t, 2, res.Plan.TimePeriod.Quarter)
	assert.Contains(t, res.Plan.GroupBy, "LIFNR")
	assert.Empty(t, res.Message)
}

func TestPlanQueryAmountFilter(t *testing.T) {
	p := newTestPlanner(t)

	res := p.PlanQuery("Show all documents with amounts over $50,000")
	require.Equal(t, StatusSuccess, res.Status)
	require.NotNil(t, res.Plan)
	require.Len(t, res.Plan.Filters, 1)

	f := res.Plan.Filters[0]
	assert.Equal(t, "DMBTR", f.Column)
	assert.Equal(t, ">", f.Operator)
	assert.Equal(t, float64(50000), f.Value)

	// No date filter present, so the planner suggests narrowing by time.
	assert.NotEmpty(t, res.Clarifications)
}

func TestPlanQueryAmountFilterNoAmountColumn(t *testing.T) {
	tbl := table.New(
		[]string{"LIFNR", "NAME1"},
		[][]any{{"V001", "Acme Corp"}, {"V002", "Globex"}},
	)
	analysis := analyzer.New(analyzer.DefaultConfig(), nil).AnalyzeTable(tbl)
	p := New(analysis, DefaultConfig(), nil)

	res := p.PlanQuery("Show all entries over $50,000")
	require.Equal(t, StatusAmbiguous, res.Status)
	assert.NotEmpty(t, res.Clarifications)
	assert.Contains(t, res.Message, "Could not identify column")
}

func TestPlanQueryRelativeDate(t *testing.T) {
	p := newTestPlanner(t)

	res := p.PlanQuery("Show documents posted in the last 30 days")
	require.Equal(t, StatusSuccess, res.Status)
	require.NotNil(t, res.Plan)

	require.Len(t, res.Plan.Filters, 1)
	f := res.Plan.Filters[0]
	assert.Equal(t, "BUDAT", f.Column)
	assert.Equal(t, "relative_date", f.Operator)
	assert.Equal(t, RelativeDate{Number: 30, Unit: "day"}, f.Value)

	// "last 30" must not double as a row limit.
	assert.Zero(t, res.Plan.Limit)
}

func TestPlanQueryExplicitLimit(t *testing.T) {
	p := newTestPlanner(t)

	res := p.PlanQuery("show me only 10 rows of this dataset please and thanks")
	require.Equal(t, StatusSuccess, res.Status)
	require.NotNil(t, res.Plan)
	assert.Equal(t, 10, res.Plan.Limit)
}

func TestPlanQueryExplainSchema(t *testing.T) {
	p := newTestPlanner(t)

	for _, q := range []string{
		"explain this table",
		"what does this data contain?",
		"describe the schema",
	} {
		res := p.PlanQuery(q)
		require.Equal(t, StatusSuccess, res.Status, q)
		require.NotNil(t, res.Plan, q)
		assert.Equal(t, ActionExplainSchema, res.Plan.Action, q)
		assert.NotNil(t, res.Plan.Schema, q)
		assert.Empty(t, res.Plan.Filters, q)
	}
}

func TestPlanQueryShortFallback(t *testing.T) {
	p := newTestPlanner(t)

	res := p.PlanQuery("dog")
	require.Equal(t, StatusSuccess, res.Status)
	require.NotNil(t, res.Plan)
	assert.Equal(t, ActionExplainSchema, res.Plan.Action)
}

func TestPlanQueryCount(t *testing.T) {
	p := newTestPlanner(t)

	res := p.PlanQuery("how many records are in the dataset in total overall")
	require.Equal(t, StatusSuccess, res.Status)
	require.NotNil(t, res.Plan)
	assert.Equal(t, ActionCount, res.Plan.Action)
	assert.Equal(t, "count", res.Plan.Aggregations["*"])
}

func TestPlanQuerySumByUser(t *testing.T) {
	p := newTestPlanner(t)

	res := p.PlanQuery("total amount posted per user across the whole year please")
	require.Equal(t, StatusSuccess, res.Status)
	require.NotNil(t, res.Plan)
	assert.Equal(t, ActionSum, res.Plan.Action)
	assert.Equal(t, "sum", res.Plan.Aggregations["DMBTR"])
	assert.Contains(t, res.Plan.GroupBy, "USNAM")
}

func TestPlanQueryQuarterFilter(t *testing.T) {
	p := newTestPlanner(t)

	res := p.PlanQuery("show documents from q2")
	require.Equal(t, StatusSuccess, res.Status)
	require.NotNil(t, res.Plan)

	require.NotEmpty(t, res.Plan.Filters)
	assert.Equal(t, "quarter", res.Plan.Filters[0].Operator)
	assert.Equal(t, 2, res.Plan.Filters[0].Value)
	require.NotNil(t, res.Plan.TimePeriod)
	assert.Equal(t, 2, res.Plan.TimePeriod.Quarter)
}

func TestPlanQueryQuarterNeedsWordBoundary(t *testing.T) {
	p := newTestPlanner(t)

	// "sq1" is not a quarter reference.
	res := p.PlanQuery("show records matching project code sq1")
	require.Equal(t, StatusSuccess, res.Status)
	require.NotNil(t, res.Plan)

	assert.Nil(t, res.Plan.TimePeriod)
	for _, f := range res.Plan.Filters {
		assert.NotEqual(t, "quarter", f.Operator)
	}
}

func TestPlanQueryEstimateUsesSelectivity(t *testing.T) {
	analysis := bkpfAnalysis(t)
	analysis.RowCount = 1000
	p := New(analysis, DefaultConfig(), nil)

	res := p.PlanQuery("Show all documents with amounts over $100")
	require.Equal(t, StatusSuccess, res.Status)
	require.NotNil(t, res.Estimate)
	assert.Equal(t, 300, res.Estimate.Rows)
}

func TestPreviousQuarter(t *testing.T) {
	tests := []struct {
		month time.Month
		want  int
	}{
		{time.January, 4},
		{time.April, 1},
		{time.August, 2},
		{time.December, 3},
	}
	for _, tt := range tests {
		now := time.Date(2024, tt.month, 15, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, tt.want, previousQuarter(now), tt.month.String())
	}
}

func TestFindMatchingColumn(t *testing.T) {
	p := newTestPlanner(t)

	tests := []struct {
		term string
		want string
	}{
		{"document types", "BLART"},
		{"transaction codes", "TCODE"},
		{"users", "USNAM"},
		{"blart", "BLART"},
		{"posting date", "BUDAT"},
	}
	for _, tt := range tests {
		got, ok := p.findMatchingColumn(tt.term)
		require.True(t, ok, tt.term)
		assert.Equal(t, tt.want, got, tt.term)
	}

	_, ok := p.findMatchingColumn("nonexistent thing")
	assert.False(t, ok)
}
