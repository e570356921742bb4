package analyzer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight/finsight/internal/table"
)

func newTestAnalyzer() *Analyzer {
	return New(DefaultConfig(), nil)
}

func TestAnalyzeTableClassifiesColumns(t *testing.T) {
	tbl := table.New(
		[]string{"BUKRS", "DMBTR", "BUDAT", "BLART", "NOTES", "EMPTY"},
		[][]any{
			{"1000", "1,250.50", "2024-01-15", "KR", "first note about vendor", nil},
			{"1000", "300", "2024-02-20", "KR", "another free text value", nil},
			{"2000", "99.99", "2024-03-05", "DR", "yet another distinct remark", nil},
			{"2000", "500", "2024-03-18", "KR", "totally different sentence", nil},
		},
	)

	a := newTestAnalyzer()
	analysis := a.AnalyzeTable(tbl)

	require.Equal(t, 6, analysis.ColumnCount)
	assert.Equal(t, 4, analysis.RowCount)

	amount, ok := analysis.Column("DMBTR")
	require.True(t, ok)
	assert.Equal(t, CategoryNumeric, amount.Category)
	assert.Equal(t, "local_amount", amount.SemanticTag)
	require.NotNil(t, amount.Numeric)
	assert.InDelta(t, 99.99, amount.Numeric.Min, 0.001)
	assert.InDelta(t, 1250.50, amount.Numeric.Max, 0.001)
	assert.InDelta(t, 2150.49, amount.Numeric.Sum, 0.001)

	posted, ok := analysis.Column("BUDAT")
	require.True(t, ok)
	assert.Equal(t, CategoryDate, posted.Category)
	require.NotNil(t, posted.Date)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), posted.Date.Min)
	assert.Equal(t, 63, posted.Date.SpanDays)

	notes, ok := analysis.Column("NOTES")
	require.True(t, ok)
	assert.Equal(t, CategoryText, notes.Category)

	empty, ok := analysis.Column("EMPTY")
	require.True(t, ok)
	assert.Equal(t, CategoryEmpty, empty.Category)
	assert.Equal(t, float64(100), empty.NullPercent)
}

func TestAnalyzeTableCategorical(t *testing.T) {
	rows := make([][]any, 100)
	for i := range rows {
		code := "KR"
		if i%3 == 0 {
			code = "DR"
		}
		rows[i] = []any{code}
	}
	// Force text classification off: two unique values over 100 rows is
	// well under the 10% uniqueness cutoff.
	analysis := newTestAnalyzer().AnalyzeTable(table.New([]string{"KIND"}, rows))

	col, ok := analysis.Column("KIND")
	require.True(t, ok)
	assert.Equal(t, CategoryCategorical, col.Category)
	assert.Equal(t, 2, col.UniqueCount)
}

func TestAnalyzeTableNumericBeatsDate(t *testing.T) {
	// Fiscal years look numeric and must not classify as dates.
	analysis := newTestAnalyzer().AnalyzeTable(table.New(
		[]string{"GJAHR"},
		[][]any{{"2023"}, {"2024"}, {"2024"}, {"2025"}},
	))
	col, ok := analysis.Column("GJAHR")
	require.True(t, ok)
	assert.Equal(t, CategoryNumeric, col.Category)
	assert.Equal(t, "fiscal_year", col.SemanticTag)
}

func TestAnalyzeTableDetectsTableType(t *testing.T) {
	analysis := newTestAnalyzer().AnalyzeTable(table.New(
		[]string{"BUKRS", "BELNR", "GJAHR", "BLART", "BUDAT"},
		[][]any{{"1000", "490001", "2024", "KR", "2024-01-15"}},
	))
	assert.Equal(t, "BKPF", analysis.TableType)
	assert.Equal(t, "Accounting Document Header", analysis.Description)
	assert.NotEmpty(t, analysis.Suggestions)

	assert.GreaterOrEqual(t, analysis.Confidence, 0.8)
	require.NotNil(t, analysis.Identification)
	assert.Equal(t, "BKPF", analysis.Identification.TableType)
	assert.Empty(t, analysis.Identification.Missing)
	assert.Contains(t, analysis.Summary, "BKPF")
}

func TestAnalyzeTableUnknownType(t *testing.T) {
	analysis := newTestAnalyzer().AnalyzeTable(table.New(
		[]string{"FOO", "BAR"},
		[][]any{{"1", "2"}},
	))
	assert.Equal(t, "UNKNOWN", analysis.TableType)
	assert.Zero(t, analysis.Confidence)
	assert.Contains(t, analysis.Summary, "2 columns")
}

func TestAnalyzeFileCachesByModTime(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bkpf.csv")
	csv := "BUKRS,BELNR,GJAHR,BLART,BUDAT\n1000,1,2024,KR,2024-01-01\n1000,2,2024,DR,2024-02-01\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	a := newTestAnalyzer()
	first, err := a.AnalyzeFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, first.RowCount)
	assert.Equal(t, "BKPF", first.TableType)
	assert.Equal(t, int64(len(csv)), first.SizeBytes)

	// Unchanged file returns the cached analysis.
	second, err := a.AnalyzeFile(path)
	require.NoError(t, err)
	assert.Same(t, first, second)

	// Rewriting the file with a newer mtime invalidates the entry.
	csv += "1000,3,2024,KR,2024-03-01\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))
	newer := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, newer, newer))

	third, err := a.AnalyzeFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, third.RowCount)
}

func TestAnalyzeFileSampleBound(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.csv")

	f, err := os.Create(path)
	require.NoError(t, err)
	_, err = f.WriteString("VAL\n")
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		_, err = f.WriteString("x\n")
		require.NoError(t, err)
	}
	require.NoError(t, f.Close())

	a := New(Config{SampleSize: 10}, nil)
	analysis, err := a.AnalyzeFile(path)
	require.NoError(t, err)
	assert.Equal(t, 50, analysis.RowCount)
	assert.Equal(t, 10, analysis.SampledRows)
}

func TestAnalyzeFileMissing(t *testing.T) {
	_, err := newTestAnalyzer().AnalyzeFile("/does/not/exist.csv")
	assert.Error(t, err)
}

func TestColumnHelpers(t *testing.T) {
	analysis := newTestAnalyzer().AnalyzeTable(table.New(
		[]string{"DMBTR", "BUDAT", "BLART"},
		[][]any{
			{"10", "2024-01-01", "KR"},
			{"20", "2024-02-01", "KR"},
		},
	))

	assert.Equal(t, []string{"DMBTR"}, analysis.ColumnsByCategory(CategoryNumeric))
	assert.Equal(t, []string{"BUDAT"}, analysis.ColumnsByCategory(CategoryDate))

	name, ok := analysis.ColumnBySemanticTag("posting_date")
	require.True(t, ok)
	assert.Equal(t, "BUDAT", name)

	_, ok = analysis.ColumnBySemanticTag("nonexistent")
	assert.False(t, ok)
}
