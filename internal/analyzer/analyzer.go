// Package analyzer profiles tabular datasets: it classifies each column as
// numeric, date, categorical, or text, attaches SAP semantic tags, and
// detects the SAP table type from column names.
//
// File-based analyses are cached by (path, mtime), so re-analyzing an
// unchanged upload is free.
package analyzer

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/finsight/finsight/internal/logger"
	"github.com/finsight/finsight/internal/report"
	"github.com/finsight/finsight/internal/sapmap"
	"github.com/finsight/finsight/internal/table"
)

// Config controls sampling and classification thresholds.
type Config struct {
	// SampleSize bounds how many rows feed the per-column statistics.
	SampleSize int

	// CoerceThreshold is the fraction of non-null values that must parse
	// as a number (or date) for a column to be classified as such.
	CoerceThreshold float64

	// CategoricalRatio is the unique/non-null ratio below which a text
	// column counts as categorical.
	CategoricalRatio float64

	// MaxSamples bounds the example values kept per column.
	MaxSamples int
}

// DefaultConfig returns the standard analysis configuration.
func DefaultConfig() Config {
	return Config{
		SampleSize:       5000,
		CoerceThreshold:  0.8,
		CategoricalRatio: 0.1,
		MaxSamples:       5,
	}
}

// Analyzer profiles datasets and caches file-based results.
type Analyzer struct {
	cfg Config
	log *logger.Logger

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	mtime    time.Time
	analysis *Analysis
}

// New creates an Analyzer. Zero config fields fall back to the defaults.
func New(cfg Config, log *logger.Logger) *Analyzer {
	def := DefaultConfig()
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = def.SampleSize
	}
	if cfg.CoerceThreshold <= 0 {
		cfg.CoerceThreshold = def.CoerceThreshold
	}
	if cfg.CategoricalRatio <= 0 {
		cfg.CategoricalRatio = def.CategoricalRatio
	}
	if cfg.MaxSamples <= 0 {
		cfg.MaxSamples = def.MaxSamples
	}
	if log == nil {
		log = logger.Global()
	}
	return &Analyzer{cfg: cfg, log: log, cache: make(map[string]cacheEntry)}
}

// AnalyzeFile profiles the CSV at path. Results are cached per path and
// invalidated when the file's modification time changes. Read failures are
// hard errors; a dataset that cannot be read cannot be queried.
func (a *Analyzer) AnalyzeFile(path string) (*Analysis, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	a.mu.RLock()
	entry, ok := a.cache[path]
	a.mu.RUnlock()
	if ok && entry.mtime.Equal(info.ModTime()) {
		return entry.analysis, nil
	}

	sample, total, err := table.ReadCSVFileSample(path, a.cfg.SampleSize)
	if err != nil {
		return nil, err
	}

	analysis := a.profile(sample)
	analysis.RowCount = total
	analysis.SizeBytes = info.Size()

	a.mu.Lock()
	a.cache[path] = cacheEntry{mtime: info.ModTime(), analysis: analysis}
	a.mu.Unlock()

	a.log.With().
		Str("path", path).
		Str("table_type", analysis.TableType).
		Int("rows", total).
		Int("columns", analysis.ColumnCount).
		Logger().Debug("dataset analyzed")

	return analysis, nil
}

// AnalyzeTable profiles an in-memory table directly, bypassing the cache.
func (a *Analyzer) AnalyzeTable(t *table.Table) *Analysis {
	sample := t
	if a.cfg.SampleSize > 0 && t.NumRows() > a.cfg.SampleSize {
		idx := make([]int, a.cfg.SampleSize)
		for i := range idx {
			idx[i] = i
		}
		sample = t.Select(idx)
	}
	analysis := a.profile(sample)
	analysis.RowCount = t.NumRows()
	return analysis
}

// Invalidate drops the cached analysis for path.
func (a *Analyzer) Invalidate(path string) {
	a.mu.Lock()
	delete(a.cache, path)
	a.mu.Unlock()
}

func (a *Analyzer) profile(sample *table.Table) *Analysis {
	tableType := report.DetectByRequired(sample.Columns)
	ident := report.Identify(sample.Columns)

	analysis := &Analysis{
		TableType:      tableType,
		Description:    report.Description(tableType),
		SampledRows:    sample.NumRows(),
		ColumnCount:    sample.NumCols(),
		Columns:        make([]ColumnProfile, 0, sample.NumCols()),
		Suggestions:    report.SuggestedQueries(tableType),
		Identification: &ident,
	}
	if ident.TableType == tableType {
		analysis.Confidence = ident.Confidence
	}

	for i, name := range sample.Columns {
		analysis.Columns = append(analysis.Columns, a.profileColumn(sample, i, name, tableType))
	}

	if tableType == report.TypeUnknown {
		analysis.Summary = fmt.Sprintf("Unrecognized table with %d columns", sample.NumCols())
	} else {
		analysis.Summary = sapmap.Summary(tableType, sample.Columns)
	}
	return analysis
}

func (a *Analyzer) profileColumn(t *table.Table, idx int, name, tableType string) ColumnProfile {
	profile := ColumnProfile{
		Name:        name,
		SemanticTag: semanticTags[normalizeName(name)],
		Description: sapmap.ColumnDescription(tableType, name),
	}

	values := make([]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		if idx >= len(row) || table.IsNull(row[idx]) {
			profile.NullCount++
			continue
		}
		values = append(values, row[idx])
	}
	if len(t.Rows) > 0 {
		profile.NullPercent = float64(profile.NullCount) / float64(len(t.Rows)) * 100
	}

	unique := make(map[string]struct{}, len(values))
	for _, v := range values {
		s := table.AsString(v)
		if _, seen := unique[s]; !seen {
			unique[s] = struct{}{}
			if len(profile.Samples) < a.cfg.MaxSamples {
				profile.Samples = append(profile.Samples, s)
			}
		}
	}
	profile.UniqueCount = len(unique)

	if len(values) == 0 {
		profile.Category = CategoryEmpty
		return profile
	}

	profile.Category, profile.Numeric, profile.Date = a.classify(values)
	return profile
}

// classify applies the category priority order: numeric, then date, then
// categorical by unique ratio, then text.
func (a *Analyzer) classify(values []any) (Category, *NumericStats, *DateStats) {
	var nums []float64
	var dates []time.Time
	for _, v := range values {
		if f, ok := table.ParseNumber(v); ok {
			nums = append(nums, f)
		}
		if d, ok := table.ParseDate(v); ok {
			dates = append(dates, d)
		}
	}

	n := float64(len(values))
	if float64(len(nums))/n >= a.cfg.CoerceThreshold {
		return CategoryNumeric, numericStats(nums), nil
	}
	if float64(len(dates))/n >= a.cfg.CoerceThreshold {
		return CategoryDate, nil, dateStats(dates)
	}

	unique := make(map[string]struct{}, len(values))
	for _, v := range values {
		unique[table.AsString(v)] = struct{}{}
	}
	if float64(len(unique))/n < a.cfg.CategoricalRatio {
		return CategoryCategorical, nil, nil
	}
	return CategoryText, nil, nil
}

func numericStats(nums []float64) *NumericStats {
	stats := &NumericStats{Min: nums[0], Max: nums[0]}
	for _, f := range nums {
		if f < stats.Min {
			stats.Min = f
		}
		if f > stats.Max {
			stats.Max = f
		}
		stats.Sum += f
	}
	stats.Mean = stats.Sum / float64(len(nums))
	return stats
}

func dateStats(dates []time.Time) *DateStats {
	stats := &DateStats{Min: dates[0], Max: dates[0]}
	for _, d := range dates {
		if d.Before(stats.Min) {
			stats.Min = d
		}
		if d.After(stats.Max) {
			stats.Max = d
		}
	}
	stats.SpanDays = int(stats.Max.Sub(stats.Min).Hours() / 24)
	return stats
}
