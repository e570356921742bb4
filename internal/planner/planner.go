// Package planner translates natural-language questions into executable
// query plans using ordered, rule-based intent matching against the
// schema analysis of the loaded dataset.
//
// Rules are evaluated in a fixed priority order and the first match wins.
// No statistical model is involved; every decision is reproducible from
// the question text and the column profiles.
package planner

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/finsight/finsight/internal/analyzer"
	"github.com/finsight/finsight/internal/logger"
)

// Config holds planning heuristics.
type Config struct {
	// DefaultTopN is the limit applied to "most frequent" style questions
	// that do not name a number.
	DefaultTopN int

	// ShortQuestionWords is the word count at or below which an unmatched
	// question falls back to a schema explanation.
	ShortQuestionWords int

	// Selectivity heuristics used for result-size estimates.
	GreaterSelectivity float64
	LessSelectivity    float64
	EqualSelectivity   float64
}

// DefaultConfig returns the standard planning heuristics.
func DefaultConfig() Config {
	return Config{
		DefaultTopN:        5,
		ShortQuestionWords: 5,
		GreaterSelectivity: 0.3,
		LessSelectivity:    0.3,
		EqualSelectivity:   0.1,
	}
}

// Planner builds query plans for one analyzed dataset.
type Planner struct {
	analysis *analyzer.Analysis
	cfg      Config
	log      *logger.Logger
	now      func() time.Time
}

// New creates a Planner bound to a schema analysis. Zero config fields
// fall back to the defaults.
func New(analysis *analyzer.Analysis, cfg Config, log *logger.Logger) *Planner {
	def := DefaultConfig()
	if cfg.DefaultTopN <= 0 {
		cfg.DefaultTopN = def.DefaultTopN
	}
	if cfg.ShortQuestionWords <= 0 {
		cfg.ShortQuestionWords = def.ShortQuestionWords
	}
	if cfg.GreaterSelectivity <= 0 {
		cfg.GreaterSelectivity = def.GreaterSelectivity
	}
	if cfg.LessSelectivity <= 0 {
		cfg.LessSelectivity = def.LessSelectivity
	}
	if cfg.EqualSelectivity <= 0 {
		cfg.EqualSelectivity = def.EqualSelectivity
	}
	if log == nil {
		log = logger.Global()
	}
	return &Planner{analysis: analysis, cfg: cfg, log: log, now: time.Now}
}

// PlanQuery turns a natural-language question into a Result. It never
// panics; internal failures come back as an error-status Result.
func (p *Planner) PlanQuery(question string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			p.log.With().Str("question", question).Any("panic", r).Logger().
				Error("query planning failed")
			res = Result{
				Status:  StatusError,
				Message: fmt.Sprintf("Error planning query: %v", r),
			}
		}
	}()

	q := strings.ToLower(strings.TrimSpace(question))
	plan := p.parseIntent(q)
	plan.Question = question

	if plan.Action == ActionExplainSchema {
		// The narrative path ignores row operations, so force them empty
		// and ship the schema along with the plan.
		plan.Filters = nil
		plan.GroupBy = nil
		plan.Aggregations = nil
		plan.Sorting = nil
		plan.Limit = 0
		plan.TimePeriod = nil
		plan.Schema = p.analysis
	}

	issues, questions := p.validate(plan)
	if len(issues) > 0 {
		return Result{
			Status:         StatusAmbiguous,
			Message:        strings.Join(issues, "; "),
			Clarifications: questions,
		}
	}

	return Result{
		Status:         StatusSuccess,
		Plan:           plan,
		Steps:          executionSteps(plan),
		Estimate:       p.estimate(plan),
		Explanation:    explain(plan),
		Clarifications: questions,
	}
}

// frequencyPatterns catch "most frequent X" phrasings that translate
// directly into a group-and-count plan.
var frequencyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`most frequent ([\w\s]+?)[\s?.!]*$`),
	regexp.MustCompile(`most common ([\w\s]+?)[\s?.!]*$`),
	regexp.MustCompile(`top (\d+) ([\w\s]+?)[\s?.!]*$`),
	regexp.MustCompile(`top ([\w\s]+?)[\s?.!]*$`),
	regexp.MustCompile(`which ([\w\s]+?) are used most[\s?.!]*$`),
	regexp.MustCompile(`what ([\w\s]+?) are used most[\s?.!]*$`),
	regexp.MustCompile(`what are the most common ([\w\s]+?)[\s?.!]*$`),
	regexp.MustCompile(`what are the most frequent ([\w\s]+?)[\s?.!]*$`),
	regexp.MustCompile(`what ([\w\s]+?) were used most frequently[\s?.!]*$`),
	regexp.MustCompile(`what ([\w\s]+?) were used most commonly[\s?.!]*$`),
	regexp.MustCompile(`which ([\w\s]+?) were used most frequently[\s?.!]*$`),
	regexp.MustCompile(`which ([\w\s]+?) were used most commonly[\s?.!]*$`),
}

func (p *Planner) parseIntent(q string) *Plan {
	// Frequency questions build their whole plan in one step and skip the
	// generic extraction below.
	for _, pat := range frequencyPatterns {
		m := pat.FindStringSubmatch(q)
		if m == nil {
			continue
		}
		n := p.cfg.DefaultTopN
		term := m[len(m)-1]
		if len(m) == 3 {
			if parsed, err := strconv.Atoi(m[1]); err == nil {
				n = parsed
				term = m[2]
			}
		}
		if col, ok := p.findMatchingColumn(term); ok {
			return &Plan{
				Action:       ActionShow,
				GroupBy:      []string{col},
				Aggregations: map[string]string{"*": "count"},
				Sorting:      []SortSpec{{Column: "count", Ascending: false}},
				Limit:        n,
			}
		}
	}

	return &Plan{
		Action:       p.extractAction(q),
		Filters:      p.extractFilters(q),
		GroupBy:      p.extractGrouping(q),
		Aggregations: p.extractAggregation(q),
		Sorting:      p.extractSorting(q),
		Limit:        extractLimit(q),
		TimePeriod:   p.extractTimePeriod(q),
	}
}

func containsAny(q string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(q, w) {
			return true
		}
	}
	return false
}

func (p *Planner) extractAction(q string) Action {
	if containsAny(q, "explain", "what", "describe", "tell me about") &&
		containsAny(q, "report", "table", "data", "schema", "structure", "columns", "fields", "file", "this", "does") {
		return ActionExplainSchema
	}
	if containsAny(q, "overdue", "past due", "vendor", "customer", "invoice", "payment", "business") {
		return ActionBusinessAnalysis
	}
	if containsAny(q, "show", "display", "list", "find", "get", "see", "view") {
		return ActionShow
	}
	if containsAny(q, "count", "how many", "number of", "total records") {
		return ActionCount
	}
	if containsAny(q, "sum", "total", "average", "mean", "avg") {
		if containsAny(q, "sum", "total") {
			return ActionSum
		}
		return ActionAverage
	}
	if len(strings.Fields(q)) <= p.cfg.ShortQuestionWords {
		return ActionExplainSchema
	}
	return ActionShow
}

var (
	amountAbovePatterns = []*regexp.Regexp{
		regexp.MustCompile(`over\s+\$?([\d,]+)`),
		regexp.MustCompile(`above\s+\$?([\d,]+)`),
		regexp.MustCompile(`greater\s+than\s+\$?([\d,]+)`),
	}
	amountBelowPatterns = []*regexp.Regexp{
		regexp.MustCompile(`under\s+\$?([\d,]+)`),
		regexp.MustCompile(`below\s+\$?([\d,]+)`),
		regexp.MustCompile(`less\s+than\s+\$?([\d,]+)`),
	}
	relativeDatePattern = regexp.MustCompile(`(?:last|past)\s+(\d+)\s+(day|week|month|quarter|year)s?`)
	yearRangePattern    = regexp.MustCompile(`(\d{4})\s*-\s*(\d{4})`)
	quarterPattern      = regexp.MustCompile(`\bq([1-4])\b`)
	docTypeKeywords     = regexp.MustCompile(`\b(invoice|payment|credit|debit|journal)s?\b`)
	docTypeExplicit     = []*regexp.Regexp{
		regexp.MustCompile(`document\s+type\s+([a-z0-9]+)`),
		regexp.MustCompile(`blart\s*[=:]\s*([a-z0-9]+)`),
	}
)

func (p *Planner) extractFilters(q string) []Filter {
	var filters []Filter

	amountCol, _ := p.findAmountColumn()
	for _, pat := range amountAbovePatterns {
		for _, m := range pat.FindAllStringSubmatch(q, -1) {
			amount, _ := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
			filters = append(filters, Filter{
				Column:      amountCol,
				Operator:    ">",
				Value:       amount,
				Description: fmt.Sprintf("Amount over $%.2f", amount),
			})
		}
	}
	for _, pat := range amountBelowPatterns {
		for _, m := range pat.FindAllStringSubmatch(q, -1) {
			amount, _ := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
			filters = append(filters, Filter{
				Column:      amountCol,
				Operator:    "<",
				Value:       amount,
				Description: fmt.Sprintf("Amount under $%.2f", amount),
			})
		}
	}

	dateCol, _ := p.findDateColumn()
	for _, m := range relativeDatePattern.FindAllStringSubmatch(q, -1) {
		number, _ := strconv.Atoi(m[1])
		filters = append(filters, Filter{
			Column:      dateCol,
			Operator:    "relative_date",
			Value:       RelativeDate{Number: number, Unit: m[2]},
			Description: fmt.Sprintf("Last %d %ss", number, m[2]),
		})
	}
	for _, m := range yearRangePattern.FindAllStringSubmatch(q, -1) {
		start, _ := strconv.Atoi(m[1])
		end, _ := strconv.Atoi(m[2])
		filters = append(filters, Filter{
			Column:      dateCol,
			Operator:    "year_range",
			Value:       YearRange{Start: start, End: end},
			Description: fmt.Sprintf("Years %d-%d", start, end),
		})
	}
	for _, m := range quarterPattern.FindAllStringSubmatch(q, -1) {
		quarter, _ := strconv.Atoi(m[1])
		filters = append(filters, Filter{
			Column:      dateCol,
			Operator:    "quarter",
			Value:       quarter,
			Description: fmt.Sprintf("Q%d", quarter),
		})
	}

	// Generic document words ("payments", "invoices") are weak signals:
	// they only become filters when the dataset actually has a document
	// type column. Explicit phrasings always produce a filter so an
	// unresolved column surfaces as a clarification instead of a guess.
	docTypeCol, hasDocType := p.findDocumentTypeColumn()
	if hasDocType {
		for _, m := range docTypeKeywords.FindAllStringSubmatch(q, -1) {
			docType := strings.ToUpper(m[1])
			filters = append(filters, Filter{
				Column:      docTypeCol,
				Operator:    "==",
				Value:       docType,
				Description: "Document type: " + docType,
			})
		}
	}
	for _, pat := range docTypeExplicit {
		for _, m := range pat.FindAllStringSubmatch(q, -1) {
			docType := strings.ToUpper(m[1])
			filters = append(filters, Filter{
				Column:      docTypeCol,
				Operator:    "==",
				Value:       docType,
				Description: "Document type: " + docType,
			})
		}
	}

	if containsAny(q, "overdue", "past due") {
		filters = append(filters, Filter{
			Column:      dateCol,
			Operator:    "overdue",
			Description: "Overdue items",
		})
	}

	return filters
}

var groupingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`group\s+by\s+(\w+)`),
	regexp.MustCompile(`by\s+(\w+)`),
	regexp.MustCompile(`per\s+(\w+)`),
	regexp.MustCompile(`for\s+each\s+(\w+)`),
}

func (p *Planner) extractGrouping(q string) []string {
	var grouping []string
	add := func(col string) {
		for _, g := range grouping {
			if g == col {
				return
			}
		}
		grouping = append(grouping, col)
	}

	for _, pat := range groupingPatterns {
		for _, m := range pat.FindAllStringSubmatch(q, -1) {
			if col, ok := p.findMatchingColumn(m[1]); ok {
				add(col)
			}
		}
	}

	if containsAny(q, "vendor", "supplier") {
		if col, ok := p.findColumnByTag("vendor_number"); ok {
			add(col)
		}
	}
	if containsAny(q, "customer", "client") {
		if col, ok := p.findColumnByTag("customer_number"); ok {
			add(col)
		}
	}
	if strings.Contains(q, "account") {
		if col, ok := p.findColumnByTag("gl_account"); ok {
			add(col)
		}
	}
	if strings.Contains(q, "cost center") {
		if col, ok := p.findMatchingColumn("cost center"); ok {
			add(col)
		}
	}

	return grouping
}

func (p *Planner) extractAggregation(q string) map[string]string {
	agg := make(map[string]string)
	amountCol, hasAmount := p.findAmountColumn()

	if containsAny(q, "sum", "total", "summarize") && hasAmount {
		agg[amountCol] = "sum"
	}
	if containsAny(q, "count", "how many") {
		agg["*"] = "count"
	}
	if containsAny(q, "average", "mean", "avg") && hasAmount {
		agg[amountCol] = "mean"
	}
	if len(agg) == 0 {
		return nil
	}
	return agg
}

var topNPattern = regexp.MustCompile(`top\s+(\d+)`)

func (p *Planner) extractSorting(q string) []SortSpec {
	var sorting []SortSpec
	amountCol, hasAmount := p.findAmountColumn()

	if containsAny(q, "top", "highest") {
		if topNPattern.MatchString(q) && hasAmount {
			sorting = append(sorting, SortSpec{Column: amountCol, Ascending: false})
		}
	}
	if containsAny(q, "lowest", "bottom") && hasAmount {
		sorting = append(sorting, SortSpec{Column: amountCol, Ascending: true})
	}
	return sorting
}

var limitPattern = regexp.MustCompile(`(first|last|limit|only|top)\s+(\d+)\s*(\w*)`)

func extractLimit(q string) int {
	for _, m := range limitPattern.FindAllStringSubmatch(q, -1) {
		// "last 30 days" is a date expression, not a row limit.
		switch strings.TrimSuffix(m[3], "s") {
		case "day", "week", "month", "quarter", "year":
			continue
		}
		n, _ := strconv.Atoi(m[2])
		return n
	}
	return 0
}

func (p *Planner) extractTimePeriod(q string) *TimePeriod {
	// Same word-bounded pattern as the quarter filter, so "sq1" or
	// "eq2" in a column name never reads as a quarter.
	if m := quarterPattern.FindStringSubmatch(q); m != nil {
		n, _ := strconv.Atoi(m[1])
		return &TimePeriod{Quarter: n}
	}
	switch {
	case strings.Contains(q, "first quarter"):
		return &TimePeriod{Quarter: 1}
	case strings.Contains(q, "second quarter"):
		return &TimePeriod{Quarter: 2}
	case strings.Contains(q, "third quarter"):
		return &TimePeriod{Quarter: 3}
	case strings.Contains(q, "fourth quarter"):
		return &TimePeriod{Quarter: 4}
	case containsAny(q, "last quarter", "past quarter", "previous quarter"):
		return &TimePeriod{Quarter: previousQuarter(p.now())}
	}
	return nil
}

func previousQuarter(now time.Time) int {
	q := (int(now.Month())-1)/3 + 1
	if q == 1 {
		return 4
	}
	return q - 1
}

func (p *Planner) validate(plan *Plan) (issues, questions []string) {
	for _, f := range plan.Filters {
		if f.Column == "" {
			issues = append(issues, "Could not identify column for filter: "+f.Description)
			questions = append(questions, "Which column should I use for "+f.Description+"?")
		}
	}
	for _, g := range plan.GroupBy {
		if g == "" {
			issues = append(issues, "Could not identify grouping column")
			questions = append(questions, "Which column should I group by?")
		}
	}

	if len(plan.Filters) > 0 && !hasDateFilter(plan.Filters) {
		if _, ok := p.findDateColumn(); ok {
			questions = append(questions,
				"What time period are you interested in? (e.g., last 30 days, Q2 2024)")
		}
	}
	return issues, questions
}

func hasDateFilter(filters []Filter) bool {
	for _, f := range filters {
		switch f.Operator {
		case "relative_date", "year_range", "quarter", "overdue":
			return true
		}
	}
	return false
}

func executionSteps(plan *Plan) []Step {
	var steps []Step
	if len(plan.Filters) > 0 {
		steps = append(steps, Step{
			Number:      len(steps) + 1,
			Action:      "filter",
			Description: fmt.Sprintf("Apply %d filter(s)", len(plan.Filters)),
		})
	}
	if len(plan.GroupBy) > 0 {
		steps = append(steps, Step{
			Number:      len(steps) + 1,
			Action:      "group",
			Description: "Group by " + strings.Join(plan.GroupBy, ", "),
		})
	}
	if len(plan.Aggregations) > 0 {
		funcs := make([]string, 0, len(plan.Aggregations))
		for _, fn := range plan.Aggregations {
			funcs = append(funcs, fn)
		}
		steps = append(steps, Step{
			Number:      len(steps) + 1,
			Action:      "aggregate",
			Description: "Calculate " + strings.Join(funcs, ", "),
		})
	}
	if len(plan.Sorting) > 0 {
		cols := make([]string, 0, len(plan.Sorting))
		for _, s := range plan.Sorting {
			cols = append(cols, s.Column)
		}
		steps = append(steps, Step{
			Number:      len(steps) + 1,
			Action:      "sort",
			Description: "Sort by " + strings.Join(cols, ", "),
		})
	}
	if plan.Limit > 0 {
		steps = append(steps, Step{
			Number:      len(steps) + 1,
			Action:      "limit",
			Description: fmt.Sprintf("Limit to %d results", plan.Limit),
		})
	}
	return steps
}

func (p *Planner) estimate(plan *Plan) *SizeEstimate {
	reduction := 1.0
	for _, f := range plan.Filters {
		switch f.Operator {
		case ">", ">=":
			reduction *= p.cfg.GreaterSelectivity
		case "<", "<=":
			reduction *= p.cfg.LessSelectivity
		case "==":
			reduction *= p.cfg.EqualSelectivity
		}
	}
	return &SizeEstimate{
		Rows:       int(float64(p.analysis.RowCount) * reduction),
		Confidence: "medium",
	}
}

func explain(plan *Plan) string {
	var parts []string
	if len(plan.Filters) > 0 {
		descs := make([]string, 0, len(plan.Filters))
		for _, f := range plan.Filters {
			descs = append(descs, f.Description)
		}
		parts = append(parts, "Filter by: "+strings.Join(descs, ", "))
	}
	if len(plan.GroupBy) > 0 {
		parts = append(parts, "Group by: "+strings.Join(plan.GroupBy, ", "))
	}
	if len(plan.Aggregations) > 0 {
		descs := make([]string, 0, len(plan.Aggregations))
		for col, fn := range plan.Aggregations {
			descs = append(descs, fmt.Sprintf("%s(%s)", fn, col))
		}
		parts = append(parts, "Calculate: "+strings.Join(descs, ", "))
	}
	if len(plan.Sorting) > 0 {
		descs := make([]string, 0, len(plan.Sorting))
		for _, s := range plan.Sorting {
			dir := "descending"
			if s.Ascending {
				dir = "ascending"
			}
			descs = append(descs, fmt.Sprintf("%s (%s)", s.Column, dir))
		}
		parts = append(parts, "Sort by: "+strings.Join(descs, ", "))
	}
	if plan.Limit > 0 {
		parts = append(parts, fmt.Sprintf("Limit to %d results", plan.Limit))
	}
	if len(parts) == 0 {
		return "Show all data"
	}
	return strings.Join(parts, "; ")
}
