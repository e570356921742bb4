package executor

import (
	"fmt"
	"strings"
	"time"

	"github.com/finsight/finsight/internal/analyzer"
	"github.com/finsight/finsight/internal/planner"
	"github.com/finsight/finsight/internal/report"
	"github.com/finsight/finsight/internal/sapmap"
	"github.com/finsight/finsight/internal/table"
)

func (e *Executor) executeSchemaExplanation(plan *planner.Plan, start time.Time) Result {
	analysis := plan.Schema
	if analysis == nil {
		analysis = e.analysis
	}

	// The analysis carries identification and summary from upload time;
	// recompute only for analyses built without them.
	ident := analysis.Identification
	if ident == nil {
		id := report.Identify(e.data.Columns)
		ident = &id
	}
	summary := analysis.Summary
	if summary == "" {
		summary = sapmap.Summary(analysis.TableType, e.data.Columns)
	}
	explanation := e.schemaExplanation(analysis, *ident, summary)
	nl := e.schemaResponse(plan.Question, analysis, summary)

	return Result{
		Status:            "success",
		Data:              [][]any{{explanation, nl}},
		Columns:           []string{"explanation", "nl_response"},
		RowCount:          1,
		ExecutionTime:     e.now().Sub(start).Seconds(),
		QueryType:         "explain_schema",
		Insights:          []string{nl},
		SchemaExplanation: explanation,
		NLResponse:        nl,
	}
}

func (e *Executor) schemaExplanation(analysis *analyzer.Analysis, ident report.Identification, summary string) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("# %s Table", analysis.TableType))
	parts = append(parts, fmt.Sprintf("**Records:** %d | **Columns:** %d", analysis.RowCount, analysis.ColumnCount))
	if ident.TableType != report.TypeUnknown && ident.TableType != report.TypeError {
		parts = append(parts, fmt.Sprintf("**Confidence:** %.1f%%", ident.Confidence*100))
	}
	if summary != "" {
		parts = append(parts, "**Description:** "+summary)
	}

	if len(analysis.Columns) > 0 {
		parts = append(parts, "\n## Key Columns")
		parts = append(parts, "| Column | Type | Purpose |")
		parts = append(parts, "|--------|------|---------|")
		for i, col := range analysis.Columns {
			if i >= 10 {
				break
			}
			category := titleCase(string(col.Category))
			purpose := category + " data"
			if col.SemanticTag != "" {
				purpose = titleCase(strings.ReplaceAll(col.SemanticTag, "_", " "))
			}
			parts = append(parts, fmt.Sprintf("| %s | %s | %s |", col.Name, category, purpose))
		}
	}

	parts = append(parts, "\n## Data Insights")
	numeric := len(analysis.ColumnsByCategory(analyzer.CategoryNumeric))
	dates := len(analysis.ColumnsByCategory(analyzer.CategoryDate))
	categorical := len(analysis.ColumnsByCategory(analyzer.CategoryCategorical))
	parts = append(parts, fmt.Sprintf("- **Numeric columns:** %d (for calculations)", numeric))
	parts = append(parts, fmt.Sprintf("- **Date columns:** %d (for time analysis)", dates))
	parts = append(parts, fmt.Sprintf("- **Categorical columns:** %d (for grouping)", categorical))

	parts = append(parts, "\n## Business Context")
	switch analysis.TableType {
	case "BSEG":
		parts = append(parts, "- **Purpose:** Accounting line items")
		parts = append(parts, "- **Use:** Financial analysis, transaction tracking")
		parts = append(parts, "- **Key queries:** Show by vendor, analyze payments, find overdue")
	case "BKPF":
		parts = append(parts, "- **Purpose:** Accounting document headers")
		parts = append(parts, "- **Use:** Document analysis, approval workflows")
		parts = append(parts, "- **Key queries:** Show by type, analyze posting patterns")
	default:
		parts = append(parts, "- **Purpose:** General SAP data")
		parts = append(parts, "- **Use:** Data analysis, reporting")
		parts = append(parts, "- **Key queries:** Explore patterns, generate reports")
	}

	parts = append(parts, "\n## Try asking:")
	parts = append(parts, "- \"Show me all records\"")
	parts = append(parts, "- \"Count total transactions\"")
	parts = append(parts, "- \"Find overdue invoices\"")
	parts = append(parts, "- \"Show vendor payments\"")

	return strings.Join(parts, "\n")
}

// orgContext reports whether the question is asked in a Navy/DoD setting,
// which selects the defense-oriented response templates.
func orgContext(q string) bool {
	return strings.Contains(q, "navy") || strings.Contains(q, "military") || strings.Contains(q, "dod")
}

func (e *Executor) schemaResponse(question string, analysis *analyzer.Analysis, summary string) string {
	q := strings.ToLower(question)
	tableType := analysis.TableType
	rows := analysis.RowCount
	cols := analysis.ColumnCount

	switch {
	case strings.Contains(q, "what does") || strings.Contains(q, "what is"):
		if orgContext(q) {
			switch tableType {
			case "BSEG":
				return fmt.Sprintf("This is a **BSEG (Accounting Document Segment)** table containing %d individual financial transaction line items. As a Navy professional, you can use this data for:\n- Tracking Navy procurement and vendor payments\n- Monitoring budget execution across commands\n- Auditing financial transactions for DoD compliance\n- Supporting Navy financial reporting requirements\n\n%s", rows, summary)
			case "BKPF":
				return fmt.Sprintf("This is a **BKPF (Accounting Document Header)** table containing %d complete accounting documents. For Navy operations, this supports:\n- Document-level audit trails for DoD compliance\n- Approval workflow tracking for Navy acquisitions\n- Financial reporting for Navy commands and programs\n- Budget execution monitoring and analysis\n\n%s", rows, summary)
			default:
				return fmt.Sprintf("This is a **%s** table with %d records and %d columns. For Navy and DoD operations, this data supports:\n- Financial analysis and reporting requirements\n- Compliance monitoring and audit preparation\n- Budget execution and appropriation tracking\n\n%s", tableType, rows, cols, summary)
			}
		}
		switch tableType {
		case "BSEG":
			return fmt.Sprintf("This is a **BSEG (Accounting Document Segment)** table that contains %d individual line items from accounting documents. Each row represents a single financial transaction entry with %d different data fields. This table is used for detailed financial analysis, transaction tracking, and audit purposes. %s", rows, cols, summary)
		case "BKPF":
			return fmt.Sprintf("This is a **BKPF (Accounting Document Header)** table that contains %d complete accounting documents. Each row represents a full financial document with %d different data fields. This table is used for document-level analysis, approval workflows, and compliance reporting. %s", rows, cols, summary)
		default:
			return fmt.Sprintf("This is a **%s** table containing %d records with %d columns of data. %s", tableType, rows, cols, summary)
		}

	case strings.Contains(q, "explain") || strings.Contains(q, "describe"):
		if orgContext(q) {
			return fmt.Sprintf("Let me explain this %s table for Navy operations: It contains %d records with %d columns. %s You can use this data for Navy financial analysis, DoD compliance reporting, budget execution monitoring, and supporting Navy acquisition processes.", tableType, rows, cols, summary)
		}
		return fmt.Sprintf("Let me explain this %s table: It contains %d records with %d columns. %s You can use this data for financial analysis, reporting, and business intelligence purposes.", tableType, rows, cols, summary)

	default:
		return fmt.Sprintf("This %s table has %d records and %d columns. %s", tableType, rows, cols, summary)
	}
}

func (e *Executor) executeBusinessAnalysis(plan *planner.Plan, start time.Time) Result {
	q := strings.ToLower(plan.Question)
	insights := e.businessInsights(q)
	nl := businessResponse(q, insights)

	return Result{
		Status:           "success",
		Data:             [][]any{{insights, nl}},
		Columns:          []string{"analysis", "nl_response"},
		RowCount:         1,
		ExecutionTime:    e.now().Sub(start).Seconds(),
		QueryType:        "business_analysis",
		Insights:         []string{nl},
		BusinessAnalysis: insights,
		NLResponse:       nl,
	}
}

func (e *Executor) businessInsights(q string) string {
	var findings []string

	if strings.Contains(q, "overdue") {
		findings = append(findings, e.analyzeOverdue())
	}
	if strings.Contains(q, "vendor") {
		findings = append(findings, e.analyzeUnique("vendor_number", "Vendor Analysis", "unique vendors found", "No vendor data found"))
	}
	if strings.Contains(q, "customer") {
		findings = append(findings, e.analyzeUnique("customer_number", "Customer Analysis", "unique customers found", "No customer data found"))
	}
	if strings.Contains(q, "invoice") || strings.Contains(q, "payment") {
		findings = append(findings, e.analyzeFinancial())
	}
	if len(findings) == 0 {
		findings = append(findings, e.generalInsights())
	}
	return strings.Join(findings, "\n\n")
}

func (e *Executor) analyzeOverdue() string {
	dateCol, ok := e.findDateColumn()
	if !ok {
		return "**Overdue Analysis:** No date column found"
	}
	idx, ok := e.data.ColumnIndex(dateCol)
	if !ok {
		return "**Overdue Analysis:** No date column found"
	}
	now := e.now()
	overdue := 0
	for _, row := range e.data.Rows {
		if idx < len(row) {
			if d, ok := table.ParseDate(row[idx]); ok && d.Before(now) {
				overdue++
			}
		}
	}
	total := e.data.NumRows()
	pct := 0.0
	if total > 0 {
		pct = float64(overdue) / float64(total) * 100
	}
	return fmt.Sprintf("**Overdue Analysis:** %d/%d items overdue (%.1f%%)", overdue, total, pct)
}

func (e *Executor) analyzeUnique(tag, title, foundSuffix, missing string) string {
	col, ok := e.analysis.ColumnBySemanticTag(tag)
	if !ok {
		return fmt.Sprintf("**%s:** %s", title, missing)
	}
	idx, ok := e.data.ColumnIndex(col)
	if !ok {
		return fmt.Sprintf("**%s:** %s", title, missing)
	}
	unique := make(map[string]struct{})
	for _, row := range e.data.Rows {
		if idx < len(row) && !table.IsNull(row[idx]) {
			unique[table.AsString(row[idx])] = struct{}{}
		}
	}
	return fmt.Sprintf("**%s:** %d %s", title, len(unique), foundSuffix)
}

func (e *Executor) analyzeFinancial() string {
	col, ok := e.analysis.ColumnBySemanticTag("local_amount")
	if !ok {
		col, ok = e.analysis.ColumnBySemanticTag("document_amount")
	}
	if !ok {
		return "**Financial Analysis:** No amount data found"
	}
	idx, ok := e.data.ColumnIndex(col)
	if !ok {
		return "**Financial Analysis:** No amount data found"
	}
	var sum float64
	n := 0
	for _, row := range e.data.Rows {
		if idx < len(row) {
			if f, ok := table.ParseNumber(row[idx]); ok {
				sum += f
				n++
			}
		}
	}
	if n == 0 {
		return "**Financial Analysis:** No amount data found"
	}
	return fmt.Sprintf("**Financial Analysis:** Total: $%s, Average: $%s",
		commaFormat(sum), commaFormat(sum/float64(n)))
}

func (e *Executor) generalInsights() string {
	var b strings.Builder
	fmt.Fprintf(&b, "**General Insights:**\n")
	fmt.Fprintf(&b, "- %d records in %s table\n", e.data.NumRows(), e.analysis.TableType)
	switch e.analysis.TableType {
	case "BSEG":
		b.WriteString("- Use for financial transaction analysis\n")
		b.WriteString("- Try: 'Show vendor payments' or 'Find overdue invoices'")
	case "BKPF":
		b.WriteString("- Use for document-level analysis\n")
		b.WriteString("- Try: 'Show documents by type' or 'Analyze posting patterns'")
	default:
		b.WriteString("- Use for general data exploration\n")
		b.WriteString("- Try: 'Show all records' or 'Count transactions'")
	}
	return b.String()
}

func businessResponse(q, insights string) string {
	if orgContext(q) {
		switch {
		case strings.Contains(q, "overdue"):
			return fmt.Sprintf("Based on your Navy-related question about overdue items: %s This analysis helps identify items that need attention for Navy payment processing, vendor management, and cash flow management across Navy commands.", insights)
		case strings.Contains(q, "vendor"):
			return fmt.Sprintf("Regarding your Navy vendor-related question: %s This information helps you understand Navy vendor relationships, procurement patterns, and supports Navy acquisition compliance.", insights)
		case strings.Contains(q, "customer"):
			return fmt.Sprintf("About your Navy customer inquiry: %s This data provides insights into Navy customer relationships, inter-command transactions, and Navy financial patterns.", insights)
		case strings.Contains(q, "invoice"), strings.Contains(q, "payment"):
			return fmt.Sprintf("For your Navy financial question: %s This analysis helps understand Navy payment patterns, budget execution, and financial performance across Navy programs.", insights)
		default:
			return fmt.Sprintf("Here's what I found based on your Navy-related question: %s This information provides valuable insights for Navy decision-making, budget management, and DoD compliance.", insights)
		}
	}
	switch {
	case strings.Contains(q, "overdue"):
		return fmt.Sprintf("Based on your question about overdue items, here's what I found: %s This analysis helps identify items that need attention for payment processing and cash flow management.", insights)
	case strings.Contains(q, "vendor"):
		return fmt.Sprintf("Regarding your vendor-related question: %s This information can help you understand vendor relationships and payment patterns.", insights)
	case strings.Contains(q, "customer"):
		return fmt.Sprintf("About your customer inquiry: %s This data provides insights into customer relationships and transaction patterns.", insights)
	case strings.Contains(q, "invoice"), strings.Contains(q, "payment"):
		return fmt.Sprintf("For your financial question: %s This analysis helps understand payment patterns and financial performance.", insights)
	default:
		return fmt.Sprintf("Here's what I found based on your question: %s This information provides valuable business insights for decision-making.", insights)
	}
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
