package planner

import (
	"strings"

	"github.com/finsight/finsight/internal/analyzer"
)

// synonyms maps normalized business terms to canonical SAP column codes.
// Keys are lowercase with spaces and underscores stripped, matching the
// normalization applied to search terms.
var synonyms = map[string]string{
	"transactioncode":  "TCODE",
	"transactioncodes": "TCODE",
	"doctype":          "BLART",
	"doctypes":         "BLART",
	"documenttype":     "BLART",
	"documenttypes":    "BLART",
	"user":             "USNAM",
	"users":            "USNAM",
	"companycode":      "BUKRS",
	"companycodes":     "BUKRS",
	"postingdate":      "BUDAT",
	"amount":           "DMBTR",
	"vendor":           "LIFNR",
	"vendors":          "LIFNR",
	"customer":         "KUNNR",
	"customers":        "KUNNR",
	"costcenter":       "KOSTL",
	"costcenters":      "KOSTL",
}

func normalizeTerm(term string) string {
	term = strings.ToLower(strings.TrimSpace(term))
	term = strings.ReplaceAll(term, "_", "")
	return strings.ReplaceAll(term, " ", "")
}

// findMatchingColumn resolves a free-text term to a column name.
// Resolution order: synonym table, normalized substring match against the
// known columns, semantic tag match, then plain substring containment.
func (p *Planner) findMatchingColumn(term string) (string, bool) {
	norm := normalizeTerm(term)
	if norm == "" {
		return "", false
	}

	if code, ok := synonyms[norm]; ok {
		if col, ok := p.columnNamed(code); ok {
			return col, true
		}
	}

	for _, c := range p.analysis.Columns {
		cn := normalizeTerm(c.Name)
		if cn == "" {
			continue
		}
		if norm == cn || strings.Contains(cn, norm) || strings.Contains(norm, cn) {
			return c.Name, true
		}
	}

	for _, c := range p.analysis.Columns {
		if c.SemanticTag != "" && normalizeTerm(c.SemanticTag) == norm {
			return c.Name, true
		}
	}

	for _, c := range p.analysis.Columns {
		if strings.Contains(strings.ToLower(c.Name), norm) {
			return c.Name, true
		}
	}

	return "", false
}

func (p *Planner) columnNamed(code string) (string, bool) {
	for _, c := range p.analysis.Columns {
		if strings.EqualFold(c.Name, code) {
			return c.Name, true
		}
	}
	return "", false
}

func (p *Planner) findColumnByTag(tags ...string) (string, bool) {
	for _, tag := range tags {
		if col, ok := p.analysis.ColumnBySemanticTag(tag); ok {
			return col, true
		}
	}
	return "", false
}

func (p *Planner) findAmountColumn() (string, bool) {
	return p.findColumnByTag("local_amount", "document_amount")
}

// findDateColumn prefers the posting-date column, falling back to the
// first date-classified column.
func (p *Planner) findDateColumn() (string, bool) {
	if col, ok := p.findColumnByTag("posting_date"); ok {
		return col, true
	}
	if cols := p.analysis.ColumnsByCategory(analyzer.CategoryDate); len(cols) > 0 {
		return cols[0], true
	}
	return "", false
}

func (p *Planner) findDocumentTypeColumn() (string, bool) {
	return p.findColumnByTag("document_type")
}
