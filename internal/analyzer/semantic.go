package analyzer

import "strings"

// semanticTags maps SAP column codes to stable business meanings the
// planner keys on. Matching is by exact name after normalization.
var semanticTags = map[string]string{
	"BUKRS": "company_code",
	"BELNR": "document_number",
	"GJAHR": "fiscal_year",
	"BLART": "document_type",
	"BUDAT": "posting_date",
	"WAERS": "currency",
	"LIFNR": "vendor_number",
	"KUNNR": "customer_number",
	"KONTO": "gl_account",
	"SHKZG": "debit_credit_indicator",
	"DMBTR": "local_amount",
	"WRBTR": "document_amount",
}

func normalizeName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
