// Package sapmap maps SAP column codes to plain-language descriptions.
//
// The mappings are pure static data: the planner and executor use them to
// resolve user vocabulary to columns, and the schema-explanation path uses
// them to render human-readable summaries. No state, no I/O.
package sapmap

import (
	"fmt"
	"sort"
	"strings"
)

// schemas maps each supported SAP table type to its column descriptions.
var schemas = map[string]map[string]string{
	"BKPF": {
		"BUKRS":     "Company Code - 4-digit code representing legal entity or department",
		"BELNR":     "Document Number - Unique accounting document identifier",
		"GJAHR":     "Fiscal Year - Year of the accounting document",
		"BLART":     "Document Type - Type of accounting document (K1=Customer Invoice, S1=Vendor Invoice, etc.)",
		"BUDAT":     "Posting Date - Date when document was posted to the system",
		"WAERS":     "Currency - Document currency code (USD, EUR, etc.)",
		"BKTXT":     "Document Header Text - Description or reference text",
		"USNAM":     "User Name - User who posted the document",
		"TCODE":     "Transaction Code - SAP transaction used to create document",
		"CPUDT":     "CPU Date - System date when document was created",
		"CPUTM":     "CPU Time - System time when document was created",
		"XBLNR":     "Reference Document Number - External reference number",
		"AWKEY":     "Object Key - Internal system key for the document",
		"XREVERSED": "Reversed Document - Flag indicating if document was reversed",
	},
	"BSEG": {
		"BUKRS": "Company Code - 4-digit code representing legal entity",
		"BELNR": "Document Number - Unique accounting document identifier",
		"GJAHR": "Fiscal Year - Year of the accounting document",
		"BUZEI": "Line Item - Sequential number within the document",
		"KOART": "Account Type - Type of account (D=Customer, K=Vendor, S=G/L Account)",
		"KONTO": "Account Number - G/L account, customer, or vendor number",
		"SHKZG": "Debit/Credit Indicator - S=Debit, H=Credit",
		"DMBTR": "Amount in Local Currency - Transaction amount in company code currency",
		"WRBTR": "Amount in Document Currency - Transaction amount in document currency",
		"LIFNR": "Vendor Number - Vendor account number (if vendor transaction)",
		"KUNNR": "Customer Number - Customer account number (if customer transaction)",
		"KOSTL": "Cost Center - Cost center for cost allocation",
		"AUFNR": "Order Number - Internal order or project number",
		"PROJN": "Project Number - Project identifier",
		"PSPNR": "WBS Element - Work breakdown structure element",
		"SAKNR": "G/L Account Number - General ledger account",
		"ZUONR": "Assignment Number - Reference number for line item",
		"SGTXT": "Line Item Text - Description text for the line item",
		"VALUT": "Value Date - Date for interest calculation",
		"ZFBDT": "Baseline Date - Payment baseline date",
		"ZTERM": "Payment Terms - Payment terms code",
		"ZLSCH": "Payment Method - Payment method code",
		"ZLSPR": "Payment Block - Payment block indicator",
		"MWSKZ": "Tax Code - Tax code for the transaction",
		"MWSTS": "Tax Amount - Tax amount in local currency",
		"HWBAS": "Tax Base Amount - Base amount for tax calculation",
		"FWBAS": "Tax Base Amount in Document Currency - Tax base in document currency",
		"MENGE": "Quantity - Quantity for material transactions",
		"MEINS": "Unit of Measure - Unit of measure for quantity",
	},
	"LFA1": {
		"LIFNR": "Vendor Number - Unique vendor identifier",
		"NAME1": "Vendor Name - Primary name of the vendor",
		"NAME2": "Vendor Name 2 - Secondary name line",
		"ORT01": "City - City where vendor is located",
		"LAND1": "Country - Country code for vendor location",
		"SPERR": "Blocked - Blocking indicator for vendor",
		"LOEVM": "Deletion Flag - Flag indicating if vendor is marked for deletion",
		"STRAS": "Street Address - Street address of vendor",
		"PSTLZ": "Postal Code - Postal code for vendor address",
		"REGIO": "Region - State or region code",
		"TELF1": "Telephone - Primary telephone number",
		"TELFX": "Fax - Fax number",
		"XCPDK": "One-Time Account - Flag for one-time vendor",
		"SPERM": "Purchasing Block - Purchasing blocking indicator",
		"SPERZ": "Payment Block - Payment blocking indicator",
	},
	"KNA1": {
		"KUNNR": "Customer Number - Unique customer identifier",
		"NAME1": "Customer Name - Primary name of the customer",
		"NAME2": "Customer Name 2 - Secondary name line",
		"ORT01": "City - City where customer is located",
		"LAND1": "Country - Country code for customer location",
		"SPERR": "Blocked - Blocking indicator for customer",
		"LOEVM": "Deletion Flag - Flag indicating if customer is marked for deletion",
		"STRAS": "Street Address - Street address of customer",
		"PSTLZ": "Postal Code - Postal code for customer address",
		"REGIO": "Region - State or region code",
		"TELF1": "Telephone - Primary telephone number",
		"TELFX": "Fax - Fax number",
		"XCPDK": "One-Time Account - Flag for one-time customer",
		"SPERM": "Sales Block - Sales blocking indicator",
		"SPERZ": "Payment Block - Payment blocking indicator",
	},
	"SKAT": {
		"KTOPL": "Chart of Accounts - Chart of accounts identifier",
		"SAKNR": "G/L Account Number - General ledger account number",
		"TXT50": "Account Description - Description of the G/L account",
		"XLOEV": "Deletion Flag - Flag indicating if account is marked for deletion",
		"SPERR": "Blocked - Blocking indicator for account",
		"KTOKS": "Account Group - Account group classification",
		"XSPEA": "Special G/L Account - Flag for special G/L account",
	},
	"CSKS": {
		"KOKRS":      "Controlling Area - Controlling area identifier",
		"KOSTL":      "Cost Center - Cost center number",
		"DATBI":      "Valid To Date - Date until which cost center is valid",
		"KOSAR":      "Cost Center Category - Category of cost center",
		"VERAK":      "Person Responsible - Person responsible for cost center",
		"VERAK_USER": "Responsible User - SAP user responsible for cost center",
		"SPERR":      "Blocked - Blocking indicator for cost center",
		"ABTEI":      "Department - Department code",
	},
	"CSKA": {
		"KOKRS":      "Controlling Area - Controlling area identifier",
		"KOSAR":      "Cost Element Category - Cost element category",
		"DATBI":      "Valid To Date - Date until which category is valid",
		"VERAK":      "Person Responsible - Person responsible for category",
		"VERAK_USER": "Responsible User - SAP user responsible for category",
		"SPERR":      "Blocked - Blocking indicator for category",
	},
	"FAGLFLEXA": {
		"RBUKRS":  "Company Code - Company code for the balance",
		"RACCT":   "G/L Account - General ledger account number",
		"RYEAR":   "Fiscal Year - Fiscal year of the balance",
		"RTCUR":   "Currency - Currency of the balance",
		"RHCUR":   "Local Currency - Local currency of company code",
		"RUNIT":   "Unit - Unit of measure",
		"SEGMENT": "Segment - Segment for segment reporting",
	},
	"FAGLFLEXT": {
		"RBUKRS":  "Company Code - Company code for the transaction",
		"RACCT":   "G/L Account - General ledger account number",
		"RYEAR":   "Fiscal Year - Fiscal year of the transaction",
		"RTCUR":   "Currency - Currency of the transaction",
		"RHCUR":   "Local Currency - Local currency of company code",
		"RUNIT":   "Unit - Unit of measure",
		"SEGMENT": "Segment - Segment for segment reporting",
	},
}

// Schema returns the column-code → description mapping for a table type,
// or an empty map for unknown types.
func Schema(tableType string) map[string]string {
	return schemas[tableType]
}

// ColumnDescription returns the description for a column within a table
// type, or "" when unknown. The code is matched case-insensitively.
func ColumnDescription(tableType, code string) string {
	return schemas[tableType][strings.ToUpper(code)]
}

// Columns returns the known column codes for a table type, sorted for
// deterministic iteration.
func Columns(tableType string) []string {
	schema := schemas[tableType]
	cols := make([]string, 0, len(schema))
	for code := range schema {
		cols = append(cols, code)
	}
	sort.Strings(cols)
	return cols
}

// Summary renders a human-readable description of an uploaded file's
// columns, one line per column, for narrative output and insight prompts.
func Summary(tableType string, columns []string) string {
	schema := schemas[tableType]
	if len(schema) == 0 {
		return fmt.Sprintf("Unknown report type: %s", tableType)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "The uploaded file contains %d columns from a %s table.\n", len(columns), tableType)
	b.WriteString("Columns:")
	for _, col := range columns {
		desc := schema[strings.ToUpper(col)]
		if desc == "" {
			desc = fmt.Sprintf("Unknown column: %s", col)
		}
		fmt.Fprintf(&b, "\n    %s: %s", col, desc)
	}
	return b.String()
}

// CommonColumns maps each column code to the table types that carry it,
// across the given types.
func CommonColumns(tableTypes []string) map[string][]string {
	common := make(map[string][]string)
	for _, tt := range tableTypes {
		for code := range schemas[tt] {
			common[code] = append(common[code], tt)
		}
	}
	return common
}

// relationships lists columns commonly queried together.
var relationships = map[string]map[string][]string{
	"BKPF": {
		"BELNR": {"BUKRS", "GJAHR", "BLART", "BUDAT", "WAERS"},
		"BUKRS": {"BELNR", "GJAHR", "BLART", "BUDAT"},
		"GJAHR": {"BELNR", "BUKRS", "BLART", "BUDAT"},
		"BLART": {"BELNR", "BUKRS", "GJAHR", "BUDAT"},
	},
	"BSEG": {
		"BELNR": {"BUKRS", "GJAHR", "BUZEI", "KOART", "KONTO"},
		"KONTO": {"KOART", "SHKZG", "DMBTR", "WRBTR"},
		"LIFNR": {"KOART", "KONTO", "DMBTR", "WRBTR"},
		"KUNNR": {"KOART", "KONTO", "DMBTR", "WRBTR"},
	},
}

// RelatedColumns suggests columns commonly queried together with code.
func RelatedColumns(tableType, code string) []string {
	return relationships[tableType][strings.ToUpper(code)]
}

// categories groups columns by business purpose for schema narratives.
var categories = map[string]map[string][]string{
	"BKPF": {
		"Document Identification": {"BUKRS", "BELNR", "GJAHR"},
		"Document Details":        {"BLART", "BUDAT", "WAERS", "BKTXT"},
		"System Information":      {"USNAM", "TCODE", "CPUDT", "CPUTM"},
		"References":              {"XBLNR", "AWKEY"},
	},
	"BSEG": {
		"Document Identification": {"BUKRS", "BELNR", "GJAHR", "BUZEI"},
		"Account Information":     {"KOART", "KONTO", "SAKNR"},
		"Amounts":                 {"SHKZG", "DMBTR", "WRBTR"},
		"Business Partners":       {"LIFNR", "KUNNR"},
		"Cost Objects":            {"KOSTL", "AUFNR", "PROJN", "PSPNR"},
		"Payment Information":     {"VALUT", "ZFBDT", "ZTERM", "ZLSCH"},
	},
}

// Categories returns columns grouped by purpose for a table type.
func Categories(tableType string) map[string][]string {
	return categories[tableType]
}

// importantColumns lists the columns a file must carry for its mapping
// to be considered complete.
var importantColumns = map[string][]string{
	"BKPF": {"BUKRS", "BELNR", "GJAHR", "BLART", "BUDAT"},
	"BSEG": {"BUKRS", "BELNR", "GJAHR", "BUZEI", "KOART", "KONTO"},
}

// Completeness describes how well a file's columns cover a table type's
// known schema.
type Completeness struct {
	Valid            bool
	Message          string
	Coverage         float64
	MissingImportant []string
	Covered          []string
	Extra            []string
}

// ValidateCompleteness checks a file's columns against a table type's known
// schema: valid when coverage is at least 50% and no important column is
// missing.
func ValidateCompleteness(tableType string, columns []string) Completeness {
	schema := schemas[tableType]
	if len(schema) == 0 {
		return Completeness{
			Valid:   false,
			Message: fmt.Sprintf("Unknown report type: %s", tableType),
		}
	}

	actual := make(map[string]bool, len(columns))
	for _, col := range columns {
		actual[strings.ToUpper(col)] = true
	}

	var covered, extra []string
	for code := range actual {
		if _, known := schema[code]; known {
			covered = append(covered, code)
		} else {
			extra = append(extra, code)
		}
	}
	sort.Strings(covered)
	sort.Strings(extra)

	coverage := float64(len(covered)) / float64(len(schema))

	var missing []string
	for _, code := range importantColumns[tableType] {
		if !actual[code] {
			missing = append(missing, code)
		}
	}

	return Completeness{
		Valid:            coverage >= 0.5 && len(missing) == 0,
		Message:          fmt.Sprintf("Schema coverage: %.1f%%", coverage*100),
		Coverage:         coverage,
		MissingImportant: missing,
		Covered:          covered,
		Extra:            extra,
	}
}
