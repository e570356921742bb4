// Package report identifies SAP report types from column name patterns.
//
// Identification is a pure function over a fixed signature table: each
// signature lists required and optional columns plus its own confidence
// threshold. Confidence weights required columns at 70% and optional at 30%;
// a complete required set always clears its signature's threshold.
package report

import (
	"strings"
)

// Signature describes the column pattern of one SAP table type.
type Signature struct {
	TableType string
	Required  []string
	Optional  []string
	// Threshold is the minimum confidence this signature demands before
	// it can be selected.
	Threshold   float64
	Description string
}

// signatures is the fixed identification table. Order matters: when two
// signatures score equally the earlier one wins, and the fast
// required-subset detection returns the first full match.
var signatures = []Signature{
	{
		TableType:   "BKPF",
		Required:    []string{"BUKRS", "BELNR", "GJAHR", "BLART", "BUDAT"},
		Optional:    []string{"WAERS", "BKTXT", "USNAM", "TCODE", "CPUDT"},
		Threshold:   0.8,
		Description: "Accounting Document Header",
	},
	{
		TableType:   "BSEG",
		Required:    []string{"BUKRS", "BELNR", "GJAHR", "BUZEI", "KOART", "KONTO"},
		Optional:    []string{"SHKZG", "DMBTR", "WRBTR", "LIFNR", "KUNNR", "KOSTL"},
		Threshold:   0.8,
		Description: "Accounting Document Segment",
	},
	{
		TableType:   "LFA1",
		Required:    []string{"LIFNR", "NAME1"},
		Optional:    []string{"ORT01", "LAND1", "SPERR", "LOEVM", "STRAS", "PSTLZ"},
		Threshold:   0.7,
		Description: "Vendor Master Data",
	},
	{
		TableType:   "KNA1",
		Required:    []string{"KUNNR", "NAME1"},
		Optional:    []string{"ORT01", "LAND1", "SPERR", "LOEVM", "STRAS", "PSTLZ"},
		Threshold:   0.7,
		Description: "Customer Master Data",
	},
	{
		TableType:   "SKAT",
		Required:    []string{"KTOPL", "SAKNR", "TXT50"},
		Optional:    []string{"XLOEV", "SPERR", "KTOKS", "XSPEA"},
		Threshold:   0.7,
		Description: "G/L Account Master Data",
	},
	{
		TableType:   "CSKS",
		Required:    []string{"KOKRS", "KOSTL", "DATBI"},
		Optional:    []string{"KOSAR", "VERAK", "VERAK_USER", "SPERR"},
		Threshold:   0.7,
		Description: "Cost Center Master Data",
	},
	{
		TableType:   "CSKA",
		Required:    []string{"KOKRS", "KOSAR", "DATBI"},
		Optional:    []string{"VERAK", "VERAK_USER", "SPERR"},
		Threshold:   0.7,
		Description: "Cost Element Master Data",
	},
	{
		TableType:   "FAGLFLEXA",
		Required:    []string{"RBUKRS", "RACCT", "RYEAR"},
		Optional:    []string{"RTCUR", "RHCUR", "RUNIT", "SEGMENT"},
		Threshold:   0.8,
		Description: "New G/L Account Balances",
	},
	{
		TableType:   "FAGLFLEXT",
		Required:    []string{"RBUKRS", "RACCT", "RYEAR", "RTCUR"},
		Optional:    []string{"RHCUR", "RUNIT", "SEGMENT"},
		Threshold:   0.8,
		Description: "New G/L Account Line Items",
	},
}

// Sentinel table types returned when no signature matches or when
// identification itself fails.
const (
	TypeUnknown = "UNKNOWN"
	TypeError   = "ERROR"
)

// Identification is the result of matching a column set against the
// signature table.
type Identification struct {
	TableType   string   `json:"table_type"`
	Confidence  float64  `json:"confidence"`
	Description string   `json:"description"`
	Matched     []string `json:"matched_columns"`
	Missing     []string `json:"missing_columns"`
	Extra       []string `json:"extra_columns"`
}

// Identify scores the given column names against every known signature and
// returns the best match that clears its own threshold. When nothing
// matches it returns the UNKNOWN sentinel with all columns marked extra.
// Identify never panics; an internal failure yields the ERROR sentinel.
func Identify(columns []string) (ident Identification) {
	defer func() {
		if r := recover(); r != nil {
			ident = Identification{
				TableType:   TypeError,
				Description: "Error during identification",
				Matched:     []string{},
				Missing:     []string{},
				Extra:       []string{},
			}
		}
	}()

	normalized := normalize(columns)

	var best *Identification
	highest := 0.0

	for _, sig := range signatures {
		confidence := sig.confidence(normalized)
		if confidence > highest && confidence >= sig.Threshold-confidenceEpsilon {
			highest = confidence
			best = &Identification{
				TableType:   sig.TableType,
				Confidence:  confidence,
				Description: sig.Description,
				Matched:     sig.matched(normalized),
				Missing:     sig.missing(normalized),
				Extra:       sig.extra(normalized),
			}
		}
	}

	if best != nil {
		return *best
	}
	return Identification{
		TableType:   TypeUnknown,
		Description: "Unknown SAP Table",
		Matched:     []string{},
		Missing:     []string{},
		Extra:       normalized,
	}
}

// DetectByRequired is the fast inline variant used during schema analysis:
// the first signature whose full required column set is present wins, in
// declaration order. Returns UNKNOWN when none matches.
func DetectByRequired(columns []string) string {
	present := make(map[string]bool, len(columns))
	for _, col := range normalize(columns) {
		present[col] = true
	}
	for _, sig := range signatures {
		all := true
		for _, req := range sig.Required {
			if !present[req] {
				all = false
				break
			}
		}
		if all {
			return sig.TableType
		}
	}
	return TypeUnknown
}

// Description returns the human description for a table type, or a generic
// string for unknown types.
func Description(tableType string) string {
	for _, sig := range signatures {
		if sig.TableType == tableType {
			return sig.Description
		}
	}
	return "Unknown table type"
}

// confidenceEpsilon absorbs float64 rounding when a weighted score lands
// exactly on a threshold.
const confidenceEpsilon = 1e-9

// confidence computes the weighted match score of a signature against a
// normalized column set: 70% required, 30% optional, degrading to
// required-only scoring or half-weight optional-only scoring when one
// list is empty. A full required set floors the score at the signature's
// threshold; optional columns only ever raise it from there.
func (s Signature) confidence(columns []string) float64 {
	present := make(map[string]bool, len(columns))
	for _, col := range columns {
		present[col] = true
	}

	requiredScore := ratioPresent(s.Required, present)
	optionalScore := ratioPresent(s.Optional, present)

	switch {
	case len(s.Required) > 0 && len(s.Optional) > 0:
		score := requiredScore*0.7 + optionalScore*0.3
		if requiredScore == 1 && score < s.Threshold {
			score = s.Threshold
		}
		return score
	case len(s.Required) > 0:
		return requiredScore
	case len(s.Optional) > 0:
		return optionalScore * 0.5
	default:
		return 0
	}
}

func (s Signature) matched(columns []string) []string {
	known := make(map[string]bool, len(s.Required)+len(s.Optional))
	for _, col := range s.Required {
		known[col] = true
	}
	for _, col := range s.Optional {
		known[col] = true
	}
	var matched []string
	for _, col := range columns {
		if known[col] {
			matched = append(matched, col)
		}
	}
	return matched
}

func (s Signature) missing(columns []string) []string {
	present := make(map[string]bool, len(columns))
	for _, col := range columns {
		present[col] = true
	}
	var missing []string
	for _, req := range s.Required {
		if !present[req] {
			missing = append(missing, req)
		}
	}
	return missing
}

func (s Signature) extra(columns []string) []string {
	known := make(map[string]bool, len(s.Required)+len(s.Optional))
	for _, col := range s.Required {
		known[col] = true
	}
	for _, col := range s.Optional {
		known[col] = true
	}
	var extra []string
	for _, col := range columns {
		if !known[col] {
			extra = append(extra, col)
		}
	}
	return extra
}

func ratioPresent(want []string, present map[string]bool) float64 {
	if len(want) == 0 {
		return 0
	}
	matches := 0
	for _, col := range want {
		if present[col] {
			matches++
		}
	}
	return float64(matches) / float64(len(want))
}

func normalize(columns []string) []string {
	out := make([]string, len(columns))
	for i, col := range columns {
		out[i] = strings.ToUpper(strings.TrimSpace(col))
	}
	return out
}

// StructureValidation reports how a column set measures up against a
// specific table type's signature.
type StructureValidation struct {
	Valid           bool
	Message         string
	Issues          []string
	MissingRequired []string
	Extra           []string
}

// ValidateStructure checks whether columns satisfy the signature of the
// given table type. Valid means every required column is present.
func ValidateStructure(tableType string, columns []string) StructureValidation {
	var sig *Signature
	for i := range signatures {
		if signatures[i].TableType == tableType {
			sig = &signatures[i]
			break
		}
	}
	if sig == nil {
		return StructureValidation{
			Valid:   false,
			Message: "Unknown table type: " + tableType,
		}
	}

	normalized := normalize(columns)
	missing := sig.missing(normalized)
	extra := sig.extra(normalized)

	var issues []string
	if len(missing) > 0 {
		issues = append(issues, "Missing required columns: "+strings.Join(missing, ", "))
	}
	if len(extra) > 0 {
		issues = append(issues, "Unexpected columns: "+strings.Join(extra, ", "))
	}

	msg := "Valid table structure"
	if len(missing) > 0 {
		msg = "Table structure issues found"
	}
	return StructureValidation{
		Valid:           len(missing) == 0,
		Message:         msg,
		Issues:          issues,
		MissingRequired: missing,
		Extra:           extra,
	}
}

// suggestedQueries lists canned starter questions per table type.
var suggestedQueries = map[string][]string{
	"BKPF": {
		"Show documents posted in the last 30 days",
		"Which document types have the highest volume?",
		"Find documents with specific posting dates",
		"Show documents by company code",
	},
	"BSEG": {
		"Show line items with amounts over $10,000",
		"Which accounts have the most transactions?",
		"Find debit vs credit entries",
		"Show transactions by vendor or customer",
	},
	"LFA1": {
		"Show vendors by location",
		"Find vendors with specific names",
		"Show vendor distribution by country",
		"Identify blocked vendors",
	},
	"KNA1": {
		"Show customers by location",
		"Find customers with specific names",
		"Show customer distribution by country",
		"Identify blocked customers",
	},
	"SKAT": {
		"Show account descriptions",
		"Find accounts by account type",
		"Show blocked accounts",
	},
}

// SuggestedQueries returns starter questions for a table type, with a
// generic fallback for unknown types.
func SuggestedQueries(tableType string) []string {
	if qs, ok := suggestedQueries[tableType]; ok {
		out := make([]string, len(qs))
		copy(out, qs)
		return out
	}
	return []string{
		"Show all records",
		"Find records with specific criteria",
		"Analyze data patterns",
		"Generate summary statistics",
	}
}

// TableTypes returns all known table types in declaration order.
func TableTypes() []string {
	types := make([]string, len(signatures))
	for i, sig := range signatures {
		types[i] = sig.TableType
	}
	return types
}
