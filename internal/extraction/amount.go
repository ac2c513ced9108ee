package extraction

import (
	"regexp"
	"strconv"
	"strings"
)

// parseAmount parses a statement amount cell: strip spaces/commas, treat a
// parenthesised "(x)" as "-x"; empty or "-" parses to nil. Returns a
// nullable float rather than an (amount, isDebit) pair since the canonical
// txn carries direction in its Type field instead.
func parseAmount(raw string) *float64 {
	s := strings.TrimSpace(raw)
	if s == "" || s == "-" {
		return nil
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return nil
	}
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	if negative {
		v = -v
	}
	return &v
}

// amountTokenPattern extracts the first "d+(,ddd)*\.dd" style numeric token
// from a concatenated column string.
var amountTokenPattern = regexp.MustCompile(`\d[\d,]*\.\d{2}`)

// parseColumnAmount extracts the first amount-shaped token from free text
// (a Tier B column's concatenated words) and parses it. A trailing "DR" on
// the text negates the result — the HSBC debit-balance convention.
func parseColumnAmount(raw string) *float64 {
	s := strings.TrimSpace(raw)
	if s == "" || s == "-" {
		return nil
	}
	negative := false
	upper := strings.ToUpper(s)
	if strings.HasSuffix(upper, "DR") {
		negative = true
		s = strings.TrimSpace(s[:len(s)-2])
	}
	m := amountTokenPattern.FindString(s)
	if m == "" {
		return nil
	}
	v := parseAmount(m)
	if v == nil {
		return nil
	}
	if negative {
		*v = -*v
	}
	return v
}

// formatAmount is parseAmount's round-trip inverse
// (parseAmount(formatAmount(x))==x for any finite x): plain fixed-point,
// no thousands separators, matching what parseAmount strips.
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
