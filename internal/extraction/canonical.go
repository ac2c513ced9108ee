package extraction

import (
	"regexp"
	"strconv"
	"strings"
)

var monthNames = map[string]string{
	"01": "JAN", "02": "FEB", "03": "MAR", "04": "APR", "05": "MAY", "06": "JUN",
	"07": "JUL", "08": "AUG", "09": "SEP", "10": "OCT", "11": "NOV", "12": "DEC",
}

var monthAbbrev = map[string]bool{
	"JAN": true, "FEB": true, "MAR": true, "APR": true, "MAY": true, "JUN": true,
	"JUL": true, "AUG": true, "SEP": true, "OCT": true, "NOV": true, "DEC": true,
}

var (
	dateDDMMMYYYYDash = regexp.MustCompile(`^(\d{1,2})-([A-Za-z]{3})-(\d{4})$`)
	dateDDMMMYYYYSp   = regexp.MustCompile(`^(\d{1,2})\s+([A-Za-z]{3})[a-z]*\.?\s+(\d{4})$`)
	dateDDMMM         = regexp.MustCompile(`^(\d{1,2})\s+([A-Za-z]{3})[a-z]*\.?$`)
	dateDDMMYYYY      = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?$`)
	dateDDMMMYYYYRun  = regexp.MustCompile(`^(\d{1,2})([A-Za-z]{3})(\d{4})$`)
)

// normaliseDate canonicalises bank-native date strings: accepts
// DDMMMYYYY, DD-MMM-YYYY, DD MMM [YYYY], DD/MM[/YYYY], and emits
// "DD MMM" (two-digit day, uppercase month). Unrecognised input passes
// through unchanged so callers can see the raw text rather than silently
// losing it.
func normaliseDate(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return s
	}

	if m := dateDDMMMYYYYDash.FindStringSubmatch(s); m != nil {
		return dayMonth(m[1], m[2])
	}
	if m := dateDDMMMYYYYSp.FindStringSubmatch(s); m != nil {
		return dayMonth(m[1], m[2])
	}
	if m := dateDDMMM.FindStringSubmatch(s); m != nil {
		return dayMonth(m[1], m[2])
	}
	if m := dateDDMMMYYYYRun.FindStringSubmatch(s); m != nil {
		return dayMonth(m[1], m[2])
	}
	if m := dateDDMMYYYY.FindStringSubmatch(s); m != nil {
		month, ok := monthNames[pad2(m[2])]
		if !ok {
			return s
		}
		return pad2(m[1]) + " " + month
	}
	return s
}

func dayMonth(day, month string) string {
	mon := strings.ToUpper(month)
	if len(mon) > 3 {
		mon = mon[:3]
	}
	if !monthAbbrev[mon] {
		return day + " " + month
	}
	return pad2(day) + " " + mon
}

func pad2(s string) string {
	n, err := strconv.Atoi(s)
	if err != nil {
		return s
	}
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// channelKeywords is ordered: first match wins.
var channelKeywords = []struct {
	Channel  string
	Keywords []string
}{
	{"FAST", []string{"FAST"}},
	{"INTERBANK GIRO", []string{"INTERBANK GIRO", "IBG"}},
	{"GIRO", []string{"GIRO"}},
	{"ADVICE", []string{"ADVICE"}},
	{"REMITTANCE", []string{"REMITTANCE"}},
	{"ATM", []string{"ATM"}},
	{"DEBIT PURCHASE", []string{"DEBIT PURCHASE"}},
	{"CHEQUE", []string{"CHEQUE"}},
	{"NETS", []string{"NETS"}},
	{"PAYNOW", []string{"PAYNOW"}},
}

// classifyChannel buckets a transaction by its payment channel keyword.
func classifyChannel(description string) string {
	upper := strings.ToUpper(description)
	for _, ck := range channelKeywords {
		for _, kw := range ck.Keywords {
			if strings.Contains(upper, kw) {
				return ck.Channel
			}
		}
	}
	return "OTHER"
}

var (
	hexRefPattern      = regexp.MustCompile(`(?i)^[0-9a-f]{16,}$`)
	refPrefixPattern   = regexp.MustCompile(`(?i)^(REF|TXN|TRN|FT)[-\s]?\w*\d+`)
	sgdAmountPattern   = regexp.MustCompile(`(?i)^SGD\s+[\d,.]+`)
	alphabeticPattern  = regexp.MustCompile(`[A-Za-z]`)
	categoryRoleTokens = map[string]bool{
		"PAYMENT": true, "TRANSFER": true, "DEPOSIT": true, "WITHDRAWAL": true,
		"CHARGE": true, "FEE": true, "INTEREST": true, "ADJUSTMENT": true,
	}
)

// extractCounterparty pulls the counterparty name out of a description:
// split on "|" or newlines, skip the first line (channel), skip reference
// -shaped lines, and take the first remaining alphabetic line of length >2.
func extractCounterparty(description string) string {
	parts := splitDescriptionLines(description)
	if len(parts) == 0 {
		return ""
	}
	if len(parts) > 1 {
		parts = parts[1:] // skip channel line
	}
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if len(p) <= 2 {
			continue
		}
		if hexRefPattern.MatchString(p) || refPrefixPattern.MatchString(p) || sgdAmountPattern.MatchString(p) {
			continue
		}
		if categoryRoleTokens[strings.ToUpper(p)] {
			continue
		}
		if !alphabeticPattern.MatchString(p) {
			continue
		}
		return p
	}
	return ""
}

func splitDescriptionLines(description string) []string {
	normalised := strings.NewReplacer("\r\n", "\n", "\r", "\n", "|", "\n").Replace(description)
	raw := strings.Split(normalised, "\n")
	var out []string
	for _, r := range raw {
		if strings.TrimSpace(r) != "" {
			out = append(out, strings.TrimSpace(r))
		}
	}
	return out
}

// categoryKeywords maps each canonical category to the keywords that
// identify it in a transaction description.
var categoryKeywords = []struct {
	Category string
	Keywords []string
}{
	{"salary_payroll", []string{"SALARY", "PAYROLL", "WAGES", "BONUS"}},
	{"rent", []string{"RENT", "LEASE", "TENANCY"}},
	{"utilities", []string{"UTILITIES", "ELECTRIC", "WATER", "GAS BILL", "SP SERVICES", "SINGTEL", "STARHUB"}},
	{"food_beverage", []string{"RESTAURANT", "CAFE", "FOOD", "GRAB FOOD", "FOODPANDA", "COFFEE", "DINING"}},
	{"transport", []string{"GRAB", "TAXI", "MRT", "TRANSPORT", "PARKING", "PETROL", "FUEL"}},
	{"supplier_payment", []string{"SUPPLIER", "VENDOR", "PROCUREMENT", "WHOLESALE"}},
	{"revenue", []string{"SALES", "REVENUE", "INVOICE PAYMENT", "CUSTOMER PAYMENT"}},
	{"loan", []string{"LOAN", "MORTGAGE", "INSTALMENT", "INSTALLMENT"}},
	{"tax_government", []string{"IRAS", "CPF", "GST", "TAX", "GOVERNMENT"}},
	{"insurance", []string{"INSURANCE", "PREMIUM", "AIA", "PRUDENTIAL", "NTUC INCOME"}},
	{"fees_charges", []string{"FEE", "CHARGE", "COMMISSION", "SERVICE CHARGE"}},
	{"transfer", []string{"TRANSFER", "FAST PAYMENT", "GIRO", "REMITTANCE"}},
	{"purchase", []string{"PURCHASE", "SHOPEE", "LAZADA", "AMAZON", "RETAIL"}},
}

// classifyCategory buckets a transaction by its description keywords.
func classifyCategory(description string) string {
	upper := strings.ToUpper(description)
	for _, ck := range categoryKeywords {
		for _, kw := range ck.Keywords {
			if strings.Contains(upper, kw) {
				return ck.Category
			}
		}
	}
	return "other"
}
