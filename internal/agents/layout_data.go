package agents

import "regexp"

// bankSignature is one entry in the closed set of Singapore banks the
// Layout agent can detect.
type bankSignature struct {
	Keywords       []string
	Products       []string
	HeaderPatterns []*regexp.Regexp
}

var bankSignatures = map[string]bankSignature{
	"DBS": {
		Keywords: []string{"DBS BANK", "DEVELOPMENT BANK OF SINGAPORE", "DBS/POSB"},
		Products: []string{"AUTOSAVE ACCOUNT", "MULTIPLIER ACCOUNT", "MY ACCOUNT", "DBS TREASURES"},
		HeaderPatterns: []*regexp.Regexp{
			regexp.MustCompile(`DBS\s+BANK`),
			regexp.MustCompile(`DBS/POSB`),
		},
	},
	"POSB": {
		Keywords:       []string{"POSB", "POST OFFICE SAVINGS BANK"},
		Products:       []string{"POSB SAYE", "POSB EVERYDAY"},
		HeaderPatterns: []*regexp.Regexp{regexp.MustCompile(`POSB`)},
	},
	"OCBC": {
		Keywords:       []string{"OCBC BANK", "OVERSEA-CHINESE BANKING", "OCBC"},
		Products:       []string{"360 ACCOUNT", "FRANK ACCOUNT", "OCBC VOYAGE"},
		HeaderPatterns: []*regexp.Regexp{regexp.MustCompile(`OCBC\s+BANK`)},
	},
	"UOB": {
		Keywords: []string{"UNITED OVERSEAS BANK", "UOB"},
		Products: []string{"UNIPLUS", "ONE ACCOUNT", "STASH ACCOUNT"},
		HeaderPatterns: []*regexp.Regexp{
			regexp.MustCompile(`UNITED\s+OVERSEAS\s+BANK`),
			regexp.MustCompile(`UOB`),
		},
	},
	"Standard Chartered": {
		Keywords:       []string{"STANDARD CHARTERED"},
		Products:       []string{"BONUSSAVER", "JUMPSTART"},
		HeaderPatterns: []*regexp.Regexp{regexp.MustCompile(`STANDARD\s+CHARTERED`)},
	},
	"HSBC": {
		Keywords:       []string{"HSBC", "THE HONGKONG AND SHANGHAI BANKING"},
		Products:       []string{"EVERYDAY GLOBAL ACCOUNT", "CURRENT ACCOUNT"},
		HeaderPatterns: []*regexp.Regexp{regexp.MustCompile(`HSBC`)},
	},
	"Citibank": {
		Keywords:       []string{"CITIBANK"},
		Products:       []string{"CITIGOLD", "MAXIGAIN"},
		HeaderPatterns: []*regexp.Regexp{regexp.MustCompile(`CITIBANK`)},
	},
	"GXS Bank": {
		Keywords:       []string{"GXS BANK", "GXS"},
		HeaderPatterns: []*regexp.Regexp{regexp.MustCompile(`GXS\s+BANK`)},
	},
	"Trust Bank": {
		Keywords:       []string{"TRUST BANK"},
		HeaderPatterns: []*regexp.Regexp{regexp.MustCompile(`TRUST\s+BANK`)},
	},
	"Aspire": {
		Keywords:       []string{"ASPIRE"},
		Products:       []string{"ASPIRE BUSINESS ACCOUNT"},
		HeaderPatterns: []*regexp.Regexp{regexp.MustCompile(`ASPIRE`)},
	},
	"Airwallex": {
		Keywords:       []string{"AIRWALLEX"},
		HeaderPatterns: []*regexp.Regexp{regexp.MustCompile(`AIRWALLEX`)},
	},
}

// columnAliases maps a canonical column name to the header-text aliases
// that identify it, shared between Layout's table scan and the Extraction
// engine's Tier A/B header scoring.
var columnAliases = map[string][]string{
	"transaction_date": {"date", "txn date", "transaction date", "date & time", "posting date"},
	"value_date":       {"value date", "val date", "effective date"},
	"description":      {"description", "transaction details", "details", "particulars", "narrative"},
	"debit":            {"debit", "withdrawal", "withdrawals", "dr", "payments"},
	"credit":           {"credit", "deposit", "deposits", "cr", "receipts"},
	"balance":          {"balance", "running balance", "bal", "closing balance"},
	"reference":        {"reference", "ref", "ref no", "transaction ref"},
}

type datePatternEntry struct {
	Pattern *regexp.Regexp
	Format  string
}

var datePatterns = []datePatternEntry{
	{regexp.MustCompile(`\d{2}-[A-Z]{3}-\d{4}`), "DD-MMM-YYYY"},
	{regexp.MustCompile(`\d{2}\s+[A-Z]{3}\s+\d{4}`), "DD MMM YYYY"},
	{regexp.MustCompile(`\d{2}\s+[A-Z]{3}`), "DD MMM"},
	{regexp.MustCompile(`\d{2}/\d{2}/\d{4}`), "DD/MM/YYYY"},
	{regexp.MustCompile(`\d{2}/\d{2}/\d{2}`), "DD/MM/YY"},
	{regexp.MustCompile(`\d{2}[A-Z]{3}\d{4}`), "DDMMMYYYY"},
}

var decimalCommaPattern = regexp.MustCompile(`\d{1,3},\d{3}\.\d{2}`)
var europeanAmountPattern = regexp.MustCompile(`\d{1,3}\.\d{3},\d{2}`)

var openingBalanceMarkers = []string{
	"BALANCE B/F", "BALANCE BROUGHT FORWARD", "OPENING BALANCE", "BROUGHT FORWARD", "B/F",
}

var closingBalanceMarkers = []string{
	"BALANCE C/F", "BALANCE CARRIED FORWARD", "CLOSING BALANCE", "CARRIED FORWARD", "C/F",
}

var firstCellDatePattern = regexp.MustCompile(`^\d{1,2}[\-/\s]`)
