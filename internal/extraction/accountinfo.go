package extraction

import (
	"context"
	"regexp"
	"strings"

	"github.com/castlemilk/thirdeye/backend/internal/jsonutil"
	"github.com/castlemilk/thirdeye/backend/internal/modelclient"
	"github.com/castlemilk/thirdeye/backend/internal/pdfprimitives"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// parseAccountInfoTable reads an account-info table of rows shaped
// "<label>:" | "<value>", where the account number's trailing "- CCY" is
// split off into currency, and statement_period is derived from the
// opening/closing dates found on the same table.
func parseAccountInfoTable(table [][]string) AccountInfo {
	var info AccountInfo
	var openingDate, closingDate string

	for _, row := range table {
		if len(row) < 2 {
			continue
		}
		label := strings.ToUpper(strings.TrimSpace(strings.TrimSuffix(row[0], ":")))
		value := strings.TrimSpace(row[1])
		if value == "" {
			continue
		}

		switch {
		case strings.Contains(label, "ACCOUNT NUMBER") || strings.Contains(label, "ACCOUNT NO"):
			num, ccy := splitAccountNumberCurrency(value)
			info.AccountNumber = num
			if ccy != "" {
				info.Currency = ccy
			}
		case strings.Contains(label, "ACCOUNT NAME") || strings.Contains(label, "ACCOUNT HOLDER"):
			info.AccountHolder = titleCaser.String(strings.ToLower(value))
		case strings.Contains(label, "PRODUCT"):
			info.ProductType = value
		case strings.Contains(label, "OPENING BALANCE") || strings.Contains(label, "BALANCE B/F"):
			info.OpeningBalance = parseAmount(firstAmountToken(value))
			openingDate = firstDateToken(value)
		case strings.Contains(label, "CLOSING BALANCE") || strings.Contains(label, "LEDGER BALANCE") || strings.Contains(label, "BALANCE C/F"):
			info.ClosingBalance = parseAmount(firstAmountToken(value))
			closingDate = firstDateToken(value)
		case strings.Contains(label, "AVAILABLE BALANCE"):
			info.AvailableBalance = parseAmount(firstAmountToken(value))
		}
	}

	if openingDate != "" && closingDate != "" {
		info.StatementPeriod = normaliseDate(openingDate) + " TO " + normaliseDate(closingDate)
	}
	return info
}

var accountNumberCurrencyRe = regexp.MustCompile(`^(.*?)\s*-\s*([A-Z]{3})$`)

func splitAccountNumberCurrency(value string) (number, currency string) {
	if m := accountNumberCurrencyRe.FindStringSubmatch(strings.TrimSpace(value)); m != nil {
		return strings.TrimSpace(m[1]), m[2]
	}
	return strings.TrimSpace(value), ""
}

var amountTokenInTextRe = regexp.MustCompile(`[\d,]+\.\d{2}`)
var dateTokenInTextRe = regexp.MustCompile(`\d{1,2}[\s/\-][A-Za-z]{3,9}[\s/\-]?\d{0,4}`)

func firstAmountToken(s string) string { return amountTokenInTextRe.FindString(s) }
func firstDateToken(s string) string   { return dateTokenInTextRe.FindString(s) }

var accountNumberSweepRe = regexp.MustCompile(`(?i)Account\s*(?:No\.?|Number)\s*[:\-]?\s*([A-Z0-9\-]{6,20})`)
var statementPeriodSweepRe = regexp.MustCompile(`(?i)(\d{1,2}[\s\-][A-Za-z]{3}[\s\-]\d{4})\s+TO\s+(\d{1,2}[\s\-][A-Za-z]{3}[\s\-]\d{4})`)

var isoCurrencies = map[string]bool{
	"SGD": true, "USD": true, "EUR": true, "GBP": true, "AUD": true, "JPY": true,
	"CNY": true, "HKD": true, "MYR": true, "IDR": true, "THB": true, "VND": true,
	"PHP": true, "INR": true, "NZD": true, "CHF": true, "CAD": true, "KRW": true,
	"TWD": true, "AED": true,
}

var nonNameTokens = map[string]bool{
	"ACCOUNT": true, "STATEMENT": true, "BANK": true, "SINGAPORE": true,
	"ADDRESS": true, "PAGE": true, "BRANCH": true, "CO": true,
}

var upperWordRe = regexp.MustCompile(`^[A-Z][A-Z .&'\-]{2,}$`)

// sweepAccountInfo is the fallback when no account-info table exists: a generic
// regex sweep of the first 3 pages for account number, statement period,
// currency, and account holder when no account-info table was found.
func sweepAccountInfo(doc *pdfprimitives.Document) AccountInfo {
	var info AccountInfo
	limit := doc.PageCount()
	if limit > 3 {
		limit = 3
	}

	var joined strings.Builder
	var lines []string
	for i := 0; i < limit; i++ {
		text, err := doc.PageText(i)
		if err != nil {
			continue
		}
		joined.WriteString(text)
		joined.WriteString("\n")
		lines = append(lines, strings.Split(text, "\n")...)
	}
	full := joined.String()

	if m := accountNumberSweepRe.FindStringSubmatch(full); m != nil {
		info.AccountNumber = m[1]
	}
	if m := statementPeriodSweepRe.FindStringSubmatch(full); m != nil {
		info.StatementPeriod = normaliseDate(m[1]) + " TO " + normaliseDate(m[2])
	}
	for code := range isoCurrencies {
		if strings.Contains(full, code) {
			info.Currency = code
			break
		}
	}
	for _, line := range lines {
		l := strings.TrimSpace(line)
		if !upperWordRe.MatchString(l) {
			continue
		}
		words := strings.Fields(l)
		skip := false
		for _, w := range words {
			if nonNameTokens[strings.ToUpper(w)] {
				skip = true
				break
			}
		}
		if skip || len(words) < 2 {
			continue
		}
		info.AccountHolder = l
		break
	}
	return info
}

// fillAccountInfoFromModel is the last resort: a single text-model call
// with a deterministic JSON-shape prompt fills any fields still missing,
// reading the first two pages' text.
func fillAccountInfoFromModel(ctx context.Context, model *modelclient.Client, doc *pdfprimitives.Document, info AccountInfo) AccountInfo {
	if model == nil {
		return info
	}
	if info.AccountNumber != "" && info.AccountHolder != "" && info.StatementPeriod != "" && info.Currency != "" {
		return info
	}

	limit := doc.PageCount()
	if limit > 2 {
		limit = 2
	}
	var text strings.Builder
	for i := 0; i < limit; i++ {
		t, err := doc.PageText(i)
		if err == nil {
			text.WriteString(t)
			text.WriteString("\n")
		}
	}

	prompt := "Extract bank statement account details from the text below. " +
		`Respond ONLY with valid JSON (no markdown fences): {"account_number": "", "account_holder": "", "bank": "", "currency": "", "statement_period": "", "opening_balance": null, "closing_balance": null}` +
		"\n\nTEXT:\n" + text.String()

	res := model.CompleteText(ctx, []modelclient.Message{{Role: "user", Content: prompt}}, 0.0, 400, true)
	if !res.Success() {
		return info
	}

	var parsed struct {
		AccountNumber   string   `json:"account_number"`
		AccountHolder   string   `json:"account_holder"`
		Bank            string   `json:"bank"`
		Currency        string   `json:"currency"`
		StatementPeriod string   `json:"statement_period"`
		OpeningBalance  *float64 `json:"opening_balance"`
		ClosingBalance  *float64 `json:"closing_balance"`
	}
	if err := jsonutil.SmartParse(res.Text, &parsed); err != nil {
		return info
	}

	if info.AccountNumber == "" {
		info.AccountNumber = parsed.AccountNumber
	}
	if info.AccountHolder == "" {
		info.AccountHolder = parsed.AccountHolder
	}
	if info.Bank == "" {
		info.Bank = parsed.Bank
	}
	if info.Currency == "" {
		info.Currency = parsed.Currency
	}
	if info.StatementPeriod == "" {
		info.StatementPeriod = parsed.StatementPeriod
	}
	if info.OpeningBalance == nil {
		info.OpeningBalance = parsed.OpeningBalance
	}
	if info.ClosingBalance == nil {
		info.ClosingBalance = parsed.ClosingBalance
	}
	return info
}
