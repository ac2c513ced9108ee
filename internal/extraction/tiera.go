package extraction

import (
	"regexp"
	"strings"

	"github.com/castlemilk/thirdeye/backend/internal/pdfprimitives"
	"github.com/castlemilk/thirdeye/backend/internal/store"
)

var currencySuffixRe = regexp.MustCompile(`(?i)\s*\([a-z]{3}\)\s*`)
var nonASCIIRe = regexp.MustCompile(`[^\x00-\x7f]`)
var newlineRunRe = regexp.MustCompile(`\s*\n\s*`)

// tierAColumnAliases is the alias dictionary Tier A's header normaliser
// maps against, shared with Tier B's header scoring. Sourced from
// layout_data.go's columnAliases plus the
// cheque/counterparty aliases Tier A additionally recognises.
var tierAColumnAliases = map[string][]string{
	"transaction_date": {"date", "txn date", "transaction date", "date & time", "posting date"},
	"value_date":       {"value date", "val date", "effective date"},
	"description":      {"description", "transaction details", "details", "particulars", "narrative"},
	"debit":            {"debit", "withdrawal", "withdrawals", "dr", "payments"},
	"credit":           {"credit", "deposit", "deposits", "cr", "receipts"},
	"balance":          {"balance", "running balance", "bal", "closing balance"},
	"reference":        {"reference", "ref", "ref no", "transaction ref"},
	"cheque":           {"cheque", "chq", "cheque no"},
	"counterparty":     {"counterparty", "payee", "payer", "merchant"},
}

// normaliseHeader cleans a raw header cell: lower-case, strip
// non-ASCII, strip a currency suffix like "(SGD)", collapse newlines.
func normaliseHeader(raw string) string {
	h := strings.ToLower(strings.TrimSpace(raw))
	h = nonASCIIRe.ReplaceAllString(h, "")
	h = currencySuffixRe.ReplaceAllString(h, "")
	h = newlineRunRe.ReplaceAllString(h, " ")
	return strings.TrimSpace(h)
}

func mapTierAHeaders(headers []string) map[string]int {
	mapping := make(map[string]int)
	for idx, raw := range headers {
		clean := normaliseHeader(raw)
		if clean == "" {
			continue
		}
		for canonical, aliases := range tierAColumnAliases {
			if _, exists := mapping[canonical]; exists {
				continue
			}
			for _, alias := range aliases {
				if strings.Contains(clean, alias) {
					mapping[canonical] = idx
					break
				}
			}
		}
	}
	return mapping
}

var openingPhraseRe = regexp.MustCompile(`(?i)BALANCE B/F|BALANCE BROUGHT FORWARD|OPENING BALANCE|BROUGHT FORWARD`)
var closingPhraseRe = regexp.MustCompile(`(?i)BALANCE C/F|BALANCE CARRIED FORWARD|CLOSING BALANCE|CARRIED FORWARD`)

var firstCellDateRe = regexp.MustCompile(`^\d`)

// extractTierA is the first tier: grid-ruled table reconstruction.
// Returns ErrNotApplicable for scanned PDFs or when two header-only
// transaction tables suggest borderless data, and ErrNoTransactions when no
// transaction rows are found; either signals the cascade to fall through to
// Tier B.
func extractTierA(doc *pdfprimitives.Document) (TierResult, *AccountInfo, error) {
	if doc.IsScanned() {
		return TierResult{}, nil, notApplicable("document is scanned, no grid tables to read")
	}

	var all []*txn
	var accountInfo *AccountInfo
	headerOnlyCount := 0

	for page := 0; page < doc.PageCount(); page++ {
		tables, err := doc.PageTables(page)
		if err != nil || len(tables) == 0 {
			continue
		}
		for _, table := range tables {
			if len(table) == 0 {
				continue
			}
			headers := table[0]
			mapping := mapTierAHeaders(headers)
			_, hasDate := mapping["transaction_date"]
			_, hasBalance := mapping["balance"]
			_, hasDebit := mapping["debit"]
			_, hasCredit := mapping["credit"]

			if hasDate && hasBalance && (hasDebit || hasCredit) {
				if len(table) < 2 {
					headerOnlyCount++
					if headerOnlyCount >= 2 {
						return TierResult{}, nil, notApplicable("two header-only tables, borderless data suspected")
					}
					continue
				}
				rows := tierARows(table[1:], mapping, page)
				all = append(all, rows...)
				continue
			}

			if page == 0 && accountInfo == nil && isAccountInfoTable(table) {
				info := parseAccountInfoTable(table)
				accountInfo = &info
			}
		}
	}

	if len(all) == 0 {
		return TierResult{}, accountInfo, noTransactions("no transaction tables found in %d pages", doc.PageCount())
	}
	return TierResult{Transactions: all, Method: "table_reconstruction"}, accountInfo, nil
}

func tierARows(dataRows [][]string, mapping map[string]int, page int) []*txn {
	var out []*txn
	for _, row := range dataRows {
		dateCell := cellAt(row, mapping, "transaction_date")
		dateCell = strings.TrimSpace(dateCell)
		if dateCell == "" || !firstCellDateRe.MatchString(dateCell) {
			continue
		}

		description := joinCells(row, mapping, "description")
		debit := parseAmount(cellAt(row, mapping, "debit"))
		credit := parseAmount(cellAt(row, mapping, "credit"))
		balance := parseAmount(cellAt(row, mapping, "balance"))
		reference := cellAt(row, mapping, "reference")

		var txType store.TransactionType
		var amount *float64
		switch {
		case debit != nil && credit == nil:
			txType, amount = store.TxDebit, debit
		case credit != nil && debit == nil:
			txType, amount = store.TxCredit, credit
		case debit != nil && credit != nil:
			if absF(*debit) >= absF(*credit) {
				txType, amount = store.TxDebit, debit
			} else {
				txType, amount = store.TxCredit, credit
			}
		case openingPhraseRe.MatchString(description):
			txType = store.TxOpeningBalance
		case closingPhraseRe.MatchString(description):
			txType = store.TxClosingBalance
		default:
			continue
		}

		t := &txn{
			Date:        normaliseDate(dateCell),
			Description: description,
			Type:        txType,
			Amount:      amount,
			Balance:     balance,
			Reference:   strings.TrimSpace(reference),
			Page:        page,
			RawText:     strings.Join(row, " | "),
		}
		out = append(out, t)
	}
	return out
}

func cellAt(row []string, mapping map[string]int, col string) string {
	idx, ok := mapping[col]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func joinCells(row []string, mapping map[string]int, col string) string {
	return strings.TrimSpace(cellAt(row, mapping, col))
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// isAccountInfoTable identifies the account-info table: the first
// non-transaction table on page 1 whose cells mention "opening balance" or
// "account number" is the account-info table.
func isAccountInfoTable(table [][]string) bool {
	for _, row := range table {
		for _, cell := range row {
			upper := strings.ToUpper(cell)
			if strings.Contains(upper, "OPENING BALANCE") || strings.Contains(upper, "ACCOUNT NUMBER") || strings.Contains(upper, "ACCOUNT NO") {
				return true
			}
		}
	}
	return false
}
