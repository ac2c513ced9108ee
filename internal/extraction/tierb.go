package extraction

import (
	"regexp"
	"sort"
	"strings"

	"github.com/castlemilk/thirdeye/backend/internal/pdfprimitives"
	"github.com/castlemilk/thirdeye/backend/internal/store"
)

const (
	yBandHeight       = 4.0  // words within 4pt vertically share a row
	headerMergeSpanPt = 16.0 // merge 2-3 adjacent bands whose span <= 16pt
	dataYMinOffset    = 8.0  // data rows start 8pt below the header
)

// headerColumn is one matched canonical column in the discovered header row.
type headerColumn struct {
	Canonical string
	X0, X1    float64
}

// columnBound is the computed left/right x-extent a data word is assigned to.
type columnBound struct {
	Canonical  string
	Left, Right float64
}

var monthTokenRe = regexp.MustCompile(`(?i)\b(JAN|FEB|MAR|APR|MAY|JUN|JUL|AUG|SEP|OCT|NOV|DEC)\b`)
var moneyTokenRe = regexp.MustCompile(`\d[\d,]*\.\d{2}`)
var balanceBFCFRe = regexp.MustCompile(`(?i)BALANCE\s+(B/F|C/F|BROUGHT FORWARD|CARRIED FORWARD)`)
var rowDatePatternRe = regexp.MustCompile(`\b\d{1,2}[\s/\-][A-Za-z]{3}|\b\d{1,2}/\d{1,2}/\d{2,4}\b`)

var pageSummaryRe = regexp.MustCompile(`(?i)TOTAL\s+(WITHDRAWAL|DEPOSIT|DEBIT|CREDIT)S?|END\s*OF\s*STATEMENT|DEPOSIT\s+INSURANCE`)
var hsbcSummaryStartRe = regexp.MustCompile(`(?i)WITHDRAWALS.*AS\s*AT`)
var hsbcSummaryEndRe = regexp.MustCompile(`(?i)BALANCE\s*CARRIED`)

var isoCurrencyTokenRe = regexp.MustCompile(`^(SGD|USD|EUR|GBP|AUD|JPY|CNY|HKD|MYR|IDR|THB|VND|PHP|INR|NZD|CHF|CAD|KRW|TWD|AED)$`)

// wordBand is a row of words clustered by y-coordinate within yBandHeight.
type wordBand struct {
	Words    []pdfprimitives.Word
	Top, Bot float64
}

func bandWords(words []pdfprimitives.Word, band float64) []wordBand {
	sorted := make([]pdfprimitives.Word, len(words))
	copy(sorted, words)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Top > sorted[j].Top })

	var bands []wordBand
	var cur []pdfprimitives.Word
	var curTop float64
	have := false
	for _, w := range sorted {
		if !have || curTop-w.Top > band {
			if len(cur) > 0 {
				bands = append(bands, finishBand(cur))
			}
			cur = []pdfprimitives.Word{w}
			curTop = w.Top
			have = true
		} else {
			cur = append(cur, w)
		}
	}
	if len(cur) > 0 {
		bands = append(bands, finishBand(cur))
	}
	return bands
}

func finishBand(words []pdfprimitives.Word) wordBand {
	sort.SliceStable(words, func(i, j int) bool { return words[i].X0 < words[j].X0 })
	top, bot := words[0].Top, words[0].Bottom
	for _, w := range words[1:] {
		if w.Top > top {
			top = w.Top
		}
		if w.Bottom < bot {
			bot = w.Bottom
		}
	}
	return wordBand{Words: words, Top: top, Bot: bot}
}

func bandText(b wordBand) string {
	var sb strings.Builder
	for i, w := range b.Words {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(w.Text)
	}
	return sb.String()
}

func mergeBands(bands []wordBand, from, to int) wordBand {
	var words []pdfprimitives.Word
	for i := from; i <= to; i++ {
		words = append(words, bands[i].Words...)
	}
	return finishBand(words)
}

// scoreHeaderCandidate scores one candidate header row:
// score = count of distinct canonical columns the combined text hits;
// candidate requires score>=2, must include balance, and at least one of
// {debit,credit}.
func scoreHeaderCandidate(text string) (int, map[string]bool) {
	clean := normaliseHeader(text)
	hit := make(map[string]bool)
	for canonical, aliases := range tierAColumnAliases {
		for _, alias := range aliases {
			if strings.Contains(clean, alias) {
				hit[canonical] = true
				break
			}
		}
	}
	return len(hit), hit
}

func isHeaderCandidate(hit map[string]bool) bool {
	if len(hit) < 2 {
		return false
	}
	if !hit["balance"] {
		return false
	}
	return hit["debit"] || hit["credit"]
}

// headerColumnsFromBand locates the (x0,x1) extent of each canonical
// column within a header band by matching each word (or run of up to three
// adjacent words) against the alias set.
func headerColumnsFromBand(band wordBand) []headerColumn {
	var cols []headerColumn
	seen := map[string]bool{}
	n := len(band.Words)
	for i := 0; i < n; i++ {
		for span := 1; span <= 3 && i+span <= n; span++ {
			group := band.Words[i : i+span]
			var sb strings.Builder
			for _, w := range group {
				sb.WriteString(w.Text)
				sb.WriteString(" ")
			}
			clean := normaliseHeader(sb.String())
			for canonical, aliases := range tierAColumnAliases {
				if seen[canonical] {
					continue
				}
				for _, alias := range aliases {
					if strings.Contains(clean, alias) {
						x0, x1 := group[0].X0, group[len(group)-1].X1
						cols = append(cols, headerColumn{Canonical: canonical, X0: x0, X1: x1})
						seen[canonical] = true
						break
					}
				}
			}
		}
	}
	return cols
}

// computeColumnBounds turns header extents into bounds: columns sorted by
// x-midpoint; bounds are adjacent-midpoint midpoints.
func computeColumnBounds(cols []headerColumn, pageWidth float64) []columnBound {
	type mid struct {
		col headerColumn
		m   float64
	}
	mids := make([]mid, len(cols))
	for i, c := range cols {
		mids[i] = mid{c, (c.X0 + c.X1) / 2}
	}
	sort.Slice(mids, func(i, j int) bool { return mids[i].m < mids[j].m })

	bounds := make([]columnBound, len(mids))
	for i, m := range mids {
		left := 0.0
		if i > 0 {
			left = (mids[i-1].m + m.m) / 2
		}
		right := pageWidth
		if i < len(mids)-1 {
			right = (m.m + mids[i+1].m) / 2
		}
		bounds[i] = columnBound{Canonical: m.col.Canonical, Left: left, Right: right}
	}
	return bounds
}

func columnForX(bounds []columnBound, xMid float64) (string, bool) {
	for _, b := range bounds {
		if xMid >= b.Left && xMid < b.Right {
			return b.Canonical, true
		}
	}
	if len(bounds) > 0 {
		last := bounds[len(bounds)-1]
		if xMid >= last.Left {
			return last.Canonical, true
		}
	}
	return "", false
}

// isTransactionPage filters to pages worth parsing: contains monetary
// amounts AND month/date tokens, OR contains BALANCE B/F|C/F equivalents;
// excludes legend/confirmation pages (approximated: a page under 30 words
// is assumed a cover/legend page).
func isTransactionPage(text string) bool {
	if len(strings.Fields(text)) < 30 {
		return false
	}
	hasMoney := moneyTokenRe.MatchString(text)
	hasDate := monthTokenRe.MatchString(text) || rowDatePatternRe.MatchString(text)
	hasBalanceMarker := balanceBFCFRe.MatchString(text)
	return (hasMoney && hasDate) || hasBalanceMarker
}

// findHeader scans the first 5 pages for the single highest-scoring header
// candidate, checking every single band and every 2-3 band merge whose
// vertical span is <=16pt.
func findHeader(doc *pdfprimitives.Document) (page int, band wordBand, cols []headerColumn, ok bool) {
	pageLimit := doc.PageCount()
	if pageLimit > 5 {
		pageLimit = 5
	}

	bestScore := -1
	for p := 0; p < pageLimit; p++ {
		words, err := doc.PageWords(p, 3, 3)
		if err != nil || len(words) == 0 {
			continue
		}
		bands := bandWords(words, yBandHeight)
		for i := range bands {
			for span := 0; span <= 2 && i+span < len(bands); span++ {
				merged := bands[i]
				if span > 0 {
					merged = mergeBands(bands, i, i+span)
					if merged.Top-merged.Bot > headerMergeSpanPt {
						continue
					}
				}
				score, hit := scoreHeaderCandidate(bandText(merged))
				if isHeaderCandidate(hit) && score > bestScore {
					bestScore = score
					page, band, ok = p, merged, true
				}
			}
		}
	}
	if !ok {
		return 0, wordBand{}, nil, false
	}
	cols = headerColumnsFromBand(band)
	return page, band, cols, true
}

// pageHeaderY re-derives the header y-band on a specific page (layouts may
// differ by page), matching the same header-candidate rule used in
// findHeader but scoped to one page.
func pageHeaderY(words []pdfprimitives.Word) (headerBot float64, ok bool) {
	bands := bandWords(words, yBandHeight)
	best := -1.0
	for i := range bands {
		for span := 0; span <= 2 && i+span < len(bands); span++ {
			merged := bands[i]
			if span > 0 {
				merged = mergeBands(bands, i, i+span)
				if merged.Top-merged.Bot > headerMergeSpanPt {
					continue
				}
			}
			score, hit := scoreHeaderCandidate(bandText(merged))
			if isHeaderCandidate(hit) && float64(score) > best {
				best = float64(score)
				headerBot, ok = merged.Bot, true
			}
		}
	}
	return headerBot, ok
}

// rowClass is what a data row's content implies about transaction
// boundaries.
type rowClass int

const (
	rowStartsTxn rowClass = iota
	rowAmountOnly
	rowDescriptionOnly
	rowCurrencyMarker
	rowSkip
	rowEmpty
)

func classifyRow(dateText, descText string, hasAmount bool) rowClass {
	combined := strings.TrimSpace(dateText + " " + descText)
	if combined == "" {
		if hasAmount {
			return rowAmountOnly
		}
		return rowEmpty
	}
	if pageSummaryRe.MatchString(combined) {
		return rowSkip
	}
	if isoCurrencyTokenRe.MatchString(strings.TrimSpace(combined)) {
		return rowCurrencyMarker
	}
	if rowDatePatternRe.MatchString(dateText) || balanceBFCFRe.MatchString(descText) {
		return rowStartsTxn
	}
	if hasAmount && dateText == "" && descText == "" {
		return rowAmountOnly
	}
	if descText != "" && !hasAmount && dateText == "" {
		return rowDescriptionOnly
	}
	return rowEmpty
}

// extractTierB is the second tier: word-position column inference.
// Applies only when the PDF is not scanned (Tier A already declined).
func extractTierB(doc *pdfprimitives.Document) (TierResult, error) {
	if doc.IsScanned() {
		return TierResult{}, notApplicable("document is scanned, no word positions available")
	}

	_, headerBand, cols, ok := findHeader(doc)
	if !ok {
		return TierResult{}, noTransactions("no header row discovered across first 5 pages")
	}
	if len(cols) == 0 {
		return TierResult{}, noTransactions("header row matched but no column extents resolved")
	}

	pageWidth := 612.0
	bounds := computeColumnBounds(cols, pageWidth)
	headerBot := headerBand.Bot

	var all []*txn
	currency := ""
	section := 0

	for p := 0; p < doc.PageCount(); p++ {
		text, err := doc.PageText(p)
		if err != nil || !isTransactionPage(text) {
			continue
		}
		words, err := doc.PageWords(p, 3, 3)
		if err != nil || len(words) == 0 {
			continue
		}

		thisHeaderBot, found := pageHeaderY(words)
		dataYMin := headerBot - dataYMinOffset
		if found {
			dataYMin = thisHeaderBot - dataYMinOffset
		}

		var dataWords []pdfprimitives.Word
		for _, w := range words {
			if w.Top < dataYMin {
				dataWords = append(dataWords, w)
			}
		}
		rows := bandWords(dataWords, yBandHeight)

		var current *txn
		inSummaryZone := false
		flush := func() {
			if current != nil {
				all = append(all, current)
			}
			current = nil
		}

		for _, row := range rows {
			cells := map[string][]pdfprimitives.Word{}
			for _, w := range row.Words {
				xMid := (w.X0 + w.X1) / 2
				col, ok := columnForX(bounds, xMid)
				if !ok {
					continue // outside rightmost column: watermark/footer
				}
				cells[col] = append(cells[col], w)
			}
			cellText := func(col string) string {
				ws := cells[col]
				sort.SliceStable(ws, func(i, j int) bool { return ws[i].X0 < ws[j].X0 })
				var sb strings.Builder
				for i, w := range ws {
					if i > 0 {
						sb.WriteString(" ")
					}
					sb.WriteString(w.Text)
				}
				return strings.TrimSpace(sb.String())
			}

			rawLine := bandText(row)
			if hsbcSummaryStartRe.MatchString(rawLine) {
				inSummaryZone = true
				continue
			}
			if inSummaryZone {
				if rowDatePatternRe.MatchString(cellText("transaction_date")) {
					inSummaryZone = false
				} else {
					if hsbcSummaryEndRe.MatchString(rawLine) {
						continue
					}
					continue
				}
			}

			dateText := cellText("transaction_date")
			descText := cellText("description")
			debit := parseColumnAmount(cellText("debit"))
			credit := parseColumnAmount(cellText("credit"))
			balance := parseColumnAmount(cellText("balance"))
			hasAmount := debit != nil || credit != nil || balance != nil

			class := classifyRow(dateText, descText, hasAmount)
			switch class {
			case rowSkip, rowEmpty:
				continue
			case rowCurrencyMarker:
				flush()
				section++
				currency = strings.ToUpper(strings.TrimSpace(rawLine))
				continue
			case rowStartsTxn:
				flush()
				current = &txn{Date: normaliseDate(dateText), Description: descText, Page: p, Currency: currency, SectionID: section}
				applyRowAmounts(current, debit, credit, balance, descText)
				current.RawText = rawLine
			case rowAmountOnly:
				// HSBC sub-transaction rule: an amount-bearing row while the
				// current transaction already has a balance, supplying a new
				// balance of its own, starts a new transaction that inherits
				// the previous date rather than overwriting the current one.
				if current != nil && current.Balance != nil && balance != nil {
					inheritedDate := current.Date
					flush()
					current = &txn{Date: inheritedDate, Page: p, Currency: currency, SectionID: section}
				} else if current == nil {
					current = &txn{Page: p, Currency: currency, SectionID: section}
				}
				applyRowAmounts(current, debit, credit, balance, descText)
			case rowDescriptionOnly:
				if current == nil {
					continue
				}
				if current.Description == "" {
					current.Description = descText
				} else {
					current.Description += " " + descText
				}
			}
		}
		flush()
	}

	if len(all) == 0 {
		return TierResult{}, noTransactions("header discovered but no transactions assembled")
	}

	finalizeReferenceAndChannel(all)
	all = sniffDirection(all)
	return TierResult{Transactions: all, Method: "word_position"}, nil
}

func applyRowAmounts(t *txn, debit, credit, balance *float64, description string) {
	if balance != nil {
		t.Balance = balance
	}
	switch {
	case debit != nil && credit == nil:
		t.Type, t.Amount = store.TxDebit, debit
	case credit != nil && debit == nil:
		t.Type, t.Amount = store.TxCredit, credit
	case debit != nil && credit != nil:
		if absF(*debit) >= absF(*credit) {
			t.Type, t.Amount = store.TxDebit, debit
		} else {
			t.Type, t.Amount = store.TxCredit, credit
		}
	case openingPhraseRe.MatchString(description):
		t.Type = store.TxOpeningBalance
	case closingPhraseRe.MatchString(description):
		t.Type = store.TxClosingBalance
	}
}

func finalizeReferenceAndChannel(txns []*txn) {
	for _, t := range txns {
		if t.Reference == "" {
			t.Reference = firstHexReference(t.Description)
		}
	}
}

var hexReferenceSearchRe = regexp.MustCompile(`(?i)[0-9a-f]{16,}`)

func firstHexReference(description string) string {
	return hexReferenceSearchRe.FindString(description)
}

// sniffDirection detects newest-first statements: quick-check the first 20
// credit/debit transactions with known balances, forward vs reversed; if
// reversed yields more valid transitions, reverse the whole list.
func sniffDirection(txns []*txn) []*txn {
	sample := txns
	if len(sample) > 20 {
		sample = sample[:20]
	}
	forwardValid := countValidTransitions(sample)

	reversedSample := make([]*txn, len(sample))
	for i, t := range sample {
		reversedSample[len(sample)-1-i] = t
	}
	reverseValid := countValidTransitions(reversedSample)

	if reverseValid > forwardValid {
		out := make([]*txn, len(txns))
		for i, t := range txns {
			out[len(txns)-1-i] = t
		}
		return out
	}
	return txns
}

func countValidTransitions(txns []*txn) int {
	valid := 0
	var prevBalance *float64
	for _, t := range txns {
		if t.Type != store.TxCredit && t.Type != store.TxDebit {
			continue
		}
		if t.Balance == nil || t.Amount == nil {
			prevBalance = t.Balance
			continue
		}
		if prevBalance != nil {
			expected := *prevBalance
			if t.Type == store.TxCredit {
				expected += *t.Amount
			} else {
				expected -= *t.Amount
			}
			if absF(expected-*t.Balance) <= 0.02 {
				valid++
			}
		}
		prevBalance = t.Balance
	}
	return valid
}
