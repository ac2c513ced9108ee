package extraction

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/castlemilk/thirdeye/backend/internal/jsonutil"
	"github.com/castlemilk/thirdeye/backend/internal/modelclient"
	"github.com/castlemilk/thirdeye/backend/internal/pdfprimitives"
	"github.com/castlemilk/thirdeye/backend/internal/store"
)

// pageCharsLargeBatch / pageCharsMidBatch drive adaptive batching:
// noisier/denser pages get smaller batches so the
// model sees fewer transactions per call and stays within its context and
// accuracy sweet spot.
const (
	pageCharsLargeBatch = 1500
	pageCharsMidBatch   = 1000
)

var pageFooterNoiseRe = regexp.MustCompile(`(?i)page\s+\d+\s+of\s+\d+|confidential|this\s+is\s+a\s+computer[- ]generated|member\s+of\s+sdic`)

// cleanPageNoise strips recurring footer/legal boilerplate lines so they
// don't consume model context or get mistaken for transaction rows.
func cleanPageNoise(text string) string {
	lines := strings.Split(text, "\n")
	var out []string
	for _, l := range lines {
		if pageFooterNoiseRe.MatchString(l) {
			continue
		}
		if strings.TrimSpace(l) == "" {
			continue
		}
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}

// batchSizeFor picks the pages-per-model-call batch size.
func batchSizeFor(avgCharsPerPage int) int {
	switch {
	case avgCharsPerPage > pageCharsLargeBatch:
		return 2
	case avgCharsPerPage > pageCharsMidBatch:
		return 3
	default:
		return 3
	}
}

type modelTxn struct {
	Date         string   `json:"date"`
	Description  string   `json:"description"`
	Type         string   `json:"type"`
	Amount       *float64 `json:"amount"`
	Balance      *float64 `json:"balance"`
	Reference    string   `json:"reference"`
	Page         int      `json:"-"`
}

const tierCSchemaPrompt = `Extract every transaction row from the bank statement text below. ` +
	`Respond ONLY with a JSON array (no markdown fences), one object per transaction: ` +
	`{"date": "DD MMM", "description": "...", "type": "credit|debit|opening_balance|closing_balance", "amount": number|null, "balance": number|null, "reference": "..."}. ` +
	`Do not invent transactions that are not in the text. Preserve the original row order.`

// extractTierCText is the text-based model fallback: used
// when Tier A and Tier B both yield nothing on a non-scanned document
// (unusual layout a column-inference pass couldn't parse).
func extractTierCText(ctx context.Context, model *modelclient.Client, doc *pdfprimitives.Document) (TierResult, error) {
	if model == nil {
		return TierResult{}, notApplicable("no model client configured")
	}

	pages := doc.PageCount()
	var candidatePages []string
	for p := 0; p < pages; p++ {
		text, err := doc.PageText(p)
		if err != nil {
			continue
		}
		if !isTransactionPage(text) {
			continue
		}
		candidatePages = append(candidatePages, cleanPageNoise(text))
	}
	if len(candidatePages) == 0 {
		return TierResult{}, noTransactions("no transaction-shaped pages found for model-assisted parsing")
	}

	all := extractBatches(ctx, model, candidatePages)
	if len(all) == 0 {
		return TierResult{}, noTransactions("model-assisted text parsing returned no transactions")
	}
	return TierResult{Transactions: all, Method: "model_assisted"}, nil
}

// extractBatches runs the per-batch text-model extraction loop shared by
// the text and scanned paths: adaptive batch size from the average page
// length, one model call per batch, and a failed batch skipped rather than
// aborting the remaining batches.
func extractBatches(ctx context.Context, model *modelclient.Client, pages []string) []*txn {
	totalChars := 0
	for _, p := range pages {
		totalChars += len(p)
	}
	batch := batchSizeFor(totalChars / len(pages))

	var all []*txn
	for i := 0; i < len(pages); i += batch {
		end := i + batch
		if end > len(pages) {
			end = len(pages)
		}
		chunk := strings.Join(pages[i:end], "\n---PAGE BREAK---\n")

		prompt := tierCSchemaPrompt + "\n\nTEXT:\n" + chunk
		res := model.CompleteText(ctx, []modelclient.Message{{Role: "user", Content: prompt}}, 0.0, 2048, true)
		if !res.Success() {
			log.Printf("[Extraction] batch %d-%d model call failed, skipping: %v", i, end-1, res.Err)
			continue
		}
		parsed, err := parseModelTxns(res.Text)
		if err != nil {
			log.Printf("[Extraction] batch %d-%d response not parseable, skipping: %v", i, end-1, err)
			continue
		}
		for _, mt := range parsed {
			all = append(all, modelTxnToTxn(mt, i))
		}
	}
	return all
}

const ocrPagePrompt = `This is a scanned bank statement. Transcribe page %d of the attached PDF exactly as printed, ` +
	`in reading order. Keep each printed line as one output line and separate columns with " | ". ` +
	`Output the raw transcription only, no commentary and no markdown.`

// ocrPage transcribes one page of a scanned PDF via the vision model. The
// raw bytes carry the page images; the prompt pins which page to read.
func ocrPage(ctx context.Context, model *modelclient.Client, pdfData []byte, pageIdx int) (string, error) {
	res := model.CompleteVision(ctx, fmt.Sprintf(ocrPagePrompt, pageIdx+1), pdfData, "application/pdf", 0.0, 4096)
	if !res.Success() {
		return "", res.Err
	}
	return res.Text, nil
}

const bankLogoPrompt = `Look at the logo and letterhead at the top of the first page of this bank statement. ` +
	`Which bank issued it? Answer with the bank name only, or "Unknown".`

var tierCBankKeywords = []struct {
	Bank     string
	Keywords []string
}{
	{"DBS", []string{"DBS BANK", "DBS/POSB", "DEVELOPMENT BANK OF SINGAPORE"}},
	{"POSB", []string{"POSB"}},
	{"OCBC", []string{"OCBC"}},
	{"UOB", []string{"UNITED OVERSEAS BANK", "UOB"}},
	{"HSBC", []string{"HSBC", "HONGKONG AND SHANGHAI BANKING"}},
	{"Standard Chartered", []string{"STANDARD CHARTERED"}},
	{"Citibank", []string{"CITIBANK"}},
	{"Maybank", []string{"MAYBANK"}},
}

// detectBankFromText is the text fallback for scanned-bank detection: a
// fuzzy contains-match of known bank names over OCR output.
func detectBankFromText(text string) string {
	upper := strings.ToUpper(text)
	for _, b := range tierCBankKeywords {
		for _, kw := range b.Keywords {
			if strings.Contains(upper, kw) {
				return b.Bank
			}
		}
	}
	return "Unknown"
}

// detectScannedBank asks the vision model to read the page-1 logo, falling
// back to keyword detection over the OCR text when the model declines or
// returns something outside the known set.
func detectScannedBank(ctx context.Context, model *modelclient.Client, pdfData []byte, ocrText string) string {
	res := model.CompleteVision(ctx, bankLogoPrompt, pdfData, "application/pdf", 0.0, 50)
	if res.Success() {
		answer := strings.ToUpper(strings.TrimSpace(res.Text))
		for _, b := range tierCBankKeywords {
			if strings.Contains(answer, strings.ToUpper(b.Bank)) {
				return b.Bank
			}
		}
	}
	return detectBankFromText(ocrText)
}

// bankNoisePatterns are per-bank boilerplate lines OCR reliably picks up
// that cleanPageNoise's generic footer patterns miss.
var bankNoisePatterns = map[string][]*regexp.Regexp{
	"DBS":  {regexp.MustCompile(`(?i)deposit insurance scheme|dbs bank ltd.*co\. reg`)},
	"POSB": {regexp.MustCompile(`(?i)deposit insurance scheme`)},
	"OCBC": {regexp.MustCompile(`(?i)oversea-chinese banking corporation limited`)},
	"UOB":  {regexp.MustCompile(`(?i)united overseas bank limited.*co\. reg`)},
	"HSBC": {regexp.MustCompile(`(?i)issued by hsbc|hsbc bank \(singapore\) limited`)},
}

func stripBankNoise(bank, text string) string {
	patterns := bankNoisePatterns[bank]
	if len(patterns) == 0 {
		return text
	}
	lines := strings.Split(text, "\n")
	var out []string
	for _, l := range lines {
		noisy := false
		for _, p := range patterns {
			if p.MatchString(l) {
				noisy = true
				break
			}
		}
		if !noisy {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

// extractTierCVision handles scanned documents: the PDF has no extractable
// text layer, so each page is OCR'd through the vision model first, then
// the transcriptions run through the same bank-noise cleaning, transaction
// -page filtering, and batched text-model extraction as the text path. A
// page whose OCR fails, or a batch whose model call fails, is skipped
// without aborting the rest.
func extractTierCVision(ctx context.Context, model *modelclient.Client, doc *pdfprimitives.Document, pdfData []byte) (TierResult, error) {
	if model == nil {
		return TierResult{}, notApplicable("no model client configured")
	}

	var ocrPages []string
	for p := 0; p < doc.PageCount(); p++ {
		text, err := ocrPage(ctx, model, pdfData, p)
		if err != nil {
			log.Printf("[Extraction] OCR failed for page %d, skipping: %v", p, err)
			continue
		}
		ocrPages = append(ocrPages, text)
	}
	if len(ocrPages) == 0 {
		return TierResult{}, &Error{Code: ErrModelFailure, Message: "OCR produced no text for any page"}
	}

	bank := detectScannedBank(ctx, model, pdfData, strings.Join(ocrPages, "\n"))
	log.Printf("[Extraction] scanned document: detected bank %s across %d OCR'd page(s)", bank, len(ocrPages))

	var candidatePages []string
	for _, text := range ocrPages {
		cleaned := stripBankNoise(bank, cleanPageNoise(text))
		if !isTransactionPage(cleaned) {
			continue
		}
		candidatePages = append(candidatePages, cleaned)
	}
	if len(candidatePages) == 0 {
		return TierResult{}, noTransactions("no transaction-shaped pages found in OCR output")
	}

	all := extractBatches(ctx, model, candidatePages)
	if len(all) == 0 {
		return TierResult{}, noTransactions("model-assisted parsing of OCR output returned no transactions")
	}
	return TierResult{Transactions: all, Method: "model_assisted"}, nil
}

// parseModelTxns accepts either a bare JSON array or the
// {"transactions": [...]} wrapper some model replies add despite the prompt.
func parseModelTxns(text string) ([]modelTxn, error) {
	var parsed []modelTxn
	if err := jsonutil.SmartParse(text, &parsed); err == nil {
		return parsed, nil
	}
	var wrapped struct {
		Transactions []modelTxn `json:"transactions"`
	}
	if err := jsonutil.SmartParse(text, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Transactions, nil
}

func modelTxnToTxn(mt modelTxn, page int) *txn {
	t := &txn{
		Date:        normaliseDate(mt.Date),
		Description: strings.TrimSpace(mt.Description),
		Amount:      mt.Amount,
		Balance:     mt.Balance,
		Reference:   strings.TrimSpace(mt.Reference),
		Page:        page,
	}
	switch strings.ToLower(strings.TrimSpace(mt.Type)) {
	case "credit":
		t.Type = store.TxCredit
	case "debit":
		t.Type = store.TxDebit
	case "opening_balance":
		t.Type = store.TxOpeningBalance
	case "closing_balance":
		t.Type = store.TxClosingBalance
	default:
		if mt.Amount != nil && *mt.Amount < 0 {
			t.Type = store.TxDebit
		} else {
			t.Type = store.TxCredit
		}
	}
	return t
}
