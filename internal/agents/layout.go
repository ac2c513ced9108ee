package agents

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/castlemilk/thirdeye/backend/internal/pdfprimitives"
	"github.com/castlemilk/thirdeye/backend/internal/store"
)

// LayoutAgent derives a layout descriptor that guides the Extraction
// engine: detected bank, table/column structure, date/amount formats, and
// special balance markers. It never fails the pipeline — when the PDF
// cannot be opened it returns a result holding only the error, with risk
// "low".
type LayoutAgent struct{}

func NewLayoutAgent() *LayoutAgent { return &LayoutAgent{} }

func (a *LayoutAgent) Name() store.AgentType { return store.AgentLayout }

func (a *LayoutAgent) Analyse(_ context.Context, dctx *DocumentContext) (AgentOutcome, error) {
	doc, err := pdfprimitives.Open(dctx.PDFData)
	if err != nil {
		return AgentOutcome{
			Results:   map[string]interface{}{"error": err.Error()},
			Summary:   fmt.Sprintf("Layout analysis error: %v", err),
			RiskLevel: store.RiskLow,
		}, nil
	}

	pageLimit := doc.PageCount()
	if pageLimit > 3 {
		pageLimit = 3
	}

	texts := make([]string, 0, pageLimit)
	for i := 0; i < pageLimit; i++ {
		t, err := doc.PageText(i)
		if err == nil {
			texts = append(texts, t)
		}
	}

	bank, confidence := detectBank(texts)
	hasTables, structure, columnMapping := a.analyseTables(doc, pageLimit)
	dateFormat, amountFormat := detectFormats(texts)
	markers := detectSpecialMarkers(texts)
	multiLine := detectMultilineDescriptions(doc, pageLimit)

	results := map[string]interface{}{
		"bank_detected":           bank,
		"confidence":              confidence,
		"is_scanned":              doc.IsScanned(),
		"table_structure":         structure,
		"has_tables":              hasTables,
		"column_mapping":          columnMapping,
		"date_format":             dateFormat,
		"amount_format":           amountFormat,
		"multi_line_descriptions": multiLine,
		"special_markers":         markers,
		"page_count":              doc.PageCount(),
	}

	summary := generateLayoutSummary(bank, confidence, doc.PageCount(), hasTables, columnMapping, dateFormat, multiLine)

	return AgentOutcome{Results: results, Summary: summary, RiskLevel: store.RiskLow}, nil
}

func detectBank(pageTexts []string) (string, float64) {
	joined := strings.ToUpper(strings.Join(pageTexts, "\n"))

	type scored struct {
		name  string
		score int
	}
	var candidates []scored
	for name, sig := range bankSignatures {
		score := 0
		for _, kw := range sig.Keywords {
			if strings.Contains(joined, strings.ToUpper(kw)) {
				score += 3
			}
		}
		for _, p := range sig.Products {
			if strings.Contains(joined, strings.ToUpper(p)) {
				score += 2
			}
		}
		for _, re := range sig.HeaderPatterns {
			if re.MatchString(joined) {
				score += 2
			}
		}
		if score > 0 {
			candidates = append(candidates, scored{name, score})
		}
	}
	if len(candidates) == 0 {
		return "Unknown", 0.0
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	top := candidates[0]
	confidence := float64(top.score) / 10.0
	if confidence > 1.0 {
		confidence = 1.0
	}
	return top.name, confidence
}

func (a *LayoutAgent) analyseTables(doc *pdfprimitives.Document, pageLimit int) (bool, map[string]interface{}, map[string]int) {
	hasTables := false
	var structure map[string]interface{}
	var mapping map[string]int

	for pageIdx := 0; pageIdx < pageLimit; pageIdx++ {
		tables, err := doc.PageTables(pageIdx)
		if err != nil || len(tables) == 0 {
			continue
		}
		hasTables = true

		for _, table := range tables {
			if len(table) < 2 {
				continue
			}
			headers := table[0]
			if len(headers) == 0 {
				continue
			}
			m := mapColumns(headers)
			if len(m) == 0 {
				continue
			}
			sampleEnd := len(table)
			if sampleEnd > 4 {
				sampleEnd = 4
			}
			structure = map[string]interface{}{
				"page":        pageIdx,
				"columns":     len(headers),
				"header_row":  headers,
				"sample_rows": table[1:sampleEnd],
			}
			mapping = m
			break
		}
		if structure != nil {
			break
		}
	}
	return hasTables, structure, mapping
}

var nonASCIIPattern = regexp.MustCompile(`[^\x00-\x7f]`)
var currencySuffixPattern = regexp.MustCompile(`(?i)\s*\([a-z]{3}\)\s*`)

func mapColumns(headers []string) map[string]int {
	mapping := make(map[string]int)
	for idx, header := range headers {
		if header == "" {
			continue
		}
		clean := strings.ToLower(strings.TrimSpace(header))
		clean = nonASCIIPattern.ReplaceAllString(clean, "")
		clean = currencySuffixPattern.ReplaceAllString(clean, "")
		clean = strings.TrimSpace(clean)

		for canonical, aliases := range columnAliases {
			if _, exists := mapping[canonical]; exists {
				continue
			}
			for _, alias := range aliases {
				if strings.Contains(clean, alias) || strings.Contains(alias, clean) {
					mapping[canonical] = idx
					break
				}
			}
		}
	}
	return mapping
}

func detectFormats(pageTexts []string) (string, string) {
	text := strings.Join(pageTexts, "\n")
	dateFormat := "DD MMM"
	for _, p := range datePatterns {
		if p.Pattern.MatchString(text) {
			dateFormat = p.Format
			break
		}
	}

	decimalCount := len(decimalCommaPattern.FindAllString(text, -1))
	europeanCount := len(europeanAmountPattern.FindAllString(text, -1))
	amountFormat := "european"
	if decimalCount >= europeanCount {
		amountFormat = "decimal_comma"
	}
	return dateFormat, amountFormat
}

func detectSpecialMarkers(pageTexts []string) map[string]string {
	text := strings.ToUpper(strings.Join(pageTexts, "\n"))
	markers := make(map[string]string)
	for _, m := range openingBalanceMarkers {
		if strings.Contains(text, m) {
			markers["opening_balance"] = m
			break
		}
	}
	for _, m := range closingBalanceMarkers {
		if strings.Contains(text, m) {
			markers["closing_balance"] = m
			break
		}
	}
	return markers
}

func detectMultilineDescriptions(doc *pdfprimitives.Document, pageLimit int) bool {
	for pageIdx := 0; pageIdx < pageLimit; pageIdx++ {
		tables, err := doc.PageTables(pageIdx)
		if err != nil {
			continue
		}
		for _, table := range tables {
			if len(table) < 5 {
				continue
			}
			totalRows := len(table) - 1
			dateRows := 0
			for _, row := range table[1:] {
				if len(row) == 0 {
					continue
				}
				if firstCellDatePattern.MatchString(strings.TrimSpace(row[0])) {
					dateRows++
				}
			}
			if dateRows > 0 && float64(dateRows)/float64(totalRows) < 0.6 {
				return true
			}
		}
	}
	return false
}

func generateLayoutSummary(bank string, confidence float64, pageCount int, hasTables bool, mapping map[string]int, dateFormat string, multiLine bool) string {
	parts := []string{
		fmt.Sprintf("Detected bank: %s (confidence: %.0f%%)", bank, confidence*100),
		fmt.Sprintf("Document has %d page(s)", pageCount),
	}
	if hasTables {
		parts = append(parts, fmt.Sprintf("Found structured tables with %d identified columns", len(mapping)))
	} else {
		parts = append(parts, "No structured tables detected (unstructured extraction required)")
	}
	parts = append(parts, fmt.Sprintf("Date format: %s", dateFormat))
	if multiLine {
		parts = append(parts, "Multi-line transaction descriptions detected")
	}
	return strings.Join(parts, ". ") + "."
}

var _ Agent = (*LayoutAgent)(nil)
