package agents

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/castlemilk/thirdeye/backend/internal/config"
	"github.com/castlemilk/thirdeye/backend/internal/jsonutil"
	"github.com/castlemilk/thirdeye/backend/internal/modelclient"
	"github.com/castlemilk/thirdeye/backend/internal/pdfprimitives"
	"github.com/castlemilk/thirdeye/backend/internal/store"
)

var suspiciousEditingTools = []string{
	"canva", "ilovepdf", "smallpdf", "sejda", "pdf-xchange",
	"foxit phantompdf", "nitro", "pdfill", "pdfescape",
	"libreoffice", "openoffice", "google docs", "microsoft word",
	"print to pdf", "safari", "chrome",
}

var suspiciousFontKeywords = []string{"helvetica-oblique", "canva", "edit"}

var hexStringPattern = regexp.MustCompile(`(?i)[0-9a-f]{16,}`)

// TamperingAgent runs seven independent structural/metadata checks plus a
// vision check for forgery signals (eight checks in all).
type TamperingAgent struct {
	cfg   config.Config
	model *modelclient.Client
}

func NewTamperingAgent(cfg config.Config, model *modelclient.Client) *TamperingAgent {
	return &TamperingAgent{cfg: cfg, model: model}
}

func (a *TamperingAgent) Name() store.AgentType { return store.AgentTampering }

func (a *TamperingAgent) Analyse(ctx context.Context, dctx *DocumentContext) (AgentOutcome, error) {
	doc, err := pdfprimitives.Open(dctx.PDFData)
	if err != nil {
		return AgentOutcome{
			Results:   map[string]interface{}{"error": err.Error()},
			Summary:   "Document not found",
			RiskLevel: store.RiskLow,
		}, nil
	}

	checks := []Check{
		a.checkMetadataDates(doc),
		a.checkCreatorProducer(doc),
		a.checkKeywords(doc),
		a.checkFontConsistency(doc),
		a.checkPageDimensions(doc),
		a.checkPageClarity(doc),
		a.checkSharpnessSpread(doc),
		a.checkVisualTampering(ctx, dctx.PDFData),
	}

	risk, score, summary := ComputeRisk(checks)
	return AgentOutcome{
		Results:   tamperingResultsMap(checks, score),
		Summary:   summary,
		RiskLevel: risk,
	}, nil
}

func tamperingResultsMap(checks []Check, score int) map[string]interface{} {
	var pass, fail, warn int
	for _, c := range checks {
		switch c.Status {
		case "pass":
			pass++
		case "fail":
			fail++
		case "warning":
			warn++
		}
	}
	return map[string]interface{}{
		"checks":        checks,
		"risk_score":    score,
		"pass_count":    pass,
		"fail_count":    fail,
		"warning_count": warn,
		"total_checks":  len(checks),
	}
}

func (a *TamperingAgent) checkMetadataDates(doc *pdfprimitives.Document) Check {
	name := "Metadata Date Check"
	meta := doc.Metadata()

	fmtDate := func(t time.Time, ok bool) string {
		if !ok {
			return "Not found"
		}
		return t.Format("02 Jan 2006, 03:04:05 PM")
	}
	creationOK := !meta.CreationDate.IsZero()
	modOK := !meta.ModDate.IsZero()
	details := fmt.Sprintf("Created: %s, Modified: %s", fmtDate(meta.CreationDate, creationOK), fmtDate(meta.ModDate, modOK))

	if !creationOK && !modOK {
		return Check{name, "warning", details + " — Both dates missing (metadata may have been stripped)."}
	}
	if !creationOK || !modOK {
		return Check{name, "warning", details + " — One date is missing or malformed."}
	}
	if meta.ModDate.Before(meta.CreationDate) {
		return Check{name, "fail", details + " — Modification date is BEFORE creation date (invalid)."}
	}
	delta := meta.ModDate.Sub(meta.CreationDate).Seconds()
	switch {
	case delta == 0:
		return Check{name, "pass", details + " — No modification detected."}
	case delta <= 5:
		return Check{name, "pass", details + " — Modification within 5 seconds (normal generation)."}
	case delta <= 60:
		return Check{name, "warning", fmt.Sprintf("%s — Modified %ds after creation.", details, int(delta))}
	default:
		return Check{name, "fail", fmt.Sprintf("%s — Modified %ds after creation — potential tampering.", details, int(delta))}
	}
}

func (a *TamperingAgent) checkCreatorProducer(doc *pdfprimitives.Document) Check {
	name := "Metadata Creator/Producer Check"
	meta := doc.Metadata()
	creator := strings.TrimSpace(meta.Creator)
	producer := strings.TrimSpace(meta.Producer)

	if creator == "" && producer == "" {
		return Check{name, "warning", "No creator or producer metadata found (may have been stripped)."}
	}

	combined := strings.ToLower(creator + " " + producer)
	for _, tool := range suspiciousEditingTools {
		if strings.Contains(combined, tool) {
			return Check{name, "fail", fmt.Sprintf("Creator: '%s', Producer: '%s' — detected editing tool '%s'.", creator, producer, tool)}
		}
	}
	return Check{name, "pass", fmt.Sprintf("Creator: '%s', Producer: '%s' — no suspicious tools detected.", creator, producer)}
}

func (a *TamperingAgent) checkKeywords(doc *pdfprimitives.Document) Check {
	name := "Metadata Keywords Check"
	keywords := strings.TrimSpace(doc.Metadata().Keywords)
	if keywords == "" {
		return Check{name, "pass", "No keywords found — nothing suspicious."}
	}
	if hexStringPattern.MatchString(keywords) {
		return Check{name, "fail", fmt.Sprintf("Keywords contain long hex/tracking string: '%s'", truncate(keywords, 120))}
	}
	return Check{name, "pass", fmt.Sprintf("Keywords: '%s' — no issues.", truncate(keywords, 120))}
}

func (a *TamperingAgent) checkFontConsistency(doc *pdfprimitives.Document) Check {
	name := "Font Consistency Check"
	perPage, err := doc.Fonts()
	if err != nil {
		return Check{name, "warning", fmt.Sprintf("Error: %v", err)}
	}

	allFonts := map[string]bool{}
	for _, page := range perPage {
		for _, f := range page {
			allFonts[f] = true
		}
	}
	if len(allFonts) == 0 {
		return Check{name, "warning", "No fonts found — document may be image-based."}
	}

	sortedAll := sortedKeys(allFonts)
	for f := range allFonts {
		lower := strings.ToLower(f)
		for _, kw := range suspiciousFontKeywords {
			if strings.Contains(lower, kw) {
				return Check{name, "fail", fmt.Sprintf("Suspicious font detected: '%s'. All fonts: %v", f, sortedAll)}
			}
		}
	}

	if len(perPage) > 1 {
		page1 := toSet(perPage[0])
		for i := 1; i < len(perPage); i++ {
			diff := symmetricDifference(page1, toSet(perPage[i]))
			if len(diff) > 3 {
				return Check{name, "warning", fmt.Sprintf("Page %d fonts differ from page 1 by %d fonts. Diff: %v. All fonts: %v", i+1, len(diff), sortedKeys(diff), sortedAll)}
			}
		}
	}

	return Check{name, "pass", fmt.Sprintf("Consistent fonts across %d pages. Fonts: %v", len(perPage), sortedAll)}
}

func (a *TamperingAgent) checkPageDimensions(doc *pdfprimitives.Document) Check {
	name := "Page Dimension Check"
	minH, minW := a.cfg.DimensionMinHeight, a.cfg.DimensionMinWidth
	dpi := float64(a.cfg.CheckDPI.DocumentDimension)

	var failures []string
	for i := 0; i < doc.PageCount(); i++ {
		img, err := doc.RenderPage(i, dpi)
		if err != nil {
			continue
		}
		var reasons []string
		if img.Height < minH {
			reasons = append(reasons, fmt.Sprintf("height %dpx < min %dpx", img.Height, minH))
		}
		if img.Width < minW {
			reasons = append(reasons, fmt.Sprintf("width %dpx < min %dpx", img.Width, minW))
		}
		if len(reasons) > 0 {
			failures = append(failures, fmt.Sprintf("Page %d: %s", i+1, strings.Join(reasons, ", ")))
		}
	}
	if len(failures) > 0 {
		return Check{name, "fail", strings.Join(failures, " | ")}
	}
	return Check{name, "pass", fmt.Sprintf("All %d pages meet minimum dimensions (%d×%d at %.0f DPI).", doc.PageCount(), minW, minH, dpi)}
}

func (a *TamperingAgent) checkPageClarity(doc *pdfprimitives.Document) Check {
	name := "Page Clarity Check"
	threshold := a.cfg.SharpnessThreshold
	dpi := float64(a.cfg.CheckDPI.PageClarity)

	if !canScoreSharpness(doc, dpi) {
		return Check{name, "pass", "Clarity check not applicable: page rendering provides geometry only (no rasterised ink to score)."}
	}

	var variances []float64
	var failures []string
	for i := 0; i < doc.PageCount(); i++ {
		img, err := doc.RenderPage(i, dpi)
		if err != nil || !img.Painted {
			continue
		}
		v := pdfprimitives.LaplacianVariance(img)
		variances = append(variances, v)
		if v < threshold {
			failures = append(failures, fmt.Sprintf("Page %d: sharpness %.1f < threshold %.0f", i+1, v, threshold))
		}
	}
	if len(failures) > 0 {
		return Check{name, "fail", strings.Join(failures, " | ")}
	}
	var parts []string
	for i, v := range variances {
		parts = append(parts, fmt.Sprintf("P%d:%.1f", i+1, v))
	}
	return Check{name, "pass", fmt.Sprintf("All %d pages passed clarity. Sharpness: [%s]", doc.PageCount(), strings.Join(parts, ", "))}
}

func (a *TamperingAgent) checkSharpnessSpread(doc *pdfprimitives.Document) Check {
	name := "Sharpness Spread Check"
	if doc.PageCount() < 2 {
		return Check{name, "pass", "Only 1 page — spread check not applicable."}
	}
	ratio := a.cfg.SharpnessSpreadRatio
	maxStd := a.cfg.SharpnessMaxStdDev
	dpi := float64(a.cfg.CheckDPI.SharpnessSpread)

	if !canScoreSharpness(doc, dpi) {
		return Check{name, "pass", "Spread check not applicable: page rendering provides geometry only (no rasterised ink to score)."}
	}

	var variances []float64
	for i := 0; i < doc.PageCount(); i++ {
		img, err := doc.RenderPage(i, dpi)
		if err != nil || !img.Painted {
			continue
		}
		variances = append(variances, pdfprimitives.LaplacianVariance(img))
	}
	maxV, minV := maxFloat(variances), minFloat(variances)
	stdV := stdDev(variances)
	spreadFail := minV < ratio*maxV || stdV > maxStd

	detail := fmt.Sprintf("Variances: %v, Max: %.2f, Min: %.2f, StdDev: %.2f", variances, maxV, minV, stdV)
	if spreadFail {
		return Check{name, "fail", detail + " — Significant variation across pages."}
	}
	return Check{name, "pass", detail + " — Consistent across pages."}
}

func (a *TamperingAgent) checkVisualTampering(ctx context.Context, pdfData []byte) Check {
	name := "Visual Tampering Check"
	prompt := "You are a document fraud detection AI. Analyze the visual layout and appearance of this bank statement page. Check for signs of tampering such as:\n" +
		"- Inconsistent font styles or sizes within the same section\n" +
		"- Alignment issues or misaligned columns\n" +
		"- Pasted or overlaid content (visible edges or colour mismatches)\n" +
		"- Irregular spacing between rows or columns\n" +
		"- Blurriness or visual artifacts in specific areas (while rest is sharp)\n" +
		"- Signs of image editing (gradient inconsistencies, jpeg artefacts)\n" +
		"- Missing or broken bank logos/headers\n\n" +
		`Respond ONLY with valid JSON (no markdown fences): {"status": "pass" or "fail", "details": "brief explanation of findings, pointing out specific areas if suspicious"}`

	res := a.model.CompleteVision(ctx, prompt, pdfData, "application/pdf", 0.1, 400)
	if !res.Success() {
		return Check{name, "warning", fmt.Sprintf("Could not run visual check: %v", res.Err)}
	}

	var parsed struct {
		Status  string `json:"status"`
		Details string `json:"details"`
	}
	if err := jsonutil.SmartParse(res.Text, &parsed); err != nil {
		return Check{name, "warning", fmt.Sprintf("Could not parse visual check response: %v", err)}
	}
	if parsed.Status == "" {
		parsed.Status = "warning"
	}
	if parsed.Details == "" {
		parsed.Details = truncate(res.Text, 300)
	}
	return Check{name, parsed.Status, parsed.Details}
}

// AnalyseGroup runs cross-document creator/sharpness consistency checks
// plus a per-document tampering rollup.
func (a *TamperingAgent) AnalyseGroup(_ context.Context, gctx *GroupContext) (AgentOutcome, error) {
	if len(gctx.Documents) == 0 {
		return AgentOutcome{
			Results:   map[string]interface{}{"error": "No documents found"},
			Summary:   "No documents found in group",
			RiskLevel: store.RiskLow,
		}, nil
	}

	type docSummary struct {
		DocumentID   string `json:"document_id"`
		Filename     string `json:"filename"`
		Status       string `json:"status"`
		RiskLevel    string `json:"risk_level"`
		PassCount    int    `json:"pass_count"`
		FailCount    int    `json:"fail_count"`
		WarningCount int    `json:"warning_count"`
	}

	perDocResults := gctx.PriorResults[store.AgentTampering]
	byDoc := make(map[string]*store.AgentResult, len(perDocResults))
	for _, r := range perDocResults {
		byDoc[r.DocumentID] = r
	}

	var summaries []docSummary
	var totalFails, totalWarns int
	for _, d := range gctx.Documents {
		s := docSummary{DocumentID: d.ID, Filename: d.OriginalName, Status: "not_run", RiskLevel: "unknown"}
		if r, ok := byDoc[d.ID]; ok {
			s.Status = string(r.Status)
			s.RiskLevel = string(r.RiskLevel)
			if r.Results != nil {
				s.PassCount = intFromMap(r.Results, "pass_count")
				s.FailCount = intFromMap(r.Results, "fail_count")
				s.WarningCount = intFromMap(r.Results, "warning_count")
			}
		}
		totalFails += s.FailCount
		totalWarns += s.WarningCount
		summaries = append(summaries, s)
	}

	checks := []Check{
		a.checkCrossCreatorConsistency(gctx),
		a.checkCrossSharpnessConsistency(gctx),
	}

	switch {
	case totalFails == 0 && totalWarns <= len(gctx.Documents):
		checks = append(checks, Check{"Per-Document Tampering Summary", "pass",
			fmt.Sprintf("All %d documents have clean tampering checks (%d minor warnings).", len(gctx.Documents), totalWarns)})
	case totalFails > 0:
		var failedDocs []string
		for _, s := range summaries {
			if s.FailCount > 0 {
				failedDocs = append(failedDocs, s.Filename)
			}
		}
		checks = append(checks, Check{"Per-Document Tampering Summary", "fail",
			fmt.Sprintf("%d tampering check failure(s) across documents: %s.", totalFails, strings.Join(failedDocs, ", "))})
	default:
		checks = append(checks, Check{"Per-Document Tampering Summary", "warning",
			fmt.Sprintf("%d warning(s) across %d documents.", totalWarns, len(gctx.Documents))})
	}

	risk, score, summary := ComputeRisk(checks)
	results := tamperingResultsMap(checks, score)
	results["per_document_summary"] = summaries
	results["documents_analyzed"] = len(gctx.Documents)

	return AgentOutcome{
		Results:   results,
		Summary:   fmt.Sprintf("[%d documents] %s", len(gctx.Documents), summary),
		RiskLevel: risk,
	}, nil
}

func (a *TamperingAgent) checkCrossCreatorConsistency(gctx *GroupContext) Check {
	name := "Cross-Document Creator Consistency"
	creators := map[string]string{}
	producers := map[string]string{}

	for _, d := range gctx.Documents {
		data := gctx.DocumentPDFs[d.ID]
		creator, producer := "Unknown", "Unknown"
		if doc, err := pdfprimitives.Open(data); err == nil {
			meta := doc.Metadata()
			if strings.TrimSpace(meta.Creator) != "" {
				creator = strings.TrimSpace(meta.Creator)
			}
			if strings.TrimSpace(meta.Producer) != "" {
				producer = strings.TrimSpace(meta.Producer)
			}
		} else {
			creator, producer = "Error", "Error"
		}
		creators[d.OriginalName] = creator
		producers[d.OriginalName] = producer
	}

	uniqueCreators := uniqueExcluding(creators, "Unknown", "Error")
	uniqueProducers := uniqueExcluding(producers, "Unknown", "Error")

	if len(uniqueCreators) <= 1 && len(uniqueProducers) <= 1 {
		return Check{name, "pass", fmt.Sprintf("All %d documents have consistent creator/producer metadata. Creator: %v, Producer: %v", len(gctx.Documents), uniqueCreators, uniqueProducers)}
	}

	status := "fail"
	if len(uniqueCreators) <= 2 {
		status = "warning"
	}
	return Check{name, status, fmt.Sprintf("Inconsistent PDF tools detected across documents. Creators: %v, Producers: %v", creators, producers)}
}

func (a *TamperingAgent) checkCrossSharpnessConsistency(gctx *GroupContext) Check {
	name := "Cross-Document Sharpness Consistency"
	values := map[string]float64{}
	scorable := false
	for _, d := range gctx.Documents {
		data := gctx.DocumentPDFs[d.ID]
		v := 0.0
		if doc, err := pdfprimitives.Open(data); err == nil {
			if img, err := doc.RenderPage(0, 150); err == nil && img.Painted {
				v = pdfprimitives.LaplacianVariance(img)
				scorable = true
			}
		}
		values[d.OriginalName] = v
	}
	if !scorable {
		return Check{name, "pass", "Consistency check not applicable: page rendering provides geometry only (no rasterised ink to score)."}
	}
	if len(values) < 2 {
		return Check{name, "pass", "Only one document — consistency check not applicable."}
	}

	var all []float64
	for _, v := range values {
		all = append(all, v)
	}
	maxV, minV := maxFloat(all), minFloat(all)
	ratio := 1.0
	if maxV > 0 {
		ratio = minV / maxV
	}
	if ratio >= 0.3 {
		return Check{name, "pass", fmt.Sprintf("Sharpness is consistent across %d documents. Values: %v", len(gctx.Documents), values)}
	}
	return Check{name, "fail", fmt.Sprintf("Significant sharpness variation across documents (ratio: %.2f). Values: %v — some documents may be scanned copies.", ratio, values)}
}

// canScoreSharpness probes the first page to see whether rendering yields
// painted pixels. Geometry-only rasters score a Laplacian variance of
// exactly zero on every page, so variance-based checks must skip rather
// than fail every document.
func canScoreSharpness(doc *pdfprimitives.Document, dpi float64) bool {
	img, err := doc.RenderPage(0, dpi)
	return err == nil && img.Painted
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func toSet(items []string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, i := range items {
		m[i] = true
	}
	return m
}

func symmetricDifference(a, b map[string]bool) map[string]bool {
	out := make(map[string]bool)
	for k := range a {
		if !b[k] {
			out[k] = true
		}
	}
	for k := range b {
		if !a[k] {
			out[k] = true
		}
	}
	return out
}

func uniqueExcluding(m map[string]string, excluded ...string) []string {
	ex := toSet(excluded)
	seen := map[string]bool{}
	for _, v := range m {
		if !ex[v] {
			seen[v] = true
		}
	}
	return sortedKeys(seen)
}

func maxFloat(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minFloat(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func stdDev(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	mean := 0.0
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))
	var sumSq float64
	for _, v := range vals {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(vals)-1))
}

func intFromMap(m map[string]interface{}, key string) int {
	v, ok := m[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}

var _ Agent = (*TamperingAgent)(nil)
var _ GroupAgent = (*TamperingAgent)(nil)
