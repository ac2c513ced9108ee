package agents

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/castlemilk/thirdeye/backend/internal/jsonutil"
	"github.com/castlemilk/thirdeye/backend/internal/modelclient"
	"github.com/castlemilk/thirdeye/backend/internal/store"
)

const (
	roundAmountThreshold = 5000.0
	roundModulo          = 1000.0
	rapidTxnThreshold    = 10
	outlierStdDevs       = 3.0
	balanceSwingRatio    = 0.5
	cashRatioThreshold   = 0.30
)

var monthEdgeDays = map[int]bool{1: true, 2: true, 3: true, 28: true, 29: true, 30: true, 31: true}

var dayPrefixPattern = regexp.MustCompile(`^(\d{1,2})[\-/]`)
var whitespaceRunPattern = regexp.MustCompile(`\s+`)

// FraudAgent runs seven statistical/rule checks plus an LLM counterparty
// risk assessment (eight checks in all).
type FraudAgent struct {
	model *modelclient.Client
}

func NewFraudAgent(model *modelclient.Client) *FraudAgent { return &FraudAgent{model: model} }

func (a *FraudAgent) Name() store.AgentType { return store.AgentFraud }

func (a *FraudAgent) Analyse(ctx context.Context, dctx *DocumentContext) (AgentOutcome, error) {
	if len(dctx.Transactions) == 0 {
		return AgentOutcome{
			Results:   map[string]interface{}{"checks": []Check{}, "total_checks": 0},
			Summary:   "No transactions available for fraud analysis.",
			RiskLevel: store.RiskLow,
		}, nil
	}

	checks := []Check{
		checkRoundAmounts(dctx.Transactions),
		checkDuplicates(dctx.Transactions),
		checkRapidSuccession(dctx.Transactions),
		checkLargeOutliers(dctx.Transactions),
		checkBalanceAnomalies(dctx.Transactions),
		checkCashHeavy(dctx.Transactions, dctx.Metrics),
		checkTimingPatterns(dctx.Transactions),
		a.checkCounterpartyRisk(ctx, dctx.Transactions),
	}

	risk, score, summary := ComputeRisk(checks)
	return AgentOutcome{Results: tamperingResultsMap(checks, score), Summary: summary, RiskLevel: risk}, nil
}

func dateKey(date string) string {
	if date == "" {
		return ""
	}
	return whitespaceRunPattern.ReplaceAllString(strings.ToUpper(strings.TrimSpace(date)), " ")
}

func parseDay(date string) (int, bool) {
	date = strings.TrimSpace(date)
	if date == "" {
		return 0, false
	}
	if m := dayPrefixPattern.FindStringSubmatch(date); m != nil {
		var d int
		fmt.Sscanf(m[1], "%d", &d)
		return d, true
	}
	parts := strings.Fields(date)
	if len(parts) > 0 {
		var d int
		if _, err := fmt.Sscanf(parts[0], "%d", &d); err == nil {
			return d, true
		}
	}
	return 0, false
}

func checkRoundAmounts(txns []*store.RawTransaction) Check {
	name := "Round-Amount Transactions"
	var flagged []map[string]interface{}
	for _, t := range txns {
		if t.Amount >= roundAmountThreshold && math.Mod(t.Amount, roundModulo) == 0 {
			flagged = append(flagged, map[string]interface{}{
				"date": t.Date, "amount": t.Amount, "type": t.Type, "description": truncate(t.Description, 80),
			})
		}
	}
	if len(flagged) == 0 {
		return Check{name, "pass", fmt.Sprintf("No round amounts >= %.0f found.", roundAmountThreshold)}
	}
	status := "warning"
	if len(flagged) >= 5 {
		status = "fail"
	}
	return Check{name, status, fmt.Sprintf("%d transactions with round amounts >= %.0f (divisible by %.0f).", len(flagged), roundAmountThreshold, roundModulo)}
}

func checkDuplicates(txns []*store.RawTransaction) Check {
	name := "Duplicate / Near-Duplicate Transactions"
	groups := map[string]int{}
	for _, t := range txns {
		cp := t.Counterparty
		if len(cp) > 30 {
			cp = cp[:30]
		}
		key := fmt.Sprintf("%s|%.2f|%s", dateKey(t.Date), t.Amount, strings.ToUpper(cp))
		groups[key]++
	}
	var dupeGroups, totalDupeTxns int
	for _, count := range groups {
		if count >= 2 {
			dupeGroups++
			totalDupeTxns += count
		}
	}
	if dupeGroups == 0 {
		return Check{name, "pass", "No duplicate transactions detected."}
	}
	status := "warning"
	if totalDupeTxns >= 6 {
		status = "fail"
	}
	return Check{name, status, fmt.Sprintf("%d groups of duplicate transactions (%d total transactions).", dupeGroups, totalDupeTxns)}
}

func checkRapidSuccession(txns []*store.RawTransaction) Check {
	name := "Rapid Succession Transactions"
	byDay := map[string]int{}
	for _, t := range txns {
		if dk := dateKey(t.Date); dk != "" {
			byDay[dk]++
		}
	}
	type dayCount struct {
		day   string
		count int
	}
	var busy []dayCount
	for d, c := range byDay {
		if c >= rapidTxnThreshold {
			busy = append(busy, dayCount{d, c})
		}
	}
	if len(busy) == 0 {
		return Check{name, "pass", fmt.Sprintf("No days with >= %d transactions.", rapidTxnThreshold)}
	}
	sort.Slice(busy, func(i, j int) bool { return busy[i].count > busy[j].count })
	return Check{name, "warning", fmt.Sprintf("%d days with >= %d transactions (max %d on %s).", len(busy), rapidTxnThreshold, busy[0].count, busy[0].day)}
}

func checkLargeOutliers(txns []*store.RawTransaction) Check {
	name := "Large Outlier Transactions"
	var amounts []float64
	for _, t := range txns {
		if t.Amount > 0 {
			amounts = append(amounts, t.Amount)
		}
	}
	if len(amounts) < 5 {
		return Check{name, "pass", "Too few transactions for outlier analysis."}
	}
	mean := meanOf(amounts)
	sd := stdDev(amounts)
	threshold := mean + outlierStdDevs*sd

	var flaggedCount int
	for _, t := range txns {
		if t.Amount > threshold {
			flaggedCount++
		}
	}
	if flaggedCount == 0 {
		return Check{name, "pass", fmt.Sprintf("No outliers (threshold: %.2f, mean: %.2f, sigma: %.2f).", threshold, mean, sd)}
	}
	status := "warning"
	if flaggedCount >= 3 {
		status = "fail"
	}
	return Check{name, status, fmt.Sprintf("%d transactions exceed %.1fsigma above mean (threshold: %.2f).", flaggedCount, outlierStdDevs, threshold)}
}

func checkBalanceAnomalies(txns []*store.RawTransaction) Check {
	name := "Balance Anomalies"
	type balPoint struct {
		date string
		bal  float64
	}
	var balances []balPoint
	for _, t := range txns {
		if t.Balance != nil {
			balances = append(balances, balPoint{t.Date, *t.Balance})
		}
	}
	if len(balances) < 3 {
		return Check{name, "pass", "Too few balance data points for analysis."}
	}
	maxBal := 0.0
	for _, b := range balances {
		if a := math.Abs(b.bal); a > maxBal {
			maxBal = a
		}
	}
	if maxBal == 0 {
		maxBal = 1
	}
	var flaggedCount int
	for i := 1; i < len(balances); i++ {
		swing := math.Abs(balances[i].bal - balances[i-1].bal)
		if swing > balanceSwingRatio*maxBal && swing > 10000 {
			flaggedCount++
		}
	}
	if flaggedCount == 0 {
		return Check{name, "pass", "No large balance swings detected."}
	}
	status := "warning"
	if flaggedCount >= 3 {
		status = "fail"
	}
	return Check{name, status, fmt.Sprintf("%d large balance swings (> %.0f%% of max balance %.2f).", flaggedCount, balanceSwingRatio*100, maxBal)}
}

func checkCashHeavy(txns []*store.RawTransaction, metrics *store.StatementMetrics) Check {
	name := "Cash-Heavy Activity"
	var totalCredits, totalDebits float64
	for _, t := range txns {
		switch t.Type {
		case store.TxCredit:
			totalCredits += t.Amount
		case store.TxDebit:
			totalDebits += t.Amount
		}
	}
	totalVolume := totalCredits + totalDebits

	var cashDeposits, cashWithdrawals float64
	var cashCount int
	if metrics != nil {
		cashDeposits = metrics.TotalAmountOfCashDeposits
		cashWithdrawals = metrics.TotalAmountOfCashWithdrawals
		cashCount = metrics.TotalNoOfCashDeposits + metrics.TotalNoOfCashWithdrawals
	} else {
		for _, t := range txns {
			if t.IsCash {
				cashCount++
				if t.Type == store.TxCredit {
					cashDeposits += t.Amount
				} else {
					cashWithdrawals += t.Amount
				}
			}
		}
	}
	cashTotal := cashDeposits + cashWithdrawals
	ratio := 0.0
	if totalVolume > 0 {
		ratio = cashTotal / totalVolume
	}
	if ratio < cashRatioThreshold {
		return Check{name, "pass", fmt.Sprintf("Cash activity: %.1f%% of total volume (%d cash transactions, deposits: %.2f, withdrawals: %.2f).", ratio*100, cashCount, cashDeposits, cashWithdrawals)}
	}
	status := "warning"
	if ratio > 0.5 {
		status = "fail"
	}
	return Check{name, status, fmt.Sprintf("Cash activity: %.1f%% of total volume (threshold: %.0f%%). %d cash transactions, deposits: %.2f, withdrawals: %.2f.", ratio*100, cashRatioThreshold*100, cashCount, cashDeposits, cashWithdrawals)}
}

func checkTimingPatterns(txns []*store.RawTransaction) Check {
	name := "Unusual Timing Patterns"
	var edgeCount, midCount int
	for _, t := range txns {
		day, ok := parseDay(t.Date)
		if !ok {
			continue
		}
		if monthEdgeDays[day] {
			edgeCount++
		} else {
			midCount++
		}
	}
	total := edgeCount + midCount
	if total < 10 {
		return Check{name, "pass", "Too few dated transactions for timing analysis."}
	}
	edgeRatio := float64(edgeCount) / float64(total)
	if edgeRatio <= 0.60 {
		return Check{name, "pass", fmt.Sprintf("%d/%d (%.0f%%) transactions at month start/end — within normal range.", edgeCount, total, edgeRatio*100)}
	}
	return Check{name, "warning", fmt.Sprintf("%d/%d (%.0f%%) transactions concentrated at month start/end.", edgeCount, total, edgeRatio*100)}
}

func (a *FraudAgent) checkCounterpartyRisk(ctx context.Context, txns []*store.RawTransaction) Check {
	name := "Counterparty Risk Assessment"
	cpVolume := map[string]float64{}
	cpCount := map[string]int{}
	for _, t := range txns {
		cp := strings.TrimSpace(t.Counterparty)
		if cp == "" {
			cp = strings.TrimSpace(t.Description)
		}
		if len(cp) < 3 {
			continue
		}
		if len(cp) > 60 {
			cp = cp[:60]
		}
		key := strings.ToUpper(cp)
		cpVolume[key] += t.Amount
		cpCount[key]++
	}
	if len(cpVolume) == 0 {
		return Check{name, "pass", "No counterparty data available."}
	}

	type cpEntry struct {
		name   string
		volume float64
	}
	var entries []cpEntry
	for k, v := range cpVolume {
		entries = append(entries, cpEntry{k, v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].volume > entries[j].volume })
	if len(entries) > 30 {
		entries = entries[:30]
	}

	var lines []string
	for i, e := range entries {
		lines = append(lines, fmt.Sprintf("  %d. %s — %d txn(s), total %.2f", i+1, e.name, cpCount[e.name], e.volume))
	}

	prompt := "You are a fraud analyst reviewing bank statement counterparties. Below are the top counterparties by transaction volume.\n\n" +
		strings.Join(lines, "\n") + "\n\n" +
		"Identify any suspicious patterns:\n" +
		"- Shell company names (random letters, no real business name)\n" +
		"- Money service businesses or remittance companies\n" +
		"- Gambling or high-risk merchants\n" +
		"- Counterparties that appear to be personal accounts in a business statement\n" +
		"- Any other red flags\n\n" +
		`Respond ONLY with valid JSON (no markdown fences): {"status": "pass" or "fail" or "warning", "details": "brief assessment of counterparty risk", "flagged_counterparties": ["name1", "name2"]}`

	res := a.model.CompleteText(ctx, []modelclient.Message{{Role: "user", Content: prompt}}, 0.1, 500, false)
	if !res.Success() {
		return Check{name, "warning", fmt.Sprintf("Could not run counterparty analysis: %v", res.Err)}
	}

	var parsed struct {
		Status                 string   `json:"status"`
		Details                string   `json:"details"`
		FlaggedCounterparties []string `json:"flagged_counterparties"`
	}
	if err := jsonutil.SmartParse(res.Text, &parsed); err != nil {
		return Check{name, "warning", fmt.Sprintf("Could not parse counterparty analysis: %v", err)}
	}
	if parsed.Status == "" {
		parsed.Status = "warning"
	}
	if parsed.Details == "" {
		parsed.Details = truncate(res.Text, 300)
	}
	return Check{name, parsed.Status, parsed.Details}
}

// AnalyseGroup aggregates transactions across every document in the group
// and re-runs checks 1-7 once, plus a group-wide counterparty check.
func (a *FraudAgent) AnalyseGroup(ctx context.Context, gctx *GroupContext) (AgentOutcome, error) {
	if len(gctx.Transactions) == 0 {
		return AgentOutcome{
			Results:   map[string]interface{}{"checks": []Check{}, "total_checks": 0},
			Summary:   "No transactions available for group fraud analysis.",
			RiskLevel: store.RiskLow,
		}, nil
	}

	var aggMetrics *store.StatementMetrics
	if len(gctx.Metrics) > 0 {
		combined := *gctx.Metrics[0]
		for _, m := range gctx.Metrics[1:] {
			combined.TotalAmountOfCashDeposits += m.TotalAmountOfCashDeposits
			combined.TotalAmountOfCashWithdrawals += m.TotalAmountOfCashWithdrawals
			combined.TotalNoOfCashDeposits += m.TotalNoOfCashDeposits
			combined.TotalNoOfCashWithdrawals += m.TotalNoOfCashWithdrawals
		}
		aggMetrics = &combined
	}

	checks := []Check{
		checkRoundAmounts(gctx.Transactions),
		checkDuplicates(gctx.Transactions),
		checkRapidSuccession(gctx.Transactions),
		checkLargeOutliers(gctx.Transactions),
		checkBalanceAnomalies(gctx.Transactions),
		checkCashHeavy(gctx.Transactions, aggMetrics),
		checkTimingPatterns(gctx.Transactions),
		a.checkCounterpartyRisk(ctx, gctx.Transactions),
	}

	risk, score, summary := ComputeRisk(checks)
	results := tamperingResultsMap(checks, score)
	results["documents_analyzed"] = len(gctx.Documents)
	return AgentOutcome{Results: results, Summary: fmt.Sprintf("[%d documents] %s", len(gctx.Documents), summary), RiskLevel: risk}, nil
}

func meanOf(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

var _ Agent = (*FraudAgent)(nil)
var _ GroupAgent = (*FraudAgent)(nil)
