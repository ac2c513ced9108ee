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

var categoryLabels = map[string]string{
	"salary_payroll": "Salary & Wages",
	"revenue":       "Business Revenue",
	"rent":          "Rent & Lease",
	"utilities":     "Utilities",
	"food_beverage": "Food & Beverage",
	"transport":     "Transport",
	"supplier_payment": "Supplier Payments",
	"purchase":      "Purchases",
	"transfer":      "Fund Transfers",
	"loan":          "Loan Payments",
	"tax_government": "Tax & Government",
	"insurance":     "Insurance",
	"fees_charges":  "Bank Fees & Charges",
	"refund":        "Refunds",
	"other":         "Other / Uncategorized",
}

var monthOrder = map[string]int{
	"JAN": 1, "FEB": 2, "MAR": 3, "APR": 4, "MAY": 5, "JUN": 6,
	"JUL": 7, "AUG": 8, "SEP": 9, "OCT": 10, "NOV": 11, "DEC": 12,
}

var dayMonthPrefixPattern = regexp.MustCompile(`^(\d{1,2})[\-/][A-Za-z]{3}`)
var slashDayPattern = regexp.MustCompile(`^(\d{1,2})/\d{1,2}`)
var dashMonthPattern = regexp.MustCompile(`^\d{1,2}[\-/]([A-Za-z]{3})`)

func insightsParseDay(date string) (int, bool) {
	date = strings.TrimSpace(date)
	if date == "" {
		return 0, false
	}
	if m := dayMonthPrefixPattern.FindStringSubmatch(date); m != nil {
		var d int
		fmt.Sscanf(m[1], "%d", &d)
		return d, true
	}
	if parts := strings.Fields(date); len(parts) > 0 {
		var d int
		if _, err := fmt.Sscanf(parts[0], "%d", &d); err == nil {
			return d, true
		}
	}
	if m := slashDayPattern.FindStringSubmatch(date); m != nil {
		var d int
		fmt.Sscanf(m[1], "%d", &d)
		return d, true
	}
	return 0, false
}

func insightsParseMonth(date string) (string, bool) {
	date = strings.ToUpper(strings.TrimSpace(date))
	if date == "" {
		return "", false
	}
	if m := dashMonthPattern.FindStringSubmatch(date); m != nil {
		if _, ok := monthOrder[m[1]]; ok {
			return m[1], true
		}
	}
	for _, p := range strings.Fields(date) {
		if _, ok := monthOrder[p]; ok {
			return p, true
		}
	}
	return "", false
}

// InsightsAgent derives business-intelligence analytics from a document's
// (or a group's) transactions: seven analytic passes plus an LLM narrative.
type InsightsAgent struct {
	model *modelclient.Client
}

func NewInsightsAgent(model *modelclient.Client) *InsightsAgent {
	return &InsightsAgent{model: model}
}

func (a *InsightsAgent) Name() store.AgentType { return store.AgentInsights }

func (a *InsightsAgent) Analyse(ctx context.Context, dctx *DocumentContext) (AgentOutcome, error) {
	if len(dctx.Transactions) == 0 {
		return AgentOutcome{
			Results:   map[string]interface{}{"error": "No transactions found — run extraction first"},
			Summary:   "Insights failed: No transactions found — run extraction first",
			RiskLevel: store.RiskLow,
		}, nil
	}

	txns := dctx.Transactions
	metrics := dctx.Metrics

	categoryBreakdown := categoryAnalysis(txns)
	cashFlow := cashFlowAnalysis(txns)
	topCounterparties := counterpartyAnalysis(txns)
	unusual := unusualTransactionDetection(txns)
	dayPatterns := dayOfMonthPatterns(txns)
	channels := channelAnalysis(txns)
	businessHealth := businessHealthIndicators(txns, metrics)

	accountHolder, bank, period := "Unknown", "Unknown", "Unknown"
	var opening, closing float64
	if metrics != nil {
		accountHolder, bank, period = metrics.AccountHolder, metrics.Bank, metrics.StatementPeriod
		opening, closing = metrics.OpeningBalance, metrics.ClosingBalance
	}

	narrative := a.generateNarrative(ctx, accountHolder, bank, period, opening, closing, len(txns), categoryBreakdown, topCounterparties, cashFlow, businessHealth, unusual)

	score := intFromMap(businessHealth, "score")
	flags := intFromMap(unusual, "total_flags")
	risk := assessInsightsRisk(score, flags)

	results := map[string]interface{}{
		"category_breakdown":     categoryBreakdown,
		"cash_flow":               cashFlow,
		"top_counterparties":      topCounterparties,
		"unusual_transactions":    unusual,
		"day_of_month_patterns":   dayPatterns,
		"channel_analysis":        channels,
		"business_health":         businessHealth,
		"narrative":               narrative,
	}

	topDebitCat, _ := categoryBreakdown["top_debit_category"].(string)
	netFlow, _ := cashFlow["net_flow"].(float64)
	summary := fmt.Sprintf("Period: %s | Transactions: %d | Net cash flow: %.2f | Top category: %s | Risk: %s",
		period, len(txns), netFlow, topDebitCat, risk)

	return AgentOutcome{Results: results, Summary: summary, RiskLevel: risk}, nil
}

// AnalyseGroup runs the same seven analytic passes over every transaction in
// the group, plus cross-statement monthly trends and a combined narrative.
func (a *InsightsAgent) AnalyseGroup(ctx context.Context, gctx *GroupContext) (AgentOutcome, error) {
	if len(gctx.Transactions) == 0 {
		return AgentOutcome{
			Results:   map[string]interface{}{"error": "No transactions found across group — run extraction first"},
			Summary:   "Insights failed: No transactions found across group — run extraction first",
			RiskLevel: store.RiskLow,
		}, nil
	}

	txns := gctx.Transactions
	totalDocs := len(gctx.Metrics)

	categoryBreakdown := categoryAnalysis(txns)
	cashFlow := cashFlowAnalysis(txns)
	topCounterparties := counterpartyAnalysis(txns)
	unusual := unusualTransactionDetection(txns)
	dayPatterns := dayOfMonthPatterns(txns)
	channels := channelAnalysis(txns)
	monthlyTrendsResult := monthlyTrends(txns, gctx.Metrics)
	businessHealth := groupBusinessHealth(gctx.Metrics)

	var perStatement []map[string]interface{}
	for _, m := range gctx.Metrics {
		perStatement = append(perStatement, map[string]interface{}{
			"document_id":     m.DocumentID,
			"period":          m.StatementPeriod,
			"bank":            m.Bank,
			"opening_balance": m.OpeningBalance,
			"closing_balance": m.ClosingBalance,
			"total_credits":   m.TotalAmountOfCredits,
			"total_debits":    m.TotalAmountOfDebits,
			"credit_count":    m.TotalNoOfCreditTransactions,
			"debit_count":     m.TotalNoOfDebitTransactions,
		})
	}

	accountHolder, bank, period := "Unknown", "Unknown", "Multiple statements"
	var opening, closing float64
	if len(gctx.Metrics) > 0 {
		accountHolder = gctx.Metrics[0].AccountHolder
		bank = gctx.Metrics[0].Bank
		opening = gctx.Metrics[0].OpeningBalance
		closing = gctx.Metrics[len(gctx.Metrics)-1].ClosingBalance
	}

	narrative := a.generateGroupNarrative(ctx, accountHolder, bank, period, totalDocs, opening, closing, len(txns), categoryBreakdown, topCounterparties, cashFlow, monthlyTrendsResult, businessHealth)

	score := intFromMap(businessHealth, "score")
	flags := intFromMap(unusual, "total_flags")
	risk := assessInsightsRisk(score, flags)

	results := map[string]interface{}{
		"total_statements":      totalDocs,
		"total_transactions":    len(txns),
		"per_statement_summary": perStatement,
		"category_breakdown":    categoryBreakdown,
		"cash_flow":             cashFlow,
		"top_counterparties":    topCounterparties,
		"unusual_transactions":  unusual,
		"day_of_month_patterns": dayPatterns,
		"channel_analysis":      channels,
		"business_health":       businessHealth,
		"monthly_trends":        monthlyTrendsResult,
		"narrative":             narrative,
	}

	topDebitCat, _ := categoryBreakdown["top_debit_category"].(string)
	netFlow, _ := cashFlow["net_flow"].(float64)
	summary := fmt.Sprintf("Statements: %d | Transactions: %d | Net cash flow: %.2f | Top category: %s | Risk: %s",
		totalDocs, len(txns), netFlow, topDebitCat, risk)

	return AgentOutcome{Results: results, Summary: summary, RiskLevel: risk}, nil
}

type catAccum struct {
	count int
	total float64
}

func categoryAnalysis(txns []*store.RawTransaction) map[string]interface{} {
	debitByCat := map[string]*catAccum{}
	creditByCat := map[string]*catAccum{}

	for _, t := range txns {
		cat := t.Category
		if cat == "" {
			cat = "other"
		}
		switch t.Type {
		case store.TxDebit:
			a := debitByCat[cat]
			if a == nil {
				a = &catAccum{}
				debitByCat[cat] = a
			}
			a.count++
			a.total += t.Amount
		case store.TxCredit:
			a := creditByCat[cat]
			if a == nil {
				a = &catAccum{}
				creditByCat[cat] = a
			}
			a.count++
			a.total += t.Amount
		}
	}

	formatCats := func(byCat map[string]*catAccum) ([]map[string]interface{}, float64) {
		var total float64
		for _, a := range byCat {
			total += a.total
		}
		type kv struct {
			cat string
			a   *catAccum
		}
		var items []kv
		for cat, a := range byCat {
			items = append(items, kv{cat, a})
		}
		sort.Slice(items, func(i, j int) bool { return items[i].a.total > items[j].a.total })
		var out []map[string]interface{}
		for _, it := range items {
			pct := 0.0
			if total > 0 {
				pct = it.a.total / total * 100
			}
			label, ok := categoryLabels[it.cat]
			if !ok {
				label = strings.Title(strings.ReplaceAll(it.cat, "_", " "))
			}
			out = append(out, map[string]interface{}{
				"category":   it.cat,
				"label":      label,
				"count":      it.a.count,
				"total":      round2(it.a.total),
				"percentage": round1(pct),
			})
		}
		return out, total
	}

	debitCategories, totalDebits := formatCats(debitByCat)
	creditCategories, totalCredits := formatCats(creditByCat)

	topDebitCat, topCreditCat := "N/A", "N/A"
	if len(debitCategories) > 0 {
		topDebitCat, _ = debitCategories[0]["label"].(string)
	}
	if len(creditCategories) > 0 {
		topCreditCat, _ = creditCategories[0]["label"].(string)
	}

	return map[string]interface{}{
		"debit_categories":     debitCategories,
		"credit_categories":    creditCategories,
		"total_debit_amount":   round2(totalDebits),
		"total_credit_amount":  round2(totalCredits),
		"top_debit_category":   topDebitCat,
		"top_credit_category":  topCreditCat,
		"debit_category_count": len(debitCategories),
		"credit_category_count": len(creditCategories),
	}
}

func cashFlowAnalysis(txns []*store.RawTransaction) map[string]interface{} {
	dailyInflow := map[int]float64{}
	dailyOutflow := map[int]float64{}
	dailyNet := map[int]float64{}

	for _, t := range txns {
		day, ok := insightsParseDay(t.Date)
		if !ok {
			continue
		}
		switch t.Type {
		case store.TxCredit:
			dailyInflow[day] += t.Amount
			dailyNet[day] += t.Amount
		case store.TxDebit:
			dailyOutflow[day] += t.Amount
			dailyNet[day] -= t.Amount
		}
	}

	allDays := map[int]bool{}
	for d := range dailyInflow {
		allDays[d] = true
	}
	for d := range dailyOutflow {
		allDays[d] = true
	}
	var sortedDays []int
	for d := range allDays {
		sortedDays = append(sortedDays, d)
	}
	sort.Ints(sortedDays)

	var dailyFlow []map[string]interface{}
	for _, d := range sortedDays {
		dailyFlow = append(dailyFlow, map[string]interface{}{
			"day":     d,
			"inflow":  round2(dailyInflow[d]),
			"outflow": round2(dailyOutflow[d]),
			"net":     round2(dailyNet[d]),
		})
	}

	var totalInflow, totalOutflow float64
	for _, v := range dailyInflow {
		totalInflow += v
	}
	for _, v := range dailyOutflow {
		totalOutflow += v
	}
	netFlow := totalInflow - totalOutflow

	peakInflowDay, peakOutflowDay := maxKeyByValue(dailyInflow), maxKeyByValue(dailyOutflow)

	weekKeys := []string{"week_1 (1-7)", "week_2 (8-14)", "week_3 (15-21)", "week_4 (22-31)"}
	weekInflow := map[string]float64{}
	weekOutflow := map[string]float64{}
	for _, d := range sortedDays {
		var key string
		switch {
		case d <= 7:
			key = weekKeys[0]
		case d <= 14:
			key = weekKeys[1]
		case d <= 21:
			key = weekKeys[2]
		default:
			key = weekKeys[3]
		}
		weekInflow[key] += dailyInflow[d]
		weekOutflow[key] += dailyOutflow[d]
	}
	var weeklyBreakdown []map[string]interface{}
	for _, k := range weekKeys {
		weeklyBreakdown = append(weeklyBreakdown, map[string]interface{}{
			"week":    k,
			"inflow":  round2(weekInflow[k]),
			"outflow": round2(weekOutflow[k]),
			"net":     round2(weekInflow[k] - weekOutflow[k]),
		})
	}

	direction := "positive"
	if netFlow < 0 {
		direction = "negative"
	}

	return map[string]interface{}{
		"total_inflow":       round2(totalInflow),
		"total_outflow":      round2(totalOutflow),
		"net_flow":           round2(netFlow),
		"net_flow_direction": direction,
		"burn_rate":          round2(totalOutflow),
		"peak_inflow_day":    peakInflowDay,
		"peak_outflow_day":   peakOutflowDay,
		"daily_flow":         dailyFlow,
		"weekly_breakdown":   weeklyBreakdown,
	}
}

func counterpartyAnalysis(txns []*store.RawTransaction) map[string]interface{} {
	vendorTotals := map[string]*catAccum{}
	customerTotals := map[string]*catAccum{}

	for _, t := range txns {
		cp := strings.TrimSpace(t.Counterparty)
		lower := strings.ToLower(cp)
		if cp == "" || lower == "unknown" || lower == "n/a" {
			continue
		}
		switch t.Type {
		case store.TxDebit:
			a := vendorTotals[cp]
			if a == nil {
				a = &catAccum{}
				vendorTotals[cp] = a
			}
			a.count++
			a.total += t.Amount
		case store.TxCredit:
			a := customerTotals[cp]
			if a == nil {
				a = &catAccum{}
				customerTotals[cp] = a
			}
			a.count++
			a.total += t.Amount
		}
	}

	type kv struct {
		name string
		a    *catAccum
	}
	toSorted := func(m map[string]*catAccum) []kv {
		var items []kv
		for n, a := range m {
			items = append(items, kv{n, a})
		}
		sort.Slice(items, func(i, j int) bool { return items[i].a.total > items[j].a.total })
		return items
	}
	limit := func(items []kv, n int) []kv {
		if len(items) > n {
			return items[:n]
		}
		return items
	}
	format := func(items []kv) []map[string]interface{} {
		var out []map[string]interface{}
		for _, it := range items {
			out = append(out, map[string]interface{}{"name": it.name, "count": it.a.count, "total": round2(it.a.total)})
		}
		return out
	}

	topVendors := limit(toSorted(vendorTotals), 15)
	topCustomers := limit(toSorted(customerTotals), 15)

	byCount := toSorted(vendorTotals)
	sort.Slice(byCount, func(i, j int) bool { return byCount[i].a.count > byCount[j].a.count })
	var recurring []kv
	for _, it := range byCount {
		if it.a.count >= 3 {
			recurring = append(recurring, it)
		}
	}
	recurring = limit(recurring, 10)

	return map[string]interface{}{
		"top_vendors":            format(topVendors),
		"top_customers":          format(topCustomers),
		"recurring_vendors":      format(recurring),
		"unique_vendor_count":    len(vendorTotals),
		"unique_customer_count":  len(customerTotals),
	}
}

func unusualTransactionDetection(txns []*store.RawTransaction) map[string]interface{} {
	var debits, credits []*store.RawTransaction
	for _, t := range txns {
		if t.Type == store.TxDebit && t.Amount != 0 {
			debits = append(debits, t)
		}
		if t.Type == store.TxCredit && t.Amount != 0 {
			credits = append(credits, t)
		}
	}

	var unusual []map[string]interface{}

	if len(debits) > 0 {
		avg := sumTxnAmounts(debits) / float64(len(debits))
		threshold := avg * 3
		for _, t := range debits {
			if t.Amount >= threshold {
				multiple := t.Amount / avg
				unusual = append(unusual, map[string]interface{}{
					"type": "large_debit", "date": t.Date, "description": t.Description, "amount": t.Amount,
					"reason": fmt.Sprintf("Amount (%.2f) is >3x the average debit (%.2f)", t.Amount, avg),
					"explanation": fmt.Sprintf("This outgoing payment of %.2f is %.1fx the average debit of %.2f. Transactions significantly above the account's typical spending pattern may indicate bulk payments, one-off capital expenditures, or potentially unauthorized large withdrawals.", t.Amount, multiple, avg),
				})
			}
		}
	}
	if len(credits) > 0 {
		avg := sumTxnAmounts(credits) / float64(len(credits))
		threshold := avg * 3
		for _, t := range credits {
			if t.Amount >= threshold {
				multiple := t.Amount / avg
				unusual = append(unusual, map[string]interface{}{
					"type": "large_credit", "date": t.Date, "description": t.Description, "amount": t.Amount,
					"reason": fmt.Sprintf("Amount (%.2f) is >3x the average credit (%.2f)", t.Amount, avg),
					"explanation": fmt.Sprintf("This incoming payment of %.2f is %.1fx the average credit of %.2f. Unusually large inflows may represent one-off settlements, large client payments, loan disbursements, or irregular deposits that merit source verification.", t.Amount, multiple, avg),
				})
			}
		}
	}

	var roundTxns []map[string]interface{}
	for _, t := range txns {
		if t.Amount >= 1000 && math.Mod(t.Amount, 1000) == 0 {
			roundTxns = append(roundTxns, map[string]interface{}{
				"type": "round_number", "date": t.Date, "description": t.Description, "amount": t.Amount, "transaction_type": t.Type,
				"reason":      fmt.Sprintf("Exact round amount of %.0f — may indicate a manual or structured transfer rather than an organic payment", t.Amount),
				"explanation": fmt.Sprintf("This %s of %.2f is an exact multiple of 1,000. Round-number transactions can signal manual transfers, loan repayments, or structured deposits that warrant closer review.", t.Type, t.Amount),
			})
		}
	}

	type dayMovement struct{ credits, debits float64 }
	dayMovements := map[string]*dayMovement{}
	for _, t := range txns {
		if t.Date == "" || t.Amount == 0 {
			continue
		}
		dm := dayMovements[t.Date]
		if dm == nil {
			dm = &dayMovement{}
			dayMovements[t.Date] = dm
		}
		if t.Type == store.TxCredit {
			dm.credits += t.Amount
		} else {
			dm.debits += t.Amount
		}
	}
	var sameDayFlags []map[string]interface{}
	for day, mv := range dayMovements {
		if mv.credits > 5000 && mv.debits > 5000 {
			net := mv.credits - mv.debits
			sameDayFlags = append(sameDayFlags, map[string]interface{}{
				"type": "same_day_large_movement", "date": day,
				"credits": round2(mv.credits), "debits": round2(mv.debits), "amount": round2(mv.credits + mv.debits),
				"reason":      "Both large credits and debits on the same day",
				"description": fmt.Sprintf("Credits: %.2f | Debits: %.2f | Net: %.2f", mv.credits, mv.debits, net),
				"explanation": fmt.Sprintf("On %s, the account received %.2f in credits and sent out %.2f in debits (net: %.2f). Same-day large bi-directional flows can indicate pass-through activity, money laundering layering, or fund restructuring.", day, mv.credits, mv.debits, net),
			})
		}
	}

	var lowBalanceEvents []map[string]interface{}
	seenDates := map[string]bool{}
	for _, t := range txns {
		if t.Balance == nil || *t.Balance >= 10000 || seenDates[t.Date] {
			continue
		}
		lowBalanceEvents = append(lowBalanceEvents, map[string]interface{}{
			"type": "low_balance", "date": t.Date, "balance": *t.Balance, "amount": *t.Balance, "description": t.Description,
			"reason":      fmt.Sprintf("Account balance dropped to %.2f", *t.Balance),
			"explanation": fmt.Sprintf("After transaction '%s', the account balance fell to %.2f. Low balances may indicate cash flow stress, over-commitment, or an impending overdraft.", truncate(t.Description, 60), *t.Balance),
		})
		seenDates[t.Date] = true
	}

	largeTransactions := limitMaps(unusual, 20)
	roundNumberTransactions := limitMaps(roundTxns, 20)

	return map[string]interface{}{
		"large_transactions":         largeTransactions,
		"round_number_transactions":  roundNumberTransactions,
		"same_day_large_movements":   sameDayFlags,
		"low_balance_events":         limitMaps(lowBalanceEvents, 10),
		"total_flags":                len(unusual) + len(sameDayFlags) + len(lowBalanceEvents),
	}
}

func dayOfMonthPatterns(txns []*store.RawTransaction) map[string]interface{} {
	dayCounts := map[int]int{}
	dayAmounts := map[int]float64{}
	for _, t := range txns {
		if day, ok := insightsParseDay(t.Date); ok {
			dayCounts[day]++
			dayAmounts[day] += t.Amount
		}
	}
	var days []int
	for d := range dayCounts {
		days = append(days, d)
	}
	sort.Ints(days)

	var pattern []map[string]interface{}
	for _, d := range days {
		pattern = append(pattern, map[string]interface{}{
			"day": d, "transaction_count": dayCounts[d], "total_amount": round2(dayAmounts[d]),
		})
	}

	busiest := maxKeyByIntValue(dayCounts)
	quietest := minKeyByIntValue(dayCounts)
	highestValue := maxKeyByValue(dayAmounts)

	return map[string]interface{}{
		"daily_pattern":      pattern,
		"busiest_day":        busiest,
		"quietest_day":       quietest,
		"highest_value_day":  highestValue,
		"active_days":        len(dayCounts),
	}
}

func channelAnalysis(txns []*store.RawTransaction) map[string]interface{} {
	channelData := map[string]*catAccum{}
	for _, t := range txns {
		ch := strings.TrimSpace(t.Channel)
		if ch == "" {
			ch = "Unknown"
		}
		a := channelData[ch]
		if a == nil {
			a = &catAccum{}
			channelData[ch] = a
		}
		a.count++
		a.total += t.Amount
	}

	type kv struct {
		name string
		a    *catAccum
	}
	var items []kv
	var totalAmount float64
	for n, a := range channelData {
		items = append(items, kv{n, a})
		totalAmount += a.total
	}
	sort.Slice(items, func(i, j int) bool { return items[i].a.total > items[j].a.total })

	var channels []map[string]interface{}
	for _, it := range items {
		pct := 0.0
		if totalAmount > 0 {
			pct = it.a.total / totalAmount * 100
		}
		channels = append(channels, map[string]interface{}{
			"channel": it.name, "count": it.a.count, "total": round2(it.a.total), "percentage": round1(pct),
		})
	}

	dominant := "N/A"
	if len(items) > 0 {
		dominant = items[0].name
	}

	return map[string]interface{}{
		"channels":        channels,
		"dominant_channel": dominant,
		"total_channels":   len(items),
	}
}

func businessHealthIndicators(txns []*store.RawTransaction, metrics *store.StatementMetrics) map[string]interface{} {
	if metrics == nil {
		return map[string]interface{}{"score": 0, "indicators": map[string]interface{}{}, "assessment": "Insufficient data"}
	}

	indicators := map[string]interface{}{}
	opening, closing := metrics.OpeningBalance, metrics.ClosingBalance
	totalOut, totalIn := metrics.TotalAmountOfDebits, metrics.TotalAmountOfCredits

	runwayMonths := 0.0
	if totalOut > 0 {
		runwayMonths = closing / totalOut
	}
	indicators["cash_runway_months"] = round2(runwayMonths)

	coverage := 0.0
	if totalOut > 0 {
		coverage = totalIn / totalOut
	}
	indicators["revenue_coverage_ratio"] = round3(coverage)

	balanceChange := closing - opening
	balanceChangePct := 0.0
	if opening > 0 {
		balanceChangePct = balanceChange / opening * 100
	}
	indicators["balance_change"] = round2(balanceChange)
	indicators["balance_change_pct"] = round1(balanceChangePct)
	trend := "declining"
	if balanceChange > 0 {
		trend = "growing"
	}
	indicators["balance_trend"] = trend

	cashRatio := 0.0
	if totalIn > 0 {
		cashRatio = metrics.TotalAmountOfCashDeposits / totalIn * 100
	}
	indicators["cash_deposit_ratio_pct"] = round1(cashRatio)

	feeBurden := 0.0
	if totalOut > 0 {
		feeBurden = metrics.TotalFeesCharged / totalOut * 100
	}
	indicators["fee_burden_pct"] = round3(feeBurden)
	indicators["total_fees"] = round2(metrics.TotalFeesCharged)

	activeDays := map[int]bool{}
	for _, t := range txns {
		if d, ok := insightsParseDay(t.Date); ok {
			activeDays[d] = true
		}
	}
	daysActive := len(activeDays)
	velocity := 0.0
	if daysActive > 0 {
		velocity = float64(len(txns)) / float64(daysActive)
	}
	indicators["daily_transaction_velocity"] = round1(velocity)
	indicators["active_days"] = daysActive

	avgDailySpend := 0.0
	if daysActive > 0 {
		avgDailySpend = totalOut / float64(daysActive)
	}
	minBalCoverDays := 0.0
	if avgDailySpend > 0 {
		minBalCoverDays = metrics.MinBalance / avgDailySpend
	}
	indicators["min_balance_cover_days"] = round1(minBalCoverDays)

	score := 50
	if coverage >= 1.0 {
		score += 10
	}
	if coverage >= 0.8 {
		score += 5
	}
	if closing >= opening {
		score += 10
	}
	if runwayMonths >= 0.5 {
		score += 5
	}
	if runwayMonths >= 1.0 {
		score += 5
	}
	if minBalCoverDays >= 3 {
		score += 5
	}
	if coverage < 0.5 {
		score -= 15
	}
	if closing < opening*0.5 {
		score -= 10
	}
	if metrics.MinBalance < 5000 {
		score -= 10
	}
	if cashRatio > 30 {
		score -= 5
	}
	if runwayMonths < 0.1 {
		score -= 10
	}
	score = clampScore(score)

	return map[string]interface{}{
		"score":      score,
		"assessment": healthAssessment(score),
		"indicators": indicators,
	}
}

func monthlyTrends(txns []*store.RawTransaction, allMetrics []*store.StatementMetrics) map[string]interface{} {
	type monthAccum struct {
		credits, debits           float64
		creditCount, debitCount int
	}
	monthly := map[string]*monthAccum{}
	for _, t := range txns {
		month, ok := insightsParseMonth(t.Date)
		if !ok {
			continue
		}
		m := monthly[month]
		if m == nil {
			m = &monthAccum{}
			monthly[month] = m
		}
		switch t.Type {
		case store.TxCredit:
			m.credits += t.Amount
			m.creditCount++
		case store.TxDebit:
			m.debits += t.Amount
			m.debitCount++
		}
	}

	var months []string
	for m := range monthly {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return monthOrder[months[i]] < monthOrder[months[j]] })

	var monthlyFlow []map[string]interface{}
	for _, month := range months {
		d := monthly[month]
		monthlyFlow = append(monthlyFlow, map[string]interface{}{
			"month": month, "total_credits": round2(d.credits), "total_debits": round2(d.debits),
			"net_flow": round2(d.credits - d.debits), "credit_count": d.creditCount, "debit_count": d.debitCount,
		})
	}

	var balanceTrajectory []map[string]interface{}
	for _, m := range allMetrics {
		balanceTrajectory = append(balanceTrajectory, map[string]interface{}{
			"period": m.StatementPeriod, "opening_balance": m.OpeningBalance, "closing_balance": m.ClosingBalance,
			"max_balance": m.MaxBalance, "min_balance": m.MinBalance,
		})
	}

	return map[string]interface{}{
		"monthly_flow":        monthlyFlow,
		"balance_trajectory":  balanceTrajectory,
		"total_months":        len(months),
	}
}

func groupBusinessHealth(allMetrics []*store.StatementMetrics) map[string]interface{} {
	if len(allMetrics) == 0 {
		return map[string]interface{}{"score": 0, "indicators": map[string]interface{}{}, "assessment": "Insufficient data"}
	}

	indicators := map[string]interface{}{}
	firstOpening := allMetrics[0].OpeningBalance
	lastClosing := allMetrics[len(allMetrics)-1].ClosingBalance
	balanceChange := lastClosing - firstOpening
	indicators["overall_balance_change"] = round2(balanceChange)
	pct := 0.0
	if firstOpening != 0 {
		pct = balanceChange / firstOpening * 100
	}
	indicators["overall_balance_change_pct"] = round1(pct)
	trend := "declining"
	if balanceChange > 0 {
		trend = "growing"
	}
	indicators["balance_trend"] = trend

	var totalIn, totalOut float64
	for _, m := range allMetrics {
		totalIn += m.TotalAmountOfCredits
		totalOut += m.TotalAmountOfDebits
	}
	indicators["total_credits_all"] = round2(totalIn)
	indicators["total_debits_all"] = round2(totalOut)
	coverage := 0.0
	if totalOut > 0 {
		coverage = totalIn / totalOut
	}
	indicators["revenue_coverage_ratio"] = round3(coverage)

	numMonths := len(allMetrics)
	indicators["avg_monthly_credits"] = round2(totalIn / float64(numMonths))
	indicators["avg_monthly_debits"] = round2(totalOut / float64(numMonths))
	indicators["avg_monthly_net"] = round2((totalIn - totalOut) / float64(numMonths))

	avgMonthlyOut := totalOut / float64(numMonths)
	runway := 0.0
	if avgMonthlyOut > 0 {
		runway = lastClosing / avgMonthlyOut
	}
	indicators["cash_runway_months"] = round2(runway)

	var closings []float64
	for _, m := range allMetrics {
		closings = append(closings, m.ClosingBalance)
	}
	if len(closings) > 1 {
		sd := stdDev(closings)
		indicators["balance_std_dev"] = round2(sd)
		mean := meanOf(closings)
		cv := 0.0
		if mean > 0 {
			cv = sd / mean * 100
		}
		indicators["balance_cv"] = round1(cv)
	} else {
		indicators["balance_std_dev"] = 0.0
		indicators["balance_cv"] = 0.0
	}

	score := 50
	if coverage >= 1.0 {
		score += 10
	}
	if coverage >= 0.8 {
		score += 5
	}
	if balanceChange > 0 {
		score += 10
	}
	if runway >= 1.0 {
		score += 10
	} else if runway >= 0.5 {
		score += 5
	}
	if coverage < 0.5 {
		score -= 15
	}
	if balanceChange < -firstOpening*0.3 {
		score -= 10
	}
	if runway < 0.2 {
		score -= 10
	}
	score = clampScore(score)

	return map[string]interface{}{
		"score":                score,
		"assessment":           groupHealthAssessment(score),
		"indicators":           indicators,
		"statements_analyzed": len(allMetrics),
	}
}

func healthAssessment(score int) string {
	switch {
	case score >= 80:
		return "Strong — healthy cash flows with positive trajectory"
	case score >= 60:
		return "Moderate — stable but watch for declining balances"
	case score >= 40:
		return "Caution — cash flow strain detected"
	default:
		return "Concern — significant cash flow issues observed"
	}
}

func groupHealthAssessment(score int) string {
	switch {
	case score >= 80:
		return "Strong — healthy cash flows across the analysis period"
	case score >= 60:
		return "Moderate — stable with some areas to watch"
	case score >= 40:
		return "Caution — cash flow strain detected across statements"
	default:
		return "Concern — significant cash flow issues across the period"
	}
}

func assessInsightsRisk(score, flags int) store.RiskLevel {
	switch {
	case score >= 70 && flags < 5:
		return store.RiskLow
	case score >= 50 && flags < 15:
		return store.RiskMedium
	case score >= 30:
		return store.RiskHigh
	default:
		return store.RiskCritical
	}
}

func (a *InsightsAgent) generateNarrative(ctx context.Context, accountHolder, bank, period string, opening, closing float64, totalTxns int,
	categoryBreakdown, topCounterparties, cashFlow, businessHealth, unusual map[string]interface{}) map[string]interface{} {

	debitCats, _ := categoryBreakdown["debit_categories"].([]map[string]interface{})
	vendors, _ := topCounterparties["top_vendors"].([]map[string]interface{})
	customers, _ := topCounterparties["top_customers"].([]map[string]interface{})

	prompt := fmt.Sprintf(`You are a senior financial analyst reviewing a business bank statement.
Generate a concise but insightful narrative analysis based on the data below.

**Account**: %s at %s
**Period**: %s
**Opening Balance**: %.2f
**Closing Balance**: %.2f
**Total Transactions**: %d

**Category Breakdown (Top Debits)**: %v

**Top Vendors**: %v

**Top Customers/Senders**: %v

**Cash Flow**:
- Total Inflow: %v
- Total Outflow: %v
- Net Flow: %v
- Peak Inflow Day: %v
- Peak Outflow Day: %v

**Business Health Score**: %v/100 — %v
**Key Indicators**: %v

**Unusual Transactions**: %v flags detected

Return a JSON object with these keys:
{
  "executive_summary": "2-3 sentence high-level summary",
  "spending_analysis": "3-4 sentences on spending patterns and major expense categories",
  "income_analysis": "2-3 sentences on income sources and patterns",
  "cash_flow_assessment": "2-3 sentences on cash flow health, burn rate, and trajectory",
  "risk_observations": "2-3 sentences on any concerning patterns or red flags",
  "recommendations": ["recommendation 1", "recommendation 2", "recommendation 3"]
}`,
		accountHolder, bank, period, opening, closing, totalTxns,
		limitSlice(debitCats, 5), limitSlice(vendors, 8), limitSlice(customers, 5),
		cashFlow["total_inflow"], cashFlow["total_outflow"], cashFlow["net_flow"],
		cashFlow["peak_inflow_day"], cashFlow["peak_outflow_day"],
		businessHealth["score"], businessHealth["assessment"], businessHealth["indicators"],
		unusual["total_flags"])

	return a.runNarrativePrompt(ctx, prompt, failedNarrative())
}

func (a *InsightsAgent) generateGroupNarrative(ctx context.Context, accountHolder, bank, period string, totalStatements int, opening, closing float64, totalTxns int,
	categoryBreakdown, topCounterparties, cashFlow, monthlyTrendsResult, businessHealth map[string]interface{}) map[string]interface{} {

	debitCats, _ := categoryBreakdown["debit_categories"].([]map[string]interface{})
	vendors, _ := topCounterparties["top_vendors"].([]map[string]interface{})

	prompt := fmt.Sprintf(`You are a senior financial analyst reviewing MULTIPLE bank statements for the same customer.
Generate a comprehensive narrative analysis covering the full period.

**Account**: %s at %s
**Period**: %s
**Total Statements**: %d
**Total Transactions**: %d
**Opening Balance (first statement)**: %.2f
**Closing Balance (last statement)**: %.2f

**Category Breakdown (Top Debits)**: %v

**Top Vendors**: %v

**Cash Flow**:
- Total Inflow: %v
- Total Outflow: %v
- Net Flow: %v

**Monthly Trends**: %v

**Business Health Score**: %v/100 — %v

Return a JSON object with these keys:
{
  "executive_summary": "3-4 sentence high-level summary covering the full period",
  "spending_analysis": "3-4 sentences on spending patterns and trends across months",
  "income_analysis": "2-3 sentences on income stability and sources",
  "cash_flow_assessment": "3-4 sentences on cash flow trajectory and sustainability",
  "trend_analysis": "2-3 sentences on month-over-month trends and patterns",
  "risk_observations": "2-3 sentences on concerning patterns across statements",
  "recommendations": ["recommendation 1", "recommendation 2", "recommendation 3", "recommendation 4"]
}`,
		accountHolder, bank, period, totalStatements, totalTxns, opening, closing,
		limitSlice(debitCats, 5), limitSlice(vendors, 8),
		cashFlow["total_inflow"], cashFlow["total_outflow"], cashFlow["net_flow"],
		monthlyTrendsResult["monthly_flow"], businessHealth["score"], businessHealth["assessment"])

	narrative := failedNarrative()
	narrative["trend_analysis"] = ""
	return a.runNarrativePrompt(ctx, prompt, narrative)
}

func (a *InsightsAgent) runNarrativePrompt(ctx context.Context, prompt string, fallback map[string]interface{}) map[string]interface{} {
	messages := []modelclient.Message{
		{Role: "system", Content: "You are a senior financial analyst. Return ONLY valid JSON."},
		{Role: "user", Content: prompt},
	}
	res := a.model.CompleteText(ctx, messages, 0.3, 2500, true)
	if !res.Success() {
		return fallback
	}
	var narrative map[string]interface{}
	if err := jsonutil.SmartParse(res.Text, &narrative); err != nil {
		return fallback
	}
	return narrative
}

func failedNarrative() map[string]interface{} {
	return map[string]interface{}{
		"executive_summary":    "Narrative generation failed — see structured data for insights.",
		"spending_analysis":    "",
		"income_analysis":      "",
		"cash_flow_assessment": "",
		"risk_observations":    "",
		"recommendations":      []string{},
	}
}

func sumTxnAmounts(txns []*store.RawTransaction) float64 {
	var total float64
	for _, t := range txns {
		total += t.Amount
	}
	return total
}

func limitMaps(items []map[string]interface{}, n int) []map[string]interface{} {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func limitSlice(items []map[string]interface{}, n int) []map[string]interface{} {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func maxKeyByValue(m map[int]float64) interface{} {
	if len(m) == 0 {
		return nil
	}
	var bestKey int
	var bestVal float64
	first := true
	for k, v := range m {
		if first || v > bestVal {
			bestKey, bestVal, first = k, v, false
		}
	}
	return bestKey
}

func maxKeyByIntValue(m map[int]int) interface{} {
	if len(m) == 0 {
		return nil
	}
	var bestKey, bestVal int
	first := true
	for k, v := range m {
		if first || v > bestVal {
			bestKey, bestVal, first = k, v, false
		}
	}
	return bestKey
}

func minKeyByIntValue(m map[int]int) interface{} {
	if len(m) == 0 {
		return nil
	}
	var bestKey, bestVal int
	first := true
	for k, v := range m {
		if first || v < bestVal {
			bestKey, bestVal, first = k, v, false
		}
	}
	return bestKey
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }
func round1(f float64) float64 { return math.Round(f*10) / 10 }
func round3(f float64) float64 { return math.Round(f*1000) / 1000 }

var _ Agent = (*InsightsAgent)(nil)
var _ GroupAgent = (*InsightsAgent)(nil)
