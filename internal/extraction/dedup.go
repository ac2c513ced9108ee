package extraction

import (
	"fmt"

	"github.com/castlemilk/thirdeye/backend/internal/store"
)

// dedupe runs the two-pass de-duplication: exact
// fingerprint match first (catches identical rows pulled twice, e.g. a
// page re-read across tier boundaries), then a looser balance-based fuzzy
// pass for credit/debit rows that carry a known balance (catches the same
// transaction rendered with slightly different description whitespace).
// Both passes keep the first occurrence and drop the rest.
func dedupe(txns []*txn) []*txn {
	txns = dedupeExact(txns)
	txns = dedupeFuzzy(txns)
	return txns
}

func dedupeExact(txns []*txn) []*txn {
	seen := make(map[string]bool, len(txns))
	out := make([]*txn, 0, len(txns))
	for _, t := range txns {
		key := exactFingerprint(t)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

func exactFingerprint(t *txn) string {
	desc := t.Description
	if len(desc) > 60 {
		desc = desc[:60]
	}
	return fmt.Sprintf("%s|%s|%s|%s|%s", t.Date, desc, amountKey(t.Amount), amountKey(t.Balance), t.Type)
}

// dedupeFuzzy only applies to credit/debit rows with a known balance —
// opening/closing markers and balance-less rows are left untouched since a
// shared (date,type) alone is not a reliable collision signal for them.
func dedupeFuzzy(txns []*txn) []*txn {
	seen := make(map[string]bool, len(txns))
	out := make([]*txn, 0, len(txns))
	for _, t := range txns {
		if (t.Type != store.TxCredit && t.Type != store.TxDebit) || t.Balance == nil || t.Amount == nil {
			out = append(out, t)
			continue
		}
		key := fmt.Sprintf("%s|%s|%s|%s", t.Date, amountKey(t.Balance), t.Type, amountKey(t.Amount))
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

func amountKey(v *float64) string {
	if v == nil {
		return "nil"
	}
	return formatAmount(*v)
}
