// Package store persists documents, upload groups, raw transactions,
// per-statement and aggregated metrics, and per-agent results. Two
// implementations share the Store interface: an in-memory map-backed store
// for tests and local runs, and a Firestore-backed store for production.
package store

import "time"

// DocumentStatus tracks a Document's position in the pipeline.
type DocumentStatus string

const (
	DocumentUploaded   DocumentStatus = "uploaded"
	DocumentProcessing DocumentStatus = "processing"
	DocumentCompleted  DocumentStatus = "completed"
	DocumentFailed     DocumentStatus = "failed"
)

// AgentType names one of the five analytical agents.
type AgentType string

const (
	AgentLayout     AgentType = "layout"
	AgentExtraction AgentType = "extraction"
	AgentTampering  AgentType = "tampering"
	AgentFraud      AgentType = "fraud"
	AgentInsights   AgentType = "insights"
)

// AgentStatus is the lifecycle of one (document, agent) or (group, agent) run.
type AgentStatus string

const (
	AgentPending   AgentStatus = "pending"
	AgentRunning   AgentStatus = "running"
	AgentCompleted AgentStatus = "completed"
	AgentFailed    AgentStatus = "failed"
)

// RiskLevel is the agent's overall risk roll-up.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// TransactionType classifies a RawTransaction row.
type TransactionType string

const (
	TxCredit         TransactionType = "credit"
	TxDebit          TransactionType = "debit"
	TxOpeningBalance TransactionType = "opening_balance"
	TxClosingBalance TransactionType = "closing_balance"
)

// UploadGroup is the aggregate root owning one or more Documents. The group
// and its Documents are written by separate store calls; creating them is
// not atomic.
type UploadGroup struct {
	ID        string    `firestore:"id" json:"id"`
	OwnerID   string    `firestore:"ownerId" json:"ownerId"`
	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
}

// Document is one uploaded PDF bank statement.
type Document struct {
	ID              string         `firestore:"id" json:"id"`
	GroupID         string         `firestore:"groupId" json:"groupId"`
	OwnerID         string         `firestore:"ownerId" json:"ownerId"`
	Path            string         `firestore:"path" json:"path"`
	OriginalName    string         `firestore:"originalName" json:"originalName"`
	PageCount       int            `firestore:"pageCount" json:"pageCount"`
	SizeBytes       int64          `firestore:"sizeBytes" json:"sizeBytes"`
	Status          DocumentStatus `firestore:"status" json:"status"`
	CreatedAt       time.Time      `firestore:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time      `firestore:"updatedAt" json:"updatedAt"`
}

// RawTransaction is one canonicalised transaction line from a statement.
type RawTransaction struct {
	ID             string          `firestore:"id" json:"id"`
	DocumentID     string          `firestore:"documentId" json:"documentId"`
	GroupID        string          `firestore:"groupId" json:"groupId"`
	Date           string          `firestore:"date" json:"date"` // "DD MMM"
	Description    string          `firestore:"description" json:"description"`
	Type           TransactionType `firestore:"type" json:"type"`
	Amount         float64         `firestore:"amount" json:"amount"`
	Balance        *float64        `firestore:"balance,omitempty" json:"balance,omitempty"`
	Reference      string          `firestore:"reference" json:"reference"`
	Category       string          `firestore:"category" json:"category"`
	Counterparty   string          `firestore:"counterparty" json:"counterparty"`
	Channel        string          `firestore:"channel" json:"channel"`
	IsCash         bool            `firestore:"isCash" json:"isCash"`
	IsCheque       bool            `firestore:"isCheque" json:"isCheque"`
	Currency       string          `firestore:"currency" json:"currency"`
	Page           int             `firestore:"page" json:"page"`
	SectionID      int             `firestore:"sectionId" json:"sectionId"`
	RawText        string          `firestore:"rawText" json:"rawText"`
}

// CurrencyBreakdown is one per-currency slice of a StatementMetrics row.
type CurrencyBreakdown struct {
	Currency            string  `firestore:"currency" json:"currency"`
	OpeningBalance      float64 `firestore:"openingBalance" json:"openingBalance"`
	ClosingBalance      float64 `firestore:"closingBalance" json:"closingBalance"`
	TotalCredits        float64 `firestore:"totalCredits" json:"totalCredits"`
	TotalDebits         float64 `firestore:"totalDebits" json:"totalDebits"`
	CreditCount         int     `firestore:"creditCount" json:"creditCount"`
	DebitCount          int     `firestore:"debitCount" json:"debitCount"`
}

// StatementMetrics is the per-document (unique) financial summary.
type StatementMetrics struct {
	DocumentID      string  `firestore:"documentId" json:"documentId"`
	GroupID         string  `firestore:"groupId" json:"groupId"`
	AccountHolder   string  `firestore:"accountHolder" json:"accountHolder"`
	Bank            string  `firestore:"bank" json:"bank"`
	AccountNumber   string  `firestore:"accountNumber" json:"accountNumber"`
	Currency        string  `firestore:"currency" json:"currency"`
	StatementPeriod string  `firestore:"statementPeriod" json:"statementPeriod"`
	MonthsCovered   int     `firestore:"monthsCovered" json:"monthsCovered"`

	OpeningBalance float64 `firestore:"openingBalance" json:"openingBalance"`
	ClosingBalance float64 `firestore:"closingBalance" json:"closingBalance"`
	MaxBalance     float64 `firestore:"maxBalance" json:"maxBalance"`
	MinBalance     float64 `firestore:"minBalance" json:"minBalance"`
	AvgBalance     float64 `firestore:"avgBalance" json:"avgBalance"`

	TotalNoOfCreditTransactions int     `firestore:"totalNoOfCreditTransactions" json:"totalNoOfCreditTransactions"`
	TotalNoOfDebitTransactions  int     `firestore:"totalNoOfDebitTransactions" json:"totalNoOfDebitTransactions"`
	TotalAmountOfCredits        float64 `firestore:"totalAmountOfCredits" json:"totalAmountOfCredits"`
	TotalAmountOfDebits         float64 `firestore:"totalAmountOfDebits" json:"totalAmountOfDebits"`

	TotalNoOfCashDeposits        int     `firestore:"totalNoOfCashDeposits" json:"totalNoOfCashDeposits"`
	TotalNoOfCashWithdrawals     int     `firestore:"totalNoOfCashWithdrawals" json:"totalNoOfCashWithdrawals"`
	TotalAmountOfCashDeposits    float64 `firestore:"totalAmountOfCashDeposits" json:"totalAmountOfCashDeposits"`
	TotalAmountOfCashWithdrawals float64 `firestore:"totalAmountOfCashWithdrawals" json:"totalAmountOfCashWithdrawals"`

	TotalNoOfChequeDeposits        int     `firestore:"totalNoOfChequeDeposits" json:"totalNoOfChequeDeposits"`
	TotalNoOfChequeWithdrawals     int     `firestore:"totalNoOfChequeWithdrawals" json:"totalNoOfChequeWithdrawals"`
	TotalAmountOfChequeDeposits    float64 `firestore:"totalAmountOfChequeDeposits" json:"totalAmountOfChequeDeposits"`
	TotalAmountOfChequeWithdrawals float64 `firestore:"totalAmountOfChequeWithdrawals" json:"totalAmountOfChequeWithdrawals"`

	TotalFeesCharged float64 `firestore:"totalFeesCharged" json:"totalFeesCharged"`

	CurrencyBreakdown []CurrencyBreakdown `firestore:"currencyBreakdown,omitempty" json:"currencyBreakdown,omitempty"`
}

// AggregatedMetrics is the per-group (unique) cross-statement summary.
type AggregatedMetrics struct {
	GroupID string `firestore:"groupId" json:"groupId"`

	AccountHolder string `firestore:"accountHolder" json:"accountHolder"`
	Currency      string `firestore:"currency" json:"currency"`

	OpeningBalance float64 `firestore:"openingBalance" json:"openingBalance"`
	ClosingBalance float64 `firestore:"closingBalance" json:"closingBalance"`
	MaxBalance     float64 `firestore:"maxBalance" json:"maxBalance"`
	MinBalance     float64 `firestore:"minBalance" json:"minBalance"`
	AvgBalance     float64 `firestore:"avgBalance" json:"avgBalance"`

	TotalNoOfCreditTransactions int     `firestore:"totalNoOfCreditTransactions" json:"totalNoOfCreditTransactions"`
	TotalNoOfDebitTransactions  int     `firestore:"totalNoOfDebitTransactions" json:"totalNoOfDebitTransactions"`
	TotalAmountOfCredits        float64 `firestore:"totalAmountOfCredits" json:"totalAmountOfCredits"`
	TotalAmountOfDebits         float64 `firestore:"totalAmountOfDebits" json:"totalAmountOfDebits"`

	TotalNoOfCashDeposits        int     `firestore:"totalNoOfCashDeposits" json:"totalNoOfCashDeposits"`
	TotalNoOfCashWithdrawals     int     `firestore:"totalNoOfCashWithdrawals" json:"totalNoOfCashWithdrawals"`
	TotalAmountOfCashDeposits    float64 `firestore:"totalAmountOfCashDeposits" json:"totalAmountOfCashDeposits"`
	TotalAmountOfCashWithdrawals float64 `firestore:"totalAmountOfCashWithdrawals" json:"totalAmountOfCashWithdrawals"`

	TotalNoOfChequeDeposits        int     `firestore:"totalNoOfChequeDeposits" json:"totalNoOfChequeDeposits"`
	TotalNoOfChequeWithdrawals     int     `firestore:"totalNoOfChequeWithdrawals" json:"totalNoOfChequeWithdrawals"`
	TotalAmountOfChequeDeposits    float64 `firestore:"totalAmountOfChequeDeposits" json:"totalAmountOfChequeDeposits"`
	TotalAmountOfChequeWithdrawals float64 `firestore:"totalAmountOfChequeWithdrawals" json:"totalAmountOfChequeWithdrawals"`

	TotalFeesCharged float64 `firestore:"totalFeesCharged" json:"totalFeesCharged"`

	// Charting arrays, one entry per month (the MMM token of "DD MMM" dates),
	// in calendar-month order JAN..DEC; years are not distinguished.
	MonthlyCreditTotals []MonthlyTotal `firestore:"monthlyCreditTotals" json:"monthlyCreditTotals"`
	MonthlyDebitTotals  []MonthlyTotal `firestore:"monthlyDebitTotals" json:"monthlyDebitTotals"`
	MonthlyBalances     []MonthlyTotal `firestore:"monthlyBalances" json:"monthlyBalances"`
}

// MonthlyTotal is one point in a charting array.
type MonthlyTotal struct {
	Month string  `firestore:"month" json:"month"`
	Value float64 `firestore:"value" json:"value"`
}

// AgentResult is the persisted outcome of one (document, agent) run.
type AgentResult struct {
	DocumentID   string                 `firestore:"documentId" json:"documentId"`
	GroupID      string                 `firestore:"groupId" json:"groupId"`
	AgentType    AgentType              `firestore:"agentType" json:"agentType"`
	Status       AgentStatus            `firestore:"status" json:"status"`
	Results      map[string]interface{} `firestore:"results,omitempty" json:"results,omitempty"`
	Summary      string                 `firestore:"summary" json:"summary"`
	RiskLevel    RiskLevel              `firestore:"riskLevel" json:"riskLevel"`
	StartedAt    *time.Time             `firestore:"startedAt,omitempty" json:"startedAt,omitempty"`
	CompletedAt  *time.Time             `firestore:"completedAt,omitempty" json:"completedAt,omitempty"`
	ErrorMessage string                 `firestore:"errorMessage,omitempty" json:"errorMessage,omitempty"`
}

// GroupAgentResult is the persisted outcome of one (group, agent) run. Only
// exists for agent types tampering/fraud/insights.
type GroupAgentResult struct {
	GroupID      string                 `firestore:"groupId" json:"groupId"`
	AgentType    AgentType              `firestore:"agentType" json:"agentType"`
	Status       AgentStatus            `firestore:"status" json:"status"`
	Results      map[string]interface{} `firestore:"results,omitempty" json:"results,omitempty"`
	Summary      string                 `firestore:"summary" json:"summary"`
	RiskLevel    RiskLevel              `firestore:"riskLevel" json:"riskLevel"`
	StartedAt    *time.Time             `firestore:"startedAt,omitempty" json:"startedAt,omitempty"`
	CompletedAt  *time.Time             `firestore:"completedAt,omitempty" json:"completedAt,omitempty"`
	ErrorMessage string                 `firestore:"errorMessage,omitempty" json:"errorMessage,omitempty"`
}
