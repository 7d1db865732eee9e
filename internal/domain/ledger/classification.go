package ledger

// RiskFactorType categorizes the signal behind a risk factor
type RiskFactorType string

const (
	RiskFactorTypeAmount    RiskFactorType = "amount"
	RiskFactorTypeTime      RiskFactorType = "time"
	RiskFactorTypeFrequency RiskFactorType = "frequency"
	RiskFactorTypePattern   RiskFactorType = "pattern"
	RiskFactorTypeCustomer  RiskFactorType = "customer"
)

// RiskSeverity grades how strongly a risk factor argues for review
type RiskSeverity string

const (
	RiskSeverityLow    RiskSeverity = "low"
	RiskSeverityMedium RiskSeverity = "medium"
	RiskSeverityHigh   RiskSeverity = "high"
)

// RiskFactor is an advisory signal attached to a classification result.
// It never blocks processing on its own; high severity forces manual review.
type RiskFactor struct {
	Type        RiskFactorType `json:"type"`
	Severity    RiskSeverity   `json:"severity"`
	Description string         `json:"description"`
	Score       float64        `json:"score"`
}

// AccountMapping is the set of ledger accounts assigned to one transaction.
// It is derived deterministically from classification features and is
// immutable per transaction.
type AccountMapping struct {
	Settlement    AccountRef   `json:"settlement"`
	Revenue       AccountRef   `json:"revenue"`
	Tax           []AccountRef `json:"tax,omitempty"`
	Discount      *AccountRef  `json:"discount,omitempty"`
	ServiceCharge *AccountRef  `json:"service_charge,omitempty"`
}

// TransactionClassification is the computed, ephemeral result of classifying
// a transaction. It is never persisted as its own entity; the orchestrator
// folds it into the transaction metadata and journal provenance.
type TransactionClassification struct {
	Type           TransactionType `json:"type"`
	Confidence     float64         `json:"confidence"`
	Accounts       AccountMapping  `json:"accounts"`
	RiskFactors    []RiskFactor    `json:"risk_factors,omitempty"`
	ReviewRequired bool            `json:"review_required"`
	Reasons        []string        `json:"reasons,omitempty"`
}

// HasHighRisk reports whether any risk factor is high severity
func (c TransactionClassification) HasHighRisk() bool {
	for _, rf := range c.RiskFactors {
		if rf.Severity == RiskSeverityHigh {
			return true
		}
	}
	return false
}
