package accounting

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/poserp/accounting/internal/domain/ledger"
	"github.com/poserp/accounting/internal/domain/ordering"
)

// Classification tuning constants
const (
	baseConfidence     = 0.85
	minConfidence      = 0.60
	maxConfidence      = 0.99
	reviewThreshold    = 0.85
	highRiskPenalty    = 0.85
	mediumRiskPenalty  = 0.95
	degradedConfidence = minConfidence

	businessHourStart = 6
	businessHourEnd   = 23
)

var (
	largeAmountThreshold  = decimal.NewFromInt(1000)
	veryLargeAmount       = decimal.NewFromInt(5000)
	largeCashThreshold    = decimal.NewFromInt(500)
	disproportionateShare = decimal.NewFromFloat(0.30)
	maxUnsurprisingItems  = 20
)

// Classifier scores transaction features against known shape patterns and
// derives the account mapping, risk factors, and confidence for a
// transaction. It holds only immutable configuration and is safe for
// concurrent use.
type Classifier struct {
	chart    *ledger.ChartOfAccounts
	patterns []ledger.KnownPattern
	logger   *zap.Logger
}

// NewClassifier creates a classifier over the given chart and pattern table
func NewClassifier(chart *ledger.ChartOfAccounts, patterns []ledger.KnownPattern, logger *zap.Logger) *Classifier {
	return &Classifier{
		chart:    chart,
		patterns: patterns,
		logger:   logger,
	}
}

// Classify produces a classification for a completed order. It never fails:
// if feature extraction or scoring breaks, it returns a conservative
// low-confidence classification that forces manual review, so the pipeline
// always produces a result for every transaction.
func (c *Classifier) Classify(ctx context.Context, order *ordering.Order) (result ledger.TransactionClassification) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("classification panicked, returning degraded result",
				zap.Any("panic", r),
			)
			result = c.degraded()
		}
	}()

	features, err := ExtractFeatures(order)
	if err != nil {
		c.logger.Warn("feature extraction failed, returning degraded classification",
			zap.Error(err),
		)
		return c.degraded()
	}

	confidence := baseConfidence
	var reasons []string

	// Heuristic penalties for surprising conditions
	if features.Amount.GreaterThan(largeAmountThreshold) {
		confidence *= 0.95
		reasons = append(reasons, fmt.Sprintf("unusually large amount %s", features.Amount.StringFixed(2)))
	}
	if features.PaymentMethod == ordering.PaymentMethodCash && features.Amount.GreaterThan(largeCashThreshold) {
		confidence *= 0.90
		reasons = append(reasons, fmt.Sprintf("large cash payment %s", features.Amount.StringFixed(2)))
	}
	if features.Hour < businessHourStart || features.Hour > businessHourEnd {
		confidence *= 0.85
		reasons = append(reasons, fmt.Sprintf("transaction at hour %d outside business hours", features.Hour))
	}
	if features.ItemCount > maxUnsurprisingItems {
		confidence *= 0.95
		reasons = append(reasons, fmt.Sprintf("high item count %d", features.ItemCount))
	}
	if features.HasDiscounts {
		confidence *= 0.90
		reasons = append(reasons, "discounts applied")
	}

	// Pattern match raises confidence to at least the pattern's own
	for _, pattern := range c.patterns {
		if pattern.Matches(features.Amount, features.Hour, features.PaymentMethod) {
			if pattern.Confidence > confidence {
				confidence = pattern.Confidence
			}
			reasons = append(reasons, fmt.Sprintf("matches known pattern: %s", pattern.Description))
			break
		}
	}

	accounts := c.deriveAccountMapping(order, features)
	riskFactors := c.assessRisk(order, features)

	// High and medium severity risk factors pull confidence back down
	for _, rf := range riskFactors {
		switch rf.Severity {
		case ledger.RiskSeverityHigh:
			confidence *= highRiskPenalty
		case ledger.RiskSeverityMedium:
			confidence *= mediumRiskPenalty
		}
	}
	confidence = clamp(confidence, minConfidence, maxConfidence)

	classification := ledger.TransactionClassification{
		Type:        ledger.TransactionTypeSalesOrder,
		Confidence:  confidence,
		Accounts:    accounts,
		RiskFactors: riskFactors,
		Reasons:     reasons,
	}
	classification.ReviewRequired = confidence < reviewThreshold || classification.HasHighRisk()

	c.logger.Debug("transaction classified",
		zap.String("order_number", order.OrderNumber),
		zap.Float64("confidence", confidence),
		zap.Bool("review_required", classification.ReviewRequired),
		zap.Int("risk_factors", len(riskFactors)),
	)

	return classification
}

// deriveAccountMapping resolves the ledger accounts for the transaction
func (c *Classifier) deriveAccountMapping(order *ordering.Order, features FeatureSet) ledger.AccountMapping {
	mapping := ledger.AccountMapping{
		Settlement: c.chart.SettlementAccount(features.PaymentMethod),
		Revenue:    c.chart.PrimaryRevenueAccount(features.Categories),
	}
	if features.TaxAmount.IsPositive() {
		mapping.Tax = c.chart.TaxAccounts(features.EffectiveTaxRate)
	}
	if order.DiscountAmount.IsPositive() {
		discount := c.chart.DiscountAccount()
		mapping.Discount = &discount
	}
	if order.ServiceCharge.IsPositive() {
		serviceCharge := c.chart.ServiceChargeAccount()
		mapping.ServiceCharge = &serviceCharge
	}
	return mapping
}

// assessRisk attaches advisory risk factors to the classification
func (c *Classifier) assessRisk(order *ordering.Order, features FeatureSet) []ledger.RiskFactor {
	var factors []ledger.RiskFactor

	switch {
	case features.Amount.GreaterThan(veryLargeAmount):
		factors = append(factors, ledger.RiskFactor{
			Type:        ledger.RiskFactorTypeAmount,
			Severity:    ledger.RiskSeverityHigh,
			Description: fmt.Sprintf("amount %s exceeds %s", features.Amount.StringFixed(2), veryLargeAmount.StringFixed(0)),
			Score:       0.9,
		})
	case features.Amount.GreaterThan(largeAmountThreshold):
		factors = append(factors, ledger.RiskFactor{
			Type:        ledger.RiskFactorTypeAmount,
			Severity:    ledger.RiskSeverityMedium,
			Description: fmt.Sprintf("amount %s exceeds %s", features.Amount.StringFixed(2), largeAmountThreshold.StringFixed(0)),
			Score:       0.5,
		})
	}

	if features.Hour < businessHourStart || features.Hour > businessHourEnd {
		factors = append(factors, ledger.RiskFactor{
			Type:        ledger.RiskFactorTypeTime,
			Severity:    ledger.RiskSeverityMedium,
			Description: fmt.Sprintf("transaction at hour %d is outside business hours", features.Hour),
			Score:       0.5,
		})
	}

	if features.PaymentMethod == ordering.PaymentMethodCash && features.Amount.GreaterThan(largeCashThreshold) {
		factors = append(factors, ledger.RiskFactor{
			Type:        ledger.RiskFactorTypePattern,
			Severity:    ledger.RiskSeverityMedium,
			Description: fmt.Sprintf("cash payment of %s exceeds %s", features.Amount.StringFixed(2), largeCashThreshold.StringFixed(0)),
			Score:       0.5,
		})
	}

	// Disproportionate discount: discount share of the pre-discount subtotal
	if order.DiscountAmount.IsPositive() && order.Subtotal.IsPositive() {
		share := order.DiscountAmount.Div(order.Subtotal)
		if share.GreaterThan(disproportionateShare) {
			factors = append(factors, ledger.RiskFactor{
				Type:        ledger.RiskFactorTypePattern,
				Severity:    ledger.RiskSeverityHigh,
				Description: fmt.Sprintf("discount is %s%% of subtotal", share.Mul(decimal.NewFromInt(100)).StringFixed(1)),
				Score:       0.8,
			})
		}
	}

	return factors
}

// degraded returns the conservative fallback classification used when
// extraction or scoring fails. Mandatory review stands in for confidence.
func (c *Classifier) degraded() ledger.TransactionClassification {
	return ledger.TransactionClassification{
		Type:       ledger.TransactionTypeSalesOrder,
		Confidence: degradedConfidence,
		Accounts: ledger.AccountMapping{
			Settlement: c.chart.SettlementAccount(ordering.PaymentMethodCash),
			Revenue:    c.chart.PrimaryRevenueAccount(nil),
		},
		RiskFactors: []ledger.RiskFactor{{
			Type:        ledger.RiskFactorTypePattern,
			Severity:    ledger.RiskSeverityMedium,
			Description: "classification failed, conservative defaults applied",
			Score:       0.5,
		}},
		ReviewRequired: true,
		Reasons:        []string{"classification failed, manual review required"},
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
