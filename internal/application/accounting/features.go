package accounting

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/poserp/accounting/internal/domain/ordering"
	"github.com/poserp/accounting/internal/domain/shared"
)

// FeatureSet is the flat numeric/categorical feature vector extracted from a
// transaction, scored by the classifier against known patterns
type FeatureSet struct {
	Amount            decimal.Decimal
	PaymentMethod     ordering.PaymentMethod
	Categories        []string
	Hour              int
	Weekday           time.Weekday
	CustomerType      ordering.CustomerType
	ItemCount         int
	AvgItemPrice      decimal.Decimal
	HasDiscounts      bool
	HasServiceCharges bool
	TaxAmount         decimal.Decimal
	EffectiveTaxRate  decimal.Decimal
}

// ExtractFeatures turns a completed order into a feature set. The order
// timestamp used for time features is the completion time, falling back to
// creation time for orders completed out of band.
func ExtractFeatures(order *ordering.Order) (FeatureSet, error) {
	if order == nil {
		return FeatureSet{}, shared.NewDomainError("INVALID_INPUT", "Order cannot be nil")
	}
	if len(order.Items) == 0 {
		return FeatureSet{}, shared.NewDomainError("INVALID_INPUT", "Order has no items to extract features from")
	}

	at := order.CreatedAt
	if order.CompletedAt != nil {
		at = *order.CompletedAt
	}

	itemCount := order.ItemCount()
	avgPrice := decimal.Zero
	if itemCount > 0 {
		avgPrice = order.Subtotal.Div(decimal.NewFromInt(int64(itemCount)))
	}

	return FeatureSet{
		Amount:            order.TotalAmount,
		PaymentMethod:     order.Payment.Method,
		Categories:        order.Categories(),
		Hour:              at.Hour(),
		Weekday:           at.Weekday(),
		CustomerType:      order.CustomerType,
		ItemCount:         itemCount,
		AvgItemPrice:      avgPrice,
		HasDiscounts:      order.DiscountAmount.IsPositive(),
		HasServiceCharges: order.ServiceCharge.IsPositive(),
		TaxAmount:         order.TaxAmount,
		EffectiveTaxRate:  order.EffectiveTaxRate(),
	}, nil
}
