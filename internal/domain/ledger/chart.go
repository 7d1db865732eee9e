package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/poserp/accounting/internal/domain/ordering"
)

// Fixed ledger account codes. These are part of the durable contract read by
// reporting subsystems and must not change.
const (
	AccountCodeCash                 = "1110000"
	AccountCodeCreditCardReceivable = "1120000"
	AccountCodeDebitCardReceivable  = "1120001"
	AccountCodeUPIReceivable        = "1121000"
	AccountCodeDigitalWallet        = "1122000"
	AccountCodeFoodRevenue          = "4110000"
	AccountCodeBeverageRevenue      = "4120000"
	AccountCodeDeliveryRevenue      = "4130000"
	AccountCodeServiceChargeRevenue = "4140000"
	AccountCodeCateringRevenue      = "4150000"
	AccountCodeOtherRevenue         = "4190000"
	AccountCodeSalesDiscount        = "5110000"
	AccountCodeSplitTaxComponentA   = "2110001"
	AccountCodeSplitTaxComponentB   = "2110002"
	AccountCodeSingleTax            = "2110003"
)

// AccountRef identifies a ledger account by code and human-readable name
type AccountRef struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// ChartOfAccounts resolves transaction features to ledger accounts. It is
// immutable after construction and shared by reference across the pipeline,
// so concurrent classification needs no locking.
type ChartOfAccounts struct {
	settlement map[ordering.PaymentMethod]AccountRef
	revenue    map[string]AccountRef

	foodRevenue     AccountRef
	beverageRevenue AccountRef
	otherRevenue    AccountRef

	singleTax AccountRef
	splitTaxA AccountRef
	splitTaxB AccountRef

	discount      AccountRef
	serviceCharge AccountRef

	splitTaxThreshold decimal.Decimal
}

// DefaultChartOfAccounts returns the standard restaurant/POS chart
func DefaultChartOfAccounts() *ChartOfAccounts {
	food := AccountRef{Code: AccountCodeFoodRevenue, Name: "Food Revenue"}
	beverage := AccountRef{Code: AccountCodeBeverageRevenue, Name: "Beverage Revenue"}
	other := AccountRef{Code: AccountCodeOtherRevenue, Name: "Other Revenue"}

	return &ChartOfAccounts{
		settlement: map[ordering.PaymentMethod]AccountRef{
			ordering.PaymentMethodCash:          {Code: AccountCodeCash, Name: "Cash on Hand"},
			ordering.PaymentMethodCreditCard:    {Code: AccountCodeCreditCardReceivable, Name: "Credit Card Receivable"},
			ordering.PaymentMethodDebitCard:     {Code: AccountCodeDebitCardReceivable, Name: "Debit Card Receivable"},
			ordering.PaymentMethodUPI:           {Code: AccountCodeUPIReceivable, Name: "UPI Receivable"},
			ordering.PaymentMethodDigitalWallet: {Code: AccountCodeDigitalWallet, Name: "Digital Wallet Receivable"},
		},
		revenue: map[string]AccountRef{
			"food":     food,
			"beverage": beverage,
			"drinks":   beverage,
			"delivery": {Code: AccountCodeDeliveryRevenue, Name: "Delivery Revenue"},
			"catering": {Code: AccountCodeCateringRevenue, Name: "Catering Revenue"},
		},
		foodRevenue:       food,
		beverageRevenue:   beverage,
		otherRevenue:      other,
		singleTax:         AccountRef{Code: AccountCodeSingleTax, Name: "Tax Payable"},
		splitTaxA:         AccountRef{Code: AccountCodeSplitTaxComponentA, Name: "Tax Payable - Component A"},
		splitTaxB:         AccountRef{Code: AccountCodeSplitTaxComponentB, Name: "Tax Payable - Component B"},
		discount:          AccountRef{Code: AccountCodeSalesDiscount, Name: "Sales Discount"},
		serviceCharge:     AccountRef{Code: AccountCodeServiceChargeRevenue, Name: "Service Charge Revenue"},
		splitTaxThreshold: decimal.NewFromInt(15),
	}
}

// SettlementAccount returns the cash/receivable account for a payment method.
// Unknown methods settle to the cash account.
func (c *ChartOfAccounts) SettlementAccount(method ordering.PaymentMethod) AccountRef {
	if ref, ok := c.settlement[method]; ok {
		return ref
	}
	return c.settlement[ordering.PaymentMethodCash]
}

// RevenueAccountFor returns the revenue account for an item category.
// Unmapped categories post to other revenue.
func (c *ChartOfAccounts) RevenueAccountFor(category string) AccountRef {
	if ref, ok := c.revenue[category]; ok {
		return ref
	}
	return c.otherRevenue
}

// PrimaryRevenueAccount returns the headline revenue account for a
// transaction: beverage revenue when beverage categories are present,
// food revenue otherwise.
func (c *ChartOfAccounts) PrimaryRevenueAccount(categories []string) AccountRef {
	for _, cat := range categories {
		if c.revenue[cat] == c.beverageRevenue {
			return c.beverageRevenue
		}
	}
	return c.foodRevenue
}

// TaxAccounts returns the tax payable accounts for the given effective tax
// rate (percent). Combined rates above the split threshold post as two
// equal-valued components, single-tax jurisdictions as one.
func (c *ChartOfAccounts) TaxAccounts(effectiveRate decimal.Decimal) []AccountRef {
	if effectiveRate.GreaterThan(c.splitTaxThreshold) {
		return []AccountRef{c.splitTaxA, c.splitTaxB}
	}
	return []AccountRef{c.singleTax}
}

// DiscountAccount returns the sales discount contra account
func (c *ChartOfAccounts) DiscountAccount() AccountRef {
	return c.discount
}

// ServiceChargeAccount returns the service charge revenue account
func (c *ChartOfAccounts) ServiceChargeAccount() AccountRef {
	return c.serviceCharge
}

// SplitTaxThreshold returns the combined-rate percentage above which tax is
// posted as two components
func (c *ChartOfAccounts) SplitTaxThreshold() decimal.Decimal {
	return c.splitTaxThreshold
}

// KnownPattern describes a recognized transaction shape: an amount range and
// an hour-of-day window, optionally pinned to a payment method. A matching
// pattern lifts classification confidence to at least its own confidence.
type KnownPattern struct {
	Name          string
	Description   string
	MinAmount     decimal.Decimal
	MaxAmount     decimal.Decimal
	StartHour     int
	EndHour       int
	PaymentMethod *ordering.PaymentMethod
	Confidence    float64
}

// Matches reports whether the transaction shape fits this pattern
func (p KnownPattern) Matches(amount decimal.Decimal, hour int, method ordering.PaymentMethod) bool {
	if amount.LessThan(p.MinAmount) || amount.GreaterThan(p.MaxAmount) {
		return false
	}
	if hour < p.StartHour || hour > p.EndHour {
		return false
	}
	if p.PaymentMethod != nil && *p.PaymentMethod != method {
		return false
	}
	return true
}

// DefaultPatterns returns the built-in transaction shape patterns
func DefaultPatterns() []KnownPattern {
	cash := ordering.PaymentMethodCash
	return []KnownPattern{
		{
			Name:        "lunch_regular",
			Description: "lunch regular order",
			MinAmount:   decimal.NewFromInt(20),
			MaxAmount:   decimal.NewFromInt(200),
			StartHour:   11,
			EndHour:     14,
			Confidence:  0.95,
		},
		{
			Name:        "dinner_service",
			Description: "dinner service order",
			MinAmount:   decimal.NewFromInt(30),
			MaxAmount:   decimal.NewFromInt(400),
			StartHour:   18,
			EndHour:     22,
			Confidence:  0.95,
		},
		{
			Name:          "morning_counter",
			Description:   "morning counter sale",
			MinAmount:     decimal.NewFromInt(5),
			MaxAmount:     decimal.NewFromInt(60),
			StartHour:     6,
			EndHour:       10,
			PaymentMethod: &cash,
			Confidence:    0.93,
		},
	}
}
