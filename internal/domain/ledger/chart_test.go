package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poserp/accounting/internal/domain/ordering"
)

func TestChartSettlementAccount(t *testing.T) {
	chart := DefaultChartOfAccounts()

	assert.Equal(t, AccountCodeCash, chart.SettlementAccount(ordering.PaymentMethodCash).Code)
	assert.Equal(t, AccountCodeCreditCardReceivable, chart.SettlementAccount(ordering.PaymentMethodCreditCard).Code)
	assert.Equal(t, AccountCodeUPIReceivable, chart.SettlementAccount(ordering.PaymentMethodUPI).Code)

	// unknown methods settle to cash
	assert.Equal(t, AccountCodeCash, chart.SettlementAccount(ordering.PaymentMethod("barter")).Code)
}

func TestChartRevenueAccounts(t *testing.T) {
	chart := DefaultChartOfAccounts()

	assert.Equal(t, AccountCodeFoodRevenue, chart.RevenueAccountFor("food").Code)
	assert.Equal(t, AccountCodeBeverageRevenue, chart.RevenueAccountFor("beverage").Code)
	// drinks aliases to beverage revenue
	assert.Equal(t, AccountCodeBeverageRevenue, chart.RevenueAccountFor("drinks").Code)
	assert.Equal(t, AccountCodeDeliveryRevenue, chart.RevenueAccountFor("delivery").Code)
	// unmapped categories post to other revenue
	assert.Equal(t, AccountCodeOtherRevenue, chart.RevenueAccountFor("merchandise").Code)

	assert.Equal(t, AccountCodeBeverageRevenue, chart.PrimaryRevenueAccount([]string{"food", "drinks"}).Code)
	assert.Equal(t, AccountCodeFoodRevenue, chart.PrimaryRevenueAccount([]string{"food"}).Code)
	assert.Equal(t, AccountCodeFoodRevenue, chart.PrimaryRevenueAccount(nil).Code)
}

func TestChartTaxAccounts(t *testing.T) {
	chart := DefaultChartOfAccounts()

	t.Run("at threshold stays single", func(t *testing.T) {
		accounts := chart.TaxAccounts(decimal.NewFromInt(15))
		require.Len(t, accounts, 1)
		assert.Equal(t, AccountCodeSingleTax, accounts[0].Code)
	})

	t.Run("above threshold splits", func(t *testing.T) {
		accounts := chart.TaxAccounts(decimal.RequireFromString("15.01"))
		require.Len(t, accounts, 2)
		assert.Equal(t, AccountCodeSplitTaxComponentA, accounts[0].Code)
		assert.Equal(t, AccountCodeSplitTaxComponentB, accounts[1].Code)
	})
}

func TestKnownPatternMatches(t *testing.T) {
	cash := ordering.PaymentMethodCash
	pattern := KnownPattern{
		MinAmount: decimal.NewFromInt(5), MaxAmount: decimal.NewFromInt(60),
		StartHour: 6, EndHour: 10,
		PaymentMethod: &cash,
	}

	assert.True(t, pattern.Matches(decimal.NewFromInt(20), 8, ordering.PaymentMethodCash))
	assert.False(t, pattern.Matches(decimal.NewFromInt(61), 8, ordering.PaymentMethodCash), "amount above range")
	assert.False(t, pattern.Matches(decimal.NewFromInt(20), 11, ordering.PaymentMethodCash), "hour outside window")
	assert.False(t, pattern.Matches(decimal.NewFromInt(20), 8, ordering.PaymentMethodCreditCard), "wrong payment method")

	unpinned := KnownPattern{
		MinAmount: decimal.NewFromInt(20), MaxAmount: decimal.NewFromInt(200),
		StartHour: 11, EndHour: 14,
	}
	assert.True(t, unpinned.Matches(decimal.NewFromInt(50), 12, ordering.PaymentMethodCreditCard))
}
