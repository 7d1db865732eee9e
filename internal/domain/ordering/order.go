package ordering

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/poserp/accounting/internal/domain/shared"
)

// OrderStatus represents the lifecycle status of a POS order
type OrderStatus string

const (
	// OrderStatusPending indicates the order has been opened but not settled
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusCompleted indicates the order has been settled and is immutable
	OrderStatusCompleted OrderStatus = "completed"
	// OrderStatusCancelled indicates the order was voided before settlement
	OrderStatusCancelled OrderStatus = "cancelled"
	// OrderStatusRefunded indicates a refund was processed against the order
	OrderStatusRefunded OrderStatus = "refunded"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusCompleted, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// PaymentMethod represents how an order was paid
type PaymentMethod string

const (
	PaymentMethodCash          PaymentMethod = "cash"
	PaymentMethodCreditCard    PaymentMethod = "credit_card"
	PaymentMethodDebitCard     PaymentMethod = "debit_card"
	PaymentMethodUPI           PaymentMethod = "upi"
	PaymentMethodDigitalWallet PaymentMethod = "digital_wallet"
)

// IsValid checks if the payment method is known
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCreditCard, PaymentMethodDebitCard,
		PaymentMethodUPI, PaymentMethodDigitalWallet:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// CustomerType distinguishes repeat customers from walk-ins
type CustomerType string

const (
	CustomerTypeRegular CustomerType = "regular"
	CustomerTypeWalkIn  CustomerType = "walk_in"
)

// ItemTagTakeaway marks a line item sold for takeaway
const ItemTagTakeaway = "takeaway"

// OrderItem is a single line on a POS order
type OrderItem struct {
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Tags      []string        `json:"tags,omitempty"`
}

// LineTotal returns quantity * unit price
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Quantity.Mul(i.UnitPrice)
}

// HasTag reports whether the item carries the given tag
func (i OrderItem) HasTag(tag string) bool {
	for _, t := range i.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// PaymentInfo captures how an order was settled
type PaymentInfo struct {
	Method    PaymentMethod   `json:"method"`
	Provider  string          `json:"provider,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference,omitempty"`
}

// Order is a completed commerce transaction produced by the POS surface.
// Once completed it is immutable except for status transitions driven by
// refund and void events.
type Order struct {
	shared.OrgAggregateRoot

	OrderNumber string `json:"order_number"`

	Items []OrderItem `json:"items"`

	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	ServiceCharge  decimal.Decimal `json:"service_charge"`
	TotalAmount    decimal.Decimal `json:"total_amount"`

	Payment PaymentInfo `json:"payment"`
	Status  OrderStatus `json:"status"`

	CustomerType CustomerType `json:"customer_type"`
	CustomerRef  string       `json:"customer_ref,omitempty"`
	TableNumber  string       `json:"table_number,omitempty"`

	StaffID    *uuid.UUID `json:"staff_id,omitempty"`
	LocationID *uuid.UUID `json:"location_id,omitempty"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewOrder creates a pending order
func NewOrder(
	orgID uuid.UUID,
	orderNumber string,
	items []OrderItem,
	payment PaymentInfo,
	subtotal, taxAmount, discountAmount, serviceCharge, totalAmount decimal.Decimal,
) (*Order, error) {
	if orderNumber == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if len(items) == 0 {
		return nil, shared.NewDomainError("INVALID_ORDER_ITEMS", "Order must have at least one item")
	}
	if !payment.Method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", fmt.Sprintf("Unknown payment method %q", payment.Method))
	}
	if totalAmount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Order total cannot be negative")
	}
	for _, item := range items {
		if item.Name == "" {
			return nil, shared.NewDomainError("INVALID_ORDER_ITEMS", "Order item name cannot be empty")
		}
		if item.Quantity.LessThanOrEqual(decimal.Zero) {
			return nil, shared.NewDomainError("INVALID_ORDER_ITEMS", fmt.Sprintf("Item %q quantity must be positive", item.Name))
		}
	}

	return &Order{
		OrgAggregateRoot: shared.NewOrgAggregateRoot(orgID),
		OrderNumber:      orderNumber,
		Items:            items,
		Subtotal:         subtotal,
		TaxAmount:        taxAmount,
		DiscountAmount:   discountAmount,
		ServiceCharge:    serviceCharge,
		TotalAmount:      totalAmount,
		Payment:          payment,
		Status:           OrderStatusPending,
		CustomerType:     CustomerTypeWalkIn,
	}, nil
}

// MarkCompleted transitions the order to completed and raises the
// order-completed domain event
func (o *Order) MarkCompleted() error {
	if o.Status == OrderStatusCompleted {
		return nil // already settled, idempotent
	}
	if o.Status != OrderStatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot complete order in %s status", o.Status))
	}

	now := time.Now()
	o.Status = OrderStatusCompleted
	o.CompletedAt = &now
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderCompletedEvent(o))

	return nil
}

// MarkRefunded transitions a completed order to refunded
func (o *Order) MarkRefunded() error {
	if o.Status == OrderStatusRefunded {
		return nil
	}
	if o.Status != OrderStatusCompleted {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot refund order in %s status", o.Status))
	}

	o.Status = OrderStatusRefunded
	o.UpdatedAt = time.Now()

	return nil
}

// MarkCancelled transitions the order to cancelled
func (o *Order) MarkCancelled() error {
	if o.Status == OrderStatusCancelled {
		return nil
	}
	if o.Status == OrderStatusRefunded {
		return shared.NewDomainError("INVALID_STATE", "Cannot cancel a refunded order")
	}

	o.Status = OrderStatusCancelled
	o.UpdatedAt = time.Now()

	return nil
}

// ItemCount returns the total quantity across all line items
func (o *Order) ItemCount() int {
	count := decimal.Zero
	for _, item := range o.Items {
		count = count.Add(item.Quantity)
	}
	return int(count.IntPart())
}

// Categories returns the distinct item categories in line-item order
func (o *Order) Categories() []string {
	seen := make(map[string]struct{}, len(o.Items))
	categories := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		if _, ok := seen[item.Category]; ok {
			continue
		}
		seen[item.Category] = struct{}{}
		categories = append(categories, item.Category)
	}
	return categories
}

// HasTakeawayItems reports whether any line item is tagged takeaway
func (o *Order) HasTakeawayItems() bool {
	for _, item := range o.Items {
		if item.HasTag(ItemTagTakeaway) {
			return true
		}
	}
	return false
}

// EffectiveTaxRate returns tax amount as a percentage of the subtotal
func (o *Order) EffectiveTaxRate() decimal.Decimal {
	if o.Subtotal.IsZero() {
		return decimal.Zero
	}
	return o.TaxAmount.Div(o.Subtotal).Mul(decimal.NewFromInt(100))
}
