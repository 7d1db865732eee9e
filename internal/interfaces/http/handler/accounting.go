package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/poserp/accounting/internal/application/accounting"
	"github.com/poserp/accounting/internal/domain/ledger"
	"github.com/poserp/accounting/internal/domain/ordering"
	"github.com/poserp/accounting/internal/interfaces/http/dto"
	"github.com/poserp/accounting/internal/interfaces/http/middleware"
)

// AccountingHandler exposes the transaction pipeline over HTTP
type AccountingHandler struct {
	BaseHandler
	publisher *accounting.EventPublisher
	journals  ledger.JournalRepository
	logger    *zap.Logger
}

// NewAccountingHandler creates a new AccountingHandler
func NewAccountingHandler(publisher *accounting.EventPublisher, journals ledger.JournalRepository, logger *zap.Logger) *AccountingHandler {
	return &AccountingHandler{
		publisher: publisher,
		journals:  journals,
		logger:    logger,
	}
}

// RegisterRoutes registers the accounting routes on the API group
func (h *AccountingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/accounting")
	group.POST("/orders/completed", h.CompleteOrder)
	group.POST("/orders/void", h.VoidOrder)
	group.POST("/payments/received", h.PaymentReceived)
	group.POST("/refunds/processed", h.RefundProcessed)
	group.GET("/journals/:number", h.GetJournal)
	group.GET("/events/stats", h.Stats)
}

// CompleteOrder records a settled POS order
// POST /api/v1/accounting/orders/completed
func (h *AccountingHandler) CompleteOrder(c *gin.Context) {
	var req dto.CompleteOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, middleware.FormatBindingError(err))
		return
	}

	orgID, err := getOrgID(c)
	if err != nil {
		h.Unauthorized(c, err.Error())
		return
	}
	if err := h.publisher.Initialize(c.Request.Context(), orgID); err != nil {
		h.DomainError(c, err)
		return
	}

	items := make([]ordering.OrderItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = ordering.OrderItem{
			Name:      item.Name,
			Category:  item.Category,
			Quantity:  decimal.NewFromFloat(item.Quantity),
			UnitPrice: decimal.NewFromFloat(item.UnitPrice),
			Tags:      item.Tags,
		}
	}

	order, err := ordering.NewOrder(
		orgID,
		req.OrderNumber,
		items,
		ordering.PaymentInfo{
			Method:    ordering.PaymentMethod(req.Payment.Method),
			Provider:  req.Payment.Provider,
			Amount:    decimal.NewFromFloat(req.Payment.Amount),
			Reference: req.Payment.Reference,
		},
		decimal.NewFromFloat(req.Subtotal),
		decimal.NewFromFloat(req.TaxAmount),
		decimal.NewFromFloat(req.DiscountAmount),
		decimal.NewFromFloat(req.ServiceCharge),
		decimal.NewFromFloat(req.TotalAmount),
	)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	if req.CustomerType != "" {
		order.CustomerType = ordering.CustomerType(req.CustomerType)
	}
	order.CustomerRef = req.CustomerRef
	order.TableNumber = req.TableNumber
	if userID := getUserID(c); userID != nil {
		order.SetCreatedBy(*userID)
	}

	if err := order.MarkCompleted(); err != nil {
		h.DomainError(c, err)
		return
	}
	if req.CompletedAt != nil {
		order.CompletedAt = req.CompletedAt
	}
	order.ClearDomainEvents() // the publisher builds its own event

	result, err := h.publisher.PublishOrderCompleted(c.Request.Context(), order)
	h.respondResult(c, result, err)
}

// PaymentReceived records a downstream payment confirmation
// POST /api/v1/accounting/payments/received
func (h *AccountingHandler) PaymentReceived(c *gin.Context) {
	var req dto.PaymentReceivedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, middleware.FormatBindingError(err))
		return
	}

	orgID, err := getOrgID(c)
	if err != nil {
		h.Unauthorized(c, err.Error())
		return
	}
	if err := h.publisher.Initialize(c.Request.Context(), orgID); err != nil {
		h.DomainError(c, err)
		return
	}

	notice := accounting.PaymentNotice{
		OrderID:     req.OrderID,
		OrderNumber: req.OrderNumber,
		Method:      ordering.PaymentMethod(req.Method),
		Provider:    req.Provider,
		Amount:      decimal.NewFromFloat(req.Amount),
		Reference:   req.Reference,
	}
	if req.Timestamp != nil {
		notice.Timestamp = *req.Timestamp
	}

	result, err := h.publisher.PublishPaymentReceived(c.Request.Context(), notice)
	h.respondResult(c, result, err)
}

// RefundProcessed records a processed refund
// POST /api/v1/accounting/refunds/processed
func (h *AccountingHandler) RefundProcessed(c *gin.Context) {
	var req dto.RefundProcessedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, middleware.FormatBindingError(err))
		return
	}

	orgID, err := getOrgID(c)
	if err != nil {
		h.Unauthorized(c, err.Error())
		return
	}
	if err := h.publisher.Initialize(c.Request.Context(), orgID); err != nil {
		h.DomainError(c, err)
		return
	}

	result, err := h.publisher.PublishRefundProcessed(c.Request.Context(), accounting.RefundNotice{
		OrderID:      req.OrderID,
		OrderNumber:  req.OrderNumber,
		RefundAmount: decimal.NewFromFloat(req.RefundAmount),
		Reason:       req.Reason,
		UserID:       getUserID(c),
	})
	h.respondResult(c, result, err)
}

// VoidOrder voids the recorded transaction for an order
// POST /api/v1/accounting/orders/void
func (h *AccountingHandler) VoidOrder(c *gin.Context) {
	var req dto.VoidOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, middleware.FormatBindingError(err))
		return
	}

	orgID, err := getOrgID(c)
	if err != nil {
		h.Unauthorized(c, err.Error())
		return
	}
	if err := h.publisher.Initialize(c.Request.Context(), orgID); err != nil {
		h.DomainError(c, err)
		return
	}

	result, err := h.publisher.PublishOrderVoided(c.Request.Context(), accounting.VoidNotice{
		OrderID:     req.OrderID,
		OrderNumber: req.OrderNumber,
		Reason:      req.Reason,
		UserID:      getUserID(c),
	})
	h.respondResult(c, result, err)
}

// GetJournal looks up a stored journal entry by its journal number
// GET /api/v1/accounting/journals/:number
func (h *AccountingHandler) GetJournal(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.Unauthorized(c, err.Error())
		return
	}

	journal, err := h.journals.FindByNumber(c.Request.Context(), orgID, c.Param("number"))
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, dto.NewJournalEntryResponse(journal))
}

// Stats returns processed event counters plus the day's journal volume
// GET /api/v1/accounting/events/stats
func (h *AccountingHandler) Stats(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.Unauthorized(c, err.Error())
		return
	}

	journalsToday, err := h.journals.CountForDay(c.Request.Context(), orgID, time.Now())
	if err != nil {
		h.DomainError(c, err)
		return
	}

	h.Success(c, dto.StatsResponse{
		PublisherStats: h.publisher.Stats(),
		JournalsToday:  journalsToday,
	})
}

// respondResult maps a pipeline result to an HTTP response: 200 for final
// outcomes, 202 when the transaction was recorded but held in draft
func (h *AccountingHandler) respondResult(c *gin.Context, result accounting.AccountingResult, err error) {
	if err != nil {
		code := dto.ErrCodeBusinessRule
		if strings.Contains(result.Message, "no transaction found") {
			code = dto.ErrCodeNotFound
		}
		h.Error(c, dto.GetHTTPStatus(code), code, result.Message)
		return
	}

	status := http.StatusOK
	if result.PostingStatus == ledger.PostingStatusDraft {
		status = http.StatusAccepted
	}
	c.JSON(status, dto.NewSuccessResponse(dto.NewAccountingResultResponse(result)))
}
