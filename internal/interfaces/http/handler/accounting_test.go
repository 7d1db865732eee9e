package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/poserp/accounting/internal/application/accounting"
	"github.com/poserp/accounting/internal/domain/ledger"
	"github.com/poserp/accounting/internal/infrastructure/event"
	"github.com/poserp/accounting/internal/infrastructure/persistence"
	"github.com/poserp/accounting/internal/infrastructure/persistence/models"
	"github.com/poserp/accounting/internal/interfaces/http/dto"
	"github.com/poserp/accounting/internal/interfaces/http/middleware"
	"github.com/poserp/accounting/internal/interfaces/http/router"
)

// newTestEngine wires the full pipeline over an in-memory database
func newTestEngine(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	log := zap.NewNop()
	store := persistence.NewGormEntityStore(db, log)
	transactions := persistence.NewGormTransactionRepository(db, store)
	journals := persistence.NewGormJournalRepository(db, store)
	sequences := persistence.NewGormSequenceAllocator(db)

	chart := ledger.DefaultChartOfAccounts()
	classifier := accounting.NewClassifier(chart, ledger.DefaultPatterns(), log)
	builder := accounting.NewJournalBuilder(journals, sequences, chart, log)
	orchestrator := accounting.NewOrchestrator(
		classifier, builder, transactions, journals, sequences, store,
		"USD", decimal.NewFromInt(1000), log)

	bus := event.NewInMemoryEventBus(log)
	publisher := accounting.NewEventPublisher(orchestrator, bus, log)

	middleware.SetupValidator()
	engine := gin.New()
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(NewAccountingHandler(publisher, journals, log))
	r.Setup()
	return engine, db
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, orgID uuid.UUID, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if orgID != uuid.Nil {
		req.Header.Set("X-Org-ID", orgID.String())
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func lunchOrderRequest(orderNumber string) dto.CompleteOrderRequest {
	completedAt := time.Date(2026, 3, 16, 12, 30, 0, 0, time.Local)
	return dto.CompleteOrderRequest{
		OrderNumber: orderNumber,
		Items: []dto.OrderItemRequest{
			{Name: "Burger", Category: "food", Quantity: 2, UnitPrice: 10},
			{Name: "Cola", Category: "beverage", Quantity: 2, UnitPrice: 4},
		},
		Subtotal:    28,
		TaxAmount:   2.24,
		TotalAmount: 30.24,
		Payment:     dto.PaymentInfoRequest{Method: "cash", Amount: 30.24},
		TableNumber: "T5",
		CompletedAt: &completedAt,
	}
}

func decodeResult(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success, w.Body.String())
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	return data
}

func TestAccountingAPI_CompleteOrder(t *testing.T) {
	engine, _ := newTestEngine(t)
	orgID := uuid.New()

	w := doJSON(t, engine, http.MethodPost, "/api/v1/accounting/orders/completed", orgID, lunchOrderRequest("ORD-1001"))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decodeResult(t, w)
	assert.Equal(t, "posted", data["posting_status"])
	assert.Equal(t, "transaction posted", data["message"])
	assert.NotEmpty(t, data["transaction_id"])
	assert.NotEmpty(t, data["journal_entry_id"])
}

func TestAccountingAPI_ReviewHeldOrderReturns202(t *testing.T) {
	engine, _ := newTestEngine(t)
	orgID := uuid.New()

	req := lunchOrderRequest("ORD-1002")
	// a large discounted cash order fails the confidence bar
	req.Items = []dto.OrderItemRequest{{Name: "Banquet", Category: "food", Quantity: 1, UnitPrice: 1250}}
	req.Subtotal = 1250
	req.TaxAmount = 100
	req.DiscountAmount = 50
	req.TotalAmount = 1300
	req.Payment = dto.PaymentInfoRequest{Method: "cash", Amount: 1300}

	w := doJSON(t, engine, http.MethodPost, "/api/v1/accounting/orders/completed", orgID, req)

	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	data := decodeResult(t, w)
	assert.Equal(t, "draft", data["posting_status"])
}

func TestAccountingAPI_ValidationAndAuth(t *testing.T) {
	engine, _ := newTestEngine(t)
	orgID := uuid.New()

	t.Run("missing items rejected", func(t *testing.T) {
		req := lunchOrderRequest("ORD-1003")
		req.Items = nil
		w := doJSON(t, engine, http.MethodPost, "/api/v1/accounting/orders/completed", orgID, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown payment method rejected", func(t *testing.T) {
		req := lunchOrderRequest("ORD-1004")
		req.Payment.Method = "barter"
		w := doJSON(t, engine, http.MethodPost, "/api/v1/accounting/orders/completed", orgID, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing organization rejected", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodPost, "/api/v1/accounting/orders/completed", uuid.Nil, lunchOrderRequest("ORD-1005"))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAccountingAPI_PaymentAndVoidFlow(t *testing.T) {
	engine, db := newTestEngine(t)
	orgID := uuid.New()

	w := doJSON(t, engine, http.MethodPost, "/api/v1/accounting/orders/completed", orgID, lunchOrderRequest("ORD-2001"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decodeResult(t, w)
	require.NotEmpty(t, data["transaction_id"])

	// downstream confirmations are keyed by the order aggregate ID, which
	// the endpoint generates server side; read it back from the stored row
	orderID := findSourceOrderID(t, db, orgID)

	t.Run("payment received", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodPost, "/api/v1/accounting/payments/received", orgID, dto.PaymentReceivedRequest{
			OrderID: orderID, OrderNumber: "ORD-2001", Method: "credit_card", Amount: 30.24, Reference: "ch_123",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		data := decodeResult(t, w)
		assert.Equal(t, "payment confirmation recorded", data["message"])
	})

	t.Run("void order", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodPost, "/api/v1/accounting/orders/void", orgID, dto.VoidOrderRequest{
			OrderID: orderID, OrderNumber: "ORD-2001", Reason: "entered twice",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		data := decodeResult(t, w)
		assert.Equal(t, "voided", data["posting_status"])
	})

	t.Run("void is idempotent", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodPost, "/api/v1/accounting/orders/void", orgID, dto.VoidOrderRequest{
			OrderID: orderID, OrderNumber: "ORD-2001", Reason: "again",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		data := decodeResult(t, w)
		assert.Equal(t, "transaction already voided", data["message"])
	})
}

func TestAccountingAPI_PaymentForUnknownOrderIs404(t *testing.T) {
	engine, _ := newTestEngine(t)
	orgID := uuid.New()

	w := doJSON(t, engine, http.MethodPost, "/api/v1/accounting/payments/received", orgID, dto.PaymentReceivedRequest{
		OrderID: uuid.New(), OrderNumber: "ORD-9999", Method: "cash", Amount: 10,
	})

	assert.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
}

func TestAccountingAPI_Refunds(t *testing.T) {
	engine, _ := newTestEngine(t)
	orgID := uuid.New()

	t.Run("small refund posts", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodPost, "/api/v1/accounting/refunds/processed", orgID, dto.RefundProcessedRequest{
			OrderID: uuid.New(), OrderNumber: "ORD-3001", RefundAmount: 50, Reason: "cold food",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		data := decodeResult(t, w)
		assert.Equal(t, "posted", data["posting_status"])
	})

	t.Run("large refund held for approval", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodPost, "/api/v1/accounting/refunds/processed", orgID, dto.RefundProcessedRequest{
			OrderID: uuid.New(), OrderNumber: "ORD-3002", RefundAmount: 1500, Reason: "event cancelled",
		})
		require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
		data := decodeResult(t, w)
		assert.Equal(t, "draft", data["posting_status"])
	})
}

func TestAccountingAPI_Stats(t *testing.T) {
	engine, _ := newTestEngine(t)
	orgID := uuid.New()

	// pin the orders to midday today so they count toward today's journals
	now := time.Now()
	completedAt := time.Date(now.Year(), now.Month(), now.Day(), 12, 30, 0, 0, time.Local)
	for i := 0; i < 2; i++ {
		req := lunchOrderRequest(fmt.Sprintf("ORD-400%d", i))
		req.CompletedAt = &completedAt
		w := doJSON(t, engine, http.MethodPost, "/api/v1/accounting/orders/completed", orgID, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := doJSON(t, engine, http.MethodGet, "/api/v1/accounting/events/stats", orgID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeResult(t, w)
	assert.Equal(t, float64(2), data["total"])
	assert.Equal(t, float64(2), data["journals_today"])
	byType := data["by_type"].(map[string]any)
	assert.Equal(t, float64(2), byType["order.completed"])
}

func TestAccountingAPI_JournalLookup(t *testing.T) {
	engine, _ := newTestEngine(t)
	orgID := uuid.New()

	w := doJSON(t, engine, http.MethodPost, "/api/v1/accounting/orders/completed", orgID, lunchOrderRequest("ORD-5001"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	t.Run("returns the posted journal", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodGet, "/api/v1/accounting/journals/JE-20260316-0001", orgID, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		data := decodeResult(t, w)
		assert.Equal(t, "JE-20260316-0001", data["journal_number"])
		assert.Equal(t, "posted", data["status"])
		assert.Equal(t, "30.24", data["total_debit"])
		assert.Equal(t, "30.24", data["total_credit"])
		lines, ok := data["lines"].([]any)
		require.True(t, ok)
		assert.Len(t, lines, 3)
	})

	t.Run("unknown journal number is 404", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodGet, "/api/v1/accounting/journals/JE-20260316-9999", orgID, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
	})
}

// findSourceOrderID reads the source order aggregate ID back from the first
// recorded transaction entity
func findSourceOrderID(t *testing.T, db *gorm.DB, orgID uuid.UUID) uuid.UUID {
	t.Helper()
	var model models.EntityModel
	err := db.Where("org_id = ? AND entity_type = ?", orgID, ledger.EntityTypeTransaction).
		Order("created_at ASC").First(&model).Error
	require.NoError(t, err)
	require.NotNil(t, model.SourceID)
	return *model.SourceID
}
