package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shared-expense-ledger/internal/api_gateway/middleware"
	"github.com/shared-expense-ledger/internal/api_gateway/service"
	"github.com/shared-expense-ledger/internal/domain/debt"
	"github.com/shared-expense-ledger/internal/domain/expense"
	"github.com/shared-expense-ledger/internal/domain/reconciliation"
	"github.com/shared-expense-ledger/internal/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// envelope is Response with the data left raw for per-test decoding
type envelope struct {
	Data          json.RawMessage `json:"data"`
	Error         *ErrorInfo      `json:"error"`
	CorrelationID string          `json:"correlation_id"`
	Meta          *MetaInfo       `json:"meta"`
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.CorrelationID(), middleware.UserID())
	return router
}

func doRequest(router *gin.Engine, method, path string, userID uuid.UUID, body any, headers ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.UserIDHeader, userID.String())
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeEnvelope(rr *httptest.ResponseRecorder, data any) envelope {
	var env envelope
	_ = json.Unmarshal(rr.Body.Bytes(), &env)
	if data != nil && len(env.Data) > 0 {
		_ = json.Unmarshal(env.Data, data)
	}
	return env
}

type MockExpenseService struct {
	mock.Mock
}

func (m *MockExpenseService) CreateExpense(ctx context.Context, input service.CreateExpenseInput) (*ledger.SplitResult, bool, error) {
	args := m.Called(ctx, input)
	result, _ := args.Get(0).(*ledger.SplitResult)
	return result, args.Bool(1), args.Error(2)
}

func (m *MockExpenseService) GetExpense(ctx context.Context, userID, expenseID uuid.UUID) (*expense.Expense, error) {
	args := m.Called(ctx, userID, expenseID)
	exp, _ := args.Get(0).(*expense.Expense)
	return exp, args.Error(1)
}

func (m *MockExpenseService) ListExpenses(ctx context.Context, filter expense.Filter) ([]*expense.Expense, error) {
	args := m.Called(ctx, filter)
	expenses, _ := args.Get(0).([]*expense.Expense)
	return expenses, args.Error(1)
}

func (m *MockExpenseService) SumExpenses(ctx context.Context, filter expense.Filter) (decimal.Decimal, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockExpenseService) UpdateExpense(ctx context.Context, userID, expenseID uuid.UUID, changes expense.Changes) (*ledger.EditResult, error) {
	args := m.Called(ctx, userID, expenseID, changes)
	result, _ := args.Get(0).(*ledger.EditResult)
	return result, args.Error(1)
}

func (m *MockExpenseService) DeleteExpense(ctx context.Context, userID, expenseID uuid.UUID) (*ledger.DeleteResult, error) {
	args := m.Called(ctx, userID, expenseID)
	result, _ := args.Get(0).(*ledger.DeleteResult)
	return result, args.Error(1)
}

type MockSettlementService struct {
	mock.Mock
}

func (m *MockSettlementService) ListSettlementsForUser(ctx context.Context, userID uuid.UUID, groupIDs []uuid.UUID) (*ledger.Overview, error) {
	args := m.Called(ctx, userID, groupIDs)
	overview, _ := args.Get(0).(*ledger.Overview)
	return overview, args.Error(1)
}

func (m *MockSettlementService) RecordSettlement(ctx context.Context, req ledger.SettlementRequest, idempotencyKey string) (*ledger.Settlement, bool, error) {
	args := m.Called(ctx, req, idempotencyKey)
	settlement, _ := args.Get(0).(*ledger.Settlement)
	return settlement, args.Bool(1), args.Error(2)
}

type MockDebtService struct {
	mock.Mock
}

func (m *MockDebtService) CreateDebt(ctx context.Context, input service.CreateDebtInput) (*debt.DebtRecord, error) {
	args := m.Called(ctx, input)
	record, _ := args.Get(0).(*debt.DebtRecord)
	return record, args.Error(1)
}

func (m *MockDebtService) GetDebt(ctx context.Context, id uuid.UUID) (*debt.DebtRecord, error) {
	args := m.Called(ctx, id)
	record, _ := args.Get(0).(*debt.DebtRecord)
	return record, args.Error(1)
}

func (m *MockDebtService) FindDebts(ctx context.Context, filter debt.Filter) ([]*debt.DebtRecord, error) {
	args := m.Called(ctx, filter)
	records, _ := args.Get(0).([]*debt.DebtRecord)
	return records, args.Error(1)
}

func (m *MockDebtService) UpdateDebt(ctx context.Context, id uuid.UUID, input service.UpdateDebtInput) (*debt.DebtRecord, error) {
	args := m.Called(ctx, id, input)
	record, _ := args.Get(0).(*debt.DebtRecord)
	return record, args.Error(1)
}

func (m *MockDebtService) DeleteDebt(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockReconciliationService struct {
	mock.Mock
}

func (m *MockReconciliationService) ListByExpense(ctx context.Context, expenseID uuid.UUID, limit, offset int) ([]*reconciliation.Task, error) {
	args := m.Called(ctx, expenseID, limit, offset)
	tasks, _ := args.Get(0).([]*reconciliation.Task)
	return tasks, args.Error(1)
}

var (
	_ service.ExpenseService        = (*MockExpenseService)(nil)
	_ service.SettlementService     = (*MockSettlementService)(nil)
	_ service.DebtService           = (*MockDebtService)(nil)
	_ service.ReconciliationService = (*MockReconciliationService)(nil)
)

