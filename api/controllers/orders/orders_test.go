package orders

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aurelhart/scoreline-backend/api/responses"
	"github.com/aurelhart/scoreline-backend/internal/extledger"
	"github.com/aurelhart/scoreline-backend/internal/notifications"
	internalorders "github.com/aurelhart/scoreline-backend/internal/orders"
	"github.com/aurelhart/scoreline-backend/pkg/enums"
	pkgerrors "github.com/aurelhart/scoreline-backend/pkg/errors"
	"github.com/aurelhart/scoreline-backend/pkg/pagination"
)

func TestGetReturnsOrder(t *testing.T) {
	svc := &stubOrderService{order: sampleOrder()}
	handler := Get(svc, nil)

	req := withOrderID(httptest.NewRequest(http.MethodGet, "/api/v1/orders/order_123", nil), "order_123")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, resp.Body.String())
	}
	if svc.gotOrderID != "order_123" {
		t.Fatalf("expected url param passed through, got %q", svc.gotOrderID)
	}
}

func TestGetUnknownOrderIs404(t *testing.T) {
	svc := &stubOrderService{getErr: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	handler := Get(svc, nil)

	req := withOrderID(httptest.NewRequest(http.MethodGet, "/api/v1/orders/missing", nil), "missing")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestListByCustomerRequiresEmail(t *testing.T) {
	handler := ListByCustomer(&stubOrderService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestListByCustomerPassesPagination(t *testing.T) {
	svc := &stubOrderService{list: &internalorders.OrderList{NextCursor: "abc"}}
	handler := ListByCustomer(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?email=ada@scoreline.test&limit=10&cursor=xyz", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, resp.Body.String())
	}
	if svc.gotEmail != "ada@scoreline.test" {
		t.Fatalf("unexpected email %q", svc.gotEmail)
	}
	if svc.gotParams.Limit != 10 || svc.gotParams.Cursor != "xyz" {
		t.Fatalf("unexpected pagination %+v", svc.gotParams)
	}
}

func TestListByCustomerRejectsOversizedLimit(t *testing.T) {
	handler := ListByCustomer(&stubOrderService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?email=a@b.test&limit=9999", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestStatsIncludesAssetCacheSnapshot(t *testing.T) {
	svc := &stubOrderService{}
	cache := &stubCache{files: 4, bytes: 2048}
	handler := Stats(svc, cache, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/stats", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, resp.Body.String())
	}

	var envelope responses.SuccessEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	data := envelope.Data.(map[string]any)
	cacheStats, ok := data["asset_cache"].(map[string]any)
	if !ok {
		t.Fatalf("expected asset_cache section, got %v", data)
	}
	if cacheStats["files"].(float64) != 4 {
		t.Fatalf("unexpected cache file count %v", cacheStats["files"])
	}
}

func TestStatsSurvivesCacheFailure(t *testing.T) {
	svc := &stubOrderService{}
	cache := &stubCache{err: errors.New("cache dir unreadable")}
	handler := Stats(svc, cache, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/stats", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("cache failure must not break stats, got %d", resp.Code)
	}
}

func TestUpdateStatusMirrorsChange(t *testing.T) {
	svc := &stubOrderService{order: sampleOrder()}
	mirror := &stubMirror{}
	handler := UpdateStatus(svc, mirror, nil)

	body := `{"status":"refunded"}`
	req := withOrderID(httptest.NewRequest(http.MethodPatch, "/api/v1/orders/order_123/status", strings.NewReader(body)), "order_123")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, resp.Body.String())
	}
	if svc.gotStatus != enums.OrderStatusRefunded {
		t.Fatalf("unexpected status %q", svc.gotStatus)
	}
	if mirror.calls != 1 {
		t.Fatalf("expected mirror invoked once, got %d", mirror.calls)
	}
}

func TestUpdateStatusRejectsUnknownState(t *testing.T) {
	svc := &stubOrderService{order: sampleOrder()}
	handler := UpdateStatus(svc, nil, nil)

	body := `{"status":"shipped"}`
	req := withOrderID(httptest.NewRequest(http.MethodPatch, "/api/v1/orders/order_123/status", strings.NewReader(body)), "order_123")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.updateCalls != 0 {
		t.Fatalf("update must not run with an invalid status")
	}
}

func TestResendConfirmationAccepted(t *testing.T) {
	resender := &stubResender{attempt: notifications.AttemptDTO{OrderID: "order_123", Outcome: enums.NotificationSent}}
	handler := ResendConfirmation(resender, nil)

	req := withOrderID(httptest.NewRequest(http.MethodPost, "/api/v1/orders/order_123/resend", nil), "order_123")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202 got %d (%s)", resp.Code, resp.Body.String())
	}

	var envelope responses.SuccessEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
}

func TestResendConfirmationConflictForFailedOrder(t *testing.T) {
	resender := &stubResender{err: pkgerrors.New(pkgerrors.CodeConflict, "only completed orders can be resent")}
	handler := ResendConfirmation(resender, nil)

	req := withOrderID(httptest.NewRequest(http.MethodPost, "/api/v1/orders/order_123/resend", nil), "order_123")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}

func TestListAttemptsChecksOrderExists(t *testing.T) {
	svc := &stubOrderService{getErr: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	attempts := &stubAttempts{}
	handler := ListAttempts(svc, attempts, nil)

	req := withOrderID(httptest.NewRequest(http.MethodGet, "/api/v1/orders/missing/attempts", nil), "missing")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
	if attempts.calls != 0 {
		t.Fatalf("attempts must not be listed for unknown orders")
	}
}

func TestListAttemptsReturnsHistory(t *testing.T) {
	svc := &stubOrderService{order: sampleOrder()}
	attempts := &stubAttempts{list: []notifications.AttemptDTO{{OrderID: "order_123"}}}
	handler := ListAttempts(svc, attempts, nil)

	req := withOrderID(httptest.NewRequest(http.MethodGet, "/api/v1/orders/order_123/attempts", nil), "order_123")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, resp.Body.String())
	}
}

func sampleOrder() *internalorders.OrderDTO {
	return &internalorders.OrderDTO{
		ID:               uuid.New(),
		OrderID:          "order_123",
		PaymentReference: "pi_123",
		CustomerEmail:    "ada@scoreline.test",
		Title:            "Coming Home",
		Amount:           decimal.New(999, -2),
		Currency:         enums.CurrencyUSD,
		Status:           enums.OrderStatusCompleted,
		CreatedAt:        time.Date(2025, 7, 12, 10, 0, 0, 0, time.UTC),
	}
}

func withOrderID(req *http.Request, orderID string) *http.Request {
	ctx := chi.NewRouteContext()
	ctx.URLParams.Add("orderID", orderID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, ctx))
}

type stubOrderService struct {
	order       *internalorders.OrderDTO
	list        *internalorders.OrderList
	getErr      error
	gotOrderID  string
	gotEmail    string
	gotParams   pagination.Params
	gotStatus   enums.OrderStatus
	updateCalls int
}

func (s *stubOrderService) Create(context.Context, internalorders.CreateOrderInput) (*internalorders.OrderDTO, error) {
	return nil, nil
}

func (s *stubOrderService) Get(_ context.Context, orderID string) (*internalorders.OrderDTO, error) {
	s.gotOrderID = orderID
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.order, nil
}

func (s *stubOrderService) GetByPaymentReference(_ context.Context, _ string) (*internalorders.OrderDTO, error) {
	return s.order, nil
}

func (s *stubOrderService) ListByCustomer(_ context.Context, email string, params pagination.Params) (*internalorders.OrderList, error) {
	s.gotEmail = email
	s.gotParams = params
	return s.list, nil
}

func (s *stubOrderService) UpdateStatus(_ context.Context, orderID string, input internalorders.UpdateStatusInput) (*internalorders.OrderDTO, error) {
	s.updateCalls++
	s.gotOrderID = orderID
	s.gotStatus = input.Status
	return s.order, nil
}

func (s *stubOrderService) SetExternalLedgerID(context.Context, string, string) error {
	return nil
}

func (s *stubOrderService) Stats(context.Context) (*internalorders.StatsDTO, error) {
	return &internalorders.StatsDTO{}, nil
}

func (s *stubOrderService) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type stubMirror struct {
	calls int
}

func (s *stubMirror) MirrorStatus(context.Context, internalorders.OrderDTO) extledger.MirrorResult {
	s.calls++
	return extledger.MirrorResult{Synced: true}
}

type stubResender struct {
	attempt notifications.AttemptDTO
	err     error
}

func (s *stubResender) ResendConfirmation(context.Context, string) (notifications.AttemptDTO, error) {
	if s.err != nil {
		return notifications.AttemptDTO{}, s.err
	}
	return s.attempt, nil
}

type stubCache struct {
	files int
	bytes int64
	err   error
}

func (s *stubCache) CacheStats() (int, int64, error) {
	if s.err != nil {
		return 0, 0, s.err
	}
	return s.files, s.bytes, nil
}

type stubAttempts struct {
	list  []notifications.AttemptDTO
	calls int
}

func (s *stubAttempts) ListByOrder(context.Context, string) ([]notifications.AttemptDTO, error) {
	s.calls++
	return s.list, nil
}
