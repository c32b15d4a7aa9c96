package extledger

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aurelhart/scoreline-backend/internal/orders"
	"github.com/aurelhart/scoreline-backend/pkg/logger"
	"github.com/rs/zerolog"
)

type stubLedgerClient struct {
	createID  string
	createErr error
	updateErr error

	created []orders.OrderDTO
	updated []string
}

func (s *stubLedgerClient) CreateEntry(_ context.Context, order orders.OrderDTO) (string, error) {
	s.created = append(s.created, order)
	return s.createID, s.createErr
}

func (s *stubLedgerClient) UpdateStatus(_ context.Context, externalID, orderID, status string) error {
	s.updated = append(s.updated, externalID+"|"+orderID+"|"+status)
	return s.updateErr
}

type stubIDStore struct {
	setErr error
	calls  map[string]string
}

func (s *stubIDStore) SetExternalLedgerID(_ context.Context, orderID, externalID string) error {
	if s.calls == nil {
		s.calls = map[string]string{}
	}
	s.calls[orderID] = externalID
	return s.setErr
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard})
}

func newMirror(t *testing.T, client ledgerClient, store externalIDStore) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Client: client, Orders: store, Logger: testLogger()})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestMirrorStoresExternalID(t *testing.T) {
	client := &stubLedgerClient{createID: "page-7"}
	store := &stubIDStore{}
	svc := newMirror(t, client, store)

	result := svc.Mirror(context.Background(), sampleOrder())
	if !result.Synced || result.ExternalID != "page-7" {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(client.created) != 1 {
		t.Fatalf("expected one create call, got %d", len(client.created))
	}
	if store.calls["order_123"] != "page-7" {
		t.Fatalf("external id not stored: %v", store.calls)
	}
}

func TestMirrorFailureIsSwallowed(t *testing.T) {
	client := &stubLedgerClient{createErr: errors.New("notion down")}
	store := &stubIDStore{}
	svc := newMirror(t, client, store)

	result := svc.Mirror(context.Background(), sampleOrder())
	if result.Synced {
		t.Fatalf("failed sync reported as synced")
	}
	if len(store.calls) != 0 {
		t.Fatalf("no external id should be stored on failure")
	}
}

func TestMirrorSkipsWithoutClient(t *testing.T) {
	svc := newMirror(t, nil, &stubIDStore{})
	if svc.Enabled() {
		t.Fatalf("service without a client should report disabled")
	}
	if result := svc.Mirror(context.Background(), sampleOrder()); result.Synced {
		t.Fatalf("unconfigured mirror must not report success")
	}
}

func TestMirrorStoreFailureDoesNotFailSync(t *testing.T) {
	client := &stubLedgerClient{createID: "page-8"}
	store := &stubIDStore{setErr: errors.New("db down")}
	svc := newMirror(t, client, store)

	result := svc.Mirror(context.Background(), sampleOrder())
	if !result.Synced || result.ExternalID != "page-8" {
		t.Fatalf("store failure must not fail the mirror, got %+v", result)
	}
}

func TestMirrorStatusUsesStoredPageID(t *testing.T) {
	client := &stubLedgerClient{}
	svc := newMirror(t, client, nil)

	order := sampleOrder()
	pageID := "page-9"
	order.ExternalLedgerID = &pageID
	order.Status = "refunded"

	result := svc.MirrorStatus(context.Background(), order)
	if !result.Synced {
		t.Fatalf("expected synced status update")
	}
	if len(client.updated) != 1 || client.updated[0] != "page-9|order_123|refunded" {
		t.Fatalf("unexpected update calls %v", client.updated)
	}
}
