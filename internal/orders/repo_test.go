package orders

import (
	"context"
	"testing"
	"time"

	"github.com/aurelhart/scoreline-backend/pkg/config"
	pkgdb "github.com/aurelhart/scoreline-backend/pkg/db"
	"github.com/aurelhart/scoreline-backend/pkg/db/models"
	"github.com/aurelhart/scoreline-backend/pkg/enums"
	pkgerrors "github.com/aurelhart/scoreline-backend/pkg/errors"
	"github.com/aurelhart/scoreline-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  payment_reference TEXT NOT NULL,
  customer_email TEXT NOT NULL,
  customer_name TEXT NOT NULL DEFAULT '',
  catalog_id TEXT NOT NULL DEFAULT '',
  title TEXT NOT NULL DEFAULT '',
  amount NUMERIC NOT NULL DEFAULT 0,
  currency TEXT NOT NULL DEFAULT 'USD',
  status TEXT NOT NULL DEFAULT 'pending',
  failure_reason TEXT,
  asset_reference TEXT,
  external_ledger_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, email string, createdAt time.Time) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:               uuid.New(),
		OrderID:          uuid.NewString(),
		PaymentReference: "pi_" + uuid.NewString()[:8],
		CustomerEmail:    email,
		CustomerName:     email,
		CatalogID:        uuid.NewString(),
		Title:            "Coming Home",
		Amount:           decimal.New(999, -2),
		Currency:         enums.CurrencyUSD,
		Status:           enums.OrderStatusCompleted,
		CreatedAt:        createdAt,
		UpdatedAt:        createdAt,
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestRepoCreateAndFind(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, "a@b.com", time.Now().UTC())

	found, err := repo.FindByOrderID(ctx, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)
	assert.Equal(t, "a@b.com", found.CustomerEmail)
	assert.True(t, found.Amount.Equal(decimal.New(999, -2)))
}

func TestRepoRejectsDuplicateOrderID(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, "a@b.com", time.Now().UTC())

	dup := &models.Order{
		ID:            uuid.New(),
		OrderID:       order.OrderID,
		CustomerEmail: "a@b.com",
		Title:         "Coming Home",
		Status:        enums.OrderStatusCompleted,
	}
	_, err := repo.Create(ctx, dup)
	require.Error(t, err)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestRepoListByCustomerWithCursor(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 5; i++ {
		seedOrder(t, db, "a@b.com", now.Add(-time.Duration(i)*time.Hour))
	}
	seedOrder(t, db, "other@b.com", now)

	first, err := repo.ListByCustomer(ctx, "a@b.com", pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first, 3) // limit + 1 buffer row
	assert.True(t, first[0].CreatedAt.After(first[1].CreatedAt))

	cursor := pagination.EncodeCursor(pagination.Cursor{
		CreatedAt: first[1].CreatedAt,
		ID:        first[1].ID,
	})
	rest, err := repo.ListByCustomer(ctx, "a@b.com", pagination.Params{Limit: 10, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, rest, 3)
	for _, row := range rest {
		assert.True(t, row.CreatedAt.Before(first[1].CreatedAt))
	}
}

func TestRepoFindByPaymentReference(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seeded := seedOrder(t, db, "a@b.com", time.Now().UTC())

	found, err := repo.FindByPaymentReference(ctx, seeded.PaymentReference)
	require.NoError(t, err)
	assert.Equal(t, seeded.OrderID, found.OrderID)

	_, err = repo.FindByPaymentReference(ctx, "pi_unknown")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepoUpdateMissingOrder(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	_, err := repo.Update(context.Background(), "missing", map[string]any{"status": enums.OrderStatusRefunded})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepoStats(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	seedOrder(t, db, "a@b.com", now)
	seedOrder(t, db, "b@b.com", now)
	failed := seedOrder(t, db, "c@b.com", now)
	_, err := repo.Update(ctx, failed.OrderID, map[string]any{"status": enums.OrderStatusFailed})
	require.NoError(t, err)

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	stats, err := repo.Stats(ctx, monthStart)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalOrders)
	assert.Equal(t, int64(2), stats.CompletedOrders)
	assert.Equal(t, int64(1), stats.FailedOrders)
	assert.Equal(t, int64(3), stats.UniqueCustomers)
	assert.True(t, stats.Revenue.Equal(decimal.New(1998, -2)), "revenue %s", stats.Revenue)
	assert.True(t, stats.MonthlyRevenue.Equal(decimal.New(1998, -2)), "monthly %s", stats.MonthlyRevenue)
}

func TestRepoDeleteOlderThan(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	seedOrder(t, db, "a@b.com", now.AddDate(-2, 0, 0))
	keep := seedOrder(t, db, "a@b.com", now)

	deleted, err := repo.DeleteOlderThan(ctx, now.AddDate(-1, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	remaining, err := repo.FindByOrderID(ctx, keep.OrderID)
	require.NoError(t, err)
	assert.Equal(t, keep.ID, remaining.ID)
}

func TestCreateReplayThroughWiredClient(t *testing.T) {
	client, err := pkgdb.New(context.Background(),
		config.DBConfig{DSN: "file::memory:"},
		config.FeatureFlagsConfig{UseSQLite: true},
		nil,
	)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	schema := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  payment_reference TEXT NOT NULL,
  customer_email TEXT NOT NULL,
  customer_name TEXT NOT NULL DEFAULT '',
  catalog_id TEXT NOT NULL DEFAULT '',
  title TEXT NOT NULL DEFAULT '',
  amount NUMERIC NOT NULL DEFAULT 0,
  currency TEXT NOT NULL DEFAULT 'USD',
  status TEXT NOT NULL DEFAULT 'pending',
  failure_reason TEXT,
  asset_reference TEXT,
  external_ledger_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, client.DB().Exec(schema).Error)

	svc, err := NewService(NewRepository(client.DB()))
	require.NoError(t, err)

	input := CreateOrderInput{
		OrderID:          "order_replay",
		PaymentReference: "pi_replay",
		CustomerEmail:    "replay@example.com",
		Title:            "Coming Home",
		AmountMinorUnits: 1999,
		Currency:         "usd",
		Status:           enums.OrderStatusCompleted,
	}

	first, err := svc.Create(context.Background(), input)
	require.NoError(t, err)
	require.NotNil(t, first)

	_, err = svc.Create(context.Background(), input)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected a coded error, got %v", err)
	assert.Equal(t, pkgerrors.CodeIdempotency, typed.Code())
}
