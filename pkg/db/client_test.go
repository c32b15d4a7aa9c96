package db

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/aurelhart/scoreline-backend/pkg/config"
)

func newSQLiteClient(t *testing.T) *Client {
	t.Helper()

	client, err := New(context.Background(),
		config.DBConfig{DSN: "file::memory:"},
		config.FeatureFlagsConfig{UseSQLite: true},
		nil,
	)
	if err != nil {
		t.Fatalf("open sqlite client: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestClientTranslatesDuplicateKey(t *testing.T) {
	client := newSQLiteClient(t)

	type row struct {
		Key string `gorm:"column:key;primaryKey"`
	}
	if err := client.DB().Exec(`CREATE TABLE rows (key TEXT PRIMARY KEY)`).Error; err != nil {
		t.Fatalf("create table: %v", err)
	}

	if err := client.DB().Table("rows").Create(&row{Key: "pi_123"}).Error; err != nil {
		t.Fatalf("first insert: %v", err)
	}

	err := client.DB().Table("rows").Create(&row{Key: "pi_123"}).Error
	if err == nil {
		t.Fatalf("expected duplicate key insert to fail")
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("expected gorm.ErrDuplicatedKey, got %v", err)
	}
}
