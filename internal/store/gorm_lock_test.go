package store

import (
	"context"
	"strings"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// dryRunPostgres renders postgres SQL without opening a connection.
func dryRunPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=127.0.0.1 port=5432 user=weather dbname=weather sslmode=disable",
	}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open dry-run db: %v", err)
	}
	return db
}

func TestFindQueryLocksRowInsideTransaction(t *testing.T) {
	db := dryRunPostgres(t)
	ctx := context.Background()

	var row dailyRow
	locked := (&GormStore{db: db, lockRows: true}).findQuery(ctx, "Delhi", "2024-06-01").Take(&row).Statement.SQL.String()
	if !strings.Contains(locked, "FOR UPDATE") {
		t.Fatalf("expected a row lock, got %q", locked)
	}

	plain := (&GormStore{db: db}).findQuery(ctx, "Delhi", "2024-06-01").Take(&row).Statement.SQL.String()
	if strings.Contains(plain, "FOR UPDATE") {
		t.Fatalf("reads outside a transaction must not lock, got %q", plain)
	}
}
