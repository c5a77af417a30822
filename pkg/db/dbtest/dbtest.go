// Package dbtest opens throwaway sqlite databases carrying the ledger schema.
package dbtest

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kgcashflow/cashflow-backend/pkg/db"
)

const schema = `
CREATE TABLE IF NOT EXISTS income_events (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  source TEXT NOT NULL,
  expected_date DATE NOT NULL,
  expected_amount NUMERIC NOT NULL CHECK (expected_amount > 0),
  notes TEXT,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS bill_events (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  payee TEXT NOT NULL,
  due_date DATE NOT NULL,
  amount_due NUMERIC NOT NULL CHECK (amount_due > 0),
  description TEXT,
  payment_method TEXT,
  notes TEXT,
  status TEXT NOT NULL DEFAULT 'unpaid' CHECK (status IN ('unpaid','scheduled','paid')),
  remaining_amount NUMERIC NOT NULL CHECK (remaining_amount >= 0 AND remaining_amount <= amount_due),
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS allocations (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  income_event_id TEXT NOT NULL REFERENCES income_events(id) ON DELETE RESTRICT,
  bill_event_id TEXT NOT NULL REFERENCES bill_events(id) ON DELETE RESTRICT,
  allocated_amount NUMERIC NOT NULL CHECK (allocated_amount > 0),
  created_at DATETIME
);
CREATE INDEX IF NOT EXISTS idx_allocations_income ON allocations (income_event_id);
CREATE INDEX IF NOT EXISTS idx_allocations_bill ON allocations (bill_event_id);
`

// Open returns a gorm handle on a fresh file-backed sqlite database. Writers
// take the database lock at BEGIN so concurrent transactions serialize.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "ledger.db") +
		"?_txlock=immediate&_busy_timeout=10000&_foreign_keys=on"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, conn.Exec(schema).Error)

	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

// OpenClient wraps Open in a db.Client.
func OpenClient(t *testing.T) *db.Client {
	t.Helper()
	return db.NewFromConn(Open(t), sql.LevelSerializable)
}
