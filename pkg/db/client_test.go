package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kgcashflow/cashflow-backend/pkg/config"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testModel struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func openTestClient(t *testing.T) *Client {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "client.db") + "?_busy_timeout=5000"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&testModel{}))
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewFromConn(conn, sql.LevelSerializable)
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	client := openTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&testModel{Name: "committed"}).Error
	}))

	boom := errors.New("boom")
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&testModel{Name: "rolled-back"}).Error; err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var names []string
	require.NoError(t, client.DB().Model(&testModel{}).Order("id").Pluck("name", &names).Error)
	assert.Equal(t, []string{"committed"}, names)
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	client := openTestClient(t)

	assert.Panics(t, func() {
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			if err := tx.Create(&testModel{Name: "panicked"}).Error; err != nil {
				return err
			}
			panic("kaboom")
		})
	})

	var count int64
	require.NoError(t, client.DB().Model(&testModel{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestWithLockTimeoutSharesPool(t *testing.T) {
	client := openTestClient(t)
	bounded := client.WithLockTimeout(2 * time.Second)

	assert.Equal(t, 2*time.Second, bounded.lockTimeout)
	assert.Zero(t, client.lockTimeout)
	assert.Same(t, client.DB(), bounded.DB())
	// sqlite has no lock_timeout setting; the transaction must still open.
	require.NoError(t, bounded.WithTx(context.Background(), func(tx *gorm.DB) error {
		return tx.Create(&testModel{Name: "bounded"}).Error
	}))
}

func TestTxOptionsSkippedForSQLite(t *testing.T) {
	client := openTestClient(t)
	assert.Nil(t, client.txOptions())
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), config.DBConfig{DSN: "x", Driver: "oracle", Isolation: "serializable"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestNewRequiresDSN(t *testing.T) {
	_, err := New(context.Background(), config.DBConfig{}, nil)
	require.Error(t, err)
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "pgx serialization", err: &pgconn.PgError{Code: "40001"}, want: true},
		{name: "pgx deadlock", err: &pgconn.PgError{Code: "40P01"}, want: true},
		{name: "pq lock timeout", err: &pq.Error{Code: "55P03"}, want: true},
		{name: "wrapped pgx", err: errors.Join(errors.New("tx"), &pgconn.PgError{Code: "40001"}), want: true},
		{name: "sqlite busy", err: errors.New("database is locked"), want: true},
		{name: "check violation", err: &pgconn.PgError{Code: "23514"}, want: false},
		{name: "plain", err: errors.New("boom"), want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsTransient(tc.err))
		})
	}
}

func TestConstraintViolations(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}, ""))
	assert.True(t, IsUniqueViolation(errors.New("UNIQUE constraint failed: x.id"), ""))
	assert.False(t, IsUniqueViolation(errors.New("other"), "uq_name"))
	assert.True(t, IsForeignKeyViolation(&pq.Error{Code: "23503"}))
	assert.True(t, IsForeignKeyViolation(errors.New("FOREIGN KEY constraint failed")))
	assert.False(t, IsForeignKeyViolation(nil))
}
