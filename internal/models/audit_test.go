// internal/models/audit_test.go
package models

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newAuditTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&AuditLog{}))
	return db
}

func TestAuditLogAppend(t *testing.T) {
	db := newAuditTestDB(t)

	entry := &AuditLog{
		EventType: "investment.purchase_initiated",
		Payload:   JSONB{"amount": int64(5000)},
		IPAddress: "203.0.113.7",
	}
	require.NoError(t, db.Create(entry).Error)

	var loaded AuditLog
	require.NoError(t, db.First(&loaded, entry.ID).Error)
	assert.Equal(t, "investment.purchase_initiated", loaded.EventType)
}

func TestAuditLogRejectsUpdate(t *testing.T) {
	db := newAuditTestDB(t)

	entry := &AuditLog{EventType: "payment.reconciled"}
	require.NoError(t, db.Create(entry).Error)

	err := db.Model(entry).Update("event_type", "rewritten").Error
	assert.ErrorIs(t, err, ErrImmutableRecord)

	err = db.Model(entry).Updates(map[string]interface{}{"ip_address": "10.0.0.1"}).Error
	assert.ErrorIs(t, err, ErrImmutableRecord)

	var loaded AuditLog
	require.NoError(t, db.First(&loaded, entry.ID).Error)
	assert.Equal(t, "payment.reconciled", loaded.EventType)
}

func TestAuditLogRejectsDelete(t *testing.T) {
	db := newAuditTestDB(t)

	entry := &AuditLog{EventType: "fraud.alert_resolved"}
	require.NoError(t, db.Create(entry).Error)

	err := db.Delete(entry).Error
	assert.ErrorIs(t, err, ErrImmutableRecord)

	var count int64
	require.NoError(t, db.Model(&AuditLog{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
