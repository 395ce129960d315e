// internal/services/audit_service_test.go
package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborvest/arbor-backend/internal/models"
)

func TestAuditAppendAndList(t *testing.T) {
	db := newTestDB(t)
	audit := NewAuditService(db)
	actor := uuid.New()

	first, err := audit.Append(nil, &actor, "investment.purchase_initiated", models.JSONB{"amount": int64(5000)}, ClientMeta{IPAddress: "10.0.0.1"})
	require.NoError(t, err)
	second, err := audit.Append(nil, nil, "payment.reconciled", nil, ClientMeta{})
	require.NoError(t, err)

	entries, total, err := audit.List(newestFirstParams())
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, entries, 2)
	assert.Equal(t, second, entries[0].ID)
	assert.Equal(t, first, entries[1].ID)
	assert.Nil(t, entries[0].ActorID)
	require.NotNil(t, entries[1].ActorID)
	assert.Equal(t, actor, *entries[1].ActorID)
}

func TestAuditUpdateAndDeleteAreRefused(t *testing.T) {
	db := newTestDB(t)
	audit := NewAuditService(db)

	id, err := audit.Append(nil, nil, "payment.reconciled", nil, ClientMeta{})
	require.NoError(t, err)

	err = audit.Update(id, models.JSONB{"rewritten": true})
	assert.True(t, IsCode(err, ErrCodeImmutableRecord))

	err = audit.Delete(id)
	assert.True(t, IsCode(err, ErrCodeImmutableRecord))

	entries, total, err := audit.List(newestFirstParams())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "payment.reconciled", entries[0].EventType)
}

func TestTranslateImmutable(t *testing.T) {
	err := TranslateImmutable(fmt.Errorf("save failed: %w", models.ErrImmutableRecord))
	assert.True(t, IsCode(err, ErrCodeImmutableRecord))

	other := errors.New("connection refused")
	assert.Equal(t, other, TranslateImmutable(other))

	assert.NoError(t, TranslateImmutable(nil))
}
