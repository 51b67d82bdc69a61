package reservation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumeirei/hotel-pms-backend/internal/common/errors"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
)

func TestHistoryService_RecordAndList(t *testing.T) {
	env := setupTestEnv(t)
	ctx := t.Context()

	r := env.create(t, nil, "2025-06-10", "2025-06-11", line("2025-06-10", 100, 1))

	require.NoError(t, env.history.Record(ctx, nil, r.ID, "admin", models.HistoryActionModified, "note", []models.FieldChange{
		{Field: "notes", Old: "", New: "late arrival"},
	}))

	entries, err := env.history.ListByReservation(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "admin", entries[0].Actor)
	assert.JSONEq(t, `[{"field":"notes","old":"","new":"late arrival"}]`, string(entries[0].Changes))
	assert.Equal(t, models.HistoryActionConfirmed, entries[len(entries)-1].Action)
	assert.Equal(t, "Reservation created with 1 line(s).", entries[len(entries)-1].Details)

	_, err = env.history.ListByReservation(ctx, 31337)
	assert.ErrorIs(t, err, errors.ErrReservationNotFound)
}
