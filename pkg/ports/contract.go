package ports

import (
	"context"
	"testing"
	"time"

	"github.com/Chuabacca/Medley-AI/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore implementation
// adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		snap := domain.NewSnapshot(sessionID)
		snap.Status = domain.StatusAwaitingAnswer
		snap.CurrentQuestionID = "hair_loss_location"
		snap.PredefinedResponses = []string{"Crown", "Hairline"}
		snap.Messages = append(snap.Messages, domain.NewMessage(domain.RoleModel, "Where are you noticing hair loss?"))
		snap.Data.Apply(domain.MappedAnswer{KeyPath: domain.FieldConsultationStart, ValueID: "ready"})

		err := store.Save(ctx, sessionID, snap)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, sessionID, loaded.SessionID)
		assert.Equal(t, domain.StatusAwaitingAnswer, loaded.Status)
		assert.Equal(t, "hair_loss_location", loaded.CurrentQuestionID)
		assert.Equal(t, []string{"Crown", "Hairline"}, loaded.PredefinedResponses)
		require.Len(t, loaded.Messages, 1)
		assert.Equal(t, snap.Messages[0].ID, loaded.Messages[0].ID)
		assert.Equal(t, "Where are you noticing hair loss?", loaded.Messages[0].Text)
		assert.Equal(t, map[string]any{domain.FieldConsultationStart: "ready"}, loaded.Data.Fields())
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		snap := domain.NewSnapshot(sessionID)
		snap.Status = domain.StatusComplete
		require.NoError(t, store.Save(ctx, sessionID, snap))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusComplete, loaded.Status)
		assert.Empty(t, loaded.Messages)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, domain.NewSnapshot(sessionID))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		require.NoError(t, store.Save(ctx, id1, domain.NewSnapshot(id1)))
		require.NoError(t, store.Save(ctx, id2, domain.NewSnapshot(id2)))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
