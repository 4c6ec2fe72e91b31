package memory_test

import (
	"context"
	"testing"

	"github.com/Chuabacca/Medley-AI/pkg/adapters/memory"
	"github.com/Chuabacca/Medley-AI/pkg/domain"
	"github.com/Chuabacca/Medley-AI/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunSessionStoreContract(t, store)
}

func TestMemoryStore_Isolation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	snap := domain.NewSnapshot("s1")
	snap.PredefinedResponses = []string{"Crown"}
	require.NoError(t, store.Save(ctx, "s1", snap))

	snap.PredefinedResponses[0] = "mutated"
	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Crown"}, loaded.PredefinedResponses)

	loaded.Data.Apply(domain.MappedAnswer{KeyPath: domain.FieldTreatmentGoals, ValueID: "regrowth"})
	again, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, again.Data.TreatmentGoals)
}
