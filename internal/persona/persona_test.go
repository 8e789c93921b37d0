package persona

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rishi-narain/ad-tester/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	personas := Defaults()
	require.Len(t, personas, 7)

	assert.Equal(t, "busy-professional", personas[0].ID)
	assert.Equal(t, "early-tech-adopter", personas[6].ID)

	for _, p := range personas {
		assert.NotEmpty(t, p.Title, p.ID)
		assert.Contains(t, p.SystemPrompt, "Persona: "+p.Title)
		assert.Contains(t, p.SystemPrompt, "Buying Behavior:")
	}
}

func TestParseProfiles_Rejects(t *testing.T) {
	_, err := ParseProfiles([]byte("- id: a\n  title: A\n- id: a\n  title: B\n"))
	assert.Error(t, err)

	_, err = ParseProfiles([]byte("- title: missing id\n"))
	assert.Error(t, err)

	_, err = ParseProfiles([]byte("not: [valid"))
	assert.Error(t, err)
}

func TestSnapshot_OrderAndLookup(t *testing.T) {
	snap := NewSnapshot([]models.Persona{
		{ID: "b", Title: "B"},
		{ID: "a", Title: "A"},
		{ID: "b", Title: "duplicate"},
	})

	require.Equal(t, 2, snap.Len())
	all := snap.All()
	assert.Equal(t, "b", all[0].ID)
	assert.Equal(t, "a", all[1].ID)

	p, ok := snap.Get("b")
	require.True(t, ok)
	assert.Equal(t, "B", p.Title)

	_, ok = snap.Get("missing")
	assert.False(t, ok)

	// mutating the returned slice must not leak into the snapshot
	all[0].Title = "changed"
	p, _ = snap.Get("b")
	assert.Equal(t, "B", p.Title)
}

func TestMemoryStore_SnapshotIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(Defaults())

	before, err := store.Snapshot(ctx)
	require.NoError(t, err)

	require.NoError(t, store.Create(ctx, &models.Persona{ID: "gamer", Title: "Gamer", Description: "d", SystemPrompt: "s"}))
	require.NoError(t, store.Delete(ctx, "new-parent"))

	updated := &models.Persona{ID: "busy-professional", Title: "Exec", Description: "d", SystemPrompt: "s"}
	require.NoError(t, store.Update(ctx, updated))

	after, err := store.Snapshot(ctx)
	require.NoError(t, err)

	assert.Equal(t, 7, before.Len())
	_, ok := before.Get("new-parent")
	assert.True(t, ok)
	p, _ := before.Get("busy-professional")
	assert.Equal(t, "Busy Professional", p.Title)

	assert.Equal(t, 7, after.Len())
	_, ok = after.Get("new-parent")
	assert.False(t, ok)
	p, _ = after.Get("busy-professional")
	assert.Equal(t, "Exec", p.Title)
	assert.Equal(t, "busy-professional", after.All()[0].ID)
	assert.Equal(t, "gamer", after.All()[6].ID)
}

func TestMemoryStore_Errors(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(Defaults())

	err := store.Create(ctx, &models.Persona{ID: "new-parent", Title: "dup"})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	assert.ErrorIs(t, store.Update(ctx, &models.Persona{ID: "nope"}), ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "nope"), ErrNotFound)

	_, err = store.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Delete(ctx, "new-parent"))
	require.NoError(t, store.Reset(ctx))
	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 7)
}

func TestLoadFile(t *testing.T) {
	personas, err := LoadFile("")
	require.NoError(t, err)
	assert.Len(t, personas, 7)

	path := filepath.Join(t.TempDir(), "personas.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
- id: gamer
  title: Gamer
  description: Plays every evening
  motivations: [winning]
  buying_behavior: Waits for sales
`), 0o644))

	personas, err = LoadFile(path)
	require.NoError(t, err)
	require.Len(t, personas, 1)
	assert.Equal(t, "gamer", personas[0].ID)
	assert.Contains(t, personas[0].SystemPrompt, "Waits for sales")

	require.NoError(t, os.WriteFile(path, []byte("[]"), 0o644))
	_, err = LoadFile(path)
	assert.Error(t, err)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}
