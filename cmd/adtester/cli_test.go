package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rishi-narain/ad-tester/internal/config"
	"github.com/rishi-narain/ad-tester/internal/llm"
	"github.com/rishi-narain/ad-tester/internal/models"
	"github.com/rishi-narain/ad-tester/internal/persona"
	"github.com/rishi-narain/ad-tester/internal/prompt"
	"github.com/rishi-narain/ad-tester/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type echoProvider struct{ calls atomic.Int32 }

func (p *echoProvider) Complete(_ context.Context, payload prompt.Payload) (string, error) {
	p.calls.Add(1)
	score := 30
	if strings.Contains(payload.Text, "Persona: New Parent") {
		score = 88
	}
	return fmt.Sprintf(`{"resonanceScore": %d, "strengths": ["s"], "weaknesses": ["w"], "suggestedFixes": ["f"]}`, score), nil
}
func (p *echoProvider) Close() error                         { return nil }
func (p *echoProvider) GetModelInfo() map[string]interface{} { return nil }

func setup(t *testing.T) (*echoProvider, *bytes.Buffer) {
	t.Helper()
	logger = zap.NewNop()

	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(`
database:
  type: sqlite
  path: `+filepath.Join(dir, "data", "cli.db")+`
`), 0o644))

	p := &echoProvider{}
	prev := newProvider
	newProvider = func(*config.Config, *zap.Logger) (llm.Provider, error) { return p, nil }

	t.Cleanup(func() {
		newProvider = prev
		personaID, adText, imagePath, allPersonas = "", "", "", false
		for _, name := range []string{"persona", "text", "image", "all"} {
			evaluateCmd.Flags().Lookup(name).Changed = false
		}
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	configPath = cfgFile
	return p, &out
}

func run(args ...string) error {
	rootCmd.SetArgs(append(args, "--config", configPath))
	return rootCmd.ExecuteContext(context.Background())
}

func TestEvaluate_Single(t *testing.T) {
	p, out := setup(t)

	require.NoError(t, run("evaluate", "--persona", "new-parent", "--text", "Diapers delivered"))
	assert.EqualValues(t, 1, p.calls.Load())

	var res map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, 88.0, res["resonanceScore"])
	assert.Equal(t, "new-parent", res["personaId"])
}

func TestEvaluate_All(t *testing.T) {
	p, out := setup(t)

	require.NoError(t, run("evaluate", "--all", "--text", "Diapers delivered"))
	assert.EqualValues(t, 7, p.calls.Load())

	var res struct {
		ReverseMode bool `json:"reverseMode"`
		BestMatch   struct {
			PersonaID string `json:"personaId"`
		} `json:"bestMatch"`
		AllResults []json.RawMessage `json:"allResults"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.True(t, res.ReverseMode)
	assert.Equal(t, "new-parent", res.BestMatch.PersonaID)
	assert.Len(t, res.AllResults, 7)
}

func TestEvaluate_Image(t *testing.T) {
	p, out := setup(t)

	img := filepath.Join(t.TempDir(), "ad.png")
	require.NoError(t, os.WriteFile(img, []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), 0o644))

	require.NoError(t, run("evaluate", "--persona", "new-parent", "--image", img))
	assert.EqualValues(t, 1, p.calls.Load())
	assert.Contains(t, out.String(), `"resonanceScore": 88`)
}

func TestEvaluate_RequiresPersonaOrAll(t *testing.T) {
	p, _ := setup(t)

	err := run("evaluate", "--text", "hello")
	require.Error(t, err)
	assert.Zero(t, p.calls.Load())
}

func TestEvaluate_UnknownPersona(t *testing.T) {
	_, _ = setup(t)

	err := run("evaluate", "--persona", "nobody", "--text", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_input")
}

func TestPersonasAndMigrate(t *testing.T) {
	_, out := setup(t)

	require.NoError(t, run("personas"))
	assert.Contains(t, out.String(), "busy-professional")
	assert.Contains(t, out.String(), "Early Tech Adopter")

	out.Reset()
	require.NoError(t, run("migrate"))
	assert.Contains(t, out.String(), "(7 personas)")

	out.Reset()
	require.NoError(t, run("migrate"))
	assert.Contains(t, out.String(), "(7 personas)")
}

func TestCatalogComesFromDatabase(t *testing.T) {
	p, out := setup(t)

	cfg, err := config.LoadConfig(configPath)
	require.NoError(t, err)
	db, err := repository.NewDB(cfg.Database.Type, cfg.Database.Path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, repository.MigrateDB(db, cfg.Database.Type, zap.NewNop()))
	repo, err := repository.NewPersonaRepository(context.Background(), db, persona.Defaults(), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), &models.Persona{
		ID: "weekend-gamer", Title: "Weekend Gamer", Description: "Plays on Saturdays", SystemPrompt: "Persona: Weekend Gamer",
	}))
	require.NoError(t, repo.Delete(context.Background(), "busy-professional"))
	require.NoError(t, db.Close())

	require.NoError(t, run("personas"))
	assert.Contains(t, out.String(), "weekend-gamer")
	assert.NotContains(t, out.String(), "busy-professional")

	out.Reset()
	require.NoError(t, run("evaluate", "--persona", "weekend-gamer", "--text", "New console bundle"))
	assert.EqualValues(t, 1, p.calls.Load())
	assert.Contains(t, out.String(), `"personaId": "weekend-gamer"`)
}

func TestCatalogFallsBackWithoutDatabase(t *testing.T) {
	_, out := setup(t)

	// a regular file where the data directory should be
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(configPath, []byte(`
database:
  type: sqlite
  path: `+filepath.Join(blocker, "data", "cli.db")+`
`), 0o644))

	require.NoError(t, run("personas"))
	assert.Contains(t, out.String(), "busy-professional")
}
