package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/riskscope/pkg/engine"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())
	for _, k := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY"} {
		t.Setenv(k, "")
	}
	return home
}

func TestLoadDefaultsWhenMissing(t *testing.T) {
	home := isolate(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.SelectedProvider)
	assert.Equal(t, []string{"md", "html", "pdf"}, cfg.Formats)
	assert.Equal(t, engine.CriticalityHigh, cfg.Context.DataCriticality)
	assert.True(t, cfg.Context.InternetExposed)
	assert.Equal(t, 120, cfg.Context.DaysSincePatch)
	assert.Equal(t, filepath.Join(home, ".riskscope", "history.db"), cfg.DBPath)
	assert.NotNil(t, cfg.Providers)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	cfg.SelectedProvider = "openai"
	cfg.SelectedModel = "gpt-4o-mini"
	cfg.SetAPIKey("OpenAI", "sk-test")
	cfg.Context = engine.Context{OrgType: "Finance", DataCriticality: engine.CriticalityMedium, DaysSincePatch: 30}
	require.NoError(t, Save(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", loaded.SelectedProvider)
	assert.Equal(t, "gpt-4o-mini", loaded.SelectedModel)
	assert.Equal(t, "sk-test", loaded.GetAPIKey("openai"))
	assert.Equal(t, "Finance", loaded.Context.OrgType)
	assert.Equal(t, engine.CriticalityMedium, loaded.Context.DataCriticality)
	assert.False(t, loaded.Context.InternetExposed)
	assert.Equal(t, 30, loaded.Context.DaysSincePatch)
}

func TestEnvOverridesFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("selected_provider: gemini\ncontext:\n  days_since_patch: 10\n"), 0600))

	t.Setenv("RISKSCOPE_SELECTED_PROVIDER", "ollama")
	t.Setenv("RISKSCOPE_CONTEXT_DAYS_SINCE_PATCH", "200")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.SelectedProvider)
	assert.Equal(t, 200, cfg.Context.DaysSincePatch)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("selected_provider: [unclosed"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestGetAPIKeyFallsBackToEnv(t *testing.T) {
	isolate(t)
	cfg := &Config{}
	assert.Empty(t, cfg.GetAPIKey("gemini"))

	t.Setenv("GOOGLE_API_KEY", "from-env")
	assert.Equal(t, "from-env", cfg.GetAPIKey("gemini"))

	cfg.SetAPIKey("gemini", "stored")
	assert.Equal(t, "stored", cfg.GetAPIKey("GEMINI"))
}

func TestLoadProfiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bank.yaml"), []byte(`
name: bank
description: retail banking
context:
  org_type: Finance
  data_criticality: high
  internet_exposed: true
  days_since_patch: 120
`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "campus.yml"), []byte(`
context:
  org_type: Education
  data_criticality: medium
`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	profiles, err := LoadProfiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"bank", "campus"}, profiles.Names())

	bank, ok := profiles.Get("bank")
	require.True(t, ok)
	assert.Equal(t, engine.Context{
		OrgType:         "Finance",
		DataCriticality: engine.CriticalityHigh,
		InternetExposed: true,
		DaysSincePatch:  120,
	}, bank.Context)

	campus, ok := profiles.Get("campus")
	require.True(t, ok)
	assert.Equal(t, "Education", campus.Context.OrgType)
	assert.False(t, campus.Context.InternetExposed)
}

func TestLoadProfilesErrors(t *testing.T) {
	_, err := LoadProfiles(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("name: same\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte("name: same\n"), 0644))
	_, err = LoadProfiles(dir)
	assert.ErrorContains(t, err, "duplicate profile")

	bad := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(bad, "x.yaml"), []byte("context: [1, 2"), 0644))
	_, err = LoadProfiles(bad)
	assert.ErrorContains(t, err, "failed to parse x.yaml")
}
