package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadContradictionConfig_Defaults(t *testing.T) {
	cfg := LoadContradictionConfig("")

	assert.Equal(t, 0.85, cfg.Thresholds.SimThreshold)
	assert.Equal(t, 0.7, cfg.Thresholds.StrongContradictionThreshold)
	assert.Equal(t, ScopeIntraOnly, cfg.ScopePolicy)
	assert.Equal(t, 300, cfg.RefreshSec)
	assert.Equal(t, 1.0, cfg.DecayWeight)
	assert.True(t, cfg.Modes.AlignmentEnabled)
	assert.NotEmpty(t, cfg.SeedBeliefs)
}

func TestLoadContradictionConfig_MissingFileFallsBack(t *testing.T) {
	cfg := LoadContradictionConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Equal(t, DefaultContradictionConfig().Thresholds, cfg.Thresholds)
}

func TestLoadContradictionConfig_InvalidYAMLFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("thresholds: [unclosed"), 0o600))

	cfg := LoadContradictionConfig(path)
	assert.Equal(t, DefaultContradictionConfig().Thresholds, cfg.Thresholds)
}

func TestLoadContradictionConfig_MergesOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "axiom.yaml")
	doc := `
thresholds:
  SIM_THRESHOLD: 0.9
modes:
  TAGGER_MODE: "off"
SCOPE_POLICY: all
THEMES:
  artificial_intelligence_should_be_regulated: governance
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg := LoadContradictionConfig(path)

	assert.Equal(t, 0.9, cfg.Thresholds.SimThreshold)
	assert.Equal(t, 0.7, cfg.Thresholds.StrongContradictionThreshold, "unset keys keep defaults")
	assert.Equal(t, "off", cfg.Modes.TaggerMode)
	assert.True(t, cfg.Modes.AlignmentEnabled)
	assert.Equal(t, ScopeAll, cfg.ScopePolicy)
	assert.Equal(t, "governance", cfg.Themes["artificial_intelligence_should_be_regulated"])
	assert.False(t, cfg.TaggingEnabled())
}

func TestLoadContradictionConfig_SanitizesOutOfRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "axiom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("thresholds:\n  SIM_THRESHOLD: 4\nREFRESH_SEC: -1\n"), 0o600))

	cfg := LoadContradictionConfig(path)
	assert.Equal(t, 0.85, cfg.Thresholds.SimThreshold)
	assert.Equal(t, 300, cfg.RefreshSec)
}

func TestApplyEnv_RefreshOverride(t *testing.T) {
	t.Setenv("REFRESH_SEC", "42")
	cfg := DefaultContradictionConfig()
	cfg.applyEnv()
	assert.Equal(t, 42, cfg.RefreshSec)
}

func TestEnvAccessors(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("AXIOM_CONTRADICTION_BACKLOG_WARNING", "")
	t.Setenv("AXIOM_CONTRADICTION_STALENESS_DAYS", "abc")
	t.Setenv("AXIOM_MONITOR_INTERVAL", "15m")
	t.Setenv("AXIOM_CONTRADICTION_TAGGING", "false")

	assert.Equal(t, "sqlite", StoreDriver())
	assert.Equal(t, 50, BacklogWarning())
	assert.Equal(t, 7, StalenessDays())
	assert.Equal(t, 15*time.Minute, MonitorInterval())
	assert.False(t, ContradictionTagging())
}
