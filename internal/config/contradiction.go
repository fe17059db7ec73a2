package config

import (
	"os"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	ScopeIntraOnly = "intra_only"
	ScopeAll       = "all"
)

// DefaultSeedBeliefs bootstraps the active belief cache of a fresh process.
const DefaultSeedBeliefs = "I value honesty in conversation||" +
	"Privacy should be protected by default||" +
	"I believe AI should be aligned with human values"

type Thresholds struct {
	SimThreshold                 float64 `yaml:"SIM_THRESHOLD"`
	StrongContradictionThreshold float64 `yaml:"STRONG_CONTRADICTION_THRESHOLD"`
}

type Penalties struct {
	BasePenalty                float64 `yaml:"BASE_PENALTY"`
	OppositePolarityMultiplier float64 `yaml:"OPPOSITE_POLARITY_MULTIPLIER"`
}

type Modes struct {
	TaggerMode       string `yaml:"TAGGER_MODE"`
	AlignmentEnabled bool   `yaml:"ALIGNMENT_ENABLED"`
}

// ContradictionConfig drives the detector, cache and advisor.
type ContradictionConfig struct {
	Thresholds  Thresholds        `yaml:"thresholds"`
	Penalties   Penalties         `yaml:"penalties"`
	Modes       Modes             `yaml:"modes"`
	ScopePolicy string            `yaml:"SCOPE_POLICY"`
	RefreshSec  int               `yaml:"REFRESH_SEC"`
	DecayWeight float64           `yaml:"DECAY_WEIGHT"`
	SeedBeliefs string            `yaml:"SEED_BELIEFS"`
	Themes      map[string]string `yaml:"THEMES"`
}

// DefaultContradictionConfig returns the built-in defaults.
func DefaultContradictionConfig() ContradictionConfig {
	return ContradictionConfig{
		Thresholds: Thresholds{
			SimThreshold:                 0.85,
			StrongContradictionThreshold: 0.7,
		},
		Penalties: Penalties{
			BasePenalty:                0.1,
			OppositePolarityMultiplier: 1.5,
		},
		Modes: Modes{
			TaggerMode:       "auto",
			AlignmentEnabled: true,
		},
		ScopePolicy: ScopeIntraOnly,
		RefreshSec:  300,
		DecayWeight: 1.0,
		SeedBeliefs: DefaultSeedBeliefs,
		Themes:      map[string]string{},
	}
}

// LoadContradictionConfig merges the YAML file at path over the defaults.
// A missing or invalid file yields the defaults unchanged.
func LoadContradictionConfig(path string) ContradictionConfig {
	cfg := DefaultContradictionConfig()
	if path == "" {
		return cfg
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}
	merged := cfg
	if err := yaml.Unmarshal(data, &merged); err != nil {
		return cfg
	}
	merged.sanitize()
	return merged
}

func (c *ContradictionConfig) sanitize() {
	def := DefaultContradictionConfig()
	if c.Thresholds.SimThreshold <= 0 || c.Thresholds.SimThreshold > 1 {
		c.Thresholds.SimThreshold = def.Thresholds.SimThreshold
	}
	if c.Thresholds.StrongContradictionThreshold <= 0 || c.Thresholds.StrongContradictionThreshold > 1 {
		c.Thresholds.StrongContradictionThreshold = def.Thresholds.StrongContradictionThreshold
	}
	if c.ScopePolicy == "" {
		c.ScopePolicy = def.ScopePolicy
	}
	if c.RefreshSec <= 0 {
		c.RefreshSec = def.RefreshSec
	}
	if c.DecayWeight <= 0 {
		c.DecayWeight = def.DecayWeight
	}
	if c.Themes == nil {
		c.Themes = map[string]string{}
	}
}

// applyEnv overrides the refresh cadence from REFRESH_SEC.
func (c *ContradictionConfig) applyEnv() {
	if n, err := strconv.Atoi(os.Getenv("REFRESH_SEC")); err == nil && n > 0 {
		c.RefreshSec = n
	}
}

// TaggingEnabled reports whether contradicted_with links are written.
func (c *ContradictionConfig) TaggingEnabled() bool {
	return c.Modes.TaggerMode != "off" && ContradictionTagging()
}

var (
	contradictionOnce sync.Once
	contradictionCfg  *ContradictionConfig
)

// Contradiction returns the process-wide config, loaded once from AXIOM_CONFIG.
func Contradiction() *ContradictionConfig {
	contradictionOnce.Do(func() {
		cfg := LoadContradictionConfig(os.Getenv("AXIOM_CONFIG"))
		cfg.applyEnv()
		contradictionCfg = &cfg
	})
	return contradictionCfg
}
