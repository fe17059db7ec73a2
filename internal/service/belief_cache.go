package service

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/Harshitk-cp/axiom/internal/domain"
	"go.uber.org/zap"
)

const seedSeparator = "||"

// BeliefCache is the pool of currently relevant beliefs that new statements
// are compared against. It is seeded once, refreshed on a cadence and
// extended append-only.
type BeliefCache struct {
	mu          sync.RWMutex
	beliefs     []domain.Belief
	seeded      bool
	lastRefresh time.Time

	seed         string
	refreshEvery time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

func NewBeliefCache(seed string, refreshEvery time.Duration, logger *zap.Logger) *BeliefCache {
	if refreshEvery <= 0 {
		refreshEvery = 300 * time.Second
	}
	return &BeliefCache{
		seed:         seed,
		refreshEvery: refreshEvery,
		logger:       logger,
		now:          time.Now,
	}
}

// Current returns a snapshot copy, seeding and refreshing as needed.
func (c *BeliefCache) Current() []domain.Belief {
	c.mu.Lock()
	if !c.seeded {
		c.seedLocked()
	}
	if c.now().Sub(c.lastRefresh) >= c.refreshEvery {
		c.refreshLocked()
	}
	out := make([]domain.Belief, len(c.beliefs))
	for i := range c.beliefs {
		out[i] = cachedCopy(c.beliefs[i])
	}
	c.mu.Unlock()
	return out
}

// Refresh forces a refresh now.
func (c *BeliefCache) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.seeded {
		c.seedLocked()
	}
	c.refreshLocked()
}

// Extend appends beliefs. Duplicates are kept; invalid and simulated beliefs
// are refused. It returns how many were added.
func (c *BeliefCache) Extend(beliefs ...domain.Belief) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.seeded {
		c.seedLocked()
	}
	added := 0
	for i := range beliefs {
		b := beliefs[i]
		if err := b.Validate(); err != nil {
			if errors.Is(err, domain.ErrSimulatedContent) {
				c.logger.Warn("refusing simulated content in belief cache", zap.String("text", b.Text))
			}
			continue
		}
		c.beliefs = append(c.beliefs, cachedCopy(b))
		added++
	}
	return added
}

// Link records other as contradicting every cached belief whose Ref is ref.
// It returns how many entries changed.
func (c *BeliefCache) Link(ref, other string) int {
	if ref == "" || other == "" {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	linked := 0
	for i := range c.beliefs {
		b := &c.beliefs[i]
		if b.Ref() != ref {
			continue
		}
		before := len(b.ContradictedWith)
		b.LinkContradiction(other)
		if len(b.ContradictedWith) > before {
			linked++
		}
	}
	return linked
}

// cachedCopy detaches a belief from the caller's slices and producer record.
func cachedCopy(b domain.Belief) domain.Belief {
	b.Origin = nil
	b.Tags = append([]string(nil), b.Tags...)
	b.ContradictedWith = append([]string(nil), b.ContradictedWith...)
	if b.Annotations != nil {
		annotations := make(map[string]any, len(b.Annotations))
		for k, v := range b.Annotations {
			annotations[k] = v
		}
		b.Annotations = annotations
	}
	return b
}

func (c *BeliefCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.beliefs)
}

func (c *BeliefCache) LastRefreshAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastRefresh
}

// SourceCounts tallies cached beliefs by provenance.
func (c *BeliefCache) SourceCounts() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	counts := make(map[string]int)
	for _, b := range c.beliefs {
		counts[b.Source]++
	}
	return counts
}

func (c *BeliefCache) seedLocked() {
	c.seeded = true
	for _, raw := range strings.Split(c.seed, seedSeparator) {
		b, err := ExtractBelief(raw, "seed")
		if err != nil {
			continue
		}
		c.beliefs = append(c.beliefs, *b)
	}
	c.lastRefresh = c.now()
	c.logger.Debug("belief cache seeded", zap.Int("size", len(c.beliefs)))
}

// refreshLocked only bumps the timestamp; the pool has no external reload source yet.
func (c *BeliefCache) refreshLocked() {
	c.lastRefresh = c.now()
}
