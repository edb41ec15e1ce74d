package cache

import (
	"fmt"
	"time"

	"github.com/chessannotate/core/pkg/artifact"
	"github.com/chessannotate/core/pkg/poskey"
	"github.com/seekerror/logw"

	"context"
)

// BucketSizes configures the max entry count per artifact kind.
type BucketSizes struct {
	EngineEval     int
	Themes         int
	Candidates     int
	MoveAssessment int
	HCE            int
}

// DefaultBucketSizes are the per-kind bucket capacity defaults.
var DefaultBucketSizes = BucketSizes{
	EngineEval:     5000,
	Themes:         3000,
	Candidates:     2000,
	MoveAssessment: 4000,
	HCE:            2000,
}

// DefaultTTL is the default per-entry TTL.
const DefaultTTL = 3600 * time.Second

// Store is the position-keyed artifact store: one typed LRU bucket per
// artifact kind (§4.2/4.3), with tier-aware lookup and monotone-replacement
// insert contracts.
type Store struct {
	engineEval *LRU[artifact.EngineEval]
	themes     *LRU[artifact.Themes]
	candidates *LRU[artifact.Candidates]
	assessment *LRU[artifact.MoveAssessment]
	hce        *LRU[artifact.HCE]
}

// NewStore creates a Store with the given bucket sizes and a shared TTL,
// tracking per-bucket stats.
func NewStore(sizes BucketSizes, ttl time.Duration) *Store {
	return &Store{
		engineEval: NewLRU[artifact.EngineEval](sizes.EngineEval, ttl, true, engineEvalReplace),
		themes:     NewLRU[artifact.Themes](sizes.Themes, ttl, true, themesReplace),
		candidates: NewLRU[artifact.Candidates](sizes.Candidates, ttl, true, candidatesReplace),
		assessment: NewLRU[artifact.MoveAssessment](sizes.MoveAssessment, ttl, true, alwaysReplace[artifact.MoveAssessment]),
		hce:        NewLRU[artifact.HCE](sizes.HCE, ttl, true, alwaysReplace[artifact.HCE]),
	}
}

// NewDefaultStore creates a Store using the package's default sizes and TTL.
func NewDefaultStore() *Store {
	return NewStore(DefaultBucketSizes, DefaultTTL)
}

func alwaysReplace[V any](existing, incoming V) bool { return true }

func engineEvalReplace(existing, incoming artifact.EngineEval) bool {
	return incoming.Depth > existing.Depth ||
		(incoming.Depth == existing.Depth && incoming.MultiPV > existing.MultiPV)
}

func themesReplace(existing, incoming artifact.Themes) bool {
	return incoming.Tier > existing.Tier
}

func candidatesReplace(existing, incoming artifact.Candidates) bool {
	return incoming.SelectionMeta.EngineDepth > existing.SelectionMeta.EngineDepth
}

// --- EngineEval ---

// SetEngineEval inserts an engine evaluation, subject to monotone depth/multipv
// replacement.
func (s *Store) SetEngineEval(e artifact.EngineEval) bool {
	return s.engineEval.Set(e.PositionKey.String(), e)
}

// GetEngineEval returns the cached evaluation for key if it meets or
// exceeds the requested minimum depth and multipv.
func (s *Store) GetEngineEval(key poskey.Key, minDepth, minMultiPV int) (artifact.EngineEval, bool) {
	e, ok := s.engineEval.Get(key.String())
	if !ok || !e.MeetsMin(minDepth, minMultiPV) {
		return artifact.EngineEval{}, false
	}
	return e, true
}

// GetEngineEvalForTier is shorthand over the tier's default depth/multipv
// requirements.
func (s *Store) GetEngineEvalForTier(key poskey.Key, tier artifact.Tier) (artifact.EngineEval, bool) {
	p := artifact.DefaultTierParams[tier]
	return s.GetEngineEval(key, p.Depth, p.MultiPV)
}

// --- Themes ---

func (s *Store) SetThemes(t artifact.Themes) bool {
	return s.themes.Set(t.PositionKey.String(), t)
}

// GetThemes returns the cached themes for key if the cached tier meets the
// requested minimum tier.
func (s *Store) GetThemes(key poskey.Key, minTier artifact.Tier) (artifact.Themes, bool) {
	t, ok := s.themes.Get(key.String())
	if !ok || t.Tier < minTier {
		return artifact.Themes{}, false
	}
	return t, true
}

// --- Candidates ---

func (s *Store) SetCandidates(c artifact.Candidates) bool {
	return s.candidates.Set(c.PositionKey.String(), c)
}

func (s *Store) GetCandidates(key poskey.Key, minDepth int) (artifact.Candidates, bool) {
	c, ok := s.candidates.Get(key.String())
	if !ok || c.SelectionMeta.EngineDepth < minDepth {
		return artifact.Candidates{}, false
	}
	return c, true
}

// --- MoveAssessment ---

func assessmentKey(parent, child poskey.Key) string {
	return parent.String() + "->" + child.String()
}

func (s *Store) SetMoveAssessment(m artifact.MoveAssessment) bool {
	return s.assessment.Set(assessmentKey(m.ParentKey, m.ChildKey), m)
}

func (s *Store) GetMoveAssessment(parent, child poskey.Key) (artifact.MoveAssessment, bool) {
	return s.assessment.Get(assessmentKey(parent, child))
}

// --- HCE ---

func (s *Store) SetHCE(h artifact.HCE) bool {
	return s.hce.Set(h.PositionKey.String(), h)
}

func (s *Store) GetHCE(key poskey.Key) (artifact.HCE, bool) {
	return s.hce.Get(key.String())
}

// --- Statistics ---

// Totals is the aggregate, store-wide statistics view.
type Totals struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Entries   int
	// EstimatedBytes is a coarse memory estimate, not an exact accounting.
	EstimatedBytes uint64
}

// perKindBytes are rough per-entry size estimates used only for the
// diagnostic EstimatedBytes figure.
const (
	bytesPerEngineEval = 256
	bytesPerThemes     = 512
	bytesPerCandidates = 640
	bytesPerAssessment = 192
	bytesPerHCE        = 320
)

// Totals aggregates hit/miss/eviction counts and entry counts across every
// bucket, plus a coarse memory estimate.
func (s *Store) Totals() Totals {
	var t Totals
	buckets := []struct {
		stats Stats
		n     int
		sz    uint64
	}{
		{s.engineEval.Stats(), s.engineEval.Len(), bytesPerEngineEval},
		{s.themes.Stats(), s.themes.Len(), bytesPerThemes},
		{s.candidates.Stats(), s.candidates.Len(), bytesPerCandidates},
		{s.assessment.Stats(), s.assessment.Len(), bytesPerAssessment},
		{s.hce.Stats(), s.hce.Len(), bytesPerHCE},
	}
	for _, b := range buckets {
		t.Hits += b.stats.Hits
		t.Misses += b.stats.Misses
		t.Evictions += b.stats.Evictions
		t.Entries += b.n
		t.EstimatedBytes += uint64(b.n) * b.sz
	}
	return t
}

// BucketStats names the five buckets' individual statistics, for detailed
// diagnostics output.
type BucketStats struct {
	EngineEval     Stats
	Themes         Stats
	Candidates     Stats
	MoveAssessment Stats
	HCE            Stats
}

func (s *Store) BucketStats() BucketStats {
	return BucketStats{
		EngineEval:     s.engineEval.Stats(),
		Themes:         s.themes.Stats(),
		Candidates:     s.candidates.Stats(),
		MoveAssessment: s.assessment.Stats(),
		HCE:            s.hce.Stats(),
	}
}

// ClearAll empties every bucket.
func (s *Store) ClearAll() {
	s.engineEval.Clear()
	s.themes.Clear()
	s.candidates.Clear()
	s.assessment.Clear()
	s.hce.Clear()
}

// Prune sweeps every bucket for TTL-expired entries and returns the total
// evicted.
func (s *Store) Prune(ctx context.Context) int {
	n := s.engineEval.Prune() + s.themes.Prune() + s.candidates.Prune() + s.assessment.Prune() + s.hce.Prune()
	if n > 0 {
		logw.Debugf(ctx, "Pruned %v expired cache entries", n)
	}
	return n
}

func (t Totals) String() string {
	return fmt.Sprintf("entries=%v hit=%v miss=%v evict=%v ~%vKB", t.Entries, t.Hits, t.Misses, t.Evictions, t.EstimatedBytes>>10)
}
