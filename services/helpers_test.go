package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/wdlord/discord-pokebot/models"
	"github.com/wdlord/discord-pokebot/persistence"
)

const testMaxRolls = 3

// countingRecorder records events for assertions.
type countingRecorder struct {
	mu       sync.Mutex
	added    uint64
	evolve   map[string]int
	trades   map[string]int
	partial  map[string]int
	resets   int64
	pendingN int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{
		evolve:  make(map[string]int),
		trades:  make(map[string]int),
		partial: make(map[string]int),
	}
}

func (r *countingRecorder) VariantAdded(_ bool, n uint64) {
	r.mu.Lock()
	r.added += n
	r.mu.Unlock()
}
func (r *countingRecorder) Evolution(result string) {
	r.mu.Lock()
	r.evolve[result]++
	r.mu.Unlock()
}
func (r *countingRecorder) Trade(result string) {
	r.mu.Lock()
	r.trades[result]++
	r.mu.Unlock()
}
func (r *countingRecorder) PartialApply(stage string) {
	r.mu.Lock()
	r.partial[stage]++
	r.mu.Unlock()
}
func (r *countingRecorder) RollsReset(n int64) {
	r.mu.Lock()
	r.resets += n
	r.mu.Unlock()
}
func (r *countingRecorder) PendingTrades(n int) {
	r.mu.Lock()
	r.pendingN = n
	r.mu.Unlock()
}

// failingStore fails the Nth transaction (1-based) with errInjected.
type failingStore struct {
	*persistence.MemoryStore
	mu     sync.Mutex
	calls  int
	failOn int
}

var errInjected = errors.New("injected store failure")

func (s *failingStore) Transaction(ctx context.Context, fn func(tx persistence.Tx) error) error {
	s.mu.Lock()
	s.calls++
	fail := s.calls == s.failOn
	s.mu.Unlock()
	if fail {
		return errInjected
	}
	return s.MemoryStore.Transaction(ctx, fn)
}

// countFailStore fails VariantCount with errInjected while fail is set.
type countFailStore struct {
	*persistence.MemoryStore
	mu   sync.Mutex
	fail bool
}

func (s *countFailStore) setFail(fail bool) {
	s.mu.Lock()
	s.fail = fail
	s.mu.Unlock()
}

func (s *countFailStore) VariantCount(ctx context.Context, id models.PlayerID, species string) (models.VariantCount, error) {
	s.mu.Lock()
	fail := s.fail
	s.mu.Unlock()
	if fail {
		return models.VariantCount{}, errInjected
	}
	return s.MemoryStore.VariantCount(ctx, id, species)
}

func newTestLedger(t *testing.T) (*Ledger, *countingRecorder) {
	t.Helper()
	rec := newCountingRecorder()
	return NewLedger(persistence.NewMemoryStore(), testMaxRolls, rec), rec
}

func give(t *testing.T, l *Ledger, player models.PlayerID, species string, shiny bool, n uint64) {
	t.Helper()
	if err := l.AddVariant(context.Background(), player, models.NewVariant(species, shiny), n); err != nil {
		t.Fatalf("AddVariant failed: %v", err)
	}
}

func countOf(t *testing.T, l *Ledger, player models.PlayerID, species string) models.VariantCount {
	t.Helper()
	c, err := l.VariantCount(context.Background(), player, species)
	if err != nil {
		t.Fatalf("VariantCount failed: %v", err)
	}
	return c
}

func boolPtr(b bool) *bool { return &b }
