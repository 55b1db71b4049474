// persistence/memory.go
package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/wdlord/discord-pokebot/models"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps player records in process memory. Used for local runs and tests.
type MemoryStore struct {
	mu    sync.Mutex
	state memState
	now   func() time.Time
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: memState{records: make(map[models.PlayerID]*models.PlayerRecord)},
		now:   time.Now,
	}
}

func (s *MemoryStore) AddVariant(ctx context.Context, id models.PlayerID, v models.Variant, n uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.addVariant(id, v, n, s.now())
}

func (s *MemoryStore) DecrementVariant(ctx context.Context, id models.PlayerID, v models.Variant, n uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.decrementVariant(id, v, n, s.now())
}

func (s *MemoryStore) VariantCount(ctx context.Context, id models.PlayerID, species string) (models.VariantCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.variantCount(id, species), nil
}

func (s *MemoryStore) LoadPlayer(ctx context.Context, id models.PlayerID) (*models.PlayerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.loadPlayer(id)
}

func (s *MemoryStore) UseRoll(ctx context.Context, id models.PlayerID, maxRolls uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.useRoll(id, maxRolls, s.now())
	return nil
}

func (s *MemoryStore) InitRolls(ctx context.Context, id models.PlayerID, maxRolls uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.initRolls(id, maxRolls, s.now())
}

func (s *MemoryStore) ResetRolls(ctx context.Context, id models.PlayerID, maxRolls uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.state.getOrCreate(id, s.now())
	rec.RemainingRolls = &maxRolls
	return nil
}

func (s *MemoryStore) ResetAllRolls(ctx context.Context, maxRolls uint64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.state.records {
		rolls := maxRolls
		rec.RemainingRolls = &rolls
	}
	return int64(len(s.state.records)), nil
}

func (s *MemoryStore) AddBerries(ctx context.Context, id models.PlayerID, delta int64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.addBerries(id, delta, s.now())
}

func (s *MemoryStore) SetFavorite(ctx context.Context, id models.PlayerID, v *models.Variant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.setFavorite(id, v, s.now())
	return nil
}

func (s *MemoryStore) SetParty(ctx context.Context, id models.PlayerID, party []models.Variant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.setParty(id, party, s.now())
	return nil
}

// Transaction works on a copy of the state and swaps it in only when fn succeeds.
func (s *MemoryStore) Transaction(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{state: s.state.clone(), now: s.now}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// memTx is the unlocked view handed to Transaction callbacks.
type memTx struct {
	state memState
	now   func() time.Time
}

func (t *memTx) AddVariant(ctx context.Context, id models.PlayerID, v models.Variant, n uint64) error {
	return t.state.addVariant(id, v, n, t.now())
}

func (t *memTx) DecrementVariant(ctx context.Context, id models.PlayerID, v models.Variant, n uint64) (uint64, error) {
	return t.state.decrementVariant(id, v, n, t.now())
}

func (t *memTx) VariantCount(ctx context.Context, id models.PlayerID, species string) (models.VariantCount, error) {
	return t.state.variantCount(id, species), nil
}

func (t *memTx) LoadPlayer(ctx context.Context, id models.PlayerID) (*models.PlayerRecord, error) {
	return t.state.loadPlayer(id)
}

func (t *memTx) UseRoll(ctx context.Context, id models.PlayerID, maxRolls uint64) error {
	t.state.useRoll(id, maxRolls, t.now())
	return nil
}

func (t *memTx) InitRolls(ctx context.Context, id models.PlayerID, maxRolls uint64) (uint64, error) {
	return t.state.initRolls(id, maxRolls, t.now())
}

func (t *memTx) ResetRolls(ctx context.Context, id models.PlayerID, maxRolls uint64) error {
	rec := t.state.getOrCreate(id, t.now())
	rec.RemainingRolls = &maxRolls
	return nil
}

func (t *memTx) AddBerries(ctx context.Context, id models.PlayerID, delta int64) (uint64, error) {
	return t.state.addBerries(id, delta, t.now())
}

func (t *memTx) SetFavorite(ctx context.Context, id models.PlayerID, v *models.Variant) error {
	t.state.setFavorite(id, v, t.now())
	return nil
}

func (t *memTx) SetParty(ctx context.Context, id models.PlayerID, party []models.Variant) error {
	t.state.setParty(id, party, t.now())
	return nil
}

type memState struct {
	records map[models.PlayerID]*models.PlayerRecord
}

func (m memState) clone() memState {
	out := memState{records: make(map[models.PlayerID]*models.PlayerRecord, len(m.records))}
	for id, rec := range m.records {
		out.records[id] = rec.Clone()
	}
	return out
}

func (m memState) getOrCreate(id models.PlayerID, now time.Time) *models.PlayerRecord {
	rec, ok := m.records[id]
	if !ok {
		rec = &models.PlayerRecord{
			PlayerID:  id,
			Ownership: make(models.OwnershipMap),
			CreatedAt: now,
		}
		m.records[id] = rec
	}
	rec.UpdatedAt = now
	return rec
}

func (m memState) addVariant(id models.PlayerID, v models.Variant, n uint64, now time.Time) error {
	var held uint64
	if rec, ok := m.records[id]; ok {
		held = rec.Ownership.Get(v.Species).Of(v.Shiny)
	}
	if n > models.MaxCount || held > models.MaxCount-n {
		return ErrCountOverflow
	}
	rec := m.getOrCreate(id, now)
	c := rec.Ownership[v.Species]
	if v.Shiny {
		c.Shiny += n
	} else {
		c.Normal += n
	}
	rec.Ownership[v.Species] = c
	return nil
}

func (m memState) decrementVariant(id models.PlayerID, v models.Variant, n uint64, now time.Time) (uint64, error) {
	rec, ok := m.records[id]
	if !ok {
		return 0, ErrInsufficientStock
	}
	c := rec.Ownership[v.Species]
	if c.Of(v.Shiny) < n {
		return 0, ErrInsufficientStock
	}
	if v.Shiny {
		c.Shiny -= n
	} else {
		c.Normal -= n
	}
	rec.Ownership[v.Species] = c
	rec.UpdatedAt = now
	return c.Of(v.Shiny), nil
}

func (m memState) variantCount(id models.PlayerID, species string) models.VariantCount {
	rec, ok := m.records[id]
	if !ok {
		return models.VariantCount{}
	}
	return rec.Ownership[species]
}

func (m memState) loadPlayer(id models.PlayerID) (*models.PlayerRecord, error) {
	rec, ok := m.records[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return rec.Clone(), nil
}

func (m memState) useRoll(id models.PlayerID, maxRolls uint64, now time.Time) {
	rec := m.getOrCreate(id, now)
	rolls := maxRolls
	if rec.RemainingRolls != nil {
		rolls = *rec.RemainingRolls
	}
	if rolls > 0 {
		rolls--
	}
	rec.RemainingRolls = &rolls
}

func (m memState) initRolls(id models.PlayerID, maxRolls uint64, now time.Time) (uint64, error) {
	rec, ok := m.records[id]
	if !ok {
		return 0, ErrRecordNotFound
	}
	if rec.RemainingRolls == nil {
		rolls := maxRolls
		rec.RemainingRolls = &rolls
		rec.UpdatedAt = now
	}
	return *rec.RemainingRolls, nil
}

func (m memState) addBerries(id models.PlayerID, delta int64, now time.Time) (uint64, error) {
	if delta < 0 {
		rec, ok := m.records[id]
		if !ok || rec.Berries < uint64(-delta) {
			return 0, ErrInsufficientStock
		}
		rec.Berries -= uint64(-delta)
		rec.UpdatedAt = now
		return rec.Berries, nil
	}
	rec := m.getOrCreate(id, now)
	rec.Berries += uint64(delta)
	return rec.Berries, nil
}

func (m memState) setFavorite(id models.PlayerID, v *models.Variant, now time.Time) {
	rec := m.getOrCreate(id, now)
	if v == nil {
		rec.Favorite = nil
		return
	}
	fav := *v
	rec.Favorite = &fav
}

func (m memState) setParty(id models.PlayerID, party []models.Variant, now time.Time) {
	rec := m.getOrCreate(id, now)
	rec.BattleParty = append([]models.Variant{}, party...)
}
