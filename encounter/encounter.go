// encounter/encounter.go
package encounter

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wdlord/discord-pokebot/logger"
	"github.com/wdlord/discord-pokebot/models"
	"github.com/wdlord/discord-pokebot/network"
	"github.com/wdlord/discord-pokebot/services"
	"github.com/wdlord/discord-pokebot/species"
)

var (
	ErrEncounterNotFound = errors.New("encounter not found")
	ErrAlreadyClaimed    = errors.New("encounter already claimed by this player")
)

// Encounter 野生精灵。每个玩家只能捕捉一次
type Encounter struct {
	ID        string            `json:"id"`
	Variant   models.Variant    `json:"variant"`
	SpawnedAt time.Time         `json:"spawned_at"`
	ExpiresAt time.Time         `json:"expires_at"`
	ClaimedBy []models.PlayerID `json:"claimed_by"`

	claimed map[models.PlayerID]struct{}
}

func (e *Encounter) snapshot() Encounter {
	out := *e
	out.claimed = nil
	out.ClaimedBy = make([]models.PlayerID, 0, len(e.claimed))
	for id := range e.claimed {
		out.ClaimedBy = append(out.ClaimedBy, id)
	}
	sort.Slice(out.ClaimedBy, func(i, j int) bool { return out.ClaimedBy[i] < out.ClaimedBy[j] })
	return out
}

// Options 遭遇与掉落概率
type Options struct {
	TTL             time.Duration
	EncounterChance float64
	BerryChance     float64
	ShinyChance     float64
}

// Manager 管理当前所有的野生遭遇
type Manager struct {
	ledger      *services.Ledger
	dir         species.Directory
	broadcaster Broadcaster
	opts        Options

	encounters map[string]*Encounter
	mutex      sync.RWMutex
	now        func() time.Time
}

// NewManager broadcaster may be nil.
func NewManager(ledger *services.Ledger, dir species.Directory, broadcaster Broadcaster, opts Options) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Minute
	}
	return &Manager{
		ledger:      ledger,
		dir:         dir,
		broadcaster: broadcaster,
		opts:        opts,
		encounters:  make(map[string]*Encounter),
		now:         time.Now,
	}
}

// Spawn 创建一个新的遭遇并通知所有在线玩家
func (m *Manager) Spawn(v models.Variant) Encounter {
	now := m.now()
	e := &Encounter{
		ID:        uuid.NewString(),
		Variant:   models.NewVariant(v.Species, v.Shiny),
		SpawnedAt: now,
		ExpiresAt: now.Add(m.opts.TTL),
		claimed:   make(map[models.PlayerID]struct{}),
	}

	m.mutex.Lock()
	m.encounters[e.ID] = e
	snap := e.snapshot()
	m.mutex.Unlock()

	logger.Log.Infow("encounter spawned", "encounter_id", e.ID, "variant", e.Variant.String())
	if m.broadcaster != nil {
		if data, err := json.Marshal(snap); err == nil {
			if err := m.broadcaster.BroadcastToAll(network.MsgTypeEncounterSpawned, data); err != nil {
				logger.Log.Warnw("broadcast encounter failed", "encounter_id", e.ID, "error", err)
			}
		}
	}
	return snap
}

// MaybeSpawn rolls the encounter chance and spawns a random species on success.
func (m *Manager) MaybeSpawn(rng *rand.Rand) (Encounter, bool, error) {
	if rng.Float64() >= m.opts.EncounterChance {
		return Encounter{}, false, nil
	}
	name, err := m.dir.Random(rng)
	if err != nil {
		return Encounter{}, false, err
	}
	return m.Spawn(models.Variant{Species: name, Shiny: rng.Float64() < m.opts.ShinyChance}), true, nil
}

// MaybeDropBerry rolls the berry chance and gives the player one berry on success.
func (m *Manager) MaybeDropBerry(ctx context.Context, player models.PlayerID, rng *rand.Rand) (bool, error) {
	if rng.Float64() >= m.opts.BerryChance {
		return false, nil
	}
	if _, err := m.ledger.GiveBerries(ctx, player, 1); err != nil {
		return false, err
	}
	return true, nil
}

// Claim 捕捉遭遇中的精灵，加入玩家账本
func (m *Manager) Claim(ctx context.Context, id string, player models.PlayerID) (models.Variant, error) {
	m.mutex.Lock()
	e, ok := m.encounters[id]
	if !ok || !m.now().Before(e.ExpiresAt) {
		m.mutex.Unlock()
		return models.Variant{}, ErrEncounterNotFound
	}
	if _, done := e.claimed[player]; done {
		m.mutex.Unlock()
		return models.Variant{}, ErrAlreadyClaimed
	}
	e.claimed[player] = struct{}{}
	v := e.Variant
	m.mutex.Unlock()

	if err := m.ledger.AddVariant(ctx, player, v, 1); err != nil {
		m.mutex.Lock()
		delete(e.claimed, player)
		m.mutex.Unlock()
		return models.Variant{}, err
	}
	logger.Log.Infow("encounter claimed", "encounter_id", id, "user_id", player, "variant", v.String())
	return v, nil
}

// Get 获取一个遭遇
func (m *Manager) Get(id string) (Encounter, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	e, ok := m.encounters[id]
	if !ok {
		return Encounter{}, false
	}
	return e.snapshot(), true
}

// Active lists unexpired encounters, newest first.
func (m *Manager) Active() []Encounter {
	now := m.now()
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	out := make([]Encounter, 0, len(m.encounters))
	for _, e := range m.encounters {
		if now.Before(e.ExpiresAt) {
			out = append(out, e.snapshot())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SpawnedAt.After(out[j].SpawnedAt) })
	return out
}

// Sweep removes expired encounters and returns how many were removed.
func (m *Manager) Sweep() int {
	now := m.now()
	m.mutex.Lock()
	defer m.mutex.Unlock()
	removed := 0
	for id, e := range m.encounters {
		if !now.Before(e.ExpiresAt) {
			delete(m.encounters, id)
			removed++
		}
	}
	return removed
}
