// models/models.go
package models

import (
	"math"
	"sort"
	"strings"
	"time"
)

// PlayerID 玩家ID（平台用户ID）
type PlayerID int64

// MaxPartySize is the number of slots in a battle party.
const MaxPartySize = 5

// MaxCount caps a single variant count so it fits the int64 storage columns.
const MaxCount uint64 = math.MaxInt64

// NormalizeSpecies lower-cases and trims a species name.
func NormalizeSpecies(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Variant 精灵变体 (species + shiny)
type Variant struct {
	Species string `json:"name"`
	Shiny   bool   `json:"is_shiny"`
}

// NewVariant builds a Variant with a normalized species name.
func NewVariant(species string, shiny bool) Variant {
	return Variant{Species: NormalizeSpecies(species), Shiny: shiny}
}

func (v Variant) String() string {
	if v.Shiny {
		return "shiny " + v.Species
	}
	return v.Species
}

// VariantCount 某个物种的普通/闪光数量
type VariantCount struct {
	Normal uint64 `json:"normal"`
	Shiny  uint64 `json:"shiny"`
}

// Of returns the count for one sub-variant.
func (c VariantCount) Of(shiny bool) uint64 {
	if shiny {
		return c.Shiny
	}
	return c.Normal
}

// Total returns normal + shiny.
func (c VariantCount) Total() uint64 {
	return c.Normal + c.Shiny
}

// IsZero reports whether neither sub-variant is owned.
func (c VariantCount) IsZero() bool {
	return c.Normal == 0 && c.Shiny == 0
}

// OwnershipMap species -> counts. A missing species means {0,0}.
type OwnershipMap map[string]VariantCount

// Get returns the counts for species, zero if absent.
func (m OwnershipMap) Get(species string) VariantCount {
	return m[species]
}

// Owned returns the species with a nonzero count, sorted by name.
func (m OwnershipMap) Owned() []string {
	names := make([]string, 0, len(m))
	for name, c := range m {
		if !c.IsZero() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent copy.
func (m OwnershipMap) Clone() OwnershipMap {
	if m == nil {
		return nil
	}
	out := make(OwnershipMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// PlayerRecord 玩家数据（聚合根）
type PlayerRecord struct {
	PlayerID  PlayerID     `json:"user_id"`
	Ownership OwnershipMap `json:"ownership"`
	Berries   uint64       `json:"berries"`
	// RemainingRolls is nil until first read, then lazily set to the configured max.
	RemainingRolls *uint64   `json:"remaining_rolls,omitempty"`
	Favorite       *Variant  `json:"favorite,omitempty"`
	BattleParty    []Variant `json:"battle_party"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the record.
func (r *PlayerRecord) Clone() *PlayerRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.Ownership = r.Ownership.Clone()
	if r.RemainingRolls != nil {
		rolls := *r.RemainingRolls
		out.RemainingRolls = &rolls
	}
	if r.Favorite != nil {
		fav := *r.Favorite
		out.Favorite = &fav
	}
	if r.BattleParty != nil {
		out.BattleParty = append([]Variant(nil), r.BattleParty...)
	}
	return &out
}

// PokedexEntry 图鉴条目
type PokedexEntry struct {
	Species string       `json:"name"`
	Count   VariantCount `json:"count"`
}

// Pokedex is the read-only listing shown by the pokedex command.
type Pokedex struct {
	PlayerID       PlayerID       `json:"user_id"`
	Entries        []PokedexEntry `json:"entries"`
	Berries        uint64         `json:"berries"`
	RemainingRolls uint64         `json:"remaining_rolls"`
	Favorite       *Variant       `json:"favorite,omitempty"`
}
