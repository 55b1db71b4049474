// services/ledger.go
package services

import (
	"context"
	"errors"

	"github.com/wdlord/discord-pokebot/logger"
	"github.com/wdlord/discord-pokebot/models"
	"github.com/wdlord/discord-pokebot/persistence"
)

// Ledger 玩家精灵账本：数量、抽取次数、树果
type Ledger struct {
	store    persistence.Store
	maxRolls uint64
	rec      Recorder
}

func NewLedger(store persistence.Store, maxRolls uint64, rec Recorder) *Ledger {
	return &Ledger{store: store, maxRolls: maxRolls, rec: orNop(rec)}
}

// MaxRolls returns the daily roll quota.
func (l *Ledger) MaxRolls() uint64 { return l.maxRolls }

// AddVariant 增加精灵（不存在则创建玩家记录）
func (l *Ledger) AddVariant(ctx context.Context, player models.PlayerID, v models.Variant, n uint64) error {
	if n == 0 {
		return nil
	}
	v = models.NewVariant(v.Species, v.Shiny)
	if err := l.store.AddVariant(ctx, player, v, n); err != nil {
		return translate(err)
	}
	l.rec.VariantAdded(v.Shiny, n)
	return nil
}

// VariantCount returns {0,0} for unknown players or species.
func (l *Ledger) VariantCount(ctx context.Context, player models.PlayerID, species string) (models.VariantCount, error) {
	return l.store.VariantCount(ctx, player, models.NormalizeSpecies(species))
}

// AllOwnership returns false when the player has no record yet.
func (l *Ledger) AllOwnership(ctx context.Context, player models.PlayerID) (models.OwnershipMap, bool, error) {
	rec, err := l.load(ctx, player)
	if err != nil || rec == nil {
		return nil, false, err
	}
	return rec.Ownership, true, nil
}

// DecrementVariant 减少精灵数量，不足时返回 ErrInsufficientStock 且不做修改。
// When the stock hits zero, matching party slots are dropped and a matching
// favorite is cleared so Favorites.Get derives a new one.
func (l *Ledger) DecrementVariant(ctx context.Context, player models.PlayerID, v models.Variant, n uint64) (uint64, error) {
	v = models.NewVariant(v.Species, v.Shiny)
	var left uint64
	err := l.store.Transaction(ctx, func(tx persistence.Tx) error {
		var err error
		if left, err = tx.DecrementVariant(ctx, player, v, n); err != nil {
			return translate(err)
		}
		return dropZeroed(ctx, tx, player, v, left)
	})
	if err != nil {
		return 0, err
	}
	return left, nil
}

// UseRoll 消耗一次抽取，最少为0
func (l *Ledger) UseRoll(ctx context.Context, player models.PlayerID) error {
	return l.store.UseRoll(ctx, player, l.maxRolls)
}

// RemainingRolls lazily initializes the counter to the daily max.
func (l *Ledger) RemainingRolls(ctx context.Context, player models.PlayerID) (uint64, error) {
	rolls, err := l.store.InitRolls(ctx, player, l.maxRolls)
	if errors.Is(err, persistence.ErrRecordNotFound) {
		return l.maxRolls, nil
	}
	return rolls, err
}

// ResetAllRolls 每日重置所有玩家的抽取次数
func (l *Ledger) ResetAllRolls(ctx context.Context) (int64, error) {
	n, err := l.store.ResetAllRolls(ctx, l.maxRolls)
	if err != nil {
		return 0, err
	}
	l.rec.RollsReset(n)
	logger.Log.Infow("rolls reset", "players", n, "max_rolls", l.maxRolls)
	return n, nil
}

// ResetRolls resets one player's quota.
func (l *Ledger) ResetRolls(ctx context.Context, player models.PlayerID) error {
	if err := l.store.ResetRolls(ctx, player, l.maxRolls); err != nil {
		return err
	}
	l.rec.RollsReset(1)
	return nil
}

// GiveBerries adds amount (negative spends) and returns the new balance.
func (l *Ledger) GiveBerries(ctx context.Context, player models.PlayerID, amount int64) (uint64, error) {
	balance, err := l.store.AddBerries(ctx, player, amount)
	if errors.Is(err, persistence.ErrInsufficientStock) {
		return 0, ErrNoBerries
	}
	return balance, err
}

// NumBerries returns false when the player has no record.
func (l *Ledger) NumBerries(ctx context.Context, player models.PlayerID) (uint64, bool, error) {
	rec, err := l.load(ctx, player)
	if err != nil || rec == nil {
		return 0, false, err
	}
	return rec.Berries, true, nil
}

// Pokedex 图鉴：按名称排序的拥有列表
func (l *Ledger) Pokedex(ctx context.Context, player models.PlayerID) (*models.Pokedex, error) {
	rec, err := l.load(ctx, player)
	if err != nil {
		return nil, err
	}
	dex := &models.Pokedex{PlayerID: player, Entries: []models.PokedexEntry{}, RemainingRolls: l.maxRolls}
	if rec == nil {
		return dex, nil
	}
	for _, species := range rec.Ownership.Owned() {
		dex.Entries = append(dex.Entries, models.PokedexEntry{Species: species, Count: rec.Ownership[species]})
	}
	dex.Berries = rec.Berries
	if rec.RemainingRolls != nil {
		dex.RemainingRolls = *rec.RemainingRolls
	}
	dex.Favorite = rec.Favorite
	return dex, nil
}

// load returns nil, nil for unknown players.
func (l *Ledger) load(ctx context.Context, player models.PlayerID) (*models.PlayerRecord, error) {
	rec, err := l.store.LoadPlayer(ctx, player)
	if errors.Is(err, persistence.ErrRecordNotFound) {
		return nil, nil
	}
	return rec, err
}
