// services/roll.go
package services

import (
	"context"
	"math/rand"

	"github.com/wdlord/discord-pokebot/logger"
	"github.com/wdlord/discord-pokebot/models"
	"github.com/wdlord/discord-pokebot/species"
)

// RollResult 一次抽取的结果
type RollResult struct {
	Variant        models.Variant `json:"variant"`
	RemainingRolls uint64         `json:"remaining_rolls"`
}

// Rolls draws random species against the daily quota.
type Rolls struct {
	ledger      *Ledger
	dir         species.Directory
	shinyChance float64
}

func NewRolls(ledger *Ledger, dir species.Directory, shinyChance float64) *Rolls {
	return &Rolls{ledger: ledger, dir: dir, shinyChance: shinyChance}
}

// Roll 抽取一个随机精灵：先加入账本，再扣除次数
func (r *Rolls) Roll(ctx context.Context, player models.PlayerID, rng *rand.Rand) (RollResult, error) {
	remaining, err := r.ledger.RemainingRolls(ctx, player)
	if err != nil {
		return RollResult{}, err
	}
	if remaining == 0 {
		return RollResult{}, ErrNoRolls
	}

	name, err := r.dir.Random(rng)
	if err != nil {
		return RollResult{}, err
	}
	v := models.NewVariant(name, rng.Float64() < r.shinyChance)

	if err := r.ledger.AddVariant(ctx, player, v, 1); err != nil {
		return RollResult{}, err
	}
	if err := r.ledger.UseRoll(ctx, player); err != nil {
		return RollResult{}, err
	}
	logger.Log.Debugw("rolled", "user_id", player, "variant", v.String())
	return RollResult{Variant: v, RemainingRolls: remaining - 1}, nil
}
