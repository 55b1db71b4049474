// services/trade.go
package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wdlord/discord-pokebot/logger"
	"github.com/wdlord/discord-pokebot/models"
	"github.com/wdlord/discord-pokebot/persistence"
)

const (
	StageProposer = "trade_proposer"
	StageTarget   = "trade_target"
)

// Trades 交易协调器。待处理的交易只保存在内存中
type Trades struct {
	ledger *Ledger

	mu     sync.Mutex
	trades map[string]*models.PendingTrade
	now    func() time.Time
}

func NewTrades(ledger *Ledger) *Trades {
	return &Trades{
		ledger: ledger,
		trades: make(map[string]*models.PendingTrade),
		now:    time.Now,
	}
}

// Propose checks both sides own their offer and records a pending trade for the target.
func (t *Trades) Propose(ctx context.Context, proposer, target models.PlayerID, give, want models.Variant) (models.PendingTrade, error) {
	if proposer == target {
		return models.PendingTrade{}, ErrSelfTrade
	}
	give = models.NewVariant(give.Species, give.Shiny)
	want = models.NewVariant(want.Species, want.Shiny)

	if err := t.verify(ctx, proposer, target, give, want); err != nil {
		return models.PendingTrade{}, err
	}

	trade := &models.PendingTrade{
		ID:            uuid.NewString(),
		Proposer:      proposer,
		Target:        target,
		ProposerOffer: give,
		TargetOffer:   want,
		State:         models.TradePending,
		CreatedAt:     t.now(),
	}

	t.mu.Lock()
	t.trades[trade.ID] = trade
	pending := t.pendingLocked()
	t.mu.Unlock()

	t.ledger.rec.PendingTrades(pending)
	logger.Log.Infow("trade proposed", "trade_id", trade.ID, "proposer", proposer, "target", target,
		"give", give.String(), "want", want.String())
	return *trade, nil
}

// Get returns a copy of the trade.
func (t *Trades) Get(id string) (models.PendingTrade, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	trade, ok := t.trades[id]
	if !ok {
		return models.PendingTrade{}, ErrTradeNotFound
	}
	return *trade, nil
}

// PendingFor lists unresolved offers addressed to target, oldest first.
func (t *Trades) PendingFor(target models.PlayerID) []models.PendingTrade {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := []models.PendingTrade{}
	for _, trade := range t.trades {
		if trade.Target == target && trade.State == models.TradePending {
			out = append(out, *trade)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Accept re-verifies both offers and swaps them. Each player's half is one
// store transaction; a failure in the second half is returned as *PartialApplyError.
func (t *Trades) Accept(ctx context.Context, id string, resolver models.PlayerID) (models.PendingTrade, error) {
	trade, err := t.claim(id, resolver, models.TradeAccepted)
	if err != nil {
		return models.PendingTrade{}, err
	}

	if err := t.verify(ctx, trade.Proposer, trade.Target, trade.ProposerOffer, trade.TargetOffer); err != nil {
		t.discard(id)
		if errors.Is(err, ErrNotOwned) {
			t.ledger.rec.Trade(ResultRejected)
			logger.Log.Infow("stale trade discarded", "trade_id", id, "reason", err)
			return models.PendingTrade{}, ErrStaleOffer
		}
		t.ledger.rec.Trade(ResultError)
		logger.Log.Errorw("trade verification failed", "trade_id", id, "error", err)
		return models.PendingTrade{}, err
	}

	if err := t.applyHalf(ctx, trade.Proposer, trade.ProposerOffer, trade.TargetOffer); err != nil {
		t.discard(id)
		switch {
		case errors.Is(err, ErrInsufficientStock):
			t.ledger.rec.Trade(ResultRejected)
			return models.PendingTrade{}, ErrStaleOffer
		case isRejection(err):
			t.ledger.rec.Trade(ResultRejected)
		default:
			t.ledger.rec.Trade(ResultError)
		}
		return models.PendingTrade{}, err
	}

	if err := t.applyHalf(ctx, trade.Target, trade.TargetOffer, trade.ProposerOffer); err != nil {
		perr := &PartialApplyError{
			Player:   trade.Target,
			Stage:    StageTarget,
			Given:    trade.TargetOffer,
			Received: trade.ProposerOffer,
			Err:      err,
		}
		logger.Log.Errorw("partial apply failure", "trade_id", id, "user_id", perr.Player, "stage", perr.Stage,
			"given", perr.Given.String(), "received", perr.Received.String(), "applied_for", trade.Proposer, "error", err)
		t.ledger.rec.PartialApply(StageTarget)
		t.ledger.rec.Trade(ResultPartial)
		return trade, perr
	}

	t.ledger.rec.VariantAdded(trade.TargetOffer.Shiny, 1)
	t.ledger.rec.VariantAdded(trade.ProposerOffer.Shiny, 1)
	t.ledger.rec.Trade(ResultSuccess)
	logger.Log.Infow("trade accepted", "trade_id", id, "proposer", trade.Proposer, "target", trade.Target)
	return trade, nil
}

// Decline resolves the trade without touching the ledger.
func (t *Trades) Decline(id string, resolver models.PlayerID) (models.PendingTrade, error) {
	trade, err := t.claim(id, resolver, models.TradeDeclined)
	if err != nil {
		return models.PendingTrade{}, err
	}
	t.ledger.rec.Trade(ResultDeclined)
	return trade, nil
}

// Expire drops trades created more than ttl ago and returns how many were removed.
func (t *Trades) Expire(ttl time.Duration) int {
	cutoff := t.now().Add(-ttl)
	t.mu.Lock()
	removed := 0
	for id, trade := range t.trades {
		if trade.CreatedAt.Before(cutoff) {
			delete(t.trades, id)
			removed++
		}
	}
	pending := t.pendingLocked()
	t.mu.Unlock()
	t.ledger.rec.PendingTrades(pending)
	return removed
}

// claim moves a pending trade to state on behalf of its target.
func (t *Trades) claim(id string, resolver models.PlayerID, state models.TradeState) (models.PendingTrade, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	trade, ok := t.trades[id]
	if !ok {
		return models.PendingTrade{}, ErrTradeNotFound
	}
	if trade.Target != resolver {
		return models.PendingTrade{}, ErrUnauthorizedResolver
	}
	if trade.State != models.TradePending {
		return models.PendingTrade{}, ErrTradeResolved
	}
	trade.State = state
	t.ledger.rec.PendingTrades(t.pendingLocked())
	return *trade, nil
}

func (t *Trades) discard(id string) {
	t.mu.Lock()
	delete(t.trades, id)
	t.mu.Unlock()
}

func (t *Trades) pendingLocked() int {
	n := 0
	for _, trade := range t.trades {
		if trade.State == models.TradePending {
			n++
		}
	}
	return n
}

func (t *Trades) verify(ctx context.Context, proposer, target models.PlayerID, give, want models.Variant) error {
	checks := []struct {
		player models.PlayerID
		v      models.Variant
		side   TradeSide
	}{
		{proposer, give, SideProposer},
		{target, want, SideTarget},
	}
	for _, c := range checks {
		count, err := t.ledger.VariantCount(ctx, c.player, c.v.Species)
		if err != nil {
			return err
		}
		if count.Of(c.v.Shiny) == 0 {
			return &NotOwnedError{Player: c.player, Variant: c.v, Side: c.side}
		}
	}
	return nil
}

// applyHalf: player gives one of given and receives one of received.
func (t *Trades) applyHalf(ctx context.Context, player models.PlayerID, given, received models.Variant) error {
	return t.ledger.store.Transaction(ctx, func(tx persistence.Tx) error {
		left, err := tx.DecrementVariant(ctx, player, given, 1)
		if err != nil {
			return translate(err)
		}
		if err := tx.AddVariant(ctx, player, received, 1); err != nil {
			return translate(err)
		}
		return repairAfterDecrement(ctx, tx, player, given, received, left)
	})
}
