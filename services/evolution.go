// services/evolution.go
package services

import (
	"context"
	"errors"

	"github.com/wdlord/discord-pokebot/logger"
	"github.com/wdlord/discord-pokebot/models"
	"github.com/wdlord/discord-pokebot/persistence"
	"github.com/wdlord/discord-pokebot/species"
)

// EvolveRequest 进化请求。Shiny 和 Target 由调用方在有歧义时提供
type EvolveRequest struct {
	Player  models.PlayerID
	Species string
	Shiny   *bool
	Target  string
}

// EvolveResult describes a completed evolution.
type EvolveResult struct {
	From    models.Variant `json:"from"`
	To      models.Variant `json:"to"`
	Berries uint64         `json:"berries"`
}

// Evolution consumes a berry and one source variant to produce the next stage.
type Evolution struct {
	ledger *Ledger
	graph  species.EvolutionGraph
}

func NewEvolution(ledger *Ledger, graph species.EvolutionGraph) *Evolution {
	return &Evolution{ledger: ledger, graph: graph}
}

// Evolve runs the checks in order (berry, ownership, variant choice, target choice)
// and then applies the whole change in one store transaction.
func (e *Evolution) Evolve(ctx context.Context, req EvolveRequest) (*EvolveResult, error) {
	result, err := e.evolve(ctx, req)
	switch {
	case err == nil:
		e.ledger.rec.Evolution(ResultSuccess)
	case isRejection(err):
		e.ledger.rec.Evolution(ResultRejected)
	default:
		e.ledger.rec.Evolution(ResultError)
	}
	return result, err
}

func (e *Evolution) evolve(ctx context.Context, req EvolveRequest) (*EvolveResult, error) {
	name := models.NormalizeSpecies(req.Species)

	berries, _, err := e.ledger.NumBerries(ctx, req.Player)
	if err != nil {
		return nil, err
	}
	if berries == 0 {
		return nil, ErrNoBerries
	}

	count, err := e.ledger.VariantCount(ctx, req.Player, name)
	if err != nil {
		return nil, err
	}
	from, err := resolveOwnedVariant(req.Player, name, count, req.Shiny)
	if err != nil {
		return nil, err
	}

	target, err := e.resolveTarget(ctx, name, req.Target)
	if err != nil {
		return nil, err
	}
	to := models.Variant{Species: target, Shiny: from.Shiny}

	result := &EvolveResult{From: from, To: to}
	err = e.ledger.store.Transaction(ctx, func(tx persistence.Tx) error {
		left, err := tx.DecrementVariant(ctx, req.Player, from, 1)
		if err != nil {
			return translate(err)
		}
		if err := tx.AddVariant(ctx, req.Player, to, 1); err != nil {
			return translate(err)
		}
		balance, err := tx.AddBerries(ctx, req.Player, -1)
		if errors.Is(err, persistence.ErrInsufficientStock) {
			return ErrNoBerries
		}
		if err != nil {
			return err
		}
		result.Berries = balance
		return repairAfterDecrement(ctx, tx, req.Player, from, to, left)
	})
	if err != nil {
		if !isRejection(err) {
			logger.Log.Errorw("evolution rolled back", "user_id", req.Player, "from", from.String(), "to", to.String(), "error", err)
		}
		return nil, err
	}
	e.ledger.rec.VariantAdded(to.Shiny, 1)
	logger.Log.Infow("evolved", "user_id", req.Player, "from", from.String(), "to", to.String())
	return result, nil
}

func (e *Evolution) resolveTarget(ctx context.Context, name, chosen string) (string, error) {
	options, err := e.graph.NextEvolutions(ctx, name)
	if err != nil {
		return "", err
	}
	for i := range options {
		options[i] = models.NormalizeSpecies(options[i])
	}
	chosen = models.NormalizeSpecies(chosen)
	switch {
	case len(options) == 0:
		return "", ErrCannotEvolve
	case chosen == "" && len(options) == 1:
		return options[0], nil
	case chosen == "":
		return "", &AmbiguousTargetError{Options: options}
	}
	for _, o := range options {
		if o == chosen {
			return o, nil
		}
	}
	return "", &AmbiguousTargetError{Options: options}
}

// isRejection reports whether err is an expected, user-facing refusal.
func isRejection(err error) bool {
	for _, target := range []error{
		ErrInsufficientStock, ErrNotOwned, ErrNoBerries, ErrCannotEvolve,
		ErrAmbiguousVariant, ErrAmbiguousTarget, ErrStaleOffer,
		ErrUnauthorizedResolver, ErrPartyTooLarge, ErrTradeNotFound,
		ErrTradeResolved, ErrSelfTrade, ErrUnknownSpecies, ErrNoRolls, ErrCountOverflow,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
