// services/favorite.go
package services

import (
	"context"

	"github.com/wdlord/discord-pokebot/models"
	"github.com/wdlord/discord-pokebot/persistence"
)

// Favorites 玩家的展示精灵
type Favorites struct {
	ledger *Ledger
}

func NewFavorites(ledger *Ledger) *Favorites {
	return &Favorites{ledger: ledger}
}

// Get returns the favorite, deriving and saving one when it is unset or
// points at a variant the player no longer owns. Nil when the player owns nothing.
func (f *Favorites) Get(ctx context.Context, player models.PlayerID) (*models.Variant, error) {
	rec, err := f.ledger.load(ctx, player)
	if err != nil || rec == nil {
		return nil, err
	}
	if fav := rec.Favorite; fav != nil && rec.Ownership.Get(fav.Species).Of(fav.Shiny) > 0 {
		return fav, nil
	}
	pick, ok := pickFavorite(rec.Ownership)
	if !ok {
		return nil, nil
	}
	if err := f.ledger.store.SetFavorite(ctx, player, &pick); err != nil {
		return nil, err
	}
	return &pick, nil
}

// Set overwrites the favorite without checking ownership.
func (f *Favorites) Set(ctx context.Context, player models.PlayerID, v models.Variant) error {
	return f.ledger.store.SetFavorite(ctx, player, &v)
}

// Choose 玩家指定展示精灵；同时拥有普通和闪光时必须指定 shiny
func (f *Favorites) Choose(ctx context.Context, player models.PlayerID, species string, shiny *bool) (models.Variant, error) {
	species = models.NormalizeSpecies(species)
	count, err := f.ledger.VariantCount(ctx, player, species)
	if err != nil {
		return models.Variant{}, err
	}
	v, err := resolveOwnedVariant(player, species, count, shiny)
	if err != nil {
		return models.Variant{}, err
	}
	return v, f.Set(ctx, player, v)
}

// RepairIfZeroed points the favorite at replacement when it was variant and variant's stock is gone.
func (f *Favorites) RepairIfZeroed(ctx context.Context, player models.PlayerID, variant, replacement models.Variant) error {
	return f.ledger.store.Transaction(ctx, func(tx persistence.Tx) error {
		rec, err := tx.LoadPlayer(ctx, player)
		if err != nil {
			return ignoreNotFound(err)
		}
		if rec.Ownership.Get(variant.Species).Of(variant.Shiny) != 0 {
			return nil
		}
		_, err = repairFavorite(ctx, tx, rec, variant, replacement)
		return err
	})
}

// pickFavorite: first owned species by name, normal unless only shiny is owned.
func pickFavorite(own models.OwnershipMap) (models.Variant, bool) {
	owned := own.Owned()
	if len(owned) == 0 {
		return models.Variant{}, false
	}
	species := owned[0]
	return models.Variant{Species: species, Shiny: own[species].Normal == 0}, true
}

func repairFavorite(ctx context.Context, tx persistence.Tx, rec *models.PlayerRecord, zeroed, replacement models.Variant) (bool, error) {
	if rec.Favorite == nil || *rec.Favorite != zeroed {
		return false, nil
	}
	if err := tx.SetFavorite(ctx, rec.PlayerID, &replacement); err != nil {
		return false, err
	}
	rec.Favorite = &replacement
	return true, nil
}

// resolveOwnedVariant picks the sub-variant a command refers to.
func resolveOwnedVariant(player models.PlayerID, species string, count models.VariantCount, shiny *bool) (models.Variant, error) {
	switch {
	case count.IsZero():
		return models.Variant{}, &NotOwnedError{Player: player, Variant: models.Variant{Species: species}, Side: SideSelf}
	case shiny != nil:
		v := models.Variant{Species: species, Shiny: *shiny}
		if count.Of(*shiny) == 0 {
			return models.Variant{}, &NotOwnedError{Player: player, Variant: v, Side: SideSelf}
		}
		return v, nil
	case count.Normal > 0 && count.Shiny > 0:
		return models.Variant{}, ErrAmbiguousVariant
	default:
		return models.Variant{Species: species, Shiny: count.Normal == 0}, nil
	}
}
