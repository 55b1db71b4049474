// services/errors.go
package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wdlord/discord-pokebot/models"
	"github.com/wdlord/discord-pokebot/persistence"
)

var (
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrNotOwned             = errors.New("variant not owned")
	ErrNoBerries            = errors.New("no berries")
	ErrCannotEvolve         = errors.New("species cannot evolve")
	ErrAmbiguousVariant     = errors.New("both normal and shiny owned, choose one")
	ErrAmbiguousTarget      = errors.New("several evolutions available, choose one")
	ErrStaleOffer           = errors.New("trade offer is no longer valid")
	ErrUnauthorizedResolver = errors.New("only the trade target can resolve this trade")
	ErrPartyTooLarge        = fmt.Errorf("battle party holds at most %d entries", models.MaxPartySize)
	ErrTradeNotFound        = errors.New("trade not found")
	ErrTradeResolved        = errors.New("trade already resolved")
	ErrSelfTrade            = errors.New("cannot trade with yourself")
	ErrUnknownSpecies       = errors.New("unknown species")
	ErrNoRolls              = errors.New("no rolls remaining")
	ErrPartialApply         = errors.New("partial apply failure")
	ErrCountOverflow        = fmt.Errorf("a variant count cannot exceed %d", models.MaxCount)
)

// TradeSide 交易的一方
type TradeSide string

const (
	SideProposer TradeSide = "proposer"
	SideTarget   TradeSide = "target"
	SideSelf     TradeSide = "self"
)

// NotOwnedError names the player and variant that failed an ownership check.
type NotOwnedError struct {
	Player  models.PlayerID
	Variant models.Variant
	Side    TradeSide
}

func (e *NotOwnedError) Error() string {
	return fmt.Sprintf("%s player %d does not own %s", e.Side, e.Player, e.Variant)
}

func (e *NotOwnedError) Is(target error) bool { return target == ErrNotOwned }

// AmbiguousTargetError lists the candidate evolutions the caller must pick from.
type AmbiguousTargetError struct {
	Options []string
}

func (e *AmbiguousTargetError) Error() string {
	return fmt.Sprintf("%v: %s", ErrAmbiguousTarget, strings.Join(e.Options, ", "))
}

func (e *AmbiguousTargetError) Is(target error) bool { return target == ErrAmbiguousTarget }

// PartialApplyError 多步写入中途失败，已成功的部分不会回滚
type PartialApplyError struct {
	Player   models.PlayerID
	Stage    string
	Given    models.Variant
	Received models.Variant
	Err      error
}

func (e *PartialApplyError) Error() string {
	return fmt.Sprintf("partial apply at %s for player %d (%s -> %s): %v",
		e.Stage, e.Player, e.Given, e.Received, e.Err)
}

func (e *PartialApplyError) Is(target error) bool { return target == ErrPartialApply }

func (e *PartialApplyError) Unwrap() error { return e.Err }

// translate maps storage sentinels onto service error kinds.
func translate(err error) error {
	switch {
	case errors.Is(err, persistence.ErrInsufficientStock):
		return fmt.Errorf("%w: %v", ErrInsufficientStock, err)
	case errors.Is(err, persistence.ErrCountOverflow):
		return ErrCountOverflow
	}
	return err
}

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrPartialApply, "partial_apply"},
	{ErrInsufficientStock, "insufficient_stock"},
	{ErrNotOwned, "not_owned"},
	{ErrNoBerries, "no_berries"},
	{ErrCannotEvolve, "cannot_evolve"},
	{ErrAmbiguousVariant, "ambiguous_variant"},
	{ErrAmbiguousTarget, "ambiguous_target"},
	{ErrStaleOffer, "stale_offer"},
	{ErrUnauthorizedResolver, "unauthorized_resolver"},
	{ErrPartyTooLarge, "party_too_large"},
	{ErrTradeNotFound, "trade_not_found"},
	{ErrTradeResolved, "trade_resolved"},
	{ErrSelfTrade, "self_trade"},
	{ErrUnknownSpecies, "unknown_species"},
	{ErrNoRolls, "no_rolls"},
	{ErrCountOverflow, "count_overflow"},
}

// ErrorCode returns a stable code for transports, "internal" for unknown errors.
func ErrorCode(err error) string {
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal"
}
