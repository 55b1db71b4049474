// services/party.go
package services

import (
	"context"
	"errors"
	"strings"

	"github.com/wdlord/discord-pokebot/models"
	"github.com/wdlord/discord-pokebot/persistence"
	"github.com/wdlord/discord-pokebot/species"
)

// Roster 对战队伍（最多5个）
type Roster struct {
	ledger *Ledger
}

func NewRoster(ledger *Ledger) *Roster {
	return &Roster{ledger: ledger}
}

// Get returns false when the player has no record, an empty slice when no party was set.
func (r *Roster) Get(ctx context.Context, player models.PlayerID) ([]models.Variant, bool, error) {
	rec, err := r.ledger.load(ctx, player)
	if err != nil || rec == nil {
		return nil, false, err
	}
	if rec.BattleParty == nil {
		return []models.Variant{}, true, nil
	}
	return rec.BattleParty, true, nil
}

// Set stores entries in order. Ownership screening is the caller's job (see ScreenParty).
func (r *Roster) Set(ctx context.Context, player models.PlayerID, entries []models.Variant) error {
	if len(entries) > models.MaxPartySize {
		return ErrPartyTooLarge
	}
	return r.ledger.store.SetParty(ctx, player, entries)
}

// RepairIfZeroed replaces every party entry equal to variant when its stock is gone.
func (r *Roster) RepairIfZeroed(ctx context.Context, player models.PlayerID, variant, replacement models.Variant) error {
	return r.ledger.store.Transaction(ctx, func(tx persistence.Tx) error {
		rec, err := tx.LoadPlayer(ctx, player)
		if err != nil {
			return ignoreNotFound(err)
		}
		if rec.Ownership.Get(variant.Species).Of(variant.Shiny) != 0 {
			return nil
		}
		_, err = repairParty(ctx, tx, rec, variant, replacement)
		return err
	})
}

func repairParty(ctx context.Context, tx persistence.Tx, rec *models.PlayerRecord, zeroed, replacement models.Variant) (int, error) {
	replaced := 0
	party := append([]models.Variant(nil), rec.BattleParty...)
	for i := range party {
		if party[i] == zeroed {
			party[i] = replacement
			replaced++
		}
	}
	if replaced == 0 {
		return 0, nil
	}
	if err := tx.SetParty(ctx, rec.PlayerID, party); err != nil {
		return 0, err
	}
	rec.BattleParty = party
	return replaced, nil
}

// repairAfterDecrement runs both repairs once the given variant's stock hit zero.
func repairAfterDecrement(ctx context.Context, tx persistence.Tx, player models.PlayerID, given, received models.Variant, left uint64) error {
	if left != 0 {
		return nil
	}
	rec, err := tx.LoadPlayer(ctx, player)
	if err != nil {
		return err
	}
	if _, err := repairFavorite(ctx, tx, rec, given, received); err != nil {
		return err
	}
	_, err = repairParty(ctx, tx, rec, given, received)
	return err
}

// dropZeroed removes a variant whose stock is gone from the party and favorite.
func dropZeroed(ctx context.Context, tx persistence.Tx, player models.PlayerID, zeroed models.Variant, left uint64) error {
	if left != 0 {
		return nil
	}
	rec, err := tx.LoadPlayer(ctx, player)
	if err != nil {
		return err
	}
	if rec.Favorite != nil && *rec.Favorite == zeroed {
		if err := tx.SetFavorite(ctx, player, nil); err != nil {
			return err
		}
	}
	party := make([]models.Variant, 0, len(rec.BattleParty))
	for _, v := range rec.BattleParty {
		if v != zeroed {
			party = append(party, v)
		}
	}
	if len(party) == len(rec.BattleParty) {
		return nil
	}
	return tx.SetParty(ctx, player, party)
}

func ignoreNotFound(err error) error {
	if errors.Is(err, persistence.ErrRecordNotFound) {
		return nil
	}
	return err
}

// ParsePartyEntry parses the text form of a party slot. A leading '#' marks shiny.
func ParsePartyEntry(text string) (models.Variant, bool) {
	name := models.NormalizeSpecies(text)
	shiny := strings.HasPrefix(name, "#")
	name = strings.TrimSpace(strings.TrimLeft(name, "#"))
	if name == "" {
		return models.Variant{}, false
	}
	return models.Variant{Species: name, Shiny: shiny}, true
}

// PartyEntryStatus is the screening result of one requested slot.
type PartyEntryStatus struct {
	Variant models.Variant `json:"variant"`
	OK      bool           `json:"ok"`
	Reason  string         `json:"reason,omitempty"`
}

const (
	ReasonUnknownSpecies = "species does not exist"
	ReasonNotEnough      = "not enough of this species owned"
)

// PartyReport 队伍校验结果
type PartyReport struct {
	Entries []PartyEntryStatus `json:"entries"`
}

// Valid reports whether every screened entry passed.
func (p PartyReport) Valid() bool {
	for _, e := range p.Entries {
		if !e.OK {
			return false
		}
	}
	return true
}

// Party returns the accepted variants in order.
func (p PartyReport) Party() []models.Variant {
	out := make([]models.Variant, 0, len(p.Entries))
	for _, e := range p.Entries {
		if e.OK {
			out = append(out, e.Variant)
		}
	}
	return out
}

// ScreenParty checks each text entry against the directory and the player's
// stock, counting copies already accepted earlier in the list. Blank entries are skipped.
func ScreenParty(ctx context.Context, ledger *Ledger, dir species.Directory, player models.PlayerID, entries []string) (PartyReport, error) {
	report := PartyReport{Entries: []PartyEntryStatus{}}
	if len(entries) > models.MaxPartySize {
		return report, ErrPartyTooLarge
	}
	used := make(map[models.Variant]uint64)
	for _, text := range entries {
		v, ok := ParsePartyEntry(text)
		if !ok {
			continue
		}
		if !dir.Contains(v.Species) {
			report.Entries = append(report.Entries, PartyEntryStatus{Variant: v, Reason: ReasonUnknownSpecies})
			continue
		}
		count, err := ledger.VariantCount(ctx, player, v.Species)
		if err != nil {
			return report, err
		}
		if used[v]+1 > count.Of(v.Shiny) {
			report.Entries = append(report.Entries, PartyEntryStatus{Variant: v, Reason: ReasonNotEnough})
			continue
		}
		used[v]++
		report.Entries = append(report.Entries, PartyEntryStatus{Variant: v, OK: true})
	}
	return report, nil
}
