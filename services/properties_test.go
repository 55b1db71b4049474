package services

import (
	"context"
	"testing"

	"pgregory.net/rapid"

	"github.com/wdlord/discord-pokebot/models"
	"github.com/wdlord/discord-pokebot/persistence"
	"github.com/wdlord/discord-pokebot/species"
)

var propSpecies = []string{"bulbasaur", "ivysaur", "venusaur", "eevee", "vaporeon", "jolteon"}

var propGraph = species.StaticGraph{
	"bulbasaur": {"ivysaur"},
	"ivysaur":   {"venusaur"},
	"eevee":     {"vaporeon", "jolteon"},
}

type ledgerModel struct {
	ledger  *Ledger
	fav     *Favorites
	roster  *Roster
	evo     *Evolution
	trades  *Trades
	players []models.PlayerID
}

func newLedgerModel() *ledgerModel {
	l := NewLedger(persistence.NewMemoryStore(), testMaxRolls, nil)
	return &ledgerModel{
		ledger:  l,
		fav:     NewFavorites(l),
		roster:  NewRoster(l),
		evo:     NewEvolution(l, propGraph),
		trades:  NewTrades(l),
		players: []models.PlayerID{alice, bob},
	}
}

func drawVariant(t *rapid.T, label string) models.Variant {
	return models.Variant{
		Species: rapid.SampledFrom(propSpecies).Draw(t, label+"_species"),
		Shiny:   rapid.Bool().Draw(t, label+"_shiny"),
	}
}

// step applies one random operation.
func (m *ledgerModel) step(t *rapid.T) {
	ctx := context.Background()
	player := rapid.SampledFrom(m.players).Draw(t, "player")

	switch rapid.IntRange(0, 6).Draw(t, "op") {
	case 0:
		v := drawVariant(t, "add")
		if err := m.ledger.AddVariant(ctx, player, v, uint64(rapid.IntRange(1, 3).Draw(t, "n"))); err != nil {
			t.Fatalf("AddVariant failed: %v", err)
		}
	case 1:
		if _, err := m.ledger.GiveBerries(ctx, player, 1); err != nil {
			t.Fatalf("GiveBerries failed: %v", err)
		}
	case 2:
		req := EvolveRequest{
			Player:  player,
			Species: rapid.SampledFrom(propSpecies).Draw(t, "evolve_species"),
			Shiny:   boolPtr(rapid.Bool().Draw(t, "evolve_shiny")),
			Target:  rapid.SampledFrom([]string{"", "vaporeon", "jolteon"}).Draw(t, "evolve_target"),
		}
		if _, err := m.evo.Evolve(ctx, req); err != nil && !isRejection(err) {
			t.Fatalf("Evolve failed unexpectedly: %v", err)
		}
	case 3:
		m.tradeAndCheckConservation(t)
	case 4:
		v := drawVariant(t, "fav")
		if _, err := m.fav.Choose(ctx, player, v.Species, &v.Shiny); err != nil && !isRejection(err) {
			t.Fatalf("Choose failed unexpectedly: %v", err)
		}
	case 5:
		n := rapid.IntRange(0, models.MaxPartySize).Draw(t, "party_len")
		entries := make([]string, n)
		for i := range entries {
			v := drawVariant(t, "party")
			if v.Shiny {
				entries[i] = "#" + v.Species
			} else {
				entries[i] = v.Species
			}
		}
		report, err := ScreenParty(ctx, m.ledger, species.NewStaticDirectory(propSpecies), player, entries)
		if err != nil {
			t.Fatalf("ScreenParty failed: %v", err)
		}
		if report.Valid() {
			if err := m.roster.Set(ctx, player, report.Party()); err != nil {
				t.Fatalf("Set party failed: %v", err)
			}
		}
	case 6:
		v := drawVariant(t, "dec")
		n := uint64(rapid.IntRange(1, 2).Draw(t, "dec_n"))
		if _, err := m.ledger.DecrementVariant(ctx, player, v, n); err != nil && !isRejection(err) {
			t.Fatalf("DecrementVariant failed unexpectedly: %v", err)
		}
	}
}

func (m *ledgerModel) tradeAndCheckConservation(t *rapid.T) {
	ctx := context.Background()
	give := drawVariant(t, "give")
	want := drawVariant(t, "want")

	total := func() uint64 {
		var sum uint64
		for _, p := range m.players {
			for _, v := range []models.Variant{give, want} {
				c, _ := m.ledger.VariantCount(ctx, p, v.Species)
				sum += c.Of(v.Shiny)
			}
		}
		return sum
	}

	before := total()
	trade, err := m.trades.Propose(ctx, alice, bob, give, want)
	if err != nil {
		if !isRejection(err) {
			t.Fatalf("Propose failed unexpectedly: %v", err)
		}
		return
	}
	if _, err := m.trades.Accept(ctx, trade.ID, bob); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if after := total(); after != before {
		t.Fatalf("Expected trade to conserve %d units, got %d", before, after)
	}
}

func (m *ledgerModel) check(t *rapid.T) {
	ctx := context.Background()
	for _, p := range m.players {
		rec, err := m.ledger.store.LoadPlayer(ctx, p)
		if err != nil {
			continue
		}
		owned := rec.Ownership.Owned()

		// every decrement repairs the stored favorite and party
		if rec.Favorite != nil && rec.Ownership.Get(rec.Favorite.Species).Of(rec.Favorite.Shiny) == 0 {
			t.Fatalf("player %d favorite %v has zero stock", p, rec.Favorite)
		}
		for i, v := range rec.BattleParty {
			if rec.Ownership.Get(v.Species).Of(v.Shiny) == 0 {
				t.Fatalf("player %d party[%d] %v has zero stock", p, i, v)
			}
		}
		if len(rec.BattleParty) > models.MaxPartySize {
			t.Fatalf("player %d party has %d entries", p, len(rec.BattleParty))
		}

		fav, err := m.fav.Get(ctx, p)
		if err != nil {
			t.Fatalf("Get favorite failed: %v", err)
		}
		if len(owned) > 0 && (fav == nil || rec.Ownership.Get(fav.Species).Of(fav.Shiny) == 0) {
			t.Fatalf("player %d owns %v but favorite is %v", p, owned, fav)
		}
		if len(owned) == 0 && fav != nil {
			t.Fatalf("player %d owns nothing but favorite is %v", p, fav)
		}
	}
}

func TestLedgerProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := newLedgerModel()
		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			m.step(t)
			m.check(t)
		}
	})
}

func TestDecrementNeverNegative(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		l := NewLedger(persistence.NewMemoryStore(), testMaxRolls, nil)
		ctx := context.Background()
		v := models.NewVariant("magikarp", rapid.Bool().Draw(t, "shiny"))
		var expected uint64

		for i, n := 0, rapid.IntRange(1, 30).Draw(t, "ops"); i < n; i++ {
			amount := uint64(rapid.IntRange(1, 3).Draw(t, "amount"))
			if rapid.Bool().Draw(t, "add") {
				_ = l.AddVariant(ctx, 1, v, amount)
				expected += amount
				continue
			}
			left, err := l.DecrementVariant(ctx, 1, v, amount)
			if amount > expected {
				if err == nil {
					t.Fatalf("Expected ErrInsufficientStock decrementing %d from %d", amount, expected)
				}
				continue
			}
			if err != nil {
				t.Fatalf("DecrementVariant failed: %v", err)
			}
			expected -= amount
			if left != expected {
				t.Fatalf("Expected %d left, got %d", expected, left)
			}
		}
		c, _ := l.VariantCount(ctx, 1, "magikarp")
		if c.Of(v.Shiny) != expected || c.Of(!v.Shiny) != 0 {
			t.Fatalf("Expected %d, got %+v", expected, c)
		}
	})
}
