package services

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/wdlord/discord-pokebot/models"
	"github.com/wdlord/discord-pokebot/persistence"
	"github.com/wdlord/discord-pokebot/species"
	"github.com/wdlord/discord-pokebot/species/mocks"
)

func TestEvolution_PikachuToRaichu(t *testing.T) {
	ctrl := gomock.NewController(t)
	graph := mocks.NewMockEvolutionGraph(ctrl)
	graph.EXPECT().NextEvolutions(gomock.Any(), "pikachu").Return([]string{"raichu"}, nil)

	l, rec := newTestLedger(t)
	ctx := context.Background()
	pikachu := models.NewVariant("pikachu", false)
	give(t, l, 1, "pikachu", false, 1)
	_, _ = l.GiveBerries(ctx, 1, 1)
	_ = NewFavorites(l).Set(ctx, 1, pikachu)
	_ = NewRoster(l).Set(ctx, 1, []models.Variant{pikachu, pikachu})

	res, err := NewEvolution(l, graph).Evolve(ctx, EvolveRequest{Player: 1, Species: "Pikachu"})
	if err != nil {
		t.Fatalf("Evolve failed: %v", err)
	}
	raichu := models.NewVariant("raichu", false)
	if res.From != pikachu || res.To != raichu || res.Berries != 0 {
		t.Errorf("Unexpected result %+v", res)
	}

	if c := countOf(t, l, 1, "pikachu"); !c.IsZero() {
		t.Errorf("Expected pikachu 0/0, got %+v", c)
	}
	if c := countOf(t, l, 1, "raichu"); c != (models.VariantCount{Normal: 1}) {
		t.Errorf("Expected raichu 1/0, got %+v", c)
	}
	player, _ := l.store.LoadPlayer(ctx, 1)
	if player.Berries != 0 {
		t.Errorf("Expected berries to be spent, got %d", player.Berries)
	}
	if player.Favorite == nil || *player.Favorite != raichu {
		t.Errorf("Expected favorite raichu, got %v", player.Favorite)
	}
	for i, v := range player.BattleParty {
		if v != raichu {
			t.Errorf("Expected party[%d] repaired to raichu, got %v", i, v)
		}
	}
	if rec.evolve[ResultSuccess] != 1 {
		t.Errorf("Expected one successful evolution recorded, got %v", rec.evolve)
	}
}

func TestEvolution_KeepsFavoriteWhileStockRemains(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	pikachu := models.NewVariant("pikachu", false)
	give(t, l, 1, "pikachu", false, 2)
	_, _ = l.GiveBerries(ctx, 1, 1)
	_ = NewFavorites(l).Set(ctx, 1, pikachu)

	graph := species.StaticGraph{"pikachu": {"raichu"}}
	if _, err := NewEvolution(l, graph).Evolve(ctx, EvolveRequest{Player: 1, Species: "pikachu"}); err != nil {
		t.Fatalf("Evolve failed: %v", err)
	}
	player, _ := l.store.LoadPlayer(ctx, 1)
	if *player.Favorite != pikachu {
		t.Errorf("Expected favorite to stay pikachu, got %v", player.Favorite)
	}
}

func TestEvolution_Failures(t *testing.T) {
	graph := species.StaticGraph{
		"eevee":   {"vaporeon", "jolteon", "flareon"},
		"pikachu": {"raichu"},
	}
	tests := []struct {
		name  string
		setup func(t *testing.T, l *Ledger)
		req   EvolveRequest
		want  error
	}{
		{
			name:  "no berries",
			setup: func(t *testing.T, l *Ledger) { give(t, l, 1, "pikachu", false, 1) },
			req:   EvolveRequest{Player: 1, Species: "pikachu"},
			want:  ErrNoBerries,
		},
		{
			name: "not owned",
			setup: func(t *testing.T, l *Ledger) {
				_, _ = l.GiveBerries(context.Background(), 1, 1)
			},
			req:  EvolveRequest{Player: 1, Species: "pikachu"},
			want: ErrNotOwned,
		},
		{
			name: "ambiguous variant",
			setup: func(t *testing.T, l *Ledger) {
				give(t, l, 1, "pikachu", false, 1)
				give(t, l, 1, "pikachu", true, 1)
				_, _ = l.GiveBerries(context.Background(), 1, 1)
			},
			req:  EvolveRequest{Player: 1, Species: "pikachu"},
			want: ErrAmbiguousVariant,
		},
		{
			name: "cannot evolve",
			setup: func(t *testing.T, l *Ledger) {
				give(t, l, 1, "raichu", false, 1)
				_, _ = l.GiveBerries(context.Background(), 1, 1)
			},
			req:  EvolveRequest{Player: 1, Species: "raichu"},
			want: ErrCannotEvolve,
		},
		{
			name: "ambiguous target",
			setup: func(t *testing.T, l *Ledger) {
				give(t, l, 1, "eevee", false, 1)
				_, _ = l.GiveBerries(context.Background(), 1, 1)
			},
			req:  EvolveRequest{Player: 1, Species: "eevee"},
			want: ErrAmbiguousTarget,
		},
		{
			name: "target not a branch",
			setup: func(t *testing.T, l *Ledger) {
				give(t, l, 1, "eevee", false, 1)
				_, _ = l.GiveBerries(context.Background(), 1, 1)
			},
			req:  EvolveRequest{Player: 1, Species: "eevee", Target: "raichu"},
			want: ErrAmbiguousTarget,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, rec := newTestLedger(t)
			tt.setup(t, l)
			ctx := context.Background()
			before, _ := l.store.LoadPlayer(ctx, 1)

			_, err := NewEvolution(l, graph).Evolve(ctx, tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, err)
			}
			after, _ := l.store.LoadPlayer(ctx, 1)
			if before != nil && (after.Berries != before.Berries || len(after.Ownership.Owned()) != len(before.Ownership.Owned())) {
				t.Errorf("Expected state untouched, before %+v after %+v", before, after)
			}
			if rec.evolve[ResultRejected] != 1 {
				t.Errorf("Expected rejection recorded, got %v", rec.evolve)
			}
		})
	}
}

func TestEvolution_AmbiguousTargetListsOptions(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	give(t, l, 1, "eevee", true, 1)
	_, _ = l.GiveBerries(ctx, 1, 1)

	e := NewEvolution(l, species.StaticGraph{"eevee": {"Vaporeon", "jolteon"}})
	_, err := e.Evolve(ctx, EvolveRequest{Player: 1, Species: "eevee"})
	var amb *AmbiguousTargetError
	if !errors.As(err, &amb) || len(amb.Options) != 2 || amb.Options[0] != "vaporeon" {
		t.Fatalf("Expected AmbiguousTargetError with normalized options, got %v", err)
	}

	res, err := e.Evolve(ctx, EvolveRequest{Player: 1, Species: "eevee", Target: "VAPOREON"})
	if err != nil {
		t.Fatalf("Evolve failed: %v", err)
	}
	if res.To != models.NewVariant("vaporeon", true) {
		t.Errorf("Expected shiny vaporeon, got %v", res.To)
	}
}

func TestEvolution_ExplicitShinyChoice(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	give(t, l, 1, "pikachu", false, 1)
	give(t, l, 1, "pikachu", true, 1)
	_, _ = l.GiveBerries(ctx, 1, 1)

	res, err := NewEvolution(l, species.StaticGraph{"pikachu": {"raichu"}}).
		Evolve(ctx, EvolveRequest{Player: 1, Species: "pikachu", Shiny: boolPtr(true)})
	if err != nil {
		t.Fatalf("Evolve failed: %v", err)
	}
	if !res.To.Shiny {
		t.Errorf("Expected shiny raichu, got %v", res.To)
	}
	if c := countOf(t, l, 1, "pikachu"); c != (models.VariantCount{Normal: 1}) {
		t.Errorf("Expected only the shiny pikachu consumed, got %+v", c)
	}
}

func TestEvolution_ApplyFailureRollsBack(t *testing.T) {
	store := &failingStore{MemoryStore: persistence.NewMemoryStore(), failOn: 1}
	l := NewLedger(store, testMaxRolls, nil)
	ctx := context.Background()
	give(t, l, 1, "pikachu", false, 1)
	_, _ = l.GiveBerries(ctx, 1, 1)

	_, err := NewEvolution(l, species.StaticGraph{"pikachu": {"raichu"}}).
		Evolve(ctx, EvolveRequest{Player: 1, Species: "pikachu"})
	if !errors.Is(err, errInjected) {
		t.Fatalf("Expected injected error, got %v", err)
	}
	if c := countOf(t, l, 1, "pikachu"); c.Normal != 1 {
		t.Errorf("Expected pikachu untouched, got %+v", c)
	}
	if n, _, _ := l.NumBerries(ctx, 1); n != 1 {
		t.Errorf("Expected berry untouched, got %d", n)
	}
}
