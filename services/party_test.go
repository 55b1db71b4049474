package services

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/wdlord/discord-pokebot/models"
	"github.com/wdlord/discord-pokebot/species"
	"github.com/wdlord/discord-pokebot/species/mocks"
)

func TestRoster_SetAndGet(t *testing.T) {
	l, _ := newTestLedger(t)
	r := NewRoster(l)
	ctx := context.Background()

	if _, ok, err := r.Get(ctx, 1); ok || err != nil {
		t.Fatalf("Expected no party for unknown player, got ok=%v err=%v", ok, err)
	}

	six := make([]models.Variant, 6)
	for i := range six {
		six[i] = models.NewVariant("magikarp", false)
	}
	if err := r.Set(ctx, 1, six); !errors.Is(err, ErrPartyTooLarge) {
		t.Fatalf("Expected ErrPartyTooLarge, got %v", err)
	}

	give(t, l, 1, "seel", false, 1)
	party, ok, _ := r.Get(ctx, 1)
	if !ok || party == nil || len(party) != 0 {
		t.Fatalf("Expected empty party for a fresh record, got %v ok=%v", party, ok)
	}

	five := []models.Variant{
		models.NewVariant("seel", false),
		models.NewVariant("abra", true),
		models.NewVariant("onix", false),
		models.NewVariant("seel", false),
		models.NewVariant("zubat", false),
	}
	if err := r.Set(ctx, 1, five); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	party, _, _ = r.Get(ctx, 1)
	if len(party) != 5 {
		t.Fatalf("Expected 5 entries, got %d", len(party))
	}
	for i := range five {
		if party[i] != five[i] {
			t.Errorf("Expected entry %d to be %v, got %v", i, five[i], party[i])
		}
	}
}

func TestRoster_RepairReplacesEveryMatch(t *testing.T) {
	l, _ := newTestLedger(t)
	r := NewRoster(l)
	ctx := context.Background()
	seel := models.NewVariant("seel", false)
	dewgong := models.NewVariant("dewgong", false)
	abra := models.NewVariant("abra", false)
	give(t, l, 1, "seel", false, 1)
	give(t, l, 1, "abra", false, 1)
	give(t, l, 1, "dewgong", false, 1)
	_ = r.Set(ctx, 1, []models.Variant{seel, abra, seel})

	_, _ = l.store.DecrementVariant(ctx, 1, seel, 1)
	if err := r.RepairIfZeroed(ctx, 1, seel, dewgong); err != nil {
		t.Fatalf("RepairIfZeroed failed: %v", err)
	}

	party, _, _ := r.Get(ctx, 1)
	want := []models.Variant{dewgong, abra, dewgong}
	for i := range want {
		if party[i] != want[i] {
			t.Errorf("Expected entry %d to be %v, got %v", i, want[i], party[i])
		}
	}
}

func TestParsePartyEntry(t *testing.T) {
	tests := []struct {
		in    string
		want  models.Variant
		valid bool
	}{
		{"Pikachu", models.Variant{Species: "pikachu"}, true},
		{" #Mew ", models.Variant{Species: "mew", Shiny: true}, true},
		{"##eevee", models.Variant{Species: "eevee", Shiny: true}, true},
		{"   ", models.Variant{}, false},
		{"#", models.Variant{}, false},
	}
	for _, tt := range tests {
		got, ok := ParsePartyEntry(tt.in)
		if ok != tt.valid || got != tt.want {
			t.Errorf("ParsePartyEntry(%q): expected %v/%v, got %v/%v", tt.in, tt.want, tt.valid, got, ok)
		}
	}
}

func TestScreenParty(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	give(t, l, 1, "seel", false, 1)
	give(t, l, 1, "abra", true, 2)

	dir := species.NewStaticDirectory([]string{"seel", "abra", "onix"})
	report, err := ScreenParty(ctx, l, dir, 1, []string{"seel", "", "#abra", "kuriboh", "seel", "#abra"})
	if !errors.Is(err, ErrPartyTooLarge) {
		t.Fatalf("Expected six slots to be rejected, got %v", err)
	}

	report, err = ScreenParty(ctx, l, dir, 1, []string{"seel", "", "#abra", "kuriboh", "seel"})
	if err != nil {
		t.Fatalf("ScreenParty failed: %v", err)
	}
	if len(report.Entries) != 4 {
		t.Fatalf("Expected blank entry to be skipped, got %+v", report.Entries)
	}
	if report.Valid() {
		t.Error("Expected report to be invalid")
	}
	if report.Entries[2].Reason != ReasonUnknownSpecies {
		t.Errorf("Expected kuriboh rejected as unknown, got %+v", report.Entries[2])
	}
	if report.Entries[3].Reason != ReasonNotEnough {
		t.Errorf("Expected second seel rejected for stock, got %+v", report.Entries[3])
	}
	if got := report.Party(); len(got) != 2 {
		t.Errorf("Expected 2 accepted entries, got %v", got)
	}

	report, _ = ScreenParty(ctx, l, dir, 1, []string{"#abra", "#ABRA", "seel"})
	if !report.Valid() {
		t.Errorf("Expected two shiny abra and one seel to pass, got %+v", report.Entries)
	}
}

func TestScreenParty_WithMockDirectory(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := mocks.NewMockDirectory(ctrl)
	dir.EXPECT().Contains("mew").Return(false)

	l, _ := newTestLedger(t)
	report, err := ScreenParty(context.Background(), l, dir, 1, []string{"Mew"})
	if err != nil {
		t.Fatalf("ScreenParty failed: %v", err)
	}
	if report.Valid() || report.Entries[0].Reason != ReasonUnknownSpecies {
		t.Errorf("Expected mew to be rejected by the directory, got %+v", report.Entries)
	}
}
