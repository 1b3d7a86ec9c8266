package app

import (
	"testing"
	"time"

	"github.com/oriolvila/sudscat/internal/domain"
)

func testActivity(t *testing.T, id, typeID, category, name string, applies bool, dependsOn ...string) domain.Activity {
	t.Helper()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	rec, err := domain.NewActivity(domain.ActivityInput{
		ID:         id,
		SudsTypeID: typeID,
		Category:   category,
		Name:       name,
		Applies:    applies,
	}, now)
	if err != nil {
		t.Fatalf("NewActivity(%s) error = %v", id, err)
	}
	rec.SetDependsOn(dependsOn, now)
	return rec
}

func resolvedIDs(entries []DisplayEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Activity.ID)
	}
	return out
}

func TestResolveDisplayOrderCategoryThenDefinitionOrder(t *testing.T) {
	categories := []string{"Cleaning", "Vegetation"}
	definitions := domain.DefinitionMap{
		"Cleaning":   {"Sweep", "Inspect"},
		"Vegetation": {"Prune"},
	}
	records := []domain.Activity{
		testActivity(t, "prune", "t1", "Vegetation", "Prune", true),
		testActivity(t, "sweep", "t1", "Cleaning", "Sweep", true),
		testActivity(t, "inspect", "t1", "Cleaning", "Inspect", true),
	}

	entries := ResolveDisplayOrder("t1", records, categories, definitions)

	want := []string{"sweep", "inspect", "prune"}
	got := resolvedIDs(entries)
	if len(got) != len(want) {
		t.Fatalf("resolved %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("resolved %v, want %v", got, want)
		}
		if entries[i].IsDependent {
			t.Fatalf("entry %s unexpectedly marked dependent", got[i])
		}
	}
}

func TestResolveDisplayOrderNestsDependents(t *testing.T) {
	categories := []string{"Cleaning"}
	definitions := domain.DefinitionMap{"Cleaning": {"Sweep", "Inspect"}}
	records := []domain.Activity{
		testActivity(t, "inspect", "t1", "Cleaning", "Inspect", true),
		testActivity(t, "sweep", "t1", "Cleaning", "Sweep", true, "inspect"),
	}

	entries := ResolveDisplayOrder("t1", records, categories, definitions)

	if len(entries) != 2 {
		t.Fatalf("resolved %d entries, want 2", len(entries))
	}
	if entries[0].Activity.ID != "sweep" || entries[0].IsDependent {
		t.Fatalf("entry 0 = %s (dependent=%t), want top-level sweep", entries[0].Activity.ID, entries[0].IsDependent)
	}
	if entries[1].Activity.ID != "inspect" || !entries[1].IsDependent {
		t.Fatalf("entry 1 = %s (dependent=%t), want dependent inspect", entries[1].Activity.ID, entries[1].IsDependent)
	}
}

func TestResolveDisplayOrderCycleEmitsEachRecordOnce(t *testing.T) {
	categories := []string{"Cleaning"}
	definitions := domain.DefinitionMap{"Cleaning": {"Sweep", "Inspect"}}
	records := []domain.Activity{
		testActivity(t, "a", "t1", "Cleaning", "Sweep", true, "b"),
		testActivity(t, "b", "t1", "Cleaning", "Inspect", true, "a"),
	}

	entries := ResolveDisplayOrder("t1", records, categories, definitions)

	seen := map[string]int{}
	for _, e := range entries {
		seen[e.Activity.ID]++
	}
	for id, count := range seen {
		if count != 1 {
			t.Fatalf("record %s emitted %d times", id, count)
		}
	}
	if len(entries) != 2 {
		t.Fatalf("resolved %d entries, want 2", len(entries))
	}
}

func TestResolveDisplayOrderCompleteness(t *testing.T) {
	categories := []string{"Cleaning", "Vegetation"}
	definitions := domain.DefinitionMap{
		"Cleaning":   {"Sweep", "Inspect"},
		"Vegetation": {"Prune", "Mow"},
	}
	records := []domain.Activity{
		testActivity(t, "sweep", "t1", "Cleaning", "Sweep", true, "inspect", "mow"),
		testActivity(t, "inspect", "t1", "Cleaning", "Inspect", true),
		testActivity(t, "mow", "t1", "Vegetation", "Mow", true),
		testActivity(t, "prune", "t1", "Vegetation", "Prune", false),
		testActivity(t, "other-type", "t2", "Cleaning", "Sweep", true),
	}

	entries := ResolveDisplayOrder("t1", records, categories, definitions)

	seen := map[string]struct{}{}
	for _, e := range entries {
		if e.Activity.ID == "prune" {
			t.Fatal("non-applicable record surfaced")
		}
		if e.Activity.ID == "other-type" {
			t.Fatal("record from another installation type surfaced")
		}
		seen[e.Activity.ID] = struct{}{}
	}
	for _, id := range []string{"sweep", "inspect", "mow"} {
		if _, ok := seen[id]; !ok {
			t.Fatalf("applicable record %s missing from output", id)
		}
	}
	if len(entries) != 3 {
		t.Fatalf("resolved %d entries, want 3", len(entries))
	}
}

func TestResolveDisplayOrderPromotesOrphanedDependent(t *testing.T) {
	categories := []string{"Cleaning"}
	definitions := domain.DefinitionMap{"Cleaning": {"Sweep", "Inspect"}}

	withReferrer := []domain.Activity{
		testActivity(t, "sweep", "t1", "Cleaning", "Sweep", true, "inspect"),
		testActivity(t, "inspect", "t1", "Cleaning", "Inspect", true),
	}
	entries := ResolveDisplayOrder("t1", withReferrer, categories, definitions)
	if len(entries) != 2 || !entries[1].IsDependent {
		t.Fatalf("precondition: expected inspect nested under sweep, got %v", resolvedIDs(entries))
	}

	// The referrer stops applying; its claim on inspect must lapse.
	orphaned := []domain.Activity{
		testActivity(t, "sweep", "t1", "Cleaning", "Sweep", false, "inspect"),
		testActivity(t, "inspect", "t1", "Cleaning", "Inspect", true),
	}
	entries = ResolveDisplayOrder("t1", orphaned, categories, definitions)
	if len(entries) != 1 {
		t.Fatalf("resolved %v, want just inspect", resolvedIDs(entries))
	}
	if entries[0].Activity.ID != "inspect" || entries[0].IsDependent {
		t.Fatalf("entry = %s (dependent=%t), want top-level inspect", entries[0].Activity.ID, entries[0].IsDependent)
	}
}

func TestResolveDisplayOrderSkipsStaleReferences(t *testing.T) {
	categories := []string{"Cleaning"}
	definitions := domain.DefinitionMap{"Cleaning": {"Sweep"}}
	records := []domain.Activity{
		testActivity(t, "sweep", "t1", "Cleaning", "Sweep", true, "deleted-long-ago"),
	}

	entries := ResolveDisplayOrder("t1", records, categories, definitions)
	if len(entries) != 1 || entries[0].Activity.ID != "sweep" {
		t.Fatalf("resolved %v, want just sweep", resolvedIDs(entries))
	}
}

func TestResolveDisplayOrderUnknownCategorySortsLast(t *testing.T) {
	categories := []string{"Cleaning"}
	definitions := domain.DefinitionMap{"Cleaning": {"Sweep"}}
	records := []domain.Activity{
		testActivity(t, "ghost", "t1", "Retired category", "Old task", true),
		testActivity(t, "sweep", "t1", "Cleaning", "Sweep", true),
	}

	entries := ResolveDisplayOrder("t1", records, categories, definitions)
	got := resolvedIDs(entries)
	if len(got) != 2 || got[0] != "sweep" || got[1] != "ghost" {
		t.Fatalf("resolved %v, want [sweep ghost]", got)
	}
}

func TestBuildActivityCatalog(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	trench, err := domain.NewSudsType("t1", "Infiltration trench", "", nil, now)
	if err != nil {
		t.Fatalf("NewSudsType() error = %v", err)
	}
	swale, err := domain.NewSudsType("t2", "Swale", "", nil, now)
	if err != nil {
		t.Fatalf("NewSudsType() error = %v", err)
	}

	categories := []string{"Cleaning", "Vegetation"}
	definitions := domain.DefinitionMap{
		"Cleaning":   {"Sweep"},
		"Vegetation": {"Prune", "Mow"},
	}

	entries := BuildActivityCatalog([]domain.SudsType{trench, swale}, categories, definitions)
	if len(entries) != 6 {
		t.Fatalf("catalog has %d entries, want 6", len(entries))
	}
	if entries[0].ID != "t1/Cleaning/Sweep" {
		t.Fatalf("first entry id = %q", entries[0].ID)
	}
	if entries[3].ID != "t2/Cleaning/Sweep" {
		t.Fatalf("fourth entry id = %q", entries[3].ID)
	}
	if entries[5].ID != "t2/Vegetation/Mow" {
		t.Fatalf("last entry id = %q", entries[5].ID)
	}
}
