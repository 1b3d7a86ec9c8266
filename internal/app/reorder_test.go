package app

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/oriolvila/sudscat/internal/domain"
)

func orderedTypes(t *testing.T, ids ...string) []domain.SudsType {
	t.Helper()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	out := make([]domain.SudsType, 0, len(ids))
	for idx, id := range ids {
		st, err := domain.NewSudsType(id, "Type "+id, "", nil, now)
		if err != nil {
			t.Fatalf("NewSudsType(%s) error = %v", id, err)
		}
		st.Order = idx
		out = append(out, st)
	}
	return out
}

func seedTypes(repo *fakeRepo, types []domain.SudsType) {
	for _, st := range types {
		repo.types[st.ID] = st
	}
}

func TestMoveSudsTypeSwapsNeighbours(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	current := orderedTypes(t, "a", "b", "c")
	seedTypes(repo, current)

	if err := svc.MoveSudsType(context.Background(), domain.RoleOwner, "b", DirectionUp, current); err != nil {
		t.Fatalf("MoveSudsType() error = %v", err)
	}

	want := map[string]int{"b": 0, "a": 1, "c": 2}
	for id, order := range want {
		if repo.types[id].Order != order {
			t.Fatalf("type %s order = %d, want %d", id, repo.types[id].Order, order)
		}
	}
}

func TestMoveSudsTypeBoundaryIsNoOp(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	current := orderedTypes(t, "a", "b", "c")
	seedTypes(repo, current)
	ctx := context.Background()

	if err := svc.MoveSudsType(ctx, domain.RoleOwner, "a", DirectionUp, current); err != nil {
		t.Fatalf("MoveSudsType(first, up) error = %v", err)
	}
	if err := svc.MoveSudsType(ctx, domain.RoleOwner, "c", DirectionDown, current); err != nil {
		t.Fatalf("MoveSudsType(last, down) error = %v", err)
	}
	if repo.batchCalls != 0 {
		t.Fatalf("boundary moves issued %d batches, want 0", repo.batchCalls)
	}
	for idx, id := range []string{"a", "b", "c"} {
		if repo.types[id].Order != idx {
			t.Fatalf("type %s order changed to %d", id, repo.types[id].Order)
		}
	}
}

func TestMoveSudsTypeSkipsUnaffectedWrites(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	current := orderedTypes(t, "a", "b", "c")
	seedTypes(repo, current)

	if err := svc.MoveSudsType(context.Background(), domain.RoleOwner, "b", DirectionUp, current); err != nil {
		t.Fatalf("MoveSudsType() error = %v", err)
	}

	// c already sits at index 2, so the batch carries writes for a and b only.
	if len(repo.lastAssignments) != 2 {
		t.Fatalf("batch carried %d writes, want 2: %+v", len(repo.lastAssignments), repo.lastAssignments)
	}
	for _, a := range repo.lastAssignments {
		if a.ID == "c" {
			t.Fatalf("unchanged document written: %+v", repo.lastAssignments)
		}
	}
	if repo.types["b"].Order != 0 || repo.types["a"].Order != 1 || repo.types["c"].Order != 2 {
		t.Fatalf("orders after move: a=%d b=%d c=%d",
			repo.types["a"].Order, repo.types["b"].Order, repo.types["c"].Order)
	}
}

func TestMoveSudsTypeFailedBatchLeavesOrderIntact(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	current := orderedTypes(t, "a", "b", "c")
	seedTypes(repo, current)
	repo.failBatches = true

	err := svc.MoveSudsType(context.Background(), domain.RoleOwner, "b", DirectionUp, current)
	if !errors.Is(err, errBatchRejected) {
		t.Fatalf("expected batch rejection surfaced, got %v", err)
	}
	for idx, id := range []string{"a", "b", "c"} {
		if repo.types[id].Order != idx {
			t.Fatalf("type %s order mutated to %d after failed batch", id, repo.types[id].Order)
		}
	}
	// The caller's in-memory slice is never optimistically mutated either.
	for idx, id := range []string{"a", "b", "c"} {
		if current[idx].ID != id {
			t.Fatalf("input slice mutated: %v", current)
		}
	}
}

func TestMoveSudsTypeUnknownID(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	current := orderedTypes(t, "a", "b")
	seedTypes(repo, current)

	err := svc.MoveSudsType(context.Background(), domain.RoleOwner, "ghost", DirectionUp, current)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMoveSudsTypeDoubleInvocationIsSafe(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	current := orderedTypes(t, "a", "b", "c")
	seedTypes(repo, current)
	ctx := context.Background()

	if err := svc.MoveSudsType(ctx, domain.RoleOwner, "b", DirectionUp, current); err != nil {
		t.Fatalf("first move error = %v", err)
	}
	// The second click recomputes from the committed order, which has b at
	// the top already, so it is a boundary no-op.
	committed, err := svc.ListSudsTypes(ctx)
	if err != nil {
		t.Fatalf("ListSudsTypes() error = %v", err)
	}
	if err := svc.MoveSudsType(ctx, domain.RoleOwner, "b", DirectionUp, committed); err != nil {
		t.Fatalf("second move error = %v", err)
	}
	if repo.types["b"].Order != 0 || repo.types["a"].Order != 1 || repo.types["c"].Order != 2 {
		t.Fatalf("double move corrupted order: a=%d b=%d c=%d",
			repo.types["a"].Order, repo.types["b"].Order, repo.types["c"].Order)
	}
}

func TestMoveCategoryPersistsWholeList(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	repo.categories = []string{"Cleaning", "Vegetation", "Structure"}

	if err := svc.MoveCategory(context.Background(), domain.RoleOwner, "Vegetation", DirectionDown, repo.categories); err != nil {
		t.Fatalf("MoveCategory() error = %v", err)
	}
	want := []string{"Cleaning", "Structure", "Vegetation"}
	if !slices.Equal(repo.categories, want) {
		t.Fatalf("categories = %v, want %v", repo.categories, want)
	}
}

func TestMoveCategoryBoundaryAndFailure(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	repo.categories = []string{"Cleaning", "Vegetation"}
	ctx := context.Background()

	if err := svc.MoveCategory(ctx, domain.RoleOwner, "Cleaning", DirectionUp, repo.categories); err != nil {
		t.Fatalf("boundary move error = %v", err)
	}
	if !slices.Equal(repo.categories, []string{"Cleaning", "Vegetation"}) {
		t.Fatalf("boundary move changed list: %v", repo.categories)
	}

	repo.failBatches = true
	err := svc.MoveCategory(ctx, domain.RoleOwner, "Vegetation", DirectionUp, repo.categories)
	if !errors.Is(err, errBatchRejected) {
		t.Fatalf("expected batch rejection surfaced, got %v", err)
	}
	if !slices.Equal(repo.categories, []string{"Cleaning", "Vegetation"}) {
		t.Fatalf("failed write mutated list: %v", repo.categories)
	}
}

func TestMoveActivityDefinitionRewritesWholeMap(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	repo.definitions = domain.DefinitionMap{
		"Cleaning":   {"Sweep", "Inspect", "Flush"},
		"Vegetation": {"Prune"},
	}

	defs, err := repo.GetDefinitions(context.Background())
	if err != nil {
		t.Fatalf("GetDefinitions() error = %v", err)
	}
	if err := svc.MoveActivityDefinition(context.Background(), domain.RoleOwner, "Cleaning", "Flush", DirectionUp, defs); err != nil {
		t.Fatalf("MoveActivityDefinition() error = %v", err)
	}

	if !slices.Equal(repo.definitions["Cleaning"], []string{"Sweep", "Flush", "Inspect"}) {
		t.Fatalf("cleaning order = %v", repo.definitions["Cleaning"])
	}
	if !slices.Equal(repo.definitions["Vegetation"], []string{"Prune"}) {
		t.Fatalf("untouched category mutated: %v", repo.definitions["Vegetation"])
	}
}

func TestMoveActivityDefinitionUnknownCategory(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	defs := domain.DefinitionMap{"Cleaning": {"Sweep"}}

	err := svc.MoveActivityDefinition(context.Background(), domain.RoleOwner, "Ghost", "Sweep", DirectionUp, defs)
	if !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestMoveRequiresCapability(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	current := orderedTypes(t, "a", "b")
	seedTypes(repo, current)

	err := svc.MoveSudsType(context.Background(), domain.RoleTechnician, "b", DirectionUp, current)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for technician, got %v", err)
	}
	if repo.batchCalls != 0 {
		t.Fatal("denied move reached the repository")
	}
}

func TestSwapTargetInvalidDirection(t *testing.T) {
	if _, _, err := swapTarget(1, 3, Direction("sideways")); !errors.Is(err, domain.ErrInvalidDirection) {
		t.Fatalf("expected ErrInvalidDirection, got %v", err)
	}
}
