package domain

import (
	"slices"
	"testing"
	"time"
)

func TestNewSudsTypeValidation(t *testing.T) {
	now := time.Now()
	if _, err := NewSudsType("", "Trench", "", nil, now); err != ErrInvalidID {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if _, err := NewSudsType("t1", "   ", "", nil, now); err != ErrInvalidName {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
	if _, err := NewSudsType("t1", "Trench", "", []LocationTag{"rooftop"}, now); err != ErrInvalidTag {
		t.Fatalf("expected ErrInvalidTag, got %v", err)
	}
}

func TestNewSudsTypeNormalizesTags(t *testing.T) {
	now := time.Now()
	st, err := NewSudsType("t1", "Trench", " near the park ", []LocationTag{" Sidewalk ", "sidewalk", "roadway"}, now)
	if err != nil {
		t.Fatalf("NewSudsType() error = %v", err)
	}
	if !slices.Equal(st.LocationTags, []LocationTag{TagSidewalk, TagRoadway}) {
		t.Fatalf("unexpected tags %v", st.LocationTags)
	}
	if st.Order != OrderUnassigned {
		t.Fatalf("new type order = %d, want unassigned", st.Order)
	}
	if st.Description != "near the park" {
		t.Fatalf("unexpected description %q", st.Description)
	}
}

func TestSentenceCase(t *testing.T) {
	cases := map[string]string{
		"":               "",
		"  sweep  ":      "Sweep",
		"SWEEP GUTTERS":  "Sweep gutters",
		"inspect Inlets": "Inspect inlets",
		"élagage":        "Élagage",
	}
	for in, want := range cases {
		if got := SentenceCase(in); got != want {
			t.Fatalf("SentenceCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewActivityDefaults(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	rec, err := NewActivity(ActivityInput{
		ID:         "a1",
		SudsTypeID: "t1",
		Category:   "Cleaning",
		Name:       "sweep gutters",
		Applies:    true,
		Contracts:  []string{" Streets ", "Streets", "Parks"},
	}, now)
	if err != nil {
		t.Fatalf("NewActivity() error = %v", err)
	}
	if rec.Name != "Sweep gutters" {
		t.Fatalf("name = %q", rec.Name)
	}
	if rec.ValidationStatus != ValidationPending {
		t.Fatalf("validation status = %q, want pending", rec.ValidationStatus)
	}
	if !slices.Equal(rec.Contracts, []string{"Parks", "Streets"}) {
		t.Fatalf("contracts = %v", rec.Contracts)
	}
}

func TestNewActivityValidation(t *testing.T) {
	now := time.Now()
	if _, err := NewActivity(ActivityInput{SudsTypeID: "t1", Category: "c", Name: "n"}, now); err != ErrInvalidID {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if _, err := NewActivity(ActivityInput{ID: "a", SudsTypeID: "t1", Name: "n"}, now); err != ErrInvalidCategory {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
	if _, err := NewActivity(ActivityInput{ID: "a", SudsTypeID: "t1", Category: "c", Name: "n", Status: "bogus"}, now); err != ErrInvalidStatus {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestSetDependsOnDropsSelfAndDuplicates(t *testing.T) {
	now := time.Now()
	rec, err := NewActivity(ActivityInput{ID: "a1", SudsTypeID: "t1", Category: "c", Name: "n"}, now)
	if err != nil {
		t.Fatalf("NewActivity() error = %v", err)
	}
	rec.SetDependsOn([]string{"a2", " a2 ", "a1", "", "a3"}, now)
	if !slices.Equal(rec.DependsOn, []string{"a2", "a3"}) {
		t.Fatalf("depends on = %v", rec.DependsOn)
	}
	if !rec.RemoveDependency("a2", now) {
		t.Fatal("RemoveDependency(a2) = false")
	}
	if rec.RemoveDependency("a2", now) {
		t.Fatal("RemoveDependency(a2) twice = true")
	}
	if !slices.Equal(rec.DependsOn, []string{"a3"}) {
		t.Fatalf("depends on after removal = %v", rec.DependsOn)
	}
}

func TestSetValidation(t *testing.T) {
	now := time.Now()
	rec, err := NewActivity(ActivityInput{ID: "a1", SudsTypeID: "t1", Category: "c", Name: "n"}, now)
	if err != nil {
		t.Fatalf("NewActivity() error = %v", err)
	}
	if err := rec.SetValidation("maybe", "", now); err != ErrInvalidValidation {
		t.Fatalf("expected ErrInvalidValidation, got %v", err)
	}
	if err := rec.SetValidation(ValidationValidated, "  looks right ", now); err != nil {
		t.Fatalf("SetValidation() error = %v", err)
	}
	if rec.ValidatorComment != "looks right" {
		t.Fatalf("validator comment = %q", rec.ValidatorComment)
	}
}

func TestDefinitionMapMutations(t *testing.T) {
	m := DefinitionMap{"Cleaning": {"Sweep"}}

	name, ok := m.AddDefinition("Cleaning", "inspect inlets")
	if !ok || name != "Inspect inlets" {
		t.Fatalf("AddDefinition = %q, %t", name, ok)
	}
	if _, ok := m.AddDefinition("Cleaning", "SWEEP"); ok {
		t.Fatal("duplicate definition accepted")
	}

	renamed, ok := m.RenameDefinition("Cleaning", "Sweep", "deep sweep")
	if !ok || renamed != "Deep sweep" {
		t.Fatalf("RenameDefinition = %q, %t", renamed, ok)
	}
	if _, ok := m.RenameDefinition("Cleaning", "Deep sweep", "inspect inlets"); ok {
		t.Fatal("rename onto existing name accepted")
	}
	if !m.RemoveDefinition("Cleaning", "Deep sweep") {
		t.Fatal("RemoveDefinition = false")
	}
	if !slices.Equal(m["Cleaning"], []string{"Inspect inlets"}) {
		t.Fatalf("cleaning = %v", m["Cleaning"])
	}
}

func TestDefinitionMapCloneIsDeep(t *testing.T) {
	m := DefinitionMap{"Cleaning": {"Sweep"}}
	clone := m.Clone()
	clone["Cleaning"][0] = "Changed"
	if m["Cleaning"][0] != "Sweep" {
		t.Fatal("Clone aliases the source slices")
	}
}

func TestNewContract(t *testing.T) {
	now := time.Now()
	if _, err := NewContract("c1", "  ", "", "", now); err != ErrInvalidName {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
	c, err := NewContract("c1", " Streets 2026 ", " Public Works ", "", now)
	if err != nil {
		t.Fatalf("NewContract() error = %v", err)
	}
	if c.Name != "Streets 2026" || c.Owner != "Public Works" {
		t.Fatalf("unexpected contract %+v", c)
	}
}
