package app

import (
	"fmt"
	"math"
	"slices"

	"github.com/oriolvila/sudscat/internal/domain"
)

// DisplayEntry is one row of the resolved activity display order. IsDependent
// marks rows that should render nested beneath their referrer.
type DisplayEntry struct {
	Activity    domain.Activity
	IsDependent bool
}

// ResolveDisplayOrder computes the linear display order for one installation
// type: applicable top-level records in category-then-definition order, each
// immediately followed by its dependents, recursively.
//
// The function is pure. Records that do not apply are ignored, stale
// dependency ids are skipped silently, and an already-emitted set guarantees
// termination and exactly-once emission even when the dependency edges form
// a cycle.
func ResolveDisplayOrder(sudsTypeID string, records []domain.Activity, categoryOrder []string, definitions domain.DefinitionMap) []DisplayEntry {
	applicable := make([]domain.Activity, 0, len(records))
	byID := make(map[string]domain.Activity)
	for _, rec := range records {
		if rec.SudsTypeID != sudsTypeID || !rec.Applies {
			continue
		}
		applicable = append(applicable, rec)
		byID[rec.ID] = rec
	}

	// A record is claimed when some live applicable record names it as a
	// dependent. Claims from filtered-out records do not count, which is
	// what promotes orphaned dependents back to top level.
	claimed := make(map[string]struct{})
	for _, rec := range applicable {
		for _, depID := range rec.DependsOn {
			claimed[depID] = struct{}{}
		}
	}

	cmp := newActivityComparator(categoryOrder, definitions)

	roots := make([]domain.Activity, 0, len(applicable))
	for _, rec := range applicable {
		if _, ok := claimed[rec.ID]; ok {
			continue
		}
		roots = append(roots, rec)
	}
	slices.SortStableFunc(roots, cmp)

	out := make([]DisplayEntry, 0, len(applicable))
	emitted := make(map[string]struct{}, len(applicable))

	var walk func(rec domain.Activity, isDependent bool)
	walk = func(rec domain.Activity, isDependent bool) {
		if _, ok := emitted[rec.ID]; ok {
			return
		}
		emitted[rec.ID] = struct{}{}
		out = append(out, DisplayEntry{Activity: rec, IsDependent: isDependent})

		dependents := make([]domain.Activity, 0, len(rec.DependsOn))
		for _, depID := range rec.DependsOn {
			dep, ok := byID[depID]
			if !ok {
				continue
			}
			dependents = append(dependents, dep)
		}
		slices.SortStableFunc(dependents, cmp)
		for _, dep := range dependents {
			walk(dep, true)
		}
	}

	for _, root := range roots {
		walk(root, false)
	}
	return out
}

// newActivityComparator orders records by category position, then by the
// activity name's position within that category's definition list. Unknown
// categories and names rank last; ties keep encounter order via stable sort.
func newActivityComparator(categoryOrder []string, definitions domain.DefinitionMap) func(a, b domain.Activity) int {
	categoryRank := make(map[string]int, len(categoryOrder))
	for idx, name := range categoryOrder {
		categoryRank[name] = idx
	}
	nameRank := make(map[string]map[string]int, len(definitions))
	for category, names := range definitions {
		ranks := make(map[string]int, len(names))
		for idx, name := range names {
			ranks[name] = idx
		}
		nameRank[category] = ranks
	}

	rankOf := func(ranks map[string]int, key string) int {
		if rank, ok := ranks[key]; ok {
			return rank
		}
		return math.MaxInt
	}

	return func(a, b domain.Activity) int {
		ca := rankOf(categoryRank, a.Category)
		cb := rankOf(categoryRank, b.Category)
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
		na := rankOf(nameRank[a.Category], a.Name)
		nb := rankOf(nameRank[b.Category], b.Name)
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		default:
			return 0
		}
	}
}

// CatalogEntry is one virtual activity descriptor the dependency editor can
// offer as a selectable dependent, whether or not a concrete record exists.
type CatalogEntry struct {
	ID         string
	SudsTypeID string
	Category   string
	Name       string
}

// BuildActivityCatalog returns the full cross-product of installation types,
// categories, and defined activity names, each under the synthetic id
// "typeID/category/name". Regenerate whenever any input changes.
func BuildActivityCatalog(types []domain.SudsType, categoryOrder []string, definitions domain.DefinitionMap) []CatalogEntry {
	out := make([]CatalogEntry, 0, len(types)*len(categoryOrder))
	for _, st := range types {
		for _, category := range categoryOrder {
			for _, name := range definitions[category] {
				out = append(out, CatalogEntry{
					ID:         fmt.Sprintf("%s/%s/%s", st.ID, category, name),
					SudsTypeID: st.ID,
					Category:   category,
					Name:       name,
				})
			}
		}
	}
	return out
}
