package app

import (
	"context"
	"slices"

	"github.com/oriolvila/sudscat/internal/domain"
)

// Direction selects which neighbour an item swaps with.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// swapTarget returns the neighbour index for a move, or ok=false when the
// move falls off either end of the list (a defined no-op, not an error).
func swapTarget(idx, length int, direction Direction) (int, bool, error) {
	switch direction {
	case DirectionUp:
		if idx <= 0 {
			return 0, false, nil
		}
		return idx - 1, true, nil
	case DirectionDown:
		if idx >= length-1 {
			return 0, false, nil
		}
		return idx + 1, true, nil
	default:
		return 0, false, domain.ErrInvalidDirection
	}
}

// MoveSudsType swaps one installation type with its neighbour in the given
// display order and persists the result as a single atomic batch of order
// writes. Only documents whose stored order differs from their new position
// are written. The slice passed in is never mutated; callers re-read the
// committed order from the repository.
func (s *Service) MoveSudsType(ctx context.Context, role domain.Role, id string, direction Direction, current []domain.SudsType) error {
	if err := authorize(role, domain.CollectionSudsTypes); err != nil {
		return err
	}
	idx := slices.IndexFunc(current, func(t domain.SudsType) bool { return t.ID == id })
	if idx < 0 {
		return ErrNotFound
	}
	target, ok, err := swapTarget(idx, len(current), direction)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	next := slices.Clone(current)
	next[idx], next[target] = next[target], next[idx]

	assignments := make([]OrderAssignment, 0, len(next))
	for position, t := range next {
		if t.Order == position {
			continue
		}
		assignments = append(assignments, OrderAssignment{ID: t.ID, Order: position})
	}
	if len(assignments) == 0 {
		return nil
	}
	return s.repo.SetSudsTypeOrders(ctx, assignments)
}

// MoveCategory swaps one category name with its neighbour and persists the
// whole list as a single write, since category order lives in one document.
func (s *Service) MoveCategory(ctx context.Context, role domain.Role, name string, direction Direction, current []string) error {
	if err := authorize(role, domain.CollectionCategories); err != nil {
		return err
	}
	idx := slices.Index(current, name)
	if idx < 0 {
		return ErrNotFound
	}
	target, ok, err := swapTarget(idx, len(current), direction)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	next := slices.Clone(current)
	next[idx], next[target] = next[target], next[idx]
	return s.repo.SetCategoryOrder(ctx, next)
}

// MoveActivityDefinition swaps one activity name with its neighbour inside a
// category's definition list and rewrites the whole definitions document,
// merging the modified list into the untouched categories.
func (s *Service) MoveActivityDefinition(ctx context.Context, role domain.Role, category, name string, direction Direction, definitions domain.DefinitionMap) error {
	if err := authorize(role, domain.CollectionDefinitions); err != nil {
		return err
	}
	names, present := definitions[category]
	if !present {
		return ErrUnknownCategory
	}
	idx := slices.Index(names, name)
	if idx < 0 {
		return ErrNotFound
	}
	target, ok, err := swapTarget(idx, len(names), direction)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	next := definitions.Clone()
	next[category][idx], next[category][target] = next[category][target], next[category][idx]
	return s.repo.SetDefinitions(ctx, next)
}
