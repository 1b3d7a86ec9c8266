package app

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/oriolvila/sudscat/internal/domain"
)

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// Service exposes the catalogue operations to the UI and transport layers.
// All mutating operations take the acting role and run the capability check
// before touching the repository.
type Service struct {
	repo  Repository
	idGen IDGenerator
	clock Clock
}

// NewService constructs a new value for this package.
func NewService(repo Repository, idGen IDGenerator, clock Clock) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	return &Service{repo: repo, idGen: idGen, clock: clock}
}

// authorize enforces the role capability set for one collection.
func authorize(role domain.Role, collection domain.Collection) error {
	if domain.CanEdit(role, collection) {
		return nil
	}
	log.Warn("mutation blocked: role lacks collection capability", "role", role, "collection", collection)
	return fmt.Errorf("%w: %s on %s", ErrForbidden, role, collection)
}

// CreateSudsType creates an installation type with an unassigned order.
func (s *Service) CreateSudsType(ctx context.Context, role domain.Role, name, description string, tags []domain.LocationTag) (domain.SudsType, error) {
	if err := authorize(role, domain.CollectionSudsTypes); err != nil {
		return domain.SudsType{}, err
	}
	st, err := domain.NewSudsType(s.idGen(), name, description, tags, s.clock())
	if err != nil {
		return domain.SudsType{}, err
	}
	if err := s.repo.CreateSudsType(ctx, st); err != nil {
		return domain.SudsType{}, err
	}
	return st, nil
}

// UpdateSudsType updates the editable fields of an installation type.
func (s *Service) UpdateSudsType(ctx context.Context, role domain.Role, id, name, description string, tags []domain.LocationTag) (domain.SudsType, error) {
	if err := authorize(role, domain.CollectionSudsTypes); err != nil {
		return domain.SudsType{}, err
	}
	st, err := s.repo.GetSudsType(ctx, id)
	if err != nil {
		return domain.SudsType{}, err
	}
	if err := st.UpdateDetails(name, description, tags, s.clock()); err != nil {
		return domain.SudsType{}, err
	}
	if err := s.repo.UpdateSudsType(ctx, st); err != nil {
		return domain.SudsType{}, err
	}
	return st, nil
}

// DeleteSudsType removes an installation type together with its activity
// records, synchronously.
func (s *Service) DeleteSudsType(ctx context.Context, role domain.Role, id string) error {
	if err := authorize(role, domain.CollectionSudsTypes); err != nil {
		return err
	}
	records, err := s.repo.ListActivities(ctx, id)
	if err != nil {
		return err
	}
	if len(records) > 0 {
		deleteIDs := make([]string, 0, len(records))
		for _, rec := range records {
			deleteIDs = append(deleteIDs, rec.ID)
		}
		if err := s.repo.ApplyActivityChanges(ctx, nil, deleteIDs); err != nil {
			return err
		}
	}
	return s.repo.DeleteSudsType(ctx, id)
}

// ListSudsTypes returns installation types in display order. Types whose
// stored order is unassigned sort after the ordered ones (stable by fetch
// position) and receive a provisional in-memory order equal to their index.
// The backfill is never persisted as a side effect of reading.
func (s *Service) ListSudsTypes(ctx context.Context) ([]domain.SudsType, error) {
	types, err := s.repo.ListSudsTypes(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(types, func(a, b domain.SudsType) int {
		switch {
		case a.Order == b.Order:
			return 0
		case a.Order == domain.OrderUnassigned:
			return 1
		case b.Order == domain.OrderUnassigned:
			return -1
		case a.Order < b.Order:
			return -1
		default:
			return 1
		}
	})
	for idx := range types {
		if types[idx].Order == domain.OrderUnassigned {
			types[idx].Order = idx
		}
	}
	return types, nil
}

// ListCategories returns the authoritative category order.
func (s *Service) ListCategories(ctx context.Context) ([]string, error) {
	return s.repo.GetCategoryOrder(ctx)
}

// CreateCategory appends a category to the order document and seeds an empty
// definition list for it.
func (s *Service) CreateCategory(ctx context.Context, role domain.Role, name string) error {
	if err := authorize(role, domain.CollectionCategories); err != nil {
		return err
	}
	name = domain.NormalizeCategoryName(name)
	if name == "" {
		return domain.ErrInvalidCategory
	}
	categories, err := s.repo.GetCategoryOrder(ctx)
	if err != nil {
		return err
	}
	if slices.Contains(categories, name) {
		return ErrDuplicateName
	}
	if err := s.repo.SetCategoryOrder(ctx, append(slices.Clone(categories), name)); err != nil {
		return err
	}
	definitions, err := s.repo.GetDefinitions(ctx)
	if err != nil {
		return err
	}
	if _, ok := definitions[name]; ok {
		return nil
	}
	next := definitions.Clone()
	next[name] = []string{}
	return s.repo.SetDefinitions(ctx, next)
}

// RenameCategory renames a category across the order document, the
// definitions document, and every activity record filed under it.
func (s *Service) RenameCategory(ctx context.Context, role domain.Role, oldName, newName string) error {
	if err := authorize(role, domain.CollectionCategories); err != nil {
		return err
	}
	newName = domain.NormalizeCategoryName(newName)
	if newName == "" {
		return domain.ErrInvalidCategory
	}
	categories, err := s.repo.GetCategoryOrder(ctx)
	if err != nil {
		return err
	}
	idx := slices.Index(categories, oldName)
	if idx < 0 {
		return ErrUnknownCategory
	}
	if newName != oldName && slices.Contains(categories, newName) {
		return ErrDuplicateName
	}

	next := slices.Clone(categories)
	next[idx] = newName
	if err := s.repo.SetCategoryOrder(ctx, next); err != nil {
		return err
	}

	definitions, err := s.repo.GetDefinitions(ctx)
	if err != nil {
		return err
	}
	nextDefs := definitions.Clone()
	nextDefs[newName] = nextDefs[oldName]
	delete(nextDefs, oldName)
	if err := s.repo.SetDefinitions(ctx, nextDefs); err != nil {
		return err
	}

	records, err := s.repo.ListAllActivities(ctx)
	if err != nil {
		return err
	}
	now := s.clock()
	upserts := make([]domain.Activity, 0)
	for _, rec := range records {
		if rec.Category != oldName {
			continue
		}
		rec.Category = newName
		rec.UpdatedAt = now.UTC()
		upserts = append(upserts, rec)
	}
	if len(upserts) == 0 {
		return nil
	}
	return s.repo.ApplyActivityChanges(ctx, upserts, nil)
}

// DeleteCategory removes a category, its definitions, and every activity
// record filed under it, stripping dangling dependency edges as one batch.
func (s *Service) DeleteCategory(ctx context.Context, role domain.Role, name string) error {
	if err := authorize(role, domain.CollectionCategories); err != nil {
		return err
	}
	categories, err := s.repo.GetCategoryOrder(ctx)
	if err != nil {
		return err
	}
	idx := slices.Index(categories, name)
	if idx < 0 {
		return ErrUnknownCategory
	}
	if err := s.repo.SetCategoryOrder(ctx, slices.Delete(slices.Clone(categories), idx, idx+1)); err != nil {
		return err
	}

	definitions, err := s.repo.GetDefinitions(ctx)
	if err != nil {
		return err
	}
	nextDefs := definitions.Clone()
	delete(nextDefs, name)
	if err := s.repo.SetDefinitions(ctx, nextDefs); err != nil {
		return err
	}

	records, err := s.repo.ListAllActivities(ctx)
	if err != nil {
		return err
	}
	doomed := make([]string, 0)
	for _, rec := range records {
		if rec.Category == name {
			doomed = append(doomed, rec.ID)
		}
	}
	return s.removeActivities(ctx, records, doomed)
}

// ListDefinitions returns the shared category-to-activity-names document.
func (s *Service) ListDefinitions(ctx context.Context) (domain.DefinitionMap, error) {
	return s.repo.GetDefinitions(ctx)
}

// AddDefinition appends a sentence-cased activity name to one category.
func (s *Service) AddDefinition(ctx context.Context, role domain.Role, category, name string) (string, error) {
	if err := authorize(role, domain.CollectionDefinitions); err != nil {
		return "", err
	}
	categories, err := s.repo.GetCategoryOrder(ctx)
	if err != nil {
		return "", err
	}
	if !slices.Contains(categories, category) {
		return "", ErrUnknownCategory
	}
	definitions, err := s.repo.GetDefinitions(ctx)
	if err != nil {
		return "", err
	}
	next := definitions.Clone()
	added, ok := next.AddDefinition(category, name)
	if !ok {
		if added == "" {
			return "", domain.ErrInvalidName
		}
		return "", ErrDuplicateName
	}
	if err := s.repo.SetDefinitions(ctx, next); err != nil {
		return "", err
	}
	return added, nil
}

// RenameDefinition renames one activity definition and cascades the rename
// to every activity record sharing its (category, name) pair.
func (s *Service) RenameDefinition(ctx context.Context, role domain.Role, category, oldName, newName string) (string, error) {
	if err := authorize(role, domain.CollectionDefinitions); err != nil {
		return "", err
	}
	definitions, err := s.repo.GetDefinitions(ctx)
	if err != nil {
		return "", err
	}
	next := definitions.Clone()
	renamed, ok := next.RenameDefinition(category, oldName, newName)
	if !ok {
		if !definitions.Contains(category, oldName) {
			return "", ErrNotFound
		}
		if renamed == "" {
			return "", domain.ErrInvalidName
		}
		return "", ErrDuplicateName
	}
	if err := s.repo.SetDefinitions(ctx, next); err != nil {
		return "", err
	}

	records, err := s.repo.ListAllActivities(ctx)
	if err != nil {
		return "", err
	}
	now := s.clock()
	upserts := make([]domain.Activity, 0)
	for _, rec := range records {
		if rec.Category != category || rec.Name != oldName {
			continue
		}
		if err := rec.Rename(renamed, now); err != nil {
			return "", err
		}
		upserts = append(upserts, rec)
	}
	if len(upserts) == 0 {
		return renamed, nil
	}
	if err := s.repo.ApplyActivityChanges(ctx, upserts, nil); err != nil {
		return "", err
	}
	return renamed, nil
}

// DeleteDefinition removes one activity definition and every activity record
// sharing its (category, name) pair, so no record references a definition
// that no longer exists.
func (s *Service) DeleteDefinition(ctx context.Context, role domain.Role, category, name string) error {
	if err := authorize(role, domain.CollectionDefinitions); err != nil {
		return err
	}
	definitions, err := s.repo.GetDefinitions(ctx)
	if err != nil {
		return err
	}
	next := definitions.Clone()
	if !next.RemoveDefinition(category, name) {
		return ErrNotFound
	}
	if err := s.repo.SetDefinitions(ctx, next); err != nil {
		return err
	}

	records, err := s.repo.ListAllActivities(ctx)
	if err != nil {
		return err
	}
	doomed := make([]string, 0)
	for _, rec := range records {
		if rec.Category == category && rec.Name == name {
			doomed = append(doomed, rec.ID)
		}
	}
	return s.removeActivities(ctx, records, doomed)
}

// removeActivities deletes the doomed records and strips their ids from every
// surviving record's dependency set, as one atomic batch.
func (s *Service) removeActivities(ctx context.Context, records []domain.Activity, deleteIDs []string) error {
	if len(deleteIDs) == 0 {
		return nil
	}
	doomed := make(map[string]struct{}, len(deleteIDs))
	for _, id := range deleteIDs {
		doomed[id] = struct{}{}
	}
	now := s.clock()
	upserts := make([]domain.Activity, 0)
	for _, rec := range records {
		if _, gone := doomed[rec.ID]; gone {
			continue
		}
		changed := false
		for _, id := range deleteIDs {
			if rec.RemoveDependency(id, now) {
				changed = true
			}
		}
		if changed {
			upserts = append(upserts, rec)
		}
	}
	return s.repo.ApplyActivityChanges(ctx, upserts, deleteIDs)
}

// CreateActivityInput holds input values for create activity operations.
type CreateActivityInput struct {
	SudsTypeID string
	Category   string
	Name       string
	Applies    bool
	Status     domain.ActivityStatus
	Comment    string
	Frequency  string
	Contracts  []string
}

// CreateActivity creates an activity record against an installation type.
// The (category, name) pair must exist in the definitions document.
func (s *Service) CreateActivity(ctx context.Context, role domain.Role, in CreateActivityInput) (domain.Activity, error) {
	if err := authorize(role, domain.CollectionActivities); err != nil {
		return domain.Activity{}, err
	}
	if _, err := s.repo.GetSudsType(ctx, in.SudsTypeID); err != nil {
		return domain.Activity{}, err
	}
	definitions, err := s.repo.GetDefinitions(ctx)
	if err != nil {
		return domain.Activity{}, err
	}
	name := domain.SentenceCase(in.Name)
	if !definitions.Contains(in.Category, name) {
		return domain.Activity{}, ErrNotFound
	}

	rec, err := domain.NewActivity(domain.ActivityInput{
		ID:         s.idGen(),
		SudsTypeID: in.SudsTypeID,
		Category:   in.Category,
		Name:       name,
		Applies:    in.Applies,
		Status:     in.Status,
		Comment:    in.Comment,
		Frequency:  in.Frequency,
		Contracts:  in.Contracts,
	}, s.clock())
	if err != nil {
		return domain.Activity{}, err
	}
	if err := s.repo.CreateActivity(ctx, rec); err != nil {
		return domain.Activity{}, err
	}
	return rec, nil
}

// UpdateActivityInput holds input values for update activity operations.
type UpdateActivityInput struct {
	ActivityID string
	Applies    bool
	Status     domain.ActivityStatus
	Comment    string
	Frequency  string
	Contracts  []string
}

// UpdateActivity updates the contract-facing fields of a record. Turning
// applies off also strips the record's id from every sibling dependency set
// and clears its own edges, in the same batch.
func (s *Service) UpdateActivity(ctx context.Context, role domain.Role, in UpdateActivityInput) (domain.Activity, error) {
	if err := authorize(role, domain.CollectionActivities); err != nil {
		return domain.Activity{}, err
	}
	rec, err := s.repo.GetActivity(ctx, in.ActivityID)
	if err != nil {
		return domain.Activity{}, err
	}
	now := s.clock()
	if err := rec.UpdateDetails(in.Status, in.Comment, in.Frequency, in.Contracts, now); err != nil {
		return domain.Activity{}, err
	}
	deactivated := rec.Applies && !in.Applies
	rec.SetApplies(in.Applies, now)
	if deactivated {
		rec.SetDependsOn(nil, now)
	}

	upserts := []domain.Activity{rec}
	if deactivated {
		siblings, err := s.repo.ListActivities(ctx, rec.SudsTypeID)
		if err != nil {
			return domain.Activity{}, err
		}
		for _, sibling := range siblings {
			if sibling.ID == rec.ID {
				continue
			}
			if sibling.RemoveDependency(rec.ID, now) {
				upserts = append(upserts, sibling)
			}
		}
	}
	if err := s.repo.ApplyActivityChanges(ctx, upserts, nil); err != nil {
		return domain.Activity{}, err
	}
	return rec, nil
}

// DeleteActivity removes one record and strips it from every dependency set.
func (s *Service) DeleteActivity(ctx context.Context, role domain.Role, id string) error {
	if err := authorize(role, domain.CollectionActivities); err != nil {
		return err
	}
	rec, err := s.repo.GetActivity(ctx, id)
	if err != nil {
		return err
	}
	siblings, err := s.repo.ListActivities(ctx, rec.SudsTypeID)
	if err != nil {
		return err
	}
	return s.removeActivities(ctx, siblings, []string{id})
}

// SetDependents replaces one record's dependency edge set. Every referenced
// record must belong to the same installation type; referenced records that
// do not currently apply are force-activated in the same batch.
func (s *Service) SetDependents(ctx context.Context, role domain.Role, activityID string, dependentIDs []string) (domain.Activity, error) {
	if err := authorize(role, domain.CollectionActivities); err != nil {
		return domain.Activity{}, err
	}
	rec, err := s.repo.GetActivity(ctx, activityID)
	if err != nil {
		return domain.Activity{}, err
	}
	now := s.clock()

	upserts := make([]domain.Activity, 0, len(dependentIDs)+1)
	for _, depID := range dependentIDs {
		depID = strings.TrimSpace(depID)
		if depID == "" || depID == rec.ID {
			continue
		}
		dep, err := s.repo.GetActivity(ctx, depID)
		if err != nil {
			return domain.Activity{}, err
		}
		if dep.SudsTypeID != rec.SudsTypeID {
			return domain.Activity{}, fmt.Errorf("%w: %s", ErrCrossTypeDependent, depID)
		}
		if !dep.Applies {
			dep.SetApplies(true, now)
			upserts = append(upserts, dep)
		}
	}

	rec.SetDependsOn(dependentIDs, now)
	upserts = append(upserts, rec)
	if err := s.repo.ApplyActivityChanges(ctx, upserts, nil); err != nil {
		return domain.Activity{}, err
	}
	return rec, nil
}

// SetValidation records the validator verdict on one record.
func (s *Service) SetValidation(ctx context.Context, role domain.Role, activityID string, status domain.ValidationStatus, comment string) (domain.Activity, error) {
	if err := authorize(role, domain.CollectionValidation); err != nil {
		return domain.Activity{}, err
	}
	rec, err := s.repo.GetActivity(ctx, activityID)
	if err != nil {
		return domain.Activity{}, err
	}
	if err := rec.SetValidation(status, comment, s.clock()); err != nil {
		return domain.Activity{}, err
	}
	if err := s.repo.UpdateActivity(ctx, rec); err != nil {
		return domain.Activity{}, err
	}
	return rec, nil
}

// ListActivities lists the records of one installation type.
func (s *Service) ListActivities(ctx context.Context, sudsTypeID string) ([]domain.Activity, error) {
	return s.repo.ListActivities(ctx, sudsTypeID)
}

// DisplayOrder resolves the ordered display sequence for one installation
// type from the live record set and the authoritative orderings.
func (s *Service) DisplayOrder(ctx context.Context, sudsTypeID string) ([]DisplayEntry, error) {
	records, err := s.repo.ListActivities(ctx, sudsTypeID)
	if err != nil {
		return nil, err
	}
	categories, err := s.repo.GetCategoryOrder(ctx)
	if err != nil {
		return nil, err
	}
	definitions, err := s.repo.GetDefinitions(ctx)
	if err != nil {
		return nil, err
	}
	return ResolveDisplayOrder(sudsTypeID, records, categories, definitions), nil
}

// Catalog returns the virtual activity cross-product the dependency editor
// offers as selectable dependents.
func (s *Service) Catalog(ctx context.Context) ([]CatalogEntry, error) {
	types, err := s.ListSudsTypes(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := s.repo.GetCategoryOrder(ctx)
	if err != nil {
		return nil, err
	}
	definitions, err := s.repo.GetDefinitions(ctx)
	if err != nil {
		return nil, err
	}
	return BuildActivityCatalog(types, categories, definitions), nil
}

// CreateContract creates a maintenance contract.
func (s *Service) CreateContract(ctx context.Context, role domain.Role, name, owner, description string) (domain.Contract, error) {
	if err := authorize(role, domain.CollectionContracts); err != nil {
		return domain.Contract{}, err
	}
	contract, err := domain.NewContract(s.idGen(), name, owner, description, s.clock())
	if err != nil {
		return domain.Contract{}, err
	}
	if err := s.repo.CreateContract(ctx, contract); err != nil {
		return domain.Contract{}, err
	}
	return contract, nil
}

// UpdateContract updates a contract and, on rename, rewrites the contract
// name inside every activity record's involved-contracts set.
func (s *Service) UpdateContract(ctx context.Context, role domain.Role, id, name, owner, description string) (domain.Contract, error) {
	if err := authorize(role, domain.CollectionContracts); err != nil {
		return domain.Contract{}, err
	}
	contract, err := s.repo.GetContract(ctx, id)
	if err != nil {
		return domain.Contract{}, err
	}
	oldName := contract.Name
	if err := contract.UpdateDetails(name, owner, description, s.clock()); err != nil {
		return domain.Contract{}, err
	}
	if err := s.repo.UpdateContract(ctx, contract); err != nil {
		return domain.Contract{}, err
	}
	if contract.Name == oldName {
		return contract, nil
	}

	records, err := s.repo.ListAllActivities(ctx)
	if err != nil {
		return domain.Contract{}, err
	}
	now := s.clock()
	upserts := make([]domain.Activity, 0)
	for _, rec := range records {
		idx := slices.Index(rec.Contracts, oldName)
		if idx < 0 {
			continue
		}
		contracts := slices.Clone(rec.Contracts)
		contracts[idx] = contract.Name
		if err := rec.UpdateDetails(rec.Status, rec.Comment, rec.Frequency, contracts, now); err != nil {
			return domain.Contract{}, err
		}
		upserts = append(upserts, rec)
	}
	if len(upserts) == 0 {
		return contract, nil
	}
	if err := s.repo.ApplyActivityChanges(ctx, upserts, nil); err != nil {
		return domain.Contract{}, err
	}
	return contract, nil
}

// ListContracts lists contracts.
func (s *Service) ListContracts(ctx context.Context) ([]domain.Contract, error) {
	return s.repo.ListContracts(ctx)
}

// DeleteContract deletes a contract. Activity records keep the bare name in
// their involved-contracts set; it simply stops resolving to a catalogued
// contract.
func (s *Service) DeleteContract(ctx context.Context, role domain.Role, id string) error {
	if err := authorize(role, domain.CollectionContracts); err != nil {
		return err
	}
	return s.repo.DeleteContract(ctx, id)
}
