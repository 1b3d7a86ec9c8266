package app

import (
	"context"

	"github.com/oriolvila/sudscat/internal/domain"
)

// OrderAssignment is one per-document order write inside a reorder batch.
type OrderAssignment struct {
	ID    string
	Order int
}

// Repository is the persistence port. Plural-write methods are atomic: the
// adapter applies the whole batch or none of it.
type Repository interface {
	CreateSudsType(context.Context, domain.SudsType) error
	UpdateSudsType(context.Context, domain.SudsType) error
	GetSudsType(context.Context, string) (domain.SudsType, error)
	ListSudsTypes(context.Context) ([]domain.SudsType, error)
	DeleteSudsType(context.Context, string) error
	SetSudsTypeOrders(context.Context, []OrderAssignment) error

	GetCategoryOrder(context.Context) ([]string, error)
	SetCategoryOrder(context.Context, []string) error

	GetDefinitions(context.Context) (domain.DefinitionMap, error)
	SetDefinitions(context.Context, domain.DefinitionMap) error

	CreateActivity(context.Context, domain.Activity) error
	UpdateActivity(context.Context, domain.Activity) error
	GetActivity(context.Context, string) (domain.Activity, error)
	ListActivities(context.Context, string) ([]domain.Activity, error)
	ListAllActivities(context.Context) ([]domain.Activity, error)
	// ApplyActivityChanges upserts and deletes records in one atomic batch.
	// Cascading cleanup (definition renames, dependency stripping) goes
	// through here so a failure leaves every record untouched.
	ApplyActivityChanges(ctx context.Context, upserts []domain.Activity, deleteIDs []string) error

	CreateContract(context.Context, domain.Contract) error
	UpdateContract(context.Context, domain.Contract) error
	GetContract(context.Context, string) (domain.Contract, error)
	ListContracts(context.Context) ([]domain.Contract, error)
	DeleteContract(context.Context, string) error
}
