package domain

import (
	"slices"
	"strings"
)

// Role identifies the capability level of the acting user.
type Role string

const (
	RoleMaster     Role = "master"
	RoleOwner      Role = "owner"
	RoleTechnician Role = "technician"
	RoleValidator  Role = "validator"
	RoleViewer     Role = "viewer"
)

var validRoles = []Role{RoleMaster, RoleOwner, RoleTechnician, RoleValidator, RoleViewer}

// Collection names one independently-editable data set.
type Collection string

const (
	CollectionSudsTypes   Collection = "suds_types"
	CollectionCategories  Collection = "categories"
	CollectionDefinitions Collection = "definitions"
	CollectionActivities  Collection = "activities"
	CollectionContracts   Collection = "contracts"
	CollectionValidation  Collection = "validation"
)

// editableCollections maps each role to the collections it may mutate.
// Consumed uniformly through CanEdit rather than per-call role comparisons.
var editableCollections = map[Role][]Collection{
	RoleMaster: {
		CollectionSudsTypes,
		CollectionCategories,
		CollectionDefinitions,
		CollectionActivities,
		CollectionContracts,
		CollectionValidation,
	},
	RoleOwner: {
		CollectionSudsTypes,
		CollectionCategories,
		CollectionDefinitions,
		CollectionActivities,
		CollectionContracts,
	},
	RoleTechnician: {
		CollectionActivities,
	},
	RoleValidator: {
		CollectionValidation,
	},
	RoleViewer: {},
}

// ParseRole normalizes a role string, defaulting blank input to viewer.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.TrimSpace(strings.ToLower(raw)))
	if role == "" {
		return RoleViewer, nil
	}
	if !slices.Contains(validRoles, role) {
		return "", ErrInvalidRole
	}
	return role, nil
}

// CanEdit reports whether the role may mutate the named collection.
func CanEdit(role Role, collection Collection) bool {
	return slices.Contains(editableCollections[role], collection)
}
