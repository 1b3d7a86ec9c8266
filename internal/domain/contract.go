package domain

import (
	"strings"
	"time"
)

// Contract is one maintenance contract that activity records can reference
// by name in their involved-contracts set.
type Contract struct {
	ID          string
	Name        string
	Owner       string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewContract validates and constructs a contract.
func NewContract(id, name, owner, description string, now time.Time) (Contract, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	if id == "" {
		return Contract{}, ErrInvalidID
	}
	if name == "" {
		return Contract{}, ErrInvalidName
	}
	return Contract{
		ID:          id,
		Name:        name,
		Owner:       strings.TrimSpace(owner),
		Description: strings.TrimSpace(description),
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}, nil
}

// UpdateDetails replaces the editable fields of a contract.
func (c *Contract) UpdateDetails(name, owner, description string, now time.Time) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}
	c.Name = name
	c.Owner = strings.TrimSpace(owner)
	c.Description = strings.TrimSpace(description)
	c.UpdatedAt = now.UTC()
	return nil
}
