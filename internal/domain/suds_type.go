package domain

import (
	"slices"
	"strings"
	"time"
)

// LocationTag classifies where an installation type can be placed.
type LocationTag string

const (
	TagSidewalk  LocationTag = "sidewalk"
	TagGreenArea LocationTag = "green-area"
	TagRoadway   LocationTag = "roadway"
	TagAuxiliary LocationTag = "auxiliary-infrastructure"
)

var validLocationTags = []LocationTag{TagSidewalk, TagGreenArea, TagRoadway, TagAuxiliary}

// OrderUnassigned marks an installation type whose display order has never
// been persisted. Readers assign a provisional index without writing it back.
const OrderUnassigned = -1

// SudsType is one catalogued installation type (e.g. infiltration trench).
type SudsType struct {
	ID           string
	Name         string
	Description  string
	LocationTags []LocationTag
	Order        int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewSudsType validates and constructs an installation type. Order starts
// unassigned; the reorder protocol and list backfill own the field afterwards.
func NewSudsType(id, name, description string, tags []LocationTag, now time.Time) (SudsType, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)

	if id == "" {
		return SudsType{}, ErrInvalidID
	}
	if name == "" {
		return SudsType{}, ErrInvalidName
	}
	normalized, err := normalizeLocationTags(tags)
	if err != nil {
		return SudsType{}, err
	}

	return SudsType{
		ID:           id,
		Name:         name,
		Description:  description,
		LocationTags: normalized,
		Order:        OrderUnassigned,
		CreatedAt:    now.UTC(),
		UpdatedAt:    now.UTC(),
	}, nil
}

// UpdateDetails replaces the editable fields of an installation type.
func (s *SudsType) UpdateDetails(name, description string, tags []LocationTag, now time.Time) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}
	normalized, err := normalizeLocationTags(tags)
	if err != nil {
		return err
	}
	s.Name = name
	s.Description = strings.TrimSpace(description)
	s.LocationTags = normalized
	s.UpdatedAt = now.UTC()
	return nil
}

// normalizeLocationTags de-duplicates and validates tags, preserving a stable order.
func normalizeLocationTags(tags []LocationTag) ([]LocationTag, error) {
	out := make([]LocationTag, 0, len(tags))
	seen := map[LocationTag]struct{}{}
	for _, raw := range tags {
		tag := LocationTag(strings.TrimSpace(strings.ToLower(string(raw))))
		if tag == "" {
			continue
		}
		if !slices.Contains(validLocationTags, tag) {
			return nil, ErrInvalidTag
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out, nil
}
