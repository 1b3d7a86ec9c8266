package domain

import (
	"slices"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// ActivityStatus describes how a maintenance activity relates to the contracts
// covering its installation type.
type ActivityStatus string

const (
	StatusUnset            ActivityStatus = ""
	StatusInContract       ActivityStatus = "included-in-contract"
	StatusEasilyIntegrable ActivityStatus = "easily-integrable"
	StatusSpecificActivity ActivityStatus = "specific-activity"
	StatusNotApplicable    ActivityStatus = "not-applicable"
)

var validStatuses = []ActivityStatus{
	StatusUnset,
	StatusInContract,
	StatusEasilyIntegrable,
	StatusSpecificActivity,
	StatusNotApplicable,
}

// ValidationStatus tracks the technical validator's verdict on one record.
type ValidationStatus string

const (
	ValidationPending   ValidationStatus = "pending"
	ValidationValidated ValidationStatus = "validated"
	ValidationRejected  ValidationStatus = "rejected"
)

var validValidationStatuses = []ValidationStatus{
	ValidationPending,
	ValidationValidated,
	ValidationRejected,
}

// Activity is the applied instance of an activity definition against one
// installation type: whether it applies, its contract status, and its
// forward dependency edges to other records of the same installation type.
type Activity struct {
	ID               string
	SudsTypeID       string
	Category         string
	Name             string
	Applies          bool
	Status           ActivityStatus
	Comment          string
	Frequency        string
	Contracts        []string
	ValidationStatus ValidationStatus
	ValidatorComment string
	DependsOn        []string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ActivityInput holds values used to construct one activity record.
type ActivityInput struct {
	ID         string
	SudsTypeID string
	Category   string
	Name       string
	Applies    bool
	Status     ActivityStatus
	Comment    string
	Frequency  string
	Contracts  []string
}

// NewActivity validates and constructs an activity record. Validation starts
// pending; dependency edges are attached afterwards via SetDependsOn.
func NewActivity(in ActivityInput, now time.Time) (Activity, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.SudsTypeID = strings.TrimSpace(in.SudsTypeID)
	in.Category = strings.TrimSpace(in.Category)
	in.Name = SentenceCase(in.Name)

	if in.ID == "" || in.SudsTypeID == "" {
		return Activity{}, ErrInvalidID
	}
	if in.Category == "" {
		return Activity{}, ErrInvalidCategory
	}
	if in.Name == "" {
		return Activity{}, ErrInvalidName
	}
	if !slices.Contains(validStatuses, in.Status) {
		return Activity{}, ErrInvalidStatus
	}

	return Activity{
		ID:               in.ID,
		SudsTypeID:       in.SudsTypeID,
		Category:         in.Category,
		Name:             in.Name,
		Applies:          in.Applies,
		Status:           in.Status,
		Comment:          strings.TrimSpace(in.Comment),
		Frequency:        strings.TrimSpace(in.Frequency),
		Contracts:        normalizeContractNames(in.Contracts),
		ValidationStatus: ValidationPending,
		CreatedAt:        now.UTC(),
		UpdatedAt:        now.UTC(),
	}, nil
}

// UpdateDetails replaces the contract-facing fields of a record.
func (a *Activity) UpdateDetails(status ActivityStatus, comment, frequency string, contracts []string, now time.Time) error {
	if !slices.Contains(validStatuses, status) {
		return ErrInvalidStatus
	}
	a.Status = status
	a.Comment = strings.TrimSpace(comment)
	a.Frequency = strings.TrimSpace(frequency)
	a.Contracts = normalizeContractNames(contracts)
	a.UpdatedAt = now.UTC()
	return nil
}

// SetApplies flips the applicability flag.
func (a *Activity) SetApplies(applies bool, now time.Time) {
	a.Applies = applies
	a.UpdatedAt = now.UTC()
}

// SetDependsOn replaces the forward dependency edge set. IDs are trimmed,
// de-duplicated, and self-references dropped.
func (a *Activity) SetDependsOn(ids []string, now time.Time) {
	out := make([]string, 0, len(ids))
	seen := map[string]struct{}{}
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		if id == "" || id == a.ID {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	a.DependsOn = out
	a.UpdatedAt = now.UTC()
}

// RemoveDependency drops one id from the dependency set, reporting whether it
// was present.
func (a *Activity) RemoveDependency(id string, now time.Time) bool {
	idx := slices.Index(a.DependsOn, id)
	if idx < 0 {
		return false
	}
	a.DependsOn = slices.Delete(slices.Clone(a.DependsOn), idx, idx+1)
	a.UpdatedAt = now.UTC()
	return true
}

// SetValidation records the validator verdict and comment.
func (a *Activity) SetValidation(status ValidationStatus, comment string, now time.Time) error {
	if !slices.Contains(validValidationStatuses, status) {
		return ErrInvalidValidation
	}
	a.ValidationStatus = status
	a.ValidatorComment = strings.TrimSpace(comment)
	a.UpdatedAt = now.UTC()
	return nil
}

// Rename moves the record under a renamed activity definition.
func (a *Activity) Rename(name string, now time.Time) error {
	name = SentenceCase(name)
	if name == "" {
		return ErrInvalidName
	}
	a.Name = name
	a.UpdatedAt = now.UTC()
	return nil
}

// SentenceCase normalizes an activity name: trimmed, lowercased, first rune
// uppercased. Definition names are compared in this form.
func SentenceCase(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	lower := strings.ToLower(s)
	first, size := utf8.DecodeRuneInString(lower)
	return string(unicode.ToUpper(first)) + lower[size:]
}

// normalizeContractNames trims, de-duplicates, and sorts contract names.
func normalizeContractNames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := map[string]struct{}{}
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}
