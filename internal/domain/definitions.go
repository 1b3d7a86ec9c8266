package domain

import (
	"slices"
	"strings"
)

// DefinitionMap holds the ordered activity definition names per category.
// It mirrors the single shared definitions document: category name to ordered
// list of sentence-cased activity names.
type DefinitionMap map[string][]string

// Clone returns a deep copy so callers can mutate one category list without
// aliasing the shared map.
func (m DefinitionMap) Clone() DefinitionMap {
	out := make(DefinitionMap, len(m))
	for category, names := range m {
		out[category] = slices.Clone(names)
	}
	return out
}

// Contains reports whether the category defines the given activity name.
func (m DefinitionMap) Contains(category, name string) bool {
	return slices.Contains(m[category], name)
}

// AddDefinition appends a sentence-cased name to a category, reporting false
// when the name is empty or already defined there.
func (m DefinitionMap) AddDefinition(category, name string) (string, bool) {
	name = SentenceCase(name)
	if name == "" || m.Contains(category, name) {
		return name, false
	}
	m[category] = append(m[category], name)
	return name, true
}

// RenameDefinition replaces one name within a category, keeping its position.
// It reports false when the old name is absent or the new name collides.
func (m DefinitionMap) RenameDefinition(category, oldName, newName string) (string, bool) {
	newName = SentenceCase(newName)
	idx := slices.Index(m[category], oldName)
	if idx < 0 || newName == "" {
		return newName, false
	}
	if newName != oldName && m.Contains(category, newName) {
		return newName, false
	}
	m[category][idx] = newName
	return newName, true
}

// RemoveDefinition deletes one name from a category, reporting whether it
// was present.
func (m DefinitionMap) RemoveDefinition(category, name string) bool {
	idx := slices.Index(m[category], name)
	if idx < 0 {
		return false
	}
	m[category] = slices.Delete(m[category], idx, idx+1)
	return true
}

// NormalizeCategoryName trims a category name for use as a map key.
func NormalizeCategoryName(name string) string {
	return strings.TrimSpace(name)
}
