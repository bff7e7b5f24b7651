package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

var (
	registry   = make(map[string]TableDefinition)
	registryMu sync.RWMutex
)

func registryKey(section, table string) string {
	return section + "/" + table
}

// Register adds a table definition to the registry.
// Panics if the same section/table pair is already registered.
func Register(def TableDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	key := registryKey(def.Info.Section, def.Info.Key)
	if _, exists := registry[key]; exists {
		panic(fmt.Sprintf("table already registered: %s", key))
	}

	registry[key] = def
}

// sectionLess orders "M4" before "M10": a shared letter prefix is compared
// first, then the numeric suffix.
func sectionLess(a, b string) bool {
	pa, na := splitSectionID(a)
	pb, nb := splitSectionID(b)
	if pa != pb || na < 0 || nb < 0 {
		return a < b
	}
	return na < nb
}

func splitSectionID(id string) (string, int) {
	i := strings.IndexFunc(id, func(r rune) bool { return r >= '0' && r <= '9' })
	if i < 0 {
		return id, -1
	}
	n, err := strconv.Atoi(id[i:])
	if err != nil {
		return id, -1
	}
	return id[:i], n
}

// Get returns a table definition by section and table key.
// Returns false if not found.
func Get(section, table string) (TableDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[registryKey(section, table)]
	return def, ok
}

// MustGet is like Get but returns ErrUnknownTable when the table is missing.
func MustGet(section, table string) (TableDefinition, error) {
	def, ok := Get(section, table)
	if !ok {
		return TableDefinition{}, fmt.Errorf("%w: %s/%s", ErrUnknownTable, section, table)
	}
	return def, nil
}

// All returns all registered table definitions.
// Sorted by section then by key for consistent ordering.
func All() []TableDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]TableDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Info.Section != result[j].Info.Section {
			return sectionLess(result[i].Info.Section, result[j].Info.Section)
		}
		return result[i].Info.Key < result[j].Info.Key
	})

	return result
}

// BySection returns all table definitions of one section.
// Sorted by key for consistent ordering.
func BySection(section string) []TableDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	var result []TableDefinition
	for _, def := range registry {
		if def.Info.Section == section {
			result = append(result, def)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Info.Key < result[j].Info.Key
	})

	return result
}

// SectionInfo names a section of the plan.
type SectionInfo struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Sections returns all sections that own at least one table.
// Sorted by id, numerically for ids like "M4" and "M10".
func Sections() []SectionInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	seen := make(map[string]string)
	for _, def := range registry {
		if _, ok := seen[def.Info.Section]; !ok || seen[def.Info.Section] == "" {
			seen[def.Info.Section] = def.Info.SectionLabel
		}
	}

	sections := make([]SectionInfo, 0, len(seen))
	for id, label := range seen {
		sections = append(sections, SectionInfo{ID: id, Label: label})
	}

	sort.Slice(sections, func(i, j int) bool {
		return sectionLess(sections[i].ID, sections[j].ID)
	})
	return sections
}

// TableCount returns the number of registered tables.
func TableCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered tables.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]TableDefinition)
}
