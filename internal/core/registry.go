package core

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[string]RuleDefinition)
	registryMu sync.RWMutex
)

// Register adds a rule definition to the registry.
// Panics if the definition is invalid or the name is already registered.
func Register(def RuleDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if err := def.Validate(); err != nil {
		panic(fmt.Sprintf("invalid rule: %v", err))
	}
	if _, exists := registry[def.Name]; exists {
		panic(fmt.Sprintf("rule already registered: %s", def.Name))
	}

	registry[def.Name] = def
}

// Get returns a rule definition by name.
// Returns false if not found.
func Get(name string) (RuleDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[name]
	return def, ok
}

// All returns all registered rule definitions.
// Sorted by granularity then by name for consistent ordering.
func All() []RuleDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]RuleDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Granularity != result[j].Granularity {
			return result[i].Granularity < result[j].Granularity
		}
		return result[i].Name < result[j].Name
	})

	return result
}

// ByGranularity returns all rule definitions for a granularity.
// Sorted by name for consistent ordering.
func ByGranularity(granularity string) []RuleDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	var result []RuleDefinition
	for _, def := range registry {
		if def.Granularity == granularity {
			result = append(result, def)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})

	return result
}

// Granularities returns all unique granularities.
// Sorted alphabetically.
func Granularities() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	seen := make(map[string]bool)
	for _, def := range registry {
		seen[def.Granularity] = true
	}

	out := make([]string, 0, len(seen))
	for g := range seen {
		out = append(out, g)
	}

	sort.Strings(out)
	return out
}

// RuleCount returns the number of registered rules.
func RuleCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered rules.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]RuleDefinition)
}
