// Package rules registers all rule definitions with the core registry.
// Import this package to ensure all rules are registered.
package rules

// This file exists to provide a single import point.
// Each rule file uses init() to register its rule.
