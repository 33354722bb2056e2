package core

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownRule is returned for a rule name that is not registered.
	ErrUnknownRule = errors.New("unknown rule")
	// ErrUnknownGranularity is returned when no rule is registered at a granularity.
	ErrUnknownGranularity = errors.New("unknown granularity")
	// ErrUnknownCommand is returned by the dispatcher for an unmapped command.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrNoResult is returned when no result is stored for an entity.
	ErrNoResult = errors.New("no result stored")
)

// MissingConfigurationError is returned when a required named setting is absent.
type MissingConfigurationError struct {
	Name string
}

func (e *MissingConfigurationError) Error() string {
	return fmt.Sprintf("missing required setting %q", e.Name)
}

// RuleError wraps a rule callback failure with the rule's name.
type RuleError struct {
	Rule string
	Err  error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("rule %s failed: %v", e.Rule, e.Err)
}

func (e *RuleError) Unwrap() error { return e.Err }
