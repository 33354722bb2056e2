// Package core provides rule reconciliation and launch orchestration.
//
// # Error Codes Reference
//
// This file defines user-facing error messages with codes for support
// reference. Typed errors are matched first with errors.As/errors.Is; the
// remaining errors fall through to case-insensitive substring patterns.
//
// # Grid Errors (GRID001)
//
//	GRID001 - Grid shape: The grid has fewer than two rows
//	          Action: Keep the header row and the default row in place
//
// # Rule Errors (RULE001-RULE099)
//
//	RULE001 - Missing defaults: A rule declares no default values
//	          Action: Declare defaults for the rule
//
//	RULE002 - Unknown rule or granularity
//	          Action: Check the name against the rule listing
//
//	RULE003 - Rule failed: A rule callback returned an error
//	          Action: Check the logs for the rule's error and relaunch
//
//	RULE004 - No result: Nothing is stored for the entity under the rule
//	          Action: Launch the rule's granularity first
//
// # Configuration Errors (CFG001)
//
//	CFG001 - Missing setting: A required named setting is absent
//	         Action: Set the named setting and retry
//
// # Migration Errors (MIG001)
//
//	MIG001 - Bad version: A version string is not dot-separated numbers
//	         Action: Use versions like 1.2.0
//
// # Command Errors (CMD001)
//
//	CMD001 - Unknown command
//	         Action: Use initialize, launch or migrate
//
// # Database and Request Errors (DB004-DB007, REQ001-REQ002)
//
// Matched by substring, as the upstream driver errors are not typed:
//
//	DB004 - "connection refused"
//	DB005 - "connection reset"
//	DB006 - "timeout"
//	DB007 - "deadlock"
//	REQ001 - "context canceled"
//	REQ002 - "context deadline exceeded"
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check application logs for the original
// technical error when users report ERR000.
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/rulegrid/internal/grid"
	"github.com/JonMunkholm/rulegrid/internal/migrate"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgGridShape = UserMessage{
		Message: "The settings grid is too small",
		Action:  "Keep the header row and the default row in place",
		Code:    "GRID001",
	}
	msgMissingDefaults = UserMessage{
		Message: "A rule declares no default values",
		Action:  "Declare defaults for the rule",
		Code:    "RULE001",
	}
	msgUnknownRule = UserMessage{
		Message: "Unknown rule or granularity",
		Action:  "Check the name against the rule listing",
		Code:    "RULE002",
	}
	msgRuleFailed = UserMessage{
		Message: "A rule failed while running",
		Action:  "Check the logs for the rule's error and relaunch",
		Code:    "RULE003",
	}
	msgNoResult = UserMessage{
		Message: "No result is stored for this entity",
		Action:  "Launch the rule's granularity first",
		Code:    "RULE004",
	}
	msgMissingSetting = UserMessage{
		Message: "A required setting is missing",
		Action:  "Set the named setting and retry",
		Code:    "CFG001",
	}
	msgBadVersion = UserMessage{
		Message: "Invalid version string",
		Action:  "Use versions like 1.2.0",
		Code:    "MIG001",
	}
	msgUnknownCommand = UserMessage{
		Message: "Unknown command",
		Action:  "Use initialize, launch or migrate",
		Code:    "CMD001",
	}
	msgCanceled = UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "REQ001",
	}
	msgDeadline = UserMessage{
		Message: "Request timed out",
		Action:  "Try again later",
		Code:    "REQ002",
	}
)

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user messages.
// The first matching pattern wins, so specific patterns come first.
var errorPatterns = []errorPattern{
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{pattern: "context deadline exceeded", msg: msgDeadline},
	{pattern: "context canceled", msg: msgCanceled},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Typed errors anywhere in the chain win over text patterns.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var (
		shapeErr    *grid.InputShapeError
		defaultsErr *grid.MissingDefaultsError
		ruleErr     *RuleError
		missingErr  *MissingConfigurationError
		versionErr  *migrate.VersionFormatError
	)
	switch {
	case errors.As(err, &missingErr):
		msg := msgMissingSetting
		msg.Message = fmt.Sprintf("Required setting %q is missing", missingErr.Name)
		return msg
	case errors.As(err, &shapeErr):
		return msgGridShape
	case errors.As(err, &defaultsErr):
		return msgMissingDefaults
	case errors.As(err, &versionErr):
		return msgBadVersion
	case errors.Is(err, ErrUnknownRule), errors.Is(err, ErrUnknownGranularity):
		return msgUnknownRule
	case errors.Is(err, ErrNoResult):
		return msgNoResult
	case errors.Is(err, ErrUnknownCommand):
		return msgUnknownCommand
	case errors.Is(err, context.DeadlineExceeded):
		return msgDeadline
	case errors.Is(err, context.Canceled):
		return msgCanceled
	case errors.As(err, &ruleErr):
		return msgRuleFailed
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something more specific than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// IsClientError reports whether err was caused by the caller's input rather
// than by the system.
func IsClientError(err error) bool {
	switch MapError(err).Code {
	case msgGridShape.Code, msgUnknownRule.Code, msgNoResult.Code, msgMissingSetting.Code,
		msgBadVersion.Code, msgUnknownCommand.Code:
		return true
	}
	return false
}
