package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/rulegrid/internal/grid"
	"github.com/JonMunkholm/rulegrid/internal/migrate"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{
			name:     "nil error returns empty",
			err:      nil,
			wantCode: "",
		},
		{
			name:     "grid shape",
			err:      fmt.Errorf("replace: %w", &grid.InputShapeError{Rows: 1, Cols: 3}),
			wantCode: "GRID001",
		},
		{
			name:     "missing defaults",
			err:      fmt.Errorf("reconcile rule a: %w", &grid.MissingDefaultsError{Rule: "a"}),
			wantCode: "RULE001",
		},
		{
			name:     "unknown rule",
			err:      fmt.Errorf("%w: nope", ErrUnknownRule),
			wantCode: "RULE002",
		},
		{
			name:     "unknown granularity",
			err:      fmt.Errorf("%w: nope", ErrUnknownGranularity),
			wantCode: "RULE002",
		},
		{
			name:     "rule failure",
			err:      &RuleError{Rule: "a", Err: errors.New("boom")},
			wantCode: "RULE003",
		},
		{
			name:     "rule failure wrapping a missing setting",
			err:      &RuleError{Rule: "a", Err: &MissingConfigurationError{Name: "x"}},
			wantCode: "CFG001",
		},
		{
			name:     "missing setting",
			err:      &MissingConfigurationError{Name: "account_id"},
			wantCode: "CFG001",
		},
		{
			name:     "bad version",
			err:      &migrate.VersionFormatError{Version: "1.x", Segment: "x"},
			wantCode: "MIG001",
		},
		{
			name:     "unknown command",
			err:      fmt.Errorf("%w: reset", ErrUnknownCommand),
			wantCode: "CMD001",
		},
		{
			name:     "typed deadline",
			err:      fmt.Errorf("launch: %w", context.DeadlineExceeded),
			wantCode: "REQ002",
		},
		{
			name:     "connection refused maps by text",
			err:      errors.New("dial tcp: connection refused"),
			wantCode: "DB004",
		},
		{
			name:     "case insensitive matching",
			err:      errors.New("DEADLOCK detected"),
			wantCode: "DB007",
		},
		{
			name:     "unknown error returns default",
			err:      errors.New("some random internal error"),
			wantCode: "ERR000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestMapError_MissingSettingNamesSetting(t *testing.T) {
	got := MapError(&MissingConfigurationError{Name: "account_id"})
	want := `Required setting "account_id" is missing`
	if got.Message != want {
		t.Errorf("Message = %q, want %q", got.Message, want)
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(fmt.Errorf("%w: reset", ErrUnknownCommand))

	expected := "Unknown command (Code: CMD001). Use initialize, launch or migrate"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error is not user facing", err: nil, want: false},
		{name: "known error is user facing", err: ErrUnknownRule, want: true},
		{name: "unknown error is not user facing", err: errors.New("random internal error xyz"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsClientError(t *testing.T) {
	if !IsClientError(&grid.InputShapeError{}) {
		t.Error("shape error should be a client error")
	}
	if IsClientError(&RuleError{Rule: "a", Err: errors.New("boom")}) {
		t.Error("rule failure should not be a client error")
	}
	if IsClientError(errors.New("connection refused")) {
		t.Error("database error should not be a client error")
	}
}
