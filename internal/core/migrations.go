package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/rulegrid/internal/migrate"
	"github.com/JonMunkholm/rulegrid/internal/storage"
)

// legacySettingsSheet is the settings grid name used before 1.1.0.
func legacySettingsSheet(granularity string) string { return granularity + " settings" }

// Migrate applies every upgrade between the stored version and target.
func (s *Service) Migrate(ctx context.Context, target string) ([]string, error) {
	runner, err := migrate.NewRunner(storage.VersionStore{Settings: s.store}, s.migrations())
	if err != nil {
		return nil, err
	}
	return runner.Apply(ctx, target)
}

// migrations lists the upgrade steps. Every step is safe to run twice.
func (s *Service) migrations() map[string]migrate.Func {
	return map[string]migrate.Func{
		"1.1.0": s.renameLegacySheets,
		"1.2.0": s.reinitializeAll,
	}
}

// renameLegacySheets copies "<granularity> settings" grids to their current
// name unless the current name already holds a grid.
func (s *Service) renameLegacySheets(ctx context.Context) error {
	for _, g := range Granularities() {
		legacy, err := s.store.ReadGrid(ctx, legacySettingsSheet(g))
		if err != nil {
			return err
		}
		if legacy == nil {
			continue
		}
		current, err := s.store.ReadGrid(ctx, SettingsSheet(g))
		if err != nil {
			return err
		}
		if current != nil {
			continue
		}
		if err := s.store.WriteGrid(ctx, SettingsSheet(g), legacy); err != nil {
			return fmt.Errorf("copy %s: %w", legacySettingsSheet(g), err)
		}
		slog.Info("copied legacy settings grid", "from", legacySettingsSheet(g), "to", SettingsSheet(g))
	}
	return nil
}

// reinitializeAll reconciles every granularity so stored grids pick up the
// helper row and the current column layout.
func (s *Service) reinitializeAll(ctx context.Context) error {
	for _, g := range Granularities() {
		if err := s.Initialize(ctx, g); err != nil {
			return fmt.Errorf("initialize %s: %w", g, err)
		}
	}
	return nil
}
