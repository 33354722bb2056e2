package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JonMunkholm/rulegrid/internal/grid"
	"github.com/JonMunkholm/rulegrid/internal/logging"
	"github.com/JonMunkholm/rulegrid/internal/reporting"
	"github.com/JonMunkholm/rulegrid/internal/storage"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// SettingAccountID names the reporting account being monitored. Launch
// refuses to run without it.
const SettingAccountID = "account_id"

// SettingsSheet returns the grid name holding a granularity's settings.
func SettingsSheet(granularity string) string { return "settings:" + granularity }

// ResultsSheet returns the grid name holding a rule's latest results.
func ResultsSheet(rule string) string { return "results:" + rule }

// Service sequences reconciliation passes and rule launches over a store
// and a reporting client.
type Service struct {
	store  storage.Store
	client reporting.Client
	now    func() time.Time
}

// NewService creates a new Service instance.
func NewService(store storage.Store, client reporting.Client) *Service {
	return &Service{
		store:  store,
		client: client,
		now:    time.Now,
	}
}

// ListRules returns every registered rule.
func (s *Service) ListRules() []RuleInfo {
	defs := All()
	out := make([]RuleInfo, len(defs))
	for i, def := range defs {
		out[i] = def.Info()
	}
	return out
}

// RequireSetting returns a named setting or a *MissingConfigurationError.
func (s *Service) RequireSetting(ctx context.Context, name string) (string, error) {
	v, ok, err := s.store.Setting(ctx, name)
	if err != nil {
		return "", err
	}
	if !ok || v == "" {
		return "", &MissingConfigurationError{Name: name}
	}
	return v, nil
}

// SetSetting stores a named setting.
func (s *Service) SetSetting(ctx context.Context, name, value string) error {
	return s.store.SetSetting(ctx, name, value)
}

// Grid returns the stored settings grid for granularity.
func (s *Service) Grid(ctx context.Context, granularity string) (grid.Grid, error) {
	if len(ByGranularity(granularity)) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGranularity, granularity)
	}
	return s.store.ReadGrid(ctx, SettingsSheet(granularity))
}

// ReplaceGrid stores an operator-edited settings grid as-is. The next pass
// reconciles it.
func (s *Service) ReplaceGrid(ctx context.Context, granularity string, g grid.Grid) error {
	if len(ByGranularity(granularity)) == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownGranularity, granularity)
	}
	if len(g) < 2 {
		return &grid.InputShapeError{Rows: len(g), Cols: g.Width()}
	}
	return s.store.WriteGrid(ctx, SettingsSheet(granularity), g)
}

// Results returns the latest result sheet of a rule.
func (s *Service) Results(ctx context.Context, rule string) (grid.Grid, error) {
	if _, ok := Get(rule); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRule, rule)
	}
	return s.store.ReadGrid(ctx, ResultsSheet(rule))
}

// Initialize runs a reconciliation pass for granularity and writes the
// settings grid back. Nothing is written if any rule fails to reconcile.
func (s *Service) Initialize(ctx context.Context, granularity string) error {
	passID := uuid.NewString()
	logger := logging.WithFields(ctx, "pass_id", passID, "granularity", granularity)
	start := time.Now()

	rng, defs, err := s.reconcile(ctx, granularity)
	if err != nil {
		return err
	}
	if err := rng.WriteBack(ctx, s.store, SettingsSheet(granularity), granularity); err != nil {
		return err
	}

	logger.Info("settings reconciled",
		"rules", len(defs),
		"rows", len(rng.RowIndex()),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Launch reconciles granularity, runs every rule at that granularity with
// its resolved settings, and once all rules have finished writes the
// settings grid, one result sheet per rule and every per-entity result.
// A failing rule aborts the pass before anything is written, and on a store
// that groups writes a failed write leaves the previous pass in place.
func (s *Service) Launch(ctx context.Context, granularity string) (*LaunchReport, error) {
	account, err := s.RequireSetting(ctx, SettingAccountID)
	if err != nil {
		return nil, err
	}

	passID := uuid.NewString()
	logger := logging.WithFields(ctx, "pass_id", passID, "granularity", granularity)
	start := time.Now()

	rng, defs, err := s.reconcile(ctx, granularity)
	if err != nil {
		return nil, err
	}

	settings := make([]*grid.ParamValueTable, len(defs))
	for i, def := range defs {
		if settings[i], err = rng.ParamValues(def.RuleSpec); err != nil {
			return nil, fmt.Errorf("resolve settings for %s: %w", def.Name, err)
		}
	}

	env := &ruleEnv{rng: rng, client: s.client, account: account}
	results := make([]*Result, len(defs))

	eg, egCtx := errgroup.WithContext(ctx)
	for i, def := range defs {
		eg.Go(func() error {
			res, err := def.Callback(egCtx, env, settings[i])
			if err != nil {
				return &RuleError{Rule: def.Name, Err: err}
			}
			if res == nil {
				res = &Result{}
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	names := rng.DisplayNames()
	report := &LaunchReport{
		PassID:      passID,
		Granularity: granularity,
		Rules:       len(defs),
		Entities:    len(names),
		Anomalies:   make(map[string]int, len(defs)),
	}
	evaluatedAt := s.now().UTC()

	// settings, result sheets and records commit together or not at all
	err = storage.Atomic(ctx, s.store, func(tx storage.Store) error {
		if err := rng.WriteBack(ctx, tx, SettingsSheet(granularity), granularity); err != nil {
			return err
		}
		for i, def := range defs {
			matrix, rows, dropped := buildResultMatrix(def, results[i], names)
			report.DroppedRows += dropped

			if err := tx.WriteGrid(ctx, ResultsSheet(def.Name), matrix); err != nil {
				return fmt.Errorf("write results for %s: %w", def.Name, err)
			}
			for _, row := range rows {
				rec := newResultRecord(def, results[i].Columns, row, names[row.EntityID], account, passID, evaluatedAt)
				if err := saveResult(ctx, tx, def.ResultKey(row.EntityID), rec); err != nil {
					return err
				}
				if row.Anomalous {
					report.Anomalies[def.Name]++
				}
			}
			if dropped > 0 {
				logger.Warn("dropped malformed result rows", "rule", def.Name, "count", dropped)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	resultRowsDropped.Add(float64(report.DroppedRows))
	for _, def := range defs {
		anomaliesFound.WithLabelValues(def.Name).Add(float64(report.Anomalies[def.Name]))
	}

	logger.Info("launch completed",
		"rules", report.Rules,
		"entities", report.Entities,
		"dropped_rows", report.DroppedRows,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return report, nil
}

// reconcile loads the stored settings grid and reconciles every rule at
// granularity against it.
func (s *Service) reconcile(ctx context.Context, granularity string) (*grid.RuleColumnRange, []RuleDefinition, error) {
	defs := ByGranularity(granularity)
	if len(defs) == 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownGranularity, granularity)
	}

	raw, err := s.store.ReadGrid(ctx, SettingsSheet(granularity))
	if err != nil {
		return nil, nil, err
	}

	rng := grid.FromGrid(raw)
	src := &passSource{src: s.client}
	for _, def := range defs {
		if err := rng.FillRuleValues(ctx, def.RuleSpec, src); err != nil {
			return nil, nil, fmt.Errorf("reconcile rule %s: %w", def.Name, err)
		}
	}
	return rng, defs, nil
}

// passSource memoizes the entity list per granularity, so every rule in a
// pass sees the same entities.
type passSource struct {
	src grid.EntitySource

	mu    sync.Mutex
	cache map[string][]grid.Entity
}

func (p *passSource) Rows(ctx context.Context, granularity string) ([]grid.Entity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if rows, ok := p.cache[granularity]; ok {
		return rows, nil
	}
	rows, err := p.src.Rows(ctx, granularity)
	if err != nil {
		return nil, err
	}
	if p.cache == nil {
		p.cache = make(map[string][]grid.Entity)
	}
	p.cache[granularity] = rows
	return rows, nil
}

type ruleEnv struct {
	rng     *grid.RuleColumnRange
	client  reporting.Client
	account string
}

func (e *ruleEnv) GetRule(name string) (*grid.ParamValueTable, error) {
	def, ok := Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRule, name)
	}
	return e.rng.ParamValues(def.RuleSpec)
}

func (e *ruleEnv) Client() reporting.Client { return e.client }

func (e *ruleEnv) AccountID() string { return e.account }
