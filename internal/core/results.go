package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/JonMunkholm/rulegrid/internal/grid"
	"github.com/JonMunkholm/rulegrid/internal/storage"
)

// AnomalyColumn is the trailing column of every result sheet.
const AnomalyColumn = "Anomaly"

// ResultRecord is the per-entity result saved to the result store.
type ResultRecord struct {
	Rule        string            `json:"rule"`
	EntityID    string            `json:"entityId"`
	EntityName  string            `json:"entityName"`
	AccountID   string            `json:"accountId"`
	PassID      string            `json:"passId"`
	Anomalous   bool              `json:"anomalous"`
	Values      map[string]string `json:"values"`
	EvaluatedAt time.Time         `json:"evaluatedAt"`
}

// buildResultMatrix lays a rule's result out as a sheet. Rows with a blank
// entity id or a value count that does not match the columns are dropped
// and counted.
func buildResultMatrix(def RuleDefinition, res *Result, names map[string]string) (grid.Grid, []ResultRow, int) {
	header := make([]string, 0, len(res.Columns)+3)
	header = append(header, grid.IDRow, grid.NameHeader(def.Granularity))
	header = append(header, res.Columns...)
	header = append(header, AnomalyColumn)

	out := grid.Grid{header}
	kept := make([]ResultRow, 0, len(res.Rows))
	dropped := 0
	for _, row := range res.Rows {
		if row.EntityID == "" || len(row.Values) != len(res.Columns) {
			dropped++
			continue
		}
		cells := make([]string, 0, len(header))
		cells = append(cells, row.EntityID, names[row.EntityID])
		cells = append(cells, row.Values...)
		cells = append(cells, anomalyCell(row.Anomalous))
		out = append(out, cells)
		kept = append(kept, row)
	}
	return out, kept, dropped
}

func anomalyCell(anomalous bool) string {
	if anomalous {
		return "TRUE"
	}
	return "FALSE"
}

func newResultRecord(def RuleDefinition, columns []string, row ResultRow, name, account, passID string, at time.Time) ResultRecord {
	values := make(map[string]string, len(columns))
	for i, col := range columns {
		values[col] = row.Values[i]
	}
	return ResultRecord{
		Rule:        def.Name,
		EntityID:    row.EntityID,
		EntityName:  name,
		AccountID:   account,
		PassID:      passID,
		Anomalous:   row.Anomalous,
		Values:      values,
		EvaluatedAt: at,
	}
}

func saveResult(ctx context.Context, store storage.ResultStore, key string, rec ResultRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode result %s: %w", key, err)
	}
	if err := store.SaveResult(ctx, key, data); err != nil {
		return fmt.Errorf("save result %s: %w", key, err)
	}
	return nil
}

// EntityResult loads the latest saved result of one entity under a rule.
func (s *Service) EntityResult(ctx context.Context, rule, entityID string) (*ResultRecord, error) {
	def, ok := Get(rule)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRule, rule)
	}
	data, found, err := s.store.LoadResult(ctx, def.ResultKey(entityID))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	var rec ResultRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode result %s: %w", def.ResultKey(entityID), err)
	}
	return &rec, nil
}
