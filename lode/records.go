package lode

import (
	"strings"
	"time"

	"github.com/justapithecus/msival/metrics"
	"github.com/justapithecus/msival/types"
)

// Record kind discriminators. record_kind is also the last partition key.
const (
	RecordKindOutput  = "output"
	RecordKindMetrics = "metrics"
)

// runPackage is the package partition for run-scoped records.
const runPackage = "_run"

// PackageKey derives the package partition value from an item path: the
// lowercased file name with partition-unsafe characters replaced.
func PackageKey(item string) string {
	name := item
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "_unknown"
	}
	return strings.NewReplacer("=", "_", ":", "_").Replace(name)
}

// toOutputRecordMap converts a delivered output to a storage record.
// Lode HiveLayout requires records as map[string]any.
func toOutputRecordMap(out *types.Output, cfg Config) map[string]any {
	m := map[string]any{
		"record_kind": RecordKindOutput,
		"run_id":      out.RunID,
		"seq":         out.Seq,
		"item":        out.Item,
		"kind":        string(out.Kind),
		"ts":          out.Ts,
		"text":        out.Text(),
		"package":     PackageKey(out.Item),
		"day":         cfg.Day,
	}
	if out.RunID == "" {
		m["run_id"] = cfg.RunID
	}
	if out.Action != "" {
		m["action"] = out.Action
	}
	switch out.Kind {
	case types.OutputError:
		if e := out.Error; e != nil {
			m["error"] = map[string]any{
				"fully_qualified_error_id": e.FullyQualifiedErrorID,
				"category":                 e.Category.String(),
				"target_name":              e.TargetName,
				"code":                     e.Code,
				"message":                  e.Message,
				"fields":                   e.Fields,
			}
		}
	case types.OutputWarning:
		m["warning"] = out.Warning
	case types.OutputMessage:
		if msg := out.Message; msg != nil {
			m["message"] = map[string]any{
				"name":          msg.Name,
				"type":          msg.Type.String(),
				"description":   msg.Description,
				"help_location": msg.HelpLocation,
				"table":         msg.Table,
				"column":        msg.Column,
				"primary_keys":  msg.PrimaryKeys,
			}
		}
	}
	return m
}

// toMetricsRecordMap converts a metrics snapshot to a storage record.
func toMetricsRecordMap(snap metrics.Snapshot, cfg Config, completedAt time.Time) map[string]any {
	dropped := make(map[string]any, len(snap.DroppedByKind))
	for k, v := range snap.DroppedByKind {
		dropped[k] = v
	}
	return map[string]any{
		"record_kind": RecordKindMetrics,
		"ts":          completedAt.UTC().Format(time.RFC3339Nano),

		"items_started":            snap.ItemsStarted,
		"items_validated":          snap.ItemsValidated,
		"items_preparation_failed": snap.ItemsPreparationFailed,
		"items_canceled":           snap.ItemsCanceled,

		"actions_executed": snap.ActionsExecuted,
		"actions_failed":   snap.ActionsFailed,

		"errors_delivered":       snap.ErrorsDelivered,
		"warnings_delivered":     snap.WarningsDelivered,
		"messages_delivered":     snap.MessagesDelivered,
		"information_suppressed": snap.InformationSuppressed,

		"rulesets_merged":      snap.RulesetsMerged,
		"conflicts_suppressed": snap.ConflictsSuppressed,

		"outputs_received":  snap.OutputsReceived,
		"outputs_persisted": snap.OutputsPersisted,
		"outputs_dropped":   snap.OutputsDropped,
		"dropped_by_kind":   dropped,

		"lode_write_success": snap.LodeWriteSuccess,
		"lode_write_failure": snap.LodeWriteFailure,

		"policy":          snap.Policy,
		"storage_backend": snap.StorageBackend,

		"package": runPackage,
		"day":     cfg.Day,
		"run_id":  cfg.RunID,
	}
}
