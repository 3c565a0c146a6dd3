package lode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/justapithecus/lode/lode"

	"github.com/justapithecus/msival/metrics"
)

// ErrNoMetricsFound is returned when no metrics records exist in the dataset.
var ErrNoMetricsFound = errors.New("no metrics records found")

// QueryLatestMetrics returns the most recent metrics record, optionally
// restricted to runID. Manifest paths pre-filter snapshots; record fields
// are authoritative.
func QueryLatestMetrics(ctx context.Context, ds lode.Dataset, runID string) (map[string]any, error) {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return nil, newStorageError(OpRead, RecordKindMetrics, runID, string(ds.ID()), err)
	}

	// Snapshots are ordered by creation time; walk newest first.
	for i := len(snapshots) - 1; i >= 0; i-- {
		snap := snapshots[i]
		if !snapshotHasPartition(snap, "record_kind", RecordKindMetrics) {
			continue
		}
		if !snapshotHasPartition(snap, "run_id", runID) {
			continue
		}

		data, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return nil, newStorageError(OpRead, RecordKindMetrics, runID, fmt.Sprintf("%s/snapshot/%s", ds.ID(), snap.ID), err)
		}
		for _, item := range data {
			record, ok := item.(map[string]any)
			if !ok || record["record_kind"] != RecordKindMetrics {
				continue
			}
			if runID != "" && toString(record["run_id"]) != runID {
				continue
			}
			return record, nil
		}
	}

	return nil, ErrNoMetricsFound
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// SnapshotFromRecord rebuilds a metrics snapshot from a stored metrics
// record. Missing or non-numeric counters read as zero.
func SnapshotFromRecord(record map[string]any) metrics.Snapshot {
	snap := metrics.Snapshot{
		Policy:         toString(record["policy"]),
		StorageBackend: toString(record["storage_backend"]),
		RunID:          toString(record["run_id"]),
	}
	counters := map[string]*int64{
		"items_started":            &snap.ItemsStarted,
		"items_validated":          &snap.ItemsValidated,
		"items_preparation_failed": &snap.ItemsPreparationFailed,
		"items_canceled":           &snap.ItemsCanceled,
		"actions_executed":         &snap.ActionsExecuted,
		"actions_failed":           &snap.ActionsFailed,
		"errors_delivered":         &snap.ErrorsDelivered,
		"warnings_delivered":       &snap.WarningsDelivered,
		"messages_delivered":       &snap.MessagesDelivered,
		"information_suppressed":   &snap.InformationSuppressed,
		"rulesets_merged":          &snap.RulesetsMerged,
		"conflicts_suppressed":     &snap.ConflictsSuppressed,
		"outputs_received":         &snap.OutputsReceived,
		"outputs_persisted":        &snap.OutputsPersisted,
		"outputs_dropped":          &snap.OutputsDropped,
		"lode_write_success":       &snap.LodeWriteSuccess,
		"lode_write_failure":       &snap.LodeWriteFailure,
	}
	for key, dst := range counters {
		*dst = recordInt64(record[key])
	}
	if dropped, ok := record["dropped_by_kind"].(map[string]any); ok && len(dropped) > 0 {
		snap.DroppedByKind = make(map[string]int64, len(dropped))
		for kind, v := range dropped {
			snap.DroppedByKind[kind] = recordInt64(v)
		}
	}
	return snap
}

// recordInt64 accepts the numeric types a decoded record may hold.
func recordInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	default:
		return 0
	}
}
