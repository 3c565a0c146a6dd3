package metrics

import (
	"sync"
	"testing"
)

func TestCollector_IncrementMethods(t *testing.T) {
	c := NewCollector("strict", "fs", "run-001")

	c.IncItemStarted()
	c.IncItemStarted()
	c.IncItemStarted()
	c.IncItemValidated()
	c.IncItemPreparationFailed()
	c.IncItemCanceled()
	c.IncActionExecuted()
	c.IncActionExecuted()
	c.IncActionFailed()
	c.IncDelivered("error")
	c.IncDelivered("warning")
	c.IncDelivered("warning")
	c.IncDelivered("message")
	c.IncDelivered("bogus")
	c.IncInformationSuppressed()
	c.IncRulesetMerged()
	c.IncRulesetMerged()
	c.IncConflictSuppressed()
	c.IncLodeWriteSuccess()
	c.IncLodeWriteFailure()

	s := c.Snapshot()
	checks := []struct {
		name string
		got  int64
		want int64
	}{
		{"ItemsStarted", s.ItemsStarted, 3},
		{"ItemsValidated", s.ItemsValidated, 1},
		{"ItemsPreparationFailed", s.ItemsPreparationFailed, 1},
		{"ItemsCanceled", s.ItemsCanceled, 1},
		{"ActionsExecuted", s.ActionsExecuted, 2},
		{"ActionsFailed", s.ActionsFailed, 1},
		{"ErrorsDelivered", s.ErrorsDelivered, 1},
		{"WarningsDelivered", s.WarningsDelivered, 2},
		{"MessagesDelivered", s.MessagesDelivered, 1},
		{"InformationSuppressed", s.InformationSuppressed, 1},
		{"RulesetsMerged", s.RulesetsMerged, 2},
		{"ConflictsSuppressed", s.ConflictsSuppressed, 1},
		{"LodeWriteSuccess", s.LodeWriteSuccess, 1},
		{"LodeWriteFailure", s.LodeWriteFailure, 1},
	}
	for _, ck := range checks {
		if ck.got != ck.want {
			t.Errorf("%s = %d, want %d", ck.name, ck.got, ck.want)
		}
	}
}

func TestCollector_Dimensions(t *testing.T) {
	s := NewCollector("buffered", "s3", "run-42").Snapshot()
	if s.Policy != "buffered" || s.StorageBackend != "s3" || s.RunID != "run-42" {
		t.Errorf("dimensions = %q/%q/%q", s.Policy, s.StorageBackend, s.RunID)
	}
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector
	c.IncItemStarted()
	c.IncDelivered("error")
	c.AbsorbPolicyStats(1, 1, 0, nil)
	if s := c.Snapshot(); s.ItemsStarted != 0 {
		t.Errorf("nil collector snapshot = %+v", s)
	}
}

func TestCollector_AbsorbPolicyStats(t *testing.T) {
	c := NewCollector("buffered", "fs", "r")
	in := map[string]int64{"message": 4}
	c.AbsorbPolicyStats(10, 6, 4, in)
	in["message"] = 99

	s := c.Snapshot()
	if s.OutputsReceived != 10 || s.OutputsPersisted != 6 || s.OutputsDropped != 4 {
		t.Errorf("absorbed = %d/%d/%d", s.OutputsReceived, s.OutputsPersisted, s.OutputsDropped)
	}
	if s.DroppedByKind["message"] != 4 {
		t.Errorf("DroppedByKind = %v, want copy of input", s.DroppedByKind)
	}
}

func TestCollector_SnapshotIsolation(t *testing.T) {
	c := NewCollector("strict", "fs", "r")
	c.AbsorbPolicyStats(1, 0, 1, map[string]int64{"message": 1})
	s := c.Snapshot()
	s.DroppedByKind["message"] = 50
	if c.Snapshot().DroppedByKind["message"] != 1 {
		t.Error("snapshot map aliases collector state")
	}
}

func TestCollector_Concurrent(t *testing.T) {
	c := NewCollector("strict", "fs", "r")
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				c.IncActionExecuted()
				c.IncDelivered("message")
			}
		}()
	}
	wg.Wait()
	s := c.Snapshot()
	if s.ActionsExecuted != 800 || s.MessagesDelivered != 800 {
		t.Errorf("concurrent counts = %d/%d, want 800/800", s.ActionsExecuted, s.MessagesDelivered)
	}
}
