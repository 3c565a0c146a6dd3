// Package metrics provides per-run counters for validation runs.
//
// The Collector accumulates counters during a single run. It is a leaf
// package with no internal dependencies. Persistence policy counters are
// absorbed from policy.Stats at run completion rather than recorded live.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of run metrics.
type Snapshot struct {
	// Items
	ItemsStarted           int64 `json:"items_started"`
	ItemsValidated         int64 `json:"items_validated"`
	ItemsPreparationFailed int64 `json:"items_preparation_failed"`
	ItemsCanceled          int64 `json:"items_canceled"`

	// Actions
	ActionsExecuted int64 `json:"actions_executed"`
	ActionsFailed   int64 `json:"actions_failed"`

	// Delivered outputs
	ErrorsDelivered       int64 `json:"errors_delivered"`
	WarningsDelivered     int64 `json:"warnings_delivered"`
	MessagesDelivered     int64 `json:"messages_delivered"`
	InformationSuppressed int64 `json:"information_suppressed"`

	// Rulesets
	RulesetsMerged      int64 `json:"rulesets_merged"`
	ConflictsSuppressed int64 `json:"conflicts_suppressed"`

	// Persistence (absorbed from policy.Stats at run completion)
	OutputsReceived  int64            `json:"outputs_received"`
	OutputsPersisted int64            `json:"outputs_persisted"`
	OutputsDropped   int64            `json:"outputs_dropped"`
	DroppedByKind    map[string]int64 `json:"dropped_by_kind,omitempty"`

	// Lode / Storage
	LodeWriteSuccess int64 `json:"lode_write_success"`
	LodeWriteFailure int64 `json:"lode_write_failure"`

	// Dimensions
	Policy         string `json:"policy"`
	StorageBackend string `json:"storage_backend"`
	RunID          string `json:"run_id"`
}

// Collector accumulates metrics during a single run.
// Thread-safe via sync.Mutex. All methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex
	s  Snapshot
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(policy, storageBackend, runID string) *Collector {
	return &Collector{s: Snapshot{
		DroppedByKind:  make(map[string]int64),
		Policy:         policy,
		StorageBackend: storageBackend,
		RunID:          runID,
	}}
}

func (c *Collector) add(field func(*Snapshot) *int64, n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	*field(&c.s) += n
	c.mu.Unlock()
}

// --- Items ---

// IncItemStarted records an input package entering preparation.
func (c *Collector) IncItemStarted() {
	c.add(func(s *Snapshot) *int64 { return &s.ItemsStarted }, 1)
}

// IncItemValidated records a package whose selected actions all ran.
func (c *Collector) IncItemValidated() {
	c.add(func(s *Snapshot) *int64 { return &s.ItemsValidated }, 1)
}

// IncItemPreparationFailed records a package skipped by a preparation error.
func (c *Collector) IncItemPreparationFailed() {
	c.add(func(s *Snapshot) *int64 { return &s.ItemsPreparationFailed }, 1)
}

// IncItemCanceled records a package interrupted by a stop request.
func (c *Collector) IncItemCanceled() {
	c.add(func(s *Snapshot) *int64 { return &s.ItemsCanceled }, 1)
}

// --- Actions ---

// IncActionExecuted records a DoAction call.
func (c *Collector) IncActionExecuted() {
	c.add(func(s *Snapshot) *int64 { return &s.ActionsExecuted }, 1)
}

// IncActionFailed records an action the engine reported as failed.
func (c *Collector) IncActionFailed() {
	c.add(func(s *Snapshot) *int64 { return &s.ActionsFailed }, 1)
}

// --- Outputs ---

// IncDelivered records a delivered output of the given kind: "error",
// "warning" or "message". Unknown kinds are ignored.
func (c *Collector) IncDelivered(kind string) {
	switch kind {
	case "error":
		c.add(func(s *Snapshot) *int64 { return &s.ErrorsDelivered }, 1)
	case "warning":
		c.add(func(s *Snapshot) *int64 { return &s.WarningsDelivered }, 1)
	case "message":
		c.add(func(s *Snapshot) *int64 { return &s.MessagesDelivered }, 1)
	}
}

// IncInformationSuppressed records an information message withheld because
// verbose output was not requested.
func (c *Collector) IncInformationSuppressed() {
	c.add(func(s *Snapshot) *int64 { return &s.InformationSuppressed }, 1)
}

// --- Rulesets ---

// IncRulesetMerged records a ruleset merged into a working copy.
func (c *Collector) IncRulesetMerged() {
	c.add(func(s *Snapshot) *int64 { return &s.RulesetsMerged }, 1)
}

// IncConflictSuppressed records a tolerated merge conflict.
func (c *Collector) IncConflictSuppressed() {
	c.add(func(s *Snapshot) *int64 { return &s.ConflictsSuppressed }, 1)
}

// --- Lode / Storage ---
// Lode counters are per-call, not per-record.

// IncLodeWriteSuccess records a successful Lode write operation.
func (c *Collector) IncLodeWriteSuccess() {
	c.add(func(s *Snapshot) *int64 { return &s.LodeWriteSuccess }, 1)
}

// IncLodeWriteFailure records a failed Lode write operation.
func (c *Collector) IncLodeWriteFailure() {
	c.add(func(s *Snapshot) *int64 { return &s.LodeWriteFailure }, 1)
}

// --- Persistence (absorbed from policy.Stats) ---

// AbsorbPolicyStats copies persistence counters from the final policy stats.
// droppedByKind keys are output kinds as strings to keep this package free
// of a types dependency.
func (c *Collector) AbsorbPolicyStats(received, persisted, dropped int64, droppedByKind map[string]int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.OutputsReceived = received
	c.s.OutputsPersisted = persisted
	c.s.OutputsDropped = dropped
	c.s.DroppedByKind = make(map[string]int64, len(droppedByKind))
	for k, v := range droppedByKind {
		c.s.DroppedByKind[k] = v
	}
}

// Snapshot returns a copy of the current counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.s
	s.DroppedByKind = make(map[string]int64, len(c.s.DroppedByKind))
	for k, v := range c.s.DroppedByKind {
		s.DroppedByKind[k] = v
	}
	return s
}
