// Package runtime drives validation runs: it prepares a working copy of
// each package, merges rulesets, runs the selected ICE actions, and
// delivers the diagnostics the engine reports.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/justapithecus/msival/diag"
	"github.com/justapithecus/msival/engine"
	"github.com/justapithecus/msival/ice"
	"github.com/justapithecus/msival/log"
	"github.com/justapithecus/msival/relay"
	"github.com/justapithecus/msival/types"
)

// flushTimeout bounds the final policy flush.
const flushTimeout = 30 * time.Second

// Validator runs ICE validation for a batch of packages against one
// engine. A Validator is not safe for concurrent use, and only one
// Validator may run against an engine at a time.
type Validator struct {
	engine    engine.Engine
	config    *Config
	logger    *log.Logger
	selection ice.Selection
	relay     *relay.Relay
	dispatch  *dispatcher

	state      State
	current    *ItemResult
	seq        int64
	persistCtx context.Context
	storageErr error
}

// NewValidator creates a validator. Returns an error if the run metadata
// is invalid or a pattern does not compile.
func NewValidator(eng engine.Engine, cfg *Config) (*Validator, error) {
	if eng == nil {
		return nil, errors.New("engine is required")
	}
	if err := cfg.RunMeta.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run metadata: %w", err)
	}
	selection, err := ice.NewSelection(cfg.Include, cfg.Exclude)
	if err != nil {
		return nil, fmt.Errorf("invalid action pattern: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewLogger(cfg.RunMeta)
	}

	r := relay.New()
	return &Validator{
		engine:     eng,
		config:     cfg,
		logger:     logger,
		selection:  selection,
		relay:      r,
		dispatch:   newDispatcher(eng, r),
		persistCtx: context.Background(),
	}, nil
}

// State returns the current orchestrator state.
func (v *Validator) State() State {
	return v.state
}

func (v *Validator) transition(to State) {
	if !canTransition(v.state, to) {
		panic(fmt.Sprintf("runtime: invalid state transition %s -> %s", v.state, to))
	}
	v.logger.Debug("state transition", map[string]any{"from": v.state.String(), "to": to.String()})
	v.state = to
}

// Run validates items in order. Item failures are reported in the result
// and never stop the batch; cancellation stops it between actions.
//
// The engine callback and UI level are replaced for the duration of Run
// and restored before it returns on every path. A restore failure is
// returned as an error wrapping ErrRestoreFailed.
func (v *Validator) Run(ctx context.Context, items []string) (*RunResult, error) {
	start := time.Now()
	v.persistCtx = context.WithoutCancel(ctx)
	v.logger.Info("starting run", map[string]any{"items": len(items)})

	scope := acquireUI(v.engine, v.dispatch.OnMessage)
	defer func() { _ = scope.Release() }()

	result := &RunResult{RunMeta: v.config.RunMeta}
	for i, item := range items {
		if ctx.Err() != nil {
			for _, rest := range items[i:] {
				result.Items = append(result.Items, ItemResult{Path: rest, Status: types.ItemCanceled})
			}
			break
		}
		ir := v.validateItem(ctx, item)
		result.Items = append(result.Items, ir)
	}
	result.Canceled = ctx.Err() != nil

	if err := scope.Release(); err != nil {
		v.logger.Error("failed to restore engine UI state", map[string]any{"error": err.Error()})
		result.Fatal = err
	}

	// Undelivered events can only come from a callback that outlived its
	// action; drop them so a later run starts empty.
	if stale := v.relay.Drain(); len(stale) > 0 {
		v.logger.Warn("discarded undelivered diagnostics", map[string]any{"count": len(stale)})
	}

	if v.config.Policy != nil {
		flushCtx, cancel := context.WithTimeout(v.persistCtx, flushTimeout)
		if err := v.config.Policy.Flush(flushCtx); err != nil {
			v.storageFailed("policy flush failed", err)
		}
		cancel()
		result.PolicyStats = v.config.Policy.Stats()
		ps := result.PolicyStats
		v.config.Collector.AbsorbPolicyStats(ps.TotalOutputs, ps.OutputsPersisted, ps.OutputsDropped, ps.DroppedByKindStrings())
	}

	result.Outputs = v.seq
	result.Duration = time.Since(start)
	result.StorageErr = v.storageErr

	if v.config.Journal != nil {
		if err := v.config.Journal.WriteSummary(result.Summary()); err != nil {
			v.logger.Warn("journal summary write failed", map[string]any{"error": err.Error()})
		}
	}

	v.logger.Info("run completed", map[string]any{
		"outcome":  string(result.Outcome()),
		"items":    len(result.Items),
		"outputs":  result.Outputs,
		"duration": result.Duration.String(),
	})
	return result, result.Fatal
}

// validateItem prepares item and runs its selected actions.
func (v *Validator) validateItem(ctx context.Context, item string) (ir ItemResult) {
	start := time.Now()
	ir.Path = item
	v.current = &ir
	defer func() {
		ir.Duration = time.Since(start)
		v.current = nil
		v.transition(StateIdle)
	}()

	logger := v.logger.WithItem(item)
	v.config.Collector.IncItemStarted()
	v.dispatch.setItem(item)

	p, err := v.prepare(item)
	// Merges and transforms may report diagnostics of their own.
	v.drain(item, "")
	if err != nil {
		v.transition(StateFailed)
		ir.Status = types.ItemPreparationFailed
		ir.Err = err
		v.config.Collector.IncItemPreparationFailed()
		logger.Error("preparation failed", map[string]any{"error": err.Error()})
		v.deliverError(item, "", diag.FromError(err, v.engine.FormatMessage))
		return ir
	}
	v.transition(StatePrepared)
	ir.SuppressedConflicts = p.conflicts

	actions := v.selection.Apply(p.actions)
	ir.ActionsSelected = len(actions)
	logger.Debug("selected actions", map[string]any{"selected": len(actions), "available": len(p.actions)})

	v.transition(StateRunning)
	for _, action := range actions {
		if ctx.Err() != nil {
			logger.Warn("validation canceled", map[string]any{"next_action": action})
			ir.Status = types.ItemCanceled
			break
		}

		outcome := v.runAction(p.session, action)
		ir.ActionsRun++

		v.transition(StateDraining)
		v.drain(item, action)
		if outcome.Failed() {
			ir.ActionsFailed++
			v.deliverError(item, action, outcome.err)
		}
		v.transition(StateRunning)
	}

	if err := p.close(); err != nil {
		logger.Warn("failed to close working copy", map[string]any{"error": err.Error()})
	}

	if v.config.Policy != nil {
		if err := v.config.Policy.Flush(v.persistCtx); err != nil {
			v.storageFailed("policy flush failed", err)
		}
	}

	if ir.Status == types.ItemCanceled {
		v.transition(StateFailed)
		v.config.Collector.IncItemCanceled()
		return ir
	}
	v.transition(StateCompleted)
	ir.Status = types.ItemValidated
	v.config.Collector.IncItemValidated()
	return ir
}

// actionOutcome is the typed result of one action.
type actionOutcome struct {
	action string
	err    *diag.InstallerError
}

// Failed reports whether the engine reported an error for the action.
func (o actionOutcome) Failed() bool {
	return o.err != nil
}

func (v *Validator) runAction(s engine.Session, action string) actionOutcome {
	v.config.Collector.IncActionExecuted()
	if err := s.DoAction(action); err != nil {
		v.config.Collector.IncActionFailed()
		return actionOutcome{action: action, err: diag.FromError(err, v.engine.FormatMessage)}
	}
	return actionOutcome{action: action}
}
