package runtime

import (
	"github.com/justapithecus/msival/journal"
	"github.com/justapithecus/msival/log"
	"github.com/justapithecus/msival/metrics"
	"github.com/justapithecus/msival/policy"
	"github.com/justapithecus/msival/types"
)

// OutputObserver is called synchronously, on the orchestrator's goroutine,
// for every delivered output in delivery order.
type OutputObserver func(*types.Output)

// Config configures a validation run.
type Config struct {
	// RunMeta is the run identity. Required.
	RunMeta *types.RunMeta

	// Include and Exclude are case-insensitive wildcard patterns selecting
	// ICE actions. Exclude is applied first.
	Include []string
	Exclude []string

	// Verbose delivers pure information ICE messages.
	Verbose bool

	// Rulesets are additional ruleset databases merged after the default.
	Rulesets []string
	// NoDefaultRuleset suppresses the default ruleset.
	NoDefaultRuleset bool
	// DefaultRuleset overrides engine discovery of the default ruleset.
	DefaultRuleset string

	// Transforms are applied in order before any merge.
	Transforms []string

	// WorkDir receives the private working copies. Empty means os.TempDir().
	WorkDir string

	// Policy persists delivered outputs. If nil, outputs are not persisted.
	Policy policy.Policy
	// Journal, if set, receives every delivered output and the run summary.
	Journal *journal.Writer
	// Observer, if set, receives every delivered output.
	Observer OutputObserver
	// Collector records run metrics. Nil disables metrics.
	Collector *metrics.Collector
	// Logger overrides the default run logger.
	Logger *log.Logger
}
