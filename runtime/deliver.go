package runtime

import (
	"time"

	"github.com/justapithecus/msival/diag"
	"github.com/justapithecus/msival/ice"
	"github.com/justapithecus/msival/types"
)

// drain delivers every event the engine posted since the previous drain,
// in posting order, attributed to action.
func (v *Validator) drain(item, action string) {
	for _, ev := range v.relay.Drain() {
		switch ev.Kind {
		case types.EventError:
			ie := diag.FromRecord(ev.Record, v.engine.FormatMessage)
			v.deliver(&types.Output{Item: item, Action: action, Kind: types.OutputError, Error: ie.ErrorRecord()})

		case types.EventWarning:
			v.deliver(&types.Output{Item: item, Action: action, Kind: types.OutputWarning, Warning: ev.Text})

		case types.EventInformation:
			msg := ice.ParseMessage(ev.Text, ev.Path)
			if msg.Type == types.IceInformation && !v.config.Verbose {
				v.config.Collector.IncInformationSuppressed()
				if v.current != nil {
					v.current.Suppressed++
				}
				continue
			}
			v.deliver(&types.Output{Item: item, Action: action, Kind: types.OutputMessage, Message: &msg})
		}
	}
}

// deliverError delivers err as a classified error output.
func (v *Validator) deliverError(item, action string, ie *diag.InstallerError) {
	v.deliver(&types.Output{Item: item, Action: action, Kind: types.OutputError, Error: ie.ErrorRecord()})
}

// deliverWarning delivers a warning raised by the orchestrator itself.
func (v *Validator) deliverWarning(item, text string) {
	v.deliver(&types.Output{Item: item, Kind: types.OutputWarning, Warning: text})
}

// deliver stamps out and hands it to the observer, journal, and policy.
// Persistence failures are recorded but never stop validation.
func (v *Validator) deliver(out *types.Output) {
	v.seq++
	out.RunID = v.config.RunMeta.RunID
	out.Seq = v.seq
	out.Ts = time.Now().UTC().Format(time.RFC3339Nano)

	if ir := v.current; ir != nil {
		switch {
		case out.Kind == types.OutputWarning:
			ir.Warnings++
		case out.Kind == types.OutputMessage:
			ir.Messages++
		}
		if out.IsFailure() {
			ir.Errors++
		}
	}
	v.config.Collector.IncDelivered(string(out.Kind))

	if v.config.Observer != nil {
		v.config.Observer(out)
	}
	if v.config.Journal != nil {
		if err := v.config.Journal.WriteOutput(out); err != nil {
			v.storageFailed("journal write failed", err)
		}
	}
	if v.config.Policy != nil {
		if err := v.config.Policy.Ingest(v.persistCtx, out); err != nil {
			v.storageFailed("policy ingest failed", err)
		}
	}
}

// storageFailed records the first persistence error and logs every one.
func (v *Validator) storageFailed(msg string, err error) {
	if v.storageErr == nil {
		v.storageErr = err
	}
	v.logger.Warn(msg, map[string]any{"error": err.Error()})
}
