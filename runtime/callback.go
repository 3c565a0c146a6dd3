package runtime

import (
	"sync/atomic"

	"github.com/justapithecus/msival/engine"
	"github.com/justapithecus/msival/relay"
	"github.com/justapithecus/msival/types"
)

// dispatcher turns engine messages into relay events. It runs on the
// engine's callback goroutine and only touches the relay and the current
// item path.
type dispatcher struct {
	eng   engine.Engine
	relay *relay.Relay
	item  atomic.Pointer[string]
}

func newDispatcher(eng engine.Engine, r *relay.Relay) *dispatcher {
	return &dispatcher{eng: eng, relay: r}
}

// setItem sets the path annotated on information events.
func (d *dispatcher) setItem(path string) {
	d.item.Store(&path)
}

func (d *dispatcher) currentItem() string {
	if p := d.item.Load(); p != nil {
		return *p
	}
	return ""
}

// OnMessage is the engine.Callback.
func (d *dispatcher) OnMessage(kind engine.MessageType, rec *types.Record) engine.Result {
	switch kind {
	case engine.MessageFatalExit, engine.MessageError:
		if rec != nil {
			d.relay.Post(types.ErrorEvent(rec))
		}
		return engine.ResultOK

	case engine.MessageWarning:
		if rec != nil {
			d.relay.Post(types.WarningEvent(d.format(rec)))
		}
		return engine.ResultOK

	case engine.MessageUser:
		if rec != nil {
			if text := d.format(rec); text != "" {
				d.relay.Post(types.InformationEvent(text, d.currentItem()))
			}
		}
		return engine.ResultOK

	default:
		return engine.ResultNone
	}
}

// format renders rec with the engine, falling back to Record.Format.
func (d *dispatcher) format(rec *types.Record) string {
	if text := d.eng.FormatMessage(rec); text != "" {
		return text
	}
	return rec.Format()
}
