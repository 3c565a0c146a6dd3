package runtime

import (
	"fmt"
	"sync"

	"github.com/justapithecus/msival/engine"
)

// uiState is the engine-wide UI configuration a run replaces.
type uiState struct {
	callback engine.Callback
	mask     engine.EventMask
	level    engine.UILevel
}

// uiScope installs a callback and silent UI level and holds the state it
// replaced. Release restores that state exactly once.
type uiScope struct {
	eng  engine.Engine
	prev uiState

	once sync.Once
	err  error
}

// acquireUI silences the engine's internal UI and installs cb for the
// validation message types.
func acquireUI(eng engine.Engine, cb engine.Callback) *uiScope {
	s := &uiScope{eng: eng}
	s.prev.level = eng.SetUILevel(engine.UISilent)
	s.prev.callback, s.prev.mask = eng.SetCallback(cb, engine.MaskValidation)
	return s
}

// Release restores the previous callback and UI level. Later calls return
// the first call's result.
func (s *uiScope) Release() error {
	s.once.Do(func() {
		s.err = s.restore()
	})
	return s.err
}

func (s *uiScope) restore() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrRestoreFailed, r)
		}
	}()
	s.eng.SetUILevel(s.prev.level)
	s.eng.SetCallback(s.prev.callback, s.prev.mask)
	return nil
}
