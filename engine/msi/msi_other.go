//go:build !windows

package msi

import "github.com/justapithecus/msival/engine"

// New returns engine.ErrUnsupported outside Windows.
func New() (engine.Engine, error) {
	return nil, engine.ErrUnsupported
}
