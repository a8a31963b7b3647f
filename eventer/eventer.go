// File: eventer/eventer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package eventer

import (
	"github.com/momentics/sockio/api"
)

// Adapter reclassifies the failures of one engine. CB is the engine's
// callback shape; the adapter never inspects callback values.
type Adapter[CB any] struct {
	engine api.Eventer[CB]
	log    api.Logger
}

type settings struct {
	log api.Logger
}

// Option customizes an Adapter.
type Option func(*settings)

// WithLogger routes fatal diagnostics to l.
func WithLogger(l api.Logger) Option {
	return func(st *settings) {
		if l != nil {
			st.log = l
		}
	}
}

// New wraps engine.
func New[CB any](engine api.Eventer[CB], opts ...Option) *Adapter[CB] {
	st := settings{log: api.NopLogger}
	for _, o := range opts {
		o(&st)
	}
	return &Adapter[CB]{engine: engine, log: st.log}
}

// Init runs the engine's initialization. Quota or memory exhaustion reports
// api.ErrRetry: defer and retry engine setup later.
func (a *Adapter[CB]) Init(cfg api.EventerConfig) error {
	return a.classify("eventer init", a.engine.Init(cfg))
}

// Add registers fd with the engine for interest, attaching cb. Exhaustion of
// the engine's watch quota reports api.ErrRetry; every other failure means
// the registration itself was invalid and aborts.
func (a *Adapter[CB]) Add(fd int, interest api.Interest, cb CB) error {
	return a.classify("eventer add", a.engine.Add(fd, interest, cb))
}

func (a *Adapter[CB]) classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if api.IsRetry(err) {
		// The engine classified itself; pass it through.
		return err
	}
	if errno, ok := api.ErrnoOf(err); ok && api.RetryableErrno(errno) {
		return &api.Error{Op: op, Kind: api.ErrRetry, Err: err}
	}
	api.Fatalf(a.log, "%s: %v", op, err)
	return nil
}
