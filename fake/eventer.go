// File: fake/eventer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package fake provides scriptable doubles for testing code built on the
// toolkit's interfaces.
package fake

import (
	"sync"

	"github.com/momentics/sockio/api"
)

// Registration records one Add call observed by the fake engine.
type Registration[CB any] struct {
	Fd       int
	Interest api.Interest
	Callback CB
}

// Eventer is a scriptable api.Eventer[CB]. Set InitErr or AddErr to make
// the corresponding operation fail; every call is recorded.
type Eventer[CB any] struct {
	mu      sync.Mutex
	InitErr error
	AddErr  error

	inits []api.EventerConfig
	adds  []Registration[CB]
}

func (f *Eventer[CB]) Init(cfg api.EventerConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inits = append(f.inits, cfg)
	return f.InitErr
}

func (f *Eventer[CB]) Add(fd int, interest api.Interest, cb CB) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adds = append(f.adds, Registration[CB]{Fd: fd, Interest: interest, Callback: cb})
	return f.AddErr
}

// Inits returns the recorded Init configurations.
func (f *Eventer[CB]) Inits() []api.EventerConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]api.EventerConfig(nil), f.inits...)
}

// Adds returns the recorded registrations.
func (f *Eventer[CB]) Adds() []Registration[CB] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Registration[CB](nil), f.adds...)
}
