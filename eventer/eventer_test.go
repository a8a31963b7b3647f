package eventer_test

import (
	"strings"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/momentics/sockio/api"
	"github.com/momentics/sockio/eventer"
	"github.com/momentics/sockio/fake"
)

func TestInitAndAddPassThrough(t *testing.T) {
	engine := &fake.Eventer[func(int)]{}
	a := eventer.New[func(int)](engine)

	if err := a.Init(api.EventerConfig{MaxEvents: 64}); err != nil {
		t.Fatalf("init: %v", err)
	}
	inits := engine.Inits()
	if len(inits) != 1 || inits[0].MaxEvents != 64 {
		t.Fatalf("engine saw inits %v, want one with MaxEvents 64", inits)
	}

	var invoked int
	cb := func(fd int) { invoked = fd }
	if err := a.Add(9, api.Readable|api.Writable, cb); err != nil {
		t.Fatalf("add: %v", err)
	}
	adds := engine.Adds()
	if len(adds) != 1 {
		t.Fatalf("engine saw %d adds, want 1", len(adds))
	}
	reg := adds[0]
	if reg.Fd != 9 || reg.Interest != api.Readable|api.Writable {
		t.Errorf("registration %+v lost fd or interest", reg)
	}
	reg.Callback(9)
	if invoked != 9 {
		t.Error("callback did not survive the adapter untouched")
	}
}

func TestInitClassifiesQuotaExhaustion(t *testing.T) {
	engine := &fake.Eventer[func()]{InitErr: unix.EMFILE}
	a := eventer.New[func()](engine)

	err := a.Init(api.EventerConfig{})
	if !api.IsRetry(err) {
		t.Fatalf("got %v, want ErrRetry classification", err)
	}
	if errno, ok := api.ErrnoOf(err); !ok || errno != unix.EMFILE {
		t.Errorf("underlying errno lost: %v", err)
	}
}

func TestAddKeepsEngineClassification(t *testing.T) {
	classified := &api.Error{Op: "engine add", Kind: api.ErrRetry, Err: unix.ENOSPC}
	engine := &fake.Eventer[func()]{AddErr: classified}
	a := eventer.New[func()](engine)

	err := a.Add(3, api.Readable, func() {})
	if err != error(classified) {
		t.Fatalf("adapter rewrapped an already classified error: %v", err)
	}
}

func TestAddAbortsOnInvalidRegistration(t *testing.T) {
	log := &fake.CaptureLogger{}
	engine := &fake.Eventer[func()]{AddErr: unix.EBADF}
	a := eventer.New[func()](engine, eventer.WithLogger(log))

	defer func() {
		if recover() == nil {
			t.Fatal("invalid registration did not abort")
		}
		lines := log.Errors()
		if len(lines) != 1 || !strings.Contains(lines[0], "eventer add") {
			t.Errorf("diagnostic not logged: %v", lines)
		}
	}()
	a.Add(-1, api.Readable, func() {})
}
