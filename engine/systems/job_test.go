package systems

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/spaghettifunk/anima-gfx/engine/core"
)

func TestNewJobSystemRejects(t *testing.T) {
	if _, err := NewJobSystem(0, 1); !errors.Is(err, ErrNoWorkers) {
		t.Fatalf("have %v\nwant %v", err, ErrNoWorkers)
	}
	if _, err := NewJobSystem(1, -1); !errors.Is(err, ErrNegativeChannelSize) {
		t.Fatalf("have %v\nwant %v", err, ErrNegativeChannelSize)
	}
}

func TestStageIsABarrier(t *testing.T) {
	js, err := NewJobSystem(4, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer js.Shutdown()

	var ran int32
	tasks := make([]JobTask, 16)
	for i := range tasks {
		tasks[i] = JobTask{Name: "count", OnStart: func() error {
			atomic.AddInt32(&ran, 1)
			return nil
		}}
	}
	if errs := js.Stage(tasks...); errs != nil {
		t.Fatalf("have %v\nwant no errors", errs)
	}
	if have := atomic.LoadInt32(&ran); have != 16 {
		t.Fatalf("have %d\nwant %d", have, 16)
	}
}

func TestStageReportsErrorsInOrder(t *testing.T) {
	js, err := NewJobSystem(2, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer js.Shutdown()

	boom := errors.New("boom")
	var failures, completions int32
	errs := js.Stage(
		JobTask{Name: "ok", OnStart: func() error { return nil }, OnComplete: func() { atomic.AddInt32(&completions, 1) }},
		JobTask{Name: "fail", OnStart: func() error { return boom }, OnFailure: func(error) { atomic.AddInt32(&failures, 1) }},
		JobTask{Name: "panic", OnStart: func() error { panic("native failure") }},
	)
	if len(errs) != 3 {
		t.Fatalf("have %d errors\nwant 3 slots", len(errs))
	}
	if errs[0] != nil {
		t.Fatalf("have %v\nwant nil", errs[0])
	}
	if !errors.Is(errs[1], boom) {
		t.Fatalf("have %v\nwant %v", errs[1], boom)
	}
	if !errors.Is(errs[2], core.ErrNotSpecified) {
		t.Fatalf("have %v\nwant a gfx error", errs[2])
	}
	if failures != 1 || completions != 1 {
		t.Fatalf("have %d failures %d completions\nwant 1 and 1", failures, completions)
	}
}

func TestSubmitAfterShutdown(t *testing.T) {
	js, err := NewJobSystem(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := js.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if err := js.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if err := js.Submit(JobTask{Name: "late"}); !errors.Is(err, ErrShutdown) {
		t.Fatalf("have %v\nwant %v", err, ErrShutdown)
	}
	errs := js.Stage(JobTask{Name: "late"})
	if len(errs) != 1 || !errors.Is(errs[0], ErrShutdown) {
		t.Fatalf("have %v\nwant [%v]", errs, ErrShutdown)
	}
}
