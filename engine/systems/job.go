package systems

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/anima-gfx/engine/core"
)

/** @brief A unit of work run by one worker of the job system. */
type JobTask struct {
	Name string
	// OnStart does the work. A panic is recovered and reported as an error.
	OnStart func() error
	// OnFailure runs on the worker after OnStart failed.
	OnFailure func(err error)
	// OnComplete runs on the worker after OnStart succeeded.
	OnComplete func()
}

type JobSystem struct {
	numWorkers int
	jobQueue   chan job
	wg         sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

type job struct {
	task JobTask
	done func(error)
}

var ErrNoWorkers = fmt.Errorf("attempting to create worker pool with less than 1 worker")
var ErrNegativeChannelSize = fmt.Errorf("attempting to create worker pool with a negative channel size")
var ErrShutdown = fmt.Errorf("job system is shut down")

func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, ErrNegativeChannelSize
	}

	js := &JobSystem{
		numWorkers: numWorkers,
		jobQueue:   make(chan job, channelSize),
	}

	js.start()

	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for j := range js.jobQueue {
				err := run(j.task)
				if err != nil {
					if j.task.OnFailure != nil {
						j.task.OnFailure(err)
					}
				} else if j.task.OnComplete != nil {
					j.task.OnComplete()
				}
				if j.done != nil {
					j.done(err)
				}
			}
		}()
	}
}

func run(task JobTask) error {
	if task.OnStart == nil {
		return nil
	}
	return core.Guard("job_"+task.Name, task.OnStart)
}

func (js *JobSystem) Workers() int {
	return js.numWorkers
}

/**
 * @brief Shuts the job system down after the queued jobs ran.
 */
func (js *JobSystem) Shutdown() error {
	js.mu.Lock()
	if js.closed {
		js.mu.Unlock()
		return nil
	}
	js.closed = true
	close(js.jobQueue)
	js.mu.Unlock()
	js.wg.Wait()
	return nil
}

/**
 * @brief Submits the provided job to be queued for execution.
 * @param jt The description of the job to be executed.
 */
func (js *JobSystem) Submit(jt JobTask) error {
	return js.submit(job{task: jt})
}

func (js *JobSystem) submit(j job) error {
	js.mu.Lock()
	defer js.mu.Unlock()
	if js.closed {
		return ErrShutdown
	}
	js.jobQueue <- j
	return nil
}

// Stage runs every task and waits for all of them, a barrier between the
// steps of a frame. The errors are returned in task order; a nil slice
// means every task succeeded.
func (js *JobSystem) Stage(tasks ...JobTask) []error {
	if len(tasks) == 0 {
		return nil
	}
	errs := make([]error, len(tasks))
	var wg sync.WaitGroup
	failed := false
	var failedMu sync.Mutex
	for i := range tasks {
		i := i
		wg.Add(1)
		err := js.submit(job{task: tasks[i], done: func(err error) {
			if err != nil {
				failedMu.Lock()
				errs[i] = err
				failed = true
				failedMu.Unlock()
			}
			wg.Done()
		}})
		if err != nil {
			wg.Done()
			failedMu.Lock()
			errs[i] = err
			failed = true
			failedMu.Unlock()
		}
	}
	wg.Wait()
	if !failed {
		return nil
	}
	return errs
}
