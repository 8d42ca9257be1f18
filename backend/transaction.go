package backend

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/pitabwire/util"
	"github.com/rs/xid"

	"github.com/pitabwire/l10n/workerpool"
)

const transactionEventBuffer = 32

// ErrTransactionStarted is returned when Run is called a second time.
var ErrTransactionStarted = errors.New("transaction already started")

// RunOptions is what a Runner gets to know about the transaction.
type RunOptions struct {
	ID       string
	Packages []string
	Proxy    string
	Locale   string
}

// Runner performs the actual package changes of a transaction. It reports
// progress through the callback and returns the exit status. A returned error
// is delivered as an EventError instead of a status.
type Runner func(ctx context.Context, opts RunOptions, progress func(int)) (ExitStatus, error)

// DoneFunc is invoked by the transaction once the runner returned and
// before the final event is delivered.
type DoneFunc func(status ExitStatus, err error)

type transaction struct {
	id       string
	packages []string
	workers  workerpool.Manager
	runner   Runner
	done     DoneFunc

	mu     sync.Mutex
	proxy  string
	locale string

	started atomic.Bool
	events  chan Event
}

// NewTransaction builds a Transaction whose Run executes runner on workers.
// It is the shared plumbing of the backend implementations.
func NewTransaction(workers workerpool.Manager, packages []string, runner Runner, done DoneFunc) Transaction {
	return &transaction{
		id:       xid.New().String(),
		packages: append([]string(nil), packages...),
		workers:  workers,
		runner:   runner,
		done:     done,
		events:   make(chan Event, transactionEventBuffer),
	}
}

func (t *transaction) ID() string {
	return t.id
}

func (t *transaction) Packages() []string {
	return append([]string(nil), t.packages...)
}

func (t *transaction) SetProxy(url string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.proxy = url
}

func (t *transaction) SetLocale(code string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.locale = code
}

func (t *transaction) Events() <-chan Event {
	return t.events
}

func (t *transaction) options() RunOptions {
	t.mu.Lock()
	defer t.mu.Unlock()
	return RunOptions{
		ID:       t.id,
		Packages: t.Packages(),
		Proxy:    t.proxy,
		Locale:   t.locale,
	}
}

func (t *transaction) Run(ctx context.Context) error {
	if !t.started.CompareAndSwap(false, true) {
		return ErrTransactionStarted
	}

	opts := t.options()
	job := workerpool.NewJobWithBuffer(func(ctx context.Context, pipe workerpool.JobResultPipe[Event]) error {
		status, err := t.runner(ctx, opts, func(percent int) {
			_ = pipe.WriteResult(ctx, Progress(percent))
		})
		if err != nil {
			return err
		}
		return pipe.WriteResult(ctx, Finished(status))
	}, transactionEventBuffer)

	if err := workerpool.SubmitJob(ctx, t.workers, job); err != nil {
		t.finish(ExitFailed, err)
		t.events <- Failure(err)
		close(t.events)
		return err
	}

	go t.forward(ctx, job)
	return nil
}

// forward relays job results as transaction events. A job that ends without
// a final result counts as unfinished.
func (t *transaction) forward(ctx context.Context, job workerpool.Job[Event]) {
	defer close(t.events)

	log := util.Log(ctx).WithField("transaction", t.id)

	for res := range job.ResultChan() {
		if res.IsError() {
			t.finish(ExitFailed, res.Error())
			t.events <- Failure(res.Error())
			return
		}

		ev := res.Item()
		if ev.Kind == EventFinished {
			t.finish(ev.Status, nil)
			t.events <- ev
			return
		}
		t.events <- ev
	}

	log.Warn("transaction ended without a final status")
	t.finish(ExitUnfinished, nil)
	t.events <- Finished(ExitUnfinished)
}

func (t *transaction) finish(status ExitStatus, err error) {
	if t.done != nil {
		t.done(status, err)
	}
}
