package workerpool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/pitabwire/util"
	"github.com/rs/xid"

	"github.com/pitabwire/l10n/config"
)

var ErrWorkerPoolResultChannelIsClosed = errors.New("worker job is already closed")

// Options defines configurable options for the worker pool.
type Options struct {
	PoolCount          int
	SinglePoolCapacity int
	Concurrency        int
	ExpiryDuration     time.Duration
	PanicHandler       func(any)
	Logger             *util.LogEntry
}

// Option defines a function that configures worker pool options.
type Option func(*Options)

// WithSinglePoolCapacity sets the capacity for a single worker pool.
func WithSinglePoolCapacity(capacity int) Option {
	return func(opts *Options) {
		opts.SinglePoolCapacity = capacity
	}
}

// WithPoolPanicHandler replaces the default handler, which logs the panic of
// a task. The task's job pipe is closed before the handler runs.
func WithPoolPanicHandler(handler func(any)) Option {
	return func(opts *Options) {
		opts.PanicHandler = handler
	}
}

func defaultWorkerPoolOpts(cfg config.ConfigurationWorkerPool, log *util.LogEntry) *Options {
	opts := &Options{
		Concurrency:        runtime.NumCPU(),
		SinglePoolCapacity: 1,
		PoolCount:          1,
		ExpiryDuration:     time.Second,
		Logger:             log,
		PanicHandler: func(p any) {
			log.WithField("panic", p).Error("worker task panicked")
		},
	}

	if cfg != nil {
		opts.Concurrency = runtime.NumCPU() * cfg.GetCPUFactor()
		opts.SinglePoolCapacity = cfg.GetCapacity()
		opts.PoolCount = cfg.GetCount()
		opts.ExpiryDuration = cfg.GetExpiryDuration()
	}

	return opts
}

func setupWorkerPool(_ context.Context, wopts *Options) (WorkerPool, error) {
	var antsOpts []ants.Option
	if wopts.ExpiryDuration > 0 {
		antsOpts = append(antsOpts, ants.WithExpiryDuration(wopts.ExpiryDuration))
	}
	if wopts.Concurrency > 0 {
		antsOpts = append(antsOpts, ants.WithMaxBlockingTasks(wopts.Concurrency))
	}
	if wopts.PanicHandler != nil {
		antsOpts = append(antsOpts, ants.WithPanicHandler(wopts.PanicHandler))
	}
	if wopts.Logger != nil {
		antsOpts = append(antsOpts, ants.WithLogger(wopts.Logger))
	}

	if wopts.PoolCount <= 1 {
		p, err := ants.NewPool(wopts.SinglePoolCapacity, antsOpts...)
		if err != nil {
			return nil, err
		}
		return &singlePoolWrapper{pool: p}, nil
	}

	mp, err := ants.NewMultiPool(wopts.PoolCount, wopts.SinglePoolCapacity, ants.LeastTasks, antsOpts...)
	if err != nil {
		return nil, err
	}
	return &multiPoolWrapper{multiPool: mp}, nil
}

// singlePoolWrapper adapts *ants.Pool to the WorkerPool interface.
type singlePoolWrapper struct {
	pool *ants.Pool
}

func (w *singlePoolWrapper) Submit(ctx context.Context, task func()) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	return w.pool.Submit(task)
}

func (w *singlePoolWrapper) Shutdown() {
	w.pool.Release()
}

// multiPoolWrapper adapts *ants.MultiPool to the WorkerPool interface.
type multiPoolWrapper struct {
	multiPool *ants.MultiPool
}

func (w *multiPoolWrapper) Submit(ctx context.Context, task func()) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	return w.multiPool.Submit(task)
}

func (w *multiPoolWrapper) Shutdown() {
	_ = w.multiPool.ReleaseTimeout(time.Second)
}

type jobResult[T any] struct {
	item  T
	error error
}

func (j *jobResult[T]) IsError() bool {
	return j.error != nil
}

func (j *jobResult[T]) Error() error {
	return j.error
}

func (j *jobResult[T]) Item() T {
	return j.item
}

func Result[T any](item T) JobResult[T] {
	return &jobResult[T]{item: item}
}

func ErrorResult[T any](err error) JobResult[T] {
	return &jobResult[T]{error: err}
}

// JobImpl is the concrete implementation of a Job.
type JobImpl[T any] struct {
	id             string
	resultChan     chan JobResult[T]
	resultChanDone atomic.Bool
	processFunc    func(ctx context.Context, result JobResultPipe[T]) error
}

func (ji *JobImpl[T]) ID() string {
	return ji.id
}

func (ji *JobImpl[T]) F() func(ctx context.Context, result JobResultPipe[T]) error {
	return ji.processFunc
}

func (ji *JobImpl[T]) ResultChan() <-chan JobResult[T] {
	return ji.resultChan
}

func (ji *JobImpl[T]) ReadResult(ctx context.Context) (JobResult[T], bool) {
	return SafeChannelRead(ctx, ji.resultChan)
}

func (ji *JobImpl[T]) WriteError(ctx context.Context, val error) error {
	if ji.resultChanDone.Load() {
		return ErrWorkerPoolResultChannelIsClosed
	}
	return SafeChannelWrite(ctx, ji.resultChan, ErrorResult[T](val))
}

func (ji *JobImpl[T]) WriteResult(ctx context.Context, val T) error {
	if ji.resultChanDone.Load() {
		return ErrWorkerPoolResultChannelIsClosed
	}
	return SafeChannelWrite(ctx, ji.resultChan, Result[T](val))
}

func (ji *JobImpl[T]) Close() {
	if ji.resultChanDone.CompareAndSwap(false, true) {
		close(ji.resultChan)
	}
}

// NewJob creates a new job with the default result buffer size.
func NewJob[T any](process func(ctx context.Context, result JobResultPipe[T]) error) Job[T] {
	return NewJobWithBuffer[T](process, defaultJobResultBufferSize)
}

// NewJobWithBuffer creates a new job with a specified result buffer size.
func NewJobWithBuffer[T any](process func(ctx context.Context, result JobResultPipe[T]) error, buffer int) Job[T] {
	return &JobImpl[T]{
		id:          xid.New().String(),
		resultChan:  make(chan JobResult[T], buffer),
		processFunc: process,
	}
}

// SafeChannelWrite writes a value to a channel, returning an error if the context is canceled.
func SafeChannelWrite[T any](ctx context.Context, ch chan<- JobResult[T], value JobResult[T]) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("context canceled while writing to channel: %w", ctx.Err())
	case ch <- value:
		return nil
	}
}

// SafeChannelRead reads a value from a channel, returning false if the channel is closed or the context is canceled.
func SafeChannelRead[T any](ctx context.Context, ch <-chan JobResult[T]) (JobResult[T], bool) {
	select {
	case <-ctx.Done():
		var zero JobResult[T]
		return zero, false
	case result, ok := <-ch:
		return result, ok
	}
}

// ConsumeResultStream feeds every item of the job to consumer until the job
// closes its pipe. The first error result ends consumption.
func ConsumeResultStream[T any](ctx context.Context, job JobResultPipe[T], consumer func(T)) error {
	for {
		res, ok := job.ReadResult(ctx)
		if !ok {
			return ctx.Err()
		}

		if res.IsError() {
			return res.Error()
		}

		consumer(res.Item())
	}
}
