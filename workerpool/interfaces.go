package workerpool

import (
	"context"
)

const defaultJobResultBufferSize = 10

// JobResult carries either a value of type T or an error.
type JobResult[T any] interface {
	IsError() bool
	Error() error
	Item() T
}

// JobResultPipe is the channel a running job streams its results through.
type JobResultPipe[T any] interface {
	ResultChan() <-chan JobResult[T]
	WriteError(ctx context.Context, val error) error
	WriteResult(ctx context.Context, val T) error
	ReadResult(ctx context.Context) (JobResult[T], bool)
	Close()
}

// Job is a unit of background work producing results of type T.
type Job[T any] interface {
	JobResultPipe[T]
	F() func(ctx context.Context, result JobResultPipe[T]) error
	ID() string
}

type Manager interface {
	GetPool() (WorkerPool, error)
	Shutdown(ctx context.Context) error
}

// WorkerPool hides whether a single ants.Pool or an ants.MultiPool is in use.
type WorkerPool interface {
	Submit(ctx context.Context, task func()) error
	Shutdown()
}
