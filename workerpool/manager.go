package workerpool

import (
	"context"
	"errors"

	"github.com/pitabwire/util"

	"github.com/pitabwire/l10n/config"
)

type manager struct {
	pool WorkerPool
}

// NewManager creates the pool that runs background work such as package
// transactions. cfg may be nil, in which case a small single pool is used.
func NewManager(
	ctx context.Context,
	cfg config.ConfigurationWorkerPool,
	opts ...Option,
) (Manager, error) {
	log := util.Log(ctx)

	poolOpts := defaultWorkerPoolOpts(cfg, log)

	for _, opt := range opts {
		opt(poolOpts)
	}

	pool, err := setupWorkerPool(ctx, poolOpts)
	if err != nil {
		return nil, err
	}

	return &manager{pool: pool}, nil
}

func (m *manager) GetPool() (WorkerPool, error) {
	if m.pool == nil {
		return nil, errors.New("worker pool is not configured")
	}
	return m.pool, nil
}

func (m *manager) Shutdown(_ context.Context) error {
	if m.pool != nil {
		m.pool.Shutdown()
	}
	return nil
}

// SubmitJob hands job to the pool. Results are read from the job's pipe,
// which is closed once the job function returns. A returned error is written
// to the pipe before it closes.
func SubmitJob[T any](ctx context.Context, m Manager, job Job[T]) error {
	if m == nil {
		return errors.New("worker manager is nil")
	}

	pool, err := m.GetPool()
	if err != nil {
		return err
	}

	return pool.Submit(ctx, createJobExecutionTask(ctx, job))
}

func createJobExecutionTask[T any](ctx context.Context, job Job[T]) func() {
	return func() {
		defer job.Close()

		log := util.Log(ctx).WithField("job", job.ID())

		if job.F() == nil {
			log.Error("job function is nil")
			_ = job.WriteError(ctx, errors.New("job function is nil"))
			return
		}

		executionErr := job.F()(ctx, job)
		if executionErr == nil || errors.Is(executionErr, ErrWorkerPoolResultChannelIsClosed) {
			return
		}

		log.WithError(executionErr).Warn("job failed")
		_ = job.WriteError(ctx, executionErr)
	}
}
