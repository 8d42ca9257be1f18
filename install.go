package l10n

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/pitabwire/util"

	"github.com/pitabwire/l10n/backend"
	"github.com/pitabwire/l10n/rules"
)

const (
	tintAttrCodePackages = 12
	tintAttrCodeProgress = 214

	defaultRuntimeLocale = "C"
)

// ErrSupportCompletionFailed is matched by every error passed to
// SupportCompletionFailed.
var ErrSupportCompletionFailed = errors.New("language support completion failed")

// InstallState is the state of a language's support completion.
type InstallState int

const (
	InstallIdle InstallState = iota
	InstallInstalling
	InstallSucceeded
	InstallFailed
)

func (s InstallState) String() string {
	switch s {
	case InstallIdle:
		return "idle"
	case InstallInstalling:
		return "installing"
	case InstallSucceeded:
		return "succeeded"
	case InstallFailed:
		return "failed"
	default:
		return fmt.Sprintf("install-state(%d)", int(s))
	}
}

// SupportObserver receives the notifications of a support completion.
// Calls arrive on a background goroutine.
type SupportObserver interface {
	SupportCompletionProgress(percent int)
	SupportComplete()
	SupportCompletionFailed(err error)
}

// ObserverFuncs adapts plain functions to SupportObserver. Nil fields are
// ignored.
type ObserverFuncs struct {
	Progress func(percent int)
	Complete func()
	Failed   func(err error)
}

func (o ObserverFuncs) SupportCompletionProgress(percent int) {
	if o.Progress != nil {
		o.Progress(percent)
	}
}

func (o ObserverFuncs) SupportComplete() {
	if o.Complete != nil {
		o.Complete()
	}
}

func (o ObserverFuncs) SupportCompletionFailed(err error) {
	if o.Failed != nil {
		o.Failed(err)
	}
}

// TransactionError describes an install transaction that did not succeed.
type TransactionError struct {
	ID     string
	Status backend.ExitStatus
	Err    error
}

func (e *TransactionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transaction %s %s: %v", e.ID, e.Status, e.Err)
	}
	return fmt.Sprintf("transaction %s %s", e.ID, e.Status)
}

func (e *TransactionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSupportCompletionFailed}
	}
	return []error{ErrSupportCompletionFailed, e.Err}
}

// State is the state of the last support completion.
func (l *Language) State() InstallState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// CompleteSupport installs the packages found missing by IsSupportComplete.
// It returns once the transaction was started; the outcome is reported to the
// observer. Nothing happens when no package is missing or an install is
// already running.
func (l *Language) CompleteSupport(ctx context.Context) {
	l.mu.Lock()
	if l.closed || l.backend == nil || l.missing.IsEmpty() || l.state == InstallInstalling {
		l.mu.Unlock()
		return
	}
	pkgs := l.missing.Packages()
	l.state = InstallInstalling
	l.lastErr = nil
	l.done = make(chan struct{})
	l.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	log := util.Log(ctx).WithField("language", l.code)

	txn, err := l.commit(ctx, pkgs)
	if err != nil {
		log.WithError(err).Error("could not start language support installation")
		l.fail(fmt.Errorf("%w: %w", ErrSupportCompletionFailed, err))
		return
	}

	l.mu.Lock()
	l.txn = txn
	l.mu.Unlock()

	log.With(tint.Attr(tintAttrCodePackages, slog.Any("packages", txn.Packages()))).
		WithField("transaction", txn.ID()).
		Info("installing language support")

	go l.watch(ctx, txn)

	if runErr := txn.Run(ctx); runErr != nil {
		log.WithError(runErr).Warn("language support transaction did not start")
	}
}

func (l *Language) commit(ctx context.Context, pkgs []backend.Package) (backend.Transaction, error) {
	if err := l.backend.MarkForInstall(ctx, pkgs); err != nil {
		return nil, err
	}

	txn, err := l.backend.Commit(ctx)
	if err != nil {
		_ = l.backend.ReloadCache(ctx)
		return nil, err
	}

	if l.proxy != "" {
		txn.SetProxy(l.proxy)
	}
	txn.SetLocale(runtimeLocale())

	return txn, nil
}

// fail resolves an install that never got a transaction. The missing set is
// kept so that a retry installs the same packages.
func (l *Language) fail(err error) {
	l.mu.Lock()
	l.state = InstallFailed
	l.lastErr = err
	done := l.done
	closed := l.closed
	l.mu.Unlock()

	if closed {
		if releaseErr := l.release(context.Background()); releaseErr != nil {
			util.Log(context.Background()).WithError(releaseErr).Warn("could not release backend")
		}
	} else {
		l.notify().SupportCompletionFailed(err)
	}
	close(done)
}

func (l *Language) watch(ctx context.Context, txn backend.Transaction) {
	log := util.Log(ctx).WithField("language", l.code).WithField("transaction", txn.ID())

	for ev := range txn.Events() {
		switch ev.Kind {
		case backend.EventProgress:
			progressLog := log.With(tint.Attr(tintAttrCodeProgress, slog.Int("progress", ev.Progress)))
			progressLog.Debug("language support installation progress")
			progressLog.Release()

			if !l.isClosed() {
				l.notify().SupportCompletionProgress(ev.Progress)
			}
		case backend.EventFinished:
			l.finish(ctx, txn, ev.Status, nil)
			return
		case backend.EventError:
			l.finish(ctx, txn, backend.ExitFailed, ev.Err)
			return
		}
	}

	l.finish(ctx, txn, backend.ExitUnfinished, nil)
}

func (l *Language) finish(ctx context.Context, txn backend.Transaction, status backend.ExitStatus, err error) {
	log := util.Log(ctx).WithField("language", l.code).WithField("transaction", txn.ID())

	var failure error
	if status != backend.ExitSuccess || err != nil {
		failure = &TransactionError{ID: txn.ID(), Status: status, Err: err}
	}

	l.mu.Lock()
	l.txn = nil
	l.missing = rules.NewPackageSet()
	l.lastErr = failure
	if failure == nil {
		l.state = InstallSucceeded
	} else {
		l.state = InstallFailed
	}
	done := l.done
	closed := l.closed
	l.mu.Unlock()

	if reloadErr := l.backend.ReloadCache(ctx); reloadErr != nil {
		log.WithError(reloadErr).Warn("could not reload package cache")
	}

	switch {
	case closed:
		log.WithField("status", status.String()).Debug("language closed, dropping completion notification")
		if releaseErr := l.release(ctx); releaseErr != nil {
			log.WithError(releaseErr).Warn("could not release backend")
		}
	case failure != nil:
		log.WithError(failure).Error("language support installation failed")
		l.notify().SupportCompletionFailed(failure)
	default:
		log.Info("language support installed")
		l.notify().SupportComplete()
	}

	close(done)
}

// Wait blocks until the current support completion resolved and returns its
// failure, if any. It returns immediately when nothing was started.
func (l *Language) Wait(ctx context.Context) error {
	l.mu.Lock()
	done := l.done
	l.mu.Unlock()

	if done == nil {
		return nil
	}

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

func (l *Language) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func (l *Language) notify() SupportObserver {
	if l.observer == nil {
		return ObserverFuncs{}
	}
	return l.observer
}

// runtimeLocale is the locale of the running process, used for the
// messages of install transactions.
func runtimeLocale() string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return defaultRuntimeLocale
}
