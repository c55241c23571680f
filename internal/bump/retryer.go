package bump

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"github.com/simplesurance/snapbump/internal/logfields"
	"github.com/simplesurance/snapbump/internal/snaperr"
)

const defRetryTimeout = 2 * time.Hour

// Retryer executes a function repeatedly until it was successful or a
// cancel condition happened.
type Retryer struct {
	logger       *zap.Logger
	shutdownChan chan struct{}

	defTimeout                 time.Duration
	backoffInitialInterval     time.Duration
	backoffRandomizationFactor float64
}

func NewRetryer() *Retryer {
	return &Retryer{
		logger:       zap.L().Named("retryer"),
		shutdownChan: make(chan struct{}),

		defTimeout:                 defRetryTimeout,
		backoffInitialInterval:     5 * time.Second,
		backoffRandomizationFactor: backoff.DefaultRandomizationFactor,
	}
}

// Run executes fn until it was successful, it returned an error that does
// not wrap snaperr.RetryableError or the execution was aborted via the
// context.
// Retries are delayed with exponential backoff, or until the earliest
// retry time of the returned retryable error, whichever is later.
func (r *Retryer) Run(ctx context.Context, fn func(context.Context) error, logF []zap.Field) error {
	var tryCnt uint

	ctx, cancel := context.WithTimeout(ctx, r.defTimeout)
	defer cancel()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.backoffInitialInterval
	bo.RandomizationFactor = r.backoffRandomizationFactor
	bo.MaxElapsedTime = 0

	retryTimer := time.NewTimer(0)
	defer retryTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info(
				"operation cancelled",
				append(logF,
					logfields.Event("operation_cancelled"),
					zap.Uint("try_count", tryCnt),
					zap.NamedError("cancel_reason", ctx.Err()),
				)...,
			)

			return ctx.Err()

		case <-r.shutdownChan:
			r.logger.Info(
				"retryer terminated, operation aborted",
				append(logF,
					logfields.Event("operation_aborted"),
					zap.Uint("try_count", tryCnt),
				)...,
			)

			return errors.New("retryer was stopped")

		case <-retryTimer.C:
		}

		tryCnt++
		logger := r.logger.With(logF...).With(zap.Uint("try_count", tryCnt))

		err := fn(ctx)
		if err == nil {
			logger.Debug(
				"operation executed successfully",
				logfields.Event("operation_succeeded"),
			)

			return nil
		}

		logger = logger.With(zap.Error(err), zap.Duration("age", bo.GetElapsedTime()))

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			logger.Info("operation cancelled", logfields.Event("operation_cancelled"))
			return err
		}

		var retryErr *snaperr.RetryableError
		if !errors.As(err, &retryErr) {
			logger.Error(
				"operation failed, error is permanent",
				logfields.Event("operation_failed"),
			)

			return err
		}

		if deadline, ok := ctx.Deadline(); ok && retryErr.After.After(deadline) {
			logger.Error(
				"operation failed, next possible retry time is after timeout expiration",
				logfields.Event("operation_failed"),
				zap.Time("earliest_allowed_retry", retryErr.After),
			)

			return err
		}

		retryIn := bo.NextBackOff()
		if until := time.Until(retryErr.After); until > retryIn {
			retryIn = until
		}

		retryTimer.Reset(retryIn)
		logger.Info(
			"operation failed, retry scheduled",
			logfields.Event("operation_retry_scheduled"),
			zap.Duration("retry_in", retryIn),
		)
	}
}

// Stop notifies all Run() methods to terminate.
// It does not wait for their termination.
func (r *Retryer) Stop() {
	r.logger.Debug("retryer terminating", logfields.Event("retryer_terminating"))

	select {
	case <-r.shutdownChan:
		return // already closed
	default:
		close(r.shutdownChan)
	}
}
