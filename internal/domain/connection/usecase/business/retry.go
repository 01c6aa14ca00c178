package business

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	pkgerrors "github.com/Conte777/NewsFlow/services/connector-service/pkg/errors"
)

const (
	maxRetries = 2
	retryBase  = time.Second

	connectOp  = "connect"
	verifyOp   = "verify"
	passwordOp = "password"
	repostOp   = "repost"
	resumeOp   = "resume"
	listenOp   = "listen"
)

// withRetry runs fn, repeating it with exponential backoff while it fails
// with a transport failure. Other errors are returned at once.
func (u *UseCase) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	b := retry.WithMaxRetries(maxRetries, retry.NewExponential(u.retryBase))

	attempt := 0
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !pkgerrors.KindOf(err).Retryable() {
			return err
		}

		u.metrics.RecordRetry()
		u.logger.Warn().
			Err(err).
			Str("operation", op).
			Int("attempt", attempt).
			Msg("Transport failure, retrying")
		return retry.RetryableError(err)
	})

	if err != nil && pkgerrors.KindOf(err) == pkgerrors.KindUnknown &&
		(errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return pkgerrors.Wrap(pkgerrors.KindTransportFailure, err, op+" interrupted")
	}
	return err
}
