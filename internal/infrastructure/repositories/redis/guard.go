package redis

import (
	"context"
	"errors"

	"github.com/Muab01/samVR/internal/core/domain"
	"github.com/Muab01/samVR/pkg/circuitbreaker"
	"github.com/Muab01/samVR/pkg/retry"
)

// guard combines retrying and circuit breaking around redis calls. Domain
// not-found errors are permanent: retrying them only delays the caller,
// and they must not trip the breaker open.
type guard struct {
	breaker *circuitbreaker.CircuitBreaker
	retry   retry.Config
}

func newGuard() *guard {
	cfg := retry.DefaultConfig()
	cfg.Permanent = []error{
		domain.ErrVenueNotFound,
		domain.ErrCameraNotFound,
		domain.ErrUserNotFound,
		context.Canceled,
		context.DeadlineExceeded,
	}
	return &guard{
		breaker: circuitbreaker.New(circuitbreaker.DefaultConfig()),
		retry:   cfg,
	}
}

func (g *guard) do(ctx context.Context, op func() error) error {
	var opErr error
	err := g.breaker.Execute(func() error {
		opErr = retry.Do(ctx, g.retry, op)
		if isPermanentDomainErr(opErr) {
			// Report success to the breaker; the datastore answered.
			return nil
		}
		return opErr
	})
	if opErr != nil {
		return opErr
	}
	return err
}

func isPermanentDomainErr(err error) bool {
	if err == nil {
		return false
	}
	for _, sentinel := range []error{domain.ErrVenueNotFound, domain.ErrCameraNotFound, domain.ErrUserNotFound} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
