package resolve

import (
	"context"
	"time"

	"git.home.luguber.info/inful/notedown/internal/errors"
)

// pollUntil evaluates pred at interval until it reports true, the timeout
// elapses, or ctx is canceled. Every VERIFY in the engine goes through this
// one primitive; no class carries its own sleep loop.
func pollUntil(ctx context.Context, timeout, interval time.Duration, pred func(context.Context) (bool, error)) error {
	deadline := time.Now().Add(timeout)
	for {
		ok, err := pred(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if !time.Now().Before(deadline) {
			return errors.TimeoutError("condition not met before deadline").
				WithContext("timeout", timeout.String())
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
