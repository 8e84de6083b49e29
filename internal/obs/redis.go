package obs

import (
	"errors"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

// InstrumentRedis attaches OpenTelemetry tracing, and optionally metrics, hooks
// to client. Failures are joined so callers can log and carry on.
func InstrumentRedis(client *redis.Client, withMetrics bool) error {
	if client == nil {
		return errors.New("redis client is nil")
	}
	var errs []error
	if err := redisotel.InstrumentTracing(client); err != nil {
		errs = append(errs, err)
	}
	if withMetrics {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
