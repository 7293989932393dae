package store

import (
	"context"
	"fmt"
)

// Driver names accepted by Open.
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Open returns the Repo for driver. dsn is a file path for sqlite and a URL for redis.
func Open(ctx context.Context, driver, dsn string) (Repo, error) {
	switch driver {
	case DriverSQLite, "":
		return OpenSQLite(ctx, dsn)
	case DriverRedis:
		return OpenRedis(ctx, dsn)
	case DriverMemory:
		return NewMemoryRepo(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
