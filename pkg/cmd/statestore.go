// Package cmd provides shared construction helpers for the service binaries.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/relayone/onboarding/pkg/statestore"
	"github.com/relayone/onboarding/pkg/statestore/file"
	"github.com/relayone/onboarding/pkg/statestore/postgresql"
	"github.com/relayone/onboarding/pkg/statestore/redis"
)

// NewStateStore builds a checkpoint store from a connection URL. The scheme
// picks the backend: postgres://, redis://, file://; anything else is treated
// as a file path.
func NewStateStore(ctx context.Context, logger *slog.Logger, databaseURL string) (statestore.Store, error) {
	provider, _, _ := strings.Cut(databaseURL, "://")

	switch provider {
	case "postgres", "postgresql":
		return postgresql.NewStore(ctx, logger, databaseURL)
	case "redis", "rediss":
		return redis.NewStore(databaseURL)
	default:
		return file.NewStore(databaseURL), nil
	}
}
