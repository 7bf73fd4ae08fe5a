package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stratovia/cpi/pkg/store"
	"github.com/stratovia/cpi/pkg/store/postgresql"
	"github.com/stratovia/cpi/pkg/store/sqlite"
)

// NewStore opens the audit store selected by the database URL scheme.
// An empty URL means the host runs storeless: execution works, history
// endpoints report it as disabled.
func NewStore(ctx context.Context, logger *slog.Logger, databaseURL string) (store.Store, error) {
	if databaseURL == "" {
		return nil, nil
	}

	scheme, rest, found := strings.Cut(databaseURL, "://")
	if !found {
		return nil, fmt.Errorf("database URL '%s' has no scheme, expected sqlite:// or postgres://", databaseURL)
	}

	switch scheme {
	case "sqlite":
		return sqlite.NewStore(ctx, logger, rest)
	case "postgres", "postgresql":
		return postgresql.NewStore(ctx, logger, databaseURL)
	default:
		return nil, fmt.Errorf("unsupported database scheme '%s', expected sqlite:// or postgres://", scheme)
	}
}
