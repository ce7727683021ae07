// Package cmd wires shared infrastructure (persistence, event bus, cache)
// for the binaries under cmd/.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	_ "github.com/lib/pq"

	"github.com/voicetree/voicetree/pkg/persistence"
	"github.com/voicetree/voicetree/pkg/persistence/file"
	"github.com/voicetree/voicetree/pkg/persistence/postgresql"
)

// NewPersistence selects the persistence backend from the database URL
// scheme: postgres URLs get PostgreSQL, everything else falls back to the
// file store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic("failed to initialize PostgreSQL persistence: " + err.Error())
		}

		return p
	default:
		return file.NewPersistence(databaseURL)
	}
}

func parsePersistenceProvider(databaseURL string) string {
	parts := strings.SplitN(databaseURL, "://", 2)

	return parts[0]
}
