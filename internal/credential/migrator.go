package credential

import (
	"context"
	"fmt"
	"log/slog"
)

// StoredCredential is one user's stored secret as the migrator sees it.
type StoredCredential struct {
	UserID string
	Secret string
}

// Store is the slice of the user store the migrator needs.
type Store interface {
	ListCredentials(ctx context.Context) ([]StoredCredential, error)
	UpdateCredential(ctx context.Context, userID, encoded string) error
}

// Migrator upgrades legacy plaintext credentials to hashed form. It runs once
// at startup, before the service takes login traffic. Detection is structural
// (the encoded string itself), so the sweep is idempotent and tolerates a
// concurrent run: an already-hashed row is never hashed again, and the worst
// outcome of a race is one wasted write of an equally valid hash.
type Migrator struct {
	hasher *Hasher
	store  Store
	logger *slog.Logger
}

// NewMigrator wires a migrator over the given store.
func NewMigrator(hasher *Hasher, store Store, logger *slog.Logger) *Migrator {
	return &Migrator{hasher: hasher, store: store, logger: logger}
}

// Run sweeps every stored credential and hashes the ones still in plaintext
// state, persisting each replacement in place. A row that fails to hash or
// persist is logged and skipped so one bad record cannot block the rest;
// failure to list the credentials at all aborts the sweep, which is safe to
// retry on the next startup. Returns the number of rows migrated.
func (m *Migrator) Run(ctx context.Context) (int, error) {
	creds, err := m.store.ListCredentials(ctx)
	if err != nil {
		return 0, fmt.Errorf("list credentials: %w", err)
	}

	migrated := 0
	for _, cred := range creds {
		if IsHashed(cred.Secret) {
			continue
		}

		encoded, err := m.hasher.Hash(cred.Secret)
		if err != nil {
			m.logger.Error("hash legacy credential",
				slog.String("user_id", cred.UserID), slog.Any("error", err))
			continue
		}

		if err := m.store.UpdateCredential(ctx, cred.UserID, encoded); err != nil {
			m.logger.Error("persist migrated credential",
				slog.String("user_id", cred.UserID), slog.Any("error", err))
			continue
		}

		migrated++
	}

	if migrated > 0 {
		m.logger.Info("credential migration sweep completed",
			slog.Int("migrated", migrated), slog.Int("total", len(creds)))
	}

	return migrated, nil
}
