// filepath: internal/repository/connection.go
package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"backoffice/internal/config"
	"backoffice/internal/logging"
	"backoffice/internal/shared"
)

var (
	instanceMu sync.Mutex
	instance   Backend
)

// SelectKind decides which engine the configuration asks for. Remote
// credentials or a serverless runtime select the remote engine; a
// serverless runtime without credentials is an error since there is no
// durable local disk to fall back to.
func SelectKind(cfg *config.Config) (Kind, error) {
	hasURL := cfg.Remote.URL != ""
	hasToken := cfg.Remote.AuthToken != ""

	if hasURL && hasToken {
		return KindRemote, nil
	}
	if !cfg.Runtime.Serverless && !hasURL && !hasToken {
		return KindLocal, nil
	}

	var missing []string
	if !hasURL {
		missing = append(missing, "url (BACKOFFICE_REMOTE_URL or TURSO_DATABASE_URL)")
	}
	if !hasToken {
		missing = append(missing, "auth token (BACKOFFICE_REMOTE_TOKEN or TURSO_AUTH_TOKEN)")
	}
	return KindRemote, fmt.Errorf("remote database needs %s: %w", strings.Join(missing, " and "), shared.ErrMissingCredentials)
}

// Open constructs a new, unshared backend for cfg.
func Open(ctx context.Context, cfg *config.Config) (Backend, error) {
	kind, err := SelectKind(cfg)
	if err != nil {
		return nil, err
	}

	logger := logging.Log.WithField("backend", string(kind))
	switch kind {
	case KindRemote:
		return OpenLibSQL(ctx, cfg.Remote.URL, cfg.Remote.AuthToken, logger)
	default:
		return OpenSQLite(ctx, cfg.Database.Path, cfg.BusyTimeoutDuration(), logger)
	}
}

// Connect returns the process-wide backend, opening it on first use.
// A failed attempt leaves nothing behind, so a later call may retry;
// after a success every caller gets the same handle until Shutdown.
func Connect(ctx context.Context, cfg *config.Config) (Backend, error) {
	instanceMu.Lock()
	defer instanceMu.Unlock()

	if instance != nil {
		return instance, nil
	}

	b, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	instance = b
	return instance, nil
}

// Shutdown closes the process-wide backend, if one is open.
func Shutdown() error {
	instanceMu.Lock()
	defer instanceMu.Unlock()

	if instance == nil {
		return nil
	}
	err := instance.Close()
	instance = nil
	return err
}
