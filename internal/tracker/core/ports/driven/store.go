package driven

import (
	"context"

	"freight-tracker/internal/tracker/core/domain/model"
)

// Credential store keys.
const (
	KeyAccessToken = "accessToken"
	KeyUser        = "user"
)

// ICredentialStore is the durable key/value store for session credentials.
// Values are opaque to the store; missing keys return ErrKeyNotFound from the
// implementation, not empty strings.
type ICredentialStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// IOfflineQueue is the durable buffer of location payloads that failed to
// send. Append never drops; Clear is only called after a successful flush.
type IOfflineQueue interface {
	Append(ctx context.Context, payload model.LocationUpdatePayload) error
	Load(ctx context.Context) ([]model.LocationUpdatePayload, error)
	Clear(ctx context.Context) error
}
