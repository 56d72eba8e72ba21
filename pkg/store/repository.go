package store

import (
	"context"
	"errors"
	"fmt"
	"io"

	apperrors "github.com/zeriontech/codestore/pkg/errors"
)

//go:generate mockgen -destination=mock_store/mock_repository.go -package=mock_store . Repository

// Repository is the storage contract every backend satisfies.
//
// GetItem returns ErrNotFound for a missing key and never checks expiry.
// PutItem overwrites any previous item and returns the item as persisted.
// DeleteItem is idempotent. Backend failures match ErrUnavailable.
type Repository interface {
	GetItem(ctx context.Context, key string) (*Item, error)
	PutItem(ctx context.Context, key, value string, ttl int64) (*Item, error)
	DeleteItem(ctx context.Context, key string) error
}

// Backend is a Repository that owns a connection or file handle.
type Backend interface {
	Repository
	io.Closer
}

var (
	ErrNotFound    = apperrors.NewAppError(apperrors.ErrNotFound, "store: item not found", nil)
	ErrUnavailable = apperrors.NewAppError(apperrors.ErrUnavailable, "store: unavailable", nil)
	ErrEmptyKey    = apperrors.NewAppError(apperrors.ErrInvalidArgument, "store: key must not be empty", nil)
)

// unavailable wraps a backend failure so that errors.Is(err, ErrUnavailable) holds.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(ErrUnavailable, err))
}

func validateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return nil
}
