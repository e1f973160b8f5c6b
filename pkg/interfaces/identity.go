package interfaces

import (
	"context"

	"gatherly/pkg/types"
)

// IdentityResolver maps an opaque bearer credential to the user it was
// issued for. Invalid, expired or orphaned credentials yield
// ErrInvalidCredential.
type IdentityResolver interface {
	Resolve(ctx context.Context, credential string) (*types.User, error)
}
