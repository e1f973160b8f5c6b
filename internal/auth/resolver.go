package auth

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"gatherly/pkg/interfaces"
	"gatherly/pkg/types"
)

var _ interfaces.IdentityResolver = (*Resolver)(nil)

// Resolver maps bearer tokens to stored users
type Resolver struct {
	tokens *TokenIssuer
	users  interfaces.UserStore
	logger zerolog.Logger
}

func NewResolver(tokens *TokenIssuer, users interfaces.UserStore, logger zerolog.Logger) *Resolver {
	return &Resolver{
		tokens: tokens,
		users:  users,
		logger: logger.With().Str("component", "auth").Logger(),
	}
}

// Resolve returns the user a token was issued for. Bad signatures, expired
// tokens and tokens for deleted users all yield ErrInvalidCredential.
func (r *Resolver) Resolve(ctx context.Context, credential string) (*types.User, error) {
	userID, err := r.tokens.Parse(credential)
	if err != nil {
		r.logger.Debug().Err(err).Msg("token rejected")
		return nil, interfaces.ErrInvalidCredential
	}

	user, err := r.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, interfaces.ErrUserNotFound) {
			r.logger.Debug().Int64("user_id", userID).Msg("token for unknown user")
			return nil, interfaces.ErrInvalidCredential
		}
		return nil, err
	}
	return user, nil
}
