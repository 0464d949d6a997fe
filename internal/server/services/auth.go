// Package services contains server-side business logic. This file implements
// AuthService, which runs the provider OAuth login and stores the encrypted
// refresh token.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/redditscheduler/internal/common"
	"github.com/dmitrijs2005/redditscheduler/internal/cryptox"
	"github.com/dmitrijs2005/redditscheduler/internal/logging"
	"github.com/dmitrijs2005/redditscheduler/internal/server/auth"
	"github.com/dmitrijs2005/redditscheduler/internal/server/config"
	"github.com/dmitrijs2005/redditscheduler/internal/server/reddit"
	"github.com/dmitrijs2005/redditscheduler/internal/server/repositories/repomanager"
)

// Messages shown to the user after a failed login.
const (
	msgMissingCodeOrState = "Missing code or state parameter"
	msgInvalidState       = "Invalid or expired state parameter"
	msgCredentials        = "Reddit credentials not configured"
	msgEncryptionKey      = "Encryption key not configured"
	msgExchangeFailed     = "Failed to exchange authorization code"
	msgNoRefreshToken     = "No refresh token received"
	msgUserInfoFailed     = "Failed to get user info"
	msgAuthFailed         = "Authentication failed"
)

// AuthService handles the OAuth round trip:
// - LoginURL: mint a state token and build the consent URL
// - HandleCallback: exchange the code, identify the user, store the token
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	provider    Provider
	cipher      *cryptox.TokenCipher
	oauthReady  error
	stateSecret []byte
	stateTTL    time.Duration
	verifyState bool
	logger      logging.Logger
}

// NewAuthService constructs an AuthService. cipher may be nil when no key is
// configured; callbacks then fail with a configuration message. An empty
// state secret is replaced by a random one, valid for this process only.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, p Provider, c *cryptox.TokenCipher, cfg *config.Config, l logging.Logger) (*AuthService, error) {
	secret := cfg.StateSecret
	if secret == "" {
		s, err := common.MakeRandHexString(32)
		if err != nil {
			return nil, fmt.Errorf("state secret: %w", err)
		}
		secret = s
	}
	return &AuthService{
		db:          db,
		repomanager: m,
		provider:    p,
		cipher:      c,
		oauthReady:  cfg.OAuthReady(),
		stateSecret: []byte(secret),
		stateTTL:    cfg.StateTTL,
		verifyState: cfg.VerifyOAuthState,
		logger:      l.With("module", "auth_service"),
	}, nil
}

// LoginURL returns the provider consent URL carrying a fresh signed state.
func (s *AuthService) LoginURL(ctx context.Context) (string, error) {
	if s.oauthReady != nil {
		return "", newRequestError(common.ErrorConfiguration, msgCredentials)
	}
	state, err := auth.GenerateState(s.stateSecret, s.stateTTL)
	if err != nil {
		return "", fmt.Errorf("error generating state: %w", err)
	}
	return s.provider.AuthorizeURL(state), nil
}

// HandleCallback completes a login and returns the provider username.
// Every returned error is a *RequestError whose message can be shown to the
// user as is.
func (s *AuthService) HandleCallback(ctx context.Context, code, state, providerErr string) (string, error) {
	if providerErr != "" {
		return "", newRequestError(common.ErrorUnauthorized, providerErr)
	}
	if code == "" || state == "" {
		return "", newRequestError(common.ErrorValidation, msgMissingCodeOrState)
	}
	if s.oauthReady != nil {
		return "", newRequestError(common.ErrorConfiguration, msgCredentials)
	}
	if s.cipher == nil {
		return "", newRequestError(common.ErrorConfiguration, msgEncryptionKey)
	}
	if s.verifyState {
		if err := auth.VerifyState(state, s.stateSecret); err != nil {
			s.logger.Warn(ctx, "rejected oauth state", "error", err)
			return "", newRequestError(common.ErrInvalidToken, msgInvalidState)
		}
	}

	tok, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		s.logger.Error(ctx, "token exchange failed", "error", err)
		if errors.Is(err, reddit.ErrNoRefreshToken) {
			return "", newRequestError(common.ErrorUpstream, msgNoRefreshToken)
		}
		return "", newRequestError(common.ErrorUpstream, msgExchangeFailed)
	}

	username, err := s.provider.Me(ctx, tok.AccessToken)
	if err != nil {
		s.logger.Error(ctx, "identity lookup failed", "error", err)
		return "", newRequestError(common.ErrorUpstream, msgUserInfoFailed)
	}

	encrypted, err := s.cipher.Encrypt(tok.RefreshToken)
	if err != nil {
		s.logger.Error(ctx, "refresh token encryption failed", "error", err)
		return "", newRequestError(common.ErrorInternal, msgAuthFailed)
	}

	if err := s.repomanager.Users(s.db).Upsert(ctx, username, encrypted); err != nil {
		s.logger.Error(ctx, "user upsert failed", "user_id", username, "error", err)
		return "", newRequestError(common.ErrorInternal, msgAuthFailed)
	}

	s.logger.Info(ctx, "user authorized", "user_id", username)
	return username, nil
}
