// Package services contains server-side business logic. This file implements
// SessionService, which owns the access/refresh token lifecycle: login,
// rotation and revocation of device sessions.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophaccount/internal/common"
	"github.com/dmitrijs2005/gophaccount/internal/dbx"
	"github.com/dmitrijs2005/gophaccount/internal/logging"
	"github.com/dmitrijs2005/gophaccount/internal/server/auth"
	"github.com/dmitrijs2005/gophaccount/internal/server/config"
	"github.com/dmitrijs2005/gophaccount/internal/server/device"
	"github.com/dmitrijs2005/gophaccount/internal/server/federation"
	"github.com/dmitrijs2005/gophaccount/internal/server/models"
	"github.com/dmitrijs2005/gophaccount/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophaccount/internal/server/repositories/tokens"
	"github.com/dmitrijs2005/gophaccount/internal/server/security"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Session is the result of a successful login.
type Session struct {
	User *models.User
	TokenPair
}

// SessionService provides authentication-related operations:
// - Login / LoginSocial: verify the caller and open a device session
// - Refresh: rotate the token pair of a session in place
// - Logout / GlobalLogout: revoke one or every session of a user
type SessionService struct {
	repomanager                  repomanager.RepositoryManager
	codec                        *auth.Codec
	hasher                       security.Hasher
	verifier                     federation.Verifier
	detector                     device.Detector
	registrar                    *registrar
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	now                          func() time.Time
	logger                       logging.Logger
}

// NewSessionService wires a SessionService. A nil verifier disables social
// login and a nil detector records sessions without device metadata.
func NewSessionService(m repomanager.RepositoryManager, cfg *config.Config, codec *auth.Codec,
	hasher security.Hasher, verifier federation.Verifier, detector device.Detector, logger logging.Logger) *SessionService {

	if verifier == nil {
		verifier = federation.Disabled{}
	}
	if detector == nil {
		detector = device.Static{}
	}

	return &SessionService{
		repomanager:                  m,
		codec:                        codec,
		hasher:                       hasher,
		verifier:                     verifier,
		detector:                     detector,
		registrar:                    newRegistrar(m, hasher, cfg.PhoneDefaultRegion),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		now:                          time.Now,
		logger:                       logger.With("module", "session"),
	}
}

// Login checks the password of the account registered under email and opens
// a new session for it. Failures are reported in the order UserNotFound,
// Unauthorized, AccountInactive.
func (s *SessionService) Login(ctx context.Context, email, password, userAgent string) (*Session, error) {
	repo := s.repomanager.Users(s.repomanager.Runner().Conn())

	user, err := repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("error verifying password: %w", err)
	}
	if !ok {
		return nil, common.ErrorUnauthorized
	}

	if !user.Active() {
		return nil, common.ErrAccountInactive
	}

	return s.openSession(ctx, user, userAgent)
}

// LoginSocial verifies an identity provider assertion, registers the account
// on first use and opens a session. The local password is never checked.
func (s *SessionService) LoginSocial(ctx context.Context, assertion, userAgent string) (*Session, error) {
	identity, err := s.verifier.Verify(ctx, assertion)
	if err != nil {
		if errors.Is(err, common.ErrSocialLoginDisabled) {
			return nil, common.ErrSocialLoginDisabled
		}
		s.logger.Warn(ctx, "rejected identity assertion", "error", err)
		return nil, common.ErrorUnauthorized
	}
	if identity.Email == "" {
		return nil, fmt.Errorf("%w: assertion carries no email", common.ErrorUnauthorized)
	}

	password, err := generatedPassword()
	if err != nil {
		return nil, err
	}

	user, err := s.registrar.signUp(ctx, SignUpRequest{
		Email:    identity.Email,
		FullName: displayNameOr(identity),
		Password: password,
		Social:   true,
	})
	if err != nil {
		return nil, err
	}

	if !user.Active() {
		return nil, common.ErrAccountInactive
	}

	return s.openSession(ctx, user, userAgent)
}

// Logout revokes the session identified by accessToken. Revoking a session
// that does not exist is not an error.
func (s *SessionService) Logout(ctx context.Context, userID int64, accessToken string) error {
	repo := s.repomanager.Tokens(s.repomanager.Runner().Conn())

	n, err := repo.DeleteByUserAndAccess(ctx, userID, accessToken)
	if err != nil {
		return fmt.Errorf("error deleting session: %w", err)
	}
	s.logger.Debug(ctx, "logout", "user_id", userID, "sessions", n)
	return nil
}

// GlobalLogout revokes every session of the user.
func (s *SessionService) GlobalLogout(ctx context.Context, userID int64) error {
	repo := s.repomanager.Tokens(s.repomanager.Runner().Conn())

	n, err := repo.DeleteByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("error deleting sessions: %w", err)
	}
	s.logger.Info(ctx, "global logout", "user_id", userID, "sessions", n)
	return nil
}

// Refresh rotates the session holding exactly (accessToken, refreshToken).
// The record is locked for the duration of the transaction and only
// rewritten if it still holds the presented pair, so of several concurrent
// calls with the same pair exactly one succeeds.
func (s *SessionService) Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error) {
	if accessToken == "" || refreshToken == "" {
		return nil, common.ErrorUnauthorized
	}

	var pair *TokenPair

	err := s.repomanager.Runner().InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		tokenRepo := s.repomanager.Tokens(tx)

		rec, err := tokenRepo.FindByPair(ctx, accessToken, refreshToken)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return fmt.Errorf("error searching session: %w", err)
		}

		if !rec.RefreshTokenExpiresAt.After(s.now()) {
			return common.ErrorUnauthorized
		}

		user, err := s.repomanager.Users(tx).GetByID(ctx, rec.UserID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return fmt.Errorf("error loading user: %w", err)
		}

		next, err := s.newTokenPair(user)
		if err != nil {
			return err
		}

		rotated, err := tokenRepo.Rotate(ctx, rec.ID, accessToken, refreshToken, tokens.Rotation{
			AccessToken:           next.AccessToken,
			AccessTokenExpiresAt:  next.AccessExpiresAt,
			RefreshToken:          next.RefreshToken,
			RefreshTokenExpiresAt: next.RefreshExpiresAt,
		})
		if err != nil {
			return fmt.Errorf("error rotating session: %w", err)
		}
		if !rotated {
			return common.ErrorUnauthorized
		}

		pair = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	return pair, nil
}

// GetRefreshTokenFor returns the refresh token paired with accessToken while
// it is still live, or "" when there is none.
func (s *SessionService) GetRefreshTokenFor(ctx context.Context, accessToken string, userID int64) (string, error) {
	repo := s.repomanager.Tokens(s.repomanager.Runner().Conn())

	rec, err := repo.FindLive(ctx, userID, accessToken, s.now())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("error searching session: %w", err)
	}
	return rec.RefreshToken, nil
}

// ValidateToken reports whether token is a well-formed, correctly signed,
// unexpired access token for this issuer and audience.
func (s *SessionService) ValidateToken(token string) bool {
	_, err := s.codec.Validate(token, true)
	return err == nil
}

// Authenticate validates an access token with every check enabled and
// returns its claims. Codec errors are passed through so callers can tell
// an expired token from a forged one.
func (s *SessionService) Authenticate(token string) (*auth.Claims, error) {
	return s.codec.Validate(token, true)
}

// AuthorizeForRefresh recovers the claims of a possibly expired access
// token. Only the signature and algorithm are checked.
func (s *SessionService) AuthorizeForRefresh(token string) (*auth.Claims, error) {
	claims, err := s.codec.DecodeIgnoringExpiry(token)
	if err != nil {
		return nil, common.ErrorUnauthorized
	}
	return claims, nil
}

// --- helpers below ---

func (s *SessionService) openSession(ctx context.Context, user *models.User, userAgent string) (*Session, error) {
	pair, err := s.newTokenPair(user)
	if err != nil {
		return nil, err
	}

	rec := &models.TokenRecord{
		UserID:                user.ID,
		AccessToken:           pair.AccessToken,
		AccessTokenExpiresAt:  pair.AccessExpiresAt,
		RefreshToken:          pair.RefreshToken,
		RefreshTokenExpiresAt: pair.RefreshExpiresAt,
		Device:                s.detector.Detect(userAgent),
	}

	repo := s.repomanager.Tokens(s.repomanager.Runner().Conn())
	if _, err := repo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("error storing session: %w", err)
	}

	s.logger.Info(ctx, "session opened", "user_id", user.ID, "client", rec.Device.ClientName)
	return &Session{User: user, TokenPair: *pair}, nil
}

func (s *SessionService) newTokenPair(user *models.User) (*TokenPair, error) {
	access, accessExpires, err := s.codec.Issue(auth.ClaimsForUser(user), s.accessTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	refresh, err := auth.NewOpaqueRandomToken()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExpires,
		RefreshExpiresAt: s.now().Add(s.refreshTokenValidityDuration).UTC(),
	}, nil
}

func displayNameOr(id federation.Identity) string {
	if id.DisplayName != "" {
		return id.DisplayName
	}
	return id.Email
}
