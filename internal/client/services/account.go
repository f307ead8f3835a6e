// Package services contains application services for the account client.
// It ties the remote API client to the locally remembered session.
package services

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/gophaccount/internal/api"
	"github.com/dmitrijs2005/gophaccount/internal/client/client"
	"github.com/dmitrijs2005/gophaccount/internal/client/models"
	"github.com/dmitrijs2005/gophaccount/internal/client/repositories/session"
	"github.com/dmitrijs2005/gophaccount/internal/filex"
	"github.com/dmitrijs2005/gophaccount/internal/logging"
)

// AccountService defines the account operations available to the CLI.
//
// Contract:
//   - Resume: restore a remembered session, if it can still be refreshed.
//   - Login/LoginSocial: authenticate and remember the session locally.
//   - Logout/GlobalLogout: end the session remotely and forget it locally.
//   - everything else: thin wrappers over the remote API.
//
// All methods must honor context cancellation/timeouts.
type AccountService interface {
	Resume(ctx context.Context) (*models.Session, error)
	Register(ctx context.Context, req *api.SignUpRequest) (*api.User, error)
	Login(ctx context.Context, email, password string) (*api.User, error)
	LoginSocial(ctx context.Context, assertion string) (*api.User, error)
	Logout(ctx context.Context) error
	GlobalLogout(ctx context.Context) error
	Profile(ctx context.Context) (*api.User, error)
	UpdateProfile(ctx context.Context, req *api.UpdateProfileRequest) (*api.User, error)
	ChangePassword(ctx context.Context, oldPassword, newPassword, confirmPassword string) error
	ChangeStatus(ctx context.Context, identity string, active bool) (*api.User, error)
	ForgotPassword(ctx context.Context, email string) (string, error)
	UploadAvatar(ctx context.Context, path string) (*api.User, error)
	CheckSession(ctx context.Context) (bool, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// accountService is the concrete AccountService backed by a remote Client
// and the local session repository.
type accountService struct {
	client         client.Client
	sessions       session.Repository
	avatarMaxBytes int64
	now            func() time.Time
	logger         logging.Logger
}

// NewAccountService binds the API client to the session store. Tokens the
// client refreshes on its own are written back to the store.
func NewAccountService(c client.Client, sessions session.Repository, avatarMaxBytes int64, logger logging.Logger) AccountService {
	s := &accountService{
		client:         c,
		sessions:       sessions,
		avatarMaxBytes: avatarMaxBytes,
		now:            time.Now,
		logger:         logger,
	}
	c.OnTokensRefreshed(s.persistRefreshed)
	return s
}

func (s *accountService) persistRefreshed(t api.Tokens) {
	ctx := context.Background()

	current, err := s.sessions.Load(ctx)
	if err != nil || current == nil {
		s.logger.Warn(ctx, "refreshed tokens not persisted", "error", err)
		return
	}

	current.AccessToken = t.AccessToken
	current.RefreshToken = t.RefreshToken
	current.AccessExpiresAt = t.AccessExpiresAt
	current.RefreshExpiresAt = t.RefreshExpiresAt
	current.SavedAt = s.now()

	if err := s.sessions.Save(ctx, current); err != nil {
		s.logger.Warn(ctx, "refreshed tokens not persisted", "error", err)
		return
	}
	s.logger.Debug(ctx, "session refreshed", "identity", current.Identity)
}

func (s *accountService) Resume(ctx context.Context) (*models.Session, error) {
	saved, err := s.sessions.Load(ctx)
	if err != nil {
		return nil, err
	}
	if saved == nil {
		return nil, nil
	}
	if !saved.Usable(s.now()) {
		return nil, s.sessions.Clear(ctx)
	}

	s.client.SetTokens(api.Tokens{
		AccessToken:      saved.AccessToken,
		RefreshToken:     saved.RefreshToken,
		AccessExpiresAt:  saved.AccessExpiresAt,
		RefreshExpiresAt: saved.RefreshExpiresAt,
	})
	return saved, nil
}

func (s *accountService) Register(ctx context.Context, req *api.SignUpRequest) (*api.User, error) {
	return s.client.SignUp(ctx, req)
}

func (s *accountService) Login(ctx context.Context, email, password string) (*api.User, error) {
	resp, err := s.client.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.remember(ctx, resp)
}

func (s *accountService) LoginSocial(ctx context.Context, assertion string) (*api.User, error) {
	resp, err := s.client.LoginSocial(ctx, assertion)
	if err != nil {
		return nil, err
	}
	return s.remember(ctx, resp)
}

func (s *accountService) remember(ctx context.Context, resp *api.LoginResponse) (*api.User, error) {
	err := s.sessions.Save(ctx, &models.Session{
		Identity:         resp.User.Identity,
		Email:            resp.User.Email,
		AccessToken:      resp.Tokens.AccessToken,
		RefreshToken:     resp.Tokens.RefreshToken,
		AccessExpiresAt:  resp.Tokens.AccessExpiresAt,
		RefreshExpiresAt: resp.Tokens.RefreshExpiresAt,
		SavedAt:          s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("remember session: %w", err)
	}
	return &resp.User, nil
}

// Logout ends the session. A session the server no longer knows counts as
// ended; the local copy is dropped either way.
func (s *accountService) Logout(ctx context.Context) error {
	return s.forget(ctx, s.client.Logout(ctx))
}

func (s *accountService) GlobalLogout(ctx context.Context) error {
	return s.forget(ctx, s.client.GlobalLogout(ctx))
}

func (s *accountService) forget(ctx context.Context, remoteErr error) error {
	if errors.Is(remoteErr, client.ErrUnauthorized) {
		remoteErr = nil
	}
	return errors.Join(remoteErr, s.sessions.Clear(ctx))
}

// expire drops the local session when the server rejected it for good.
func (s *accountService) expire(ctx context.Context, err error) error {
	if errors.Is(err, client.ErrUnauthorized) {
		if clearErr := s.sessions.Clear(ctx); clearErr != nil {
			s.logger.Warn(ctx, "failed to clear session", "error", clearErr)
		}
		s.client.SetTokens(api.Tokens{})
	}
	return err
}

func (s *accountService) Profile(ctx context.Context) (*api.User, error) {
	u, err := s.client.GetUser(ctx)
	return u, s.expire(ctx, err)
}

func (s *accountService) UpdateProfile(ctx context.Context, req *api.UpdateProfileRequest) (*api.User, error) {
	u, err := s.client.UpdateProfile(ctx, req)
	return u, s.expire(ctx, err)
}

func (s *accountService) ChangePassword(ctx context.Context, oldPassword, newPassword, confirmPassword string) error {
	return s.expire(ctx, s.client.ChangePassword(ctx, oldPassword, newPassword, confirmPassword))
}

func (s *accountService) ChangeStatus(ctx context.Context, identity string, active bool) (*api.User, error) {
	u, err := s.client.ChangeAccountStatus(ctx, identity, active)
	return u, s.expire(ctx, err)
}

func (s *accountService) ForgotPassword(ctx context.Context, email string) (string, error) {
	return s.client.ForgotPassword(ctx, email)
}

// UploadAvatar reads the image at path and sends it. The content type comes
// from the file extension, falling back to sniffing the first bytes.
func (s *accountService) UploadAvatar(ctx context.Context, path string) (*api.User, error) {
	data, err := filex.ReadLimited(path, s.avatarMaxBytes)
	if err != nil {
		return nil, err
	}

	u, err := s.client.UploadAvatar(ctx, filepath.Base(path), contentTypeOf(path, data), data)
	return u, s.expire(ctx, err)
}

func contentTypeOf(path string, data []byte) string {
	ct := mime.TypeByExtension(filepath.Ext(path))
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	return ct
}

// CheckSession asks the server whether the current access token is valid.
func (s *accountService) CheckSession(ctx context.Context) (bool, error) {
	token := s.client.Tokens().AccessToken
	if token == "" {
		return false, client.ErrNotLoggedIn
	}
	return s.client.ValidateToken(ctx, token)
}

func (s *accountService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *accountService) Close(ctx context.Context) error {
	return s.client.Close()
}
