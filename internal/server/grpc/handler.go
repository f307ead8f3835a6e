package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophaccount/internal/api"
	"github.com/dmitrijs2005/gophaccount/internal/server/models"
	"github.com/dmitrijs2005/gophaccount/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (s *GRPCServer) SignUp(ctx context.Context, req *api.SignUpRequest) (*api.UserResponse, error) {

	birthday, err := parseBirthday(req.Birthday)
	if err != nil {
		return nil, err
	}

	user, err := s.accounts.SignUp(ctx, services.SignUpRequest{
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
		Birthday: birthday,
		Phone:    req.Phone,
		Gender:   models.Gender(req.Gender),
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Registered", "identity", user.Identity)
	return &api.UserResponse{User: toAPIUser(user)}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *api.LoginRequest) (*api.LoginResponse, error) {

	session, err := s.sessions.Login(ctx, req.Email, req.Password, userAgent(ctx))
	s.observeLogin("password", err)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return toLoginResponse(session), nil
}

func (s *GRPCServer) LoginSocial(ctx context.Context, req *api.LoginSocialRequest) (*api.LoginResponse, error) {

	session, err := s.sessions.LoginSocial(ctx, req.Token, userAgent(ctx))
	s.observeLogin("social", err)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return toLoginResponse(session), nil
}

// RefreshToken accepts a possibly expired access token. Its signature is
// checked before the store is consulted.
func (s *GRPCServer) RefreshToken(ctx context.Context, req *api.RefreshTokenRequest) (*api.RefreshTokenResponse, error) {

	if _, err := s.sessions.AuthorizeForRefresh(req.AccessToken); err != nil {
		s.observeRefresh(err)
		return nil, s.toStatus(ctx, err)
	}

	pair, err := s.sessions.Refresh(ctx, req.AccessToken, req.RefreshToken)
	s.observeRefresh(err)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &api.RefreshTokenResponse{Tokens: toAPITokens(*pair)}, nil
}

func (s *GRPCServer) Logout(ctx context.Context, _ *api.Empty) (*api.Empty, error) {

	userID, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Logout(ctx, userID, accessTokenFrom(ctx)); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.Empty{}, nil
}

func (s *GRPCServer) GlobalLogout(ctx context.Context, _ *api.Empty) (*api.Empty, error) {

	userID, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.GlobalLogout(ctx, userID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.Empty{}, nil
}

func (s *GRPCServer) GetUser(ctx context.Context, _ *api.Empty) (*api.UserResponse, error) {

	userID, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.accounts.GetUser(ctx, userID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.UserResponse{User: toAPIUser(user)}, nil
}

func (s *GRPCServer) UpdateProfile(ctx context.Context, req *api.UpdateProfileRequest) (*api.UserResponse, error) {

	userID, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	birthday, err := parseBirthday(req.Birthday)
	if err != nil {
		return nil, err
	}

	user, err := s.accounts.UpdateProfile(ctx, userID, services.UpdateProfileRequest{
		FullName: req.FullName,
		Birthday: birthday,
		Phone:    req.Phone,
		Gender:   models.Gender(req.Gender),
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.UserResponse{User: toAPIUser(user)}, nil
}

func (s *GRPCServer) ChangePassword(ctx context.Context, req *api.ChangePasswordRequest) (*api.Empty, error) {

	userID, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	err = s.accounts.ChangePassword(ctx, userID, req.OldPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.Empty{}, nil
}

func (s *GRPCServer) ChangeAccountStatus(ctx context.Context, req *api.ChangeAccountStatusRequest) (*api.UserResponse, error) {

	userID, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.accounts.ChangeAccountStatus(ctx, userID, req.Identity, req.Active)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.UserResponse{User: toAPIUser(user)}, nil
}

func (s *GRPCServer) ForgotPassword(ctx context.Context, req *api.ForgotPasswordRequest) (*api.ForgotPasswordResponse, error) {

	password, err := s.accounts.ForgotPassword(ctx, req.Email)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.ForgotPasswordResponse{Password: password}, nil
}

func (s *GRPCServer) UploadAvatar(ctx context.Context, req *api.UploadAvatarRequest) (*api.UserResponse, error) {

	userID, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	var file *services.AvatarFile
	if req.Data != nil {
		file = &services.AvatarFile{FileName: req.FileName, ContentType: req.ContentType, Data: req.Data}
	}

	user, err := s.accounts.UploadAvatar(ctx, userID, file)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.UserResponse{User: toAPIUser(user)}, nil
}

func (s *GRPCServer) ValidateToken(ctx context.Context, req *api.ValidateTokenRequest) (*api.ValidateTokenResponse, error) {
	return &api.ValidateTokenResponse{Valid: s.sessions.ValidateToken(req.Token)}, nil
}

func (s *GRPCServer) Ping(ctx context.Context, _ *api.Empty) (*api.PingResponse, error) {
	return &api.PingResponse{Status: "OK"}, nil
}

// --- helpers below ---

func (s *GRPCServer) requireUser(ctx context.Context) (int64, error) {
	id, ok := userIDFrom(ctx)
	if !ok {
		return 0, status.Error(codes.Unauthenticated, "missing token")
	}
	return id, nil
}

func (s *GRPCServer) observeLogin(kind string, err error) {
	if s.metrics != nil {
		s.metrics.ObserveLogin(kind, err)
	}
}

func (s *GRPCServer) observeRefresh(err error) {
	if s.metrics != nil {
		s.metrics.ObserveRefresh(err)
	}
}

func parseBirthday(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(api.BirthdayLayout, v)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid birthday, expected YYYY-MM-DD")
	}
	return &t, nil
}

func toAPIUser(u *models.User) api.User {
	out := api.User{
		Identity:       u.Identity,
		Email:          u.Email,
		FullName:       u.FullName,
		Phone:          u.Phone,
		Gender:         int16(u.Gender),
		Avatar:         u.Avatar,
		AvatarMimeType: u.AvatarMimeType,
		Status:         u.Status.String(),
		Social:         u.Social,
		CreatedAt:      u.CreatedAt,
	}
	if u.Birthday != nil {
		out.Birthday = u.Birthday.Format(api.BirthdayLayout)
	}
	return out
}

func toAPITokens(p services.TokenPair) api.Tokens {
	return api.Tokens{
		AccessToken:      p.AccessToken,
		RefreshToken:     p.RefreshToken,
		AccessExpiresAt:  p.AccessExpiresAt,
		RefreshExpiresAt: p.RefreshExpiresAt,
	}
}

func toLoginResponse(s *services.Session) *api.LoginResponse {
	return &api.LoginResponse{User: toAPIUser(s.User), Tokens: toAPITokens(s.TokenPair)}
}
