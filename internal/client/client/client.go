package client

import (
	"context"

	"github.com/dmitrijs2005/gophaccount/internal/api"
)

type Client interface {
	Close() error
	SetTokens(t api.Tokens)
	Tokens() api.Tokens
	OnTokensRefreshed(fn func(api.Tokens))

	SignUp(ctx context.Context, req *api.SignUpRequest) (*api.User, error)
	Login(ctx context.Context, email, password string) (*api.LoginResponse, error)
	LoginSocial(ctx context.Context, assertion string) (*api.LoginResponse, error)
	Logout(ctx context.Context) error
	GlobalLogout(ctx context.Context) error
	GetUser(ctx context.Context) (*api.User, error)
	UpdateProfile(ctx context.Context, req *api.UpdateProfileRequest) (*api.User, error)
	ChangePassword(ctx context.Context, oldPassword, newPassword, confirmPassword string) error
	ChangeAccountStatus(ctx context.Context, identity string, active bool) (*api.User, error)
	ForgotPassword(ctx context.Context, email string) (string, error)
	UploadAvatar(ctx context.Context, fileName, contentType string, data []byte) (*api.User, error)
	ValidateToken(ctx context.Context, token string) (bool, error)
	Ping(ctx context.Context) error
}
