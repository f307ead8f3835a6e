package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophaccount/internal/api"
	"github.com/dmitrijs2005/gophaccount/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// UserAgent is sent with every call; the server derives the session's
// device description from it.
const UserAgent = "gophaccount-cli/1.0"

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      api.AccountServiceClient

	mu        sync.Mutex
	tokens    api.Tokens
	onRefresh func(api.Tokens)
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AuthorizationHeaderName)
	if token != "" {
		md.Set(common.AuthorizationHeaderName, common.BearerScheme+" "+token)
	}

	return metadata.NewOutgoingContext(ctx, md)
}

func isTokenExpired(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	return st.Code() == codes.Unauthenticated && st.Message() == common.ErrTokenExpired.Error()
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {

	// the refresh call carries both tokens in its body
	if method == api.MethodRefreshToken {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	used := s.Tokens().AccessToken
	err := invoker(withAccessToken(ctx, used), method, req, reply, cc, opts...)
	if err == nil || !isTokenExpired(err) {
		return err
	}

	fresh, rerr := s.refresh(ctx, used)
	if rerr != nil {
		return rerr
	}

	return invoker(withAccessToken(ctx, fresh), method, req, reply, cc, opts...)
}

// refresh exchanges the token pair unless another caller already replaced
// the stale access token, in which case the newer one is returned.
func (s *GRPCClient) refresh(ctx context.Context, stale string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tokens.AccessToken != "" && s.tokens.AccessToken != stale {
		return s.tokens.AccessToken, nil
	}
	if s.tokens.RefreshToken == "" {
		return "", ErrUnauthorized
	}

	resp, err := s.client.RefreshToken(ctx, &api.RefreshTokenRequest{
		AccessToken:  stale,
		RefreshToken: s.tokens.RefreshToken,
	})
	if err != nil {
		return "", s.mapError(err)
	}

	s.tokens = resp.Tokens
	if s.onRefresh != nil {
		s.onRefresh(resp.Tokens)
	}
	return s.tokens.AccessToken, nil
}

// NewAccountClient dials endpointURL lazily. Extra dial options are appended
// after the defaults, which lets tests swap the transport.
func NewAccountClient(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}
	if err := c.InitGRPCClient(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient(opts ...grpc.DialOption) error {

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUserAgent(UserAgent),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(s.endpointURL, dialOpts...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = api.NewAccountServiceClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) SetTokens(t api.Tokens) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = t
}

func (s *GRPCClient) Tokens() api.Tokens {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens
}

// OnTokensRefreshed registers fn to be called with every pair obtained by
// an automatic refresh.
func (s *GRPCClient) OnTokensRefreshed(fn func(api.Tokens)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRefresh = fn
}

func (s *GRPCClient) SignUp(ctx context.Context, req *api.SignUpRequest) (*api.User, error) {
	resp, err := s.client.SignUp(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}
	return &resp.User, nil
}

func (s *GRPCClient) Login(ctx context.Context, email, password string) (*api.LoginResponse, error) {

	resp, err := s.client.Login(ctx, &api.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, s.mapError(err)
	}

	s.SetTokens(resp.Tokens)
	return resp, nil
}

func (s *GRPCClient) LoginSocial(ctx context.Context, assertion string) (*api.LoginResponse, error) {

	resp, err := s.client.LoginSocial(ctx, &api.LoginSocialRequest{Token: assertion})
	if err != nil {
		return nil, s.mapError(err)
	}

	s.SetTokens(resp.Tokens)
	return resp, nil
}

// Logout forgets the local tokens even when the server call fails.
func (s *GRPCClient) Logout(ctx context.Context) error {
	_, err := s.client.Logout(ctx, &api.Empty{})
	s.SetTokens(api.Tokens{})
	return s.mapError(err)
}

func (s *GRPCClient) GlobalLogout(ctx context.Context) error {
	_, err := s.client.GlobalLogout(ctx, &api.Empty{})
	s.SetTokens(api.Tokens{})
	return s.mapError(err)
}

func (s *GRPCClient) GetUser(ctx context.Context) (*api.User, error) {
	resp, err := s.client.GetUser(ctx, &api.Empty{})
	if err != nil {
		return nil, s.mapError(err)
	}
	return &resp.User, nil
}

func (s *GRPCClient) UpdateProfile(ctx context.Context, req *api.UpdateProfileRequest) (*api.User, error) {
	resp, err := s.client.UpdateProfile(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}
	return &resp.User, nil
}

func (s *GRPCClient) ChangePassword(ctx context.Context, oldPassword, newPassword, confirmPassword string) error {
	_, err := s.client.ChangePassword(ctx, &api.ChangePasswordRequest{
		OldPassword:     oldPassword,
		NewPassword:     newPassword,
		ConfirmPassword: confirmPassword,
	})
	return s.mapError(err)
}

func (s *GRPCClient) ChangeAccountStatus(ctx context.Context, identity string, active bool) (*api.User, error) {
	resp, err := s.client.ChangeAccountStatus(ctx, &api.ChangeAccountStatusRequest{Identity: identity, Active: active})
	if err != nil {
		return nil, s.mapError(err)
	}
	return &resp.User, nil
}

func (s *GRPCClient) ForgotPassword(ctx context.Context, email string) (string, error) {
	resp, err := s.client.ForgotPassword(ctx, &api.ForgotPasswordRequest{Email: email})
	if err != nil {
		return "", s.mapError(err)
	}
	return resp.Password, nil
}

func (s *GRPCClient) UploadAvatar(ctx context.Context, fileName, contentType string, data []byte) (*api.User, error) {
	resp, err := s.client.UploadAvatar(ctx, &api.UploadAvatarRequest{
		FileName:    fileName,
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		return nil, s.mapError(err)
	}
	return &resp.User, nil
}

func (s *GRPCClient) ValidateToken(ctx context.Context, token string) (bool, error) {
	resp, err := s.client.ValidateToken(ctx, &api.ValidateTokenRequest{Token: token})
	if err != nil {
		return false, s.mapError(err)
	}
	return resp.Valid, nil
}

func (s *GRPCClient) Ping(ctx context.Context) error {

	resp, err := s.client.Ping(ctx, &api.Empty{})
	if err != nil {
		return s.mapError(err)
	}

	if resp.Status != "OK" {
		return ErrUnavailable
	}

	return nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Unauthenticated:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrForbidden, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("%w: %s", ErrRejected, st.Message())
	}
}
