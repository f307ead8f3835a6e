package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "gophaccount.v1.AccountService"

const (
	MethodSignUp              = "/" + ServiceName + "/SignUp"
	MethodLogin               = "/" + ServiceName + "/Login"
	MethodLoginSocial         = "/" + ServiceName + "/LoginSocial"
	MethodRefreshToken        = "/" + ServiceName + "/RefreshToken"
	MethodLogout              = "/" + ServiceName + "/Logout"
	MethodGlobalLogout        = "/" + ServiceName + "/GlobalLogout"
	MethodGetUser             = "/" + ServiceName + "/GetUser"
	MethodUpdateProfile       = "/" + ServiceName + "/UpdateProfile"
	MethodChangePassword      = "/" + ServiceName + "/ChangePassword"
	MethodChangeAccountStatus = "/" + ServiceName + "/ChangeAccountStatus"
	MethodForgotPassword      = "/" + ServiceName + "/ForgotPassword"
	MethodUploadAvatar        = "/" + ServiceName + "/UploadAvatar"
	MethodValidateToken       = "/" + ServiceName + "/ValidateToken"
	MethodPing                = "/" + ServiceName + "/Ping"
)

// AccountServiceServer is implemented by the account server.
type AccountServiceServer interface {
	SignUp(context.Context, *SignUpRequest) (*UserResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	LoginSocial(context.Context, *LoginSocialRequest) (*LoginResponse, error)
	RefreshToken(context.Context, *RefreshTokenRequest) (*RefreshTokenResponse, error)
	Logout(context.Context, *Empty) (*Empty, error)
	GlobalLogout(context.Context, *Empty) (*Empty, error)
	GetUser(context.Context, *Empty) (*UserResponse, error)
	UpdateProfile(context.Context, *UpdateProfileRequest) (*UserResponse, error)
	ChangePassword(context.Context, *ChangePasswordRequest) (*Empty, error)
	ChangeAccountStatus(context.Context, *ChangeAccountStatusRequest) (*UserResponse, error)
	ForgotPassword(context.Context, *ForgotPasswordRequest) (*ForgotPasswordResponse, error)
	UploadAvatar(context.Context, *UploadAvatarRequest) (*UserResponse, error)
	ValidateToken(context.Context, *ValidateTokenRequest) (*ValidateTokenResponse, error)
	Ping(context.Context, *Empty) (*PingResponse, error)
}

// UnimplementedAccountServiceServer answers every method with
// codes.Unimplemented. Embed it to stay forward compatible.
type UnimplementedAccountServiceServer struct{}

func (UnimplementedAccountServiceServer) SignUp(context.Context, *SignUpRequest) (*UserResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SignUp not implemented")
}

func (UnimplementedAccountServiceServer) Login(context.Context, *LoginRequest) (*LoginResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Login not implemented")
}

func (UnimplementedAccountServiceServer) LoginSocial(context.Context, *LoginSocialRequest) (*LoginResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method LoginSocial not implemented")
}

func (UnimplementedAccountServiceServer) RefreshToken(context.Context, *RefreshTokenRequest) (*RefreshTokenResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RefreshToken not implemented")
}

func (UnimplementedAccountServiceServer) Logout(context.Context, *Empty) (*Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method Logout not implemented")
}

func (UnimplementedAccountServiceServer) GlobalLogout(context.Context, *Empty) (*Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method GlobalLogout not implemented")
}

func (UnimplementedAccountServiceServer) GetUser(context.Context, *Empty) (*UserResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetUser not implemented")
}

func (UnimplementedAccountServiceServer) UpdateProfile(context.Context, *UpdateProfileRequest) (*UserResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method UpdateProfile not implemented")
}

func (UnimplementedAccountServiceServer) ChangePassword(context.Context, *ChangePasswordRequest) (*Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method ChangePassword not implemented")
}

func (UnimplementedAccountServiceServer) ChangeAccountStatus(context.Context, *ChangeAccountStatusRequest) (*UserResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ChangeAccountStatus not implemented")
}

func (UnimplementedAccountServiceServer) ForgotPassword(context.Context, *ForgotPasswordRequest) (*ForgotPasswordResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ForgotPassword not implemented")
}

func (UnimplementedAccountServiceServer) UploadAvatar(context.Context, *UploadAvatarRequest) (*UserResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method UploadAvatar not implemented")
}

func (UnimplementedAccountServiceServer) ValidateToken(context.Context, *ValidateTokenRequest) (*ValidateTokenResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ValidateToken not implemented")
}

func (UnimplementedAccountServiceServer) Ping(context.Context, *Empty) (*PingResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Ping not implemented")
}

func RegisterAccountServiceServer(s grpc.ServiceRegistrar, srv AccountServiceServer) {
	s.RegisterService(&AccountServiceDesc, srv)
}

func _SignUp_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SignUpRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AccountServiceServer).SignUp(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodSignUp}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AccountServiceServer).SignUp(ctx, req.(*SignUpRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Login_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(LoginRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AccountServiceServer).Login(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodLogin}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AccountServiceServer).Login(ctx, req.(*LoginRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _LoginSocial_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(LoginSocialRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AccountServiceServer).LoginSocial(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodLoginSocial}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AccountServiceServer).LoginSocial(ctx, req.(*LoginSocialRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _RefreshToken_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(RefreshTokenRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AccountServiceServer).RefreshToken(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodRefreshToken}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AccountServiceServer).RefreshToken(ctx, req.(*RefreshTokenRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Logout_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AccountServiceServer).Logout(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodLogout}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AccountServiceServer).Logout(ctx, req.(*Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _GlobalLogout_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AccountServiceServer).GlobalLogout(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodGlobalLogout}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AccountServiceServer).GlobalLogout(ctx, req.(*Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _GetUser_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AccountServiceServer).GetUser(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodGetUser}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AccountServiceServer).GetUser(ctx, req.(*Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _UpdateProfile_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(UpdateProfileRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AccountServiceServer).UpdateProfile(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodUpdateProfile}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AccountServiceServer).UpdateProfile(ctx, req.(*UpdateProfileRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ChangePassword_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ChangePasswordRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AccountServiceServer).ChangePassword(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodChangePassword}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AccountServiceServer).ChangePassword(ctx, req.(*ChangePasswordRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ChangeAccountStatus_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ChangeAccountStatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AccountServiceServer).ChangeAccountStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodChangeAccountStatus}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AccountServiceServer).ChangeAccountStatus(ctx, req.(*ChangeAccountStatusRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ForgotPassword_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ForgotPasswordRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AccountServiceServer).ForgotPassword(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodForgotPassword}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AccountServiceServer).ForgotPassword(ctx, req.(*ForgotPasswordRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _UploadAvatar_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(UploadAvatarRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AccountServiceServer).UploadAvatar(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodUploadAvatar}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AccountServiceServer).UploadAvatar(ctx, req.(*UploadAvatarRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ValidateToken_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ValidateTokenRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AccountServiceServer).ValidateToken(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodValidateToken}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AccountServiceServer).ValidateToken(ctx, req.(*ValidateTokenRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Ping_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AccountServiceServer).Ping(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodPing}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AccountServiceServer).Ping(ctx, req.(*Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// AccountServiceDesc describes the service for grpc.Server.RegisterService.
var AccountServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AccountServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SignUp", Handler: _SignUp_Handler},
		{MethodName: "Login", Handler: _Login_Handler},
		{MethodName: "LoginSocial", Handler: _LoginSocial_Handler},
		{MethodName: "RefreshToken", Handler: _RefreshToken_Handler},
		{MethodName: "Logout", Handler: _Logout_Handler},
		{MethodName: "GlobalLogout", Handler: _GlobalLogout_Handler},
		{MethodName: "GetUser", Handler: _GetUser_Handler},
		{MethodName: "UpdateProfile", Handler: _UpdateProfile_Handler},
		{MethodName: "ChangePassword", Handler: _ChangePassword_Handler},
		{MethodName: "ChangeAccountStatus", Handler: _ChangeAccountStatus_Handler},
		{MethodName: "ForgotPassword", Handler: _ForgotPassword_Handler},
		{MethodName: "UploadAvatar", Handler: _UploadAvatar_Handler},
		{MethodName: "ValidateToken", Handler: _ValidateToken_Handler},
		{MethodName: "Ping", Handler: _Ping_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gophaccount/v1/account.json",
}

// AccountServiceClient is the client API of the account service.
type AccountServiceClient interface {
	SignUp(ctx context.Context, in *SignUpRequest, opts ...grpc.CallOption) (*UserResponse, error)
	Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error)
	LoginSocial(ctx context.Context, in *LoginSocialRequest, opts ...grpc.CallOption) (*LoginResponse, error)
	RefreshToken(ctx context.Context, in *RefreshTokenRequest, opts ...grpc.CallOption) (*RefreshTokenResponse, error)
	Logout(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error)
	GlobalLogout(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error)
	GetUser(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*UserResponse, error)
	UpdateProfile(ctx context.Context, in *UpdateProfileRequest, opts ...grpc.CallOption) (*UserResponse, error)
	ChangePassword(ctx context.Context, in *ChangePasswordRequest, opts ...grpc.CallOption) (*Empty, error)
	ChangeAccountStatus(ctx context.Context, in *ChangeAccountStatusRequest, opts ...grpc.CallOption) (*UserResponse, error)
	ForgotPassword(ctx context.Context, in *ForgotPasswordRequest, opts ...grpc.CallOption) (*ForgotPasswordResponse, error)
	UploadAvatar(ctx context.Context, in *UploadAvatarRequest, opts ...grpc.CallOption) (*UserResponse, error)
	ValidateToken(ctx context.Context, in *ValidateTokenRequest, opts ...grpc.CallOption) (*ValidateTokenResponse, error)
	Ping(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*PingResponse, error)
}

type accountServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewAccountServiceClient(cc grpc.ClientConnInterface) AccountServiceClient {
	return &accountServiceClient{cc: cc}
}

func (c *accountServiceClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{CallOption()}, opts...)
	return c.cc.Invoke(ctx, method, in, out, opts...)
}

func (c *accountServiceClient) SignUp(ctx context.Context, in *SignUpRequest, opts ...grpc.CallOption) (*UserResponse, error) {
	out := new(UserResponse)
	if err := c.invoke(ctx, MethodSignUp, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *accountServiceClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	out := new(LoginResponse)
	if err := c.invoke(ctx, MethodLogin, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *accountServiceClient) LoginSocial(ctx context.Context, in *LoginSocialRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	out := new(LoginResponse)
	if err := c.invoke(ctx, MethodLoginSocial, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *accountServiceClient) RefreshToken(ctx context.Context, in *RefreshTokenRequest, opts ...grpc.CallOption) (*RefreshTokenResponse, error) {
	out := new(RefreshTokenResponse)
	if err := c.invoke(ctx, MethodRefreshToken, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *accountServiceClient) Logout(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error) {
	out := new(Empty)
	if err := c.invoke(ctx, MethodLogout, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *accountServiceClient) GlobalLogout(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error) {
	out := new(Empty)
	if err := c.invoke(ctx, MethodGlobalLogout, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *accountServiceClient) GetUser(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*UserResponse, error) {
	out := new(UserResponse)
	if err := c.invoke(ctx, MethodGetUser, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *accountServiceClient) UpdateProfile(ctx context.Context, in *UpdateProfileRequest, opts ...grpc.CallOption) (*UserResponse, error) {
	out := new(UserResponse)
	if err := c.invoke(ctx, MethodUpdateProfile, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *accountServiceClient) ChangePassword(ctx context.Context, in *ChangePasswordRequest, opts ...grpc.CallOption) (*Empty, error) {
	out := new(Empty)
	if err := c.invoke(ctx, MethodChangePassword, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *accountServiceClient) ChangeAccountStatus(ctx context.Context, in *ChangeAccountStatusRequest, opts ...grpc.CallOption) (*UserResponse, error) {
	out := new(UserResponse)
	if err := c.invoke(ctx, MethodChangeAccountStatus, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *accountServiceClient) ForgotPassword(ctx context.Context, in *ForgotPasswordRequest, opts ...grpc.CallOption) (*ForgotPasswordResponse, error) {
	out := new(ForgotPasswordResponse)
	if err := c.invoke(ctx, MethodForgotPassword, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *accountServiceClient) UploadAvatar(ctx context.Context, in *UploadAvatarRequest, opts ...grpc.CallOption) (*UserResponse, error) {
	out := new(UserResponse)
	if err := c.invoke(ctx, MethodUploadAvatar, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *accountServiceClient) ValidateToken(ctx context.Context, in *ValidateTokenRequest, opts ...grpc.CallOption) (*ValidateTokenResponse, error) {
	out := new(ValidateTokenResponse)
	if err := c.invoke(ctx, MethodValidateToken, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *accountServiceClient) Ping(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*PingResponse, error) {
	out := new(PingResponse)
	if err := c.invoke(ctx, MethodPing, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}
