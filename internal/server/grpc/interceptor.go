package grpc

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophaccount/internal/api"
	"github.com/dmitrijs2005/gophaccount/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const (
	userIDKey      ctxKey = "userID"
	accessTokenKey ctxKey = "accessToken"
)

// TokenExpiredMessage is the status message clients watch for to trigger a
// silent refresh.
const TokenExpiredMessage = "token expired"

var authenticatedMethods = map[string]bool{
	api.MethodLogout:              true,
	api.MethodGlobalLogout:        true,
	api.MethodGetUser:             true,
	api.MethodUpdateProfile:       true,
	api.MethodChangePassword:      true,
	api.MethodChangeAccountStatus: true,
	api.MethodUploadAvatar:        true,
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	if !authenticatedMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	accessToken := bearerToken(ctx)
	if len(accessToken) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	claims, err := s.sessions.Authenticate(accessToken)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, status.Error(codes.Unauthenticated, TokenExpiredMessage)
		}
		s.logger.Debug(ctx, "rejected access token", "method", info.FullMethod, "error", err)
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	ctx = context.WithValue(ctx, userIDKey, claims.UserID)
	ctx = context.WithValue(ctx, accessTokenKey, accessToken)

	return handler(ctx, req)
}

func (s *GRPCServer) metricsInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	if s.metrics == nil {
		return handler(ctx, req)
	}

	start := time.Now()
	resp, err := handler(ctx, req)
	s.metrics.ObserveRPC(info.FullMethod, status.Code(err).String(), time.Since(start))
	return resp, err
}

// bearerToken extracts the token from "authorization: Bearer <token>".
func bearerToken(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(common.AuthorizationHeaderName)
	if len(values) == 0 {
		return ""
	}

	scheme, token, found := strings.Cut(strings.TrimSpace(values[0]), " ")
	if !found || !strings.EqualFold(scheme, common.BearerScheme) {
		return ""
	}
	return strings.TrimSpace(token)
}

func userAgent(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(common.UserAgentHeaderName)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func userIDFrom(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

func accessTokenFrom(ctx context.Context) string {
	t, _ := ctx.Value(accessTokenKey).(string)
	return t
}
