package grpc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dmitrijs2005/gophaccount/internal/api"
	"github.com/dmitrijs2005/gophaccount/internal/common"
	"github.com/dmitrijs2005/gophaccount/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func TestInterceptor_PublicMethodSkipsAuth(t *testing.T) {
	s := &GRPCServer{logger: logging.Nop{}}

	info := &grpc.UnaryServerInfo{FullMethod: api.MethodLogin}
	handlerCalled := false

	h := func(ctx context.Context, req interface{}) (interface{}, error) {
		handlerCalled = true
		return "ok", nil
	}

	resp, err := s.accessTokenInterceptor(context.Background(), nil, info, h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handlerCalled {
		t.Fatal("handler was not called")
	}
	if resp != "ok" {
		t.Fatalf("unexpected handler resp: %v", resp)
	}
}

func TestInterceptor_ProtectedMethodMissingToken(t *testing.T) {
	s := &GRPCServer{logger: logging.Nop{}}
	info := &grpc.UnaryServerInfo{FullMethod: api.MethodGetUser}

	h := func(ctx context.Context, req interface{}) (interface{}, error) {
		t.Fatal("handler should not be called when token missing")
		return nil, nil
	}

	_, err := s.accessTokenInterceptor(context.Background(), nil, info, h)
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", status.Code(err))
	}
	if status.Convert(err).Message() != "missing token" {
		t.Fatalf("expected 'missing token', got %q", status.Convert(err).Message())
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"bearer  abc ", "abc"},
		{"Basic abc", ""},
		{"abc", ""},
		{"", ""},
	}

	for _, tt := range tests {
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", tt.header))
		if got := bearerToken(ctx); got != tt.want {
			t.Fatalf("bearerToken(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}

	if got := bearerToken(context.Background()); got != "" {
		t.Fatalf("expected empty token without metadata, got %q", got)
	}
}

func TestToStatus(t *testing.T) {
	s := &GRPCServer{logger: logging.Nop{}}

	tests := []struct {
		err  error
		want codes.Code
	}{
		{common.ErrUserNotFound, codes.NotFound},
		{common.ErrorUnauthorized, codes.Unauthenticated},
		{fmt.Errorf("%w: bad", common.ErrMalformedToken), codes.Unauthenticated},
		{common.ErrTokenExpired, codes.Unauthenticated},
		{common.ErrAccountInactive, codes.PermissionDenied},
		{common.ErrSelfDeactivationForbidden, codes.PermissionDenied},
		{common.ErrEmailInUse, codes.AlreadyExists},
		{common.ErrPasswordRequirementsNotMet, codes.InvalidArgument},
		{common.ErrPasswordsDoNotMatch, codes.InvalidArgument},
		{common.ErrOldPasswordIncorrect, codes.InvalidArgument},
		{common.ErrFileNull, codes.InvalidArgument},
		{common.ErrFileInvalidSize, codes.InvalidArgument},
		{common.ErrFileInvalidType, codes.InvalidArgument},
		{fmt.Errorf("%w: Email: bad", common.ErrValidation), codes.InvalidArgument},
		{common.ErrInvalidPhone, codes.InvalidArgument},
		{common.ErrSocialLoginDisabled, codes.FailedPrecondition},
		{status.Error(codes.Canceled, "gone"), codes.Canceled},
		{errors.New("db exploded"), codes.Internal},
	}

	for _, tt := range tests {
		got := status.Code(s.toStatus(context.Background(), tt.err))
		if got != tt.want {
			t.Fatalf("toStatus(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}

	if msg := status.Convert(s.toStatus(context.Background(), errors.New("secret detail"))).Message(); msg != "internal error" {
		t.Fatalf("internal errors must not leak details, got %q", msg)
	}
	if msg := status.Convert(s.toStatus(context.Background(), common.ErrTokenExpired)).Message(); msg != TokenExpiredMessage {
		t.Fatalf("expected %q, got %q", TokenExpiredMessage, msg)
	}
}
