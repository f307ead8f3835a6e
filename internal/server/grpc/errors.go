package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gophaccount/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var invalidArgumentErrors = []error{
	common.ErrPasswordRequirementsNotMet,
	common.ErrPasswordsDoNotMatch,
	common.ErrOldPasswordIncorrect,
	common.ErrFileNull,
	common.ErrFileInvalidSize,
	common.ErrFileInvalidType,
	common.ErrInvalidPhone,
	common.ErrValidation,
}

var unauthenticatedErrors = []error{
	common.ErrorUnauthorized,
	common.ErrMalformedToken,
	common.ErrInvalidSignature,
	common.ErrAlgorithmMismatch,
	common.ErrInvalidClaims,
}

// toStatus maps a service error to a gRPC status. Domain errors keep their
// sentinel message so clients can tell them apart; anything unknown is
// logged and reported as Internal.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrUserNotFound), errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, common.ErrUserNotFound.Error())
	case errors.Is(err, common.ErrTokenExpired):
		return status.Error(codes.Unauthenticated, TokenExpiredMessage)
	case isAny(err, unauthenticatedErrors):
		return status.Error(codes.Unauthenticated, common.ErrorUnauthorized.Error())
	case errors.Is(err, common.ErrAccountInactive):
		return status.Error(codes.PermissionDenied, common.ErrAccountInactive.Error())
	case errors.Is(err, common.ErrSelfDeactivationForbidden):
		return status.Error(codes.PermissionDenied, common.ErrSelfDeactivationForbidden.Error())
	case errors.Is(err, common.ErrEmailInUse):
		return status.Error(codes.AlreadyExists, common.ErrEmailInUse.Error())
	case errors.Is(err, common.ErrSocialLoginDisabled):
		return status.Error(codes.FailedPrecondition, common.ErrSocialLoginDisabled.Error())
	case isAny(err, invalidArgumentErrors):
		return status.Error(codes.InvalidArgument, err.Error())
	}

	if st, ok := status.FromError(err); ok {
		return st.Err()
	}

	s.logger.Error(ctx, "request failed", "error", err)
	return status.Error(codes.Internal, "internal error")
}

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}
