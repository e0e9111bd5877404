package api

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/solatis/querybuilder/internal/types"
)

// errNoStore is returned by saved-query operations on a service built without a store.
var errNoStore = errors.New("saved queries are not configured")

// Code classifies an error for transport mapping.
// CompileErrors and malformed requests map to InvalidArgument, missing saved queries to
// NotFound, context timeouts to DeadlineExceeded, everything else to Internal.
func Code(err error) codes.Code {
	var compileErr *types.CompileError
	switch {
	case err == nil:
		return codes.OK
	case errors.As(err, &compileErr),
		errors.Is(err, errBadRequest),
		errors.Is(err, types.ErrUnknownNodeType),
		errors.Is(err, types.ErrEmptyNode),
		errors.Is(err, types.ErrInvalidQueryName):
		return codes.InvalidArgument
	case errors.Is(err, types.ErrSavedQueryNotFound):
		return codes.NotFound
	case errors.Is(err, errNoStore):
		return codes.Unimplemented
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	default:
		return codes.Internal
	}
}

// GRPCError converts err to a status error carrying Code(err).
func GRPCError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(Code(err), err.Error())
}

// HTTPStatus maps Code(err) to an HTTP status.
func HTTPStatus(err error) int {
	switch Code(err) {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.NotFound:
		return http.StatusNotFound
	case codes.Unimplemented:
		return http.StatusNotImplemented
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.Canceled:
		return 499
	default:
		return http.StatusInternalServerError
	}
}
