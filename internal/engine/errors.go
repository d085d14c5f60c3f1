package engine

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Failure classes for a narrative service call.
var (
	ErrUnavailable = errors.New("narrative service unreachable")
	ErrCredentials = errors.New("narrative service rejected credentials")
	ErrTimeout     = errors.New("narrative service timed out")
	ErrRateLimited = errors.New("narrative service rate limited")
	ErrEmpty       = errors.New("narrative service returned no content")
)

// classify wraps err with the matching failure class, leaving unknown
// errors as they are.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %w", ErrCredentials, err)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %w", ErrRateLimited, err)
		case http.StatusGatewayTimeout, http.StatusRequestTimeout:
			return fmt.Errorf("%w: %w", ErrTimeout, err)
		case http.StatusBadGateway, http.StatusServiceUnavailable:
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
	}

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unauthenticated, codes.PermissionDenied:
			return fmt.Errorf("%w: %w", ErrCredentials, err)
		case codes.ResourceExhausted:
			return fmt.Errorf("%w: %w", ErrRateLimited, err)
		case codes.DeadlineExceeded:
			return fmt.Errorf("%w: %w", ErrTimeout, err)
		case codes.Unavailable:
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
	}

	var nerr net.Error
	if errors.As(err, &nerr) {
		if nerr.Timeout() {
			return fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}
