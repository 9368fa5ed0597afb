package broker

import (
	"errors"
	"fmt"

	"github.com/rustyeddy/tradebot/market"
)

// Wire error taxonomy. Transport errors are transient and retried by the
// acquisition layer; data errors are surfaced and never blindly retried.
var (
	// ErrTimeout marks a request that exceeded its deadline.
	ErrTimeout = errors.New("request timeout")

	// ErrNetwork marks a transport-level failure.
	ErrNetwork = errors.New("network error")

	// ErrInvalidResponse marks a non-JSON or otherwise unusable reply.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrParse marks a reply that failed to decode.
	ErrParse = errors.New("parse error")

	// ErrInvalidData marks a well-formed reply carrying unusable payload.
	ErrInvalidData = market.ErrInvalidData
)

// APIError is an exchange-reported fault with its numeric code.
type APIError struct {
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Msg)
}

// Rate-limit codes: 1016 is the CDN throttle page, 50011/50061 are the OKX
// v5 request-rate faults.
var rateLimitCodes = map[int]bool{1016: true, 50011: true, 50061: true}

// IsRateLimited reports whether err is an exchange rate-limit rejection.
// During initialization it triggers fallback to synthetic seed data.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && rateLimitCodes[apiErr.Code]
}

// IsTransient reports whether err is a transport fault worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrNetwork)
}
