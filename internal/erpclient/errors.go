package erpclient

import "fmt"

// AuthError means the ERP rejected credentials or the session expired. The
// client retries authentication once before propagating this.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return fmt.Sprintf("erpclient: auth error: %s", e.Message) }

// RateLimitedError means the upstream ERP signalled throttling (HTTP 429).
// Callers must not count this against a circuit breaker.
type RateLimitedError struct {
	Message string
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("erpclient: rate limited: %s", e.Message)
}

// RpcError is any other protocol-level failure the ERP reports.
type RpcError struct {
	Message string
}

func (e *RpcError) Error() string { return fmt.Sprintf("erpclient: rpc error: %s", e.Message) }
