// Package policy holds the immutable catalogue of numeric limits and
// header toggles consumed by the parser, the response assembler and the
// exchange controller.
package policy

import "time"

// Policy is an immutable configuration record. A zero value for any of the
// numeric fields below means "unlimited" except where noted.
type Policy struct {
	// MaxMethodLength bounds the method token. Default 18, one past
	// "UPDATEREDIRECTREF" (17 characters), so the longest registered HTTP
	// method is still accepted and anything longer is rejected.
	MaxMethodLength int

	// MaxRequestTargetLength bounds the request-target.
	MaxRequestTargetLength int

	// MaxHeaderFieldNameLength bounds a single header field-name.
	MaxHeaderFieldNameLength int

	// MaxHeaderFieldValueLength bounds a single header field-value.
	MaxHeaderFieldValueLength int

	// MaxWhiteSpacesInHeaderField bounds the OWS run between ':' and the
	// first value octet.
	MaxWhiteSpacesInHeaderField int

	// MaxRequestsPerConnection bounds how many requests a single
	// connection may serve. 0 means unlimited.
	MaxRequestsPerConnection int

	// MaxRequestsCloseImmediately selects graceful mode (true: after the
	// Nth request has been served, close the connection immediately with
	// no further response) over strict mode (false: on every request,
	// check whether the cap is exceeded and, if so, respond 429 Too Many
	// Requests instead of serving it).
	MaxRequestsCloseImmediately bool

	// MaxConnectionLifetime bounds wall-clock time between connection
	// setup (after any TLS handshake, before the first read) and the start
	// of any later request cycle on the same connection. 0 means unlimited.
	MaxConnectionLifetime time.Duration

	// IdleReadTimeout, if nonzero, is applied to the socket before each
	// request-line read as a slowloris mitigation. Not present in the
	// original policy catalogue; defaults to 0 (disabled) to match the
	// original behavior exactly unless explicitly configured.
	IdleReadTimeout time.Duration

	DenyIFraming                bool
	EnableXSSProtectionHeader   bool
	EnableContentTypeNosniffing bool
	DisableReferrer             bool
	ContentSecurityPolicy       string
}

// Default returns the catalogue with the defaults named in the policy
// header this package is grounded on.
func Default() Policy {
	return Policy{
		MaxMethodLength:             18,
		MaxRequestTargetLength:      255,
		MaxHeaderFieldNameLength:    40,
		MaxHeaderFieldValueLength:   255,
		MaxWhiteSpacesInHeaderField: 20,
		MaxRequestsPerConnection:    300,
		MaxRequestsCloseImmediately: false,
		MaxConnectionLifetime:       60 * time.Second,
		IdleReadTimeout:             0,
		DenyIFraming:                true,
		EnableXSSProtectionHeader:   true,
		EnableContentTypeNosniffing: true,
		DisableReferrer:             true,
		ContentSecurityPolicy:       "",
	}
}

// Unlimited reports whether a cap of n means "no limit".
func Unlimited(n int) bool { return n == 0 }
