// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Outcome labels shared by the auth flows.
const (
	OutcomeSuccess            = "success"
	OutcomeValidation         = "validation"
	OutcomeDuplicate          = "duplicate"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeError              = "error"

	TokenValid   = "valid"
	TokenInvalid = "invalid"
	TokenExpired = "expired"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Auth flow metrics
	IncRegistration(outcome string)
	IncLogin(outcome string)
	IncTokenVerification(result string)
	IncPasswordRehash()
	ObservePasswordHashDuration(duration time.Duration)

	// Profile cache metrics
	IncProfileCacheHit()
	IncProfileCacheMiss()

	// HTTP metrics
	IncRateLimited(scope string)
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)
}
