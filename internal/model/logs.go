// internal/model/logs.go
package model

import "time"

// AuthStatus is the outcome of an authentication attempt
type AuthStatus string

const (
	AuthSuccess AuthStatus = "Success"
	AuthFailed  AuthStatus = "Failed"
)

// ParseAuthStatus maps a stored status string back to an AuthStatus
func ParseAuthStatus(s string) AuthStatus {
	if s == string(AuthFailed) {
		return AuthFailed
	}
	return AuthSuccess
}

// UnknownIdentifier is used when no source address could be extracted
const UnknownIdentifier = "unknown"

// AuthEvent represents one authentication attempt seen in the log.
// (Timestamp, Identifier) is unique.
type AuthEvent struct {
	Timestamp  int64 // unix seconds
	Identifier string
	Status     AuthStatus
}

// Time returns the event timestamp as time.Time
func (e AuthEvent) Time() time.Time {
	return time.Unix(e.Timestamp, 0)
}

// Failed reports whether the attempt failed
func (e AuthEvent) Failed() bool {
	return e.Status == AuthFailed
}
