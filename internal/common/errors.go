// Package common defines shared constants and sentinel errors used across
// the server layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Membership errors.
	ErrAlreadyMember          = errors.New("already a member")
	ErrInvitesDisabled        = errors.New("invites disabled")
	ErrBanned                 = errors.New("banned from syncshell")
	ErrPermissionPrecondition = errors.New("permission precondition failed")
	ErrGroupIDTaken           = errors.New("syncshell id already in use")
	ErrAliasTaken             = errors.New("alias already in use")

	// Infrastructure errors.
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrBrokerUnavailable = errors.New("broker unavailable")

	// Dispatch errors.
	ErrUnknownEventType = errors.New("unknown event type")
	ErrMalformedEvent   = errors.New("malformed event")
)
