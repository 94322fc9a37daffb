// Package common contains shared constants and sentinel errors used across
// pairsync components.
package common

// AccessTokenHeaderName is the gRPC metadata key (and websocket query
// parameter) used to carry the access token.
const AccessTokenHeaderName = "access_token"

const (
	// GroupIDPrefix prefixes every generated syncshell GID.
	GroupIDPrefix = "MSS-"
	// GroupIDRandomLength is the number of random characters after the prefix.
	GroupIDRandomLength = 12
	// GeneratedPasswordLength is used when the creator supplies no password.
	GeneratedPasswordLength = 16

	// DirectPairGroup marks an individual pair in a PairInfo group list.
	DirectPairGroup = "Direct"
)
