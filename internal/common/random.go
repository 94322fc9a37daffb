package common

import (
	"crypto/rand"
	"math/big"
)

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GenerateRandByteArray returns n bytes from crypto/rand, or nil if the
// system source fails.
func GenerateRandByteArray(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil
	}
	return b
}

// RandomAlphanumeric returns a string of n characters drawn uniformly from
// [A-Za-z0-9].
func RandomAlphanumeric(n int) (string, error) {
	max := big.NewInt(int64(len(alphanumeric)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = alphanumeric[idx.Int64()]
	}
	return string(out), nil
}

// NewGroupID generates a candidate syncshell GID. Uniqueness is the
// caller's concern.
func NewGroupID() (string, error) {
	s, err := RandomAlphanumeric(GroupIDRandomLength)
	if err != nil {
		return "", err
	}
	return GroupIDPrefix + s, nil
}

// WipeByteArray zeroes b in place.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
