// Package presence tracks which instance holds each user's live connection.
package presence

import "context"

// Entry points at one live connection.
type Entry struct {
	UID      string `json:"uid"`
	Ident    string `json:"ident"`
	Instance string `json:"instance"`
}

// Directory answers lookups. A missing user is (Entry{}, false, nil).
type Directory interface {
	Lookup(ctx context.Context, uid string) (Entry, bool, error)
}

// Registry maintains entries. Unregister removes the entry only while it
// still carries ident, so a stale disconnect cannot evict a newer connection.
// Refresh extends e only while the stored entry carries e.Ident, or recreates
// it when none is stored; it reports false when another connection holds uid.
type Registry interface {
	Directory
	Register(ctx context.Context, e Entry) error
	Refresh(ctx context.Context, e Entry) (bool, error)
	Unregister(ctx context.Context, uid, ident string) error
}
