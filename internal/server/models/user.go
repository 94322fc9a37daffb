package models

import "time"

// User is a registered account. Limited users are temporary accounts that
// expire at LimitedUntil.
type User struct {
	UID          string
	Alias        string
	IsAdmin      bool
	IsModerator  bool
	IsLimited    bool
	LimitedUntil *time.Time
	CreatedAt    time.Time
}

// UserDefaultPreferredPermission is the user's global template, copied into
// every syncshell they create.
type UserDefaultPreferredPermission struct {
	UserUID                string
	DisableGroupSounds     bool
	DisableGroupAnimations bool
	DisableGroupVFX        bool
}

// Identity is the public face of a user carried in notifications.
type Identity struct {
	UID   string `json:"uid"`
	Alias string `json:"alias,omitempty"`
}
