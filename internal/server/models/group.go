package models

import "time"

// Group is a syncshell. HashedPassword holds an encoded argon2id hash.
type Group struct {
	GID                     string
	Alias                   string
	OwnerUID                string
	HashedPassword          string
	InvitesEnabled          bool
	PreferDisableSounds     bool
	PreferDisableAnimations bool
	PreferDisableVFX        bool
	CreatedAt               time.Time
}

// GroupPair is a membership of one user in one group.
type GroupPair struct {
	GroupGID     string
	GroupUserUID string
	IsPinned     bool
	IsModerator  bool
	JoinedAt     time.Time
}

// GroupMember is a membership joined with the member's public identity.
type GroupMember struct {
	GroupPair
	Alias string
}

// GroupPairPreferredPermission is the per-(user, group) template applied to
// new pairwise relationships formed inside that group.
type GroupPairPreferredPermission struct {
	GroupGID          string
	UserUID           string
	DisableSounds     bool
	DisableAnimations bool
	DisableVFX        bool
	IsPaused          bool
}

type GroupBan struct {
	GroupGID      string
	BannedUserUID string
	BannedByUID   string
	Reason        string
	BannedAt      time.Time
}
