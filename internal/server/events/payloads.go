package events

import "github.com/dmitrijs2005/pairsync/internal/server/models"

// GroupInfo is the full public state of a syncshell.
type GroupInfo struct {
	GID                     string          `json:"gid"`
	Alias                   string          `json:"alias,omitempty"`
	Owner                   models.Identity `json:"owner"`
	InvitesEnabled          bool            `json:"invitesEnabled"`
	PreferDisableSounds     bool            `json:"preferDisableSounds"`
	PreferDisableAnimations bool            `json:"preferDisableAnimations"`
	PreferDisableVFX        bool            `json:"preferDisableVFX"`
}

// GroupPermissions is the recipient's own template inside a group.
type GroupPermissions struct {
	DisableSounds     bool `json:"disableSounds"`
	DisableAnimations bool `json:"disableAnimations"`
	DisableVFX        bool `json:"disableVFX"`
	IsPaused          bool `json:"isPaused"`
}

type MemberInfo struct {
	models.Identity
	IsPinned    bool `json:"isPinned"`
	IsModerator bool `json:"isModerator"`
}

// GroupFullInfo tells a new member everything about the syncshell they
// joined. Only pinned members and moderators are listed.
type GroupFullInfo struct {
	Group             GroupInfo             `json:"group"`
	OwnPermissions    GroupPermissions      `json:"ownPermissions"`
	PrivilegedMembers map[string]MemberInfo `json:"privilegedMembers"`
}

// PairJoined tells the recipient about one new group-derived pair.
// OwnPermissions is recipient -> member, OtherPermissions member -> recipient.
type PairJoined struct {
	GID              string                   `json:"gid"`
	Member           MemberInfo               `json:"member"`
	OwnPermissions   models.UserPermissionSet `json:"ownPermissions"`
	OtherPermissions models.UserPermissionSet `json:"otherPermissions"`
}

// OnlineNotification announces that a freshly synced pair should exchange
// online state. The receiving instance pushes to whichever side it holds.
type OnlineNotification struct {
	UserUID string          `json:"userUID"`
	PairUID string          `json:"pairUID"`
	Self    models.Identity `json:"self"`
	Pair    models.Identity `json:"pair"`
}

type UserExpired struct {
	UID string `json:"uid"`
}
