package models

// UserPermissionSet is a directed pairwise permission row: what UserUID
// applies to OtherUserUID. Sticky rows are never touched by group joins.
type UserPermissionSet struct {
	UserUID           string `json:"userUID"`
	OtherUserUID      string `json:"otherUserUID"`
	DisableSounds     bool   `json:"disableSounds"`
	DisableAnimations bool   `json:"disableAnimations"`
	DisableVFX        bool   `json:"disableVFX"`
	IsPaused          bool   `json:"isPaused"`
	Sticky            bool   `json:"sticky"`
}

// ClientPair is one direction of an individual (non-group) pairing.
type ClientPair struct {
	UserUID      string
	OtherUserUID string
}

// PairInfo summarises every relationship a user has with one peer.
type PairInfo struct {
	Alias              string
	IndividuallyPaired bool
	IsSynced           bool
	GIDs               []string
	OwnPermissions     *UserPermissionSet
	OtherPermissions   *UserPermissionSet
}
