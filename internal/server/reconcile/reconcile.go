// Package reconcile computes the next state of a directed pairwise permission
// row when a syncshell join brings two users together. It is pure: callers
// load the inputs and persist the result.
package reconcile

import "github.com/dmitrijs2005/pairsync/internal/server/models"

// Defaults is the template a join applies to non-sticky rows.
type Defaults struct {
	DisableSounds     bool
	DisableAnimations bool
	DisableVFX        bool
	IsPaused          bool
}

// DefaultsFrom builds Defaults from the row owner's preference for the group.
func DefaultsFrom(p models.GroupPairPreferredPermission) Defaults {
	return Defaults{
		DisableSounds:     p.DisableSounds,
		DisableAnimations: p.DisableAnimations,
		DisableVFX:        p.DisableVFX,
		IsPaused:          p.IsPaused,
	}
}

// Outcome tells the caller which write, if any, the result needs.
type Outcome int

const (
	Unchanged Outcome = iota
	Created
	Updated
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Updated:
		return "updated"
	default:
		return "unchanged"
	}
}

// Reconcile returns the row ownerUID -> otherUID should hold after a join.
//
// With no existing row a new non-sticky row copies defaults, paused
// included. An existing non-sticky row takes the three mute flags from
// defaults and is un-paused. A sticky row is returned unchanged. existing is
// never modified.
func Reconcile(ownerUID, otherUID string, defaults Defaults, existing *models.UserPermissionSet) (models.UserPermissionSet, Outcome) {
	if existing == nil {
		return models.UserPermissionSet{
			UserUID:           ownerUID,
			OtherUserUID:      otherUID,
			DisableSounds:     defaults.DisableSounds,
			DisableAnimations: defaults.DisableAnimations,
			DisableVFX:        defaults.DisableVFX,
			IsPaused:          defaults.IsPaused,
		}, Created
	}

	next := *existing
	if next.Sticky {
		return next, Unchanged
	}

	next.DisableSounds = defaults.DisableSounds
	next.DisableAnimations = defaults.DisableAnimations
	next.DisableVFX = defaults.DisableVFX
	next.IsPaused = false

	if next == *existing {
		return next, Unchanged
	}
	return next, Updated
}

// ShouldNotifyOnline reports whether a join that just reconciled the two
// directions of a pair should announce the pair as online. It fires only for
// pairs that were not already synced before the join and only when neither
// side is paused.
func ShouldNotifyOnline(wasSynced bool, joinerToMember, memberToJoiner models.UserPermissionSet) bool {
	return !wasSynced && !joinerToMember.IsPaused && !memberToJoiner.IsPaused
}
