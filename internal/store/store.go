// Package store persists orders, cards, and operator accounts through gorm.
package store

import "errors"

// Store errors.
var (
	// ErrNotFound indicates the keyed record does not exist.
	ErrNotFound = errors.New("store: record not found")
	// ErrDuplicate indicates an insert hit a unique index.
	ErrDuplicate = errors.New("store: duplicate key")
	// ErrStateChanged indicates a conditional update matched no row because the
	// record no longer satisfies the condition.
	ErrStateChanged = errors.New("store: record state changed")
)

// AssignMode selects the claim precondition a link assignment requires.
type AssignMode int

const (
	// AssignClaim binds a link to an unclaimed card and stamps claimed_at.
	AssignClaim AssignMode = iota
	// AssignChange replaces the link on a claimed card.
	AssignChange
)

func (m AssignMode) String() string {
	if m == AssignChange {
		return "change_link"
	}
	return "claim"
}
