package moderation

import "fmt"

// MemberInfo is the slice of platform state target validation needs.
type MemberInfo struct {
	ID int64
	// IsBot marks bot accounts.
	IsBot bool
	// Rank is the member's authority level; a moderator may only act on
	// members of strictly lower rank.
	Rank int
	// RolePosition is the member's highest role position in the platform
	// hierarchy, which bounds what the engine itself can enforce against.
	RolePosition int
}

// TargetPolicy evaluates whether a moderation target is eligible at all.
// It runs in the front-end before any record is created.
type TargetPolicy struct {
	// BotID is the engine's own account.
	BotID int64
	// OwnerID is the operator account that may never be targeted.
	OwnerID int64
	// BotRolePosition is the engine's highest role position; targets at or
	// above it are unenforceable.
	BotRolePosition int
}

// CheckTarget returns a TargetRejectedError when the target may not be
// moderated by the issuer. verb names the attempted action for the message.
func (p TargetPolicy) CheckTarget(issuer, target MemberInfo, verb string) error {
	switch {
	case issuer.ID == target.ID:
		return &TargetRejectedError{Message: fmt.Sprintf("You can't %s yourself, silly!", verb)}
	case target.ID == p.BotID:
		return &TargetRejectedError{Message: "I'm sorry, I'm afraid I can't do that."}
	case target.ID == p.OwnerID:
		return &TargetRejectedError{Message: fmt.Sprintf("How dare you try and %s my creator like that?!", verb)}
	case target.IsBot:
		return &TargetRejectedError{Message: fmt.Sprintf("You can't %s a bot!", verb)}
	case target.Rank >= issuer.Rank:
		return &TargetRejectedError{Message: fmt.Sprintf("I can't let you %s that user because they are the same or higher rank than you.", verb)}
	case target.RolePosition >= p.BotRolePosition:
		return &TargetRejectedError{Message: fmt.Sprintf("I can't %s that user because their top role is the same as or above mine.", verb)}
	}
	return nil
}
