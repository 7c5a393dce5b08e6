package gateway

import "context"

// Gateway is the platform-level enforcement surface. Every mutating call
// carries a pre-built audit reason string. Implementations retry calls that
// fail with a rate-limit signal; any other failure is returned once.
type Gateway interface {
	// Ban permanently removes a user from the community and blocks rejoining.
	Ban(ctx context.Context, communityID, targetID int64, reason string) error
	// Unban reverses a ban.
	Unban(ctx context.Context, communityID, targetID int64, reason string) error
	// Kick removes a user from the community without blocking rejoining.
	Kick(ctx context.Context, communityID, targetID int64, reason string) error
	// SetChannelOverride installs a per-member permission overwrite on a channel.
	SetChannelOverride(ctx context.Context, channelID, targetID int64, allow, deny int64, reason string) error
	// ClearChannelOverride removes a per-member permission overwrite.
	ClearChannelOverride(ctx context.Context, channelID, targetID int64, reason string) error
	// UserName resolves a user id to a display name for audit strings.
	UserName(ctx context.Context, userID int64) (string, error)
}
