package models

import "time"

// Kind identifies one of the fixed restriction kinds. The set is closed;
// adding a kind requires a matching behavior entry in the moderation package.
type Kind string

const (
	KindBan         Kind = "ban"
	KindSoftban     Kind = "softban"
	KindChannelMute Kind = "channel_mute"
	KindWarning     Kind = "warning"
)

// AllKinds lists every restriction kind.
var AllKinds = []Kind{KindBan, KindSoftban, KindChannelMute, KindWarning}

// Noun returns the human-readable noun for the kind, used in messages.
func (k Kind) Noun() string {
	switch k {
	case KindBan:
		return "ban"
	case KindSoftban:
		return "softban"
	case KindChannelMute:
		return "mute"
	case KindWarning:
		return "warning"
	}
	return "restriction"
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindBan, KindSoftban, KindChannelMute, KindWarning:
		return true
	}
	return false
}

// Restriction is one moderation action issued against a user. Records are
// retained indefinitely after being lifted; the lift columns stay NULL while
// the restriction is active.
type Restriction struct {
	ID          string `gorm:"primaryKey;size:36"`
	Kind        Kind   `gorm:"size:16;not null;index"`
	CommunityID int64  `gorm:"not null;index:idx_community_target,priority:1"`
	IssuerID    int64  `gorm:"not null"`
	TargetID    int64  `gorm:"not null;index:idx_community_target,priority:2"`
	// ChannelID is set only for channel mutes; zero for every other kind.
	ChannelID int64  `gorm:"default:0"`
	Reason    string `gorm:"type:text"`
	CreatedAt time.Time
	ExpiresAt *time.Time

	LiftedBy   *int64
	LiftReason string `gorm:"type:text"`
	LiftedAt   *time.Time
}

// Lift describes who terminated a restriction, why, and when.
type Lift struct {
	LiftedBy int64
	Reason   string
	LiftedAt time.Time
}

// Active reports whether the restriction has not been lifted. A record whose
// expiration has passed but whose lift columns are unset still counts as
// active until the coordinator lifts it.
func (r *Restriction) Active() bool {
	return r.LiftedAt == nil
}

// SetLift records the lift sub-record. It must be applied at most once.
func (r *Restriction) SetLift(l Lift) {
	r.LiftedBy = &l.LiftedBy
	r.LiftReason = l.Reason
	r.LiftedAt = &l.LiftedAt
}

// Permanent reports whether the restriction has no expiration.
func (r *Restriction) Permanent() bool {
	return r.ExpiresAt == nil
}
