package moderation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"modkeeper/internal/models"
)

// CreateParams describes one restriction to create and apply.
type CreateParams struct {
	Kind        models.Kind
	CommunityID int64
	IssuerID    int64
	TargetID    int64
	// ChannelID is required for channel mutes and ignored otherwise.
	ChannelID int64
	Reason    string
	// ExpiresAt, when set, must be strictly in the future; nil means the
	// restriction is permanent until manually lifted.
	ExpiresAt *time.Time
	// Silent skips the direct notice to the target.
	Silent bool
}

// CreateAndApply validates the request, rejects duplicates for the
// single-active kinds, then persists and applies the restriction. On a
// gateway failure the record is still returned alongside the error: it has
// been durably written as applied intent.
func (c *Coordinator) CreateAndApply(ctx context.Context, p CreateParams) (*models.Restriction, error) {
	if !p.Kind.Valid() {
		return nil, fmt.Errorf("unknown restriction kind %q", p.Kind)
	}
	if p.Kind == models.KindChannelMute && p.ChannelID == 0 {
		return nil, fmt.Errorf("channel mute requires a channel")
	}

	now := c.clock.Now()
	if p.ExpiresAt != nil && !p.ExpiresAt.After(now) {
		return nil, ErrExpiresNotFuture
	}

	// Warnings deliberately stack; every other kind allows at most one
	// active record per target (per channel, for mutes).
	if p.Kind != models.KindWarning {
		channelID := int64(0)
		if p.Kind == models.KindChannelMute {
			channelID = p.ChannelID
		}
		existing, err := c.store.FindActive(ctx, p.Kind, p.CommunityID, p.TargetID, channelID)
		if err != nil {
			return nil, fmt.Errorf("duplicate check for %s on target %d: %w", p.Kind, p.TargetID, err)
		}
		if existing != nil {
			return nil, &ConflictError{Kind: p.Kind, ExistingID: existing.ID}
		}
	}

	rec := &models.Restriction{
		ID:          uuid.NewString(),
		Kind:        p.Kind,
		CommunityID: p.CommunityID,
		IssuerID:    p.IssuerID,
		TargetID:    p.TargetID,
		Reason:      p.Reason,
		CreatedAt:   now,
		ExpiresAt:   p.ExpiresAt,
	}
	if p.Kind == models.KindChannelMute {
		rec.ChannelID = p.ChannelID
	}

	if err := c.Apply(ctx, rec, p.Silent); err != nil {
		return rec, err
	}
	return rec, nil
}

// LiftByID resolves a record by its case id and lifts it. The not-found and
// already-lifted checks live here, at the boundary: Lift itself assumes an
// active record.
func (c *Coordinator) LiftByID(ctx context.Context, id string, actorID int64, reason string) (*models.Restriction, error) {
	rec, err := c.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load case %s: %w", id, err)
	}
	if rec == nil {
		return nil, &NotFoundError{ID: id}
	}
	if !rec.Active() {
		return rec, &AlreadyLiftedError{ID: id}
	}
	if err := c.Lift(ctx, rec, actorID, reason, false); err != nil {
		return rec, err
	}
	return rec, nil
}

// LiftWarningByID lifts a warning by its case id. A case id belonging to a
// different kind or a different community is refused before any lift work
// happens: a pasted ban case id must never unban through this path.
func (c *Coordinator) LiftWarningByID(ctx context.Context, id string, communityID, actorID int64, reason string) (*models.Restriction, error) {
	rec, err := c.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load case %s: %w", id, err)
	}
	if rec == nil || rec.CommunityID != communityID {
		return nil, &NotFoundError{ID: id}
	}
	if rec.Kind != models.KindWarning {
		return nil, &WrongKindError{ID: id, Want: models.KindWarning, Got: rec.Kind}
	}
	if !rec.Active() {
		return rec, &AlreadyLiftedError{ID: id}
	}
	if err := c.Lift(ctx, rec, actorID, reason, false); err != nil {
		return rec, err
	}
	return rec, nil
}

// FindActive returns the active record of a kind for a target, or nil.
// channelID narrows the lookup for channel mutes.
func (c *Coordinator) FindActive(ctx context.Context, kind models.Kind, communityID, targetID, channelID int64) (*models.Restriction, error) {
	return c.store.FindActive(ctx, kind, communityID, targetID, channelID)
}

// ListAll returns every record for a target, optionally including lifted ones.
func (c *Coordinator) ListAll(ctx context.Context, communityID, targetID int64, includeLifted bool) ([]*models.Restriction, error) {
	return c.store.ListForTarget(ctx, communityID, targetID, includeLifted)
}

// ListActiveOfKind returns every active record of one kind for a target.
func (c *Coordinator) ListActiveOfKind(ctx context.Context, kind models.Kind, communityID, targetID int64) ([]*models.Restriction, error) {
	return c.store.ListActiveForTarget(ctx, kind, communityID, targetID)
}

// ActiveWarningCount returns the target's current active warning count.
func (c *Coordinator) ActiveWarningCount(ctx context.Context, communityID, targetID int64) (int, error) {
	return c.store.CountActiveWarnings(ctx, communityID, targetID)
}
