package storage

import (
	"context"
	"errors"

	"modkeeper/internal/models"

	"gorm.io/gorm"
)

// RestrictionRepository handles database operations for Restriction records
type RestrictionRepository struct {
	db *gorm.DB
}

// NewRestrictionRepository creates a new RestrictionRepository
func NewRestrictionRepository(db *gorm.DB) *RestrictionRepository {
	return &RestrictionRepository{db: db}
}

// MigrateTable ensures the restrictions table exists
func (r *RestrictionRepository) MigrateTable() error {
	return r.db.AutoMigrate(&models.Restriction{})
}

// Create inserts a new restriction record
func (r *RestrictionRepository) Create(ctx context.Context, rec *models.Restriction) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

// GetByID returns the record with the given id, or nil when absent
func (r *RestrictionRepository) GetByID(ctx context.Context, id string) (*models.Restriction, error) {
	var rec models.Restriction
	err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// FindActive returns the active (not lifted) record of the given kind for a
// target, or nil when none exists. channelID narrows the lookup for channel
// mutes; pass 0 for every other kind.
func (r *RestrictionRepository) FindActive(ctx context.Context, kind models.Kind, communityID, targetID, channelID int64) (*models.Restriction, error) {
	q := r.db.WithContext(ctx).
		Where("kind = ? AND community_id = ? AND target_id = ? AND lifted_at IS NULL", kind, communityID, targetID)
	if channelID != 0 {
		q = q.Where("channel_id = ?", channelID)
	}
	var rec models.Restriction
	err := q.First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListForTarget returns all records for a target in a community, oldest
// first. Lifted records are included only when includeLifted is set.
func (r *RestrictionRepository) ListForTarget(ctx context.Context, communityID, targetID int64, includeLifted bool) ([]*models.Restriction, error) {
	q := r.db.WithContext(ctx).
		Where("community_id = ? AND target_id = ?", communityID, targetID).
		Order("created_at ASC")
	if !includeLifted {
		q = q.Where("lifted_at IS NULL")
	}
	var recs []*models.Restriction
	err := q.Find(&recs).Error
	return recs, err
}

// ListActiveForTarget returns all active records of one kind for a target.
func (r *RestrictionRepository) ListActiveForTarget(ctx context.Context, kind models.Kind, communityID, targetID int64) ([]*models.Restriction, error) {
	var recs []*models.Restriction
	err := r.db.WithContext(ctx).
		Where("kind = ? AND community_id = ? AND target_id = ? AND lifted_at IS NULL", kind, communityID, targetID).
		Find(&recs).Error
	return recs, err
}

// ListExpiring returns every record with an expiration set that has not been
// lifted yet, across all kinds. Used by startup recovery to re-arm timers.
func (r *RestrictionRepository) ListExpiring(ctx context.Context) ([]*models.Restriction, error) {
	var recs []*models.Restriction
	err := r.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND lifted_at IS NULL").
		Find(&recs).Error
	return recs, err
}

// CountActiveWarnings returns the number of active warning records for a target
func (r *RestrictionRepository) CountActiveWarnings(ctx context.Context, communityID, targetID int64) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Restriction{}).
		Where("kind = ? AND community_id = ? AND target_id = ? AND lifted_at IS NULL",
			models.KindWarning, communityID, targetID).
		Count(&count).Error
	return int(count), err
}

// MarkLifted persists the lift sub-record for a restriction. The lift columns
// are written exactly once; the coordinator guarantees the record is active.
func (r *RestrictionRepository) MarkLifted(ctx context.Context, id string, lift models.Lift) error {
	return r.db.WithContext(ctx).Model(&models.Restriction{}).
		Where("id = ? AND lifted_at IS NULL", id).
		Updates(map[string]interface{}{
			"lifted_by":   lift.LiftedBy,
			"lift_reason": lift.Reason,
			"lifted_at":   lift.LiftedAt,
		}).Error
}
