package moderation

import (
	"context"

	"modkeeper/internal/models"
)

// Store is the persistence surface the engine needs. The coordinator is the
// only writer of lift state; kind behaviors never touch the store.
// storage.RestrictionRepository is the production implementation.
type Store interface {
	Create(ctx context.Context, rec *models.Restriction) error
	GetByID(ctx context.Context, id string) (*models.Restriction, error)
	FindActive(ctx context.Context, kind models.Kind, communityID, targetID, channelID int64) (*models.Restriction, error)
	ListForTarget(ctx context.Context, communityID, targetID int64, includeLifted bool) ([]*models.Restriction, error)
	ListActiveForTarget(ctx context.Context, kind models.Kind, communityID, targetID int64) ([]*models.Restriction, error)
	ListExpiring(ctx context.Context) ([]*models.Restriction, error)
	CountActiveWarnings(ctx context.Context, communityID, targetID int64) (int, error)
	MarkLifted(ctx context.Context, id string, lift models.Lift) error
}
