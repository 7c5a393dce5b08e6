package notifier

import (
	"context"

	"modkeeper/internal/models"
)

// Embed colors shared by all notification renderers.
const (
	ColorRed    = 0xED4245
	ColorOrange = 0xE67E22
	ColorYellow = 0xF1C40F
	ColorGreen  = 0x57F287
)

// Field is one name/value pair attached to a notification.
type Field struct {
	Name  string
	Value string
}

// Summary is the kind-specific, human-readable description of a restriction,
// produced by the moderation package and rendered by a Notifier.
type Summary struct {
	Title       string
	Description string
	Color       int
	Fields      []Field
}

// Notifier delivers moderation notices to targets and to the audit log.
// Implementations render however their platform wants; the engine treats
// delivery as best-effort except where noted.
type Notifier interface {
	// NotifyTarget sends a direct notice to the restricted user.
	NotifyTarget(ctx context.Context, rec *models.Restriction, s Summary) error
	// AnnounceApply posts an audit-log entry for a newly applied restriction.
	AnnounceApply(ctx context.Context, rec *models.Restriction, s Summary) error
	// AnnounceLift posts an audit-log entry for a lifted restriction.
	AnnounceLift(ctx context.Context, rec *models.Restriction, s Summary, viaExpiration bool) error
	// AnnounceFailure posts an audit-log entry for a failed enforcement call.
	AnnounceFailure(ctx context.Context, rec *models.Restriction, stage string, cause error) error
}
