package moderation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"modkeeper/internal/crash"
	"modkeeper/internal/gateway"
	"modkeeper/internal/logger"
	"modkeeper/internal/models"
	"modkeeper/internal/notifier"
)

// DefaultWarningThreshold is the active-warning count that triggers an
// automatic ban.
const DefaultWarningThreshold = 5

// Config tunes a Coordinator.
type Config struct {
	// BotID is the engine's own user id, used as issuer for automatic
	// actions and as actor for expiration lifts.
	BotID int64
	// WarningThreshold is the active-warning count that triggers an
	// automatic ban; zero means DefaultWarningThreshold.
	WarningThreshold int
	// AppealURL, when set, is included in ban/softban notices to targets.
	AppealURL string
	// Clock defaults to the system clock.
	Clock Clock
}

// Coordinator owns the restriction lifecycle: it persists records, drives
// kind-specific side effects through the gateway, schedules expiration lifts
// and interprets escalation requests. It is the sole writer of lift state.
type Coordinator struct {
	store         Store
	gw            gateway.Gateway
	notif         notifier.Notifier
	timers        *timerRegistry
	clock         Clock
	botID         int64
	warnThreshold int
	appealURL     string
}

// NewCoordinator creates a Coordinator
func NewCoordinator(store Store, gw gateway.Gateway, notif notifier.Notifier, cfg Config) *Coordinator {
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock()
	}
	threshold := cfg.WarningThreshold
	if threshold <= 0 {
		threshold = DefaultWarningThreshold
	}
	return &Coordinator{
		store:         store,
		gw:            gw,
		notif:         notif,
		timers:        newTimerRegistry(clock),
		clock:         clock,
		botID:         cfg.BotID,
		warnThreshold: threshold,
		appealURL:     cfg.AppealURL,
	}
}

// BotID returns the engine's own user id.
func (c *Coordinator) BotID() int64 { return c.botID }

// summaryContext computes the per-apply facts for summaries and escalation.
// For warnings this is the as-of active count, queried fresh so concurrent
// applies never see a stale cached value.
func (c *Coordinator) summaryContext(ctx context.Context, rec *models.Restriction) summaryContext {
	sc := summaryContext{threshold: c.warnThreshold, appealURL: c.appealURL}
	if rec.Kind == models.KindWarning {
		n, err := c.store.CountActiveWarnings(ctx, rec.CommunityID, rec.TargetID)
		if err != nil {
			logger.Warningf("Couldn't count warnings for target %d: %v", rec.TargetID, err)
		}
		sc.warningCount = n
	}
	return sc
}

// resolveName looks up a display name for audit reasons, best-effort.
func (c *Coordinator) resolveName(ctx context.Context, userID int64) string {
	name, err := c.gw.UserName(ctx, userID)
	if err != nil {
		logger.Debugf("Couldn't resolve name for user %d: %v", userID, err)
		return ""
	}
	return name
}

func (c *Coordinator) applyAuditReason(ctx context.Context, rec *models.Restriction) string {
	extras := []ReasonExtra{{Key: "case", Value: rec.ID}}
	if rec.ExpiresAt != nil {
		extras = append(extras, ReasonExtra{Key: "expires", Value: rec.ExpiresAt.UTC().Format(time.RFC3339)})
	}
	return AuditReason(c.resolveName(ctx, rec.IssuerID), rec.IssuerID, rec.Reason, extras...)
}

// Apply persists the record, notifies the target, performs the kind's forward
// side effect, arms the expiration timer and announces the action.
//
// Persistence comes first so a crash mid-apply leaves a record that startup
// recovery can still resolve, and the target is notified before the side
// effect so they are informed even if its confirmation is delayed. A gateway
// failure is surfaced to the caller after the record is durably written; the
// record is never rolled back.
func (c *Coordinator) Apply(ctx context.Context, rec *models.Restriction, silent bool) error {
	b, ok := kindBehaviors[rec.Kind]
	if !ok {
		return fmt.Errorf("unknown restriction kind %q", rec.Kind)
	}
	if err := c.store.Create(ctx, rec); err != nil {
		return fmt.Errorf("persist %s for target %d: %w", rec.Kind, rec.TargetID, err)
	}
	logger.Infof("Created %s case %s (target %d, community %d)", rec.Kind, rec.ID, rec.TargetID, rec.CommunityID)

	sc := c.summaryContext(ctx, rec)

	if !silent {
		if err := c.notif.NotifyTarget(ctx, rec, b.summarizeTarget(rec, sc)); err != nil {
			logger.Warningf("Couldn't notify target %d for case %s: %v", rec.TargetID, rec.ID, err)
		}
	}

	esc, err := b.apply(ctx, c.gw, rec, c.applyAuditReason(ctx, rec), sc)
	if err != nil {
		gwErr := &GatewayError{Stage: "apply", CaseID: rec.ID, Kind: rec.Kind, TargetID: rec.TargetID, Err: err}
		logger.Errorf("%v (record persisted, side effect not confirmed)", gwErr)
		if aerr := c.notif.AnnounceFailure(ctx, rec, "apply", err); aerr != nil {
			logger.Warningf("Couldn't announce apply failure for case %s: %v", rec.ID, aerr)
		}
		return gwErr
	}

	if rec.ExpiresAt != nil {
		c.scheduleExpiration(rec.ID, *rec.ExpiresAt)
	}

	if err := c.notif.AnnounceApply(ctx, rec, b.summarizeAudit(rec, sc)); err != nil {
		logger.Warningf("Couldn't announce case %s: %v", rec.ID, err)
	}

	if esc != nil {
		c.escalate(ctx, rec, esc)
	}
	return nil
}

// escalate issues the automatic ban requested by a warning apply. The ban is
// attributed to the bot itself and applied silent: the warning notice the
// target just received already covers it.
func (c *Coordinator) escalate(ctx context.Context, warning *models.Restriction, esc *escalation) {
	existing, err := c.store.FindActive(ctx, models.KindBan, warning.CommunityID, warning.TargetID, 0)
	if err != nil {
		logger.Errorf("Escalation duplicate check failed for target %d: %v", warning.TargetID, err)
		return
	}
	if existing != nil {
		logger.Infof("Target %d already has active ban %s, skipping escalation", warning.TargetID, existing.ID)
		return
	}
	ban := &models.Restriction{
		ID:          uuid.NewString(),
		Kind:        models.KindBan,
		CommunityID: warning.CommunityID,
		IssuerID:    c.botID,
		TargetID:    warning.TargetID,
		Reason:      fmt.Sprintf("Accumulated %d/%d warnings", esc.count, c.warnThreshold),
		CreatedAt:   c.clock.Now(),
	}
	logger.Infof("Escalating warnings for target %d to automatic ban %s", warning.TargetID, ban.ID)
	if err := c.Apply(ctx, ban, true); err != nil {
		logger.Errorf("Automatic ban for target %d failed: %v", warning.TargetID, err)
	}
}

// Lift reverses the kind's side effect, clears the pending timer and records
// the lift sub-record. Callers must only invoke it on active records; the
// engine's LiftByID boundary enforces that.
func (c *Coordinator) Lift(ctx context.Context, rec *models.Restriction, actorID int64, liftReason string, viaExpiration bool) error {
	b, ok := kindBehaviors[rec.Kind]
	if !ok {
		return fmt.Errorf("unknown restriction kind %q", rec.Kind)
	}

	auditReason := AuditReason(c.resolveName(ctx, actorID), actorID, liftReason)
	if err := b.lift(ctx, c.gw, rec, auditReason); err != nil {
		gwErr := &GatewayError{Stage: "lift", CaseID: rec.ID, Kind: rec.Kind, TargetID: rec.TargetID, Err: err}
		logger.Errorf("%v (record left active for manual retry)", gwErr)
		if aerr := c.notif.AnnounceFailure(ctx, rec, "lift", err); aerr != nil {
			logger.Warningf("Couldn't announce lift failure for case %s: %v", rec.ID, aerr)
		}
		return gwErr
	}

	// A fired timer discards its own entry; cancelling here would race the
	// callback that is running us.
	if viaExpiration {
		c.timers.Discard(rec.ID)
	} else {
		c.timers.Cancel(rec.ID)
	}

	lift := models.Lift{LiftedBy: actorID, Reason: liftReason, LiftedAt: c.clock.Now()}
	if err := c.store.MarkLifted(ctx, rec.ID, lift); err != nil {
		return fmt.Errorf("persist lift for case %s: %w", rec.ID, err)
	}
	rec.SetLift(lift)
	logger.Infof("Lifted %s case %s (actor %d, expired=%v)", rec.Kind, rec.ID, actorID, viaExpiration)

	sc := c.summaryContext(ctx, rec)
	if err := c.notif.AnnounceLift(ctx, rec, b.summarizeAudit(rec, sc), viaExpiration); err != nil {
		logger.Warningf("Couldn't announce lift of case %s: %v", rec.ID, err)
	}
	return nil
}

// scheduleExpiration arms the timer that lifts a record when it expires.
func (c *Coordinator) scheduleExpiration(id string, at time.Time) {
	c.timers.Schedule(id, at, func() {
		defer crash.RecoverWithStack("expiration-" + id)
		c.expire(id)
	})
}

// expire runs when an expiration timer fires. It re-checks the record's state
// first: a lift racing the timer resolves to a single effective lift, and the
// loser is a logged no-op.
func (c *Coordinator) expire(id string) {
	c.timers.Discard(id)

	ctx := context.Background()
	rec, err := c.store.GetByID(ctx, id)
	if err != nil {
		logger.Errorf("Couldn't load expired case %s: %v", id, err)
		return
	}
	if rec == nil {
		logger.Errorf("Expiration fired for unknown case %s", id)
		return
	}
	if !rec.Active() {
		logger.Infof("Expiration fired for already-lifted case %s, nothing to do", id)
		return
	}
	logger.Infof("Case %s expired, lifting", id)
	if err := c.Lift(ctx, rec, c.botID, "Expired", true); err != nil {
		// Deliberate policy: leave the record active for a human to retry
		// rather than mark it lifted when the reversal may not have landed.
		logger.Errorf("Automatic lift of case %s failed, manual retry required: %v", id, err)
	}
}

// RecoverOnStartup re-arms expiration timers for every persisted record that
// has an expiration and has not been lifted. Deadlines already in the past
// fire immediately. It must run to completion before the front-end starts
// accepting requests, and it never re-runs forward side effects: those were
// applied in a previous process lifetime.
func (c *Coordinator) RecoverOnStartup(ctx context.Context) error {
	recs, err := c.store.ListExpiring(ctx)
	if err != nil {
		return fmt.Errorf("scan for pending expirations: %w", err)
	}
	for _, rec := range recs {
		logger.Infof("Re-arming expiration timer for %s case %s (expires %s)",
			rec.Kind, rec.ID, rec.ExpiresAt.Format(time.RFC3339))
		c.scheduleExpiration(rec.ID, *rec.ExpiresAt)
	}
	logger.Infof("Startup recovery armed %d expiration timers", len(recs))
	return nil
}

// Shutdown cancels every pending timer without lifting the underlying
// records; the next startup recovery re-arms them.
func (c *Coordinator) Shutdown() {
	n := c.timers.Len()
	c.timers.Drain()
	logger.Infof("Cancelled %d pending expiration timers", n)
}

// PendingTimers reports how many expiration timers are armed.
func (c *Coordinator) PendingTimers() int {
	return c.timers.Len()
}
