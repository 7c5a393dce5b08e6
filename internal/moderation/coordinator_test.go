package moderation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modkeeper/internal/models"
)

func (e *testEnv) createAndApply(t *testing.T, p CreateParams) *models.Restriction {
	t.Helper()
	rec, err := e.coord.CreateAndApply(context.Background(), p)
	require.NoError(t, err)
	return rec
}

func timedBanParams(d time.Duration, clock *fakeClock) CreateParams {
	expires := clock.Now().Add(d)
	return CreateParams{
		Kind:        models.KindBan,
		CommunityID: testCommunity,
		IssuerID:    testIssuer,
		TargetID:    testTarget,
		Reason:      "spamming",
		ExpiresAt:   &expires,
	}
}

func TestApplyPersistsBeforeSideEffect(t *testing.T) {
	e := newTestEnv()
	rec := e.createAndApply(t, CreateParams{
		Kind: models.KindBan, CommunityID: testCommunity, IssuerID: testIssuer, TargetID: testTarget,
	})

	stored, err := e.store.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.Active())
	assert.Equal(t, 1, e.gw.count("ban"))
	assert.Equal(t, 1, e.notif.count("target"))
	assert.Equal(t, 1, e.notif.count("apply"))
}

func TestApplySilentSkipsTargetNotice(t *testing.T) {
	e := newTestEnv()
	e.createAndApply(t, CreateParams{
		Kind: models.KindBan, CommunityID: testCommunity, IssuerID: testIssuer, TargetID: testTarget,
		Silent: true,
	})
	assert.Equal(t, 0, e.notif.count("target"))
	assert.Equal(t, 1, e.notif.count("apply"))
}

func TestApplyNotifyFailureIsSwallowed(t *testing.T) {
	e := newTestEnv()
	e.notif.dmErr = assert.AnError

	rec, err := e.coord.CreateAndApply(context.Background(), CreateParams{
		Kind: models.KindBan, CommunityID: testCommunity, IssuerID: testIssuer, TargetID: testTarget,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, e.gw.count("ban"))
	require.NotNil(t, rec)
}

func TestApplyGatewayFailureKeepsRecord(t *testing.T) {
	e := newTestEnv()
	e.gw.failOp = "ban"
	e.gw.failErr = assert.AnError

	rec, err := e.coord.CreateAndApply(context.Background(), timedBanParams(time.Hour, e.clock))
	require.Error(t, err)

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, "apply", gwErr.Stage)

	// The applied-intent record survives, but no timer was armed and the
	// audit channel got a failure announcement instead of an apply one.
	require.NotNil(t, rec)
	stored, _ := e.store.GetByID(context.Background(), rec.ID)
	require.NotNil(t, stored)
	assert.True(t, stored.Active())
	assert.Equal(t, 0, e.coord.PendingTimers())
	assert.Equal(t, 1, e.notif.count("failure"))
	assert.Equal(t, 0, e.notif.count("apply"))
}

func TestTimedBanExpiresAndUnbans(t *testing.T) {
	e := newTestEnv()
	rec := e.createAndApply(t, timedBanParams(time.Hour, e.clock))
	assert.Equal(t, 1, e.coord.PendingTimers())

	e.clock.Advance(time.Hour)

	stored, _ := e.store.GetByID(context.Background(), rec.ID)
	require.NotNil(t, stored)
	assert.False(t, stored.Active())
	require.NotNil(t, stored.LiftedBy)
	assert.Equal(t, int64(testBotID), *stored.LiftedBy)
	assert.Equal(t, "Expired", stored.LiftReason)
	assert.Equal(t, 1, e.gw.count("unban"))
	assert.Equal(t, 0, e.coord.PendingTimers())

	lift := e.notif.last("lift")
	require.NotNil(t, lift)
	assert.True(t, lift.viaExpiration)
}

func TestManualLiftCancelsTimer(t *testing.T) {
	e := newTestEnv()
	rec := e.createAndApply(t, timedBanParams(time.Hour, e.clock))

	_, err := e.coord.LiftByID(context.Background(), rec.ID, testIssuer, "appeal")
	require.NoError(t, err)
	assert.Equal(t, 0, e.coord.PendingTimers())
	assert.Equal(t, 1, e.gw.count("unban"))

	// Advancing past the original expiration must not unban again.
	e.clock.Advance(2 * time.Hour)
	assert.Equal(t, 1, e.gw.count("unban"))

	lift := e.notif.last("lift")
	require.NotNil(t, lift)
	assert.False(t, lift.viaExpiration)
}

func TestSoftbanExpiryIsBookkeepingOnly(t *testing.T) {
	e := newTestEnv()
	expires := e.clock.Now().Add(time.Hour)
	rec := e.createAndApply(t, CreateParams{
		Kind: models.KindSoftban, CommunityID: testCommunity, IssuerID: testIssuer, TargetID: testTarget,
		ExpiresAt: &expires,
	})
	assert.Equal(t, 1, e.gw.count("kick"))

	e.clock.Advance(time.Hour)

	// The lift is a platform no-op but still closes the record and lands in
	// the audit log with expiration provenance.
	stored, _ := e.store.GetByID(context.Background(), rec.ID)
	require.NotNil(t, stored)
	assert.False(t, stored.Active())
	assert.Equal(t, 1, len(e.gw.calls))
	lift := e.notif.last("lift")
	require.NotNil(t, lift)
	assert.True(t, lift.viaExpiration)
}

func TestChannelMuteAppliesAndClearsOverride(t *testing.T) {
	e := newTestEnv()
	rec := e.createAndApply(t, CreateParams{
		Kind: models.KindChannelMute, CommunityID: testCommunity, IssuerID: testIssuer, TargetID: testTarget,
		ChannelID: 77,
	})
	assert.Equal(t, 1, e.gw.count("set_override"))

	_, err := e.coord.LiftByID(context.Background(), rec.ID, testIssuer, "served their time")
	require.NoError(t, err)
	assert.Equal(t, 1, e.gw.count("clear_override"))
}

func TestExpiredLiftGatewayFailureLeavesRecordActive(t *testing.T) {
	e := newTestEnv()
	rec := e.createAndApply(t, timedBanParams(time.Hour, e.clock))

	e.gw.failOp = "unban"
	e.gw.failErr = assert.AnError
	e.clock.Advance(time.Hour)

	// Manual-retry policy: the record stays active until a human lifts it.
	stored, _ := e.store.GetByID(context.Background(), rec.ID)
	require.NotNil(t, stored)
	assert.True(t, stored.Active())
	assert.Equal(t, 0, e.coord.PendingTimers())
	assert.Equal(t, 1, e.notif.count("failure"))

	// A later manual lift succeeds.
	e.gw.failOp = ""
	_, err := e.coord.LiftByID(context.Background(), rec.ID, testIssuer, "manual retry")
	require.NoError(t, err)
	stored, _ = e.store.GetByID(context.Background(), rec.ID)
	assert.False(t, stored.Active())
}

func TestRecoverOnStartupArmsTimersWithoutReapplying(t *testing.T) {
	e := newTestEnv()
	banRec := e.createAndApply(t, timedBanParams(time.Hour, e.clock))
	permanent := e.createAndApply(t, CreateParams{
		Kind: models.KindWarning, CommunityID: testCommunity, IssuerID: testIssuer, TargetID: 43,
	})

	// Simulate a restart: same store, fresh coordinator, timers gone.
	forwardCalls := len(e.gw.calls)
	restarted := NewCoordinator(e.store, e.gw, e.notif, Config{BotID: testBotID, Clock: e.clock})
	require.NoError(t, restarted.RecoverOnStartup(context.Background()))

	assert.Equal(t, 1, restarted.PendingTimers())
	assert.Equal(t, forwardCalls, len(e.gw.calls), "recovery must not re-run forward side effects")

	e.clock.Advance(time.Hour)
	stored, _ := e.store.GetByID(context.Background(), banRec.ID)
	assert.False(t, stored.Active())
	stored, _ = e.store.GetByID(context.Background(), permanent.ID)
	assert.True(t, stored.Active(), "records without expiration are untouched by recovery")
}

func TestRecoverOnStartupFiresPastDeadlineImmediately(t *testing.T) {
	e := newTestEnv()
	rec := e.createAndApply(t, timedBanParams(time.Hour, e.clock))

	restarted := NewCoordinator(e.store, e.gw, e.notif, Config{BotID: testBotID, Clock: e.clock})
	// The process was down past the expiration.
	e.clock.mu.Lock()
	e.clock.now = e.clock.now.Add(3 * time.Hour)
	e.clock.mu.Unlock()

	require.NoError(t, restarted.RecoverOnStartup(context.Background()))
	e.clock.Advance(0)

	stored, _ := e.store.GetByID(context.Background(), rec.ID)
	assert.False(t, stored.Active())
	assert.Equal(t, 1, e.gw.count("unban"))
}

func TestShutdownCancelsTimersWithoutLifting(t *testing.T) {
	e := newTestEnv()
	rec := e.createAndApply(t, timedBanParams(time.Hour, e.clock))
	require.Equal(t, 1, e.coord.PendingTimers())

	e.coord.Shutdown()
	assert.Equal(t, 0, e.coord.PendingTimers())

	e.clock.Advance(2 * time.Hour)
	stored, _ := e.store.GetByID(context.Background(), rec.ID)
	assert.True(t, stored.Active(), "shutdown must not lift records")
	assert.Equal(t, 0, e.gw.count("unban"))
}

func TestExpirationRacingManualLiftIsNoop(t *testing.T) {
	e := newTestEnv()
	rec := e.createAndApply(t, timedBanParams(time.Hour, e.clock))

	// Lift through the store directly so the coordinator's timer survives,
	// mimicking the timer losing the race after the state check.
	require.NoError(t, e.store.MarkLifted(context.Background(), rec.ID,
		models.Lift{LiftedBy: testIssuer, Reason: "appeal", LiftedAt: e.clock.Now()}))

	e.clock.Advance(time.Hour)
	assert.Equal(t, 0, e.gw.count("unban"), "firing on a lifted record must do nothing")
	assert.Equal(t, 0, e.coord.PendingTimers())
}
