package moderation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"modkeeper/internal/models"
	"modkeeper/internal/notifier"
)

// fakeClock is a virtual clock. Timers fire synchronously from Advance.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) TimerHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), fn: fn}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward and runs every due timer.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.fn()
	}
}

// fakeStore is an in-memory Store. It stores copies, so callers mutating a
// returned record do not change "persisted" state until MarkLifted runs.
type fakeStore struct {
	mu        sync.Mutex
	recs      map[string]models.Restriction
	createErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{recs: make(map[string]models.Restriction)}
}

func (s *fakeStore) Create(_ context.Context, rec *models.Restriction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	if _, ok := s.recs[rec.ID]; ok {
		return fmt.Errorf("duplicate id %s", rec.ID)
	}
	s.recs[rec.ID] = *rec
	return nil
}

func (s *fakeStore) GetByID(_ context.Context, id string) (*models.Restriction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok {
		return nil, nil
	}
	cp := rec
	return &cp, nil
}

func (s *fakeStore) FindActive(_ context.Context, kind models.Kind, communityID, targetID, channelID int64) (*models.Restriction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.recs {
		if rec.Kind == kind && rec.CommunityID == communityID && rec.TargetID == targetID &&
			rec.LiftedAt == nil && (channelID == 0 || rec.ChannelID == channelID) {
			cp := rec
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) ListForTarget(_ context.Context, communityID, targetID int64, includeLifted bool) ([]*models.Restriction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Restriction
	for _, rec := range s.recs {
		if rec.CommunityID == communityID && rec.TargetID == targetID &&
			(includeLifted || rec.LiftedAt == nil) {
			cp := rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeStore) ListActiveForTarget(_ context.Context, kind models.Kind, communityID, targetID int64) ([]*models.Restriction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Restriction
	for _, rec := range s.recs {
		if rec.Kind == kind && rec.CommunityID == communityID && rec.TargetID == targetID && rec.LiftedAt == nil {
			cp := rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeStore) ListExpiring(_ context.Context) ([]*models.Restriction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Restriction
	for _, rec := range s.recs {
		if rec.ExpiresAt != nil && rec.LiftedAt == nil {
			cp := rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeStore) CountActiveWarnings(_ context.Context, communityID, targetID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, rec := range s.recs {
		if rec.Kind == models.KindWarning && rec.CommunityID == communityID &&
			rec.TargetID == targetID && rec.LiftedAt == nil {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) MarkLifted(_ context.Context, id string, lift models.Lift) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok {
		return fmt.Errorf("no record %s", id)
	}
	if rec.LiftedAt != nil {
		return fmt.Errorf("record %s already lifted", id)
	}
	rec.SetLift(lift)
	s.recs[id] = rec
	return nil
}

func (s *fakeStore) countByKind(kind models.Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, rec := range s.recs {
		if rec.Kind == kind {
			n++
		}
	}
	return n
}

func (s *fakeStore) firstOfKind(kind models.Kind) *models.Restriction {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.recs {
		if rec.Kind == kind {
			cp := rec
			return &cp
		}
	}
	return nil
}

// fakeGateway records enforcement calls and can fail one operation.
type gatewayCall struct {
	op        string
	community int64
	target    int64
	channel   int64
	reason    string
}

type fakeGateway struct {
	mu      sync.Mutex
	calls   []gatewayCall
	failOp  string
	failErr error
}

func (g *fakeGateway) record(c gatewayCall) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failOp == c.op {
		return g.failErr
	}
	g.calls = append(g.calls, c)
	return nil
}

func (g *fakeGateway) count(op string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		if c.op == op {
			n++
		}
	}
	return n
}

func (g *fakeGateway) Ban(_ context.Context, communityID, targetID int64, reason string) error {
	return g.record(gatewayCall{op: "ban", community: communityID, target: targetID, reason: reason})
}

func (g *fakeGateway) Unban(_ context.Context, communityID, targetID int64, reason string) error {
	return g.record(gatewayCall{op: "unban", community: communityID, target: targetID, reason: reason})
}

func (g *fakeGateway) Kick(_ context.Context, communityID, targetID int64, reason string) error {
	return g.record(gatewayCall{op: "kick", community: communityID, target: targetID, reason: reason})
}

func (g *fakeGateway) SetChannelOverride(_ context.Context, channelID, targetID int64, allow, deny int64, reason string) error {
	return g.record(gatewayCall{op: "set_override", channel: channelID, target: targetID, reason: reason})
}

func (g *fakeGateway) ClearChannelOverride(_ context.Context, channelID, targetID int64, reason string) error {
	return g.record(gatewayCall{op: "clear_override", channel: channelID, target: targetID, reason: reason})
}

func (g *fakeGateway) UserName(_ context.Context, userID int64) (string, error) {
	return fmt.Sprintf("user%d", userID), nil
}

// fakeNotifier records every notification the coordinator sends.
type notice struct {
	kind          string // "target", "apply", "lift", "failure"
	recID         string
	summary       notifier.Summary
	viaExpiration bool
}

type fakeNotifier struct {
	mu      sync.Mutex
	notices []notice
	dmErr   error
}

func (n *fakeNotifier) add(nt notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, nt)
}

func (n *fakeNotifier) count(kind string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, nt := range n.notices {
		if nt.kind == kind {
			c++
		}
	}
	return c
}

func (n *fakeNotifier) last(kind string) *notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.notices) - 1; i >= 0; i-- {
		if n.notices[i].kind == kind {
			nt := n.notices[i]
			return &nt
		}
	}
	return nil
}

func (n *fakeNotifier) NotifyTarget(_ context.Context, rec *models.Restriction, s notifier.Summary) error {
	if n.dmErr != nil {
		return n.dmErr
	}
	n.add(notice{kind: "target", recID: rec.ID, summary: s})
	return nil
}

func (n *fakeNotifier) AnnounceApply(_ context.Context, rec *models.Restriction, s notifier.Summary) error {
	n.add(notice{kind: "apply", recID: rec.ID, summary: s})
	return nil
}

func (n *fakeNotifier) AnnounceLift(_ context.Context, rec *models.Restriction, s notifier.Summary, viaExpiration bool) error {
	n.add(notice{kind: "lift", recID: rec.ID, summary: s, viaExpiration: viaExpiration})
	return nil
}

func (n *fakeNotifier) AnnounceFailure(_ context.Context, rec *models.Restriction, stage string, cause error) error {
	n.add(notice{kind: "failure", recID: rec.ID})
	return nil
}

// testEnv bundles a coordinator with its fakes.
type testEnv struct {
	coord *Coordinator
	store *fakeStore
	gw    *fakeGateway
	notif *fakeNotifier
	clock *fakeClock
}

const (
	testBotID     = 999
	testCommunity = 1
	testIssuer    = 5
	testTarget    = 42
)

func newTestEnv() *testEnv {
	store := newFakeStore()
	gw := &fakeGateway{}
	notif := &fakeNotifier{}
	clock := newFakeClock()
	coord := NewCoordinator(store, gw, notif, Config{
		BotID:     testBotID,
		Clock:     clock,
		AppealURL: "https://example.test/appeal",
	})
	return &testEnv{coord: coord, store: store, gw: gw, notif: notif, clock: clock}
}
