package draws_test

import (
	"context"
	"errors"
	"sync"
	"time"

	groupstore "github.com/dalemusser/giftbubble/internal/app/store/groups"
	"github.com/dalemusser/giftbubble/internal/app/system/draws"
	"github.com/dalemusser/giftbubble/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var errStorage = errors.New("storage unavailable")

// memStore implements every repository the orchestrator uses.
type memStore struct {
	mu      sync.Mutex
	groups  map[primitive.ObjectID]models.Group
	members map[primitive.ObjectID][]primitive.ObjectID
	rules   map[primitive.ObjectID][]models.ExclusionRule
	users   map[primitive.ObjectID]models.User
	rows    []models.Assignment

	exclusionLoads int

	// insertFailAfter makes InsertMany store that many rows, then fail.
	insertFailAfter int
	failInsert      bool
	failMembers     bool
}

func newMemStore() *memStore {
	return &memStore{
		groups:  map[primitive.ObjectID]models.Group{},
		members: map[primitive.ObjectID][]primitive.ObjectID{},
		rules:   map[primitive.ObjectID][]models.ExclusionRule{},
		users:   map[primitive.ObjectID]models.User{},
	}
}

// addGroup creates a group with n named members and returns the group id
// and member ids in join order.
func (m *memStore) addGroup(n int, scheduledAt *time.Time) (primitive.ObjectID, []primitive.ObjectID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := models.Group{ID: primitive.NewObjectID(), Name: "group", ScheduledDrawAt: scheduledAt}
	m.groups[g.ID] = g
	ids := make([]primitive.ObjectID, n)
	for i := range ids {
		ids[i] = primitive.NewObjectID()
		m.users[ids[i]] = models.User{ID: ids[i], DisplayName: "member " + string(rune('A'+i))}
	}
	m.members[g.ID] = ids
	return g.ID, ids
}

func (m *memStore) exclude(groupID, a, b primitive.ObjectID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[groupID] = append(m.rules[groupID], models.ExclusionRule{GroupID: groupID, UserID1: a, UserID2: b})
}

func (m *memStore) group(id primitive.ObjectID) models.Group {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.groups[id]
}

func (m *memStore) rowsFor(groupID primitive.ObjectID) []models.Assignment {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Assignment
	for _, r := range m.rows {
		if r.GroupID == groupID {
			out = append(out, r)
		}
	}
	return out
}

func (m *memStore) snapshot() (map[primitive.ObjectID]models.Group, []models.Assignment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	gs := make(map[primitive.ObjectID]models.Group, len(m.groups))
	for k, v := range m.groups {
		gs[k] = v
	}
	return gs, append([]models.Assignment(nil), m.rows...)
}

func (m *memStore) restore(gs map[primitive.ObjectID]models.Group, rows []models.Assignment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups = gs
	m.rows = rows
}

// GroupRepo

func (m *memStore) GetByID(_ context.Context, id primitive.ObjectID) (models.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[id]
	if !ok {
		return models.Group{}, mongo.ErrNoDocuments
	}
	return g, nil
}

func (m *memStore) ClaimDraw(_ context.Context, id primitive.ObjectID, drawID string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[id]
	if !ok || g.Drawn {
		return false, nil
	}
	g.Drawn = true
	g.DrawID = drawID
	g.DrawnAt = &now
	g.ScheduledDrawAt = nil
	m.groups[id] = g
	return true, nil
}

func (m *memStore) ReleaseDraw(_ context.Context, id primitive.ObjectID, drawID string, scheduledAt *time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[id]
	if !ok || g.DrawID != drawID {
		return false, nil
	}
	g.Drawn = false
	g.DrawID = ""
	g.DrawnAt = nil
	if scheduledAt != nil {
		g.ScheduledDrawAt = scheduledAt
	}
	m.groups[id] = g
	return true, nil
}

func (m *memStore) Reset(_ context.Context, id primitive.ObjectID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[id]
	if !ok || !g.Drawn {
		return "", groupstore.ErrNotDrawn
	}
	prev := g.DrawID
	g.Drawn = false
	g.DrawID = ""
	g.DrawnAt = nil
	m.groups[id] = g
	return prev, nil
}

func (m *memStore) ListDueForDraw(_ context.Context, now time.Time, limit int64) ([]models.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Group
	for _, g := range m.groups {
		if !g.Drawn && g.ScheduledDrawAt != nil && !g.ScheduledDrawAt.After(now) {
			out = append(out, g)
		}
	}
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MemberRepo

func (m *memStore) ActiveUserIDs(_ context.Context, groupID primitive.ObjectID) ([]primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failMembers {
		return nil, errStorage
	}
	return append([]primitive.ObjectID(nil), m.members[groupID]...), nil
}

// ExclusionRepo

func (m *memStore) ListByGroup(_ context.Context, groupID primitive.ObjectID) ([]models.ExclusionRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exclusionLoads++
	return append([]models.ExclusionRule(nil), m.rules[groupID]...), nil
}

// AssignmentRepo

func (m *memStore) InsertMany(_ context.Context, rows []models.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range rows {
		if m.failInsert && i >= m.insertFailAfter {
			return errStorage
		}
		for _, existing := range m.rows {
			if existing.GroupID == r.GroupID && (existing.GiverID == r.GiverID || existing.ReceiverID == r.ReceiverID) {
				return errors.New("duplicate key")
			}
		}
		m.rows = append(m.rows, r)
	}
	return nil
}

func (m *memStore) GetForGiver(_ context.Context, groupID, giverID primitive.ObjectID) (models.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.GroupID == groupID && r.GiverID == giverID {
			return r, nil
		}
	}
	return models.Assignment{}, mongo.ErrNoDocuments
}

func (m *memStore) DeleteByGroup(_ context.Context, groupID primitive.ObjectID) (int64, error) {
	return m.deleteWhere(func(r models.Assignment) bool { return r.GroupID == groupID }), nil
}

func (m *memStore) DeleteByDraw(_ context.Context, groupID primitive.ObjectID, drawID string) (int64, error) {
	return m.deleteWhere(func(r models.Assignment) bool { return r.GroupID == groupID && r.DrawID == drawID }), nil
}

func (m *memStore) deleteWhere(match func(models.Assignment) bool) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.rows[:0]
	var n int64
	for _, r := range m.rows {
		if match(r) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.rows = kept
	return n
}

// memUsers adapts memStore to draws.UserRepo; GetByID is taken by groups.
type memUsers struct{ m *memStore }

func (u memUsers) GetByID(_ context.Context, id primitive.ObjectID) (models.User, error) {
	u.m.mu.Lock()
	defer u.m.mu.Unlock()
	usr, ok := u.m.users[id]
	if !ok {
		return models.User{}, mongo.ErrNoDocuments
	}
	return usr, nil
}

type inTxKey struct{}

// fakeTx emulates a transaction by serialising bodies and restoring a
// snapshot on error. Serialising stands in for the write conflict that
// aborts one of two overlapping transactions, so in this mode concurrent
// draws never interleave and ClaimDraw is not what decides the winner.
// With transactional=false bodies run concurrently, the way txn.Runner
// does on a standalone server, and ClaimDraw is the only guard.
type fakeTx struct {
	m             *memStore
	transactional bool
	mu            sync.Mutex
}

func (t *fakeTx) Run(ctx context.Context, fn func(ctx context.Context) error) (bool, error) {
	ctx = context.WithValue(ctx, inTxKey{}, true)
	if !t.transactional {
		return false, fn(ctx)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	gs, rows := t.m.snapshot()
	if err := fn(ctx); err != nil {
		t.m.restore(gs, rows)
		return true, err
	}
	return true, nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls [][]models.Assignment
	err   error
}

func (n *recordingNotifier) NotifyDraw(_ context.Context, _ models.Group, rows []models.Assignment) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, rows)
	return n.err
}

type recordingAuditor struct {
	mu       sync.Mutex
	executed int
	failed   []string
	resets   int

	// outsideTx counts DrawExecuted/DrawReset calls made outside Tx.Run.
	outsideTx int
	ctxErr    error

	failExecuted error
	failReset    error
}

func (a *recordingAuditor) DrawExecuted(ctx context.Context, _ primitive.ObjectID, _ *primitive.ObjectID, _ string, _ string, _ int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if ctx.Value(inTxKey{}) == nil {
		a.outsideTx++
	}
	a.ctxErr = ctx.Err()
	if a.failExecuted != nil {
		return a.failExecuted
	}
	a.executed++
	return nil
}

func (a *recordingAuditor) DrawFailed(_ context.Context, _ primitive.ObjectID, _ *primitive.ObjectID, _ string, reason string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failed = append(a.failed, reason)
}

func (a *recordingAuditor) DrawReset(ctx context.Context, _ primitive.ObjectID, _ *primitive.ObjectID, _ string, _ string, _ int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if ctx.Value(inTxKey{}) == nil {
		a.outsideTx++
	}
	if a.failReset != nil {
		return a.failReset
	}
	a.resets++
	return nil
}

type harness struct {
	store    *memStore
	tx       *fakeTx
	notifier *recordingNotifier
	audit    *recordingAuditor
	svc      *draws.Service
}

func newHarness(transactional bool, seed int64) *harness {
	h := &harness{
		store:    newMemStore(),
		notifier: &recordingNotifier{},
		audit:    &recordingAuditor{},
	}
	h.tx = &fakeTx{m: h.store, transactional: transactional}
	h.svc = draws.NewService(draws.Deps{
		Groups:      h.store,
		Members:     h.store,
		Exclusions:  h.store,
		Assignments: h.store,
		Users:       memUsers{h.store},
		Tx:          h.tx,
		Notifier:    h.notifier,
		Audit:       h.audit,
	}, draws.Config{Seed: seed})
	return h
}
