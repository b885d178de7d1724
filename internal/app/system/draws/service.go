package draws

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"sync"
	"time"

	groupstore "github.com/dalemusser/giftbubble/internal/app/store/groups"
	"github.com/dalemusser/giftbubble/internal/app/system/santa"
	"github.com/dalemusser/giftbubble/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// GroupRepo is the slice of the group store the orchestrator needs.
type GroupRepo interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error)
	ClaimDraw(ctx context.Context, id primitive.ObjectID, drawID string, now time.Time) (bool, error)
	ReleaseDraw(ctx context.Context, id primitive.ObjectID, drawID string, scheduledAt *time.Time) (bool, error)
	Reset(ctx context.Context, id primitive.ObjectID) (string, error)
	ListDueForDraw(ctx context.Context, now time.Time, limit int64) ([]models.Group, error)
}

// MemberRepo lists a group's active members in join order.
type MemberRepo interface {
	ActiveUserIDs(ctx context.Context, groupID primitive.ObjectID) ([]primitive.ObjectID, error)
}

// ExclusionRepo lists a group's exclusion rules.
type ExclusionRepo interface {
	ListByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.ExclusionRule, error)
}

// AssignmentRepo persists draw results.
type AssignmentRepo interface {
	InsertMany(ctx context.Context, rows []models.Assignment) error
	GetForGiver(ctx context.Context, groupID, giverID primitive.ObjectID) (models.Assignment, error)
	DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error)
	DeleteByDraw(ctx context.Context, groupID primitive.ObjectID, drawID string) (int64, error)
}

// UserRepo resolves display names.
type UserRepo interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
}

// Transactor runs fn atomically when it can. transactional reports whether
// it did; when false, fn ran without isolation and the caller compensates.
type Transactor interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) (transactional bool, err error)
}

// Notifier tells each giver who they drew. It is called after commit and
// its error is only logged.
type Notifier interface {
	NotifyDraw(ctx context.Context, group models.Group, rows []models.Assignment) error
}

// Auditor records draw outcomes. *auditlog.Logger satisfies it.
// DrawExecuted and DrawReset are called inside the transaction with its
// context; a returned error aborts the operation. DrawFailed is called
// afterwards and cannot fail.
type Auditor interface {
	DrawExecuted(ctx context.Context, groupID primitive.ObjectID, actorID *primitive.ObjectID, trigger, drawID string, assignments int) error
	DrawFailed(ctx context.Context, groupID primitive.ObjectID, actorID *primitive.ObjectID, trigger, reason string)
	DrawReset(ctx context.Context, groupID primitive.ObjectID, actorID *primitive.ObjectID, trigger, drawID string, removed int64) error
}

// Actor identifies who triggered an operation. UserID is nil for the
// scheduler.
type Actor struct {
	UserID  *primitive.ObjectID
	Trigger string
}

// Result describes a committed draw.
type Result struct {
	GroupID         primitive.ObjectID
	DrawID          string
	AssignmentCount int
	Transactional   bool
}

// Config tunes the orchestrator.
type Config struct {
	// MaxAttempts bounds rejection sampling (santa.DefaultMaxAttempts if 0).
	MaxAttempts int
	// Constructive enables the matching fallback after sampling fails.
	Constructive bool
	// FanoutTimeout bounds post-commit notification work.
	FanoutTimeout time.Duration
	// Seed fixes the random source; 0 seeds from the clock.
	Seed int64
}

// Deps are the collaborators of Service. Notifier, Audit, Metrics and Users
// may be nil.
type Deps struct {
	Groups      GroupRepo
	Members     MemberRepo
	Exclusions  ExclusionRepo
	Assignments AssignmentRepo
	Users       UserRepo
	Tx          Transactor
	Notifier    Notifier
	Audit       Auditor
	Metrics     *Metrics
	Log         *zap.Logger
	Now         func() time.Time
}

// Service is the draw orchestrator shared by the manual trigger, the
// scheduler sweep and the CLI.
type Service struct {
	d   Deps
	cfg Config

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewService builds a Service.
func NewService(d Deps, cfg Config) *Service {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = santa.DefaultMaxAttempts
	}
	if cfg.FanoutTimeout <= 0 {
		cfg.FanoutTimeout = 30 * time.Second
	}
	return &Service{d: d, cfg: cfg, rng: santa.NewRand(cfg.Seed)}
}

// attempt holds what one run of the transactional body produced.
type attempt struct {
	group   models.Group
	rows    []models.Assignment
	drawID  string
	claimed bool
}

// ExecuteDraw computes and commits a draw for groupID. Rule failures leave
// the group untouched; at most one concurrent caller can succeed.
func (s *Service) ExecuteDraw(ctx context.Context, groupID primitive.ObjectID, actor Actor) (Result, error) {
	start := s.d.Now()
	log := s.d.Log.With(zap.String("group_id", groupID.Hex()), zap.String("trigger", actor.Trigger))

	var at attempt
	transactional, err := s.d.Tx.Run(ctx, func(ctx context.Context) error {
		at = attempt{}
		return s.drawOnce(ctx, groupID, actor, start, &at)
	})

	if err != nil && !transactional && at.claimed {
		s.compensate(ctx, log, at)
	}

	s.d.Metrics.ObserveDraw(actor.Trigger, err, s.d.Now().Sub(start).Seconds())

	if err != nil {
		var de *Error
		if !errors.As(err, &de) {
			de = persistence("could not save the draw", err)
		}
		if de.Kind == KindPersistence {
			log.Error("draw failed", zap.String("kind", string(de.Kind)), zap.Error(err))
		} else {
			log.Info("draw rejected", zap.String("kind", string(de.Kind)))
		}
		s.audit().DrawFailed(ctx, groupID, actor.UserID, actor.Trigger, string(de.Kind))
		return Result{}, de
	}

	log.Info("draw committed",
		zap.String("draw_id", at.drawID),
		zap.Int("count", len(at.rows)),
		zap.Bool("transactional", transactional))
	s.fanout(ctx, log, at)

	return Result{
		GroupID:         groupID,
		DrawID:          at.drawID,
		AssignmentCount: len(at.rows),
		Transactional:   transactional,
	}, nil
}

// drawOnce is the transactional body. It may run more than once when the
// driver retries a transient transaction error.
func (s *Service) drawOnce(ctx context.Context, groupID primitive.ObjectID, actor Actor, now time.Time, at *attempt) error {
	g, err := s.d.Groups.GetByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrGroupNotFound
		}
		return persistence("could not load group", err)
	}
	if g.Drawn {
		return ErrAlreadyDrawn
	}
	at.group = g

	members, err := s.d.Members.ActiveUserIDs(ctx, groupID)
	if err != nil {
		return persistence("could not load members", err)
	}
	if len(members) < santa.MinMembers {
		return ErrInsufficientMembers
	}

	rules, err := s.d.Exclusions.ListByGroup(ctx, groupID)
	if err != nil {
		return persistence("could not load exclusions", err)
	}
	excl := BuildAdjacency(rules)

	pairs, err := s.solve(members, excl)
	if err != nil {
		if errors.Is(err, santa.ErrInfeasible) {
			return ErrConstraintInfeasible
		}
		return persistence("assignment engine failed", err)
	}

	drawID := uuid.NewString()
	ok, err := s.d.Groups.ClaimDraw(ctx, groupID, drawID, now)
	if err != nil {
		return persistence("could not mark group drawn", err)
	}
	if !ok {
		return ErrAlreadyDrawn
	}
	at.drawID = drawID
	at.claimed = true

	at.rows = buildRows(groupID, drawID, pairs, excl, now)
	if err := s.d.Assignments.InsertMany(ctx, at.rows); err != nil {
		return persistence("could not save assignments", err)
	}
	if err := s.audit().DrawExecuted(ctx, groupID, actor.UserID, actor.Trigger, drawID, len(at.rows)); err != nil {
		return persistence("could not record the draw", err)
	}
	return nil
}

func (s *Service) solve(members []primitive.ObjectID, excl santa.Adjacency[primitive.ObjectID]) ([]santa.Pair[primitive.ObjectID], error) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return santa.Draw(members, excl, santa.Options{
		MaxAttempts:  s.cfg.MaxAttempts,
		Constructive: s.cfg.Constructive,
		Rand:         s.rng,
	})
}

// BuildAdjacency turns stored rules into the engine's symmetric lookup.
func BuildAdjacency(rules []models.ExclusionRule) santa.Adjacency[primitive.ObjectID] {
	rs := make([]santa.Rule[primitive.ObjectID], 0, len(rules))
	for _, r := range rules {
		rs = append(rs, santa.Rule[primitive.ObjectID]{A: r.UserID1, B: r.UserID2})
	}
	return santa.BuildAdjacency(rs)
}

func buildRows(groupID primitive.ObjectID, drawID string, pairs []santa.Pair[primitive.ObjectID], excl santa.Adjacency[primitive.ObjectID], now time.Time) []models.Assignment {
	rows := make([]models.Assignment, 0, len(pairs))
	for _, p := range pairs {
		snapshot := excl.Of(p.Giver)
		sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].Hex() < snapshot[j].Hex() })
		rows = append(rows, models.Assignment{
			ID:                  primitive.NewObjectID(),
			GroupID:             groupID,
			DrawID:              drawID,
			GiverID:             p.Giver,
			ReceiverID:          p.Receiver,
			ExcludedReceiverIDs: snapshot,
			CreatedAt:           now.UTC(),
		})
	}
	return rows
}

// compensate undoes a claim made without a transaction. Both steps are
// scoped to the attempt's draw id so a newer epoch is never touched.
func (s *Service) compensate(ctx context.Context, log *zap.Logger, at attempt) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.FanoutTimeout)
	defer cancel()

	if _, err := s.d.Assignments.DeleteByDraw(ctx, at.group.ID, at.drawID); err != nil {
		log.Error("compensation: could not delete partial assignments",
			zap.String("draw_id", at.drawID), zap.Error(err))
		return
	}
	if _, err := s.d.Groups.ReleaseDraw(ctx, at.group.ID, at.drawID, at.group.ScheduledDrawAt); err != nil {
		log.Error("compensation: could not release draw claim",
			zap.String("draw_id", at.drawID), zap.Error(err))
		return
	}
	log.Warn("rolled back draw without transaction", zap.String("draw_id", at.drawID))
}

// fanout notifies givers. It runs detached from the caller's cancellation
// because the draw has already committed.
func (s *Service) fanout(ctx context.Context, log *zap.Logger, at attempt) {
	if s.d.Notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.FanoutTimeout)
	defer cancel()

	group := at.group
	group.Drawn = true
	group.DrawID = at.drawID
	if err := s.d.Notifier.NotifyDraw(ctx, group, at.rows); err != nil {
		log.Warn("some draw notifications were not delivered",
			zap.String("draw_id", at.drawID), zap.Error(err))
	}
}

// ResetDraw deletes the group's assignments and makes it drawable again.
// It returns the number of assignment rows removed.
func (s *Service) ResetDraw(ctx context.Context, groupID primitive.ObjectID, actor Actor) (int64, error) {
	log := s.d.Log.With(zap.String("group_id", groupID.Hex()), zap.String("trigger", actor.Trigger))

	var (
		removed  int64
		drawID   string
		auditErr error
	)
	transactional, err := s.d.Tx.Run(ctx, func(ctx context.Context) error {
		auditErr = nil
		g, err := s.d.Groups.GetByID(ctx, groupID)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return ErrGroupNotFound
			}
			return persistence("could not load group", err)
		}
		if !g.Drawn {
			return ErrNotDrawn
		}
		// Rows go first: without a transaction a failure here leaves the
		// group drawn, so the reset can simply be retried.
		removed, err = s.d.Assignments.DeleteByGroup(ctx, groupID)
		if err != nil {
			return persistence("could not delete assignments", err)
		}
		drawID, err = s.d.Groups.Reset(ctx, groupID)
		if err != nil {
			if errors.Is(err, groupstore.ErrNotDrawn) {
				return ErrNotDrawn
			}
			return persistence("could not reset group", err)
		}
		if err := s.audit().DrawReset(ctx, groupID, actor.UserID, actor.Trigger, drawID, removed); err != nil {
			auditErr = err
			return persistence("could not record the reset", err)
		}
		return nil
	})
	if err != nil && !transactional && auditErr != nil {
		// Rows and flag are already gone; only the record is missing.
		log.Error("draw reset was not audited", zap.String("draw_id", drawID), zap.Error(auditErr))
		err = nil
	}
	if err != nil {
		var de *Error
		if !errors.As(err, &de) {
			de = persistence("could not reset the draw", err)
		}
		log.Info("reset rejected", zap.String("kind", string(de.Kind)), zap.Error(de.Err))
		return 0, de
	}

	log.Info("draw reset", zap.String("draw_id", drawID), zap.Int64("removed", removed))
	return removed, nil
}

// MyAssignment is what a giver is allowed to see about their draw.
type MyAssignment struct {
	GroupID      primitive.ObjectID
	DrawID       string
	ReceiverID   primitive.ObjectID
	ReceiverName string
	DrawnAt      *time.Time
}

// MyAssignment returns who giverID gives to in the group's current draw.
// It never reveals who gives to giverID.
func (s *Service) MyAssignment(ctx context.Context, groupID, giverID primitive.ObjectID) (MyAssignment, error) {
	g, err := s.d.Groups.GetByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return MyAssignment{}, ErrGroupNotFound
		}
		return MyAssignment{}, persistence("could not load group", err)
	}
	if !g.Drawn {
		return MyAssignment{}, ErrNotDrawn
	}

	a, err := s.d.Assignments.GetForGiver(ctx, groupID, giverID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return MyAssignment{}, ErrNoAssignment
		}
		return MyAssignment{}, persistence("could not load assignment", err)
	}

	out := MyAssignment{
		GroupID:    groupID,
		DrawID:     a.DrawID,
		ReceiverID: a.ReceiverID,
		DrawnAt:    g.DrawnAt,
	}
	if s.d.Users != nil {
		if u, err := s.d.Users.GetByID(ctx, a.ReceiverID); err == nil {
			out.ReceiverName = u.DisplayName
		} else if !errors.Is(err, mongo.ErrNoDocuments) {
			return MyAssignment{}, persistence("could not load receiver", err)
		}
	}
	return out, nil
}

type nopAuditor struct{}

func (nopAuditor) DrawExecuted(context.Context, primitive.ObjectID, *primitive.ObjectID, string, string, int) error {
	return nil
}
func (nopAuditor) DrawFailed(context.Context, primitive.ObjectID, *primitive.ObjectID, string, string) {
}
func (nopAuditor) DrawReset(context.Context, primitive.ObjectID, *primitive.ObjectID, string, string, int64) error {
	return nil
}

func (s *Service) audit() Auditor {
	if s.d.Audit == nil {
		return nopAuditor{}
	}
	return s.d.Audit
}
