package draws

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/giftbubble/internal/app/system/auditlog"
	"github.com/dalemusser/giftbubble/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Drawer runs one group's draw. *Service implements it.
type Drawer interface {
	ExecuteDraw(ctx context.Context, groupID primitive.ObjectID, actor Actor) (Result, error)
}

// DueLister lists groups whose scheduled draw time has passed.
type DueLister interface {
	ListDueForDraw(ctx context.Context, now time.Time, limit int64) ([]models.Group, error)
}

// SweepRecorder receives the sweep summary. *auditlog.Logger implements it.
type SweepRecorder interface {
	SweepCompleted(ctx context.Context, checked, executed, failed, skipped int)
}

// SweepResult summarises one sweep. Executed + Failed + Skipped equals
// Checked.
type SweepResult struct {
	GroupsChecked int `json:"groupsChecked"`
	DrawsExecuted int `json:"drawsExecuted"`
	DrawsFailed   int `json:"drawsFailed"`
	// GroupsSkipped were due but not attempted because the budget ran out.
	GroupsSkipped int `json:"groupsSkipped"`
}

// SweepConfig bounds a sweep.
type SweepConfig struct {
	// Budget is the wall-clock limit for starting new draws. Zero means none.
	Budget time.Duration
	// Limit caps the groups listed per sweep. Zero means no cap.
	Limit int64
	// PerGroupTimeout bounds each draw.
	PerGroupTimeout time.Duration
}

// Sweeper runs the draw for every due group, each in isolation.
type Sweeper struct {
	groups  DueLister
	drawer  Drawer
	rec     SweepRecorder
	metrics *Metrics
	log     *zap.Logger
	cfg     SweepConfig
}

// NewSweeper builds a Sweeper. rec and metrics may be nil.
func NewSweeper(groups DueLister, drawer Drawer, rec SweepRecorder, metrics *Metrics, logger *zap.Logger, cfg SweepConfig) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PerGroupTimeout <= 0 {
		cfg.PerGroupTimeout = 30 * time.Second
	}
	return &Sweeper{groups: groups, drawer: drawer, rec: rec, metrics: metrics, log: logger, cfg: cfg}
}

// Run draws every group due at now. Only a failure to list groups is
// returned; per-group failures, panics included, are counted and logged.
// Groups left when the budget expires or ctx is cancelled are reported as
// skipped and will be picked up by the next sweep.
func (s *Sweeper) Run(ctx context.Context, now time.Time) (SweepResult, error) {
	start := time.Now()

	due, err := s.groups.ListDueForDraw(ctx, now, s.cfg.Limit)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list due groups: %w", err)
	}

	budgetCtx := ctx
	if s.cfg.Budget > 0 {
		var cancel context.CancelFunc
		budgetCtx, cancel = context.WithTimeout(ctx, s.cfg.Budget)
		defer cancel()
	}

	res := SweepResult{GroupsChecked: len(due)}
	for i, g := range due {
		if budgetCtx.Err() != nil {
			res.GroupsSkipped = len(due) - i
			s.log.Warn("sweep budget exhausted",
				zap.Int("skipped", res.GroupsSkipped),
				zap.Duration("budget", s.cfg.Budget))
			break
		}
		if err := s.drawOne(ctx, g); err != nil {
			res.DrawsFailed++
			continue
		}
		res.DrawsExecuted++
	}

	s.log.Info("scheduled draw sweep finished",
		zap.Int("groups_checked", res.GroupsChecked),
		zap.Int("draws_executed", res.DrawsExecuted),
		zap.Int("draws_failed", res.DrawsFailed),
		zap.Int("groups_skipped", res.GroupsSkipped),
		zap.Duration("elapsed", time.Since(start)))
	s.metrics.ObserveSweep(res, time.Since(start).Seconds())
	if s.rec != nil {
		s.rec.SweepCompleted(ctx, res.GroupsChecked, res.DrawsExecuted, res.DrawsFailed, res.GroupsSkipped)
	}
	return res, nil
}

// drawOne is the isolation boundary for one group. A draw already started
// is given its own timeout rather than the sweep budget so it can finish.
func (s *Sweeper) drawOne(ctx context.Context, g models.Group) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic drawing group: %v", r)
			s.log.Error("scheduled draw panicked",
				zap.String("group_id", g.ID.Hex()),
				zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.PerGroupTimeout)
	defer cancel()

	_, err = s.drawer.ExecuteDraw(ctx, g.ID, Actor{Trigger: auditlog.TriggerScheduled})
	if err != nil {
		s.log.Warn("scheduled draw failed",
			zap.String("group_id", g.ID.Hex()),
			zap.String("kind", string(KindOf(err))),
			zap.Error(err))
	}
	return err
}
