// Package notify tells each giver who they drew. Only givers are ever
// contacted; a receiver is never told who is giving to them.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/giftbubble/internal/app/system/emailqueue"
	"github.com/dalemusser/giftbubble/internal/app/system/htmlsanitize"
	"github.com/dalemusser/giftbubble/internal/app/system/mailer"
	"github.com/dalemusser/giftbubble/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Channel names used in errors and metrics.
const (
	ChannelInApp = "in_app"
	ChannelEmail = "email"
	// ChannelLookup marks failures before any channel was tried.
	ChannelLookup = "lookup"
)

// UserLookup loads givers and receivers in one call.
type UserLookup interface {
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error)
}

// InAppStore persists in-app notifications.
type InAppStore interface {
	Create(ctx context.Context, n models.Notification) (models.Notification, error)
}

// EmailQueue accepts rendered emails. *emailqueue.Queue implements it.
type EmailQueue interface {
	Enqueue(ctx context.Context, e mailer.Email, dedupeKey string) (string, error)
}

// Recorder counts deliveries. *draws.Metrics implements it.
type Recorder interface {
	Notification(channel, outcome string)
}

// DeliveryError is one failed delivery to one giver. It never affects the
// draw it belongs to.
type DeliveryError struct {
	UserID  primitive.ObjectID
	Channel string
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("notify %s via %s: %v", e.UserID.Hex(), e.Channel, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Config holds presentation settings.
type Config struct {
	SiteName string
	// BaseURL prefixes links, e.g. "https://giftbubble.example".
	BaseURL string
}

// Fanout delivers draw results over the in-app and email channels.
type Fanout struct {
	users UserLookup
	inApp InAppStore
	email EmailQueue
	rec   Recorder
	log   *zap.Logger
	cfg   Config
}

// New builds a Fanout. email and rec may be nil; a nil email queue turns
// the email channel off.
func New(users UserLookup, inApp InAppStore, email EmailQueue, rec Recorder, logger *zap.Logger, cfg Config) *Fanout {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SiteName == "" {
		cfg.SiteName = "GiftBubble"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Fanout{users: users, inApp: inApp, email: email, rec: rec, log: logger, cfg: cfg}
}

// NotifyDraw notifies every giver in rows. Each giver and each channel is
// attempted independently; the returned error joins every DeliveryError.
func (f *Fanout) NotifyDraw(ctx context.Context, group models.Group, rows []models.Assignment) error {
	ids := make([]primitive.ObjectID, 0, 2*len(rows))
	for _, r := range rows {
		ids = append(ids, r.GiverID, r.ReceiverID)
	}
	users, err := f.users.GetByIDs(ctx, ids)
	if err != nil {
		f.count(ChannelLookup, "failed")
		return &DeliveryError{Channel: ChannelLookup, Err: err}
	}

	groupName := htmlsanitize.PlainText(group.Name)
	link := ""
	if f.cfg.BaseURL != "" {
		link = f.cfg.BaseURL + "/groups/" + group.ID.Hex()
	}

	var errs []error
	for _, r := range rows {
		giver, ok := users[r.GiverID]
		if !ok {
			f.count(ChannelLookup, "failed")
			errs = append(errs, &DeliveryError{UserID: r.GiverID, Channel: ChannelLookup, Err: errors.New("giver not found")})
			continue
		}
		receiverName := "your giftee"
		if rcv, ok := users[r.ReceiverID]; ok {
			if n := htmlsanitize.PlainText(rcv.DisplayName); n != "" {
				receiverName = n
			}
		}

		if err := f.sendInApp(ctx, group, giver, receiverName, groupName, link); err != nil {
			errs = append(errs, err)
		}
		if err := f.sendEmail(ctx, r.DrawID, giver, receiverName, groupName, link); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		f.log.Warn("draw notifications incomplete",
			zap.String("group_id", group.ID.Hex()),
			zap.Int("failures", len(errs)))
	}
	return errors.Join(errs...)
}

func (f *Fanout) sendInApp(ctx context.Context, group models.Group, giver models.User, receiverName, groupName, link string) error {
	if !giver.Preferences.InApp() {
		f.count(ChannelInApp, "muted")
		return nil
	}
	gid := group.ID
	_, err := f.inApp.Create(ctx, models.Notification{
		UserID:  giver.ID,
		GroupID: &gid,
		Kind:    models.NotificationDrawAssigned,
		Title:   "Your Secret Santa draw is in",
		Body:    fmt.Sprintf("You are giving a gift to %s in %s.", receiverName, groupName),
		Link:    link,
	})
	if err != nil {
		f.count(ChannelInApp, "failed")
		f.log.Warn("in-app notification failed",
			zap.String("user_id", giver.ID.Hex()), zap.Error(err))
		return &DeliveryError{UserID: giver.ID, Channel: ChannelInApp, Err: err}
	}
	f.count(ChannelInApp, "sent")
	return nil
}

func (f *Fanout) sendEmail(ctx context.Context, drawID string, giver models.User, receiverName, groupName, link string) error {
	if f.email == nil || !giver.Preferences.Email() || giver.Email == "" {
		f.count(ChannelEmail, "muted")
		return nil
	}
	msg := mailer.BuildDrawAssignedEmail(mailer.DrawAssignedData{
		SiteName:     f.cfg.SiteName,
		GiverName:    htmlsanitize.PlainText(giver.DisplayName),
		ReceiverName: receiverName,
		GroupName:    groupName,
		Link:         link,
	}, giver.Locale)
	msg.To = giver.Email

	_, err := f.email.Enqueue(ctx, msg, drawID+":"+giver.ID.Hex())
	if errors.Is(err, emailqueue.ErrDuplicate) {
		f.count(ChannelEmail, "duplicate")
		return nil
	}
	if err != nil {
		f.count(ChannelEmail, "failed")
		f.log.Warn("email enqueue failed",
			zap.String("user_id", giver.ID.Hex()), zap.Error(err))
		return &DeliveryError{UserID: giver.ID, Channel: ChannelEmail, Err: err}
	}
	f.count(ChannelEmail, "sent")
	return nil
}

func (f *Fanout) count(channel, outcome string) {
	if f.rec != nil {
		f.rec.Notification(channel, outcome)
	}
}
