package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ykvlv/report-bot/internal/metrics"
)

var (
	ErrNoReplyTarget   = errors.New("report has no reply target")
	ErrSelfReport      = errors.New("bot reported itself")
	ErrTargetIsAdmin   = errors.New("reported user is an admin")
	ErrReporterIsAdmin = errors.New("reporter is an admin")
	ErrThrottled       = errors.New("too many reports in this chat")
)

// Roster fetches chat membership from the messaging platform.
type Roster interface {
	ListAdmins(ctx context.Context, chatID int64) ([]Admin, error)
	MemberRole(ctx context.Context, chatID, userID int64) (Role, error)
}

// Member identifies a message author.
type Member struct {
	UserID      int64
	DisplayName string
	Username    string
	IsBot       bool
}

// Request describes one report event.
type Request struct {
	ChatID   int64
	Reporter Member
	Target   *Member // author of the replied-to message; nil without a reply
	BotID    int64
}

// Outcome is a successful report: who was reported and whom to mention.
type Outcome struct {
	ID     string
	Target Member
	Selection
}

type Service struct {
	roster   Roster
	selector *Selector
	limiter  *ChatLimiter
	log      *zap.Logger
	now      func() time.Time
}

// NewService wires the report flow. limiter may be nil (no throttling).
func NewService(roster Roster, selector *Selector, limiter *ChatLimiter, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		roster:   roster,
		selector: selector,
		limiter:  limiter,
		log:      log,
		now:      time.Now,
	}
}

// Report checks the preconditions and selects admins to mention.
// Precondition failures come back as the sentinel errors above.
func (s *Service) Report(ctx context.Context, req Request) (Outcome, error) {
	id := uuid.NewString()
	log := s.log.With(zap.String("reportID", id), zap.Int64("chatID", req.ChatID))

	out, err := s.report(ctx, req, log)
	metrics.Reports.WithLabelValues(outcomeLabel(out, err)).Inc()
	if err != nil {
		log.Debug("report aborted", zap.Error(err))
		return Outcome{}, err
	}
	out.ID = id
	metrics.AdminsNotified.Observe(float64(len(out.Notify)))
	log.Info("report handled",
		zap.Int64("target", out.Target.UserID),
		zap.Int("notified", len(out.Notify)),
		zap.Bool("fallback", out.Fallback != nil),
	)
	return out, nil
}

func (s *Service) report(ctx context.Context, req Request, log *zap.Logger) (Outcome, error) {
	role, err := s.roster.MemberRole(ctx, req.ChatID, req.Reporter.UserID)
	if err != nil {
		return Outcome{}, fmt.Errorf("reporter role: %w", err)
	}
	if role.IsAdmin() {
		return Outcome{}, ErrReporterIsAdmin
	}

	if req.Target == nil {
		return Outcome{}, ErrNoReplyTarget
	}
	if req.Target.UserID == req.BotID {
		return Outcome{}, ErrSelfReport
	}
	role, err = s.roster.MemberRole(ctx, req.ChatID, req.Target.UserID)
	if err != nil {
		return Outcome{}, fmt.Errorf("target role: %w", err)
	}
	if role.IsAdmin() {
		return Outcome{}, ErrTargetIsAdmin
	}

	if !s.limiter.Allow(req.ChatID) {
		return Outcome{}, ErrThrottled
	}

	admins, err := s.roster.ListAdmins(ctx, req.ChatID)
	if err != nil {
		return Outcome{}, fmt.Errorf("list admins: %w", err)
	}
	log.Debug("admins fetched", zap.Int("count", len(admins)))

	sel, err := s.selector.Select(ctx, admins, s.now())
	if err != nil {
		return Outcome{}, fmt.Errorf("select admins: %w", err)
	}
	return Outcome{Target: *req.Target, Selection: sel}, nil
}

func outcomeLabel(out Outcome, err error) string {
	switch {
	case err == nil && len(out.Notify) > 0:
		return "notified"
	case err == nil && out.Fallback != nil:
		return "fallback"
	case err == nil:
		return "nobody"
	case errors.Is(err, ErrNoReplyTarget):
		return "no_target"
	case errors.Is(err, ErrSelfReport):
		return "self_report"
	case errors.Is(err, ErrTargetIsAdmin):
		return "target_admin"
	case errors.Is(err, ErrReporterIsAdmin):
		return "reporter_admin"
	case errors.Is(err, ErrThrottled):
		return "throttled"
	default:
		return "error"
	}
}
