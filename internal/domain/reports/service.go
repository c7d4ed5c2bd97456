package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pawpal/internal/domain/notifications"
	"pawpal/internal/platform/cache"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("report not found")
	ErrBadState     = errors.New("report already closed")
)

const maxReasonLen = 1000

type Admins interface {
	IsAdmin(ctx context.Context, userID string) bool
}

type Notifier interface {
	Notify(ctx context.Context, userID string, kind notifications.Kind, title, body string, data map[string]string) error
}

type Service struct {
	repo     Repository
	cache    *cache.Cache
	admins   Admins
	notifier Notifier
	now      func() time.Time
}

func NewService(repo Repository, c *cache.Cache, admins Admins, notifier Notifier) *Service {
	return &Service{
		repo:     repo,
		cache:    c,
		admins:   admins,
		notifier: notifier,
		now:      time.Now,
	}
}

var reportsPrefix = cache.Key{"reports"}

func statusKey(status Status) cache.Key {
	if status == "" {
		return cache.Key{"reports", "all"}
	}
	return cache.Key{"reports", string(status)}
}

func mineKey(userID string) cache.Key { return cache.Key{"reports", "mine", userID} }

type CreateInput struct {
	TargetType TargetType
	TargetID   string
	Reason     string
}

func (s *Service) Create(ctx context.Context, reporterID string, in CreateInput) (Report, error) {
	reporterID = strings.TrimSpace(reporterID)
	targetID := strings.TrimSpace(in.TargetID)
	reason := strings.TrimSpace(in.Reason)
	target := TargetType(strings.ToLower(strings.TrimSpace(string(in.TargetType))))

	if reporterID == "" || targetID == "" {
		return Report{}, ErrInvalidInput
	}
	if !target.Valid() {
		return Report{}, fmt.Errorf("%w: unknown target type %q", ErrInvalidInput, in.TargetType)
	}
	if reason == "" {
		return Report{}, fmt.Errorf("%w: reason required", ErrInvalidInput)
	}
	if len(reason) > maxReasonLen {
		return Report{}, fmt.Errorf("%w: reason too long", ErrInvalidInput)
	}

	now := s.now()
	r := Report{
		ID:         uuid.NewString(),
		ReporterID: reporterID,
		TargetType: target,
		TargetID:   targetID,
		Reason:     reason,
		Status:     StatusOpen,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return Report{}, err
	}

	s.cache.Invalidate(statusKey(StatusOpen), statusKey(""), mineKey(reporterID))
	return r, nil
}

// List es la cola de moderación (solo admins).
func (s *Service) List(ctx context.Context, actorID string, status Status) ([]Report, error) {
	if !s.admins.IsAdmin(ctx, actorID) {
		return nil, ErrForbidden
	}
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	return cache.Fetch(ctx, s.cache, statusKey(status), func(ctx context.Context) ([]Report, error) {
		return s.repo.List(ctx, status)
	})
}

func (s *Service) ListMine(ctx context.Context, userID string) ([]Report, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidInput
	}
	return cache.Fetch(ctx, s.cache, mineKey(userID), func(ctx context.Context) ([]Report, error) {
		return s.repo.ListByReporter(ctx, userID)
	})
}

func (s *Service) Get(ctx context.Context, actorID, id string) (Report, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Report{}, err
	}
	if r.ReporterID != actorID && !s.admins.IsAdmin(ctx, actorID) {
		return Report{}, ErrNotFound
	}
	return r, nil
}

func (s *Service) Resolve(ctx context.Context, adminID, id, note string) (Report, error) {
	return s.close(ctx, adminID, id, note, StatusResolved)
}

func (s *Service) Dismiss(ctx context.Context, adminID, id, note string) (Report, error) {
	return s.close(ctx, adminID, id, note, StatusDismissed)
}

func (s *Service) close(ctx context.Context, adminID, id, note string, status Status) (Report, error) {
	if !s.admins.IsAdmin(ctx, adminID) {
		return Report{}, ErrForbidden
	}
	r, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return Report{}, err
	}

	// Idempotente si ya quedó en el mismo estado.
	if r.Status == status {
		return r, nil
	}
	if r.Status != StatusOpen {
		return Report{}, ErrBadState
	}

	now := s.now()
	r.Status = status
	r.AdminNote = strings.TrimSpace(note)
	r.ReviewedBy = adminID
	r.ReviewedAt = &now
	r.UpdatedAt = now

	if err := s.repo.Update(ctx, r); err != nil {
		return Report{}, err
	}
	s.cache.Invalidate(reportsPrefix)

	if s.notifier != nil {
		body := fmt.Sprintf("Your report about a %s was %s.", r.TargetType, r.Status)
		if r.AdminNote != "" {
			body += " " + r.AdminNote
		}
		_ = s.notifier.Notify(ctx, r.ReporterID, notifications.KindModeration, "Report reviewed", body, map[string]string{
			"report_id": r.ID,
			"status":    string(r.Status),
		})
	}
	return r, nil
}
